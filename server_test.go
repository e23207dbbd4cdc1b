package main

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fansqz/js-debugger/config"
	"github.com/fansqz/js-debugger/constants"
	"github.com/fansqz/js-debugger/debugger"
	"github.com/fansqz/js-debugger/debugger/debuggerstub"
	"github.com/fansqz/js-debugger/utils/scheduler"
	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testHelper struct {
	t       *testing.T
	root    string
	loop    *scheduler.Loop
	api     *debuggerstub.DebuggerApi
	app     *app
	out     *bytes.Buffer
	session *DebugSession
	seq     int
}

func newTestHelper(t *testing.T) *testHelper {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Workspace.Root = t.TempDir()
	cfg.Workspace.Watch = false

	h := &testHelper{
		t:    t,
		root: cfg.Workspace.Root,
		loop: scheduler.NewLoop(),
		api:  debuggerstub.NewDebuggerApi(),
		out:  &bytes.Buffer{},
	}
	h.app = newApp(cfg, h.loop, h.api, nil)
	h.session = newDebugSession(strings.NewReader(""), h.out, h.app)
	h.session.attach()
	t.Cleanup(func() {
		h.session.detach()
		h.app.shutdown()
	})
	return h
}

func (h *testHelper) request(command string) dap.Request {
	h.seq++
	return dap.Request{
		ProtocolMessage: dap.ProtocolMessage{Seq: h.seq, Type: "request"},
		Command:         command,
	}
}

// do 在事件循环中处理请求，返回这期间发送给客户端的所有消息
func (h *testHelper) do(request dap.Message) []dap.Message {
	h.session.dispatchRequest(request)
	h.loop.Flush()
	return h.messages()
}

func (h *testHelper) fire(fn func(l debugger.DebuggerResponseListener, sessionId string)) []dap.Message {
	h.api.Fire(func(l debugger.DebuggerResponseListener) {
		fn(l, h.app.session.SessionId())
	})
	h.loop.Flush()
	return h.messages()
}

func (h *testHelper) messages() []dap.Message {
	reader := bufio.NewReader(bytes.NewReader(h.out.Bytes()))
	h.out.Reset()
	var answer []dap.Message
	for {
		message, err := dap.ReadProtocolMessage(reader)
		if errors.Is(err, io.EOF) {
			return answer
		}
		require.NoError(h.t, err)
		answer = append(answer, message)
	}
}

func (h *testHelper) writeFile(name string, text string) string {
	path := filepath.Join(h.root, name)
	require.NoError(h.t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func (h *testHelper) launch() {
	launch := &dap.LaunchRequest{Request: h.request("launch"), Arguments: []byte(`{"url":"http://localhost:8080/index.html"}`)}
	h.do(launch)
	messages := h.do(&dap.ConfigurationDoneRequest{Request: h.request("configurationDone")})
	require.Len(h.t, messages, 1)
	require.True(h.t, h.app.session.IsActive())
}

func (h *testHelper) setBreakpoints(path string, lines ...int) *dap.SetBreakpointsResponse {
	request := &dap.SetBreakpointsRequest{Request: h.request("setBreakpoints")}
	request.Arguments.Source = dap.Source{Path: path}
	for _, line := range lines {
		request.Arguments.Breakpoints = append(request.Arguments.Breakpoints, dap.SourceBreakpoint{Line: line})
	}
	messages := h.do(request)
	require.Len(h.t, messages, 1)
	response, ok := messages[0].(*dap.SetBreakpointsResponse)
	require.True(h.t, ok, "%#v", messages[0])
	return response
}

func (h *testHelper) pause(callFrames ...*debugger.CallFrame) []dap.Message {
	return h.fire(func(l debugger.DebuggerResponseListener, sessionId string) {
		l.OnPaused(sessionId, &debugger.OnPaused{CallFrames: callFrames})
	})
}

func objectRemoteObject(id string) *debugger.RemoteObject {
	return &debugger.RemoteObject{
		Type:        constants.TypeObject,
		Description: "Object",
		HasChildren: true,
		ObjectId:    debugger.RemoteObjectId(id),
	}
}

func numberRemoteObject(value string) *debugger.RemoteObject {
	return &debugger.RemoteObject{Type: constants.TypeNumber, Description: value}
}

func TestInitialize(t *testing.T) {
	h := newTestHelper(t)
	messages := h.do(&dap.InitializeRequest{Request: h.request("initialize")})
	require.Len(t, messages, 2)
	response, ok := messages[0].(*dap.InitializeResponse)
	require.True(t, ok)
	assert.True(t, response.Success)
	assert.True(t, response.Body.SupportsConfigurationDoneRequest)
	assert.True(t, response.Body.SupportsSetVariable)
	assert.Len(t, response.Body.ExceptionBreakpointFilters, 2)
	_, ok = messages[1].(*dap.InitializedEvent)
	assert.True(t, ok)
}

func TestLaunchRunsAfterConfigurationDone(t *testing.T) {
	h := newTestHelper(t)
	launch := &dap.LaunchRequest{Request: h.request("launch")}
	launch.Arguments = []byte(`{"program":"` + filepath.Join(h.root, "js", "app.html") + `"}`)
	messages := h.do(launch)
	require.Len(t, messages, 1)
	assert.True(t, messages[0].(*dap.LaunchResponse).Success)
	assert.Empty(t, h.api.RequestsOf("RunDebugger"))

	messages = h.do(&dap.ConfigurationDoneRequest{Request: h.request("configurationDone")})
	require.Len(t, messages, 1)
	assert.True(t, messages[0].(*dap.ConfigurationDoneResponse).Success)
	runs := h.api.RequestsOf("RunDebugger")
	require.Len(t, runs, 1)
	assert.Equal(t, "http://localhost:8080/js/app.html", runs[0].Args[0])
}

func TestLaunchWithoutUrl(t *testing.T) {
	h := newTestHelper(t)
	messages := h.do(&dap.LaunchRequest{Request: h.request("launch"), Arguments: []byte(`{}`)})
	require.Len(t, messages, 1)
	response, ok := messages[0].(*dap.ErrorResponse)
	require.True(t, ok)
	assert.False(t, response.Success)
}

func TestLaunchWhenExtensionUnavailable(t *testing.T) {
	h := newTestHelper(t)
	h.api.SetAvailable(false)
	h.loop.Flush()
	h.messages()

	h.do(&dap.ConfigurationDoneRequest{Request: h.request("configurationDone")})
	messages := h.do(&dap.LaunchRequest{Request: h.request("launch"), Arguments: []byte(`{"url":"http://localhost:8080/"}`)})
	require.Len(t, messages, 1)
	response, ok := messages[0].(*dap.ErrorResponse)
	require.True(t, ok)
	assert.Contains(t, response.Message, "not available")
	assert.Empty(t, h.api.RequestsOf("RunDebugger"))
}

func TestSetBreakpointsDiffsAgainstModel(t *testing.T) {
	h := newTestHelper(t)
	path := h.writeFile("a.js", "a\nb\nc\nd\ne")

	response := h.setBreakpoints(path, 2, 4)
	require.Len(t, response.Body.Breakpoints, 2)
	assert.Equal(t, 2, response.Body.Breakpoints[0].Line)
	assert.Equal(t, "b", response.Body.Breakpoints[0].Message)
	assert.Equal(t, path, response.Body.Breakpoints[0].Source.Path)
	fourth := response.Body.Breakpoints[1].Id
	assert.Equal(t, []debugger.Breakpoint{
		debugger.NewBreakpoint("/a.js", 1),
		debugger.NewBreakpoint("/a.js", 3),
	}, h.app.model.BreakpointsOf("/a.js"))

	response = h.setBreakpoints(path, 4, 5)
	require.Len(t, response.Body.Breakpoints, 2)
	assert.Equal(t, fourth, response.Body.Breakpoints[0].Id)
	assert.ElementsMatch(t, []debugger.Breakpoint{
		debugger.NewBreakpoint("/a.js", 3),
		debugger.NewBreakpoint("/a.js", 4),
	}, h.app.model.BreakpointsOf("/a.js"))
	assert.Equal(t, "/a.js", h.app.controller.Path())

	h.setBreakpoints(path)
	assert.Empty(t, h.app.model.BreakpointsOf("/a.js"))
}

func TestShiftedBreakpointSendsChangedEvent(t *testing.T) {
	h := newTestHelper(t)
	path := h.writeFile("a.js", "a\nb\nc")
	response := h.setBreakpoints(path, 3)
	id := response.Body.Breakpoints[0].Id

	doc := h.app.controller.AnchoredBreakpoints().Document()
	require.NoError(t, doc.Insert(0, 0, "x\n"))
	h.loop.Flush()

	messages := h.messages()
	require.Len(t, messages, 1)
	event, ok := messages[0].(*dap.BreakpointEvent)
	require.True(t, ok)
	assert.Equal(t, string(constants.ChangeType), event.Body.Reason)
	assert.Equal(t, id, event.Body.Breakpoint.Id)
	assert.Equal(t, 4, event.Body.Breakpoint.Line)
}

func TestStepRequiresPause(t *testing.T) {
	h := newTestHelper(t)
	h.launch()
	messages := h.do(&dap.NextRequest{Request: h.request("next")})
	require.Len(t, messages, 1)
	_, ok := messages[0].(*dap.ErrorResponse)
	assert.True(t, ok)
	assert.Empty(t, h.api.RequestsOf("StepOver"))
}

func TestPauseInspectAndStep(t *testing.T) {
	h := newTestHelper(t)
	h.launch()
	h.fire(func(l debugger.DebuggerResponseListener, sessionId string) {
		l.OnScriptParsed(sessionId, &debugger.OnScriptParsed{ScriptId: "1", Url: "http://localhost:8080/js/a.js"})
	})

	callFrame := &debugger.CallFrame{
		Id:           "cf1",
		FunctionName: "onClick",
		Location:     &debugger.Location{ScriptId: "1", LineNumber: 9, ColumnNumber: 2},
		ScopeChain: []*debugger.Scope{
			{Type: constants.ScopeLocal, Object: objectRemoteObject("local-1")},
			{Type: constants.ScopeGlobal, Object: objectRemoteObject("window")},
		},
	}
	messages := h.pause(callFrame)
	require.Len(t, messages, 1)
	stopped, ok := messages[0].(*dap.StoppedEvent)
	require.True(t, ok)
	assert.Equal(t, string(constants.BreakpointStopped), stopped.Body.Reason)

	messages = h.do(&dap.StackTraceRequest{Request: h.request("stackTrace")})
	require.Len(t, messages, 1)
	stackTrace := messages[0].(*dap.StackTraceResponse)
	require.Len(t, stackTrace.Body.StackFrames, 1)
	frame := stackTrace.Body.StackFrames[0]
	assert.Equal(t, "onClick", frame.Name)
	assert.Equal(t, 10, frame.Line)
	require.NotNil(t, frame.Source)
	assert.Equal(t, filepath.Join(h.root, "js", "a.js"), frame.Source.Path)

	scopesRequest := &dap.ScopesRequest{Request: h.request("scopes")}
	scopesRequest.Arguments.FrameId = frame.Id
	messages = h.do(scopesRequest)
	require.Len(t, messages, 1)
	scopes := messages[0].(*dap.ScopesResponse).Body.Scopes
	require.Len(t, scopes, 2)
	assert.Equal(t, "local", scopes[0].Name)
	assert.Equal(t, "global", scopes[1].Name)

	// 子节点加载完成之后才响应
	variablesRequest := &dap.VariablesRequest{Request: h.request("variables")}
	variablesRequest.Arguments.VariablesReference = scopes[0].VariablesReference
	assert.Empty(t, h.do(variablesRequest))
	require.Len(t, h.api.RequestsOf("RequestRemoteObjectProperties"), 1)

	messages = h.fire(func(l debugger.DebuggerResponseListener, sessionId string) {
		l.OnRemoteObjectPropertiesResponse(sessionId, &debugger.OnRemoteObjectPropertiesResponse{
			ObjectId: "local-1",
			Properties: []*debugger.PropertyDescriptor{
				{Name: "x", Value: numberRemoteObject("1"), Writable: true},
				{Name: "obj", Value: objectRemoteObject("obj-1"), Writable: true},
			},
		})
	})
	require.Len(t, messages, 1)
	variables := messages[0].(*dap.VariablesResponse).Body.Variables
	require.Len(t, variables, 2)
	assert.Equal(t, "obj", variables[0].Name)
	assert.NotZero(t, variables[0].VariablesReference)
	assert.Equal(t, "x", variables[1].Name)
	assert.Equal(t, "1", variables[1].Value)
	assert.Zero(t, variables[1].VariablesReference)

	// 已经加载的子节点直接响应
	variablesRequest = &dap.VariablesRequest{Request: h.request("variables")}
	variablesRequest.Arguments.VariablesReference = scopes[0].VariablesReference
	messages = h.do(variablesRequest)
	require.Len(t, messages, 1)
	assert.Len(t, messages[0].(*dap.VariablesResponse).Body.Variables, 2)

	setVariable := &dap.SetVariableRequest{Request: h.request("setVariable")}
	setVariable.Arguments.VariablesReference = scopes[0].VariablesReference
	setVariable.Arguments.Name = "x"
	setVariable.Arguments.Value = "2"
	messages = h.do(setVariable)
	require.Len(t, messages, 1)
	assert.Equal(t, "2", messages[0].(*dap.SetVariableResponse).Body.Value)
	// 暂停时在当前栈帧上计算新的值
	require.Len(t, h.api.RequestsOf("SetRemoteObjectPropertyEvaluatedOnCallFrame"), 1)

	messages = h.do(&dap.NextRequest{Request: h.request("next")})
	require.Len(t, messages, 1)
	assert.Len(t, h.api.RequestsOf("StepOver"), 1)

	messages = h.fire(func(l debugger.DebuggerResponseListener, sessionId string) {
		l.OnResumed(sessionId)
	})
	require.Len(t, messages, 1)
	_, ok = messages[0].(*dap.ContinuedEvent)
	assert.True(t, ok)

	messages = h.pause(callFrame)
	require.Len(t, messages, 1)
	assert.Equal(t, string(constants.StepStopped), messages[0].(*dap.StoppedEvent).Body.Reason)
}

func TestUnknownVariablesReference(t *testing.T) {
	h := newTestHelper(t)
	request := &dap.VariablesRequest{Request: h.request("variables")}
	request.Arguments.VariablesReference = 1000
	messages := h.do(request)
	require.Len(t, messages, 1)
	_, ok := messages[0].(*dap.ErrorResponse)
	assert.True(t, ok)
}

func TestEvaluate(t *testing.T) {
	h := newTestHelper(t)
	h.launch()

	request := &dap.EvaluateRequest{Request: h.request("evaluate")}
	request.Arguments.Expression = " 1 + 1 "
	assert.Empty(t, h.do(request))
	evaluations := h.api.RequestsOf("EvaluateExpression")
	require.Len(t, evaluations, 1)
	assert.Equal(t, "1 + 1", evaluations[0].Args[0])

	messages := h.fire(func(l debugger.DebuggerResponseListener, sessionId string) {
		l.OnEvaluateExpressionResponse(sessionId, &debugger.OnEvaluateExpressionResponse{
			Expression: "1 + 1",
			Result:     numberRemoteObject("2"),
		})
	})
	require.Len(t, messages, 1)
	response, ok := messages[0].(*dap.EvaluateResponse)
	require.True(t, ok)
	assert.Equal(t, "2", response.Body.Result)
	assert.Equal(t, "number", response.Body.Type)

	// 同一个表达式不会重复添加监视表达式
	request = &dap.EvaluateRequest{Request: h.request("evaluate")}
	request.Arguments.Expression = "1 + 1"
	h.do(request)
	assert.Equal(t, 1, h.session.trees[replTree].RootChildrenCount())
	assert.Len(t, h.api.RequestsOf("EvaluateExpression"), 2)
}

func TestEvaluateWhenInactive(t *testing.T) {
	h := newTestHelper(t)
	request := &dap.EvaluateRequest{Request: h.request("evaluate")}
	request.Arguments.Expression = "a"
	messages := h.do(request)
	require.Len(t, messages, 1)
	_, ok := messages[0].(*dap.ErrorResponse)
	assert.True(t, ok)
}

func TestConsoleOutput(t *testing.T) {
	h := newTestHelper(t)
	h.launch()
	messages := h.fire(func(l debugger.DebuggerResponseListener, sessionId string) {
		l.OnConsoleMessage(sessionId, &debugger.ConsoleMessage{
			Level:      constants.ConsoleError,
			Text:       "boom",
			Url:        "http://localhost:8080/a.js",
			LineNumber: 3,
		})
		l.OnConsoleMessageRepeatCountUpdated(sessionId, 2)
	})
	require.Len(t, messages, 1)
	output, ok := messages[0].(*dap.OutputEvent)
	require.True(t, ok)
	assert.Equal(t, string(constants.OutputStderr), output.Body.Category)
	assert.Equal(t, "boom\n", output.Body.Output)
	assert.Equal(t, 4, output.Body.Line)
	require.NotNil(t, output.Body.Source)
	assert.Equal(t, filepath.Join(h.root, "a.js"), output.Body.Source.Path)
}

func TestDetachTerminates(t *testing.T) {
	h := newTestHelper(t)
	h.launch()
	evaluate := &dap.EvaluateRequest{Request: h.request("evaluate")}
	evaluate.Arguments.Expression = "a"
	h.do(evaluate)

	messages := h.fire(func(l debugger.DebuggerResponseListener, sessionId string) {
		l.OnDebuggerDetached(sessionId)
	})
	require.Len(t, messages, 2)
	_, ok := messages[0].(*dap.ErrorResponse)
	assert.True(t, ok)
	_, ok = messages[1].(*dap.TerminatedEvent)
	assert.True(t, ok)
	assert.False(t, h.session.running)
}

func TestUnsupportedRequest(t *testing.T) {
	h := newTestHelper(t)
	messages := h.do(&dap.RestartRequest{Request: h.request("restart")})
	require.Len(t, messages, 1)
	response, ok := messages[0].(*dap.ErrorResponse)
	require.True(t, ok)
	assert.Contains(t, response.Message, "restart")
}

func TestSetBreakpointsInUnsupportedFile(t *testing.T) {
	h := newTestHelper(t)
	path := h.writeFile("a.css", "body {}")
	response := h.setBreakpoints(path, 1)
	require.Len(t, response.Body.Breakpoints, 1)
	assert.False(t, response.Body.Breakpoints[0].Verified)
	assert.Zero(t, h.app.model.BreakpointCount())
}

func (h *testHelper) evaluate(expression string, context string, frameId int) []dap.Message {
	request := &dap.EvaluateRequest{Request: h.request("evaluate")}
	request.Arguments.Expression = expression
	request.Arguments.Context = context
	request.Arguments.FrameId = frameId
	return h.do(request)
}

func TestEvaluateOnRequestedFrame(t *testing.T) {
	h := newTestHelper(t)
	h.launch()
	h.pause(&debugger.CallFrame{Id: "cf1"}, &debugger.CallFrame{Id: "cf2"})

	assert.Empty(t, h.evaluate("x", "repl", 2))
	evaluations := h.api.RequestsOf("EvaluateExpressionOnCallFrame")
	require.Len(t, evaluations, 1)
	assert.Equal(t, []interface{}{"cf2", "x"}, evaluations[0].Args)

	messages := h.fire(func(l debugger.DebuggerResponseListener, sessionId string) {
		l.OnEvaluateExpressionResponse(sessionId, &debugger.OnEvaluateExpressionResponse{
			Expression:  "x",
			CallFrameId: "cf2",
			Result:      numberRemoteObject("2"),
		})
	})
	require.Len(t, messages, 1)
	assert.Equal(t, "2", messages[0].(*dap.EvaluateResponse).Body.Result)
}

func TestSelectingAnotherFrameFailsPendingEvaluation(t *testing.T) {
	h := newTestHelper(t)
	h.launch()
	h.pause(&debugger.CallFrame{Id: "cf1"}, &debugger.CallFrame{Id: "cf2"})
	assert.Empty(t, h.evaluate("x", "repl", 1))

	scopes := &dap.ScopesRequest{Request: h.request("scopes")}
	scopes.Arguments.FrameId = 2
	messages := h.do(scopes)
	require.Len(t, messages, 2)
	response, ok := messages[0].(*dap.ErrorResponse)
	require.True(t, ok)
	assert.Equal(t, "evaluate", response.Command)
	assert.Contains(t, response.Message, "call frame changed")
	_, ok = messages[1].(*dap.ScopesResponse)
	assert.True(t, ok)
	assert.Empty(t, h.session.pendingEvaluations)

	// cf1上的结果已经过时
	assert.Empty(t, h.fire(func(l debugger.DebuggerResponseListener, sessionId string) {
		l.OnEvaluateExpressionResponse(sessionId, &debugger.OnEvaluateExpressionResponse{
			Expression:  "x",
			CallFrameId: "cf1",
			Result:      numberRemoteObject("1"),
		})
	}))
}

func TestResumeFailsPendingEvaluation(t *testing.T) {
	h := newTestHelper(t)
	h.launch()
	h.pause(&debugger.CallFrame{Id: "cf1"})
	assert.Empty(t, h.evaluate("x", "watch", 1))

	messages := h.fire(func(l debugger.DebuggerResponseListener, sessionId string) {
		l.OnResumed(sessionId)
	})
	require.Len(t, messages, 2)
	_, ok := messages[0].(*dap.ErrorResponse)
	assert.True(t, ok)
	_, ok = messages[1].(*dap.ContinuedEvent)
	assert.True(t, ok)
	assert.Empty(t, h.session.pendingEvaluations)
}

func TestEvaluateWithUnknownFrame(t *testing.T) {
	h := newTestHelper(t)
	h.launch()
	h.pause(&debugger.CallFrame{Id: "cf1"})
	messages := h.evaluate("x", "repl", 5)
	require.Len(t, messages, 1)
	_, ok := messages[0].(*dap.ErrorResponse)
	assert.True(t, ok)
	assert.Empty(t, h.api.RequestsOf("EvaluateExpressionOnCallFrame"))
}

func TestOnlyWatchExpressionsAreReevaluated(t *testing.T) {
	h := newTestHelper(t)
	h.launch()
	h.evaluate("counter++", "repl", 0)
	h.evaluate("alert(1)", "hover", 0)
	h.evaluate("x", "watch", 0)
	assert.Equal(t, 1, h.session.trees[watchTree].RootChildrenCount())
	assert.Equal(t, 1, h.session.trees[hoverTree].RootChildrenCount())
	assert.Equal(t, 1, h.session.trees[replTree].RootChildrenCount())
	h.api.Reset()

	h.fire(func(l debugger.DebuggerResponseListener, sessionId string) {
		l.OnGlobalObjectChanged(sessionId)
	})
	evaluations := h.api.RequestsOf("EvaluateExpression")
	require.Len(t, evaluations, 1)
	assert.Equal(t, "x", evaluations[0].Args[0])
	assert.Zero(t, h.session.trees[replTree].RootChildrenCount())
	assert.Zero(t, h.session.trees[hoverTree].RootChildrenCount())
}

func TestReplResultCanBeExpanded(t *testing.T) {
	h := newTestHelper(t)
	h.launch()
	h.evaluate("obj", "repl", 0)
	messages := h.fire(func(l debugger.DebuggerResponseListener, sessionId string) {
		l.OnEvaluateExpressionResponse(sessionId, &debugger.OnEvaluateExpressionResponse{
			Expression: "obj",
			Result:     objectRemoteObject("obj-1"),
		})
	})
	require.Len(t, messages, 1)
	reference := messages[0].(*dap.EvaluateResponse).Body.VariablesReference
	require.NotZero(t, reference)
	kind, node := h.session.lookupReference(reference)
	assert.Equal(t, replTree, kind)
	require.NotNil(t, node)
	assert.Equal(t, "obj", node.Name())

	variables := &dap.VariablesRequest{Request: h.request("variables")}
	variables.Arguments.VariablesReference = reference
	assert.Empty(t, h.do(variables))
	require.Len(t, h.api.RequestsOf("RequestRemoteObjectProperties"), 1)

	// 获取属性失败时按照没有属性响应
	messages = h.fire(func(l debugger.DebuggerResponseListener, sessionId string) {
		l.OnRemoteObjectPropertiesResponse(sessionId, &debugger.OnRemoteObjectPropertiesResponse{ObjectId: "obj-1"})
	})
	require.Len(t, messages, 1)
	assert.Empty(t, messages[0].(*dap.VariablesResponse).Body.Variables)
}
