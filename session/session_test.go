package session

import (
	"testing"

	"github.com/fansqz/js-debugger/constants"
	"github.com/fansqz/js-debugger/debugger"
	"github.com/fansqz/js-debugger/debugger/debuggermock"
	"github.com/fansqz/js-debugger/debugger/debuggerstub"
	e "github.com/fansqz/js-debugger/error"
	"github.com/fansqz/js-debugger/utils/scheduler"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testSessionId = "session-1"

type testHelper struct {
	t       *testing.T
	api     *debuggerstub.DebuggerApi
	loop    *scheduler.Loop
	session *Session
	states  []StateEvent
}

func newTestHelper(t *testing.T) *testHelper {
	h := &testHelper{
		t:    t,
		api:  debuggerstub.NewDebuggerApi(),
		loop: scheduler.NewLoop(),
	}
	h.session = New(testSessionId, h.api, h.loop)
	h.session.StateEvents.Add(func(event StateEvent) {
		h.states = append(h.states, event)
	})
	return h
}

func (h *testHelper) run() {
	h.session.RunDebugger(debugger.NewStaticSourceMapping("http://localhost/app"), "http://localhost/app/index.html")
	h.loop.Flush()
	h.api.Reset()
}

func (h *testHelper) pause(callFrameIds ...string) *debugger.OnPaused {
	response := &debugger.OnPaused{}
	for _, id := range callFrameIds {
		response.CallFrames = append(response.CallFrames, &debugger.CallFrame{
			Id:       id,
			Location: &debugger.Location{ScriptId: "s1", LineNumber: 4},
		})
	}
	h.session.OnPaused(testSessionId, response)
	return response
}

func TestRunDebugger(t *testing.T) {
	h := newTestHelper(t)
	assert.Equal(t, constants.Inactive, h.session.State())

	h.session.RunDebugger(debugger.NewStaticSourceMapping("http://localhost/app"), "http://localhost/app/index.html")
	assert.True(t, h.session.IsActive())
	assert.False(t, h.session.IsPaused())
	assert.Equal(t, constants.Running, h.session.State())
	assert.Equal(t, []StateEvent{{Active: true}}, h.states)

	requests := h.api.RequestsOf("RunDebugger")
	require.Len(t, requests, 1)
	assert.Equal(t, testSessionId, requests[0].SessionId)
	assert.Equal(t, "http://localhost/app/index.html", requests[0].Args[0])

	h.session.RunDebugger(nil, "http://localhost/app/index.html")
	assert.Len(t, h.api.RequestsOf("RunDebugger"), 1)
}

func TestBreakpointResolveRemoveRoundTrip(t *testing.T) {
	h := newTestHelper(t)
	h.run()
	breakpoint := debugger.NewBreakpoint("/main.js", 3)

	h.session.SetBreakpoint(breakpoint)
	requests := h.api.RequestsOf("SetBreakpointByUrl")
	require.Len(t, requests, 1)
	sent := requests[0].Args[0].(*debugger.BreakpointInfo)
	assert.Equal(t, 3, sent.LineNumber)

	// 解析结果只携带请求中的断点位置
	echo := *sent
	h.session.OnBreakpointResolved(testSessionId, &debugger.OnBreakpointResolved{
		BreakpointId:   "bp-1",
		BreakpointInfo: &echo,
		Locations:      []debugger.Location{{ScriptId: "s1", LineNumber: 3}},
	})
	info := h.session.FindBreakpointInfo(breakpoint)
	require.NotNil(t, info)
	assert.Equal(t, "bp-1", info.BreakpointId)
	assert.Equal(t, []debugger.Location{{ScriptId: "s1", LineNumber: 3}}, info.Locations)

	h.session.RemoveBreakpoint(breakpoint)
	removes := h.api.RequestsOf("RemoveBreakpoint")
	require.Len(t, removes, 1)
	assert.Equal(t, "bp-1", removes[0].Args[0])
	assert.Nil(t, h.session.FindBreakpointInfo(breakpoint))

	// 确认到达之前可以在同一位置重新提交
	h.session.SetBreakpoint(breakpoint)
	assert.Len(t, h.api.RequestsOf("SetBreakpointByUrl"), 2)

	// 旧断点的确认不影响新提交的断点
	h.session.OnBreakpointRemoved(testSessionId, "bp-1")
	require.Len(t, h.session.BreakpointInfos(), 1)
	assert.Empty(t, h.session.FindBreakpointInfo(breakpoint).BreakpointId)
}

func TestSetBreakpointIsIdempotent(t *testing.T) {
	h := newTestHelper(t)
	h.run()
	breakpoint := debugger.NewBreakpoint("/main.js", 10)

	h.session.SetBreakpoint(breakpoint)
	h.session.SetBreakpoint(breakpoint)
	assert.Len(t, h.api.RequestsOf("SetBreakpointByUrl"), 1)
	assert.Len(t, h.session.BreakpointInfos(), 1)

	h.session.OnBreakpointResolved(testSessionId, &debugger.OnBreakpointResolved{
		BreakpointId:   "bp-10",
		BreakpointInfo: h.session.FindBreakpointInfo(breakpoint),
	})
	h.api.Reset()
	h.session.SetBreakpoint(breakpoint)
	assert.Empty(t, h.api.RequestsOf("SetBreakpointByUrl"))
	assert.Len(t, h.session.BreakpointInfos(), 1)
}

func TestSetBreakpointSkipsInactiveBreakpoints(t *testing.T) {
	h := newTestHelper(t)
	h.run()
	h.session.SetBreakpoint(debugger.NewBreakpoint("/main.js", 1).WithActive(false))
	assert.Empty(t, h.api.Requests())
	assert.Empty(t, h.session.BreakpointInfos())
}

func TestRemoveUnresolvedBreakpoint(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	h := newTestHelper(t)
	h.run()
	breakpoint := debugger.NewBreakpoint("/main.js", 2)
	h.session.SetBreakpoint(breakpoint)
	h.session.RemoveBreakpoint(breakpoint)

	assert.Empty(t, h.api.RequestsOf("RemoveBreakpoint"))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, e.ErrBreakpointNotFound.Error())
	// 记录保留，等待会话结束时清理
	assert.Len(t, h.session.BreakpointInfos(), 1)
}

func TestBreakpointResolvedWithEmptyId(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	h := newTestHelper(t)
	h.run()
	breakpoint := debugger.NewBreakpoint("/main.js", 2)
	h.session.SetBreakpoint(breakpoint)
	info := h.session.FindBreakpointInfo(breakpoint)
	h.session.OnBreakpointResolved(testSessionId, &debugger.OnBreakpointResolved{
		BreakpointInfo: info,
		Locations:      []debugger.Location{{ScriptId: "s2"}},
	})

	assert.Equal(t, "", info.BreakpointId)
	assert.Len(t, info.Locations, 1)
	assert.Contains(t, hook.LastEntry().Message, e.ErrEmptyBreakpointID.Error())
}

func TestEvaluationsAreCoalesced(t *testing.T) {
	h := newTestHelper(t)
	h.run()

	h.loop.Post(func() {
		h.session.EvaluateExpression("x")
		h.session.EvaluateExpression("y")
		h.session.EvaluateExpression("x")
		assert.Empty(t, h.api.Requests())
	})
	h.loop.Flush()

	requests := h.api.RequestsOf("EvaluateExpression")
	require.Len(t, requests, 2)
	assert.Equal(t, "x", requests[0].Args[0])
	assert.Equal(t, "y", requests[1].Args[0])

	// 新的tick重新计算
	h.session.EvaluateExpression("x")
	h.loop.Flush()
	assert.Len(t, h.api.RequestsOf("EvaluateExpression"), 3)
}

func TestEvaluationOnCallFrameWhenPaused(t *testing.T) {
	h := newTestHelper(t)
	h.run()
	h.pause("cf1", "cf2")

	h.session.EvaluateExpression("a + b")
	h.loop.Flush()
	requests := h.api.RequestsOf("EvaluateExpressionOnCallFrame")
	require.Len(t, requests, 1)
	assert.Equal(t, []interface{}{"cf1", "a + b"}, requests[0].Args)
}

func TestEvaluationDroppedAfterDetach(t *testing.T) {
	h := newTestHelper(t)
	h.run()
	h.session.EvaluateExpression("x")
	h.session.OnDebuggerDetached(testSessionId)
	h.loop.Flush()
	assert.Empty(t, h.api.RequestsOf("EvaluateExpression"))
}

func TestStaleCallFrameEvaluationIsDiscarded(t *testing.T) {
	h := newTestHelper(t)
	h.run()
	h.pause("cf1", "cf2")

	var responses []*debugger.OnEvaluateExpressionResponse
	h.session.EvaluateEvents.Add(func(event EvaluateEvent) {
		responses = append(responses, event.Response)
	})

	h.session.SetActiveCallFrameIndex(1)
	h.session.OnEvaluateExpressionResponse(testSessionId, &debugger.OnEvaluateExpressionResponse{
		Expression:  "x",
		CallFrameId: "cf1",
		Result:      debugger.NewStringRemoteObject("old"),
	})
	assert.Empty(t, responses)

	current := &debugger.OnEvaluateExpressionResponse{
		Expression:  "x",
		CallFrameId: "cf2",
		Result:      debugger.NewStringRemoteObject("new"),
	}
	h.session.OnEvaluateExpressionResponse(testSessionId, current)
	assert.Equal(t, []*debugger.OnEvaluateExpressionResponse{current}, responses)

	// 运行时只接受在全局对象上的计算结果
	h.session.OnResumed(testSessionId)
	global := &debugger.OnEvaluateExpressionResponse{Expression: "x"}
	h.session.OnEvaluateExpressionResponse(testSessionId, global)
	h.session.OnEvaluateExpressionResponse(testSessionId, current)
	assert.Equal(t, []*debugger.OnEvaluateExpressionResponse{current, global}, responses)
}

func TestEventsOfOtherSessionsAreIgnored(t *testing.T) {
	h := newTestHelper(t)
	h.run()
	breakpoint := debugger.NewBreakpoint("/main.js", 3)
	h.session.SetBreakpoint(breakpoint)
	h.states = nil

	var consoleEvents []ConsoleEvent
	h.session.ConsoleEvents.Add(func(event ConsoleEvent) {
		consoleEvents = append(consoleEvents, event)
	})

	const other = "session-2"
	h.session.OnPaused(other, &debugger.OnPaused{CallFrames: []*debugger.CallFrame{{Id: "cf"}}})
	h.session.OnBreakpointResolved(other, &debugger.OnBreakpointResolved{
		BreakpointId:   "bp-x",
		BreakpointInfo: h.session.FindBreakpointInfo(breakpoint),
	})
	h.session.OnScriptParsed(other, &debugger.OnScriptParsed{ScriptId: "s1"})
	h.session.OnConsoleMessage(other, &debugger.ConsoleMessage{Text: "hi"})
	h.session.OnDebuggerDetached(other)

	assert.True(t, h.session.IsActive())
	assert.False(t, h.session.IsPaused())
	assert.Equal(t, "", h.session.FindBreakpointInfo(breakpoint).BreakpointId)
	assert.Nil(t, h.session.GetOnScriptParsedResponse("s1"))
	assert.Empty(t, consoleEvents)
	assert.Empty(t, h.states)
}

func TestPausedAndResumed(t *testing.T) {
	h := newTestHelper(t)
	h.run()
	h.states = nil

	paused := h.pause("cf1", "cf2")
	assert.Equal(t, constants.Paused, h.session.State())
	assert.Same(t, paused, h.session.GetOnPausedResponse())
	assert.Equal(t, "cf1", h.session.GetActiveCallFrame().Id)

	h.session.SetActiveCallFrameIndex(1)
	assert.Equal(t, "cf2", h.session.GetActiveCallFrame().Id)

	// 同一个暂停快照不会重复通知
	h.session.OnPaused(testSessionId, paused)
	assert.Equal(t, 1, h.session.ActiveCallFrameIndex())

	h.pause("cf3")
	assert.Equal(t, 0, h.session.ActiveCallFrameIndex())

	h.session.OnResumed(testSessionId)
	assert.Equal(t, constants.Running, h.session.State())
	assert.Nil(t, h.session.GetActiveCallFrame())
	assert.Equal(t, []StateEvent{
		{Active: true, Paused: true},
		{Active: true, Paused: true},
		{Active: true},
	}, h.states)
}

func TestInactiveSessionIsQuiet(t *testing.T) {
	h := newTestHelper(t)
	breakpoint := debugger.NewBreakpoint("/main.js", 1)

	h.session.Pause()
	h.session.Resume()
	h.session.StepInto()
	h.session.StepOut()
	h.session.StepOver()
	h.session.SetBreakpoint(breakpoint)
	h.session.RemoveBreakpoint(breakpoint)
	h.session.SetBreakpointsEnabled(false)
	h.session.SetPauseOnExceptions(constants.PauseOnExceptionsAll)
	h.session.EvaluateExpression("x")
	h.session.RequestRemoteObjectProperties("1")
	h.session.SetRemoteObjectProperty("1", "a", "2")
	h.session.RemoveRemoteObjectProperty("1", "a")
	h.session.RenameRemoteObjectProperty("1", "a", "b")
	h.session.RequestAllCssStyleSheets()
	h.session.SetStyleSheetText("css", "body {}")
	h.session.SendCustomMessage(`{"method":"DOM.getDocument"}`)
	h.loop.Flush()

	assert.Empty(t, h.api.Requests())
}

func TestActiveSessionForwardsRequests(t *testing.T) {
	h := newTestHelper(t)
	h.run()

	h.session.Pause()
	h.session.StepOver()
	h.session.SetBreakpointsEnabled(false)
	h.session.SetPauseOnExceptions(constants.PauseOnExceptionsUncaught)
	h.session.RequestRemoteObjectProperties("obj")
	h.session.SetRemoteObjectProperty("obj", "a", "1")
	h.pause("cf1")
	h.session.SetRemoteObjectProperty("obj", "a", "2")
	h.session.RemoveRemoteObjectProperty("obj", "a")
	h.session.RenameRemoteObjectProperty("obj", "a", "b")

	var methods []string
	for _, request := range h.api.Requests() {
		methods = append(methods, request.Method)
	}
	assert.Equal(t, []string{
		"Pause",
		"StepOver",
		"SetBreakpointsActive",
		"SetPauseOnExceptions",
		"RequestRemoteObjectProperties",
		"SetRemoteObjectProperty",
		"SetRemoteObjectPropertyEvaluatedOnCallFrame",
		"RemoveRemoteObjectProperty",
		"RenameRemoteObjectProperty",
	}, methods)
}

func TestDetachResetsState(t *testing.T) {
	h := newTestHelper(t)
	h.run()
	h.session.SetBreakpoint(debugger.NewBreakpoint("/main.js", 1))
	h.session.OnScriptParsed(testSessionId, &debugger.OnScriptParsed{ScriptId: "s1"})
	h.pause("cf1")
	h.states = nil

	h.session.OnDebuggerDetached(testSessionId)
	assert.False(t, h.session.IsActive())
	assert.False(t, h.session.IsPaused())
	assert.Nil(t, h.session.GetSourceMapping())
	assert.Empty(t, h.session.BreakpointInfos())
	assert.Nil(t, h.session.GetOnScriptParsedResponse("s1"))
	assert.Equal(t, constants.Inactive, h.session.State())
	assert.Equal(t, []StateEvent{{}}, h.states)

	// 已经停止时再次收到detach不会通知
	h.session.OnDebuggerDetached(testSessionId)
	assert.Len(t, h.states, 1)
}

func TestAttach(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	h := newTestHelper(t)
	h.session.OnDebuggerAttached(testSessionId)
	assert.False(t, h.session.IsActive())
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, e.ErrReactivation.Error())

	h.run()
	hook.Reset()
	h.states = nil
	h.session.OnDebuggerAttached(testSessionId)
	assert.True(t, h.session.IsActive())
	assert.Empty(t, h.states)
	assert.Nil(t, hook.LastEntry())
}

func TestRunDebuggerSoftReset(t *testing.T) {
	h := newTestHelper(t)
	h.run()
	breakpoint := debugger.NewBreakpoint("/main.js", 1)
	h.session.SetBreakpoint(breakpoint)
	h.session.OnScriptParsed(testSessionId, &debugger.OnScriptParsed{ScriptId: "s1"})
	h.pause("cf1")

	h.session.RunDebugger(debugger.NewStaticSourceMapping("http://localhost/app"), "http://localhost/app/other.html")
	assert.True(t, h.session.IsActive())
	assert.False(t, h.session.IsPaused())
	assert.Nil(t, h.session.GetOnScriptParsedResponse("s1"))
	// 复用页面时已经提交的断点仍然有效，还没有解析的断点重新提交
	assert.NotNil(t, h.session.FindBreakpointInfo(breakpoint))
	h.api.Reset()
	h.session.SetBreakpoint(breakpoint)
	assert.Len(t, h.api.RequestsOf("SetBreakpointByUrl"), 1)
}

func TestActiveCallFrameLocation(t *testing.T) {
	ctrl := gomock.NewController(t)
	mapping := debuggermock.NewMockSourceMapping(ctrl)

	h := newTestHelper(t)
	h.session.RunDebugger(mapping, "http://localhost/app/index.html")
	assert.Equal(t, "", h.session.GetActiveCallFramePath())
	assert.Equal(t, -1, h.session.GetActiveCallFrameExecutionLineNumber())

	script := &debugger.OnScriptParsed{ScriptId: "s1", Url: "http://localhost/app/main.js"}
	h.session.OnScriptParsed(testSessionId, script)
	paused := h.pause("cf1")

	mapping.EXPECT().GetLocalScriptPath(script).Return("/main.js")
	mapping.EXPECT().GetLocalSourceLineNumber(script, paused.CallFrames[0].Location).Return(4)

	assert.Equal(t, "/main.js", h.session.GetActiveCallFramePath())
	assert.Equal(t, 4, h.session.GetActiveCallFrameExecutionLineNumber())
}

func TestConsoleEvents(t *testing.T) {
	h := newTestHelper(t)
	h.run()
	var events []ConsoleEvent
	h.session.ConsoleEvents.Add(func(event ConsoleEvent) {
		events = append(events, event)
	})

	h.session.OnConsoleMessageRepeatCountUpdated(testSessionId, 2)
	assert.Empty(t, events)

	message := &debugger.ConsoleMessage{Level: constants.ConsoleLog, Text: "hello", RepeatCount: 1}
	h.session.OnConsoleMessage(testSessionId, message)
	h.session.OnConsoleMessageRepeatCountUpdated(testSessionId, 3)
	h.session.OnConsoleMessagesCleared(testSessionId)
	h.session.OnConsoleMessageRepeatCountUpdated(testSessionId, 4)

	assert.Equal(t, []ConsoleEvent{
		{Message: message},
		{Message: message, RepeatCount: 3},
		{Cleared: true},
	}, events)
}

func TestForwardedEventGroups(t *testing.T) {
	h := newTestHelper(t)
	h.run()

	var remoteObjectEvents []RemoteObjectEvent
	var evaluateEvents []EvaluateEvent
	var cssEvents []CssEvent
	var customEvents []CustomMessageEvent
	var availability []AvailabilityEvent
	h.session.RemoteObjectEvents.Add(func(event RemoteObjectEvent) { remoteObjectEvents = append(remoteObjectEvents, event) })
	h.session.EvaluateEvents.Add(func(event EvaluateEvent) { evaluateEvents = append(evaluateEvents, event) })
	h.session.CssEvents.Add(func(event CssEvent) { cssEvents = append(cssEvents, event) })
	h.session.CustomMessageEvents.Add(func(event CustomMessageEvent) { customEvents = append(customEvents, event) })
	h.session.AvailabilityEvents.Add(func(event AvailabilityEvent) { availability = append(availability, event) })

	properties := &debugger.OnRemoteObjectPropertiesResponse{ObjectId: "1"}
	changed := debugger.NewRemovePropertyResponse("1", "a", false)
	sheets := &debugger.OnAllCssStyleSheets{}
	h.api.Fire(func(l debugger.DebuggerResponseListener) {
		l.OnRemoteObjectPropertiesResponse(testSessionId, properties)
		l.OnRemoteObjectPropertyChanged(testSessionId, changed)
		l.OnGlobalObjectChanged(testSessionId)
		l.OnAllCssStyleSheetsResponse(testSessionId, sheets)
		l.OnCustomMessageResponse(testSessionId, `{"id":1}`)
	})
	h.api.SetAvailable(false)

	assert.Equal(t, []RemoteObjectEvent{{PropertiesResponse: properties}, {PropertyChanged: changed}}, remoteObjectEvents)
	assert.Equal(t, []EvaluateEvent{{GlobalObjectChanged: true}}, evaluateEvents)
	assert.Equal(t, []CssEvent{{Response: sheets}}, cssEvents)
	assert.Equal(t, []CustomMessageEvent{{Response: `{"id":1}`}}, customEvents)
	assert.Equal(t, []AvailabilityEvent{{Available: false}}, availability)
	assert.False(t, h.session.IsDebuggerAvailable())
}

func TestTeardown(t *testing.T) {
	h := newTestHelper(t)
	h.run()
	h.session.EvaluateExpression("x")
	h.session.Teardown()
	h.loop.Flush()
	assert.Empty(t, h.api.RequestsOf("EvaluateExpression"))

	h.api.Fire(func(l debugger.DebuggerResponseListener) {
		l.OnDebuggerDetached(testSessionId)
	})
	assert.True(t, h.session.IsActive())
}
