package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/fansqz/js-debugger/constants"
	"github.com/fansqz/js-debugger/debugger"
	e "github.com/fansqz/js-debugger/error"
	"github.com/fansqz/js-debugger/remoteobject"
	"github.com/google/go-dap"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// 页面只有一个js线程
const threadId = 1

// handleConnection handles a connection from a single client.
// It reads and decodes the incoming data and posts every request
// to the event loop, responses and events are written back from there.
func handleConnection(ctx context.Context, conn net.Conn, a *app) {
	debugSession := newDebugSession(conn, conn, a)
	if err := a.loop.Invoke(ctx, debugSession.attach); err != nil {
		conn.Close()
		return
	}

	for {
		err := debugSession.handleRequest()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				logrus.Infof("No more data to read, err = %v", err)
				break
			}
			logrus.Warnf("Server error, err = %v", err)
			break
		}
	}

	logrus.Infof("Closing connection from %s", conn.RemoteAddr())
	a.loop.Post(debugSession.detach)
	conn.Close()
}

// DebugSession 一个dap客户端的调试会话
type DebugSession struct {
	app *app
	// rw is used to read requests and write events/responses
	rw       *bufio.ReadWriter
	sendLock sync.Mutex

	// 以下字段只在事件循环中访问
	trees      [treeCount]*remoteobject.Tree
	removers   []func()
	launchUrl  string
	configured bool
	running    bool
	wasActive  bool
	lastPaused *debugger.OnPaused
	// stopReason 下一次暂停的原因，由最近一次执行的命令决定
	stopReason constants.StoppedReasonType
	// scopesOf 根节点中的作用域属于哪一次暂停的哪一个栈帧
	scopesOf          *debugger.OnPaused
	scopesFrame       int
	breakpointIds     map[debugger.Breakpoint]int
	nextBreakpointId  int
	settingBreakpoint bool
	// 等待子节点加载的variables请求
	pendingVariables map[int][]*dap.VariablesRequest
	// 等待计算结果的evaluate请求
	pendingEvaluations map[evaluationKey][]*dap.EvaluateRequest
}

func newDebugSession(r io.Reader, w io.Writer, a *app) *DebugSession {
	return &DebugSession{
		app:                a,
		rw:                 bufio.NewReadWriter(bufio.NewReader(r), bufio.NewWriter(w)),
		stopReason:         constants.BreakpointStopped,
		scopesFrame:        -1,
		breakpointIds:      map[debugger.Breakpoint]int{},
		pendingVariables:   map[int][]*dap.VariablesRequest{},
		pendingEvaluations: map[evaluationKey][]*dap.EvaluateRequest{},
	}
}

func (d *DebugSession) handleRequest() error {
	request, err := dap.ReadProtocolMessage(d.rw.Reader)
	if err != nil {
		return err
	}
	d.app.loop.Post(func() {
		d.dispatchRequest(request)
	})
	return nil
}

func (d *DebugSession) dispatchRequest(request dap.Message) {
	switch request := request.(type) {
	case *dap.InitializeRequest:
		d.onInitializeRequest(request)
	case *dap.LaunchRequest:
		d.onLaunchRequest(request)
	case *dap.DisconnectRequest:
		d.onDisconnectRequest(request)
	case *dap.TerminateRequest:
		d.onTerminateRequest(request)
	case *dap.SetBreakpointsRequest:
		d.onSetBreakpointsRequest(request)
	case *dap.SetExceptionBreakpointsRequest:
		d.onSetExceptionBreakpointsRequest(request)
	case *dap.ConfigurationDoneRequest:
		d.onConfigurationDoneRequest(request)
	case *dap.ContinueRequest:
		d.onContinueRequest(request)
	case *dap.NextRequest:
		d.onNextRequest(request)
	case *dap.StepInRequest:
		d.onStepInRequest(request)
	case *dap.StepOutRequest:
		d.onStepOutRequest(request)
	case *dap.PauseRequest:
		d.onPauseRequest(request)
	case *dap.ThreadsRequest:
		d.onThreadsRequest(request)
	case *dap.StackTraceRequest:
		d.onStackTraceRequest(request)
	case *dap.ScopesRequest:
		d.onScopesRequest(request)
	case *dap.VariablesRequest:
		d.onVariablesRequest(request)
	case *dap.EvaluateRequest:
		d.onEvaluateRequest(request)
	case *dap.SetVariableRequest:
		d.onSetVariableRequest(request)
	default:
		if req, ok := request.(dap.RequestMessage); ok {
			base := req.GetRequest()
			d.send(newErrorResponse(base.Seq, base.Command, fmt.Sprintf("%s is not yet supported", base.Command)))
			return
		}
		logrus.Warnf("Unable to process %#v", request)
	}
}

// send Message响应给客户端
func (d *DebugSession) send(message dap.Message) {
	d.sendLock.Lock()
	defer d.sendLock.Unlock()
	if err := dap.WriteProtocolMessage(d.rw.Writer, message); err != nil {
		logrus.Warnf("[send] write message fail, err = %v", err)
		return
	}
	if err := d.rw.Flush(); err != nil {
		logrus.Warnf("[send] flush fail, err = %v", err)
	}
}

func (d *DebugSession) sendError(request dap.Request, err error) {
	d.send(newErrorResponse(request.Seq, request.Command, err.Error()))
}

// -----------------------------------------------------------------------
// Request Handlers

func (d *DebugSession) onInitializeRequest(request *dap.InitializeRequest) {
	response := &dap.InitializeResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	response.Body.SupportsConfigurationDoneRequest = true
	response.Body.SupportsConditionalBreakpoints = true
	response.Body.SupportsEvaluateForHovers = true
	response.Body.SupportsSetVariable = true
	response.Body.SupportsTerminateRequest = true
	response.Body.ExceptionBreakpointFilters = []dap.ExceptionBreakpointsFilter{
		{Filter: string(constants.PauseOnExceptionsAll), Label: "All Exceptions"},
		{Filter: string(constants.PauseOnExceptionsUncaught), Label: "Uncaught Exceptions"},
	}
	d.send(response)
	// 客户端收到initialized之后开始设置断点，以configurationDone结束
	d.send(&dap.InitializedEvent{Event: *newEvent(string(constants.InitializedEvent))})
}

// onLaunchRequest 参数为{"url": "..."}或者{"program": "..."}，program为工作区中的文件
func (d *DebugSession) onLaunchRequest(request *dap.LaunchRequest) {
	args := gjson.ParseBytes(request.Arguments)
	url := args.Get("url").String()
	if url == "" {
		if program := args.Get("program").String(); program != "" {
			url = d.app.remoteUrl(program)
		}
	}
	if url == "" {
		d.sendError(request.Request, e.ErrNotLaunched)
		return
	}
	d.launchUrl = url
	if d.configured {
		if err := d.runApplication(); err != nil {
			d.sendError(request.Request, err)
			return
		}
	}
	response := &dap.LaunchResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	d.send(response)
}

func (d *DebugSession) runApplication() error {
	if !d.app.controller.RunApplication(d.app.mapping, d.launchUrl) {
		return fmt.Errorf("%w, install %s", e.ErrDebuggerUnavailable, d.app.session.GetDebuggingExtensionUrl())
	}
	d.running = true
	return nil
}

func (d *DebugSession) onDisconnectRequest(request *dap.DisconnectRequest) {
	if d.running {
		d.app.session.Shutdown()
		d.running = false
	}
	response := &dap.DisconnectResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	d.send(response)
}

func (d *DebugSession) onTerminateRequest(request *dap.TerminateRequest) {
	d.app.session.Shutdown()
	d.running = false
	response := &dap.TerminateResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	d.send(response)
}

// onSetBreakpointsRequest 请求中的断点是该文件的全部断点，与模型比较之后只提交差异
func (d *DebugSession) onSetBreakpointsRequest(request *dap.SetBreakpointsRequest) {
	path := request.Arguments.Source.Path
	if err := d.app.openDocument(path); err != nil {
		logrus.Warnf("[onSetBreakpointsRequest] open %s fail, err = %v", path, err)
		// 不能调试的文件不设置断点
		if errors.Is(err, e.ErrLanguageNotSupported) {
			d.sendUnverifiedBreakpoints(request, err)
			return
		}
	}
	local := d.app.localPath(path)

	wanted := make([]debugger.Breakpoint, len(request.Arguments.Breakpoints))
	for i, b := range request.Arguments.Breakpoints {
		wanted[i] = debugger.NewBreakpoint(local, b.Line-1).WithCondition(b.Condition)
	}
	existing := map[debugger.Breakpoint]bool{}
	for _, breakpoint := range d.app.model.BreakpointsOf(local) {
		existing[breakpoint] = true
	}

	d.settingBreakpoint = true
	keep := map[debugger.Breakpoint]bool{}
	for _, breakpoint := range wanted {
		keep[breakpoint] = true
		// 被禁用的同一位置的断点重新启用
		if disabled := breakpoint.WithActive(false); existing[disabled] {
			d.app.model.UpdateBreakpoint(disabled, breakpoint)
			d.renameBreakpointId(disabled, breakpoint)
			existing[breakpoint] = true
			delete(existing, disabled)
			continue
		}
		if !existing[breakpoint] {
			d.app.model.AddBreakpoint(breakpoint)
			existing[breakpoint] = true
		}
	}
	for breakpoint := range existing {
		if !keep[breakpoint] {
			d.app.model.RemoveBreakpoint(breakpoint)
			delete(d.breakpointIds, breakpoint)
		}
	}
	d.settingBreakpoint = false

	response := &dap.SetBreakpointsResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	response.Body.Breakpoints = make([]dap.Breakpoint, len(wanted))
	for i, breakpoint := range wanted {
		response.Body.Breakpoints[i] = d.toDapBreakpoint(breakpoint)
	}
	d.send(response)
}

func (d *DebugSession) sendUnverifiedBreakpoints(request *dap.SetBreakpointsRequest, err error) {
	response := &dap.SetBreakpointsResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	response.Body.Breakpoints = make([]dap.Breakpoint, len(request.Arguments.Breakpoints))
	for i, b := range request.Arguments.Breakpoints {
		response.Body.Breakpoints[i] = dap.Breakpoint{Verified: false, Line: b.Line, Message: err.Error()}
	}
	d.send(response)
}

func (d *DebugSession) onSetExceptionBreakpointsRequest(request *dap.SetExceptionBreakpointsRequest) {
	mode := constants.PauseOnExceptionsNone
	for _, filter := range request.Arguments.Filters {
		switch constants.PauseOnExceptionsMode(filter) {
		case constants.PauseOnExceptionsAll:
			mode = constants.PauseOnExceptionsAll
		case constants.PauseOnExceptionsUncaught:
			if mode == constants.PauseOnExceptionsNone {
				mode = constants.PauseOnExceptionsUncaught
			}
		}
	}
	d.app.model.SetPauseOnExceptionsMode(mode)
	response := &dap.SetExceptionBreakpointsResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	d.send(response)
}

func (d *DebugSession) onConfigurationDoneRequest(request *dap.ConfigurationDoneRequest) {
	d.configured = true
	if d.launchUrl != "" && !d.running {
		if err := d.runApplication(); err != nil {
			d.sendError(request.Request, err)
			return
		}
	}
	response := &dap.ConfigurationDoneResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	d.send(response)
}

// checkPaused 单步和继续只能在暂停时执行
func (d *DebugSession) checkPaused(request dap.Request) bool {
	if !d.app.session.IsPaused() {
		d.sendError(request, e.ErrNotPaused)
		return false
	}
	return true
}

func (d *DebugSession) onContinueRequest(request *dap.ContinueRequest) {
	if !d.checkPaused(request.Request) {
		return
	}
	d.stopReason = constants.BreakpointStopped
	d.app.session.Resume()
	response := &dap.ContinueResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	response.Body.AllThreadsContinued = true
	d.send(response)
}

func (d *DebugSession) onNextRequest(request *dap.NextRequest) {
	if !d.checkPaused(request.Request) {
		return
	}
	d.stopReason = constants.StepStopped
	d.app.session.StepOver()
	response := &dap.NextResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	d.send(response)
}

func (d *DebugSession) onStepInRequest(request *dap.StepInRequest) {
	if !d.checkPaused(request.Request) {
		return
	}
	d.stopReason = constants.StepStopped
	d.app.session.StepInto()
	response := &dap.StepInResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	d.send(response)
}

func (d *DebugSession) onStepOutRequest(request *dap.StepOutRequest) {
	if !d.checkPaused(request.Request) {
		return
	}
	d.stopReason = constants.StepStopped
	d.app.session.StepOut()
	response := &dap.StepOutResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	d.send(response)
}

func (d *DebugSession) onPauseRequest(request *dap.PauseRequest) {
	if !d.app.session.IsActive() {
		d.sendError(request.Request, e.ErrDebuggerInactive)
		return
	}
	d.stopReason = constants.PauseStopped
	d.app.session.Pause()
	response := &dap.PauseResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	d.send(response)
}

func (d *DebugSession) onThreadsRequest(request *dap.ThreadsRequest) {
	response := &dap.ThreadsResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	response.Body.Threads = []dap.Thread{{Id: threadId, Name: "main"}}
	d.send(response)
}

// onStackTraceRequest 栈帧的id为栈帧在调用栈中的下标加一
func (d *DebugSession) onStackTraceRequest(request *dap.StackTraceRequest) {
	onPaused := d.app.session.GetOnPausedResponse()
	if onPaused == nil {
		d.sendError(request.Request, e.ErrNotPaused)
		return
	}
	mapping := d.app.session.GetSourceMapping()
	frames := make([]dap.StackFrame, 0, len(onPaused.CallFrames))
	for i, callFrame := range onPaused.CallFrames {
		frame := dap.StackFrame{Id: i + 1, Name: callFrame.FunctionName}
		if frame.Name == "" {
			frame.Name = "(anonymous function)"
		}
		if callFrame.Location != nil && mapping != nil {
			script := d.app.session.GetOnScriptParsedResponse(callFrame.Location.ScriptId)
			if path := mapping.GetLocalScriptPath(script); path != "" {
				frame.Source = &dap.Source{Name: pathBase(path), Path: d.app.absPath(path)}
			}
			frame.Line = mapping.GetLocalSourceLineNumber(script, callFrame.Location) + 1
			frame.Column = callFrame.Location.ColumnNumber + 1
		}
		frames = append(frames, frame)
	}
	start := min(max(request.Arguments.StartFrame, 0), len(frames))
	end := len(frames)
	if levels := request.Arguments.Levels; levels > 0 {
		end = min(start+levels, end)
	}

	response := &dap.StackTraceResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	response.Body = dap.StackTraceResponseBody{
		StackFrames: frames[start:end],
		TotalFrames: len(frames),
	}
	d.send(response)
}

// onScopesRequest 栈帧的作用域作为根节点下的临时节点，监视表达式保留在根节点中
func (d *DebugSession) onScopesRequest(request *dap.ScopesRequest) {
	onPaused := d.app.session.GetOnPausedResponse()
	index := request.Arguments.FrameId - 1
	if onPaused == nil || index < 0 || index >= len(onPaused.CallFrames) {
		d.sendError(request.Request, e.ErrNotPaused)
		return
	}
	// 表达式在客户端选中的栈帧上计算
	_ = d.selectCallFrame(index)
	if d.scopesOf != onPaused || d.scopesFrame != index {
		d.mountScopes(onPaused.CallFrames[index])
		d.scopesOf = onPaused
		d.scopesFrame = index
	}

	response := &dap.ScopesResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	response.Body.Scopes = []dap.Scope{}
	if root := d.trees[watchTree].Root(); root != nil {
		for _, node := range root.Children() {
			if !node.IsTransient() {
				continue
			}
			response.Body.Scopes = append(response.Body.Scopes, dap.Scope{
				Name:               node.Name(),
				VariablesReference: variablesReference(watchTree, node.ID()),
				Expensive:          node.Name() == string(constants.ScopeGlobal),
			})
		}
	}
	d.send(response)
}

// selectCallFrame 切换栈帧之后，之前的栈帧上还没有结果的计算不会再有响应
func (d *DebugSession) selectCallFrame(index int) error {
	onPaused := d.app.session.GetOnPausedResponse()
	if onPaused == nil || index < 0 || index >= len(onPaused.CallFrames) {
		return e.ErrCallFrameNotFound
	}
	if index != d.app.session.ActiveCallFrameIndex() {
		d.failPendingEvaluations(e.ErrCallFrameChanged)
		d.app.controller.SelectCallFrame(index)
	}
	return nil
}

func (d *DebugSession) mountScopes(callFrame *debugger.CallFrame) {
	d.clearScopes()
	tree := d.trees[watchTree]
	root := tree.Root()
	if root == nil {
		root = tree.NewRoot()
		tree.SetRoot(root)
	}
	for i, scope := range callFrame.ScopeChain {
		if scope == nil || scope.Object == nil {
			continue
		}
		node := tree.NewNode(remoteobject.NewBuilder(string(scope.Type), scope.Object).
			OrderIndex(-len(callFrame.ScopeChain) + i).
			Transient(true))
		if err := tree.AddChild(root, node); err != nil {
			logrus.Errorf("[mountScopes] add scope %s fail, err = %v", scope.Type, err)
		}
	}
}

// clearScopes 移除上一次暂停的作用域
func (d *DebugSession) clearScopes() {
	d.scopesOf = nil
	d.scopesFrame = -1
	tree := d.trees[watchTree]
	root := tree.Root()
	if root == nil {
		return
	}
	for _, node := range root.Children() {
		if node.IsTransient() {
			tree.RemoveNode(node)
		}
	}
}

// onVariablesRequest 子节点还没有加载时请求远程对象的属性，加载完成后再响应
func (d *DebugSession) onVariablesRequest(request *dap.VariablesRequest) {
	reference := request.Arguments.VariablesReference
	kind, node := d.lookupReference(reference)
	if node == nil {
		d.sendError(request.Request, e.ErrUnknownVariablesReference)
		return
	}
	requested, err := d.trees[kind].Expand(node.ID())
	if err != nil {
		d.sendError(request.Request, err)
		return
	}
	if requested {
		d.pendingVariables[reference] = append(d.pendingVariables[reference], request)
		return
	}
	d.sendVariables(request, kind, node)
}

func (d *DebugSession) sendVariables(request *dap.VariablesRequest, kind treeKind, node *remoteobject.Node) {
	response := &dap.VariablesResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	response.Body.Variables = []dap.Variable{}
	for _, child := range node.Children() {
		if child.IsPlaceholder() {
			continue
		}
		response.Body.Variables = append(response.Body.Variables, toDapVariable(kind, child))
	}
	d.send(response)
}

// onEvaluateRequest 监视表达式放在作用域所在的树中，悬停和控制台的表达式各自一棵树并且只计算一次。
// 结果返回时响应。
func (d *DebugSession) onEvaluateRequest(request *dap.EvaluateRequest) {
	if !d.app.session.IsActive() {
		d.sendError(request.Request, e.ErrDebuggerInactive)
		return
	}
	expression := strings.TrimSpace(request.Arguments.Expression)
	if expression == "" {
		d.sendError(request.Request, fmt.Errorf("empty expression"))
		return
	}
	if frameId := request.Arguments.FrameId; frameId > 0 && d.app.session.IsPaused() {
		if err := d.selectCallFrame(frameId - 1); err != nil {
			d.sendError(request.Request, err)
			return
		}
	}
	kind := treeKindOf(request.Arguments.Context)
	key := evaluationKey{kind: kind, expression: expression}
	d.pendingEvaluations[key] = append(d.pendingEvaluations[key], request)
	if d.findRootChild(kind, expression) != nil {
		d.app.session.EvaluateExpression(expression)
		return
	}
	d.trees[kind].AppendRootChild(expression)
}

// onSetVariableRequest 修改属性的值，调试器确认之后通知客户端刷新变量
func (d *DebugSession) onSetVariableRequest(request *dap.SetVariableRequest) {
	kind, parent := d.lookupReference(request.Arguments.VariablesReference)
	if parent == nil {
		d.sendError(request.Request, e.ErrUnknownVariablesReference)
		return
	}
	node := parent.FirstChildByName(request.Arguments.Name)
	if node == nil {
		d.sendError(request.Request, e.ErrNodeNotFound)
		return
	}
	if err := d.trees[kind].EditValue(node.ID(), request.Arguments.Value); err != nil {
		d.sendError(request.Request, err)
		return
	}
	response := &dap.SetVariableResponse{}
	response.Response = *newResponse(request.Seq, request.Command)
	response.Body.Value = request.Arguments.Value
	d.send(response)
}

// -----------------------------------------------------------------------

func (d *DebugSession) breakpointId(breakpoint debugger.Breakpoint) int {
	id, ok := d.breakpointIds[breakpoint]
	if !ok {
		d.nextBreakpointId++
		id = d.nextBreakpointId
		d.breakpointIds[breakpoint] = id
	}
	return id
}

func (d *DebugSession) renameBreakpointId(oldBreakpoint debugger.Breakpoint, newBreakpoint debugger.Breakpoint) {
	if id, ok := d.breakpointIds[oldBreakpoint]; ok {
		delete(d.breakpointIds, oldBreakpoint)
		d.breakpointIds[newBreakpoint] = id
	}
}

// toDapBreakpoint 调试器解析之前的断点也报告为已验证，位置以本地文档为准
func (d *DebugSession) toDapBreakpoint(breakpoint debugger.Breakpoint) dap.Breakpoint {
	answer := dap.Breakpoint{
		Id:       d.breakpointId(breakpoint),
		Verified: breakpoint.Active,
		Line:     breakpoint.LineNumber + 1,
		Source:   &dap.Source{Name: pathBase(breakpoint.Path), Path: d.app.absPath(breakpoint.Path)},
	}
	if description := d.app.controller.BreakpointDescription(breakpoint); description != "" {
		answer.Message = description
	}
	return answer
}

func newEvent(event string) *dap.Event {
	return &dap.Event{
		ProtocolMessage: dap.ProtocolMessage{
			Seq:  0,
			Type: "event",
		},
		Event: event,
	}
}

func newResponse(requestSeq int, command string) *dap.Response {
	return &dap.Response{
		ProtocolMessage: dap.ProtocolMessage{
			Seq:  0,
			Type: "response",
		},
		Command:    command,
		RequestSeq: requestSeq,
		Success:    true,
	}
}

func newErrorResponse(requestSeq int, command string, message string) *dap.ErrorResponse {
	er := &dap.ErrorResponse{}
	er.Response = *newResponse(requestSeq, command)
	er.Success = false
	er.Message = message
	er.Body.Error = &dap.ErrorMessage{}
	er.Body.Error.Format = message
	er.Body.Error.Id = 12345
	return er
}
