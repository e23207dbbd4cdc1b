package main

import (
	"fmt"
	"strings"

	"github.com/fansqz/js-debugger/breakpoint"
	"github.com/fansqz/js-debugger/constants"
	"github.com/fansqz/js-debugger/debugger"
	e "github.com/fansqz/js-debugger/error"
	"github.com/fansqz/js-debugger/remoteobject"
	"github.com/fansqz/js-debugger/session"
	"github.com/google/go-dap"
	"github.com/sirupsen/logrus"
)

var _ breakpoint.ModelListener = (*DebugSession)(nil)

// attach 创建变量树并把会话事件转换为dap事件
func (d *DebugSession) attach() {
	s := d.app.session
	// 变量树先于DebugSession处理会话事件
	d.trees[watchTree] = remoteobject.NewTree(s)
	d.trees[hoverTree] = remoteobject.NewOneShotTree(s)
	d.trees[replTree] = remoteobject.NewOneShotTree(s)
	for i, tree := range d.trees {
		kind := treeKind(i)
		d.removers = append(d.removers, tree.Events.Add(func(event remoteobject.TreeEvent) {
			d.onTreeEvent(kind, event)
		}))
	}
	d.removers = append(d.removers,
		s.StateEvents.Add(d.onStateEvent),
		s.ConsoleEvents.Add(d.onConsoleEvent),
		s.AvailabilityEvents.Add(d.onAvailabilityEvent),
		s.EvaluateEvents.Add(d.onEvaluateEvent),
		d.app.model.AddListener(d),
	)
	d.wasActive = s.IsActive()
	d.lastPaused = s.GetOnPausedResponse()
	logrus.Infof("[DebugSession] attach to session %s", s.SessionId())
}

func (d *DebugSession) detach() {
	for _, remove := range d.removers {
		remove()
	}
	d.removers = nil
	for _, tree := range d.trees {
		if tree != nil {
			tree.Teardown()
		}
	}
	d.pendingVariables = map[int][]*dap.VariablesRequest{}
	d.pendingEvaluations = map[evaluationKey][]*dap.EvaluateRequest{}
}

// onStateEvent 新的暂停发送stopped，暂停结束发送continued，会话结束发送terminated
func (d *DebugSession) onStateEvent(event session.StateEvent) {
	onPaused := d.app.session.GetOnPausedResponse()
	switch {
	case onPaused != nil && onPaused != d.lastPaused:
		d.clearScopes()
		d.failPendingVariables()
		d.failPendingEvaluations(e.ErrCallFrameChanged)
		stopped := &dap.StoppedEvent{Event: *newEvent(string(constants.StoppedEvent))}
		stopped.Body.Reason = string(d.stopReason)
		stopped.Body.ThreadId = threadId
		stopped.Body.AllThreadsStopped = true
		d.send(stopped)
		d.stopReason = constants.BreakpointStopped
	case onPaused == nil && d.lastPaused != nil && event.Active:
		d.clearScopes()
		d.failPendingVariables()
		d.failPendingEvaluations(e.ErrCallFrameChanged)
		continued := &dap.ContinuedEvent{Event: *newEvent(string(constants.ContinuedEvent))}
		continued.Body.ThreadId = threadId
		continued.Body.AllThreadsContinued = true
		d.send(continued)
	}
	d.lastPaused = onPaused

	if !event.Active && d.wasActive {
		d.running = false
		d.clearScopes()
		d.failPendingVariables()
		d.failPendingEvaluations(e.ErrDebuggerInactive)
		d.send(&dap.TerminatedEvent{Event: *newEvent(string(constants.TerminatedEvent))})
	}
	d.wasActive = event.Active
}

// onConsoleEvent 新的控制台消息转换为output事件，重复次数和清空不通知客户端
func (d *DebugSession) onConsoleEvent(event session.ConsoleEvent) {
	message := event.Message
	if event.Cleared || message == nil || event.RepeatCount != 0 {
		return
	}
	output := &dap.OutputEvent{Event: *newEvent(string(constants.OutputEvent))}
	output.Body.Category = string(constants.OutputConsole)
	if message.Level == constants.ConsoleError {
		output.Body.Category = string(constants.OutputStderr)
	}
	output.Body.Output = message.Text + "\n"
	if path := d.localScriptPath(message.Url); path != "" {
		output.Body.Source = &dap.Source{Name: pathBase(path), Path: d.app.absPath(path)}
		if message.LineNumber >= 0 {
			output.Body.Line = message.LineNumber + 1
		}
	}
	d.send(output)
}

func (d *DebugSession) localScriptPath(url string) string {
	mapping := d.app.session.GetSourceMapping()
	if mapping == nil || url == "" {
		return ""
	}
	return mapping.GetLocalSourcePath(url)
}

func (d *DebugSession) onAvailabilityEvent(event session.AvailabilityEvent) {
	if event.Available {
		return
	}
	output := &dap.OutputEvent{Event: *newEvent(string(constants.OutputEvent))}
	output.Body.Category = string(constants.OutputConsole)
	output.Body.Output = fmt.Sprintf("%v, install it from %s\n", e.ErrDebuggerUnavailable,
		d.app.session.GetDebuggingExtensionUrl())
	d.send(output)
}

// onEvaluateEvent 变量树已经更新了同名的表达式，从各自的树中读取结果
func (d *DebugSession) onEvaluateEvent(event session.EvaluateEvent) {
	if event.Response == nil {
		return
	}
	expression := event.Response.Expression
	for key, requests := range d.pendingEvaluations {
		if key.expression != expression {
			continue
		}
		delete(d.pendingEvaluations, key)
		node := d.findRootChild(key.kind, expression)
		for _, request := range requests {
			if node == nil {
				d.sendError(request.Request, e.ErrNodeNotFound)
				continue
			}
			variable := toDapVariable(key.kind, node)
			if event.Response.WasThrown {
				d.sendError(request.Request, fmt.Errorf("%s", variable.Value))
				continue
			}
			response := &dap.EvaluateResponse{}
			response.Response = *newResponse(request.Seq, request.Command)
			response.Body.Result = variable.Value
			response.Body.Type = variable.Type
			response.Body.VariablesReference = variable.VariablesReference
			d.send(response)
		}
	}
}

func (d *DebugSession) onTreeEvent(kind treeKind, event remoteobject.TreeEvent) {
	switch event.Kind {
	case remoteobject.ChildrenLoaded:
		reference := variablesReference(kind, event.Node.ID())
		requests := d.pendingVariables[reference]
		delete(d.pendingVariables, reference)
		for _, request := range requests {
			d.sendVariables(request, kind, event.Node)
		}
	case remoteobject.NodeSelected:
		// 调试器确认了属性的修改
		invalidated := &dap.InvalidatedEvent{Event: *newEvent("invalidated")}
		invalidated.Body.Areas = []dap.InvalidatedAreas{"variables"}
		d.send(invalidated)
	}
}

func (d *DebugSession) failPendingVariables() {
	for _, requests := range d.pendingVariables {
		for _, request := range requests {
			d.sendError(request.Request, e.ErrUnknownVariablesReference)
		}
	}
	d.pendingVariables = map[int][]*dap.VariablesRequest{}
}

// failPendingEvaluations 不会再收到计算结果的请求返回err
func (d *DebugSession) failPendingEvaluations(err error) {
	for _, requests := range d.pendingEvaluations {
		for _, request := range requests {
			d.sendError(request.Request, err)
		}
	}
	d.pendingEvaluations = map[evaluationKey][]*dap.EvaluateRequest{}
}

func (d *DebugSession) sendBreakpointEvent(reason constants.BreakpointReasonType, breakpoint debugger.Breakpoint) {
	event := &dap.BreakpointEvent{Event: *newEvent(string(constants.BreakpointEvent))}
	event.Body.Reason = string(reason)
	event.Body.Breakpoint = d.toDapBreakpoint(breakpoint)
	d.send(event)
}

func (d *DebugSession) OnBreakpointAdded(breakpoint debugger.Breakpoint) {
	if !d.settingBreakpoint {
		d.sendBreakpointEvent(constants.NewType, breakpoint)
	}
}

func (d *DebugSession) OnBreakpointRemoved(breakpoint debugger.Breakpoint) {
	if !d.settingBreakpoint {
		d.sendBreakpointEvent(constants.RemovedType, breakpoint)
	}
	delete(d.breakpointIds, breakpoint)
}

// OnBreakpointReplaced 文档编辑使断点移动到新的行时沿用原来的id
func (d *DebugSession) OnBreakpointReplaced(oldBreakpoint debugger.Breakpoint, newBreakpoint debugger.Breakpoint) {
	d.renameBreakpointId(oldBreakpoint, newBreakpoint)
	if !d.settingBreakpoint {
		d.sendBreakpointEvent(constants.ChangeType, newBreakpoint)
	}
}

func (d *DebugSession) OnPauseOnExceptionsModeUpdated(oldMode constants.PauseOnExceptionsMode,
	newMode constants.PauseOnExceptionsMode) {
}

func (d *DebugSession) OnBreakpointsEnabledUpdated(enabled bool) {
}

func pathBase(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}
