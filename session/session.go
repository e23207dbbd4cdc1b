// Package session 调试会话的状态机
//
// 会话负责调试器的生命周期、暂停与单步，以及把调试扩展的异步事件分发给各个监听组。
// 除了State以外，所有方法都只能在事件循环中调用。
package session

import (
	"fmt"

	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/fansqz/js-debugger/constants"
	"github.com/fansqz/js-debugger/debugger"
	e "github.com/fansqz/js-debugger/error"
	"github.com/fansqz/js-debugger/utils"
	"github.com/fansqz/js-debugger/utils/scheduler"
	"github.com/sirupsen/logrus"
)

// resolvedBreakpoint 已经提交给调试器的断点
type resolvedBreakpoint struct {
	breakpoint debugger.Breakpoint
	info       *debugger.BreakpointInfo
	// requested 本次运行中已经发送过解析请求
	requested bool
}

type Session struct {
	sessionId string
	api       debugger.DebuggerApi
	status    *utils.StatusManager

	active               bool
	sourceMapping        debugger.SourceMapping
	onPaused             *debugger.OnPaused
	activeCallFrameIndex int
	breakpoints          []*resolvedBreakpoint
	scriptParsed         map[string]*debugger.OnScriptParsed
	lastConsoleMessage   *debugger.ConsoleMessage

	// 同一个tick内的表达式去重之后一起发送
	expressionsToEvaluate *linkedhashset.Set
	evaluateExecutor      *scheduler.Executor

	AvailabilityEvents  *utils.ListenerManager[AvailabilityEvent]
	StateEvents         *utils.ListenerManager[StateEvent]
	RemoteObjectEvents  *utils.ListenerManager[RemoteObjectEvent]
	EvaluateEvents      *utils.ListenerManager[EvaluateEvent]
	CssEvents           *utils.ListenerManager[CssEvent]
	ConsoleEvents       *utils.ListenerManager[ConsoleEvent]
	CustomMessageEvents *utils.ListenerManager[CustomMessageEvent]
}

var _ debugger.DebuggerResponseListener = (*Session)(nil)

// New 创建会话并注册到api上
func New(sessionId string, api debugger.DebuggerApi, loop *scheduler.Loop) *Session {
	s := &Session{
		sessionId:             sessionId,
		api:                   api,
		status:                utils.NewStatusManager(),
		scriptParsed:          map[string]*debugger.OnScriptParsed{},
		expressionsToEvaluate: linkedhashset.New(),
		AvailabilityEvents:    utils.NewListenerManager[AvailabilityEvent](),
		StateEvents:           utils.NewListenerManager[StateEvent](),
		RemoteObjectEvents:    utils.NewListenerManager[RemoteObjectEvent](),
		EvaluateEvents:        utils.NewListenerManager[EvaluateEvent](),
		CssEvents:             utils.NewListenerManager[CssEvent](),
		ConsoleEvents:         utils.NewListenerManager[ConsoleEvent](),
		CustomMessageEvents:   utils.NewListenerManager[CustomMessageEvent](),
	}
	s.evaluateExecutor = scheduler.NewExecutor(loop, s.flushEvaluations)
	api.AddDebuggerResponseListener(s)
	return s
}

func (s *Session) SessionId() string {
	return s.sessionId
}

// Teardown 取消注册并丢弃还没有发送的表达式
func (s *Session) Teardown() {
	s.api.RemoveDebuggerResponseListener(s)
	s.evaluateExecutor.Cancel()
	s.expressionsToEvaluate.Clear()
}

func (s *Session) IsDebuggerAvailable() bool {
	return s.api.IsDebuggerAvailable()
}

func (s *Session) GetDebuggingExtensionUrl() string {
	return s.api.GetDebuggingExtensionUrl()
}

func (s *Session) IsActive() bool {
	return s.active
}

func (s *Session) IsPaused() bool {
	return s.onPaused != nil
}

// State 会话状态，可以在任意协程中调用
func (s *Session) State() constants.SessionState {
	return s.status.Get()
}

func (s *Session) GetSourceMapping() debugger.SourceMapping {
	return s.sourceMapping
}

func (s *Session) GetOnPausedResponse() *debugger.OnPaused {
	return s.onPaused
}

func (s *Session) GetOnScriptParsedResponse(scriptId string) *debugger.OnScriptParsed {
	return s.scriptParsed[scriptId]
}

func (s *Session) ActiveCallFrameIndex() int {
	return s.activeCallFrameIndex
}

// SetActiveCallFrameIndex 用户在调用栈中选择的栈帧
func (s *Session) SetActiveCallFrameIndex(index int) {
	s.activeCallFrameIndex = index
}

func (s *Session) GetActiveCallFrame() *debugger.CallFrame {
	if s.onPaused == nil {
		return nil
	}
	frames := s.onPaused.CallFrames
	if s.activeCallFrameIndex < 0 || s.activeCallFrameIndex >= len(frames) {
		return nil
	}
	return frames[s.activeCallFrameIndex]
}

// GetActiveCallFramePath 当前栈帧对应的本地文件，
// 脚本不是由本地文件提供（例如eval产生的脚本）时返回空字符串
func (s *Session) GetActiveCallFramePath() string {
	callFrame := s.GetActiveCallFrame()
	if callFrame == nil || callFrame.Location == nil || s.sourceMapping == nil {
		return ""
	}
	return s.sourceMapping.GetLocalScriptPath(s.scriptParsed[callFrame.Location.ScriptId])
}

// GetActiveCallFrameExecutionLineNumber 当前栈帧的执行行号，没有时返回-1
func (s *Session) GetActiveCallFrameExecutionLineNumber() int {
	callFrame := s.GetActiveCallFrame()
	if callFrame == nil || callFrame.Location == nil || s.sourceMapping == nil {
		return -1
	}
	return s.sourceMapping.GetLocalSourceLineNumber(s.scriptParsed[callFrame.Location.ScriptId],
		callFrame.Location)
}

// RunDebugger 在会话中运行页面
// 会话已经激活时复用被调试的页面，只清空已经解析的脚本
func (s *Session) RunDebugger(sourceMapping debugger.SourceMapping, url string) {
	if sourceMapping == nil {
		logrus.Errorf("[RunDebugger] source mapping is nil")
		return
	}
	logrus.Infof("[Session] run debugger, sessionId = %s, url = %s", s.sessionId, url)
	if s.active {
		s.softReset()
	} else {
		s.reset()
	}
	s.active = true
	s.sourceMapping = sourceMapping
	s.onPaused = nil
	s.activeCallFrameIndex = 0
	s.api.RunDebugger(s.sessionId, url)
	s.dispatchState()
}

func (s *Session) Shutdown() {
	s.api.ShutdownDebugger(s.sessionId)
}

func (s *Session) Pause() {
	if s.active {
		s.api.Pause(s.sessionId)
	}
}

func (s *Session) Resume() {
	if s.active {
		s.api.Resume(s.sessionId)
	}
}

func (s *Session) StepInto() {
	if s.active {
		s.api.StepInto(s.sessionId)
	}
}

func (s *Session) StepOut() {
	if s.active {
		s.api.StepOut(s.sessionId)
	}
}

func (s *Session) StepOver() {
	if s.active {
		s.api.StepOver(s.sessionId)
	}
}

func (s *Session) RequestRemoteObjectProperties(remoteObjectId debugger.RemoteObjectId) {
	if s.active {
		s.api.RequestRemoteObjectProperties(s.sessionId, remoteObjectId)
	}
}

// SetRemoteObjectProperty 暂停时在当前栈帧上计算表达式
func (s *Session) SetRemoteObjectProperty(remoteObjectId debugger.RemoteObjectId, propertyName string,
	propertyValueExpression string) {
	if !s.active {
		return
	}
	if callFrame := s.GetActiveCallFrame(); callFrame != nil {
		s.api.SetRemoteObjectPropertyEvaluatedOnCallFrame(s.sessionId, callFrame, remoteObjectId,
			propertyName, propertyValueExpression)
	} else {
		s.api.SetRemoteObjectProperty(s.sessionId, remoteObjectId, propertyName, propertyValueExpression)
	}
}

func (s *Session) RemoveRemoteObjectProperty(remoteObjectId debugger.RemoteObjectId, propertyName string) {
	if s.active {
		s.api.RemoveRemoteObjectProperty(s.sessionId, remoteObjectId, propertyName)
	}
}

func (s *Session) RenameRemoteObjectProperty(remoteObjectId debugger.RemoteObjectId, oldName string,
	newName string) {
	if s.active {
		s.api.RenameRemoteObjectProperty(s.sessionId, remoteObjectId, oldName, newName)
	}
}

// EvaluateExpression 在当前tick结束时计算表达式，重复的表达式只计算一次
func (s *Session) EvaluateExpression(expression string) {
	if s.active {
		s.expressionsToEvaluate.Add(expression)
		s.evaluateExecutor.ScheduleFinally()
	}
}

func (s *Session) flushEvaluations() {
	expressions := utils.SetValues[string](s.expressionsToEvaluate)
	s.expressionsToEvaluate.Clear()
	for _, expression := range expressions {
		s.sendEvaluateExpression(expression)
	}
}

func (s *Session) sendEvaluateExpression(expression string) {
	if !s.active {
		return
	}
	if callFrame := s.GetActiveCallFrame(); callFrame != nil {
		s.api.EvaluateExpressionOnCallFrame(s.sessionId, callFrame, expression)
	} else {
		s.api.EvaluateExpression(s.sessionId, expression)
	}
}

func (s *Session) RequestAllCssStyleSheets() {
	if s.active {
		s.api.RequestAllCssStyleSheets(s.sessionId)
	}
}

func (s *Session) SetStyleSheetText(styleSheetId string, text string) {
	if s.active {
		s.api.SetStyleSheetText(s.sessionId, styleSheetId, text)
	}
}

// SetBreakpoint 提交断点
// 断点没有被调试器解析、并且本次运行中还没有发送过请求时才会发送
func (s *Session) SetBreakpoint(breakpoint debugger.Breakpoint) {
	if !s.active || !breakpoint.Active {
		return
	}
	resolved := s.findResolvedBreakpoint(breakpoint)
	if resolved == nil {
		info := s.sourceMapping.GetRemoteBreakpoint(breakpoint)
		if info == nil {
			logrus.Errorf("[SetBreakpoint] no remote location for %s", breakpoint)
			return
		}
		resolved = &resolvedBreakpoint{breakpoint: breakpoint, info: info}
		s.breakpoints = append(s.breakpoints, resolved)
	}
	if resolved.info.BreakpointId == "" && !resolved.requested {
		resolved.requested = true
		s.api.SetBreakpointByUrl(s.sessionId, resolved.info)
	}
}

// RemoveBreakpoint 只有已经被解析的断点才能移除
func (s *Session) RemoveBreakpoint(breakpoint debugger.Breakpoint) {
	if !s.active || !breakpoint.Active {
		return
	}
	resolved := s.findResolvedBreakpoint(breakpoint)
	if resolved == nil || resolved.info.BreakpointId == "" {
		logrus.Errorf("[RemoveBreakpoint] %s, err = %v", breakpoint, e.ErrBreakpointNotFound)
		return
	}
	// 立即移除本地记录，同一位置的新断点可以马上重新提交
	s.removeBreakpointById(resolved.info.BreakpointId)
	s.api.RemoveBreakpoint(s.sessionId, resolved.info.BreakpointId)
}

func (s *Session) SetBreakpointsEnabled(enabled bool) {
	if s.active {
		s.api.SetBreakpointsActive(s.sessionId, enabled)
	}
}

func (s *Session) SetPauseOnExceptions(mode constants.PauseOnExceptionsMode) {
	if s.active {
		s.api.SetPauseOnExceptions(s.sessionId, mode)
	}
}

func (s *Session) SendCustomMessage(message string) {
	if s.active {
		s.api.SendCustomMessage(s.sessionId, message)
	}
}

func (s *Session) findResolvedBreakpoint(breakpoint debugger.Breakpoint) *resolvedBreakpoint {
	for _, resolved := range s.breakpoints {
		if resolved.breakpoint == breakpoint {
			return resolved
		}
	}
	return nil
}

// FindBreakpointInfo 断点对应的远程断点，没有提交过时返回nil
func (s *Session) FindBreakpointInfo(breakpoint debugger.Breakpoint) *debugger.BreakpointInfo {
	if resolved := s.findResolvedBreakpoint(breakpoint); resolved != nil {
		return resolved.info
	}
	return nil
}

// BreakpointInfos 所有已经提交的远程断点
func (s *Session) BreakpointInfos() []*debugger.BreakpointInfo {
	answer := make([]*debugger.BreakpointInfo, 0, len(s.breakpoints))
	for _, resolved := range s.breakpoints {
		answer = append(answer, resolved.info)
	}
	return answer
}

func (s *Session) setActive(active bool) {
	if s.active == active {
		return
	}
	if active {
		logrus.Errorf("[setActive] sessionId = %s, err = %v", s.sessionId, e.ErrReactivation)
		return
	}
	s.reset()
	s.active = active
	s.dispatchState()
}

func (s *Session) setOnPaused(response *debugger.OnPaused) {
	if s.onPaused != response {
		s.onPaused = response
		s.activeCallFrameIndex = 0
		s.dispatchState()
	}
}

func (s *Session) reset() {
	s.softReset()
	s.active = false
	s.sourceMapping = nil
	s.onPaused = nil
	s.activeCallFrameIndex = 0
	s.breakpoints = nil
}

// softReset 重新运行页面时调用，还没有解析的断点可以重新提交
func (s *Session) softReset() {
	s.scriptParsed = map[string]*debugger.OnScriptParsed{}
	for _, resolved := range s.breakpoints {
		resolved.requested = false
	}
}

func (s *Session) updateBreakpointInfo(response *debugger.OnBreakpointResolved) {
	for _, resolved := range s.breakpoints {
		info := resolved.info
		if (response.BreakpointId != "" && response.BreakpointId == info.BreakpointId) ||
			info.EqualsTo(response.BreakpointInfo) {
			if response.BreakpointId != "" {
				info.BreakpointId = response.BreakpointId
			} else {
				logrus.Errorf("[updateBreakpointInfo] %s, err = %v", resolved.breakpoint, e.ErrEmptyBreakpointID)
			}
			info.Locations = append(info.Locations, response.Locations...)
			return
		}
	}
}

func (s *Session) removeBreakpointById(breakpointId string) {
	for i, resolved := range s.breakpoints {
		if resolved.info.BreakpointId == breakpointId {
			s.breakpoints = append(s.breakpoints[:i:i], s.breakpoints[i+1:]...)
			return
		}
	}
}

func (s *Session) dispatchState() {
	state := constants.Inactive
	if s.active {
		state = constants.Running
		if s.onPaused != nil {
			state = constants.Paused
		}
	}
	s.status.Set(state)
	s.StateEvents.Dispatch(StateEvent{Active: s.active, Paused: s.onPaused != nil})
}

func (s *Session) accept(sessionId string) bool {
	if sessionId != s.sessionId {
		logrus.Debugf("[Session] ignore event of session %s", sessionId)
		return false
	}
	return true
}

func (s *Session) OnDebuggerAvailableChanged() {
	s.AvailabilityEvents.Dispatch(AvailabilityEvent{Available: s.api.IsDebuggerAvailable()})
}

func (s *Session) OnDebuggerAttached(sessionId string) {
	if s.accept(sessionId) {
		s.setActive(true)
	}
}

func (s *Session) OnDebuggerDetached(sessionId string) {
	if s.accept(sessionId) {
		logrus.Infof("[Session] debugger detached, sessionId = %s", sessionId)
		s.setActive(false)
	}
}

func (s *Session) OnBreakpointResolved(sessionId string, response *debugger.OnBreakpointResolved) {
	if s.accept(sessionId) && response != nil {
		s.updateBreakpointInfo(response)
	}
}

func (s *Session) OnBreakpointRemoved(sessionId string, breakpointId string) {
	if s.accept(sessionId) {
		s.removeBreakpointById(breakpointId)
	}
}

func (s *Session) OnPaused(sessionId string, response *debugger.OnPaused) {
	if s.accept(sessionId) {
		s.setOnPaused(response)
	}
}

func (s *Session) OnResumed(sessionId string) {
	if s.accept(sessionId) {
		s.setOnPaused(nil)
	}
}

func (s *Session) OnScriptParsed(sessionId string, response *debugger.OnScriptParsed) {
	if s.accept(sessionId) && response != nil {
		s.scriptParsed[response.ScriptId] = response
	}
}

func (s *Session) OnRemoteObjectPropertiesResponse(sessionId string,
	response *debugger.OnRemoteObjectPropertiesResponse) {
	if s.accept(sessionId) {
		s.RemoteObjectEvents.Dispatch(RemoteObjectEvent{PropertiesResponse: response})
	}
}

func (s *Session) OnRemoteObjectPropertyChanged(sessionId string,
	response *debugger.OnRemoteObjectPropertyChanged) {
	if s.accept(sessionId) {
		s.RemoteObjectEvents.Dispatch(RemoteObjectEvent{PropertyChanged: response})
	}
}

// OnEvaluateExpressionResponse 只接受当前栈帧的结果
func (s *Session) OnEvaluateExpressionResponse(sessionId string,
	response *debugger.OnEvaluateExpressionResponse) {
	if !s.accept(sessionId) || response == nil {
		return
	}
	activeCallFrameId := ""
	if callFrame := s.GetActiveCallFrame(); callFrame != nil {
		activeCallFrameId = callFrame.Id
	}
	if activeCallFrameId != response.CallFrameId {
		logrus.Debugf("[Session] drop evaluation of %q on call frame %q", response.Expression,
			response.CallFrameId)
		return
	}
	s.EvaluateEvents.Dispatch(EvaluateEvent{Response: response})
}

func (s *Session) OnGlobalObjectChanged(sessionId string) {
	if s.accept(sessionId) {
		s.EvaluateEvents.Dispatch(EvaluateEvent{GlobalObjectChanged: true})
	}
}

func (s *Session) OnAllCssStyleSheetsResponse(sessionId string, response *debugger.OnAllCssStyleSheets) {
	if s.accept(sessionId) {
		s.CssEvents.Dispatch(CssEvent{Response: response})
	}
}

func (s *Session) OnConsoleMessage(sessionId string, message *debugger.ConsoleMessage) {
	if s.accept(sessionId) {
		s.lastConsoleMessage = message
		s.ConsoleEvents.Dispatch(ConsoleEvent{Message: message})
	}
}

func (s *Session) OnConsoleMessageRepeatCountUpdated(sessionId string, repeatCount int) {
	if s.accept(sessionId) && s.lastConsoleMessage != nil {
		s.ConsoleEvents.Dispatch(ConsoleEvent{Message: s.lastConsoleMessage, RepeatCount: repeatCount})
	}
}

func (s *Session) OnConsoleMessagesCleared(sessionId string) {
	if s.accept(sessionId) {
		s.lastConsoleMessage = nil
		s.ConsoleEvents.Dispatch(ConsoleEvent{Cleared: true})
	}
}

func (s *Session) OnCustomMessageResponse(sessionId string, response string) {
	if s.accept(sessionId) {
		s.CustomMessageEvents.Dispatch(CustomMessageEvent{Response: response})
	}
}

func (s *Session) String() string {
	return fmt.Sprintf("Session{%s %s}", s.sessionId, s.State())
}
