package debugger

import "github.com/fansqz/js-debugger/constants"

// DebuggerApi
// 与浏览器调试扩展通信的能力，所有请求都是发出即返回，
// 结果通过DebuggerResponseListener异步通知
type DebuggerApi interface {
	// IsDebuggerAvailable 调试扩展是否可用
	IsDebuggerAvailable() bool
	// GetDebuggingExtensionUrl 调试扩展的下载地址
	GetDebuggingExtensionUrl() string
	// RunDebugger 打开url并附加调试器
	RunDebugger(sessionId string, url string)
	// ShutdownDebugger 关闭被调试页面
	ShutdownDebugger(sessionId string)
	// SetBreakpointByUrl 设置断点，结果通过OnBreakpointResolved返回
	SetBreakpointByUrl(sessionId string, breakpointInfo *BreakpointInfo)
	// RemoveBreakpoint 移除断点
	RemoveBreakpoint(sessionId string, breakpointId string)
	// SetBreakpointsActive 激活或者禁用所有断点
	SetBreakpointsActive(sessionId string, active bool)
	// SetPauseOnExceptions 设置遇到异常时是否暂停
	SetPauseOnExceptions(sessionId string, mode constants.PauseOnExceptionsMode)
	Pause(sessionId string)
	Resume(sessionId string)
	StepInto(sessionId string)
	StepOut(sessionId string)
	StepOver(sessionId string)
	// RequestRemoteObjectProperties 获取远程对象的属性
	RequestRemoteObjectProperties(sessionId string, remoteObjectId RemoteObjectId)
	// SetRemoteObjectProperty 在全局对象上计算表达式并赋值给属性
	SetRemoteObjectProperty(sessionId string, remoteObjectId RemoteObjectId, propertyName string,
		propertyValueExpression string)
	// SetRemoteObjectPropertyEvaluatedOnCallFrame 在栈帧上计算表达式并赋值给属性
	SetRemoteObjectPropertyEvaluatedOnCallFrame(sessionId string, callFrame *CallFrame,
		remoteObjectId RemoteObjectId, propertyName string, propertyValueExpression string)
	RemoveRemoteObjectProperty(sessionId string, remoteObjectId RemoteObjectId, propertyName string)
	RenameRemoteObjectProperty(sessionId string, remoteObjectId RemoteObjectId, oldName string, newName string)
	// EvaluateExpression 在全局对象上计算表达式
	EvaluateExpression(sessionId string, expression string)
	// EvaluateExpressionOnCallFrame 在栈帧上计算表达式
	EvaluateExpressionOnCallFrame(sessionId string, callFrame *CallFrame, expression string)
	RequestAllCssStyleSheets(sessionId string)
	SetStyleSheetText(sessionId string, styleSheetId string, text string)
	// SendCustomMessage 发送原始的调试协议消息，响应通过OnCustomMessageResponse返回
	SendCustomMessage(sessionId string, message string)

	AddDebuggerResponseListener(listener DebuggerResponseListener)
	RemoveDebuggerResponseListener(listener DebuggerResponseListener)
}

// DebuggerResponseListener
// 调试扩展的事件回调，除了可用状态变化以外都会携带产生该事件的sessionId
type DebuggerResponseListener interface {
	OnDebuggerAvailableChanged()
	OnDebuggerAttached(sessionId string)
	OnDebuggerDetached(sessionId string)
	OnBreakpointResolved(sessionId string, response *OnBreakpointResolved)
	OnBreakpointRemoved(sessionId string, breakpointId string)
	OnPaused(sessionId string, response *OnPaused)
	OnResumed(sessionId string)
	OnScriptParsed(sessionId string, response *OnScriptParsed)
	OnRemoteObjectPropertiesResponse(sessionId string, response *OnRemoteObjectPropertiesResponse)
	OnRemoteObjectPropertyChanged(sessionId string, response *OnRemoteObjectPropertyChanged)
	OnEvaluateExpressionResponse(sessionId string, response *OnEvaluateExpressionResponse)
	OnGlobalObjectChanged(sessionId string)
	OnAllCssStyleSheetsResponse(sessionId string, response *OnAllCssStyleSheets)
	OnConsoleMessage(sessionId string, message *ConsoleMessage)
	OnConsoleMessageRepeatCountUpdated(sessionId string, repeatCount int)
	OnConsoleMessagesCleared(sessionId string)
	OnCustomMessageResponse(sessionId string, response string)
}

// SourceMapping 本地源文件与被调试页面中资源之间的映射
//
//go:generate mockgen -destination=debuggermock/source_mapping_mock.go -package=debuggermock . SourceMapping
type SourceMapping interface {
	// GetLocalScriptPath 脚本对应的本地路径，无法映射时返回空字符串
	GetLocalScriptPath(response *OnScriptParsed) string
	// GetLocalSourceLineNumber 远程位置对应的本地行号
	GetLocalSourceLineNumber(response *OnScriptParsed, location *Location) int
	// GetRemoteBreakpoint 本地断点对应的远程断点
	GetRemoteBreakpoint(breakpoint Breakpoint) *BreakpointInfo
	// GetLocalSourcePath 远程资源对应的本地路径
	GetLocalSourcePath(resourceUri string) string
	// GetRemoteSourceUri 本地路径对应的远程资源
	GetRemoteSourceUri(path string) string
}
