package constants

// SessionState 调试会话状态
type SessionState string

const (
	// Inactive 未连接到被调试页面
	Inactive SessionState = "inactive"
	// Running 被调试页面运行中
	Running SessionState = "running"
	// Paused 被调试页面暂停
	Paused SessionState = "paused"
)

// RemoteObjectType 远程对象类型
type RemoteObjectType string

const (
	TypeBoolean   RemoteObjectType = "boolean"
	TypeFunction  RemoteObjectType = "function"
	TypeNumber    RemoteObjectType = "number"
	TypeObject    RemoteObjectType = "object"
	TypeString    RemoteObjectType = "string"
	TypeUndefined RemoteObjectType = "undefined"
)

// RemoteObjectSubType 远程对象子类型，只对object类型有效
type RemoteObjectSubType string

const (
	SubTypeArray  RemoteObjectSubType = "array"
	SubTypeDate   RemoteObjectSubType = "date"
	SubTypeNode   RemoteObjectSubType = "node"
	SubTypeNull   RemoteObjectSubType = "null"
	SubTypeRegexp RemoteObjectSubType = "regexp"
)

// ScopeType 作用域类型
//
// Catch: catch块中的异常变量
// Closure: 函数闭包的作用域
// Global: 全局对象(window)
// Local: 当前栈帧中的局部变量和参数
// With: with语句引入的对象
type ScopeType string

const (
	ScopeCatch   ScopeType = "catch"
	ScopeClosure ScopeType = "closure"
	ScopeGlobal  ScopeType = "global"
	ScopeLocal   ScopeType = "local"
	ScopeWith    ScopeType = "with"
)

// ConsoleMessageLevel 控制台消息级别
type ConsoleMessageLevel string

const (
	ConsoleDebug   ConsoleMessageLevel = "debug"
	ConsoleError   ConsoleMessageLevel = "error"
	ConsoleLog     ConsoleMessageLevel = "log"
	ConsoleTip     ConsoleMessageLevel = "tip"
	ConsoleWarning ConsoleMessageLevel = "warning"
)

// ConsoleMessageType 控制台消息类型
type ConsoleMessageType string

const (
	ConsoleTypeAssert              ConsoleMessageType = "assert"
	ConsoleTypeDir                 ConsoleMessageType = "dir"
	ConsoleTypeDirXML              ConsoleMessageType = "dirxml"
	ConsoleTypeEndGroup            ConsoleMessageType = "endGroup"
	ConsoleTypeLog                 ConsoleMessageType = "log"
	ConsoleTypeStartGroup          ConsoleMessageType = "startGroup"
	ConsoleTypeStartGroupCollapsed ConsoleMessageType = "startGroupCollapsed"
	ConsoleTypeTrace               ConsoleMessageType = "trace"
)

// PauseOnExceptionsMode 遇到异常时是否暂停
type PauseOnExceptionsMode string

const (
	PauseOnExceptionsNone     PauseOnExceptionsMode = "none"
	PauseOnExceptionsAll      PauseOnExceptionsMode = "all"
	PauseOnExceptionsUncaught PauseOnExceptionsMode = "uncaught"
)

// 调试扩展支持的方法以及事件
const (
	MethodWindowOpen                  = "window.open"
	MethodWindowClose                 = "window.close"
	MethodOnAttach                    = "onAttach"
	MethodOnDetach                    = "onDetach"
	MethodOnGlobalObjectChanged       = "onGlobalObjectChanged"
	MethodOnExtensionInstalledChanged = "onExtensionInstalledChanged"

	MethodCssGetAllStyleSheets = "CSS.getAllStyleSheets"
	MethodCssSetStyleSheetText = "CSS.setStyleSheetText"

	MethodConsoleEnable                    = "Console.enable"
	MethodConsoleMessageAdded              = "Console.messageAdded"
	MethodConsoleMessageRepeatCountUpdated = "Console.messageRepeatCountUpdated"
	MethodConsoleMessagesCleared           = "Console.messagesCleared"

	MethodDebuggerEnable               = "Debugger.enable"
	MethodDebuggerSetBreakpointByUrl   = "Debugger.setBreakpointByUrl"
	MethodDebuggerRemoveBreakpoint     = "Debugger.removeBreakpoint"
	MethodDebuggerSetBreakpointsActive = "Debugger.setBreakpointsActive"
	MethodDebuggerSetPauseOnExceptions = "Debugger.setPauseOnExceptions"
	MethodDebuggerPause                = "Debugger.pause"
	MethodDebuggerResume               = "Debugger.resume"
	MethodDebuggerStepInto             = "Debugger.stepInto"
	MethodDebuggerStepOut              = "Debugger.stepOut"
	MethodDebuggerStepOver             = "Debugger.stepOver"
	MethodDebuggerEvaluateOnCallFrame  = "Debugger.evaluateOnCallFrame"

	MethodRuntimeCallFunctionOn = "Runtime.callFunctionOn"
	MethodRuntimeEvaluate       = "Runtime.evaluate"
	MethodRuntimeGetProperties  = "Runtime.getProperties"

	EventDebuggerBreakpointResolved = "Debugger.breakpointResolved"
	EventDebuggerScriptParsed       = "Debugger.scriptParsed"
	EventDebuggerPaused             = "Debugger.paused"
	EventDebuggerResumed            = "Debugger.resumed"

	// DomMethodPrefix DOM相关的消息直接透传给自定义消息的监听者
	DomMethodPrefix = "DOM."
)

// DebugEventType 发送给dap客户端的事件
type DebugEventType string

const (
	BreakpointEvent  DebugEventType = "breakpoint"
	OutputEvent      DebugEventType = "output"
	StoppedEvent     DebugEventType = "stopped"
	ContinuedEvent   DebugEventType = "continued"
	TerminatedEvent  DebugEventType = "terminated"
	InitializedEvent DebugEventType = "initialized"
)

// BreakpointReasonType 断点改变类型
type BreakpointReasonType string

const (
	ChangeType  BreakpointReasonType = "changed"
	NewType     BreakpointReasonType = "new"
	RemovedType BreakpointReasonType = "removed"
)

// StoppedReasonType 程序停止类型
type StoppedReasonType string

const (
	PauseStopped      StoppedReasonType = "pause"
	BreakpointStopped StoppedReasonType = "breakpoint"
	StepStopped       StoppedReasonType = "step"
)

// OutputCategory 输出事件的类别
type OutputCategory string

const (
	OutputConsole OutputCategory = "console"
	OutputStdout  OutputCategory = "stdout"
	OutputStderr  OutputCategory = "stderr"
)
