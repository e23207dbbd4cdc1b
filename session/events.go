package session

import "github.com/fansqz/js-debugger/debugger"

// AvailabilityEvent 调试扩展的可用状态发生变化
type AvailabilityEvent struct {
	Available bool
}

// StateEvent 会话激活或者暂停状态发生变化
type StateEvent struct {
	Active bool
	Paused bool
}

// RemoteObjectEvent 两个字段中只有一个不为nil
type RemoteObjectEvent struct {
	PropertiesResponse *debugger.OnRemoteObjectPropertiesResponse
	PropertyChanged    *debugger.OnRemoteObjectPropertyChanged
}

// EvaluateEvent GlobalObjectChanged为true时Response为nil
type EvaluateEvent struct {
	Response            *debugger.OnEvaluateExpressionResponse
	GlobalObjectChanged bool
}

type CssEvent struct {
	Response *debugger.OnAllCssStyleSheets
}

// ConsoleEvent 控制台事件
//
// 新消息：Message不为nil，RepeatCount为0；
// 重复次数更新：Message为上一条消息，RepeatCount为新的次数；
// 清空：Cleared为true
type ConsoleEvent struct {
	Message     *debugger.ConsoleMessage
	RepeatCount int
	Cleared     bool
}

type CustomMessageEvent struct {
	Response string
}
