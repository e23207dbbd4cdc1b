package transport

import (
	"github.com/fansqz/js-debugger/constants"
	"github.com/fansqz/js-debugger/debugger"
	"github.com/fansqz/js-debugger/protocol"
	"github.com/sirupsen/logrus"
)

// handleResponse 在事件循环中处理中继发来的一条消息
func (c *ChromeApi) handleResponse(response *protocol.ExtensionResponse) {
	if c.maybeInvokeCallback(response) || c.maybeHandleCustomMessage(response) {
		return
	}
	sessionId := response.Target
	request, result := response.Request, response.Result
	logrus.Debugf("[ChromeApi] receive %s", response.Method)

	if response.IsError() {
		logrus.Debugf("[ChromeApi] %s error: %s", response.Method, response.Error)
		c.handleErrorResponse(response)
		return
	}

	switch response.Method {
	case constants.EventDebuggerScriptParsed:
		if parsed := protocol.ParseOnScriptParsed(result); parsed != nil {
			c.dispatch(func(l debugger.DebuggerResponseListener) { l.OnScriptParsed(sessionId, parsed) })
		}
	case constants.MethodConsoleMessageAdded:
		if message := protocol.ParseOnConsoleMessage(result); message != nil {
			c.dispatch(func(l debugger.DebuggerResponseListener) { l.OnConsoleMessage(sessionId, message) })
		}
	case constants.MethodConsoleMessageRepeatCountUpdated:
		if repeatCount := protocol.ParseOnConsoleMessageRepeatCountUpdated(result); repeatCount != -1 {
			c.dispatch(func(l debugger.DebuggerResponseListener) {
				l.OnConsoleMessageRepeatCountUpdated(sessionId, repeatCount)
			})
		}
	case constants.MethodConsoleMessagesCleared:
		c.dispatch(func(l debugger.DebuggerResponseListener) { l.OnConsoleMessagesCleared(sessionId) })
	case constants.EventDebuggerPaused:
		if paused := protocol.ParseOnPaused(result); paused != nil {
			c.dispatch(func(l debugger.DebuggerResponseListener) { l.OnPaused(sessionId, paused) })
		}
	case constants.EventDebuggerResumed:
		c.dispatch(func(l debugger.DebuggerResponseListener) { l.OnResumed(sessionId) })
	case constants.MethodDebuggerSetBreakpointByUrl, constants.EventDebuggerBreakpointResolved:
		if resolved := protocol.ParseOnBreakpointResolved(request, result); resolved != nil {
			c.dispatch(func(l debugger.DebuggerResponseListener) { l.OnBreakpointResolved(sessionId, resolved) })
		}
	case constants.MethodDebuggerRemoveBreakpoint:
		if breakpointId := protocol.ParseOnRemoveBreakpoint(request); breakpointId != "" {
			c.dispatch(func(l debugger.DebuggerResponseListener) { l.OnBreakpointRemoved(sessionId, breakpointId) })
		}
	case constants.MethodOnAttach, constants.MethodWindowOpen:
		c.dispatch(func(l debugger.DebuggerResponseListener) { l.OnDebuggerAttached(sessionId) })
	case constants.MethodOnDetach, constants.MethodWindowClose:
		c.dispatchDetached(sessionId)
	case constants.MethodOnGlobalObjectChanged:
		c.dispatch(func(l debugger.DebuggerResponseListener) { l.OnGlobalObjectChanged(sessionId) })
	case constants.MethodRuntimeGetProperties:
		if properties := protocol.ParseOnRemoteObjectProperties(request, result); properties != nil {
			c.dispatch(func(l debugger.DebuggerResponseListener) {
				l.OnRemoteObjectPropertiesResponse(sessionId, properties)
			})
		}
	case constants.MethodRuntimeEvaluate, constants.MethodDebuggerEvaluateOnCallFrame:
		if evaluation := protocol.ParseOnEvaluateExpression(request, result); evaluation != nil {
			c.dispatch(func(l debugger.DebuggerResponseListener) {
				l.OnEvaluateExpressionResponse(sessionId, evaluation)
			})
		}
	case constants.MethodCssGetAllStyleSheets:
		if sheets := protocol.ParseOnAllCssStyleSheets(result); sheets != nil {
			c.dispatch(func(l debugger.DebuggerResponseListener) { l.OnAllCssStyleSheetsResponse(sessionId, sheets) })
		}
	case constants.MethodOnExtensionInstalledChanged:
		installed := true
		if value := result.Get("installed"); value.Exists() {
			installed = value.Bool()
		}
		c.lock.Lock()
		c.installed = installed
		c.lock.Unlock()
		c.dispatchAvailableChanged()
	default:
		logrus.Warnf("[ChromeApi] ignoring debugger message: %s", response.Method)
	}
}

func (c *ChromeApi) maybeInvokeCallback(response *protocol.ExtensionResponse) bool {
	callbacks := c.callbacks[response.Target]
	cb, ok := callbacks[response.Id]
	if !ok {
		return false
	}
	delete(callbacks, response.Id)
	cb(response)
	return true
}

func (c *ChromeApi) maybeHandleCustomMessage(response *protocol.ExtensionResponse) bool {
	sessionId := response.Target
	var message string
	if ids := c.customMessageIds[sessionId]; ids != nil {
		if id, ok := ids[response.Id]; ok {
			delete(ids, response.Id)
			message = protocol.NewCustomMessageResponse(id, response)
		}
	}
	if message == "" && response.IsDomMessage() {
		message = protocol.NewDomMessage(response)
	}
	if message == "" {
		return false
	}
	c.dispatch(func(l debugger.DebuggerResponseListener) { l.OnCustomMessageResponse(sessionId, message) })
	return true
}

// handleErrorResponse 可能已经断开调试器的方法失败时，通知调试器已断开。
// 获取属性和计算表达式失败时也要响应，否则等待结果的节点会一直处于请求状态。
func (c *ChromeApi) handleErrorResponse(response *protocol.ExtensionResponse) {
	sessionId := response.Target
	switch response.Method {
	case constants.MethodOnAttach, constants.MethodWindowOpen, constants.MethodOnDetach, constants.MethodWindowClose:
		c.dispatchDetached(sessionId)
	case constants.MethodRuntimeGetProperties:
		if properties := protocol.ParseOnRemoteObjectPropertiesError(response.Request); properties != nil {
			c.dispatch(func(l debugger.DebuggerResponseListener) {
				l.OnRemoteObjectPropertiesResponse(sessionId, properties)
			})
		}
	case constants.MethodRuntimeEvaluate, constants.MethodDebuggerEvaluateOnCallFrame:
		if evaluation := protocol.ParseOnEvaluateExpressionError(response.Request, response.Error); evaluation != nil {
			c.dispatch(func(l debugger.DebuggerResponseListener) {
				l.OnEvaluateExpressionResponse(sessionId, evaluation)
			})
		}
	}
}

func (c *ChromeApi) dispatchDetached(sessionId string) {
	delete(c.customMessageIds, sessionId)
	delete(c.callbacks, sessionId)
	c.dispatch(func(l debugger.DebuggerResponseListener) { l.OnDebuggerDetached(sessionId) })
}

func (c *ChromeApi) dispatchPropertyChanged(sessionId string, response *debugger.OnRemoteObjectPropertyChanged) {
	c.dispatch(func(l debugger.DebuggerResponseListener) { l.OnRemoteObjectPropertyChanged(sessionId, response) })
}

func (c *ChromeApi) dispatchAvailableChanged() {
	c.dispatch(func(l debugger.DebuggerResponseListener) { l.OnDebuggerAvailableChanged() })
}

// dispatch 遍历监听者的副本，监听者可以在回调中移除自己
func (c *ChromeApi) dispatch(fn func(listener debugger.DebuggerResponseListener)) {
	c.listenersLock.Lock()
	listeners := make([]debugger.DebuggerResponseListener, len(c.listeners))
	copy(listeners, c.listeners)
	c.listenersLock.Unlock()
	for _, listener := range listeners {
		fn(listener)
	}
}
