// Package debuggerstub 提供一个记录请求的DebuggerApi实现，用于测试
package debuggerstub

import (
	"fmt"
	"sync"

	"github.com/fansqz/js-debugger/constants"
	"github.com/fansqz/js-debugger/debugger"
)

// Request 一次被记录的请求
type Request struct {
	Method    string
	SessionId string
	Args      []interface{}
}

func (r Request) String() string {
	return fmt.Sprintf("%s(%s, %v)", r.Method, r.SessionId, r.Args)
}

// DebuggerApi 记录所有请求，并且可以向监听者发送事件
type DebuggerApi struct {
	lock      sync.Mutex
	available bool
	requests  []Request
	listeners []debugger.DebuggerResponseListener
}

var _ debugger.DebuggerApi = (*DebuggerApi)(nil)

func NewDebuggerApi() *DebuggerApi {
	return &DebuggerApi{available: true}
}

func (d *DebuggerApi) record(method string, sessionId string, args ...interface{}) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.requests = append(d.requests, Request{Method: method, SessionId: sessionId, Args: args})
}

// Requests 返回已记录请求的副本
func (d *DebuggerApi) Requests() []Request {
	d.lock.Lock()
	defer d.lock.Unlock()
	answer := make([]Request, len(d.requests))
	copy(answer, d.requests)
	return answer
}

// RequestsOf 返回指定方法的请求
func (d *DebuggerApi) RequestsOf(method string) []Request {
	var answer []Request
	for _, request := range d.Requests() {
		if request.Method == method {
			answer = append(answer, request)
		}
	}
	return answer
}

func (d *DebuggerApi) Reset() {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.requests = nil
}

func (d *DebuggerApi) SetAvailable(available bool) {
	d.lock.Lock()
	d.available = available
	d.lock.Unlock()
	d.Fire(func(l debugger.DebuggerResponseListener) { l.OnDebuggerAvailableChanged() })
}

// Fire 依次通知所有监听者
func (d *DebuggerApi) Fire(fn func(l debugger.DebuggerResponseListener)) {
	d.lock.Lock()
	listeners := make([]debugger.DebuggerResponseListener, len(d.listeners))
	copy(listeners, d.listeners)
	d.lock.Unlock()
	for _, l := range listeners {
		fn(l)
	}
}

func (d *DebuggerApi) IsDebuggerAvailable() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.available
}

func (d *DebuggerApi) GetDebuggingExtensionUrl() string {
	return "https://example.com/js-debugger-extension"
}

func (d *DebuggerApi) RunDebugger(sessionId string, url string) {
	d.record("RunDebugger", sessionId, url)
}

func (d *DebuggerApi) ShutdownDebugger(sessionId string) {
	d.record("ShutdownDebugger", sessionId)
}

func (d *DebuggerApi) SetBreakpointByUrl(sessionId string, breakpointInfo *debugger.BreakpointInfo) {
	d.record("SetBreakpointByUrl", sessionId, breakpointInfo)
}

func (d *DebuggerApi) RemoveBreakpoint(sessionId string, breakpointId string) {
	d.record("RemoveBreakpoint", sessionId, breakpointId)
}

func (d *DebuggerApi) SetBreakpointsActive(sessionId string, active bool) {
	d.record("SetBreakpointsActive", sessionId, active)
}

func (d *DebuggerApi) SetPauseOnExceptions(sessionId string, mode constants.PauseOnExceptionsMode) {
	d.record("SetPauseOnExceptions", sessionId, mode)
}

func (d *DebuggerApi) Pause(sessionId string) {
	d.record("Pause", sessionId)
}

func (d *DebuggerApi) Resume(sessionId string) {
	d.record("Resume", sessionId)
}

func (d *DebuggerApi) StepInto(sessionId string) {
	d.record("StepInto", sessionId)
}

func (d *DebuggerApi) StepOut(sessionId string) {
	d.record("StepOut", sessionId)
}

func (d *DebuggerApi) StepOver(sessionId string) {
	d.record("StepOver", sessionId)
}

func (d *DebuggerApi) RequestRemoteObjectProperties(sessionId string, remoteObjectId debugger.RemoteObjectId) {
	d.record("RequestRemoteObjectProperties", sessionId, remoteObjectId)
}

func (d *DebuggerApi) SetRemoteObjectProperty(sessionId string, remoteObjectId debugger.RemoteObjectId,
	propertyName string, propertyValueExpression string) {
	d.record("SetRemoteObjectProperty", sessionId, remoteObjectId, propertyName, propertyValueExpression)
}

func (d *DebuggerApi) SetRemoteObjectPropertyEvaluatedOnCallFrame(sessionId string, callFrame *debugger.CallFrame,
	remoteObjectId debugger.RemoteObjectId, propertyName string, propertyValueExpression string) {
	d.record("SetRemoteObjectPropertyEvaluatedOnCallFrame", sessionId, callFrame.Id, remoteObjectId,
		propertyName, propertyValueExpression)
}

func (d *DebuggerApi) RemoveRemoteObjectProperty(sessionId string, remoteObjectId debugger.RemoteObjectId,
	propertyName string) {
	d.record("RemoveRemoteObjectProperty", sessionId, remoteObjectId, propertyName)
}

func (d *DebuggerApi) RenameRemoteObjectProperty(sessionId string, remoteObjectId debugger.RemoteObjectId,
	oldName string, newName string) {
	d.record("RenameRemoteObjectProperty", sessionId, remoteObjectId, oldName, newName)
}

func (d *DebuggerApi) EvaluateExpression(sessionId string, expression string) {
	d.record("EvaluateExpression", sessionId, expression)
}

func (d *DebuggerApi) EvaluateExpressionOnCallFrame(sessionId string, callFrame *debugger.CallFrame,
	expression string) {
	d.record("EvaluateExpressionOnCallFrame", sessionId, callFrame.Id, expression)
}

func (d *DebuggerApi) RequestAllCssStyleSheets(sessionId string) {
	d.record("RequestAllCssStyleSheets", sessionId)
}

func (d *DebuggerApi) SetStyleSheetText(sessionId string, styleSheetId string, text string) {
	d.record("SetStyleSheetText", sessionId, styleSheetId, text)
}

func (d *DebuggerApi) SendCustomMessage(sessionId string, message string) {
	d.record("SendCustomMessage", sessionId, message)
}

func (d *DebuggerApi) AddDebuggerResponseListener(listener debugger.DebuggerResponseListener) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.listeners = append(d.listeners, listener)
}

func (d *DebuggerApi) RemoveDebuggerResponseListener(listener debugger.DebuggerResponseListener) {
	d.lock.Lock()
	defer d.lock.Unlock()
	for i, l := range d.listeners {
		if l == listener {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			return
		}
	}
}
