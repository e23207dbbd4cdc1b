// Package transport 通过websocket与浏览器调试扩展的中继通信
package transport

import (
	"context"
	"sync"
	"time"

	"github.com/fansqz/js-debugger/constants"
	"github.com/fansqz/js-debugger/debugger"
	e "github.com/fansqz/js-debugger/error"
	"github.com/fansqz/js-debugger/protocol"
	"github.com/fansqz/js-debugger/utils"
	"github.com/fansqz/js-debugger/utils/gosync"
	"github.com/fansqz/js-debugger/utils/scheduler"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"
	"go.uber.org/multierr"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultExtensionUrl = "http://www.example.com/js-debugger.crx"
	closeWait           = time.Second
)

// Options 连接参数
type Options struct {
	// Url 中继的websocket地址
	Url string
	// ExtensionUrl 调试扩展的下载地址
	ExtensionUrl string
	// Timeout 超过这个时间没有收到任何消息时认为扩展不可用，同时决定心跳间隔
	Timeout time.Duration
	// Breaker 写消息的熔断器配置
	Breaker gobreaker.Settings
}

type callback func(response *protocol.ExtensionResponse)

// ChromeApi DebuggerApi的websocket实现
//
// 读协程只负责解析消息，所有的回调和监听者通知都在事件循环中执行。
// 除了Connect、Close和IsDebuggerAvailable以外，其他方法都只能在事件循环中调用。
type ChromeApi struct {
	options  Options
	loop     *scheduler.Loop
	breaker  *gobreaker.CircuitBreaker
	watchdog *utils.TimeoutManager

	lock      sync.Mutex
	conn      *websocket.Conn
	cancel    context.CancelFunc
	readDone  chan struct{}
	pingDone  chan struct{}
	alive     bool
	installed bool

	writeLock sync.Mutex

	listenersLock sync.Mutex
	listeners     []debugger.DebuggerResponseListener

	// 以下字段只在事件循环中访问
	lastUsedId int
	callbacks  map[string]map[int]callback
	// 自定义消息: 发送时的id -> 调用者消息中的id
	customMessageIds map[string]map[int]int
}

var _ debugger.DebuggerApi = (*ChromeApi)(nil)

func NewChromeApi(options Options, loop *scheduler.Loop) *ChromeApi {
	if options.Timeout <= 0 {
		options.Timeout = defaultTimeout
	}
	if options.ExtensionUrl == "" {
		options.ExtensionUrl = defaultExtensionUrl
	}
	if options.Breaker.Name == "" {
		options.Breaker.Name = "chrome-api"
	}
	c := &ChromeApi{
		options:          options,
		loop:             loop,
		watchdog:         utils.NewTimeoutManager(),
		callbacks:        map[string]map[int]callback{},
		customMessageIds: map[string]map[int]int{},
	}
	onStateChange := options.Breaker.OnStateChange
	options.Breaker.OnStateChange = func(name string, from gobreaker.State, to gobreaker.State) {
		logrus.Warnf("[ChromeApi] breaker %s %s -> %s", name, from, to)
		if onStateChange != nil {
			onStateChange(name, from, to)
		}
	}
	c.breaker = gobreaker.NewCircuitBreaker(options.Breaker)
	return c
}

// Connect 连接到中继，开始读取消息并监控扩展是否可用
func (c *ChromeApi) Connect(ctx context.Context) error {
	logrus.Infof("[ChromeApi] Connect %s", c.options.Url)
	dialer := websocket.Dialer{
		HandshakeTimeout: c.options.Timeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.options.Url, nil)
	if err != nil {
		logrus.Errorf("[Connect] dial fail, err = %v", err)
		return err
	}
	readCtx, cancel := context.WithCancel(context.Background())

	c.lock.Lock()
	c.conn = conn
	c.cancel = cancel
	c.readDone = make(chan struct{})
	c.pingDone = make(chan struct{})
	c.alive = true
	c.installed = true
	readDone, pingDone := c.readDone, c.pingDone
	c.lock.Unlock()

	conn.SetPongHandler(func(string) error {
		c.onTraffic(readCtx)
		return nil
	})
	c.watchdog.Start(readCtx, c.options.Timeout, c.onSilence)
	gosync.Go(readCtx, func(ctx context.Context) {
		defer close(readDone)
		c.readLoop(ctx, conn)
	})
	gosync.Go(readCtx, func(ctx context.Context) {
		defer close(pingDone)
		c.keepalive(ctx)
	})
	c.loop.Post(c.dispatchAvailableChanged)
	return nil
}

// Close 断开连接，等待读协程退出
func (c *ChromeApi) Close() error {
	c.lock.Lock()
	conn, cancel, readDone, pingDone := c.conn, c.cancel, c.readDone, c.pingDone
	c.conn = nil
	c.alive = false
	c.lock.Unlock()
	if conn == nil {
		return nil
	}
	logrus.Infof("[ChromeApi] Close")
	cancel()
	c.watchdog.Cancel()

	var err error
	c.writeLock.Lock()
	err = multierr.Append(err, conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(closeWait)))
	c.writeLock.Unlock()
	err = multierr.Append(err, conn.Close())
	<-readDone
	<-pingDone
	if err != nil {
		logrus.Warnf("[Close] close connection, err = %v", err)
	}
	return err
}

// Teardown 移除所有监听者并丢弃等待中的回调
func (c *ChromeApi) Teardown() {
	c.listenersLock.Lock()
	c.listeners = nil
	c.listenersLock.Unlock()
	c.callbacks = map[string]map[int]callback{}
	c.customMessageIds = map[string]map[int]int{}
}

func (c *ChromeApi) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logrus.Errorf("[readLoop] connection lost, err = %v", err)
				}
				c.setAlive(false)
			}
			return
		}
		c.onTraffic(ctx)
		response, err := protocol.ParseExtensionResponse(message)
		if err != nil {
			logrus.Warnf("[readLoop] drop message, err = %v", err)
			continue
		}
		c.loop.Post(func() {
			c.handleResponse(response)
		})
	}
}

// keepalive 定期发送ping，中继回复的pong会重置看门狗
func (c *ChromeApi) keepalive(ctx context.Context) {
	ticker := time.NewTicker(c.options.Timeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.lock.Lock()
			conn := c.conn
			c.lock.Unlock()
			if conn == nil {
				return
			}
			c.writeLock.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(closeWait))
			c.writeLock.Unlock()
			if err != nil {
				logrus.Warnf("[keepalive] ping fail, err = %v", err)
			}
		}
	}
}

func (c *ChromeApi) onTraffic(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	c.lock.Lock()
	if c.conn == nil {
		c.lock.Unlock()
		return
	}
	wasAlive := c.alive
	c.alive = true
	c.lock.Unlock()
	if wasAlive {
		c.watchdog.Reset()
		return
	}
	// 看门狗触发之后就停止了，重新开始计时
	c.watchdog.Start(ctx, c.options.Timeout, c.onSilence)
	c.loop.Post(c.dispatchAvailableChanged)
}

func (c *ChromeApi) onSilence() {
	logrus.Warnf("[ChromeApi] no message from the extension in %v", c.options.Timeout)
	c.setAlive(false)
}

func (c *ChromeApi) setAlive(alive bool) {
	c.lock.Lock()
	changed := c.alive != alive
	c.alive = alive
	c.lock.Unlock()
	if changed {
		c.loop.Post(c.dispatchAvailableChanged)
	}
}

// IsDebuggerAvailable 已经连接到中继、中继没有超时并且调试扩展已安装
func (c *ChromeApi) IsDebuggerAvailable() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.conn != nil && c.alive && c.installed
}

func (c *ChromeApi) GetDebuggingExtensionUrl() string {
	return c.options.ExtensionUrl
}

func (c *ChromeApi) write(data []byte) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		c.lock.Lock()
		conn := c.conn
		c.lock.Unlock()
		if conn == nil {
			return nil, e.ErrTransportClosed
		}
		c.writeLock.Lock()
		defer c.writeLock.Unlock()
		return nil, conn.WriteMessage(websocket.TextMessage, data)
	})
	return err
}

func (c *ChromeApi) send(sessionId string, method string, params string) {
	c.sendWithCallback(sessionId, method, params, nil)
}

// sendWithCallback 发送失败时在下一个任务中按照错误响应处理
func (c *ChromeApi) sendWithCallback(sessionId string, method string, params string, cb callback) {
	logrus.Debugf("[ChromeApi] send %s", method)
	c.lastUsedId++
	id := c.lastUsedId
	data, err := protocol.NewRequest(id, sessionId, method, params)
	if err == nil {
		if cb != nil {
			if c.callbacks[sessionId] == nil {
				c.callbacks[sessionId] = map[int]callback{}
			}
			c.callbacks[sessionId][id] = cb
		}
		err = c.write(data)
	}
	if err != nil {
		logrus.Errorf("[send] %s fail, err = %v", method, err)
		failed := &protocol.ExtensionResponse{
			Id:      id,
			Target:  sessionId,
			Method:  method,
			Request: gjson.Parse(params),
			Error:   err.Error(),
		}
		c.loop.Post(func() {
			c.handleResponse(failed)
		})
	}
}

func (c *ChromeApi) RunDebugger(sessionId string, url string) {
	c.send(sessionId, constants.MethodWindowOpen, protocol.RunDebuggerParams(url))
	c.send(sessionId, constants.MethodDebuggerEnable, "")
	c.send(sessionId, constants.MethodConsoleEnable, "")
}

func (c *ChromeApi) ShutdownDebugger(sessionId string) {
	c.send(sessionId, constants.MethodWindowClose, "")
}

func (c *ChromeApi) SetBreakpointByUrl(sessionId string, breakpointInfo *debugger.BreakpointInfo) {
	c.send(sessionId, constants.MethodDebuggerSetBreakpointByUrl, protocol.SetBreakpointByUrlParams(breakpointInfo))
}

func (c *ChromeApi) RemoveBreakpoint(sessionId string, breakpointId string) {
	c.send(sessionId, constants.MethodDebuggerRemoveBreakpoint, protocol.RemoveBreakpointParams(breakpointId))
}

func (c *ChromeApi) SetBreakpointsActive(sessionId string, active bool) {
	c.send(sessionId, constants.MethodDebuggerSetBreakpointsActive, protocol.SetBreakpointsActiveParams(active))
}

func (c *ChromeApi) SetPauseOnExceptions(sessionId string, mode constants.PauseOnExceptionsMode) {
	c.send(sessionId, constants.MethodDebuggerSetPauseOnExceptions, protocol.SetPauseOnExceptionsParams(mode))
}

func (c *ChromeApi) Pause(sessionId string) {
	c.send(sessionId, constants.MethodDebuggerPause, "")
}

func (c *ChromeApi) Resume(sessionId string) {
	c.send(sessionId, constants.MethodDebuggerResume, "")
}

func (c *ChromeApi) StepInto(sessionId string) {
	c.send(sessionId, constants.MethodDebuggerStepInto, "")
}

func (c *ChromeApi) StepOut(sessionId string) {
	c.send(sessionId, constants.MethodDebuggerStepOut, "")
}

func (c *ChromeApi) StepOver(sessionId string) {
	c.send(sessionId, constants.MethodDebuggerStepOver, "")
}

func (c *ChromeApi) RequestRemoteObjectProperties(sessionId string, remoteObjectId debugger.RemoteObjectId) {
	c.send(sessionId, constants.MethodRuntimeGetProperties, protocol.GetPropertiesParams(remoteObjectId))
}

func (c *ChromeApi) SetRemoteObjectProperty(sessionId string, remoteObjectId debugger.RemoteObjectId,
	propertyName string, propertyValueExpression string) {
	expression := protocol.PreparePropertyValueExpression(propertyValueExpression)
	c.sendWithCallback(sessionId, constants.MethodRuntimeEvaluate, protocol.EvaluateParams(expression),
		c.setPropertyCallback(sessionId, remoteObjectId, propertyName))
}

func (c *ChromeApi) SetRemoteObjectPropertyEvaluatedOnCallFrame(sessionId string, callFrame *debugger.CallFrame,
	remoteObjectId debugger.RemoteObjectId, propertyName string, propertyValueExpression string) {
	expression := protocol.PreparePropertyValueExpression(propertyValueExpression)
	c.sendWithCallback(sessionId, constants.MethodDebuggerEvaluateOnCallFrame,
		protocol.EvaluateOnCallFrameParams(callFrame.Id, expression),
		c.setPropertyCallback(sessionId, remoteObjectId, propertyName))
}

// setPropertyCallback 先计算表达式，再通过callFunctionOn把结果赋值给属性
func (c *ChromeApi) setPropertyCallback(sessionId string, remoteObjectId debugger.RemoteObjectId,
	propertyName string) callback {
	return func(response *protocol.ExtensionResponse) {
		evaluation := protocol.ParseOnEvaluateExpression(response.Request, response.Result)
		if response.IsError() || evaluation == nil || evaluation.WasThrown || evaluation.Result == nil {
			// 不知道属性的值，只能通知失败
			c.dispatchPropertyChanged(sessionId, debugger.NewEditPropertyResponse(remoteObjectId, propertyName, nil, true))
			return
		}
		value := evaluation.Result
		params, ok := protocol.SetPropertyParams(remoteObjectId, propertyName, value)
		if !ok {
			c.dispatchPropertyChanged(sessionId, debugger.NewEditPropertyResponse(remoteObjectId, propertyName, nil, true))
			return
		}
		c.sendWithCallback(sessionId, constants.MethodRuntimeCallFunctionOn, params,
			func(response *protocol.ExtensionResponse) {
				newValue := protocol.ParseCallFunctionOnResult(response.Result)
				isError := response.IsError() || newValue == nil || !debugger.EqualRemoteObjects(value, newValue)
				c.dispatchPropertyChanged(sessionId,
					debugger.NewEditPropertyResponse(remoteObjectId, propertyName, newValue, isError))
			})
	}
}

func (c *ChromeApi) RemoveRemoteObjectProperty(sessionId string, remoteObjectId debugger.RemoteObjectId,
	propertyName string) {
	c.sendWithCallback(sessionId, constants.MethodRuntimeCallFunctionOn,
		protocol.RemovePropertyParams(remoteObjectId, propertyName),
		func(response *protocol.ExtensionResponse) {
			isError := response.IsError() || !debugger.CastToBoolean(protocol.ParseCallFunctionOnResult(response.Result))
			c.dispatchPropertyChanged(sessionId, debugger.NewRemovePropertyResponse(remoteObjectId, propertyName, isError))
		})
}

func (c *ChromeApi) RenameRemoteObjectProperty(sessionId string, remoteObjectId debugger.RemoteObjectId,
	oldName string, newName string) {
	c.sendWithCallback(sessionId, constants.MethodRuntimeCallFunctionOn,
		protocol.RenamePropertyParams(remoteObjectId, oldName, newName),
		func(response *protocol.ExtensionResponse) {
			isError := response.IsError() || !debugger.CastToBoolean(protocol.ParseCallFunctionOnResult(response.Result))
			c.dispatchPropertyChanged(sessionId,
				debugger.NewRenamePropertyResponse(remoteObjectId, oldName, newName, isError))
		})
}

func (c *ChromeApi) EvaluateExpression(sessionId string, expression string) {
	c.send(sessionId, constants.MethodRuntimeEvaluate, protocol.EvaluateParams(expression))
}

func (c *ChromeApi) EvaluateExpressionOnCallFrame(sessionId string, callFrame *debugger.CallFrame, expression string) {
	c.send(sessionId, constants.MethodDebuggerEvaluateOnCallFrame,
		protocol.EvaluateOnCallFrameParams(callFrame.Id, expression))
}

func (c *ChromeApi) RequestAllCssStyleSheets(sessionId string) {
	c.send(sessionId, constants.MethodCssGetAllStyleSheets, "")
}

func (c *ChromeApi) SetStyleSheetText(sessionId string, styleSheetId string, text string) {
	c.send(sessionId, constants.MethodCssSetStyleSheetText, protocol.SetStyleSheetTextParams(styleSheetId, text))
}

// SendCustomMessage 响应中的id会被替换为message中的id
func (c *ChromeApi) SendCustomMessage(sessionId string, message string) {
	customMessage, err := protocol.ParseCustomMessage(message)
	if err != nil {
		logrus.Warnf("[SendCustomMessage] %s, err = %v", message, err)
		return
	}
	if c.customMessageIds[sessionId] == nil {
		c.customMessageIds[sessionId] = map[int]int{}
	}
	c.customMessageIds[sessionId][c.lastUsedId+1] = customMessage.Id
	c.send(sessionId, customMessage.Method, customMessage.Params)
}

func (c *ChromeApi) AddDebuggerResponseListener(listener debugger.DebuggerResponseListener) {
	c.listenersLock.Lock()
	defer c.listenersLock.Unlock()
	c.listeners = append(c.listeners, listener)
}

func (c *ChromeApi) RemoveDebuggerResponseListener(listener debugger.DebuggerResponseListener) {
	c.listenersLock.Lock()
	defer c.listenersLock.Unlock()
	for i, l := range c.listeners {
		if l == listener {
			c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
			return
		}
	}
}
