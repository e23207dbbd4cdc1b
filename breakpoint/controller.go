package breakpoint

import (
	"github.com/fansqz/js-debugger/constants"
	"github.com/fansqz/js-debugger/debugger"
	"github.com/fansqz/js-debugger/document"
	"github.com/fansqz/js-debugger/session"
	"github.com/fansqz/js-debugger/utils/scheduler"
	"github.com/sirupsen/logrus"
)

// Controller 把断点模型同步到当前打开的文档和调试会话
type Controller struct {
	model        *Model
	session      *session.Session
	loop         *scheduler.Loop
	path         string
	breakpoints  *AnchoredBreakpoints
	descriptions map[debugger.Breakpoint]string

	removeModelListener func()
	removeStateListener func()
}

var _ ModelListener = (*Controller)(nil)

func NewController(model *Model, s *session.Session, loop *scheduler.Loop) *Controller {
	c := &Controller{
		model:        model,
		session:      s,
		loop:         loop,
		descriptions: map[debugger.Breakpoint]string{},
	}
	c.removeModelListener = model.AddListener(c)
	// 每次暂停都选中最上层的栈帧
	c.removeStateListener = s.StateEvents.Add(func(session.StateEvent) {
		c.SelectCallFrame(0)
	})
	return c
}

func (c *Controller) Model() *Model {
	return c.model
}

func (c *Controller) Session() *session.Session {
	return c.session
}

// Path 当前文档的路径
func (c *Controller) Path() string {
	return c.path
}

// SetDocument 切换当前文档，在新文档中固定该文档的所有断点
func (c *Controller) SetDocument(doc *document.Document) {
	if c.breakpoints != nil {
		c.breakpoints.Teardown()
	}
	c.path = doc.Path()
	c.breakpoints = NewAnchoredBreakpoints(c.model, doc, c.loop)
	for _, breakpoint := range c.model.BreakpointsOf(c.path) {
		c.anchorBreakpoint(breakpoint)
	}
	c.breakpoints.SetDescriptionListener(c.onDescriptionChange)
}

// AnchoredBreakpoints 当前文档中的断点，没有打开文档时返回nil
func (c *Controller) AnchoredBreakpoints() *AnchoredBreakpoints {
	return c.breakpoints
}

// BreakpointDescription 断点所在行的文本
func (c *Controller) BreakpointDescription(breakpoint debugger.Breakpoint) string {
	return c.descriptions[breakpoint]
}

// ToggleBreakpoint 当前文档的lineNumber行有断点时删除，否则添加断点
func (c *Controller) ToggleBreakpoint(lineNumber int) {
	if c.breakpoints != nil {
		for i := 0; i < c.breakpoints.Size(); i++ {
			breakpoint := c.breakpoints.Get(i)
			if breakpoint.LineNumber == lineNumber {
				c.model.RemoveBreakpoint(breakpoint)
				return
			}
		}
	}
	if c.path == "" || !constants.IsDebuggableFile(c.path) {
		return
	}
	c.model.AddBreakpoint(debugger.NewBreakpoint(c.path, lineNumber))
}

// ToggleBreakpointActive 启用或者禁用单个断点
func (c *Controller) ToggleBreakpointActive(breakpoint debugger.Breakpoint) {
	c.model.UpdateBreakpoint(breakpoint, breakpoint.WithActive(!breakpoint.Active))
}

// RunApplication 调试器可用时运行页面并提交所有断点
func (c *Controller) RunApplication(sourceMapping debugger.SourceMapping, url string) bool {
	if !c.session.IsDebuggerAvailable() {
		logrus.Warnf("[RunApplication] debugger is not available, install %s", c.session.GetDebuggingExtensionUrl())
		return false
	}
	c.session.RunDebugger(sourceMapping, url)
	for _, breakpoint := range c.model.Breakpoints() {
		c.session.SetBreakpoint(breakpoint)
	}
	c.session.SetBreakpointsEnabled(c.model.IsBreakpointsEnabled())
	if mode := c.model.PauseOnExceptionsMode(); mode != constants.PauseOnExceptionsNone {
		c.session.SetPauseOnExceptions(mode)
	}
	return true
}

// SelectCallFrame 选中调用栈中的栈帧
func (c *Controller) SelectCallFrame(depth int) {
	c.session.SetActiveCallFrameIndex(depth)
}

// ExecutionLine 当前栈帧在当前文档中的执行行，不在当前文档中时返回-1
func (c *Controller) ExecutionLine() int {
	if c.path == "" || c.session.GetActiveCallFramePath() != c.path {
		return -1
	}
	return c.session.GetActiveCallFrameExecutionLineNumber()
}

// Cleanup 关闭被调试的页面并停止同步
func (c *Controller) Cleanup() {
	c.session.Shutdown()
	if c.breakpoints != nil {
		c.breakpoints.Teardown()
		c.breakpoints = nil
	}
	c.removeModelListener()
	c.removeStateListener()
}

func (c *Controller) shouldProcess(breakpoint debugger.Breakpoint) bool {
	return c.breakpoints != nil && c.path == breakpoint.Path
}

func (c *Controller) anchorBreakpoint(breakpoint debugger.Breakpoint) {
	if anchor := c.breakpoints.AnchorBreakpoint(breakpoint); anchor != nil {
		c.descriptions[breakpoint] = anchor.Line()
	}
}

func (c *Controller) onDescriptionChange(breakpoint debugger.Breakpoint, text string) {
	if c.model.Contains(breakpoint) {
		c.descriptions[breakpoint] = text
	}
}

func (c *Controller) OnBreakpointAdded(breakpoint debugger.Breakpoint) {
	if c.shouldProcess(breakpoint) && !c.breakpoints.Contains(breakpoint) {
		c.anchorBreakpoint(breakpoint)
	}
	c.session.SetBreakpoint(breakpoint)
}

func (c *Controller) OnBreakpointRemoved(breakpoint debugger.Breakpoint) {
	if c.shouldProcess(breakpoint) && c.breakpoints.Contains(breakpoint) {
		c.breakpoints.RemoveBreakpoint(breakpoint)
	}
	delete(c.descriptions, breakpoint)
	c.session.RemoveBreakpoint(breakpoint)
}

func (c *Controller) OnBreakpointReplaced(oldBreakpoint debugger.Breakpoint, newBreakpoint debugger.Breakpoint) {
	description, ok := c.descriptions[oldBreakpoint]
	c.OnBreakpointRemoved(oldBreakpoint)
	c.OnBreakpointAdded(newBreakpoint)
	// 断点不在当前文档中时沿用原来的描述
	if _, anchored := c.descriptions[newBreakpoint]; ok && !anchored {
		c.descriptions[newBreakpoint] = description
	}
}

func (c *Controller) OnPauseOnExceptionsModeUpdated(oldMode constants.PauseOnExceptionsMode,
	newMode constants.PauseOnExceptionsMode) {
	c.session.SetPauseOnExceptions(newMode)
}

func (c *Controller) OnBreakpointsEnabledUpdated(enabled bool) {
	c.session.SetBreakpointsEnabled(enabled)
}
