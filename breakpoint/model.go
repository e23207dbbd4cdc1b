// Package breakpoint 断点模型，以及断点与文档、调试会话之间的同步
package breakpoint

import (
	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/fansqz/js-debugger/constants"
	"github.com/fansqz/js-debugger/debugger"
	"github.com/sirupsen/logrus"
)

// ModelListener 断点模型的变化
type ModelListener interface {
	OnBreakpointAdded(breakpoint debugger.Breakpoint)
	OnBreakpointRemoved(breakpoint debugger.Breakpoint)
	OnBreakpointReplaced(oldBreakpoint debugger.Breakpoint, newBreakpoint debugger.Breakpoint)
	OnPauseOnExceptionsModeUpdated(oldMode constants.PauseOnExceptionsMode, newMode constants.PauseOnExceptionsMode)
	OnBreakpointsEnabledUpdated(enabled bool)
}

// Model 用户设置的所有断点，与调试器是否运行无关
type Model struct {
	breakpoints           *linkedhashset.Set
	pauseOnExceptionsMode constants.PauseOnExceptionsMode
	breakpointsEnabled    bool
	listeners             []ModelListener
}

func NewModel() *Model {
	return &Model{
		breakpoints:           linkedhashset.New(),
		pauseOnExceptionsMode: constants.PauseOnExceptionsNone,
		breakpointsEnabled:    true,
	}
}

// AddListener 返回移除函数
func (m *Model) AddListener(listener ModelListener) (remove func()) {
	m.listeners = append(m.listeners, listener)
	return func() {
		for i, l := range m.listeners {
			if l == listener {
				m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

func (m *Model) AddBreakpoint(breakpoint debugger.Breakpoint) {
	logrus.Debugf("[Model] add %s", breakpoint)
	if m.breakpoints.Contains(breakpoint) {
		return
	}
	m.breakpoints.Add(breakpoint)
	m.dispatch(func(l ModelListener) { l.OnBreakpointAdded(breakpoint) })
}

func (m *Model) RemoveBreakpoint(breakpoint debugger.Breakpoint) {
	logrus.Debugf("[Model] remove %s", breakpoint)
	if !m.breakpoints.Contains(breakpoint) {
		return
	}
	m.breakpoints.Remove(breakpoint)
	m.dispatch(func(l ModelListener) { l.OnBreakpointRemoved(breakpoint) })
}

// UpdateBreakpoint 用新断点替换旧断点，新断点已经存在时只删除旧断点
func (m *Model) UpdateBreakpoint(oldBreakpoint debugger.Breakpoint, newBreakpoint debugger.Breakpoint) {
	logrus.Debugf("[Model] update %s to %s", oldBreakpoint, newBreakpoint)
	if oldBreakpoint == newBreakpoint || !m.breakpoints.Contains(oldBreakpoint) {
		return
	}
	if m.breakpoints.Contains(newBreakpoint) {
		m.RemoveBreakpoint(oldBreakpoint)
		return
	}
	m.breakpoints.Remove(oldBreakpoint)
	m.breakpoints.Add(newBreakpoint)
	m.dispatch(func(l ModelListener) { l.OnBreakpointReplaced(oldBreakpoint, newBreakpoint) })
}

func (m *Model) SetPauseOnExceptionsMode(mode constants.PauseOnExceptionsMode) {
	if m.pauseOnExceptionsMode == mode {
		return
	}
	oldMode := m.pauseOnExceptionsMode
	m.pauseOnExceptionsMode = mode
	m.dispatch(func(l ModelListener) { l.OnPauseOnExceptionsModeUpdated(oldMode, mode) })
}

func (m *Model) SetBreakpointsEnabled(enabled bool) {
	if m.breakpointsEnabled == enabled {
		return
	}
	m.breakpointsEnabled = enabled
	m.dispatch(func(l ModelListener) { l.OnBreakpointsEnabledUpdated(enabled) })
}

// Breakpoints 按添加顺序返回断点的副本
func (m *Model) Breakpoints() []debugger.Breakpoint {
	answer := make([]debugger.Breakpoint, 0, m.breakpoints.Size())
	for _, value := range m.breakpoints.Values() {
		answer = append(answer, value.(debugger.Breakpoint))
	}
	return answer
}

// BreakpointsOf 指定文件中的断点
func (m *Model) BreakpointsOf(path string) []debugger.Breakpoint {
	var answer []debugger.Breakpoint
	for _, breakpoint := range m.Breakpoints() {
		if breakpoint.Path == path {
			answer = append(answer, breakpoint)
		}
	}
	return answer
}

func (m *Model) BreakpointCount() int {
	return m.breakpoints.Size()
}

func (m *Model) Contains(breakpoint debugger.Breakpoint) bool {
	return m.breakpoints.Contains(breakpoint)
}

func (m *Model) PauseOnExceptionsMode() constants.PauseOnExceptionsMode {
	return m.pauseOnExceptionsMode
}

func (m *Model) IsBreakpointsEnabled() bool {
	return m.breakpointsEnabled
}

func (m *Model) dispatch(fn func(l ModelListener)) {
	listeners := make([]ModelListener, len(m.listeners))
	copy(listeners, m.listeners)
	for _, l := range listeners {
		fn(l)
	}
}
