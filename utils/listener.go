package utils

import "sync"

type listenerEntry[E any] struct {
	id int
	fn func(E)
}

// ListenerManager 监听者列表，通知时遍历列表的副本，
// 监听者可以在回调中添加或移除监听者
type ListenerManager[E any] struct {
	lock      sync.Mutex
	nextId    int
	listeners []listenerEntry[E]
}

func NewListenerManager[E any]() *ListenerManager[E] {
	return &ListenerManager[E]{}
}

// Add 添加监听者，返回移除函数
func (m *ListenerManager[E]) Add(fn func(E)) (remove func()) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.nextId++
	id := m.nextId
	m.listeners = append(m.listeners, listenerEntry[E]{id: id, fn: fn})
	return func() {
		m.lock.Lock()
		defer m.lock.Unlock()
		for i, entry := range m.listeners {
			if entry.id == id {
				m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

func (m *ListenerManager[E]) Dispatch(event E) {
	m.lock.Lock()
	listeners := make([]listenerEntry[E], len(m.listeners))
	copy(listeners, m.listeners)
	m.lock.Unlock()
	for _, entry := range listeners {
		entry.fn(event)
	}
}

func (m *ListenerManager[E]) Len() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.listeners)
}

func (m *ListenerManager[E]) Clear() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.listeners = nil
}
