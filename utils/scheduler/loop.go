// Package scheduler 单线程的事件循环
//
// 会话、断点和远程对象树都只在事件循环中被修改，
// 其他协程（传输层的读协程、DAP请求处理协程）通过Post把工作提交到循环中
package scheduler

import (
	"context"
	"sync"
)

type Task func()

// Loop 事件循环
//
// Post提交的任务按顺序执行，Finally提交的任务在当前任务结束之后、下一个任务开始之前执行
type Loop struct {
	lock    sync.Mutex
	tasks   []Task
	finally []Task
	wake    chan struct{}
}

func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
	}
}

// Post 提交一个任务，可以在任意协程中调用
func (l *Loop) Post(task Task) {
	l.lock.Lock()
	l.tasks = append(l.tasks, task)
	l.lock.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Finally 提交一个在当前任务结束后立即执行的任务
func (l *Loop) Finally(task Task) {
	l.lock.Lock()
	l.finally = append(l.finally, task)
	l.lock.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) popFinally() Task {
	l.lock.Lock()
	defer l.lock.Unlock()
	if len(l.finally) == 0 {
		return nil
	}
	task := l.finally[0]
	l.finally = l.finally[1:]
	return task
}

func (l *Loop) popTask() Task {
	l.lock.Lock()
	defer l.lock.Unlock()
	if len(l.tasks) == 0 {
		return nil
	}
	task := l.tasks[0]
	l.tasks = l.tasks[1:]
	return task
}

func (l *Loop) runFinally() {
	for task := l.popFinally(); task != nil; task = l.popFinally() {
		task()
	}
}

// Flush 在调用者的协程中执行所有待执行的任务，直到队列为空
func (l *Loop) Flush() {
	l.runFinally()
	for task := l.popTask(); task != nil; task = l.popTask() {
		task()
		l.runFinally()
	}
}

// Pending 待执行的任务数量
func (l *Loop) Pending() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return len(l.tasks) + len(l.finally)
}

// Run 执行事件循环直到ctx结束
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Flush()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Invoke 在事件循环中执行fn并等待其完成
// 不能在事件循环中调用，否则会一直等到ctx结束
func (l *Loop) Invoke(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
