package scheduler

import "sync"

// Executor 合并多次调度，在一次执行之前重复调度只会执行一次
type Executor struct {
	loop       *Loop
	cmd        func()
	lock       sync.Mutex
	scheduled  bool
	generation uint64
}

func NewExecutor(loop *Loop, cmd func()) *Executor {
	return &Executor{
		loop: loop,
		cmd:  cmd,
	}
}

// ScheduleFinally 在当前任务结束后执行
func (e *Executor) ScheduleFinally() {
	e.schedule(e.loop.Finally)
}

// ScheduleDeferred 作为新的任务在之后执行
func (e *Executor) ScheduleDeferred() {
	e.schedule(e.loop.Post)
}

func (e *Executor) schedule(submit func(Task)) {
	e.lock.Lock()
	if e.scheduled {
		e.lock.Unlock()
		return
	}
	e.scheduled = true
	e.generation++
	generation := e.generation
	e.lock.Unlock()

	submit(func() {
		e.lock.Lock()
		if !e.scheduled || e.generation != generation {
			e.lock.Unlock()
			return
		}
		e.scheduled = false
		e.lock.Unlock()
		e.cmd()
	})
}

// Cancel 取消已经调度但还没有执行的命令
func (e *Executor) Cancel() {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.scheduled = false
	e.generation++
}

func (e *Executor) IsScheduled() bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.scheduled
}
