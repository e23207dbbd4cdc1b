package utils

import (
	"context"
	"sync"
	"time"

	"github.com/fansqz/js-debugger/utils/gosync"
	"github.com/sirupsen/logrus"
)

// TimeoutManager 一个计时器
// 如果在timeout时间内没有执行Reset，就会执行fun函数，执行之后计时器停止
type TimeoutManager struct {
	lock          sync.Mutex
	timer         *time.Timer
	timeout       time.Duration
	resetChannel  chan struct{}
	cancelChannel chan struct{}
	doneChannel   chan struct{}
	fun           func()
}

// NewTimeoutManager 创建一个新的计时器实例
func NewTimeoutManager() *TimeoutManager {
	return &TimeoutManager{}
}

// Start 开始计时
// 在timeout时间内没有执行reset命令，就会执行fun函数
func (t *TimeoutManager) Start(ctx context.Context, timeout time.Duration, fun func()) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.timer = time.NewTimer(timeout)
	t.timeout = timeout
	t.fun = fun
	t.resetChannel = make(chan struct{})
	t.cancelChannel = make(chan struct{})
	t.doneChannel = make(chan struct{})
	timer, resetChannel, cancelChannel, doneChannel := t.timer, t.resetChannel, t.cancelChannel, t.doneChannel
	gosync.Go(ctx, func(ctx context.Context) {
		defer close(doneChannel)
		for {
			select {
			case <-timer.C:
				logrus.Infof("[TimeoutManager] timer expired, performing action")
				fun()
				return
			case <-resetChannel:
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(timeout)
			case <-cancelChannel:
				logrus.Debugf("[TimeoutManager] cancel")
				timer.Stop()
				return
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	})
}

// Reset 重置计时器，计时器已经结束时什么也不做
func (t *TimeoutManager) Reset() {
	t.lock.Lock()
	resetChannel, doneChannel := t.resetChannel, t.doneChannel
	t.lock.Unlock()
	if resetChannel == nil {
		return
	}
	select {
	case resetChannel <- struct{}{}:
	case <-doneChannel:
	}
}

// Cancel 取消计时，等待计时协程退出
func (t *TimeoutManager) Cancel() {
	t.lock.Lock()
	cancelChannel, doneChannel := t.cancelChannel, t.doneChannel
	t.lock.Unlock()
	if cancelChannel == nil {
		return
	}
	select {
	case cancelChannel <- struct{}{}:
		<-doneChannel
	case <-doneChannel:
	}
}
