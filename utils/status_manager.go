package utils

import (
	"sync"

	"github.com/fansqz/js-debugger/constants"
)

// StatusManager 记录调试会话的状态
// 会话状态只在事件循环中修改，但是DAP等其他协程会读取
type StatusManager struct {
	lock   sync.RWMutex
	status constants.SessionState
}

func NewStatusManager() *StatusManager {
	return &StatusManager{
		status: constants.Inactive,
	}
}

// Set 设置状态，返回状态是否发生了变化
func (s *StatusManager) Set(status constants.SessionState) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	changed := s.status != status
	s.status = status
	return changed
}

func (s *StatusManager) Get() constants.SessionState {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.status
}

func (s *StatusManager) Is(statusList ...constants.SessionState) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	for _, status := range statusList {
		if s.status == status {
			return true
		}
	}
	return false
}
