package utils

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func GetUUID() string {
	u1, err := uuid.NewUUID()
	if err != nil {
		logrus.Errorf("[GetUUID] fail, err = %v", err)
		return uuid.NewString()
	}
	return u1.String()
}

// NewSessionID 调试会话id，由uuid和创建时间组成，
// 同一个页面重新运行时会得到不同的id，旧会话的迟到消息因此可以被过滤
func NewSessionID() string {
	return GetUUID() + ":" + strconv.FormatInt(time.Now().UnixMilli(), 10)
}
