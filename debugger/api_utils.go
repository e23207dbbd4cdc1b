package debugger

import (
	"strconv"

	"github.com/fansqz/js-debugger/constants"
)

// CastToBoolean 按照js的规则把远程对象转换为bool
func CastToBoolean(remoteObject *RemoteObject) bool {
	if remoteObject == nil || remoteObject.Type == "" {
		return false
	}
	switch remoteObject.Type {
	case constants.TypeBoolean:
		return remoteObject.Description == "true"
	case constants.TypeFunction:
		return true
	case constants.TypeNumber:
		if IsNonFiniteNumber(remoteObject) {
			return remoteObject.Description != "NaN"
		}
		if remoteObject.Description == "" {
			return false
		}
		value, err := strconv.ParseFloat(remoteObject.Description, 64)
		return err == nil && value != 0
	case constants.TypeObject:
		return remoteObject.SubType != constants.SubTypeNull
	case constants.TypeString:
		return remoteObject.Description != ""
	default:
		return false
	}
}

// IsNonFiniteNumber NaN、Infinity、-Infinity
func IsNonFiniteNumber(remoteObject *RemoteObject) bool {
	if remoteObject == nil || remoteObject.Type != constants.TypeNumber {
		return false
	}
	switch remoteObject.Description {
	case "NaN", "Infinity", "-Infinity":
		return true
	}
	return false
}

// EqualRemoteObjects 比较两个远程对象，两者都为nil时相等
func EqualRemoteObjects(a, b *RemoteObject) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// NewStringRemoteObject 创建一个字符串类型的远程对象
func NewStringRemoteObject(value string) *RemoteObject {
	return &RemoteObject{
		Type:        constants.TypeString,
		Description: value,
	}
}

// PrimitiveValue 原始类型的远程对象对应的json值
// undefined为true时表示值为undefined，需要省略value字段
func PrimitiveValue(remoteObject *RemoteObject) (value interface{}, undefined bool, ok bool) {
	if remoteObject == nil || remoteObject.Type == "" {
		return nil, false, false
	}
	switch remoteObject.Type {
	case constants.TypeBoolean:
		return remoteObject.Description == "true", false, true
	case constants.TypeNumber:
		if IsNonFiniteNumber(remoteObject) {
			return nil, false, false
		}
		number, err := strconv.ParseFloat(remoteObject.Description, 64)
		if err != nil {
			return nil, false, false
		}
		return number, false, true
	case constants.TypeObject:
		if remoteObject.SubType == constants.SubTypeNull {
			return nil, false, true
		}
		return nil, false, false
	case constants.TypeString:
		return remoteObject.Description, false, true
	case constants.TypeUndefined:
		return nil, true, true
	default:
		return nil, false, false
	}
}
