// Package protocol 调试扩展的消息格式
//
// 请求: {"id": 1, "target": "sessionId", "method": "Debugger.pause", "params": {...}}
// 响应: {"id": 1, "target": "sessionId", "method": "...", "request": {...}, "result": {...}, "error": "..."}
package protocol

import (
	"strings"

	"github.com/fansqz/js-debugger/constants"
	"github.com/fansqz/js-debugger/debugger"
	"github.com/tidwall/sjson"
)

// 通过Runtime.callFunctionOn在远程对象上执行的函数
const (
	setPropertyFunction    = "function(a, b) { this[a] = b; return this[a]; }"
	removePropertyFunction = "function(a) { delete this[a]; return !(a in this); }"
	renamePropertyFunction = "function(a, b) {" +
		"  if (a === b) return true;" +
		"  this[b] = this[a];" +
		"  if (this[b] !== this[a]) return false;" +
		"  delete this[a];" +
		"  return !(a in this);" +
		"}"
)

// NewRequest 构造发给调试扩展的消息，params为空时省略params字段
func NewRequest(id int, target string, method string, params string) ([]byte, error) {
	data, err := sjson.SetBytes([]byte("{}"), "id", id)
	if err != nil {
		return nil, err
	}
	if data, err = sjson.SetBytes(data, "target", target); err != nil {
		return nil, err
	}
	if data, err = sjson.SetBytes(data, "method", method); err != nil {
		return nil, err
	}
	if params != "" {
		if data, err = sjson.SetRawBytes(data, "params", []byte(params)); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// params 依次设置字段，出错的字段被跳过
func params(pairs ...interface{}) string {
	answer := "{}"
	for i := 0; i+1 < len(pairs); i += 2 {
		key, _ := pairs[i].(string)
		if next, err := sjson.Set(answer, key, pairs[i+1]); err == nil {
			answer = next
		}
	}
	return answer
}

func RunDebuggerParams(url string) string {
	return params("url", url)
}

// SetBreakpointByUrlParams Url为空时使用urlRegex
func SetBreakpointByUrlParams(info *debugger.BreakpointInfo) string {
	var answer string
	if info.Url != "" {
		answer = params("url", info.Url)
	} else {
		answer = params("urlRegex", info.UrlRegex)
	}
	answer, _ = sjson.Set(answer, "lineNumber", info.LineNumber)
	answer, _ = sjson.Set(answer, "columnNumber", info.ColumnNumber)
	answer, _ = sjson.Set(answer, "condition", info.Condition)
	return answer
}

func RemoveBreakpointParams(breakpointId string) string {
	return params("breakpointId", breakpointId)
}

func SetBreakpointsActiveParams(active bool) string {
	return params("active", active)
}

func SetPauseOnExceptionsParams(mode constants.PauseOnExceptionsMode) string {
	return params("state", strings.ToLower(string(mode)))
}

func GetPropertiesParams(objectId debugger.RemoteObjectId) string {
	return params("objectId", string(objectId), "ownProperties", true)
}

func EvaluateParams(expression string) string {
	return params("expression", expression, "doNotPauseOnExceptions", true)
}

func EvaluateOnCallFrameParams(callFrameId string, expression string) string {
	return params("expression", expression, "callFrameId", callFrameId)
}

func SetStyleSheetTextParams(styleSheetId string, text string) string {
	return params("styleSheetId", styleSheetId, "text", text)
}

// PreparePropertyValueExpression 对象字面量需要加上括号，否则会被当作代码块
func PreparePropertyValueExpression(expression string) string {
	trimmed := strings.TrimSpace(expression)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return "(" + expression + ")"
	}
	return expression
}

func callFunctionOnParams(function string, objectId debugger.RemoteObjectId, arguments ...string) string {
	answer := params("functionDeclaration", function, "objectId", string(objectId))
	answer, _ = sjson.SetRaw(answer, "arguments", "["+strings.Join(arguments, ",")+"]")
	return answer
}

func valueArgument(value interface{}) string {
	return params("value", value)
}

// SetPropertyParams 把表达式的计算结果value赋值给属性
// value既不是对象也不能表示为json值时返回false
func SetPropertyParams(objectId debugger.RemoteObjectId, propertyName string, value *debugger.RemoteObject) (string, bool) {
	if debugger.IsNonFiniteNumber(value) {
		// NaN和Infinity不能出现在json中
		function := "function(a) {" +
			"  this[a] = " + value.Description + ";" +
			"  return this[a];" +
			"}"
		return callFunctionOnParams(function, objectId, valueArgument(propertyName)), true
	}
	if value == nil {
		return "", false
	}
	var argument string
	if value.ObjectId != "" {
		argument = params("objectId", string(value.ObjectId))
	} else {
		primitive, undefined, ok := debugger.PrimitiveValue(value)
		if !ok {
			return "", false
		}
		argument = "{}"
		if !undefined {
			argument = valueArgument(primitive)
		}
	}
	return callFunctionOnParams(setPropertyFunction, objectId, valueArgument(propertyName), argument), true
}

func RemovePropertyParams(objectId debugger.RemoteObjectId, propertyName string) string {
	return callFunctionOnParams(removePropertyFunction, objectId, valueArgument(propertyName))
}

func RenamePropertyParams(objectId debugger.RemoteObjectId, oldName string, newName string) string {
	return callFunctionOnParams(renamePropertyFunction, objectId, valueArgument(oldName), valueArgument(newName))
}
