package protocol

import (
	"strings"

	"github.com/fansqz/js-debugger/constants"
	"github.com/fansqz/js-debugger/debugger"
	"github.com/tidwall/gjson"
)

// 解析调试扩展的事件和响应
// result或者request不是json对象时返回nil，数组中格式错误的元素会被跳过

func isObject(json gjson.Result) bool {
	return json.Exists() && json.IsObject()
}

func ParseOnPaused(result gjson.Result) *debugger.OnPaused {
	if !isObject(result) {
		return nil
	}
	answer := &debugger.OnPaused{}
	for _, item := range result.Get("callFrames").Array() {
		if callFrame := parseCallFrame(item); callFrame != nil {
			answer.CallFrames = append(answer.CallFrames, callFrame)
		}
	}
	return answer
}

// ParseOnBreakpointResolved 同时处理Debugger.setBreakpointByUrl的响应和Debugger.breakpointResolved事件
func ParseOnBreakpointResolved(request gjson.Result, result gjson.Result) *debugger.OnBreakpointResolved {
	if !isObject(result) {
		return nil
	}
	answer := &debugger.OnBreakpointResolved{
		BreakpointId:   result.Get("breakpointId").String(),
		BreakpointInfo: parseBreakpointInfo(request),
	}
	// Debugger.breakpointResolved
	if location := parseLocation(result.Get("location")); location != nil {
		answer.Locations = append(answer.Locations, *location)
	}
	// Debugger.setBreakpointByUrl
	for _, item := range result.Get("locations").Array() {
		if location := parseLocation(item); location != nil {
			answer.Locations = append(answer.Locations, *location)
		}
	}
	return answer
}

// ParseOnRemoveBreakpoint 被移除断点的id，请求格式错误时返回空字符串
func ParseOnRemoveBreakpoint(request gjson.Result) string {
	if !isObject(request) {
		return ""
	}
	return request.Get("breakpointId").String()
}

func ParseOnScriptParsed(result gjson.Result) *debugger.OnScriptParsed {
	if !isObject(result) {
		return nil
	}
	return &debugger.OnScriptParsed{
		ScriptId:        result.Get("scriptId").String(),
		Url:             result.Get("url").String(),
		StartLine:       int(result.Get("startLine").Int()),
		StartColumn:     int(result.Get("startColumn").Int()),
		EndLine:         int(result.Get("endLine").Int()),
		EndColumn:       int(result.Get("endColumn").Int()),
		IsContentScript: result.Get("isContentScript").Bool(),
	}
}

// ParseOnRemoteObjectProperties 对象的id来自请求
func ParseOnRemoteObjectProperties(request gjson.Result, result gjson.Result) *debugger.OnRemoteObjectPropertiesResponse {
	if !isObject(request) || !isObject(result) {
		return nil
	}
	answer := &debugger.OnRemoteObjectPropertiesResponse{
		ObjectId: debugger.RemoteObjectId(request.Get("objectId").String()),
	}
	for _, item := range result.Get("result").Array() {
		if property := parsePropertyDescriptor(item); property != nil {
			answer.Properties = append(answer.Properties, property)
		}
	}
	return answer
}

// ParseOnEvaluateExpression 表达式和栈帧id来自请求
func ParseOnEvaluateExpression(request gjson.Result, result gjson.Result) *debugger.OnEvaluateExpressionResponse {
	if !isObject(request) || !isObject(result) {
		return nil
	}
	return &debugger.OnEvaluateExpressionResponse{
		Expression:  request.Get("expression").String(),
		CallFrameId: request.Get("callFrameId").String(),
		Result:      ParseRemoteObject(result.Get("result")),
		WasThrown:   result.Get("wasThrown").Bool(),
	}
}

// ParseOnEvaluateExpressionError 计算请求失败时用错误信息作为抛出的异常
func ParseOnEvaluateExpressionError(request gjson.Result, message string) *debugger.OnEvaluateExpressionResponse {
	if !isObject(request) || !request.Get("expression").Exists() {
		return nil
	}
	return &debugger.OnEvaluateExpressionResponse{
		Expression:  request.Get("expression").String(),
		CallFrameId: request.Get("callFrameId").String(),
		Result:      debugger.NewStringRemoteObject(message),
		WasThrown:   true,
	}
}

// ParseOnRemoteObjectPropertiesError 获取属性失败时按照没有属性处理
func ParseOnRemoteObjectPropertiesError(request gjson.Result) *debugger.OnRemoteObjectPropertiesResponse {
	objectId := request.Get("objectId").String()
	if !isObject(request) || objectId == "" {
		return nil
	}
	return &debugger.OnRemoteObjectPropertiesResponse{ObjectId: debugger.RemoteObjectId(objectId)}
}

func ParseOnAllCssStyleSheets(result gjson.Result) *debugger.OnAllCssStyleSheets {
	if !isObject(result) {
		return nil
	}
	answer := &debugger.OnAllCssStyleSheets{}
	for _, item := range result.Get("headers").Array() {
		if !isObject(item) {
			continue
		}
		answer.Headers = append(answer.Headers, &debugger.CssStyleSheetHeader{
			Id:       item.Get("styleSheetId").String(),
			Url:      item.Get("sourceURL").String(),
			Title:    item.Get("title").String(),
			Disabled: item.Get("disabled").Bool(),
		})
	}
	return answer
}

// ParseCallFunctionOnResult Runtime.callFunctionOn的返回值
func ParseCallFunctionOnResult(result gjson.Result) *debugger.RemoteObject {
	if !isObject(result) {
		return nil
	}
	return ParseRemoteObject(result.Get("result"))
}

func ParseOnConsoleMessage(result gjson.Result) *debugger.ConsoleMessage {
	if !isObject(result) {
		return nil
	}
	message := result.Get("message")
	if !isObject(message) {
		return nil
	}
	answer := &debugger.ConsoleMessage{
		Level:       constants.ConsoleMessageLevel(strings.ToLower(message.Get("level").String())),
		Type:        constants.ConsoleMessageType(message.Get("type").String()),
		Text:        message.Get("text").String(),
		Url:         message.Get("url").String(),
		LineNumber:  -1,
		RepeatCount: 1,
	}
	if line := message.Get("line"); line.Exists() {
		answer.LineNumber = int(line.Int())
	}
	if repeatCount := message.Get("repeatCount"); repeatCount.Exists() {
		answer.RepeatCount = int(repeatCount.Int())
	}
	for _, item := range message.Get("parameters").Array() {
		if parameter := ParseRemoteObject(item); parameter != nil {
			answer.Parameters = append(answer.Parameters, parameter)
		}
	}
	for _, item := range message.Get("stackTrace").Array() {
		if !isObject(item) {
			continue
		}
		answer.StackTrace = append(answer.StackTrace, &debugger.StackTraceItem{
			FunctionName: item.Get("functionName").String(),
			Url:          item.Get("url").String(),
			LineNumber:   int(item.Get("lineNumber").Int()),
			ColumnNumber: int(item.Get("columnNumber").Int()),
		})
	}
	return answer
}

// ParseOnConsoleMessageRepeatCountUpdated 格式错误时返回-1
func ParseOnConsoleMessageRepeatCountUpdated(result gjson.Result) int {
	if !isObject(result) {
		return -1
	}
	return int(result.Get("count").Int())
}

// ParseRemoteObject 有objectId的对象才有子节点，description为空时使用value
func ParseRemoteObject(json gjson.Result) *debugger.RemoteObject {
	if !isObject(json) {
		return nil
	}
	objectId := json.Get("objectId").String()
	description := json.Get("description").String()
	if description == "" {
		description = json.Get("value").String()
	}
	return &debugger.RemoteObject{
		Type:        constants.RemoteObjectType(strings.ToLower(json.Get("type").String())),
		SubType:     constants.RemoteObjectSubType(strings.ToLower(json.Get("subtype").String())),
		Description: description,
		HasChildren: objectId != "",
		ObjectId:    debugger.RemoteObjectId(objectId),
	}
}

func parsePropertyDescriptor(json gjson.Result) *debugger.PropertyDescriptor {
	if !isObject(json) {
		return nil
	}
	return &debugger.PropertyDescriptor{
		Name:         json.Get("name").String(),
		Value:        ParseRemoteObject(json.Get("value")),
		Getter:       ParseRemoteObject(json.Get("get")),
		Setter:       ParseRemoteObject(json.Get("set")),
		WasThrown:    json.Get("wasThrown").Bool(),
		Configurable: json.Get("configurable").Bool(),
		Enumerable:   json.Get("enumerable").Bool(),
		Writable:     json.Get("writable").Bool(),
	}
}

func parseCallFrame(json gjson.Result) *debugger.CallFrame {
	if !isObject(json) {
		return nil
	}
	answer := &debugger.CallFrame{
		Id:           json.Get("callFrameId").String(),
		FunctionName: json.Get("functionName").String(),
		Location:     parseLocation(json.Get("location")),
		This:         ParseRemoteObject(json.Get("this")),
	}
	for _, item := range json.Get("scopeChain").Array() {
		if !isObject(item) {
			continue
		}
		answer.ScopeChain = append(answer.ScopeChain, &debugger.Scope{
			Object: ParseRemoteObject(item.Get("object")),
			Type:   constants.ScopeType(strings.ToLower(item.Get("type").String())),
		})
	}
	return answer
}

func parseLocation(json gjson.Result) *debugger.Location {
	if !isObject(json) {
		return nil
	}
	return &debugger.Location{
		ScriptId:     json.Get("scriptId").String(),
		LineNumber:   int(json.Get("lineNumber").Int()),
		ColumnNumber: int(json.Get("columnNumber").Int()),
	}
}

func parseBreakpointInfo(json gjson.Result) *debugger.BreakpointInfo {
	if !isObject(json) {
		return nil
	}
	return &debugger.BreakpointInfo{
		Url:          json.Get("url").String(),
		UrlRegex:     json.Get("urlRegex").String(),
		LineNumber:   int(json.Get("lineNumber").Int()),
		ColumnNumber: int(json.Get("columnNumber").Int()),
		Condition:    json.Get("condition").String(),
	}
}
