package protocol

import (
	"testing"

	"github.com/fansqz/js-debugger/constants"
	"github.com/fansqz/js-debugger/debugger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestParseRemoteObject(t *testing.T) {
	object := ParseRemoteObject(gjson.Parse(`{"type":"object","subtype":"Array","description":"Array[2]","objectId":"o1"}`))
	require.NotNil(t, object)
	assert.Equal(t, constants.TypeObject, object.Type)
	assert.Equal(t, constants.SubTypeArray, object.SubType)
	assert.True(t, object.HasChildren)
	assert.Equal(t, debugger.RemoteObjectId("o1"), object.ObjectId)

	number := ParseRemoteObject(gjson.Parse(`{"type":"number","value":1.5}`))
	require.NotNil(t, number)
	assert.Equal(t, "1.5", number.Description)
	assert.False(t, number.HasChildren)

	assert.Nil(t, ParseRemoteObject(gjson.Parse(`"text"`)))
	assert.Nil(t, ParseRemoteObject(gjson.Result{}))
}

func TestParseOnPaused(t *testing.T) {
	paused := ParseOnPaused(gjson.Parse(`{"callFrames":[
		{"callFrameId":"cf1","functionName":"f","location":{"scriptId":"s1","lineNumber":4,"columnNumber":2},
		 "scopeChain":[{"type":"Local","object":{"type":"object","objectId":"scope1"}},{"type":"global","object":{"type":"object","objectId":"window"}}],
		 "this":{"type":"object","objectId":"this1"}},
		42]}`))
	require.NotNil(t, paused)
	require.Len(t, paused.CallFrames, 1)
	callFrame := paused.CallFrames[0]
	assert.Equal(t, "cf1", callFrame.Id)
	assert.Equal(t, "f", callFrame.FunctionName)
	assert.Equal(t, &debugger.Location{ScriptId: "s1", LineNumber: 4, ColumnNumber: 2}, callFrame.Location)
	require.Len(t, callFrame.ScopeChain, 2)
	assert.Equal(t, constants.ScopeLocal, callFrame.ScopeChain[0].Type)
	assert.True(t, callFrame.ScopeChain[0].IsTransient())
	assert.False(t, callFrame.ScopeChain[1].IsTransient())
	assert.Equal(t, debugger.RemoteObjectId("this1"), callFrame.This.ObjectId)

	assert.Nil(t, ParseOnPaused(gjson.Result{}))
}

func TestParseOnBreakpointResolved(t *testing.T) {
	request := gjson.Parse(`{"url":"http://localhost/a.js","lineNumber":3,"columnNumber":0,"condition":""}`)

	byUrl := ParseOnBreakpointResolved(request, gjson.Parse(`{"breakpointId":"bp-1","locations":[{"scriptId":"s1","lineNumber":3}]}`))
	require.NotNil(t, byUrl)
	assert.Equal(t, "bp-1", byUrl.BreakpointId)
	assert.True(t, byUrl.BreakpointInfo.EqualsTo(&debugger.BreakpointInfo{Url: "http://localhost/a.js", LineNumber: 3}))
	assert.Equal(t, []debugger.Location{{ScriptId: "s1", LineNumber: 3}}, byUrl.Locations)

	resolved := ParseOnBreakpointResolved(gjson.Result{}, gjson.Parse(`{"breakpointId":"bp-1","location":{"scriptId":"s2","lineNumber":5}}`))
	require.NotNil(t, resolved)
	assert.Nil(t, resolved.BreakpointInfo)
	assert.Equal(t, []debugger.Location{{ScriptId: "s2", LineNumber: 5}}, resolved.Locations)

	assert.Nil(t, ParseOnBreakpointResolved(request, gjson.Result{}))
	assert.Equal(t, "bp-1", ParseOnRemoveBreakpoint(gjson.Parse(`{"breakpointId":"bp-1"}`)))
	assert.Equal(t, "", ParseOnRemoveBreakpoint(gjson.Result{}))
}

func TestParseOnScriptParsed(t *testing.T) {
	script := ParseOnScriptParsed(gjson.Parse(`{"scriptId":"s1","url":"http://localhost/a.js","startLine":1,"startColumn":2,"endLine":30,"endColumn":4,"isContentScript":true}`))
	assert.Equal(t, &debugger.OnScriptParsed{
		ScriptId:        "s1",
		Url:             "http://localhost/a.js",
		StartLine:       1,
		StartColumn:     2,
		EndLine:         30,
		EndColumn:       4,
		IsContentScript: true,
	}, script)
}

func TestParseOnRemoteObjectProperties(t *testing.T) {
	properties := ParseOnRemoteObjectProperties(gjson.Parse(`{"objectId":"o1","ownProperties":true}`), gjson.Parse(`{"result":[
		{"name":"a","value":{"type":"number","value":1},"writable":true,"enumerable":true,"configurable":true},
		{"name":"b","get":{"type":"function","objectId":"g1"}},
		"bad"]}`))
	require.NotNil(t, properties)
	assert.Equal(t, debugger.RemoteObjectId("o1"), properties.ObjectId)
	require.Len(t, properties.Properties, 2)
	a := properties.Properties[0]
	assert.Equal(t, "a", a.Name)
	assert.Equal(t, "1", a.Value.Description)
	assert.True(t, a.Writable && a.Enumerable && a.Configurable)
	b := properties.Properties[1]
	assert.Nil(t, b.Value)
	assert.Equal(t, debugger.RemoteObjectId("g1"), b.Getter.ObjectId)

	assert.Nil(t, ParseOnRemoteObjectProperties(gjson.Result{}, gjson.Parse(`{"result":[]}`)))
}

func TestParseOnEvaluateExpression(t *testing.T) {
	response := ParseOnEvaluateExpression(gjson.Parse(`{"expression":"a","callFrameId":"cf1"}`),
		gjson.Parse(`{"result":{"type":"string","value":"boom"},"wasThrown":true}`))
	require.NotNil(t, response)
	assert.Equal(t, "a", response.Expression)
	assert.Equal(t, "cf1", response.CallFrameId)
	assert.True(t, response.WasThrown)
	assert.Equal(t, "boom", response.Result.Description)

	assert.Equal(t, "true", ParseCallFunctionOnResult(gjson.Parse(`{"result":{"type":"boolean","value":true}}`)).Description)
	assert.Nil(t, ParseCallFunctionOnResult(gjson.Result{}))
}

func TestParseErrorResponses(t *testing.T) {
	evaluation := ParseOnEvaluateExpressionError(gjson.Parse(`{"expression":"a","callFrameId":"cf1"}`), "no frame")
	require.NotNil(t, evaluation)
	assert.Equal(t, "a", evaluation.Expression)
	assert.Equal(t, "cf1", evaluation.CallFrameId)
	assert.True(t, evaluation.WasThrown)
	assert.Equal(t, "no frame", evaluation.Result.Description)
	assert.Nil(t, ParseOnEvaluateExpressionError(gjson.Result{}, "no frame"))

	properties := ParseOnRemoteObjectPropertiesError(gjson.Parse(`{"objectId":"o1","ownProperties":true}`))
	require.NotNil(t, properties)
	assert.Equal(t, debugger.RemoteObjectId("o1"), properties.ObjectId)
	assert.Empty(t, properties.Properties)
	assert.Nil(t, ParseOnRemoteObjectPropertiesError(gjson.Parse(`{}`)))
}

func TestParseConsoleMessages(t *testing.T) {
	message := ParseOnConsoleMessage(gjson.Parse(`{"message":{"level":"WARNING","type":"log","text":"hi","url":"http://localhost/a.js",
		"parameters":[{"type":"string","value":"hi"}],"stackTrace":[{"functionName":"f","url":"u","lineNumber":1,"columnNumber":2}]}}`))
	require.NotNil(t, message)
	assert.Equal(t, constants.ConsoleWarning, message.Level)
	assert.Equal(t, constants.ConsoleTypeLog, message.Type)
	assert.Equal(t, -1, message.LineNumber)
	assert.Equal(t, 1, message.RepeatCount)
	require.Len(t, message.Parameters, 1)
	require.Len(t, message.StackTrace, 1)
	assert.Equal(t, "f", message.StackTrace[0].FunctionName)

	assert.Equal(t, 3, ParseOnConsoleMessageRepeatCountUpdated(gjson.Parse(`{"count":3}`)))
	assert.Equal(t, -1, ParseOnConsoleMessageRepeatCountUpdated(gjson.Result{}))

	sheets := ParseOnAllCssStyleSheets(gjson.Parse(`{"headers":[{"styleSheetId":"1","sourceURL":"a.css","title":"t","disabled":true}]}`))
	require.NotNil(t, sheets)
	assert.Equal(t, []*debugger.CssStyleSheetHeader{{Id: "1", Url: "a.css", Title: "t", Disabled: true}}, sheets.Headers)
}
