package debugger

import (
	"fmt"

	"github.com/fansqz/js-debugger/constants"
)

// Breakpoint 表示断点
// 断点是不可变的值，字段全部相等即为同一个断点，修改断点等价于删除旧断点、添加新断点
type Breakpoint struct {
	Path       string // 文件路径
	LineNumber int    // 行号，从0开始
	Active     bool
	Condition  string
}

func NewBreakpoint(path string, lineNumber int) Breakpoint {
	return Breakpoint{
		Path:       path,
		LineNumber: lineNumber,
		Active:     true,
	}
}

func (b Breakpoint) WithLineNumber(lineNumber int) Breakpoint {
	b.LineNumber = lineNumber
	return b
}

func (b Breakpoint) WithActive(active bool) Breakpoint {
	b.Active = active
	return b
}

func (b Breakpoint) WithCondition(condition string) Breakpoint {
	b.Condition = condition
	return b
}

func (b Breakpoint) String() string {
	return fmt.Sprintf("Breakpoint{%s:%d active=%t condition=%q}", b.Path, b.LineNumber, b.Active, b.Condition)
}

// Location 远程脚本中的位置
type Location struct {
	ScriptId     string `json:"scriptId"`
	LineNumber   int    `json:"lineNumber"`
	ColumnNumber int    `json:"columnNumber"`
}

// BreakpointInfo 远程断点
// Url为空时使用UrlRegex匹配脚本
type BreakpointInfo struct {
	BreakpointId string
	Url          string
	UrlRegex     string
	LineNumber   int
	ColumnNumber int
	Condition    string
	Locations    []Location
}

// EqualsTo 比较两个远程断点的位置和条件
func (b *BreakpointInfo) EqualsTo(other *BreakpointInfo) bool {
	return b != nil && other != nil &&
		b.Url == other.Url &&
		b.UrlRegex == other.UrlRegex &&
		b.LineNumber == other.LineNumber &&
		b.ColumnNumber == other.ColumnNumber &&
		b.Condition == other.Condition
}

// RemoteObjectId 远程对象的引用
type RemoteObjectId string

// RemoteObject 被调试页面中的一个值的快照
type RemoteObject struct {
	Type        constants.RemoteObjectType
	SubType     constants.RemoteObjectSubType
	Description string
	HasChildren bool
	// ObjectId 原始值为空
	ObjectId RemoteObjectId
}

// UndefinedRemoteObject undefined
var UndefinedRemoteObject = &RemoteObject{
	Type:        constants.TypeUndefined,
	Description: "undefined",
}

// Scope 作用域
type Scope struct {
	Object *RemoteObject
	Type   constants.ScopeType
}

// IsTransient 除了global和with以外的作用域都会随着栈帧变化
func (s *Scope) IsTransient() bool {
	return s.Type != constants.ScopeGlobal && s.Type != constants.ScopeWith
}

// CallFrame 栈帧
type CallFrame struct {
	Id           string
	FunctionName string
	Location     *Location
	ScopeChain   []*Scope
	This         *RemoteObject
}

// PropertyDescriptor 远程对象的属性
type PropertyDescriptor struct {
	Name         string
	Value        *RemoteObject
	Getter       *RemoteObject
	Setter       *RemoteObject
	WasThrown    bool
	Configurable bool
	Enumerable   bool
	Writable     bool
}

// OnPaused 页面暂停
type OnPaused struct {
	CallFrames []*CallFrame
}

// OnBreakpointResolved 断点被解析，BreakpointInfo为请求中的断点
type OnBreakpointResolved struct {
	BreakpointId   string
	BreakpointInfo *BreakpointInfo
	Locations      []Location
}

// OnScriptParsed 脚本加载
type OnScriptParsed struct {
	ScriptId        string
	Url             string
	StartLine       int
	StartColumn     int
	EndLine         int
	EndColumn       int
	IsContentScript bool
}

// OnRemoteObjectPropertiesResponse 远程对象的属性列表
type OnRemoteObjectPropertiesResponse struct {
	ObjectId   RemoteObjectId
	Properties []*PropertyDescriptor
}

// OnRemoteObjectPropertyChanged 远程对象的属性被修改
//
// 删除属性时NewName为nil，重命名时OldName与NewName不同，
// 修改值时IsValueChanged为true，Value为nil表示值无法读取
type OnRemoteObjectPropertyChanged struct {
	ObjectId       RemoteObjectId
	OldName        string
	NewName        *string
	IsValueChanged bool
	Value          *RemoteObject
	WasThrown      bool
}

func NewEditPropertyResponse(objectId RemoteObjectId, propertyName string, value *RemoteObject,
	wasThrown bool) *OnRemoteObjectPropertyChanged {
	newName := propertyName
	return &OnRemoteObjectPropertyChanged{
		ObjectId:       objectId,
		OldName:        propertyName,
		NewName:        &newName,
		IsValueChanged: true,
		Value:          value,
		WasThrown:      wasThrown,
	}
}

func NewRemovePropertyResponse(objectId RemoteObjectId, propertyName string,
	wasThrown bool) *OnRemoteObjectPropertyChanged {
	return &OnRemoteObjectPropertyChanged{
		ObjectId:  objectId,
		OldName:   propertyName,
		WasThrown: wasThrown,
	}
}

func NewRenamePropertyResponse(objectId RemoteObjectId, oldName string, newName string,
	wasThrown bool) *OnRemoteObjectPropertyChanged {
	return &OnRemoteObjectPropertyChanged{
		ObjectId:  objectId,
		OldName:   oldName,
		NewName:   &newName,
		WasThrown: wasThrown,
	}
}

// OnEvaluateExpressionResponse 表达式计算结果
// CallFrameId为空表示在全局对象上计算
type OnEvaluateExpressionResponse struct {
	Expression  string
	CallFrameId string
	Result      *RemoteObject
	WasThrown   bool
}

type CssStyleSheetHeader struct {
	Id       string
	Url      string
	Title    string
	Disabled bool
}

// OnAllCssStyleSheets 页面中的所有样式表
type OnAllCssStyleSheets struct {
	Headers []*CssStyleSheetHeader
}

type StackTraceItem struct {
	FunctionName string
	Url          string
	LineNumber   int
	ColumnNumber int
}

// ConsoleMessage 控制台输出
type ConsoleMessage struct {
	Level       constants.ConsoleMessageLevel
	Type        constants.ConsoleMessageType
	Text        string
	Url         string
	LineNumber  int
	RepeatCount int
	Parameters  []*RemoteObject
	StackTrace  []*StackTraceItem
}
