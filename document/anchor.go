package document

import (
	"github.com/fansqz/js-debugger/utils"
)

// AnchorType 锚点的类型，由使用锚点的模块定义
type AnchorType string

// RemovalStrategy 锚点所在行被删除时的处理方式
type RemovalStrategy int

const (
	// RemovalRemove 随行一起删除
	RemovalRemove RemovalStrategy = iota
	// RemovalShift 移动到删除范围的第一行
	RemovalShift
)

// Anchor 固定在文档某一行上的锚点，文本编辑时行号随之移动
type Anchor struct {
	id             int
	anchorType     AnchorType
	lineNumber     int
	value          any
	strategy       RemovalStrategy
	attached       bool
	document       *Document
	shiftListeners *utils.ListenerManager[*Anchor]
}

func (a *Anchor) Type() AnchorType {
	return a.anchorType
}

func (a *Anchor) LineNumber() int {
	return a.lineNumber
}

// Line 锚点所在行的文本
func (a *Anchor) Line() string {
	if !a.attached {
		return ""
	}
	text, _ := a.document.LineText(a.lineNumber)
	return text
}

func (a *Anchor) Value() any {
	return a.value
}

func (a *Anchor) SetValue(value any) {
	a.value = value
}

func (a *Anchor) RemovalStrategy() RemovalStrategy {
	return a.strategy
}

func (a *Anchor) SetRemovalStrategy(strategy RemovalStrategy) {
	a.strategy = strategy
}

func (a *Anchor) IsAttached() bool {
	return a.attached
}

// AddShiftListener 行号变化时通知
func (a *Anchor) AddShiftListener(listener func(anchor *Anchor)) (remove func()) {
	return a.shiftListeners.Add(listener)
}

// AnchorManager 文档中所有锚点
type AnchorManager struct {
	document *Document
	nextId   int
	anchors  []*Anchor
}

func newAnchorManager(document *Document) *AnchorManager {
	return &AnchorManager{document: document}
}

// CreateAnchor 在指定行创建锚点，默认的删除策略为RemovalRemove
func (m *AnchorManager) CreateAnchor(anchorType AnchorType, lineNumber int) (*Anchor, error) {
	if err := m.document.checkLine(lineNumber); err != nil {
		return nil, err
	}
	m.nextId++
	anchor := &Anchor{
		id:             m.nextId,
		anchorType:     anchorType,
		lineNumber:     lineNumber,
		attached:       true,
		document:       m.document,
		shiftListeners: utils.NewListenerManager[*Anchor](),
	}
	m.anchors = append(m.anchors, anchor)
	return anchor, nil
}

// RemoveAnchor 移除锚点，返回锚点是否存在
func (m *AnchorManager) RemoveAnchor(anchor *Anchor) bool {
	for i, a := range m.anchors {
		if a == anchor {
			m.anchors = append(m.anchors[:i:i], m.anchors[i+1:]...)
			anchor.attached = false
			return true
		}
	}
	return false
}

// AnchorsOnLine 按创建顺序返回指定行上的锚点
func (m *AnchorManager) AnchorsOnLine(lineNumber int) []*Anchor {
	var answer []*Anchor
	for _, anchor := range m.anchors {
		if anchor.lineNumber == lineNumber {
			answer = append(answer, anchor)
		}
	}
	return answer
}

func (m *AnchorManager) Size() int {
	return len(m.anchors)
}

// handleInsertion 在line行column列插入了newLineCount个换行
func (m *AnchorManager) handleInsertion(line int, column int, newLineCount int) []*Anchor {
	if newLineCount == 0 {
		return nil
	}
	var shifted []*Anchor
	for _, anchor := range m.anchors {
		// 在行首插入时，原来这一行的内容被推到了插入文本之后
		if anchor.lineNumber > line || (anchor.lineNumber == line && column == 0) {
			anchor.lineNumber += newLineCount
			shifted = append(shifted, anchor)
		}
	}
	return shifted
}

// handleDeletion 删除了line行到endLine行之间的文本
func (m *AnchorManager) handleDeletion(line int, endLine int) []*Anchor {
	if endLine == line {
		return nil
	}
	var shifted, removed []*Anchor
	for _, anchor := range m.anchors {
		switch {
		case anchor.lineNumber > endLine:
			anchor.lineNumber -= endLine - line
			shifted = append(shifted, anchor)
		case anchor.lineNumber == endLine:
			// 最后一行剩余的文本被合并到了第一行
			anchor.lineNumber = line
			shifted = append(shifted, anchor)
		case anchor.lineNumber > line:
			if anchor.strategy == RemovalShift {
				anchor.lineNumber = line
				shifted = append(shifted, anchor)
			} else {
				removed = append(removed, anchor)
			}
		}
	}
	for _, anchor := range removed {
		m.RemoveAnchor(anchor)
	}
	return shifted
}
