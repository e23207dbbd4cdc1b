// Package document 编辑器中打开的文件
//
// 文档由行组成，断点等信息通过锚点固定在行上，文本变化时锚点随之移动
package document

import (
	"fmt"
	"strings"

	e "github.com/fansqz/js-debugger/error"
	"github.com/fansqz/js-debugger/utils"
)

// TextChange 一次编辑影响到的行，行号为编辑之后的行号
type TextChange struct {
	Line    int
	EndLine int
}

type Document struct {
	path          string
	lines         []string
	anchorManager *AnchorManager
	textListeners *utils.ListenerManager[[]TextChange]
}

func NewDocument(path string, text string) *Document {
	d := &Document{
		path:          path,
		lines:         strings.Split(text, "\n"),
		textListeners: utils.NewListenerManager[[]TextChange](),
	}
	d.anchorManager = newAnchorManager(d)
	return d
}

func (d *Document) Path() string {
	return d.path
}

func (d *Document) Text() string {
	return strings.Join(d.lines, "\n")
}

func (d *Document) LineCount() int {
	return len(d.lines)
}

func (d *Document) LineText(lineNumber int) (string, error) {
	if err := d.checkLine(lineNumber); err != nil {
		return "", err
	}
	return d.lines[lineNumber], nil
}

func (d *Document) AnchorManager() *AnchorManager {
	return d.anchorManager
}

// AddTextListener 监听文本变化，返回移除函数
func (d *Document) AddTextListener(listener func(changes []TextChange)) (remove func()) {
	return d.textListeners.Add(listener)
}

func (d *Document) checkLine(lineNumber int) error {
	if lineNumber < 0 || lineNumber >= len(d.lines) {
		return fmt.Errorf("%w: line %d", e.ErrPositionOutOfRange, lineNumber)
	}
	return nil
}

func (d *Document) checkPosition(lineNumber int, column int) error {
	if err := d.checkLine(lineNumber); err != nil {
		return err
	}
	if column < 0 || column > len(d.lines[lineNumber]) {
		return fmt.Errorf("%w: line %d column %d", e.ErrPositionOutOfRange, lineNumber, column)
	}
	return nil
}

// PositionOf 文本偏移量对应的行和列
func (d *Document) PositionOf(offset int) (int, int, error) {
	for i, line := range d.lines {
		if offset <= len(line) {
			return i, offset, nil
		}
		offset -= len(line) + 1
	}
	return 0, 0, fmt.Errorf("%w: offset past the end of document", e.ErrPositionOutOfRange)
}

// Insert 在指定位置插入文本
func (d *Document) Insert(lineNumber int, column int, text string) error {
	if err := d.checkPosition(lineNumber, column); err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	current := d.lines[lineNumber]
	inserted := strings.Split(current[:column]+text+current[column:], "\n")
	lines := make([]string, 0, len(d.lines)+len(inserted)-1)
	lines = append(lines, d.lines[:lineNumber]...)
	lines = append(lines, inserted...)
	lines = append(lines, d.lines[lineNumber+1:]...)
	d.lines = lines

	newLineCount := len(inserted) - 1
	shifted := d.anchorManager.handleInsertion(lineNumber, column, newLineCount)
	d.dispatch(shifted, TextChange{Line: lineNumber, EndLine: lineNumber + newLineCount})
	return nil
}

// Delete 删除两个位置之间的文本
func (d *Document) Delete(lineNumber int, column int, endLineNumber int, endColumn int) error {
	if err := d.checkPosition(lineNumber, column); err != nil {
		return err
	}
	if err := d.checkPosition(endLineNumber, endColumn); err != nil {
		return err
	}
	if endLineNumber < lineNumber || (endLineNumber == lineNumber && endColumn < column) {
		return fmt.Errorf("%w: end before start", e.ErrPositionOutOfRange)
	}
	if endLineNumber == lineNumber && endColumn == column {
		return nil
	}
	merged := d.lines[lineNumber][:column] + d.lines[endLineNumber][endColumn:]
	lines := make([]string, 0, len(d.lines)-(endLineNumber-lineNumber))
	lines = append(lines, d.lines[:lineNumber]...)
	lines = append(lines, merged)
	lines = append(lines, d.lines[endLineNumber+1:]...)
	d.lines = lines

	shifted := d.anchorManager.handleDeletion(lineNumber, endLineNumber)
	d.dispatch(shifted, TextChange{Line: lineNumber, EndLine: lineNumber})
	return nil
}

func (d *Document) dispatch(shifted []*Anchor, change TextChange) {
	for _, anchor := range shifted {
		if anchor.attached {
			anchor.shiftListeners.Dispatch(anchor)
		}
	}
	d.textListeners.Dispatch([]TextChange{change})
}
