// Package workspace 把磁盘上的文件变化同步到打开的文档
package workspace

import (
	"fmt"
	"strings"

	"github.com/fansqz/js-debugger/document"
	e "github.com/fansqz/js-debugger/error"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Sync 按行比较文档和新的文本，把差异作为编辑应用到文档上
//
// 被修改的行在原位置替换内容，锚点不会移动；只有整行的插入和删除会移动锚点。
// 只能在事件循环中调用。
func Sync(doc *document.Document, text string) error {
	if doc.Text() == text {
		return nil
	}
	// 两边都补上换行，每一个差异块都由完整的行组成
	dmp := diffmatchpatch.New()
	oldChars, newChars, lines := dmp.DiffLinesToChars(doc.Text()+"\n", text+"\n")
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(oldChars, newChars, false), lines)

	line := 0
	for i := 0; i < len(diffs); i++ {
		diff := diffs[i]
		switch diff.Type {
		case diffmatchpatch.DiffEqual:
			line += len(splitLines(diff.Text))
		case diffmatchpatch.DiffDelete:
			deleted := splitLines(diff.Text)
			var inserted []string
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
				inserted = splitLines(diffs[i+1].Text)
				i++
			}
			if err := replaceLines(doc, line, len(deleted), inserted); err != nil {
				return err
			}
			line += len(inserted)
		case diffmatchpatch.DiffInsert:
			inserted := splitLines(diff.Text)
			if err := replaceLines(doc, line, 0, inserted); err != nil {
				return err
			}
			line += len(inserted)
		}
	}
	return nil
}

// splitLines 去掉换行符之后的行
func splitLines(text string) []string {
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// replaceLines 把从line开始的deleted行替换为inserted
func replaceLines(doc *document.Document, line int, deleted int, inserted []string) error {
	paired := min(deleted, len(inserted))
	for k := 0; k < paired; k++ {
		if err := replaceLineContent(doc, line+k, inserted[k]); err != nil {
			return err
		}
	}
	if deleted > paired {
		if err := deleteLines(doc, line+paired, deleted-paired); err != nil {
			return err
		}
	}
	if len(inserted) > paired {
		if err := insertLines(doc, line+paired, inserted[paired:]); err != nil {
			return err
		}
	}
	return nil
}

func replaceLineContent(doc *document.Document, line int, text string) error {
	current, err := doc.LineText(line)
	if err != nil {
		return err
	}
	if current == text {
		return nil
	}
	if err := doc.Delete(line, 0, line, len(current)); err != nil {
		return err
	}
	return doc.Insert(line, 0, text)
}

func deleteLines(doc *document.Document, line int, count int) error {
	end := line + count
	if end < doc.LineCount() {
		return doc.Delete(line, 0, end, 0)
	}
	// 删除到文档末尾时连同前一行的换行一起删除
	if line == 0 {
		return fmt.Errorf("%w: can not delete every line", e.ErrPositionOutOfRange)
	}
	previous, err := doc.LineText(line - 1)
	if err != nil {
		return err
	}
	last, err := doc.LineText(end - 1)
	if err != nil {
		return err
	}
	return doc.Delete(line-1, len(previous), end-1, len(last))
}

func insertLines(doc *document.Document, line int, lines []string) error {
	text := strings.Join(lines, "\n")
	if line < doc.LineCount() {
		return doc.Insert(line, 0, text+"\n")
	}
	previous, err := doc.LineText(line - 1)
	if err != nil {
		return err
	}
	return doc.Insert(line-1, len(previous), "\n"+text)
}
