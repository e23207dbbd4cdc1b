package breakpoint

import (
	"sort"

	"github.com/emirpasic/gods/sets/hashset"
	"github.com/fansqz/js-debugger/debugger"
	"github.com/fansqz/js-debugger/document"
	"github.com/fansqz/js-debugger/utils/scheduler"
	"github.com/sirupsen/logrus"
)

const BreakpointAnchorType document.AnchorType = "breakpoint"

// DescriptionListener 断点所在行的文本发生变化
type DescriptionListener func(breakpoint debugger.Breakpoint, text string)

// anchorBatch 收集同一个tick中变化的锚点，在下一个任务中统一处理
type anchorBatch struct {
	executor *scheduler.Executor
	anchors  []*document.Anchor
	members  *hashset.Set
	apply    func(anchors []*document.Anchor)
}

func newAnchorBatch(loop *scheduler.Loop, apply func(anchors []*document.Anchor)) *anchorBatch {
	b := &anchorBatch{
		members: hashset.New(),
		apply:   apply,
	}
	b.executor = scheduler.NewExecutor(loop, b.execute)
	return b
}

func (b *anchorBatch) execute() {
	if len(b.anchors) == 0 {
		return
	}
	anchors := b.anchors
	b.anchors = nil
	b.members.Clear()
	b.apply(anchors)
}

func (b *anchorBatch) add(anchor *document.Anchor) {
	if anchor.Type() != BreakpointAnchorType || b.members.Contains(anchor) {
		return
	}
	b.anchors = append(b.anchors, anchor)
	b.members.Add(anchor)
	b.executor.ScheduleDeferred()
}

func (b *anchorBatch) remove(anchor *document.Anchor) {
	if !b.members.Contains(anchor) {
		return
	}
	b.members.Remove(anchor)
	for i, a := range b.anchors {
		if a == anchor {
			b.anchors = append(b.anchors[:i:i], b.anchors[i+1:]...)
			return
		}
	}
}

func (b *anchorBatch) teardown() {
	b.anchors = nil
	b.members.Clear()
	b.executor.Cancel()
}

type anchoredBreakpoint struct {
	breakpoint  debugger.Breakpoint
	anchor      *document.Anchor
	removeShift func()
}

// AnchoredBreakpoints 固定在一个文档中的断点
//
// 断点所在的行移动时更新模型中的断点，行的内容变化时通知DescriptionListener。
// 只有存在断点时才监听文档的文本变化。
type AnchoredBreakpoints struct {
	model               *Model
	document            *document.Document
	entries             []*anchoredBreakpoint
	shiftBatch          *anchorBatch
	contentBatch        *anchorBatch
	removeTextListener  func()
	descriptionListener DescriptionListener
}

func NewAnchoredBreakpoints(model *Model, doc *document.Document, loop *scheduler.Loop) *AnchoredBreakpoints {
	a := &AnchoredBreakpoints{
		model:    model,
		document: doc,
	}
	a.shiftBatch = newAnchorBatch(loop, a.applyMovedAnchors)
	a.contentBatch = newAnchorBatch(loop, a.applyUpdatedAnchors)
	return a
}

func (a *AnchoredBreakpoints) Document() *document.Document {
	return a.document
}

func (a *AnchoredBreakpoints) SetDescriptionListener(listener DescriptionListener) {
	a.descriptionListener = listener
}

// AnchorBreakpoint 在断点所在行创建锚点，行号超出文档范围时返回nil
func (a *AnchoredBreakpoints) AnchorBreakpoint(breakpoint debugger.Breakpoint) *document.Anchor {
	anchor, err := a.document.AnchorManager().CreateAnchor(BreakpointAnchorType, breakpoint.LineNumber)
	if err != nil {
		logrus.Errorf("[AnchorBreakpoint] %s, err = %v", breakpoint, err)
		return nil
	}
	anchor.SetRemovalStrategy(document.RemovalShift)
	anchor.SetValue(breakpoint)
	removeShift := anchor.AddShiftListener(a.shiftBatch.add)

	if len(a.entries) == 0 {
		a.removeTextListener = a.document.AddTextListener(a.onTextChange)
	}
	a.entries = append(a.entries, &anchoredBreakpoint{
		breakpoint:  breakpoint,
		anchor:      anchor,
		removeShift: removeShift,
	})
	return anchor
}

// RemoveBreakpoint 移除断点的锚点，返回断点是否存在
func (a *AnchoredBreakpoints) RemoveBreakpoint(breakpoint debugger.Breakpoint) bool {
	for i, entry := range a.entries {
		if entry.breakpoint != breakpoint {
			continue
		}
		a.detach(entry)
		a.entries = append(a.entries[:i:i], a.entries[i+1:]...)
		if len(a.entries) == 0 {
			a.unsubscribe()
		}
		return true
	}
	return false
}

func (a *AnchoredBreakpoints) Contains(breakpoint debugger.Breakpoint) bool {
	for _, entry := range a.entries {
		if entry.breakpoint == breakpoint {
			return true
		}
	}
	return false
}

func (a *AnchoredBreakpoints) Get(index int) debugger.Breakpoint {
	return a.entries[index].breakpoint
}

// AnchorOf 断点的锚点，不存在时返回nil
func (a *AnchoredBreakpoints) AnchorOf(breakpoint debugger.Breakpoint) *document.Anchor {
	for _, entry := range a.entries {
		if entry.breakpoint == breakpoint {
			return entry.anchor
		}
	}
	return nil
}

func (a *AnchoredBreakpoints) Size() int {
	return len(a.entries)
}

// Teardown 移除所有锚点并取消还没有执行的批处理
func (a *AnchoredBreakpoints) Teardown() {
	a.unsubscribe()
	for _, entry := range a.entries {
		a.detach(entry)
	}
	a.entries = nil
	a.shiftBatch.teardown()
	a.contentBatch.teardown()
	a.descriptionListener = nil
}

func (a *AnchoredBreakpoints) unsubscribe() {
	if a.removeTextListener != nil {
		a.removeTextListener()
		a.removeTextListener = nil
	}
}

func (a *AnchoredBreakpoints) detach(entry *anchoredBreakpoint) {
	anchor := entry.anchor
	a.document.AnchorManager().RemoveAnchor(anchor)
	a.shiftBatch.remove(anchor)
	a.contentBatch.remove(anchor)
	anchor.SetValue(nil)
	entry.removeShift()
}

func (a *AnchoredBreakpoints) onTextChange(changes []document.TextChange) {
	manager := a.document.AnchorManager()
	for _, change := range changes {
		for line := change.Line; line <= change.EndLine; line++ {
			for _, anchor := range manager.AnchorsOnLine(line) {
				a.contentBatch.add(anchor)
			}
		}
	}
}

// applyMovedAnchors 把锚点的新行号同步到模型中
//
// 连续的断点需要按照移动的方向依次更新，例如在文档开头插入一行时，
// 3、4、5行的断点需要按照5->6、4->5、3->4的顺序更新，否则会与还没有移动的断点重合。
// 所有断点移动方向相同时这个顺序是正确的，方向不同时可能会丢失断点。
func (a *AnchoredBreakpoints) applyMovedAnchors(anchors []*document.Anchor) {
	moved := make([]*document.Anchor, 0, len(anchors))
	for _, anchor := range anchors {
		if _, ok := anchor.Value().(debugger.Breakpoint); ok {
			moved = append(moved, anchor)
		}
	}
	sort.SliceStable(moved, func(i, j int) bool {
		return moved[i].Value().(debugger.Breakpoint).LineNumber < moved[j].Value().(debugger.Breakpoint).LineNumber
	})

	deltaSum := 0
	for _, anchor := range moved {
		deltaSum += anchor.LineNumber() - anchor.Value().(debugger.Breakpoint).LineNumber
	}

	n := len(moved)
	for i := 0; i < n; i++ {
		anchor := moved[n-1-i]
		if deltaSum < 0 {
			anchor = moved[i]
		}
		oldBreakpoint, ok := anchor.Value().(debugger.Breakpoint)
		if !ok {
			continue
		}
		a.model.UpdateBreakpoint(oldBreakpoint, oldBreakpoint.WithLineNumber(anchor.LineNumber()))
	}
}

func (a *AnchoredBreakpoints) applyUpdatedAnchors(anchors []*document.Anchor) {
	if a.descriptionListener == nil {
		return
	}
	for _, anchor := range anchors {
		breakpoint, ok := anchor.Value().(debugger.Breakpoint)
		if !ok {
			continue
		}
		a.descriptionListener(breakpoint, anchor.Line())
	}
}
