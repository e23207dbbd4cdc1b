package workspace

import (
	"testing"

	"github.com/fansqz/js-debugger/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncText(t *testing.T) {
	tests := []struct {
		name string
		old  string
		new  string
	}{
		{"unchanged", "a\nb", "a\nb"},
		{"insert first line", "a\nb\nc", "x\na\nb\nc"},
		{"insert middle lines", "a\nb\nc", "a\nx\ny\nb\nc"},
		{"append line", "a", "a\nb"},
		{"append trailing newline", "a", "a\n"},
		{"remove trailing newline", "a\n", "a"},
		{"delete last line", "a\nb", "a"},
		{"delete first line", "x\na", "a"},
		{"modify line", "a\nb\nc", "a\nB\nc"},
		{"modify and grow", "a\nb\nc", "a\nB1\nB2\nc"},
		{"modify and shrink", "a\nb1\nb2\nc", "a\nB\nc"},
		{"clear", "a\nb\nc", ""},
		{"from empty", "", "a\nb"},
		{"rewrite", "function f() {\n  return 1;\n}\n", "// header\nfunction f() {\n  return 2;\n}\nf();\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := document.NewDocument("/a.js", tt.old)
			require.NoError(t, Sync(doc, tt.new))
			assert.Equal(t, tt.new, doc.Text())
		})
	}
}

func anchorAt(t *testing.T, doc *document.Document, line int) *document.Anchor {
	anchor, err := doc.AnchorManager().CreateAnchor("breakpoint", line)
	require.NoError(t, err)
	anchor.SetRemovalStrategy(document.RemovalShift)
	return anchor
}

func TestSyncMovesAnchors(t *testing.T) {
	doc := document.NewDocument("/a.js", "a\nb\nc")
	b := anchorAt(t, doc, 1)
	c := anchorAt(t, doc, 2)

	require.NoError(t, Sync(doc, "x\na\nb\nc"))
	assert.Equal(t, 2, b.LineNumber())
	assert.Equal(t, 3, c.LineNumber())

	require.NoError(t, Sync(doc, "a\nb\nc"))
	assert.Equal(t, 1, b.LineNumber())
	assert.Equal(t, 2, c.LineNumber())

	require.NoError(t, Sync(doc, "a\nc"))
	assert.Equal(t, "c", c.Line())
	assert.Equal(t, 1, c.LineNumber())
}

func TestSyncKeepsAnchorsOnModifiedLines(t *testing.T) {
	doc := document.NewDocument("/a.js", "a\nb\nc")
	b := anchorAt(t, doc, 1)
	shifted := 0
	b.AddShiftListener(func(*document.Anchor) { shifted++ })
	var changes []document.TextChange
	doc.AddTextListener(func(c []document.TextChange) { changes = append(changes, c...) })

	require.NoError(t, Sync(doc, "a\nb();\nc"))
	assert.Equal(t, 1, b.LineNumber())
	assert.Equal(t, "b();", b.Line())
	assert.Zero(t, shifted)
	require.NotEmpty(t, changes)
	for _, change := range changes {
		assert.Equal(t, 1, change.Line)
	}
}
