package shell_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shellfront/core"
)

func TestSourceSet_AddReturnsStableIndexForSamePath(t *testing.T) {
	t.Parallel()

	set := shell.NewSourceSet()
	idx1 := set.Add("a.sh", "echo hi")
	idx2 := set.Add("a.sh", "different content ignored")

	assert.Equal(t, idx1, idx2)
	assert.Equal(t, "echo hi", set.File(idx1).Content)
}

func TestSourceSet_AddAssignsIncreasingIndices(t *testing.T) {
	t.Parallel()

	set := shell.NewSourceSet()
	idx1 := set.Add("a.sh", "one")
	idx2 := set.Add("b.sh", "two")

	assert.Equal(t, 0, idx1)
	assert.Equal(t, 1, idx2)
}

func TestSourceSet_FileOutOfRangeReturnsNil(t *testing.T) {
	t.Parallel()

	set := shell.NewSourceSet()
	assert.Nil(t, set.File(0))
	assert.Nil(t, set.File(-1))
}

func TestSourceSet_FileByPathUnknownReturnsNil(t *testing.T) {
	t.Parallel()

	set := shell.NewSourceSet()
	assert.Nil(t, set.FileByPath("nope.sh"))
}

func TestSourceSet_HashIsStableContentDigest(t *testing.T) {
	t.Parallel()

	set := shell.NewSourceSet()
	idx := set.Add("a.sh", "echo hi")
	file := set.File(idx)

	require.NotEmpty(t, file.Hash)

	other := shell.NewSourceSet()
	otherIdx := other.Add("different-name.sh", "echo hi")
	assert.Equal(t, file.Hash, other.File(otherIdx).Hash)
}

func TestSourceSet_PositionConvertsOffsetToLineColumn(t *testing.T) {
	t.Parallel()

	set := shell.NewSourceSet()
	idx := set.Add("a.sh", "line one\nline two\nline three")

	pos := set.Position(idx, 0)
	assert.Equal(t, 1, pos.Line)
	assert.Equal(t, 1, pos.Column)

	pos = set.Position(idx, 9) // start of "line two"
	assert.Equal(t, 2, pos.Line)
	assert.Equal(t, 1, pos.Column)

	pos = set.Position(idx, 14) // "two" within line two
	assert.Equal(t, 2, pos.Line)
	assert.Equal(t, 6, pos.Column)
}

func TestSourceSet_PositionOutOfRangeFileReturnsBareOffset(t *testing.T) {
	t.Parallel()

	set := shell.NewSourceSet()
	pos := set.Position(5, 3)
	assert.Equal(t, 3, pos.Offset)
	assert.Equal(t, 0, pos.Line)
}

func TestSourceSet_SnippetRendersLineWithCaret(t *testing.T) {
	t.Parallel()

	set := shell.NewSourceSet()
	idx := set.Add("a.sh", "echo hello\necho world\n")

	startPos := set.Position(idx, 5)
	endPos := set.Position(idx, 10)

	snippet := set.Snippet(idx, shell.Span{Start: startPos, End: endPos})
	assert.Contains(t, snippet, "echo hello")
	assert.Contains(t, snippet, "^")
}

func TestSourceSet_SnippetUnknownSpanReturnsEmpty(t *testing.T) {
	t.Parallel()

	set := shell.NewSourceSet()
	idx := set.Add("a.sh", "echo hi")

	assert.Empty(t, set.Snippet(idx, shell.Span{}))
	assert.Empty(t, set.Snippet(999, shell.Span{}))
}
