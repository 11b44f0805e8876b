package shell_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shellfront/core"
)

func TestBuilder_CurrentIsNilBeforeBegin(t *testing.T) {
	t.Parallel()

	b := shell.NewBuilder()
	assert.Nil(t, b.Current())
}

func TestBuilder_BeginSetsCursorToRoot(t *testing.T) {
	t.Parallel()

	prog := &shell.Program{}
	b := shell.NewBuilder().Begin(prog)

	assert.Same(t, prog, b.Current())
}

func TestBuilder_ChildAttachesAndDescends(t *testing.T) {
	t.Parallel()

	prog := &shell.Program{}
	cmd := &shell.Command{}

	b := shell.NewBuilder().Begin(prog).Child(cmd)

	assert.Same(t, cmd, b.Current())
	require.Len(t, prog.Statements, 1)
	assert.Same(t, cmd, prog.Statements[0])
}

func TestBuilder_AscendReturnsToParent(t *testing.T) {
	t.Parallel()

	prog := &shell.Program{}
	cmd := &shell.Command{}

	b := shell.NewBuilder().Begin(prog).Child(cmd).Ascend()

	assert.Same(t, prog, b.Current())
}

func TestBuilder_AscendPastRootIsNoOp(t *testing.T) {
	t.Parallel()

	prog := &shell.Program{}
	b := shell.NewBuilder().Begin(prog).Ascend().Ascend()

	assert.Same(t, prog, b.Current())
}

func TestBuilder_ChildClassifiesArgsFlagsAndRedirections(t *testing.T) {
	t.Parallel()

	cmd := &shell.Command{}
	arg := &shell.Argument{}
	flag := &shell.Flag{}
	redir := &shell.Redirection{}

	b := shell.NewBuilder().Begin(cmd)
	b.Child(arg).Ascend()
	b.Child(flag).Ascend()
	b.Child(redir).Ascend()

	assert.Equal(t, []*shell.Argument{arg}, cmd.Args)
	assert.Equal(t, []*shell.Flag{flag}, cmd.Flags)
	assert.Equal(t, []*shell.Redirection{redir}, cmd.Redirections)
}

func TestBuilder_SetAttributeAndAttributeRoundTrip(t *testing.T) {
	t.Parallel()

	prog := &shell.Program{}
	b := shell.NewBuilder().Begin(prog)
	b.SetAttribute("note", "synthesized by repair")

	v, ok := b.Attribute(prog.ID(), "note")
	require.True(t, ok)
	assert.Equal(t, "synthesized by repair", v)

	_, ok = b.Attribute(prog.ID(), "missing")
	assert.False(t, ok)
}

func TestBuilder_SetAttributeOnEmptyBuilderIsNoOp(t *testing.T) {
	t.Parallel()

	b := shell.NewBuilder()
	b.SetAttribute("k", "v")

	_, ok := b.Attribute(0, "k")
	assert.False(t, ok)
}

func TestBuilder_DeclareAndLookup(t *testing.T) {
	t.Parallel()

	prog := &shell.Program{}
	shell.AssignIDs(prog)

	b := shell.NewBuilder().Begin(prog)
	b.Declare("x")

	id, ok := b.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, prog.ID(), id)

	_, ok = b.Lookup("unknown")
	assert.False(t, ok)
}

func TestBuilder_FinalizeRootAssignsIDsAndReturnsRoot(t *testing.T) {
	t.Parallel()

	prog := &shell.Program{}
	cmd := &shell.Command{}

	root := shell.NewBuilder().Begin(prog).Child(cmd).Ascend().FinalizeRoot()

	assert.Same(t, prog, root)
	assert.NotEqual(t, shell.NodeID(0), cmd.ID())
}
