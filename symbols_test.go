package shell_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shellfront/core"
)

func TestSymbolTable_RootScopeIsNamedScript(t *testing.T) {
	t.Parallel()

	table := shell.NewSymbolTable()
	require.NotNil(t, table.Root)
	assert.Equal(t, "script", table.Root.Name)
	assert.Nil(t, table.Root.Parent)
}

func TestSymbolTable_PushAssignsIncreasingIDs(t *testing.T) {
	t.Parallel()

	table := shell.NewSymbolTable()
	fn := table.Push(table.Root, "function", shell.Span{})
	block := table.Push(fn, "block", shell.Span{})

	assert.Greater(t, fn.ID, table.Root.ID)
	assert.Greater(t, block.ID, fn.ID)
	assert.Same(t, fn, block.Parent)
}

func TestSymbolTable_PushRegistersChild(t *testing.T) {
	t.Parallel()

	table := shell.NewSymbolTable()
	child := table.Push(table.Root, "block", shell.Span{})

	assert.Contains(t, table.Root.Children(), child)
}

func TestSymbolTable_WalkVisitsEveryScopePreOrder(t *testing.T) {
	t.Parallel()

	table := shell.NewSymbolTable()
	fn := table.Push(table.Root, "function", shell.Span{})
	loop := table.Push(fn, "for", shell.Span{})

	var visited []string
	table.Walk(func(s *shell.Scope) {
		visited = append(visited, s.Name)
	})

	assert.Equal(t, []string{"script", "function", "for"}, visited)
	assert.Equal(t, "for", loop.Name)
}

func TestScope_DefineThenResolveFindsSymbol(t *testing.T) {
	t.Parallel()

	table := shell.NewSymbolTable()
	sym := &shell.Symbol{Name: "x", Kind: shell.SymbolLocal}
	table.Root.Define(sym)

	found, scope := table.Root.Resolve("x")
	require.NotNil(t, found)
	assert.Equal(t, "x", found.Name)
	assert.Same(t, table.Root, scope)
	assert.Equal(t, table.Root.ID, found.ScopeID)
}

func TestScope_ResolveWalksToParent(t *testing.T) {
	t.Parallel()

	table := shell.NewSymbolTable()
	table.Root.Define(&shell.Symbol{Name: "outer", Kind: shell.SymbolGlobal})
	child := table.Push(table.Root, "function", shell.Span{})

	found, scope := child.Resolve("outer")
	require.NotNil(t, found)
	assert.Same(t, table.Root, scope)
}

func TestScope_ResolveUnknownNameReturnsNil(t *testing.T) {
	t.Parallel()

	table := shell.NewSymbolTable()
	found, scope := table.Root.Resolve("nope")
	assert.Nil(t, found)
	assert.Nil(t, scope)
}

func TestScope_ShadowingInChildScopeDoesNotAffectParent(t *testing.T) {
	t.Parallel()

	table := shell.NewSymbolTable()
	table.Root.Define(&shell.Symbol{Name: "x", Kind: shell.SymbolGlobal, Constant: "outer"})

	child := table.Push(table.Root, "function", shell.Span{})
	child.Define(&shell.Symbol{Name: "x", Kind: shell.SymbolLocal, Constant: "inner"})

	innerSym, innerScope := child.Resolve("x")
	outerSym, outerScope := table.Root.Resolve("x")

	assert.Same(t, child, innerScope)
	assert.Equal(t, "inner", innerSym.Constant)
	assert.Same(t, table.Root, outerScope)
	assert.Equal(t, "outer", outerSym.Constant)
}

func TestScope_DefineLocalDoesNotWalkToParent(t *testing.T) {
	t.Parallel()

	table := shell.NewSymbolTable()
	table.Root.Define(&shell.Symbol{Name: "x", Kind: shell.SymbolGlobal})
	child := table.Push(table.Root, "function", shell.Span{})

	_, found := child.DefineLocal("x")
	assert.False(t, found)

	child.Define(&shell.Symbol{Name: "x", Kind: shell.SymbolLocal})
	_, found = child.DefineLocal("x")
	assert.True(t, found)
}

func TestScope_DefineLocalDoesNotInsert(t *testing.T) {
	t.Parallel()

	scope := shell.NewSymbolTable().Root
	_, found := scope.DefineLocal("x")
	assert.False(t, found)

	_, stillNotDefined := scope.DefineLocal("x")
	assert.False(t, stillNotDefined)
}

func TestScope_LocalDoesNotIncludeChildScopeSymbols(t *testing.T) {
	t.Parallel()

	table := shell.NewSymbolTable()
	table.Root.Define(&shell.Symbol{Name: "a", Kind: shell.SymbolGlobal})
	table.Root.Define(&shell.Symbol{Name: "b", Kind: shell.SymbolGlobal})

	child := table.Push(table.Root, "function", shell.Span{})
	child.Define(&shell.Symbol{Name: "c", Kind: shell.SymbolLocal})

	names := make([]string, 0)
	for _, sym := range table.Root.Local() {
		names = append(names, sym.Name)
	}

	assert.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestSymbol_AddReferenceAppendsSpan(t *testing.T) {
	t.Parallel()

	sym := &shell.Symbol{Name: "x"}
	span1 := shell.Span{Start: shell.Span{}.Start}
	span2 := shell.Span{End: shell.Span{}.End}

	sym.AddReference(span1)
	sym.AddReference(span2)

	require.Len(t, sym.RefSpans, 2)
}
