package shell_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shellfront/core"
)

func TestPurityClass_StringsAreHumanReadable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pure", shell.PurityPure.String())
	assert.Equal(t, "io", shell.PurityIO.String())
	assert.Equal(t, "side-effecting", shell.PuritySideEffecting.String())
}

func TestCommandSpec_ArgTypeFallsBackToAnyOutsideDeclaredRange(t *testing.T) {
	t.Parallel()

	spec := &shell.CommandSpec{ArgTypes: []shell.Type{shell.Path}}
	assert.Equal(t, shell.Path, spec.ArgType(0))
	assert.Equal(t, shell.Any, spec.ArgType(1))
	assert.Equal(t, shell.Any, spec.ArgType(-1))
}

func TestCommandSpec_FlagSpecDistinguishesShortFromLong(t *testing.T) {
	t.Parallel()

	spec := &shell.CommandSpec{Flags: []*shell.FlagSpec{
		{Name: "v", Long: false},
		{Name: "verbose", Long: true},
	}}

	short, ok := spec.FlagSpec("v", false)
	require.True(t, ok)
	assert.False(t, short.Long)

	long, ok := spec.FlagSpec("verbose", true)
	require.True(t, ok)
	assert.True(t, long.Long)

	_, ok = spec.FlagSpec("v", true)
	assert.False(t, ok)
}

func TestStaticCommandRegistry_SeedsExpectedBuiltins(t *testing.T) {
	t.Parallel()

	reg := shell.NewStaticCommandRegistry()

	for _, name := range []string{"cd", "echo", "ls", "grep", "cat", "sort", "uniq", "find", "xargs", "export", "read", "test"} {
		_, ok := reg.Lookup(name)
		assert.True(t, ok, "expected builtin %q", name)
	}

	_, ok := reg.Lookup("nonexistent")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{"cd", "echo", "ls", "grep", "cat", "sort", "uniq", "find", "xargs", "export", "read", "test"}, reg.Names())
}

func TestStaticCommandRegistry_RegisterAddsOrReplaces(t *testing.T) {
	t.Parallel()

	reg := shell.NewStaticCommandRegistry()
	reg.Register(&shell.CommandSpec{Name: "mytool", MinArgs: 1, Purity: shell.PurityIO})

	spec, ok := reg.Lookup("mytool")
	require.True(t, ok)
	assert.Equal(t, shell.PurityIO, spec.Purity)

	reg.Register(&shell.CommandSpec{Name: "cd", Purity: shell.PurityPure})
	spec, ok = reg.Lookup("cd")
	require.True(t, ok)
	assert.Equal(t, shell.PurityPure, spec.Purity)
}

func TestOSFilesystemProbe_ExistsAndIsDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	probe := shell.OSFilesystemProbe{}
	assert.True(t, probe.Exists(dir))
	assert.True(t, probe.IsDir(dir))
	assert.True(t, probe.Exists(file))
	assert.False(t, probe.IsDir(file))
	assert.False(t, probe.Exists(filepath.Join(dir, "missing")))
}

func TestOSFilesystemProbe_Glob(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.log"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.log"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte("x"), 0o600))

	probe := shell.OSFilesystemProbe{}
	matches, err := probe.Glob(filepath.Join(dir, "*.log"))
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestOSEnvironmentResolver_NilConfigPermitsEverything(t *testing.T) {
	t.Parallel()

	t.Setenv("SHELLFRONT_TEST_VAR", "1")

	resolver := shell.NewOSEnvironmentResolver(nil)
	v, ok := resolver.Lookup("SHELLFRONT_TEST_VAR")
	require.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Contains(t, resolver.Names(), "SHELLFRONT_TEST_VAR")
}

func TestOSEnvironmentResolver_AllowListFiltersLookupAndNames(t *testing.T) {
	t.Parallel()

	t.Setenv("SHELLFRONT_ALLOWED", "yes")
	t.Setenv("SHELLFRONT_BLOCKED", "no")

	cfg := &shell.Config{EnvAllowList: []string{"SHELLFRONT_ALLOWED"}}
	resolver := shell.NewOSEnvironmentResolver(cfg)

	_, ok := resolver.Lookup("SHELLFRONT_ALLOWED")
	assert.True(t, ok)

	_, ok = resolver.Lookup("SHELLFRONT_BLOCKED")
	assert.False(t, ok)

	assert.Contains(t, resolver.Names(), "SHELLFRONT_ALLOWED")
	assert.NotContains(t, resolver.Names(), "SHELLFRONT_BLOCKED")
}
