package shell

import (
	"os"
	"path/filepath"
)

// CommandRegistry answers what a command name accepts: its known flags and
// its positional-argument arity, for the command-validation stage of §4.7
// and the optimizer's purity classification. Grounded on the teacher's
// Dialect/DialectFactory registry (dialect.go) repurposed from a
// database-backend lookup to a command-spec lookup, small enough to be
// injected at construction and never reflected over, per §9.
type CommandRegistry interface {
	Lookup(name string) (*CommandSpec, bool)
	Names() []string
}

// FlagSpec describes one flag a CommandSpec accepts. Grounded wholesale on
// analysis/schema.go's Field (Name/Type/Required), repurposed from a
// database column to a command-line flag.
type FlagSpec struct {
	Name       string
	Long       bool
	TakesValue bool
	Required   bool
	ValueType  Type
}

// PurityClass is the §4.7 pass-7 classification of a command's effect
// category: pure (no observable effect beyond its return value),
// side-effecting (mutates process or external state), or I/O-performing
// (reads or writes outside the process without otherwise mutating state).
// Used by the resource-use/side-effect pass and by the parallelizability
// pass (§4.7 passes 7-8) and the AST optimizer's command-merging rewrites
// (§4.9), which must not reorder observable effects across an impure
// boundary.
type PurityClass int

const (
	PurityPure PurityClass = iota
	PurityIO
	PuritySideEffecting
)

// String implements fmt.Stringer.
func (p PurityClass) String() string {
	switch p {
	case PurityPure:
		return "pure"
	case PurityIO:
		return "io"
	case PuritySideEffecting:
		return "side-effecting"
	default:
		return "unknown"
	}
}

// CommandSpec describes one known command: its accepted flags, its
// positional-argument arity, the declared type of each positional
// parameter (consulted by the path-validation and type-check passes, §6's
// "parameter type vector"), and its purity classification. Grounded
// wholesale on analysis/schema.go's Model (Name/Fields), repurposed from a
// database entity to a command.
type CommandSpec struct {
	Name        string
	Flags       []*FlagSpec
	ArgTypes    []Type // declared type of each positional argument, by index; nil entries/short slices mean unconstrained
	MinArgs     int
	MaxArgs     int // -1 means unbounded
	Description string
	Purity      PurityClass
}

// ArgType returns the declared type of the i'th positional argument, or
// Any if CommandSpec declares nothing for that position.
func (c *CommandSpec) ArgType(i int) Type {
	if i < 0 || i >= len(c.ArgTypes) {
		return Any
	}

	return c.ArgTypes[i]
}

// FlagSpec looks up one of c's flags by name, long-vs-short distinguished
// the same way the lexer distinguishes -x from --flag.
func (c *CommandSpec) FlagSpec(name string, long bool) (*FlagSpec, bool) {
	for _, f := range c.Flags {
		if f.Name == name && f.Long == long {
			return f, true
		}
	}

	return nil, false
}

// StaticCommandRegistry is a small built-in table covering the commands
// used throughout §8's end-to-end scenarios and the optimizer's
// command-merging/pipeline-optimization passes (cat|grep, find|xargs,
// sort|uniq), so validation and optimization exercise real CommandSpecs
// without requiring a caller-supplied collaborator.
type StaticCommandRegistry struct {
	commands map[string]*CommandSpec
}

// NewStaticCommandRegistry returns a registry seeded with cd, echo, ls,
// grep, cat, sort, uniq, find, xargs, export, read, and test.
func NewStaticCommandRegistry() *StaticCommandRegistry {
	r := &StaticCommandRegistry{commands: make(map[string]*CommandSpec)}

	for _, spec := range []*CommandSpec{
		{Name: "cd", MinArgs: 0, MaxArgs: 1, Purity: PuritySideEffecting, Description: "change working directory",
			ArgTypes: []Type{Path}},
		{Name: "echo", MinArgs: 0, MaxArgs: -1, Purity: PurityPure, Description: "write arguments to stdout",
			Flags: []*FlagSpec{{Name: "n", TakesValue: false}}},
		{Name: "ls", MinArgs: 0, MaxArgs: -1, Purity: PurityIO, Description: "list directory contents",
			ArgTypes: []Type{Path},
			Flags: []*FlagSpec{{Name: "l", TakesValue: false}, {Name: "a", TakesValue: false}, {Name: "la", TakesValue: false}}},
		{Name: "grep", MinArgs: 1, MaxArgs: -1, Purity: PurityIO, Description: "filter lines matching a pattern",
			ArgTypes: []Type{Regex, Path},
			Flags: []*FlagSpec{{Name: "e", TakesValue: true}, {Name: "v", TakesValue: false}, {Name: "i", TakesValue: false}}},
		{Name: "cat", MinArgs: 0, MaxArgs: -1, Purity: PurityIO, Description: "concatenate files to stdout",
			ArgTypes: []Type{Path}},
		{Name: "sort", MinArgs: 0, MaxArgs: -1, Purity: PurityPure, Description: "sort lines",
			Flags: []*FlagSpec{{Name: "u", TakesValue: false}, {Name: "r", TakesValue: false}}},
		{Name: "uniq", MinArgs: 0, MaxArgs: 1, Purity: PurityPure, Description: "collapse adjacent duplicate lines"},
		{Name: "find", MinArgs: 1, MaxArgs: -1, Purity: PurityIO, Description: "search a directory tree",
			ArgTypes: []Type{Path}},
		{Name: "xargs", MinArgs: 1, MaxArgs: -1, Purity: PuritySideEffecting, Description: "build and run commands from input"},
		{Name: "export", MinArgs: 1, MaxArgs: -1, Purity: PuritySideEffecting, Description: "mark a variable for export"},
		{Name: "read", MinArgs: 1, MaxArgs: -1, Purity: PuritySideEffecting, Description: "read a line into a variable"},
		{Name: "test", MinArgs: 0, MaxArgs: -1, Purity: PurityPure, Description: "evaluate a conditional expression"},
	} {
		r.commands[spec.Name] = spec
	}

	return r
}

// Register adds or replaces a CommandSpec, letting a caller extend the
// built-in table without implementing CommandRegistry from scratch.
func (r *StaticCommandRegistry) Register(spec *CommandSpec) {
	r.commands[spec.Name] = spec
}

// Lookup implements CommandRegistry.
func (r *StaticCommandRegistry) Lookup(name string) (*CommandSpec, bool) {
	spec, ok := r.commands[name]

	return spec, ok
}

// Names implements CommandRegistry.
func (r *StaticCommandRegistry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}

	return names
}

// FilesystemProbe answers path-validation questions (§4.7's path-validation
// stage) without the core ever touching os directly, per §9's "no
// filesystem access inside the core" — only a collaborator implementation
// does.
type FilesystemProbe interface {
	Exists(path string) bool
	IsDir(path string) bool
	Glob(pattern string) ([]string, error)
}

// OSFilesystemProbe is the default FilesystemProbe, backed by the real
// filesystem. CLI subcommands (cmd/shellfront) use this; analyzer unit
// tests use a fake instead.
type OSFilesystemProbe struct{}

// Exists implements FilesystemProbe.
func (OSFilesystemProbe) Exists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}

// IsDir implements FilesystemProbe.
func (OSFilesystemProbe) IsDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

// Glob implements FilesystemProbe.
func (OSFilesystemProbe) Glob(pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}

// EnvironmentResolver answers whether a given environment variable is
// defined, for §4.7's variable-resolution and data-flow stages. Grounded the same way as
// FilesystemProbe: the core never calls os.Getenv directly.
type EnvironmentResolver interface {
	Lookup(name string) (string, bool)
	Names() []string
}

// OSEnvironmentResolver resolves against the real process environment,
// filtered through an optional Config allow-list.
type OSEnvironmentResolver struct {
	cfg *Config
}

// NewOSEnvironmentResolver returns a resolver honoring cfg's
// EnvAllowList (nil cfg permits every variable).
func NewOSEnvironmentResolver(cfg *Config) OSEnvironmentResolver {
	return OSEnvironmentResolver{cfg: cfg}
}

// Lookup implements EnvironmentResolver.
func (r OSEnvironmentResolver) Lookup(name string) (string, bool) {
	if !r.cfg.EnvAllowed(name) {
		return "", false
	}

	return os.LookupEnv(name)
}

// Names implements EnvironmentResolver.
func (r OSEnvironmentResolver) Names() []string {
	env := os.Environ()
	names := make([]string, 0, len(env))

	for _, kv := range env {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				name := kv[:i]
				if r.cfg.EnvAllowed(name) {
					names = append(names, name)
				}

				break
			}
		}
	}

	return names
}
