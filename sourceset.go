package shell

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/alecthomas/participle/v2/lexer"
)

// SourceFile is one named buffer registered with a SourceSet. Content is
// immutable after registration; Hash is a stable content digest reported in
// diagnostics (§6's "stable content hash (implementation-defined digest)").
type SourceFile struct {
	Index   int
	Path    string
	Content string
	Hash    string

	lineStarts []int // byte offset of the first byte of each line, line 0 at offset 0
}

// SourceSet holds zero or more source files keyed by index, supporting
// offset <-> (line, column) conversion and snippet extraction for
// diagnostics. It never mutates a file after Add; this mirrors the teacher's
// Loader cache, generalized from a single cached module into the set of
// files one parse/analysis cycle may touch.
type SourceSet struct {
	files []*SourceFile
	byURI map[string]int
}

// NewSourceSet creates an empty SourceSet.
func NewSourceSet() *SourceSet {
	return &SourceSet{byURI: make(map[string]int)}
}

// Add registers content under path and returns the new file's index. Adding
// the same path twice returns the existing index without re-registering;
// this matches the teacher's Loader.Load cache-by-absolute-path behavior.
func (s *SourceSet) Add(path, content string) int {
	if idx, ok := s.byURI[path]; ok {
		return idx
	}

	idx := len(s.files)
	file := &SourceFile{
		Index:   idx,
		Path:    path,
		Content: content,
		Hash:    hashContent(content),
	}
	file.lineStarts = computeLineStarts(content)
	s.files = append(s.files, file)
	s.byURI[path] = idx

	return idx
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))

	return hex.EncodeToString(sum[:])
}

func computeLineStarts(content string) []int {
	starts := []int{0}

	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}

	return starts
}

// File returns the file at idx, or nil if out of range.
func (s *SourceSet) File(idx int) *SourceFile {
	if idx < 0 || idx >= len(s.files) {
		return nil
	}

	return s.files[idx]
}

// FileByPath returns the file registered under path, or nil.
func (s *SourceSet) FileByPath(path string) *SourceFile {
	idx, ok := s.byURI[path]
	if !ok {
		return nil
	}

	return s.files[idx]
}

// Position converts a byte offset in file idx to a full lexer.Position
// (offset, line, column), using binary search over precomputed line starts.
func (s *SourceSet) Position(idx, offset int) lexer.Position {
	f := s.File(idx)
	if f == nil {
		return lexer.Position{Offset: offset}
	}

	line := sort.Search(len(f.lineStarts), func(i int) bool {
		return f.lineStarts[i] > offset
	}) - 1
	if line < 0 {
		line = 0
	}

	col := offset - f.lineStarts[line] + 1

	return lexer.Position{
		Filename: f.Path,
		Offset:   offset,
		Line:     line + 1,
		Column:   col,
	}
}

// Snippet extracts the source line(s) covered by span plus a caret line
// underlining the span, for rendering a diagnostic the way §7 requires.
func (s *SourceSet) Snippet(file int, span Span) string {
	f := s.File(file)
	if f == nil || span.IsUnknown() {
		return ""
	}

	startLine := span.Start.Line - 1
	if startLine < 0 || startLine >= len(f.lineStarts) {
		return ""
	}

	lineStart := f.lineStarts[startLine]

	lineEnd := len(f.Content)
	if startLine+1 < len(f.lineStarts) {
		lineEnd = f.lineStarts[startLine+1] - 1 // exclude trailing newline
	}

	if lineEnd > len(f.Content) {
		lineEnd = len(f.Content)
	}

	line := f.Content[lineStart:lineEnd]

	caretStart := span.Start.Offset - lineStart
	if caretStart < 0 {
		caretStart = 0
	}

	caretLen := span.Len()
	if span.End.Line != span.Start.Line {
		caretLen = len(line) - caretStart
	}

	if caretLen < 1 {
		caretLen = 1
	}

	caret := make([]byte, caretStart+caretLen)
	for i := range caret {
		if i < caretStart {
			caret[i] = ' '
		} else {
			caret[i] = '^'
		}
	}

	return fmt.Sprintf("%s\n%s", line, caret)
}
