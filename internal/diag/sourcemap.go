package diag

import (
	"path/filepath"
	"strings"
)

// SourceMap records, for each line of preprocessed output, which
// (file, line) of the original source it came from (§4.1). Resolve and
// ResolveSpan translate a processed-line position back to the user's
// own file:line. The compiler pipeline does not call them: errors from
// the stages after preprocessing carry line numbers of the
// preprocessed buffer.
type SourceMap struct {
	entries []sourceMapEntry
}

type sourceMapEntry struct {
	file string
	line int
}

// NewSourceMap creates an empty source map.
func NewSourceMap() *SourceMap {
	return &SourceMap{entries: make([]sourceMapEntry, 0, 64)}
}

// Append records the origin of the next processed line.
func (m *SourceMap) Append(file string, line int) {
	m.entries = append(m.entries, sourceMapEntry{file: file, line: line})
}

// Resolve converts a processed-buffer position to the user-visible
// (file, line) position, leaving the column untouched (columns are not
// affected by line-oriented #include expansion).
func (m *SourceMap) Resolve(processedLine int) (file string, line int) {
	if processedLine < 1 || processedLine > len(m.entries) {
		return "", processedLine
	}
	e := m.entries[processedLine-1]
	return e.file, e.line
}

// ResolveSpan rewrites a Span's File in-place-style, returning a new
// Error-ready triple for the file the span's start line originated in.
// Errors originating in the standard-library directory are suppressed
// to a generic location per §7 ("errors originating in standard-library
// source are suppressed to a generic 'stdlib' location").
func (m *SourceMap) ResolveSpan(span Span, stdlibDir string) (file string, resolved Span) {
	f, line := m.Resolve(span.Start.Line)
	if stdlibDir != "" && strings.HasPrefix(f, filepath.Clean(stdlibDir)+string(filepath.Separator)) {
		return "stdlib", Span{}
	}
	resolved = span
	resolved.Start.Line = line
	if span.End.Line == span.Start.Line {
		resolved.End.Line = line
	} else {
		_, endLine := m.Resolve(span.End.Line)
		resolved.End.Line = endLine
	}
	return f, resolved
}

// Len returns the number of processed lines tracked.
func (m *SourceMap) Len() int { return len(m.entries) }
