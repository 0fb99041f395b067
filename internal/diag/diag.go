// Package diag implements the error taxonomy and source-position
// rendering shared by every compiler stage (§7 of the language spec).
package diag

import (
	"fmt"
	"strings"
)

// Pos is a one-based (line, column) position in a *processed* source
// buffer — i.e. after #include expansion. Use a SourceMap to translate
// it back to the user's original file:line.
type Pos struct {
	Line   int
	Column int
}

// Span is a half-open range [Start, End) in the processed buffer.
type Span struct {
	Start Pos
	End   Pos
}

// Zero reports whether the span carries no position information.
func (s Span) Zero() bool { return s.Start.Line == 0 }

// Stage identifies which pipeline stage raised an error.
type Stage string

const (
	StagePreprocessor Stage = "preprocessor"
	StageTokenizer    Stage = "tokenizer"
	StageParser       Stage = "parser"
	StageDesugar      Stage = "desugar"
	StageLowering     Stage = "lowering"
	StageCodegen      Stage = "codegen"
)

// Error is the single error type produced by every stage. Each stage
// wraps it behind a constructor (Preprocessor, Tokenizer, …)
// so call sites and tests can assert on .Stage without caring about a
// family of concrete types, mirroring wgsl.SourceError but generalized
// across the whole pipeline instead of one front end.
type Error struct {
	Stage   Stage
	Kind    string // e.g. "UnknownBundle", "CircularInclude", "WidthMismatch"
	Message string
	Span    Span
	File    string // resolved original file, once passed through a SourceMap
	Source  string // the original file's text, for context rendering
}

func (e *Error) Error() string {
	if e.File == "" || e.Span.Zero() {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", e.File, e.Span.Start.Line, e.Span.Start.Column, e.Stage, e.Message)
}

// FormatWithContext renders the error with a caret pointing at the
// offending column, shared across every pipeline stage.
func (e *Error) FormatWithContext() string {
	if e.Source == "" || e.Span.Zero() {
		return e.Error()
	}
	lines := strings.Split(e.Source, "\n")
	lineNum := e.Span.Start.Line
	if lineNum < 1 || lineNum > len(lines) {
		return e.Error()
	}
	line := lines[lineNum-1]
	col := e.Span.Start.Column
	if col < 1 {
		col = 1
	}
	if col > len(line)+1 {
		col = len(line) + 1
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "error: %s: %s\n", e.Stage, e.Message)
	fmt.Fprintf(&sb, "  --> %s:%d:%d\n", e.File, lineNum, col)
	sb.WriteString("   |\n")
	fmt.Fprintf(&sb, "%3d| %s\n", lineNum, line)
	fmt.Fprintf(&sb, "   | %s^\n", strings.Repeat(" ", col-1))
	return sb.String()
}

// New builds a stage error. Kind is a short machine-readable tag
// (e.g. "UnknownBundle"); Message is the human-readable detail.
func New(stage Stage, kind string, span Span, format string, args ...interface{}) *Error {
	return &Error{
		Stage:   stage,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Span:    span,
	}
}

// Preprocessor, Tokenizer, Parser, Lowering, and Codegen are thin
// stage-tagged constructors kept distinct so callers reflecting the
// spec's taxonomy (§7) can switch on e.Stage without a type switch
// over five otherwise-identical struct types.
func Preprocessor(kind string, span Span, format string, args ...interface{}) *Error {
	return New(StagePreprocessor, kind, span, format, args...)
}

func Tokenizer(kind string, span Span, format string, args ...interface{}) *Error {
	return New(StageTokenizer, kind, span, format, args...)
}

func Parser(kind string, span Span, format string, args ...interface{}) *Error {
	return New(StageParser, kind, span, format, args...)
}

func Lowering(kind string, span Span, format string, args ...interface{}) *Error {
	return New(StageLowering, kind, span, format, args...)
}

func Codegen(kind string, span Span, format string, args ...interface{}) *Error {
	return New(StageCodegen, kind, span, format, args...)
}

// List accumulates stage errors. Unlike wgsl.SourceErrors, most WEFT
// stages stop at the first error (§7 "no partial programs escape"), but
// lowering collects one error per failing bundle or spindle before
// aborting so the host can display more than one problem per recompile
// attempt.
type List []*Error

func (l List) Error() string {
	if len(l) == 0 {
		return "no errors"
	}
	if len(l) == 1 {
		return l[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", l[0].Error(), len(l)-1)
}

func (l *List) Add(e *Error) { *l = append(*l, e) }

func (l List) HasErrors() bool { return len(l) > 0 }

// Format implements the host-facing formatError(err) surface (§6):
// it returns the (file, line, col, message) tuple for any error this
// package produces.
func Format(err error) (file string, line, col int, message string) {
	e, ok := err.(*Error)
	if !ok {
		return "", 0, 0, err.Error()
	}
	return e.File, e.Span.Start.Line, e.Span.Start.Column, e.Message
}
