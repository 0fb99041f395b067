// Package preprocess expands #include directives and builds the
// source map used by every later stage to report user-visible
// file:line positions (§4.1).
package preprocess

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/weft-lang/weft/internal/diag"
)

// Options configures include resolution.
type Options struct {
	// SearchPaths are tried, in order, after the including file's own
	// directory (§4.1 resolution order (b)).
	SearchPaths []string
	// StdlibDir is tried last (§4.1 resolution order (c)). Preprocessing
	// uses it only to resolve includes.
	StdlibDir string
}

// Result is the preprocessed source plus the map back to original
// positions.
type Result struct {
	Source string
	Map    *diag.SourceMap
}

type includeFrame struct {
	path string
}

// Process expands #include directives starting from path, whose
// contents are source.
func Process(source, path string, opts Options) (*Result, error) {
	p := &processor{
		opts:     opts,
		included: make(map[string]bool),
		sm:       diag.NewSourceMap(),
	}
	var out strings.Builder
	if err := p.process(source, path, &out, nil); err != nil {
		return nil, err
	}
	return &Result{Source: out.String(), Map: p.sm}, nil
}

type processor struct {
	opts     Options
	included map[string]bool // every path included at least once (§4.1: included at most once)
	sm       *diag.SourceMap
}

func (p *processor) process(source, path string, out *strings.Builder, stack []includeFrame) error {
	for _, f := range stack {
		if f.path == path {
			return p.circularIncludeError(path, stack)
		}
	}
	stack = append(stack, includeFrame{path: path})

	p.included[path] = true

	lines := strings.Split(source, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		// A trailing newline ends the last line; it does not start another.
		lines = lines[:n-1]
	}
	inBlockComment := false
	for lineNo, line := range lines {
		directive, inertDueToComment := extractIncludeDirective(line, &inBlockComment)

		if directive == "" || inertDueToComment {
			out.WriteString(line)
			out.WriteByte('\n')
			p.sm.Append(path, lineNo+1)
			continue
		}

		incPath := strings.TrimSpace(directive)
		if incPath == "" {
			return &diag.Error{
				Stage:   diag.StagePreprocessor,
				Kind:    "EmptyIncludePath",
				Message: "#include directive has an empty path",
				Span:    diag.Span{Start: diag.Pos{Line: lineNo + 1, Column: 1}},
				File:    path,
			}
		}

		resolved, err := p.resolve(incPath, path)
		if err != nil {
			return &diag.Error{
				Stage:   diag.StagePreprocessor,
				Kind:    "IncludeNotFound",
				Message: err.Error(),
				Span:    diag.Span{Start: diag.Pos{Line: lineNo + 1, Column: 1}},
				File:    path,
			}
		}

		for _, f := range stack {
			if f.path == resolved {
				return p.circularIncludeError(resolved, stack)
			}
		}
		if p.included[resolved] {
			// Included before in this compile: emit a placeholder that
			// preserves line numbering instead of re-expanding (§4.1).
			out.WriteString("// (already included: " + incPath + ")\n")
			p.sm.Append(path, lineNo+1)
			continue
		}

		body, err := os.ReadFile(resolved)
		if err != nil {
			return &diag.Error{
				Stage:   diag.StagePreprocessor,
				Kind:    "ReadFailure",
				Message: fmt.Sprintf("reading %q: %v", resolved, err),
				Span:    diag.Span{Start: diag.Pos{Line: lineNo + 1, Column: 1}},
				File:    path,
			}
		}

		if err := p.process(string(body), resolved, out, stack); err != nil {
			return err
		}
	}

	return nil
}

func (p *processor) resolve(incPath, fromFile string) (string, error) {
	candidates := make([]string, 0, 2+len(p.opts.SearchPaths))
	candidates = append(candidates, filepath.Join(filepath.Dir(fromFile), incPath))
	for _, sp := range p.opts.SearchPaths {
		candidates = append(candidates, filepath.Join(sp, incPath))
	}
	if p.opts.StdlibDir != "" {
		candidates = append(candidates, filepath.Join(p.opts.StdlibDir, incPath))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return filepath.Clean(c), nil
		}
	}
	return "", fmt.Errorf("include %q not found (searched %d locations)", incPath, len(candidates))
}

func (p *processor) circularIncludeError(path string, stack []includeFrame) error {
	var cycle strings.Builder
	for i, f := range stack {
		if i > 0 {
			cycle.WriteString(" -> ")
		}
		cycle.WriteString(f.path)
	}
	cycle.WriteString(" -> " + path)
	return &diag.Error{
		Stage:   diag.StagePreprocessor,
		Kind:    "CircularInclude",
		Message: "circular #include: " + cycle.String(),
		File:    path,
	}
}

// extractIncludeDirective returns the quoted path of a #include
// directive on line, or "" if the line contains none (or the #include
// token falls inside a line or block comment, §4.1). inBlockComment is
// updated across calls to track multi-line /* */ state.
func extractIncludeDirective(line string, inBlockComment *bool) (directivePath string, inert bool) {
	i := 0
	n := len(line)
	for i < n {
		if *inBlockComment {
			if i+1 < n && line[i] == '*' && line[i+1] == '/' {
				*inBlockComment = false
				i += 2
				continue
			}
			i++
			continue
		}
		if i+1 < n && line[i] == '/' && line[i+1] == '/' {
			// rest of line is a line comment; any #include here is inert
			return "", false
		}
		if i+1 < n && line[i] == '/' && line[i+1] == '*' {
			*inBlockComment = true
			i += 2
			continue
		}
		if line[i] == '#' && strings.HasPrefix(line[i:], "#include") {
			rest := line[i+len("#include"):]
			rest = strings.TrimSpace(rest)
			if len(rest) >= 2 && rest[0] == '"' {
				if end := strings.IndexByte(rest[1:], '"'); end >= 0 {
					return rest[1 : 1+end], false
				}
			}
			return "", false
		}
		i++
	}
	return "", false
}
