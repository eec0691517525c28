// Package minify shrinks Python source files kept in a bundle.
//
// The bundler only depends on the Minifier interface; DocstringStripper is the
// implementation used by the command line tool.
package minify

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// ErrParse is returned for sources the scanner cannot follow.
	ErrParse = errors.New("cannot parse source")
	// ErrTooDeep is returned for sources nested beyond what the scanner handles.
	ErrTooDeep = errors.New("source nested too deeply")
)

// Minifier rewrites source text. Implementations return an error when they
// cannot process a file; callers keep the original bytes in that case.
type Minifier interface {
	Minify(src []byte, path string) ([]byte, error)
}

// Options selects which docstrings are removed.
type Options struct {
	// StripModuleDocstrings removes the docstring at the top of a module.
	StripModuleDocstrings bool
	// StripDocstrings removes function and class docstrings.
	StripDocstrings bool
	// ModuleDocstringExcludes are doublestar patterns of paths whose module
	// docstring is kept.
	ModuleDocstringExcludes []string
	// DocstringExcludes are doublestar patterns of paths whose function and
	// class docstrings are kept.
	DocstringExcludes []string
}

// DocstringStripper removes docstrings from Python sources. Comments and
// formatting are preserved.
type DocstringStripper struct {
	opts Options
}

// NewDocstringStripper validates the exclusion patterns.
func NewDocstringStripper(opts Options) (*DocstringStripper, error) {
	for _, p := range append(append([]string(nil), opts.ModuleDocstringExcludes...), opts.DocstringExcludes...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, doublestar.ErrBadPattern)
		}
	}
	return &DocstringStripper{opts: opts}, nil
}

// Minify returns src without the selected docstrings. A function or class
// left with an empty body gets a "pass" statement.
func (d *DocstringStripper) Minify(src []byte, path string) ([]byte, error) {
	stripModule := d.opts.StripModuleDocstrings && !matchesAny(path, d.opts.ModuleDocstringExcludes)
	stripBodies := d.opts.StripDocstrings && !matchesAny(path, d.opts.DocstringExcludes)
	if !stripModule && !stripBodies {
		return src, nil
	}
	if !utf8.Valid(src) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", ErrParse, path)
	}

	lines, err := scanLines(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var edits []edit
	if stripModule {
		if i := nextStatement(lines, 0); i >= 0 && lines[i].onlyString {
			edits = append(edits, edit{start: lines[i].start, end: lines[i].end})
		}
	}
	if stripBodies {
		for i, ln := range lines {
			if !ln.header {
				continue
			}
			j := nextStatement(lines, i+1)
			if j < 0 || lines[j].indent <= ln.indent || !lines[j].onlyString {
				continue
			}
			e := edit{start: lines[j].start, end: lines[j].end}
			if k := nextStatement(lines, j+1); k < 0 || lines[k].indent <= ln.indent {
				e.replacement = append(append([]byte(nil), src[lines[j].start:lines[j].first]...), "pass\n"...)
			}
			edits = append(edits, e)
		}
	}
	if len(edits) == 0 {
		return src, nil
	}
	return applyEdits(src, edits), nil
}

type edit struct {
	start, end  int
	replacement []byte
}

// applyEdits expects non-overlapping edits in ascending order.
func applyEdits(src []byte, edits []edit) []byte {
	var buf bytes.Buffer
	buf.Grow(len(src))
	pos := 0
	for _, e := range edits {
		buf.Write(src[pos:e.start])
		buf.Write(e.replacement)
		pos = e.end
	}
	buf.Write(src[pos:])
	return buf.Bytes()
}

func nextStatement(lines []logicalLine, from int) int {
	for i := from; i < len(lines); i++ {
		if !lines[i].blank {
			return i
		}
	}
	return -1
}

func matchesAny(path string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, path); err == nil && ok {
			return true
		}
	}
	return false
}
