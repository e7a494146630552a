// Package ignore matches paths against the watch.exclude glob patterns.
//
// Patterns use '/' as separator: '*' stays within one path segment and
// '**' crosses segments. Paths are matched in absolute, slash form, so
// "**/.git" excludes every .git directory. A pattern without any '/' is
// matched against the base name only, so "*.tmp" works as users expect.
package ignore

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern  string
	glob     glob.Glob
	baseOnly bool
}

// Matcher reports whether a path is excluded.
// The zero value and a nil *Matcher exclude nothing.
type Matcher struct {
	patterns []compiledPattern
}

// New compiles patterns. Empty patterns are skipped.
func New(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		m.patterns = append(m.patterns, compiledPattern{
			pattern:  pattern,
			glob:     g,
			baseOnly: !strings.Contains(pattern, "/"),
		})
	}
	return m, nil
}

// Match reports whether path is excluded.
func (m *Matcher) Match(path string) bool {
	if m == nil || len(m.patterns) == 0 {
		return false
	}

	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, cp := range m.patterns {
		if cp.baseOnly {
			if cp.glob.Match(base) {
				return true
			}
			continue
		}
		if cp.glob.Match(slashed) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns in compile order.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.patterns))
	for i, cp := range m.patterns {
		out[i] = cp.pattern
	}
	return out
}
