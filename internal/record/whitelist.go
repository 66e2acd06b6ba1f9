package record

import "strings"

// Whitelist is the set of path patterns naming symlinks that must be recorded
// as boundary entries unconditionally, even when their targets are missing or
// otherwise un-hashable.
//
// Matching is deliberately simple: a pattern matches a path when the
// normalized forms are equal, or when the path lies underneath the pattern
// (whole path components only). Patterns are normalized with the same rules
// as entry paths, so configuration may use either separator.
type Whitelist struct {
	patterns []string
}

// NewWhitelist builds a whitelist from configured patterns. Order is
// preserved for Patterns but has no effect on matching. Empty patterns are
// dropped.
func NewWhitelist(patterns []string) *Whitelist {
	w := &Whitelist{}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		w.patterns = append(w.patterns, NormalizePath(p))
	}
	return w
}

// Patterns returns the normalized patterns in configuration order.
func (w *Whitelist) Patterns() []string {
	return append([]string(nil), w.patterns...)
}

// Match reports whether relPath is named by, or lies within, any pattern.
func (w *Whitelist) Match(relPath string) bool {
	if w == nil || len(w.patterns) == 0 {
		return false
	}
	p := NormalizePath(relPath)
	for _, pat := range w.patterns {
		if p == pat || strings.HasPrefix(p, pat+"/") {
			return true
		}
	}
	return false
}
