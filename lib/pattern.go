package lib

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher is the compiled form of one scan's include pattern and exclude rules.
// Paths are matched in slash form; case-insensitive matching lowers both the
// patterns and the candidates.
type Matcher struct {
	pattern    string
	root       string
	ignoreCase bool
	leafRules  []string
	pruneRules []string
}

// CompileMatcher compiles pattern and the exclude rules into a Matcher.
// Exclude entries ending in a path separator become directory prune rules;
// the rest filter individual matches. Returns a PatternError when any of the
// patterns is malformed.
func CompileMatcher(pattern string, ignoreCase bool, exclude []string) (*Matcher, error) {
	normalized := normalizePattern(pattern)
	if !doublestar.ValidatePattern(normalized) {
		return nil, &PatternError{Pattern: pattern, Cause: doublestar.ErrBadPattern}
	}
	matcher := &Matcher{
		pattern:    fold(normalized, ignoreCase),
		root:       patternRoot(filepath.ToSlash(pattern)),
		ignoreCase: ignoreCase,
	}
	for _, rule := range exclude {
		normalizedRule := filepath.ToSlash(rule)
		isPrune := strings.HasSuffix(normalizedRule, "/")
		normalizedRule = strings.TrimSuffix(normalizedRule, "/")
		if normalizedRule == "" {
			continue
		}
		if !doublestar.ValidatePattern(normalizedRule) {
			return nil, &PatternError{Pattern: rule, Cause: doublestar.ErrBadPattern}
		}
		normalizedRule = fold(normalizedRule, ignoreCase)
		if isPrune {
			matcher.pruneRules = append(matcher.pruneRules, normalizedRule)
		} else {
			matcher.leafRules = append(matcher.leafRules, normalizedRule)
		}
	}
	return matcher, nil
}

// Root returns the longest fixed-prefix directory of the pattern, the point
// traversal starts from. "." when the pattern has no fixed directory part.
func (m *Matcher) Root() string {
	return filepath.FromSlash(m.root)
}

// Match reports whether the path matches the include pattern.
func (m *Matcher) Match(candidate string) bool {
	matched, err := doublestar.Match(m.pattern, m.fold(candidate))
	return err == nil && matched
}

// Excluded reports whether the path hits any leaf exclude rule. Rules are
// tested against the full path and against the base name, so `*.tmp`
// excludes matches anywhere in the tree.
func (m *Matcher) Excluded(candidate string) bool {
	folded := m.fold(candidate)
	base := path.Base(folded)
	for _, rule := range m.leafRules {
		if matched, err := doublestar.Match(rule, folded); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(rule, base); err == nil && matched {
			return true
		}
	}
	return false
}

// PruneDir reports whether the directory should be skipped without being
// opened. Prune rules are tested against the directory's full path and its
// base name, so `node_modules/` prunes the directory at any depth.
func (m *Matcher) PruneDir(dir string) bool {
	folded := m.fold(dir)
	base := path.Base(folded)
	for _, rule := range m.pruneRules {
		if matched, err := doublestar.Match(rule, folded); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(rule, base); err == nil && matched {
			return true
		}
	}
	return false
}

func (m *Matcher) fold(candidate string) string {
	return fold(filepath.ToSlash(candidate), m.ignoreCase)
}

func fold(s string, ignoreCase bool) string {
	if ignoreCase {
		return strings.ToLower(s)
	}
	return s
}

// normalizePattern converts the pattern to slash form and rewrites a trailing
// `/**` to `/**/*`: a pattern like `dir/**` means every descendant of dir,
// not dir itself.
func normalizePattern(pattern string) string {
	normalized := filepath.ToSlash(pattern)
	if strings.HasSuffix(normalized, "/**") {
		normalized += "/*"
	}
	return normalized
}

// patternRoot extracts the directory prefix of pattern before the first glob
// metacharacter. A pattern with no metacharacters is its own root (a literal
// file or directory path).
func patternRoot(pattern string) string {
	meta := strings.IndexAny(pattern, "*?[{")
	if meta < 0 {
		return pattern
	}
	slash := strings.LastIndex(pattern[:meta], "/")
	switch {
	case slash < 0:
		return "."
	case slash == 0:
		return "/"
	default:
		return pattern[:slash]
	}
}
