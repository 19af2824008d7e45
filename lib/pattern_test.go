package lib

import (
	"errors"
	"testing"
)

func TestCompileMatcher_invalidPattern(t *testing.T) {
	if _, err := CompileMatcher("[", false, nil); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern, got %v", err)
	}
	var patternErr *PatternError
	_, err := CompileMatcher("data/[a-.txt", false, nil)
	if !errors.As(err, &patternErr) {
		t.Fatalf("expected *PatternError, got %v", err)
	}
	if patternErr.Pattern != "data/[a-.txt" {
		t.Errorf("PatternError.Pattern = %q", patternErr.Pattern)
	}
}

func TestCompileMatcher_invalidExclude(t *testing.T) {
	if _, err := CompileMatcher("*.txt", false, []string{"["}); !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern for bad exclude, got %v", err)
	}
}

func TestPatternRoot(t *testing.T) {
	cases := []struct {
		pattern string
		root    string
	}{
		{"testdata/**/*.txt", "testdata"},
		{"*.go", "."},
		{"/tmp/x/*.c", "/tmp/x"},
		{"/*.c", "/"},
		{"a/b/c.txt", "a/b/c.txt"},
		{"src/{a,b}/*.go", "src"},
	}
	for _, tc := range cases {
		if got := patternRoot(tc.pattern); got != tc.root {
			t.Errorf("patternRoot(%q) = %q, want %q", tc.pattern, got, tc.root)
		}
	}
}

func TestMatcher_caseSensitivity(t *testing.T) {
	sensitive, err := CompileMatcher("*.csv", false, nil)
	if err != nil {
		t.Fatal(err)
	}
	insensitive, err := CompileMatcher("*.csv", true, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.csv", "A.CSV", "a.CsV"} {
		if !insensitive.Match(name) {
			t.Errorf("ignore_case: %q should match *.csv", name)
		}
	}
	if !sensitive.Match("a.csv") {
		t.Error("a.csv should match *.csv case-sensitively")
	}
	for _, name := range []string{"A.CSV", "a.CsV"} {
		if sensitive.Match(name) {
			t.Errorf("case-sensitive: %q should not match *.csv", name)
		}
	}
}

func TestMatcher_doubleStar(t *testing.T) {
	matcher, err := CompileMatcher("data/**/*.txt", false, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"data/a.txt", "data/sub/b.txt", "data/x/y/z/c.txt"} {
		if !matcher.Match(p) {
			t.Errorf("%q should match data/**/*.txt", p)
		}
	}
	for _, p := range []string{"data/a.log", "other/a.txt", "data"} {
		if matcher.Match(p) {
			t.Errorf("%q should not match data/**/*.txt", p)
		}
	}
}

func TestMatcher_trailingDoubleStar(t *testing.T) {
	matcher, err := CompileMatcher("data/**", false, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"data/a.txt", "data/sub", "data/sub/b.txt"} {
		if !matcher.Match(p) {
			t.Errorf("%q should match data/**", p)
		}
	}
	if matcher.Match("data") {
		t.Error("data/** matches descendants, not the directory itself")
	}
}

func TestMatcher_excludeLeaf(t *testing.T) {
	matcher, err := CompileMatcher("**/*", false, []string{"*.tmp"})
	if err != nil {
		t.Fatal(err)
	}
	if !matcher.Excluded("b.tmp") {
		t.Error("b.tmp should be excluded by *.tmp")
	}
	if !matcher.Excluded("sub/deep/b.tmp") {
		t.Error("*.tmp should exclude by base name at any depth")
	}
	if matcher.Excluded("a.txt") {
		t.Error("a.txt should not be excluded")
	}
}

func TestMatcher_pruneDir(t *testing.T) {
	matcher, err := CompileMatcher("**/*.js", false, []string{"node_modules/"})
	if err != nil {
		t.Fatal(err)
	}
	if !matcher.PruneDir("node_modules") {
		t.Error("node_modules should be pruned")
	}
	if !matcher.PruneDir("web/app/node_modules") {
		t.Error("trailing-slash rules prune the directory at any depth")
	}
	if matcher.PruneDir("web/app") {
		t.Error("web/app should not be pruned")
	}
	if matcher.Excluded("node_modules") {
		t.Error("directory rule should not act as a leaf rule")
	}
}

func TestMatcher_ignoreCaseExclude(t *testing.T) {
	matcher, err := CompileMatcher("**/*", true, []string{"*.TMP"})
	if err != nil {
		t.Fatal(err)
	}
	if !matcher.Excluded("b.tmp") {
		t.Error("ignore_case should fold exclude rules too")
	}
}
