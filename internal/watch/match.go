// Package watch finds the content files of a project and reports changes
// to them.
package watch

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultPatterns are the content globs used when none are configured.
var DefaultPatterns = []string{"**/*.{html,vue,svelte,astro,templ,js,jsx,ts,tsx,mjs}"}

// alwaysIgnored never hold project content.
var alwaysIgnored = []string{"node_modules/", ".git/", "dist/"}

// ScanStats tracks file scanning statistics
type ScanStats struct {
	FilesDiscovered int // Files found by the glob patterns
	FilesScanned    int // Files kept after filtering
	FilesSkipped    int // Files skipped by ignore rules
}

// Matcher decides which files under a root are content.
type Matcher struct {
	root     string
	patterns []string
	ignore   *ignore.GitIgnore
}

// NewMatcher builds a matcher for root. The root's .gitignore, when
// present, is honored together with extra ignore lines.
func NewMatcher(root string, patterns, extraIgnore []string) (*Matcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, &PatternError{Pattern: p}
		}
	}

	lines := append(append([]string{}, alwaysIgnored...), extraIgnore...)
	gi, err := ignore.CompileIgnoreFileAndLines(filepath.Join(abs, ".gitignore"), lines...)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		// No .gitignore is fine
		gi = ignore.CompileIgnoreLines(lines...)
	}

	return &Matcher{root: abs, patterns: patterns, ignore: gi}, nil
}

// PatternError reports an invalid glob.
type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string {
	return "invalid content pattern: " + e.Pattern
}

// Root is the absolute root directory.
func (m *Matcher) Root() string {
	return m.root
}

// Ignored reports whether a root-relative slash path is excluded.
func (m *Matcher) Ignored(rel string) bool {
	return m.ignore.MatchesPath(rel)
}

// Match reports whether a root-relative slash path is content.
func (m *Matcher) Match(rel string) bool {
	if m.Ignored(rel) {
		return false
	}
	for _, p := range m.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Rel converts an absolute path to a root-relative slash path. ok is
// false for paths outside the root.
func (m *Matcher) Rel(abs string) (string, bool) {
	rel, err := filepath.Rel(m.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// ID is the module id of a root-relative path.
func ID(rel string) string {
	return "/" + strings.TrimPrefix(path.Clean(rel), "/")
}

// Scan expands the patterns and returns the matching files, sorted and
// deduplicated, as root-relative slash paths.
func (m *Matcher) Scan() ([]string, ScanStats, error) {
	var files []string
	seen := make(map[string]bool)
	stats := ScanStats{}
	fsys := os.DirFS(m.root)

	for _, pattern := range m.patterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, stats, err
		}

		for _, match := range matches {
			if seen[match] {
				continue
			}
			seen[match] = true
			stats.FilesDiscovered++

			if m.Ignored(match) {
				stats.FilesSkipped++
				continue
			}
			files = append(files, match)
			stats.FilesScanned++
		}
	}

	sort.Strings(files)
	return files, stats, nil
}
