package engine

import (
	"path"
	"regexp"
	"strings"
)

// InputKind selects the candidate extraction strategy for a source unit.
type InputKind int

const (
	// KindUnknown splits the whole text on separators.
	KindUnknown InputKind = iota
	// KindHTML looks inside quoted attribute values.
	KindHTML
	// KindEcma looks inside string and template literals.
	KindEcma
)

// ParseInputKind maps a kind name or file extension to an InputKind.
func ParseInputKind(kind string) InputKind {
	switch strings.ToLower(strings.TrimPrefix(kind, ".")) {
	case "html", "htm", "vue", "svelte", "astro", "templ":
		return KindHTML
	case "js", "ts", "jsx", "tsx", "mjs", "mts", "cjs", "cts", "go", "ecma":
		return KindEcma
	default:
		return KindUnknown
	}
}

// KindOf infers the input kind of a module id from its extension,
// ignoring any query suffix.
func KindOf(id string) InputKind {
	if i := strings.IndexAny(id, "?#"); i >= 0 {
		id = id[:i]
	}
	return ParseInputKind(path.Ext(id))
}

var (
	// Quoted attribute values and string literals
	quotedPattern = regexp.MustCompile(`"([^"]*)"|'([^']*)'`)

	// Template literals, only for ecma sources
	templatePattern = regexp.MustCompile("`([^`]*)`")
)

// extract returns the unique candidates of text, in first-seen order.
func extract(text string, kind InputKind) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(chunk string) {
		for _, c := range splitCandidates(chunk) {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}

	switch kind {
	case KindHTML, KindEcma:
		for _, m := range quotedPattern.FindAllStringSubmatch(text, -1) {
			add(m[1] + " " + m[2])
		}
		if kind == KindEcma {
			for _, m := range templatePattern.FindAllStringSubmatch(text, -1) {
				add(m[1])
			}
		}
	default:
		add(text)
	}

	return out
}

// splitCandidates splits on whitespace, quotes and a few delimiters and
// keeps only tokens that can start a utility.
func splitCandidates(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ' ', '\n', '\r', '\t', '"', '\'', ';', '{', '}', '`':
			return true
		}
		return false
	})

	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimSuffix(f, ":")
		if isCandidateStart(f) {
			out = append(out, f)
		}
	}
	return out
}

func isCandidateStart(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return (c >= 'a' && c <= 'z') || c == '-' || c == '!' || c == '['
}
