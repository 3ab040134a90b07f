package engine

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

type decl struct {
	prop  string
	value string
}

func d(prop, value string) decl { return decl{prop: prop, value: value} }

// valueType restricts which arbitrary "[...]" values a utility accepts.
type valueType int

const (
	typeNone valueType = iota
	typeAny
	typeColor
	typeLength
)

func parseValueType(s string) valueType {
	switch s {
	case "any":
		return typeAny
	case "color":
		return typeColor
	case "length":
		return typeLength
	default:
		return typeNone
	}
}

type staticUtility struct {
	decls []decl
	order int
}

type dynamicUtility struct {
	theme     string
	accept    valueType
	negative  bool
	decls     func(value string) []decl
	order     int
}

type variant struct {
	order  int
	pseudo string // appended to the selector
	atRule string // wrapping at-rule
}

// rule is one generated utility.
type rule struct {
	raw          string
	selector     string
	atRules      []string
	decls        []decl
	variantOrder int
	utilityOrder int
}

// designSystem resolves candidates to rules.
type designSystem struct {
	theme    Theme
	statics  map[string]staticUtility
	dynamics map[string][]dynamicUtility
	variants map[string]variant
	next     int
}

var defaultStatics = []struct {
	name  string
	decls []decl
}{
	{"container", []decl{d("width", "100%")}},
	{"block", []decl{d("display", "block")}},
	{"inline-block", []decl{d("display", "inline-block")}},
	{"inline", []decl{d("display", "inline")}},
	{"flex", []decl{d("display", "flex")}},
	{"inline-flex", []decl{d("display", "inline-flex")}},
	{"grid", []decl{d("display", "grid")}},
	{"contents", []decl{d("display", "contents")}},
	{"hidden", []decl{d("display", "none")}},
	{"static", []decl{d("position", "static")}},
	{"fixed", []decl{d("position", "fixed")}},
	{"absolute", []decl{d("position", "absolute")}},
	{"relative", []decl{d("position", "relative")}},
	{"sticky", []decl{d("position", "sticky")}},
	{"flex-row", []decl{d("flex-direction", "row")}},
	{"flex-col", []decl{d("flex-direction", "column")}},
	{"flex-wrap", []decl{d("flex-wrap", "wrap")}},
	{"flex-1", []decl{d("flex", "1 1 0%")}},
	{"items-start", []decl{d("align-items", "flex-start")}},
	{"items-center", []decl{d("align-items", "center")}},
	{"items-end", []decl{d("align-items", "flex-end")}},
	{"items-stretch", []decl{d("align-items", "stretch")}},
	{"justify-start", []decl{d("justify-content", "flex-start")}},
	{"justify-center", []decl{d("justify-content", "center")}},
	{"justify-end", []decl{d("justify-content", "flex-end")}},
	{"justify-between", []decl{d("justify-content", "space-between")}},
	{"justify-around", []decl{d("justify-content", "space-around")}},
	{"w-full", []decl{d("width", "100%")}},
	{"w-screen", []decl{d("width", "100vw")}},
	{"w-auto", []decl{d("width", "auto")}},
	{"h-full", []decl{d("height", "100%")}},
	{"h-screen", []decl{d("height", "100vh")}},
	{"h-auto", []decl{d("height", "auto")}},
	{"mx-auto", []decl{d("margin-left", "auto"), d("margin-right", "auto")}},
	{"my-auto", []decl{d("margin-top", "auto"), d("margin-bottom", "auto")}},
	{"border", []decl{d("border-width", "1px")}},
	{"border-0", []decl{d("border-width", "0px")}},
	{"text-left", []decl{d("text-align", "left")}},
	{"text-center", []decl{d("text-align", "center")}},
	{"text-right", []decl{d("text-align", "right")}},
	{"underline", []decl{d("text-decoration-line", "underline")}},
	{"line-through", []decl{d("text-decoration-line", "line-through")}},
	{"no-underline", []decl{d("text-decoration-line", "none")}},
	{"italic", []decl{d("font-style", "italic")}},
	{"not-italic", []decl{d("font-style", "normal")}},
	{"uppercase", []decl{d("text-transform", "uppercase")}},
	{"lowercase", []decl{d("text-transform", "lowercase")}},
	{"capitalize", []decl{d("text-transform", "capitalize")}},
	{"truncate", []decl{d("overflow", "hidden"), d("text-overflow", "ellipsis"), d("white-space", "nowrap")}},
	{"overflow-hidden", []decl{d("overflow", "hidden")}},
	{"overflow-auto", []decl{d("overflow", "auto")}},
	{"cursor-pointer", []decl{d("cursor", "pointer")}},
	{"select-none", []decl{d("user-select", "none")}},
}

var spacingUtilities = []struct {
	key      string
	props    []string
	negative bool
}{
	{"p", []string{"padding"}, false},
	{"px", []string{"padding-left", "padding-right"}, false},
	{"py", []string{"padding-top", "padding-bottom"}, false},
	{"pt", []string{"padding-top"}, false},
	{"pr", []string{"padding-right"}, false},
	{"pb", []string{"padding-bottom"}, false},
	{"pl", []string{"padding-left"}, false},
	{"m", []string{"margin"}, true},
	{"mx", []string{"margin-left", "margin-right"}, true},
	{"my", []string{"margin-top", "margin-bottom"}, true},
	{"mt", []string{"margin-top"}, true},
	{"mr", []string{"margin-right"}, true},
	{"mb", []string{"margin-bottom"}, true},
	{"ml", []string{"margin-left"}, true},
	{"gap", []string{"gap"}, false},
	{"gap-x", []string{"column-gap"}, false},
	{"gap-y", []string{"row-gap"}, false},
	{"w", []string{"width"}, false},
	{"h", []string{"height"}, false},
}

var pseudoVariants = []struct {
	name   string
	pseudo string
}{
	{"hover", ":hover"},
	{"focus", ":focus"},
	{"focus-visible", ":focus-visible"},
	{"active", ":active"},
	{"disabled", ":disabled"},
	{"first", ":first-child"},
	{"last", ":last-child"},
}

func newDesignSystem(cfg *Config) *designSystem {
	ds := &designSystem{
		theme:    DefaultTheme(),
		statics:  make(map[string]staticUtility),
		dynamics: make(map[string][]dynamicUtility),
		variants: make(map[string]variant),
	}
	ds.theme.merge(cfg.Theme)

	for _, s := range defaultStatics {
		ds.addStatic(s.name, s.decls)
	}
	for _, name := range sortedKeys(cfg.StaticUtilities) {
		decls := cfg.StaticUtilities[name]
		list := make([]decl, 0, len(decls))
		for _, prop := range sortedKeys(decls) {
			list = append(list, d(prop, decls[prop]))
		}
		ds.addStatic(name, list)
	}

	ds.addDynamic("text", dynamicUtility{theme: "colors", accept: typeColor, decls: props("color")})
	ds.addDynamic("text", dynamicUtility{theme: "fontSize", accept: typeLength, decls: props("font-size")})
	ds.addDynamic("bg", dynamicUtility{theme: "colors", accept: typeColor, decls: props("background-color")})
	ds.addDynamic("border", dynamicUtility{theme: "colors", accept: typeColor, decls: props("border-color")})
	for _, s := range spacingUtilities {
		ds.addDynamic(s.key, dynamicUtility{
			theme:    "spacing",
			accept:   typeLength,
			negative: s.negative,
			decls:    props(s.props...),
		})
	}
	ds.addDynamic("rounded", dynamicUtility{theme: "borderRadius", accept: typeLength, decls: props("border-radius")})
	ds.addDynamic("font", dynamicUtility{theme: "fontWeight", decls: props("font-weight")})
	ds.addDynamic("z", dynamicUtility{theme: "zIndex", negative: true, decls: props("z-index")})
	ds.addDynamic("opacity", dynamicUtility{theme: "opacity", decls: props("opacity")})

	for _, u := range cfg.Utilities {
		css := u.CSS
		ds.addDynamic(u.Key, dynamicUtility{
			theme:  u.Theme,
			accept: parseValueType(u.Type),
			decls: func(value string) []decl {
				out := make([]decl, 0, len(css))
				for _, prop := range sortedKeys(css) {
					out = append(out, d(prop, strings.ReplaceAll(css[prop], "$0", value)))
				}
				return out
			},
		})
	}

	for i, p := range pseudoVariants {
		ds.variants[p.name] = variant{order: i + 1, pseudo: p.pseudo}
	}
	if cfg.DarkMode == "selector" {
		ds.variants["dark"] = variant{order: 50, pseudo: ":is(.dark *)"}
	} else {
		ds.variants["dark"] = variant{order: 50, atRule: "@media (prefers-color-scheme: dark)"}
	}
	for i, screen := range sortedScreens(ds.theme["screens"]) {
		ds.variants[screen] = variant{
			order:  100 * (i + 1),
			atRule: "@media (min-width: " + ds.theme["screens"][screen] + ")",
		}
	}

	return ds
}

func props(names ...string) func(string) []decl {
	return func(value string) []decl {
		out := make([]decl, len(names))
		for i, n := range names {
			out[i] = d(n, value)
		}
		return out
	}
}

func (ds *designSystem) addStatic(name string, decls []decl) {
	ds.statics[name] = staticUtility{decls: decls, order: ds.next}
	ds.next++
}

func (ds *designSystem) addDynamic(key string, u dynamicUtility) {
	u.order = ds.next
	ds.next++
	ds.dynamics[key] = append(ds.dynamics[key], u)
}

// generate resolves one candidate. ok is false for anything that is not a
// known utility, which is the common case for ordinary words.
func (ds *designSystem) generate(candidate string) (*rule, bool) {
	parts := splitVariants(candidate)
	if parts == nil {
		return nil, false
	}
	base := parts[len(parts)-1]

	important := strings.HasPrefix(base, "!")
	base = strings.TrimPrefix(base, "!")
	negative := strings.HasPrefix(base, "-")
	base = strings.TrimPrefix(base, "-")
	if base == "" {
		return nil, false
	}

	decls, order, ok := ds.resolve(base, negative)
	if !ok {
		return nil, false
	}
	if important {
		for i := range decls {
			decls[i].value += " !important"
		}
	}

	r := &rule{
		raw:          candidate,
		selector:     "." + escapeClass(candidate),
		decls:        decls,
		utilityOrder: order,
	}
	for _, name := range parts[:len(parts)-1] {
		v, ok := ds.variants[name]
		if !ok {
			return nil, false
		}
		r.selector += v.pseudo
		if v.atRule != "" {
			r.atRules = append(r.atRules, v.atRule)
		}
		r.variantOrder += v.order
	}

	return r, true
}

func (ds *designSystem) resolve(base string, negative bool) ([]decl, int, bool) {
	if !negative {
		if s, ok := ds.statics[base]; ok {
			return append([]decl(nil), s.decls...), s.order, true
		}
	}

	// Bare key, e.g. "rounded"
	if decls, order, ok := ds.resolveDynamic(base, "DEFAULT", negative); ok {
		return decls, order, true
	}

	for i := 1; i < len(base)-1; i++ {
		if base[i] != '-' {
			continue
		}
		if decls, order, ok := ds.resolveDynamic(base[:i], base[i+1:], negative); ok {
			return decls, order, true
		}
	}
	return nil, 0, false
}

func (ds *designSystem) resolveDynamic(key, value string, negative bool) ([]decl, int, bool) {
	for _, u := range ds.dynamics[key] {
		if negative && !u.negative {
			continue
		}

		var resolved string
		if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
			arbitrary := strings.ReplaceAll(value[1:len(value)-1], "_", " ")
			if !acceptsArbitrary(u.accept, arbitrary) {
				continue
			}
			resolved = arbitrary
		} else {
			v, ok := ds.theme.lookup(u.theme, value)
			if !ok {
				continue
			}
			resolved = v
		}

		if negative {
			resolved = negate(resolved)
		}
		return u.decls(resolved), u.order, true
	}
	return nil, 0, false
}

var (
	colorPattern  = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|(rgb|rgba|hsl|hsla|oklch|color-mix)\(.+\))$`)
	lengthPattern = regexp.MustCompile(`^(-?[0-9]*\.?[0-9]+(px|rem|em|%|vh|vw|ch|ex|pt)?|(calc|min|max|clamp|var)\(.+\))$`)
)

func acceptsArbitrary(t valueType, v string) bool {
	if !isValidValue(v) {
		return false
	}
	switch t {
	case typeAny:
		return true
	case typeColor:
		return colorPattern.MatchString(v)
	case typeLength:
		return lengthPattern.MatchString(v)
	default:
		return false
	}
}

func negate(v string) string {
	switch {
	case v == "0" || v == "0px":
		return v
	case strings.HasPrefix(v, "-"):
		return v[1:]
	case strings.ContainsAny(v, "( "):
		return "calc(" + v + " * -1)"
	default:
		return "-" + v
	}
}

// splitVariants splits on ':' outside of brackets. It returns nil for
// malformed input such as empty segments.
func splitVariants(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case ':':
			if depth == 0 {
				if i == start {
					return nil
				}
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if start >= len(s) || depth != 0 {
		return nil
	}
	return append(parts, s[start:])
}

// escapeClass escapes a class name for use in a selector.
func escapeClass(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_', r >= 0x80:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteString(`\3`)
				b.WriteRune(r)
				b.WriteByte(' ')
			} else {
				b.WriteRune(r)
			}
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

// sortedScreens orders breakpoint names by their pixel width.
func sortedScreens(screens map[string]string) []string {
	names := sortedKeys(screens)
	width := func(name string) int {
		n, _ := strconv.Atoi(strings.TrimSuffix(screens[name], "px"))
		return n
	}
	sort.SliceStable(names, func(i, j int) bool {
		return width(names[i]) < width(names[j])
	})
	return names
}
