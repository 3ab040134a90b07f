package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yacobolo/windsync/internal/logging"
)

func newTestGenerator(t *testing.T, opts Options) *Generator {
	t.Helper()
	if opts.Config == (ConfigSource{}) {
		opts.Config = NoConfig()
	}
	opts.Logger = logging.Discard()
	g, err := New(opts)
	require.NoError(t, err)
	return g
}

func TestGenerate_ClassAttribute(t *testing.T) {
	g := newTestGenerator(t, Options{})

	res, err := g.Generate([]Entry{
		{ID: "/src/index.html", Text: `<div class="text-blue-500">Hello World</div>`},
	})
	require.NoError(t, err)

	assert.Equal(t, Generated, res.Kind)
	assert.Equal(t, ".text-blue-500 {\n  color: #3b82f6;\n}\n", res.CSS)
}

func TestGenerate_SameInputIsCached(t *testing.T) {
	g := newTestGenerator(t, Options{})
	entries := []Entry{
		{ID: "/src/a.html", Text: `<p class="flex p-4 bg-red-500">`},
		{ID: "/src/b.tsx", Text: "export const B = () => <b className={`italic ${x}`} />"},
	}

	first, err := g.Generate(entries)
	require.NoError(t, err)
	require.Equal(t, Generated, first.Kind)

	second, err := g.Generate(entries)
	require.NoError(t, err)
	assert.Equal(t, Cached, second.Kind)
	assert.Equal(t, first.CSS, second.CSS)
	assert.Equal(t, first.CSS, g.CSS())
}

func TestGenerate_Accumulates(t *testing.T) {
	g := newTestGenerator(t, Options{})

	_, err := g.Generate([]Entry{{ID: "/a.html", Text: `<i class="flex">`}})
	require.NoError(t, err)
	res, err := g.Generate([]Entry{{ID: "/b.html", Text: `<i class="hidden">`}})
	require.NoError(t, err)

	assert.Equal(t, Generated, res.Kind)
	assert.Contains(t, res.CSS, ".flex {")
	assert.Contains(t, res.CSS, ".hidden {")
}

func TestGenerate_OneShot(t *testing.T) {
	g := newTestGenerator(t, Options{OneShot: true})

	_, err := g.Generate([]Entry{{ID: "/a.html", Text: `<i class="flex">`}})
	require.NoError(t, err)
	res, err := g.Generate([]Entry{{ID: "/b.html", Text: `<i class="hidden">`}})
	require.NoError(t, err)

	assert.Equal(t, Generated, res.Kind)
	assert.NotContains(t, res.CSS, ".flex {")
	assert.Contains(t, res.CSS, ".hidden {")
}

func TestGenerate_EmptyAndNonMarkup(t *testing.T) {
	g := newTestGenerator(t, Options{})

	warm := g.GenerateCandidates(nil)
	assert.Equal(t, Cached, warm.Kind)
	assert.Empty(t, warm.CSS)

	res, err := g.Generate([]Entry{{ID: "/main.go", Text: "package main\n\nfunc main() {}\n"}})
	require.NoError(t, err)
	assert.Equal(t, Cached, res.Kind)
	assert.Empty(t, res.CSS)
}

func TestGenerate_EmptyIDFails(t *testing.T) {
	g := newTestGenerator(t, Options{})

	_, err := g.Generate([]Entry{{ID: "", Text: "flex"}})
	require.Error(t, err)
}

func TestGenerate_Parallel(t *testing.T) {
	g := newTestGenerator(t, Options{Parallel: true})

	var entries []Entry
	for i := 0; i < 20; i++ {
		entries = append(entries, Entry{
			ID:   fmt.Sprintf("/src/c%d.vue", i),
			Text: fmt.Sprintf(`<template><div class="p-%d"></div></template>`, i%8+1),
		})
	}

	res, err := g.Generate(entries)
	require.NoError(t, err)
	assert.Equal(t, Generated, res.Kind)

	serial := newTestGenerator(t, Options{})
	want, err := serial.Generate(entries)
	require.NoError(t, err)
	assert.Equal(t, want.CSS, res.CSS)
}

func TestGenerateString_CustomUtilities(t *testing.T) {
	cfg := &Config{
		StaticUtilities: map[string]map[string]string{
			"aa": {"color": "red"},
		},
		Utilities: []UtilityConfig{
			{Key: "foo", CSS: map[string]string{"color": "$0"}, Theme: "colors", Type: "color"},
		},
	}
	g := newTestGenerator(t, Options{Config: InlineConfig(cfg)})

	res := g.GenerateString("aa foo-red-500 foo-[#123456] foo-[12px]", "unknown")

	assert.Equal(t, Generated, res.Kind)
	assert.Equal(t, ".aa {\n  color: red;\n}\n"+
		".foo-\\[\\#123456\\] {\n  color: #123456;\n}\n"+
		".foo-red-500 {\n  color: #ef4444;\n}\n", res.CSS)
}

func TestGenerateCandidates_Rules(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		want      string
	}{
		{"static", "flex", ".flex {\n  display: flex;\n}\n"},
		{"spacing fraction", "p-0.5", ".p-0\\.5 {\n  padding: 0.125rem;\n}\n"},
		{"multi property", "px-4", ".px-4 {\n  padding-left: 1rem;\n  padding-right: 1rem;\n}\n"},
		{"negative", "-mt-2", ".-mt-2 {\n  margin-top: -0.5rem;\n}\n"},
		{"important", "!p-4", ".\\!p-4 {\n  padding: 1rem !important;\n}\n"},
		{"default value", "rounded", ".rounded {\n  border-radius: 0.25rem;\n}\n"},
		{"font size", "text-xs", ".text-xs {\n  font-size: 0.75rem;\n}\n"},
		{"arbitrary length", "w-[12px]", ".w-\\[12px\\] {\n  width: 12px;\n}\n"},
		{"arbitrary spaces", "p-[calc(1rem_+_2px)]", ".p-\\[calc\\(1rem_\\+_2px\\)\\] {\n  padding: calc(1rem + 2px);\n}\n"},
		{"hover", "hover:bg-red-500", ".hover\\:bg-red-500:hover {\n  background-color: #ef4444;\n}\n"},
		{"responsive", "md:flex", "@media (min-width: 768px) {\n  .md\\:flex {\n    display: flex;\n  }\n}\n"},
		{"dark media", "dark:text-white", "@media (prefers-color-scheme: dark) {\n  .dark\\:text-white {\n    color: #fff;\n  }\n}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGenerator(t, Options{})
			res := g.GenerateCandidates([]string{tt.candidate})
			assert.Equal(t, Generated, res.Kind)
			assert.Equal(t, tt.want, res.CSS)
		})
	}
}

func TestGenerateCandidates_Invalid(t *testing.T) {
	g := newTestGenerator(t, Options{})

	for _, c := range []string{"hello", "text-nope-500", "unknown:flex", "-flex", "font-[Inter]", "bg-[12px]", "p-[1rem;color:red]"} {
		res := g.GenerateCandidates([]string{c})
		assert.Equal(t, Cached, res.Kind, c)
	}
	assert.Empty(t, g.CSS())
}

func TestGenerateCandidates_Ordering(t *testing.T) {
	g := newTestGenerator(t, Options{})

	res := g.GenerateCandidates([]string{"md:block", "hover:flex", "p-4", "flex"})
	require.Equal(t, Generated, res.Kind)

	flex := indexOf(t, res.CSS, ".flex {")
	padding := indexOf(t, res.CSS, ".p-4 {")
	hover := indexOf(t, res.CSS, ".hover\\:flex:hover {")
	media := indexOf(t, res.CSS, "@media (min-width: 768px)")

	assert.Less(t, flex, padding)
	assert.Less(t, padding, hover)
	assert.Less(t, hover, media)
}

func TestDarkModeSelector(t *testing.T) {
	g := newTestGenerator(t, Options{Config: InlineConfig(&Config{DarkMode: "selector"})})

	res := g.GenerateCandidates([]string{"dark:bg-black"})
	assert.Equal(t, ".dark\\:bg-black:is(.dark *) {\n  background-color: #000;\n}\n", res.CSS)
}

func indexOf(t *testing.T, s, sub string) int {
	t.Helper()
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	t.Fatalf("%q not found in:\n%s", sub, s)
	return -1
}
