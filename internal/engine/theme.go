package engine

import (
	"strconv"
	"strings"
)

// Theme holds named values per section ("colors", "spacing", ...).
type Theme map[string]map[string]string

var shades = [...]string{"50", "100", "200", "300", "400", "500", "600", "700", "800", "900"}

var palette = map[string][10]string{
	"slate":  {"#f8fafc", "#f1f5f9", "#e2e8f0", "#cbd5e1", "#94a3b8", "#64748b", "#475569", "#334155", "#1e293b", "#0f172a"},
	"gray":   {"#f9fafb", "#f3f4f6", "#e5e7eb", "#d1d5db", "#9ca3af", "#6b7280", "#4b5563", "#374151", "#1f2937", "#111827"},
	"red":    {"#fef2f2", "#fee2e2", "#fecaca", "#fca5a5", "#f87171", "#ef4444", "#dc2626", "#b91c1c", "#991b1b", "#7f1d1d"},
	"orange": {"#fff7ed", "#ffedd5", "#fed7aa", "#fdba74", "#fb923c", "#f97316", "#ea580c", "#c2410c", "#9a3412", "#7c2d12"},
	"yellow": {"#fefce8", "#fef9c3", "#fef08a", "#fde047", "#facc15", "#eab308", "#ca8a04", "#a16207", "#854d0e", "#713f12"},
	"green":  {"#f0fdf4", "#dcfce7", "#bbf7d0", "#86efac", "#4ade80", "#22c55e", "#16a34a", "#15803d", "#166534", "#14532d"},
	"blue":   {"#eff6ff", "#dbeafe", "#bfdbfe", "#93c5fd", "#60a5fa", "#3b82f6", "#2563eb", "#1d4ed8", "#1e40af", "#1e3a8a"},
	"indigo": {"#eef2ff", "#e0e7ff", "#c7d2fe", "#a5b4fc", "#818cf8", "#6366f1", "#4f46e5", "#4338ca", "#3730a3", "#312e81"},
	"purple": {"#faf5ff", "#f3e8ff", "#e9d5ff", "#d8b4fe", "#c084fc", "#a855f7", "#9333ea", "#7e22ce", "#6b21a8", "#581c87"},
	"pink":   {"#fdf2f8", "#fce7f3", "#fbcfe8", "#f9a8d4", "#f472b6", "#ec4899", "#db2777", "#be185d", "#9d174d", "#831843"},
}

var spacingSteps = []string{
	"0.5", "1", "1.5", "2", "2.5", "3", "3.5", "4", "5", "6", "7", "8", "9", "10",
	"11", "12", "14", "16", "20", "24", "28", "32", "36", "40", "44", "48", "52",
	"56", "60", "64", "72", "80", "96",
}

// DefaultTheme returns a fresh copy of the built-in theme.
func DefaultTheme() Theme {
	colors := map[string]string{
		"black":       "#000",
		"white":       "#fff",
		"transparent": "transparent",
		"current":     "currentColor",
		"inherit":     "inherit",
	}
	for name, values := range palette {
		for i, shade := range shades {
			colors[name+"-"+shade] = values[i]
		}
	}

	spacing := map[string]string{"0": "0px", "px": "1px"}
	for _, step := range spacingSteps {
		n, _ := strconv.ParseFloat(step, 64)
		spacing[step] = strconv.FormatFloat(n*0.25, 'f', -1, 64) + "rem"
	}

	return Theme{
		"colors":  colors,
		"spacing": spacing,
		"borderRadius": {
			"none":    "0px",
			"sm":      "0.125rem",
			"DEFAULT": "0.25rem",
			"md":      "0.375rem",
			"lg":      "0.5rem",
			"xl":      "0.75rem",
			"2xl":     "1rem",
			"3xl":     "1.5rem",
			"full":    "9999px",
		},
		"fontWeight": {
			"thin":       "100",
			"extralight": "200",
			"light":      "300",
			"normal":     "400",
			"medium":     "500",
			"semibold":   "600",
			"bold":       "700",
			"extrabold":  "800",
			"black":      "900",
		},
		"fontSize": {
			"xs":   "0.75rem",
			"sm":   "0.875rem",
			"base": "1rem",
			"lg":   "1.125rem",
			"xl":   "1.25rem",
			"2xl":  "1.5rem",
			"3xl":  "1.875rem",
			"4xl":  "2.25rem",
		},
		"zIndex": {
			"0": "0", "10": "10", "20": "20", "30": "30", "40": "40", "50": "50", "auto": "auto",
		},
		"opacity": {
			"0": "0", "25": "0.25", "50": "0.5", "75": "0.75", "100": "1",
		},
		"screens": {
			"sm":  "640px",
			"md":  "768px",
			"lg":  "1024px",
			"xl":  "1280px",
			"2xl": "1536px",
		},
	}
}

// merge overlays user sections onto t. Keys are flat, e.g. colors."brand-500".
func (t Theme) merge(user map[string]map[string]string) {
	for section, values := range user {
		dst, ok := t[section]
		if !ok {
			dst = make(map[string]string, len(values))
			t[section] = dst
		}
		for k, v := range values {
			dst[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
}

func (t Theme) lookup(section, key string) (string, bool) {
	values, ok := t[section]
	if !ok {
		return "", false
	}
	v, ok := values[key]
	return v, ok
}
