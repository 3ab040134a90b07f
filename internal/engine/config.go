package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// ErrInvalidConfig wraps every configuration problem detected by New.
var ErrInvalidConfig = errors.New("invalid windsync configuration")

// Config is the user configuration of the engine.
type Config struct {
	// DarkMode selects how the dark: variant is emitted: "media" (default) or "selector".
	DarkMode string `koanf:"darkMode"`

	// Theme sections merged over the built-in theme, e.g. colors.brand: "#123456".
	Theme map[string]map[string]string `koanf:"theme"`

	// StaticUtilities maps a class name to its declarations, e.g. card: {padding: 1rem}.
	StaticUtilities map[string]map[string]string `koanf:"staticUtilities"`

	// Utilities adds value-taking utilities such as "brand-red-500".
	Utilities []UtilityConfig `koanf:"utilities"`
}

// UtilityConfig describes one user defined dynamic utility. CSS values may
// reference the resolved value with "$0".
type UtilityConfig struct {
	Key   string            `koanf:"key"`
	CSS   map[string]string `koanf:"css"`
	Theme string            `koanf:"theme"` // theme section providing named values
	Type  string            `koanf:"type"`  // accepted arbitrary value type: color|length|any
}

// The delimiter must not appear in theme keys such as "0.5" or "1/2".
const configDelim = "::"

// LoadConfigFile parses a YAML (or JSON) engine configuration file.
func LoadConfigFile(path string) (*Config, error) {
	k := koanf.New(configDelim)
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: loading %s: %v", ErrInvalidConfig, path, err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrInvalidConfig, path, err)
	}
	return &cfg, nil
}

// resolveConfig turns a ConfigSource into a validated Config.
func resolveConfig(base string, src ConfigSource) (*Config, error) {
	var cfg *Config

	switch {
	case src.Disabled:
		cfg = &Config{}
	case src.Inline != nil:
		cfg = src.Inline
	case src.Path != "":
		path := src.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, path)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: config file %s: %v", ErrInvalidConfig, path, err)
		}
		loaded, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	default:
		path := filepath.Join(base, DefaultConfigFile)
		if _, err := os.Stat(path); err != nil {
			// No configuration file is fine
			cfg = &Config{}
			break
		}
		loaded, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first problem found in the configuration.
func (c *Config) Validate() error {
	switch c.DarkMode {
	case "", "media", "selector":
	default:
		return fmt.Errorf("%w: darkMode must be \"media\" or \"selector\", got %q", ErrInvalidConfig, c.DarkMode)
	}

	for _, name := range sortedKeys(c.StaticUtilities) {
		if name == "" || strings.ContainsAny(name, " \t\n:") {
			return fmt.Errorf("%w: static utility name %q", ErrInvalidConfig, name)
		}
		decls := c.StaticUtilities[name]
		if len(decls) == 0 {
			return fmt.Errorf("%w: static utility %q has no declarations", ErrInvalidConfig, name)
		}
		for _, prop := range sortedKeys(decls) {
			if err := validateDeclaration(prop, decls[prop]); err != nil {
				return fmt.Errorf("%w: static utility %q: %v", ErrInvalidConfig, name, err)
			}
		}
	}

	for i, u := range c.Utilities {
		if u.Key == "" {
			return fmt.Errorf("%w: utilities[%d]: key is required", ErrInvalidConfig, i)
		}
		if len(u.CSS) == 0 {
			return fmt.Errorf("%w: utility %q has no css", ErrInvalidConfig, u.Key)
		}
		switch u.Type {
		case "", "color", "length", "any":
		default:
			return fmt.Errorf("%w: utility %q: unknown type %q", ErrInvalidConfig, u.Key, u.Type)
		}
		if u.Theme == "" && u.Type == "" {
			return fmt.Errorf("%w: utility %q needs a theme or a type", ErrInvalidConfig, u.Key)
		}
		for _, prop := range sortedKeys(u.CSS) {
			// $0 is substituted at generation time
			value := strings.ReplaceAll(u.CSS[prop], "$0", "0")
			if err := validateDeclaration(prop, value); err != nil {
				return fmt.Errorf("%w: utility %q: %v", ErrInvalidConfig, u.Key, err)
			}
		}
	}

	for _, section := range sortedKeys(c.Theme) {
		for _, key := range sortedKeys(c.Theme[section]) {
			if !isValidValue(c.Theme[section][key]) {
				return fmt.Errorf("%w: theme.%s.%s: invalid value %q", ErrInvalidConfig, section, key, c.Theme[section][key])
			}
		}
	}

	return nil
}

// validateDeclaration lexes "prop: value" and rejects anything that would
// break out of a single declaration.
func validateDeclaration(prop, value string) error {
	lexer := css.NewLexer(parse.NewInputString(prop))
	tt, _ := lexer.Next()
	if tt != css.IdentToken && tt != css.CustomPropertyNameToken {
		return fmt.Errorf("invalid property name %q", prop)
	}
	if tt, _ := lexer.Next(); tt != css.ErrorToken {
		return fmt.Errorf("invalid property name %q", prop)
	}

	if !isValidValue(value) {
		return fmt.Errorf("invalid value %q for %s", value, prop)
	}
	return nil
}

// isValidValue reports whether value is a non-empty, self-contained CSS
// component value list.
func isValidValue(value string) bool {
	if strings.TrimSpace(value) == "" {
		return false
	}

	lexer := css.NewLexer(parse.NewInputString(value))
	depth := 0
	for {
		tt, _ := lexer.Next()
		switch tt {
		case css.ErrorToken:
			return lexer.Err() == io.EOF && depth == 0
		case css.BadStringToken, css.BadURLToken, css.SemicolonToken,
			css.LeftBraceToken, css.RightBraceToken, css.CDOToken, css.CDCToken:
			return false
		case css.LeftParenthesisToken, css.FunctionToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
			if depth < 0 {
				return false
			}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
