package engine

import "log/slog"

// DefaultConfigFile is looked up under Options.Base when no explicit
// configuration source is given.
const DefaultConfigFile = "windsync.config.yaml"

// Entry is one observed source unit: a module id and its last seen text.
type Entry struct {
	ID   string
	Text string
}

// ResultKind reports whether a generation changed the stylesheet.
type ResultKind int

const (
	// Cached means no new utilities were found; CSS equals the previous output.
	Cached ResultKind = iota
	// Generated means the output changed and must be propagated.
	Generated
)

func (k ResultKind) String() string {
	switch k {
	case Cached:
		return "cached"
	case Generated:
		return "generated"
	default:
		return "unknown"
	}
}

// Result is the outcome of one generation call.
type Result struct {
	CSS  string
	Kind ResultKind
}

// ConfigSource selects where the engine reads its user configuration from.
// The zero value looks for DefaultConfigFile under the base directory and
// falls back to built-in defaults when it is absent.
type ConfigSource struct {
	Path     string  // explicit file; must exist
	Inline   *Config // configuration given in code
	Disabled bool    // ignore any configuration file
}

// ConfigFile reads configuration from path (relative paths resolve against Base).
func ConfigFile(path string) ConfigSource { return ConfigSource{Path: path} }

// InlineConfig uses cfg as-is.
func InlineConfig(cfg *Config) ConfigSource { return ConfigSource{Inline: cfg} }

// NoConfig disables configuration loading entirely.
func NoConfig() ConfigSource { return ConfigSource{Disabled: true} }

// Options configures a Generator. Values are forwarded untouched from the
// build plugin.
type Options struct {
	Base     string       // project root, "" means the working directory
	Config   ConfigSource // user configuration
	OneShot  bool         // do not accumulate utilities across calls
	Parallel bool         // extract candidates concurrently
	Logger   *slog.Logger // nil uses the process logger
}
