package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yacobolo/windsync"
	"github.com/yacobolo/windsync/internal/engine"
	"github.com/yacobolo/windsync/internal/watch"
)

const defaultConfigPath = ".windsync.yaml"

var k = koanf.New(".")

// loadConfig loads configuration with precedence: flags > env > file > defaults.
// It must be called after cobra parses flags (in PreRunE or RunE).
func loadConfig(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	if err := loadConfigFromPath(configPath); err != nil {
		return err
	}

	// CLI flags (highest precedence, only flags that were explicitly set)
	fs := cmd.Flags()
	if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
		if !f.Changed {
			return "", nil
		}
		return f.Name, posflag.FlagVal(fs, f)
	}), nil); err != nil {
		return fmt.Errorf("loading command flags: %w", err)
	}

	return nil
}

// loadConfigFromPath loads a .env file, the config file and environment
// variables. It is separate from loadConfig for testing without a command.
func loadConfigFromPath(configPath string) error {
	// A missing .env is fine
	_ = godotenv.Load()

	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	}

	// WINDSYNC_DEV_ADDR -> dev.addr
	if err := k.Load(env.Provider("WINDSYNC_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "WINDSYNC_")),
			"_", ".",
		)
	}), nil); err != nil {
		return fmt.Errorf("loading environment variables: %w", err)
	}

	return nil
}

// projectConfig is the part of the configuration shared by build and dev.
type projectConfig struct {
	Root     string
	Content  []string
	Ignore   []string
	LogLevel string
}

func buildProjectConfig() projectConfig {
	cfg := projectConfig{
		Root:     getStringWithFallback("root", "root", "."),
		LogLevel: getStringWithFallback("log-level", "log-level", "info"),
	}
	if getBoolWithFallback("verbose", "verbose", false) {
		cfg.LogLevel = "debug"
	}

	if content := k.Strings("content"); len(content) > 0 {
		cfg.Content = content
	} else {
		cfg.Content = watch.DefaultPatterns
	}
	cfg.Ignore = k.Strings("ignore")
	return cfg
}

// buildPluginOptions constructs the plugin options from koanf state.
func buildPluginOptions(root string) windsync.Options {
	opts := windsync.Options{
		Engine: engine.Options{
			Base:     root,
			Parallel: getBoolWithFallback("parallel", "engine.parallel", false),
		},
		Debounce: getDurationWithFallback("debounce", "dev.debounce", 0),
	}

	switch path := getStringWithFallback("engine-config", "engine.config", ""); {
	case getBoolWithFallback("no-engine-config", "engine.disabled", false), path == "false":
		opts.Engine.Config = engine.NoConfig()
	case path != "":
		opts.Engine.Config = engine.ConfigFile(path)
	}
	return opts
}

type buildConfig struct {
	OutDir string
	Entry  string
	JSON   bool
}

func buildBuildConfig() buildConfig {
	return buildConfig{
		OutDir: getStringWithFallback("out-dir", "build.out-dir", "dist"),
		Entry:  getStringWithFallback("entry", "build.entry", "index"),
		JSON:   getBoolWithFallback("json", "build.json", false),
	}
}

type devConfig struct {
	Addr string
}

func buildDevConfig() devConfig {
	return devConfig{
		Addr: getStringWithFallback("addr", "dev.addr", "localhost:5173"),
	}
}

// getStringWithFallback checks the flag key first, then the config file key, then returns the default.
func getStringWithFallback(flagKey, configKey, defaultVal string) string {
	if v := k.String(flagKey); v != "" {
		return v
	}
	if v := k.String(configKey); v != "" {
		return v
	}
	return defaultVal
}

// getBoolWithFallback checks the flag key first, then the config file key, then returns the default.
func getBoolWithFallback(flagKey, configKey string, defaultVal bool) bool {
	if k.Exists(flagKey) {
		return k.Bool(flagKey)
	}
	if k.Exists(configKey) {
		return k.Bool(configKey)
	}
	return defaultVal
}

// getDurationWithFallback checks the flag key first, then the config file key, then returns the default.
func getDurationWithFallback(flagKey, configKey string, defaultVal time.Duration) time.Duration {
	if k.Exists(flagKey) {
		return k.Duration(flagKey)
	}
	if k.Exists(configKey) {
		return k.Duration(configKey)
	}
	return defaultVal
}
