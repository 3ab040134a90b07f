package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default .windsync.yaml config file",
	Long:  `Create a .windsync.yaml configuration file in the current directory with sensible defaults.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")

		if _, err := os.Stat(defaultConfigPath); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", defaultConfigPath)
		}

		if err := os.WriteFile(defaultConfigPath, []byte(defaultConfig), 0644); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", defaultConfigPath)
		return nil
	},
}

const defaultConfig = `# windsync configuration

# Shared settings
root: .
log-level: info
content:
  - "**/*.{html,vue,svelte,astro,templ,js,jsx,ts,tsx,mjs}"
ignore: []

# Engine settings
engine:
  config: ""          # path to an engine config file, "false" disables lookup
  parallel: false

# Build settings
build:
  out-dir: dist
  entry: index
  json: false

# Development server settings
dev:
  addr: localhost:5173
  debounce: 0s         # 0s uses the built-in quiet period
`

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite existing config file")
}
