package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "windsync",
	Short: "Utility CSS generation for a bundler pipeline",
	Long: `Collects the content of every module a project is made of, generates
the utility CSS it uses and serves it as the virtual module "windsync.css".
Development keeps the stylesheet live; build emits it next to the bundle.`,
	// Default behavior: run build when no subcommand is given.
	// We must call loadConfig here because PreRunE of buildCmd
	// is not triggered when delegating via rootCmd.RunE.
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}
		return runBuild(cmd, nil)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global persistent flags (inherited by all subcommands)
	pf := rootCmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.Bool("quiet", false, "Suppress all output (exit code only)")
	pf.Bool("color", false, "Force color output")
	pf.String("config", defaultConfigPath, "Config file path")
	pf.String("log-level", "info", "Log level: debug|info|warn|error")
	pf.String("root", ".", "Project root directory")
	pf.StringSlice("content", nil, "Glob patterns of content files (relative to root)")
	pf.StringSlice("ignore", nil, "Extra gitignore-style lines for content discovery")
	pf.String("engine-config", "", `Engine config file (default windsync.config.yaml under root, "false" disables)`)
	pf.Bool("no-engine-config", false, "Ignore any engine config file")
	pf.Bool("parallel", false, "Extract candidates in parallel")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(devCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(versionCmd)

	registerFlagCompletions()
}
