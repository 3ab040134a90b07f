package main

import (
	"github.com/spf13/cobra"

	"github.com/yacobolo/windsync/internal/engine"
)

var completionCmd = &cobra.Command{
	Use:       "completion [bash|zsh|fish|powershell]",
	Short:     "Generate shell completion scripts",
	Long:      `Generate shell completion scripts for windsync commands and flags.`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletionV2(out, true)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

// logLevels are the values accepted by --log-level.
var logLevels = []string{"debug", "info", "warn", "error"}

// registerFlagCompletions teaches the shell what the project flags accept:
// config files are YAML, roots and output directories are directories.
func registerFlagCompletions() {
	yamlFiles := func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
	}
	dirs := func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveFilterDirs
	}
	engineConfig := func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{engine.DefaultConfigFile, "false"}, cobra.ShellCompDirectiveDefault
	}

	_ = rootCmd.RegisterFlagCompletionFunc("config", yamlFiles)
	_ = rootCmd.RegisterFlagCompletionFunc("engine-config", engineConfig)
	_ = rootCmd.RegisterFlagCompletionFunc("root", dirs)
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", cobra.FixedCompletions(logLevels, cobra.ShellCompDirectiveNoFileComp))
	_ = buildCmd.RegisterFlagCompletionFunc("out-dir", dirs)
}
