package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// Config carries settings shared by all subcommands.
type Config struct {
	Addr   string
	LogLvl string
}

// BuildRootCmd is a convenience for help-only fallbacks.
func BuildRootCmd() *cobra.Command {
	return buildRootCmdWith(&Config{Addr: envStr("EVALD_ADDR", "http://127.0.0.1:8090"), LogLvl: "info"})
}

// buildRootCmdWith constructs the Cobra command tree.
func buildRootCmdWith(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "evalctl",
		Short:         "Drive LLM evaluation runs against an evald daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags -> Config
	root.PersistentFlags().String("addr", cfg.Addr, "Base URL of the evald daemon (defaults EVALD_ADDR or http://127.0.0.1:8090)")
	root.PersistentFlags().String("log-level", cfg.LogLvl, "Log level: debug|info|warn|error (defaults EVALCTL_LOG_LEVEL or info)")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if f := cmd.InheritedFlags().Lookup("addr"); f != nil {
			if v := f.Value.String(); v != "" {
				cfg.Addr = v
			}
		}
		if f := cmd.InheritedFlags().Lookup("log-level"); f != nil {
			if v := f.Value.String(); v != "" {
				cfg.LogLvl = v
			}
		}
		SetLogLevel(cfg.LogLvl)
	}

	root.AddCommand(newRunCmd(cfg))
	root.AddCommand(newTasksCmd(cfg))
	root.AddCommand(newModelsCmd(cfg))
	root.AddCommand(newResultsCmd(cfg))
	root.AddCommand(newStatusCmd(cfg))

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(os.Stdout, true) }})
	root.AddCommand(completionCmd)

	return root
}

// Execute runs the CLI and returns a process exit code.
func Execute() int {
	root := BuildRootCmd()
	if err := root.Execute(); err != nil {
		warn("%v", err)
		return 1
	}
	return 0
}
