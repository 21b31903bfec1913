package cli

import (
	"context"

	"github.com/picklr-io/switcher/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbosity  int
	quiet      bool
	logFormat  = formatValue(logging.FormatCompact)
	configPath string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "switcher",
	Short: "Build and activate NixOS and home-manager configurations from a pinned flake",
	Long: `Switcher builds and activates the NixOS system configuration and the
home-manager configurations of a host from a flake hosted on GitHub.

Every run:
  • resolves the latest commit of the configured branch
  • pins the flake to that commit, so build and switch see the same sources
  • builds all configurations in one build tool invocation
  • switches the system, then the current user`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(logging.LevelFromVerbosity(verbosity, quiet), logging.Format(logFormat))
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&verbosity, "verbose", "v", "Increase log verbosity")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")
	flags.Var(&logFormat, "format", "Log format (compact, pretty, json)")
	flags.StringVarP(&configPath, "config", "c", "", "Config file to use instead of the discovered ones")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.AddCommand(switchCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
