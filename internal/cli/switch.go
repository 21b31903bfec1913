package cli

import (
	"fmt"

	"github.com/picklr-io/switcher/internal/config"
	"github.com/picklr-io/switcher/internal/engine"
	"github.com/spf13/cobra"
)

var switchCmd = &cobra.Command{
	Use:   "switch",
	Short: "Build and activate the latest configuration",
	Long: `Resolves the latest commit of the configured flake, builds the system and
home configurations pinned to it, then switches the system and the current
user to the new generation.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, engine.RunOptions{Command: "switch"})
	},
}

func init() {
	addRunFlags(switchCmd, true)
}

func runPipeline(cmd *cobra.Command, opts engine.RunOptions) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	eng, err := newEngine(ctx, cfg, true)
	if err != nil {
		return err
	}

	result, err := eng.Run(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s%s complete!%s Deployed %s to %s.\n",
		colorize(colorGreen), opts.Command, colorize(colorReset), result.Plan.Base, result.Plan.Host)
	return nil
}
