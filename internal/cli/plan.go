package cli

import (
	"fmt"

	"github.com/picklr-io/switcher/internal/config"
	"github.com/picklr-io/switcher/internal/engine"
	"github.com/spf13/cobra"
)

var planBuildOnly bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what a switch would build and run",
	Long: `Resolves the latest commit and gathers the host facts, then prints the
pinned buildables and the commands a switch would run. Nothing is built,
switched or recorded.`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	addRunFlags(planCmd, false)
	planCmd.Flags().BoolVar(&planBuildOnly, "build-only", false, "Plan a build without switching")
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	eng, err := newEngine(ctx, cfg, false)
	if err != nil {
		return err
	}

	base, err := cfg.FlakeRef()
	if err != nil {
		return err
	}

	facts, err := eng.Gather(ctx, base, engine.GatherOptions{SkipTempDir: true})
	if err != nil {
		return err
	}
	if err := engine.CheckTools(facts); err != nil {
		return err
	}

	plan, err := eng.CreatePlan(base, facts, engine.PlanOptions{BuildOnly: planBuildOnly})
	if err != nil {
		return fmt.Errorf("plan generation failed: %w", err)
	}

	renderPlan(plan)
	return nil
}
