package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/picklr-io/switcher/internal/config"
	"github.com/picklr-io/switcher/internal/credential"
	"github.com/picklr-io/switcher/internal/engine"
	"github.com/picklr-io/switcher/internal/ir"
	"github.com/picklr-io/switcher/internal/logging"
	"github.com/picklr-io/switcher/internal/provider"
	"github.com/picklr-io/switcher/internal/state"
	"github.com/picklr-io/switcher/internal/system"
	"github.com/picklr-io/switcher/providers/git"
	"github.com/picklr-io/switcher/providers/github"
	"github.com/spf13/cobra"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
)

func colorize(code string) string {
	if noColor {
		return ""
	}
	return code
}

// loadConfig loads the layered configuration and applies the command's run flags.
func loadConfig(cmd *cobra.Command) (*ir.Config, error) {
	cfg, files, err := config.Load(cmd.Context(), configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logging.Debug("loaded configuration", "files", files)

	if cmd.Flags().Lookup("flake") != nil {
		if err := pipelineFlags.apply(cmd.Flags(), cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newRegistry registers every compiled-in commit provider.
func newRegistry(ctx context.Context, cfg *ir.Config, runner system.Runner) *provider.Registry {
	registry := provider.NewRegistry()
	registry.Register("github", func() (provider.CommitProvider, error) {
		src, err := credential.New(ctx, cfg.Credentials, runner)
		if err != nil {
			return nil, err
		}
		return github.New(ctx, github.Config{
			Endpoint:  cfg.GitHub.Endpoint,
			UserAgent: "switcher/" + Version,
		}, src)
	})
	for _, scheme := range git.Schemes {
		registry.Register(scheme, func() (provider.CommitProvider, error) {
			return git.New(runner), nil
		})
	}
	return registry
}

// newEngine wires the real system, providers and history backend.
func newEngine(ctx context.Context, cfg *ir.Config, withHistory bool) (*engine.Engine, error) {
	exec := system.NewExec()
	eng := engine.NewEngine(system.New(exec), newRegistry(ctx, cfg, exec), cfg)

	ref, err := cfg.FlakeRef()
	if err != nil {
		return nil, err
	}
	if ref.Scheme() == "github" {
		eng.ExtraTools = credential.RequiredTools(cfg.Credentials)
	}

	if withHistory {
		backend, err := state.NewBackend(ctx, cfg.History)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		eng.History = backend
	}

	eng.OnStep = renderStepEvent
	return eng, nil
}

func renderStepEvent(ev engine.StepEvent) {
	switch ev.Status {
	case ir.StatusStarted:
		fmt.Printf("%s==> %s%s\n", colorize(colorBold), ev.Step, colorize(colorReset))
	case ir.StatusCompleted:
		fmt.Printf("%s==> %s done (%s)%s\n", colorize(colorGreen), ev.Step, ev.Duration.Round(time.Millisecond), colorize(colorReset))
	case ir.StatusFailed:
		fmt.Printf("%s==> %s failed%s\n", colorize(colorRed), ev.Step, colorize(colorReset))
	case ir.StatusSkipped:
		fmt.Printf("%s==> %s skipped%s\n", colorize(colorYellow), ev.Step, colorize(colorReset))
	case ir.StatusRetained:
		fmt.Printf("%s==> %s skipped, temporary directory kept%s\n", colorize(colorYellow), ev.Step, colorize(colorReset))
	}
}

func renderPlan(plan *ir.BuildPlan) {
	fmt.Printf("Flake:  %s\n", plan.Base)
	fmt.Printf("Host:   %s\n", plan.Host)
	fmt.Printf("Users:  %s\n", strings.Join(plan.Users, ", "))

	fmt.Println("\nBuildables:")
	for _, b := range plan.Buildables() {
		fmt.Printf("  %s+%s %s\n", colorize(colorGreen), colorize(colorReset), b)
	}

	fmt.Println("\nSteps:")
	for i, step := range plan.Steps {
		fmt.Printf("  %d. %-13s %s %s\n", i+1, step.Name, step.Program, strings.Join(step.Args, " "))
	}
}

// ExitCode maps an error returned by Execute to the process exit status.
// Missing preconditions exit with 3, everything else with 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if IsFatal(err) {
		return 3
	}
	return 1
}

// IsFatal reports whether err is a missing precondition rather than a failure.
func IsFatal(err error) bool {
	var missing *engine.MissingToolsError
	return errors.As(err, &missing)
}
