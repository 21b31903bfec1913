package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/picklr-io/switcher/internal/flake"
	"github.com/picklr-io/switcher/internal/ir"
	"github.com/picklr-io/switcher/internal/logging"
)

// ErrNothingToBuild is returned when the activators and host leave no
// buildable target.
var ErrNothingToBuild = errors.New("nothing to build: both activators are off or not applicable on this host")

// PlanOptions tunes which steps a plan contains.
type PlanOptions struct {
	// BuildOnly drops both switch steps.
	BuildOnly bool
}

// CreatePlan pins base to the gathered commit and derives the buildables and
// execute-phase steps. It has no side effects.
func (e *Engine) CreatePlan(base *flake.Ref, facts *ir.Facts, opts PlanOptions) (*ir.BuildPlan, error) {
	host := e.config.Host
	if host == "" {
		host = facts.System.Hostname
	}
	if host == "" {
		return nil, errors.New("hostname is empty; set 'host' or pass --host")
	}

	users := slices.Clone(e.config.Users)
	if len(users) == 0 {
		users = []string{facts.System.Username}
	}

	pinned, err := base.Clone().SetCommitID(facts.Commit)
	if err != nil {
		return nil, err
	}

	plan := &ir.BuildPlan{
		Base:          pinned,
		Commit:        facts.Commit,
		Host:          host,
		Users:         users,
		SystemEnabled: e.config.Activators.SystemEnabled(),
		UserEnabled:   e.config.Activators.UserEnabled(),
		TempDir:       facts.System.TempDir,
	}
	if plan.TempDir != "" {
		plan.OutLink = filepath.Join(plan.TempDir, "result")
	}

	if plan.UserEnabled {
		for _, user := range users {
			plan.Homes = append(plan.Homes, &ir.Buildable{
				Kind: ir.BuildableHome,
				User: user,
				Ref:  pinned.WithFragment(HomeFragment(user, host)),
			})
		}

		current := facts.System.Username
		if slices.Contains(users, current) {
			plan.SwitchUser = current
		} else {
			logging.Warn("current user is not among the configured users; skipping user switch",
				"user", current, "users", users)
		}
	}

	switch {
	case !plan.SystemEnabled:
	case !facts.System.IsNixOS:
		logging.Info("host does not run NixOS; skipping system configuration", "host", host)
	default:
		plan.System = &ir.Buildable{
			Kind: ir.BuildableSystem,
			Ref:  pinned.WithFragment(SystemFragment(host)),
		}
	}

	if len(plan.Buildables()) == 0 {
		return nil, ErrNothingToBuild
	}
	plan.Steps = e.steps(plan, opts)

	logging.Info("created plan", "host", host, "buildables", plan.BuildableStrings())
	return plan, nil
}

func (e *Engine) steps(plan *ir.BuildPlan, opts PlanOptions) []*ir.Step {
	var steps []*ir.Step

	args := []string{"build", "--keep-going", "-L"}
	if plan.OutLink != "" {
		args = append(args, "--out-link", plan.OutLink)
	}
	if plan.System != nil {
		args = append(args, plan.System.String())
	}
	for _, home := range plan.Homes {
		args = append(args, home.String())
	}
	steps = append(steps, &ir.Step{Name: ir.StepBuild, Program: e.config.Tools.Build, Args: args})

	if !opts.BuildOnly {
		if plan.System != nil {
			steps = append(steps, &ir.Step{
				Name:    ir.StepSystemSwitch,
				Program: e.config.Tools.System,
				Args:    []string{"switch", "--use-remote-sudo", "--flake", plan.Base.WithFragment(plan.Host).String()},
			})
		}
		if plan.SwitchUser != "" {
			target := fmt.Sprintf("%s@%s", plan.SwitchUser, plan.Host)
			steps = append(steps, &ir.Step{
				Name:    ir.StepUserSwitch,
				Program: e.config.Tools.User,
				Args:    []string{"switch", "--flake", plan.Base.WithFragment(target).String()},
			})
		}
	}

	if plan.TempDir != "" {
		steps = append(steps, &ir.Step{Name: ir.StepCleanup, Program: "rm", Args: []string{"-rf", plan.TempDir}})
	}
	return steps
}
