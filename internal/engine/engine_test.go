package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/picklr-io/switcher/internal/flake"
	"github.com/picklr-io/switcher/internal/ir"
	"github.com/picklr-io/switcher/internal/state"
	"github.com/picklr-io/switcher/internal/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver struct {
	commit string
	err    error
}

func (r staticResolver) Resolve(context.Context, *flake.Ref) (string, error) {
	return r.commit, r.err
}

func allTools() map[string]string {
	return map[string]string{
		"nom":           "/bin/nom",
		"nixos-rebuild": "/bin/nixos-rebuild",
		"home-manager":  "/bin/home-manager",
		"gh":            "/bin/gh",
	}
}

func newFake() *system.Fake {
	return &system.Fake{
		Host:  "nixos1",
		User:  "alice",
		Temp:  "/tmp/tmp.abc",
		NixOS: true,
		Tools: allTools(),
	}
}

func newConfig() *ir.Config {
	cfg := ir.DefaultConfig()
	cfg.Flake = "github:o/r"
	cfg.Users = []string{"alice", "bob"}
	return cfg
}

func newTestEngine(fake *system.Fake, cfg *ir.Config) *Engine {
	e := NewEngine(fake, staticResolver{commit: "abc"}, cfg)
	e.newID = func() string { return "deploy-1" }
	e.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestEngine_Buildables(t *testing.T) {
	fake := newFake()
	e := newTestEngine(fake, newConfig())
	base := flake.MustParse("github:o/r")

	facts, err := e.Gather(context.Background(), base, GatherOptions{})
	require.NoError(t, err)
	plan, err := e.CreatePlan(base, facts, PlanOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"github:o/r?ref=abc#homeConfigurations.alice@nixos1.activationPackage",
		"github:o/r?ref=abc#homeConfigurations.bob@nixos1.activationPackage",
		"github:o/r?ref=abc#nixosConfigurations.nixos1.config.system.build.toplevel",
	}, plan.BuildableStrings())
	assert.Equal(t, "github:o/r?ref=abc", plan.Base.String())
	assert.Equal(t, "github:o/r", base.String())
	assert.Empty(t, fake.Commands())
}

func TestEngine_RunSwitch(t *testing.T) {
	fake := newFake()
	var events []StepEvent
	e := newTestEngine(fake, newConfig())
	e.OnStep = func(ev StepEvent) { events = append(events, ev) }

	result, err := e.Run(context.Background(), RunOptions{Command: "switch"})
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"nom", "build", "--keep-going", "-L", "--out-link", "/tmp/tmp.abc/result",
			"github:o/r?ref=abc#nixosConfigurations.nixos1.config.system.build.toplevel",
			"github:o/r?ref=abc#homeConfigurations.alice@nixos1.activationPackage",
			"github:o/r?ref=abc#homeConfigurations.bob@nixos1.activationPackage"},
		{"nixos-rebuild", "switch", "--use-remote-sudo", "--flake", "github:o/r?ref=abc#nixos1"},
		{"home-manager", "switch", "--flake", "github:o/r?ref=abc#alice@nixos1"},
		{"rm", "-rf", "/tmp/tmp.abc"},
	}, fake.Commands())

	d := result.Deployment
	require.NotNil(t, d)
	assert.Equal(t, "deploy-1", d.ID)
	assert.Equal(t, ir.DeploymentSucceeded, d.Status)
	assert.Equal(t, "abc", d.Commit)
	assert.Len(t, d.Steps, 4)

	var completed []ir.StepName
	for _, ev := range events {
		if ev.Status == ir.StatusCompleted {
			completed = append(completed, ev.Step)
		}
	}
	assert.Equal(t, []ir.StepName{ir.StepBuild, ir.StepSystemSwitch, ir.StepUserSwitch, ir.StepCleanup}, completed)
}

func TestEngine_MissingBuildToolIsFatal(t *testing.T) {
	fake := newFake()
	delete(fake.Tools, "nom")

	result, err := newTestEngine(fake, newConfig()).Run(context.Background(), RunOptions{Command: "switch"})
	require.Error(t, err)

	var missing *MissingToolsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"nom"}, missing.Tools)
	assert.Contains(t, err.Error(), "nom")
	assert.Empty(t, fake.Commands())
	assert.Nil(t, result.Deployment)
}

func TestEngine_GatherFailureIssuesNoCommands(t *testing.T) {
	tests := []struct {
		name string
		fake func(*system.Fake)
		res  staticResolver
	}{
		{name: "hostname", fake: func(f *system.Fake) { f.Errors = map[string]error{"hostname": errors.New("boom")} }, res: staticResolver{commit: "abc"}},
		{name: "mktemp", fake: func(f *system.Fake) { f.Errors = map[string]error{"mktemp": errors.New("boom")} }, res: staticResolver{commit: "abc"}},
		{name: "which", fake: func(f *system.Fake) { f.Errors = map[string]error{"which:nom": errors.New("boom")} }, res: staticResolver{commit: "abc"}},
		{name: "resolver", fake: func(*system.Fake) {}, res: staticResolver{err: errors.New("rate limited")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake()
			tt.fake(fake)
			e := NewEngine(fake, tt.res, newConfig())

			_, err := e.Run(context.Background(), RunOptions{Command: "switch"})
			require.Error(t, err)
			assert.Empty(t, fake.Commands())
		})
	}
}

func TestEngine_BuildFailureStopsAndCleansUp(t *testing.T) {
	fake := newFake()
	fake.Errors = map[string]error{"run:nom": &system.CommandError{Program: "nom", ExitCode: 1}}

	result, err := newTestEngine(fake, newConfig()).Run(context.Background(), RunOptions{Command: "switch"})
	require.Error(t, err)

	var ce *system.CommandError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"nom", "rm"}, fake.Programs())

	d := result.Deployment
	assert.Equal(t, ir.DeploymentFailed, d.Status)
	require.Len(t, d.Steps, 4)
	assert.Equal(t, ir.StatusFailed, d.Steps[0].Status)
	assert.Equal(t, ir.StatusSkipped, d.Steps[1].Status)
	assert.Equal(t, ir.StatusSkipped, d.Steps[2].Status)
	assert.Equal(t, ir.StepCleanup, d.Steps[3].Name)
	assert.Equal(t, ir.StatusCompleted, d.Steps[3].Status)
}

func TestEngine_KeepFailedRetainsTempDir(t *testing.T) {
	fake := newFake()
	fake.Errors = map[string]error{"run:nixos-rebuild": errors.New("activation failed")}
	cfg := newConfig()
	cfg.KeepFailed = true

	result, err := newTestEngine(fake, cfg).Run(context.Background(), RunOptions{Command: "switch"})
	require.Error(t, err)
	assert.Equal(t, []string{"nom", "nixos-rebuild"}, fake.Programs())

	steps := result.Deployment.Steps
	assert.Equal(t, ir.StatusRetained, steps[len(steps)-1].Status)
}

func TestEngine_CleanupFailureOnSuccessfulRun(t *testing.T) {
	fake := newFake()
	fake.Errors = map[string]error{"run:rm": errors.New("busy")}

	_, err := newTestEngine(fake, newConfig()).Run(context.Background(), RunOptions{Command: "switch"})
	assert.ErrorContains(t, err, "cleanup step failed")
}

func TestEngine_NonNixOSHost(t *testing.T) {
	fake := newFake()
	fake.NixOS = false
	delete(fake.Tools, "nixos-rebuild")

	result, err := newTestEngine(fake, newConfig()).Run(context.Background(), RunOptions{Command: "switch"})
	require.NoError(t, err)

	assert.Nil(t, result.Plan.System)
	assert.Equal(t, []string{"nom", "home-manager", "rm"}, fake.Programs())
}

func TestEngine_MissingSystemToolOnNixOSIsFatal(t *testing.T) {
	fake := newFake()
	delete(fake.Tools, "nixos-rebuild")

	_, err := newTestEngine(fake, newConfig()).Run(context.Background(), RunOptions{Command: "switch"})
	var missing *MissingToolsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"nixos-rebuild"}, missing.Tools)
}

func TestEngine_ActivatorGating(t *testing.T) {
	off := false

	t.Run("user off", func(t *testing.T) {
		fake := newFake()
		delete(fake.Tools, "home-manager")
		cfg := newConfig()
		cfg.Activators.User = &off

		result, err := newTestEngine(fake, cfg).Run(context.Background(), RunOptions{Command: "switch"})
		require.NoError(t, err)
		assert.Empty(t, result.Plan.Homes)
		assert.Equal(t, []string{"nom", "nixos-rebuild", "rm"}, fake.Programs())
	})

	t.Run("system off", func(t *testing.T) {
		fake := newFake()
		cfg := newConfig()
		cfg.Activators.System = &off

		result, err := newTestEngine(fake, cfg).Run(context.Background(), RunOptions{Command: "switch"})
		require.NoError(t, err)
		assert.Nil(t, result.Plan.System)
		assert.Equal(t, []string{"nom", "home-manager", "rm"}, fake.Programs())
	})

	t.Run("both off", func(t *testing.T) {
		fake := newFake()
		cfg := newConfig()
		cfg.Activators.System = &off
		cfg.Activators.User = &off

		result, err := newTestEngine(fake, cfg).Run(context.Background(), RunOptions{Command: "switch"})
		require.ErrorIs(t, err, ErrNothingToBuild)
		assert.Nil(t, result.Plan)
		assert.Nil(t, result.Deployment)
		assert.Empty(t, fake.Commands())
	})

	t.Run("user off on a non-NixOS host", func(t *testing.T) {
		fake := newFake()
		fake.NixOS = false
		cfg := newConfig()
		cfg.Activators.User = &off

		result, err := newTestEngine(fake, cfg).Run(context.Background(), RunOptions{Command: "switch"})
		require.ErrorIs(t, err, ErrNothingToBuild)
		assert.Nil(t, result.Deployment)
		assert.Empty(t, fake.Commands())
	})
}

func TestEngine_CreatePlanRejectsEmptyPlan(t *testing.T) {
	off := false
	fake := newFake()
	fake.NixOS = false
	cfg := newConfig()
	cfg.Activators.User = &off
	e := newTestEngine(fake, cfg)
	base := flake.MustParse("github:o/r")

	facts, err := e.Gather(context.Background(), base, GatherOptions{})
	require.NoError(t, err)

	plan, err := e.CreatePlan(base, facts, PlanOptions{})
	require.ErrorIs(t, err, ErrNothingToBuild)
	assert.Nil(t, plan)
}

func TestEngine_BuildOnly(t *testing.T) {
	fake := newFake()
	_, err := newTestEngine(fake, newConfig()).Run(context.Background(), RunOptions{Command: "build", BuildOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"nom", "rm"}, fake.Programs())
}

func TestEngine_UserSwitchTarget(t *testing.T) {
	t.Run("current user not configured", func(t *testing.T) {
		fake := newFake()
		fake.User = "carol"

		result, err := newTestEngine(fake, newConfig()).Run(context.Background(), RunOptions{Command: "switch"})
		require.NoError(t, err)
		assert.Empty(t, result.Plan.SwitchUser)
		assert.Len(t, result.Plan.Homes, 2)
		assert.NotContains(t, fake.Programs(), "home-manager")
	})

	t.Run("users default to current user", func(t *testing.T) {
		fake := newFake()
		cfg := newConfig()
		cfg.Users = nil

		result, err := newTestEngine(fake, cfg).Run(context.Background(), RunOptions{Command: "switch"})
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, result.Plan.Users)
		assert.Equal(t, "alice", result.Plan.SwitchUser)
	})
}

func TestEngine_HostOverride(t *testing.T) {
	fake := newFake()
	cfg := newConfig()
	cfg.Host = "laptop"

	result, err := newTestEngine(fake, cfg).Run(context.Background(), RunOptions{Command: "switch"})
	require.NoError(t, err)
	assert.Equal(t, "laptop", result.Plan.Host)
	assert.Contains(t, fake.Commands()[1], "github:o/r?ref=abc#laptop")
}

func TestEngine_RequiredTools(t *testing.T) {
	e := newTestEngine(newFake(), newConfig())
	e.ExtraTools = []string{"gh", "nom"}
	assert.Equal(t, []string{"nom", "gh", "home-manager", "nixos-rebuild"}, e.RequiredTools())
}

func TestEngine_RecordsHistory(t *testing.T) {
	fake := newFake()
	mgr := state.NewManager(filepath.Join(t.TempDir(), "history.yaml"))
	e := newTestEngine(fake, newConfig())
	e.History = mgr

	_, err := e.Run(context.Background(), RunOptions{Command: "switch"})
	require.NoError(t, err)

	fake.Errors = map[string]error{"run:nom": errors.New("boom")}
	_, err = e.Run(context.Background(), RunOptions{Command: "build", BuildOnly: true})
	require.Error(t, err)

	h, err := mgr.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, h.Deployments, 2)
	assert.Equal(t, ir.DeploymentSucceeded, h.Deployments[0].Status)
	assert.Equal(t, "switch", h.Deployments[0].Command)
	require.NotNil(t, h.Deployments[0].Flake)
	assert.Equal(t, "github:o/r", h.Deployments[0].Flake.String())
	assert.Equal(t, ir.DeploymentFailed, h.Deployments[1].Status)
	assert.Contains(t, h.Deployments[1].Error, "boom")
}

func TestEngine_HistoryLockedAbortsBeforeGather(t *testing.T) {
	fake := newFake()
	mgr := state.NewManager(filepath.Join(t.TempDir(), "history.yaml"))
	require.NoError(t, mgr.Lock(context.Background()))

	e := newTestEngine(fake, newConfig())
	e.History = mgr

	_, err := e.Run(context.Background(), RunOptions{Command: "switch"})
	assert.ErrorIs(t, err, state.ErrLocked)
	assert.Empty(t, fake.Commands())
}

func TestEngine_UnsupportedPinScheme(t *testing.T) {
	e := newTestEngine(newFake(), newConfig())
	base := flake.MustParse("sourcehut:~o/r")

	_, err := e.CreatePlan(base, &ir.Facts{Commit: "abc", System: ir.SystemFacts{Hostname: "h", Username: "u"}}, PlanOptions{})
	var unsupported *flake.UnsupportedSchemeError
	assert.True(t, errors.As(err, &unsupported))
}

func TestEngine_MissingToolWinsOverBranchFailure(t *testing.T) {
	fake := newFake()
	delete(fake.Tools, "gh")
	e := NewEngine(fake, staticResolver{err: errors.New("gh: executable file not found")}, newConfig())
	e.ExtraTools = []string{"gh"}

	_, err := e.Gather(context.Background(), flake.MustParse("github:o/r"), GatherOptions{})
	var missing *MissingToolsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"gh"}, missing.Tools)
}
