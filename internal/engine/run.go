package engine

import (
	"context"

	"github.com/picklr-io/switcher/internal/ir"
	"github.com/picklr-io/switcher/internal/logging"
	"github.com/picklr-io/switcher/internal/state"
)

// RunOptions selects what a run does.
type RunOptions struct {
	// Command is recorded with the deployment ("switch", "build").
	Command   string
	BuildOnly bool
}

// Result is everything a run produced. Fields are nil for phases that were not reached.
type Result struct {
	Facts      *ir.Facts
	Plan       *ir.BuildPlan
	Deployment *ir.Deployment
}

// Run performs gather, plan and execute. A gather or tool failure returns
// before any command is issued. Once execution starts, the run is recorded to
// History; the history lock is held for the whole run.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	base, err := e.config.FlakeRef()
	if err != nil {
		return nil, err
	}

	if e.History != nil {
		if err := e.History.Lock(ctx); err != nil {
			return nil, err
		}
		defer func() {
			if err := e.History.Unlock(ctx); err != nil {
				logging.Warn("failed to release history lock", "error", err)
			}
		}()
	}

	result := &Result{}
	facts, err := e.Gather(ctx, base, GatherOptions{})
	if err != nil {
		return result, err
	}
	result.Facts = facts

	if err := CheckTools(facts); err != nil {
		return result, err
	}

	plan, err := e.CreatePlan(base, facts, PlanOptions{BuildOnly: opts.BuildOnly})
	if err != nil {
		return result, err
	}
	result.Plan = plan

	deployment := &ir.Deployment{
		ID:         e.newID(),
		Command:    opts.Command,
		StartedAt:  e.now().UTC(),
		Host:       plan.Host,
		User:       facts.System.Username,
		Flake:      base.Clone(),
		Commit:     plan.Commit,
		Buildables: plan.BuildableStrings(),
	}
	result.Deployment = deployment

	steps, err := e.Execute(ctx, plan)
	deployment.Steps = steps
	deployment.FinishedAt = e.now().UTC()
	deployment.Status = ir.DeploymentSucceeded
	if err != nil {
		deployment.Status = ir.DeploymentFailed
		deployment.Error = err.Error()
	}

	e.record(ctx, deployment)
	logging.Info("run finished", "id", deployment.ID, "status", deployment.Status)
	return result, err
}

func (e *Engine) record(ctx context.Context, d *ir.Deployment) {
	if e.History == nil {
		return
	}
	if err := state.Append(context.WithoutCancel(ctx), e.History, d); err != nil {
		logging.Warn("failed to record deployment", "id", d.ID, "error", err)
	}
}
