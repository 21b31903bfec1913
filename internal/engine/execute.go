package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/picklr-io/switcher/internal/ir"
	"github.com/picklr-io/switcher/internal/logging"
)

// Execute runs the plan's steps in order and stops at the first failure. The
// cleanup step always runs once execution starts, except that a failed run
// keeps its temporary directory when KeepFailed is configured.
func (e *Engine) Execute(ctx context.Context, plan *ir.BuildPlan) (results []*ir.StepResult, err error) {
	var cleanup *ir.Step
	var work []*ir.Step
	for _, step := range plan.Steps {
		if step.Name == ir.StepCleanup {
			cleanup = step
			continue
		}
		work = append(work, step)
	}

	if cleanup != nil {
		defer func() {
			res, cerr := e.cleanup(ctx, plan, cleanup, err != nil)
			results = append(results, res)
			if err == nil {
				err = cerr
			} else if cerr != nil {
				logging.Warn("cleanup after failed run also failed", "temp", plan.TempDir, "error", cerr)
			}
		}()
	}

	for i, step := range work {
		res, serr := e.runStep(ctx, step)
		results = append(results, res)
		if serr != nil {
			for _, skipped := range work[i+1:] {
				results = append(results, &ir.StepResult{Name: skipped.Name, Status: ir.StatusSkipped})
				e.emit(StepEvent{Step: skipped.Name, Status: ir.StatusSkipped})
			}
			return results, serr
		}
	}
	return results, nil
}

func (e *Engine) runStep(ctx context.Context, step *ir.Step) (*ir.StepResult, error) {
	start := time.Now()
	logging.Info("running step", "step", step.Name, "program", step.Program)
	logging.Debug("step arguments", "step", step.Name, "args", step.Args)
	e.emit(StepEvent{Step: step.Name, Status: ir.StatusStarted})

	err := e.system.Run(ctx, step.Program, step.Args...)
	elapsed := time.Since(start)
	if err != nil {
		err = fmt.Errorf("%s step failed: %w", step.Name, err)
		e.emit(StepEvent{Step: step.Name, Status: ir.StatusFailed, Duration: elapsed, Error: err})
		return &ir.StepResult{Name: step.Name, Status: ir.StatusFailed, Duration: elapsed, Error: err.Error()}, err
	}

	logging.Info("step completed", "step", step.Name, "duration", elapsed)
	e.emit(StepEvent{Step: step.Name, Status: ir.StatusCompleted, Duration: elapsed})
	return &ir.StepResult{Name: step.Name, Status: ir.StatusCompleted, Duration: elapsed}, nil
}

func (e *Engine) cleanup(ctx context.Context, plan *ir.BuildPlan, step *ir.Step, failed bool) (*ir.StepResult, error) {
	if failed && e.config.KeepFailed {
		logging.Warn("keeping temporary directory of failed run", "temp", plan.TempDir)
		e.emit(StepEvent{Step: step.Name, Status: ir.StatusRetained})
		return &ir.StepResult{Name: step.Name, Status: ir.StatusRetained}, nil
	}

	start := time.Now()
	e.emit(StepEvent{Step: step.Name, Status: ir.StatusStarted})

	// A cancelled run still removes its directory.
	err := e.system.RemoveAll(context.WithoutCancel(ctx), plan.TempDir)
	elapsed := time.Since(start)
	if err != nil {
		err = fmt.Errorf("%s step failed: %w", step.Name, err)
		e.emit(StepEvent{Step: step.Name, Status: ir.StatusFailed, Duration: elapsed, Error: err})
		return &ir.StepResult{Name: step.Name, Status: ir.StatusFailed, Duration: elapsed, Error: err.Error()}, err
	}

	logging.Debug("removed temporary directory", "temp", plan.TempDir)
	e.emit(StepEvent{Step: step.Name, Status: ir.StatusCompleted, Duration: elapsed})
	return &ir.StepResult{Name: step.Name, Status: ir.StatusCompleted, Duration: elapsed}, nil
}
