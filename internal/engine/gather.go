package engine

import (
	"context"
	"slices"

	"github.com/picklr-io/switcher/internal/flake"
	"github.com/picklr-io/switcher/internal/ir"
	"github.com/picklr-io/switcher/internal/logging"
	"golang.org/x/sync/errgroup"
)

// GatherOptions tunes the gather phase.
type GatherOptions struct {
	// SkipTempDir leaves SystemFacts.TempDir empty, for runs that never build.
	SkipTempDir bool
}

type toolCheck struct {
	name  string
	path  string
	found bool
}

// RequiredTools lists the programs a run needs, in check order.
func (e *Engine) RequiredTools() []string {
	tools := []string{e.config.Tools.Build}
	tools = append(tools, e.ExtraTools...)
	if e.config.Activators.UserEnabled() {
		tools = append(tools, e.config.Tools.User)
	}
	if e.config.Activators.SystemEnabled() {
		tools = append(tools, e.config.Tools.System)
	}

	var out []string
	for _, t := range tools {
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// Gather resolves the commit for base and the host facts concurrently. Every
// branch runs to completion; if any fails, Gather fails with the first error
// and no partial facts are returned.
func (e *Engine) Gather(ctx context.Context, base *flake.Ref, opts GatherOptions) (*ir.Facts, error) {
	logging.Debug("gathering facts", "flake", base.String())

	var (
		g       errgroup.Group
		facts   ir.Facts
		sys     = &facts.System
		tools   = e.RequiredTools()
		checked = make([]toolCheck, len(tools))
	)

	g.Go(func() error {
		commit, err := e.resolver.Resolve(ctx, base)
		facts.Commit = commit
		return err
	})
	g.Go(func() error {
		host, err := e.system.Hostname(ctx)
		sys.Hostname = host
		return err
	})
	g.Go(func() error {
		user, err := e.system.Username(ctx)
		sys.Username = user
		return err
	})
	if !opts.SkipTempDir {
		g.Go(func() error {
			dir, err := e.system.TempDir(ctx)
			sys.TempDir = dir
			return err
		})
	}
	g.Go(func() error {
		nixos, err := e.system.IsNixOS(ctx)
		sys.IsNixOS = nixos
		return err
	})
	for i, tool := range tools {
		g.Go(func() error {
			path, found, err := e.system.Which(ctx, tool)
			if err != nil {
				return err
			}
			checked[i] = toolCheck{name: tool, path: path, found: found}
			return nil
		})
	}

	err := g.Wait()

	sys.Tools = make(map[string]string)
	for _, c := range checked {
		switch {
		case c.name == "":
			// lookup failed
		case c.found:
			sys.Tools[c.name] = c.path
		case c.name == e.config.Tools.System && c.name != e.config.Tools.Build && !sys.IsNixOS:
			// The system switch tool only matters where a system gets built.
		default:
			sys.MissingTools = append(sys.MissingTools, c.name)
		}
	}

	if err != nil {
		// A missing tool usually breaks another branch too (no gh, no token);
		// report the precondition rather than its symptom.
		if len(sys.MissingTools) > 0 {
			return nil, &MissingToolsError{Tools: sys.MissingTools}
		}
		return nil, err
	}

	logging.Info("gathered facts",
		"commit", facts.Commit,
		"host", sys.Hostname,
		"user", sys.Username,
		"temp", sys.TempDir,
		"nixos", sys.IsNixOS,
	)
	return &facts, nil
}

// CheckTools turns missing tools into the fatal MissingToolsError.
func CheckTools(facts *ir.Facts) error {
	if len(facts.System.MissingTools) > 0 {
		return &MissingToolsError{Tools: slices.Clone(facts.System.MissingTools)}
	}
	return nil
}
