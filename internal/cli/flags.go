package cli

import (
	"errors"
	"strings"

	"github.com/picklr-io/switcher/internal/ir"
	"github.com/picklr-io/switcher/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// formatValue is a pflag.Value restricted to the known log formats.
type formatValue logging.Format

var _ pflag.Value = (*formatValue)(nil)

func (f *formatValue) String() string { return string(*f) }

func (f *formatValue) Set(s string) error {
	parsed, err := logging.ParseFormat(s)
	if err != nil {
		return err
	}
	*f = formatValue(parsed)
	return nil
}

func (f *formatValue) Type() string { return "format" }

// runFlags are shared by every command that plans a run.
type runFlags struct {
	flake      string
	host       string
	users      []string
	onlySystem bool
	onlyUser   bool
	keepFailed bool
}

var pipelineFlags runFlags

func addRunFlags(cmd *cobra.Command, withExecute bool) {
	f := cmd.Flags()
	f.StringVar(&pipelineFlags.flake, "flake", "", "Flake to deploy, e.g. github:owner/repo/branch (no fragment; a full commit id in ?ref= is used as-is)")
	f.StringVarP(&pipelineFlags.host, "host", "H", "", "Host configuration to build instead of this machine's hostname")
	f.StringArrayVarP(&pipelineFlags.users, "user", "U", nil, "User whose home configuration to build (repeatable)")
	f.BoolVar(&pipelineFlags.onlySystem, "only-system", false, "Skip the home-manager configurations")
	f.BoolVar(&pipelineFlags.onlyUser, "only-user", false, "Skip the NixOS system configuration")
	cmd.MarkFlagsMutuallyExclusive("only-system", "only-user")
	if withExecute {
		f.BoolVar(&pipelineFlags.keepFailed, "keep-failed", false, "Keep the temporary directory when a step fails")
	}
}

// apply overlays the flags that were set on cfg.
func (r *runFlags) apply(flags *pflag.FlagSet, cfg *ir.Config) error {
	if flags.Changed("flake") {
		cfg.Flake = r.flake
	}
	if flags.Changed("host") {
		cfg.Host = r.host
	}
	if flags.Changed("user") {
		cfg.Users = nil
		for _, u := range r.users {
			for _, part := range strings.Split(u, ",") {
				if part = strings.TrimSpace(part); part != "" {
					cfg.Users = append(cfg.Users, part)
				}
			}
		}
		if len(cfg.Users) == 0 {
			return errors.New("--user must name at least one user")
		}
	}

	off := false
	if r.onlySystem {
		cfg.Activators.User = &off
	}
	if r.onlyUser {
		cfg.Activators.System = &off
	}
	if flags.Changed("keep-failed") {
		cfg.KeepFailed = r.keepFailed
	}
	return nil
}
