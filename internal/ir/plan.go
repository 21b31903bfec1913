package ir

import "github.com/picklr-io/switcher/internal/flake"

// BuildableKind tells user and system build targets apart.
type BuildableKind string

const (
	BuildableHome   BuildableKind = "home"
	BuildableSystem BuildableKind = "system"
)

// Buildable is one pinned flake reference whose fragment names a build output.
type Buildable struct {
	Kind BuildableKind
	User string // empty for the system buildable
	Ref  *flake.Ref
}

func (b *Buildable) String() string {
	return b.Ref.String()
}

// BuildPlan is the resolved work for one run.
type BuildPlan struct {
	// Base is the flake reference pinned to Commit, without a fragment.
	Base   *flake.Ref
	Commit string
	Host   string
	Users  []string

	SystemEnabled bool
	UserEnabled   bool

	// Homes holds one activation package per user, in configured order.
	Homes []*Buildable
	// System is nil when the system activator is off or the host is not NixOS.
	System *Buildable

	// SwitchUser is the user whose home configuration gets activated; empty skips the user switch.
	SwitchUser string

	TempDir string
	OutLink string

	Steps []*Step
}

// Buildables lists every target in plan order: homes first, then the system.
func (p *BuildPlan) Buildables() []*Buildable {
	out := make([]*Buildable, 0, len(p.Homes)+1)
	out = append(out, p.Homes...)
	if p.System != nil {
		out = append(out, p.System)
	}
	return out
}

// BuildableStrings renders Buildables as flake reference strings.
func (p *BuildPlan) BuildableStrings() []string {
	var out []string
	for _, b := range p.Buildables() {
		out = append(out, b.String())
	}
	return out
}

// StepName identifies a step of the execute phase.
type StepName string

const (
	StepBuild        StepName = "build"
	StepSystemSwitch StepName = "system-switch"
	StepUserSwitch   StepName = "user-switch"
	StepCleanup      StepName = "cleanup"
)

// Step is one external command of the execute phase.
type Step struct {
	Name    StepName
	Program string
	Args    []string
}
