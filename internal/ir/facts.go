package ir

// SystemFacts is everything the gather phase learns about the local host.
// It is immutable once gathered.
type SystemFacts struct {
	Hostname string `yaml:"hostname"`
	Username string `yaml:"username"`
	// TempDir is owned by the run and removed at the end of the execute phase.
	TempDir string `yaml:"temp_dir"`
	IsNixOS bool   `yaml:"is_nixos"`
	// Tools maps each located program to its path.
	Tools map[string]string `yaml:"tools"`
	// MissingTools lists required programs that were not found, in check order.
	MissingTools []string `yaml:"missing_tools,omitempty"`
}

// Facts bundles the gathered commit with the host facts.
type Facts struct {
	Commit string      `yaml:"commit"`
	System SystemFacts `yaml:"system"`
}
