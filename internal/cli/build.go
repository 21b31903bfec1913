package cli

import (
	"github.com/picklr-io/switcher/internal/engine"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the latest configuration without activating it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd, engine.RunOptions{Command: "build", BuildOnly: true})
	},
}

func init() {
	addRunFlags(buildCmd, true)
}
