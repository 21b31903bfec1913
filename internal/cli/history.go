package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/picklr-io/switcher/internal/ir"
	"github.com/picklr-io/switcher/internal/state"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded deployments",
	Long:  `Lists the most recent switch and build runs, newest first.`,
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of deployments to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output in JSON format")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	backend, err := state.NewBackend(ctx, cfg.History)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	h, err := backend.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	deployments := latest(h.Deployments, historyLimit)

	if historyJSON {
		data, err := json.MarshalIndent(deployments, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(deployments) == 0 {
		fmt.Println("No deployments recorded.")
		return nil
	}
	for _, d := range deployments {
		renderDeployment(d)
	}
	return nil
}

// latest returns up to n deployments, newest first.
func latest(deployments []*ir.Deployment, n int) []*ir.Deployment {
	out := make([]*ir.Deployment, 0, len(deployments))
	for i := len(deployments) - 1; i >= 0; i-- {
		if n > 0 && len(out) == n {
			break
		}
		out = append(out, deployments[i])
	}
	return out
}

func renderDeployment(d *ir.Deployment) {
	color := colorGreen
	if d.Status != ir.DeploymentSucceeded {
		color = colorRed
	}

	commit := d.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}

	fmt.Printf("%s%-9s%s %s  %-6s %s@%s  %s (%s)\n",
		colorize(color), d.Status, colorize(colorReset),
		d.StartedAt.Local().Format(time.DateTime),
		d.Command, d.User, d.Host, commit,
		d.FinishedAt.Sub(d.StartedAt).Round(time.Second))
	if d.Error != "" {
		fmt.Printf("          %s\n", d.Error)
	}
}
