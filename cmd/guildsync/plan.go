package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/guildsync/pkg/config"
	"github.com/cuemby/guildsync/pkg/reconciler"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what the next passes would change",
	Long: `Plan reads the live guild and prints the writes a role pass and a
channel pass would submit, without writing anything.

Settings updates of entities that do not exist yet only show up once they
have been created, so a fresh guild converges over more than one pass.

Examples:
  # Against the live guild
  guildsync plan -w workspace.yaml

  # Against an empty in-memory guild
  guildsync plan --offline -w workspace.toml`,
	PreRun: func(cmd *cobra.Command, args []string) {
		bindLocal(cmd, "request_timeout", "request-timeout")
	},
	RunE: runPlan,
}

func init() {
	planCmd.Flags().Bool("offline", false, "Plan against an empty in-memory guild")
	planCmd.Flags().Duration("request-timeout", 10*time.Second, "Timeout of each remote call")
}

func runPlan(cmd *cobra.Command, args []string) error {
	if offline, _ := cmd.Flags().GetBool("offline"); offline {
		v.Set("gateway", config.GatewayMemory)
	}
	settings, ws, err := loadAll()
	if err != nil {
		return err
	}

	gw, closeGateway, err := openGateway(cmd.Context(), settings, ws, nil)
	if err != nil {
		return err
	}
	defer closeGateway()

	roles, channels := coordinators(gw, ws)
	for _, c := range []reconciler.Coordinator{roles, channels} {
		preview, err := c.Plan(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to plan %s: %w", c.Family(), err)
		}
		printPreview(cmd.OutOrStdout(), preview)
	}
	return nil
}

func printPreview(w io.Writer, p *reconciler.Preview) {
	fmt.Fprintf(w, "%s:\n", p.Family)
	lines := p.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(w, "  no changes")
		return
	}
	for _, line := range lines {
		fmt.Fprintf(w, "  %s\n", line)
	}
}
