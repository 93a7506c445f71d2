package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/guildsync/pkg/client"
	"github.com/cuemby/guildsync/pkg/storage"
	"github.com/cuemby/guildsync/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded reconciliation passes",
	Long: `History lists the passes recorded in the data directory, newest first.
The database is locked while the daemon runs; pass --remote to read the
history from the daemon's admin API instead.`,
	PreRun: func(cmd *cobra.Command, args []string) {
		bindLocal(cmd, "http.addr", "http-addr")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		family, _ := cmd.Flags().GetString("family")
		limit, _ := cmd.Flags().GetInt("limit")

		if remote, _ := cmd.Flags().GetBool("remote"); remote {
			passes, err := client.NewClient(v.GetString("http.addr")).ListPasses(cmd.Context(), types.Family(family), limit)
			if err != nil {
				return err
			}
			return printPasses(cmd.OutOrStdout(), passes)
		}

		store, err := storage.NewBoltStore(v.GetString("data_dir"), 0)
		if err != nil {
			return err
		}
		defer store.Close()

		passes, err := store.ListPasses(types.Family(family), limit)
		if err != nil {
			return err
		}
		return printPasses(cmd.OutOrStdout(), passes)
	},
}

func init() {
	historyCmd.Flags().String("family", "", "Only list passes of one family (roles, channels)")
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of passes")
	historyCmd.Flags().Bool("remote", false, "Read the history from a running daemon")
	historyCmd.Flags().String("http-addr", "127.0.0.1:9090", "Admin API address of the daemon")
}

func printPasses(out io.Writer, passes []*types.PassReport) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFAMILY\tSTARTED\tDURATION\tCHANGES\tFAILURES\tRESULT")
	for _, p := range passes {
		id := p.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			id,
			p.Family,
			p.StartedAt.Local().Format(time.DateTime),
			p.Duration().Round(time.Millisecond),
			p.Changes(),
			p.Failures,
			p.Result(),
		)
	}
	return w.Flush()
}
