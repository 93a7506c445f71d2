package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/guildsync/pkg/client"
	"github.com/cuemby/guildsync/pkg/types"
)

var syncCmd = &cobra.Command{
	Use:   "sync [roles|channels]",
	Short: "Ask a running daemon to reconcile",
	Long: `Sync asks the daemon listening on --http-addr to run a pass on its next
tick. Without an argument both families are requested.`,
	Args: cobra.MaximumNArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) {
		bindLocal(cmd, "http.addr", "http-addr")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		var family types.Family
		if len(args) == 1 {
			family = types.Family(args[0])
		}

		requested, err := client.NewClient(v.GetString("http.addr")).Sync(cmd.Context(), family)
		if err != nil {
			return err
		}
		for _, f := range requested {
			fmt.Fprintf(cmd.OutOrStdout(), "requested %s\n", f)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().String("http-addr", "127.0.0.1:9090", "Admin API address of the daemon")
}
