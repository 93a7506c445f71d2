package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/guildsync/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the workspace declaration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := v.GetString("workspace")
		ws, err := config.Load(path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s is valid\n", path)
		fmt.Fprintf(out, "  guild:        %s\n", ws.GuildID)
		fmt.Fprintf(out, "  courses:      %d (voice: %t)\n", len(ws.Courses.Catalog), ws.Courses.Voice)
		fmt.Fprintf(out, "  clubs:        %d\n", len(ws.Clubs))
		fmt.Fprintf(out, "  verification: %t\n", ws.Verification.Enabled)

		roles, _ := strategies(ws)
		fmt.Fprintln(out, "  strategies:")
		for _, s := range roles {
			fmt.Fprintf(out, "    %-13s prefix %q priority %d\n", s.Name(), s.Prefix(), s.Priority())
		}
		return nil
	},
}
