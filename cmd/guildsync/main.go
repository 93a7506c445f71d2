package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/guildsync/pkg/config"
	"github.com/cuemby/guildsync/pkg/log"
	"github.com/cuemby/guildsync/pkg/metrics"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var v = config.NewViper()

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "guildsync",
	Short: "guildsync - keep a Discord guild in line with its declaration",
	Long: `guildsync reconciles the categories, channels, roles and channel
permissions of one Discord guild against a declared workspace: a course
catalog, a list of clubs and an optional verification gate.

Entities outside the prefixes guildsync owns are never touched.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Init(log.Config{
			Level:      log.Level(v.GetString("log.level")),
			JSONOutput: v.GetBool("log.json"),
			Output:     os.Stderr,
		})
		metrics.SetVersion(Version)
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"guildsync version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	flags := rootCmd.PersistentFlags()
	flags.StringP("workspace", "w", "workspace.yaml", "Workspace declaration (.yaml or .toml)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Write logs as JSON")
	flags.String("data-dir", "./guildsync-data", "Directory of the pass history database")
	_ = v.BindPFlag("workspace", flags.Lookup("workspace"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log.json", flags.Lookup("log-json"))
	_ = v.BindPFlag("data_dir", flags.Lookup("data-dir"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(versionCmd)
}

// bindLocal lets a command flag override the environment and the defaults
func bindLocal(cmd *cobra.Command, key, name string) {
	_ = v.BindPFlag(key, cmd.Flags().Lookup(name))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("guildsync %s (commit %s, built %s)\n", Version, Commit, BuildTime)
	},
}

// loadAll reads the runtime settings and the workspace declaration
func loadAll() (*config.Settings, *config.Workspace, error) {
	settings, err := config.LoadSettings(v)
	if err != nil {
		return nil, nil, err
	}
	ws, err := config.Load(settings.Workspace)
	if err != nil {
		return nil, nil, err
	}
	return settings, ws, nil
}
