package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/guildsync/pkg/api"
	"github.com/cuemby/guildsync/pkg/events"
	"github.com/cuemby/guildsync/pkg/log"
	"github.com/cuemby/guildsync/pkg/reconciler"
	"github.com/cuemby/guildsync/pkg/scheduler"
	"github.com/cuemby/guildsync/pkg/storage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the reconciliation daemon",
	Long: `Run connects to the guild, then reconciles roles and channels on
every tick for which a synchronization was requested. Workspace events and
POST /v1/sync on the admin API request synchronization.

Examples:
  # Run against Discord
  GUILDSYNC_DISCORD_TOKEN=... guildsync run -w workspace.yaml

  # Rehearse against an in-memory guild
  guildsync run --gateway memory --interval 2s`,
	PreRun: func(cmd *cobra.Command, args []string) {
		bindLocal(cmd, "gateway", "gateway")
		bindLocal(cmd, "interval", "interval")
		bindLocal(cmd, "startup_delay", "startup-delay")
		bindLocal(cmd, "max_in_flight", "max-in-flight")
		bindLocal(cmd, "request_timeout", "request-timeout")
		bindLocal(cmd, "http.addr", "http-addr")
	},
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().String("gateway", "discord", "Gateway to reconcile (discord, memory)")
	runCmd.Flags().Duration("interval", scheduler.DefaultInterval, "Scheduler tick interval")
	runCmd.Flags().Duration("startup-delay", scheduler.DefaultStartupDelay, "Delay before the first tick")
	runCmd.Flags().Int("max-in-flight", reconciler.DefaultMaxInFlight, "Concurrent writes per phase")
	runCmd.Flags().Duration("request-timeout", 10*time.Second, "Timeout of each remote call")
	runCmd.Flags().String("http-addr", "127.0.0.1:9090", "Admin API listen address")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logger := log.WithComponent("daemon")

	settings, ws, err := loadAll()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(settings.DataDir, 0o750); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := storage.NewBoltStore(settings.DataDir, storage.DefaultRetention)
	if err != nil {
		return err
	}
	defer store.Close()

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	gw, closeGateway, err := openGateway(ctx, settings, ws, broker)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeGateway(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close gateway")
		}
	}()

	roles, channels := coordinators(gw, ws,
		reconciler.WithMaxInFlight(settings.MaxInFlight),
		reconciler.WithRecorder(store),
		reconciler.WithBroker(broker),
	)

	trigger := events.NewTrigger(broker, roles, channels)
	trigger.Start()
	defer trigger.Stop()

	sched := scheduler.New(scheduler.Config{
		Interval:     settings.Interval,
		StartupDelay: settings.StartupDelay,
	}, roles, channels)
	sched.Start(ctx)
	defer sched.Stop()

	server := api.NewServer([]reconciler.Coordinator{roles, channels}, api.WithStore(store))
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(settings.HTTPAddr)
	}()

	logger.Info().
		Str("guild", ws.GuildID).
		Str("gateway", settings.Gateway).
		Int("courses", len(ws.Courses.Catalog)).
		Int("clubs", len(ws.Clubs)).
		Bool("verification", ws.Verification.Enabled).
		Msg("guildsync is running")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutting down")
	case err := <-errCh:
		if err != nil {
			runErr = fmt.Errorf("admin API failed: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Failed to stop admin API")
	}
	return runErr
}
