/*
Package log holds the process-wide zerolog logger.

The logger discards everything until Init is called, so packages can log
freely in tests. Components take a child logger once, at construction:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithComponent("scheduler")
	logger.Info().Dur("interval", cfg.Interval).Msg("Scheduler started")

WithFamily tags a coordinator's logger with its family, WithStrategy tags a
strategy's logger with its name. Console output is the default; JSON output is
meant for log shippers.
*/
package log
