// Package client is a small HTTP client for the guildsync admin API, used by
// the CLI to talk to a running daemon.
package client
