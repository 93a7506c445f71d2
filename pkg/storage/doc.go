/*
Package storage records the history of reconciliation passes in BoltDB.

Each family has its own bucket. Keys are the big-endian start time followed by
the pass ID, so a cursor walks a bucket chronologically and listing newest
first is a reverse scan. Values are the JSON-encoded types.PassReport.

	guildsync.db
	├── passes_roles
	│   └── <started_at><id> → PassReport
	└── passes_channels
	    └── <started_at><id> → PassReport

SavePass prunes the oldest passes of a family beyond the retention
(DefaultRetention unless configured). The history is informational: nothing
in a pass reads it, so losing the file only loses the record.

The database file is locked by the process that opens it. Opening it a second
time fails after one second instead of waiting, which is what the history
command reports while the daemon runs.
*/
package storage
