package storage

import (
	"errors"

	"github.com/cuemby/guildsync/pkg/types"
)

// ErrNotFound is returned when a pass report does not exist
var ErrNotFound = errors.New("pass not found")

// Store keeps the history of reconciliation passes
type Store interface {
	// SavePass records a finished pass
	SavePass(report *types.PassReport) error

	// ListPasses returns the most recent passes of a family, newest first.
	// An empty family lists every family. limit <= 0 means no limit.
	ListPasses(family types.Family, limit int) ([]*types.PassReport, error)

	// GetPass returns one pass by ID
	GetPass(id string) (*types.PassReport, error)

	Close() error
}
