// Package gateway defines read and write access to the remote guild.
package gateway

import (
	"context"
	"errors"

	"github.com/cuemby/guildsync/pkg/types"
)

var (
	// ErrNotFound is returned when the addressed remote entity does not exist
	ErrNotFound = errors.New("entity not found")
	// ErrForbidden is returned when the platform refuses the operation
	ErrForbidden = errors.New("operation not permitted")
)

// Reader lists the live state of the workspace. Every call returns fresh
// handles; callers must not keep them beyond one pass.
type Reader interface {
	ListCategories(ctx context.Context) ([]*types.Entity, error)
	ListTextChannels(ctx context.Context) ([]*types.Entity, error)
	ListVoiceChannels(ctx context.Context) ([]*types.Entity, error)
	ListRoles(ctx context.Context) ([]*types.Entity, error)
	ListGrants(ctx context.Context, channel *types.Entity) ([]*types.Grant, error)
}

// Writer mutates the workspace. Calls may be rate limited by the platform;
// each call is bounded by the gateway's own request timeout.
type Writer interface {
	CreateCategory(ctx context.Context, name string) (*types.Entity, error)
	CreateChannel(ctx context.Context, kind types.EntityKind, name string) (*types.Entity, error)
	CreateRole(ctx context.Context, settings types.Settings) (*types.Entity, error)
	Delete(ctx context.Context, entity *types.Entity) error
	UpdateSettings(ctx context.Context, entity *types.Entity, settings types.Settings) error

	CreateGrant(ctx context.Context, grant *types.Grant) error
	UpdateGrant(ctx context.Context, grant *types.Grant) error
	DeleteGrant(ctx context.Context, grant *types.Grant) error

	// Reorder places the given entities of one kind in the given display order,
	// first entry on top.
	Reorder(ctx context.Context, kind types.EntityKind, ordered []*types.Entity) error
}

// Gateway is read/write access to the remote workspace
type Gateway interface {
	Reader
	Writer
}

// List returns the live entities of one kind
func List(ctx context.Context, r Reader, kind types.EntityKind) ([]*types.Entity, error) {
	switch kind {
	case types.KindCategory:
		return r.ListCategories(ctx)
	case types.KindTextChannel:
		return r.ListTextChannels(ctx)
	case types.KindVoiceChannel:
		return r.ListVoiceChannels(ctx)
	case types.KindRole:
		return r.ListRoles(ctx)
	}
	return nil, errors.New("unknown entity kind: " + string(kind))
}

// Create creates an entity of the given kind. Roles are created with their full
// settings, every other kind by name only.
func Create(ctx context.Context, w Writer, kind types.EntityKind, settings types.Settings) (*types.Entity, error) {
	switch kind {
	case types.KindCategory:
		return w.CreateCategory(ctx, settings.Name)
	case types.KindTextChannel, types.KindVoiceChannel:
		return w.CreateChannel(ctx, kind, settings.Name)
	case types.KindRole:
		return w.CreateRole(ctx, settings)
	}
	return nil, errors.New("unknown entity kind: " + string(kind))
}
