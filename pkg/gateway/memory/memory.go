// Package memory is an in-memory guild used by tests and offline plans.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cuemby/guildsync/pkg/events"
	"github.com/cuemby/guildsync/pkg/gateway"
	"github.com/cuemby/guildsync/pkg/types"
)

// DefaultRoleName is the name of the everyone role every workspace starts with
const DefaultRoleName = "@everyone"

// Call records one write submitted to the gateway
type Call struct {
	Op     string
	Kind   types.EntityKind
	Target string
}

func (c Call) String() string {
	return fmt.Sprintf("%s %s %s", c.Op, c.Kind, c.Target)
}

// Gateway is an in-memory workspace. It is safe for concurrent use and is used
// by tests and by offline plan rehearsals.
type Gateway struct {
	mu       sync.Mutex
	entities map[types.EntityKind][]*types.Entity
	grants   map[string][]*types.Grant // channel ID -> grants
	failures map[string]error
	calls    []Call
	broker   *events.Broker
}

// Option configures the gateway
type Option func(*Gateway)

// WithBroker publishes an event for every successful write
func WithBroker(b *events.Broker) Option {
	return func(g *Gateway) {
		g.broker = b
	}
}

// New creates an empty workspace holding only the everyone role
func New(opts ...Option) *Gateway {
	g := &Gateway{
		entities: make(map[types.EntityKind][]*types.Entity),
		grants:   make(map[string][]*types.Grant),
		failures: make(map[string]error),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.entities[types.KindRole] = []*types.Entity{{
		ID:      uuid.NewString(),
		Kind:    types.KindRole,
		Name:    DefaultRoleName,
		Default: true,
	}}
	return g
}

var _ gateway.Gateway = (*Gateway)(nil)

// Add places a new entity of kind at the end of its list and returns a copy
func (g *Gateway) Add(kind types.EntityKind, settings types.Settings) *types.Entity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.add(kind, settings).Clone()
}

// AddManagedRole adds an integration role that cannot be edited or moved
func (g *Gateway) AddManagedRole(name string) *types.Entity {
	g.mu.Lock()
	defer g.mu.Unlock()
	e := g.add(types.KindRole, types.Settings{Name: name})
	e.Managed = true
	return e.Clone()
}

// AddLockedRole adds a role on top of the list that ranks above the bot and
// therefore cannot be edited or moved
func (g *Gateway) AddLockedRole(name string) *types.Entity {
	g.mu.Lock()
	defer g.mu.Unlock()
	e := &types.Entity{ID: uuid.NewString(), Kind: types.KindRole, Name: name, Locked: true}
	g.entities[types.KindRole] = append([]*types.Entity{e}, g.entities[types.KindRole]...)
	g.renumber(types.KindRole)
	return e.Clone()
}

// AddGrant stores a grant without going through the write path
func (g *Gateway) AddGrant(grant *types.Grant) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.grants[grant.ChannelID] = append(g.grants[grant.ChannelID], grant.Clone())
}

// Find returns a copy of the first entity of kind with the given name
func (g *Gateway) Find(kind types.EntityKind, name string) (*types.Entity, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range g.entities[kind] {
		if e.Name == name {
			return e.Clone(), true
		}
	}
	return nil, false
}

// Names returns the entity names of kind in display order
func (g *Gateway) Names(kind types.EntityKind) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, 0, len(g.entities[kind]))
	for _, e := range g.entities[kind] {
		names = append(names, e.Name)
	}
	return names
}

// DefaultRole returns a copy of the everyone role
func (g *Gateway) DefaultRole() *types.Entity {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range g.entities[types.KindRole] {
		if e.Default {
			return e.Clone()
		}
	}
	return nil
}

// Fail makes every write op against the named entity return err until cleared
// with a nil err. op is one of the names recorded in Calls.
func (g *Gateway) Fail(op, name string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := op + ":" + name
	if err == nil {
		delete(g.failures, key)
		return
	}
	g.failures[key] = err
}

// Calls returns the writes submitted so far, in submission order
func (g *Gateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Call, len(g.calls))
	copy(out, g.calls)
	return out
}

// ResetCalls clears the recorded writes
func (g *Gateway) ResetCalls() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = nil
}

func (g *Gateway) ListCategories(ctx context.Context) ([]*types.Entity, error) {
	return g.list(types.KindCategory), nil
}

func (g *Gateway) ListTextChannels(ctx context.Context) ([]*types.Entity, error) {
	return g.list(types.KindTextChannel), nil
}

func (g *Gateway) ListVoiceChannels(ctx context.Context) ([]*types.Entity, error) {
	return g.list(types.KindVoiceChannel), nil
}

func (g *Gateway) ListRoles(ctx context.Context) ([]*types.Entity, error) {
	return g.list(types.KindRole), nil
}

func (g *Gateway) ListGrants(ctx context.Context, channel *types.Entity) ([]*types.Grant, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.lookup(channel.Kind, channel.ID); !ok {
		return nil, fmt.Errorf("%w: %s", gateway.ErrNotFound, channel)
	}
	out := make([]*types.Grant, 0, len(g.grants[channel.ID]))
	for _, gr := range g.grants[channel.ID] {
		out = append(out, gr.Clone())
	}
	return out, nil
}

func (g *Gateway) CreateCategory(ctx context.Context, name string) (*types.Entity, error) {
	return g.create(types.KindCategory, types.Settings{Name: name})
}

func (g *Gateway) CreateChannel(ctx context.Context, kind types.EntityKind, name string) (*types.Entity, error) {
	if kind != types.KindTextChannel && kind != types.KindVoiceChannel {
		return nil, fmt.Errorf("cannot create channel of kind %s", kind)
	}
	return g.create(kind, types.Settings{Name: name})
}

func (g *Gateway) CreateRole(ctx context.Context, settings types.Settings) (*types.Entity, error) {
	return g.create(types.KindRole, settings)
}

func (g *Gateway) Delete(ctx context.Context, entity *types.Entity) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record("delete", entity.Kind, entity.Name); err != nil {
		return err
	}
	if !entity.Movable() {
		return fmt.Errorf("%w: delete %s", gateway.ErrForbidden, entity)
	}
	list := g.entities[entity.Kind]
	for i, e := range list {
		if e.ID != entity.ID {
			continue
		}
		g.entities[entity.Kind] = append(list[:i:i], list[i+1:]...)
		g.cascade(e)
		g.publish(deletedEvent(e.Kind), e)
		return nil
	}
	return fmt.Errorf("%w: %s", gateway.ErrNotFound, entity)
}

// cascade mirrors the platform: grants go with their channel or role, and
// children of a deleted category become top level.
func (g *Gateway) cascade(e *types.Entity) {
	switch e.Kind {
	case types.KindCategory:
		for _, kind := range []types.EntityKind{types.KindTextChannel, types.KindVoiceChannel} {
			for _, ch := range g.entities[kind] {
				if ch.ParentID == e.ID {
					ch.ParentID = ""
				}
			}
		}
		delete(g.grants, e.ID)
	case types.KindTextChannel, types.KindVoiceChannel:
		delete(g.grants, e.ID)
	case types.KindRole:
		for channelID, list := range g.grants {
			kept := list[:0]
			for _, gr := range list {
				if gr.TargetID != e.ID {
					kept = append(kept, gr)
				}
			}
			g.grants[channelID] = kept
		}
	}
}

func (g *Gateway) UpdateSettings(ctx context.Context, entity *types.Entity, settings types.Settings) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record("update", entity.Kind, entity.Name); err != nil {
		return err
	}
	e, ok := g.lookup(entity.Kind, entity.ID)
	if !ok {
		return fmt.Errorf("%w: %s", gateway.ErrNotFound, entity)
	}
	if e.Managed || e.Locked {
		return fmt.Errorf("%w: update %s", gateway.ErrForbidden, entity)
	}
	if settings.ParentID != "" {
		if _, ok := g.lookup(types.KindCategory, settings.ParentID); !ok {
			return fmt.Errorf("%w: parent category %s", gateway.ErrNotFound, settings.ParentID)
		}
	}
	e.Apply(settings)
	g.publish(updatedEvent(e.Kind), e)
	return nil
}

func (g *Gateway) CreateGrant(ctx context.Context, grant *types.Grant) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	channel, err := g.grantChannel("create_grant", grant)
	if err != nil {
		return err
	}
	for _, existing := range g.grants[grant.ChannelID] {
		if existing.TargetID == grant.TargetID {
			return fmt.Errorf("grant for %s already exists on %s", grant.TargetID, channel)
		}
	}
	g.grants[grant.ChannelID] = append(g.grants[grant.ChannelID], grant.Clone())
	g.publish(updatedEvent(channel.Kind), channel)
	return nil
}

func (g *Gateway) UpdateGrant(ctx context.Context, grant *types.Grant) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	channel, err := g.grantChannel("update_grant", grant)
	if err != nil {
		return err
	}
	for _, existing := range g.grants[grant.ChannelID] {
		if existing.TargetID == grant.TargetID {
			existing.Allow = grant.Allow
			existing.Deny = grant.Deny
			g.publish(updatedEvent(channel.Kind), channel)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", gateway.ErrNotFound, grant)
}

func (g *Gateway) DeleteGrant(ctx context.Context, grant *types.Grant) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	channel, err := g.grantChannel("delete_grant", grant)
	if err != nil {
		return err
	}
	list := g.grants[grant.ChannelID]
	for i, existing := range list {
		if existing.TargetID == grant.TargetID {
			g.grants[grant.ChannelID] = append(list[:i:i], list[i+1:]...)
			g.publish(updatedEvent(channel.Kind), channel)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", gateway.ErrNotFound, grant)
}

func (g *Gateway) Reorder(ctx context.Context, kind types.EntityKind, ordered []*types.Entity) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record("reorder", kind, ""); err != nil {
		return err
	}

	list := g.entities[kind]
	byID := make(map[string]*types.Entity, len(list))
	for _, e := range list {
		byID[e.ID] = e
	}

	placed := make(map[string]bool, len(ordered))
	moving := make([]*types.Entity, 0, len(ordered))
	for _, o := range ordered {
		e, ok := byID[o.ID]
		if !ok {
			return fmt.Errorf("%w: %s", gateway.ErrNotFound, o)
		}
		if !e.Movable() {
			return fmt.Errorf("%w: move %s", gateway.ErrForbidden, e)
		}
		if placed[e.ID] {
			return fmt.Errorf("entity %s listed twice", e)
		}
		placed[e.ID] = true
		moving = append(moving, e)
	}

	// Entities not listed keep their slots; the listed ones fill the slots
	// they occupied, in the requested order.
	var slots []int
	for i, e := range list {
		if placed[e.ID] {
			slots = append(slots, i)
		}
	}
	sort.Ints(slots)
	next := make([]*types.Entity, len(list))
	copy(next, list)
	for i, slot := range slots {
		next[slot] = moving[i]
	}
	g.entities[kind] = next
	g.renumber(kind)
	return nil
}

func (g *Gateway) list(kind types.EntityKind) []*types.Entity {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*types.Entity, 0, len(g.entities[kind]))
	for _, e := range g.entities[kind] {
		out = append(out, e.Clone())
	}
	return out
}

func (g *Gateway) create(kind types.EntityKind, settings types.Settings) (*types.Entity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.record("create", kind, settings.Name); err != nil {
		return nil, err
	}
	e := g.add(kind, settings)
	g.publish(createdEvent(kind), e)
	return e.Clone(), nil
}

// add appends an entity; new roles are inserted just above the everyone role
// as the platform does.
func (g *Gateway) add(kind types.EntityKind, settings types.Settings) *types.Entity {
	e := &types.Entity{ID: uuid.NewString(), Kind: kind}
	e.Apply(settings)

	list := g.entities[kind]
	if n := len(list); n > 0 && list[n-1].Default {
		list = append(list[:n-1:n-1], e, list[n-1])
	} else {
		list = append(list, e)
	}
	g.entities[kind] = list
	g.renumber(kind)
	return e
}

func (g *Gateway) renumber(kind types.EntityKind) {
	for i, e := range g.entities[kind] {
		e.Position = i
	}
}

func (g *Gateway) lookup(kind types.EntityKind, id string) (*types.Entity, bool) {
	for _, e := range g.entities[kind] {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

func (g *Gateway) grantChannel(op string, grant *types.Grant) (*types.Entity, error) {
	for _, kind := range types.ChannelKinds {
		if ch, ok := g.lookup(kind, grant.ChannelID); ok {
			if err := g.record(op, kind, ch.Name+"/"+grant.TargetID); err != nil {
				return nil, err
			}
			return ch, nil
		}
	}
	return nil, fmt.Errorf("%w: channel %s", gateway.ErrNotFound, grant.ChannelID)
}

// record logs the call and returns any injected failure. Must hold g.mu.
func (g *Gateway) record(op string, kind types.EntityKind, target string) error {
	g.calls = append(g.calls, Call{Op: op, Kind: kind, Target: target})
	if err, ok := g.failures[op+":"+target]; ok {
		return err
	}
	return nil
}

func (g *Gateway) publish(t events.EventType, e *types.Entity) {
	if g.broker == nil {
		return
	}
	g.broker.Publish(&events.Event{
		Type:    t,
		Message: e.String(),
		Metadata: map[string]string{
			"id":   e.ID,
			"kind": string(e.Kind),
			"name": e.Name,
		},
	})
}

func createdEvent(kind types.EntityKind) events.EventType {
	switch kind {
	case types.KindRole:
		return events.EventRoleCreated
	case types.KindCategory:
		return events.EventCategoryCreated
	}
	return events.EventChannelCreated
}

func updatedEvent(kind types.EntityKind) events.EventType {
	switch kind {
	case types.KindRole:
		return events.EventRoleUpdated
	case types.KindCategory:
		return events.EventCategoryUpdated
	}
	return events.EventChannelUpdated
}

func deletedEvent(kind types.EntityKind) events.EventType {
	switch kind {
	case types.KindRole:
		return events.EventRoleDeleted
	case types.KindCategory:
		return events.EventCategoryDeleted
	}
	return events.EventChannelDeleted
}
