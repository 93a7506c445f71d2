package types

import (
	"fmt"
	"strings"
	"time"
)

// EntityKind identifies the family of a remote workspace object
type EntityKind string

const (
	KindCategory     EntityKind = "category"
	KindTextChannel  EntityKind = "text_channel"
	KindVoiceChannel EntityKind = "voice_channel"
	KindRole         EntityKind = "role"
)

// ChannelKinds lists the kinds owned by the channel family, in creation order.
// Categories come first so that channels created in the same pass can be
// parented to them during the settings phase.
var ChannelKinds = []EntityKind{KindCategory, KindTextChannel, KindVoiceChannel}

// IsChannel reports whether the kind belongs to the channel family
func (k EntityKind) IsChannel() bool {
	return k == KindCategory || k == KindTextChannel || k == KindVoiceChannel
}

// Permissions is a platform permission bitset
type Permissions int64

// Permission bits used by the strategies. Values match the remote platform.
const (
	PermCreateInvite       Permissions = 1 << 0
	PermAdministrator      Permissions = 1 << 3
	PermAddReactions       Permissions = 1 << 6
	PermViewChannel        Permissions = 1 << 10
	PermSendMessages       Permissions = 1 << 11
	PermManageMessages     Permissions = 1 << 13
	PermEmbedLinks         Permissions = 1 << 14
	PermAttachFiles        Permissions = 1 << 15
	PermReadMessageHistory Permissions = 1 << 16
	PermMentionEveryone    Permissions = 1 << 17
	PermConnect            Permissions = 1 << 20
	PermSpeak              Permissions = 1 << 21
	PermMuteMembers        Permissions = 1 << 22
	PermMoveMembers        Permissions = 1 << 24
)

// Has reports whether every bit of other is set
func (p Permissions) Has(other Permissions) bool {
	return p&other == other
}

func (p Permissions) String() string {
	return fmt.Sprintf("%#x", int64(p))
}

// Settings is the full mutable state of an entity. Fields that do not apply to
// an entity's kind are left zero.
type Settings struct {
	Name        string
	Color       int
	Hoist       bool
	Mentionable bool
	Permissions Permissions
	ParentID    string
	Topic       string
}

// Equal reports whether two settings are identical. Names are compared exactly
// so that a case-only rename is still applied.
func (s Settings) Equal(o Settings) bool {
	return s == o
}

// Entity is a handle to a live remote object. Handles are only valid for the
// duration of one reconciliation pass.
type Entity struct {
	ID          string
	Kind        EntityKind
	Name        string
	Position    int
	Color       int
	Hoist       bool
	Mentionable bool
	Permissions Permissions
	ParentID    string
	Topic       string

	// Default marks the workspace-wide everyone role
	Default bool
	// Managed marks entities owned by an integration that cannot be edited or moved
	Managed bool
	// Locked marks roles at or above the highest role of the bot, which the
	// platform refuses to let the bot edit or move
	Locked bool
}

// Settings returns the current settings of the entity
func (e *Entity) Settings() Settings {
	return Settings{
		Name:        e.Name,
		Color:       e.Color,
		Hoist:       e.Hoist,
		Mentionable: e.Mentionable,
		Permissions: e.Permissions,
		ParentID:    e.ParentID,
		Topic:       e.Topic,
	}
}

// Apply overwrites the mutable fields of the entity with s
func (e *Entity) Apply(s Settings) {
	e.Name = s.Name
	e.Color = s.Color
	e.Hoist = s.Hoist
	e.Mentionable = s.Mentionable
	e.Permissions = s.Permissions
	e.ParentID = s.ParentID
	e.Topic = s.Topic
}

// Movable reports whether the platform allows repositioning the entity
func (e *Entity) Movable() bool {
	return !e.Default && !e.Managed && !e.Locked
}

// HasPrefix reports whether the entity name starts with prefix, ignoring case
func (e *Entity) HasPrefix(prefix string) bool {
	return strings.HasPrefix(strings.ToLower(e.Name), strings.ToLower(prefix))
}

func (e *Entity) String() string {
	return fmt.Sprintf("%s %q (%s)", e.Kind, e.Name, e.ID)
}

// Clone returns a copy of the entity
func (e *Entity) Clone() *Entity {
	c := *e
	return &c
}

// GrantTargetType is the type of principal a grant applies to
type GrantTargetType string

const (
	GrantTargetRole   GrantTargetType = "role"
	GrantTargetMember GrantTargetType = "member"
)

// Grant is a per-channel permission override for a role or member. A channel
// holds at most one grant per target.
type Grant struct {
	ChannelID  string
	TargetID   string
	TargetType GrantTargetType
	Allow      Permissions
	Deny       Permissions
}

// Key identifies the grant within the workspace
func (g *Grant) Key() string {
	return g.ChannelID + "/" + g.TargetID
}

// SameBits reports whether both grants allow and deny the same bits
func (g *Grant) SameBits(o *Grant) bool {
	return g.Allow == o.Allow && g.Deny == o.Deny
}

func (g *Grant) String() string {
	return fmt.Sprintf("grant %s %s on %s (allow %s, deny %s)",
		g.TargetType, g.TargetID, g.ChannelID, g.Allow, g.Deny)
}

// Clone returns a copy of the grant
func (g *Grant) Clone() *Grant {
	c := *g
	return &c
}

// Family identifies which coordinator a pass belongs to
type Family string

const (
	FamilyRoles    Family = "roles"
	FamilyChannels Family = "channels"
)

// PassReport summarizes one reconciliation pass of a coordinator
type PassReport struct {
	ID         string    `json:"id"`
	Family     Family    `json:"family"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Deleted       int `json:"deleted"`
	Created       int `json:"created"`
	Updated       int `json:"updated"`
	GrantsDeleted int `json:"grants_deleted"`
	GrantsCreated int `json:"grants_created"`
	GrantsUpdated int `json:"grants_updated"`
	Moves         int `json:"moves"`
	Failures      int `json:"failures"`

	StrategyErrors []string `json:"strategy_errors,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// Changes returns the number of writes the pass submitted successfully
func (r *PassReport) Changes() int {
	return r.Deleted + r.Created + r.Updated + r.GrantsDeleted + r.GrantsCreated + r.GrantsUpdated + r.Moves
}

// Pass results
const (
	ResultSuccess = "success"
	ResultPartial = "partial"
	ResultError   = "error"
)

// Result classifies the pass: error when it aborted, partial when some write
// or strategy failed, success otherwise.
func (r *PassReport) Result() string {
	switch {
	case r.Error != "":
		return ResultError
	case r.Failures > 0 || len(r.StrategyErrors) > 0:
		return ResultPartial
	}
	return ResultSuccess
}

// Duration returns how long the pass ran
func (r *PassReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
