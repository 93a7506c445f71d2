// Package courses keeps one role set, text channel and optional voice channel
// per declared course, grouped into thousand-level categories.
package courses

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/cuemby/guildsync/pkg/log"
	"github.com/cuemby/guildsync/pkg/naming"
	"github.com/cuemby/guildsync/pkg/reconciler"
	"github.com/cuemby/guildsync/pkg/types"
)

const (
	Name     = "courses"
	Priority = 10
)

// Role colors per suffix
const (
	ColorProfessor = 0xE67E22
	ColorTA        = 0x3498DB
	ColorStudent   = 0x2ECC71
)

// Text channel grants per suffix
const (
	textStudent   = types.PermViewChannel | types.PermSendMessages | types.PermReadMessageHistory
	textTA        = textStudent | types.PermManageMessages
	textProfessor = textTA | types.PermMentionEveryone

	voiceStudent   = types.PermViewChannel | types.PermConnect | types.PermSpeak
	voiceTA        = voiceStudent | types.PermMuteMembers
	voiceProfessor = voiceTA | types.PermMoveMembers
)

// Config is the course catalog the strategies build from
type Config struct {
	// Courses holds normalized four-digit course numbers
	Courses []string
	// Titles maps course numbers to the topic of their text channel
	Titles map[string]string
	// Voice adds a voice channel per course
	Voice bool
}

// sorted returns the unique course numbers in ascending order
func (c Config) sorted() []string {
	seen := make(map[string]bool, len(c.Courses))
	out := make([]string, 0, len(c.Courses))
	for _, n := range c.Courses {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

type base struct {
	cfg    Config
	logger zerolog.Logger
}

func newBase(cfg Config) base {
	return base{cfg: cfg, logger: log.WithStrategy(Name)}
}

func (base) Name() string   { return Name }
func (base) Prefix() string { return naming.CoursePrefix }
func (base) Priority() int  { return Priority }

// Roles keeps the student, TA and professor role of every course
type Roles struct {
	base
}

var _ reconciler.RoleStrategy = (*Roles)(nil)

// NewRoles creates the course role strategy
func NewRoles(cfg Config) *Roles {
	return &Roles{base: newBase(cfg)}
}

// desired returns the role names in display order and their settings
func (r *Roles) desired() ([]string, map[string]types.Settings) {
	courses := r.cfg.sorted()
	keys := make([]string, 0, len(courses)*len(naming.Suffixes))
	settings := make(map[string]types.Settings, cap(keys))
	for _, suffix := range naming.Suffixes {
		for _, course := range courses {
			name := naming.CourseRoleName(course, suffix)
			keys = append(keys, name)
			settings[name] = roleSettings(name, suffix)
		}
	}
	return keys, settings
}

func roleSettings(name string, suffix naming.Suffix) types.Settings {
	s := types.Settings{Name: name, Mentionable: true}
	switch suffix {
	case naming.SuffixProfessor:
		s.Color, s.Hoist = ColorProfessor, true
	case naming.SuffixTA:
		s.Color, s.Hoist = ColorTA, true
	default:
		s.Color = ColorStudent
	}
	return s
}

func parseRole(name string) (string, bool) {
	course, suffix, ok := naming.ParseCourseRoleName(name)
	if !ok {
		return "", false
	}
	return naming.CourseRoleName(course, suffix), true
}

func (r *Roles) match(roles []*types.Entity) ([]string, map[string]types.Settings, reconciler.Matched) {
	keys, settings := r.desired()
	m := reconciler.Match(roles, parseRole, keys)
	m.LogDuplicates(r.logger)
	return keys, settings, m
}

func (r *Roles) ComputeCreateDelete(roles []*types.Entity) ([]*types.Entity, []reconciler.CreateRequest, error) {
	_, settings, m := r.match(roles)
	creates := make([]reconciler.CreateRequest, 0, len(m.Missing))
	for _, key := range m.Missing {
		creates = append(creates, reconciler.CreateRequest{Kind: types.KindRole, Settings: settings[key]})
	}
	return m.Stale, creates, nil
}

func (r *Roles) ComputeSettingsUpdates(roles []*types.Entity) ([]reconciler.SettingsUpdate, error) {
	keys, settings, m := r.match(roles)
	var updates []reconciler.SettingsUpdate
	for _, key := range keys {
		if e, ok := m.Live[key]; ok {
			updates = append(updates, reconciler.SettingsUpdate{Entity: e, Settings: settings[key]})
		}
	}
	return updates, nil
}

// ComputeOrdering puts professor roles first, then TA roles, then student
// roles, each ascending by course number.
func (r *Roles) ComputeOrdering(roles []*types.Entity) ([]*types.Entity, error) {
	keys, _, m := r.match(roles)
	var ordered []*types.Entity
	for _, key := range keys {
		if e, ok := m.Live[key]; ok {
			ordered = append(ordered, e)
		}
	}
	return ordered, nil
}

// Channels keeps the level categories and the course channels
type Channels struct {
	base
}

var _ reconciler.ChannelStrategy = (*Channels)(nil)

// NewChannels creates the course channel strategy
func NewChannels(cfg Config) *Channels {
	return &Channels{base: newBase(cfg)}
}

func parseCategory(name string) (string, bool) {
	level, ok := naming.ParseCourseCategoryName(name)
	if !ok {
		return "", false
	}
	return naming.CourseCategoryName(level), true
}

func parseChannel(name string) (string, bool) {
	course, ok := naming.ParseCourseChannelName(name)
	if !ok {
		return "", false
	}
	return naming.CourseChannelName(course), true
}

// desired returns the desired names per kind
func (c *Channels) desired() map[types.EntityKind][]string {
	courses := c.cfg.sorted()
	out := make(map[types.EntityKind][]string, len(types.ChannelKinds))
	seen := make(map[string]bool)
	for _, course := range courses {
		if level := naming.CourseLevel(course); !seen[level] {
			seen[level] = true
			out[types.KindCategory] = append(out[types.KindCategory], naming.CourseCategoryName(level))
		}
		out[types.KindTextChannel] = append(out[types.KindTextChannel], naming.CourseChannelName(course))
		if c.cfg.Voice {
			out[types.KindVoiceChannel] = append(out[types.KindVoiceChannel], naming.CourseChannelName(course))
		}
	}
	return out
}

func (c *Channels) match(state *reconciler.ChannelState) map[types.EntityKind]reconciler.Matched {
	desired := c.desired()
	out := make(map[types.EntityKind]reconciler.Matched, len(types.ChannelKinds))
	for _, kind := range types.ChannelKinds {
		parse := parseChannel
		if kind == types.KindCategory {
			parse = parseCategory
		}
		m := reconciler.Match(state.Entities(kind), parse, desired[kind])
		m.LogDuplicates(c.logger)
		out[kind] = m
	}
	return out
}

func (c *Channels) ComputeCreateDelete(state *reconciler.ChannelState) ([]*types.Entity, []reconciler.CreateRequest, error) {
	var (
		deletes []*types.Entity
		creates []reconciler.CreateRequest
	)
	matched := c.match(state)
	for _, kind := range types.ChannelKinds {
		m := matched[kind]
		deletes = append(deletes, m.Stale...)
		for _, name := range m.Missing {
			creates = append(creates, reconciler.CreateRequest{Kind: kind, Settings: types.Settings{Name: name}})
		}
	}
	return deletes, creates, nil
}

func (c *Channels) ComputeSettingsUpdates(state *reconciler.ChannelState) ([]reconciler.SettingsUpdate, error) {
	matched := c.match(state)
	desired := c.desired()
	categories := matched[types.KindCategory].Live

	var updates []reconciler.SettingsUpdate
	for _, kind := range types.ChannelKinds {
		live := matched[kind].Live
		for _, name := range desired[kind] {
			e, ok := live[name]
			if !ok {
				continue
			}
			target := e.Settings()
			target.Name = name
			if kind != types.KindCategory {
				course, _ := naming.ParseCourseChannelName(name)
				if cat, ok := categories[naming.CourseCategoryName(naming.CourseLevel(course))]; ok {
					target.ParentID = cat.ID
				}
				if kind == types.KindTextChannel {
					target.Topic = c.cfg.Titles[course]
				}
			}
			updates = append(updates, reconciler.SettingsUpdate{Entity: e, Settings: target})
		}
	}
	return updates, nil
}

// ComputePermissionUpdates hides every course channel from everyone and opens
// it to the course roles, with more rights for TAs and professors.
func (c *Channels) ComputePermissionUpdates(state *reconciler.ChannelState) (*reconciler.PermissionPlan, error) {
	plan := &reconciler.PermissionPlan{}
	everyone := state.DefaultRole()
	matched := c.match(state)
	desired := c.desired()

	for _, kind := range []types.EntityKind{types.KindTextChannel, types.KindVoiceChannel} {
		student, ta, prof := textStudent, textTA, textProfessor
		if kind == types.KindVoiceChannel {
			student, ta, prof = voiceStudent, voiceTA, voiceProfessor
		}
		for _, name := range desired[kind] {
			channel, ok := matched[kind].Live[name]
			if !ok {
				continue
			}
			existing, ok := state.Grants(channel)
			if !ok {
				continue
			}
			course, _ := naming.ParseCourseChannelName(name)
			want := reconciler.GrantSet{}
			want.Set(channel, everyone, 0, types.PermViewChannel)
			want.Set(channel, state.RoleByName(naming.CourseRoleName(course, naming.SuffixNone)), student, 0)
			want.Set(channel, state.RoleByName(naming.CourseRoleName(course, naming.SuffixTA)), ta, 0)
			want.Set(channel, state.RoleByName(naming.CourseRoleName(course, naming.SuffixProfessor)), prof, 0)
			plan.Merge(reconciler.DiffGrants(existing, want))
		}
	}
	return plan, nil
}

// ComputeOrdering sorts every kind alphabetically by canonical name
func (c *Channels) ComputeOrdering(state *reconciler.ChannelState) (map[types.EntityKind][]*types.Entity, error) {
	matched := c.match(state)
	out := make(map[types.EntityKind][]*types.Entity, len(types.ChannelKinds))
	for _, kind := range types.ChannelKinds {
		live := make([]*types.Entity, 0, len(matched[kind].Live))
		for _, e := range matched[kind].Live {
			live = append(live, e)
		}
		out[kind] = reconciler.SortByName(live)
	}
	return out, nil
}
