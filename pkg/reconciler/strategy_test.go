package reconciler

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/guildsync/pkg/ordering"
	"github.com/cuemby/guildsync/pkg/types"
)

func entity(id, name string, position int) *types.Entity {
	return &types.Entity{ID: id, Kind: types.KindTextChannel, Name: name, Position: position}
}

func names(entities []*types.Entity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.Name)
	}
	return out
}

type namedStrategy string

func (s namedStrategy) Name() string   { return string(s) }
func (s namedStrategy) Prefix() string { return string(s) }
func (s namedStrategy) Priority() int  { return 0 }

func TestRequest(t *testing.T) {
	r := NewRequest()
	assert.True(t, r.ConsumeIfRequested(), "a new request starts pending")
	assert.False(t, r.ConsumeIfRequested())

	r.RequestSynchronization()
	r.RequestSynchronization()
	r.RequestSynchronization()
	assert.True(t, r.ConsumeIfRequested())
	assert.False(t, r.ConsumeIfRequested(), "requests between passes coalesce")
}

func TestRequest_Concurrent(t *testing.T) {
	r := NewRequest()
	r.ConsumeIfRequested()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.RequestSynchronization()
		}()
	}
	wg.Wait()

	assert.True(t, r.ConsumeIfRequested())
	assert.False(t, r.ConsumeIfRequested())
}

func TestGuard(t *testing.T) {
	s := namedStrategy("cs-")

	assert.Nil(t, guard(s, PhaseDiffing, func() error { return nil }))

	boom := errors.New("boom")
	serr := guard(s, PhaseDiffing, func() error { return boom })
	require.NotNil(t, serr)
	assert.Equal(t, "cs-", serr.Strategy)
	assert.Equal(t, PhaseDiffing, serr.Phase)
	assert.ErrorIs(t, serr, boom)

	serr = guard(s, PhaseOrdering, func() error { panic("bad index") })
	require.NotNil(t, serr)
	assert.Equal(t, PhaseOrdering, serr.Phase)
	assert.Contains(t, serr.Error(), "panic: bad index")
}

func TestMatch(t *testing.T) {
	parse := func(name string) (string, bool) {
		switch name {
		case "cs-1000", "CS-1000":
			return "cs-1000", true
		case "cs-2000":
			return "cs-2000", true
		case "cs-9999":
			return "cs-9999", true
		}
		return "", false
	}

	live := []*types.Entity{
		entity("dup", "CS-1000", 5),
		entity("a", "cs-1000", 1),
		entity("stale", "cs-9999", 2),
		entity("odd", "cs-general", 3),
	}

	m := Match(live, parse, []string{"cs-1000", "cs-2000"})

	assert.Equal(t, "a", m.Live["cs-1000"].ID, "lowest position wins")
	assert.Equal(t, []string{"cs-9999"}, names(m.Stale))
	assert.Equal(t, []string{"cs-2000"}, m.Missing)
	assert.Equal(t, []string{"CS-1000"}, names(m.Duplicates))
	assert.Len(t, m.Live, 1, "unparsable names are ignored")
}

func TestExactName(t *testing.T) {
	parse := ExactName("Verified")

	key, ok := parse("  VERIFIED ")
	assert.True(t, ok)
	assert.Equal(t, "verified", key)

	_, ok = parse("verified-old")
	assert.False(t, ok)
}

func TestDiffGrants(t *testing.T) {
	grant := func(target string, tt types.GrantTargetType, allow, deny types.Permissions) *types.Grant {
		return &types.Grant{ChannelID: "ch", TargetID: target, TargetType: tt, Allow: allow, Deny: deny}
	}
	role := types.GrantTargetRole

	existing := []*types.Grant{
		grant("everyone", role, 0, types.PermViewChannel),
		grant("student", role, types.PermViewChannel, 0),
		grant("member-1", types.GrantTargetMember, types.PermViewChannel, 0),
		grant("unknown", role, types.PermViewChannel, 0),
	}
	desired := map[string]*types.Grant{
		"everyone": grant("everyone", role, 0, types.PermViewChannel),
		"student":  grant("student", role, types.PermViewChannel|types.PermSendMessages, 0),
		"ta":       grant("ta", role, types.PermManageMessages, 0),
		"prof":     grant("prof", role, types.PermMentionEveryone, 0),
	}

	plan := DiffGrants(existing, desired)

	targets := func(grants []*types.Grant) []string {
		var out []string
		for _, g := range grants {
			out = append(out, g.TargetID)
		}
		return out
	}
	assert.Equal(t, []string{"member-1", "unknown"}, targets(plan.Delete))
	assert.Equal(t, []string{"prof", "ta"}, targets(plan.Create))
	assert.Equal(t, []string{"student"}, targets(plan.Update))
	assert.Equal(t, types.PermViewChannel|types.PermSendMessages, plan.Update[0].Allow)

	again := DiffGrants([]*types.Grant{
		desired["everyone"], desired["student"], desired["ta"], desired["prof"],
	}, desired)
	assert.True(t, again.Empty())
}

func TestGrantSet(t *testing.T) {
	channel := entity("ch", "cs-1000", 0)
	role := &types.Entity{ID: "r", Kind: types.KindRole, Name: "cs-1000"}

	set := GrantSet{}
	set.Set(channel, role, types.PermViewChannel, 0)
	set.Set(channel, nil, types.PermViewChannel, 0)

	require.Len(t, set, 1)
	assert.Equal(t, &types.Grant{
		ChannelID:  "ch",
		TargetID:   "r",
		TargetType: types.GrantTargetRole,
		Allow:      types.PermViewChannel,
	}, set["r"])
}

func TestFilterPrefix(t *testing.T) {
	everyone := &types.Entity{ID: "e", Name: "@everyone", Default: true}
	bot := &types.Entity{ID: "b", Name: "cs-bot", Managed: true}
	above := &types.Entity{ID: "l", Name: "cs-admin", Locked: true}
	live := []*types.Entity{everyone, bot, above, entity("1", "CS-1000", 1), entity("2", "general", 2)}

	assert.Equal(t, []string{"CS-1000"}, names(filterPrefix(live, "cs-")))
}

func TestPlanOrder(t *testing.T) {
	everyone := &types.Entity{ID: "e", Name: "@everyone", Default: true, Position: 3}
	live := []*types.Entity{
		entity("b", "cs-b", 0),
		entity("x", "general", 1),
		entity("a", "cs-a", 2),
		everyone,
	}

	plan, err := planOrder(types.KindTextChannel, live, []ordering.Group{
		{Priority: 1, Prefix: "cs-", Order: []string{"a", "b"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"general", "cs-a", "cs-b"}, names(plan.Final))
	assert.NotEmpty(t, plan.Swaps)

	current := []string{"b", "x", "a"}
	assert.Equal(t, []string{"x", "a", "b"}, ordering.Apply(current, plan.Swaps))
}

func TestGroup(t *testing.T) {
	s := namedStrategy("cs-")
	winner := entity("w", "cs-1000", 2)
	dup := entity("d", "CS-1000", 0)
	other := entity("o", "cs-2000", 1)
	outside := entity("x", "cs-3000", 3)

	g := group(s, []*types.Entity{other, winner, outside, nil}, []*types.Entity{dup, other, winner})

	assert.Equal(t, "cs-", g.Prefix)
	assert.Equal(t, []string{"o", "w", "d"}, g.Order, "duplicates follow the ordered entity")

	final := ordering.Merge([]ordering.Group{g}, []string{"d", "o", "w"})
	assert.Equal(t, []string{"o", "w", "d"}, final)
}

func TestChannelStateFilter(t *testing.T) {
	cat := &types.Entity{ID: "cat", Kind: types.KindCategory, Name: "cs-1000-level"}
	text := entity("t", "cs-1000", 0)
	other := entity("o", "general", 1)
	role := &types.Entity{ID: "r", Kind: types.KindRole, Name: "Admin"}
	grants := map[string][]*types.Grant{
		"t": {{ChannelID: "t", TargetID: "r"}},
		"o": {{ChannelID: "o", TargetID: "r"}},
	}

	state := NewChannelState([]*types.Entity{cat}, []*types.Entity{text, other}, nil, []*types.Entity{role}, grants)
	view := state.filter("cs-")

	assert.Equal(t, []string{"cs-1000"}, names(view.TextChannels))
	assert.Equal(t, []string{"Admin"}, names(view.Roles), "roles are never filtered")
	assert.True(t, view.owns("t"))
	assert.False(t, view.owns("o"))

	_, ok := view.Grants(other)
	assert.False(t, ok)
	g, ok := view.Grants(text)
	assert.True(t, ok)
	assert.Len(t, g, 1)

	rest := state.without([]*types.Entity{text})
	assert.Equal(t, []string{"general"}, names(rest.TextChannels))
	_, ok = rest.Grants(text)
	assert.False(t, ok)
}

func TestChannelStateRoleByName(t *testing.T) {
	state := NewChannelState(nil, nil, nil, []*types.Entity{
		{ID: "late", Name: "CS-1000", Position: 4},
		{ID: "early", Name: "cs-1000", Position: 1},
		{ID: "everyone", Name: "@everyone", Default: true, Position: 9},
	}, nil)

	assert.Equal(t, "early", state.RoleByName("cs-1000").ID)
	assert.Equal(t, "everyone", state.DefaultRole().ID)
	assert.Nil(t, state.RoleByName("cs-2000"))
}

func TestPreview(t *testing.T) {
	p := &Preview{Family: types.FamilyChannels, Permissions: &PermissionPlan{}}
	assert.True(t, p.Empty())
	assert.Empty(t, p.Lines())

	p.Plan.Create = []CreateRequest{{Kind: types.KindCategory, Settings: types.Settings{Name: "cs-1000-level"}}}
	p.Orders = []*OrderPlan{{Kind: types.KindTextChannel, Swaps: []ordering.Swap{{From: 0, To: 1}}}}
	assert.False(t, p.Empty())
	assert.Equal(t, []string{
		`create category "cs-1000-level"`,
		"reorder text_channel (1 moves)",
	}, p.Lines())
}
