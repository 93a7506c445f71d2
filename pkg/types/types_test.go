package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissions(t *testing.T) {
	p := PermViewChannel | PermSendMessages

	assert.True(t, p.Has(PermViewChannel))
	assert.True(t, p.Has(PermViewChannel|PermSendMessages))
	assert.False(t, p.Has(PermViewChannel|PermManageMessages))
	assert.Equal(t, "0xc00", p.String())
}

func TestEntitySettings(t *testing.T) {
	e := &Entity{ID: "1", Kind: KindTextChannel, Name: "cs-3500", ParentID: "c", Topic: "old"}

	s := e.Settings()
	assert.True(t, s.Equal(Settings{Name: "cs-3500", ParentID: "c", Topic: "old"}))
	assert.False(t, s.Equal(Settings{Name: "CS-3500", ParentID: "c", Topic: "old"}), "case-only renames are changes")

	e.Apply(Settings{Name: "cs-3500", Topic: "new"})
	assert.Equal(t, "", e.ParentID)
	assert.Equal(t, "new", e.Topic)
}

func TestEntity(t *testing.T) {
	tests := []struct {
		name    string
		entity  Entity
		prefix  string
		has     bool
		movable bool
	}{
		{name: "owned", entity: Entity{Name: "CS-3500"}, prefix: "cs-", has: true, movable: true},
		{name: "other prefix", entity: Entity{Name: "club-chess"}, prefix: "cs-", movable: true},
		{name: "everyone", entity: Entity{Name: "@everyone", Default: true}, prefix: "cs-"},
		{name: "managed", entity: Entity{Name: "cs-bot", Managed: true}, prefix: "cs-", has: true},
		{name: "locked", entity: Entity{Name: "cs-admin", Locked: true}, prefix: "cs-", has: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.has, tt.entity.HasPrefix(tt.prefix))
			assert.Equal(t, tt.movable, tt.entity.Movable())
		})
	}
}

func TestClone(t *testing.T) {
	e := &Entity{ID: "1", Name: "a"}
	c := e.Clone()
	c.Name = "b"
	assert.Equal(t, "a", e.Name)

	g := &Grant{ChannelID: "ch", TargetID: "r", Allow: PermViewChannel}
	gc := g.Clone()
	gc.Allow = 0
	assert.Equal(t, PermViewChannel, g.Allow)
	assert.Equal(t, "ch/r", g.Key())
	assert.False(t, g.SameBits(gc))
}

func TestPassReport(t *testing.T) {
	tests := []struct {
		name   string
		report PassReport
		want   string
	}{
		{name: "clean", report: PassReport{Created: 2}, want: ResultSuccess},
		{name: "write failure", report: PassReport{Failures: 1}, want: ResultPartial},
		{name: "strategy failure", report: PassReport{StrategyErrors: []string{"boom"}}, want: ResultPartial},
		{name: "aborted", report: PassReport{Error: "fetch failed", Failures: 1}, want: ResultError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.report.Result())
		})
	}

	r := PassReport{Deleted: 1, Created: 2, Updated: 3, GrantsDeleted: 4, GrantsCreated: 5, GrantsUpdated: 6, Moves: 7, Failures: 9}
	assert.Equal(t, 28, r.Changes())
}
