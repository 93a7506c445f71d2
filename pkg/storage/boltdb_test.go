package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/guildsync/pkg/types"
)

func newStore(t *testing.T, retention int) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(t.TempDir(), retention)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func pass(id string, family types.Family, started time.Time) *types.PassReport {
	return &types.PassReport{
		ID:         id,
		Family:     family,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Created:    1,
	}
}

func TestSaveAndListPasses(t *testing.T) {
	s := newStore(t, 0)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.SavePass(pass("r1", types.FamilyRoles, base)))
	require.NoError(t, s.SavePass(pass("c1", types.FamilyChannels, base.Add(time.Minute))))
	require.NoError(t, s.SavePass(pass("r2", types.FamilyRoles, base.Add(2*time.Minute))))

	tests := []struct {
		name   string
		family types.Family
		limit  int
		want   []string
	}{
		{name: "roles", family: types.FamilyRoles, want: []string{"r2", "r1"}},
		{name: "channels", family: types.FamilyChannels, want: []string{"c1"}},
		{name: "all", want: []string{"r2", "c1", "r1"}},
		{name: "all limited", limit: 2, want: []string{"r2", "c1"}},
		{name: "roles limited", family: types.FamilyRoles, limit: 1, want: []string{"r2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passes, err := s.ListPasses(tt.family, tt.limit)
			require.NoError(t, err)

			var ids []string
			for _, p := range passes {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestGetPass(t *testing.T) {
	s := newStore(t, 0)
	started := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SavePass(pass("c1", types.FamilyChannels, started)))

	got, err := s.GetPass("c1")
	require.NoError(t, err)
	assert.Equal(t, types.FamilyChannels, got.Family)
	assert.True(t, got.StartedAt.Equal(started))
	assert.Equal(t, 1, got.Changes())

	_, err = s.GetPass("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRetention(t *testing.T) {
	tests := []struct {
		name      string
		retention int
		saves     int
		wantIDs   []string
	}{
		{name: "keeps the newest", retention: 3, saves: 5, wantIDs: []string{"p4", "p3", "p2"}},
		{name: "single pass", retention: 1, saves: 3, wantIDs: []string{"p2"}},
		{name: "below retention", retention: 4, saves: 2, wantIDs: []string{"p1", "p0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t, tt.retention)
			base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			for i := 0; i < tt.saves; i++ {
				require.NoError(t, s.SavePass(pass(fmt.Sprintf("p%d", i), types.FamilyRoles, base.Add(time.Duration(i)*time.Second))))

				passes, err := s.ListPasses(types.FamilyRoles, 0)
				require.NoError(t, err)
				assert.LessOrEqual(t, len(passes), tt.retention, "after save %d", i)
			}

			passes, err := s.ListPasses(types.FamilyRoles, 0)
			require.NoError(t, err)
			var ids []string
			for _, p := range passes {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestSavePass_UnknownFamily(t *testing.T) {
	s := newStore(t, 0)
	assert.Error(t, s.SavePass(pass("x", types.Family("emoji"), time.Now())))
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBoltStore(dir, 0)
	require.NoError(t, err)
	require.NoError(t, s.SavePass(pass("r1", types.FamilyRoles, time.Now())))
	require.NoError(t, s.Close())

	s, err = NewBoltStore(dir, 0)
	require.NoError(t, err)
	defer s.Close()

	passes, err := s.ListPasses(types.FamilyRoles, 0)
	require.NoError(t, err)
	assert.Len(t, passes, 1)
}
