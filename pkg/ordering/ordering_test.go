package ordering

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwaps(t *testing.T) {
	tests := []struct {
		name    string
		desired []string
		current []string
		want    []Swap
	}{
		{
			name:    "already ordered",
			desired: []string{"a", "b", "c"},
			current: []string{"a", "b", "c"},
			want:    nil,
		},
		{
			name:    "rotated",
			desired: []string{"a", "b", "c"},
			current: []string{"c", "a", "b"},
			want:    []Swap{{From: 1, To: 0}, {From: 2, To: 1}},
		},
		{
			name:    "single transposition",
			desired: []string{"a", "b", "c", "d"},
			current: []string{"a", "d", "c", "b"},
			want:    []Swap{{From: 3, To: 1}},
		},
		{
			name:    "reversed",
			desired: []string{"a", "b", "c", "d"},
			current: []string{"d", "c", "b", "a"},
			want:    []Swap{{From: 3, To: 0}, {From: 2, To: 1}},
		},
		{
			name:    "empty",
			desired: nil,
			current: nil,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Swaps(tt.desired, tt.current)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Swaps() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.desired, Apply(tt.current, got), cmpEmpty); diff != "" {
				t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

var cmpEmpty = cmp.Comparer(func(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
})

func TestSwaps_Mismatch(t *testing.T) {
	tests := []struct {
		name    string
		desired []string
		current []string
	}{
		{name: "length", desired: []string{"a"}, current: []string{"a", "b"}},
		{name: "members", desired: []string{"a", "c"}, current: []string{"a", "b"}},
		{name: "duplicate", desired: []string{"a", "b"}, current: []string{"a", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Swaps(tt.desired, tt.current)
			assert.ErrorIs(t, err, ErrMismatch)
		})
	}
}

// TestSwaps_AllPermutations checks every permutation up to six entries: the
// result is exact and never uses more swaps than entries.
func TestSwaps_AllPermutations(t *testing.T) {
	for n := 1; n <= 6; n++ {
		desired := make([]string, n)
		for i := range desired {
			desired[i] = fmt.Sprintf("e%d", i)
		}
		permute(desired, func(current []string) {
			swaps, err := Swaps(desired, current)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(swaps), n)
			assert.Equal(t, desired, Apply(current, swaps), "current=%v", current)
		})
	}
}

func permute(items []string, visit func([]string)) {
	p := make([]string, len(items))
	copy(p, items)
	var rec func(k int)
	rec = func(k int) {
		if k == len(p) {
			visit(p)
			return
		}
		for i := k; i < len(p); i++ {
			p[k], p[i] = p[i], p[k]
			rec(k + 1)
			p[k], p[i] = p[i], p[k]
		}
	}
	rec(0)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	in := []string{"b", "a"}
	out := Apply(in, []Swap{{From: 1, To: 0}})
	assert.Equal(t, []string{"a", "b"}, out)
	assert.Equal(t, []string{"b", "a"}, in)
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name    string
		groups  []Group
		current []string
		want    []string
	}{
		{
			name:    "unclaimed first in current order",
			groups:  []Group{{Priority: 1, Prefix: "cs-", Order: []string{"cs-1", "cs-2"}}},
			current: []string{"cs-2", "general", "cs-1", "rules"},
			want:    []string{"general", "rules", "cs-1", "cs-2"},
		},
		{
			name: "priority then prefix",
			groups: []Group{
				{Priority: 20, Prefix: "club", Order: []string{"club-a"}},
				{Priority: 10, Prefix: "cs-", Order: []string{"cs-1"}},
				{Priority: 10, Prefix: "art-", Order: []string{"art-1"}},
			},
			current: []string{"club-a", "cs-1", "art-1"},
			want:    []string{"art-1", "cs-1", "club-a"},
		},
		{
			name:    "claimed but not live is dropped",
			groups:  []Group{{Priority: 1, Prefix: "cs-", Order: []string{"cs-new", "cs-1"}}},
			current: []string{"cs-1", "general"},
			want:    []string{"general", "cs-1"},
		},
		{
			name: "first claim wins",
			groups: []Group{
				{Priority: 1, Prefix: "a", Order: []string{"x", "y"}},
				{Priority: 2, Prefix: "b", Order: []string{"y", "z"}},
			},
			current: []string{"z", "y", "x"},
			want:    []string{"x", "y", "z"},
		},
		{
			name:    "no groups keeps current",
			groups:  nil,
			current: []string{"b", "a"},
			want:    []string{"b", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.groups, tt.current)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
