// Package ordering computes minimal swap sequences between two orders of the
// same entities and merges strategy sub-orders into one display order.
package ordering

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMismatch is returned when the desired and current orders are not
// permutations of the same set of identities.
var ErrMismatch = errors.New("desired and current orders differ in membership")

// Swap exchanges the entries at positions From and To
type Swap struct {
	From int
	To   int
}

// Swaps computes the position swaps that turn current into desired.
//
// The scan walks target positions left to right. For position i it looks up
// where the desired entry currently sits in the working copy and, if that is
// not i, swaps it into place. Positions 0..i are final after step i and are
// never touched again, so at most len(desired) swaps are produced.
func Swaps(desired, current []string) ([]Swap, error) {
	if err := sameMembers(desired, current); err != nil {
		return nil, err
	}

	working := make([]string, len(current))
	copy(working, current)

	var swaps []Swap
	for i, want := range desired {
		j := i
		for j < len(working) && working[j] != want {
			j++
		}
		if j == i {
			continue
		}
		working[i], working[j] = working[j], working[i]
		swaps = append(swaps, Swap{From: j, To: i})
	}
	return swaps, nil
}

// Apply returns a copy of order with the swaps applied left to right
func Apply(order []string, swaps []Swap) []string {
	out := make([]string, len(order))
	copy(out, order)
	for _, s := range swaps {
		out[s.From], out[s.To] = out[s.To], out[s.From]
	}
	return out
}

func sameMembers(desired, current []string) error {
	if len(desired) != len(current) {
		return fmt.Errorf("%w: %d desired, %d current", ErrMismatch, len(desired), len(current))
	}
	counts := make(map[string]int, len(current))
	for _, id := range current {
		counts[id]++
		if counts[id] > 1 {
			return fmt.Errorf("%w: duplicate %q", ErrMismatch, id)
		}
	}
	for _, id := range desired {
		if counts[id] != 1 {
			return fmt.Errorf("%w: %q", ErrMismatch, id)
		}
		counts[id]--
	}
	return nil
}

// Group is one strategy's desired sub-order
type Group struct {
	Priority int
	Prefix   string
	Order    []string
}

// Merge builds the final desired order for one entity kind.
//
// current is the live order with unmovable entities already removed. Entries
// of current not claimed by any group keep their relative order and are
// placed first. Claimed entries follow, group by group, sorted by priority
// and then prefix. Claimed identities that are not in current (for example
// created moments ago and not yet visible) are dropped; an identity claimed by
// more than one group stays with the first.
func Merge(groups []Group, current []string) []string {
	live := make(map[string]bool, len(current))
	for _, id := range current {
		live[id] = true
	}

	sorted := make([]Group, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return strings.ToLower(sorted[i].Prefix) < strings.ToLower(sorted[j].Prefix)
	})

	claimed := make(map[string]bool)
	var tail []string
	for _, g := range sorted {
		for _, id := range g.Order {
			if !live[id] || claimed[id] {
				continue
			}
			claimed[id] = true
			tail = append(tail, id)
		}
	}

	out := make([]string, 0, len(current))
	for _, id := range current {
		if !claimed[id] {
			out = append(out, id)
		}
	}
	return append(out, tail...)
}
