package domain

import (
	"sort"
	"time"
)

// SortByUrgencyAndTime orders a column for display: most urgent first, and
// within the same urgency tier oldest confirmation first. The sort is
// stable and the input slice is left untouched.
func SortByUrgencyAndTime(orders []Order, now time.Time, t UrgencyThresholds) []Order {
	out := append([]Order(nil), orders...)
	sort.SliceStable(out, func(i, j int) bool {
		ui := Urgency(out[i].ConfirmedAt, now, t).rank()
		uj := Urgency(out[j].ConfirmedAt, now, t).rank()
		if ui != uj {
			return ui > uj
		}
		return confirmedBefore(out[i], out[j])
	})
	return out
}

// SortByCompletionTime orders the done column most-recently-finished first
// so staff see what just left the kitchen. Stable, non-mutating.
func SortByCompletionTime(orders []Order) []Order {
	out := append([]Order(nil), orders...)
	sort.SliceStable(out, func(i, j int) bool {
		ti := completionAnchor(out[i])
		tj := completionAnchor(out[j])
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.After(*tj)
	})
	return out
}

func confirmedBefore(a, b Order) bool {
	if a.ConfirmedAt == nil || b.ConfirmedAt == nil {
		return b.ConfirmedAt == nil && a.ConfirmedAt != nil
	}
	return a.ConfirmedAt.Before(*b.ConfirmedAt)
}

// completionAnchor prefers the completion timestamp and falls back to the
// confirmation time for orders that went terminal without one.
func completionAnchor(o Order) *time.Time {
	if o.CompletedAt != nil {
		return o.CompletedAt
	}
	return o.ConfirmedAt
}
