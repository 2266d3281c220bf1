package domain

import (
	"reflect"
	"testing"
	"time"
)

func TestSortByUrgencyAndTime(t *testing.T) {
	th := UrgencyThresholds{WarningMinutes: 15, CriticalMinutes: 30}
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base.Add(16 * time.Minute)

	older := Order{ID: "a", ConfirmedAt: ptrTime(base)}
	newer := Order{ID: "b", ConfirmedAt: ptrTime(base.Add(10 * time.Minute))}

	sorted := SortByUrgencyAndTime([]Order{newer, older}, now, th)
	if sorted[0].ID != "a" || sorted[1].ID != "b" {
		t.Fatalf("more urgent order must come first: %v", ids(sorted))
	}
}

func TestSortByUrgencyAndTimeStable(t *testing.T) {
	th := DefaultThresholds
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base.Add(5 * time.Minute)

	in := []Order{
		{ID: "x", ConfirmedAt: ptrTime(base)},
		{ID: "y", ConfirmedAt: ptrTime(base)},
		{ID: "z", ConfirmedAt: ptrTime(base)},
	}
	once := SortByUrgencyAndTime(in, now, th)
	twice := SortByUrgencyAndTime(once, now, th)
	if !reflect.DeepEqual(ids(once), []string{"x", "y", "z"}) {
		t.Fatalf("equal keys must keep input order: %v", ids(once))
	}
	if !reflect.DeepEqual(ids(once), ids(twice)) {
		t.Fatalf("sort must be idempotent: %v vs %v", ids(once), ids(twice))
	}
}

func TestSortByUrgencyAndTimeDoesNotMutateInput(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in := []Order{
		{ID: "late", ConfirmedAt: ptrTime(base)},
		{ID: "early", ConfirmedAt: ptrTime(base.Add(-time.Hour))},
	}
	_ = SortByUrgencyAndTime(in, base.Add(time.Minute), DefaultThresholds)
	if in[0].ID != "late" || in[1].ID != "early" {
		t.Fatalf("input slice mutated: %v", ids(in))
	}
}

func TestSortByCompletionTime(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in := []Order{
		{ID: "first", Status: StatusCompleted, CompletedAt: ptrTime(base)},
		{ID: "latest", Status: StatusCompleted, CompletedAt: ptrTime(base.Add(20 * time.Minute))},
		{ID: "middle", Status: StatusCompleted, CompletedAt: ptrTime(base.Add(10 * time.Minute))},
	}
	sorted := SortByCompletionTime(in)
	if !reflect.DeepEqual(ids(sorted), []string{"latest", "middle", "first"}) {
		t.Fatalf("done column must show newest first: %v", ids(sorted))
	}
	if in[0].ID != "first" {
		t.Fatal("input slice mutated")
	}
}

func TestSortByCompletionTimeFallsBackToConfirmedAt(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in := []Order{
		{ID: "cancelled", Status: StatusCancelled, ConfirmedAt: ptrTime(base.Add(5 * time.Minute))},
		{ID: "completed", Status: StatusCompleted, CompletedAt: ptrTime(base)},
	}
	sorted := SortByCompletionTime(in)
	if sorted[0].ID != "cancelled" {
		t.Fatalf("expected confirmation anchor to order cancelled order first: %v", ids(sorted))
	}
}

func ids(orders []Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}
