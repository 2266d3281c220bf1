package domain

import "testing"

func TestColumnForStatusTotal(t *testing.T) {
	cases := map[Status]Column{
		StatusConfirmed: ColumnNew,
		StatusPreparing: ColumnPreparing,
		StatusReady:     ColumnReady,
		StatusCompleted: ColumnDone,
		StatusCancelled: ColumnDone,
		Status("weird"): ColumnDone,
	}
	for status, want := range cases {
		if got := ColumnForStatus(status); got != want {
			t.Fatalf("ColumnForStatus(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestStatusForColumn(t *testing.T) {
	cases := map[Column]Status{
		ColumnNew:       StatusConfirmed,
		ColumnPreparing: StatusPreparing,
		ColumnReady:     StatusReady,
		ColumnDone:      StatusCompleted,
	}
	for column, want := range cases {
		if got := StatusForColumn(column); got != want {
			t.Fatalf("StatusForColumn(%q) = %q, want %q", column, got, want)
		}
	}
}

func TestCanDropInColumnMatrix(t *testing.T) {
	successor := map[Column]Column{
		ColumnNew:       ColumnPreparing,
		ColumnPreparing: ColumnReady,
		ColumnReady:     ColumnDone,
	}
	for _, source := range Columns {
		for _, target := range Columns {
			want := source == target || successor[source] == target
			if got := CanDropInColumn(source, target); got != want {
				t.Fatalf("CanDropInColumn(%q, %q) = %v, want %v", source, target, got, want)
			}
		}
	}
}

func TestNoMoveOutOfDone(t *testing.T) {
	if _, ok := NextColumn(ColumnDone); ok {
		t.Fatal("done must have no successor")
	}
	for _, target := range []Column{ColumnNew, ColumnPreparing, ColumnReady} {
		if CanDropInColumn(ColumnDone, target) {
			t.Fatalf("drop from done to %q must be rejected", target)
		}
	}
}

func TestValidDropTargets(t *testing.T) {
	targets := ValidDropTargets(ColumnNew)
	if len(targets) != 2 {
		t.Fatalf("unexpected targets for new: %v", targets)
	}
	seen := map[Column]bool{}
	for _, c := range targets {
		seen[c] = true
	}
	if !seen[ColumnNew] || !seen[ColumnPreparing] {
		t.Fatalf("targets for new must be itself and preparing: %v", targets)
	}

	done := ValidDropTargets(ColumnDone)
	if len(done) != 1 || done[0] != ColumnDone {
		t.Fatalf("done may only no-op onto itself: %v", done)
	}
}
