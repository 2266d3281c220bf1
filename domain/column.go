package domain

// Column is one of the four workflow buckets on the kitchen board.
// Membership is always derived from order status, never stored.
type Column string

const (
	ColumnNew       Column = "new"
	ColumnPreparing Column = "preparing"
	ColumnReady     Column = "ready"
	ColumnDone      Column = "done"
)

// Columns lists the board columns in workflow order.
var Columns = []Column{ColumnNew, ColumnPreparing, ColumnReady, ColumnDone}

// ColumnForStatus maps an order status to its board column. Total: every
// status lands in exactly one column.
func ColumnForStatus(s Status) Column {
	switch s {
	case StatusConfirmed:
		return ColumnNew
	case StatusPreparing:
		return ColumnPreparing
	case StatusReady:
		return ColumnReady
	default:
		// completed, cancelled and anything unrecognized belong in done;
		// the board must stay renderable whatever the backend sends.
		return ColumnDone
	}
}

// StatusForColumn is the inverse mapping used when persisting a drop.
// Done maps to completed: cancellation is an explicit action, never a
// drag target.
func StatusForColumn(c Column) Status {
	switch c {
	case ColumnNew:
		return StatusConfirmed
	case ColumnPreparing:
		return StatusPreparing
	case ColumnReady:
		return StatusReady
	default:
		return StatusCompleted
	}
}

// NextColumn returns the single successor in the fixed workflow sequence
// new→preparing→ready→done. The second result is false for done, which
// has no successor.
func NextColumn(c Column) (Column, bool) {
	switch c {
	case ColumnNew:
		return ColumnPreparing, true
	case ColumnPreparing:
		return ColumnReady, true
	case ColumnReady:
		return ColumnDone, true
	default:
		return "", false
	}
}

// CanDropInColumn reports whether a card may be dropped from source onto
// target. Allowed: the single forward step, and the no-op drop back onto
// the source column. Backward moves, skips and any move out of done are
// rejected so kitchen staff cannot silently bypass workflow stages.
func CanDropInColumn(source, target Column) bool {
	if source == target {
		return true
	}
	next, ok := NextColumn(source)
	return ok && next == target
}

// ValidDropTargets returns the columns a card in source may legally be
// dropped onto, used to highlight drop zones during a drag gesture.
func ValidDropTargets(source Column) []Column {
	targets := make([]Column, 0, 2)
	for _, c := range Columns {
		if CanDropInColumn(source, c) {
			targets = append(targets, c)
		}
	}
	return targets
}
