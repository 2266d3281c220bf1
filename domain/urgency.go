package domain

import "time"

// UrgencyLevel classifies how long an order has waited since confirmation.
type UrgencyLevel string

const (
	UrgencyNormal   UrgencyLevel = "normal"
	UrgencyWarning  UrgencyLevel = "warning"
	UrgencyCritical UrgencyLevel = "critical"
)

// rank orders urgency levels for sorting, higher is more urgent.
func (u UrgencyLevel) rank() int {
	switch u {
	case UrgencyCritical:
		return 2
	case UrgencyWarning:
		return 1
	default:
		return 0
	}
}

// UrgencyThresholds carries the two wait-time cutoffs, in minutes.
type UrgencyThresholds struct {
	WarningMinutes  int
	CriticalMinutes int
}

// DefaultThresholds matches the stock console configuration.
var DefaultThresholds = UrgencyThresholds{WarningMinutes: 10, CriticalMinutes: 20}

// Urgency derives the urgency level for an order confirmed at confirmedAt,
// evaluated at now. A nil confirmedAt means the order is not yet timed and
// is always normal. For a fixed confirmedAt the result is monotonic in now.
func Urgency(confirmedAt *time.Time, now time.Time, t UrgencyThresholds) UrgencyLevel {
	if confirmedAt == nil {
		return UrgencyNormal
	}
	elapsed := now.Sub(*confirmedAt)
	if elapsed >= time.Duration(t.CriticalMinutes)*time.Minute {
		return UrgencyCritical
	}
	if elapsed >= time.Duration(t.WarningMinutes)*time.Minute {
		return UrgencyWarning
	}
	return UrgencyNormal
}

// ElapsedTimeData is a display-ready breakdown of how long an order has
// waited. Purely a formatting concern.
type ElapsedTimeData struct {
	UnitType string `json:"unitType"`
	Count    int    `json:"count"`
}

// ElapsedTime formats the wait since confirmedAt as the largest sensible
// unit. Orders without a confirmation timestamp report zero minutes.
func ElapsedTime(confirmedAt *time.Time, now time.Time) ElapsedTimeData {
	if confirmedAt == nil {
		return ElapsedTimeData{UnitType: "minutes", Count: 0}
	}
	elapsed := now.Sub(*confirmedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= time.Hour {
		return ElapsedTimeData{UnitType: "hours", Count: int(elapsed / time.Hour)}
	}
	return ElapsedTimeData{UnitType: "minutes", Count: int(elapsed / time.Minute)}
}
