package domain

import "encoding/json"

const (
	MutationUpdateStatus = "updateStatus"
	MutationCancel       = "cancel"
)

// QueuedMutation is a status change that could not be persisted while the
// orders backend was unreachable. It lives in the mutation queue until it
// replays successfully, exceeds the retry cap, or goes stale.
type QueuedMutation struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OrderID    string          `json:"orderId"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Timestamp  int64           `json:"timestamp"`
	RetryCount int             `json:"retryCount"`
}

// UpdateStatusPayload is the payload of an updateStatus mutation.
type UpdateStatusPayload struct {
	Status Status `json:"status"`
}

// CancelPayload is the payload of a cancel mutation.
type CancelPayload struct {
	Reason string `json:"reason,omitempty"`
}
