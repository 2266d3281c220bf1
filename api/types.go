package api

import (
	"context"

	"kitchen-board/board"
	"kitchen-board/domain"
	"kitchen-board/stream"
)

// Board is the slice of the controller the handlers drive.
type Board interface {
	State() board.BoardState
	BeginDrag(orderID string) ([]domain.Column, error)
	CancelDrag()
	MoveCard(orderID string, target domain.Column) error
	MoveToNext(orderID string) error
	Cancel(orderID, reason string) error
}

// Alerts exposes the mute preference and attachment signal of the
// notification trigger.
type Alerts interface {
	Muted() bool
	SetMuted(ctx context.Context, muted bool) error
	Activate()
}

// SyncStats reports offline-sync progress for the console indicator.
type SyncStats interface {
	Stats() board.ReplayStats
}

// Streamer hands out live board event subscriptions.
type Streamer interface {
	Subscribe() (<-chan stream.Event, func())
}

// Authenticator is implemented by types able to extract staff IDs from headers.
type Authenticator interface {
	StaffIDFromAuthHeader(string) (string, error)
}
