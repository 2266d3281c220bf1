package board

import (
	"context"
	"errors"
	"net"
)

var (
	// ErrInvalidTransition means the requested drop target is not
	// reachable from the card's current column.
	ErrInvalidTransition = errors.New("invalid column transition")

	// ErrUnknownOrder means the order is not present on the board.
	ErrUnknownOrder = errors.New("order not on board")

	// ErrNoNextColumn means the card is already in the final column.
	ErrNoNextColumn = errors.New("no next column")

	// ErrTerminalOrder means the order is already completed or cancelled.
	ErrTerminalOrder = errors.New("order already terminal")
)

// isConnectivityError reports whether a persistence failure looks like the
// orders backend being unreachable rather than it rejecting the request.
func isConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
