package domain

import "time"

// Status is the lifecycle state of an order as stored by the orders backend.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further workflow transitions exist for s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// OrderType distinguishes how an order is fulfilled.
type OrderType string

const (
	OrderTypeDineIn  OrderType = "dine_in"
	OrderTypeTakeout OrderType = "takeout"
)

// OrderItem is a single line of an order. Opaque to the board engine,
// carried only for display.
type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Options  string `json:"options,omitempty"`
}

// ServicePoint references the table or zone a dine-in order belongs to.
type ServicePoint struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Order represents a single live order on the kitchen board. The board
// engine only ever interprets Status and ConfirmedAt; everything else is
// display payload owned by the orders backend.
type Order struct {
	ID            string        `json:"id"`
	Status        Status        `json:"status"`
	ConfirmedAt   *time.Time    `json:"confirmedAt,omitempty"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty"`
	OrderType     OrderType     `json:"orderType"`
	Items         []OrderItem   `json:"items"`
	CustomerNotes string        `json:"customerNotes,omitempty"`
	ServicePoint  *ServicePoint `json:"servicePoint,omitempty"`
}
