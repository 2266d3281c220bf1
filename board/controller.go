package board

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"kitchen-board/domain"
)

// BoardState maps each column to its ordered card list. It is rebuilt
// wholesale on every refresh and patched in place by optimistic moves.
type BoardState map[domain.Column][]domain.Order

// Clone returns a deep-enough copy for handing to render and broadcast
// code without exposing the controller's own slices.
func (s BoardState) Clone() BoardState {
	out := make(BoardState, len(s))
	for col, orders := range s {
		out[col] = append([]domain.Order(nil), orders...)
	}
	return out
}

// OrdersClient is the persistence collaborator behind the board.
type OrdersClient interface {
	ListActiveOrders(ctx context.Context, storeID string) ([]domain.Order, error)
	ListRecentlyCompletedOrders(ctx context.Context, storeID string, window time.Duration) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.Status) (domain.Order, error)
	CancelOrder(ctx context.Context, orderID, reason string) (domain.Order, error)
}

// Toast severity shown on the console.
const (
	ToastInfo  = "info"
	ToastError = "error"
)

// Toaster surfaces non-fatal, user-visible notices from the board engine.
type Toaster interface {
	Toast(level, message string)
}

// Config carries the injected dependencies and tuning of a Controller.
type Config struct {
	StoreID        string
	Orders         OrdersClient
	Queue          *MutationQueue
	Trigger        *Trigger
	Toasts         Toaster
	Logger         *log.Logger
	Thresholds     domain.UrgencyThresholds
	ArchiveWindow  time.Duration
	PersistTimeout time.Duration
	Clock          func() time.Time
	// OnChange is invoked with a copy of the board after every rebuild or
	// optimistic patch. Used by the stream fanout.
	OnChange func(BoardState)
}

// Controller owns the board state and the optimistic-update lifecycle.
// All state access is serialized through its mutex; persistence calls run
// asynchronously and never hold it.
type Controller struct {
	cfg  Config
	conn *Connectivity

	mu           sync.Mutex
	columns      BoardState
	activeDragID string
	sourceColumn domain.Column
	dragging     bool

	persistWG sync.WaitGroup
}

// NewController builds a controller with an empty board. The first call to
// Refresh populates it.
func NewController(cfg Config, conn *Connectivity) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 15 * time.Second
	}
	if cfg.Thresholds == (domain.UrgencyThresholds{}) {
		cfg.Thresholds = domain.DefaultThresholds
	}
	return &Controller{
		cfg:     cfg,
		conn:    conn,
		columns: make(BoardState),
	}
}

// GroupOrders builds a board from the two backend lists: every active
// order is routed through the status→column mapping, recently completed
// orders land in done verbatim, and each column is sorted for display.
func GroupOrders(active, done []domain.Order, now time.Time, t domain.UrgencyThresholds) BoardState {
	state := BoardState{
		domain.ColumnNew:       nil,
		domain.ColumnPreparing: nil,
		domain.ColumnReady:     nil,
		domain.ColumnDone:      nil,
	}
	for _, o := range active {
		col := domain.ColumnForStatus(o.Status)
		state[col] = append(state[col], o)
	}
	state[domain.ColumnDone] = append(state[domain.ColumnDone], done...)

	for _, col := range []domain.Column{domain.ColumnNew, domain.ColumnPreparing, domain.ColumnReady} {
		state[col] = domain.SortByUrgencyAndTime(state[col], now, t)
	}
	state[domain.ColumnDone] = domain.SortByCompletionTime(state[domain.ColumnDone])
	return state
}

// Refresh pulls both order lists from the backend and replaces the board.
// Optimistic divergence from server truth is reconciled here. A refresh
// failure leaves the previous board in place; the console shows stale data
// rather than nothing.
func (c *Controller) Refresh(ctx context.Context) error {
	active, err := c.cfg.Orders.ListActiveOrders(ctx, c.cfg.StoreID)
	if err != nil {
		c.conn.MarkFailure(err)
		return err
	}
	done, err := c.cfg.Orders.ListRecentlyCompletedOrders(ctx, c.cfg.StoreID, c.cfg.ArchiveWindow)
	if err != nil {
		c.conn.MarkFailure(err)
		return err
	}
	c.conn.MarkSuccess()

	state := GroupOrders(active, done, c.cfg.Clock(), c.cfg.Thresholds)

	c.mu.Lock()
	c.columns = state
	snapshot := state.Clone()
	c.mu.Unlock()

	if c.cfg.Trigger != nil {
		c.cfg.Trigger.Observe(append(active, done...))
	}
	c.broadcast(snapshot)
	return nil
}

// State returns a copy of the current board.
func (c *Controller) State() BoardState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.columns.Clone()
}

// BeginDrag records the dragged card and its current column, and returns
// the legal drop targets for highlighting. No network effect.
func (c *Controller) BeginDrag(orderID string) ([]domain.Column, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	col, _, ok := c.locateLocked(orderID)
	if !ok {
		return nil, ErrUnknownOrder
	}
	c.activeDragID = orderID
	c.sourceColumn = col
	c.dragging = true
	return domain.ValidDropTargets(col), nil
}

// CancelDrag ends a drag gesture without any state mutation or network
// call (escape, or drop outside every target).
func (c *Controller) CancelDrag() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearDragLocked()
}

// MoveCard moves a card to the target column: validate, apply the move
// optimistically, then persist asynchronously. A drop back onto the source
// column is a no-op, not an error.
func (c *Controller) MoveCard(orderID string, target domain.Column) error {
	c.mu.Lock()

	source, _, ok := c.locateLocked(orderID)
	if !ok {
		c.clearDragLocked()
		c.mu.Unlock()
		return ErrUnknownOrder
	}
	c.clearDragLocked()

	if source == target {
		c.mu.Unlock()
		return nil
	}
	if !domain.CanDropInColumn(source, target) {
		c.mu.Unlock()
		return ErrInvalidTransition
	}

	newStatus := domain.StatusForColumn(target)
	cmd := c.buildMoveLocked(orderID, source, target, newStatus)
	cmd.apply(c)
	snapshot := c.columns.Clone()
	c.mu.Unlock()

	c.broadcast(snapshot)
	c.startPersist(cmd)
	return nil
}

// MoveToNext advances a card one step along new→preparing→ready→done.
func (c *Controller) MoveToNext(orderID string) error {
	c.mu.Lock()
	source, _, ok := c.locateLocked(orderID)
	c.mu.Unlock()
	if !ok {
		return ErrUnknownOrder
	}
	next, ok := domain.NextColumn(source)
	if !ok {
		return ErrNoNextColumn
	}
	return c.MoveCard(orderID, next)
}

// Cancel transitions an order to cancelled. It is an explicit action with
// the same optimistic/queue/reconcile contract as MoveCard, but it is not
// reachable by drag and applies from any non-terminal column.
func (c *Controller) Cancel(orderID, reason string) error {
	c.mu.Lock()

	source, idx, ok := c.locateLocked(orderID)
	if !ok {
		c.mu.Unlock()
		return ErrUnknownOrder
	}
	if c.columns[source][idx].Status.Terminal() {
		c.mu.Unlock()
		return ErrTerminalOrder
	}

	cmd := c.buildMoveLocked(orderID, source, domain.ColumnDone, domain.StatusCancelled)
	cmd.cancelReason = reason
	cmd.apply(c)
	snapshot := c.columns.Clone()
	c.mu.Unlock()

	c.broadcast(snapshot)
	c.startPersist(cmd)
	return nil
}

// locateLocked finds the column and index currently holding an order.
func (c *Controller) locateLocked(orderID string) (domain.Column, int, bool) {
	for col, orders := range c.columns {
		for i, o := range orders {
			if o.ID == orderID {
				return col, i, true
			}
		}
	}
	return "", 0, false
}

func (c *Controller) clearDragLocked() {
	c.activeDragID = ""
	c.sourceColumn = ""
	c.dragging = false
}

func (c *Controller) broadcast(state BoardState) {
	if c.cfg.OnChange != nil {
		c.cfg.OnChange(state)
	}
}

func (c *Controller) toast(level, message string) {
	if c.cfg.Toasts != nil {
		c.cfg.Toasts.Toast(level, message)
	}
}

// flush waits for in-flight persistence goroutines. Test hook.
func (c *Controller) flush() {
	c.persistWG.Wait()
}
