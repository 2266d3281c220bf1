package board

import (
	"context"
	"encoding/json"
	"fmt"

	"kitchen-board/domain"
)

// moveCommand captures one optimistic move so it can be applied
// synchronously and, if the backend rejects it while reachable, undone
// when the reconciling refetch cannot run either.
type moveCommand struct {
	orderID      string
	source       domain.Column
	target       domain.Column
	newStatus    domain.Status
	prev         domain.Order
	cancelReason string
}

func (c *Controller) buildMoveLocked(orderID string, source, target domain.Column, newStatus domain.Status) *moveCommand {
	_, idx, _ := c.locateLocked(orderID)
	return &moveCommand{
		orderID:   orderID,
		source:    source,
		target:    target,
		newStatus: newStatus,
		prev:      c.columns[source][idx],
	}
}

// apply removes the order from its source column, re-tags its status and
// inserts it into the target, which is then re-sorted. Caller holds the
// controller lock.
func (cmd *moveCommand) apply(c *Controller) {
	col := c.columns[cmd.source]
	for i, o := range col {
		if o.ID == cmd.orderID {
			c.columns[cmd.source] = append(col[:i:i], col[i+1:]...)
			break
		}
	}
	moved := cmd.prev
	moved.Status = cmd.newStatus
	if cmd.newStatus.Terminal() && moved.CompletedAt == nil {
		now := c.cfg.Clock()
		moved.CompletedAt = &now
	}
	c.columns[cmd.target] = append(c.columns[cmd.target], moved)
	c.resortLocked(cmd.target)
}

// revert restores the order to its source column with its previous status.
// Caller holds the controller lock.
func (cmd *moveCommand) revert(c *Controller) {
	col := c.columns[cmd.target]
	for i, o := range col {
		if o.ID == cmd.orderID {
			c.columns[cmd.target] = append(col[:i:i], col[i+1:]...)
			break
		}
	}
	c.columns[cmd.source] = append(c.columns[cmd.source], cmd.prev)
	c.resortLocked(cmd.source)
}

func (c *Controller) resortLocked(col domain.Column) {
	if col == domain.ColumnDone {
		c.columns[col] = domain.SortByCompletionTime(c.columns[col])
		return
	}
	c.columns[col] = domain.SortByUrgencyAndTime(c.columns[col], c.cfg.Clock(), c.cfg.Thresholds)
}

// startPersist runs the backend call for an already-applied move. The
// optimistic update is visible before this resolves; the board mutex is
// never held across the call.
func (c *Controller) startPersist(cmd *moveCommand) {
	c.persistWG.Add(1)
	go func() {
		defer c.persistWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PersistTimeout)
		defer cancel()
		c.persist(ctx, cmd)
	}()
}

func (c *Controller) persist(ctx context.Context, cmd *moveCommand) {
	var err error
	if cmd.newStatus == domain.StatusCancelled {
		_, err = c.cfg.Orders.CancelOrder(ctx, cmd.orderID, cmd.cancelReason)
	} else {
		_, err = c.cfg.Orders.UpdateOrderStatus(ctx, cmd.orderID, cmd.newStatus)
	}
	if err == nil {
		c.conn.MarkSuccess()
		return
	}

	logger := c.cfg.Logger.WithError(err).WithField("order", cmd.orderID)

	if isConnectivityError(err) || !c.conn.Online() {
		// Offline: keep the optimistic state and queue the mutation for
		// replay once connectivity returns.
		c.conn.MarkFailure(err)
		if qErr := c.enqueueMutation(ctx, cmd); qErr != nil {
			logger.WithError(qErr).Error("failed to queue mutation while offline")
			c.toast(ToastError, fmt.Sprintf("could not save or queue order #%s", cmd.orderID))
			return
		}
		logger.Info("backend unreachable, mutation queued")
		c.toast(ToastInfo, fmt.Sprintf("order #%s will sync when back online", cmd.orderID))
		return
	}

	// Online rejection: the optimistic state is wrong. Reconcile from
	// server truth; only fall back to the local revert when the refetch
	// fails too.
	logger.Error("status update rejected")
	c.toast(ToastError, fmt.Sprintf("could not update order #%s", cmd.orderID))
	if rErr := c.Refresh(ctx); rErr != nil {
		c.mu.Lock()
		cmd.revert(c)
		snapshot := c.columns.Clone()
		c.mu.Unlock()
		c.broadcast(snapshot)
	}
}

func (c *Controller) enqueueMutation(ctx context.Context, cmd *moveCommand) error {
	if c.cfg.Queue == nil {
		return fmt.Errorf("mutation queue unavailable")
	}
	// A later queued mutation for the same order supersedes earlier ones:
	// the backend only needs the final status.
	for _, m := range c.cfg.Queue.MutationsForOrder(cmd.orderID) {
		if err := c.cfg.Queue.Dequeue(ctx, m.ID); err != nil {
			return err
		}
	}
	if cmd.newStatus == domain.StatusCancelled {
		payload, err := json.Marshal(domain.CancelPayload{Reason: cmd.cancelReason})
		if err != nil {
			return err
		}
		_, err = c.cfg.Queue.Enqueue(ctx, domain.MutationCancel, cmd.orderID, payload)
		return err
	}
	payload, err := json.Marshal(domain.UpdateStatusPayload{Status: cmd.newStatus})
	if err != nil {
		return err
	}
	_, err = c.cfg.Queue.Enqueue(ctx, domain.MutationUpdateStatus, cmd.orderID, payload)
	return err
}
