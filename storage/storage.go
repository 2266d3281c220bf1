package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"kitchen-board/domain"
)

// Storage provides access to the orders backend: the orders table plus the
// status-events queue consumed by export and analytics.
type Storage struct {
	ordersTable *aztables.Client
	eventsQueue *azqueue.QueueClient
	storeID     string
}

// New creates a Storage instance from the given connection string, scoped
// to one store's partition.
func New(connStr, ordersTable, eventsQueue, storeID string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	ot := svc.NewClient(ordersTable)
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	eq, err := azqueue.NewQueueClientFromConnectionString(connStr, eventsQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{ordersTable: ot, eventsQueue: eq, storeID: storeID}, nil
}

// odataString quotes a value for use in an OData filter, doubling any
// embedded single quotes so the value cannot terminate the literal.
func odataString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

type orderEntity struct {
	aztables.Entity
	Status           string `json:"Status"`
	OrderType        string `json:"OrderType"`
	Items            string `json:"Items"`
	CustomerNotes    string `json:"CustomerNotes"`
	ServicePointID   string `json:"ServicePointId"`
	ServicePointName string `json:"ServicePointName"`
	ConfirmedAt      int64  `json:"ConfirmedAt,string"`
	ConfirmedAtType  string `json:"ConfirmedAt@odata.type,omitempty"`
	CompletedAt      int64  `json:"CompletedAt,string"`
	CompletedAtType  string `json:"CompletedAt@odata.type,omitempty"`
	CancelReason     string `json:"CancelReason,omitempty"`
}

func (e orderEntity) toOrder() domain.Order {
	o := domain.Order{
		ID:            e.RowKey,
		Status:        domain.Status(e.Status),
		OrderType:     domain.OrderType(e.OrderType),
		CustomerNotes: e.CustomerNotes,
	}
	if e.Items != "" {
		// Items are display payload; a decode failure leaves the card
		// rendered without line details rather than failing the board.
		_ = json.Unmarshal([]byte(e.Items), &o.Items)
	}
	if e.ServicePointID != "" {
		o.ServicePoint = &domain.ServicePoint{ID: e.ServicePointID, Name: e.ServicePointName}
	}
	if e.ConfirmedAt > 0 {
		at := time.UnixMilli(e.ConfirmedAt).UTC()
		o.ConfirmedAt = &at
	}
	if e.CompletedAt > 0 {
		at := time.UnixMilli(e.CompletedAt).UTC()
		o.CompletedAt = &at
	}
	return o
}

// ListActiveOrders retrieves all orders for the store that are not yet in
// a terminal state.
func (s *Storage) ListActiveOrders(ctx context.Context, storeID string) ([]domain.Order, error) {
	filter := fmt.Sprintf("PartitionKey eq %s and (Status eq '%s' or Status eq '%s' or Status eq '%s')",
		odataString(storeID), domain.StatusConfirmed, domain.StatusPreparing, domain.StatusReady)
	return s.listOrders(ctx, filter)
}

// ListRecentlyCompletedOrders retrieves terminal orders that finished
// within the archive window, feeding the done column.
func (s *Storage) ListRecentlyCompletedOrders(ctx context.Context, storeID string, window time.Duration) ([]domain.Order, error) {
	cutoff := time.Now().Add(-window).UnixMilli()
	filter := fmt.Sprintf("PartitionKey eq %s and (Status eq '%s' or Status eq '%s') and CompletedAt ge %dL",
		odataString(storeID), domain.StatusCompleted, domain.StatusCancelled, cutoff)
	return s.listOrders(ctx, filter)
}

func (s *Storage) listOrders(ctx context.Context, filter string) ([]domain.Order, error) {
	pager := s.ordersTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	orders := []domain.Order{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var ent orderEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, err
			}
			orders = append(orders, ent.toOrder())
		}
	}
	return orders, nil
}

func (s *Storage) orderFilter(orderID string) string {
	return fmt.Sprintf("PartitionKey eq %s and RowKey eq %s", odataString(s.storeID), odataString(orderID))
}

func (s *Storage) getOrder(ctx context.Context, orderID string) (orderEntity, error) {
	filter := s.orderFilter(orderID)
	pager := s.ordersTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return orderEntity{}, err
		}
		for _, raw := range resp.Entities {
			var ent orderEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return orderEntity{}, err
			}
			return ent, nil
		}
	}
	return orderEntity{}, fmt.Errorf("order %s not found", orderID)
}

// UpdateOrderStatus persists a status transition and publishes the change
// on the events queue. Terminal transitions stamp the completion time.
func (s *Storage) UpdateOrderStatus(ctx context.Context, orderID string, status domain.Status) (domain.Order, error) {
	ent, err := s.getOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	update := map[string]any{
		"PartitionKey": ent.PartitionKey,
		"RowKey":       ent.RowKey,
		"Status":       string(status),
	}
	completedAt := ent.CompletedAt
	if status.Terminal() && completedAt == 0 {
		completedAt = time.Now().UnixMilli()
		update["CompletedAt"] = fmt.Sprintf("%d", completedAt)
		update["CompletedAt@odata.type"] = "Edm.Int64"
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return domain.Order{}, err
	}
	et := azcore.ETagAny
	if _, err := s.ordersTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{
		IfMatch:    &et,
		UpdateMode: aztables.UpdateModeMerge,
	}); err != nil {
		return domain.Order{}, err
	}

	ent.Status = string(status)
	ent.CompletedAt = completedAt
	s.publishStatusEvent(ctx, ent, "")
	return ent.toOrder(), nil
}

// CancelOrder persists an explicit cancellation with its reason.
func (s *Storage) CancelOrder(ctx context.Context, orderID, reason string) (domain.Order, error) {
	ent, err := s.getOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	completedAt := time.Now().UnixMilli()
	update := map[string]any{
		"PartitionKey":           ent.PartitionKey,
		"RowKey":                 ent.RowKey,
		"Status":                 string(domain.StatusCancelled),
		"CancelReason":           reason,
		"CompletedAt":            fmt.Sprintf("%d", completedAt),
		"CompletedAt@odata.type": "Edm.Int64",
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return domain.Order{}, err
	}
	et := azcore.ETagAny
	if _, err := s.ordersTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{
		IfMatch:    &et,
		UpdateMode: aztables.UpdateModeMerge,
	}); err != nil {
		return domain.Order{}, err
	}

	ent.Status = string(domain.StatusCancelled)
	ent.CompletedAt = completedAt
	ent.CancelReason = reason
	s.publishStatusEvent(ctx, ent, reason)
	return ent.toOrder(), nil
}

type statusEvent struct {
	OrderID   string `json:"orderId"`
	StoreID   string `json:"storeId"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// publishStatusEvent is best-effort: downstream consumers reconcile from
// the table, so a lost event is not worth failing the transition over.
func (s *Storage) publishStatusEvent(ctx context.Context, ent orderEntity, reason string) {
	ev := statusEvent{
		OrderID:   ent.RowKey,
		StoreID:   ent.PartitionKey,
		Status:    ent.Status,
		Reason:    reason,
		Timestamp: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = s.eventsQueue.EnqueueMessage(ctx, string(data), nil)
}
