package board

import (
	"context"
	"sync"
	"time"

	"kitchen-board/domain"
)

type fakeOrders struct {
	mu          sync.Mutex
	active      []domain.Order
	done        []domain.Order
	listErr     error
	updateErr   error
	cancelErr   error
	updateCalls []updateCall
	cancelCalls []cancelCall
}

type updateCall struct {
	orderID string
	status  domain.Status
}

type cancelCall struct {
	orderID string
	reason  string
}

func (f *fakeOrders) ListActiveOrders(ctx context.Context, storeID string) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Order(nil), f.active...), nil
}

func (f *fakeOrders) ListRecentlyCompletedOrders(ctx context.Context, storeID string, window time.Duration) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Order(nil), f.done...), nil
}

func (f *fakeOrders) UpdateOrderStatus(ctx context.Context, orderID string, status domain.Status) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls = append(f.updateCalls, updateCall{orderID: orderID, status: status})
	if f.updateErr != nil {
		return domain.Order{}, f.updateErr
	}
	return domain.Order{ID: orderID, Status: status}, nil
}

func (f *fakeOrders) CancelOrder(ctx context.Context, orderID, reason string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls = append(f.cancelCalls, cancelCall{orderID: orderID, reason: reason})
	if f.cancelErr != nil {
		return domain.Order{}, f.cancelErr
	}
	return domain.Order{ID: orderID, Status: domain.StatusCancelled}, nil
}

func (f *fakeOrders) updates() []updateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]updateCall(nil), f.updateCalls...)
}

func (f *fakeOrders) cancels() []cancelCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]cancelCall(nil), f.cancelCalls...)
}

func (f *fakeOrders) setUpdateErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateErr = err
}

type memQueueStore struct {
	mu    sync.Mutex
	items []domain.QueuedMutation
	saves int
	err   error
}

func (s *memQueueStore) Load(ctx context.Context) ([]domain.QueuedMutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.QueuedMutation(nil), s.items...), nil
}

func (s *memQueueStore) Save(ctx context.Context, muts []domain.QueuedMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.items = append([]domain.QueuedMutation(nil), muts...)
	s.saves++
	return nil
}

type recordToaster struct {
	mu     sync.Mutex
	toasts []string
}

func (r *recordToaster) Toast(level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, level+": "+message)
}

func (r *recordToaster) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.toasts...)
}

type recordSink struct {
	mu    sync.Mutex
	plays []BeepSequence
	ch    chan struct{}
}

func newRecordSink() *recordSink {
	return &recordSink{ch: make(chan struct{}, 8)}
}

func (r *recordSink) Play(ctx context.Context, seq BeepSequence) {
	r.mu.Lock()
	r.plays = append(r.plays, seq)
	r.mu.Unlock()
	select {
	case r.ch <- struct{}{}:
	default:
	}
}

func (r *recordSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.plays)
}

type memMuteStore struct {
	mu    sync.Mutex
	muted bool
	saves int
	err   error
}

func (s *memMuteStore) LoadMuted(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted, s.err
}

func (s *memMuteStore) SaveMuted(ctx context.Context, muted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.muted = muted
	s.saves++
	return nil
}
