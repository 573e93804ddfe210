package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"backoffice/internal/domain/dispatch"
	"backoffice/internal/domain/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct {
	mu          sync.Mutex
	orders      []Order
	products    []Product
	ordersErr   error
	productsErr error
	block       chan struct{}
	calls       int
}

func (f *fakeSource) RecentOrders(ctx context.Context, limit int) ([]Order, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	return append([]Order(nil), f.orders...), nil
}

func (f *fakeSource) Products(_ context.Context, _ int) ([]Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productsErr != nil {
		return nil, f.productsErr
	}
	return append([]Product(nil), f.products...), nil
}

func (f *fakeSource) set(fn func(f *fakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

type recordingNotifier struct {
	mu    sync.Mutex
	added []notification.Input
}

func (r *recordingNotifier) Add(_ context.Context, in notification.Input) (notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added = append(r.added, in)
	return notification.Notification{Category: in.Category, Title: in.Title}, nil
}

func (r *recordingNotifier) inputs() []notification.Input {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification.Input(nil), r.added...)
}

type recordingEnqueuer struct {
	mu     sync.Mutex
	events []*dispatch.Event
	err    error
}

func (r *recordingEnqueuer) EnqueueEvent(_ context.Context, ev *dispatch.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingEnqueuer) types() []dispatch.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]dispatch.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func newTestMonitor(src *fakeSource) (*Monitor, *recordingNotifier, *recordingEnqueuer) {
	notifier := &recordingNotifier{}
	enqueuer := &recordingEnqueuer{}
	m := New(src, notifier, enqueuer, Config{Interval: time.Hour})
	return m, notifier, enqueuer
}

func TestMonitor_ColdStartThenNewOrders(t *testing.T) {
	src := &fakeSource{orders: []Order{{ID: 101}}}
	m, notifier, enqueuer := newTestMonitor(src)
	ctx := t.Context()

	res, err := m.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Orders)
	assert.Empty(t, notifier.inputs())

	src.set(func(f *fakeSource) {
		f.orders = []Order{
			{ID: 103, FirstName: "Lola", LastName: "Flores", Total: "59.90", Currency: "EUR", Items: []LineItem{{Name: "Abanico", Quantity: 2}}},
			{ID: 102, FirstName: "Ana", Total: "12.00"},
			{ID: 101},
		}
	})

	res, err = m.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Orders)

	added := notifier.inputs()
	require.Len(t, added, 2)
	assert.Equal(t, notification.CategoryNewOrder, added[0].Category)
	assert.Equal(t, notification.SectionOrders, added[0].Section)
	assert.Contains(t, added[0].Message, "#102")
	assert.Contains(t, added[1].Message, "Lola Flores")
	assert.Contains(t, added[1].Message, "€59.90")

	assert.Equal(t, []dispatch.EventType{dispatch.EventNewOrder, dispatch.EventNewOrder}, enqueuer.types())
	last := enqueuer.events[1]
	assert.Equal(t, int64(103), last.Data["id"])
	assert.Equal(t, "Lola Flores", last.Data["customer_name"])

	st := m.Status()
	require.NotNil(t, st.LastOrderID)
	assert.Equal(t, int64(103), *st.LastOrderID)
	assert.Equal(t, StateIdle, st.State)

	res, err = m.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Orders, "same list must not emit twice")
	assert.Len(t, notifier.inputs(), 2)
}

func TestMonitor_StockTransitions(t *testing.T) {
	src := &fakeSource{products: []Product{
		{ID: 1, Name: "Mantón", SKU: "MAN-1", StockQuantity: qty(5)},
		{ID: 2, Name: "Peineta", SKU: "PEI-1", StockQuantity: qty(0)},
		{ID: 3, Name: "Abanico", SKU: "ABA-1", StockQuantity: qty(6)},
	}}
	m, notifier, enqueuer := newTestMonitor(src)
	ctx := t.Context()

	_, err := m.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, notifier.inputs(), "first sighting is silent")

	src.set(func(f *fakeSource) {
		f.products = []Product{
			{ID: 1, Name: "Mantón", SKU: "MAN-1", StockQuantity: qty(0)},
			{ID: 2, Name: "Peineta", SKU: "PEI-1", StockQuantity: qty(3)},
			{ID: 3, Name: "Abanico", SKU: "ABA-1", StockQuantity: qty(2)},
		}
	})

	res, err := m.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Stock)

	added := notifier.inputs()
	require.Len(t, added, 3)
	assert.Equal(t, notification.CategoryOutOfStock, added[0].Category)
	assert.Equal(t, "Stock restored", added[1].Title)
	assert.Equal(t, notification.CategoryLowStock, added[1].Category)
	assert.Equal(t, "Low stock", added[2].Title)
	for _, in := range added {
		assert.Equal(t, notification.SectionProducts, in.Section)
	}

	assert.Equal(t, []dispatch.EventType{
		dispatch.EventOutOfStock, dispatch.EventLowStock, dispatch.EventLowStock,
	}, enqueuer.types())
	assert.Equal(t, true, enqueuer.events[1].Data["restored"])
	assert.Equal(t, 3, m.Status().TrackedProducts)
}

func TestMonitor_OrdersFailureLeavesCursorsUntouched(t *testing.T) {
	src := &fakeSource{orders: []Order{{ID: 10}}, products: []Product{{ID: 1, StockQuantity: qty(5)}}}
	m, notifier, _ := newTestMonitor(src)
	ctx := t.Context()

	_, err := m.Poll(ctx)
	require.NoError(t, err)

	src.set(func(f *fakeSource) {
		f.orders = []Order{{ID: 11}, {ID: 10}}
		f.ordersErr = errors.New("connection reset")
		f.products = []Product{{ID: 1, StockQuantity: qty(0)}}
	})

	_, err = m.Poll(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching recent orders")
	assert.Empty(t, notifier.inputs())
	assert.Equal(t, int64(10), *m.Status().LastOrderID)
	assert.Contains(t, m.Status().LastError, "connection reset")

	src.set(func(f *fakeSource) { f.ordersErr = nil })

	res, err := m.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Orders, "order 11 is emitted once the source recovers")
	assert.Equal(t, 1, res.Stock, "stock transition is still detected against the old snapshot")
	assert.Empty(t, m.Status().LastError)
}

func TestMonitor_ProductsFailureKeepsOrderProgress(t *testing.T) {
	src := &fakeSource{orders: []Order{{ID: 1}}, products: []Product{{ID: 7, StockQuantity: qty(4)}}}
	m, _, _ := newTestMonitor(src)
	ctx := t.Context()
	_, err := m.Poll(ctx)
	require.NoError(t, err)

	src.set(func(f *fakeSource) {
		f.orders = []Order{{ID: 2}, {ID: 1}}
		f.products = []Product{{ID: 7, StockQuantity: qty(0)}}
		f.productsErr = errors.New("timeout")
	})

	res, err := m.Poll(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, res.Orders)
	assert.Equal(t, int64(2), *m.Status().LastOrderID)

	src.set(func(f *fakeSource) { f.productsErr = nil })
	res, err = m.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Orders)
	require.Len(t, res.StockChanges, 1)
	assert.Equal(t, StockOut, res.StockChanges[0].Kind)
}

func TestMonitor_RejectsOverlappingCycles(t *testing.T) {
	block := make(chan struct{})
	src := &fakeSource{block: block}
	m, _, _ := newTestMonitor(src)
	ctx := t.Context()

	done := make(chan error, 1)
	go func() {
		_, err := m.Poll(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return m.Status().State == StatePolling }, time.Second, 5*time.Millisecond)

	_, err := m.Poll(ctx)
	assert.ErrorIs(t, err, ErrPollInProgress)

	close(block)
	require.NoError(t, <-done)
	assert.Equal(t, StateIdle, m.Status().State)

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, 1, src.calls, "refused cycle must not reach the source")
}

func TestMonitor_EnqueueFailureDoesNotStopCycle(t *testing.T) {
	src := &fakeSource{orders: []Order{{ID: 1}}}
	notifier := &recordingNotifier{}
	enqueuer := &recordingEnqueuer{err: errors.New("redis down")}
	m := New(src, notifier, enqueuer, Config{})
	ctx := t.Context()

	_, err := m.Poll(ctx)
	require.NoError(t, err)
	src.set(func(f *fakeSource) { f.orders = []Order{{ID: 3}, {ID: 2}} })

	res, err := m.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Orders)
	assert.Len(t, notifier.inputs(), 2)
}

func TestMonitor_NilEnqueuerOnlyNotifies(t *testing.T) {
	src := &fakeSource{orders: []Order{{ID: 1}}}
	notifier := &recordingNotifier{}
	m := New(src, notifier, nil, Config{})
	ctx := t.Context()

	_, _ = m.Poll(ctx)
	src.set(func(f *fakeSource) { f.orders = []Order{{ID: 2}} })
	_, err := m.Poll(ctx)

	require.NoError(t, err)
	assert.Len(t, notifier.inputs(), 1)
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	src := &fakeSource{orders: []Order{{ID: 5}}}
	m := New(src, &recordingNotifier{}, nil, Config{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(t.Context())
	stopped := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.calls >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestFormatTotal(t *testing.T) {
	assert.Equal(t, "€10.00", formatTotal(Order{Total: "10.00"}))
	assert.Equal(t, "€10.00", formatTotal(Order{Total: "10.00", Currency: "EUR"}))
	assert.Equal(t, "10.00 USD", formatTotal(Order{Total: "10.00", Currency: "USD"}))
	assert.Equal(t, "n/a", formatTotal(Order{}))
}
