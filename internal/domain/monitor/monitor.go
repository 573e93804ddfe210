package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"backoffice/internal/common"
	"backoffice/internal/domain/dispatch"
	"backoffice/internal/domain/notification"
)

// ErrPollInProgress is returned by Poll when another cycle has not finished.
var ErrPollInProgress = common.NewConflictError("polling cycle already in progress")

// Source is the external commerce API polled for deltas.
// Implementations live in infra/woocommerce/.
type Source interface {
	// RecentOrders returns the latest orders, newest first.
	RecentOrders(ctx context.Context, limit int) ([]Order, error)

	// Products returns the latest catalogue products with their stock.
	Products(ctx context.Context, limit int) ([]Product, error)
}

// Notifier records in-app notifications.
type Notifier interface {
	Add(ctx context.Context, in notification.Input) (notification.Notification, error)
}

// EventEnqueuer hands events to the external channel dispatcher without
// waiting for delivery.
type EventEnqueuer interface {
	EnqueueEvent(ctx context.Context, ev *dispatch.Event) error
}

// Config holds polling monitor settings.
type Config struct {
	// Interval is the time between polling cycles.
	Interval time.Duration

	// OrderLimit is how many recent orders are fetched per cycle.
	OrderLimit int

	// ProductLimit is how many products are fetched per cycle.
	ProductLimit int

	// LowStockThreshold is the highest quantity reported as low stock.
	LowStockThreshold int
}

// CycleResult summarises one polling cycle.
type CycleResult struct {
	NewOrders    []Order       `json:"-"`
	StockChanges []StockChange `json:"-"`
	Orders       int           `json:"new_orders"`
	Stock        int           `json:"stock_changes"`
}

// Status is a point-in-time view of the monitor.
type Status struct {
	State           State      `json:"state"`
	LastOrderID     *int64     `json:"last_order_id"`
	TrackedProducts int        `json:"tracked_products"`
	LastPollAt      *time.Time `json:"last_poll_at,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
}

// Monitor polls the shop for new orders and stock transitions, records an
// in-app notification for each and enqueues the matching channel event.
//
// Delivery is at-most-once: cursors advance as soon as a cycle is processed,
// independent of whether the downstream dispatch ever succeeds.
type Monitor struct {
	source   Source
	notifier Notifier
	enqueuer EventEnqueuer
	config   Config
	state    *pollState

	mu          sync.Mutex
	orderCursor OrderCursor
	stock       map[int64]int
	lastPollAt  time.Time
	lastErr     error
}

// New creates a polling monitor. enqueuer may be nil, in which case only
// in-app notifications are produced.
func New(source Source, notifier Notifier, enqueuer EventEnqueuer, cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.OrderLimit <= 0 {
		cfg.OrderLimit = 5
	}
	if cfg.ProductLimit <= 0 {
		cfg.ProductLimit = 20
	}
	if cfg.LowStockThreshold <= 0 {
		cfg.LowStockThreshold = DefaultLowStockThreshold
	}

	return &Monitor{
		source:   source,
		notifier: notifier,
		enqueuer: enqueuer,
		config:   cfg,
		state:    newPollState(),
		stock:    make(map[int64]int),
	}
}

// Run polls immediately and then on every interval until ctx is cancelled.
// In-flight requests of a cycle are bound to ctx.
func (m *Monitor) Run(ctx context.Context) {
	slog.Info("monitor started",
		"interval", m.config.Interval,
		"order_limit", m.config.OrderLimit,
		"product_limit", m.config.ProductLimit,
	)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	m.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("monitor stopped")
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	if _, err := m.Poll(ctx); err != nil {
		if errors.Is(err, ErrPollInProgress) {
			slog.Debug("monitor: skipping tick, previous cycle still running")
			return
		}
		if ctx.Err() != nil {
			return
		}
		slog.Error("monitor: polling cycle failed", "error", err)
	}
}

// Poll runs a single cycle. It returns ErrPollInProgress without touching
// the source when another cycle is running. A fetch failure skips the rest
// of the cycle and leaves the corresponding cursor untouched.
func (m *Monitor) Poll(ctx context.Context) (*CycleResult, error) {
	if !m.state.TryBegin() {
		return nil, ErrPollInProgress
	}
	defer func() {
		if err := m.state.End(); err != nil {
			slog.Error("monitor: invalid state transition", "error", err)
		}
	}()

	result, err := m.poll(ctx)

	m.mu.Lock()
	m.lastPollAt = time.Now()
	m.lastErr = err
	m.mu.Unlock()

	return result, err
}

func (m *Monitor) poll(ctx context.Context) (*CycleResult, error) {
	result := &CycleResult{}

	orders, err := m.source.RecentOrders(ctx, m.config.OrderLimit)
	if err != nil {
		return result, fmt.Errorf("fetching recent orders: %w", err)
	}

	m.mu.Lock()
	cursor := m.orderCursor
	m.mu.Unlock()

	fresh, next := DetectNewOrders(orders, cursor)
	if !cursor.Valid && next.Valid {
		slog.Info("monitor: order cursor initialised", "last_order_id", next.ID)
	}
	for _, o := range fresh {
		m.emitOrder(ctx, o)
	}

	m.mu.Lock()
	m.orderCursor = next
	m.mu.Unlock()

	result.NewOrders = fresh
	result.Orders = len(fresh)

	products, err := m.source.Products(ctx, m.config.ProductLimit)
	if err != nil {
		return result, fmt.Errorf("fetching products: %w", err)
	}

	m.mu.Lock()
	known := m.stock
	m.mu.Unlock()

	changes, nextStock := DetectStockChanges(products, known, m.config.LowStockThreshold)
	for _, c := range changes {
		m.emitStock(ctx, c)
	}

	m.mu.Lock()
	m.stock = nextStock
	m.mu.Unlock()

	result.StockChanges = changes
	result.Stock = len(changes)

	if result.Orders > 0 || result.Stock > 0 {
		slog.Info("monitor: cycle complete", "new_orders", result.Orders, "stock_changes", result.Stock)
	}
	return result, nil
}

func (m *Monitor) emitOrder(ctx context.Context, o Order) {
	customer := o.CustomerName()
	if customer == "" {
		customer = "unknown customer"
	}

	m.notify(ctx, notification.Input{
		Category: notification.CategoryNewOrder,
		Title:    "New WooCommerce order",
		Message:  fmt.Sprintf("Order #%d from %s - Total: %s", o.ID, customer, formatTotal(o)),
		Section:  notification.SectionOrders,
		Source:   "woocommerce",
		Data:     map[string]any{"order_id": o.ID},
	})

	items := make([]any, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]any{"name": it.Name, "quantity": it.Quantity})
	}
	m.enqueue(ctx, &dispatch.Event{
		Type:   dispatch.EventNewOrder,
		Source: "woocommerce",
		Data: map[string]any{
			"id":            o.ID,
			"customer_name": o.CustomerName(),
			"total":         o.Total,
			"items":         items,
		},
	})
}

func (m *Monitor) emitStock(ctx context.Context, c StockChange) {
	in := notification.Input{
		Section: notification.SectionProducts,
		Source:  "woocommerce",
		Data: map[string]any{
			"product_id": c.Product.ID,
			"previous":   c.Previous,
			"current":    c.Current,
		},
	}
	eventType := dispatch.EventLowStock

	switch c.Kind {
	case StockOut:
		in.Category = notification.CategoryOutOfStock
		in.Title = "Out of stock"
		in.Message = fmt.Sprintf("Product %q is out of stock", c.Product.Name)
		eventType = dispatch.EventOutOfStock
	case StockLow:
		in.Category = notification.CategoryLowStock
		in.Title = "Low stock"
		in.Message = fmt.Sprintf("Product %q has only %d units left", c.Product.Name, c.Current)
	case StockRestored:
		in.Category = notification.CategoryLowStock
		in.Title = "Stock restored"
		in.Message = fmt.Sprintf("Product %q has %d units available", c.Product.Name, c.Current)
	}

	m.notify(ctx, in)
	m.enqueue(ctx, &dispatch.Event{
		Type:   eventType,
		Source: "woocommerce",
		Data: map[string]any{
			"restored": c.Kind == StockRestored,
			"products": []any{
				map[string]any{"name": c.Product.Name, "sku": c.Product.SKU, "stock_quantity": c.Current},
			},
		},
	})
}

func (m *Monitor) notify(ctx context.Context, in notification.Input) {
	if _, err := m.notifier.Add(ctx, in); err != nil {
		slog.Error("monitor: failed to add notification", "type", in.Category, "error", err)
	}
}

func (m *Monitor) enqueue(ctx context.Context, ev *dispatch.Event) {
	if m.enqueuer == nil {
		return
	}
	if err := m.enqueuer.EnqueueEvent(ctx, ev); err != nil {
		slog.Error("monitor: failed to enqueue dispatch event", "type", ev.Type, "error", err)
	}
}

// Status returns the current monitor state and cursors.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		State:           m.state.Current(),
		TrackedProducts: len(m.stock),
	}
	if m.orderCursor.Valid {
		id := m.orderCursor.ID
		st.LastOrderID = &id
	}
	if !m.lastPollAt.IsZero() {
		at := m.lastPollAt
		st.LastPollAt = &at
	}
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	return st
}

func formatTotal(o Order) string {
	if o.Total == "" {
		return "n/a"
	}
	if o.Currency == "" || o.Currency == "EUR" {
		return "€" + o.Total
	}
	return o.Total + " " + o.Currency
}
