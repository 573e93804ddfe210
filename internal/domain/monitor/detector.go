package monitor

import "slices"

// DefaultLowStockThreshold is the highest quantity still reported as low stock.
const DefaultLowStockThreshold = 2

// DetectNewOrders returns the orders newer than cursor in ascending ID
// order, together with the advanced cursor.
//
// orders is expected newest first, as the shop API returns them, but any
// order is accepted. On cold start (invalid cursor) nothing is returned and
// the cursor jumps to the newest ID so a restart never floods the bell.
// Orders with a non-positive ID are ignored and each ID is emitted once.
func DetectNewOrders(orders []Order, cursor OrderCursor) ([]Order, OrderCursor) {
	next := cursor
	var fresh []Order
	seen := make(map[int64]bool)

	for _, o := range orders {
		if o.ID <= 0 || seen[o.ID] {
			continue
		}
		seen[o.ID] = true

		if !next.Valid || o.ID > next.ID {
			next = OrderCursor{ID: o.ID, Valid: true}
		}
		if cursor.Valid && o.ID > cursor.ID {
			fresh = append(fresh, o)
		}
	}

	slices.SortFunc(fresh, func(a, b Order) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})

	return fresh, next
}

// StockKind classifies a notable stock transition.
type StockKind string

const (
	StockOut      StockKind = "out_of_stock"
	StockLow      StockKind = "low_stock"
	StockRestored StockKind = "stock_restored"
)

// StockChange is a threshold-crossing stock transition for one product.
type StockChange struct {
	Product  Product
	Previous int
	Current  int
	Kind     StockKind
}

// DetectStockChanges compares the fetched products with the last known
// quantities and reports the transitions worth notifying:
//
//	qty <= 0                        out of stock
//	0 < qty <= threshold            low stock
//	previous == 0, qty > threshold  restored
//
// Products seen for the first time are recorded silently. The returned map
// holds the current quantity of every evaluated product; known is not
// modified so the caller can commit it only when the cycle succeeds.
func DetectStockChanges(products []Product, known map[int64]int, threshold int) ([]StockChange, map[int64]int) {
	next := make(map[int64]int, len(known)+len(products))
	for id, qty := range known {
		next[id] = qty
	}

	var changes []StockChange
	for _, p := range products {
		if p.ID <= 0 || p.StockQuantity == nil {
			continue
		}
		qty := *p.StockQuantity

		prev, ok := known[p.ID]
		next[p.ID] = qty
		if !ok || prev == qty {
			continue
		}

		var kind StockKind
		switch {
		case qty <= 0:
			kind = StockOut
		case qty <= threshold:
			kind = StockLow
		case prev == 0:
			kind = StockRestored
		default:
			continue
		}

		changes = append(changes, StockChange{
			Product:  p,
			Previous: prev,
			Current:  qty,
			Kind:     kind,
		})
	}

	return changes, next
}
