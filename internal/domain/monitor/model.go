package monitor

// Order is the subset of a commerce order the monitor needs.
type Order struct {
	ID        int64
	Status    string
	Total     string
	Currency  string
	FirstName string
	LastName  string
	Email     string
	Items     []LineItem
	CreatedAt string
}

// CustomerName returns the billing name, or "" when absent.
func (o Order) CustomerName() string {
	switch {
	case o.FirstName != "" && o.LastName != "":
		return o.FirstName + " " + o.LastName
	case o.FirstName != "":
		return o.FirstName
	default:
		return o.LastName
	}
}

// LineItem is a single order line.
type LineItem struct {
	Name     string
	Quantity int
}

// Product is the subset of a catalogue product the monitor needs.
// StockQuantity is nil when the shop does not manage stock for it.
type Product struct {
	ID            int64
	Name          string
	SKU           string
	StockQuantity *int
	StockStatus   string
}

// OrderCursor is the highest order ID already observed. The zero value is
// the cold-start cursor.
type OrderCursor struct {
	ID    int64
	Valid bool
}
