package notification

import "time"

// Category classifies an in-app notification. Values match the `type`
// column of the app_notifications table.
type Category string

const (
	CategoryNewOrder     Category = "new_order"
	CategoryOutOfStock   Category = "out_of_stock"
	CategoryLowStock     Category = "low_stock"
	CategoryIncident     Category = "incident"
	CategoryPaymentIssue Category = "payment_issue"
)

var validCategories = map[Category]bool{
	CategoryNewOrder:     true,
	CategoryOutOfStock:   true,
	CategoryLowStock:     true,
	CategoryIncident:     true,
	CategoryPaymentIssue: true,
}

// IsValidCategory checks whether a category is recognized.
func IsValidCategory(c Category) bool {
	return validCategories[c]
}

// Section is the UI grouping key used for unread badges.
type Section string

const (
	SectionOrders    Section = "orders"
	SectionProducts  Section = "products"
	SectionIncidents Section = "incidents"
	SectionPOS       Section = "pos"
	SectionGeneral   Section = "general"
)

// Sections lists every badge section in display order.
var Sections = []Section{SectionOrders, SectionProducts, SectionIncidents, SectionPOS, SectionGeneral}

// IsValidSection checks whether a section is recognized.
func IsValidSection(s Section) bool {
	for _, known := range Sections {
		if s == known {
			return true
		}
	}
	return false
}

// Notification is a single in-app notification record.
type Notification struct {
	ID        string         `json:"id"`
	Category  Category       `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Section   Section        `json:"section"`
	Source    string         `json:"source,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"created_at"`
}

// Input is what callers provide to create a notification; the store assigns
// the ID, timestamp and read flag.
type Input struct {
	Category Category       `json:"type" binding:"required"`
	Title    string         `json:"title" binding:"required"`
	Message  string         `json:"message"`
	Section  Section        `json:"section"`
	Source   string         `json:"source"`
	Data     map[string]any `json:"data"`
}

// Counts is the unread badge state.
type Counts struct {
	Unread   int             `json:"unread"`
	Sections map[Section]int `json:"sections"`
}

// Sum returns the total of the per-section counters.
func (c Counts) Sum() int {
	total := 0
	for _, n := range c.Sections {
		total += n
	}
	return total
}

func zeroSections() map[Section]int {
	m := make(map[Section]int, len(Sections))
	for _, s := range Sections {
		m[s] = 0
	}
	return m
}

// ListResponse is returned by the list endpoint.
type ListResponse struct {
	Notifications []Notification `json:"notifications"`
	Counts        Counts         `json:"counts"`
}

// simulated holds the canned notification shown for each category when an
// operator triggers a test notification.
var simulated = map[Category]Input{
	CategoryNewOrder: {
		Title:   "New order",
		Message: "A new order was received from WooCommerce",
		Section: SectionOrders,
	},
	CategoryOutOfStock: {
		Title:   "Out of stock",
		Message: "Some products are completely out of stock",
		Section: SectionProducts,
	},
	CategoryLowStock: {
		Title:   "Low stock",
		Message: "Some products are running low",
		Section: SectionProducts,
	},
	CategoryIncident: {
		Title:   "New incident",
		Message: "A new incident has been reported",
		Section: SectionIncidents,
	},
	CategoryPaymentIssue: {
		Title:   "Payment issue",
		Message: "A problem was detected with a payment",
		Section: SectionPOS,
	},
}

// SimulatedInput returns the canned test notification for a category.
func SimulatedInput(c Category) (Input, bool) {
	in, ok := simulated[c]
	if !ok {
		return Input{}, false
	}
	in.Category = c
	in.Source = "simulation"
	return in, true
}
