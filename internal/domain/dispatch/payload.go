package dispatch

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ProductLine is one product listed in a stock alert.
type ProductLine struct {
	Name  string
	SKU   string
	Stock int
}

// TemplateData is the normalised view of an event payload that templates
// render from. Missing payload fields are left at their defaults.
type TemplateData struct {
	Store string

	OrderID      string
	CustomerName string
	Total        string
	Items        []string
	MoreItems    int

	Products []ProductLine
	Restored bool

	EmployeeName  string
	EmployeePhone string
	TempPassword  string
	Time          string
	Location      string
	CheckIn       bool

	IncidentTitle string
	IncidentType  string
	ReportedBy    string
	Priority      string

	IssueType string
	Amount    string
}

// ItemsSummary lists the first order items, e.g. "Fan, Shawl and 3 more".
func (d *TemplateData) ItemsSummary() string {
	if len(d.Items) == 0 {
		return "various products"
	}
	s := strings.Join(d.Items, ", ")
	if d.MoreItems > 0 {
		s += fmt.Sprintf(" and %d more", d.MoreItems)
	}
	return s
}

// ProductsSummary lists the products with their stock on one line.
func (d *TemplateData) ProductsSummary() string {
	parts := make([]string, 0, len(d.Products))
	for _, p := range d.Products {
		parts = append(parts, fmt.Sprintf("%s (%d)", p.Name, p.Stock))
	}
	return strings.Join(parts, ", ")
}

const maxListedItems = 2

// NormalizePayload maps the loosely typed payload of an event into
// TemplateData. Both WooCommerce objects (id, billing, line_items,
// stock_quantity) and the internal shapes (order_id, customer_name, items,
// stock) are understood.
func NormalizePayload(ev *Event) *TemplateData {
	data := ev.Data
	if data == nil {
		data = map[string]any{}
	}

	d := &TemplateData{
		OrderID:       firstString(data, "id", "order_id"),
		Total:         firstString(data, "total", "total_amount"),
		EmployeeName:  firstString(data, "employee_name"),
		EmployeePhone: firstString(data, "employee_phone"),
		TempPassword:  firstString(data, "temp_password"),
		Time:          firstString(data, "time"),
		Location:      firstString(data, "location"),
		CheckIn:       ev.Type == EventCheckIn,
		IncidentTitle: firstString(data, "incident_title"),
		IncidentType:  firstString(data, "incident_type"),
		ReportedBy:    firstString(data, "reported_by"),
		Priority:      strings.ToLower(firstString(data, "priority")),
		IssueType:     firstString(data, "issue_type"),
		Amount:        firstString(data, "amount"),
		Restored:      asBool(data["restored"]),
	}

	d.CustomerName = customerName(data)

	items := firstList(data, "line_items", "items")
	for i, it := range items {
		if i == maxListedItems {
			d.MoreItems = len(items) - maxListedItems
			break
		}
		if m, ok := it.(map[string]any); ok {
			d.Items = append(d.Items, firstString(m, "name", "product_name"))
		}
	}

	products := firstList(data, "products")
	if products == nil && firstString(data, "name") != "" {
		products = []any{data}
	}
	for _, p := range products {
		m, ok := p.(map[string]any)
		if !ok {
			continue
		}
		d.Products = append(d.Products, ProductLine{
			Name:  firstString(m, "name"),
			SKU:   firstString(m, "sku"),
			Stock: firstInt(m, "stock_quantity", "stock"),
		})
	}

	if d.Priority == "" {
		d.Priority = "medium"
	}

	return d
}

func customerName(data map[string]any) string {
	if billing, ok := data["billing"].(map[string]any); ok {
		name := strings.TrimSpace(firstString(billing, "first_name") + " " + firstString(billing, "last_name"))
		if name != "" {
			return name
		}
	}
	if name := firstString(data, "customer_name"); name != "" {
		return name
	}
	return "Customer"
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := asString(m[k]); s != "" {
			return s
		}
	}
	return ""
}

func firstInt(m map[string]any, keys ...string) int {
	for _, k := range keys {
		if v, ok := asInt(m[k]); ok {
			return v
		}
	}
	return 0
}

func firstList(m map[string]any, keys ...string) []any {
	for _, k := range keys {
		switch v := m[k].(type) {
		case []any:
			if len(v) > 0 {
				return v
			}
		case []map[string]any:
			out := make([]any, 0, len(v))
			for _, e := range v {
				out = append(out, e)
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case json.Number:
		n, err := t.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(t)
		return n, err == nil
	default:
		return 0, false
	}
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
