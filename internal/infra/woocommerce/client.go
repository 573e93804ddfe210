package woocommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"backoffice/internal/common"
	"backoffice/internal/domain/monitor"
)

var _ monitor.Source = (*Client)(nil)

const userAgent = "Flamenca-Store/1.0"

// Client reads orders and products from the WooCommerce REST API v3.
type Client struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	httpClient     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// NewClient creates a WooCommerce client for the store at storeURL.
func NewClient(storeURL, consumerKey, consumerSecret string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(storeURL, "/") + "/wp-json/wc/v3",
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type orderDTO struct {
	ID          int64  `json:"id"`
	Status      string `json:"status"`
	Total       string `json:"total"`
	Currency    string `json:"currency"`
	DateCreated string `json:"date_created"`
	Billing     struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
	} `json:"billing"`
	LineItems []struct {
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
	} `json:"line_items"`
}

type productDTO struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	SKU           string `json:"sku"`
	StockQuantity *int   `json:"stock_quantity"`
	StockStatus   string `json:"stock_status"`
}

// RecentOrders returns the latest orders, newest first.
func (c *Client) RecentOrders(ctx context.Context, limit int) ([]monitor.Order, error) {
	var dtos []orderDTO
	if err := c.get(ctx, "/orders", limit, &dtos); err != nil {
		return nil, err
	}

	orders := make([]monitor.Order, 0, len(dtos))
	for _, d := range dtos {
		o := monitor.Order{
			ID:        d.ID,
			Status:    d.Status,
			Total:     d.Total,
			Currency:  d.Currency,
			FirstName: d.Billing.FirstName,
			LastName:  d.Billing.LastName,
			Email:     d.Billing.Email,
			CreatedAt: d.DateCreated,
		}
		for _, li := range d.LineItems {
			o.Items = append(o.Items, monitor.LineItem{Name: li.Name, Quantity: li.Quantity})
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// Products returns the latest catalogue products, newest first.
func (c *Client) Products(ctx context.Context, limit int) ([]monitor.Product, error) {
	var dtos []productDTO
	if err := c.get(ctx, "/products", limit, &dtos); err != nil {
		return nil, err
	}

	products := make([]monitor.Product, 0, len(dtos))
	for _, d := range dtos {
		products = append(products, monitor.Product{
			ID:            d.ID,
			Name:          d.Name,
			SKU:           d.SKU,
			StockQuantity: d.StockQuantity,
			StockStatus:   d.StockStatus,
		})
	}
	return products, nil
}

func (c *Client) get(ctx context.Context, path string, perPage int, out any) error {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("orderby", "date")
	q.Set("order", "desc")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return common.NewProviderError("woocommerce", err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("reading %s response: %w", path, err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &apiErr)
		m := apiErr.Message
		if m == "" {
			m = fmt.Sprintf("GET %s failed", path)
		}
		return common.NewProviderStatusError("woocommerce", resp.StatusCode, m)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing %s response: %w", path, err)
	}
	return nil
}
