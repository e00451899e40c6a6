// Package client is the HTTP client for the order API. It owns the mapping
// from transport and HTTP failures onto the error taxonomy the coordination
// layer acts on; callers never see a raw *url.Error or status code.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/uuid"

	"restaurant-foh/internal/domain"
)

type Client struct {
	base string
	http *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewWithHTTPClient lets tests inject a transport.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) KitchenBoard(ctx context.Context) ([]domain.BoardRecipe, error) {
	var out []domain.BoardRecipe
	if err := c.do(ctx, http.MethodGet, "/kitchen/board", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Orders(ctx context.Context, status string) ([]domain.Order, error) {
	path := "/orders"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out []domain.Order
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) OrderByID(ctx context.Context, id int64) (domain.Order, error) {
	var out domain.Order
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, &out)
	return out, err
}

func (c *Client) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	var out domain.Order
	err := c.do(ctx, http.MethodPost, "/orders", req, &out)
	return out, err
}

func (c *Client) AddOrderItem(ctx context.Context, orderID int64, req domain.CreateOrderItemRequest) (domain.OrderItem, error) {
	var out domain.OrderItem
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%d/items", orderID), req, &out)
	return out, err
}

// UpdateOrderItemStatus requests an item transition. The second return is
// true when the server reports the item was already in the target state,
// which callers treat as success.
func (c *Client) UpdateOrderItemStatus(ctx context.Context, itemID int64, status domain.OrderItemStatus) (domain.OrderItem, bool, error) {
	var out domain.UpdatedOrderItem
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/order-items/%d/status", itemID),
		domain.UpdateItemStatusRequest{Status: status}, &out)
	if err != nil {
		return domain.OrderItem{}, false, err
	}
	return out.OrderItem, out.Already, nil
}

func (c *Client) CancelOrderItem(ctx context.Context, itemID int64, reason string) (domain.OrderItem, error) {
	var out domain.OrderItem
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/order-items/%d/cancel", itemID),
		domain.CancelItemRequest{Reason: reason}, &out)
	return out, err
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus, reason string) (domain.Order, error) {
	var out domain.Order
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/orders/%d/status", orderID),
		domain.UpdateOrderStatusRequest{Status: status, Reason: reason}, &out)
	return out, err
}

func (c *Client) PrintJobsByOrderItem(ctx context.Context, itemID int64) ([]domain.PrintJob, error) {
	var out []domain.PrintJob
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/order-items/%d/print-jobs", itemID), nil, &out)
	return out, err
}

func (c *Client) RetryPrintJob(ctx context.Context, jobID int64) (domain.PrintJob, error) {
	var out domain.PrintJob
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/print-jobs/%d/retry", jobID), nil, &out)
	return out, err
}

func (c *Client) Tables(ctx context.Context) ([]domain.Table, error) {
	var out []domain.Table
	err := c.do(ctx, http.MethodGet, "/tables", nil, &out)
	return out, err
}

func (c *Client) ActiveOrdersForTable(ctx context.Context, tableID int64) ([]domain.Order, error) {
	var out []domain.Order
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tables/%d/orders", tableID), nil, &out)
	return out, err
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if rid, err := uuid.NewV4(); err == nil {
		req.Header.Set("X-Request-ID", rid.String())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var p problem
		_ = json.NewDecoder(resp.Body).Decode(&p)
		if p.Status == 0 {
			p.Status = resp.StatusCode
		}
		if p.Type == "" {
			p.Type = "error"
		}
		return &APIError{kind: kindForStatus(resp.StatusCode), Status: p.Status, Type: p.Type, Detail: p.Detail}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}
