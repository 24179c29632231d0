package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client is an HTTP Persister speaking the offers API wire format.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
}

// defaultHTTPClient traces outbound save requests so they join the spans the
// API emits for the same writes.
func defaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   15 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

type createItemPayload struct {
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory,omitempty"`
	Name        string  `json:"name"`
	UnitPrice   float64 `json:"unitPrice"`
	Quantity    float64 `json:"quantity"`
	Duration    float64 `json:"duration"`
	SortOrder   int     `json:"sortOrder"`
}

// CreateItem posts a new item and returns it with its server-assigned identity.
func (c *Client) CreateItem(ctx context.Context, offerID string, item Item) (Item, error) {
	payload := createItemPayload{
		Category:    item.Category,
		Subcategory: item.Subcategory,
		Name:        item.Name,
		UnitPrice:   item.UnitPrice,
		Quantity:    item.Quantity,
		Duration:    item.Duration,
		SortOrder:   item.SortOrder,
	}
	var saved Item
	err := c.do(ctx, http.MethodPost, "/api/v1/offers/"+offerID+"/items", payload, &saved)
	if err != nil {
		return Item{}, err
	}
	return saved, nil
}

// UpdateItem patches the three numeric fields of a persisted item.
func (c *Client) UpdateItem(ctx context.Context, itemID string, update ItemUpdate) error {
	return c.do(ctx, http.MethodPatch, "/api/v1/items/"+itemID, update, nil)
}

// DeleteItem removes a persisted item.
func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/items/"+itemID, nil, nil)
}

// UpdateOffer patches the offer header.
func (c *Client) UpdateOffer(ctx context.Context, offerID string, patch OfferPatch) error {
	return c.do(ctx, http.MethodPatch, "/api/v1/offers/"+offerID, patch, nil)
}

// Recalculate asks the server to re-derive the offer's stored totals.
func (c *Client) Recalculate(ctx context.Context, offerID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/offers/"+offerID+"/recalculate", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("session client: encode body: %w", err)
		}
		reader = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, reader)
	if err != nil {
		return fmt.Errorf("session client: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	client := c.HTTPClient
	if client == nil {
		client = defaultHTTPClient()
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("session client: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		if envelope.Error.Code != "" {
			return fmt.Errorf("session client: %s %s: %s (%s)", method, path, envelope.Error.Message, envelope.Error.Code)
		}
		return fmt.Errorf("session client: %s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("session client: decode response: %w", err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("session client: decode data: %w", err)
	}
	return nil
}
