// Package appwrite stores records as documents in an Appwrite collection
// through its REST API.
package appwrite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vbonduro/scaninv/internal/domain"
)

// listLimit is the page size of list queries, matching what the mobile client
// asked for. Lists follow cursorAfter until a short page comes back.
const listLimit = 100

type Config struct {
	Endpoint     string
	ProjectID    string
	DatabaseID   string
	CollectionID string
	APIKey       string
}

// Error is a non-2xx response from the Appwrite API.
type Error struct {
	Status  int
	Type    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("appwrite returned status %d (%s): %s", e.Status, e.Type, e.Message)
}

type Client struct {
	cfg     Config
	baseURL string
	client  *http.Client
	now     func() time.Time
}

func New(cfg Config) *Client {
	base := strings.TrimRight(cfg.Endpoint, "/") +
		"/databases/" + url.PathEscape(cfg.DatabaseID) +
		"/collections/" + url.PathEscape(cfg.CollectionID) +
		"/documents"
	return &Client{
		cfg:     cfg,
		baseURL: base,
		client:  &http.Client{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// document is the wire form of a record. Appwrite names the id "$id".
type document struct {
	ID          string      `json:"$id"`
	Name        string      `json:"name"`
	Barcode     string      `json:"barcode"`
	Category    string      `json:"category"`
	Quantity    int64       `json:"quantity"`
	Price       json.Number `json:"price"`
	LastUpdated string      `json:"lastUpdated"`
}

func (d document) toDomain() (*domain.Record, error) {
	rec := &domain.Record{
		ID:       d.ID,
		Name:     d.Name,
		Barcode:  d.Barcode,
		Category: d.Category,
		Quantity: d.Quantity,
		Price:    decimal.Zero,
	}
	if d.Price != "" {
		price, err := decimal.NewFromString(d.Price.String())
		if err != nil {
			return nil, fmt.Errorf("invalid price on document %s: %w", d.ID, err)
		}
		rec.Price = price
	}
	if d.LastUpdated != "" {
		ts, err := time.Parse(time.RFC3339, d.LastUpdated)
		if err != nil {
			return nil, fmt.Errorf("invalid lastUpdated on document %s: %w", d.ID, err)
		}
		rec.LastUpdated = ts
	}
	return rec, nil
}

type documentList struct {
	Total     int        `json:"total"`
	Documents []document `json:"documents"`
}

type query struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute,omitempty"`
	Values    []any  `json:"values,omitempty"`
}

func equal(attr string, value any) query { return query{Method: "equal", Attribute: attr, Values: []any{value}} }
func search(attr, value string) query { return query{Method: "search", Attribute: attr, Values: []any{value}} }
func limit(n int) query { return query{Method: "limit", Values: []any{n}} }
func cursorAfter(id string) query { return query{Method: "cursorAfter", Values: []any{id}} }

func (c *Client) FindByBarcode(ctx context.Context, barcode string) ([]*domain.Record, error) {
	return c.listAll(ctx, "find by barcode", equal("barcode", barcode))
}

func (c *Client) Search(ctx context.Context, q string) ([]*domain.Record, error) {
	return c.listAll(ctx, "search", search("name", strings.ToLower(strings.TrimSpace(q))))
}

func (c *Client) List(ctx context.Context) ([]*domain.Record, error) {
	return c.listAll(ctx, "list")
}

// Ping lists a single document to prove the collection is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.list(ctx, "ping", limit(1)); err != nil {
		return err
	}
	return nil
}

func (c *Client) FindByID(ctx context.Context, id string) (*domain.Record, error) {
	var doc document
	err := c.do(ctx, http.MethodGet, "/"+url.PathEscape(id), nil, nil, &doc)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc.toDomain()
}

func (c *Client) Create(ctx context.Context, fields domain.Fields) (*domain.Record, error) {
	body := map[string]any{
		"documentId": "unique()",
		"data": map[string]any{
			"name":        fields.Name,
			"barcode":     fields.Barcode,
			"category":    fields.Category,
			"quantity":    fields.Quantity,
			"price":       json.Number(fields.Price.String()),
			"lastUpdated": c.timestamp(),
		},
	}

	var doc document
	if err := c.do(ctx, http.MethodPost, "", nil, body, &doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return doc.toDomain()
}

func (c *Client) Update(ctx context.Context, id string, patch domain.Patch) (*domain.Record, error) {
	data := map[string]any{"lastUpdated": c.timestamp()}
	if patch.Name != nil {
		data["name"] = *patch.Name
	}
	if patch.Barcode != nil {
		data["barcode"] = *patch.Barcode
	}
	if patch.Category != nil {
		data["category"] = *patch.Category
	}
	if patch.Quantity != nil {
		data["quantity"] = *patch.Quantity
	}
	if patch.Price != nil {
		data["price"] = json.Number(patch.Price.String())
	}

	var doc document
	err := c.do(ctx, http.MethodPatch, "/"+url.PathEscape(id), nil, map[string]any{"data": data}, &doc)
	if isNotFound(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}
	return doc.toDomain()
}

func (c *Client) Delete(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, "/"+url.PathEscape(id), nil, nil, nil)
	if isNotFound(err) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// listAll pages through every document matching filters.
func (c *Client) listAll(ctx context.Context, op string, filters ...query) ([]*domain.Record, error) {
	all := []*domain.Record{}
	for {
		queries := append(filters[:len(filters):len(filters)], limit(listLimit))
		if len(all) > 0 {
			queries = append(queries, cursorAfter(all[len(all)-1].ID))
		}
		page, err := c.list(ctx, op, queries...)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < listLimit {
			return all, nil
		}
	}
}

// list fetches a single page.
func (c *Client) list(ctx context.Context, op string, queries ...query) ([]*domain.Record, error) {
	params := url.Values{}
	for _, q := range queries {
		encoded, err := json.Marshal(q)
		if err != nil {
			return nil, fmt.Errorf("failed to encode query: %w", err)
		}
		params.Add("queries[]", string(encoded))
	}

	var resp documentList
	if err := c.do(ctx, http.MethodGet, "", params, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to %s documents: %w", op, err)
	}

	records := make([]*domain.Record, 0, len(resp.Documents))
	for _, doc := range resp.Documents {
		rec, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, in, out any) error {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Appwrite-Project", c.cfg.ProjectID)
	if c.cfg.APIKey != "" {
		req.Header.Set("X-Appwrite-Key", c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call appwrite: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close appwrite response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) timestamp() string {
	return c.now().Format(time.RFC3339Nano)
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode}
	var body struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &body); err == nil {
		apiErr.Message = body.Message
		apiErr.Type = body.Type
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

func isNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
