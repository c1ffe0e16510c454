package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/USA-RedDragon/camper-server/internal/config"
	"github.com/USA-RedDragon/camper-server/internal/utils"
)

// APIError is a non-2xx answer from the PostgREST endpoint.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase: %d %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	apiKey  string
}

// NewClient returns nil when Supabase is not configured. Every method is safe to call on a
// nil client and does nothing.
func NewClient(cfg config.Supabase) *Client {
	key := cfg.ServiceKey
	if key == "" {
		key = cfg.AnonKey
	}
	if !cfg.Enabled() || key == "" {
		return nil
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  key,
	}
}

func (c *Client) Enabled() bool {
	return c != nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"apikey":        c.apiKey,
		"Authorization": "Bearer " + c.apiKey,
		"Content-Type":  "application/json",
		"Accept":        "application/json",
	}
}

func (c *Client) tableURL(table string, query url.Values) string {
	u := c.baseURL + "/rest/v1/" + url.PathEscape(table)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func eqFilters(filters map[string]string) url.Values {
	query := url.Values{}
	for col, val := range filters {
		query.Set(col, "eq."+val)
	}
	return query
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader, extra map[string]string) ([]byte, error) {
	headers := c.headers()
	for k, v := range extra {
		headers[k] = v
	}
	resp, err := utils.HTTPRequest(ctx, method, target, body, headers)
	if err != nil {
		return nil, fmt.Errorf("supabase request failed: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read supabase response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(data)}
	}
	return data, nil
}

func errorMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return strings.TrimSpace(string(body))
}

// Upsert inserts rows, merging with existing rows that collide on onConflict.
func (c *Client) Upsert(ctx context.Context, table string, rows any, onConflict string) error {
	if c == nil {
		return nil
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}
	query := url.Values{}
	if onConflict != "" {
		query.Set("on_conflict", onConflict)
	}
	_, err = c.do(ctx, http.MethodPost, c.tableURL(table, query), bytes.NewReader(payload), map[string]string{
		"Prefer": "resolution=merge-duplicates,return=minimal",
	})
	return err
}

// Select decodes the rows matching every equality filter into dest, which must be a
// pointer to a slice.
func (c *Client) Select(ctx context.Context, table string, filters map[string]string, dest any) error {
	if c == nil {
		return nil
	}
	query := eqFilters(filters)
	query.Set("select", "*")
	data, err := c.do(ctx, http.MethodGet, c.tableURL(table, query), nil, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode %s rows: %w", table, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, table string, filters map[string]string) error {
	if c == nil {
		return nil
	}
	// PostgREST refuses unfiltered deletes, refuse them here too
	if len(filters) == 0 {
		return &APIError{Status: http.StatusBadRequest, Message: "delete requires a filter"}
	}
	_, err := c.do(ctx, http.MethodDelete, c.tableURL(table, eqFilters(filters)), nil, map[string]string{
		"Prefer": "return=minimal",
	})
	return err
}
