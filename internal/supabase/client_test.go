package supabase_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/USA-RedDragon/camper-server/internal/config"
	"github.com/USA-RedDragon/camper-server/internal/supabase"
)

type recorded struct {
	method string
	path   string
	query  string
	header http.Header
	body   string
}

func newFakeSupabase(t *testing.T, status int, response string) (*supabase.Client, *[]recorded) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			header: r.Header.Clone(),
			body:   string(body),
		})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	client := supabase.NewClient(config.Supabase{URL: srv.URL + "/", AnonKey: "anon"})
	if client == nil {
		t.Fatal("expected a client")
	}
	return client, &requests
}

func TestDisabledClient(t *testing.T) {
	t.Parallel()

	client := supabase.NewClient(config.Supabase{})
	if client.Enabled() {
		t.Error("expected disabled client")
	}
	if err := client.Upsert(context.Background(), "trips", []any{}, "id"); err != nil {
		t.Errorf("expected nil client to be a no-op, got %v", err)
	}
	if supabase.NewClient(config.Supabase{URL: "https://example.supabase.co"}) != nil {
		t.Error("a client without a key should be disabled")
	}
}

func TestUpsert(t *testing.T) {
	t.Parallel()
	client, requests := newFakeSupabase(t, http.StatusCreated, "")

	err := client.Upsert(context.Background(), "places_cache", []map[string]any{{"cache_key": "fuel:1,2:5000"}}, "cache_key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := (*requests)[0]
	if req.method != http.MethodPost || req.path != "/rest/v1/places_cache" || req.query != "on_conflict=cache_key" {
		t.Errorf("unexpected request: %s %s?%s", req.method, req.path, req.query)
	}
	if req.header.Get("apikey") != "anon" || req.header.Get("Authorization") != "Bearer anon" {
		t.Errorf("missing auth headers: %v", req.header)
	}
	if req.header.Get("Prefer") != "resolution=merge-duplicates,return=minimal" {
		t.Errorf("unexpected Prefer header: %s", req.header.Get("Prefer"))
	}
	if req.body != `[{"cache_key":"fuel:1,2:5000"}]` {
		t.Errorf("unexpected body: %s", req.body)
	}
}

func TestSelect(t *testing.T) {
	t.Parallel()
	client, requests := newFakeSupabase(t, http.StatusOK, `[{"id":"a","name":"Portugal"}]`)

	var rows []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := client.Select(context.Background(), "trips", map[string]string{"id": "a"}, &rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Portugal" {
		t.Errorf("unexpected rows: %+v", rows)
	}
	if q := (*requests)[0].query; q != "id=eq.a&select=%2A" {
		t.Errorf("unexpected query: %s", q)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()
	client, requests := newFakeSupabase(t, http.StatusNoContent, "")

	if err := client.Delete(context.Background(), "trips", map[string]string{"id": "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if (*requests)[0].method != http.MethodDelete {
		t.Errorf("unexpected method: %s", (*requests)[0].method)
	}
	var apiErr *supabase.APIError
	if err := client.Delete(context.Background(), "trips", nil); !errors.As(err, &apiErr) {
		t.Errorf("expected unfiltered delete to be refused, got %v", err)
	}
}

func TestAPIError(t *testing.T) {
	t.Parallel()
	body, _ := json.Marshal(map[string]string{"message": "relation \"trips\" does not exist"})
	client, _ := newFakeSupabase(t, http.StatusNotFound, string(body))

	var rows []map[string]any
	err := client.Select(context.Background(), "trips", nil, &rows)
	var apiErr *supabase.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Message != `relation "trips" does not exist` {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}
