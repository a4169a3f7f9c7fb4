package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetSales_OK(t *testing.T) {
	from := time.Date(2026, 7, 1, 6, 0, 0, 0, time.UTC)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/sales" {
			t.Fatalf("path = %s, want /api/sales", r.URL.Path)
		}
		if got := r.URL.Query().Get("from"); got != "2026-07-01T06:00:00Z" {
			t.Fatalf("from = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"s1","timestamp":"2026-07-01T06:30:00Z","amount":"12.50","products":[{"id":"p1"},{"id":"p2"}]}]`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sales, code, retry, err := client.GetSales(ctx, from)
	if err != nil {
		t.Fatalf("GetSales error: %v", err)
	}
	if code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", code, http.StatusOK)
	}
	if retry != 0 {
		t.Fatalf("retryAfter = %v, want 0", retry)
	}
	if len(sales) != 1 || sales[0].ID != "s1" || len(sales[0].LineItems) != 2 {
		t.Fatalf("unexpected sales: %+v", sales)
	}
	if sales[0].Amount.String() != "12.5" {
		t.Fatalf("amount = %s, want 12.5", sales[0].Amount)
	}
}

func TestGetSales_TooManyRequests(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sales, code, retry, err := client.GetSales(ctx, time.Time{})
	if err != nil {
		t.Fatalf("GetSales error: %v", err)
	}
	if sales != nil {
		t.Fatalf("expected nil sales for 429, got %+v", sales)
	}
	if code != http.StatusTooManyRequests {
		t.Fatalf("status code = %d, want %d", code, http.StatusTooManyRequests)
	}
	if retry < 5*time.Second {
		t.Fatalf("retryAfter = %v, want at least 5s", retry)
	}
	if hits.Load() != 1 {
		t.Fatalf("hits = %d, 429 must not be retried by the client", hits.Load())
	}
}

func TestGetSales_NoContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sales, code, retry, err := client.GetSales(ctx, time.Time{})
	if err != nil {
		t.Fatalf("GetSales error: %v", err)
	}
	if sales != nil {
		t.Fatalf("expected nil sales for 204, got %+v", sales)
	}
	if code != http.StatusNoContent {
		t.Fatalf("status code = %d, want %d", code, http.StatusNoContent)
	}
	if retry != 0 {
		t.Fatalf("retryAfter = %v, want 0", retry)
	}
}

func TestGetSales_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)
	client.httpClient.RetryWaitMin = time.Millisecond
	client.httpClient.RetryWaitMax = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, code, _, err := client.GetSales(ctx, time.Time{})
	if err != nil {
		t.Fatalf("GetSales error: %v", err)
	}
	if code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", code, http.StatusOK)
	}
	if hits.Load() != 2 {
		t.Fatalf("hits = %d, want 2", hits.Load())
	}
}

func TestGetSales_NotConfigured(t *testing.T) {
	if _, _, _, err := NewClient("").GetSales(context.Background(), time.Time{}); err == nil {
		t.Fatalf("expected error for empty base URL")
	}
}
