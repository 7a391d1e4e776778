package woocommerce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, WooErrorResponse{Code: "maintenance", Message: "Down for maintenance"})
	}))
	t.Cleanup(srv.Close)

	var transitions []gobreaker.State
	c, err := New(Config{
		StoreURL:   srv.URL,
		APIKey:     "ck_test",
		APISecret:  "cs_test",
		HTTPClient: srv.Client(),
		Breaker: BreakerConfig{
			Timeout:      time.Minute,
			MinRequests:  2,
			FailureRatio: 0.5,
			OnStateChange: func(_, to gobreaker.State) {
				transitions = append(transitions, to)
			},
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := c.GetProduct(context.Background(), 42); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}

	if got := hits.Load(); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}
	if got := c.breaker.State(); got != gobreaker.StateOpen {
		t.Errorf("state = %v, want open", got)
	}
	if len(transitions) != 1 || transitions[0] != gobreaker.StateOpen {
		t.Errorf("transitions = %v, want [open]", transitions)
	}
}

func TestBreakerPassesClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusNotFound, WooErrorResponse{Code: "woocommerce_rest_product_invalid_id", Message: "Invalid ID."})
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{
		StoreURL:   srv.URL,
		APIKey:     "ck_test",
		APISecret:  "cs_test",
		HTTPClient: srv.Client(),
		Breaker:    BreakerConfig{Timeout: time.Minute, MinRequests: 1, FailureRatio: 0.5},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 4; i++ {
		_, _ = c.GetProduct(context.Background(), 7)
	}

	if got := hits.Load(); got != 4 {
		t.Errorf("server hits = %d, want 4", got)
	}
	if got := c.breaker.State(); got != gobreaker.StateClosed {
		t.Errorf("state = %v, want closed", got)
	}
}
