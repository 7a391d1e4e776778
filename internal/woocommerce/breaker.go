package woocommerce

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned while the breaker rejects requests to the store.
var ErrCircuitOpen = gobreaker.ErrOpenState

// errServerStatus marks a 5xx response as a breaker failure while still
// handing the response to the caller for error parsing.
var errServerStatus = errors.New("store server error")

// BreakerConfig tunes the circuit breaker in front of the store.
type BreakerConfig struct {
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
	// Interval clears the closed-state counts. 0 never clears.
	Interval time.Duration
	// MinRequests must be seen before FailureRatio is evaluated.
	MinRequests  uint32
	FailureRatio float64
	// OnStateChange observes transitions (logging, metrics).
	OnStateChange func(from, to gobreaker.State)
}

// DefaultBreakerConfig trips after half of at least 5 requests fail and probes again after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Timeout:      30 * time.Second,
		Interval:     60 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.5,
	}
}

// breakerTransport counts transport errors and 5xx responses against a shared breaker.
type breakerTransport struct {
	next    http.RoundTripper
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

func newBreakerTransport(next http.RoundTripper, cfg BreakerConfig) *breakerTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	settings := gobreaker.Settings{
		Name:        "woocommerce",
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		// A shopper abandoning the page says nothing about store health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = func(_ string, from, to gobreaker.State) {
			cfg.OnStateChange(from, to)
		}
	}
	return &breakerTransport{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
	}
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	_, err := t.breaker.Execute(func() (*http.Response, error) {
		var err error
		resp, err = t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	})
	if err != nil && !errors.Is(err, errServerStatus) {
		return nil, err
	}
	return resp, nil
}

// State reports the breaker state.
func (t *breakerTransport) State() gobreaker.State {
	return t.breaker.State()
}
