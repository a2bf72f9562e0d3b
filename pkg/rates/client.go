package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opshq/backoffice/internal/config"
)

var (
	ErrCircuitOpen     = errors.New("rates circuit open")
	ErrStaleRate       = errors.New("cached rates are stale and upstream is unreachable")
	ErrUnknownCurrency = errors.New("unknown currency")
)

// package-level logger; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by pkg/rates. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

type table struct {
	rates     map[string]float64
	fetchedAt time.Time
}

// Client talks to an external exchange-rate API and adds retries, a timeout,
// a circuit breaker, and a TTL cache of rate tables per base currency.
type Client struct {
	cfg    config.RatesConfig
	client *http.Client

	// simple circuit breaker state
	failures  int32
	openUntil int64 // unix nano
	closed    int32 // atomic flag for Close()

	mu    sync.RWMutex
	cache map[string]table
}

// NewClient creates a new rates client.
func NewClient(cfg config.RatesConfig, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	c := &Client{
		cfg:    cfg,
		client: httpClient,
		cache:  make(map[string]table),
	}
	logger.Info("rates: client created", slog.String("base_url", cfg.BaseURL), slog.Duration("cache_ttl", cfg.CacheTTL))
	return c, nil
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.failures) < int32(c.cfg.CircuitFailureThreshold) {
		return false
	}

	if time.Now().UnixNano() < atomic.LoadInt64(&c.openUntil) {
		return true
	}

	// attempt half-open: reset failures and allow a request
	atomic.StoreInt32(&c.failures, 0)
	return false
}

func (c *Client) recordFailure() {
	v := atomic.AddInt32(&c.failures, 1)
	if v >= int32(c.cfg.CircuitFailureThreshold) {
		atomic.StoreInt64(&c.openUntil, time.Now().Add(c.cfg.CircuitReset).UnixNano())
	}
}

// Close releases resources held by the client. Idempotent.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	if c.client != nil && c.client.Transport != nil {
		if tr, ok := c.client.Transport.(interface{ CloseIdleConnections() }); ok {
			tr.CloseIdleConnections()
		}
	}
	return nil
}

// Rates returns the rate table for a base currency, served from cache while
// fresh. An expired cache entry is returned with ErrStaleRate only when the
// upstream cannot be reached.
func (c *Client) Rates(ctx context.Context, base string) (map[string]float64, error) {
	base = strings.ToUpper(base)

	c.mu.RLock()
	t, ok := c.cache[base]
	c.mu.RUnlock()
	if ok && time.Since(t.fetchedAt) < c.cfg.CacheTTL {
		return t.rates, nil
	}

	fresh, err := c.fetch(ctx, base)
	if err != nil {
		if ok {
			return nil, fmt.Errorf("%w: %s", ErrStaleRate, err)
		}
		return nil, err
	}

	c.mu.Lock()
	c.cache[base] = table{rates: fresh, fetchedAt: time.Now()}
	c.mu.Unlock()

	return fresh, nil
}

// Convert converts amount from one currency to another using the table based
// on the `from` currency.
func (c *Client) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return amount, nil
	}

	rates, err := c.Rates(ctx, from)
	if err != nil {
		return 0, err
	}

	rate, ok := rates[to]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, to)
	}

	return amount * rate, nil
}

type latestResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// fetch retrieves a rate table with retries and backoff.
func (c *Client) fetch(ctx context.Context, base string) (map[string]float64, error) {
	if c.isCircuitOpen() {
		return nil, ErrCircuitOpen
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		rates, err := c.fetchOnce(ctx, base)
		if err == nil {
			atomic.StoreInt32(&c.failures, 0)
			return rates, nil
		}

		lastErr = err
		c.recordFailure()

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if c.isCircuitOpen() {
			return nil, ErrCircuitOpen
		}

		time.Sleep(c.cfg.Backoff * time.Duration(attempt+1))
	}

	return nil, fmt.Errorf("fetch rates failed after retries: %w", lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, base string) (map[string]float64, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	u = u.JoinPath("latest")
	q := u.Query()
	q.Set("base", base)
	u.RawQuery = q.Encode()

	ctxReq, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctxReq, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("rates endpoint returned status %d", resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("rates endpoint returned empty table for %s", base)
	}

	return body.Rates, nil
}
