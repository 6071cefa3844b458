package fetch

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"
)

// Fetcher executes batches of requests against one routing host with a
// bounded number in flight. It is safe for concurrent use; concurrent
// batches share one connection pool.
type Fetcher struct {
	cfg      Config
	logger   *slog.Logger
	progress func(done, total int)
	metrics  *metrics

	mu     sync.Mutex
	client *http.Client
	dns    *dnsCache
	refs   int
	pinned bool

	done  atomic.Int64
	total atomic.Int64
}

// Option customises a Fetcher.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	progress func(done, total int)
	reg      prometheus.Registerer
	prefix   string
}

// WithLogger sets the logger. Default slog.Default().
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithProgress installs a hook called after every resolved request of a
// batch with the batch's done and total counts. Calls are serialised.
func WithProgress(fn func(done, total int)) Option {
	return func(o *options) { o.progress = fn }
}

// WithRegisterer registers request counters, an in-flight gauge and a
// latency histogram named with prefix.
func WithRegisterer(reg prometheus.Registerer, prefix string) Option {
	return func(o *options) { o.reg, o.prefix = reg, prefix }
}

// New creates a Fetcher. The connection pool is created lazily on first use.
func New(cfg Config, opts ...Option) (*Fetcher, error) {
	o := options{prefix: "osrm_fetch"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	f := &Fetcher{
		cfg:      cfg.withDefaults(),
		logger:   o.logger,
		progress: o.progress,
	}
	if o.reg != nil {
		m, err := newMetrics(o.reg, o.prefix)
		if err != nil {
			return nil, fmt.Errorf("register fetch metrics: %w", err)
		}
		f.metrics = m
	}
	return f, nil
}

// Config returns the effective configuration.
func (f *Fetcher) Config() Config { return f.cfg }

// Open creates the connection pool and keeps it until Close, regardless of
// KeepOpen.
func (f *Fetcher) Open() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensurePool()
	f.pinned = true
}

// Close tears down the connection pool. Batches still running keep their
// client; idle connections are dropped.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pinned = false
	f.teardown()
	return nil
}

// Progress returns the cumulative resolved and submitted request counts.
func (f *Fetcher) Progress() (done, total int64) {
	return f.done.Load(), f.total.Load()
}

func (f *Fetcher) ensurePool() *http.Client {
	if f.client != nil {
		return f.client
	}
	f.dns = newDNSCache(f.cfg.DNSCacheTTL)
	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	tr := &http.Transport{
		DialContext:         f.dns.dialContext(dialer),
		MaxConnsPerHost:     f.cfg.LimitPerHost,
		MaxIdleConns:        f.cfg.LimitPerHost,
		MaxIdleConnsPerHost: f.cfg.LimitPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: f.cfg.InsecureSkipVerify}, //nolint:gosec
	}
	f.client = &http.Client{Transport: tr}
	f.logger.Debug("connection pool opened", "limit_per_host", f.cfg.LimitPerHost, "dns_ttl", f.cfg.DNSCacheTTL)
	return f.client
}

func (f *Fetcher) teardown() {
	if f.client == nil {
		return
	}
	f.client.CloseIdleConnections()
	f.client = nil
	f.dns = nil
	f.logger.Debug("connection pool closed")
}

func (f *Fetcher) acquire() *http.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refs++
	return f.ensurePool()
}

func (f *Fetcher) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refs--
	if f.refs == 0 && !f.cfg.KeepOpen && !f.pinned {
		f.teardown()
	}
}

// Fetch executes reqs with at most MaxConcurrent in flight and returns one
// Outcome per request at the same index. Failures, including cancellation
// of ctx, are reported inside the outcomes; Fetch itself never fails.
func (f *Fetcher) Fetch(ctx context.Context, reqs []Request) []Outcome {
	outcomes := make([]Outcome, len(reqs))
	if len(reqs) == 0 {
		return outcomes
	}
	client := f.acquire()
	defer f.release()

	f.total.Add(int64(len(reqs)))
	start := time.Now()
	sem := semaphore.NewWeighted(int64(f.cfg.MaxConcurrent))
	var (
		wg   sync.WaitGroup
		pmu  sync.Mutex
		done int
	)
	report := func() {
		f.done.Add(1)
		if f.progress == nil {
			return
		}
		pmu.Lock()
		done++
		f.progress(done, len(reqs))
		pmu.Unlock()
	}

	for i, r := range reqs {
		if err := sem.Acquire(ctx, 1); err != nil {
			outcomes[i] = Outcome{Index: i, Err: classify(ctx, r.URL, err)}
			report()
			continue
		}
		wg.Add(1)
		go func(i int, r Request) {
			defer wg.Done()
			defer sem.Release(1)
			outcomes[i] = f.do(ctx, client, i, r, f.cfg.BatchTimeout)
			report()
		}(i, r)
	}
	wg.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	f.logger.Info("batch finished", "requests", len(reqs), "failed", failed, "elapsed", time.Since(start))
	return outcomes
}

// FetchOne executes a single request with the single-call Timeout.
func (f *Fetcher) FetchOne(ctx context.Context, r Request) Outcome {
	client := f.acquire()
	defer f.release()
	f.total.Add(1)
	defer f.done.Add(1)
	return f.do(ctx, client, 0, r, f.cfg.Timeout)
}

func (f *Fetcher) do(ctx context.Context, client *http.Client, i int, r Request, timeout time.Duration) Outcome {
	f.metrics.begin()
	start := time.Now()
	o := f.roundTrip(ctx, client, r, timeout)
	o.Index = i
	o.Elapsed = time.Since(start)
	f.metrics.end(o, o.Elapsed)
	if o.Err != nil {
		f.logger.Debug("request failed", "group", r.GroupKey, "error", o.Err)
	}
	return o
}

func (f *Fetcher) roundTrip(ctx context.Context, client *http.Client, r Request, timeout time.Duration) Outcome {
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(rctx, method, r.URL, nil)
	if err != nil {
		return Outcome{Err: &RequestError{Kind: KindTransport, URL: r.URL, Err: err}}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return Outcome{Err: classify(rctx, r.URL, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{Status: resp.StatusCode, Err: classify(rctx, r.URL, err)}
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		if err == nil {
			err = errors.New("response body is not a JSON object")
		}
		return Outcome{Status: resp.StatusCode, Err: &RequestError{
			Kind: KindTransport,
			URL:  r.URL,
			Err:  fmt.Errorf("HTTP %d: malformed body: %w", resp.StatusCode, err),
		}}
	}
	return Outcome{Status: resp.StatusCode, Payload: payload}
}

// classify maps a failed call to a timeout when a deadline expired and to a
// transport failure otherwise.
func classify(ctx context.Context, url string, err error) *RequestError {
	kind := KindTransport
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &ne) && ne.Timeout():
		kind = KindTimeout
	}
	return &RequestError{Kind: kind, URL: url, Err: err}
}
