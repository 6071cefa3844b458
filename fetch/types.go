package fetch

import (
	"errors"
	"fmt"
	"time"
)

// Sentinels matched with errors.Is against an Outcome's Err.
var (
	ErrTimeout   = errors.New("request timed out")
	ErrTransport = errors.New("transport failure")
)

// ErrorKind classifies a failed request.
type ErrorKind int

const (
	KindTransport ErrorKind = iota
	KindTimeout
)

func (k ErrorKind) String() string {
	if k == KindTimeout {
		return "timeout"
	}
	return "transport"
}

func (k ErrorKind) sentinel() error {
	if k == KindTimeout {
		return ErrTimeout
	}
	return ErrTransport
}

// RequestError is the error stored in a failed Outcome.
type RequestError struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
}

func (e *RequestError) Unwrap() []error { return []error{e.Kind.sentinel(), e.Err} }

// Request describes one HTTP call. It carries the group key so the outcome
// can be traced back to its group in logs.
type Request struct {
	URL      string
	Method   string
	GroupKey string
}

// Outcome is the resolved result of the request at the same Index.
// Exactly one of Payload and Err is set.
type Outcome struct {
	Index   int
	Payload map[string]any
	Err     error
	Status  int
	Elapsed time.Duration
}

// OK reports whether the request produced a payload.
func (o Outcome) OK() bool { return o.Err == nil }

// Config holds the fetcher knobs. Zero numeric fields take the defaults of
// DefaultConfig; the boolean fields are used as given.
type Config struct {
	MaxConcurrent int           // in-flight ceiling
	LimitPerHost  int           // connection pool size for the routing host
	DNSCacheTTL   time.Duration // negative disables the cache
	Timeout       time.Duration // single-call timeout
	BatchTimeout  time.Duration // per-request timeout inside Fetch; defaults to Timeout
	KeepOpen      bool          // keep the pool after a batch until Close

	// InsecureSkipVerify disables TLS verification towards the routing
	// host. On by default; routing engines commonly sit behind
	// self-signed certificates on internal networks.
	InsecureSkipVerify bool
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:      250,
		LimitPerHost:       500,
		DNSCacheTTL:        300 * time.Second,
		Timeout:            5 * time.Second,
		InsecureSkipVerify: true,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = d.MaxConcurrent
	}
	if c.LimitPerHost <= 0 {
		c.LimitPerHost = d.LimitPerHost
	}
	if c.DNSCacheTTL == 0 {
		c.DNSCacheTTL = d.DNSCacheTTL
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = c.Timeout
	}
	return c
}
