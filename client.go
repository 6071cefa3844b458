package osrmbulk

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/theoremus-urban-solutions/osrm-bulk/fetch"
	"github.com/theoremus-urban-solutions/osrm-bulk/osrm"
	"github.com/theoremus-urban-solutions/osrm-bulk/points"
)

// Client talks to one routing engine host.
type Client struct {
	base    osrm.Base
	fetcher *fetch.Fetcher
	logger  *slog.Logger
}

// ClientOption customises a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	cfg       fetch.Config
	fetchOpts []fetch.Option
	logger    *slog.Logger
}

// WithFetchConfig replaces the fetcher configuration.
func WithFetchConfig(cfg fetch.Config) ClientOption {
	return func(o *clientOptions) { o.cfg = cfg }
}

// WithFetchOptions passes options through to the fetcher, e.g.
// fetch.WithProgress or fetch.WithRegisterer.
func WithFetchOptions(opts ...fetch.Option) ClientOption {
	return func(o *clientOptions) { o.fetchOpts = append(o.fetchOpts, opts...) }
}

// WithLogger sets the logger for the client and its fetcher.
func WithLogger(l *slog.Logger) ClientOption {
	return func(o *clientOptions) { o.logger = l }
}

// NewClient creates a client for host:port. A host without a scheme is
// reached over http.
func NewClient(host string, port int, opts ...ClientOption) (*Client, error) {
	o := clientOptions{cfg: fetch.DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	f, err := fetch.New(o.cfg, append([]fetch.Option{fetch.WithLogger(o.logger)}, o.fetchOpts...)...)
	if err != nil {
		return nil, err
	}
	return &Client{base: osrm.NewBase(host, port), fetcher: f, logger: o.logger}, nil
}

// Base returns the request prefix, e.g. "http://localhost:5000".
func (c *Client) Base() osrm.Base { return c.base }

// Fetcher returns the underlying fetcher.
func (c *Client) Fetcher() *fetch.Fetcher { return c.fetcher }

// Close releases the connection pool.
func (c *Client) Close() error { return c.fetcher.Close() }

// Ping reports whether the routing engine answers HTTP at all.
func (c *Client) Ping(ctx context.Context) bool {
	return osrm.IsHostReachable(ctx, c.base)
}

// MatchRequest describes a bulk match over a point table.
type MatchRequest struct {
	// GroupColumn splits the table into one request per distinct value.
	// Empty sends the whole table as one request.
	GroupColumn     string
	Renames         map[string]string // source column -> canonical name
	TimestampFormat string            // Go layout or strftime; empty for the default
	Options         osrm.MatchOptions // zero value means the defaults
}

// MatchTable map matches every group of tbl. Input and option errors abort
// before any request is sent; request failures are recorded per group in
// the Result.
func (c *Client) MatchTable(ctx context.Context, tbl *points.Table, req MatchRequest) (*Result, error) {
	opts := req.Options
	if opts.Mode() == "" {
		var err error
		if opts, err = osrm.NewMatchOptions(); err != nil {
			return nil, err
		}
	}
	frame, err := points.Extract(tbl, req.Renames, req.TimestampFormat)
	if err != nil {
		return nil, err
	}
	groups, err := points.Partition(frame, req.GroupColumn)
	if err != nil {
		return nil, err
	}
	reqs := make([]fetch.Request, len(groups))
	for i, g := range groups {
		if reqs[i], err = osrm.MatchRequest(c.base, g, opts); err != nil {
			return nil, fmt.Errorf("group %q: %w", g.Key, err)
		}
	}

	start := time.Now()
	outcomes := c.fetcher.Fetch(ctx, reqs)
	res, err := Assemble(groups, outcomes)
	if err != nil {
		return nil, err
	}
	c.logger.Info("match finished",
		"points", frame.Len(), "groups", len(groups), "failed", len(res.Failed()), "elapsed", time.Since(start))
	return res, nil
}

// Match sends one match request for pts.
func (c *Client) Match(ctx context.Context, pts []points.Point, opts osrm.MatchOptions) (map[string]any, error) {
	if opts.Mode() == "" {
		var err error
		if opts, err = osrm.NewMatchOptions(); err != nil {
			return nil, err
		}
	}
	req, err := osrm.MatchRequest(c.base, points.Group{Key: points.Ungrouped, Points: pts}, opts)
	if err != nil {
		return nil, err
	}
	return c.one(ctx, req)
}

// Route sends one route request.
func (c *Client) Route(ctx context.Context, coords []osrm.Coordinate, opts osrm.RouteOptions) (map[string]any, error) {
	url, err := osrm.RouteURL(c.base, coords, opts)
	if err != nil {
		return nil, err
	}
	return c.one(ctx, fetch.Request{URL: url, Method: http.MethodGet})
}

// Table sends one table request.
func (c *Client) Table(ctx context.Context, coords []osrm.Coordinate, opts osrm.TableOptions) (map[string]any, error) {
	url, err := osrm.TableURL(c.base, coords, opts)
	if err != nil {
		return nil, err
	}
	return c.one(ctx, fetch.Request{URL: url, Method: http.MethodGet})
}

func (c *Client) one(ctx context.Context, req fetch.Request) (map[string]any, error) {
	o := c.fetcher.FetchOne(ctx, req)
	if o.Err != nil {
		return nil, o.Err
	}
	return o.Payload, nil
}
