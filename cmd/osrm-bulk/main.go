package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	lib "github.com/theoremus-urban-solutions/osrm-bulk"
	"github.com/theoremus-urban-solutions/osrm-bulk/config"
	"github.com/theoremus-urban-solutions/osrm-bulk/fetch"
	"github.com/theoremus-urban-solutions/osrm-bulk/formatter"
	"github.com/theoremus-urban-solutions/osrm-bulk/gtfsrt"
	"github.com/theoremus-urban-solutions/osrm-bulk/internal"
	"github.com/theoremus-urban-solutions/osrm-bulk/osrm"
	"github.com/theoremus-urban-solutions/osrm-bulk/points"
	"github.com/theoremus-urban-solutions/osrm-bulk/tracking"
)

func main() {
	mode := flag.String("mode", "oneshot", "oneshot|serve|record")
	configPath := flag.String("config", "", "config file (default: config.yml, ./golang/config.yml)")
	inputPath := flag.String("input", "", "CSV point table: file path, http(s) URL or - for stdin (oneshot)")
	group := flag.String("group", "", "group column (overrides config; - sends one request for the whole table)")
	profile := flag.String("profile", "", "driving|walking|cycling (overrides config)")
	format := flag.String("format", "json", "json|csv")
	fields := flag.String("unpack", "", "comma-separated matching fields to flatten, e.g. confidence,geometry")
	osrmHost := flag.String("host", "", "routing engine host (overrides config)")
	osrmPort := flag.Int("port", 0, "routing engine port (overrides config)")
	feedName := flag.String("feed", "", "feed name from config.feeds[] (record)")
	vehiclePositions := flag.String("vehiclePositions", "", "GTFS-RT VehiclePositions URL or file (overrides config)")
	polls := flag.Int("polls", 10, "number of feed polls (record)")
	minPoints := flag.Int("minPoints", 2, "minimum fixes per trip to match (record)")
	logLevel := flag.String("log", "info", "debug|info|warn|error")
	flag.Parse()

	logger := internal.InitLogging(os.Stderr, *logLevel)
	if err := loadConfig(*configPath); err != nil {
		fatal(logger, "load config", err)
	}
	cfg := config.Config
	if *osrmHost != "" {
		cfg.OSRM.Host = *osrmHost
	}
	if *osrmPort != 0 {
		cfg.OSRM.Port = *osrmPort
	}
	switch *group {
	case "":
	case "-":
		cfg.Match.GroupColumn = ""
	default:
		cfg.Match.GroupColumn = *group
	}
	if *fields != "" {
		cfg.Match.Fields = strings.Split(*fields, ",")
	} else if *format == "json" {
		cfg.Match.Fields = nil
	}
	var extra []osrm.MatchOption
	if *profile != "" {
		extra = append(extra, osrm.WithMode(*profile))
	}
	opts, err := cfg.Match.Options(extra...)
	if err != nil {
		fatal(logger, "match options", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "oneshot":
		client := newClient(logger, cfg, nil, fetch.WithProgress(progressLogger(logger)))
		defer func() { _ = client.Close() }()
		if err := oneshot(ctx, client, *inputPath, matchRequest(cfg, opts), os.Stdout, cfg.Match.Fields, *format); err != nil {
			fatal(logger, "oneshot", err)
		}

	case "serve":
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		client := newClient(logger, cfg, reg)
		if !client.Ping(ctx) {
			logger.Warn("routing engine not reachable", "osrm", client.Base())
		}
		s := lib.NewServer(client, cfg, reg)
		s.Start()
		lib.HandleGracefulShutdown(s)

	case "record":
		rtCfg := config.SelectFeed(*feedName)
		source := rtCfg.VehiclePositionsURL
		if *vehiclePositions != "" {
			source = *vehiclePositions
		}
		rec := tracking.NewRecorder(rtCfg.MinDistanceMeters)
		poll := feedPoller(source, time.Duration(rtCfg.TimeoutMS)*time.Millisecond)
		record(ctx, logger, poll, rec, *polls, time.Duration(rtCfg.ReadIntervalMS)*time.Millisecond)
		tbl := rec.Table(*minPoints)
		logger.Info("recording finished", "trips", len(rec.Trips()), "fixes", tbl.Len())
		if tbl.Len() == 0 {
			return
		}

		client := newClient(logger, cfg, nil, fetch.WithProgress(progressLogger(logger)))
		defer func() { _ = client.Close() }()
		req := matchRequest(cfg, opts)
		req.GroupColumn = gtfsrt.ColTripID
		req.Renames = nil
		res, err := client.MatchTable(context.WithoutCancel(ctx), tbl, req)
		if err != nil {
			fatal(logger, "match", err)
		}
		if err := write(os.Stdout, res, cfg.Match.Fields, *format, opts.Geometries()); err != nil {
			fatal(logger, "write output", err)
		}

	default:
		fatal(logger, "unknown mode", fmt.Errorf("%q", *mode))
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func loadConfig(path string) error {
	if path != "" {
		return config.LoadFile(path)
	}
	if err := config.LoadAppConfig(); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		// no config file: run on defaults
		cfg, err := config.Parse([]byte("{}"))
		if err != nil {
			return err
		}
		config.Config = cfg
	}
	return nil
}

func newClient(logger *slog.Logger, cfg config.AppConfig, reg prometheus.Registerer, opts ...fetch.Option) *lib.Client {
	if reg != nil {
		opts = append(opts, fetch.WithRegisterer(reg, "osrm_bulk_fetch"))
	}
	client, err := lib.NewClient(cfg.OSRM.Host, cfg.OSRM.Port,
		lib.WithLogger(logger),
		lib.WithFetchConfig(cfg.Fetcher.Fetch()),
		lib.WithFetchOptions(opts...),
	)
	if err != nil {
		fatal(logger, "create client", err)
	}
	return client
}

func matchRequest(cfg config.AppConfig, opts osrm.MatchOptions) lib.MatchRequest {
	return lib.MatchRequest{
		GroupColumn:     cfg.Match.GroupColumn,
		Renames:         cfg.Match.Renames,
		TimestampFormat: cfg.Match.TimestampFormat,
		Options:         opts,
	}
}

// oneshot matches the CSV point table at inputPath and writes the result to
// out. Logs never go to out.
func oneshot(ctx context.Context, client *lib.Client, inputPath string, req lib.MatchRequest, out io.Writer, fields []string, format string) error {
	data, err := newInput(30*time.Second).read(ctx, inputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	tbl, err := points.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse input: %w", err)
	}
	res, err := client.MatchTable(ctx, tbl, req)
	if err != nil {
		return fmt.Errorf("match: %w", err)
	}
	return write(out, res, fields, format, req.Options.Geometries())
}

// progressLogger logs every tenth of a batch.
func progressLogger(logger *slog.Logger) func(done, total int) {
	return func(done, total int) {
		step := total / 10
		if step == 0 {
			step = 1
		}
		if done%step == 0 || done == total {
			logger.Info("progress", "done", done, "total", total)
		}
	}
}

// feedPoller returns a function reading one vehicle positions snapshot
// from a URL or a local file.
func feedPoller(source string, timeout time.Duration) func(context.Context) (*gtfsrt.Feed, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		client := gtfsrt.NewClient(timeout)
		return func(ctx context.Context) (*gtfsrt.Feed, error) {
			return client.FetchVehiclePositions(ctx, source)
		}
	}
	in := newInput(timeout)
	return func(ctx context.Context) (*gtfsrt.Feed, error) {
		data, err := in.read(ctx, source)
		if err != nil {
			return nil, err
		}
		return gtfsrt.ParseVehiclePositions(data)
	}
}

func record(ctx context.Context, logger *slog.Logger, poll func(context.Context) (*gtfsrt.Feed, error), rec *tracking.Recorder, polls int, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for i := 0; i < polls; i++ {
		if feed, err := poll(ctx); err != nil {
			logger.Warn("poll failed", "poll", i+1, "error", err)
		} else {
			kept := rec.Add(feed)
			logger.Info("poll", "n", i+1, "vehicles", len(feed.Vehicles), "kept", kept)
		}
		if i == polls-1 {
			break
		}
		select {
		case <-ctx.Done():
			logger.Info("recording interrupted", "polls", i+1)
			return
		case <-ticker.C:
		}
	}
}

func write(w io.Writer, res *lib.Result, fields []string, format, geometries string) error {
	if format == "csv" {
		return formatter.WriteFrameCSV(w, res.Flatten(fields), geometries)
	}
	var buf []byte
	var err error
	if len(fields) == 0 {
		buf, err = formatter.BuildJSON(res)
	} else {
		buf, err = formatter.BuildFrameJSON(res.Flatten(fields))
	}
	if err != nil {
		return err
	}
	buf = append(buf, '\n')
	_, err = w.Write(buf)
	return err
}
