package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// input reads point tables and GTFS-RT feeds from URLs or local files.
// This is CLI-specific logic and is not part of the core library.
type input struct {
	httpClient *http.Client
}

func newInput(timeout time.Duration) *input {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &input{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// read returns the bytes at urlOrPath. Anything that is not an http(s) URL
// is read from disk; "-" reads stdin.
func (in *input) read(ctx context.Context, urlOrPath string) ([]byte, error) {
	if urlOrPath == "" {
		return nil, fmt.Errorf("no input given")
	}
	if urlOrPath == "-" {
		return io.ReadAll(os.Stdin)
	}

	if !strings.HasPrefix(urlOrPath, "http://") && !strings.HasPrefix(urlOrPath, "https://") {
		return os.ReadFile(urlOrPath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlOrPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := in.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", urlOrPath, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, urlOrPath)
	}

	return io.ReadAll(resp.Body)
}
