package feed

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"time"
)

// maxFeedSize bounds the response body read for a single feed.
const maxFeedSize = 16 << 20

type Fetcher struct {
	httpClient *http.Client
	parser     *Parser
	userAgent  string
	timeout    time.Duration
}

func NewFetcher(httpClient *http.Client, parser *Parser, userAgent string, timeout time.Duration) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		httpClient: httpClient,
		parser:     parser,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Fetch returns the items of source. Nothing is requested until the sequence is
// ranged over. Fetch and parse failures are logged and produce an empty sequence.
func (f *Fetcher) Fetch(ctx context.Context, source string) iter.Seq[Item] {
	return func(yield func(Item) bool) {
		start := time.Now()

		data, err := f.fetchFeed(ctx, source)
		if err != nil {
			slog.Warn("Feed fetch failed", "feed", source, "error", err)
			return
		}

		metadata, items, err := f.parser.Run(data)
		if err != nil {
			slog.Warn("Feed parse failed", "feed", source, "error", err)
			return
		}

		slog.Debug("Feed fetched", "feed", source, "title", metadata.Title, "items", len(items), "duration", time.Since(start))

		for _, item := range items {
			if !yield(item) {
				return
			}
		}
	}
}

func (f *Fetcher) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
