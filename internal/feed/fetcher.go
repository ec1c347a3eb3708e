package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"wartracker/internal/domain"
	"wartracker/internal/ports"
	"wartracker/internal/retry"
)

const maxFeedBody = 5 << 20

// Fetcher retrieves one source and parses it into raw entries. Transient
// failures (network, timeout, 5xx) are retried with doubling backoff; 4xx
// responses and malformed feeds are permanent for the cycle.
type Fetcher struct {
	client      *http.Client
	parser      *gofeed.Parser
	logger      *slog.Logger
	maxAttempts int
	baseDelay   time.Duration
}

var _ ports.FeedFetcher = (*Fetcher)(nil)

// NewFetcher wires an HTTP client; per-source timeouts come from the source
// itself, so the client carries none.
func NewFetcher(client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{
		client:      client,
		parser:      gofeed.NewParser(),
		logger:      logger,
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
	}
}

// Fetch downloads and parses the source feed.
func (f *Fetcher) Fetch(ctx context.Context, source domain.FeedSource) ([]domain.RawEntry, error) {
	var entries []domain.RawEntry

	err := retry.Do(ctx, f.maxAttempts, f.baseDelay, func() error {
		var attemptErr error
		entries, attemptErr = f.fetchOnce(ctx, source)
		return attemptErr
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", source.Name, err)
	}

	f.debug("feed fetched", "source", source.Name, "entries", len(entries))
	return entries, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, source domain.FeedSource) ([]domain.RawEntry, error) {
	callCtx, cancel := context.WithTimeout(ctx, source.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, retry.Stop(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", "WarTracker/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, retry.Stop(fmt.Errorf("feed returned %s: %s", resp.Status, strings.TrimSpace(string(snippet))))
	}

	parsed, err := f.parser.Parse(io.LimitReader(resp.Body, maxFeedBody))
	if err != nil {
		return nil, retry.Stop(fmt.Errorf("parse feed: %w", err))
	}

	entries := make([]domain.RawEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, domain.RawEntry{
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
			Content:     item.Content,
			Published:   item.Published,
			ImageURL:    itemImage(item),
		})
	}

	return entries, nil
}

func itemImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

func (f *Fetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
