// Package dedup decides, for each fetched article, whether the store needs
// an insert, an update, or nothing at all. Re-running a cycle against
// unchanged upstream content is a storage no-op.
package dedup

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"

	"wartracker/internal/domain"
	"wartracker/internal/ports"
)

// Engine performs chunked, hash-gated upserts against the article store.
type Engine struct {
	store     ports.ArticleStore
	logger    *slog.Logger
	chunkSize int
	limiter   *rate.Limiter
}

// NewEngine bounds chunk size and sustained write throughput.
func NewEngine(store ports.ArticleStore, logger *slog.Logger, chunkSize, writesPerSec int) *Engine {
	if chunkSize <= 0 {
		chunkSize = 50
	}
	limit := rate.Inf
	if writesPerSec > 0 {
		limit = rate.Limit(writesPerSec)
	}
	return &Engine{
		store:     store,
		logger:    logger,
		chunkSize: chunkSize,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// UpsertBatch classifies each article against the stored hash for its URL
// and writes only what changed. Failures are counted, never propagated: a
// broken chunk must not abort its siblings.
func (e *Engine) UpsertBatch(ctx context.Context, articles []domain.Article) domain.BatchStats {
	var stats domain.BatchStats

	articles = dedupeByURL(articles)

	for start := 0; start < len(articles); start += e.chunkSize {
		end := start + e.chunkSize
		if end > len(articles) {
			end = len(articles)
		}
		chunk := articles[start:end]

		if err := e.limiter.Wait(ctx); err != nil {
			stats.Failed += len(articles) - start
			return stats
		}

		e.upsertChunk(ctx, chunk, &stats)
	}

	return stats
}

func (e *Engine) upsertChunk(ctx context.Context, chunk []domain.Article, stats *domain.BatchStats) {
	urls := make([]string, len(chunk))
	for i, a := range chunk {
		urls[i] = a.URL
	}

	existing, err := e.store.HashesByURL(ctx, urls)
	if err != nil {
		e.warn("hash lookup failed", "error", err, "chunk", len(chunk))
		stats.Failed += len(chunk)
		return
	}

	var inserts, updates []domain.Article
	for _, article := range chunk {
		storedHash, found := existing[article.URL]
		switch {
		case !found:
			inserts = append(inserts, article)
		case storedHash != article.ContentHash:
			// Content changed: the stored row is stale and classification
			// must run again.
			article.IsProcessed = false
			updates = append(updates, article)
		default:
			stats.Skipped++
		}
	}

	if len(inserts) > 0 {
		if err := e.store.InsertArticles(ctx, inserts); err != nil {
			e.warn("insert batch failed", "error", err, "count", len(inserts))
			stats.Failed += len(inserts)
		} else {
			stats.Inserted += len(inserts)
		}
	}

	if len(updates) > 0 {
		if err := e.store.UpdateArticles(ctx, updates); err != nil {
			e.warn("update batch failed", "error", err, "count", len(updates))
			stats.Failed += len(updates)
		} else {
			stats.Updated += len(updates)
		}
	}
}

func dedupeByURL(articles []domain.Article) []domain.Article {
	seen := make(map[string]struct{}, len(articles))
	out := articles[:0:0]
	for _, a := range articles {
		if _, ok := seen[a.URL]; ok {
			continue
		}
		seen[a.URL] = struct{}{}
		out = append(out, a)
	}
	return out
}

func (e *Engine) warn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}
