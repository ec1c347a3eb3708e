package ports

import (
	"context"
	"time"

	"wartracker/internal/domain"
)

// FeedFetcher retrieves and parses one registered source into raw entries.
type FeedFetcher interface {
	Fetch(ctx context.Context, source domain.FeedSource) ([]domain.RawEntry, error)
}

// ArticleStore is the narrow persistence contract for canonical articles:
// batched select by URL plus batched insert/update keyed on URL.
type ArticleStore interface {
	HashesByURL(ctx context.Context, urls []string) (map[string]string, error)
	InsertArticles(ctx context.Context, articles []domain.Article) error
	UpdateArticles(ctx context.Context, articles []domain.Article) error
	ListUnprocessed(ctx context.Context, limit int) ([]domain.Article, error)
	MarkProcessed(ctx context.Context, articleID string) error
	CountUnprocessed(ctx context.Context) (int, error)
}

// EventStore persists derived conflict events.
type EventStore interface {
	SaveEvent(ctx context.Context, event domain.WarEvent) error
	RecentEvents(ctx context.Context, limit int) ([]domain.WarEvent, error)
}

// Classifier turns one article into at most one event. A nil event with a
// nil error means the article was examined and is not a conflict event.
type Classifier interface {
	Classify(ctx context.Context, article domain.Article) (*domain.WarEvent, error)
}

// Scheduler drives recurring cycle executions.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
