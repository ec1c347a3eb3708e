package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"wartracker/internal/domain"
	"wartracker/internal/ports"
)

// PostgresStore implements the article and event persistence contracts:
// batched select-by-URL, batched insert/update keyed on URL, event inserts.
type PostgresStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.ArticleStore = (*PostgresStore)(nil)
var _ ports.EventStore = (*PostgresStore)(nil)

// Open connects, verifies the connection and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := NewPostgresStore(db)
	if err := store.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStore wires an existing sql.DB.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// HashesByURL returns url -> content_hash for every URL that already has a
// row, in one batched read.
func (s *PostgresStore) HashesByURL(ctx context.Context, urls []string) (map[string]string, error) {
	result := make(map[string]string, len(urls))
	if len(urls) == 0 {
		return result, nil
	}

	query, args, err := s.sb.
		Select("url", "content_hash").
		From("articles").
		Where(sq.Eq{"url": urls}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build hash query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query hashes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url, hash string
		if err := rows.Scan(&url, &hash); err != nil {
			return nil, fmt.Errorf("scan hash row: %w", err)
		}
		result[url] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// InsertArticles writes new rows in one multi-row statement. The conflict
// clause keeps a concurrent writer from failing the whole batch; the dedup
// engine has already decided these URLs are absent.
func (s *PostgresStore) InsertArticles(ctx context.Context, articles []domain.Article) error {
	if len(articles) == 0 {
		return nil
	}

	builder := s.sb.
		Insert("articles").
		Columns("id", "title", "content", "url", "source", "published_at",
			"fetched_at", "content_hash", "is_processed", "is_war_related")
	for _, a := range articles {
		builder = builder.Values(a.ID, a.Title, a.Content, a.URL, a.Source,
			a.PublishedAt, a.FetchedAt, a.ContentHash, a.IsProcessed, a.IsWarRelated)
	}
	query, args, err := builder.Suffix("ON CONFLICT (url) DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert articles: %w", err)
	}
	return nil
}

// UpdateArticles rewrites changed rows inside one transaction, refreshing
// content, hash and the processed flag.
func (s *PostgresStore) UpdateArticles(ctx context.Context, articles []domain.Article) error {
	if len(articles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update tx: %w", err)
	}
	defer tx.Rollback()

	for _, a := range articles {
		query, args, err := s.sb.
			Update("articles").
			Set("title", a.Title).
			Set("content", a.Content).
			Set("published_at", a.PublishedAt).
			Set("fetched_at", a.FetchedAt).
			Set("content_hash", a.ContentHash).
			Set("is_processed", a.IsProcessed).
			Set("is_war_related", a.IsWarRelated).
			Where(sq.Eq{"url": a.URL}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update article %s: %w", a.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit updates: %w", err)
	}
	return nil
}

// ListUnprocessed returns articles still awaiting classification, oldest
// fetch first so feed order is preserved within a source.
func (s *PostgresStore) ListUnprocessed(ctx context.Context, limit int) ([]domain.Article, error) {
	if limit <= 0 {
		limit = 25
	}

	query, args, err := s.sb.
		Select("id", "title", "content", "url", "source", "published_at",
			"fetched_at", "content_hash", "is_processed", "is_war_related").
		From("articles").
		Where(sq.Eq{"is_processed": false}).
		OrderBy("fetched_at ASC", "url ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build unprocessed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var a domain.Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.URL, &a.Source,
			&a.PublishedAt, &a.FetchedAt, &a.ContentHash, &a.IsProcessed, &a.IsWarRelated); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return articles, nil
}

// MarkProcessed flags one article as terminally classified.
func (s *PostgresStore) MarkProcessed(ctx context.Context, articleID string) error {
	query, args, err := s.sb.
		Update("articles").
		Set("is_processed", true).
		Where(sq.Eq{"id": articleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark processed: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark processed %s: %w", articleID, err)
	}
	return nil
}

// CountUnprocessed reports pending classification work.
func (s *PostgresStore) CountUnprocessed(ctx context.Context) (int, error) {
	query, args, err := s.sb.
		Select("COUNT(*)").
		From("articles").
		Where(sq.Eq{"is_processed": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unprocessed: %w", err)
	}
	return count, nil
}

// SaveEvent inserts one derived conflict event.
func (s *PostgresStore) SaveEvent(ctx context.Context, event domain.WarEvent) error {
	query, args, err := s.sb.
		Insert("war_events").
		Columns("id", "event_type", "country", "region", "latitude", "longitude",
			"casualties", "weapons_used", "source_country", "target_country",
			"confidence", "threat_level", "article_id", "article_title",
			"article_url", "processed_at").
		Values(event.ID, string(event.EventType), event.Country, event.Region,
			event.Latitude, event.Longitude, event.Casualties,
			pq.Array(event.WeaponsUsed), event.SourceCountry, event.TargetCountry,
			event.Confidence, string(event.ThreatLevel), event.ArticleID,
			event.ArticleTitle, event.ArticleURL, event.ProcessedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build event insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// RecentEvents lists the newest derived events for the status surface.
func (s *PostgresStore) RecentEvents(ctx context.Context, limit int) ([]domain.WarEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	query, args, err := s.sb.
		Select("id", "event_type", "country", "region", "latitude", "longitude",
			"casualties", "weapons_used", "source_country", "target_country",
			"confidence", "threat_level", "article_id", "article_title",
			"article_url", "processed_at").
		From("war_events").
		OrderBy("processed_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build events query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []domain.WarEvent
	for rows.Next() {
		var e domain.WarEvent
		var eventType, threatLevel string
		if err := rows.Scan(&e.ID, &eventType, &e.Country, &e.Region, &e.Latitude,
			&e.Longitude, &e.Casualties, pq.Array(&e.WeaponsUsed), &e.SourceCountry,
			&e.TargetCountry, &e.Confidence, &threatLevel, &e.ArticleID,
			&e.ArticleTitle, &e.ArticleURL, &e.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.EventType = domain.EventType(eventType)
		e.ThreatLevel = domain.ThreatLevel(threatLevel)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return events, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id             UUID PRIMARY KEY,
	title          TEXT NOT NULL,
	content        TEXT NOT NULL DEFAULT '',
	url            TEXT NOT NULL UNIQUE,
	source         TEXT NOT NULL,
	published_at   TIMESTAMPTZ NOT NULL,
	fetched_at     TIMESTAMPTZ NOT NULL,
	content_hash   TEXT NOT NULL,
	is_processed   BOOLEAN NOT NULL DEFAULT FALSE,
	is_war_related BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_articles_unprocessed ON articles (fetched_at) WHERE NOT is_processed;

CREATE TABLE IF NOT EXISTS war_events (
	id             UUID PRIMARY KEY,
	event_type     TEXT NOT NULL,
	country        TEXT NOT NULL,
	region         TEXT,
	latitude       DOUBLE PRECISION,
	longitude      DOUBLE PRECISION,
	casualties     INTEGER,
	weapons_used   TEXT[],
	source_country TEXT,
	target_country TEXT,
	confidence     INTEGER NOT NULL,
	threat_level   TEXT NOT NULL,
	article_id     UUID NOT NULL,
	article_title  TEXT NOT NULL,
	article_url    TEXT NOT NULL,
	processed_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_war_events_processed_at ON war_events (processed_at DESC);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
