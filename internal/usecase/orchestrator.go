package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"wartracker/internal/config"
	"wartracker/internal/dedup"
	"wartracker/internal/domain"
	"wartracker/internal/feed"
	"wartracker/internal/ports"
)

// OrchestratorDeps wires all driven adapters into the cycle orchestrator.
type OrchestratorDeps struct {
	Registry   *feed.Registry
	Fetcher    ports.FeedFetcher
	Engine     *dedup.Engine
	Store      ports.ArticleStore
	Events     ports.EventStore
	Classifier ports.Classifier
	Logger     *slog.Logger
	Pipeline   config.PipelineConfig
}

// Orchestrator drives one full pass across all registered sources plus the
// pending classification work. Scheduled and on-demand triggers run the same
// code path.
type Orchestrator struct {
	registry   *feed.Registry
	fetcher    ports.FeedFetcher
	engine     *dedup.Engine
	store      ports.ArticleStore
	events     ports.EventStore
	classifier ports.Classifier
	logger     *slog.Logger
	cfg        config.PipelineConfig
	now        func() time.Time
}

// CycleOptions carries per-trigger overrides; zero values fall back to the
// configured pipeline bounds.
type CycleOptions struct {
	BatchSize     int `json:"batchSize"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// NewOrchestrator constructs the orchestration component.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	return &Orchestrator{
		registry:   deps.Registry,
		fetcher:    deps.Fetcher,
		engine:     deps.Engine,
		store:      deps.Store,
		events:     deps.Events,
		classifier: deps.Classifier,
		logger:     deps.Logger,
		cfg:        deps.Pipeline,
		now:        time.Now,
	}
}

// RunCycle fetches every source, upserts what changed and classifies pending
// articles. Component failures become counters; the only returned error is
// context cancellation.
func (o *Orchestrator) RunCycle(ctx context.Context, opts CycleOptions) (domain.CycleStats, error) {
	stats := domain.CycleStats{StartedAt: o.now()}

	o.runFetchPhase(ctx, &stats)
	if err := ctx.Err(); err != nil {
		return o.finish(stats), err
	}

	if err := o.runClassifyPhase(ctx, opts, &stats); err != nil {
		return o.finish(stats), err
	}

	final := o.finish(stats)
	o.info("cycle complete",
		"duration", final.Duration.Round(time.Millisecond),
		"fetched", final.TotalFetched,
		"inserted", final.Upserts.Inserted,
		"updated", final.Upserts.Updated,
		"skipped", final.Upserts.Skipped,
		"events", final.EventsCreated,
		"idle", final.Idle)
	return final, nil
}

func (o *Orchestrator) runFetchPhase(ctx context.Context, stats *domain.CycleStats) {
	sources := o.registry.All()
	results := make([]domain.SourceResult, len(sources))
	batches := make([]domain.BatchStats, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(o.cfg.FetchWorkers, 4))

	for i, source := range sources {
		g.Go(func() error {
			results[i] = domain.SourceResult{Source: source.Name}

			entries, err := o.fetcher.Fetch(gctx, source)
			if err != nil {
				// One broken source must not abort the others.
				results[i].Error = err.Error()
				o.warn("source failed", "source", source.Name, "error", err)
				return nil
			}

			fetchedAt := o.now()
			articles := make([]domain.Article, 0, len(entries))
			for _, entry := range entries {
				article, ok := feed.Normalize(entry, source, fetchedAt)
				if !ok {
					continue
				}
				if o.cfg.WarRelatedOnly && !article.IsWarRelated {
					continue
				}
				articles = append(articles, article)
			}

			results[i].Fetched = len(articles)
			batches[i] = o.engine.UpsertBatch(gctx, articles)
			return nil
		})
	}
	_ = g.Wait()

	for i := range sources {
		stats.Sources = append(stats.Sources, results[i])
		stats.TotalFetched += results[i].Fetched
		if results[i].Error != "" {
			stats.SourceErrors++
		}
		stats.Upserts.Add(batches[i])
	}
}

func (o *Orchestrator) runClassifyPhase(ctx context.Context, opts CycleOptions, stats *domain.CycleStats) error {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = o.cfg.BatchSize
	}
	maxConcurrent := workers(opts.MaxConcurrent, 0)
	if maxConcurrent <= 0 {
		maxConcurrent = workers(o.cfg.MaxConcurrent, 3)
	}

	pending, err := o.store.ListUnprocessed(ctx, batchSize)
	if err != nil {
		o.warn("listing unprocessed failed", "error", err)
		stats.ClassifyErrors++
		return nil
	}
	if len(pending) == 0 {
		stats.Idle = true
		return nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for _, article := range pending {
		g.Go(func() error {
			event, err := o.classifier.Classify(gctx, article)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				// Provider failure: leave the article unprocessed so a later
				// cycle retries it.
				stats.ClassifyErrors++
				o.warn("classification failed", "url", article.URL, "error", err)
				return nil
			}

			if event != nil {
				if err := o.events.SaveEvent(gctx, *event); err != nil {
					stats.ClassifyErrors++
					o.warn("event persist failed", "url", article.URL, "error", err)
					return nil
				}
				stats.EventsCreated++
			} else {
				stats.NoEvent++
			}
			stats.Classified++

			// No event is a terminal outcome too; without the flag the same
			// article would burn a model call every cycle.
			if err := o.store.MarkProcessed(gctx, article.ID); err != nil {
				stats.ClassifyErrors++
				o.warn("mark processed failed", "url", article.URL, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return ctx.Err()
}

func (o *Orchestrator) finish(stats domain.CycleStats) domain.CycleStats {
	stats.Duration = o.now().Sub(stats.StartedAt)
	stats.DurationMS = stats.Duration.Milliseconds()
	return stats
}

func workers(configured, fallback int) int {
	if configured > 0 {
		return configured
	}
	return fallback
}

func (o *Orchestrator) info(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Info(msg, args...)
	}
}

func (o *Orchestrator) warn(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Warn(msg, args...)
	}
}
