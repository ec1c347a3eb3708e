package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"wartracker/internal/config"
	"wartracker/internal/dedup"
	"wartracker/internal/domain"
	"wartracker/internal/feed"
)

type fakeFetcher struct {
	entries map[string][]domain.RawEntry
	errs    map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, source domain.FeedSource) ([]domain.RawEntry, error) {
	if err := f.errs[source.Name]; err != nil {
		return nil, err
	}
	return f.entries[source.Name], nil
}

type memStore struct {
	mu        sync.Mutex
	rows      map[string]domain.Article
	events    []domain.WarEvent
	saveErr   error
	markCalls int
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]domain.Article{}}
}

func (s *memStore) HashesByURL(_ context.Context, urls []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]string{}
	for _, u := range urls {
		if row, ok := s.rows[u]; ok {
			out[u] = row.ContentHash
		}
	}
	return out, nil
}

func (s *memStore) InsertArticles(_ context.Context, articles []domain.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range articles {
		s.rows[a.URL] = a
	}
	return nil
}

func (s *memStore) UpdateArticles(ctx context.Context, articles []domain.Article) error {
	return s.InsertArticles(ctx, articles)
}

func (s *memStore) ListUnprocessed(_ context.Context, limit int) ([]domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Article
	for _, a := range s.rows {
		if !a.IsProcessed {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) MarkProcessed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markCalls++
	for url, a := range s.rows {
		if a.ID == id {
			a.IsProcessed = true
			s.rows[url] = a
		}
	}
	return nil
}

func (s *memStore) CountUnprocessed(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, a := range s.rows {
		if !a.IsProcessed {
			count++
		}
	}
	return count, nil
}

func (s *memStore) SaveEvent(_ context.Context, event domain.WarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.events = append(s.events, event)
	return nil
}

func (s *memStore) RecentEvents(context.Context, int) ([]domain.WarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events, nil
}

type scriptedClassifier struct {
	mu     sync.Mutex
	events map[string]*domain.WarEvent
	errs   map[string]error
	calls  int
}

func (c *scriptedClassifier) Classify(_ context.Context, article domain.Article) (*domain.WarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if err := c.errs[article.URL]; err != nil {
		return nil, err
	}
	return c.events[article.URL], nil
}

func warEntry(i int) domain.RawEntry {
	return domain.RawEntry{
		Title:       fmt.Sprintf("Missile strike update %d", i),
		Link:        fmt.Sprintf("https://example.org/war/%d", i),
		Description: "Military operations continued along the frontline overnight.",
	}
}

func newTestOrchestrator(fetcher *fakeFetcher, store *memStore, classifier *scriptedClassifier, sources ...domain.FeedSource) *Orchestrator {
	return NewOrchestrator(OrchestratorDeps{
		Registry:   feed.NewRegistry(sources),
		Fetcher:    fetcher,
		Engine:     dedup.NewEngine(store, nil, 50, 0),
		Store:      store,
		Events:     store,
		Classifier: classifier,
		Pipeline: config.PipelineConfig{
			BatchSize:     25,
			MaxConcurrent: 2,
			FetchWorkers:  2,
		},
	})
}

func TestRunCycleIsolatesSourceFailures(t *testing.T) {
	t.Parallel()

	sourceA := domain.FeedSource{Name: "A", URL: "https://a.example.org/rss"}
	sourceB := domain.FeedSource{Name: "B", URL: "https://b.example.org/rss"}

	fetcher := &fakeFetcher{
		entries: map[string][]domain.RawEntry{"B": {warEntry(1), warEntry(2)}},
		errs:    map[string]error{"A": errors.New("connection refused")},
	}
	store := newMemStore()
	orch := newTestOrchestrator(fetcher, store, &scriptedClassifier{}, sourceA, sourceB)

	stats, err := orch.RunCycle(context.Background(), CycleOptions{})
	if err != nil {
		t.Fatalf("RunCycle error: %v", err)
	}

	if stats.SourceErrors != 1 {
		t.Fatalf("expected 1 source error, got %d", stats.SourceErrors)
	}
	if stats.TotalFetched != 2 {
		t.Fatalf("expected 2 fetched from B, got %d", stats.TotalFetched)
	}
	if stats.Upserts.Inserted != 2 {
		t.Fatalf("B's articles must still be upserted: %+v", stats.Upserts)
	}

	var failed, succeeded *domain.SourceResult
	for i := range stats.Sources {
		switch stats.Sources[i].Source {
		case "A":
			failed = &stats.Sources[i]
		case "B":
			succeeded = &stats.Sources[i]
		}
	}
	if failed == nil || failed.Error == "" {
		t.Fatal("source A must carry its error")
	}
	if succeeded == nil || succeeded.Error != "" || succeeded.Fetched != 2 {
		t.Fatalf("source B result wrong: %+v", succeeded)
	}
}

func TestRunCycleClassifiesPendingArticles(t *testing.T) {
	t.Parallel()

	source := domain.FeedSource{Name: "wire", URL: "https://wire.example.org/rss"}
	fetcher := &fakeFetcher{entries: map[string][]domain.RawEntry{"wire": {warEntry(1), warEntry(2)}}}
	store := newMemStore()

	event := &domain.WarEvent{
		ID:          "evt-1",
		EventType:   domain.EventAirstrike,
		Country:     "Ukraine",
		Confidence:  85,
		ThreatLevel: domain.ThreatHigh,
	}
	classifier := &scriptedClassifier{
		events: map[string]*domain.WarEvent{"https://example.org/war/1": event},
	}
	orch := newTestOrchestrator(fetcher, store, classifier, source)

	stats, err := orch.RunCycle(context.Background(), CycleOptions{})
	if err != nil {
		t.Fatalf("RunCycle error: %v", err)
	}

	if stats.EventsCreated != 1 || stats.NoEvent != 1 || stats.Classified != 2 {
		t.Fatalf("unexpected classification stats: %+v", stats)
	}
	if len(store.events) != 1 {
		t.Fatalf("expected 1 persisted event, got %d", len(store.events))
	}
	for url, row := range store.rows {
		if !row.IsProcessed {
			t.Fatalf("article %s must be marked processed", url)
		}
	}

	// Second cycle against unchanged upstream content: no writes, no model calls.
	classifier.calls = 0
	second, err := orch.RunCycle(context.Background(), CycleOptions{})
	if err != nil {
		t.Fatalf("second RunCycle error: %v", err)
	}
	if second.Upserts.Skipped != 2 || second.Upserts.Inserted != 0 || second.Upserts.Updated != 0 {
		t.Fatalf("second cycle must be a storage no-op: %+v", second.Upserts)
	}
	if !second.Idle {
		t.Fatal("second cycle must report idle classification phase")
	}
	if classifier.calls != 0 {
		t.Fatalf("processed articles must not be reclassified, got %d calls", classifier.calls)
	}
}

func TestRunCycleLeavesArticleUnprocessedOnClassifierError(t *testing.T) {
	t.Parallel()

	source := domain.FeedSource{Name: "wire", URL: "https://wire.example.org/rss"}
	fetcher := &fakeFetcher{entries: map[string][]domain.RawEntry{"wire": {warEntry(1)}}}
	store := newMemStore()
	classifier := &scriptedClassifier{
		errs: map[string]error{"https://example.org/war/1": errors.New("provider down")},
	}
	orch := newTestOrchestrator(fetcher, store, classifier, source)

	stats, err := orch.RunCycle(context.Background(), CycleOptions{})
	if err != nil {
		t.Fatalf("RunCycle error: %v", err)
	}

	if stats.ClassifyErrors != 1 {
		t.Fatalf("expected 1 classify error, got %d", stats.ClassifyErrors)
	}
	if store.markCalls != 0 {
		t.Fatal("failed classification must leave the article unprocessed")
	}
	pending, _ := store.CountUnprocessed(context.Background())
	if pending != 1 {
		t.Fatalf("expected article to remain pending, got %d", pending)
	}
}

func TestRunCycleIdleWhenNothingPending(t *testing.T) {
	t.Parallel()

	source := domain.FeedSource{Name: "wire", URL: "https://wire.example.org/rss"}
	fetcher := &fakeFetcher{}
	store := newMemStore()
	classifier := &scriptedClassifier{}
	orch := newTestOrchestrator(fetcher, store, classifier, source)

	stats, err := orch.RunCycle(context.Background(), CycleOptions{})
	if err != nil {
		t.Fatalf("RunCycle error: %v", err)
	}
	if !stats.Idle {
		t.Fatal("expected idle cycle")
	}
	if classifier.calls != 0 {
		t.Fatalf("classifier must not run when idle, got %d calls", classifier.calls)
	}
}
