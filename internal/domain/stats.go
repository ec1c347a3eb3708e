package domain

import "time"

// BatchStats summarizes one upsert batch.
type BatchStats struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Add accumulates another batch into the receiver.
func (b *BatchStats) Add(other BatchStats) {
	b.Inserted += other.Inserted
	b.Updated += other.Updated
	b.Skipped += other.Skipped
	b.Failed += other.Failed
}

// SourceResult records the outcome of one source within a cycle.
type SourceResult struct {
	Source  string `json:"source"`
	Fetched int    `json:"fetched"`
	Error   string `json:"error,omitempty"`
}

// CycleStats is the JSON-serializable summary of one orchestrator cycle.
type CycleStats struct {
	StartedAt      time.Time      `json:"started_at"`
	Duration       time.Duration  `json:"-"`
	DurationMS     int64          `json:"duration_ms"`
	Sources        []SourceResult `json:"sources"`
	SourceErrors   int            `json:"source_errors"`
	TotalFetched   int            `json:"total_fetched"`
	Upserts        BatchStats     `json:"upserts"`
	Classified     int            `json:"classified"`
	EventsCreated  int            `json:"events_created"`
	NoEvent        int            `json:"no_event"`
	ClassifyErrors int            `json:"classify_errors"`
	Idle           bool           `json:"idle"`
}
