package domain

import "time"

// EventType enumerates the conflict-event categories the extractor may emit.
type EventType string

const (
	EventAirstrike    EventType = "airstrike"
	EventHumanitarian EventType = "humanitarian"
	EventCyberattack  EventType = "cyberattack"
	EventDiplomatic   EventType = "diplomatic"
)

// ValidEventType reports whether the value is a member of the enum.
func ValidEventType(v string) bool {
	switch EventType(v) {
	case EventAirstrike, EventHumanitarian, EventCyberattack, EventDiplomatic:
		return true
	}
	return false
}

// ThreatLevel enumerates coarse severity buckets.
type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "low"
	ThreatMedium   ThreatLevel = "medium"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

// ValidThreatLevel reports whether the value is a member of the enum.
func ValidThreatLevel(v string) bool {
	switch ThreatLevel(v) {
	case ThreatLow, ThreatMedium, ThreatHigh, ThreatCritical:
		return true
	}
	return false
}

// WarEvent is a structured conflict event derived from classifying one
// Article. Nullable fields are pointers; latitude/longitude are nil when the
// model gave none or gave values outside valid ranges.
type WarEvent struct {
	ID            string
	EventType     EventType
	Country       string
	Region        *string
	Latitude      *float64
	Longitude     *float64
	Casualties    *int
	WeaponsUsed   []string
	SourceCountry *string
	TargetCountry *string
	Confidence    int
	ThreatLevel   ThreatLevel
	ArticleID     string
	ArticleTitle  string
	ArticleURL    string
	ProcessedAt   time.Time
}
