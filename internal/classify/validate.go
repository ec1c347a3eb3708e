package classify

import (
	"fmt"
	"strings"

	"wartracker/internal/domain"
)

// rawEvent is the untrusted shape decoded from the model's JSON. Every
// nullable field is a pointer so absence and zero stay distinguishable.
type rawEvent struct {
	EventType     string   `json:"eventType"`
	Country       string   `json:"country"`
	Region        *string  `json:"region"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Casualties    *int     `json:"casualties"`
	WeaponsUsed   []string `json:"weaponsUsed"`
	SourceCountry *string  `json:"sourceCountry"`
	TargetCountry *string  `json:"targetCountry"`
	Confidence    *float64 `json:"confidence"`
	ThreatLevel   string   `json:"threatLevel"`
}

// validate runs the whole-object schema check. Any violation rejects the
// entire result; out-of-range coordinates are the one exception, clamped to
// nil at field level because a bad geocode does not invalidate the event
// itself.
func validate(raw rawEvent) (*domain.WarEvent, []string) {
	var violations []string

	if !domain.ValidEventType(raw.EventType) {
		violations = append(violations, fmt.Sprintf("eventType %q not in enum", raw.EventType))
	}
	if strings.TrimSpace(raw.Country) == "" {
		violations = append(violations, "country is empty")
	}
	if raw.Confidence == nil {
		violations = append(violations, "confidence is missing")
	} else if *raw.Confidence < 0 || *raw.Confidence > 100 {
		violations = append(violations, fmt.Sprintf("confidence %v outside [0,100]", *raw.Confidence))
	}
	if !domain.ValidThreatLevel(raw.ThreatLevel) {
		violations = append(violations, fmt.Sprintf("threatLevel %q not in enum", raw.ThreatLevel))
	}
	if raw.Casualties != nil && *raw.Casualties < 0 {
		violations = append(violations, fmt.Sprintf("casualties %d is negative", *raw.Casualties))
	}

	if len(violations) > 0 {
		return nil, violations
	}

	lat := raw.Latitude
	if lat != nil && (*lat < -90 || *lat > 90) {
		lat = nil
	}
	lng := raw.Longitude
	if lng != nil && (*lng < -180 || *lng > 180) {
		lng = nil
	}

	event := &domain.WarEvent{
		EventType:     domain.EventType(raw.EventType),
		Country:       strings.TrimSpace(raw.Country),
		Region:        trimmed(raw.Region),
		Latitude:      lat,
		Longitude:     lng,
		Casualties:    raw.Casualties,
		WeaponsUsed:   raw.WeaponsUsed,
		SourceCountry: trimmed(raw.SourceCountry),
		TargetCountry: trimmed(raw.TargetCountry),
		Confidence:    int(*raw.Confidence),
		ThreatLevel:   domain.ThreatLevel(raw.ThreatLevel),
	}

	return event, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
