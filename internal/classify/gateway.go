// Package classify mediates calls to the external completion provider and
// validates its output before anything reaches the event store.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"wartracker/internal/domain"
	"wartracker/internal/keywords"
	"wartracker/internal/ports"
	"wartracker/internal/retry"
)

const (
	// noEventSentinel is what the model must answer when the article does
	// not describe a conflict event.
	noEventSentinel = "NO_EVENT"

	minTitleLen   = 10
	minContentLen = 50

	callTimeout  = 15 * time.Second
	callAttempts = 2
)

// CompletionClient is the narrow provider contract the gateway consumes.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Gateway extracts structured conflict events from article text.
type Gateway struct {
	client        CompletionClient
	logger        *slog.Logger
	minConfidence int
	now           func() time.Time
}

var _ ports.Classifier = (*Gateway)(nil)

// NewGateway wires the completion client. minConfidence is the policy
// threshold below which a valid extraction still produces no event.
func NewGateway(client CompletionClient, logger *slog.Logger, minConfidence int) *Gateway {
	if minConfidence <= 0 {
		minConfidence = 60
	}
	return &Gateway{
		client:        client,
		logger:        logger,
		minConfidence: minConfidence,
		now:           time.Now,
	}
}

// Classify sends the article to the model and returns at most one validated
// event. A nil event with nil error is a terminal "not an event" outcome:
// the caller marks the article processed either way. A non-nil error means
// the provider was unreachable and the attempt may be repeated in a later
// cycle.
func (g *Gateway) Classify(ctx context.Context, article domain.Article) (*domain.WarEvent, error) {
	if reason := unsuitable(article); reason != "" {
		g.debug("article skipped before model call", "url", article.URL, "reason", reason)
		return nil, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	var completion string
	err := retry.Do(callCtx, callAttempts, time.Second, func() error {
		var callErr error
		completion, callErr = g.client.Complete(callCtx, systemPrompt, userPrompt(article))
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", article.URL, err)
	}

	completion = strings.TrimSpace(completion)
	if completion == "" || strings.Contains(completion, noEventSentinel) {
		return nil, nil
	}

	payload, ok := extractJSON(completion)
	if !ok {
		g.warn("completion carried no JSON object", "url", article.URL)
		return nil, nil
	}

	var raw rawEvent
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		g.warn("completion JSON malformed", "url", article.URL, "error", err)
		return nil, nil
	}

	event, violations := validate(raw)
	if len(violations) > 0 {
		g.warn("completion rejected by schema", "url", article.URL, "violations", strings.Join(violations, "; "))
		return nil, nil
	}

	if event.Confidence < g.minConfidence {
		g.debug("extraction below confidence threshold", "url", article.URL, "confidence", event.Confidence)
		return nil, nil
	}

	event.ID = uuid.NewString()
	event.ArticleID = article.ID
	event.ArticleTitle = article.Title
	event.ArticleURL = article.URL
	event.ProcessedAt = g.now()

	return event, nil
}

func unsuitable(article domain.Article) string {
	if len([]rune(article.Title)) < minTitleLen {
		return "title too short"
	}
	if len([]rune(article.Content)) < minContentLen {
		return "content too short"
	}
	parsed, err := url.Parse(article.URL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return "invalid url"
	}
	return ""
}

const systemPrompt = `You are a conflict-event extraction system. Given a news article you respond with exactly one of:
1. A single JSON object, no prose, no markdown fencing, with this shape:
{"eventType":"airstrike|humanitarian|cyberattack|diplomatic","country":"...","region":null,"latitude":null,"longitude":null,"casualties":null,"weaponsUsed":null,"sourceCountry":null,"targetCountry":null,"confidence":0-100,"threatLevel":"low|medium|high|critical"}
2. The exact text NO_EVENT when the article does not describe a concrete armed-conflict event.
Use null for anything the article does not state. Never invent coordinates or casualty counts.`

func userPrompt(article domain.Article) string {
	var b strings.Builder
	b.WriteString("Vocabulary (")
	b.WriteString(keywords.Version)
	b.WriteString("): ")
	b.WriteString(keywords.PromptVocabulary())
	b.WriteString("\n\nTitle: ")
	b.WriteString(article.Title)
	b.WriteString("\n\nArticle:\n")
	b.WriteString(article.Content)
	return b.String()
}

func (g *Gateway) debug(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}

func (g *Gateway) warn(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Warn(msg, args...)
	}
}
