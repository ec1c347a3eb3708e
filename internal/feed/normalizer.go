package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"wartracker/internal/domain"
	"wartracker/internal/keywords"
)

const maxContentRunes = 4000

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize converts one raw entry into a canonical article. The boolean is
// false when the entry carries neither title nor link and must be skipped.
func Normalize(entry domain.RawEntry, source domain.FeedSource, fetchedAt time.Time) (domain.Article, bool) {
	title := collapseWhitespace(stripMarkup(entry.Title))
	link := resolveLink(entry.Link, source.URL)

	if title == "" && link == "" {
		return domain.Article{}, false
	}

	body := entry.Content
	if strings.TrimSpace(body) == "" {
		body = entry.Description
	}
	content := truncateRunes(collapseWhitespace(stripMarkup(body)), maxContentRunes)

	article := domain.Article{
		ID:           uuid.NewSHA1(uuid.NameSpaceURL, []byte(link)).String(),
		Title:        title,
		Content:      content,
		URL:          link,
		Source:       source.Name,
		PublishedAt:  parsePublished(entry.Published, fetchedAt),
		FetchedAt:    fetchedAt,
		ContentHash:  ContentHash(title, content),
		IsWarRelated: keywords.Matches(title + " " + content),
	}

	return article, true
}

// ContentHash is the deterministic digest used for change detection.
func ContentHash(title, content string) string {
	sum := sha256.Sum256([]byte(title + "\n" + content))
	return hex.EncodeToString(sum[:])
}

func stripMarkup(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return raw
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	return doc.Text()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func resolveLink(link, base string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}

	parsed, err := url.Parse(link)
	if err != nil {
		return ""
	}
	if parsed.IsAbs() {
		return parsed.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return link
	}
	return baseURL.ResolveReference(parsed).String()
}

func parsePublished(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed
		}
	}
	return fallback
}
