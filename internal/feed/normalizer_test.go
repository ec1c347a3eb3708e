package feed

import (
	"strings"
	"testing"
	"time"

	"wartracker/internal/domain"
)

var normSource = domain.FeedSource{Name: "wire", URL: "https://news.example.org/rss.xml"}

func TestNormalizeStripsMarkupAndCollapsesWhitespace(t *testing.T) {
	t.Parallel()

	fetchedAt := time.Date(2024, time.August, 5, 12, 0, 0, 0, time.UTC)
	entry := domain.RawEntry{
		Title:       "  Airstrike hits <b>Donetsk</b> region ",
		Link:        "https://news.example.org/a/1",
		Description: "<p>Heavy   shelling\n\nreported</p> near the <a href=\"#\">frontline</a>.",
		Published:   "Mon, 05 Aug 2024 10:30:00 +0000",
	}

	article, ok := Normalize(entry, normSource, fetchedAt)
	if !ok {
		t.Fatal("expected entry to normalize")
	}

	if article.Title != "Airstrike hits Donetsk region" {
		t.Fatalf("unexpected title: %q", article.Title)
	}
	if article.Content != "Heavy shelling reported near the frontline." {
		t.Fatalf("unexpected content: %q", article.Content)
	}
	if article.Source != "wire" {
		t.Fatalf("unexpected source: %q", article.Source)
	}
	if !article.IsWarRelated {
		t.Fatal("expected war-related flag")
	}
	if article.IsProcessed {
		t.Fatal("new article must start unprocessed")
	}
	want := time.Date(2024, time.August, 5, 10, 30, 0, 0, time.UTC)
	if !article.PublishedAt.Equal(want) {
		t.Fatalf("unexpected published time: %v", article.PublishedAt)
	}
}

func TestNormalizeSkipsEntryWithoutTitleAndLink(t *testing.T) {
	t.Parallel()

	if _, ok := Normalize(domain.RawEntry{Description: "something"}, normSource, time.Now()); ok {
		t.Fatal("expected entry without title and link to be skipped")
	}
}

func TestNormalizeFallsBackToFetchTime(t *testing.T) {
	t.Parallel()

	fetchedAt := time.Date(2024, time.August, 5, 12, 0, 0, 0, time.UTC)
	entry := domain.RawEntry{Title: "Ceasefire holds", Link: "https://news.example.org/a/2", Published: "next Tuesday-ish"}

	article, ok := Normalize(entry, normSource, fetchedAt)
	if !ok {
		t.Fatal("expected entry to normalize")
	}
	if !article.PublishedAt.Equal(fetchedAt) {
		t.Fatalf("expected fetch-time fallback, got %v", article.PublishedAt)
	}
}

func TestNormalizeResolvesRelativeLinks(t *testing.T) {
	t.Parallel()

	entry := domain.RawEntry{Title: "Sanctions update", Link: "/articles/55"}
	article, ok := Normalize(entry, normSource, time.Now())
	if !ok {
		t.Fatal("expected entry to normalize")
	}
	if article.URL != "https://news.example.org/articles/55" {
		t.Fatalf("unexpected resolved url: %q", article.URL)
	}
}

func TestNormalizeIDStableAcrossRefetch(t *testing.T) {
	t.Parallel()

	first, _ := Normalize(domain.RawEntry{Title: "Troops advance", Link: "https://news.example.org/a/3"}, normSource, time.Now())
	second, _ := Normalize(domain.RawEntry{Title: "Troops advance, updated headline", Link: "https://news.example.org/a/3"}, normSource, time.Now().Add(time.Hour))

	if first.ID != second.ID {
		t.Fatalf("id must be stable per URL: %s vs %s", first.ID, second.ID)
	}
}

func TestContentHashChangesOnlyWithContent(t *testing.T) {
	t.Parallel()

	base := ContentHash("title", "content")
	if base != ContentHash("title", "content") {
		t.Fatal("hash must be deterministic")
	}
	if base == ContentHash("title", "content.") {
		t.Fatal("hash must change when content changes")
	}
	if base == ContentHash("title!", "content") {
		t.Fatal("hash must change when title changes")
	}
}

func TestNormalizeTruncatesLongContent(t *testing.T) {
	t.Parallel()

	entry := domain.RawEntry{
		Title:   "War report roundup",
		Link:    "https://news.example.org/a/4",
		Content: strings.Repeat("x", maxContentRunes+500),
	}

	article, ok := Normalize(entry, normSource, time.Now())
	if !ok {
		t.Fatal("expected entry to normalize")
	}
	if got := len([]rune(article.Content)); got != maxContentRunes {
		t.Fatalf("expected content truncated to %d runes, got %d", maxContentRunes, got)
	}
}
