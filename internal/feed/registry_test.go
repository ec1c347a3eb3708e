package feed

import (
	"testing"

	"wartracker/internal/domain"
)

func TestRegistryPreservesOrderAndResolves(t *testing.T) {
	t.Parallel()

	sources := []domain.FeedSource{
		{Name: "BBC World", URL: "https://feeds.bbci.co.uk/news/world/rss.xml"},
		{Name: "Al Jazeera", URL: "https://www.aljazeera.com/xml/rss/all.xml"},
	}
	reg := NewRegistry(sources)

	all := reg.All()
	if len(all) != 2 || all[0].Name != "BBC World" || all[1].Name != "Al Jazeera" {
		t.Fatalf("unexpected registry order: %+v", all)
	}

	src, err := reg.Resolve("Al Jazeera")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if src.URL != sources[1].URL {
		t.Fatalf("unexpected source: %+v", src)
	}

	if _, err := reg.Resolve("missing"); err == nil {
		t.Fatal("expected error for unknown source")
	}
}

func TestRegistryReplaceKeepsSinglePosition(t *testing.T) {
	t.Parallel()

	reg := NewRegistry([]domain.FeedSource{{Name: "wire", URL: "https://a.example.org"}})
	reg.Register(domain.FeedSource{Name: "wire", URL: "https://b.example.org"})

	all := reg.All()
	if len(all) != 1 {
		t.Fatalf("replacement must not duplicate: %+v", all)
	}
	if all[0].URL != "https://b.example.org" {
		t.Fatalf("replacement not applied: %+v", all)
	}
}
