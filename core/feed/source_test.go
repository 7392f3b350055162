package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "digest-courier/core/errors"
	"digest-courier/core/interfaces"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Example Blog</title>
	<link>https://example.com</link>
	<item>
		<title>Newest Post</title>
		<link>https://example.com/posts/newest/</link>
		<pubDate>Tue, 12 Aug 2025 09:00:00 +0000</pubDate>
		<description>Third summary</description>
	</item>
	<item>
		<title>Middle Post</title>
		<link>https://example.com/posts/middle?utm_source=rss</link>
		<pubDate>Mon, 11 Aug 2025 09:00:00 +0000</pubDate>
		<description>Second summary</description>
	</item>
	<item>
		<title>Oldest Post</title>
		<link>https://example.com/posts/oldest</link>
		<pubDate>Sun, 10 Aug 2025 09:00:00 +0000</pubDate>
		<description>First summary</description>
	</item>
</channel>
</rss>`

const malformedEntryRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Example Blog</title>
	<link>https://example.com</link>
	<item>
		<title>Good Post</title>
		<link>https://example.com/posts/good</link>
	</item>
	<item>
		<title>No Link Post</title>
	</item>
	<item>
		<link>https://example.com/posts/untitled</link>
	</item>
</channel>
</rss>`

const unparsableDateRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Example Blog</title>
	<link>https://example.com</link>
	<item>
		<title>Odd Date Post</title>
		<link>https://example.com/posts/odd-date</link>
		<pubDate>sometime last thursday-ish</pubDate>
	</item>
</channel>
</rss>`

func newTestSource(body string, status int) *Source {
	client := &mockHTTPClient{
		getFunc: func(ctx context.Context, url string) (interfaces.Response, error) {
			return &mockResponse{statusCode: status, body: body}, nil
		},
	}
	return NewSource(interfaces.Dependencies{HTTPClient: client, Logger: &mockLogger{}})
}

func TestFetch_EmptyURL(t *testing.T) {
	source := NewSource(interfaces.Dependencies{})

	_, err := source.Fetch(context.Background(), "")
	if err == nil {
		t.Error("Fetch should fail for empty URL")
	}
}

func TestFetch_InvalidURL(t *testing.T) {
	source := NewSource(interfaces.Dependencies{})

	_, err := source.Fetch(context.Background(), "not a url")
	if err == nil {
		t.Error("Fetch should fail for invalid URL")
	}
}

func TestFetch_NetworkError(t *testing.T) {
	client := &mockHTTPClient{
		getFunc: func(ctx context.Context, url string) (interfaces.Response, error) {
			return nil, errors.New("connection refused")
		},
	}
	source := NewSource(interfaces.Dependencies{HTTPClient: client})

	items, err := source.Fetch(context.Background(), "https://example.com/feed.xml")
	if !apperrors.IsFeedUnreachable(err) {
		t.Errorf("Fetch should return FeedUnreachableError, got %v", err)
	}
	if items != nil {
		t.Error("Fetch should return no items on transport failure")
	}
}

func TestFetch_Non200Status(t *testing.T) {
	source := newTestSource("gone", 404)

	_, err := source.Fetch(context.Background(), "https://example.com/feed.xml")
	if !apperrors.IsFeedUnreachable(err) {
		t.Errorf("Fetch should return FeedUnreachableError for non-200, got %v", err)
	}
}

func TestFetch_UnrecognizablePayload(t *testing.T) {
	source := newTestSource("<html><body>not a feed</body></html>", 200)

	_, err := source.Fetch(context.Background(), "https://example.com/feed.xml")
	if !apperrors.IsFeedParse(err) {
		t.Errorf("Fetch should return FeedParseError, got %v", err)
	}
}

func TestFetch_ChronologicalOrder(t *testing.T) {
	source := newTestSource(sampleRSS, 200)

	items, err := source.Fetch(context.Background(), "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Fetch returned %d items, want 3", len(items))
	}

	wantTitles := []string{"Oldest Post", "Middle Post", "Newest Post"}
	for i, want := range wantTitles {
		if items[i].Title != want {
			t.Errorf("items[%d].Title = %q, want %q", i, items[i].Title, want)
		}
	}

	for i := 1; i < len(items); i++ {
		if items[i].Published.Before(items[i-1].Published) {
			t.Errorf("items not in chronological order at index %d", i)
		}
	}
}

func TestFetch_CanonicalizesLinks(t *testing.T) {
	source := newTestSource(sampleRSS, 200)

	items, err := source.Fetch(context.Background(), "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	// Trailing slash and utm parameters are normalized away.
	if items[2].CanonicalLink != "https://example.com/posts/newest" {
		t.Errorf("CanonicalLink = %q, want trailing slash stripped", items[2].CanonicalLink)
	}
	if items[1].CanonicalLink != "https://example.com/posts/middle" {
		t.Errorf("CanonicalLink = %q, want utm parameter stripped", items[1].CanonicalLink)
	}
	if items[1].Link != "https://example.com/posts/middle?utm_source=rss" {
		t.Errorf("Link should keep the published URL, got %q", items[1].Link)
	}
}

func TestFetch_SkipsMalformedEntriesOnly(t *testing.T) {
	var warned bool
	client := &mockHTTPClient{
		getFunc: func(ctx context.Context, url string) (interfaces.Response, error) {
			return &mockResponse{statusCode: 200, body: malformedEntryRSS}, nil
		},
	}
	logger := &mockLogger{
		warnFunc: func(msg string, fields map[string]interface{}) { warned = true },
	}
	source := NewSource(interfaces.Dependencies{HTTPClient: client, Logger: logger})

	items, err := source.Fetch(context.Background(), "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("structurally valid feed should not abort: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Fetch returned %d items, want 1 (malformed entries skipped)", len(items))
	}
	if items[0].Title != "Good Post" {
		t.Errorf("surviving item = %q, want the well-formed entry", items[0].Title)
	}
	if !warned {
		t.Error("skipping malformed entries should log a warning")
	}
}

func TestFetch_UnparsableDateFallsBackToFetchTime(t *testing.T) {
	source := newTestSource(unparsableDateRSS, 200)
	fixed := time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)
	source.now = func() time.Time { return fixed }

	items, err := source.Fetch(context.Background(), "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("unparsable date must not fail the run: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Fetch returned %d items, want 1", len(items))
	}
	if !items[0].Published.Equal(fixed) {
		t.Errorf("Published = %v, want fetch-time sentinel %v", items[0].Published, fixed)
	}
}

func TestFetch_SummaryPopulated(t *testing.T) {
	source := newTestSource(sampleRSS, 200)

	items, err := source.Fetch(context.Background(), "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if items[0].Summary != "First summary" {
		t.Errorf("Summary = %q, want description text", items[0].Summary)
	}
}
