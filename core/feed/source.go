// ABOUTME: Feed source fetches and parses RSS/Atom feeds into normalized items
// ABOUTME: Purely fetch-and-parse; dedup against the ledger happens downstream

package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"digest-courier/core/domain"
	apperrors "digest-courier/core/errors"
	"digest-courier/core/interfaces"
	"digest-courier/pkg/utils/link"
)

// Source fetches a remote feed and normalizes its entries. Feeds differ
// wildly in structure; everything downstream sees only domain.FeedItem.
type Source struct {
	deps interfaces.Dependencies

	// now is injectable so tests can pin the unparsable-date sentinel
	now func() time.Time
}

// NewSource creates a feed source using the shared dependencies
func NewSource(deps interfaces.Dependencies) *Source {
	return &Source{
		deps: deps,
		now:  time.Now,
	}
}

// Fetch retrieves and parses the feed at feedURL. Entries come back in
// chronological order, oldest first, so "the newest N" is always the tail
// and digest sections read top to bottom in publication order. Transport
// failures return FeedUnreachableError; an unrecognizable payload returns
// FeedParseError. Individual malformed entries are skipped, not fatal.
func (s *Source) Fetch(ctx context.Context, feedURL string) ([]domain.FeedItem, error) {
	if feedURL == "" {
		return nil, errors.New("feed URL cannot be empty")
	}

	parsedURL, err := url.Parse(feedURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, errors.New("invalid feed URL format")
	}

	if s.deps.HTTPClient == nil {
		return nil, errors.New("HTTP client not configured")
	}

	resp, err := s.deps.HTTPClient.Get(ctx, feedURL)
	if err != nil {
		return nil, &apperrors.FeedUnreachableError{URL: feedURL, Cause: err}
	}
	defer resp.Body().Close()

	if resp.StatusCode() != 200 {
		return nil, &apperrors.FeedUnreachableError{
			URL:   feedURL,
			Cause: fmt.Errorf("feed returned status %d", resp.StatusCode()),
		}
	}

	body, err := io.ReadAll(resp.Body())
	if err != nil {
		return nil, &apperrors.FeedUnreachableError{URL: feedURL, Cause: err}
	}

	return s.parse(body, feedURL)
}

// parse converts the raw payload into normalized items
func (s *Source) parse(content []byte, feedURL string) ([]domain.FeedItem, error) {
	if len(content) == 0 {
		return nil, &apperrors.FeedParseError{URL: feedURL, Cause: errors.New("empty feed content")}
	}

	parser := gofeed.NewParser()
	parsed, err := parser.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, &apperrors.FeedParseError{URL: feedURL, Cause: err}
	}

	fetchedAt := s.now()
	items := make([]domain.FeedItem, 0, len(parsed.Items))
	skipped := 0

	for _, entry := range parsed.Items {
		item, ok := s.convertEntry(entry, fetchedAt)
		if !ok {
			skipped++
			continue
		}
		items = append(items, item)
	}

	if skipped > 0 && s.deps.Logger != nil {
		s.deps.Logger.Warn("skipped malformed feed entries", map[string]interface{}{
			"url":     feedURL,
			"skipped": skipped,
		})
	}

	// Feeds publish newest first; reverse into chronological order so the
	// most recent entries sit at the tail.
	reverse(items)

	return items, nil
}

// convertEntry normalizes a single gofeed entry; ok is false when the
// entry lacks the identity fields a digest needs.
func (s *Source) convertEntry(entry *gofeed.Item, fetchedAt time.Time) (domain.FeedItem, bool) {
	if entry == nil || entry.Link == "" || entry.Title == "" {
		return domain.FeedItem{}, false
	}

	canonical, err := link.Canonicalize(entry.Link)
	if err != nil {
		return domain.FeedItem{}, false
	}

	item := domain.FeedItem{
		CanonicalLink: canonical,
		Link:          entry.Link,
		Title:         entry.Title,
		Published:     publishedTime(entry, fetchedAt),
		Summary:       entry.Description,
		Content:       entry.Content,
	}

	if item.Summary == "" && entry.ITunesExt != nil {
		item.Summary = entry.ITunesExt.Summary
	}

	return item, true
}

// publishedTime resolves an entry's publication time: gofeed's parsed
// value when present, a lenient dateparse pass over the raw string
// otherwise, and the fetch time as a last-resort sentinel so an
// unparsable date never crashes the run.
func publishedTime(entry *gofeed.Item, fetchedAt time.Time) time.Time {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}

	raw := entry.Published
	if raw == "" {
		raw = entry.Updated
	}
	if raw != "" {
		if t, err := dateparse.ParseAny(raw); err == nil {
			return t
		}
	}

	return fetchedAt
}

func reverse(items []domain.FeedItem) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
