// ABOUTME: FeedItem domain model represents a normalized feed entry
// ABOUTME: Immutable value object produced at the feed boundary; identity is the canonical link

package domain

import "time"

// FeedItem is a single normalized feed entry. Feeds vary wildly in
// structure; normalization into this fixed shape happens at the feed
// boundary so no downstream component branches on feed-specific fields.
type FeedItem struct {
	// CanonicalLink is the normalized article URL and the item's unique
	// identity in the deduplication ledger
	CanonicalLink string

	// Link is the article URL exactly as published by the feed
	Link string

	// Title is the item's headline
	Title string

	// Published is the entry's publication time. Unparsable feed dates
	// fall back to the fetch time rather than failing the run.
	Published time.Time

	// Summary is the short description from the feed, possibly HTML
	Summary string

	// Content is the full entry body when the feed carries one
	Content string

	// ImageURL is the cover image discovered during enrichment; empty
	// when the article page exposes none
	ImageURL string
}

// IsValid checks if the item has the fields a digest entry requires
func (fi *FeedItem) IsValid() bool {
	if fi.Title == "" {
		return false
	}

	if fi.CanonicalLink == "" {
		return false
	}

	return true
}
