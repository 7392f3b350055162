// ABOUTME: Service contracts consumed by the digest pipeline
// ABOUTME: Feed ingestion, enrichment, composition, and campaign delivery

package interfaces

import (
	"context"
	"time"

	"digest-courier/core/domain"
)

// FeedSource fetches and parses a remote feed into normalized items.
// Purely fetch-and-parse: no knowledge of what has already been sent.
type FeedSource interface {
	// Fetch returns the feed's entries in chronological order
	// (oldest first). Order is preserved downstream since selection of
	// the first N items depends on it.
	Fetch(ctx context.Context, feedURL string) ([]domain.FeedItem, error)
}

// Enricher decorates items with best-effort page metadata (cover image,
// missing summaries). Enrichment failures never fail a run.
type Enricher interface {
	// EnrichItems returns the items with ImageURL and empty summaries
	// filled in where the article pages expose them.
	EnrichItems(ctx context.Context, items []domain.FeedItem) []domain.FeedItem
}

// Composer renders selected items into a single digest document.
type Composer interface {
	// Render expands the template with the items and metadata, inlines
	// stylesheet rules, and verifies the platform's merge tags survived.
	// Returns errors.ErrNoNewContent when items is empty.
	Render(items []domain.FeedItem, meta domain.DigestMetadata) (domain.DigestDocument, error)
}

// CampaignClient talks to the remote newsletter platform's HTTP API.
// Campaign creation is not idempotent on the platform side; the pipeline
// guarantees at most one CreateCampaign per run.
type CampaignClient interface {
	// Authenticate verifies credentials against the platform before any
	// mutating call is attempted.
	Authenticate(ctx context.Context) error

	// CreateCampaign creates a draft campaign with the rendered digest.
	CreateCampaign(ctx context.Context, req domain.CampaignRequest) (domain.CampaignResult, error)

	// SendTestEmails asks the platform to mail the draft to the given
	// recipients.
	SendTestEmails(ctx context.Context, campaignID int, recipients []string) error

	// ScheduleCampaign marks the campaign for delivery at the given time,
	// or immediately when at is nil. One-shot instruction; cadence is the
	// scheduler's concern.
	ScheduleCampaign(ctx context.Context, campaignID int, at *time.Time) error
}
