// Package core contains the business logic for the digest courier.
// It is designed to be framework-agnostic and can be used independently
// of any scheduler or infrastructure concerns.
//
// The core package is organized into several sub-packages:
//
// - domain: Contains pure domain models (FeedItem, DigestDocument, CampaignRequest)
// - feed: Feed fetching and normalization
// - enrich: Best-effort page metadata enrichment (cover images, excerpts)
// - compose: Template expansion, CSS inlining, and merge-tag preservation
// - pipeline: The fetch/dedup/compose/deliver/commit state machine
// - errors: Custom error types for better error handling
// - interfaces: Contracts for external dependencies (ledger, HTTP, logger, campaign API)
//
// # Design Principles
//
// The core package follows clean architecture principles:
// - No external framework dependencies
// - All external dependencies are injected via interfaces
// - Business logic is testable in isolation
// - Domain models are free from persistence concerns
//
// # Usage Example
//
//	import (
//	    "digest-courier/core/feed"
//	    "digest-courier/core/interfaces"
//	)
//
//	// Create dependencies
//	deps := interfaces.Dependencies{
//	    HTTPClient: myHTTPClient, // implements interfaces.HTTPClient
//	    Logger:     myLogger,     // implements interfaces.Logger
//	}
//
//	// Create the feed source
//	source := feed.NewSource(deps)
//
//	// Fetch a feed
//	items, err := source.Fetch(ctx, "https://example.com/feed.rss")
package core
