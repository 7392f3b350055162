// ABOUTME: Digest pipeline orchestrates one run: fetch, dedup, compose, deliver, commit
// ABOUTME: The ledger is committed only after the remote platform durably accepts the campaign

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"digest-courier/core/domain"
	apperrors "digest-courier/core/errors"
	"digest-courier/core/interfaces"
)

// Stage identifies where in the run the pipeline currently is
type Stage string

// Pipeline stages, in run order
const (
	StageIdle          Stage = "idle"
	StageFetching      Stage = "fetching"
	StageDeduplicating Stage = "deduplicating"
	StageComposing     Stage = "composing"
	StageDelivering    Stage = "delivering"
	StageCommitting    Stage = "committing"
)

// RunError reports a failed run with the stage that failed. Fatal for the
// run only: durable state is left untouched (no partial ledger commit)
// and the next scheduled trigger gets a fresh attempt.
type RunError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface
func (e *RunError) Error() string {
	return fmt.Sprintf("digest run failed during %s: %v", e.Stage, e.Err)
}

// Unwrap exposes the stage error for errors.As checks
func (e *RunError) Unwrap() error { return e.Err }

// ErrRunInProgress is returned when Run is invoked while a previous run
// still holds the pipeline. The scheduler already skips overlapping
// triggers; the lock covers manual invocations.
var ErrRunInProgress = errors.New("a digest run is already in progress")

// Options are the per-deployment knobs for a pipeline
type Options struct {
	// FeedURL is the syndication feed to ingest
	FeedURL string

	// Metadata is substituted into the digest template
	Metadata domain.DigestMetadata

	// ListIDs are the platform subscriber lists to address
	ListIDs []int

	// TemplateID selects the platform-side wrapper template
	TemplateID int

	// Tags label created campaigns on the platform
	Tags []string

	// SendAt schedules delivery; nil sends immediately
	SendAt *time.Time

	// TestEmails, when set, receive a test send before scheduling
	TestEmails []string

	// FirstRunRecent is how many of the newest entries form the first
	// digest when the ledger is empty; older entries are seeded as
	// already processed so a new deployment never mails its backlog.
	FirstRunRecent int

	// DryRun composes the digest but skips delivery and commit
	DryRun bool
}

// Pipeline executes digest runs. One logical run at a time: fetch,
// dedup, compose, and deliver proceed sequentially with no fan-out, since
// ordering and the at-most-once campaign creation guarantee depend on
// single-threaded progression through the stages.
type Pipeline struct {
	source   interfaces.FeedSource
	store    interfaces.LinkStore
	enricher interfaces.Enricher
	composer interfaces.Composer
	client   interfaces.CampaignClient
	logger   interfaces.Logger
	opts     Options

	mu    sync.Mutex
	stage Stage
}

// New constructs a pipeline. enricher may be nil to skip enrichment.
func New(
	source interfaces.FeedSource,
	store interfaces.LinkStore,
	enricher interfaces.Enricher,
	composer interfaces.Composer,
	client interfaces.CampaignClient,
	logger interfaces.Logger,
	opts Options,
) *Pipeline {
	if opts.FirstRunRecent <= 0 {
		opts.FirstRunRecent = 5
	}
	return &Pipeline{
		source:   source,
		store:    store,
		enricher: enricher,
		composer: composer,
		client:   client,
		logger:   logger,
		opts:     opts,
		stage:    StageIdle,
	}
}

// Run executes one complete digest run. A nil return means either a
// delivered digest or a logged no-op (nothing new). Any failure aborts
// the run with a RunError and leaves the ledger exactly as it was, except
// for the documented commit-after-create window: when the platform has
// accepted the campaign but the ledger commit fails, the run fails and
// the same items are re-offered next run (at-least-once delivery).
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.mu.TryLock() {
		return ErrRunInProgress
	}
	defer p.mu.Unlock()
	defer func() { p.stage = StageIdle }()

	p.stage = StageFetching
	items, err := p.source.Fetch(ctx, p.opts.FeedURL)
	if err != nil {
		return p.fail(err)
	}
	p.logInfo("feed fetched", map[string]interface{}{
		"url":   p.opts.FeedURL,
		"items": len(items),
	})

	p.stage = StageDeduplicating
	unseen, err := p.selectUnseen(ctx, items)
	if err != nil {
		return p.fail(err)
	}
	if len(unseen) == 0 {
		p.logInfo("no new entries, skipping run", map[string]interface{}{
			"feed_items": len(items),
		})
		return nil
	}
	p.logInfo("new entries found", map[string]interface{}{"count": len(unseen)})

	if p.enricher != nil {
		unseen = p.enricher.EnrichItems(ctx, unseen)
	}

	p.stage = StageComposing
	doc, err := p.composer.Render(unseen, p.opts.Metadata)
	if err != nil {
		if apperrors.IsNoNewContent(err) {
			p.logInfo("composer found no content, skipping run", nil)
			return nil
		}
		return p.fail(err)
	}

	if p.opts.DryRun {
		p.logInfo("dry run: digest composed, skipping delivery and commit", map[string]interface{}{
			"items": doc.ItemCount,
			"bytes": len(doc.HTML),
		})
		return nil
	}

	p.stage = StageDelivering
	result, err := p.deliver(ctx, doc)
	if err != nil {
		return p.fail(err)
	}

	p.stage = StageCommitting
	if err := p.store.Commit(ctx, unseen); err != nil {
		// The remote send succeeded but the ledger write did not. The run
		// fails and these items are re-offered next run; the duplicate
		// campaign risk in this window is accepted and documented.
		p.logError("ledger commit failed after successful delivery", map[string]interface{}{
			"campaign_id": result.ID,
			"error":       err.Error(),
		})
		return p.fail(err)
	}

	p.logInfo("digest delivered and committed", map[string]interface{}{
		"campaign_id": result.ID,
		"items":       doc.ItemCount,
	})
	return nil
}

// selectUnseen filters the fetched items against the ledger. An empty
// ledger marks a first run: the backlog is seeded as already processed
// and only the newest FirstRunRecent entries go out.
func (p *Pipeline) selectUnseen(ctx context.Context, items []domain.FeedItem) ([]domain.FeedItem, error) {
	count, err := p.store.Len(ctx)
	if err != nil {
		return nil, err
	}

	if count == 0 && len(items) > 0 {
		cut := len(items) - p.opts.FirstRunRecent
		if cut < 0 {
			cut = 0
		}
		backlog, recent := items[:cut], items[cut:]
		if len(backlog) > 0 {
			if err := p.store.Seed(ctx, backlog); err != nil {
				return nil, err
			}
		}
		p.logInfo("first run: seeded backlog, digesting recent entries", map[string]interface{}{
			"seeded": len(backlog),
			"recent": len(recent),
		})
		return recent, nil
	}

	return p.store.FilterUnseen(ctx, items)
}

// deliver creates, optionally test-sends, and schedules the campaign.
// CreateCampaign runs at most once per run: a failure after the platform
// accepted the create never re-creates, to avoid duplicate campaigns.
func (p *Pipeline) deliver(ctx context.Context, doc domain.DigestDocument) (domain.CampaignResult, error) {
	if err := p.client.Authenticate(ctx); err != nil {
		return domain.CampaignResult{}, err
	}

	req := domain.CampaignRequest{
		Name:       p.opts.Metadata.Title,
		Subject:    p.opts.Metadata.Title,
		Body:       doc.HTML,
		AltBody:    doc.AltText,
		ListIDs:    p.opts.ListIDs,
		TemplateID: p.opts.TemplateID,
		Tags:       p.opts.Tags,
		SendAt:     p.opts.SendAt,
		Archive:    true,
	}
	if err := req.Validate(); err != nil {
		return domain.CampaignResult{}, err
	}

	result, err := p.client.CreateCampaign(ctx, req)
	if err != nil {
		return domain.CampaignResult{}, err
	}
	p.logInfo("campaign created", map[string]interface{}{"campaign_id": result.ID})

	if len(p.opts.TestEmails) > 0 {
		// Test sends are advisory; a failure here must not lose the run.
		if err := p.client.SendTestEmails(ctx, result.ID, p.opts.TestEmails); err != nil {
			p.logWarn("test email send failed", map[string]interface{}{
				"campaign_id": result.ID,
				"error":       err.Error(),
			})
		}
	}

	if err := p.client.ScheduleCampaign(ctx, result.ID, p.opts.SendAt); err != nil {
		return domain.CampaignResult{}, err
	}

	return result, nil
}

// fail wraps an error with the stage it occurred in
func (p *Pipeline) fail(err error) error {
	p.logError("stage failed", map[string]interface{}{
		"stage": string(p.stage),
		"error": err.Error(),
	})
	return &RunError{Stage: p.stage, Err: err}
}

func (p *Pipeline) logInfo(msg string, fields map[string]interface{}) {
	if p.logger != nil {
		p.logger.Info(msg, fields)
	}
}

func (p *Pipeline) logWarn(msg string, fields map[string]interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, fields)
	}
}

func (p *Pipeline) logError(msg string, fields map[string]interface{}) {
	if p.logger != nil {
		p.logger.Error(msg, fields)
	}
}
