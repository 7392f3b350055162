// ABOUTME: Campaign request/result models for the remote newsletter platform
// ABOUTME: Field shapes follow the listmonk campaign API

package domain

import (
	"time"

	apperrors "digest-courier/core/errors"
)

// CampaignRequest carries everything the remote platform needs to create
// one digest campaign.
type CampaignRequest struct {
	// Name identifies the campaign in the platform's UI
	Name string

	// Subject is the email subject line
	Subject string

	// Body is the rendered digest HTML
	Body string

	// AltBody is the plain-text alternative body
	AltBody string

	// ListIDs are the subscriber lists to address
	ListIDs []int

	// TemplateID selects the platform-side wrapper template; zero means
	// the platform default
	TemplateID int

	// Tags label the campaign for filtering in the platform
	Tags []string

	// SendAt schedules delivery for a future time; nil means send
	// immediately once the campaign is started
	SendAt *time.Time

	// Archive publishes the campaign to the platform's public archive
	Archive bool
}

// Validate checks the request for fields the platform will reject
func (r *CampaignRequest) Validate() error {
	if r.Subject == "" {
		return &apperrors.ValidationError{Field: "subject", Message: "subject cannot be empty"}
	}
	if r.Body == "" {
		return &apperrors.ValidationError{Field: "body", Message: "body cannot be empty"}
	}
	if len(r.ListIDs) == 0 {
		return &apperrors.ValidationError{Field: "lists", Message: "at least one list is required"}
	}
	return nil
}

// CampaignResult is the platform's acknowledgement of a created campaign.
// The platform, not this process, is the system of record for campaign
// state; the result is held only for the duration of the run.
type CampaignResult struct {
	// ID is the remote campaign identifier
	ID int

	// Status is the platform-reported campaign status (draft, scheduled,
	// running)
	Status string
}
