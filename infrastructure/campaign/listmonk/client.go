// ABOUTME: Listmonk campaign API client with retry, rate limiting, and typed errors
// ABOUTME: Credential rejections and malformed requests fail fast; everything else backs off

package listmonk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"digest-courier/core/domain"
	apperrors "digest-courier/core/errors"
	"digest-courier/core/interfaces"
	"digest-courier/pkg/retry"
)

const sendAtLayout = "2006-01-02T15:04:05Z"

// Config holds the connection settings for a listmonk instance
type Config struct {
	// BaseURL is the listmonk root, e.g. https://listmonk.example.com
	BaseURL string

	// Username and APIToken form the `token user:token` credential
	Username string
	APIToken string

	// Timeout bounds each individual HTTP attempt
	Timeout time.Duration
}

// Client implements the CampaignClient interface against listmonk
type Client struct {
	baseURL    string
	authHeader string
	http       *http.Client
	limiter    *rate.Limiter
	policy     retry.Policy
	logger     interfaces.Logger
}

// NewClient creates a listmonk client. The retry policy applies to every
// call; transport errors and 5xx responses are retried, credential and
// validation rejections are not.
func NewClient(cfg Config, policy retry.Policy, logger interfaces.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("listmonk base URL cannot be empty")
	}
	if cfg.Username == "" || cfg.APIToken == "" {
		return nil, errors.New("listmonk credentials cannot be empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	policy.RetryIf = func(err error) bool {
		return !apperrors.IsAuthentication(err) && !apperrors.IsValidation(err)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authHeader: fmt.Sprintf("token %s:%s", cfg.Username, cfg.APIToken),
		http:       &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(2), 4),
		policy:     policy,
		logger:     logger,
	}, nil
}

// Authenticate verifies the credentials with a cheap authenticated read
func (c *Client) Authenticate(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/lists?per_page=1", nil, nil)
}

// CreateCampaign creates a draft campaign carrying the rendered digest
func (c *Client) CreateCampaign(ctx context.Context, req domain.CampaignRequest) (domain.CampaignResult, error) {
	payload := campaignPayload{
		Name:        req.Name,
		Subject:     req.Subject,
		Lists:       req.ListIDs,
		ContentType: "html",
		Body:        req.Body,
		AltBody:     req.AltBody,
		TemplateID:  req.TemplateID,
		Messenger:   "email",
		Type:        "regular",
		Tags:        req.Tags,
		Archive:     req.Archive,
	}
	if req.SendAt != nil {
		sendAt := req.SendAt.UTC().Format(sendAtLayout)
		payload.SendAt = &sendAt
	}

	var resp campaignResponse
	if err := c.do(ctx, http.MethodPost, "/api/campaigns", payload, &resp); err != nil {
		return domain.CampaignResult{}, err
	}

	c.logger.Info("campaign created on platform", map[string]interface{}{
		"campaign_id": resp.Data.ID,
		"status":      resp.Data.Status,
	})

	return domain.CampaignResult{
		ID:     resp.Data.ID,
		Status: resp.Data.Status,
	}, nil
}

// SendTestEmails mails the draft campaign to the given recipients. The
// platform requires every recipient to be a subscriber of an addressed
// list.
func (c *Client) SendTestEmails(ctx context.Context, campaignID int, recipients []string) error {
	body := map[string]interface{}{
		"subscribers": recipients,
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/campaigns/%d/test", campaignID), body, nil)
}

// ScheduleCampaign moves the campaign out of draft. With a future send
// time the campaign is scheduled; with none it starts running now.
func (c *Client) ScheduleCampaign(ctx context.Context, campaignID int, at *time.Time) error {
	status := "running"
	if at != nil {
		status = "scheduled"
	}
	body := map[string]string{"status": status}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/campaigns/%d/status", campaignID), body, nil)
}

// campaignPayload follows the listmonk POST /api/campaigns body
type campaignPayload struct {
	Name        string   `json:"name"`
	Subject     string   `json:"subject"`
	Lists       []int    `json:"lists"`
	ContentType string   `json:"content_type"`
	Body        string   `json:"body"`
	SendAt      *string  `json:"send_at"`
	AltBody     string   `json:"altbody"`
	TemplateID  int      `json:"template_id,omitempty"`
	Messenger   string   `json:"messenger"`
	Type        string   `json:"type"`
	Tags        []string `json:"tags"`
	Archive     bool     `json:"archive"`
}

type campaignResponse struct {
	Data struct {
		ID     int    `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

// apiMessage is listmonk's error envelope
type apiMessage struct {
	Message string `json:"message"`
}

// do runs one API call under the retry policy and the rate limiter,
// decoding a 2xx response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	var lastStatus int
	attempt := 0

	err := c.policy.Do(ctx, func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var reader io.Reader
		if encoded != nil {
			reader = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", c.authHeader)
		if encoded != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.Warn("campaign API request failed", map[string]interface{}{
				"method":  method,
				"path":    path,
				"attempt": attempt,
				"error":   err.Error(),
			})
			return err
		}
		defer resp.Body.Close()
		lastStatus = resp.StatusCode

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if out == nil {
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil
		}

		msg := readAPIMessage(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &apperrors.AuthenticationError{StatusCode: resp.StatusCode, Message: msg}
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return &apperrors.ValidationError{Message: msg}
		default:
			c.logger.Warn("campaign API returned error status", map[string]interface{}{
				"method":  method,
				"path":    path,
				"status":  resp.StatusCode,
				"attempt": attempt,
			})
			return fmt.Errorf("campaign API returned %d: %s", resp.StatusCode, msg)
		}
	})

	if err == nil {
		return nil
	}
	if apperrors.IsAuthentication(err) || apperrors.IsValidation(err) {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &apperrors.TransientAPIError{
		StatusCode: lastStatus,
		Attempts:   attempt,
		Message:    err.Error(),
	}
}

func readAPIMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var msg apiMessage
	if err := json.Unmarshal(data, &msg); err == nil && msg.Message != "" {
		return msg.Message
	}
	return strings.TrimSpace(string(data))
}
