package pipeline

import (
	"context"
	"sync"
	"time"

	"digest-courier/core/domain"
	apperrors "digest-courier/core/errors"
	"digest-courier/pkg/utils/link"
)

// mockSource is a mock implementation of the FeedSource interface
type mockSource struct {
	items []domain.FeedItem
	err   error
}

func (m *mockSource) Fetch(ctx context.Context, feedURL string) ([]domain.FeedItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.items, nil
}

// memoryStore is an in-memory LinkStore used to observe ledger state
type memoryStore struct {
	mu        sync.Mutex
	links     map[string]bool
	commitErr error
	lenErr    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{links: map[string]bool{}}
}

func (m *memoryStore) FilterUnseen(ctx context.Context, items []domain.FeedItem) ([]domain.FeedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var unseen []domain.FeedItem
	for _, item := range items {
		if !m.links[item.CanonicalLink] {
			unseen = append(unseen, item)
		}
	}
	return unseen, nil
}

func (m *memoryStore) Commit(ctx context.Context, items []domain.FeedItem) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		m.links[item.CanonicalLink] = true
	}
	return nil
}

func (m *memoryStore) Len(ctx context.Context) (int, error) {
	if m.lenErr != nil {
		return 0, m.lenErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links), nil
}

func (m *memoryStore) Seed(ctx context.Context, items []domain.FeedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		m.links[item.CanonicalLink] = true
	}
	return nil
}

func (m *memoryStore) snapshot() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make(map[string]bool, len(m.links))
	for k, v := range m.links {
		copied[k] = v
	}
	return copied
}

// mockComposer is a mock implementation of the Composer interface
type mockComposer struct {
	err      error
	rendered [][]domain.FeedItem
}

func (m *mockComposer) Render(items []domain.FeedItem, meta domain.DigestMetadata) (domain.DigestDocument, error) {
	if m.err != nil {
		return domain.DigestDocument{}, m.err
	}
	if len(items) == 0 {
		return domain.DigestDocument{}, apperrors.ErrNoNewContent
	}
	m.rendered = append(m.rendered, items)
	html := "<html><body>"
	for _, item := range items {
		html += "<h2>" + item.Title + "</h2>"
	}
	html += "</body></html>"
	return domain.DigestDocument{HTML: html, AltText: "alt", ItemCount: len(items)}, nil
}

// mockClient is a mock implementation of the CampaignClient interface
type mockClient struct {
	authErr     error
	createErr   error
	scheduleErr error
	testErr     error

	createCalls   int
	scheduleCalls int
	testCalls     int
	lastRequest   domain.CampaignRequest
}

func (m *mockClient) Authenticate(ctx context.Context) error {
	return m.authErr
}

func (m *mockClient) CreateCampaign(ctx context.Context, req domain.CampaignRequest) (domain.CampaignResult, error) {
	m.createCalls++
	m.lastRequest = req
	if m.createErr != nil {
		return domain.CampaignResult{}, m.createErr
	}
	return domain.CampaignResult{ID: 42, Status: "draft"}, nil
}

func (m *mockClient) SendTestEmails(ctx context.Context, campaignID int, recipients []string) error {
	m.testCalls++
	return m.testErr
}

func (m *mockClient) ScheduleCampaign(ctx context.Context, campaignID int, at *time.Time) error {
	m.scheduleCalls++
	return m.scheduleErr
}

// mockEnricher is a mock implementation of the Enricher interface
type mockEnricher struct {
	calls int
}

func (m *mockEnricher) EnrichItems(ctx context.Context, items []domain.FeedItem) []domain.FeedItem {
	m.calls++
	enriched := make([]domain.FeedItem, len(items))
	copy(enriched, items)
	for i := range enriched {
		enriched[i].ImageURL = "https://example.com/cover.png"
	}
	return enriched
}

// nopLogger discards all log output
type nopLogger struct{}

func (nopLogger) Debug(msg string, fields map[string]interface{}) {}
func (nopLogger) Info(msg string, fields map[string]interface{})  {}
func (nopLogger) Warn(msg string, fields map[string]interface{})  {}
func (nopLogger) Error(msg string, fields map[string]interface{}) {}

// feedItems builds n items in chronological order
func feedItems(urls ...string) []domain.FeedItem {
	items := make([]domain.FeedItem, 0, len(urls))
	base := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, u := range urls {
		canonical, err := link.Canonicalize(u)
		if err != nil {
			panic(err)
		}
		items = append(items, domain.FeedItem{
			CanonicalLink: canonical,
			Link:          u,
			Title:         "Post " + canonical,
			Published:     base.Add(time.Duration(i) * 24 * time.Hour),
			Summary:       "summary",
		})
	}
	return items
}
