// ABOUTME: In-memory LinkStore for tests and throwaway runs
// ABOUTME: The ledger is lost on process exit, so every restart is a first run

package memory

import (
	"context"
	"sync"

	"digest-courier/core/domain"
)

// Store implements the LinkStore interface in process memory
type Store struct {
	mu    sync.RWMutex
	links map[string]struct{}
}

// New creates an empty in-memory ledger
func New() *Store {
	return &Store{links: map[string]struct{}{}}
}

// FilterUnseen returns the items whose canonical link is not in the ledger
func (s *Store) FilterUnseen(ctx context.Context, items []domain.FeedItem) ([]domain.FeedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var unseen []domain.FeedItem
	for _, item := range items {
		if _, seen := s.links[item.CanonicalLink]; !seen {
			unseen = append(unseen, item)
		}
	}
	return unseen, nil
}

// Commit records the items' canonical links
func (s *Store) Commit(ctx context.Context, items []domain.FeedItem) error {
	s.record(items)
	return nil
}

// Seed records links without a delivered digest behind them
func (s *Store) Seed(ctx context.Context, items []domain.FeedItem) error {
	s.record(items)
	return nil
}

// Len reports how many links the ledger holds
func (s *Store) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.links), nil
}

func (s *Store) record(items []domain.FeedItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.links[item.CanonicalLink] = struct{}{}
	}
}
