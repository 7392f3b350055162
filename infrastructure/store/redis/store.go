// ABOUTME: Redis-backed LinkStore keeping the ledger as a set under a single key
// ABOUTME: Lets several couriers on different hosts share one deduplication ledger

package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"digest-courier/core/domain"
	apperrors "digest-courier/core/errors"
)

const defaultKey = "digest-courier:processed_links"

// Options configure the Redis connection and the ledger key
type Options struct {
	Address  string
	Password string
	DB       int
	Key      string
}

// Store implements the LinkStore interface using a Redis set
type Store struct {
	client *redis.Client
	key    string
}

// Open creates a new Redis-backed ledger and verifies the connection
func Open(opts Options) (*Store, error) {
	if opts.Address == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if opts.Key == "" {
		opts.Key = defaultKey
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, &apperrors.StoreUnavailableError{Op: "open", Cause: err}
	}

	return &Store{
		client: client,
		key:    opts.Key,
	}, nil
}

// FilterUnseen returns the items whose canonical link is not in the set
func (s *Store) FilterUnseen(ctx context.Context, items []domain.FeedItem) ([]domain.FeedItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	links := make([]interface{}, len(items))
	for i, item := range items {
		links[i] = item.CanonicalLink
	}

	seen, err := s.client.SMIsMember(ctx, s.key, links...).Result()
	if err != nil {
		return nil, &apperrors.StoreUnavailableError{Op: "filter", Cause: err}
	}

	var unseen []domain.FeedItem
	for i, item := range items {
		if !seen[i] {
			unseen = append(unseen, item)
		}
	}
	return unseen, nil
}

// Commit records the items' canonical links; SADD is a single atomic write
func (s *Store) Commit(ctx context.Context, items []domain.FeedItem) error {
	if err := s.record(ctx, items); err != nil {
		return &apperrors.StoreUnavailableError{Op: "commit", Cause: err}
	}
	return nil
}

// Seed records links without a delivered digest behind them
func (s *Store) Seed(ctx context.Context, items []domain.FeedItem) error {
	if err := s.record(ctx, items); err != nil {
		return &apperrors.StoreUnavailableError{Op: "seed", Cause: err}
	}
	return nil
}

// Len reports how many links the ledger holds
func (s *Store) Len(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, s.key).Result()
	if err != nil {
		return 0, &apperrors.StoreUnavailableError{Op: "len", Cause: err}
	}
	return int(n), nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) record(ctx context.Context, items []domain.FeedItem) error {
	if len(items) == 0 {
		return nil
	}
	links := make([]interface{}, len(items))
	for i, item := range items {
		links[i] = item.CanonicalLink
	}
	return s.client.SAdd(ctx, s.key, links...).Err()
}
