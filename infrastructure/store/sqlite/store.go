// ABOUTME: SQLite-backed LinkStore for deployments that want a queryable ledger
// ABOUTME: Commits run inside a transaction so a crash never records a partial digest

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"digest-courier/core/domain"
	apperrors "digest-courier/core/errors"
)

// Store implements the LinkStore interface using SQLite
type Store struct {
	db       *sql.DB
	filePath string
}

// Open creates a new SQLite-backed ledger at filePath
func Open(filePath string) (*Store, error) {
	if filePath == "" {
		filePath = "ledger.db"
	}

	db, err := sql.Open("sqlite3", filePath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, &apperrors.StoreUnavailableError{Op: "open", Cause: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &apperrors.StoreUnavailableError{Op: "open", Cause: err}
	}

	store := &Store{
		db:       db,
		filePath: filePath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, &apperrors.StoreUnavailableError{Op: "open", Cause: fmt.Errorf("failed to initialize schema: %w", err)}
	}

	return store, nil
}

// initSchema creates the ledger table if it doesn't exist
func (s *Store) initSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS processed_links (
			link TEXT PRIMARY KEY,
			added_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
	`

	_, err := s.db.Exec(query)
	return err
}

// FilterUnseen returns the items whose canonical link is not in the ledger
func (s *Store) FilterUnseen(ctx context.Context, items []domain.FeedItem) ([]domain.FeedItem, error) {
	var unseen []domain.FeedItem
	for _, item := range items {
		var exists int
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM processed_links WHERE link = ?",
			item.CanonicalLink,
		).Scan(&exists)
		if err != nil {
			return nil, &apperrors.StoreUnavailableError{Op: "filter", Cause: err}
		}
		if exists == 0 {
			unseen = append(unseen, item)
		}
	}
	return unseen, nil
}

// Commit durably records the items' canonical links in one transaction
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
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM processed_links").Scan(&count)
	if err != nil {
		return 0, &apperrors.StoreUnavailableError{Op: "len", Cause: err}
	}
	return count, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) record(ctx context.Context, items []domain.FeedItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO processed_links (link) VALUES (?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, item.CanonicalLink); err != nil {
			return err
		}
	}

	return tx.Commit()
}
