// ABOUTME: Flat-file LinkStore keeping one canonical link per line
// ABOUTME: Rewrites happen through a temp file and rename so a crash never truncates the ledger

package file

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"digest-courier/core/domain"
	apperrors "digest-courier/core/errors"
	"digest-courier/pkg/utils/link"
)

// Store implements the LinkStore interface on a plain text file
type Store struct {
	path     string
	lockPath string

	mu    sync.Mutex
	links map[string]struct{}
	order []string
}

// Open loads the ledger file, creating an empty ledger when the file does
// not exist yet. Lines are re-canonicalized on load so the read and write
// paths always agree on link identity.
//
// Open takes an exclusive lock file next to the ledger. Rewrites go
// through flush, which replaces the whole file from this process's view;
// a second process sharing the path would silently drop links committed
// by the first, so a held lock fails Open instead.
func Open(path string) (*Store, error) {
	s := &Store{
		path:     path,
		lockPath: path + ".lock",
		links:    map[string]struct{}{},
	}

	if err := s.acquireLock(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		s.releaseLock()
		return nil, &apperrors.StoreUnavailableError{Op: "open", Cause: err}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		canonical, err := link.Canonicalize(line)
		if err != nil {
			// A line that no longer parses is kept verbatim so it is
			// never re-offered under a different identity.
			canonical = line
		}
		s.add(canonical)
	}
	if err := scanner.Err(); err != nil {
		s.releaseLock()
		return nil, &apperrors.StoreUnavailableError{Op: "open", Cause: err}
	}

	return s, nil
}

// acquireLock creates the lock file with O_EXCL, recording this process's
// pid for whoever finds a stale lock after a crash.
func (s *Store) acquireLock() error {
	f, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return &apperrors.StoreUnavailableError{
				Op:    "lock",
				Cause: fmt.Errorf("ledger %s is locked by another process (remove %s if that process is gone)", s.path, s.lockPath),
			}
		}
		return &apperrors.StoreUnavailableError{Op: "lock", Cause: err}
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return nil
}

func (s *Store) releaseLock() {
	os.Remove(s.lockPath)
}

// Close releases the ledger lock file. The store must not be used after
// Close returns.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLock()
	return nil
}

// FilterUnseen returns the items whose canonical link is not in the ledger
func (s *Store) FilterUnseen(ctx context.Context, items []domain.FeedItem) ([]domain.FeedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var unseen []domain.FeedItem
	for _, item := range items {
		if _, seen := s.links[item.CanonicalLink]; !seen {
			unseen = append(unseen, item)
		}
	}
	return unseen, nil
}

// Commit durably records the items' canonical links
func (s *Store) Commit(ctx context.Context, items []domain.FeedItem) error {
	return s.record(items)
}

// Seed records links without a delivered digest behind them
func (s *Store) Seed(ctx context.Context, items []domain.FeedItem) error {
	return s.record(items)
}

// Len reports how many links the ledger holds
func (s *Store) Len(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links), nil
}

func (s *Store) record(items []domain.FeedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := false
	for _, item := range items {
		if _, seen := s.links[item.CanonicalLink]; !seen {
			s.add(item.CanonicalLink)
			added = true
		}
	}
	if !added {
		return nil
	}

	if err := s.flush(); err != nil {
		return &apperrors.StoreUnavailableError{Op: "commit", Cause: err}
	}
	return nil
}

func (s *Store) add(canonical string) {
	if _, seen := s.links[canonical]; seen {
		return
	}
	s.links[canonical] = struct{}{}
	s.order = append(s.order, canonical)
}

// flush writes the whole ledger to a temp file and renames it into place.
// Callers hold s.mu.
func (s *Store) flush() error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".ledger-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, canonical := range s.order {
		if _, err := w.WriteString(canonical + "\n"); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}
