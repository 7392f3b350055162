// ABOUTME: LinkStore contract for the durable deduplication ledger
// ABOUTME: Implementations must apply canonicalization identically on read and write

package interfaces

import (
	"context"

	"digest-courier/core/domain"
)

// LinkStore is the durable set of canonical links already delivered in a
// past digest. A link present in the ledger must never be re-included in
// a future digest; the set grows monotonically and is committed only
// after the remote platform has durably accepted the campaign.
type LinkStore interface {
	// FilterUnseen returns the subsequence of items whose canonical link
	// is not in the ledger, preserving input order.
	FilterUnseen(ctx context.Context, items []domain.FeedItem) ([]domain.FeedItem, error)

	// Commit durably records the items' canonical links. The write must
	// be atomic with respect to process crash: either every link is
	// recorded or none.
	Commit(ctx context.Context, items []domain.FeedItem) error

	// Len reports how many links the ledger holds. A zero-length ledger
	// marks a first run.
	Len(ctx context.Context) (int, error)

	// Seed records links without treating them as a digest commit; used
	// once on first run so preexisting entries are never mailed out.
	Seed(ctx context.Context, items []domain.FeedItem) error
}
