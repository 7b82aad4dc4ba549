package common

import (
	"context"
	"errors"
	"fmt"

	"obsim/internal/orderbook"
)

// ErrSnapshotUnavailable marks a fetch failure. Callers surface it to the
// user and wait for the next scheduled refresh; it is never fatal.
var ErrSnapshotUnavailable = errors.New("snapshot unavailable")

// Unavailable wraps err as a snapshot-unavailable failure for a venue.
func Unavailable(venue string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrSnapshotUnavailable, venue, err)
}

// SnapshotProvider supplies an L2 snapshot for a symbol on demand. The
// returned book must satisfy the orderbook invariants (sorted, deduped,
// positive quantities); level count may vary between calls.
type SnapshotProvider interface {
	Name() string
	FetchSnapshot(ctx context.Context, symbol string, depth int) (orderbook.Book, error)
}
