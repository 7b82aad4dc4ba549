// Package feed maintains the current orderbook snapshot per venue,
// refreshing on a fixed cadence and broadcasting each new book to
// subscribers. Snapshots are value types replaced wholesale; no snapshot
// is ever mutated after publication.
package feed

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"obsim/internal/config"
	"obsim/internal/infra/metrics"
	"obsim/internal/orderbook"
	"obsim/internal/venue/common"
)

var ErrUnknownVenue = errors.New("unknown venue")

// Update is broadcast to subscribers after each successful refresh.
type Update struct {
	Venue string
	Book  orderbook.Book
	At    time.Time
}

type state struct {
	book orderbook.Book
	at   time.Time
	err  error
	seen bool // at least one successful fetch
}

type Feed struct {
	providers map[string]common.SnapshotProvider
	venues    []string
	symbol    string
	depth     int
	interval  time.Duration
	hub       *Hub[Update]
	logger    zerolog.Logger

	mu     sync.RWMutex
	states map[string]*state
}

func New(cfg config.Config, providers map[string]common.SnapshotProvider, logger zerolog.Logger) *Feed {
	venues := make([]string, 0, len(providers))
	states := make(map[string]*state, len(providers))
	for name := range providers {
		venues = append(venues, name)
		states[name] = &state{}
	}
	sort.Strings(venues)
	return &Feed{
		providers: providers,
		venues:    venues,
		symbol:    cfg.Feed.Symbol,
		depth:     cfg.Feed.Depth,
		interval:  time.Duration(cfg.Feed.RefreshIntervalMs) * time.Millisecond,
		hub:       NewHub[Update](),
		logger:    logger,
		states:    states,
	}
}

// Venues lists configured venue names in stable order.
func (f *Feed) Venues() []string {
	out := make([]string, len(f.venues))
	copy(out, f.venues)
	return out
}

// Current returns the latest snapshot for a venue and when it was
// fetched. If the venue has never produced a snapshot, err carries the
// last fetch failure; a stale book with a newer fetch error is still
// returned, with err nil, so callers keep a usable view across transient
// feed outages.
func (f *Feed) Current(venue string) (orderbook.Book, time.Time, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	st, ok := f.states[venue]
	if !ok {
		return orderbook.Book{}, time.Time{}, ErrUnknownVenue
	}
	if !st.seen {
		if st.err != nil {
			return orderbook.Book{}, time.Time{}, st.err
		}
		return orderbook.Book{}, time.Time{}, common.Unavailable(venue, errors.New("no snapshot yet"))
	}
	return st.book, st.at, nil
}

// LastError returns the most recent fetch failure for a venue, nil after
// a clean refresh.
func (f *Feed) LastError(venue string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if st, ok := f.states[venue]; ok {
		return st.err
	}
	return ErrUnknownVenue
}

// Subscribe registers for refresh broadcasts across all venues.
func (f *Feed) Subscribe(buffer int) *Subscription[Update] { return f.hub.Subscribe(buffer) }

// Unsubscribe removes a subscription and closes its channel.
func (f *Feed) Unsubscribe(sub *Subscription[Update]) { f.hub.Unsubscribe(sub) }

// Run refreshes all venues once immediately, then on every tick until
// the context is canceled.
func (f *Feed) Run(ctx context.Context) error {
	f.RefreshAll(ctx)
	tick := time.NewTicker(f.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			f.RefreshAll(ctx)
		}
	}
}

// RefreshAll fetches a fresh snapshot from every provider. Failures are
// recorded per venue and never abort the sweep.
func (f *Feed) RefreshAll(ctx context.Context) {
	for _, venue := range f.venues {
		f.refresh(ctx, venue)
	}
}

func (f *Feed) refresh(ctx context.Context, venue string) {
	provider := f.providers[venue]
	fetchCtx, cancel := context.WithTimeout(ctx, f.interval)
	book, err := provider.FetchSnapshot(fetchCtx, f.symbol, f.depth)
	cancel()

	metrics.SnapshotFetchesTotal.WithLabelValues(venue).Inc()
	now := time.Now()

	f.mu.Lock()
	st := f.states[venue]
	if err != nil {
		st.err = err
		if st.seen {
			metrics.BookStalenessMs.WithLabelValues(venue).Set(float64(now.Sub(st.at).Milliseconds()))
		}
		f.mu.Unlock()
		metrics.SnapshotErrorsTotal.WithLabelValues(venue).Inc()
		f.logger.Warn().Err(err).Str("venue", venue).Msg("snapshot fetch failed")
		return
	}
	st.book = book
	st.at = now
	st.err = nil
	st.seen = true
	f.mu.Unlock()

	metrics.SnapshotLevels.WithLabelValues(venue, "bids").Set(float64(len(book.Bids)))
	metrics.SnapshotLevels.WithLabelValues(venue, "asks").Set(float64(len(book.Asks)))
	metrics.BookStalenessMs.WithLabelValues(venue).Set(0)
	if spread, ok := book.Spread(); ok {
		metrics.BookSpread.WithLabelValues(venue).Set(spread)
	}
	f.hub.Broadcast(Update{Venue: venue, Book: book, At: now})
}
