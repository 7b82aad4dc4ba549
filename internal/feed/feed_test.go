package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"obsim/internal/config"
	"obsim/internal/infra/log"
	"obsim/internal/orderbook"
	"obsim/internal/venue/common"
)

type stubProvider struct {
	name  string
	book  orderbook.Book
	err   error
	calls int
}

func (p *stubProvider) Name() string { return p.name }
func (p *stubProvider) FetchSnapshot(ctx context.Context, symbol string, depth int) (orderbook.Book, error) {
	p.calls++
	if p.err != nil {
		return orderbook.Book{}, common.Unavailable(p.name, p.err)
	}
	return p.book, nil
}

func testBook(mid float64) orderbook.Book {
	return orderbook.New(
		[]orderbook.Level{{Price: mid - 1, Qty: 5}},
		[]orderbook.Level{{Price: mid + 1, Qty: 5}},
	)
}

func newTestFeed(providers map[string]common.SnapshotProvider) *Feed {
	cfg := config.Load()
	return New(cfg, providers, log.NewLogger(cfg))
}

func TestCurrentBeforeFirstRefresh(t *testing.T) {
	f := newTestFeed(map[string]common.SnapshotProvider{"okx": &stubProvider{name: "okx"}})
	_, _, err := f.Current("okx")
	if !errors.Is(err, common.ErrSnapshotUnavailable) {
		t.Fatalf("expected ErrSnapshotUnavailable before any refresh, got %v", err)
	}
}

func TestRefreshAllPublishes(t *testing.T) {
	p := &stubProvider{name: "okx", book: testBook(100)}
	f := newTestFeed(map[string]common.SnapshotProvider{"okx": p})
	sub := f.Subscribe(4)
	defer f.Unsubscribe(sub)

	f.RefreshAll(context.Background())

	book, at, err := f.Current("okx")
	if err != nil {
		t.Fatal(err)
	}
	if at.IsZero() {
		t.Fatal("expected fetch timestamp")
	}
	if best, _ := book.BestBid(); best.Price != 99 {
		t.Fatalf("best bid: got %+v", best)
	}
	select {
	case u := <-sub.C:
		if u.Venue != "okx" || len(u.Book.Asks) != 1 {
			t.Fatalf("unexpected update %+v", u)
		}
	case <-time.After(time.Second):
		t.Fatal("no broadcast received")
	}
}

func TestFailureKeepsPreviousSnapshot(t *testing.T) {
	p := &stubProvider{name: "okx", book: testBook(100)}
	f := newTestFeed(map[string]common.SnapshotProvider{"okx": p})
	f.RefreshAll(context.Background())

	p.err = errors.New("connection refused")
	f.RefreshAll(context.Background())

	book, _, err := f.Current("okx")
	if err != nil {
		t.Fatalf("previous snapshot should survive a failed refresh, got %v", err)
	}
	if len(book.Bids) != 1 {
		t.Fatalf("stale book lost: %+v", book)
	}
	if f.LastError("okx") == nil {
		t.Fatal("expected LastError to report the failed refresh")
	}

	p.err = nil
	f.RefreshAll(context.Background())
	if f.LastError("okx") != nil {
		t.Fatal("expected LastError cleared after clean refresh")
	}
}

func TestUnknownVenue(t *testing.T) {
	f := newTestFeed(map[string]common.SnapshotProvider{"okx": &stubProvider{name: "okx", book: testBook(100)}})
	if _, _, err := f.Current("nasdaq"); !errors.Is(err, ErrUnknownVenue) {
		t.Fatalf("expected ErrUnknownVenue, got %v", err)
	}
	if err := f.LastError("nasdaq"); !errors.Is(err, ErrUnknownVenue) {
		t.Fatalf("expected ErrUnknownVenue, got %v", err)
	}
}

func TestVenuesStableOrder(t *testing.T) {
	f := newTestFeed(map[string]common.SnapshotProvider{
		"okx":     &stubProvider{name: "okx"},
		"bybit":   &stubProvider{name: "bybit"},
		"deribit": &stubProvider{name: "deribit"},
	})
	got := f.Venues()
	want := []string{"bybit", "deribit", "okx"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("venues order: got %v, want %v", got, want)
		}
	}
}

func TestRunRefreshesOnTicks(t *testing.T) {
	p := &stubProvider{name: "okx", book: testBook(100)}
	cfg := config.Load()
	cfg.Feed.RefreshIntervalMs = 10
	f := New(cfg, map[string]common.SnapshotProvider{"okx": p}, log.NewLogger(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = f.Run(ctx)

	if p.calls < 2 {
		t.Fatalf("expected at least 2 fetches (initial + ticks), got %d", p.calls)
	}
}

func TestHubDropsWhenSubscriberSlow(t *testing.T) {
	h := NewHub[int]()
	sub := h.Subscribe(1)
	defer h.Unsubscribe(sub)
	h.Broadcast(1)
	h.Broadcast(2) // buffer full, must not block
	if v := <-sub.C; v != 1 {
		t.Fatalf("expected first value retained, got %d", v)
	}
}
