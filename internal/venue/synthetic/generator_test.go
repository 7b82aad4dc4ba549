package synthetic

import (
	"context"
	"testing"

	"obsim/internal/orderbook"
)

func TestFetchSnapshotInvariants(t *testing.T) {
	g := New("okx", 65000, 15, 42)
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		book, err := g.FetchSnapshot(ctx, "BTC-USD", 0)
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if err := book.Validate(); err != nil {
			t.Fatalf("tick %d: invariant violation: %v", i, err)
		}
		if len(book.Bids) == 0 || len(book.Asks) == 0 {
			t.Fatalf("tick %d: empty side", i)
		}
		for _, lvl := range append(append([]orderbook.Level{}, book.Bids...), book.Asks...) {
			if lvl.Qty < 1 {
				t.Fatalf("tick %d: quantity %v below floor", i, lvl.Qty)
			}
		}
	}
}

func TestSeededWalkIsReproducible(t *testing.T) {
	ctx := context.Background()
	a := New("okx", 65000, 15, 7)
	b := New("okx", 65000, 15, 7)
	for i := 0; i < 10; i++ {
		ba, _ := a.FetchSnapshot(ctx, "BTC-USD", 0)
		bb, _ := b.FetchSnapshot(ctx, "BTC-USD", 0)
		if len(ba.Bids) != len(bb.Bids) || ba.Bids[0] != bb.Bids[0] || ba.Asks[0] != bb.Asks[0] {
			t.Fatalf("tick %d: seeded generators diverged", i)
		}
	}
}

func TestDepthTruncation(t *testing.T) {
	g := New("okx", 65000, 15, 1)
	book, err := g.FetchSnapshot(context.Background(), "BTC-USD", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(book.Bids) > 5 || len(book.Asks) > 5 {
		t.Fatalf("depth not honored: %d bids %d asks", len(book.Bids), len(book.Asks))
	}
}

func TestCanceledContext(t *testing.T) {
	g := New("okx", 65000, 15, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.FetchSnapshot(ctx, "BTC-USD", 0); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
