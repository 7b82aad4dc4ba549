// Package synthetic generates random-walk L2 orderbooks, standing in for
// a live feed on venues without a public endpoint adapter.
package synthetic

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"obsim/internal/orderbook"
)

type Generator struct {
	name   string
	base   float64
	levels int

	mu   sync.Mutex
	rng  *rand.Rand
	cur  orderbook.Book
	seen bool
}

// New builds a generator for a venue around basePrice with the given
// level count per side. seed 0 seeds from the clock.
func New(name string, basePrice float64, levels int, seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if levels <= 0 {
		levels = 15
	}
	return &Generator{
		name:   name,
		base:   basePrice,
		levels: levels,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

func (g *Generator) Name() string { return g.name }

// FetchSnapshot returns the next step of the random walk. The first call
// generates a fresh book around the base price; subsequent calls perturb
// the previous book and regenerate around the drifted mid. Each call
// returns a new value; previous snapshots are never touched.
func (g *Generator) FetchSnapshot(ctx context.Context, symbol string, depth int) (orderbook.Book, error) {
	if err := ctx.Err(); err != nil {
		return orderbook.Book{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.seen {
		g.cur = g.generate(g.base)
		g.seen = true
	} else {
		g.cur = g.step(g.cur)
	}
	return g.cur.Truncate(depth), nil
}

// generate produces a book of g.levels per side on a 1-cent grid with
// jitter around mid, quantities in [10,99].
func (g *Generator) generate(mid float64) orderbook.Book {
	bids := make([]orderbook.Level, 0, g.levels)
	asks := make([]orderbook.Level, 0, g.levels)
	for i := 0; i < g.levels; i++ {
		bids = append(bids, orderbook.Level{
			Price: round2(mid - float64(i)*0.01 - g.rng.Float64()*0.005),
			Qty:   float64(10 + g.rng.Intn(90)),
		})
		asks = append(asks, orderbook.Level{
			Price: round2(mid + float64(i)*0.01 + g.rng.Float64()*0.005),
			Qty:   float64(10 + g.rng.Intn(90)),
		})
	}
	return orderbook.New(bids, asks)
}

// step random-walks each level (price +/-0.01, quantity +/-2 clamped at
// 1, never dropped), then regenerates a full book around the drifted mid
// so the level count stays stable.
func (g *Generator) step(prev orderbook.Book) orderbook.Book {
	walk := func(levels []orderbook.Level) []orderbook.Level {
		out := make([]orderbook.Level, len(levels))
		for i, lvl := range levels {
			out[i] = orderbook.Level{
				Price: round2(lvl.Price + (g.rng.Float64()-0.5)*0.02),
				Qty:   math.Max(1, lvl.Qty+math.Floor((g.rng.Float64()-0.5)*5)),
			}
		}
		return out
	}
	drifted := orderbook.New(walk(prev.Bids), walk(prev.Asks))
	mid, ok := drifted.Mid()
	if !ok {
		mid = g.base
	}
	return g.generate(mid)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
