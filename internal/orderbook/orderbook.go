package orderbook

import (
	"fmt"
	"sort"
)

// Level is resting liquidity at a discrete price on one side of the book.
type Level struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"quantity"`
}

// Book is an immutable L2 snapshot. Bids are sorted descending by price,
// asks ascending, best price first on each side. A Book is replaced
// wholesale on every refresh, never mutated in place.
type Book struct {
	Bids []Level `json:"bids"`
	Asks []Level `json:"asks"`
}

// New builds a Book from raw levels, enforcing the snapshot invariants:
// non-positive prices and quantities are dropped, duplicate prices on a
// side are aggregated, and both sides are sorted best-first.
func New(bids, asks []Level) Book {
	return Book{
		Bids: normalize(bids, func(a, b float64) bool { return a > b }),
		Asks: normalize(asks, func(a, b float64) bool { return a < b }),
	}
}

func normalize(levels []Level, better func(a, b float64) bool) []Level {
	byPrice := make(map[float64]float64, len(levels))
	for _, lvl := range levels {
		if lvl.Price <= 0 || lvl.Qty <= 0 {
			continue
		}
		byPrice[lvl.Price] += lvl.Qty
	}
	out := make([]Level, 0, len(byPrice))
	for p, q := range byPrice {
		out = append(out, Level{Price: p, Qty: q})
	}
	sort.Slice(out, func(i, j int) bool { return better(out[i].Price, out[j].Price) })
	return out
}

// BestBid returns the highest bid, if any.
func (b Book) BestBid() (Level, bool) {
	if len(b.Bids) == 0 {
		return Level{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask, if any.
func (b Book) BestAsk() (Level, bool) {
	if len(b.Asks) == 0 {
		return Level{}, false
	}
	return b.Asks[0], true
}

// Spread is best ask minus best bid. ok is false when either side is empty.
func (b Book) Spread() (float64, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	return ask.Price - bid.Price, true
}

// Mid is the midpoint between best bid and best ask.
func (b Book) Mid() (float64, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	return (bid.Price + ask.Price) / 2, true
}

// BidDepth is the total resting quantity on the bid side.
func (b Book) BidDepth() float64 { return depth(b.Bids) }

// AskDepth is the total resting quantity on the ask side.
func (b Book) AskDepth() float64 { return depth(b.Asks) }

func depth(levels []Level) float64 {
	var total float64
	for _, lvl := range levels {
		total += lvl.Qty
	}
	return total
}

// Truncate returns a copy limited to the top n levels per side.
// n <= 0 returns the book unchanged.
func (b Book) Truncate(n int) Book {
	if n <= 0 {
		return b
	}
	out := b
	if len(out.Bids) > n {
		out.Bids = out.Bids[:n]
	}
	if len(out.Asks) > n {
		out.Asks = out.Asks[:n]
	}
	return out
}

// Validate checks the snapshot invariants: positive prices and quantities,
// strict best-first ordering, no duplicate prices within a side.
func (b Book) Validate() error {
	if err := validateSide("bids", b.Bids, func(prev, cur float64) bool { return cur < prev }); err != nil {
		return err
	}
	return validateSide("asks", b.Asks, func(prev, cur float64) bool { return cur > prev })
}

func validateSide(name string, levels []Level, ordered func(prev, cur float64) bool) error {
	for i, lvl := range levels {
		if lvl.Price <= 0 {
			return fmt.Errorf("%s[%d]: non-positive price %v", name, i, lvl.Price)
		}
		if lvl.Qty <= 0 {
			return fmt.Errorf("%s[%d]: non-positive quantity %v", name, i, lvl.Qty)
		}
		if i > 0 && !ordered(levels[i-1].Price, lvl.Price) {
			return fmt.Errorf("%s[%d]: price %v out of order after %v", name, i, lvl.Price, levels[i-1].Price)
		}
	}
	return nil
}
