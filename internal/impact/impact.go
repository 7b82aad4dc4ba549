// Package impact estimates fill and market-impact metrics for a
// hypothetical order against an L2 orderbook snapshot. Estimation is a
// pure function: no I/O, no state, and identical inputs always produce
// identical metrics.
package impact

import (
	"fmt"
	"math"
	"time"

	"obsim/internal/orderbook"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

type OrderType string

const (
	Market OrderType = "market"
	Limit  OrderType = "limit"
)

// Order is a what-if order. It is never routed anywhere; the engine only
// reads it. LimitPrice is meaningful for Limit orders only. Delay gates
// when the result is surfaced, not how it is computed.
type Order struct {
	ID         string
	Venue      string
	Symbol     string
	Side       Side
	Type       OrderType
	Qty        float64
	LimitPrice float64
	Delay      time.Duration
}

// Metrics holds unrounded estimation results. AvgFillPrice is only
// meaningful when Filled is true; zero-fill evaluations leave it absent
// rather than propagating a division by zero.
type Metrics struct {
	FillPct      float64
	AvgFillPrice float64
	Filled       bool // AvgFillPrice present
	Slippage     float64
	MarketImpact float64
	TimeToFill   string
}

// Rounded returns a display copy with all numeric fields rounded to two
// decimal places.
func (m Metrics) Rounded() Metrics {
	out := m
	out.FillPct = round2(m.FillPct)
	out.Slippage = round2(m.Slippage)
	out.MarketImpact = round2(m.MarketImpact)
	if m.Filled {
		out.AvgFillPrice = round2(m.AvgFillPrice)
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// Estimate evaluates a hypothetical order against a book snapshot.
//
// Limit orders use an immediate-or-nothing model: a buy fills 100% iff
// its price crosses the best ask (inclusive), a sell iff it crosses the
// best bid; a crossing limit fills entirely at its own price with zero
// slippage. Market orders walk the opposing side best-to-worst,
// consuming depth until the quantity is filled or the book is exhausted;
// slippage is the absolute distance between the realized average fill
// price and the pre-trade best price. Market impact is equated with
// slippage in this model.
//
// Degenerate inputs (non-positive quantity, empty opposing side) yield
// zero metrics with an absent average fill price, never an error.
func Estimate(o Order, book orderbook.Book) Metrics {
	m := Metrics{TimeToFill: delayLabel(o.Delay)}
	if o.Qty <= 0 {
		return m
	}

	switch o.Type {
	case Limit:
		if o.LimitPrice <= 0 {
			return m
		}
		if crossed(o, book) {
			m.FillPct = 100
			m.AvgFillPrice = o.LimitPrice
			m.Filled = true
		}
	case Market:
		levels := book.Asks
		if o.Side == Sell {
			levels = book.Bids
		}
		if len(levels) == 0 {
			return m
		}
		reference := levels[0].Price

		var filled, notional float64
		for _, lvl := range levels {
			take := math.Min(o.Qty-filled, lvl.Qty)
			if take <= 0 {
				break
			}
			filled += take
			notional += take * lvl.Price
			if filled >= o.Qty {
				break
			}
		}

		m.FillPct = clampPct(filled / o.Qty * 100)
		if filled > 0 {
			m.AvgFillPrice = notional / filled
			m.Filled = true
			m.Slippage = math.Abs(m.AvgFillPrice - reference)
			m.MarketImpact = m.Slippage
		}
	}
	return m
}

func crossed(o Order, book orderbook.Book) bool {
	switch o.Side {
	case Buy:
		best, ok := book.BestAsk()
		return ok && o.LimitPrice >= best.Price
	case Sell:
		best, ok := book.BestBid()
		return ok && o.LimitPrice <= best.Price
	}
	return false
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func delayLabel(d time.Duration) string {
	if d <= 0 {
		return "Immediate"
	}
	return fmt.Sprintf("%ds delay", int(d.Seconds()))
}
