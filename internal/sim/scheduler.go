// Package sim gates when a computed simulation result becomes visible.
// Metrics are computed eagerly when the simulation is requested; the
// timing delay only defers the reveal. A newer simulation or a venue
// change supersedes any pending reveal: last write wins.
package sim

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"obsim/internal/impact"
	"obsim/internal/infra/metrics"
)

// Result pairs an order with its precomputed metrics. Active reports
// whether the delay has elapsed and the result may be displayed.
type Result struct {
	Order    impact.Order
	Metrics  impact.Metrics
	RevealAt time.Time
	Active   bool
}

type Scheduler struct {
	logger zerolog.Logger

	mu      sync.Mutex
	gen     uint64
	pending *time.Timer
	current *Result
}

func NewScheduler(logger zerolog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Schedule records a simulation and arranges its reveal at now+delay.
// A zero delay reveals immediately. Any previously pending reveal is
// discarded.
func (s *Scheduler) Schedule(order impact.Order, m impact.Metrics) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.supersedeLocked()
	res := Result{Order: order, Metrics: m, RevealAt: time.Now().Add(order.Delay)}
	if order.Delay <= 0 {
		res.Active = true
		s.current = &res
		metrics.SimulationsRevealedTotal.Inc()
		return res
	}

	gen := s.gen
	pending := res
	s.pending = time.AfterFunc(order.Delay, func() { s.reveal(gen, pending) })
	return res
}

func (s *Scheduler) reveal(gen uint64, res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		// superseded while waiting
		return
	}
	res.Active = true
	s.pending = nil
	s.current = &res
	metrics.SimulationsRevealedTotal.Inc()
	s.logger.Debug().Str("order_id", res.Order.ID).Str("venue", res.Order.Venue).Msg("simulation revealed")
}

// Current returns the last revealed result, if any.
func (s *Scheduler) Current() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Result{}, false
	}
	return *s.current, true
}

// Clear drops the displayed result and cancels any pending reveal,
// e.g. on venue change.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersedeLocked()
	s.current = nil
}

func (s *Scheduler) supersedeLocked() {
	s.gen++
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
		metrics.SimulationsSupersededTotal.Inc()
	}
}
