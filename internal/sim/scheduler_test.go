package sim

import (
	"testing"
	"time"

	"obsim/internal/config"
	"obsim/internal/impact"
	"obsim/internal/infra/log"
)

func newScheduler() *Scheduler {
	return NewScheduler(log.NewLogger(config.Load()))
}

func order(id string, delay time.Duration) impact.Order {
	return impact.Order{ID: id, Venue: "okx", Symbol: "BTC-USD", Side: impact.Buy, Type: impact.Market, Qty: 1, Delay: delay}
}

func TestImmediateReveal(t *testing.T) {
	s := newScheduler()
	res := s.Schedule(order("a", 0), impact.Metrics{FillPct: 100})
	if !res.Active {
		t.Fatal("zero delay should reveal immediately")
	}
	cur, ok := s.Current()
	if !ok || cur.Order.ID != "a" || !cur.Active {
		t.Fatalf("current: got %+v ok=%v", cur, ok)
	}
}

func TestDelayedReveal(t *testing.T) {
	s := newScheduler()
	res := s.Schedule(order("a", 30*time.Millisecond), impact.Metrics{FillPct: 50})
	if res.Active {
		t.Fatal("delayed result must not be active at schedule time")
	}
	if _, ok := s.Current(); ok {
		t.Fatal("nothing should be visible before the delay elapses")
	}
	deadline := time.Now().Add(time.Second)
	for {
		if cur, ok := s.Current(); ok {
			if cur.Order.ID != "a" || cur.Metrics.FillPct != 50 {
				t.Fatalf("revealed wrong result: %+v", cur)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("reveal never happened")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewerSimulationSupersedesPending(t *testing.T) {
	s := newScheduler()
	s.Schedule(order("old", 20*time.Millisecond), impact.Metrics{FillPct: 10})
	s.Schedule(order("new", 0), impact.Metrics{FillPct: 90})

	time.Sleep(60 * time.Millisecond)
	cur, ok := s.Current()
	if !ok {
		t.Fatal("expected a visible result")
	}
	if cur.Order.ID != "new" {
		t.Fatalf("superseded reveal leaked through: got %q", cur.Order.ID)
	}
}

func TestClearCancelsPendingAndCurrent(t *testing.T) {
	s := newScheduler()
	s.Schedule(order("a", 0), impact.Metrics{})
	s.Schedule(order("b", 20*time.Millisecond), impact.Metrics{})
	s.Clear()

	time.Sleep(60 * time.Millisecond)
	if _, ok := s.Current(); ok {
		t.Fatal("cleared scheduler should have no visible result")
	}
}
