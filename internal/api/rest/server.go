// Package rest exposes the orderbook viewer API: venue listing, snapshot
// retrieval, order simulation, and a WebSocket stream of book updates.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"obsim/internal/config"
	"obsim/internal/feed"
	"obsim/internal/impact"
	"obsim/internal/infra/http/middleware"
	"obsim/internal/infra/metrics"
	"obsim/internal/infra/network"
	"obsim/internal/sim"
	"obsim/internal/venue/common"
)

type Server struct {
	feed     *feed.Feed
	sched    *sim.Scheduler
	logger   zerolog.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

func New(cfg config.Config, f *feed.Feed, sched *sim.Scheduler, logger zerolog.Logger) *Server {
	s := &Server{
		feed:   f,
		sched:  sched,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	bucket := network.NewTokenBucket(cfg.Server.SimulateBurst, cfg.Server.SimulateRatePerSec)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/venues", s.handleVenues)
	mux.HandleFunc("/api/orderbook", s.handleOrderbook)
	mux.Handle("/api/simulate", middleware.RateLimit(bucket, http.HandlerFunc(s.handleSimulate)))
	mux.HandleFunc("/api/simulation", s.handleSimulation)
	mux.HandleFunc("/ws/orderbook", s.handleStream)
	s.mux = mux
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) handleVenues(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"venues": s.feed.Venues()})
}

func (s *Server) handleOrderbook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	venue := r.URL.Query().Get("venue")
	book, at, err := s.feed.Current(venue)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, feed.ErrUnknownVenue) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	// A snapshot that survived a failed refresh is still served, but marked
	// so clients can tell the book stopped moving.
	if fetchErr := s.feed.LastError(venue); fetchErr != nil {
		w.Header().Set("X-Book-Stale", "true")
		w.Header().Set("X-Book-Fetched-At", at.UTC().Format(time.RFC3339))
	}
	writeJSON(w, http.StatusOK, book)
}

type simulateRequest struct {
	Venue       string  `json:"venue"`
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"`
	OrderType   string  `json:"orderType"`
	Price       float64 `json:"price"`
	Quantity    float64 `json:"quantity"`
	TimingDelay string  `json:"timingDelay"`
}

var timingDelays = map[string]time.Duration{
	"":          0,
	"immediate": 0,
	"5s":        5 * time.Second,
	"10s":       10 * time.Second,
	"30s":       30 * time.Second,
}

// metricsPayload is the display form: two decimal places, averageFillPrice
// omitted entirely when no quantity filled.
type metricsPayload struct {
	EstimatedFillPercentage float64  `json:"estimatedFillPercentage"`
	MarketImpact            float64  `json:"marketImpact"`
	SlippageEstimation      float64  `json:"slippageEstimation"`
	TimeToFill              string   `json:"timeToFill"`
	AverageFillPrice        *float64 `json:"averageFillPrice,omitempty"`
}

func toPayload(m impact.Metrics) metricsPayload {
	r := m.Rounded()
	p := metricsPayload{
		EstimatedFillPercentage: r.FillPct,
		MarketImpact:            r.MarketImpact,
		SlippageEstimation:      r.Slippage,
		TimeToFill:              r.TimeToFill,
	}
	if r.Filled {
		avg := r.AvgFillPrice
		p.AverageFillPrice = &avg
	}
	return p
}

type simulationResponse struct {
	OrderID    string         `json:"orderId"`
	Venue      string         `json:"venue"`
	Symbol     string         `json:"symbol"`
	Side       string         `json:"side"`
	OrderType  string         `json:"orderType"`
	Quantity   float64        `json:"quantity"`
	LimitPrice float64        `json:"limitPrice,omitempty"`
	TimeToFill string         `json:"timeToFill"`
	RevealAt   time.Time      `json:"revealAt"`
	IsActive   bool           `json:"isActive"`
	Metrics    metricsPayload `json:"metrics"`
}

func toResponse(res sim.Result) simulationResponse {
	o := res.Order
	return simulationResponse{
		OrderID:    o.ID,
		Venue:      o.Venue,
		Symbol:     o.Symbol,
		Side:       string(o.Side),
		OrderType:  string(o.Type),
		Quantity:   o.Qty,
		LimitPrice: o.LimitPrice,
		TimeToFill: res.Metrics.TimeToFill,
		RevealAt:   res.RevealAt,
		IsActive:   res.Active,
		Metrics:    toPayload(res.Metrics),
	}
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid payload"))
		return
	}

	delay, ok := timingDelays[req.TimingDelay]
	order := impact.Order{
		ID:         uuid.NewString(),
		Venue:      req.Venue,
		Symbol:     req.Symbol,
		Side:       impact.Side(req.Side),
		Type:       impact.OrderType(req.OrderType),
		Qty:        req.Quantity,
		LimitPrice: req.Price,
		Delay:      delay,
	}
	fieldErrs := order.Validate()
	if !ok {
		fieldErrs["timingDelay"] = "timingDelay must be one of immediate, 5s, 10s, 30s"
	}
	if len(fieldErrs) > 0 {
		metrics.RejectedOrdersTotal.Inc()
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid order input", "fields": fieldErrs})
		return
	}

	book, _, err := s.feed.Current(order.Venue)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, feed.ErrUnknownVenue) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}

	// Metrics are computed against the snapshot available now; the timing
	// delay only defers when the result becomes visible.
	start := time.Now()
	m := impact.Estimate(order, book)
	metrics.ImpactEvalSeconds.Observe(time.Since(start).Seconds())
	metrics.SimulationsTotal.WithLabelValues(order.Venue, string(order.Type)).Inc()

	res := s.sched.Schedule(order, m)
	s.logger.Info().
		Str("order_id", order.ID).
		Str("venue", order.Venue).
		Str("side", string(order.Side)).
		Str("type", string(order.Type)).
		Float64("qty", order.Qty).
		Float64("fill_pct", m.FillPct).
		Msg("simulation scheduled")
	writeJSON(w, http.StatusOK, toResponse(res))
}

func (s *Server) handleSimulation(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		res, ok := s.sched.Current()
		if !ok {
			writeError(w, http.StatusNotFound, errors.New("no simulation"))
			return
		}
		writeJSON(w, http.StatusOK, toResponse(res))
	case http.MethodDelete:
		s.sched.Clear()
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type streamMessage struct {
	Type  string    `json:"type"`
	Venue string    `json:"venue"`
	At    time.Time `json:"at"`
	Data  any       `json:"data"`
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	// empty venue means the client wants every venue's updates
	venue := r.URL.Query().Get("venue")
	if venue != "" {
		if _, _, err := s.feed.Current(venue); errors.Is(err, feed.ErrUnknownVenue) {
			writeError(w, http.StatusNotFound, err)
			return
		}
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("ws upgrade failed")
		return
	}
	metrics.WSClients.Inc()
	defer metrics.WSClients.Dec()
	defer conn.Close()

	sub := s.feed.Subscribe(16)
	defer s.feed.Unsubscribe(sub)

	// reader: only there to notice the peer going away
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// send the current snapshot up front so clients don't wait a tick; if the
	// venue has nothing yet, say so instead of staying silent
	if book, at, err := s.feed.Current(venue); err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteJSON(streamMessage{Type: "orderbook", Venue: venue, At: at, Data: book})
	} else if venue != "" {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteJSON(streamMessage{Type: "error", Venue: venue, At: time.Now(), Data: "orderbook snapshot unavailable; retrying on next refresh"})
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case u, open := <-sub.C:
			if !open {
				return
			}
			if venue != "" && u.Venue != venue {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(streamMessage{Type: "orderbook", Venue: u.Venue, At: u.At, Data: u.Book}); err != nil {
				return
			}
		}
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	msg := err.Error()
	if errors.Is(err, common.ErrSnapshotUnavailable) {
		msg = "orderbook snapshot unavailable; retrying on next refresh"
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
