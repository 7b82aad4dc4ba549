package deribit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"obsim/internal/config"
	"obsim/internal/infra/network"
	"obsim/internal/orderbook"
	"obsim/internal/venue/common"
)

type Adapter struct {
	cfg  config.Config
	http *http.Client
}

func New(cfg config.Config) *Adapter { return &Adapter{cfg: cfg, http: network.NewHTTPClient()} }

func (a *Adapter) Name() string { return "deribit" }

func (a *Adapter) FetchSnapshot(ctx context.Context, symbol string, depth int) (orderbook.Book, error) {
	if depth <= 0 {
		depth = 20
	}
	// Deribit quotes per instrument, not spot symbol; the instrument comes
	// from config (default BTC-PERPETUAL).
	url := fmt.Sprintf("%s/api/v2/public/get_order_book?instrument_name=%s&depth=%d",
		a.cfg.Venues.Deribit.BaseURL, a.cfg.Venues.Deribit.Instrument, depth)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	resp, err := a.http.Do(req)
	if err != nil {
		return orderbook.Book{}, common.Unavailable(a.Name(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return orderbook.Book{}, common.Unavailable(a.Name(), fmt.Errorf("status %d", resp.StatusCode))
	}
	var body struct {
		Result struct {
			Bids [][2]float64 `json:"bids"` // [price, qty]
			Asks [][2]float64 `json:"asks"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return orderbook.Book{}, common.Unavailable(a.Name(), err)
	}
	if body.Error != nil {
		return orderbook.Book{}, common.Unavailable(a.Name(), fmt.Errorf("code %d: %s", body.Error.Code, body.Error.Message))
	}
	book := orderbook.New(toLevels(body.Result.Bids), toLevels(body.Result.Asks))
	if len(book.Bids) == 0 && len(book.Asks) == 0 {
		return orderbook.Book{}, common.Unavailable(a.Name(), fmt.Errorf("empty book for %s", a.cfg.Venues.Deribit.Instrument))
	}
	return book, nil
}

func toLevels(raw [][2]float64) []orderbook.Level {
	out := make([]orderbook.Level, 0, len(raw))
	for _, pair := range raw {
		out = append(out, orderbook.Level{Price: pair[0], Qty: pair[1]})
	}
	return out
}
