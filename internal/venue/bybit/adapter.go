package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

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

func (a *Adapter) Name() string { return "bybit" }

func mapSymbol(symbol string) string {
	// Minimal mapping: BTC-USD -> BTCUSDT; pass-through others
	s := strings.ReplaceAll(strings.ToUpper(symbol), "-", "")
	if strings.HasSuffix(s, "USD") {
		return s + "T"
	}
	return s
}

func (a *Adapter) FetchSnapshot(ctx context.Context, symbol string, depth int) (orderbook.Book, error) {
	if depth <= 0 {
		depth = 25
	}
	url := fmt.Sprintf("%s/v5/market/orderbook?category=%s&symbol=%s&limit=%d",
		a.cfg.Venues.Bybit.BaseURL, a.cfg.Venues.Bybit.Category, mapSymbol(symbol), depth)
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
		RetCode int    `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Result  struct {
			B [][]string `json:"b"` // bids as [price, qty] strings
			A [][]string `json:"a"` // asks
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return orderbook.Book{}, common.Unavailable(a.Name(), err)
	}
	if body.RetCode != 0 {
		return orderbook.Book{}, common.Unavailable(a.Name(), fmt.Errorf("retCode %d: %s", body.RetCode, body.RetMsg))
	}
	book := orderbook.New(parseLevels(body.Result.B), parseLevels(body.Result.A))
	if len(book.Bids) == 0 && len(book.Asks) == 0 {
		return orderbook.Book{}, common.Unavailable(a.Name(), fmt.Errorf("empty book for %s", symbol))
	}
	return book, nil
}

func parseLevels(raw [][]string) []orderbook.Level {
	out := make([]orderbook.Level, 0, len(raw))
	for _, pair := range raw {
		if len(pair) < 2 {
			continue
		}
		price, err1 := strconv.ParseFloat(pair[0], 64)
		qty, err2 := strconv.ParseFloat(pair[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, orderbook.Level{Price: price, Qty: qty})
	}
	return out
}
