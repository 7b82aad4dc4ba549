package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	_ = os.Unsetenv("OBSIM_CONFIG")
	_ = os.Unsetenv("OBSIM_LOG_LEVEL")
	_ = os.Unsetenv("OBSIM_FEED_VENUES")

	c := Load()
	if c.Logging.Level != "info" {
		t.Fatalf("expected default log level info, got %s", c.Logging.Level)
	}
	if c.Feed.RefreshIntervalMs != 1000 {
		t.Fatalf("expected default refresh interval 1000ms, got %d", c.Feed.RefreshIntervalMs)
	}
	if len(c.Feed.Venues) != 3 {
		t.Fatalf("expected 3 default venues, got %v", c.Feed.Venues)
	}
	if c.Venues.Synthetic.BasePrices["okx"] != 65000 {
		t.Fatalf("expected okx base price 65000, got %v", c.Venues.Synthetic.BasePrices["okx"])
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OBSIM_LOG_LEVEL", "debug")
	t.Setenv("OBSIM_FEED_VENUES", "okx,bybit")
	t.Setenv("OBSIM_REFRESH_INTERVAL_MS", "250")
	c := Load()
	if c.Logging.Level != "debug" {
		t.Fatalf("env override failed for log level, got %s", c.Logging.Level)
	}
	if len(c.Feed.Venues) != 2 || c.Feed.Venues[1] != "bybit" {
		t.Fatalf("env override failed for venues, got %v", c.Feed.Venues)
	}
	if c.Feed.RefreshIntervalMs != 250 {
		t.Fatalf("env override failed for refresh interval, got %d", c.Feed.RefreshIntervalMs)
	}
}

func TestYAMLFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "feed:\n  symbol: ETH-USD\n  depth: 25\nserver:\n  addr: \":8088\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OBSIM_CONFIG", path)
	c := Load()
	if c.Feed.Symbol != "ETH-USD" {
		t.Fatalf("yaml override failed for symbol, got %s", c.Feed.Symbol)
	}
	if c.Feed.Depth != 25 {
		t.Fatalf("yaml override failed for depth, got %d", c.Feed.Depth)
	}
	if c.Server.Addr != ":8088" {
		t.Fatalf("yaml override failed for addr, got %s", c.Server.Addr)
	}
}
