package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
	Server struct {
		Addr                string   `yaml:"addr"`
		Pprof               bool     `yaml:"pprof"`
		ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
		IdleTimeoutSeconds  int      `yaml:"idle_timeout_seconds"`
		AdminAllowCIDRs     []string `yaml:"admin_allow_cidrs"`
		SimulateRatePerSec  float64  `yaml:"simulate_rate_per_sec"`
		SimulateBurst       int      `yaml:"simulate_burst"`
	} `yaml:"server"`
	Feed struct {
		Symbol            string   `yaml:"symbol"`
		Depth             int      `yaml:"depth"`
		RefreshIntervalMs int      `yaml:"refresh_interval_ms"`
		Venues            []string `yaml:"venues"`
	} `yaml:"feed"`
	Venues struct {
		Bybit struct {
			BaseURL  string `yaml:"base_url"`
			Category string `yaml:"category"`
		} `yaml:"bybit"`
		Deribit struct {
			BaseURL    string `yaml:"base_url"`
			Instrument string `yaml:"instrument"`
		} `yaml:"deribit"`
		Synthetic struct {
			Levels     int                `yaml:"levels"`
			BasePrices map[string]float64 `yaml:"base_prices"`
			Seed       int64              `yaml:"seed"`
		} `yaml:"synthetic"`
	} `yaml:"venues"`
}

func defaultConfig() Config {
	var c Config
	c.Logging.Level = "info"
	c.Logging.Pretty = false
	c.Server.Addr = ":9090"
	c.Server.Pprof = false
	c.Server.ReadTimeoutSeconds = 5
	c.Server.WriteTimeoutSeconds = 10
	c.Server.IdleTimeoutSeconds = 60
	c.Server.AdminAllowCIDRs = []string{"127.0.0.0/8", "::1/128"}
	c.Server.SimulateRatePerSec = 5.0
	c.Server.SimulateBurst = 10
	c.Feed.Symbol = "BTC-USD"
	c.Feed.Depth = 15
	c.Feed.RefreshIntervalMs = 1000
	c.Feed.Venues = []string{"okx", "bybit", "deribit"}
	c.Venues.Bybit.BaseURL = "https://api.bybit.com"
	c.Venues.Bybit.Category = "spot"
	c.Venues.Deribit.BaseURL = "https://www.deribit.com"
	c.Venues.Deribit.Instrument = "BTC-PERPETUAL"
	c.Venues.Synthetic.Levels = 15
	c.Venues.Synthetic.BasePrices = map[string]float64{
		"okx":     65000,
		"bybit":   65005,
		"deribit": 64995,
	}
	c.Venues.Synthetic.Seed = 0 // 0 means time-seeded
	return c
}

func Load() Config {
	c := defaultConfig()
	if path := os.Getenv("OBSIM_CONFIG"); path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &c)
		}
	}
	if v := os.Getenv("OBSIM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("OBSIM_LOG_PRETTY"); v == "1" || v == "true" {
		c.Logging.Pretty = true
	}
	if v := os.Getenv("OBSIM_HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("OBSIM_PPROF"); v == "1" || v == "true" {
		c.Server.Pprof = true
	}
	if v := os.Getenv("OBSIM_ADMIN_ALLOW_CIDRS"); v != "" {
		c.Server.AdminAllowCIDRs = splitCSV(v)
	}
	if v := os.Getenv("OBSIM_SYMBOL"); v != "" {
		c.Feed.Symbol = v
	}
	if v := os.Getenv("OBSIM_FEED_VENUES"); v != "" {
		c.Feed.Venues = splitCSV(v)
	}
	if v := os.Getenv("OBSIM_FEED_DEPTH"); v != "" {
		var n int
		_, _ = fmt.Sscan(v, &n)
		if n > 0 {
			c.Feed.Depth = n
		}
	}
	if v := os.Getenv("OBSIM_REFRESH_INTERVAL_MS"); v != "" {
		var n int
		_, _ = fmt.Sscan(v, &n)
		if n > 0 {
			c.Feed.RefreshIntervalMs = n
		}
	}
	if v := os.Getenv("OBSIM_BYBIT_BASE_URL"); v != "" {
		c.Venues.Bybit.BaseURL = v
	}
	if v := os.Getenv("OBSIM_DERIBIT_BASE_URL"); v != "" {
		c.Venues.Deribit.BaseURL = v
	}
	if v := os.Getenv("OBSIM_SYNTHETIC_SEED"); v != "" {
		var n int64
		_, _ = fmt.Sscan(v, &n)
		c.Venues.Synthetic.Seed = n
	}
	return c
}

func splitCSV(s string) []string {
	var out []string
	buf := []rune{}
	for _, r := range s {
		if r == ',' {
			if len(buf) > 0 {
				out = append(out, string(buf))
				buf = buf[:0]
			}
			continue
		}
		buf = append(buf, r)
	}
	if len(buf) > 0 {
		out = append(out, string(buf))
	}
	return out
}
