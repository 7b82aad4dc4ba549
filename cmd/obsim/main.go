package main

import (
	"context"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"obsim/internal/api/rest"
	"obsim/internal/config"
	"obsim/internal/feed"
	"obsim/internal/infra/health"
	"obsim/internal/infra/http/middleware"
	"obsim/internal/infra/log"
	"obsim/internal/infra/metrics"
	"obsim/internal/infra/netutil"
	"obsim/internal/infra/runner"
	"obsim/internal/infra/version"
	"obsim/internal/sim"
	"obsim/internal/venue/bybit"
	"obsim/internal/venue/common"
	"obsim/internal/venue/deribit"
	"obsim/internal/venue/synthetic"
)

func buildProviders(cfg config.Config) map[string]common.SnapshotProvider {
	providers := map[string]common.SnapshotProvider{}
	for _, name := range cfg.Feed.Venues {
		switch name {
		case "bybit":
			providers[name] = bybit.New(cfg)
		case "deribit":
			providers[name] = deribit.New(cfg)
		default:
			// venues without an endpoint adapter fall back to the
			// synthetic random-walk generator
			base := cfg.Venues.Synthetic.BasePrices[name]
			if base <= 0 {
				base = 65000
			}
			providers[name] = synthetic.New(name, base, cfg.Venues.Synthetic.Levels, cfg.Venues.Synthetic.Seed)
		}
	}
	return providers
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	logger := log.NewLogger(cfg)

	registry := metrics.Init(logger)

	bookFeed := feed.New(cfg, buildProviders(cfg), logger)
	scheduler := sim.NewScheduler(logger)
	api := rest.New(cfg, bookFeed, scheduler, logger)

	mux := http.NewServeMux()
	mux.Handle("/api/", api.Handler())
	mux.Handle("/ws/", api.Handler())
	// admin endpoints (metrics, pprof) behind IP allowlist gate
	adminCIDRs := netutil.MustParseCIDRs(cfg.Server.AdminAllowCIDRs)
	mux.Handle("/metrics", middleware.AdminGate(adminCIDRs, metrics.Handler(registry)))
	mux.HandleFunc("/healthz", health.Healthz)
	mux.HandleFunc("/readyz", health.Readyz)
	mux.HandleFunc("/version", version.Handler)
	if cfg.Server.Pprof {
		mux.Handle("/debug/pprof/", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Index)))
		mux.Handle("/debug/pprof/cmdline", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Cmdline)))
		mux.Handle("/debug/pprof/profile", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Profile)))
		mux.Handle("/debug/pprof/symbol", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Symbol)))
		mux.Handle("/debug/pprof/trace", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Trace)))
	}

	// wrap mux with middlewares (request id and logging)
	handler := middleware.RequestID(middleware.Logger(logger)(mux))

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	logger.Info().Str("addr", cfg.Server.Addr).Strs("venues", cfg.Feed.Venues).Str("symbol", cfg.Feed.Symbol).Msg("orderbook simulator started")

	// feed refresher worker
	g := &runner.Group{}
	workerErrCh := g.Go(ctx, func(ctx context.Context) error {
		return bookFeed.Run(ctx)
	})

	health.SetReady(true)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-ctx.Done():
	case s := <-sigCh:
		logger.Info().Str("signal", s.String()).Msg("shutdown signal received")
	case err := <-workerErrCh:
		if err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("feed worker error")
			health.SetReady(false)
		}
	}

	health.SetReady(false)
	cancel()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	g.Wait()
	logger.Info().Msg("shutdown complete")
}
