package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/myerscreative/flowdoors-tracking/internal/api"
	"github.com/myerscreative/flowdoors-tracking/internal/config"
	"github.com/myerscreative/flowdoors-tracking/internal/event"
	"github.com/myerscreative/flowdoors-tracking/internal/forward"
	mongostore "github.com/myerscreative/flowdoors-tracking/internal/store/mongo"
	"github.com/myerscreative/flowdoors-tracking/internal/tracking"
	"github.com/myerscreative/flowdoors-tracking/internal/webhook"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides PORT)")
	fwdPath := flag.String("forwarding", "configs/forwarding.yaml", "Path to vendor forwarding YAML config")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}
	cfg := config.Parse()
	if *addr == "" {
		*addr = ":" + cfg.Port
	}
	if cfg.WebhookSecret == "" {
		slog.Warn("WEBHOOK_SECRET not set: all webhook callbacks will be rejected")
	}

	loader, err := config.NewLoader(*fwdPath)
	if err != nil {
		slog.Error("failed to load forwarding config", "err", err)
		os.Exit(1)
	}

	// ── Store ─────────────────────────────────────────────────────────────────
	dialCtx, dialCancel := context.WithTimeout(context.Background(), 10*time.Second)
	docs, err := mongostore.Connect(dialCtx, cfg.MongoURI, cfg.MongoDB)
	dialCancel()
	if err != nil {
		slog.Error("failed to connect to mongo", "err", err)
		os.Exit(1)
	}
	slog.Info("mongo connected", "db", cfg.MongoDB)

	// ── Vendor forwarders ─────────────────────────────────────────────────────
	enabled := func(vendor string) func() bool {
		return func() bool { return loader.Forwarding().VendorEnabled(vendor) }
	}
	reg := forward.NewRegistry()
	reg.Register(&forward.GA4{
		MeasurementID: cfg.GA4MeasurementID,
		APISecret:     cfg.GA4APISecret,
		Enabled:       enabled("ga4"),
		Endpoint:      loader.Forwarding().VendorEndpoint("ga4"),
	})
	reg.Register(&forward.GoogleAds{
		CustomerID:       cfg.GoogleAdsCustomerID,
		ConversionAction: cfg.GoogleAdsConversionAction,
		Enabled:          enabled("google_ads"),
		Endpoint:         loader.Forwarding().VendorEndpoint("google_ads"),
	})
	reg.Register(&forward.Meta{
		PixelID:     cfg.MetaPixelID,
		AccessToken: cfg.MetaAccessToken,
		Enabled:     enabled("meta"),
		Endpoint:    loader.Forwarding().VendorEndpoint("meta"),
	})

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(func(fwd *config.Forwarding) {
		slog.Info("forwarding config reloaded", "vendors", len(fwd.Vendors))
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("forwarding config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := tracking.NewRecorder(docs)
	handler := api.New(ctx, api.Deps{
		Cfg:        cfg,
		Forwarding: loader,
		Docs:       docs,
		Normalizer: event.NewNormalizer(),
		Forwarders: reg,
		Webhook: &webhook.Handler{
			Secret:  cfg.WebhookSecret,
			Applier: recorder,
			Log:     logger,
			MaxBody: cfg.MaxBodyBytes,
		},
		Log: logger,
	})

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	cancel()
	if err := docs.Close(shutCtx); err != nil {
		slog.Warn("mongo disconnect", "err", err)
	}
	slog.Info("goodbye")
}
