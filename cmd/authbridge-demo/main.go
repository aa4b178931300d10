package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/identikit/authbridge/bridge"
	"github.com/identikit/authbridge/internal/config"
	"github.com/identikit/authbridge/internal/logx"
	"github.com/identikit/authbridge/internal/metrics"
	"github.com/identikit/authbridge/internal/profile"
	"github.com/identikit/authbridge/protocol"
)

func main() {
	var cfg config.DemoConfig
	cfg.SetDefaults()
	cfg.ApplyEnv()
	cfg.BindFlags()
	flag.Parse()
	if err := cfg.LoadFile(); err != nil {
		logx.Log.Fatal().Err(err).Msg("config file")
	}
	logx.Configure(cfg.LogLevel)

	metrics.Register(prometheus.DefaultRegisterer)
	if cfg.MetricsAddr != "" {
		r := chi.NewRouter()
		r.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, r); err != nil && err != http.ErrServerClosed {
				logx.Log.Error().Err(err).Msg("metrics server")
			}
		}()
	}

	var store *profile.Store
	if cfg.RedisAddr != "" {
		var err error
		store, err = profile.NewStore(cfg.RedisAddr, 24*time.Hour)
		if err != nil {
			logx.Log.Fatal().Err(err).Msg("profile cache")
		}
		defer store.Close()
	}

	b, err := bridge.New(bridge.Config{
		AppID:            cfg.AppID,
		OriginOverride:   cfg.SurfaceOrigin,
		Network:          bridge.Network(cfg.Network),
		Scopes:           cfg.Scopes,
		Timeout:          cfg.Timeout,
		DetectionTimeout: cfg.DetectionTimeout,
		Debug:            cfg.Debug,
		PreferPopup:      cfg.PreferPopup,
	})
	if err != nil {
		logx.Log.Fatal().Err(err).Msg("bridge config")
	}

	idCh := make(chan protocol.Identity, 1)
	endCh := make(chan struct{}, 2)
	b.OnReady(func() {
		logx.Log.Info().Msg("surface ready, complete the ceremony in the opened window")
	})
	b.OnSuccess(func(id protocol.Identity) {
		idCh <- id
	})
	b.OnCancel(func() {
		logx.Log.Warn().Msg("authentication cancelled")
		endCh <- struct{}{}
	})
	b.OnError(func(e *bridge.Error) {
		logx.Log.Error().Str("code", string(e.Code)).Msg(e.Message)
		endCh <- struct{}{}
	})
	b.OnConsentGranted(func(g protocol.ConsentGrant) {
		logx.Log.Info().Strs("scopes", g.Scopes).Msg("consent granted")
	})
	b.OnConsentDenied(func(d protocol.ConsentDenial) {
		logx.Log.Warn().Str("app_id", d.AppID).Msg("consent denied")
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer b.Close()

	if err := b.Open(ctx); err != nil {
		logx.Log.Fatal().Err(err).Msg("open session")
	}

	select {
	case id := <-idCh:
		logx.Log.Info().Str("address", id.Address).Str("nickname", id.Nickname).Msg("authenticated")
		if store != nil {
			if err := store.Save(context.Background(), id); err != nil {
				logx.Log.Error().Err(err).Msg("save profile")
			}
		}
	case <-endCh:
	case <-ctx.Done():
	}
}
