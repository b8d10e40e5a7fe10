package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lodging-listings/internal/config"
	"github.com/iliyamo/lodging-listings/internal/database"
	"github.com/iliyamo/lodging-listings/internal/geocode"
	"github.com/iliyamo/lodging-listings/internal/handler"
	"github.com/iliyamo/lodging-listings/internal/logger"
	"github.com/iliyamo/lodging-listings/internal/middleware"
	"github.com/iliyamo/lodging-listings/internal/repository"
	"github.com/iliyamo/lodging-listings/internal/router"
	"github.com/iliyamo/lodging-listings/internal/search"
	"github.com/iliyamo/lodging-listings/internal/service"
)

func main() {
	cfg := config.Load()

	lg, closeLog, err := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		FluentHost: cfg.FluentHost,
		FluentPort: cfg.FluentPort,
		FluentTag:  cfg.FluentTag,
	}, os.Stderr)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = closeLog() }()
	slog.SetDefault(lg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		lg.Error("database unavailable", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			lg.Error("schema migration failed", "err", err)
			os.Exit(1)
		}
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		lg.Warn("redis unavailable: rate limiting and geocode cache disabled")
	} else {
		defer rdb.Close()
	}

	repo := repository.NewPropertyRepo(db)
	h := &handler.PropertyHandler{
		Store:           repo,
		Searcher:        search.NewEngine(repo, search.WithDefaultLimit(cfg.SearchResultCap)),
		Widen:           search.WidenPolicy{StepKm: cfg.SearchStepKm, CeilingKm: cfg.SearchCeilingKm},
		DefaultRadiusKm: cfg.SearchRadiusKm,
	}
	if cfg.GeocoderURL != "" {
		client := geocode.NewClient(cfg.GeocoderURL, cfg.GeocoderUserAgent, cfg.GeocoderTimeout)
		h.Geocoder = geocode.NewCached(client, rdb, config.LoadGeocodeCacheConfig())
	}
	if pub := service.NewEventPublisher(cfg.AMQPURL); pub != nil {
		h.Events = pub
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger(lg))
	router.RegisterRoutes(e, db)
	router.RegisterPublic(e, h, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterAuthenticated(e, h, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		lg.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown", "err", err)
	}
}
