package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/event-booking/internal/auth"
	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/database"
	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/router"
	"github.com/iliyamo/event-booking/internal/service"
)

func main() {
	logger := log.New("server")
	cfg := config.Load()
	if !cfg.IsProduction() {
		logger.SetLevel(log.DEBUG)
	}

	// ── 1. Storage ───────────────────────────────────────────────────────
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer db.Close()
	if cfg.DBAutoSchema {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.ApplySchema(ctx, db)
		cancel()
		if err != nil {
			logger.Fatalf("schema: %v", err)
		}
		logger.Info("schema applied")
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn("redis unavailable: rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	// ── 2. Booking events ────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queueCfg := config.LoadQueueConfig()
	publisher, closePublisher := service.New(queueCfg)
	defer closePublisher()
	if queueCfg.Enabled {
		go func() {
			if err := queue.StartBookingConsumer(ctx, queueCfg); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("booking consumer: %v", err)
			}
		}()
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	users := repository.NewUserRepo(db)
	events := repository.NewEventRepo(db)
	bookings := repository.NewBookingRepo(db, cfg.CodeAttempts)
	tokens := repository.NewTokenRepo(db)

	authn := auth.Chain{auth.DirectoryAuthenticator{Users: users}}
	if cfg.AuthDevUsers {
		if cfg.IsProduction() {
			logger.Warn("AUTH_DEV_FALLBACK ignored in production")
		} else {
			static, err := auth.NewStaticAuthenticator(cfg.BcryptCost)
			if err != nil {
				logger.Fatalf("dev credentials: %v", err)
			}
			authn = append(authn, static)
			logger.Warn("development credentials admin/admin and user/user are enabled")
		}
	}

	h := router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, authn, tokens),
		Events:   handler.NewEventHandler(events, cfg.RequestTimeout),
		Bookings: handler.NewBookingHandler(bookings, publisher, cfg.RequestTimeout),
		Users:    handler.NewUserHandler(users, cfg.BcryptCost, cfg.RequestTimeout),
		Admin:    handler.NewAdminHandler(events, repository.NewSeedRepo(db, cfg.BcryptCost), cfg.RequestTimeout),
		DB:       db,
	}

	// ── 4. HTTP ──────────────────────────────────────────────────────────
	e := echo.New()
	e.HideBanner = true
	e.Logger = logger
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				logger.Errorf("%s %s %d %s: %v", v.Method, v.URI, v.Status, v.Latency, v.Error)
			} else {
				logger.Infof("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			}
			return nil
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	router.Register(e, h, router.Options{
		JWTSecret:   cfg.JWTSecret,
		Redis:       rdb,
		RateLimit:   config.LoadRateLimitConfig(),
		Cache:       config.LoadCacheConfig(),
		SeedEnabled: cfg.SeedEnabled,
	})

	// ── 5. Serve until SIGINT/SIGTERM ────────────────────────────────────
	go func() {
		addr := ":" + cfg.Port
		logger.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
		os.Exit(1)
	}
}
