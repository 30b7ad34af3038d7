package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/example/mavi-boutique/internal/api"
	"github.com/example/mavi-boutique/internal/api/middleware"
	"github.com/example/mavi-boutique/internal/auth"
	"github.com/example/mavi-boutique/internal/boutique"
	"github.com/example/mavi-boutique/internal/command"
	"github.com/example/mavi-boutique/internal/config"
	"github.com/example/mavi-boutique/internal/infrastructure/backend"
	"github.com/example/mavi-boutique/internal/infrastructure/store"
	"github.com/example/mavi-boutique/internal/live"
	"github.com/example/mavi-boutique/internal/logger"
	"github.com/example/mavi-boutique/internal/query"
	"go.uber.org/zap"
)

func main() {
	config.LoadDotEnv()
	if err := logger.Init(os.Getenv("APP_ENV") == "development"); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.L().Named("api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	log.Info("starting Mavi Boutique",
		zap.String("state_backend", cfg.StateBackend),
		zap.String("state_key", cfg.StateKey),
		zap.String("event_sink", cfg.EventSink),
		zap.Int("admin_ids", len(cfg.AdminIDs)),
		zap.Bool("local_admin", cfg.LocalAdmin),
	)
	if cfg.TelegramToken == "" && !cfg.LocalAdmin {
		log.Warn("TELEGRAM_BOT_TOKEN is empty and AUTH_LOCAL_ADMIN is off, nobody can open a session")
	}

	// State backend
	stateStore, closeState, err := backend.OpenStateStore(ctx, cfg, log.Named("backend"))
	if err != nil {
		log.Fatal("failed to open state backend", zap.Error(err))
	}
	defer closeState()

	// Events: live admin feed plus the configured external sink
	hub := live.NewHub(log.Named("live"), cfg.AllowedOrigins...)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()

	forwarders, closeForwarders, err := backend.Forwarders(ctx, cfg, log.Named("events"))
	if err != nil {
		log.Fatal("failed to set up event sink", zap.Error(err))
	}
	defer closeForwarders()
	events := store.NewEventStream(append(forwarders, hub)...)

	boutiqueStore, err := boutique.Open(ctx, stateStore, cfg.StateKey, events, log.Named("store"))
	if err != nil {
		log.Fatal("failed to load state", zap.Error(err))
	}

	// Initialize handlers
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.SessionTTL)
	cmdHandler := command.NewHandler(boutiqueStore)
	queryHandler := query.NewHandler(boutiqueStore)

	var verifier *auth.TelegramVerifier
	if cfg.TelegramToken != "" {
		verifier = auth.NewTelegramVerifier(cfg.TelegramToken, cfg.InitDataMaxAge)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, log.Named("ratelimit"))
	if err := limiter.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Fatal("invalid TRUSTED_PROXIES", zap.Error(err))
	}

	router := api.NewRouter(api.RouterConfig{
		Handlers: api.NewHandlers(cmdHandler, queryHandler, log.Named("http")),
		SessionHandlers: api.NewSessionHandlers(cmdHandler, queryHandler, api.SessionConfig{
			JWTService: jwtService,
			Verifier:   verifier,
			AllowList:  auth.ParseAllowList(strings.Join(cfg.AdminIDs, ",")),
			LocalAdmin: cfg.LocalAdmin,
			Logger:     log.Named("session"),
		}),
		JWTService: jwtService,
		Hub:        hub,
		Limiter:    limiter,
		Logger:     log.Named("http"),
		WebDir:     cfg.WebDir,
	})

	// Start HTTP server
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server started", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", zap.Error(err))
	}

	cancel() // stop the hub
	wg.Wait()
}
