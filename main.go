package main

import (
	"context"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/config"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/database"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/handlers"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/logger"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/processors"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/questrade"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/scheduler"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/security"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/services"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/store"
	"golang.org/x/time/rate"
)

var httpLimiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !httpLimiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Portfolio sync engine starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	// Stores
	personStore := store.NewPersonStore(database.DB)
	tokenStore := store.NewTokenStore(database.DB)
	accountStore := store.NewAccountStore(database.DB)
	positionStore := store.NewPositionStore(database.DB)
	balanceStore := store.NewBalanceStore(database.DB)
	activityStore := store.NewActivityStore(database.DB)
	policyStore := store.NewDividendPolicyStore(database.DB)
	runStore := store.NewSyncRunStore(database.DB)

	for _, name := range config.Cfg.SyncPersons {
		if err := personStore.Ensure(name); err != nil {
			logger.L.Error("Failed to seed person", "person", name, "error", err)
		}
	}

	// Brokerage client and market clock
	tokenProvider := questrade.NewTokenProvider(config.Cfg.QuestradeLoginURL, tokenStore)
	client := questrade.NewClient(tokenProvider, config.Cfg.APIRateLimit, config.Cfg.APIRateBurst, config.Cfg.MaxConcurrentAPICalls)

	marketClock, err := scheduler.NewMarketClock(config.Cfg.MarketTimezone, config.Cfg.TimeSourceCacheTTL)
	if err != nil {
		stdlog.Fatalf("failed to initialize market clock: %v", err)
	}

	// Sync engine
	dividendProcessor := processors.NewDividendProcessor(policyStore, positionStore, activityStore)
	candleService := services.NewCandleService(client, positionStore, marketClock, config.Cfg.CandleWindowDays)
	syncService := services.NewSyncService(
		client,
		personStore, accountStore, positionStore, balanceStore, activityStore, runStore,
		dividendProcessor, candleService,
		marketClock,
		config.Cfg.ActivityLookbackDays, config.Cfg.MaxConcurrentSyncs,
	)

	authService := security.NewAuthService(config.Cfg.AdminJWTSecret)

	syncHandler := handlers.NewSyncHandler(syncService, runStore, personStore, accountStore)
	dividendHandler := handlers.NewDividendHandler(policyStore)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Portfolio sync engine is running"})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := database.DB.Ping(); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(authService.Middleware)

		r.Post("/sync/trigger", syncHandler.HandleTriggerSync)
		r.Post("/sync/trigger-all", syncHandler.HandleTriggerSyncAll)
		r.Get("/sync/runs", syncHandler.HandleGetSyncRuns)
		r.Get("/sync/runs/{id}", syncHandler.HandleGetSyncRun)
		r.Get("/sync/stats", syncHandler.HandleGetSyncStats)
		r.Get("/persons", syncHandler.HandleListPersons)

		r.Get("/dividends/policies", dividendHandler.HandleListPolicies)
		r.Get("/dividends/policies/{symbol}", dividendHandler.HandleGetPolicy)
		r.Put("/dividends/policies/{symbol}/override", dividendHandler.HandleSetOverride)
		r.Delete("/dividends/policies/{symbol}/override", dividendHandler.HandleClearOverride)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.Cfg.SchedulerEnabled {
		marketScheduler, err := scheduler.NewScheduler(marketClock, syncService, config.Cfg.MarketOpen, config.Cfg.MarketClose)
		if err != nil {
			stdlog.Fatalf("failed to initialize scheduler: %v", err)
		}
		go marketScheduler.Run(ctx)
	} else {
		logger.L.Info("Market-hours scheduler disabled by configuration")
	}

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // synchronous sync triggers can run long
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.L.Info("Server starting", "address", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			stdlog.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.L.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("Server shutdown error", "error", err)
	}
	logger.L.Info("Server stopped")
}
