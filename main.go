package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"potluck/accounts"
	"potluck/aiparse"
	"potluck/assignments"
	"potluck/auth"
	"potluck/callable"
	"potluck/clock"
	"potluck/config"
	"potluck/events"
	"potluck/importer"
	"potluck/logging"
	"potluck/menu"
	"potluck/middleware"
	"potluck/mq"
	"potluck/presets"
	"potluck/printout"
	"potluck/ratelim"
	"potluck/rdx"
	"potluck/realtime"
	"potluck/routes"
	"potluck/store"
	"potluck/store/memstore"
	"potluck/store/mongostore"
)

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "memory":
		slog.Warn("Using in-memory store; data is lost on restart")
		return memstore.New(), nil
	default:
		return mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
	}
}

func openBus(ctx context.Context, cfg config.Config) (mq.Bus, error) {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set; change notices stay in process")
		return mq.NewLocalBus(), nil
	}
	conn, err := rdx.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return mq.NewRedisBus(conn), nil
}

func newGenerator(ctx context.Context, cfg config.Config) aiparse.Generator {
	if cfg.GeminiAPIKey == "" {
		slog.Warn("GEMINI_API_KEY not set; shopping list parsing is disabled")
		return nil
	}
	gen, err := aiparse.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		slog.Error("Gemini client unavailable", "error", err)
		return nil
	}
	return gen
}

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	base, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	bus, err := openBus(ctx, cfg)
	if err != nil {
		slog.Error("Failed to connect message bus", "error", err)
		os.Exit(1)
	}
	st := store.WithChanges(base, mq.Changes{Bus: bus})
	clk := clock.NewSystem()

	feed := realtime.NewFeed(st)
	if err := feed.Run(ctx, bus); err != nil {
		slog.Error("Failed to start realtime feed", "error", err)
		os.Exit(1)
	}
	hub := realtime.NewHub(feed)
	go hub.Run()

	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL, clk)
	items := menu.NewService(st, clk)
	limiter := ratelim.NewRateLimiter(60)

	registry := callable.NewRegistry()
	aiparse.NewService(newGenerator(ctx, cfg), ratelim.NewRateLimiter(cfg.AIRatePerMinute)).Register(registry)
	accts := accounts.NewService(st, bus, cfg.SuperAdminUID)
	accts.Register(registry)
	if err := accts.StartCleanupWorker(ctx); err != nil {
		slog.Error("Failed to start account cleanup worker", "error", err)
		os.Exit(1)
	}

	router := httprouter.New()
	routes.RoutesWrapper(router, routes.Deps{
		Limiter:     limiter,
		Authn:       middleware.NewAuthenticator(tokens),
		Auth:        auth.NewHandlers(auth.NewService(st, tokens, clk)),
		Events:      events.NewHandlers(events.NewService(st, clk)),
		Menu:        menu.NewHandlers(items),
		Assignments: assignments.NewHandlers(assignments.NewService(st, items, clk)),
		Importer:    importer.NewHandlers(importer.NewService(st, items, clk)),
		Presets:     presets.NewHandlers(presets.NewService(st, items, clk)),
		Print:       printout.NewHandlers(st, cfg.PublicBaseURL),
		Callables:   registry,
		Hub:         hub,
	})

	// CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)
	handler := middleware.RequestLogger(middleware.SecurityHeaders(corsHandler))

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}
	server.RegisterOnShutdown(func() {
		slog.Info("Shutting down realtime hub")
		hub.Stop()
	})

	go func() {
		slog.Info("Server listening", "addr", cfg.Port, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ListenAndServe failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutdown signal received; shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
	if err := bus.Close(); err != nil {
		slog.Warn("Closing message bus", "error", err)
	}
	if err := st.Close(shutdownCtx); err != nil {
		slog.Warn("Closing store", "error", err)
	}
	slog.Info("Server stopped cleanly")
}
