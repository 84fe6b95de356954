package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"readinglab-backend/internal/config"
	"readinglab-backend/internal/database"
	"readinglab-backend/internal/directory"
	"readinglab-backend/internal/eventlog"
	"readinglab-backend/internal/handlers"
	"readinglab-backend/internal/middleware"
	"readinglab-backend/internal/repository"
	"readinglab-backend/internal/router"
	"readinglab-backend/internal/services"
	"readinglab-backend/internal/session"
	"readinglab-backend/internal/websocket"
	"readinglab-backend/internal/worker"
)

var envFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "readinglab-server",
		Short:         "Reading study activity server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file")
	rootCmd.AddCommand(newTokenCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// openDirectory connects to Postgres when DATABASE_URL is set and falls back
// to the seeded in-memory study otherwise. The returned func releases it.
func openDirectory(cfg *config.Config) (directory.Directory, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Println("✓ Using in-memory directory (demo study)")
		return directory.NewSeeded(), func() {}, nil
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	log.Println("✓ PostgreSQL connected")

	applied, err := database.RunMigrations(ctx, pool, "migrations")
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	log.Printf("✓ Database schema up to date (%d migrations applied)", len(applied))

	dir := directory.NewPostgres(
		repository.NewUserRepo(pool),
		repository.NewMaterialRepo(pool),
		repository.NewFormRepo(pool),
	)
	return dir, pool.Close, nil
}

func serve() error {
	log.Println("🚀 Starting ReadingLab Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load(envFile)
	log.Println("✓ Environment variables loaded")

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("STATS_TIMEZONE: %w", err)
	}

	// ──── Step 2: Activity Log ────
	store := eventlog.New()
	log.Println("✓ Activity log ready")

	// ──── Step 3: Directory ────
	dir, closeDir, err := openDirectory(cfg)
	if err != nil {
		return err
	}
	defer closeDir()

	// ──── Step 4: Redis (optional) ────
	var redisClients *database.RedisClients
	if cfg.RedisURL != "" {
		redisClients, err = database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisClients.Close()
		log.Println("✓ Redis connected")
	}

	// ──── Step 5: WebSocket Hub ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	wsHub := websocket.NewHub(redisClients, jwtAuth.ParseToken)
	unsubscribeHub := store.Subscribe(wsHub.Observe)
	defer unsubscribeHub()
	go wsHub.Run(hubCtx)
	log.Println("✓ WebSocket hub started")

	// ──── Step 6: Sessions ────
	sessions := session.NewManager(store, cfg.SessionIdleTimeout)
	reaper := worker.NewReaper(sessions, time.Minute)
	if cfg.SessionIdleTimeout > 0 {
		reaper.Start()
	}

	// ──── Step 7: AI Assistant (optional) ────
	var assistant handlers.ReaderAssistant
	if cfg.GeminiAPIKey != "" {
		a, err := services.NewAssistant(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
		if err != nil {
			return fmt.Errorf("gemini: %w", err)
		}
		defer a.Close()
		assistant = a
		log.Printf("✓ Gemini assistant initialized (%s)", cfg.GeminiModel)
	} else {
		log.Println("✓ Gemini assistant disabled (no GEMINI_API_KEY)")
	}

	// ──── Step 8: HTTP Server ────
	var authHandler *handlers.AuthHandler
	if cfg.Env != "production" {
		authHandler = handlers.NewAuthHandler(dir, jwtAuth, sessions, store, 24*time.Hour)
		log.Println("✓ Study sign-in enabled (/api/v1/auth/login)")
	}

	r := router.New(
		jwtAuth,
		authHandler,
		handlers.NewActivityHandler(store, dir),
		handlers.NewStatsHandler(store, dir, loc),
		handlers.NewSessionHandler(sessions, dir, assistant),
		handlers.NewAdminHandler(dir, store),
		handlers.NewHealthHandler(store, sessions, wsHub),
		wsHub,
		cfg.FrontendURL,
		cfg.ActivityPerMinute,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)

		if cfg.SessionIdleTimeout > 0 {
			reaper.Stop()
		}
		n := sessions.CloseAll()
		log.Printf("✓ Closed %d open reading sessions", n)
		stopHub()
	}()

	log.Printf("✓ ReadingLab Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	<-shutdownDone
	return nil
}
