// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/stay-booking/internal/auth"
	"github.com/Shivanand-hulikatti/stay-booking/internal/config"
	"github.com/Shivanand-hulikatti/stay-booking/internal/database"
	"github.com/Shivanand-hulikatti/stay-booking/internal/events"
	"github.com/Shivanand-hulikatti/stay-booking/internal/handler"
	"github.com/Shivanand-hulikatti/stay-booking/internal/notify"
	"github.com/Shivanand-hulikatti/stay-booking/internal/repository"
	"github.com/Shivanand-hulikatti/stay-booking/internal/service"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const serviceName = "stay-booking"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.EnableTracing {
		os.Setenv("AWS_XRAY_CONTEXT_MISSING", "LOG_ERROR")
	}

	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()
	log.Println("✓ Connected to PostgreSQL")

	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.Println("✓ Schema up to date")
	}

	// ── 2. Optional side channels ────────────────────────────────────────
	opts := []service.Option{service.WithSideEffectTimeout(cfg.NotifyTimeout)}

	var changes handler.ChangeSubscriber
	if cfg.RedisURL != "" {
		rdb, err := events.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		opts = append(opts, service.WithChangePublisher(events.NewPublisher(rdb)))
		changes = events.NewSubscriber(rdb)
		log.Println("✓ Connected to Redis, live calendar updates enabled")
	}

	if !cfg.IsLocal() && cfg.StateMachineARN != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			log.Fatalf("aws config: %v", err)
		}
		opts = append(opts, service.WithNotifier(notify.NewSFNDispatcher(sfn.NewFromConfig(awsCfg), cfg.StateMachineARN)))
		log.Println("✓ Notifications go to Step Functions")
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	roomRepo := repository.NewRoomRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	blockRepo := repository.NewBlockRepository(pool)
	bookingSvc := service.NewBookingService(roomRepo, bookingRepo, blockRepo, opts...)
	bookingHandler := handler.NewBookingHandler(bookingSvc, auth.NewIssuer(cfg.JWTSecret), changes)

	// ── 4. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(handler.Logger)
	r.Use(handler.CORS(cfg.AllowedOrigins))

	r.Mount("/", bookingHandler.Routes(cfg.AdminKey))

	var root http.Handler = r
	if cfg.EnableTracing {
		root = xray.Handler(xray.NewFixedSegmentNamer(serviceName), r)
	}

	// ── 5. Start server with graceful shutdown ────────────────────────────
	// Shutdown does not wait for open event streams; cancelling the base
	// context ends them. The stream route also clears its write deadline.
	baseCtx, stopStreams := context.WithCancel(ctx)
	defer stopStreams()
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      root,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	srv.RegisterOnShutdown(stopStreams)

	go func() {
		log.Printf("✓ Server listening on http://localhost:%s (%s)", cfg.Port, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	bookingSvc.Wait()
	log.Println("server stopped")
}
