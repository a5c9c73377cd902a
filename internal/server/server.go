// Package server boots the stall: stores, cache, storage, the change hub
// and the HTTP kernel, with a graceful shutdown when the context ends.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/teastall/teastall/app/repositories"
	"github.com/teastall/teastall/app/routes"
	"github.com/teastall/teastall/app/services"
	"github.com/teastall/teastall/config"
	"github.com/teastall/teastall/internal/kernel"
	"github.com/teastall/teastall/pkg/cache"
	"github.com/teastall/teastall/pkg/database"
	"github.com/teastall/teastall/pkg/logger"
	"github.com/teastall/teastall/pkg/schedule"
	"github.com/teastall/teastall/pkg/sse"
	"github.com/teastall/teastall/pkg/storage"
)

const shutdownTimeout = 5 * time.Second

// OpenStores returns the stores STORE_DRIVER selects. For mongo it connects,
// ensures indexes and, when MONGO_LOG_COLLECTION is set, tees the log into
// that collection. cleanup releases whatever was opened.
func OpenStores(ctx context.Context) (*repositories.Stores, func(), error) {
	if config.StoreDriver() != "mongo" {
		logger.Info("store: using in-memory repositories")
		return repositories.NewMemoryStores(), func() {}, nil
	}

	if err := database.Connect(ctx, config.MongoURI(), config.MongoDatabase()); err != nil {
		return nil, nil, err
	}
	if err := repositories.EnsureIndexes(ctx, database.DB); err != nil {
		_ = database.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("store: indexes: %w", err)
	}

	var sink *logger.MongoHandler
	if name := config.MongoLogCollection(); name != "" {
		sink = logger.NewMongoHandler(database.DB.Collection(name), slog.LevelInfo)
		logger.Tee(sink)
	}
	logger.Info("store: connected to mongo", "database", config.MongoDatabase())

	cleanup := func() {
		if sink != nil {
			sink.Close()
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := database.Disconnect(ctx); err != nil {
			logger.Warn("store: disconnect", "error", err)
		}
	}
	return repositories.NewMongoStores(database.DB), cleanup, nil
}

// Server is a booted process ready to Run.
type Server struct {
	Kernel *kernel.HTTPKernel
	Hub    *sse.Hub
	Stores *repositories.Stores

	sched   *schedule.Scheduler
	cleanup func()
}

// New loads config and boots every dependency. Redis and S3 are optional:
// failing to reach them is logged and the process carries on without them.
func New(ctx context.Context) (*Server, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}

	stores, cleanup, err := OpenStores(ctx)
	if err != nil {
		return nil, err
	}

	if err := cache.Connect(ctx); err != nil {
		logger.Warn("cache: redis unavailable, caching disabled", "error", err)
	}
	storage.Connect(ctx)

	hub := sse.NewHub(sse.DefaultBuffer)
	limiter := cache.NewLimiter(config.RateLimitPerMinute(), time.Minute)

	sched := schedule.New()
	if ml, ok := limiter.(*cache.MemoryLimiter); ok {
		if err := sched.Every("ratelimit.sweep", time.Minute, ml.Sweep); err != nil {
			cleanup()
			return nil, err
		}
	}

	k := kernel.NewHTTPKernel(routes.Deps{
		Stores: stores,
		Hub:    hub,
		Disk:   storage.Default(),
		Orders: services.OrderOptions{
			Strict:        config.StrictTransitions(),
			AtomicPayment: config.AtomicPayment(),
		},
		Heartbeat: config.SSEHeartbeat(),
	}, limiter)

	return &Server{Kernel: k, Hub: hub, Stores: stores, sched: sched, cleanup: cleanup}, nil
}

// Run serves on addr until ctx ends, then closes every event stream and
// drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	schedCtx, stopSched := context.WithCancel(ctx)
	defer func() {
		stopSched()
		s.sched.Wait()
	}()
	s.sched.Start(schedCtx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Kernel.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("teastall listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	// Streams never finish on their own; close them so Shutdown can drain.
	s.Hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// Close releases the stores and the cache connection.
func (s *Server) Close() {
	if err := cache.Close(); err != nil {
		logger.Warn("cache: close", "error", err)
	}
	s.cleanup()
}

// Start boots and serves on APP_PORT until ctx ends.
func Start(ctx context.Context) error {
	s, err := New(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Run(ctx, ":"+config.AppPort())
}
