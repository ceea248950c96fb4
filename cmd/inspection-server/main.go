// cmd/inspection-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"fieldservice-inspection/internal/common/config"
	"fieldservice-inspection/internal/common/database"
	"fieldservice-inspection/internal/common/logger"
	"fieldservice-inspection/internal/common/notify"
	"fieldservice-inspection/internal/common/observability"
	"fieldservice-inspection/internal/common/storage"
	"fieldservice-inspection/internal/inspection/definition"
	"fieldservice-inspection/internal/inspection/index"
	"fieldservice-inspection/internal/inspection/session"
	"fieldservice-inspection/internal/inspection/submit"
	"fieldservice-inspection/internal/inspection/ticket"
	"fieldservice-inspection/internal/inspection/token"
	"fieldservice-inspection/internal/inspection/validate"
	"fieldservice-inspection/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting inspection server...")

	obs := observability.New("inspection-server")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Postgres (tickets + questionnaire definitions) ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres init failed", zap.Error(err))
	}
	defer pg.Close()
	err = retryWithBackoff(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return pg.Ping(pingCtx)
	}, 5, 2*time.Second, zapLog, "Postgres connection")
	if err != nil {
		zapLog.Fatal("postgres unavailable", zap.Error(err))
	}

	// --- Redis (public token grants) ---
	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zapLog.Fatal("redis init failed", zap.Error(err))
	}
	defer rdb.Close()
	err = retryWithBackoff(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return rdb.Ping(pingCtx)
	}, 5, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis unavailable", zap.Error(err))
	}

	// --- Elasticsearch (submission index, optional) ---
	var indexer index.Indexer
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			zapLog.Warn("elasticsearch init failed, submissions will not be indexed", zap.Error(err))
		} else {
			indexer = index.NewESIndexer(es, cfg.Database.Elasticsearch.Index, log)
		}
	}

	// --- S3 (photo evidence) ---
	objectStore, err := storage.NewS3Store(ctx, cfg.Storage.S3)
	if err != nil {
		zapLog.Fatal("s3 init failed", zap.Error(err))
	}

	// --- Pendency notifications (optional) ---
	var notifier notify.PendencyNotifier
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		n, err := notify.NewAWSNotifier(ctx, cfg.Notifications, log)
		if err != nil {
			zapLog.Warn("notifier init failed, pendency notices disabled", zap.Error(err))
		} else {
			notifier = n
		}
	}

	validator := &validate.Engine{SignatureMinBytes: cfg.Engine.SignatureMinBytes}

	opener := &session.Opener{
		Tokens:      token.NewRedisResolver(rdb.Client),
		Definitions: definition.NewPostgresStore(pg.DB),
		Tickets:     ticket.NewPostgresStore(pg.DB, log),
		Validator:   validator,
		Logger:      log,
	}

	pipeline := &submit.Pipeline{
		Storage:  objectStore,
		Tickets:  ticket.NewPostgresStore(pg.DB, log),
		Indexer:  indexer,
		Notifier: notifier,
		Obs:      obs,
		Logger:   log,
	}

	srv := server.New(opener, pipeline, cfg.Engine, log, map[string]server.Pinger{
		"postgres": pg,
		"redis":    rdb,
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      srv.Handler(),
		ReadTimeout:  config.GetDuration(cfg.HTTP.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.HTTP.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(ctx, config.GetDuration(cfg.HTTP.ShutdownTimeout))
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}
	zapLog.Info("Shutdown complete")
}
