package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dealwatch/internal/adapters/http/api"
	"dealwatch/internal/adapters/notify"
	"dealwatch/internal/adapters/repository"
	app "dealwatch/internal/app"
	"dealwatch/internal/config"
	"dealwatch/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Optional .env for local runs; absence is fine.
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	db, err := gorm.Open(sqlite.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Error(ctx, "failed to open database", logger.String("dsn", cfg.DatabaseDSN), logger.Error(err))
		return
	}
	store := repository.NewGormStore(db)
	if err := store.Migrate(ctx); err != nil {
		log.Error(ctx, "migration failed", logger.Error(err))
		return
	}

	// Redis-backed outbox when configured, in-memory otherwise.
	var dispatcher notify.Dispatcher = notify.NewMemoryDispatcher()
	if cfg.RedisAddr != "" {
		rdb := rd.NewClient(&rd.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error(ctx, "redis unreachable", logger.String("addr", cfg.RedisAddr), logger.Error(err))
			return
		}
		dispatcher = notify.NewRedisDispatcher(rdb, cfg.NotifyStream)
	}

	svc := app.New(cfg, store, dispatcher, app.WithLogger(log))
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}

	mux := http.NewServeMux()
	api.NewServer(svc).Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting ops HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "ops HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "ops HTTP shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "stopped")
}
