package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-redis/redis/v8"

	"todolist/internal/api"
	"todolist/internal/clock"
	"todolist/internal/config"
	"todolist/internal/logging"
	"todolist/internal/notify"
	"todolist/internal/repository"
	"todolist/internal/service"
)

const jobTimeout = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", "err", err)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("todolist stopped with error", "err", err)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	store, closer, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	todoSvc := service.NewTodoService(store, clock.System{}, logger)
	handler := api.NewHandler(todoSvc, logger)

	srv := &http.Server{
		Handler:           api.NewRouter(handler, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sweep := func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := todoSvc.SweepPastDue(jobCtx); err != nil {
			logger.Error("past due sweep failed", "err", err)
		}
	}
	sweep()

	scheduler := service.NewSchedulerService(time.UTC, logger)
	if _, err := scheduler.ScheduleInterval(cfg.SweepInterval, sweep); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	if cfg.NotificationsEnabled() {
		if err := scheduleReports(cfg, scheduler, todoSvc, logger); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore returns the repository selected by cfg and a closer for its connection.
func openStore(ctx context.Context, cfg config.Config, logger *log.Logger) (service.TodoStore, io.Closer, error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		logger.Info("using redis storage", "addr", cfg.RedisAddr)
		return repository.NewRedisTodoRepository(client), client, nil
	default:
		db, err := repository.NewDB(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("db: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("db: %w", err)
		}
		logger.Info("using sqlite storage", "dsn", cfg.DatabaseURL)
		return repository.NewTodoRepository(db), sqlDB, nil
	}
}

func scheduleReports(cfg config.Config, scheduler *service.SchedulerService, items service.ItemLister, logger *log.Logger) error {
	reports := service.NewReportService(items, clock.System{})
	notifier, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, reports, logger)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	job := func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := notifier.SendReport(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("report", "err", err)
		}
	}

	if cfg.ReportAt != "" {
		_, err = scheduler.ScheduleDaily(cfg.ReportAt, job)
	} else {
		_, err = scheduler.ScheduleInterval(cfg.ReportInterval, job)
	}
	if err != nil {
		return fmt.Errorf("schedule reports: %w", err)
	}
	return nil
}
