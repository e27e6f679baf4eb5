package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/firewatch/firewatch/internal/anomaly"
	"github.com/firewatch/firewatch/internal/database"
	"github.com/firewatch/firewatch/internal/notify"
	"github.com/firewatch/firewatch/internal/reminder"
	"github.com/firewatch/firewatch/internal/tasks"
	"github.com/firewatch/firewatch/pkg/config"
	"github.com/firewatch/firewatch/pkg/crypto"
	"github.com/firewatch/firewatch/pkg/queue"
	"github.com/firewatch/firewatch/pkg/util"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting firewatch worker")

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Local zone for reminder calendar math and off-hours detection
	loc, err := time.LoadLocation(cfg.Reminder.Timezone)
	if err != nil {
		logger.Error("invalid REMINDER_TIMEZONE", "zone", cfg.Reminder.Timezone, "error", err)
		os.Exit(1)
	}

	// Decrypts the stored SMTP password when settings exist
	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}

	sender, err := notify.FromSettings(db, encryptor, &cfg.SMTP)
	if err != nil {
		logger.Warn("no usable SMTP transport, reminders will be logged only", "error", err)
		sender = &notify.LogSender{Logger: logger}
	}

	dispatcher := reminder.NewDispatcher(db, sender, logger, loc, cfg.Reminder.SendTimeout())
	detector := anomaly.NewDetector(db, logger, loc)

	// Create Asynq server
	srv := queue.NewServer(&cfg.Redis, 10)

	// Create task handler
	handler := tasks.NewHandler(dispatcher, detector, logger)

	// Register handlers
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Periodic triggers. Overlapping firings are safe: the dispatch claim
	// is a DB unique index, so a duplicate run skips what is already sent.
	scheduler := queue.NewScheduler(&cfg.Redis)
	if err := util.ValidateCronExpr(cfg.Reminder.CronExpr); err != nil {
		logger.Error("invalid REMINDER_CRON", "expr", cfg.Reminder.CronExpr, "error", err)
		os.Exit(1)
	}
	if _, err := scheduler.Register(cfg.Reminder.CronExpr, tasks.NewReminderDispatchTask()); err != nil {
		logger.Error("failed to register reminder dispatch", "error", err)
		os.Exit(1)
	}
	if err := util.ValidateCronExpr(cfg.Anomaly.CronExpr); err != nil {
		logger.Error("invalid ANOMALY_CRON", "expr", cfg.Anomaly.CronExpr, "error", err)
		os.Exit(1)
	}
	anomalyTask, err := tasks.NewAnomalyScanTask(tasks.AnomalyScanPayload{WindowDays: cfg.Anomaly.WindowDays})
	if err != nil {
		logger.Error("failed to build anomaly scan task", "error", err)
		os.Exit(1)
	}
	if _, err := scheduler.Register(cfg.Anomaly.CronExpr, anomalyTask); err != nil {
		logger.Error("failed to register anomaly scan", "error", err)
		os.Exit(1)
	}

	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// Handle shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		scheduler.Shutdown()
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	// Start the server
	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	// Wait for context cancellation
	<-ctx.Done()

	// Close database connection
	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
