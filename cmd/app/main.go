package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	dbadapter "crosspost/internal/adapters/database"
	"crosspost/internal/adapters/httpapi"
	"crosspost/internal/adapters/platforms"
	redisadapter "crosspost/internal/adapters/redis"
	"crosspost/internal/config"
	postapp "crosspost/internal/core/post/service"
	profileapp "crosspost/internal/core/profile/service"
	scheduledpostapp "crosspost/internal/core/scheduledpost/service"
	userapp "crosspost/internal/core/user/service"
	postPort "crosspost/internal/ports/post"
	"crosspost/internal/ports/trigger"
	"crosspost/internal/workers"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load() // بارگذاری تنظیمات از .env و فایل
	if err != nil {
		// لاگر هنوز ساخته نشده
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Env)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// اتصال به دیتابیس و اجرای مایگریشن‌ها
	db, err := config.OpenDB(cfg, logger)
	if err != nil {
		logger.Fatal("Error connecting to database", zap.Error(err))
	}
	if err := dbadapter.AutoMigrate(db); err != nil {
		logger.Fatal("Error during migrations", zap.Error(err))
	}
	logger.Info("✅ Database migrations completed")

	// Redis برای backend=redis لازم است و برای feed اختیاری
	var rdb *redis.Client
	if cfg.TriggerBackend == "redis" || cfg.RedisAddr != "" {
		rdb, err = config.OpenRedis(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("Error connecting to Redis", zap.Error(err))
		}
	}

	// بستن منابع بعد از اتمام کار سرور
	defer closeResources(logger, db, rdb)

	var triggers trigger.Source
	switch cfg.TriggerBackend {
	case "redis":
		triggers = redisadapter.NewTriggerStoreRedis(rdb, cfg.Engine.LeaseDuration, logger)
	default:
		triggers = dbadapter.NewTriggerStoreDatabase(db, cfg.NodeID, cfg.Engine.LeaseDuration)
	}
	logger.Info("Trigger store selected", zap.String("backend", cfg.TriggerBackend), zap.String("node", cfg.NodeID))

	var feed postPort.RecentFeed
	if rdb != nil {
		feed = redisadapter.NewRecentFeedRedis(rdb, cfg.FeedSize)
	}

	// آداپترهای خروجی
	userRepo := dbadapter.NewUserRepositoryDatabase(db)
	profileRepo := dbadapter.NewProfileRepositoryDatabase(db)
	spRepo := dbadapter.NewScheduledPostRepositoryDatabase(db)
	postRepo := dbadapter.NewPostRepositoryDatabase(db)

	publishers := platforms.NewDefaultRegistry(platforms.Settings{
		XBaseURL:            cfg.Platforms.XBaseURL,
		InstagramBaseURL:    cfg.Platforms.InstagramBaseURL,
		InstagramAPIVersion: cfg.Platforms.InstagramAPIVersion,
		TelegramAPIURL:      cfg.Platforms.TelegramAPIURL,
		RatePerSec:          cfg.Platforms.RatePerSec,
	}, &http.Client{Timeout: cfg.Engine.CallTimeout})

	// یوزکیس/سرویس‌ها
	userSvc := userapp.NewUserService(userRepo, logger)
	profileSvc := profileapp.NewProfileService(profileRepo, userRepo, logger)
	postSvc := postapp.NewPostService(postRepo, feed, profileRepo, publishers, cfg.Engine.CallTimeout, logger)
	spSvc := scheduledpostapp.NewScheduledPostService(spRepo, userRepo, profileRepo, publishers, triggers, cfg.Engine.MaxRetries, logger)

	executor := workers.NewPostExecutor(
		spRepo, profileRepo, publishers, triggers, postSvc,
		workers.Backoff{Base: cfg.Engine.RetryBase, Max: cfg.Engine.RetryMaxDelay, Jitter: cfg.Engine.RetryJitter},
		cfg.Engine.CallTimeout, cfg.Engine.MaxParallelCalls, logger,
	)
	triggerWorker := workers.NewTriggerWorker(triggers, executor.Execute,
		cfg.Engine.BatchSize, cfg.Engine.Workers, cfg.Engine.PollInterval, logger)

	maintenance := workers.NewMaintenance(spRepo, triggers, cfg.Engine.StaleProcessingAfter, logger)
	maintenance.RunOnce(ctx)
	sched, err := maintenance.Start(ctx, cfg.Engine.MaintenanceSchedule)
	if err != nil {
		logger.Fatal("Invalid maintenance schedule", zap.Error(err))
	}

	// اجرای worker در پس‌زمینه
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		triggerWorker.Run(ctx)
	}()

	r := httpapi.SetupRoutes(userSvc, spSvc, profileSvc, postSvc, []byte(cfg.JWTSecret)) // تزریق یوزکیس به آداپتر ورودی
	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("App is running...", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Warn("sd_notify failed", zap.Error(err))
	} else if ok {
		logger.Debug("systemd notified")
	}

	<-ctx.Done()
	logger.Info("Shutting down...")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown", zap.Error(err))
	}
	<-sched.Stop().Done()
	<-workerDone
}

// closeResources بستن اتصالات به Redis و دیتابیس
func closeResources(logger *zap.Logger, db *gorm.DB, rdb *redis.Client) {
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}

	sqlDB, err := db.DB() // گرفتن *sql.DB از *gorm.DB
	if err != nil {
		logger.Error("Error getting raw DB", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Error("Error closing database connection", zap.Error(err))
	}
}
