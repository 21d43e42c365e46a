package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"

	"github.com/betaione/telegram-bind/internal/bind"
	"github.com/betaione/telegram-bind/internal/database"
	apperrors "github.com/betaione/telegram-bind/internal/errors"
	"github.com/betaione/telegram-bind/internal/health"
	"github.com/betaione/telegram-bind/internal/jobs"
	jobhandlers "github.com/betaione/telegram-bind/internal/jobs/handlers"
	"github.com/betaione/telegram-bind/internal/lifecycle"
	"github.com/betaione/telegram-bind/internal/ratelimit"
	"github.com/betaione/telegram-bind/internal/repository"
	"github.com/betaione/telegram-bind/internal/server"
	"github.com/betaione/telegram-bind/internal/session"
	"github.com/betaione/telegram-bind/internal/telegram"
	"github.com/betaione/telegram-bind/pkg/config"
	"github.com/betaione/telegram-bind/pkg/graceful"
	"github.com/betaione/telegram-bind/pkg/logger"
	pkgredis "github.com/betaione/telegram-bind/pkg/redis"

	_ "github.com/lib/pq"
)

const defaultShutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("service exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return err
	}

	log, lvl := logger.New(*cfg)
	slog.SetDefault(log)
	config.WatchLogLevel(v, lvl, log)

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.AppEnv,
		}); err != nil {
			log.Warn("sentry init failed", slog.Any("error", err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	log.Info("starting telegram bind service",
		slog.String("env", cfg.AppEnv),
		slog.String("http_port", cfg.Server.Port),
		slog.String("log_level", cfg.Logger.Level),
	)

	shutdown := lifecycle.NewShutdown(log)

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	shutdown.Register("database", func(context.Context) error { return db.Close() })

	if err := db.PingContext(ctx); err != nil {
		return err
	}

	migrationsDir := cfg.Database.MigrationsDir
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}
	if err := database.NewMigrator(db, log).ApplyDir(ctx, migrationsDir); err != nil {
		return err
	}
	log.Info("database migrations applied")

	checker := health.NewChecker(log)
	checker.AddCheck("postgres", health.NewDBChecker(db))

	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter(log)
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		shutdown.Register("redis", func(context.Context) error { return redisClient.Close() })

		limiter = ratelimit.NewRedisLimiter(redisClient.Client, log)
		checker.AddCheck("redis", health.NewRedisChecker(redisClient.Client))
	}

	repo := repository.NewBindRepository(db, log)

	var notifier bind.Notifier
	var bot *telegram.Bot
	if cfg.Bot.Token != "" {
		bot, err = telegram.New(cfg.Bot, log, repo)
		if err != nil {
			return err
		}

		go bot.Start()
		shutdown.Register("telegram_bot", func(context.Context) error {
			bot.Stop()
			return nil
		})

		notifier = telegram.NewNotifier(bot.Telebot(), log)
		checker.AddCheck("telegram", health.NewTelegramChecker(bot.Telebot()))
	}

	svc := bind.NewService(repo, notifier, log, bind.Config{
		TokenTTL:    cfg.Bind.TokenTTL,
		TokenLength: cfg.Bind.TokenLength,
		StateLength: cfg.Bind.StateLength,
	})

	sessions := session.NewJWTProvider(cfg.Session.JWTSecret, cfg.Session.CookieName, log)
	errHandler := apperrors.NewHandler(log, cfg.Sentry.Enabled)

	if cfg.Redis.Enabled && cfg.Bind.CleanupSchedule != "" {
		redisOpt := asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}

		worker := jobs.NewWorker(redisOpt, log)
		worker.RegisterHandler(jobs.TaskTypeTokenCleanup, jobhandlers.NewTokenCleanupHandler(repo, log))
		go func() {
			if err := worker.Run(); err != nil {
				log.Error("jobs worker stopped", slog.Any("error", err))
			}
		}()
		shutdown.Register("jobs_worker", func(context.Context) error {
			worker.Shutdown()
			return nil
		})

		scheduler := jobs.NewScheduler(redisOpt, log)
		if err := scheduler.RegisterTasks(cfg.Bind.CleanupSchedule, cfg.Bind.CleanupRetain); err != nil {
			return err
		}
		scheduler.Run()
		shutdown.Register("jobs_scheduler", func(context.Context) error {
			scheduler.Shutdown()
			return nil
		})
	}

	router := server.NewRouter(*cfg, log, server.Deps{
		Bind:    server.NewBindHandler(svc, sessions, errHandler, log),
		QR:      server.NewQRHandler(cfg.Bot.Username, log),
		Checker: checker,
		Limiter: limiter,
	})

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	srv := graceful.NewServer(log, server.New(*cfg, router), shutdownTimeout)
	serveErr := srv.ListenAndServe(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
	}

	log.Info("telegram bind service stopped")

	return serveErr
}
