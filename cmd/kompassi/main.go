package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kompassi/kompassi/internal/badges"
	"github.com/kompassi/kompassi/internal/config"
	"github.com/kompassi/kompassi/internal/db"
	"github.com/kompassi/kompassi/internal/enrollment"
	"github.com/kompassi/kompassi/internal/httpapi"
	"github.com/kompassi/kompassi/internal/jobs"
	"github.com/kompassi/kompassi/internal/labour"
	"github.com/kompassi/kompassi/internal/logging"
	"github.com/kompassi/kompassi/internal/mailings"
	"github.com/kompassi/kompassi/internal/models"
	"github.com/kompassi/kompassi/internal/observability"
	"github.com/kompassi/kompassi/internal/paikkala"
	"github.com/kompassi/kompassi/internal/programme"
	"github.com/kompassi/kompassi/internal/tasks"
	"github.com/kompassi/kompassi/internal/tg"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Closer()
	logger := lg.Base

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Release)
	if err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db open", zap.Error(err))
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	store := db.New(database)
	if cfg.SeedEvent != "" {
		ev, err := store.SeedDemoEvent(ctx, cfg.SeedEvent, cfg.SeedEvent)
		if err != nil {
			logger.Fatal("seed demo event", zap.Error(err))
		}
		logger.Info("demo event ready", zap.String("event", ev.Slug))
	}

	registry := tasks.NewRegistry()
	var dispatcher tasks.Dispatcher = tasks.Inline{Registry: registry}
	if cfg.RabbitURL != "" {
		rabbit, err := tasks.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange, cfg.RabbitQueue, logger)
		if err != nil {
			logger.Fatal("rabbitmq", zap.Error(err))
		}
		defer rabbit.Close()
		dispatcher = tasks.Queue{Publisher: rabbit, Log: logger}

		consumer := tasks.NewConsumer(rabbit, registry, logger)
		if err := consumer.Start(ctx); err != nil {
			logger.Fatal("task consumer", zap.Error(err))
		}
		defer consumer.Stop()
	}

	badgeSvc := badges.NewService(store, logger)
	labourSvc := labour.NewService(store, logger)
	manager := programme.NewManager(programme.Deps{
		Store:      store,
		Seats:      paikkala.NewProvisioner(store, logger),
		Extras:     labourSvc,
		Badges:     badgeSvc,
		Groups:     store,
		Dispatcher: dispatcher,
		Log:        logger,
	})
	manager.RegisterTasks(registry)

	senders := map[models.Channel]mailings.Sender{
		models.ChannelEmail: mailings.LogSender{Log: logger},
	}
	if cfg.TelegramToken != "" {
		bot, err := tg.New(cfg.TelegramToken)
		if err != nil {
			logger.Fatal("telegram", zap.Error(err))
		}
		logger.Info("telegram channel enabled", zap.String("bot", bot.Self.UserName))
		senders[models.ChannelTelegram] = tg.Sender{Bot: bot}
	}
	mailSvc := mailings.NewService(store, senders, logger)

	runner := jobs.New(ctx, logger)
	var cleaner jobs.BadgeCleaner
	if cfg.IsInstalled("badges") {
		cleaner = badgeSvc
	}
	var resender jobs.MessageResender
	if cfg.IsInstalled("labour") {
		resender = mailSvc
	}
	jobs.Start(runner, jobs.Intervals{
		BadgeCleanup:  cfg.BadgeCleanupInterval,
		MessageResend: cfg.MessageResendInterval,
	}, cleaner, resender)

	srv := httpapi.New(httpapi.Options{
		Apps:        cfg.InstalledApps,
		CORSOrigins: cfg.CORSOrigins,
		Location:    cfg.Location,
	}, httpapi.Deps{
		Events:     store,
		DB:         database,
		Programmes: manager,
		Badges:     badgeSvc,
		Labour:     labourSvc,
		Mailings:   mailSvc,
		Enrollment: enrollment.NewService(store),
		Log:        logger,
	})
	httpapi.Start(ctx, cfg.HTTPAddr, srv.Handler(), logger)
	logger.Info("kompassi started", zap.String("addr", cfg.HTTPAddr), zap.Strings("apps", cfg.InstalledApps))

	<-ctx.Done()
	logger.Info("shutting down")
	runner.Wait()
}
