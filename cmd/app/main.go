// File: cmd/app/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-storefront-bot/internal/application"
	"telegram-storefront-bot/internal/config"
	pg "telegram-storefront-bot/internal/infra/db/postgres"
	"telegram-storefront-bot/internal/infra/i18n"
	"telegram-storefront-bot/internal/infra/logging"
	"telegram-storefront-bot/internal/infra/metrics"
	red "telegram-storefront-bot/internal/infra/redis"
	"telegram-storefront-bot/internal/infra/sched"
	tele "telegram-storefront-bot/internal/infra/telegram"
	"telegram-storefront-bot/internal/infra/web"
	"telegram-storefront-bot/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	if err := pg.Migrate(cfg.Database.URL); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second, metrics.SetDBPoolStats)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	userRepo := pg.NewPostgresUserRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	stateRepo := pg.NewStateRepoCacheDecorator(pg.NewStateRepo(pool), redisClient, cfg.Redis.TTL.Std())
	txm := pg.NewTxManager(pool)

	// ---- i18n ----
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "ru")
	if err != nil {
		logger.Fatal().Err(err).Msg("translator init failed")
	}

	// ---- Telegram adapter ----
	bot, err := tele.NewBot(&cfg.Bot, rateLimiter, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram init failed")
	}

	// ---- Use cases ----
	userUC := usecase.NewUserUseCase(userRepo, paymentRepo, stateRepo, txm, logger)
	convUC := usecase.NewConversationUseCase(stateRepo, cfg.Store.Plans, logger)
	payUC := usecase.NewPaymentUseCase(paymentRepo, userRepo, stateRepo, txm, logger)
	adminUC := usecase.NewAdminUseCase(cfg.Bot.AdminChatID, logger)
	statsUC := usecase.NewStatsUseCase(userRepo, paymentRepo, logger)
	bcastUC := usecase.NewBroadcastUseCase(userUC, bot, cfg.Bot.AdminChatID, cfg.Broadcast.Pace.Std(), cfg.Broadcast.SendTimeout.Std(), logger)

	// ---- Facade ----
	facade := application.NewBotFacade(userUC, convUC, payUC, bcastUC, statsUC, adminUC, bot, tr, cfg.Store, logger)
	bot.AttachFacade(facade)

	go func() {
		if err := bot.StartPolling(ctx); err != nil {
			logger.Error().Err(err).Msg("telegram polling stopped")
		}
	}()

	// ---- Ops server ----
	ready := func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}
	srv := web.NewServer(cfg.Ops.Port, statsUC, ready, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("ops server stopped")
		}
	}()

	// ---- Pending screenshot reminder ----
	reminder := sched.NewPendingReminder(convUC, payUC, bot, tr, cfg.Bot.AdminChatID, cfg.Scheduler.PendingMaxAge.Std(), logger)
	if err := reminder.Start(cfg.Scheduler.PendingReminderCron); err != nil {
		logger.Fatal().Err(err).Msg("reminder schedule failed")
	}

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	cancel()
	bot.StopPolling()
	reminder.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("ops server shutdown failed")
	}
}
