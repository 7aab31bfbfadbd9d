// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"subscription-commerce/internal/config"
	"subscription-commerce/internal/domain/ports/adapter"
	"subscription-commerce/internal/domain/ports/repository"
	"subscription-commerce/internal/infra/adapters/notify"
	payAdapters "subscription-commerce/internal/infra/adapters/payment"
	"subscription-commerce/internal/infra/api"
	"subscription-commerce/internal/infra/api/apiv1"
	pg "subscription-commerce/internal/infra/db/postgres"
	"subscription-commerce/internal/infra/logging"
	"subscription-commerce/internal/infra/metrics"
	red "subscription-commerce/internal/infra/redis"
	"subscription-commerce/internal/infra/sched"
	"subscription-commerce/internal/infra/security"
	"subscription-commerce/internal/infra/worker"
	"subscription-commerce/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	tm := pg.NewTxManager(pool)
	userRepo := pg.NewUserRepo(pool)
	refundRepo := pg.NewRefundRepo(pool)
	var paymentRepo repository.PaymentRepository = pg.NewPaymentRepo(pool)
	serviceRepo := pg.NewServiceRepoCacheDecorator(pg.NewServiceRepo(pool), cfg.Catalog.CacheTTL)

	// ---- Redis (optional) ----
	var (
		locker  adapter.Locker
		limiter *red.RateLimiter
	)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		paymentRepo = pg.NewPaymentRepoCacheDecorator(paymentRepo, redisClient, cfg.Redis.TTL)
		locker = red.NewLocker(redisClient)
		limiter = red.NewRateLimiter(redisClient)
	} else {
		logger.Warn().Msg("redis disabled: no payment cache, no distributed locks, no rate limits")
	}

	// ---- Gateway ----
	var gateway adapter.PaymentGateway
	switch cfg.Gateway.Name {
	case "noop":
		logger.Warn().Msg("gateway=noop: refunds are accepted locally and never reach a processor")
		gateway = payAdapters.NewNoopPaymentGateway()
	default:
		rz, err := payAdapters.NewRazorpayGateway(cfg.Gateway)
		if err != nil {
			logger.Fatal().Err(err).Msg("gateway")
		}
		gateway = rz
	}
	verifier := security.NewHMACVerifier(cfg.Gateway.KeySecret, cfg.Gateway.WebhookSecret)

	// ---- Notifications ----
	notifyPool := worker.NewPool(cfg.Notify.Workers, cfg.Notify.Queue, logger)
	notifyPool.Start(ctx)
	defer notifyPool.Stop()

	var channels []notify.Channel
	if cfg.Notify.SMTP.Host != "" {
		email, err := notify.NewEmailNotifier(cfg.Notify.SMTP, cfg.Finance.Exponent)
		if err != nil {
			logger.Fatal().Err(err).Msg("smtp notifier")
		}
		channels = append(channels, email)
	}
	if cfg.Notify.Telegram.Token != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Notify.Telegram.Token, userRepo, cfg.Finance.Exponent)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram notifier")
		}
		channels = append(channels, tg)
	}
	var notifier adapter.Notifier = notify.NoopNotifier{}
	if len(channels) > 0 {
		notifier = notify.NewAsyncNotifier(notify.NewMultiNotifier(logger, channels...), notifyPool, cfg.Notify.Timeout)
	}

	// ---- Use cases ----
	clock := adapter.SystemClock{}
	catalogUC := usecase.NewCatalogUseCase(serviceRepo, logger)
	lifecycle := usecase.NewLifecycleManager(cfg.Lifecycle.GracePeriodHours)
	subUC := usecase.NewSubscriptionUseCase(userRepo, catalogUC, lifecycle, notifier, locker, clock, usecase.SubscriptionOptions{
		MaxWriteRetries: cfg.Lifecycle.MaxWriteRetries,
		LockTTL:         cfg.Lifecycle.UserLockTTL,
		SweepLockTTL:    cfg.Lifecycle.SweepLockTTL,
	}, logger)
	ledger := metrics.InstrumentLedger(usecase.NewRefundLedger(tm, paymentRepo, refundRepo, gateway, notifier, clock, logger))
	recon := usecase.NewReconciliationEngine(verifier, ledger, logger)
	paymentUC := metrics.InstrumentPayments(usecase.NewPaymentUseCase(paymentRepo, catalogUC, subUC, verifier, clock, logger))
	financeUC := usecase.NewFinancialAggregator(paymentRepo, refundRepo, cfg.Finance.Currency, cfg.Finance.Exponent, logger)

	// ---- HTTP ----
	apiSrv := apiv1.NewServer(apiv1.Deps{
		Payments:      paymentUC,
		Subscriptions: subUC,
		Ledger:        ledger,
		Recon:         recon,
		Finance:       financeUC,
		Catalog:       catalogUC,
		Auth:          apiv1.NewAuthManager(cfg.Admin),
		Clock:         clock,
	}, logger)
	router := api.NewRouter(cfg.HTTP, api.RouterDeps{
		API:     apiSrv,
		Limiter: limiter,
		Ready:   func(ctx context.Context) error { return pool.Ping(ctx) },
	}, logger)
	server := api.NewServer(cfg.HTTP, router, logger)

	errc := make(chan error, 1)
	go func() { errc <- server.Start() }()

	// ---- Lifecycle sweep ----
	sweeper := sched.NewSweepWorker(cfg.Lifecycle.SweepInterval, subUC, logger)
	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("sweep worker stopped")
		}
	}()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errc:
		if err != nil {
			logger.Error().Err(err).Msg("http server failed")
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	logger.Info().Msg("bye")
}
