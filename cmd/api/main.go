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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/gheehive-storefront/api/controllers"
	"github.com/angelmondragon/gheehive-storefront/api/routes"
	"github.com/angelmondragon/gheehive-storefront/internal/auth"
	"github.com/angelmondragon/gheehive-storefront/internal/catalog"
	"github.com/angelmondragon/gheehive-storefront/internal/checkout"
	"github.com/angelmondragon/gheehive-storefront/internal/coupons"
	"github.com/angelmondragon/gheehive-storefront/internal/cron"
	"github.com/angelmondragon/gheehive-storefront/internal/inquiries"
	"github.com/angelmondragon/gheehive-storefront/internal/orders"
	"github.com/angelmondragon/gheehive-storefront/internal/visitor"
	"github.com/angelmondragon/gheehive-storefront/pkg/config"
	"github.com/angelmondragon/gheehive-storefront/pkg/db"
	"github.com/angelmondragon/gheehive-storefront/pkg/logger"
	"github.com/angelmondragon/gheehive-storefront/pkg/metrics"
	"github.com/angelmondragon/gheehive-storefront/pkg/migrate"
	"github.com/angelmondragon/gheehive-storefront/pkg/pubsub"
	"github.com/angelmondragon/gheehive-storefront/pkg/razorpay"
	"github.com/angelmondragon/gheehive-storefront/pkg/redis"
	"github.com/angelmondragon/gheehive-storefront/pkg/storage"
	"github.com/angelmondragon/gheehive-storefront/pkg/strapi"
)

const shutdownTimeout = 15 * time.Second

type orderEvents interface {
	Publish(ctx context.Context, event pubsub.OrderEvent) error
}

type closer interface {
	Close() error
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []closer
	defer func() {
		var errs error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = multierr.Append(errs, closers[i].Close())
		}
		if errs != nil {
			logg.Error(context.Background(), "error closing dependencies", errs)
		}
	}()
	fail := func(msg string, err error) {
		logg.Error(ctx, msg, err)
		stop()
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	storefrontMetrics := metrics.NewStorefront(registry)
	maintenanceMetrics := metrics.NewMaintenance(registry)

	readiness := map[string]controllers.ReadinessCheck{}

	var redisClient *redis.Client
	if cfg.Redis.Configured() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			fail("failed to bootstrap redis", err)
		}
		closers = append(closers, redisClient)
		readiness["redis"] = redisClient.Ping
	}

	var (
		store     storage.Store
		sqlStore  *storage.SQL
		dbClient  *db.Client
		storeKind = cfg.Storage.Backend
	)
	switch storeKind {
	case config.StorageBackendSQL:
		dbClient, err = db.New(ctx, cfg.DB, logg)
		if err != nil {
			fail("failed to bootstrap database", err)
		}
		closers = append(closers, dbClient)
		readiness["database"] = dbClient.Ping
		if err := migrate.MaybeAutoRun(ctx, cfg, logg, dbClient); err != nil {
			fail("failed to run migrations", err)
		}
		sqlStore = storage.NewSQL(dbClient.DB(), cfg.Storage.TTL)
		store = sqlStore
	case config.StorageBackendMemory:
		store = storage.NewMemory(cfg.Storage.TTL)
	default:
		store = storage.NewRedis(redisClient, cfg.Storage.TTL)
	}

	backend, err := strapi.NewClient(cfg.Backend.BaseURL,
		strapi.WithAPIToken(cfg.Backend.APIToken),
		strapi.WithTimeout(cfg.Backend.Timeout),
	)
	if err != nil {
		fail("failed to create backend client", err)
	}

	var gateway *razorpay.Gateway
	if cfg.Razorpay.Enabled() {
		gateway = razorpay.New(cfg.Razorpay)
	} else {
		logg.Warn(ctx, "payment gateway keys missing, online payments disabled")
	}

	var events orderEvents
	if cfg.PubSub.Enabled() {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub, logg)
		if err != nil {
			fail("failed to bootstrap pubsub", err)
		}
		closers = append(closers, pubsubClient)
		readiness["pubsub"] = pubsubClient.Ping
		events = pubsub.NewOrderEvents(pubsubClient.OrdersPublisher())
	}

	pricing, err := checkout.PricingFromConfig(cfg.Checkout)
	if err != nil {
		fail("invalid checkout pricing", err)
	}

	evaluator, err := coupons.NewEvaluator(backend, time.Now)
	if err != nil {
		fail("failed to create coupon evaluator", err)
	}

	var catalogService *catalog.Service
	if redisClient != nil {
		catalogService, err = catalog.NewService(backend, redisClient, cfg.Catalog.CacheTTL, storefrontMetrics, logg)
	} else {
		catalogService, err = catalog.NewService(backend, nil, cfg.Catalog.CacheTTL, storefrontMetrics, logg)
	}
	if err != nil {
		fail("failed to create catalog service", err)
	}

	orderService, err := orders.NewService(backend, events, logg)
	if err != nil {
		fail("failed to create order service", err)
	}

	inquiryService, err := inquiries.NewService(backend)
	if err != nil {
		fail("failed to create inquiry service", err)
	}

	authService, err := auth.NewService(auth.ServiceParams{Backend: backend, Logger: logg})
	if err != nil {
		fail("failed to create auth service", err)
	}

	visitorParams := visitor.Params{
		Backend:  backend,
		Coupons:  evaluator,
		Storage:  store,
		Pricing:  pricing,
		Gateway:  gateway,
		Events:   events,
		Checkout: cfg.Checkout,
		IdleTTL:  cfg.Visitor.IdleTTL,
		Metrics:  storefrontMetrics,
		Logger:   logg,
	}
	if redisClient != nil {
		visitorParams.Locker = redisClient
	}
	workspaces, err := visitor.NewRegistry(visitorParams)
	if err != nil {
		fail("failed to create visitor registry", err)
	}

	evictionJob, err := cron.NewVisitorEvictionJob(workspaces)
	if err != nil {
		fail("failed to create eviction job", err)
	}
	cronParams := cron.ServiceParams{
		Logger:  logg,
		Jobs:    []cron.Job{evictionJob},
		Metrics: maintenanceMetrics,
	}
	if sqlStore != nil {
		purgeJob, err := cron.NewClientStatePurgeJob(sqlStore, logg)
		if err != nil {
			fail("failed to create purge job", err)
		}
		cronParams.Shared = []cron.Job{purgeJob}
	}
	if redisClient != nil {
		cronParams.Locker = redisClient
	}
	maintenance, err := cron.NewService(cronParams)
	if err != nil {
		fail("failed to create maintenance service", err)
	}

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"storage": storeKind,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:     cfg,
			Logger:     logg,
			Redis:      redisClient,
			Gatherer:   registry,
			Metrics:    storefrontMetrics,
			Readiness:  readiness,
			Workspaces: workspaces,
			Auth:       authService,
			Catalog:    catalogService,
			Orders:     orderService,
			Inquiries:  inquiryService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := maintenance.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "maintenance loop stopped unexpectedly", err)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting storefront api")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fail("api server stopped unexpectedly", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}
	logg.Info(context.Background(), "storefront api stopped")
}
