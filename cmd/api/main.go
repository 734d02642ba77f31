package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/camilavaldes/splitabill-backend/api/routes"
	"github.com/camilavaldes/splitabill-backend/internal/assignments"
	"github.com/camilavaldes/splitabill-backend/internal/groups"
	"github.com/camilavaldes/splitabill-backend/internal/hub"
	"github.com/camilavaldes/splitabill-backend/internal/invoices"
	"github.com/camilavaldes/splitabill-backend/internal/notifications"
	"github.com/camilavaldes/splitabill-backend/internal/payments"
	"github.com/camilavaldes/splitabill-backend/internal/realtime"
	"github.com/camilavaldes/splitabill-backend/internal/sessions"
	"github.com/camilavaldes/splitabill-backend/internal/settlements"
	"github.com/camilavaldes/splitabill-backend/internal/wallets"
	"github.com/camilavaldes/splitabill-backend/pkg/config"
	"github.com/camilavaldes/splitabill-backend/pkg/db"
	"github.com/camilavaldes/splitabill-backend/pkg/enums"
	"github.com/camilavaldes/splitabill-backend/pkg/logger"
	"github.com/camilavaldes/splitabill-backend/pkg/metrics"
	"github.com/camilavaldes/splitabill-backend/pkg/migrate"
	"github.com/camilavaldes/splitabill-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	// Redis is optional: without it the hub runs single-instance with the
	// in-process fabric and readiness skips the redis check.
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	var fabric hub.Fabric = hub.NoopFabric{}
	var redisFabric *hub.RedisFabric
	if cfg.Hub.UseRedisFabric {
		if redisClient == nil {
			logg.Error(context.Background(), "redis fabric requires a redis connection", nil)
			os.Exit(1)
		}
		redisFabric = hub.NewRedisFabric(redisClient, cfg.Hub.FabricChannelPrefix, logg)
		fabric = redisFabric
	}

	sessionHub := hub.New(fabric, logg, metrics.NewHubMetrics(prometheus.DefaultRegisterer))

	sessionService, err := sessions.NewService(sessions.ServiceParams{
		Repo:   sessions.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sessions service", err)
		os.Exit(1)
	}

	assignmentRepo := assignments.NewRepository(dbClient.DB())
	assignmentService, err := assignments.NewService(assignments.ServiceParams{
		Repo:     assignmentRepo,
		Sessions: sessionService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create assignments service", err)
		os.Exit(1)
	}

	groupService, err := groups.NewService(groups.ServiceParams{
		Repo:   groups.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create groups service", err)
		os.Exit(1)
	}

	walletService, err := wallets.NewService(wallets.ServiceParams{
		Repo:            wallets.NewRepository(dbClient.DB()),
		Tx:              dbClient,
		Logger:          logg,
		DefaultCurrency: enums.Currency(cfg.Wallet.DefaultCurrency),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wallets service", err)
		os.Exit(1)
	}

	invoiceRepo := invoices.NewRepository(dbClient.DB())
	invoiceService, err := invoices.NewService(invoices.ServiceParams{
		Repo:        invoiceRepo,
		Memberships: groupService,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create invoices service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Tx:          dbClient,
		Invoices:    invoiceRepo,
		Wallets:     walletService,
		Sessions:    sessionService,
		Assignments: assignmentRepo,
		Memberships: groupService,
		Notifier:    notifications.NewLogNotifier(logg),
		Announcer:   realtime.NewAnnouncer(sessionHub),
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	settlementService, err := settlements.NewService(settlements.ServiceParams{
		Repo:            settlements.NewRepository(dbClient.DB()),
		Payments:        paymentService,
		Invoices:        invoiceService,
		Logger:          logg,
		DefaultCurrency: enums.Currency(cfg.Wallet.DefaultCurrency),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlements service", err)
		os.Exit(1)
	}

	dispatcher, err := realtime.NewDispatcher(realtime.DispatcherParams{
		Hub:         sessionHub,
		Sessions:    sessionService,
		Assignments: assignmentService,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create realtime dispatcher", err)
		os.Exit(1)
	}

	if redisFabric != nil {
		go func() {
			if err := redisFabric.Listen(context.Background(), sessionHub); err != nil {
				logg.Error(context.Background(), "redis fabric listener stopped", err)
			}
		}()
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	var redisPinger redis.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisPinger,
			sessionService,
			groupService,
			walletService,
			invoiceService,
			paymentService,
			settlementService,
			dispatcher,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
