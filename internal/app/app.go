// Package app assembles the checkout service: storage, snapshot store,
// collaborator clients, the payment poller, the outbox publisher and both
// HTTP servers, with one graceful-shutdown path for all of them.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chanhduy633/checkout-service/internal/client"
	"github.com/chanhduy633/checkout-service/internal/config"
	"github.com/chanhduy633/checkout-service/internal/division"
	"github.com/chanhduy633/checkout-service/internal/metrics"
	"github.com/chanhduy633/checkout-service/internal/poller"
	"github.com/chanhduy633/checkout-service/internal/publisher"
	"github.com/chanhduy633/checkout-service/internal/repository"
	"github.com/chanhduy633/checkout-service/internal/server"
	"github.com/chanhduy633/checkout-service/internal/service"
	"github.com/chanhduy633/checkout-service/internal/snapshot"
)

type App struct {
	cfg           *config.Config
	repo          *repository.Repository
	redisClient   *redis.Client
	checkout      *service.CheckoutServiceImpl
	outbox        *publisher.OutboxPoller
	httpServer    *http.Server
	metricsServer *http.Server
	mainCtx       context.Context
	mainCancel    context.CancelFunc
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	cred := &repository.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPassword,
		DBName:            cfg.PostgresDB,
		MigrationsDirPath: cfg.MigrationsDirPath,
	}
	repo, err := repository.NewRepository(ctx, cred)
	if err != nil {
		return nil, err
	}
	if err := repo.RunMigrations(cred); err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	snapshots := snapshot.NewRedisStore(redisClient)

	appMetrics := metrics.NewMetrics()

	ordersClient := client.NewOrdersClient(cfg.OrdersBaseURL, 10*time.Second)
	paymentClient := client.NewPaymentClient(cfg.PaymentsBaseURL, 10*time.Second)
	paymentPoller := poller.New(paymentClient, poller.Config{
		Interval:    cfg.PollInterval,
		MaxAttempts: cfg.PollMaxAttempts,
	})

	checkout := service.NewCheckoutService(
		repo,
		snapshots,
		ordersClient,
		paymentPoller,
		division.NewLookup(),
		appMetrics,
		service.BankAccount{
			BankCode:      cfg.BankCode,
			AccountNumber: cfg.BankAccountNumber,
			AccountName:   cfg.BankAccountName,
		},
	)

	srv, err := server.NewServer(checkout, snapshots, appMetrics)
	if err != nil {
		return nil, err
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())

	mainCtx, mainCancel := context.WithCancel(context.Background())

	return &App{
		cfg:           cfg,
		repo:          repo,
		redisClient:   redisClient,
		checkout:      checkout,
		outbox:        publisher.NewOutboxPoller(repo, cfg.KafkaBrokers...),
		httpServer:    &http.Server{Addr: cfg.HTTPPort, Handler: srv.Router},
		metricsServer: &http.Server{Addr: cfg.MetricsPort, Handler: metricsMux},
		mainCtx:       mainCtx,
		mainCancel:    mainCancel,
	}, nil
}

// Run starts the servers and the outbox publisher and blocks until a
// shutdown signal arrives or a component fails.
func (a *App) Run() {
	go a.startMetricsServer()
	go a.startHTTPServer()
	go a.startOutboxPoller()

	slog.Info("Checkout service is running. Press Ctrl+C to exit.")

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-shutdownChan:
		slog.Info("Received shutdown signal.")
	case <-a.mainCtx.Done():
		slog.Warn("Shutting down due to critical error (context cancelled).")
	}

	slog.Info("Shutting down gracefully...")
	a.Shutdown()
}

func (a *App) startHTTPServer() {
	slog.Info("Starting HTTP server", "address", a.cfg.HTTPPort)
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Failed to start HTTP server", "error", err)
		a.mainCancel()
	}
}

func (a *App) startMetricsServer() {
	slog.Info("Starting metrics server", "address", a.cfg.MetricsPort)
	if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Failed to start metrics server", "error", err)
		a.mainCancel()
	}
}

func (a *App) startOutboxPoller() {
	slog.Info("Starting outbox publisher", "brokers", a.cfg.KafkaBrokers)
	a.outbox.Run(a.mainCtx)
	slog.Info("Outbox publisher stopped.")
}

func (a *App) Shutdown() {
	a.mainCancel()

	// Live payment pollers are cancelled first; their checkouts stay
	// AWAITING_PAYMENT in the database and time out on their own schedule.
	a.checkout.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Metrics server shutdown error", "error", err)
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.outbox.Close(); err != nil {
			slog.Error("Outbox writer close error", "error", err)
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.redisClient.Close(); err != nil {
			slog.Error("Redis close error", "error", err)
		}
		if err := a.repo.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	}()

	wg.Wait()
}
