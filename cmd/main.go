/**
 * @description
 * This is the main entry point for the uplink-service.
 * It initializes and wires together all the components of the application:
 * configuration, database connection, collaborator clients (billing, streams,
 * identity management), the event producer, the reconciliation sweep, and the
 * HTTP router. Finally, it starts the HTTP server to listen for incoming
 * requests.
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/myscrollr/uplink-service/internal/api"
	"github.com/myscrollr/uplink-service/internal/app"
	"github.com/myscrollr/uplink-service/internal/catalog"
	"github.com/myscrollr/uplink-service/internal/config"
	"github.com/myscrollr/uplink-service/internal/store"
	"github.com/myscrollr/uplink-service/pkg/billingclient"
	"github.com/myscrollr/uplink-service/pkg/logtoclient"
	"github.com/myscrollr/uplink-service/pkg/rabbitmq"
	"github.com/myscrollr/uplink-service/pkg/streamsclient"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load .env in development; ignore absence in production
	_ = godotenv.Load()

	// Load application configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// The catalog is a closed table over closed enums; an incomplete or
	// mispriced table is a build defect and must fail startup.
	if err := catalog.Validate(); err != nil {
		logger.Error("pricing catalog is invalid", "error", err)
		os.Exit(1)
	}

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up channel to listen for OS signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Establish connection to the PostgreSQL database with connection pool configuration
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = 20
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statements so the pool works behind PgBouncer
	// transaction pooling (avoids statement cache errors, SQLSTATE 42P05).
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	if err := store.EnsureSchema(ctx, dbpool); err != nil {
		logger.Error("unable to ensure database schema", "error", err)
		os.Exit(1)
	}

	// Collaborator clients
	billing := billingclient.NewClient(cfg.BillingAPIURL)
	streams := streamsclient.NewClient(cfg.StreamsAPIURL)
	logto := logtoclient.NewClient(logtoclient.Config{
		Endpoint:  cfg.LogtoEndpoint,
		AppID:     cfg.LogtoM2MAppID,
		AppSecret: cfg.LogtoM2MAppSecret,
		Resource:  cfg.LogtoM2MResource,
		RoleID:    cfg.LogtoUplinkRoleID,
	})

	// Event producer; the service degrades to a no-op publisher when no bus
	// is configured.
	var events app.EventPublisher = app.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, cfg.EventsExchange)
		if err != nil {
			logger.Error("unable to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		events = producer
		logger.Info("event producer connected", "exchange", cfg.EventsExchange)
	} else {
		logger.Warn("RABBITMQ_URL not set, subscription events will not be published")
	}

	// Initialize application layers
	repository := store.NewRepository(dbpool)
	prices := catalog.NewPriceTable(cfg.PriceIDs())
	service := app.NewService(repository, billing, streams, logto, events, prices, cfg.LogtoEndpoint, logger)
	handler := api.NewHandler(service, prices)
	auth := api.NewAuthenticator(cfg.LogtoJWKSURL, cfg.LogtoIssuer, cfg.LogtoAudience)
	router := api.NewRouter(handler, auth, strings.Split(cfg.FrontendURL, ","))

	// Start the pending checkout sweep
	jobs := app.NewJobs(service, logto.Token, time.Duration(cfg.CheckoutSweepMaxAgeMin)*time.Minute, logger)
	scheduler := app.NewScheduler(jobs, cfg.CheckoutSweepSchedule, logger)
	scheduler.Start()

	// Configure and start the HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for an OS signal
	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	// Stop scheduling new sweeps and wait for a running one to finish
	<-scheduler.Stop().Done()

	// Create a context with a timeout for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Attempt to gracefully shut down the server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}
