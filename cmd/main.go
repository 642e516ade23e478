package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/excellence-awards/nomination-flow/internal/api"
	"github.com/excellence-awards/nomination-flow/internal/client"
	"github.com/excellence-awards/nomination-flow/internal/config"
	"github.com/excellence-awards/nomination-flow/internal/events"
	"github.com/excellence-awards/nomination-flow/internal/handlers"
	"github.com/excellence-awards/nomination-flow/internal/interfaces"
	"github.com/excellence-awards/nomination-flow/internal/payment"
	"github.com/excellence-awards/nomination-flow/internal/repository"
	"github.com/excellence-awards/nomination-flow/internal/service"
	"github.com/excellence-awards/nomination-flow/internal/store"
	"github.com/excellence-awards/nomination-flow/internal/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize telemetry
	if err := telemetry.InitTelemetry("nomination-flow"); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	telemetry.Logger.Info("Starting Nomination Flow Service")

	// Flow state journal on PostgreSQL (optional)
	var journal interfaces.FlowJournal
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			telemetry.Logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		fj := repository.NewFlowJournal(db)
		if err := fj.InitDB(); err != nil {
			telemetry.Logger.Fatal("Failed to initialize database", zap.Error(err))
		}
		journal = fj
	}

	// State-change event publisher (optional)
	var publisher interfaces.EventPublisher
	if cfg.KafkaBrokers != "" {
		pub := events.NewPublisher(cfg.KafkaBrokers)
		defer pub.Close()
		publisher = pub
	}

	// Draft store on Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})
	draftStore := store.NewRedisDraftStore(redisClient, cfg.DraftTTL)

	// Nomination backend client
	backend := client.NewNominationClient(cfg.BackendAPIURL, cfg.CountryCode, cfg.RequestTimeout)

	// Payment provider, resolved once at startup
	var provider interfaces.PaymentProvider
	if cfg.Simulated() {
		telemetry.Logger.Warn("Simulated payment provider enabled; never run this mode in production")
		provider = payment.NewSimulatedProvider("/api/payments/simulated")
	} else {
		provider = payment.NewHostedProvider(cfg.BackendAPIURL, "cybersource", cfg.RequestTimeout)
	}

	// Workflow coordinator
	coordinator := service.NewCoordinator(
		draftStore,
		backend,
		provider,
		journal,
		publisher,
		service.Fee{Amount: cfg.FeeAmount, Currency: cfg.FeeCurrency},
		cfg.BillingCountry,
	)

	// Initialize handlers and router
	nomHandler := handlers.NewNominationHandler(coordinator, journal)
	retHandler := handlers.NewReturnHandler(coordinator, cfg.ReturnURL)
	r := api.NewRouter(nomHandler, retHandler, cfg.Simulated())

	// Setup HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		telemetry.Logger.Info("Nomination Flow Service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	telemetry.Logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	telemetry.Logger.Info("Server exited")
}
