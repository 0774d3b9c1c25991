// File: busmitra/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"busmitra/config"
	"busmitra/cron"
	"busmitra/database"
	archiveRepo "busmitra/database/repository/archive"
	ticketRepo "busmitra/database/repository/ticket"
	"busmitra/handlers"
	"busmitra/routes"
	"busmitra/services/agent"
	"busmitra/services/booking"
	"busmitra/services/dialogue"
	"busmitra/services/escalation"
	"busmitra/services/intent"
	"busmitra/services/provider"
	"busmitra/services/session"
	"busmitra/utils"

	"github.com/go-redis/redis/v8"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitSessionCache()
	utils.InitLockCache()

	stripe.Key = config.AppConfig.StripeKey

	// repositories.
	ticketRepository := ticketRepo.NewMongoTicketRepo()
	archiveRepository := archiveRepo.NewMongoArchiveRepo()

	// Session store: Redis for state, a second DB for turn locks.
	store := session.NewRedisStore(
		utils.GetSessionCacheClient(),
		utils.GetLockCacheClient(),
		config.AppConfig.SessionTTL,
		config.AppConfig.SessionLockTTL,
	)

	// Reservation backend adapter, wrapped with transient-failure retries.
	stcAdapter := provider.NewSTCHTTPAdapter(
		config.AppConfig.ProviderBaseURL,
		config.AppConfig.ProviderCallTimeout,
	)
	reservations := provider.NewRetryingAdapter(
		stcAdapter,
		config.AppConfig.ProviderMaxAttempts,
		config.AppConfig.ProviderBackoffBase,
		logger,
	)

	// services.
	extractor, err := intent.NewGeminiExtractor(context.Background(), config.AppConfig.GeminiAPIKey, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize intent extractor: %v", err)
	}

	paymentHandler := booking.NewPaymentHandler(logger, reservations)
	engine := booking.NewEngine(reservations, paymentHandler, config.AppConfig.PaymentRiskCeiling, logger)

	escalationService := escalation.NewService(ticketRepository, logger)
	policy := escalation.Policy{MaxClarifyPerSlot: config.AppConfig.MaxClarifyPerSlot}

	// Background worker that moves finished sessions into Mongo.
	archiveClient := cron.NewArchiveClient()
	cron.InitArchiveWorker(store, archiveRepository)

	agentService := agent.NewService(
		store,
		extractor,
		dialogue.Manager{
			Threshold: config.AppConfig.SlotConfidenceThreshold,
			Margin:    config.AppConfig.AmbiguityMargin,
		},
		engine,
		escalationService,
		policy,
		archiveClient,
		logger,
	)

	handlerBundle := &handlers.HandlerBundle{
		AgentService:      agentService,
		EscalationService: escalationService,
	}
	router := routes.SetupRouter(handlerBundle)

	utils.StartHealthMonitor(
		[]*redis.Client{utils.GetSessionCacheClient(), utils.GetLockCacheClient()},
		database.MongoClient,
	)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
