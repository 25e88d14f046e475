package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"paystack-service/internal/config"
	"paystack-service/internal/db"
	"paystack-service/internal/kafka"
	"paystack-service/internal/logging"
	"paystack-service/internal/metrics"
	"paystack-service/internal/outbox"
	"paystack-service/internal/payment"
	"paystack-service/internal/paystack"
	"paystack-service/internal/server"
	"paystack-service/internal/webhook"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := config.MustLoadConfig(".")
	logger := logging.GetLogger(cfg.Logs)

	if cfg.LiveKeyInTestMode() {
		logger.Warn("Paystack test mode is on but a live secret key is configured")
	}
	logger.Info("Starting paystack service", "testMode", cfg.Paystack.TestMode, "webhookQueue", cfg.Webhook.Queue)

	metrics.Setup(cfg.Metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connStr := db.GetConnStr(cfg.Database)
	if err := db.RunMigrations(connStr); err != nil {
		log.Fatal(err)
	}

	dbpool, err := db.GetPool(ctx, connStr)
	if err != nil {
		log.Fatal(err)
	}
	defer dbpool.Close()

	store := db.NewStore(dbpool)
	reconciler := payment.NewReconciler(store, paystack.NewClient(cfg.Paystack, logger), cfg.Paystack, logger)

	orderEventsWriter := kafka.NewWriter(cfg.Kafka, cfg.Kafka.Topic.OrderEvents)
	defer orderEventsWriter.Close()

	producer := outbox.NewProducer(db.NewOutboxRepository(dbpool), orderEventsWriter, cfg.Outbox, logger)
	producer.Start(ctx)

	var publisher server.Publisher
	var processor *webhook.Processor
	if cfg.Webhook.Queue {
		webhookWriter := kafka.NewWriter(cfg.Kafka, cfg.Kafka.Topic.WebhookDeliveries)
		defer webhookWriter.Close()
		publisher = kafka.NewWebhookPublisher(webhookWriter)

		webhookReader := kafka.NewReader(cfg.Kafka, cfg.Kafka.Topic.WebhookDeliveries)
		defer webhookReader.Close()

		processor = webhook.NewProcessor(reconciler, cfg.Webhook.Parallelism, logger)
		kafka.ReadWebhookDeliveries(ctx, webhookReader, processor, logger)
	}

	gin.SetMode(gin.ReleaseMode)
	handler := server.NewHandler(reconciler, publisher, cfg.Storefront, logger)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.NewRouter(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", "error", err)
	}
	if processor != nil {
		processor.Wait()
	}
}
