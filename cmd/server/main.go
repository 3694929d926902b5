package main

import (
	"log"
	"net/http"

	"ecoshop-be/internal/api"
	"ecoshop-be/internal/config"
	"ecoshop-be/internal/db"
	"ecoshop-be/internal/logger"
	"ecoshop-be/internal/middleware"
	"ecoshop-be/internal/notification"
	"ecoshop-be/internal/order"
	"ecoshop-be/internal/payment"
	"ecoshop-be/internal/payment/webhook"
	"ecoshop-be/internal/product"
	"ecoshop-be/internal/reward"
	"ecoshop-be/internal/wallet"
)

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	notifier := buildNotifier(cfg)
	defer notifier.Close()

	ledger := product.NewStockLedger()

	orderRepo := order.NewRepository(database, ledger)
	orderSvc := order.NewService(orderRepo, notifier)

	walletRepo := wallet.NewRepository(database)
	walletSvc := wallet.NewService(walletRepo)

	rewardRepo := reward.NewRepository(database)
	rewardSvc := reward.NewService(rewardRepo)

	gateway := payment.NewStripeGateway(cfg)
	paymentSvc := payment.NewService(orderRepo, walletSvc, notifier, gateway)

	webhookHandler := webhook.NewWebhookHandler(paymentSvc, gateway)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook/stripe", webhookHandler.WebhookHandler)
	api.NewHandler(orderSvc, walletSvc, rewardSvc, paymentSvc).Register(mux)

	handler := logger.RequestIDMiddleware(
		logger.LoggingMiddleware(
			middleware.RateLimitMiddleware(mux),
		),
	)

	log.Printf("EcoShop server running at http://localhost:%s/", cfg.AppPort)
	log.Fatal(http.ListenAndServe(":"+cfg.AppPort, handler))
}

func buildNotifier(cfg *config.Config) notification.Notifier {
	if len(cfg.KafkaBrokers) == 0 {
		logger.L().Warn("no Kafka brokers configured, notifications go to the log")
		return notification.NewLogNotifier()
	}

	notifier, err := notification.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		log.Fatalf("Failed to init Kafka notifier: %v", err)
	}
	return notifier
}
