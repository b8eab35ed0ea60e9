package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unosend/unosend/internal/api"
	"github.com/unosend/unosend/internal/config"
	"github.com/unosend/unosend/internal/mailer"
	"github.com/unosend/unosend/internal/repository/postgres"
	"github.com/unosend/unosend/internal/service/broadcast"
	"github.com/unosend/unosend/internal/service/dispatch"
	"github.com/unosend/unosend/internal/service/usage"
	"github.com/unosend/unosend/internal/service/webhook"

	_ "github.com/lib/pq" // PostgreSQL driver
)

func main() {
	log.Println("Starting Unosend API server...")

	// Load configuration
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("database URL is required (database.url or DATABASE_URL)")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to database")

	ses, err := mailer.NewSESMailer(context.Background(), cfg.SES)
	if err != nil {
		log.Fatalf("Failed to initialize SES: %v", err)
	}

	// Repositories
	emailRepo := postgres.NewEmailRepo(db)
	broadcastRepo := postgres.NewBroadcastRepo(db, emailRepo)
	webhookRepo := postgres.NewWebhookRepo(db)
	usageRepo := postgres.NewUsageRepo(db)

	// Services
	usageSvc := usage.NewService(usageRepo)
	deliverer := webhook.NewHTTPDeliverer(webhook.DelivererConfig{
		MaxRetries:     cfg.Webhook.MaxRetries,
		AttemptTimeout: cfg.Webhook.AttemptTimeout(),
		InitialDelay:   cfg.Webhook.InitialDelay(),
		MaxDelay:       cfg.Webhook.MaxDelay(),
	})
	webhookDispatcher := webhook.NewDispatcher(webhookRepo, emailRepo, deliverer)
	processor := dispatch.NewProcessor(emailRepo, ses, webhookDispatcher, usageSvc, cfg.Dispatch.EmailBatchSize)
	broadcaster := broadcast.NewDispatcher(broadcastRepo, ses, usageSvc,
		cfg.App.BaseURL, cfg.Dispatch.BroadcastBatchSize, cfg.Dispatch.SendDelay())

	router := api.SetupRoutes(api.NewHandlers(processor, broadcaster), cfg.Cron.Secret)

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		log.Printf("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
