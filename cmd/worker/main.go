package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unosend/unosend/internal/config"
	"github.com/unosend/unosend/internal/mailer"
	"github.com/unosend/unosend/internal/repository/postgres"
	"github.com/unosend/unosend/internal/service/broadcast"
	"github.com/unosend/unosend/internal/service/dispatch"
	"github.com/unosend/unosend/internal/service/usage"
	"github.com/unosend/unosend/internal/service/webhook"

	_ "github.com/lib/pq"
)

func main() {
	log.Println("Starting Unosend dispatch worker...")

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

	emailRepo := postgres.NewEmailRepo(db)
	broadcastRepo := postgres.NewBroadcastRepo(db, emailRepo)
	webhookRepo := postgres.NewWebhookRepo(db)
	usageRepo := postgres.NewUsageRepo(db)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Scheduled-email loop
	go func() {
		ticker := time.NewTicker(cfg.Dispatch.PollInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := processor.Run(ctx); err != nil {
					log.Printf("[Worker] scheduled-email run failed: %v", err)
				}
			}
		}
	}()

	// Broadcast loop
	go func() {
		ticker := time.NewTicker(cfg.Dispatch.PollInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := broadcaster.Run(ctx); err != nil {
					log.Printf("[Worker] broadcast run failed: %v", err)
				}
			}
		}
	}()

	// Stuck-queued sweeper; queued emails older than the threshold mean a
	// worker died mid-batch
	go func() {
		ticker := time.NewTicker(cfg.Dispatch.QueuedSweepThreshold())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := processor.SweepStuck(ctx, cfg.Dispatch.QueuedSweepThreshold()); err != nil {
					log.Printf("[Worker] stuck sweep failed: %v", err)
				}
			}
		}
	}()

	log.Println("Worker running...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	cancel()

	// Give in-flight batches time to finish
	time.Sleep(2 * time.Second)
	log.Println("Worker stopped")
}
