package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"herbstore/internal/app"
	"herbstore/internal/cache"
	"herbstore/internal/cart"
	"herbstore/internal/checkout"
	"herbstore/internal/config"
	"herbstore/internal/database"
	"herbstore/internal/services"
	"herbstore/pkg/mailer"
	"herbstore/pkg/paystack"
	"herbstore/pkg/rabbitmq"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

func main() {
	// --- Configuration ---
	v := viper.New()
	config.SetDefaults(v)
	v.AutomaticEnv()

	cfg, err := config.Load(v)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// --- Database ---
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	deps := app.Deps{
		DB: db,
		Gateway: paystack.NewClient(paystack.Config{
			BaseURL:   cfg.Paystack.BaseURL,
			SecretKey: cfg.Paystack.SecretKey,
			Timeout:   cfg.Paystack.Timeout,
		}),
	}

	// --- Session state: redis when configured, process memory otherwise ---
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Fatalf("Failed to connect to redis at %s: %v", cfg.RedisAddr, err)
		}
		defer rdb.Close()

		deps.Carts = cart.NewRedisStore(rdb, cfg.CartTTL)
		deps.Flows = checkout.NewRedisStore(rdb, cfg.CartTTL)
		deps.References = cache.NewRedisReferences(rdb, cfg.ReferenceTTL)
		log.Printf("Using redis at %s for carts and payment references", cfg.RedisAddr)
	} else {
		deps.Carts = cart.NewMemoryStore()
		deps.Flows = checkout.NewMemoryStore()
		deps.References = cache.NewMemoryReferences(cfg.ReferenceTTL)
		log.Println("REDIS_ADDR not set, keeping carts and payment references in memory")
	}

	// --- Order events ---
	var mqClient *rabbitmq.Client
	if cfg.RabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.OrderEventsQueue})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
		deps.Publisher = mqClient
	}

	application := app.New(cfg, deps)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := application.Auth.EnsureAdmin("Administrator", cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("Failed to create admin user: %v", err)
		}
	}

	if mqClient != nil {
		var m services.Mailer = mailer.LogMailer{}
		if cfg.SMTP.Host != "" {
			smtpMailer, err := mailer.NewSMTPMailer(mailer.Config{
				Host:     cfg.SMTP.Host,
				Port:     cfg.SMTP.Port,
				Username: cfg.SMTP.Username,
				Password: cfg.SMTP.Password,
				From:     cfg.SMTP.From,
			})
			if err != nil {
				log.Fatalf("Failed to configure mailer: %v", err)
			}
			m = smtpMailer
		}
		notifications := services.NewNotificationService(m)
		if err := mqClient.ConsumeOrderEvents(notifications.HandleDelivery); err != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", err)
		}
	}

	// --- Start HTTP Server ---
	log.Printf("Starting server on port %s", cfg.AppPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := application.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := application.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}
