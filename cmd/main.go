package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"hostelwatch/backend/internal/api/handler"
	"hostelwatch/backend/internal/config"
	"hostelwatch/backend/internal/cryptobox"
	"hostelwatch/backend/internal/eventhub"
	"hostelwatch/backend/internal/ledger"
	"hostelwatch/backend/internal/notify"
	"hostelwatch/backend/internal/storage"
)

func setupDependencies() (*gorm.DB, *redis.Client) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		config.Getenv("DB_HOST", "localhost"),
		config.Getenv("DB_USER", "user"),
		config.Getenv("DB_PASSWORD", "password"),
		config.Getenv("DB_NAME", "hostelwatchdb"),
		config.Getenv("DB_PORT", "5432"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Getenv("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	return db, rdb
}

func loadEncryptionKey() []byte {
	raw := os.Getenv("APP_ENC_KEY")
	if raw == "" {
		log.Fatal("APP_ENC_KEY is not set")
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		log.Fatalf("APP_ENC_KEY is not valid base64: %v", err)
	}
	return key
}

func main() {
	log.Println("Starting HostelWatch Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 1. Dependencies
	db, rdb := setupDependencies()
	s := storage.NewStorageService(db, rdb)
	if err := s.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database and Redis connections established, migrations complete.")

	box, err := cryptobox.New(loadEncryptionKey())
	if err != nil {
		log.Fatalf("Failed to initialize crypto: %v", err)
	}

	// 2. Core services
	led := ledger.NewService(s, s, box, s, logger)
	hub := eventhub.NewManagerService(rdb, logger)

	// 3. Background goroutines
	go hub.Run()

	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		chatID, err := strconv.ParseInt(os.Getenv("TELEGRAM_ADMIN_CHAT_ID"), 10, 64)
		if err != nil {
			log.Fatalf("TELEGRAM_ADMIN_CHAT_ID is not a valid chat ID: %v", err)
		}
		bot, err := notify.NewBotService(token, chatID, rdb, logger)
		if err != nil {
			log.Fatalf("Failed to start Telegram notifier: %v", err)
		}
		go bot.Run()
	}

	// 4. Gin routing
	r := gin.Default()
	h := handler.NewHandler(led, hub, s, logger)

	r.GET("/auth/token", h.GetToken)
	r.GET("/complaints/:id/receipt", h.VerifyReceipt)

	authed := r.Group("/", handler.RequireAuth())
	authed.POST("/complaints", h.CreateComplaint)
	authed.GET("/complaints/:id", h.GetComplaint)
	authed.GET("/complaints/:id/logs", h.GetLogs)
	authed.GET("/complaints/:id/verify", h.VerifyChain)
	authed.POST("/complaints/:id/status", h.UpdateStatus)
	authed.POST("/complaints/:id/escalate", h.Escalate)
	authed.POST("/complaints/:id/assign", h.Assign)
	authed.POST("/complaints/:id/lock", h.Lock)
	authed.POST("/complaints/:id/unlock", h.Unlock)
	authed.POST("/complaints/:id/reopen", h.Reopen)
	authed.GET("/events", h.ServeEvents)

	server := &http.Server{
		Addr:           ":" + config.Getenv("PORT", "8080"),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
