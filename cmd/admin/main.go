package main

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"hostelwatch/backend/internal/cryptobox"
	"hostelwatch/backend/internal/ledger"
	"hostelwatch/backend/internal/models"
	"hostelwatch/backend/internal/storage"
)

func main() {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	storageSvc := storage.NewStorageService(db, nil) // No redis needed for admin CLI

	key, err := base64.StdEncoding.DecodeString(os.Getenv("APP_ENC_KEY"))
	if err != nil {
		log.Fatalf("APP_ENC_KEY is not valid base64: %v", err)
	}
	box, err := cryptobox.New(key)
	if err != nil {
		log.Fatalf("failed to initialize crypto: %v", err)
	}

	led := ledger.NewService(storageSvc, storageSvc, box, nil, zap.NewNop())

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "verify":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin verify <complaint_id>")
			os.Exit(1)
		}
		id := os.Args[2]
		if err := led.VerifyChain(id); err != nil {
			log.Fatalf("Chain for %s is BROKEN: %v", id, err)
		}
		fmt.Printf("Chain for %s is intact.\n", id)
	case "verify-all":
		var ids []string
		if err := db.Model(&models.Complaint{}).Pluck("complaint_id", &ids).Error; err != nil {
			log.Fatalf("Error listing complaints: %v", err)
		}
		broken := 0
		for _, id := range ids {
			if err := led.VerifyChain(id); err != nil {
				broken++
				fmt.Printf("BROKEN %s: %v\n", id, err)
			}
		}
		fmt.Printf("Checked %d chains, %d broken.\n", len(ids), broken)
		if broken > 0 {
			os.Exit(1)
		}
	case "lock":
		if len(os.Args) < 4 {
			fmt.Println("Usage: admin lock <complaint_id> <actor_vit> [reason]")
			os.Exit(1)
		}
		reason := ""
		if len(os.Args) > 4 {
			reason = os.Args[4]
		}
		if _, err := led.Lock(os.Args[2], os.Args[3], reason); err != nil {
			log.Fatalf("Error locking complaint: %v", err)
		}
		fmt.Printf("Complaint %s has been locked.\n", os.Args[2])
	case "unlock":
		if len(os.Args) < 4 {
			fmt.Println("Usage: admin unlock <complaint_id> <actor_vit> [reason]")
			os.Exit(1)
		}
		reason := ""
		if len(os.Args) > 4 {
			reason = os.Args[4]
		}
		if _, err := led.Unlock(os.Args[2], os.Args[3], reason); err != nil {
			log.Fatalf("Error unlocking complaint: %v", err)
		}
		fmt.Printf("Complaint %s has been unlocked.\n", os.Args[2])
	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}
