package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"viral-kid-platform/internal/config"
	"viral-kid-platform/internal/store"
	"viral-kid-platform/models"
	"viral-kid-platform/utils"
)

// Seeds the dashboard user. Usage:
//
//	SEED_USERNAME=admin SEED_PASSWORD=... go run ./cmd/seed
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	username := os.Getenv("SEED_USERNAME")
	password := os.Getenv("SEED_PASSWORD")
	if username == "" || password == "" {
		log.Fatal("SEED_USERNAME and SEED_PASSWORD must be set")
	}
	if len(password) < 8 {
		log.Fatal("SEED_PASSWORD must be at least 8 characters")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	hash, err := utils.HashPassword(password, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	st := store.NewMongoStore(client.Database(cfg.DBName))
	if err := st.UpsertUser(ctx, &models.User{
		Username:     username,
		PasswordHash: hash,
		Name:         os.Getenv("SEED_NAME"),
	}); err != nil {
		log.Fatalf("Failed to seed user: %v", err)
	}

	fmt.Printf("Seeded user %q\n", username)
}
