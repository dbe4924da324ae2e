package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	if err := createIndexes(client, cfg.DBName); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	ctx := context.Background()

	// Users
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := db.Collection("users").Indexes().CreateMany(ctx, userIndexes); err != nil {
		return err
	}

	// Accounts
	accountIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}
	if _, err := db.Collection("accounts").Indexes().CreateMany(ctx, accountIndexes); err != nil {
		return err
	}

	// Credentials: one per account, looked up by platform account id
	// and by webhook verify token
	credentialIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "instagram_account_id", Value: 1}}},
		{Keys: bson.D{{Key: "webhook_verify_token", Value: 1}}},
	}
	if _, err := db.Collection("instagram_credentials").Indexes().CreateMany(ctx, credentialIndexes); err != nil {
		return err
	}

	// Automations: resolved per (account, post) for enabled entries
	automationIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "post_id", Value: 1}, {Key: "enabled", Value: 1}}},
	}
	if _, err := db.Collection("instagram_automations").Indexes().CreateMany(ctx, automationIndexes); err != nil {
		return err
	}

	// Interactions: the unique (account_id, comment_id) pair is the
	// idempotency key for webhook redelivery
	interactionIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}, {Key: "comment_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "automation_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	if _, err := db.Collection("instagram_interactions").Indexes().CreateMany(ctx, interactionIndexes); err != nil {
		return err
	}

	// Account logs
	logIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := db.Collection("account_logs").Indexes().CreateMany(ctx, logIndexes); err != nil {
		return err
	}

	return nil
}
