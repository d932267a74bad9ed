package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"telechat/internal/config"
	"telechat/pkg/logger"
)

var (
	client   *mongo.Client
	database *mongo.Database
	once     sync.Once
)

// Connect establishes connection to MongoDB
func Connect(cfg *config.Config) (*mongo.Database, error) {
	var err error

	once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		clientOptions := options.Client().
			ApplyURI(cfg.Database.URI).
			SetMaxPoolSize(cfg.Database.MaxPoolSize).
			SetMinPoolSize(cfg.Database.MinPoolSize).
			SetMaxConnIdleTime(cfg.Database.MaxIdleTime).
			SetServerSelectionTimeout(5 * time.Second)

		client, err = mongo.Connect(ctx, clientOptions)
		if err != nil {
			logger.Errorf("Failed to connect to MongoDB: %v", err)
			return
		}

		if err = client.Ping(ctx, readpref.Primary()); err != nil {
			logger.Errorf("Failed to ping MongoDB: %v", err)
			return
		}

		database = client.Database(cfg.Database.Name)
		logger.Infof("Connected to MongoDB database: %s", cfg.Database.Name)

		if err = createIndexes(ctx); err != nil {
			logger.Errorf("Failed to create indexes: %v", err)
			return
		}
	})

	return database, err
}

// createIndexes creates necessary database indexes
func createIndexes(ctx context.Context) error {
	users := database.Collection("users")
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "is_online", Value: 1}},
		},
	}

	if _, err := users.Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	chats := database.Collection("chats")
	chatIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "participants", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "participants", Value: 1}, {Key: "last_activity", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "type", Value: 1}},
		},
	}

	if _, err := chats.Indexes().CreateMany(ctx, chatIndexes); err != nil {
		return fmt.Errorf("failed to create chat indexes: %w", err)
	}

	logger.Info("Database indexes created successfully")
	return nil
}

// GetCollection returns a collection from the database
func GetCollection(name string) *mongo.Collection {
	if database == nil {
		return nil
	}
	return database.Collection(name)
}

// HealthCheck verifies the database connection
func HealthCheck(ctx context.Context) error {
	if client == nil {
		return fmt.Errorf("database client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return client.Ping(ctx, readpref.Primary())
}

// Disconnect closes the database connection
func Disconnect(ctx context.Context) error {
	if client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}

	logger.Info("Disconnected from MongoDB")
	return nil
}
