package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	MongoURI     string
	DatabaseName string
	Environment  string
	DemoPassword string
}

type CollectionSetup struct {
	Name    string
	Indexes []mongo.IndexModel
}

type SeedUser struct {
	ID           primitive.ObjectID `bson:"_id"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	Phone        string             `bson:"phone,omitempty"`
	PasswordHash string             `bson:"password_hash"`
	FirstName    string             `bson:"first_name"`
	LastName     string             `bson:"last_name"`
	Bio          string             `bson:"bio,omitempty"`
	IsOnline     bool               `bson:"is_online"`
	Status       string             `bson:"status"`
	LastSeen     time.Time          `bson:"last_seen"`
	Preferences  bson.M             `bson:"preferences"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func main() {
	log.Println("🚀 Starting telechat database setup...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using environment variables")
	}

	config := loadConfig()

	client, database, err := connectMongoDB(config)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	if err := runSetup(database, config); err != nil {
		log.Fatalf("❌ Setup failed: %v", err)
	}

	log.Println("✅ Setup completed successfully!")
}

func loadConfig() Config {
	return Config{
		MongoURI:     getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DatabaseName: getEnv("MONGODB_DATABASE", "telechat"),
		Environment:  getEnv("APP_ENV", "development"),
		DemoPassword: getEnv("DEMO_PASSWORD", "password123"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func connectMongoDB(config Config) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(config.MongoURI).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, err
	}

	if err = client.Ping(ctx, nil); err != nil {
		return nil, nil, err
	}

	database := client.Database(config.DatabaseName)
	log.Printf("✅ Connected to MongoDB database: %s", config.DatabaseName)

	return client, database, nil
}

func runSetup(database *mongo.Database, config Config) error {
	log.Println("📋 Creating collections and indexes...")
	for _, collection := range getCollectionSetups() {
		if err := createCollectionWithIndexes(database, collection); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", collection.Name, err)
		}
	}

	if config.Environment == "production" {
		log.Println("Skipping demo data in production")
		return nil
	}

	log.Println("🌱 Seeding demo data...")
	if err := seedDemoData(database, config); err != nil {
		return fmt.Errorf("failed to seed demo data: %w", err)
	}

	return nil
}

func getCollectionSetups() []CollectionSetup {
	return []CollectionSetup{
		{
			Name: "users",
			Indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
				{Keys: bson.D{{Key: "is_online", Value: 1}}},
			},
		},
		{
			Name: "chats",
			Indexes: []mongo.IndexModel{
				{Keys: bson.D{{Key: "participants", Value: 1}}},
				{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "last_activity", Value: -1}}},
				{Keys: bson.D{{Key: "type", Value: 1}}},
			},
		},
	}
}

func createCollectionWithIndexes(database *mongo.Database, setup CollectionSetup) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collection := database.Collection(setup.Name)

	if len(setup.Indexes) > 0 {
		if _, err := collection.Indexes().CreateMany(ctx, setup.Indexes); err != nil {
			return err
		}
	}

	log.Printf("   Collection %s ready (%d indexes)", setup.Name, len(setup.Indexes))
	return nil
}

func seedDemoData(database *mongo.Database, config Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := database.Collection("users")

	count, err := users.CountDocuments(ctx, bson.M{})
	if err != nil {
		return err
	}
	if count > 0 {
		log.Println("   Users collection not empty, skipping demo data")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(config.DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now()
	defaultPrefs := bson.M{"theme": "default", "language": "en", "notifications": true}

	alice := SeedUser{
		ID:           primitive.NewObjectID(),
		Username:     "alice",
		Email:        "alice@telechat.local",
		PasswordHash: string(hash),
		FirstName:    "Alice",
		LastName:     "Demo",
		Bio:          "Demo account",
		Status:       "offline",
		LastSeen:     now,
		Preferences:  defaultPrefs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	bob := SeedUser{
		ID:           primitive.NewObjectID(),
		Username:     "bob",
		Email:        "bob@telechat.local",
		PasswordHash: string(hash),
		FirstName:    "Bob",
		LastName:     "Demo",
		Bio:          "Demo account",
		Status:       "offline",
		LastSeen:     now,
		Preferences:  defaultPrefs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := users.InsertMany(ctx, []interface{}{alice, bob}); err != nil {
		return err
	}
	log.Printf("   Seeded demo users: alice, bob (password: %s)", config.DemoPassword)

	welcome := bson.M{
		"_id":        primitive.NewObjectID(),
		"sender":     alice.ID,
		"text":       "Welcome to telechat!",
		"type":       "text",
		"reactions":  bson.A{},
		"read_by":    bson.A{},
		"is_pinned":  false,
		"is_edited":  false,
		"is_deleted": false,
		"created_at": now,
	}
	chat := bson.M{
		"_id":             primitive.NewObjectID(),
		"type":            "direct",
		"participants":    bson.A{alice.ID, bob.ID},
		"messages":        bson.A{welcome},
		"pinned_messages": bson.A{},
		"typing_users":    bson.A{},
		"theme":           "default",
		"last_message":    welcome,
		"last_activity":   now,
		"created_at":      now,
		"updated_at":      now,
	}

	if _, err := database.Collection("chats").InsertOne(ctx, chat); err != nil {
		return err
	}
	log.Println("   Seeded demo direct chat with a welcome message")

	return nil
}
