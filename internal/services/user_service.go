package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"telechat/internal/models"
	"telechat/pkg/database"
	"telechat/pkg/logger"
)

// UserService handles account profile, presence and preference updates
type UserService struct {
	users *mongo.Collection
}

// NewUserService creates a new user service
func NewUserService() *UserService {
	return &UserService{
		users: database.GetCollection("users"),
	}
}

// GetByID returns a user by id
func (s *UserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrNotFound)
	}

	var user models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	return &user, nil
}

// Search finds users by case-insensitive substring over username,
// email and phone, excluding the caller.
const (
	searchLimitDefault int64 = 20
	searchLimitMax     int64 = 50
)

func clampSearchLimit(limit int64) int64 {
	if limit <= 0 {
		return searchLimitDefault
	}
	if limit > searchLimitMax {
		return searchLimitMax
	}
	return limit
}

func (s *UserService) Search(ctx context.Context, callerID, query string, limit int64) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	callerOID, err := primitive.ObjectIDFromHex(callerID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrNotFound)
	}

	limit = clampSearchLimit(limit)

	filter := bson.M{
		"_id": bson.M{"$ne": callerOID},
		"$or": []bson.M{
			{"username": bson.M{"$regex": query, "$options": "i"}},
			{"email": bson.M{"$regex": query, "$options": "i"}},
			{"phone": bson.M{"$regex": query, "$options": "i"}},
		},
	}

	cursor, err := s.users.Find(ctx, filter, options.Find().SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	return users, nil
}

// UpdateProfile overwrites the caller's profile fields
func (s *UserService) UpdateProfile(ctx context.Context, userID string, firstName, lastName, bio, avatar string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrNotFound)
	}

	update := bson.M{"$set": bson.M{
		"first_name": firstName,
		"last_name":  lastName,
		"bio":        bio,
		"avatar":     avatar,
		"updated_at": time.Now(),
	}}

	var user models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	logger.LogUserAction(userID, "profile_updated", nil)

	return &user, nil
}

// UpdateStatus overwrites the caller's coarse presence status
func (s *UserService) UpdateStatus(ctx context.Context, userID, status string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrNotFound)
	}

	update := bson.M{"$set": bson.M{
		"status":     status,
		"is_online":  status != models.StatusOffline,
		"last_seen":  time.Now(),
		"updated_at": time.Now(),
	}}

	var user models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	return &user, nil
}

// UpdatePreferences overwrites the caller's preference bag
func (s *UserService) UpdatePreferences(ctx context.Context, userID string, prefs models.Preferences) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrNotFound)
	}

	update := bson.M{"$set": bson.M{
		"preferences": prefs,
		"updated_at":  time.Now(),
	}}

	var user models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}

	return &user, nil
}

// SetPresence flips the online flag when a connection opens or closes.
// Called from the realtime layer; failures are logged, not surfaced.
func (s *UserService) SetPresence(userID string, online bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return
	}

	set := bson.M{
		"is_online":  online,
		"last_seen":  time.Now(),
		"updated_at": time.Now(),
	}
	if online {
		set["status"] = models.StatusOnline
	} else {
		set["status"] = models.StatusOffline
	}

	if _, err := s.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set}); err != nil {
		logger.LogError(err, "user_set_presence", map[string]interface{}{
			"user_id": userID,
			"online":  online,
		})
	}
}

// OnlineUsers lists users currently flagged online
func (s *UserService) OnlineUsers(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := s.users.Find(ctx, bson.M{"is_online": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list online users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	return users, nil
}
