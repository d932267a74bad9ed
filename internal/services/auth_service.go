package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"telechat/internal/models"
	"telechat/internal/utils"
	"telechat/pkg/database"
	"telechat/pkg/logger"
)

// AuthService handles registration, login and token subjects
type AuthService struct {
	users *mongo.Collection
}

// NewAuthService creates a new auth service
func NewAuthService() *AuthService {
	return &AuthService{
		users: database.GetCollection("users"),
	}
}

// RegisterParams carries the fields accepted at registration
type RegisterParams struct {
	Username  string
	Email     string
	Phone     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a new account. Duplicate identities are rejected
// naming the colliding field, checked username, then email, then phone.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (*models.User, string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	email := strings.ToLower(params.Email)

	count, err := s.users.CountDocuments(ctx, bson.M{"username": params.Username})
	if err != nil {
		return nil, "", fmt.Errorf("failed to check username: %w", err)
	}
	if count > 0 {
		return nil, "", ErrDuplicateUsername
	}

	count, err = s.users.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return nil, "", fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, "", ErrDuplicateEmail
	}

	if params.Phone != "" {
		count, err = s.users.CountDocuments(ctx, bson.M{"phone": params.Phone})
		if err != nil {
			return nil, "", fmt.Errorf("failed to check phone: %w", err)
		}
		if count > 0 {
			return nil, "", ErrDuplicatePhone
		}
	}

	hash, err := utils.HashPassword(params.Password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.NewUser(params.Username, email, params.Phone, hash, params.FirstName, params.LastName)

	if _, err := s.users.InsertOne(ctx, user); err != nil {
		logger.LogError(err, "auth_register_insert", map[string]interface{}{
			"username": params.Username,
		})
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := utils.GenerateToken(user.ID.Hex(), user.Username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	logger.LogUserAction(user.ID.Hex(), "registered", map[string]interface{}{
		"username": user.Username,
	})

	return user, token, nil
}

// Login authenticates by username, email or phone. Unknown identifiers
// and wrong passwords fail with the same error.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*models.User, string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"$or": []bson.M{
		{"username": identifier},
		{"email": strings.ToLower(identifier)},
		{"phone": identifier},
	}}

	var user models.User
	if err := s.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}

	if !utils.CheckPassword(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := utils.GenerateToken(user.ID.Hex(), user.Username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	logger.LogUserAction(user.ID.Hex(), "logged_in", nil)

	return &user, token, nil
}

// GetUserByID returns the account for a token subject
func (s *AuthService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
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
