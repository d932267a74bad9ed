package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User status values
const (
	StatusOnline  = "online"
	StatusAway    = "away"
	StatusBusy    = "busy"
	StatusOffline = "offline"
)

// User represents an account in the system
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	FirstName    string             `bson:"first_name" json:"first_name"`
	LastName     string             `bson:"last_name" json:"last_name"`
	Bio          string             `bson:"bio" json:"bio"`
	Avatar       string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	IsOnline     bool               `bson:"is_online" json:"is_online"`
	Status       string             `bson:"status" json:"status"`
	LastSeen     time.Time          `bson:"last_seen" json:"last_seen"`
	Preferences  Preferences        `bson:"preferences" json:"preferences"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// Preferences holds per-account settings
type Preferences struct {
	Theme         string `bson:"theme" json:"theme"`
	Language      string `bson:"language" json:"language"`
	Notifications bool   `bson:"notifications" json:"notifications"`
}

// DefaultPreferences returns the preference set assigned at registration
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:         "light",
		Language:      "en",
		Notifications: true,
	}
}

// NewUser creates a user with registration defaults applied
func NewUser(username, email, phone, passwordHash, firstName, lastName string) *User {
	now := time.Now()
	return &User{
		ID:           primitive.NewObjectID(),
		Username:     username,
		Email:        strings.ToLower(email),
		Phone:        phone,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		IsOnline:     false,
		Status:       StatusOffline,
		LastSeen:     now,
		Preferences:  DefaultPreferences(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// DisplayName returns the user's full name, falling back to the username
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// ValidStatus reports whether s is an accepted presence status
func ValidStatus(s string) bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy, StatusOffline:
		return true
	}
	return false
}

// PublicUser is the representation returned to other users
type PublicUser struct {
	ID        primitive.ObjectID `json:"id"`
	Username  string             `json:"username"`
	FirstName string             `json:"first_name"`
	LastName  string             `json:"last_name"`
	Bio       string             `json:"bio"`
	Avatar    string             `json:"avatar,omitempty"`
	IsOnline  bool               `json:"is_online"`
	Status    string             `json:"status"`
	LastSeen  time.Time          `json:"last_seen"`
}

// Public strips credential and preference fields for cross-user responses
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       u.Bio,
		Avatar:    u.Avatar,
		IsOnline:  u.IsOnline,
		Status:    u.Status,
		LastSeen:  u.LastSeen,
	}
}
