package utils

import (
	"fmt"
	"time"

	"telechat/internal/config"

	"github.com/golang-jwt/jwt/v4"
)

// UserClaims represents JWT claims for authenticated users
type UserClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.StandardClaims
}

// GenerateToken issues a signed bearer token for the given user
func GenerateToken(userID, username string) (string, error) {
	cfg := config.Load()

	now := time.Now()
	claims := UserClaims{
		UserID:   userID,
		Username: username,
		StandardClaims: jwt.StandardClaims{
			Issuer:    cfg.JWT.Issuer,
			Subject:   userID,
			IssuedAt:  now.Unix(),
			NotBefore: now.Unix(),
			ExpiresAt: now.Add(cfg.JWT.Expiry).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWT.Secret))
}

// ValidateToken parses and verifies a bearer token
func ValidateToken(tokenString string) (*UserClaims, error) {
	cfg := config.Load()

	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.JWT.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
