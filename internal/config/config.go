package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Upload    UploadConfig
	WebSocket WebSocketConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string
	Environment    string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DatabaseConfig holds MongoDB configuration
type DatabaseConfig struct {
	URI         string
	Name        string
	MaxPoolSize uint64
	MinPoolSize uint64
	MaxIdleTime time.Duration
}

// JWTConfig holds JWT token configuration
type JWTConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

// UploadConfig holds file upload configuration
type UploadConfig struct {
	Directory    string
	MaxSizeBytes int64
	AllowedTypes []string
}

// WebSocketConfig holds websocket tuning knobs
type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
}

// Load reads configuration from environment variables
func Load() *Config {
	// .env is optional; environment variables win either way
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Environment:    getEnv("APP_ENV", "development"),
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			URI:         getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Name:        getEnv("MONGODB_DATABASE", "telechat"),
			MaxPoolSize: uint64(getEnvAsInt("MONGODB_MAX_POOL_SIZE", 100)),
			MinPoolSize: uint64(getEnvAsInt("MONGODB_MIN_POOL_SIZE", 5)),
			MaxIdleTime: getEnvAsDuration("MONGODB_MAX_IDLE_TIME", 5*time.Minute),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-me-in-production"),
			Expiry: getEnvAsDuration("JWT_EXPIRY", 168*time.Hour),
			Issuer: getEnv("JWT_ISSUER", "telechat"),
		},
		Upload: UploadConfig{
			Directory:    getEnv("UPLOAD_DIR", "uploads"),
			MaxSizeBytes: int64(getEnvAsInt("UPLOAD_MAX_SIZE", 10*1024*1024)),
			AllowedTypes: getEnvAsSlice("UPLOAD_ALLOWED_TYPES", []string{
				"jpeg", "jpg", "png", "gif", "pdf", "doc", "docx", "txt", "mp4", "mp3", "wav",
			}),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 1024),
		},
	}
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvAsInt gets an environment variable as integer with a fallback value
func getEnvAsInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getEnvAsDuration gets an environment variable as duration with a fallback value
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getEnvAsSlice gets an environment variable as a comma-separated slice
func getEnvAsSlice(key string, fallback []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
