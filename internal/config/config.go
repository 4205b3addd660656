package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment   string
	Port          string
	DBHost        string
	DBPort        string
	DBUsername    string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	RedisURL      string
	WebhookToken  string
	APIToken      string
	BlobBackend   string
	BlobS3Bucket  string
	BlobS3Region  string
	BlobFSDir     string
	ScopeCacheTTL time.Duration
	StoreTimeout  time.Duration
	Timezone      string
}

func NewConfig() (*Config, error) {
	env := os.Getenv("MAILFOLD_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment:   env,
		Port:          getEnvOrDefault("PORT", "8080"),
		DBHost:        getEnvOrDefault("MAILFOLD_DB_HOST", "localhost"),
		DBPort:        getEnvOrDefault("MAILFOLD_DB_PORT", "5432"),
		DBUsername:    getEnvOrDefault("MAILFOLD_DB_USER", "mailfold"),
		DBPassword:    os.Getenv("MAILFOLD_DB_PASSWORD"),
		DBName:        getEnvOrDefault("MAILFOLD_DB_NAME", "mailfold"),
		DBSSLMode:     getEnvOrDefault("MAILFOLD_DB_SSLMODE", "disable"),
		RedisURL:      os.Getenv("MAILFOLD_REDIS_URL"),
		WebhookToken:  os.Getenv("MAILFOLD_WEBHOOK_TOKEN"),
		APIToken:      os.Getenv("MAILFOLD_API_TOKEN"),
		BlobBackend:   getEnvOrDefault("MAILFOLD_BLOB_BACKEND", "fs"),
		BlobS3Bucket:  os.Getenv("MAILFOLD_BLOB_S3_BUCKET"),
		BlobS3Region:  os.Getenv("MAILFOLD_BLOB_S3_REGION"),
		BlobFSDir:     getEnvOrDefault("MAILFOLD_BLOB_FS_DIR", "./data/attachments"),
		ScopeCacheTTL: getDurationOrDefault("MAILFOLD_SCOPE_CACHE_TTL", 5*time.Minute),
		StoreTimeout:  getDurationOrDefault("MAILFOLD_STORE_TIMEOUT", 10*time.Second),
		Timezone:      getEnvOrDefault("TZ", "UTC"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.DBPassword == "" {
		return fmt.Errorf("MAILFOLD_DB_PASSWORD is required")
	}

	if c.WebhookToken == "" {
		return fmt.Errorf("MAILFOLD_WEBHOOK_TOKEN is required")
	}

	if c.APIToken == "" {
		return fmt.Errorf("MAILFOLD_API_TOKEN is required")
	}

	if !isValidPort(c.DBPort) {
		return fmt.Errorf("MAILFOLD_DB_PORT is not a valid port number: %s", c.DBPort)
	}

	if !isValidPort(c.Port) {
		return fmt.Errorf("PORT is not a valid port number: %s", c.Port)
	}

	switch c.BlobBackend {
	case "fs":
	case "s3":
		if c.BlobS3Bucket == "" {
			return fmt.Errorf("MAILFOLD_BLOB_S3_BUCKET is required when MAILFOLD_BLOB_BACKEND is s3")
		}
	default:
		return fmt.Errorf("MAILFOLD_BLOB_BACKEND must be fs or s3, got %q", c.BlobBackend)
	}

	return nil
}

// GetDatabaseURL builds the Postgres connection URL. Username and
// password are URL-escaped so special characters survive parsing.
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(c.DBUsername),
		url.QueryEscape(c.DBPassword),
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func isValidPort(s string) bool {
	port, err := strconv.Atoi(s)
	return err == nil && port >= 1 && port <= 65535
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
