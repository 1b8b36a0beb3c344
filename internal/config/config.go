package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// DevelopmentJWTSecret is the placeholder signing secret used when JWT_SECRET_KEY is unset
const DevelopmentJWTSecret = "supersecretkey"

// Store kinds selected from the DB_CONN scheme
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	Port     string `env:"PORT" envDefault:"3001"`
	DBConn   string `env:"DB_CONN" envDefault:"host=localhost port=5432 user=books password=books dbname=googlebooks sslmode=disable"`
	MongoDB  string `env:"MONGO_DB" envDefault:"googlebooks"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`

	JWTSecret  string        `env:"JWT_SECRET_KEY" envDefault:"supersecretkey"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"2h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`

	GoogleBooksURL    string        `env:"GOOGLE_BOOKS_URL" envDefault:"https://www.googleapis.com/books/v1/volumes"`
	GoogleBooksAPIKey string        `env:"GOOGLE_BOOKS_API_KEY"`
	ProviderTimeout   time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`

	SMTPHost     string        `env:"SMTP_HOST"`
	SMTPPort     string        `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string        `env:"SMTP_USERNAME"`
	SMTPPassword string        `env:"SMTP_PASSWORD"`
	SenderEmail  string        `env:"SENDER_EMAIL"`
	SMTPTimeout  time.Duration `env:"SMTP_TIMEOUT" envDefault:"5s"`
}

// NewConfig loads configuration from an optional .env file and environment variables
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return Parse()
}

// Parse reads configuration from environment variables only
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be positive")
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.SMTPTimeout <= 0 {
		return nil, fmt.Errorf("SMTP_TIMEOUT must be positive")
	}
	if cfg.GoogleBooksURL == "" {
		return nil, fmt.Errorf("GOOGLE_BOOKS_URL is required")
	}

	return cfg, nil
}

// StoreKind picks the user store implementation from the DB_CONN scheme
func (c *Config) StoreKind() string {
	switch {
	case strings.HasPrefix(c.DBConn, "mongodb://"), strings.HasPrefix(c.DBConn, "mongodb+srv://"):
		return StoreMongo
	case strings.HasPrefix(c.DBConn, "memory://"):
		return StoreMemory
	default:
		return StorePostgres
	}
}

// UsesDevelopmentSecret reports whether tokens are signed with the placeholder secret
func (c *Config) UsesDevelopmentSecret() bool {
	return c.JWTSecret == DevelopmentJWTSecret
}

// MailEnabled reports whether SMTP settings are present
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.SenderEmail != ""
}
