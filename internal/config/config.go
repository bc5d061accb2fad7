// Package config handles loading and validation of agent configuration.
// Supports both development (env vars, optional .env) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"

	"storefront/internal/model"
	"storefront/internal/negotiation"
)

// Store drivers.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds all agent configuration.
// Environment determines whether secrets load from env vars (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string
	SecretID   string

	Backend BackendConfig
	Store   StoreConfig

	Currency         string // ISO 4217
	CatalogTTL       time.Duration
	MinClientVersion string // empty disables the client gate
}

// BackendConfig describes the storefront REST backend.
type BackendConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	BrowserTLS bool
}

// StoreConfig selects where the guest store persists.
type StoreConfig struct {
	Driver      string
	Dir         string
	MaxBytes    int64
	PostgresDSN string
	ProfileID   string
}

// Secrets is the Secret Manager payload.
type Secrets struct {
	APIKey      string `json:"api_key"`
	PostgresDSN string `json:"postgres_dsn"`
}

const (
	defaultTimeout    = 15 * time.Second
	defaultCatalogTTL = 5 * time.Minute
	defaultMaxBytes   = 5 << 20 // browser localStorage budget
)

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars (+ .env in development) / Secret Manager.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	if os.Getenv("ENVIRONMENT") != "production" {
		if err := loadDotEnv(envOrDefault("ENV_FILE", ".env")); err != nil {
			return nil, err
		}
	}

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}

	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		secrets, err := loadFromSecretManager(ctx, cfg.GCPProject, cfg.SecretID)
		if err != nil {
			return nil, fmt.Errorf("loading backend secrets: %w", err)
		}
		cfg.applySecrets(secrets)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads a .env file without overriding variables already set.
// A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Port:        envOrDefault("PORT", "8080"),
		Environment: envOrDefault("ENVIRONMENT", "development"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		GCPProject:  os.Getenv("GCP_PROJECT"),
		SecretID:    envOrDefault("SECRET_ID", "storefront-agent"),
		Backend: BackendConfig{
			BaseURL: os.Getenv("API_BASE_URL"),
			APIKey:  os.Getenv("API_KEY"),
		},
		Store: StoreConfig{
			Driver:      envOrDefault("STORE_DRIVER", DriverFile),
			Dir:         os.Getenv("STORE_DIR"),
			PostgresDSN: os.Getenv("POSTGRES_DSN"),
			ProfileID:   os.Getenv("PROFILE_ID"),
		},
		Currency:         envOrDefault("CURRENCY", "KES"),
		MinClientVersion: os.Getenv("MIN_CLIENT_VERSION"),
	}

	var err error
	if cfg.Backend.Timeout, err = envDuration("API_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.CatalogTTL, err = envDuration("CATALOG_TTL"); err != nil {
		return nil, err
	}
	if v := os.Getenv("BROWSER_TLS"); v != "" {
		if cfg.Backend.BrowserTLS, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("parsing BROWSER_TLS: %w", err)
		}
	}
	if v := os.Getenv("STORE_MAX_BYTES"); v != "" {
		if cfg.Store.MaxBytes, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("parsing STORE_MAX_BYTES: %w", err)
		}
	}
	return cfg, nil
}

// fileConfig mirrors the CONFIG_FILE JSON structure.
type fileConfig struct {
	Port        string `json:"port"`
	Environment string `json:"environment"`
	LogLevel    string `json:"log_level"`
	Backend     struct {
		BaseURL    string `json:"base_url"`
		APIKey     string `json:"api_key"`
		Timeout    string `json:"timeout"`
		BrowserTLS bool   `json:"browser_tls"`
	} `json:"backend"`
	Store struct {
		Driver      string `json:"driver"`
		Dir         string `json:"dir"`
		MaxBytes    int64  `json:"max_bytes"`
		PostgresDSN string `json:"postgres_dsn"`
		ProfileID   string `json:"profile_id"`
	} `json:"store"`
	Currency         string `json:"currency"`
	CatalogTTL       string `json:"catalog_ttl"`
	MinClientVersion string `json:"min_client_version"`
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:        withDefault(fc.Port, "8080"),
		Environment: withDefault(fc.Environment, "development"),
		LogLevel:    withDefault(fc.LogLevel, "info"),
		Backend: BackendConfig{
			BaseURL:    fc.Backend.BaseURL,
			APIKey:     fc.Backend.APIKey,
			BrowserTLS: fc.Backend.BrowserTLS,
		},
		Store: StoreConfig{
			Driver:      withDefault(fc.Store.Driver, DriverFile),
			Dir:         fc.Store.Dir,
			MaxBytes:    fc.Store.MaxBytes,
			PostgresDSN: fc.Store.PostgresDSN,
			ProfileID:   fc.Store.ProfileID,
		},
		Currency:         withDefault(fc.Currency, "KES"),
		MinClientVersion: fc.MinClientVersion,
	}
	if cfg.Backend.Timeout, err = parseDuration("backend.timeout", fc.Backend.Timeout); err != nil {
		return nil, err
	}
	if cfg.CatalogTTL, err = parseDuration("catalog_ttl", fc.CatalogTTL); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromSecretManager fetches backend secrets from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{secret_id}/versions/latest
func loadFromSecretManager(ctx context.Context, project, secretID string) (*Secrets, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", project, secretID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return nil, fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	return parseSecrets(result.Payload.Data)
}

func parseSecrets(data []byte) (*Secrets, error) {
	var s Secrets
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing secret JSON: %w", err)
	}
	return &s, nil
}

// applySecrets overrides env values with non-empty secret values.
func (c *Config) applySecrets(s *Secrets) {
	if s.APIKey != "" {
		c.Backend.APIKey = s.APIKey
	}
	if s.PostgresDSN != "" {
		c.Store.PostgresDSN = s.PostgresDSN
	}
}

func (c *Config) applyDefaults() {
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = defaultTimeout
	}
	if c.CatalogTTL == 0 {
		c.CatalogTTL = defaultCatalogTTL
	}
	if c.Store.MaxBytes == 0 {
		c.Store.MaxBytes = defaultMaxBytes
	}
	if c.Store.Dir == "" {
		c.Store.Dir = ".storefront"
	}
	if c.Store.ProfileID == "" {
		c.Store.ProfileID = "default"
	}
	c.Backend.BaseURL = strings.TrimSuffix(c.Backend.BaseURL, "/")
	c.Currency = strings.ToUpper(c.Currency)
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid API_BASE_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid API_BASE_URL: scheme must be http or https")
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}

	switch c.Store.Driver {
	case DriverFile, DriverMemory:
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres store")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be file, memory or postgres, got %q", c.Store.Driver)
	}
	if c.Store.MaxBytes < 0 {
		return fmt.Errorf("STORE_MAX_BYTES must be positive")
	}

	if _, err := model.ParseCurrency(c.Currency); err != nil {
		return fmt.Errorf("invalid CURRENCY: %w", err)
	}
	if !negotiation.ValidMinimum(c.MinClientVersion) {
		return fmt.Errorf("MIN_CLIENT_VERSION %q is not a semantic version", c.MinClientVersion)
	}
	return nil
}

// IsProduction reports whether the agent runs with production logging and secrets.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func envDuration(key string) (time.Duration, error) {
	return parseDuration(key, os.Getenv(key))
}

func parseDuration(field, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", field, err)
	}
	return d, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
