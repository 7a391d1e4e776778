// Package config handles loading and validation of service configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/go-playground/validator/v10"
	"golang.org/x/mod/semver"
)

// Defaults applied when a setting is absent.
const (
	DefaultPort            = "8080"
	DefaultAPIVersion      = "v1"
	DefaultDeliveryRefresh = "@every 5m"
	DefaultRateLimitRPS    = 10
	DefaultRateLimitBurst  = 20
)

// Config holds all service configuration.
// Environment determines whether store credentials load from env vars (development) or
// Secret Manager (production).
type Config struct {
	// Server settings
	Port        string `json:"port" validate:"required,numeric"`
	Environment string `json:"environment" validate:"oneof=development production"`
	LogLevel    string `json:"log_level" validate:"oneof=debug info warn error"`
	LogFile     string `json:"log_file"` // empty logs to stdout

	// GCP settings (required in production)
	GCPProject string `json:"gcp_project"`
	StoreID    string `json:"store_id"`

	Store     StoreConfig     `json:"store"`
	Delivery  DeliveryConfig  `json:"delivery"`
	RateLimit RateLimitConfig `json:"rate_limit"`
}

// StoreConfig is the WooCommerce connection.
// In production, this is loaded from Secret Manager as JSON.
type StoreConfig struct {
	StoreURL       string `json:"store_url" validate:"required,url"`
	APIKey         string `json:"api_key" validate:"required"`
	APISecret      string `json:"api_secret" validate:"required"`
	APIVersion     string `json:"api_version"` // Store API version, normalized to "vN"
	TLSFingerprint string `json:"tls_fingerprint" validate:"omitempty,oneof=chrome firefox safari none"`

	// AttributeMode is "local" (custom attributes, default) or "global" (pa_ taxonomies).
	AttributeMode string `json:"attribute_mode" validate:"omitempty,oneof=local global"`
}

// DeliveryConfig points at the delivery availability service. An empty URL disables
// quota lookups; limits then read as 0.
type DeliveryConfig struct {
	URL     string `json:"url" validate:"omitempty,url"`
	Refresh string `json:"refresh"` // cron spec for the background refresh
}

// RateLimitConfig limits requests per client IP. RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `json:"rps" validate:"gte=0"`
	Burst int     `json:"burst" validate:"gte=0"`
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Validates all fields and returns an error describing the first problem.
func Load(ctx context.Context) (*Config, error) {
	// If CONFIG_FILE is set, load everything from the JSON file
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:        envOrDefault("PORT", DefaultPort),
		Environment: envOrDefault("ENVIRONMENT", "development"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		LogFile:     os.Getenv("LOG_FILE"),
		GCPProject:  os.Getenv("GCP_PROJECT"),
		StoreID:     os.Getenv("STORE_ID"),
		Delivery: DeliveryConfig{
			URL:     os.Getenv("DELIVERY_URL"),
			Refresh: os.Getenv("DELIVERY_REFRESH"),
		},
	}

	var err error
	if cfg.RateLimit, err = rateLimitFromEnv(); err != nil {
		return nil, err
	}

	if cfg.IsProduction() {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		if cfg.StoreID == "" {
			return nil, fmt.Errorf("STORE_ID required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		cfg.loadStoreFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading store config: %w", err)
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{
		RateLimit: RateLimitConfig{RPS: DefaultRateLimitRPS, Burst: DefaultRateLimitBurst},
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Port = withDefault(cfg.Port, DefaultPort)
	cfg.Environment = withDefault(cfg.Environment, "development")
	cfg.LogLevel = withDefault(cfg.LogLevel, "info")

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// finish applies derived defaults, normalizes the API version, and validates.
func (c *Config) finish() error {
	c.Store.StoreURL = strings.TrimSuffix(c.Store.StoreURL, "/")
	c.Store.TLSFingerprint = strings.ToLower(c.Store.TLSFingerprint)
	c.Delivery.Refresh = withDefault(c.Delivery.Refresh, DefaultDeliveryRefresh)

	version, err := NormalizeAPIVersion(c.Store.APIVersion)
	if err != nil {
		return err
	}
	c.Store.APIVersion = version

	return checkStruct(newValidator(), c)
}

// NormalizeAPIVersion turns "1", "v1", or "v1.0" into "v1". Empty means DefaultAPIVersion.
func NormalizeAPIVersion(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return DefaultAPIVersion, nil
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("invalid store api_version %q", v)
	}
	return semver.Major(v), nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadFromSecretManager fetches store config from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{store_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.StoreID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Store); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}

	return nil
}

// loadStoreFromEnv reads store config from individual environment variables.
// Used in development mode for local testing.
func (c *Config) loadStoreFromEnv() {
	c.Store = StoreConfig{
		StoreURL:       os.Getenv("STORE_URL"),
		APIKey:         os.Getenv("STORE_API_KEY"),
		APISecret:      os.Getenv("STORE_API_SECRET"),
		APIVersion:     os.Getenv("STORE_API_VERSION"),
		TLSFingerprint: os.Getenv("TLS_FINGERPRINT"),
		AttributeMode:  os.Getenv("STORE_ATTRIBUTE_MODE"),
	}
}

func rateLimitFromEnv() (RateLimitConfig, error) {
	rl := RateLimitConfig{RPS: DefaultRateLimitRPS, Burst: DefaultRateLimitBurst}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return rl, fmt.Errorf("parsing RATE_LIMIT_RPS: %w", err)
		}
		rl.RPS = rps
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return rl, fmt.Errorf("parsing RATE_LIMIT_BURST: %w", err)
		}
		rl.Burst = burst
	}
	return rl, nil
}

// newValidator reports JSON names ("store_url") instead of Go field names in errors.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkStruct validates s and reports the first failing field.
func checkStruct(v *validator.Validate, s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return fmt.Errorf("validating config: %w", err)
	}

	first := validationErrors[0]
	// Drop the root type name: "Config.store.store_url" → "store.store_url"
	field := first.Namespace()
	if _, rest, found := strings.Cut(field, "."); found {
		field = rest
	}
	if first.Tag() == "required" {
		return fmt.Errorf("%s is required", field)
	}
	return fmt.Errorf("invalid %s: failed %q rule", field, first.Tag())
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
