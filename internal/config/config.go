package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tour-routing-service/internal/domain"
)

// Config is the process configuration read from the environment.
type Config struct {
	Port                 string
	Store                string
	DBPath               string
	DatabaseURL          string
	SeedPath             string
	DistanceProvider     string
	ORSAPIKey            string
	DistanceCache        string
	RedisAddr            string
	Events               string
	LogLevel             string
	LogFormat            string
	PolicyPath           string
	PublicBaseURL        string
	EstimatorTimeout     time.Duration
	EstimatorConcurrency int
	DispatchConcurrency  int
}

// Get returns the value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

// FromEnv reads the configuration. Call godotenv.Load first to pick up a
// local .env file.
func FromEnv() (Config, error) {
	c := Config{
		Port:             Get("PORT", "8080"),
		Store:            strings.ToLower(Get("STORE", "sqlite")),
		DBPath:           Get("DB_PATH", "data/app.db"),
		DatabaseURL:      Get("DATABASE_URL", ""),
		SeedPath:         Get("SEED_PATH", "data/seeds/hosts.json"),
		DistanceProvider: strings.ToLower(Get("DISTANCE_PROVIDER", "haversine")),
		ORSAPIKey:        Get("ORS_API_KEY", ""),
		DistanceCache:    strings.ToLower(Get("DISTANCE_CACHE", "none")),
		RedisAddr:        Get("REDIS_ADDR", "localhost:6379"),
		Events:           strings.ToLower(Get("EVENTS", "log")),
		LogLevel:         Get("LOG_LEVEL", "info"),
		LogFormat:        Get("LOG_FORMAT", "json"),
		PolicyPath:       Get("POLICY_PATH", ""),
		PublicBaseURL:    Get("PUBLIC_BASE_URL", "http://localhost:8080"),
	}

	var err error
	if c.EstimatorTimeout, err = getDuration("ESTIMATOR_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if c.EstimatorConcurrency, err = getInt("ESTIMATOR_CONCURRENCY", 5); err != nil {
		return Config{}, err
	}
	if c.DispatchConcurrency, err = getInt("DISPATCH_CONCURRENCY", 1); err != nil {
		return Config{}, err
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func oneOf(field, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("config: %s must be one of %s, got %q", field, strings.Join(allowed, "|"), v)
}

// Validate checks the adapter choices and the settings they depend on.
func (c Config) Validate() error {
	if err := oneOf("STORE", c.Store, "sqlite", "memory"); err != nil {
		return err
	}
	if err := oneOf("DISTANCE_PROVIDER", c.DistanceProvider, "haversine", "ors"); err != nil {
		return err
	}
	if err := oneOf("DISTANCE_CACHE", c.DistanceCache, "none", "sqlite", "postgres", "redis"); err != nil {
		return err
	}
	if err := oneOf("EVENTS", c.Events, "log", "redis"); err != nil {
		return err
	}

	if c.DistanceProvider == "ors" && c.ORSAPIKey == "" {
		return fmt.Errorf("config: ORS_API_KEY is required when DISTANCE_PROVIDER=ors")
	}
	if c.DistanceCache == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("config: DATABASE_URL is required when DISTANCE_CACHE=postgres")
	}
	if c.DistanceCache == "sqlite" && c.Store != "sqlite" {
		return fmt.Errorf("config: DISTANCE_CACHE=sqlite needs STORE=sqlite")
	}
	if c.EstimatorConcurrency < 1 || c.DispatchConcurrency < 1 {
		return fmt.Errorf("config: concurrency settings must be positive")
	}
	return nil
}

// Policy returns the business policy: the defaults, overridden by the YAML
// file at PolicyPath when one is configured.
func (c Config) Policy() (domain.Policy, error) {
	if c.PolicyPath == "" {
		return domain.DefaultPolicy(), nil
	}
	return LoadPolicy(c.PolicyPath)
}
