package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	errs "github.com/obedier/zillow-wf/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Fetch gateway configuration
	GatewayAPIKey  string
	GatewayURL     string
	FetchTimeout   time.Duration
	MaxConcurrent  int
	DirectFetch    bool
	InterPageDelay time.Duration

	// Search / crawl configuration
	SearchURL     string
	MaxPages      int
	MaxProperties int

	// Database configuration
	DatabaseURL string

	// Memcache configuration
	MemcacheAddr  string
	DedupCacheTTL time.Duration

	// Redis event stream configuration
	PublishEvents        bool
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Run artifacts
	OutputDir string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	fetchTimeout, _ := strconv.Atoi(getEnv("FETCH_TIMEOUT_SECONDS", "30"))
	maxConcurrent, _ := strconv.Atoi(getEnv("MAX_CONCURRENT_FETCHES", "5"))
	maxPages, _ := strconv.Atoi(getEnv("MAX_SEARCH_PAGES", "20"))
	maxProperties, _ := strconv.Atoi(getEnv("MAX_PROPERTIES_PER_SEARCH", "1000"))
	interPageDelay, _ := strconv.Atoi(getEnv("INTER_PAGE_DELAY_MS", "1000"))
	dedupTTL, _ := strconv.Atoi(getEnv("DEDUP_CACHE_TTL_SECONDS", "3600"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))

	return Config{
		GatewayAPIKey:        getEnv("ZYTE_API_KEY", ""),
		GatewayURL:           getEnv("FETCH_GATEWAY_URL", "https://api.zyte.com/v1/extract"),
		FetchTimeout:         time.Duration(fetchTimeout) * time.Second,
		MaxConcurrent:        maxConcurrent,
		DirectFetch:          getEnv("DIRECT_FETCH", "") == "true",
		InterPageDelay:       time.Duration(interPageDelay) * time.Millisecond,
		SearchURL:            getEnv("SEARCH_URL", "https://www.zillow.com/fort-lauderdale-fl/waterfront/"),
		MaxPages:             maxPages,
		MaxProperties:        maxProperties,
		DatabaseURL:          getEnv("DATABASE_URL", "postgres://localhost:5432/zillow_wf?sslmode=disable"),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		DedupCacheTTL:        time.Duration(dedupTTL) * time.Second,
		PublishEvents:        getEnv("PUBLISH_EVENTS", "") == "true",
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "listings"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLen,
		OutputDir:            getEnv("OUTPUT_DIR", "data/summary"),
		Environment:          getEnv("ZILLOW_WF_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for obvious misconfiguration
func (c *Config) Validate() error {
	if c.SearchURL == "" {
		return errs.NewConfiguration("SEARCH_URL must not be empty", nil)
	}
	if c.DatabaseURL == "" {
		return errs.NewConfiguration("DATABASE_URL must not be empty", nil)
	}
	if c.MaxConcurrent < 1 {
		return errs.NewConfiguration(fmt.Sprintf("MAX_CONCURRENT_FETCHES must be at least 1, got %d", c.MaxConcurrent), nil)
	}
	if c.MaxPages < 0 {
		return errs.NewConfiguration(fmt.Sprintf("MAX_SEARCH_PAGES must not be negative, got %d", c.MaxPages), nil)
	}
	if !c.DirectFetch && c.GatewayAPIKey == "" {
		return errs.NewConfiguration("ZYTE_API_KEY is required unless DIRECT_FETCH=true", nil)
	}
	if c.PublishEvents && c.RedisStreamCount < 1 {
		return errs.NewConfiguration(fmt.Sprintf("REDIS_STREAM_COUNT must be at least 1, got %d", c.RedisStreamCount), nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
