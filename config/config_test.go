package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	errs "github.com/obedier/zillow-wf/pkg/errors"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	config := LoadConfig()
	assert.Equal(t, "https://api.zyte.com/v1/extract", config.GatewayURL)
	assert.Equal(t, 30*time.Second, config.FetchTimeout)
	assert.Equal(t, 5, config.MaxConcurrent)
	assert.Equal(t, 20, config.MaxPages)
	assert.Equal(t, 1000, config.MaxProperties)
	assert.Equal(t, "localhost:11211", config.MemcacheAddr)
	assert.Equal(t, "localhost:6379", config.RedisAddr)
	assert.False(t, config.PublishEvents)

	// Test with environment variables
	os.Setenv("ZYTE_API_KEY", "test-key")
	os.Setenv("FETCH_TIMEOUT_SECONDS", "10")
	os.Setenv("MAX_CONCURRENT_FETCHES", "3")
	os.Setenv("MAX_SEARCH_PAGES", "0")
	os.Setenv("SEARCH_URL", "https://www.zillow.com/stuart-fl/waterfront/")
	os.Setenv("PUBLISH_EVENTS", "true")

	config = LoadConfig()
	assert.Equal(t, "test-key", config.GatewayAPIKey)
	assert.Equal(t, 10*time.Second, config.FetchTimeout)
	assert.Equal(t, 3, config.MaxConcurrent)
	assert.Equal(t, 0, config.MaxPages)
	assert.Equal(t, "https://www.zillow.com/stuart-fl/waterfront/", config.SearchURL)
	assert.True(t, config.PublishEvents)

	// Clean up
	os.Unsetenv("ZYTE_API_KEY")
	os.Unsetenv("FETCH_TIMEOUT_SECONDS")
	os.Unsetenv("MAX_CONCURRENT_FETCHES")
	os.Unsetenv("MAX_SEARCH_PAGES")
	os.Unsetenv("SEARCH_URL")
	os.Unsetenv("PUBLISH_EVENTS")
}

func TestValidate(t *testing.T) {
	config := LoadConfig()
	config.GatewayAPIKey = "key"
	assert.NoError(t, config.Validate())

	bad := config
	bad.MaxConcurrent = 0
	err := bad.Validate()
	assert.Error(t, err)
	assert.Equal(t, errs.ErrorTypeConfiguration, errs.TypeOf(err))

	bad = config
	bad.SearchURL = ""
	assert.Error(t, bad.Validate())

	bad = config
	bad.GatewayAPIKey = ""
	bad.DirectFetch = false
	assert.Error(t, bad.Validate())

	// Direct fetch does not need an API key
	bad.DirectFetch = true
	assert.NoError(t, bad.Validate())
}
