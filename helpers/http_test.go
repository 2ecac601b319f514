package helpers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGatewayClientFetch(t *testing.T) {
	page := "<html><body>listing page</body></html>"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "test-key", user)

		var req map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://www.zillow.com/homedetails/123_zpid/", req["url"])
		assert.Equal(t, true, req["httpResponseBody"])

		json.NewEncoder(w).Encode(map[string]string{
			"httpResponseBody": base64.StdEncoding.EncodeToString([]byte(page)),
		})
	}))
	defer server.Close()

	gw := NewGatewayClient(server.URL, "test-key")
	content, err := gw.Fetch(context.Background(), "https://www.zillow.com/homedetails/123_zpid/")
	assert.NoError(t, err)
	assert.Equal(t, page, content)
}

func TestGatewayClientFetchErrors(t *testing.T) {
	// Gateway-side failure
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	gw := NewGatewayClient(server.URL, "test-key")
	_, err := gw.Fetch(context.Background(), "https://example.com")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")

	// Empty body in the reply
	serverEmpty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer serverEmpty.Close()

	gw = NewGatewayClient(serverEmpty.URL, "test-key")
	_, err = gw.Fetch(context.Background(), "https://example.com")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no response body")
}

func TestFetchWithRandomHeaders(t *testing.T) {
	// Create a test server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check that headers are set
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("Accept-Language"))
		assert.NotEmpty(t, r.Header.Get("referer"))

		// Send a response
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>Hello, World!</body></html>"))
	}))
	defer server.Close()

	// Fetch the page
	body, err := FetchWithRandomHeaders(context.Background(), server.URL)
	assert.NoError(t, err)
	assert.Contains(t, body, "Hello, World!")
}

func TestFetchWithRandomHeadersError(t *testing.T) {
	// Create a test server that returns an error
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	// Fetch the page
	_, err := FetchWithRandomHeaders(context.Background(), server.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 500")

	// Test with rate limiting
	serverRateLimited := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer serverRateLimited.Close()

	// Fetch the page
	_, err = FetchWithRandomHeaders(context.Background(), serverRateLimited.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestExtractZPID(t *testing.T) {
	zpid, err := ExtractZPID("https://www.zillow.com/homedetails/123-Ocean-Dr-Fort-Lauderdale-FL-33301_43012345_zpid/")
	assert.NoError(t, err)
	assert.Equal(t, "43012345", zpid)

	zpid, err = ExtractZPID("/homedetails/43012345_zpid/")
	assert.NoError(t, err)
	assert.Equal(t, "43012345", zpid)

	_, err = ExtractZPID("https://www.zillow.com/fort-lauderdale-fl/waterfront/")
	assert.Error(t, err)
}

func TestAbsoluteListingURL(t *testing.T) {
	assert.Equal(t,
		"https://www.zillow.com/homedetails/1_zpid/",
		AbsoluteListingURL("/homedetails/1_zpid/"))
	assert.Equal(t,
		"https://www.zillow.com/homedetails/1_zpid/",
		AbsoluteListingURL("https://www.zillow.com/homedetails/1_zpid/"))
}
