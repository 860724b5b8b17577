package retailer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/backend/internal/domain"
)

func newTestClient() *Client {
	return NewClient(ClientConfig{
		Timeout:           2 * time.Second,
		RequestsPerSecond: 1000,
		Burst:             1000,
		Logger:            zerolog.Nop(),
	})
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(ClientConfig{Logger: zerolog.Nop()})

	assert.NotNil(t, client.httpClient)
	assert.Equal(t, defaultTimeout, client.httpClient.Timeout)
	assert.NotNil(t, client.rateLimiter)
	assert.Equal(t, 10, client.rateLimiter.Burst())
	assert.Equal(t, int64(defaultMaxBodyBytes), client.maxBodyBytes)
}

func TestGetJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "Mozilla/5.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"leche"}`))
	}))
	defer server.Close()

	var out struct {
		Name string `json:"name"`
	}
	err := newTestClient().GetJSON(context.Background(), server.URL, &out)

	require.NoError(t, err)
	assert.Equal(t, "leche", out.Name)
}

func TestGetJSON_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	}))
	defer server.Close()

	var out any
	err := newTestClient().GetJSON(context.Background(), server.URL, &out)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamFailure))
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), "maintenance")
}

func TestGetJSON_DoesNotRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	var out any
	err := newTestClient().GetJSON(context.Background(), server.URL, &out)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestGetJSON_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>"))
	}))
	defer server.Close()

	var out any
	err := newTestClient().GetJSON(context.Background(), server.URL, &out)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestGetJSON_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out any
	err := newTestClient().GetJSON(ctx, server.URL, &out)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestReadLimitedBody(t *testing.T) {
	body, err := readLimitedBody(strings.NewReader("abcdefgh"), 4)

	require.NoError(t, err)
	assert.Equal(t, "abcd", string(body))
}
