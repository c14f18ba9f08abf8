package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/kara-dl-go/internal/domain"
)

func TestAPIClient_DecodesSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/downloads/stats", r.URL.Path)
		json.NewEncoder(w).Encode(domain.QueueStats{Total: 3, Planned: 2, Failed: 1})
	}))
	defer srv.Close()

	var stats domain.QueueStats
	require.NoError(t, newAPIClient(srv.URL).do(http.MethodGet, "/api/v1/downloads/stats", nil, &stats))
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Failed)
}

func TestAPIClient_SendsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "DL_FAILED", body["status"])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := newAPIClient(srv.URL).do(http.MethodPut, "/api/v1/downloads/a/status", map[string]string{"status": "DL_FAILED"}, nil)
	assert.NoError(t, err)
}

func TestAPIClient_SurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"download x: not found"}`))
	}))
	defer srv.Close()

	err := newAPIClient(srv.URL).do(http.MethodGet, "/api/v1/downloads/x", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download x: not found")
	assert.Contains(t, err.Error(), "404")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a long...", truncate("a long title", 9))
}

func TestServerVersion(t *testing.T) {
	serve := func(body string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/health", r.URL.Path)
			w.Write([]byte(body))
		}))
	}
	healthy := serve(`{"status":"ok","version":"1.2.0"}`)
	defer healthy.Close()
	// Something else listening on the port is not our server
	foreign := serve("<html>not kara-dl</html>")
	defer foreign.Close()

	old := serverURL
	defer func() { serverURL = old }()

	serverURL = healthy.URL
	version, ok := serverVersion()
	assert.True(t, ok)
	assert.Equal(t, "1.2.0", version)

	serverURL = foreign.URL
	_, ok = serverVersion()
	assert.False(t, ok)
}
