package wineref

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	promdto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/winefeed/winefeed-api/internal/config"
	"github.com/winefeed/winefeed-api/internal/metrics"
	"go.uber.org/zap"
)

func lookupSampleCount(t *testing.T) uint64 {
	t.Helper()
	var m promdto.Metric
	require.NoError(t, metrics.WineRefLookupDuration.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestNewClientDisabledWithoutBaseURL(t *testing.T) {
	client := NewClient(&config.WineRefConfig{}, zap.NewNop())
	assert.Nil(t, client)
	assert.False(t, client.IsEnabled())

	_, err := client.CheckWine(context.Background(), "Barolo", 2018)
	assert.Error(t, err)
}

func TestCheckWineMatched(t *testing.T) {
	var gotAuth string
	var gotBody checkRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/wines/check", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(CheckResult{
			Status:        CheckStatusMatched,
			CanonicalName: "Barolo DOCG",
			Producer:      "Giacomo Conterno",
			Country:       "Italy",
			Score:         94,
			Candidates: []Candidate{
				{CanonicalName: "Barolo DOCG", Score: 94},
			},
		})
	}))
	defer server.Close()

	client := NewClient(&config.WineRefConfig{BaseURL: server.URL, APIKey: "secret", Timeout: 5}, zap.NewNop())
	require.True(t, client.IsEnabled())

	samplesBefore := lookupSampleCount(t)
	result, err := client.CheckWine(context.Background(), "Barolo", 2018)
	require.NoError(t, err)
	assert.Equal(t, samplesBefore+1, lookupSampleCount(t))

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "Barolo", gotBody.Name)
	assert.Equal(t, 2018, gotBody.Vintage)
	assert.Equal(t, CheckStatusMatched, result.Status)
	assert.Equal(t, "Barolo DOCG", result.CanonicalName)
	assert.Equal(t, 94.0, result.Score)
	assert.Len(t, result.Candidates, 1)
}

func TestCheckWineNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CheckResult{Status: CheckStatusNotFound})
	}))
	defer server.Close()

	client := NewClient(&config.WineRefConfig{BaseURL: server.URL}, zap.NewNop())
	result, err := client.CheckWine(context.Background(), "Unknown Garage Wine", 0)
	require.NoError(t, err)
	assert.Equal(t, CheckStatusNotFound, result.Status)
}

func TestCheckWineErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(&config.WineRefConfig{BaseURL: server.URL}, zap.NewNop())
	_, err := client.CheckWine(context.Background(), "Barolo", 2018)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
