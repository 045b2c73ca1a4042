// Package wineref provides connectivity to the external wine-reference
// service used for canonical text lookups during product matching.
package wineref

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/winefeed/winefeed-api/internal/config"
	"github.com/winefeed/winefeed-api/internal/metrics"
	"go.uber.org/zap"
)

const defaultTimeout = 5 * time.Second

// CheckStatus is the lookup verdict reported by the reference service
type CheckStatus string

const (
	CheckStatusMatched  CheckStatus = "MATCHED"
	CheckStatusNotFound CheckStatus = "NOT_FOUND"
)

// Candidate is one alternative the reference service proposes for an
// ambiguous name
type Candidate struct {
	CanonicalName string  `json:"canonical_name"`
	Producer      string  `json:"producer,omitempty"`
	Vintage       int     `json:"vintage,omitempty"`
	Score         float64 `json:"score"`
}

// CheckResult is the reference service's answer for one wine name
type CheckResult struct {
	Status        CheckStatus `json:"status"`
	CanonicalName string      `json:"canonical_name,omitempty"`
	Producer      string      `json:"producer,omitempty"`
	Region        string      `json:"region,omitempty"`
	Country       string      `json:"country,omitempty"`
	Score         float64     `json:"score"`
	Candidates    []Candidate `json:"candidates,omitempty"`
}

type checkRequest struct {
	Name    string `json:"name"`
	Vintage int    `json:"vintage,omitempty"`
}

// Client talks to the wine-reference HTTP API. A nil client is valid and
// reports itself disabled, mirroring how optional integrations are handled
// elsewhere.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a wine-reference client. Returns nil when no base URL is
// configured; callers must treat a nil client as a disabled integration.
func NewClient(cfg *config.WineRefConfig, logger *zap.Logger) *Client {
	if cfg == nil || cfg.BaseURL == "" {
		logger.Info("Wine reference lookup disabled")
		return nil
	}

	timeout := cfg.TimeoutDuration()
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// IsEnabled returns true if the client is initialized and ready for lookups
func (c *Client) IsEnabled() bool {
	return c != nil && c.baseURL != ""
}

// CheckWine asks the reference service whether a free-text name resolves to a
// known canonical wine. The context bounds the request; the caller decides
// what a timeout means for its own flow.
func (c *Client) CheckWine(ctx context.Context, name string, vintage int) (*CheckResult, error) {
	if !c.IsEnabled() {
		return nil, fmt.Errorf("wine reference client not initialized")
	}

	body, err := json.Marshal(checkRequest{Name: name, Vintage: vintage})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lookup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/wines/check", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.WineRefLookupDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.logger.Warn("Wine reference lookup failed",
			zap.String("name", name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("Wine reference lookup returned error status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", payload),
		)
		return nil, fmt.Errorf("lookup returned status %d", resp.StatusCode)
	}

	var result CheckResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode lookup response: %w", err)
	}

	c.logger.Debug("Wine reference lookup completed",
		zap.String("name", name),
		zap.String("status", string(result.Status)),
		zap.Float64("score", result.Score),
		zap.Duration("duration", time.Since(start)),
	)

	return &result, nil
}
