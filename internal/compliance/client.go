// Package compliance provides connectivity to the compliance subsystem that
// owns import cases for EU-sourced shipments.
package compliance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/winefeed/winefeed-api/internal/config"
	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// CreateCaseRequest asks the compliance subsystem to open an import case for
// an order under the given importer of record
type CreateCaseRequest struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	OrderID    uuid.UUID `json:"order_id"`
	ImporterID uuid.UUID `json:"importer_id"`
}

// CreateCaseResponse carries the new case's id and human-readable reference
type CreateCaseResponse struct {
	CaseID    uuid.UUID `json:"case_id"`
	Reference string    `json:"reference"`
}

// Client talks to the compliance HTTP API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a compliance client. Returns nil when no base URL is
// configured; callers must treat a nil client as a disabled integration.
func NewClient(cfg *config.ComplianceConfig, logger *zap.Logger) *Client {
	if cfg == nil || cfg.BaseURL == "" {
		logger.Info("Compliance integration disabled")
		return nil
	}

	timeout := cfg.TimeoutDuration()
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// CreateCase opens an import case for an order
func (c *Client) CreateCase(ctx context.Context, req *CreateCaseRequest) (*CreateCaseResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("compliance client not initialized")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal case request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/import-cases", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build case request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("case request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("Compliance case creation returned error status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", payload),
		)
		return nil, fmt.Errorf("case creation returned status %d", resp.StatusCode)
	}

	var result CreateCaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode case response: %w", err)
	}

	c.logger.Info("Import case opened",
		zap.String("case_id", result.CaseID.String()),
		zap.String("order_id", req.OrderID.String()),
		zap.Duration("duration", time.Since(start)),
	)

	return &result, nil
}
