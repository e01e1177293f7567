// Package lookup resolves a CIP13 product code to its descriptive metadata
// using the public medicine database API.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/medicab/medicab-backend/pkg/config"
	"github.com/medicab/medicab-backend/pkg/errors"
	"github.com/medicab/medicab-backend/pkg/logger"
)

// Medicine is the descriptive record the drug database returns for a CIP13.
type Medicine struct {
	CIP13                string  `json:"cip13"`
	Name                 string  `json:"name"`
	PharmaceuticalForm   *string `json:"pharmaceutical_form,omitempty"`
	AdministrationRoutes *string `json:"administration_routes,omitempty"`
	MarketingHolder      *string `json:"marketing_holder,omitempty"`
	Presentation         *string `json:"presentation,omitempty"`
}

// Client handles communication with the medicine database API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	logger      *logger.Logger
}

// NewClient creates a new medicine database client
func NewClient(cfg *config.LookupConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     cfg.BaseURL,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:      log.WithComponent("lookup"),
	}
}

// GetByCIP13 fetches the medicine record for a product code.
// Transient failures are retried up to three times with linear backoff.
// A code unknown to the database yields a NOT_FOUND AppError.
func (c *Client) GetByCIP13(ctx context.Context, cip13 string) (*Medicine, error) {
	reqURL := fmt.Sprintf("%s/v1/medicaments/%s", c.baseURL, cip13)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		medicine, retry, err := c.fetch(ctx, reqURL)
		if err == nil {
			return medicine, nil
		}
		if !retry {
			return nil, err
		}

		c.logger.Warn().Err(err).Int("attempt", attempt).Str("cip13", cip13).Msg("lookup request failed")
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}

	return nil, errors.Upstream(lastErr)
}

// fetch performs a single request. The second return value reports whether
// the failure is worth retrying.
func (c *Client) fetch(ctx context.Context, reqURL string) (*Medicine, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "medicab/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var medicine Medicine
		if err := json.Unmarshal(body, &medicine); err != nil {
			return nil, false, fmt.Errorf("failed to decode response: %w", err)
		}
		return &medicine, false, nil

	case resp.StatusCode == http.StatusNotFound:
		return nil, false, errors.NotFound("medicine")

	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("status %d", resp.StatusCode)

	default:
		return nil, false, errors.Upstream(fmt.Errorf("status %d", resp.StatusCode))
	}
}
