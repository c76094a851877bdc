// Package prediction submits assessment payloads to the external
// deficiency-risk service and validates its responses.
package prediction

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Skufu/NutriPredict/internal/contract"
)

const DefaultTimeout = 15 * time.Second

type Client struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewClient creates a client that POSTs to url. Requests are never retried.
func NewClient(url string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		url:        url,
		logger:     logger,
	}
}

// Predict sends payload and returns the parsed result. Every failure is an
// *Error of kind Unreachable.
func (c *Client) Predict(ctx context.Context, payload contract.Payload) (*Result, error) {
	start := time.Now()
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.url)
	if err != nil {
		c.logger.Warn("prediction request failed",
			zap.String("url", c.url),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, unreachable(fmt.Errorf("post %s: %w", c.url, err))
	}

	if !resp.IsSuccess() {
		c.logger.Warn("prediction service returned error status",
			zap.String("url", c.url),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, unreachable(fmt.Errorf("post %s: status %d", c.url, resp.StatusCode()))
	}

	result, err := DecodeResult(resp.Body())
	if err != nil {
		c.logger.Warn("prediction service returned malformed body",
			zap.String("url", c.url),
			zap.Error(err),
		)
		return nil, unreachable(err)
	}

	c.logger.Debug("prediction received",
		zap.String("deficiency_risk", string(result.DeficiencyRisk)),
		zap.Float64("confidence", result.Confidence),
		zap.Int("recommendations", len(result.Recommendations)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}
