package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/unosend/unosend/internal/domain"
)

// Delivery headers carried on every attempt.
const (
	HeaderSignature    = "X-Unosend-Signature"
	HeaderTimestamp    = "X-Unosend-Timestamp"
	HeaderWebhookID    = "X-Unosend-Webhook-Id"
	HeaderRetryAttempt = "X-Unosend-Retry-Attempt"
)

// Defaults for the retrying deliverer.
const (
	DefaultMaxRetries     = 5
	DefaultAttemptTimeout = 30 * time.Second
	DefaultInitialDelay   = time.Second
	DefaultMaxDelay       = 5 * time.Minute
	DefaultMultiplier     = 2.0
)

// Payload is the JSON body posted to subscriber URLs.
type Payload struct {
	Type      domain.WebhookEvent    `json:"type"`
	Data      map[string]interface{} `json:"data"`
	CreatedAt time.Time              `json:"created_at"`
}

// DeliveryResult captures the terminal outcome of a delivery attempt sequence.
// StatusCode is zero when no HTTP response was ever received.
type DeliveryResult struct {
	Success    bool
	StatusCode int
	Error      string
	Attempts   int
}

// Deliverer performs a webhook POST toward a single subscriber URL.
type Deliverer interface {
	Deliver(ctx context.Context, url, secret, webhookID string, payload Payload) DeliveryResult
}

// DelivererConfig controls retry behavior of the HTTP deliverer.
type DelivererConfig struct {
	MaxRetries     int
	AttemptTimeout time.Duration
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
}

// DefaultDelivererConfig returns the production retry policy.
func DefaultDelivererConfig() DelivererConfig {
	return DelivererConfig{
		MaxRetries:     DefaultMaxRetries,
		AttemptTimeout: DefaultAttemptTimeout,
		InitialDelay:   DefaultInitialDelay,
		MaxDelay:       DefaultMaxDelay,
		Multiplier:     DefaultMultiplier,
	}
}

// HTTPDeliverer posts signed payloads with bounded retries and exponential
// backoff. 2xx responses succeed, 4xx responses other than 429 fail
// immediately, everything else (5xx, 429, network errors, timeouts) is retried
// until MaxRetries is exhausted.
type HTTPDeliverer struct {
	client *http.Client
	cfg    DelivererConfig
}

// NewHTTPDeliverer creates a deliverer with the given retry policy. Zero
// fields in cfg fall back to defaults.
func NewHTTPDeliverer(cfg DelivererConfig) *HTTPDeliverer {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultInitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = DefaultMultiplier
	}
	return &HTTPDeliverer{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cfg: cfg,
	}
}

// Deliver serializes the payload once, signs it, and runs the attempt loop.
// The signature and timestamp are computed once so every retry carries the
// same authenticator.
func (d *HTTPDeliverer) Deliver(ctx context.Context, url, secret, webhookID string, payload Payload) DeliveryResult {
	body, err := json.Marshal(payload)
	if err != nil {
		return DeliveryResult{Error: fmt.Sprintf("marshal payload: %v", err)}
	}

	timestamp := time.Now().UnixMilli()
	signature := Sign(secret, timestamp, body)

	var lastStatus int
	var lastErr string

	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		status, err := d.attempt(ctx, url, webhookID, signature, timestamp, body, attempt)
		switch {
		case err == nil && status >= 200 && status < 300:
			return DeliveryResult{Success: true, StatusCode: status, Attempts: attempt + 1}
		case err == nil && status >= 400 && status < 500 && status != http.StatusTooManyRequests:
			// Client errors are not retriable; the request itself was rejected.
			return DeliveryResult{
				StatusCode: status,
				Error:      fmt.Sprintf("endpoint returned %d", status),
				Attempts:   attempt + 1,
			}
		case err != nil:
			lastStatus = 0
			lastErr = err.Error()
		default:
			lastStatus = status
			lastErr = fmt.Sprintf("endpoint returned %d", status)
		}

		if attempt < d.cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return DeliveryResult{
					StatusCode: lastStatus,
					Error:      ctx.Err().Error(),
					Attempts:   attempt + 1,
				}
			case <-time.After(d.backoffDelay(attempt)):
			}
		}
	}

	return DeliveryResult{
		StatusCode: lastStatus,
		Error:      lastErr,
		Attempts:   d.cfg.MaxRetries + 1,
	}
}

// attempt performs a single POST with the per-attempt timeout.
func (d *HTTPDeliverer) attempt(ctx context.Context, url, webhookID, signature string, timestamp int64, body []byte, attempt int) (int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	req.Header.Set(HeaderWebhookID, webhookID)
	req.Header.Set(HeaderRetryAttempt, strconv.Itoa(attempt))

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return resp.StatusCode, nil
}

// backoffDelay returns min(InitialDelay * Multiplier^attempt, MaxDelay).
func (d *HTTPDeliverer) backoffDelay(attempt int) time.Duration {
	delay := float64(d.cfg.InitialDelay) * math.Pow(d.cfg.Multiplier, float64(attempt))
	if delay > float64(d.cfg.MaxDelay) {
		delay = float64(d.cfg.MaxDelay)
	}
	return time.Duration(delay)
}
