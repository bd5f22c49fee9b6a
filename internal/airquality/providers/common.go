package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/pm25-forecast/internal/observability"
)

// BackoffConfig controls exponential backoff behaviour.
// MaxRetries of zero means a single attempt.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
	Metrics *observability.Metrics
}

// DefaultHTTPConfig returns a config with a single attempt per call.
func DefaultHTTPConfig(client *http.Client) HTTPClientConfig {
	return HTTPClientConfig{
		Client: client,
		Backoff: BackoffConfig{
			MaxRetries:      0,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
	}
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// newBreaker creates the circuit breaker guarding one upstream.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// upstreamError is the error payload Open-Meteo returns on 4xx responses.
type upstreamError struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// doRequestWithResilience executes the HTTP request through a circuit breaker,
// retrying with exponential backoff only when MaxRetries > 0.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || (cfg.Backoff.MaxRetries > 0 && cfg.Backoff.InitialInterval <= 0) {
		return nil, errInvalidConfig
	}

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}

		// Ensure the request obeys context cancellation.
		req = req.WithContext(ctx)

		start := time.Now()
		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}

			defer resp.Body.Close()
			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				return nil, errRateLimited
			case resp.StatusCode >= 500:
				return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
			default:
				var ue upstreamError
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
				if json.Unmarshal(body, &ue) == nil && ue.Reason != "" {
					return nil, fmt.Errorf("%w: %d: %s", errUnexpected, resp.StatusCode, ue.Reason)
				}
				return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
			}
		})
		cfg.Metrics.ObserveUpstream(cb.Name(), err, time.Since(start))

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		lastErr = err
		if attempt >= cfg.Backoff.MaxRetries || errors.Is(err, errUnexpected) {
			return nil, lastErr
		}

		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

// getJSON performs a resilient GET and decodes the JSON body into dst.
func getJSON(ctx context.Context, cfg HTTPClientConfig, cb *gobreaker.CircuitBreaker, rawURL string, dst any) error {
	resp, err := doRequestWithResilience(ctx, cfg, cb, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, rawURL, nil)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", cb.Name(), err)
	}
	return nil
}
