package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oraclemesh/oraclecore/types"
)

// RequestMetric summarizes one outbound HTTP call for logging/metrics.
type RequestMetric struct {
	RequestID string
	Provider  string
	Method    string
	URL       string
	Start     time.Time
	End       time.Time
	Status    int
	BytesRead int64
	Retries   int
	Err       error
}

// Duration is End-Start.
func (m RequestMetric) Duration() time.Duration { return m.End.Sub(m.Start) }

// Session is a pooled HTTP client shared by every adapter for a given
// provider: one *http.Client (so connections are reused), wrapped with the
// retry/circuit-breaker/rate-limit trio and a metric callback.
type Session struct {
	provider string
	client   *http.Client
	logger   *zap.Logger

	retryer  Retryer
	breaker  CircuitBreaker
	limiter  *RateLimiter
	OnMetric func(RequestMetric)
}

// SessionConfig bundles the knobs a Session needs; nil fields fall back to
// conservative defaults.
type SessionConfig struct {
	Provider     string
	Timeout      time.Duration
	RetryPolicy  *RetryPolicy
	BreakerCfg   *BreakerConfig
	RateLimitRPS float64
	RateBurst    int
	Logger       *zap.Logger
}

// NewSession builds a Session for one provider, wiring the retryer, circuit
// breaker and rate limiter the adapter layer expects to already be present.
func NewSession(cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 5
	}

	s := &Session{
		provider: cfg.Provider,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
		retryer:  NewBackoffRetryer(cfg.RetryPolicy, logger),
		breaker:  NewCircuitBreaker(cfg.Provider, cfg.BreakerCfg, logger),
		limiter:  NewRateLimiter(rps, burst),
	}
	s.OnMetric = s.logMetric
	return s
}

// logMetric is the default OnMetric handler, logging each call at debug
// level tagged with its RequestID so a single upstream call can be traced
// across retries in the logs. Callers may override OnMetric to replace or
// chain additional behavior (e.g. feeding a metrics collector).
func (s *Session) logMetric(m RequestMetric) {
	s.logger.Debug("oracle http request",
		zap.String("request_id", m.RequestID),
		zap.String("provider", m.Provider),
		zap.String("method", m.Method),
		zap.Int("status", m.Status),
		zap.Int("retries", m.Retries),
		zap.Duration("duration", m.Duration()),
		zap.Error(m.Err))
}

// BreakerState exposes the underlying breaker's state for health reporting.
func (s *Session) BreakerState() State { return s.breaker.State() }

// DoJSON issues method to url with body marshaled as JSON (nil body is
// allowed for GET), decodes a JSON response into out, and applies the
// retry/breaker/rate-limit stack. headers are applied after the default
// Content-Type/Accept pair so callers can override them (e.g. x-api-key).
func (s *Session) DoJSON(ctx context.Context, method, url string, body any, headers map[string]string, out any) error {
	retries := 0
	metric := RequestMetric{RequestID: uuid.New().String(), Provider: s.provider, Method: method, URL: url, Start: time.Now()}

	result, err := s.breaker.CallWithResult(ctx, func() (any, error) {
		return s.retryer.DoWithResult(ctx, func() (any, error) {
			if retries > 0 {
				metric.Retries = retries
			}
			retries++
			if err := s.limiter.Wait(ctx, s.provider); err != nil {
				return nil, types.NewError(types.ErrCancelled, "rate limiter wait cancelled").WithCause(err)
			}
			return s.doOnce(ctx, method, url, body, headers)
		})
	})

	metric.End = time.Now()
	if err != nil {
		metric.Err = err
		if s.OnMetric != nil {
			s.OnMetric(metric)
		}
		return err
	}

	raw := result.(*rawResponse)
	metric.Status = raw.status
	metric.BytesRead = int64(len(raw.body))
	if s.OnMetric != nil {
		s.OnMetric(metric)
	}

	if out != nil && len(raw.body) > 0 {
		if err := json.Unmarshal(raw.body, out); err != nil {
			return types.NewError(types.ErrProvider, "decode response body").
				WithProvider(s.provider).WithCause(err)
		}
	}
	return nil
}

type rawResponse struct {
	status int
	body   []byte
}

func (s *Session) doOnce(ctx context.Context, method, url string, body any, headers map[string]string) (any, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, types.NewError(types.ErrValidation, "marshal request body").WithCause(err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, types.NewError(types.ErrValidation, "build request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, types.NewError(types.ErrNetwork, err.Error()).
			WithProvider(s.provider).WithRetryable(true)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewError(types.ErrNetwork, "read response body").
			WithProvider(s.provider).WithCause(err).WithRetryable(true)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		s.limiter.BackOff(s.provider, retryAfterDuration(resp.Header.Get("Retry-After")))
		return nil, types.NewError(types.ErrRateLimit, "rate limited").
			WithProvider(s.provider).WithRetryable(true)
	}
	if resp.StatusCode >= 500 {
		return nil, types.NewError(types.ErrProvider, fmt.Sprintf("upstream status %d", resp.StatusCode)).
			WithProvider(s.provider).WithDetails(string(data)).WithRetryable(true)
	}
	if resp.StatusCode >= 400 {
		code := types.ErrValidation
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			code = types.ErrAuth
		}
		return nil, types.NewError(code, fmt.Sprintf("request rejected with status %d", resp.StatusCode)).
			WithProvider(s.provider).WithDetails(string(data))
	}

	return &rawResponse{status: resp.StatusCode, body: data}, nil
}

// retryAfterDuration parses a Retry-After header, which may be either a
// delay in seconds or an HTTP date; unparseable values fall back to 1s.
func retryAfterDuration(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return time.Second
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(header); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return time.Second
}
