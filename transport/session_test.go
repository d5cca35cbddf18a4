package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oraclemesh/oraclecore/types"
)

func TestSession_DoJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"price": "70000"})
	}))
	defer srv.Close()

	var metrics []RequestMetric
	s := NewSession(SessionConfig{Provider: "pyth", Logger: zap.NewNop()})
	s.OnMetric = func(m RequestMetric) { metrics = append(metrics, m) }

	var out map[string]string
	err := s.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "70000", out["price"])
	require.Len(t, metrics, 1)
	assert.Equal(t, http.StatusOK, metrics[0].Status)
}

func TestSession_DoJSON_ServerErrorRetriesThenFails(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewSession(SessionConfig{
		Provider: "band",
		Logger:   zap.NewNop(),
		RetryPolicy: &RetryPolicy{
			MaxRetries:   2,
			InitialDelay: 5 * time.Millisecond,
			MaxDelay:     20 * time.Millisecond,
			Multiplier:   2,
		},
		BreakerCfg: &BreakerConfig{Threshold: 100, Timeout: 5 * time.Second, ResetTimeout: time.Hour},
	})

	err := s.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil, nil)
	require.Error(t, err)
	assert.Equal(t, 3, calls, "initial attempt plus 2 retries")
}

func TestSession_DoJSON_ValidationErrorsDontRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewSession(SessionConfig{Provider: "uma", Logger: zap.NewNop()})
	err := s.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil, nil)

	require.Error(t, err)
	var oracleErr *types.Error
	require.ErrorAs(t, err, &oracleErr)
	assert.Equal(t, types.ErrValidation, oracleErr.Code)
	assert.Equal(t, 1, calls)
}

func TestSession_DoJSON_RateLimitSetsBackOff(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewSession(SessionConfig{
		Provider: "chainlink",
		Logger:   zap.NewNop(),
		RetryPolicy: &RetryPolicy{
			MaxRetries:   0,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1,
		},
	})

	err := s.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil, nil)
	require.Error(t, err)

	var oracleErr *types.Error
	require.ErrorAs(t, err, &oracleErr)
	assert.Equal(t, types.ErrRateLimit, oracleErr.Code)
}
