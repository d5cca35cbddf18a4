package band

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oraclemesh/oraclecore/config"
	"github.com/oraclemesh/oraclecore/types"
)

func TestBandAdapter_ConfidenceScalesWithSourceCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":65000,"sources":["a","b","c"],"request_id":"r1","resolve_time":1700000000}`))
	}))
	defer server.Close()

	a := New(config.ProviderConfig{Endpoint: server.URL, Timeout: 5 * time.Second, Retries: 1}, nil, nil)
	resp, err := a.Query(context.Background(), types.CanonicalOracleRequest{
		Query: "BTC price", DataType: types.CategoryCustom, Parameters: map[string]any{"symbol": "BTC"}, TimeoutMs: 5000,
	})
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	assert.Equal(t, 0.95, resp.Confidence)
	assert.Equal(t, 0.30, resp.CostUSD)
}
