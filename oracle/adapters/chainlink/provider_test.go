package chainlink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oraclemesh/oraclecore/config"
	"github.com/oraclemesh/oraclecore/types"
)

func TestChainlinkAdapter_QuerySuccess(t *testing.T) {
	now := time.Now().Unix()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"round_id":"1","answer":65000.5,"updated_at":` + strconv.FormatInt(now, 10) + `,"decimals":8}`))
	}))
	defer server.Close()

	a := New(config.ProviderConfig{Endpoint: server.URL, Timeout: 5 * time.Second, Retries: 1}, nil, nil)
	resp, err := a.Query(context.Background(), types.CanonicalOracleRequest{
		Query: "BTC price", DataType: types.CategoryPrice, Parameters: map[string]any{"asset": "BTC"}, TimeoutMs: 5000,
	})
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	assert.Equal(t, "chainlink", resp.Provider)
	assert.Greater(t, resp.Confidence, 0.9)
}

func TestChainlinkAdapter_MissingAssetIsValidationError(t *testing.T) {
	a := New(config.ProviderConfig{Timeout: time.Second}, nil, nil)
	resp, err := a.Query(context.Background(), types.CanonicalOracleRequest{
		Query: "price", DataType: types.CategoryPrice, TimeoutMs: 1000,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, types.ErrValidation, resp.Error.Code)
}

func TestChainlinkAdapter_UnsupportedCategoryRejectedByBase(t *testing.T) {
	a := New(config.ProviderConfig{Timeout: time.Second}, nil, nil)
	_, err := a.Query(context.Background(), types.CanonicalOracleRequest{
		Query: "q", DataType: types.CategoryElection, TimeoutMs: 1000,
	})
	require.Error(t, err)
}
