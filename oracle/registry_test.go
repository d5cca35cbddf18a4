package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oraclemesh/oraclecore/types"
)

type fakeAdapter struct {
	name        string
	categories  map[types.DataCategory]bool
	stats       StatsSnapshot
	queryErr    error
	queryResp   types.CanonicalOracleResponse
}

func (f *fakeAdapter) Name() string    { return f.name }
func (f *fakeAdapter) Version() string { return "1.0.0" }
func (f *fakeAdapter) SupportedCategories() map[types.DataCategory]bool { return f.categories }
func (f *fakeAdapter) Query(ctx context.Context, req types.CanonicalOracleRequest) (types.CanonicalOracleResponse, error) {
	return f.queryResp, f.queryErr
}
func (f *fakeAdapter) HealthCheck(ctx context.Context) (HealthStatus, error) {
	return HealthStatus{Healthy: true}, nil
}
func (f *fakeAdapter) EstimateConfidence(data any, req types.CanonicalOracleRequest) float64 {
	return 0.9
}
func (f *fakeAdapter) EstimateCost(req types.CanonicalOracleRequest) float64 { return 0.1 }
func (f *fakeAdapter) ResponseMetadata(req types.CanonicalOracleRequest) map[string]any {
	return nil
}
func (f *fakeAdapter) Stats() StatsSnapshot { return f.stats }

func TestRegistry_RegisterGetList(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	a := &fakeAdapter{name: "pyth", categories: map[types.DataCategory]bool{types.CategoryPrice: true}}
	r.Register(a)

	got, ok := r.Get("pyth")
	require.True(t, ok)
	assert.Equal(t, a, got)
	assert.Equal(t, []string{"pyth"}, r.List())

	r.Unregister("pyth")
	_, ok = r.Get("pyth")
	assert.False(t, ok)
}

func TestRegistry_AdaptersForRanksBySuccessRateThenLatency(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	slow := &fakeAdapter{name: "slow", categories: map[types.DataCategory]bool{types.CategoryPrice: true},
		stats: StatsSnapshot{SuccessRate: 0.99, AvgLatencyMs: 800}}
	fast := &fakeAdapter{name: "fast", categories: map[types.DataCategory]bool{types.CategoryPrice: true},
		stats: StatsSnapshot{SuccessRate: 0.99, AvgLatencyMs: 100}}
	unreliable := &fakeAdapter{name: "unreliable", categories: map[types.DataCategory]bool{types.CategoryPrice: true},
		stats: StatsSnapshot{SuccessRate: 0.5, AvgLatencyMs: 10}}

	r.Register(slow)
	r.Register(fast)
	r.Register(unreliable)

	ranked := r.AdaptersFor(types.CategoryPrice)
	require.Len(t, ranked, 3)
	assert.Equal(t, "fast", ranked[0].Name())
	assert.Equal(t, "slow", ranked[1].Name())
	assert.Equal(t, "unreliable", ranked[2].Name())
}

func TestRegistry_QueryBestSkipsFailuresUntilSuccess(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	failing := &fakeAdapter{name: "failing", categories: map[types.DataCategory]bool{types.CategoryPrice: true},
		stats:     StatsSnapshot{SuccessRate: 0.99},
		queryResp: types.CanonicalOracleResponse{Provider: "failing", Error: types.NewError(types.ErrProvider, "down")}}
	working := &fakeAdapter{name: "working", categories: map[types.DataCategory]bool{types.CategoryPrice: true},
		stats:     StatsSnapshot{SuccessRate: 0.5},
		queryResp: types.CanonicalOracleResponse{Provider: "working", Data: "ok"}}

	r.Register(failing)
	r.Register(working)

	resp, err := r.QueryBest(context.Background(), types.CanonicalOracleRequest{DataType: types.CategoryPrice}, nil)
	require.NoError(t, err)
	assert.Equal(t, "working", resp.Provider)
}

func TestRegistry_QueryBestAllFailReturnsSentinel(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register(&fakeAdapter{name: "a", categories: map[types.DataCategory]bool{types.CategoryPrice: true},
		queryResp: types.CanonicalOracleResponse{Error: types.NewError(types.ErrProvider, "down")}})

	resp, err := r.QueryBest(context.Background(), types.CanonicalOracleRequest{DataType: types.CategoryPrice}, nil)
	require.NoError(t, err)
	assert.Equal(t, "failed", resp.Provider)
	assert.NotNil(t, resp.Error)
}

func TestRegistry_QueryBestNoAdaptersReturnsNoneSentinel(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	resp, err := r.QueryBest(context.Background(), types.CanonicalOracleRequest{DataType: types.CategoryPrice}, nil)
	require.NoError(t, err)
	assert.Equal(t, "none", resp.Provider)
	assert.Equal(t, types.ErrUnsupported, resp.Error.Code)
}

func TestRegistry_QueryBestRespectsPreferredFilter(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register(&fakeAdapter{name: "a", categories: map[types.DataCategory]bool{types.CategoryPrice: true},
		queryResp: types.CanonicalOracleResponse{Provider: "a", Data: "a-data"}})
	r.Register(&fakeAdapter{name: "b", categories: map[types.DataCategory]bool{types.CategoryPrice: true},
		queryResp: types.CanonicalOracleResponse{Provider: "b", Data: "b-data"}})

	resp, err := r.QueryBest(context.Background(), types.CanonicalOracleRequest{DataType: types.CategoryPrice}, []string{"b"})
	require.NoError(t, err)
	assert.Equal(t, "b", resp.Provider)
}
