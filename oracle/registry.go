package oracle

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/oraclemesh/oraclecore/types"
)

// Registry maintains a name -> Adapter map and picks among registered
// adapters for a query, ranking by observed success rate and latency the
// way the teacher's weighted model router ranks LLM candidates.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	logger   *zap.Logger
}

// NewRegistry creates an empty adapter registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{adapters: make(map[string]Adapter), logger: logger}
}

// Register adds or replaces an adapter under its own name.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
	r.logger.Info("registered oracle adapter", zap.String("name", a.Name()))
}

// Unregister removes an adapter by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.adapters[name]; ok {
		delete(r.adapters, name)
		r.logger.Info("unregistered oracle adapter", zap.String("name", name))
	}
}

// Get returns the adapter registered under name, if any.
func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// List returns every registered adapter name.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AdaptersFor returns every registered adapter that declares support for
// category.
func (r *Registry) AdaptersFor(category types.DataCategory) []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Adapter
	for _, a := range r.adapters {
		if a.SupportedCategories()[category] {
			out = append(out, a)
		}
	}
	sortByRanking(out)
	return out
}

// sortByRanking orders adapters by (success_rate DESC, avg_latency_ms ASC),
// then by name for a stable tie-break.
func sortByRanking(adapters []Adapter) {
	sort.Slice(adapters, func(i, j int) bool {
		si, sj := adapters[i].Stats(), adapters[j].Stats()
		if si.SuccessRate != sj.SuccessRate {
			return si.SuccessRate > sj.SuccessRate
		}
		if si.AvgLatencyMs != sj.AvgLatencyMs {
			return si.AvgLatencyMs < sj.AvgLatencyMs
		}
		return adapters[i].Name() < adapters[j].Name()
	})
}

// QueryBest ranks the adapters that support req.DataType (optionally
// restricted to preferred), and tries them in ranked order until one
// returns a response with no error. If every attempt fails, the last
// response is returned with its provider field set to "failed".
func (r *Registry) QueryBest(ctx context.Context, req types.CanonicalOracleRequest, preferred []string) (types.CanonicalOracleResponse, error) {
	candidates := r.AdaptersFor(req.DataType)
	if len(preferred) > 0 {
		allow := make(map[string]bool, len(preferred))
		for _, name := range preferred {
			allow[name] = true
		}
		filtered := candidates[:0:0]
		for _, a := range candidates {
			if allow[a.Name()] {
				filtered = append(filtered, a)
			}
		}
		candidates = filtered
	}

	if len(candidates) == 0 {
		return types.CanonicalOracleResponse{
			Provider: "none",
			Error: types.NewError(types.ErrUnsupported,
				"no adapter available for data type "+string(req.DataType)),
		}, nil
	}

	var last types.CanonicalOracleResponse
	for _, a := range candidates {
		resp, err := a.Query(ctx, req)
		if err != nil {
			return types.CanonicalOracleResponse{}, err
		}
		if resp.Error == nil {
			return resp, nil
		}
		last = resp
	}

	last.Provider = "failed"
	return last, nil
}
