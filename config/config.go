// =============================================================================
// 📦 Oracle routing core configuration
// =============================================================================
// Environment-variable driven, loaded once at process start and read-only
// thereafter. Reload is only ever called explicitly, from tests.
// =============================================================================
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ProviderConfig is the per-adapter configuration block, one per Provider.
type ProviderConfig struct {
	Enabled  bool
	APIKey   string
	Endpoint string
	Timeout  time.Duration
	Retries  int
}

// LLMProviderConfig is one configured LLM backend used for routing
// enhancement and market resolution, mirroring the teacher's
// provider-shortcut env vars (OPENAI_API_KEY, ANTHROPIC_API_KEY, ...).
type LLMProviderConfig struct {
	Name     string
	Endpoint string
	APIKey   string
	Model    string
}

// Config is the root configuration for the oracle routing core.
type Config struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	EnableAI  bool

	Providers   map[string]ProviderConfig // key: lowercase provider tag
	ChainRPC    map[string]string         // key: uppercase chain tag, e.g. "ETHEREUM"
	LLMProviders []LLMProviderConfig      // priority order; first is tried first

	CacheEnabled bool
	CacheTTL     time.Duration
	LogLevel     string
}

// DefaultConfig returns the baseline configuration before environment
// overrides are applied.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:  "http://localhost:8000",
		Timeout:  30 * time.Second,
		EnableAI: false,
		Providers: map[string]ProviderConfig{
			"chainlink": {Enabled: true, Timeout: 10 * time.Second, Retries: 3},
			"pyth":      {Enabled: true, Timeout: 5 * time.Second, Retries: 3},
			"band":      {Enabled: true, Timeout: 10 * time.Second, Retries: 3},
			"uma":       {Enabled: true, Timeout: 30 * time.Second, Retries: 2},
			"api3":      {Enabled: true, Timeout: 10 * time.Second, Retries: 3},
		},
		ChainRPC:     map[string]string{},
		CacheEnabled: true,
		CacheTTL:     5 * time.Minute,
		LogLevel:     "info",
	}
}

// providerTags lists the provider env-var prefixes this loader recognizes.
var providerTags = []string{"CHAINLINK", "PYTH", "BAND", "UMA", "API3"}

// Load builds a Config from DefaultConfig overridden by recognized
// environment variables (§6). It never mutates a previously returned
// Config; callers needing to pick up new env values call Load again
// (Reload semantics are the caller's responsibility, per the teacher's
// "global mutable singleton" design note: one-time init, read-only
// thereafter, explicit reload only in tests).
func Load() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("ORACLE_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("ORACLE_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("ORACLE_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Timeout = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("ORACLE_ENABLE_AI"); v != "" {
		cfg.EnableAI = parseBool(v)
	}
	if v := os.Getenv("CACHE_ENABLED"); v != "" {
		cfg.CacheEnabled = parseBool(v)
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.CacheTTL = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	for _, tag := range providerTags {
		p := cfg.Providers[strings.ToLower(tag)]
		if v := os.Getenv(tag + "_ENABLED"); v != "" {
			p.Enabled = parseBool(v)
		}
		if v := os.Getenv(tag + "_API_KEY"); v != "" {
			p.APIKey = v
		}
		if v := os.Getenv(tag + "_ENDPOINT"); v != "" {
			p.Endpoint = v
		}
		if v := os.Getenv(tag + "_TIMEOUT"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil {
				p.Timeout = time.Duration(secs) * time.Second
			}
		}
		if v := os.Getenv(tag + "_RETRIES"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				p.Retries = n
			}
		}
		cfg.Providers[strings.ToLower(tag)] = p
	}

	cfg.LLMProviders = loadLLMProviders()

	for _, env := range os.Environ() {
		const suffix = "_RPC_URL"
		kv := strings.SplitN(env, "=", 2)
		if len(kv) != 2 {
			continue
		}
		if strings.HasSuffix(kv[0], suffix) {
			chain := strings.TrimSuffix(kv[0], suffix)
			cfg.ChainRPC[chain] = kv[1]
		}
	}

	return cfg
}

// llmProviderSpecs lists the LLM backends recognized for enhancement, in
// priority order, mirroring the teacher's WithOpenAI/WithAnthropic/
// WithDeepSeek provider-shortcut env vars.
var llmProviderSpecs = []struct {
	name        string
	apiKeyEnv   string
	endpointEnv string
	modelEnv    string
	defaultURL  string
	defaultModel string
}{
	{"openai", "OPENAI_API_KEY", "OPENAI_ENDPOINT", "OPENAI_MODEL", "https://api.openai.com/v1/chat/completions", "gpt-4o-mini"},
	{"anthropic", "ANTHROPIC_API_KEY", "ANTHROPIC_ENDPOINT", "ANTHROPIC_MODEL", "https://api.anthropic.com/v1/messages", "claude-sonnet-4-20250514"},
	{"deepseek", "DEEPSEEK_API_KEY", "DEEPSEEK_ENDPOINT", "DEEPSEEK_MODEL", "https://api.deepseek.com/chat/completions", "deepseek-chat"},
}

// loadLLMProviders builds the enhancement fallback chain from whichever
// provider API keys are present in the environment.
func loadLLMProviders() []LLMProviderConfig {
	var out []LLMProviderConfig
	for _, spec := range llmProviderSpecs {
		key := os.Getenv(spec.apiKeyEnv)
		if key == "" {
			continue
		}
		endpoint := os.Getenv(spec.endpointEnv)
		if endpoint == "" {
			endpoint = spec.defaultURL
		}
		model := os.Getenv(spec.modelEnv)
		if model == "" {
			model = spec.defaultModel
		}
		out = append(out, LLMProviderConfig{Name: spec.name, Endpoint: endpoint, APIKey: key, Model: model})
	}
	return out
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}
