package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/oraclemesh/oraclecore/types"
)

// CapabilityOverlay is the YAML-friendly shape an operator can drop beside
// the binary to override routing.Capabilities at startup, per §4.C's
// "loaded at startup, immutable thereafter (hot-reload is a non-goal)".
// Categories/SupportedChains are plain string lists here since YAML has no
// native set type; LoadCapabilitiesOverlay expands them into the map form
// types.ProviderCapabilities expects.
type CapabilityOverlay struct {
	Providers map[string]ProviderCapabilityOverlay `yaml:"providers"`
}

// ProviderCapabilityOverlay is one entry in CapabilityOverlay.
type ProviderCapabilityOverlay struct {
	Categories      []string            `yaml:"categories"`
	UpdateFrequency string              `yaml:"update_frequency"`
	SupportedChains []string            `yaml:"supported_chains"`
	LatencyMs       int                 `yaml:"latency_ms"`
	Reliability     float64             `yaml:"reliability"`
	CostUSD         float64             `yaml:"cost_usd"`
	Specialties     map[string][]string `yaml:"specialties"`
}

// LoadCapabilitiesOverlay reads a YAML capability file and expands it into
// the map form routing.Capabilities uses. A missing file is not an error —
// callers fall back to the built-in defaults.
func LoadCapabilitiesOverlay(path string) (map[types.Provider]types.ProviderCapabilities, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var overlay CapabilityOverlay
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return nil, err
	}

	out := make(map[types.Provider]types.ProviderCapabilities, len(overlay.Providers))
	for name, p := range overlay.Providers {
		categories := make(map[types.DataCategory]bool, len(p.Categories))
		for _, c := range p.Categories {
			categories[types.DataCategory(c)] = true
		}
		chains := make(map[string]bool, len(p.SupportedChains))
		for _, c := range p.SupportedChains {
			chains[c] = true
		}
		specialties := make(map[types.DataCategory][]string, len(p.Specialties))
		for cat, v := range p.Specialties {
			specialties[types.DataCategory(cat)] = v
		}
		out[types.Provider(name)] = types.ProviderCapabilities{
			Provider:        types.Provider(name),
			Categories:      categories,
			UpdateFrequency: types.UpdateFrequency(p.UpdateFrequency),
			SupportedChains: chains,
			LatencyMs:       p.LatencyMs,
			Reliability:     p.Reliability,
			CostUSD:         p.CostUSD,
			Specialties:     specialties,
		}
	}
	return out, nil
}
