package engines

import (
	"fmt"

	"eduvane/api/internal/config"
	"eduvane/api/internal/llm"
	"eduvane/api/internal/llm/gemini"
	"eduvane/api/internal/llm/googleai"
	"eduvane/api/internal/llm/gpt"
)

// Engines holds one adapter per cost/quality tier. Perception and
// Interpretation share Fast; Reasoning gets its own.
type Engines struct {
	Fast      llm.Adapter
	Reasoning llm.Adapter
}

// GetEngine builds the adapter a tier names.
func GetEngine(cfg *config.Config, tier config.Tier) (llm.Adapter, error) {
	key := cfg.Credential(tier.Provider)
	switch tier.Provider {
	case config.ProviderGemini:
		return gemini.New(key, tier.Model), nil
	case config.ProviderGenAI:
		return googleai.New(key, tier.Model, tier.ThinkingBudget), nil
	case config.ProviderGPT, "openai":
		return gpt.New(key, tier.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q; use gemini, genai or gpt", tier.Provider)
	}
}

func New(cfg *config.Config) (*Engines, error) {
	fast, err := GetEngine(cfg, cfg.Fast)
	if err != nil {
		return nil, fmt.Errorf("fast tier: %w", err)
	}
	reasoning, err := GetEngine(cfg, cfg.Reasoning)
	if err != nil {
		return nil, fmt.Errorf("reasoning tier: %w", err)
	}
	return &Engines{Fast: fast, Reasoning: reasoning}, nil
}
