package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Credential returns the current API key. It is called once per remote request.
type Credential func() string

// EnvCredential reads the first non-empty variable from keys at call time.
func EnvCredential(keys ...string) Credential {
	return func() string {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				return v
			}
		}
		return ""
	}
}

func credentialEnv(provider string) []string {
	switch provider {
	case ProviderGemini, ProviderGenAI:
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	case ProviderGPT:
		return []string{"OPENAI_API_KEY"}
	default:
		return nil
	}
}

// Credential returns the key source for a provider name.
func (c *Config) Credential(provider string) Credential {
	return EnvCredential(credentialEnv(provider)...)
}

// ConfigurationError lists everything that keeps the service from starting.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + strings.Join(e.Problems, "; ")
}

const minKeyLen = 20

func checkKey(provider, key string) error {
	vars := strings.Join(credentialEnv(provider), " or ")
	if key == "" {
		return fmt.Errorf("%s is not set", vars)
	}
	if len(key) < minKeyLen {
		return fmt.Errorf("%s is too short", vars)
	}
	for _, r := range key {
		if r <= ' ' || r > '~' {
			return fmt.Errorf("%s contains whitespace or non-printable characters", vars)
		}
	}
	if provider == ProviderGPT && !strings.HasPrefix(key, "sk-") {
		return fmt.Errorf("%s must start with sk-", vars)
	}
	return nil
}

// Validate checks that every tier names a known provider with a usable key.
// It only reads configuration, so repeated calls agree while the environment is unchanged.
func (c *Config) Validate() error {
	var problems []string
	seen := map[string]bool{}
	for _, t := range []struct {
		name string
		tier Tier
	}{{"fast", c.Fast}, {"reasoning", c.Reasoning}} {
		if strings.TrimSpace(t.tier.Model) == "" {
			problems = append(problems, t.name+" model is empty")
		}
		p := t.tier.Provider
		if credentialEnv(p) == nil {
			problems = append(problems, fmt.Sprintf("%s provider %q is unknown; use gemini, genai or gpt", t.name, p))
			continue
		}
		// gemini and genai share one key
		envKey := strings.Join(credentialEnv(p), ",")
		if seen[envKey] {
			continue
		}
		seen[envKey] = true
		if err := checkKey(p, c.Credential(p)()); err != nil {
			problems = append(problems, err.Error())
		}
	}
	for name, d := range map[string]int64{
		"perception":     int64(c.Timeouts.Perception),
		"interpretation": int64(c.Timeouts.Interpretation),
		"reasoning":      int64(c.Timeouts.Reasoning),
	} {
		if d <= 0 {
			problems = append(problems, name+" timeout must be positive")
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return &ConfigurationError{Problems: problems}
	}
	return nil
}
