package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "EDUVANE_CONFIG"

	ProviderGemini = "gemini"
	ProviderGenAI  = "genai"
	ProviderGPT    = "gpt"
)

// Tier selects the provider and model for one cost/quality level.
type Tier struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	ThinkingBudget int    `yaml:"thinkingBudget"`
}

type Timeouts struct {
	Perception     time.Duration `yaml:"perception"`
	Interpretation time.Duration `yaml:"interpretation"`
	Reasoning      time.Duration `yaml:"reasoning"`
}

// Config holds non-secret settings. API keys are looked up through Credential
// on every call so they can rotate while the process runs.
type Config struct {
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`

	Fast      Tier     `yaml:"fast"`
	Reasoning Tier     `yaml:"reasoning"`
	Timeouts  Timeouts `yaml:"timeouts"`

	DatabaseURL string `yaml:"databaseUrl"`
	GuestDBPath string `yaml:"guestDbPath"`

	TelegramBotToken string `yaml:"-"`
}

func Default() *Config {
	return &Config{
		Port:      "8000",
		LogLevel:  "info",
		LogFormat: "json",
		Fast: Tier{
			Provider: ProviderGemini,
			Model:    "gemini-2.5-flash",
		},
		Reasoning: Tier{
			Provider:       ProviderGenAI,
			Model:          "gemini-2.5-pro",
			ThinkingBudget: 2048,
		},
		Timeouts: Timeouts{
			Perception:     60 * time.Second,
			Interpretation: 30 * time.Second,
			Reasoning:      120 * time.Second,
		},
		GuestDBPath: "eduvane-guest.db",
	}
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	// bare numbers are seconds
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

// Load builds the config from defaults, the optional YAML file named by
// EDUVANE_CONFIG, then environment overrides.
func Load() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv(configPathEnv)); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	cfg.Fast.Provider = strings.ToLower(getEnv("FAST_PROVIDER", cfg.Fast.Provider))
	cfg.Fast.Model = getEnv("FAST_MODEL", cfg.Fast.Model)
	cfg.Reasoning.Provider = strings.ToLower(getEnv("REASONING_PROVIDER", cfg.Reasoning.Provider))
	cfg.Reasoning.Model = getEnv("REASONING_MODEL", cfg.Reasoning.Model)
	if v := strings.TrimSpace(os.Getenv("REASONING_THINKING_BUDGET")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("REASONING_THINKING_BUDGET: %w", err)
		}
		cfg.Reasoning.ThinkingBudget = n
	}

	var err error
	if cfg.Timeouts.Perception, err = getDuration("PERCEPTION_TIMEOUT", cfg.Timeouts.Perception); err != nil {
		return nil, err
	}
	if cfg.Timeouts.Interpretation, err = getDuration("INTERPRETATION_TIMEOUT", cfg.Timeouts.Interpretation); err != nil {
		return nil, err
	}
	if cfg.Timeouts.Reasoning, err = getDuration("REASONING_TIMEOUT", cfg.Timeouts.Reasoning); err != nil {
		return nil, err
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.GuestDBPath = getEnv("GUEST_DB_PATH", cfg.GuestDBPath)
	cfg.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", "")

	return cfg, nil
}
