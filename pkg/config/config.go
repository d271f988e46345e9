// Package config loads engine configuration: custom detection rules,
// detector/router tuning, and external classifier selection. Environment
// variables take precedence over file values for API keys.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zen-systems/scenroute/pkg/classify"
	"github.com/zen-systems/scenroute/pkg/detector"
)

// Config holds the engine configuration loaded from YAML.
type Config struct {
	Rules      []detector.RuleSpec `yaml:"rules,omitempty"`
	Detector   DetectorConfig      `yaml:"detector,omitempty"`
	Router     RouterConfig        `yaml:"router,omitempty"`
	Classifier ClassifierConfig    `yaml:"classifier,omitempty"`
}

// DetectorConfig tunes the scenario detector.
type DetectorConfig struct {
	MinConfidence float64 `yaml:"min_confidence,omitempty"`
	LLMThreshold  float64 `yaml:"llm_threshold,omitempty"`
}

// RouterConfig tunes routing and execution.
type RouterConfig struct {
	MaxStrategies     int   `yaml:"max_strategies,omitempty"`
	EnableFallback    *bool `yaml:"enable_fallback,omitempty"`
	DefaultTimeoutSec int   `yaml:"default_timeout_sec,omitempty"`
}

// ClassifierConfig selects the external classifier provider.
type ClassifierConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the default configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Detector.MinConfidence == 0 {
		cfg.Detector.MinConfidence = detector.DefaultMinConfidence
	}
	if cfg.Detector.LLMThreshold == 0 {
		cfg.Detector.LLMThreshold = detector.DefaultLLMThreshold
	}
	if cfg.Router.MaxStrategies == 0 {
		cfg.Router.MaxStrategies = 3
	}
	if cfg.Router.EnableFallback == nil {
		enabled := true
		cfg.Router.EnableFallback = &enabled
	}
	if cfg.Router.DefaultTimeoutSec == 0 {
		cfg.Router.DefaultTimeoutSec = 30
	}
}

// DefaultTimeout returns the configured default strategy timeout.
func (c *Config) DefaultTimeout() time.Duration {
	return time.Duration(c.Router.DefaultTimeoutSec) * time.Second
}

// CompileRules compiles custom rule specs. Invalid regexps surface here, at
// load time; detection never fails on a rule.
func (c *Config) CompileRules() ([]detector.Rule, error) {
	rules := make([]detector.Rule, 0, len(c.Rules))
	for _, spec := range c.Rules {
		rule, err := spec.Compile()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// BuildClassifier constructs the configured classifier, or nil when no
// provider is set. Environment variables take precedence over file keys.
func (c *Config) BuildClassifier() (classify.Classifier, error) {
	switch c.Classifier.Provider {
	case "":
		return nil, nil
	case "anthropic":
		key := getEnvOrDefault("ANTHROPIC_API_KEY", c.Classifier.APIKey)
		return classify.NewAnthropicClassifier(key, c.Classifier.Model)
	case "openai":
		key := getEnvOrDefault("OPENAI_API_KEY", c.Classifier.APIKey)
		return classify.NewOpenAIClassifier(key, c.Classifier.Model)
	case "google":
		key := getEnvOrDefault("GOOGLE_API_KEY", c.Classifier.APIKey)
		return classify.NewGoogleClassifier(key, c.Classifier.Model)
	case "mock":
		return classify.NewMockClassifier(), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", c.Classifier.Provider)
	}
}

func getEnvOrDefault(envVar, fallback string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	return fallback
}
