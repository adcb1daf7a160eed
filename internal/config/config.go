// Package config holds the flat runtime configuration consumed at
// construction time by the agent manager and protocol adapter.
//
// Precedence: built-in defaults, then an optional YAML file, then
// environment variables. A .env file is honoured when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/navicore/gamecode-agent/internal/provider"
)

// Duration wraps time.Duration so YAML values like "200ms" decode cleanly.
type Duration time.Duration

// Std returns the underlying time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(time.Duration(n) * time.Millisecond)
	return nil
}

// DefaultSystemPrompt seeds a fresh conversation.
const DefaultSystemPrompt = "You are a helpful assistant with access to tools that can run on the user's computer. " +
	"Respond to the user's queries directly when possible, and use tools when appropriate to complete tasks."

// Config is the full configuration surface.
type Config struct {
	// Provider
	Region    string `yaml:"region"`
	Profile   string `yaml:"profile"`
	Model     string `yaml:"model"`
	FastModel string `yaml:"fast_model"`

	// Model parameters per tier
	MaxTokens       int     `yaml:"max_tokens"`
	Temperature     float64 `yaml:"temperature"`
	FastTemperature float64 `yaml:"fast_temperature"`

	// Context management
	MaxContextWords int    `yaml:"max_context_words"`
	SystemPrompt    string `yaml:"system_prompt"`
	PersistPath     string `yaml:"persist_path"`

	// Transport retry
	MaxRetries     int      `yaml:"max_retries"`
	RetryBaseDelay Duration `yaml:"retry_base_delay"`

	// Tool chaining
	MaxChainDepth int      `yaml:"max_chain_depth"`
	ChainDelay    Duration `yaml:"chain_delay"`

	// Tool sandbox
	WorkDir string `yaml:"workdir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Region:          "us-east-1",
		Model:           provider.DefaultModel,
		FastModel:       provider.DefaultFastModel,
		MaxTokens:       1024,
		Temperature:     0.7,
		FastTemperature: 0.3,
		MaxContextWords: 32000,
		SystemPrompt:    DefaultSystemPrompt,
		PersistPath:     "conversation.json",
		MaxRetries:      provider.DefaultMaxRetries,
		RetryBaseDelay:  Duration(provider.DefaultBaseDelay),
		MaxChainDepth:   5,
		ChainDelay:      Duration(200 * time.Millisecond),
	}
}

// Load builds the configuration: defaults, then the YAML file at path (or
// gamecode.yaml when path is empty and that file exists), then environment
// overrides.
func Load(path string) (Config, error) {
	// Best effort; a missing .env is normal.
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		if _, err := os.Stat("gamecode.yaml"); err == nil {
			path = "gamecode.yaml"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("GAMECODE_REGION", &cfg.Region)
	setString("GAMECODE_PROFILE", &cfg.Profile)
	setString("GAMECODE_MODEL", &cfg.Model)
	setString("GAMECODE_FAST_MODEL", &cfg.FastModel)
	setString("GAMECODE_SYSTEM_PROMPT", &cfg.SystemPrompt)
	setString("GAMECODE_PERSIST_PATH", &cfg.PersistPath)
	setString("GAMECODE_WORKDIR", &cfg.WorkDir)
	setInt("GAMECODE_MAX_TOKENS", &cfg.MaxTokens)
	setInt("GAMECODE_MAX_CONTEXT_WORDS", &cfg.MaxContextWords)
	setInt("GAMECODE_MAX_RETRIES", &cfg.MaxRetries)
	setInt("GAMECODE_MAX_CHAIN_DEPTH", &cfg.MaxChainDepth)

	if v := os.Getenv("GAMECODE_CHAIN_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ChainDelay = Duration(time.Duration(n) * time.Millisecond)
		}
	}
}
