package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/graphchat/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns all supported configuration key names in TOML
// section order.
func ValidConfigKeys() []string {
	return append([]string(nil), orderedKeys...)
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads config.toml from the target .graphchat/ directory. A
// missing file yields NewDefaultConfig(); fields set in the file override the
// defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

func fillString(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

func fillInt(field *int, def int) {
	if *field == 0 {
		*field = def
	}
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	d := NewDefaultConfig()

	fillString(&cfg.Graph.URI, d.Graph.URI)
	fillString(&cfg.Graph.Username, d.Graph.Username)
	fillString(&cfg.Graph.Database, d.Graph.Database)

	fillString(&cfg.LLM.Provider, d.LLM.Provider)
	fillString(&cfg.LLM.Model, d.LLM.Model)

	fillString(&cfg.Embedding.Provider, d.Embedding.Provider)
	fillString(&cfg.Embedding.Target, d.Embedding.Target)
	fillString(&cfg.Embedding.Model, d.Embedding.Model)
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = d.Embedding.Dimensions
	}

	fillString(&cfg.VectorStore.Provider, d.VectorStore.Provider)
	fillString(&cfg.VectorStore.Collection, d.VectorStore.Collection)
	fillInt(&cfg.VectorStore.TopK, d.VectorStore.TopK)

	fillString(&cfg.History.Provider, d.History.Provider)
	fillInt(&cfg.History.Window, d.History.Window)

	fillInt(&cfg.Synthesis.MaxRounds, d.Synthesis.MaxRounds)
	fillInt(&cfg.Synthesis.MaxAttempts, d.Synthesis.MaxAttempts)
	fillString(&cfg.Synthesis.RoundTimeout, d.Synthesis.RoundTimeout)

	fillString(&cfg.API.Listen, d.API.Listen)
	fillString(&cfg.Client.APITarget, d.Client.APITarget)

	fillString(&cfg.EventStream.Topic, d.EventStream.Topic)
}

// SaveConfig persists the configuration to config.toml in the target .graphchat/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a Config with sane defaults for the named provider preset.
// Supported presets: "openai", "anthropic", "ollama".
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "openai":
		return cfg, nil

	case "anthropic":
		// Anthropic has no embeddings API; embeddings stay on OpenAI.
		cfg.LLM.Provider = "anthropic"
		cfg.LLM.Model = "claude-haiku-4-5-20251001"
		return cfg, nil

	case "ollama":
		cfg.LLM = LLMConfig{
			Provider: "ollama",
			Model:    "llama3.2",
			BaseURL:  "http://localhost:11434",
		}
		cfg.Embedding = EmbeddingConfig{
			Provider:   "ollama",
			Target:     "http://localhost:11434",
			Model:      "nomic-embed-text",
			Dimensions: 768,
		}
		return cfg, nil

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: openai, anthropic, ollama)", name)
	}
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"openai", "anthropic", "ollama"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
