package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/papercomputeco/graphchat/pkg/dotdir"
)

// envFallbacks are conventional variable names honoured after the
// GRAPHCHAT_ prefixed ones.
var envFallbacks = map[string]string{
	"graph.uri":      "NEO4J_URI",
	"graph.username": "NEO4J_USERNAME",
	"graph.password": "NEO4J_PASSWORD",
	"graph.database": "NEO4J_DATABASE",
}

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the GRAPHCHAT_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (GRAPHCHAT_API_LISTEN, then NEO4J_URI and friends)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("GRAPHCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, fallback := range envFallbacks {
		if err := v.BindEnv(key, EnvVar(key), fallback); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	return v, nil
}

// EnvVar is the environment variable that overrides key, e.g.
// GRAPHCHAT_GRAPH_URI for graph.uri.
func EnvVar(key string) string {
	return "GRAPHCHAT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// EnvFallback is the legacy variable read when EnvVar(key) is unset, or "".
func EnvFallback(key string) string {
	return envFallbacks[key]
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("graph.uri", d.Graph.URI)
	v.SetDefault("graph.username", d.Graph.Username)
	v.SetDefault("graph.password", d.Graph.Password)
	v.SetDefault("graph.database", d.Graph.Database)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)
	v.SetDefault("vector_store.top_k", d.VectorStore.TopK)

	v.SetDefault("history.provider", d.History.Provider)
	v.SetDefault("history.target", d.History.Target)
	v.SetDefault("history.window", d.History.Window)

	v.SetDefault("synthesis.max_rounds", d.Synthesis.MaxRounds)
	v.SetDefault("synthesis.max_attempts", d.Synthesis.MaxAttempts)
	v.SetDefault("synthesis.round_timeout", d.Synthesis.RoundTimeout)

	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("client.api_target", d.Client.APITarget)

	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)
}

// FromViper resolves the full configuration through viper's precedence chain.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Version: v.GetInt("version"),
		Graph: GraphConfig{
			URI:      v.GetString("graph.uri"),
			Username: v.GetString("graph.username"),
			Password: v.GetString("graph.password"),
			Database: v.GetString("graph.database"),
		},
		LLM: LLMConfig{
			Provider: v.GetString("llm.provider"),
			Model:    v.GetString("llm.model"),
			BaseURL:  v.GetString("llm.base_url"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
		},
		VectorStore: VectorStoreConfig{
			Provider:   v.GetString("vector_store.provider"),
			Target:     v.GetString("vector_store.target"),
			Collection: v.GetString("vector_store.collection"),
			TopK:       v.GetInt("vector_store.top_k"),
		},
		History: HistoryConfig{
			Provider: v.GetString("history.provider"),
			Target:   v.GetString("history.target"),
			Window:   v.GetInt("history.window"),
		},
		Synthesis: SynthesisConfig{
			MaxRounds:    v.GetInt("synthesis.max_rounds"),
			MaxAttempts:  v.GetInt("synthesis.max_attempts"),
			RoundTimeout: v.GetString("synthesis.round_timeout"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
		},
		EventStream: EventStreamConfig{
			Provider: v.GetString("eventstream.provider"),
			Brokers:  v.GetString("eventstream.brokers"),
			Topic:    v.GetString("eventstream.topic"),
		},
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}
	if _, err := cfg.Synthesis.Timeout(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Timeout parses RoundTimeout; empty means zero (use the loop default).
func (s SynthesisConfig) Timeout() (time.Duration, error) {
	if s.RoundTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.RoundTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid synthesis.round_timeout: %w", err)
	}
	return d, nil
}

// BrokerList splits the comma-separated broker list.
func (e EventStreamConfig) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
