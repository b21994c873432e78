package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent graphchat configuration stored as
// config.toml in the .graphchat/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Graph       GraphConfig       `toml:"graph"`
	LLM         LLMConfig         `toml:"llm"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	History     HistoryConfig     `toml:"history"`
	Synthesis   SynthesisConfig   `toml:"synthesis"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// GraphConfig holds the Neo4j connection. The password is never written by
// "config set"; use NEO4J_PASSWORD or GRAPHCHAT_GRAPH_PASSWORD instead.
type GraphConfig struct {
	URI      string `toml:"uri,omitempty"`
	Username string `toml:"username,omitempty"`
	Password string `toml:"password,omitempty"`
	Database string `toml:"database,omitempty"`
}

// LLMConfig selects the chat model used for rephrasing, routing, query
// synthesis and answering.
type LLMConfig struct {
	Provider string `toml:"provider,omitempty"`
	Model    string `toml:"model,omitempty"`
	BaseURL  string `toml:"base_url,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// VectorStoreConfig holds vector store settings. Collection is the neo4j
// index name or the chroma/qdrant collection.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
	TopK       int    `toml:"top_k,omitempty"`
}

// HistoryConfig selects the conversation memory backend.
type HistoryConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Window   int    `toml:"window,omitempty"`
}

// SynthesisConfig bounds the query synthesis and execution loops.
type SynthesisConfig struct {
	MaxRounds    int    `toml:"max_rounds,omitempty"`
	MaxAttempts  int    `toml:"max_attempts,omitempty"`
	RoundTimeout string `toml:"round_timeout,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running API
// server. Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// EventStreamConfig configures publishing of persisted turns. An empty
// provider disables publishing.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(key string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if n < 0 {
				return fmt.Errorf("invalid value for %s: must not be negative", key)
			}
			*field(c) = n
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"graph.uri":      stringKey(func(c *Config) *string { return &c.Graph.URI }),
	"graph.username": stringKey(func(c *Config) *string { return &c.Graph.Username }),
	"graph.database": stringKey(func(c *Config) *string { return &c.Graph.Database }),

	"llm.provider": stringKey(func(c *Config) *string { return &c.LLM.Provider }),
	"llm.model":    stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.base_url": stringKey(func(c *Config) *string { return &c.LLM.BaseURL }),

	"embedding.provider": stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":   stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":    stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},

	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),
	"vector_store.top_k":      intKey("vector_store.top_k", func(c *Config) *int { return &c.VectorStore.TopK }),

	"history.provider": stringKey(func(c *Config) *string { return &c.History.Provider }),
	"history.target":   stringKey(func(c *Config) *string { return &c.History.Target }),
	"history.window":   intKey("history.window", func(c *Config) *int { return &c.History.Window }),

	"synthesis.max_rounds":   intKey("synthesis.max_rounds", func(c *Config) *int { return &c.Synthesis.MaxRounds }),
	"synthesis.max_attempts": intKey("synthesis.max_attempts", func(c *Config) *int { return &c.Synthesis.MaxAttempts }),
	"synthesis.round_timeout": {
		get: func(c *Config) string { return c.Synthesis.RoundTimeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for synthesis.round_timeout: %w", err)
			}
			c.Synthesis.RoundTimeout = v
			return nil
		},
	},

	"api.listen":        stringKey(func(c *Config) *string { return &c.API.Listen }),
	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"eventstream.provider": stringKey(func(c *Config) *string { return &c.EventStream.Provider }),
	"eventstream.brokers":  stringKey(func(c *Config) *string { return &c.EventStream.Brokers }),
	"eventstream.topic":    stringKey(func(c *Config) *string { return &c.EventStream.Topic }),
}

// orderedKeys lists config keys in TOML section order.
var orderedKeys = []string{
	"graph.uri",
	"graph.username",
	"graph.database",
	"llm.provider",
	"llm.model",
	"llm.base_url",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"vector_store.provider",
	"vector_store.target",
	"vector_store.collection",
	"vector_store.top_k",
	"history.provider",
	"history.target",
	"history.window",
	"synthesis.max_rounds",
	"synthesis.max_attempts",
	"synthesis.round_timeout",
	"api.listen",
	"client.api_target",
	"eventstream.provider",
	"eventstream.brokers",
	"eventstream.topic",
}
