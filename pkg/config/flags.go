package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --model
// on both "graphchat serve" and "graphchat ask").
type Flag struct {
	// Name is the long flag name (e.g. "model").
	Name string

	// Shorthand is the one-letter short flag (e.g. "m"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "llm.model").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen          = "listen"
	FlagAPITarget       = "api-target"
	FlagGraphURI        = "neo4j-uri"
	FlagGraphUsername   = "neo4j-username"
	FlagGraphDatabase   = "neo4j-database"
	FlagLLMProvider     = "provider"
	FlagLLMModel        = "model"
	FlagLLMBaseURL      = "llm-base-url"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagVectorStoreColl = "vector-store-collection"
	FlagHistoryProv     = "history-provider"
	FlagHistoryTgt      = "history-target"
	FlagEventProvider   = "eventstream-provider"
	FlagEventBrokers    = "kafka-brokers"
	FlagEventTopic      = "kafka-topic"
)

// Flags is the registry shared by all graphchat commands.
var Flags = FlagSet{
	FlagListen:          {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	FlagAPITarget:       {Name: "api-target", Shorthand: "a", ViperKey: "client.api_target", Description: "graphchat API server URL"},
	FlagGraphURI:        {Name: "neo4j-uri", ViperKey: "graph.uri", Description: "Neo4j connection URI"},
	FlagGraphUsername:   {Name: "neo4j-username", ViperKey: "graph.username", Description: "Neo4j username"},
	FlagGraphDatabase:   {Name: "neo4j-database", ViperKey: "graph.database", Description: "Neo4j database name"},
	FlagLLMProvider:     {Name: "provider", Shorthand: "p", ViperKey: "llm.provider", Description: "LLM provider (openai, anthropic, ollama)"},
	FlagLLMModel:        {Name: "model", Shorthand: "m", ViperKey: "llm.model", Description: "LLM model name"},
	FlagLLMBaseURL:      {Name: "llm-base-url", ViperKey: "llm.base_url", Description: "Override the LLM provider base URL"},
	FlagEmbeddingProv:   {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (openai, ollama)"},
	FlagEmbeddingTgt:    {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	FlagEmbeddingModel:  {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	FlagEmbeddingDims:   {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality"},
	FlagVectorStoreProv: {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Vector store provider (neo4j, chroma, qdrant, sqlite)"},
	FlagVectorStoreTgt:  {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Vector store URL, host or path"},
	FlagVectorStoreColl: {Name: "vector-store-collection", ViperKey: "vector_store.collection", Description: "Vector index or collection name"},
	FlagHistoryProv:     {Name: "history-provider", ViperKey: "history.provider", Description: "History backend (neo4j, inmemory, sqlite, postgres)"},
	FlagHistoryTgt:      {Name: "history-target", ViperKey: "history.target", Description: "History sqlite path or postgres connection string"},
	FlagEventProvider:   {Name: "eventstream-provider", ViperKey: "eventstream.provider", Description: "Publish persisted turns (kafka, or empty to disable)"},
	FlagEventBrokers:    {Name: "kafka-brokers", ViperKey: "eventstream.brokers", Description: "Comma-separated Kafka brokers"},
	FlagEventTopic:      {Name: "kafka-topic", ViperKey: "eventstream.topic", Description: "Kafka topic for persisted turns"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
