package config

const (
	defaultGraphURI      = "neo4j://localhost:7687"
	defaultGraphUsername = "neo4j"
	defaultGraphDatabase = "neo4j"

	defaultLLMProvider = "openai"
	defaultLLMModel    = "gpt-4o-mini"

	defaultEmbeddingProvider   = "openai"
	defaultEmbeddingTarget     = "https://api.openai.com"
	defaultEmbeddingModel      = "text-embedding-ada-002"
	defaultEmbeddingDimensions = 1536

	defaultVectorProvider   = "neo4j"
	defaultVectorCollection = "moviePlots"
	defaultVectorTopK       = 5

	defaultHistoryProvider = "neo4j"
	defaultHistoryWindow   = 5

	defaultMaxRounds    = 5
	defaultMaxAttempts  = 5
	defaultRoundTimeout = "60s"

	defaultAPIListen       = ":8080"
	defaultClientAPITarget = "http://localhost:8080"

	defaultEventTopic = "graphchat.turns"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Graph: GraphConfig{
			URI:      defaultGraphURI,
			Username: defaultGraphUsername,
			Database: defaultGraphDatabase,
		},
		LLM: LLMConfig{
			Provider: defaultLLMProvider,
			Model:    defaultLLMModel,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
			TopK:       defaultVectorTopK,
		},
		History: HistoryConfig{
			Provider: defaultHistoryProvider,
			Window:   defaultHistoryWindow,
		},
		Synthesis: SynthesisConfig{
			MaxRounds:    defaultMaxRounds,
			MaxAttempts:  defaultMaxAttempts,
			RoundTimeout: defaultRoundTimeout,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		EventStream: EventStreamConfig{
			Topic: defaultEventTopic,
		},
	}
}
