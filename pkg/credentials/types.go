package credentials

// CurrentVersion is written to new credentials files.
const CurrentVersion = 1

// Credentials is the content of .graphchat/credentials.toml. Providers is
// keyed by the llm or embedding provider name, e.g. "openai".
type Credentials struct {
	Version   int                           `toml:"version"`
	Providers map[string]ProviderCredential `toml:"providers"`
}

// ProviderCredential holds the API key for a single provider.
type ProviderCredential struct {
	APIKey string `toml:"api_key"`
}
