// Package credentials keeps API keys for the hosted LLM and embedding
// providers in .graphchat/credentials.toml. A provider's environment
// variable always wins over the stored key.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/graphchat/pkg/dotdir"
)

const credentialsFile = "credentials.toml"

// keyedProviders are the providers that authenticate with an API key, and
// the variable each reads. ollama runs locally without one.
var keyedProviders = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
}

// Manager reads and writes one credentials.toml.
type Manager struct {
	targetPath string
}

// NewManager resolves the .graphchat/ directory (override first, then the
// usual dotdir lookup) and targets credentials.toml inside it.
func NewManager(override string) (*Manager, error) {
	dir, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}
	return &Manager{targetPath: filepath.Join(dir, credentialsFile)}, nil
}

// GetTarget returns the path of credentials.toml.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// Load parses credentials.toml. A missing file is an empty store.
func (m *Manager) Load() (*Credentials, error) {
	creds := &Credentials{Version: CurrentVersion}

	data, err := os.ReadFile(m.targetPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading credentials: %w", err)
	default:
		if err := toml.Unmarshal(data, creds); err != nil {
			return nil, fmt.Errorf("parsing credentials: %w", err)
		}
	}

	if creds.Providers == nil {
		creds.Providers = make(map[string]ProviderCredential)
	}
	return creds, nil
}

// Save replaces credentials.toml. The file is written next to the target
// with owner-only permissions and renamed over it, so readers never see a
// partial file.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.targetPath), ".credentials-*.toml")
	if err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.targetPath); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

func (m *Manager) update(fn func(*Credentials)) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}
	fn(creds)
	return m.Save(creds)
}

// SetKey stores key for provider, replacing any previous one.
func (m *Manager) SetKey(provider, key string) error {
	return m.update(func(c *Credentials) {
		c.Providers[provider] = ProviderCredential{APIKey: key}
	})
}

// RemoveKey forgets provider's key. Unknown providers are a no-op.
func (m *Manager) RemoveKey(provider string) error {
	return m.update(func(c *Credentials) {
		delete(c.Providers, provider)
	})
}

// GetKey returns the stored key for provider, or "".
func (m *Manager) GetKey(provider string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}
	return creds.Providers[provider].APIKey, nil
}

// ListProviders returns the providers with a stored key, sorted.
func (m *Manager) ListProviders() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}
	providers := make([]string, 0, len(creds.Providers))
	for name := range creds.Providers {
		providers = append(providers, name)
	}
	slices.Sort(providers)
	return providers, nil
}

// APIKey resolves the key the app should use for provider: its environment
// variable when set, otherwise the stored key. Keyless providers yield "".
func (m *Manager) APIKey(provider string) (string, error) {
	envVar, ok := keyedProviders[provider]
	if !ok {
		return "", nil
	}
	if key := os.Getenv(envVar); key != "" {
		return key, nil
	}
	return m.GetKey(provider)
}

// EnvVarForProvider returns the variable provider reads its key from, or ""
// for keyless providers.
func EnvVarForProvider(provider string) string {
	return keyedProviders[provider]
}

// SupportedProviders returns the providers that take an API key, sorted.
func SupportedProviders() []string {
	providers := make([]string, 0, len(keyedProviders))
	for name := range keyedProviders {
		providers = append(providers, name)
	}
	slices.Sort(providers)
	return providers
}

// IsSupportedProvider reports whether provider takes an API key.
func IsSupportedProvider(provider string) bool {
	_, ok := keyedProviders[provider]
	return ok
}
