// Package dotdir locates the .graphchat/ directory that holds config.toml,
// credentials.toml and the CLI's session.json.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the name of the graphchat directory.
const DirName = ".graphchat"

// Manager resolves the .graphchat/ directory.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path of the .graphchat/ directory to use,
// creating it if needed. An override wins; otherwise the nearest .graphchat/
// in the working directory or one of its parents is used, falling back to
// ~/.graphchat/.
func (m *Manager) Target(overrideDir string) (string, error) {
	dir := overrideDir
	if dir == "" {
		var err error
		if dir, err = m.lookup(); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating graphchat directory %s: %w", dir, err)
	}
	return filepath.Abs(dir)
}

func (m *Manager) lookup() (string, error) {
	if cwd, err := os.Getwd(); err == nil {
		if dir, ok := nearest(cwd); ok {
			return dir, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// nearest walks from start to the filesystem root and returns the first
// .graphchat/ directory found.
func nearest(start string) (string, bool) {
	for dir := start; ; {
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
