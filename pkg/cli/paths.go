package cli

import (
	"os"
	"path/filepath"
)

// Paths resolves the on-disk layout under the user's home directory.
type Paths struct {
	// HomeDir is the user's home directory
	HomeDir string
}

// NewPaths creates a Paths instance.
func NewPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{HomeDir: home}, nil
}

// BaseDir returns the base directory (~/.medjournee).
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// ConfigFile returns the config file path.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.BaseDir(), DefaultConfigFile)
}

// DataDir returns the data directory holding the profile and session
// database (~/.medjournee/data).
func (p *Paths) DataDir() string {
	return filepath.Join(p.BaseDir(), "data")
}

// RecordingsDir returns the default local recordings directory.
func (p *Paths) RecordingsDir() string {
	return filepath.Join(p.BaseDir(), "recordings")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (p *Paths) EnsureDataDir() error {
	return os.MkdirAll(p.DataDir(), 0755)
}
