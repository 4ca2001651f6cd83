package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultBaseDir is the base configuration directory name
	DefaultBaseDir = ".medjournee"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.yaml"
)

// Config is the on-disk configuration for a CLI app.
type Config struct {
	// AppName is the application name (e.g. "medjournee")
	AppName string `yaml:"-"`

	// CurrentContext is the name of the currently active context
	CurrentContext string `yaml:"current_context,omitempty"`

	// Contexts maps context name to context configuration
	Contexts map[string]*Context `yaml:"contexts,omitempty"`

	configPath string
}

// Context holds the credentials and settings for one deployment, for
// example a personal setup versus a clinic pilot.
type Context struct {
	// Name is the context name
	Name string `yaml:"name"`

	// Diarization holds credentials for the speaker diarization service
	Diarization *ServiceKey `yaml:"diarization,omitempty"`

	// OpenAI holds credentials for transcription and journal generation
	OpenAI *ServiceKey `yaml:"openai,omitempty"`

	// Gemini holds credentials for translation
	Gemini *ServiceKey `yaml:"gemini,omitempty"`

	// DataDir overrides the default local database directory
	DataDir string `yaml:"data_dir,omitempty"`

	// EnrollmentKey is the hex-encoded 32-byte key protecting stored
	// voice profiles
	EnrollmentKey string `yaml:"enrollment_key,omitempty"`

	// DefaultLanguage is the default translation target (e.g. "vi")
	DefaultLanguage string `yaml:"default_language,omitempty"`

	// Recordings configures where session recordings are kept
	Recordings *RecordingConfig `yaml:"recordings,omitempty"`

	// Timeout is the request timeout in seconds (optional)
	Timeout int `yaml:"timeout,omitempty"`

	// Extra stores app-specific settings
	Extra map[string]string `yaml:"extra,omitempty"`
}

// ServiceKey holds credentials for one upstream API.
type ServiceKey struct {
	// APIKey authenticates requests
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the service's default endpoint (optional)
	BaseURL string `yaml:"base_url,omitempty"`
}

// RecordingConfig selects the recording blob store backend.
type RecordingConfig struct {
	// Backend is "local" or "s3"
	Backend string `yaml:"backend"`

	// Dir is the local directory for the "local" backend
	Dir string `yaml:"dir,omitempty"`

	// Bucket and Prefix configure the "s3" backend
	Bucket string `yaml:"bucket,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
}

// Key returns the API key for the service, falling back to the named
// environment variable when the context has none configured.
func (s *ServiceKey) Key(envVar string) string {
	if s != nil && s.APIKey != "" {
		return s.APIKey
	}
	return os.Getenv(envVar)
}

// URL returns the configured base URL, or "" for the service default.
func (s *ServiceKey) URL() string {
	if s == nil {
		return ""
	}
	return s.BaseURL
}

// LoadConfig loads or creates configuration for the specified app.
func LoadConfig(appName string) (*Config, error) {
	return LoadConfigWithPath(appName, "")
}

// LoadConfigWithPath loads configuration from a custom path.
func LoadConfigWithPath(appName, customPath string) (*Config, error) {
	configPath := customPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, DefaultBaseDir, DefaultConfigFile)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := &Config{
		AppName:    appName,
		Contexts:   make(map[string]*Context),
		configPath: configPath,
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Save()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	cfg.AppName = appName
	cfg.configPath = configPath

	return cfg, nil
}

// Save writes the configuration to disk. Config files hold API keys,
// so they are not group or world readable.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the config directory path.
func (c *Config) Dir() string {
	return filepath.Dir(c.configPath)
}

// AddContext adds a new context and persists the config.
func (c *Config) AddContext(name string, ctx *Context) error {
	ctx.Name = name
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
	return c.Save()
}

// DeleteContext removes a context.
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext sets the current context.
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns a specific context.
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// GetCurrentContext returns the current context.
func (c *Config) GetCurrentContext() (*Context, error) {
	if c.CurrentContext == "" {
		return nil, fmt.Errorf("no current context set")
	}
	return c.GetContext(c.CurrentContext)
}

// ResolveContext returns the context by name, or the current context if
// name is empty.
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name == "" {
		return c.GetCurrentContext()
	}
	return c.GetContext(name)
}

// ListContexts returns all context names.
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	return names
}

// GetExtra returns an extra value for the context.
func (ctx *Context) GetExtra(key string) string {
	if ctx.Extra == nil {
		return ""
	}
	return ctx.Extra[key]
}

// SetExtra sets an extra value for the context.
func (ctx *Context) SetExtra(key, value string) {
	if ctx.Extra == nil {
		ctx.Extra = make(map[string]string)
	}
	ctx.Extra[key] = value
}

// MaskAPIKey masks an API key for display.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
