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
	DefaultBaseDir = ".iso"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.yaml"
)

// Config represents the CLI configuration: a set of named contexts and
// the name of the one currently in use.
type Config struct {
	// CurrentContext is the name of the currently active context
	CurrentContext string `yaml:"current_context,omitempty"`

	// Contexts is a map of context name to context configuration
	Contexts map[string]*Context `yaml:"contexts,omitempty"`

	// configPath is the path to the config file
	configPath string
}

// Context holds the credentials and session defaults for one setup.
type Context struct {
	// Name is the context name
	Name string `yaml:"name"`

	// Provider selects the realtime backend: "openai" or "gemini"
	Provider string `yaml:"provider,omitempty"`

	// Mode selects the OpenAI connection flavor: "webrtc" or "websocket"
	Mode string `yaml:"mode,omitempty"`

	// OpenAIAPIKey authenticates against the OpenAI Realtime API
	OpenAIAPIKey string `yaml:"openai_api_key,omitempty"`

	// GeminiAPIKey authenticates against the Gemini Live API
	GeminiAPIKey string `yaml:"gemini_api_key,omitempty"`

	// Model overrides the provider's default realtime model
	Model string `yaml:"model,omitempty"`

	// Voice overrides the provider's default voice
	Voice string `yaml:"voice,omitempty"`

	// Language1 and Language2 are the default language pair (code or id)
	Language1 string `yaml:"language1,omitempty"`
	Language2 string `yaml:"language2,omitempty"`

	// DataDir overrides the transcript database location
	DataDir string `yaml:"data_dir,omitempty"`

	// Archive configures transcript export destinations
	Archive *ArchiveConfig `yaml:"archive,omitempty"`
}

// ArchiveConfig selects where transcript exports land.
type ArchiveConfig struct {
	// Dir is a local export directory
	Dir string `yaml:"dir,omitempty"`

	// S3Bucket enables uploads to an S3-compatible object store
	S3Bucket string `yaml:"s3_bucket,omitempty"`

	// S3Prefix is prepended to uploaded object keys
	S3Prefix string `yaml:"s3_prefix,omitempty"`

	// S3Region overrides the bucket region
	S3Region string `yaml:"s3_region,omitempty"`

	// S3Endpoint points at a non-AWS endpoint (MinIO, R2, etc.)
	S3Endpoint string `yaml:"s3_endpoint,omitempty"`
}

// APIKeyFor returns the credential for the given provider.
func (ctx *Context) APIKeyFor(provider string) string {
	switch provider {
	case "gemini":
		return ctx.GeminiAPIKey
	default:
		return ctx.OpenAIAPIKey
	}
}

// LoadConfig loads or creates configuration at the default location
// (~/.iso/config.yaml).
func LoadConfig() (*Config, error) {
	return LoadConfigWithPath("")
}

// LoadConfigWithPath loads configuration from a custom path
func LoadConfigWithPath(customPath string) (*Config, error) {
	configPath := customPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, DefaultBaseDir, DefaultConfigFile)
	}

	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := &Config{
		Contexts:   make(map[string]*Context),
		configPath: configPath,
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Create empty config file
			return cfg, cfg.Save()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Ensure contexts map is initialized
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	cfg.configPath = configPath

	return cfg, nil
}

// Save saves the configuration to disk
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

// Path returns the config file path
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the config directory path
func (c *Config) Dir() string {
	return filepath.Dir(c.configPath)
}

// AddContext adds a new context
func (c *Config) AddContext(name string, ctx *Context) error {
	if name == "" {
		return fmt.Errorf("context name cannot be empty")
	}
	if _, ok := c.Contexts[name]; ok {
		return fmt.Errorf("context %q already exists", name)
	}
	ctx.Name = name
	c.Contexts[name] = ctx
	return c.Save()
}

// DeleteContext removes a context
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

// UseContext sets the current context
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns a specific context
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// GetCurrentContext returns the current context
func (c *Config) GetCurrentContext() (*Context, error) {
	if c.CurrentContext == "" {
		return nil, fmt.Errorf("no current context set")
	}
	return c.GetContext(c.CurrentContext)
}

// ResolveContext returns the context by name, or current context if name is empty
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name == "" {
		return c.GetCurrentContext()
	}
	return c.GetContext(name)
}

// ListContexts returns all context names
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	return names
}

// MaskAPIKey masks the API key for display
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
