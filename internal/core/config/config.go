package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned when an operation needs the OpenRouter
// credential and none is configured.
var ErrMissingAPIKey = errors.New("no OpenRouter API key configured")

const (
	configFileName = "config.yaml"
	envFileName    = ".env"
	apiKeyEnvVar   = "OPENROUTER_API_KEY"
)

// Config is the explicit configuration object handed to every component.
// Nothing in the repo reads config through a package-level singleton.
type Config struct {
	Models      Models      `yaml:"models"`
	Preferences Preferences `yaml:"preferences"`
	UI          UI          `yaml:"ui"`

	// Resolved at load time, never written to the YAML file.
	APIKey string `yaml:"-"`
	Debug  bool   `yaml:"-"`

	baseDir string
}

// Models maps task categories to OpenRouter model identifiers
type Models struct {
	Default string `yaml:"default"`
	Writing string `yaml:"writing"`
	Coding  string `yaml:"coding"`
	Quick   string `yaml:"quick"`
}

// Preferences holds behavior toggles and generation limits
type Preferences struct {
	AutoSave      bool    `yaml:"auto_save"`
	SessionBackup bool    `yaml:"session_backup"`
	MaxTokens     int     `yaml:"max_tokens"`
	Temperature   float32 `yaml:"temperature"`
}

// UI holds presentation preferences
type UI struct {
	Theme          string `yaml:"theme"`
	ShowTokenCount bool   `yaml:"show_token_count"`
	AutoFormat     bool   `yaml:"auto_format"`
}

type envOverrides struct {
	APIKey string `envconfig:"OPENROUTER_API_KEY"`
	Debug  string `envconfig:"TERMINOTE_DEBUG"`
}

// Default returns the stock configuration rooted at baseDir
func Default(baseDir string) *Config {
	return &Config{
		Models: Models{
			Default: "anthropic/claude-3.5-sonnet",
			Writing: "anthropic/claude-3.5-sonnet",
			Coding:  "anthropic/claude-3.5-sonnet",
			Quick:   "anthropic/claude-3-haiku",
		},
		Preferences: Preferences{
			AutoSave:      true,
			SessionBackup: true,
			MaxTokens:     4096,
			Temperature:   0.7,
		},
		UI: UI{
			Theme:          "dark",
			ShowTokenCount: true,
			AutoFormat:     true,
		},
		baseDir: baseDir,
	}
}

// Load reads configuration for the storage root at baseDir. An empty
// baseDir resolves to ~/.terminote. Layering order: defaults, then the
// YAML file, then the .env credential file, then process environment.
//
// The returned Config is always usable; a parse failure keeps defaults
// and is reported through the error so callers can warn without dying.
func Load(baseDir string) (*Config, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Default(""), fmt.Errorf("resolve home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".terminote")
	}

	cfg := Default(baseDir)

	var loadErr error
	if data, err := os.ReadFile(cfg.FilePath()); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			loadErr = fmt.Errorf("parse %s: %w", cfg.FilePath(), err)
			cfg = Default(baseDir)
		}
	}

	// Credential file first, process environment wins.
	if vals, err := godotenv.Read(cfg.EnvPath()); err == nil {
		cfg.APIKey = vals[apiKeyEnvVar]
	}

	var env envOverrides
	if err := envconfig.Process("", &env); err == nil {
		if env.APIKey != "" {
			cfg.APIKey = env.APIKey
		}
		cfg.Debug = debugEnabled(env.Debug)
	}

	return cfg, loadErr
}

func debugEnabled(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// Save writes the YAML file. The API key is persisted separately by
// SetAPIKey and never appears here.
func (c *Config) Save() error {
	if err := c.EnsureDirs(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(c.FilePath(), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c.FilePath(), err)
	}
	return nil
}

// SetAPIKey stores the credential in the .env file with restricted
// permissions and updates the in-memory value
func (c *Config) SetAPIKey(key string) error {
	if err := c.EnsureDirs(); err != nil {
		return err
	}
	vals, err := godotenv.Read(c.EnvPath())
	if err != nil {
		vals = map[string]string{}
	}
	vals[apiKeyEnvVar] = key
	if err := godotenv.Write(vals, c.EnvPath()); err != nil {
		return fmt.Errorf("write %s: %w", c.EnvPath(), err)
	}
	if err := os.Chmod(c.EnvPath(), 0o600); err != nil {
		return fmt.Errorf("chmod %s: %w", c.EnvPath(), err)
	}
	c.APIKey = key
	return nil
}

// ModelFor returns the configured model for a task category, falling
// back to the default model for unknown categories
func (c *Config) ModelFor(task string) string {
	var m string
	switch task {
	case "writing":
		m = c.Models.Writing
	case "coding":
		m = c.Models.Coding
	case "quick":
		m = c.Models.Quick
	}
	if m == "" {
		return c.Models.Default
	}
	return m
}

// MaskedKey returns the API key with the middle elided, or "" when unset
func (c *Config) MaskedKey() string {
	if c.APIKey == "" {
		return ""
	}
	if len(c.APIKey) <= 12 {
		return "****"
	}
	return c.APIKey[:8] + "..." + c.APIKey[len(c.APIKey)-4:]
}

// RequireAPIKey gates operations that talk to OpenRouter
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// EnsureDirs creates the storage root and its subdirectories
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Dir(), c.SessionsDir(), c.LogsDir(), c.PromptsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Dir returns the storage root (~/.terminote unless overridden)
func (c *Config) Dir() string { return c.baseDir }

// SessionsDir is where session JSON files live
func (c *Config) SessionsDir() string { return filepath.Join(c.baseDir, "sessions") }

// LogsDir is where the debug/error log lives
func (c *Config) LogsDir() string { return filepath.Join(c.baseDir, "logs") }

// PromptsDir holds user prompt-template overrides
func (c *Config) PromptsDir() string { return filepath.Join(c.baseDir, "prompts") }

// FilePath is the YAML config file location
func (c *Config) FilePath() string { return filepath.Join(c.baseDir, configFileName) }

// EnvPath is the credential file location
func (c *Config) EnvPath() string { return filepath.Join(c.baseDir, envFileName) }
