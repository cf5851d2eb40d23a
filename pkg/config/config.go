package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Source struct {
		URL          string        `yaml:"url" json:"url" jsonschema:"description=Remote settings document URL or snippet id"`
		SnippetAPI   string        `yaml:"snippet_api" json:"snippet_api" jsonschema:"default=https://api.github.com/gists,description=Snippet host metadata API base"`
		SnippetFile  string        `yaml:"snippet_file" json:"snippet_file" jsonschema:"default=settings.json,description=Preferred file name inside a snippet payload"`
		Timeout      time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=9s,description=Hard timeout for every remote request"`
		PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval" jsonschema:"default=5m,description=Interval between remote update checks"`
		CacheDir     string        `yaml:"cache_dir" json:"cache_dir" jsonschema:"description=Directory for the fetch cache (empty disables caching)"`
	} `yaml:"source" json:"source" jsonschema:"description=Remote source configuration"`

	Store struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:confscope.db?cache=shared&mode=rwc,description=Persisted store connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"store" json:"store" jsonschema:"description=Persisted store configuration"`

	Host struct {
		SettingsDir     string `yaml:"settings_dir" json:"settings_dir" jsonschema:"default=settings,description=Directory with the layered settings documents"`
		CapabilitiesDir string `yaml:"capabilities_dir" json:"capabilities_dir" jsonschema:"description=Directory with capability manifests"`
		ModuleID        string `yaml:"module_id" json:"module_id" jsonschema:"default=confscope,description=Capability id of this module itself"`
	} `yaml:"host" json:"host" jsonschema:"description=Host environment configuration"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// Default returns a configuration with all defaults applied, used when no
// config file is given
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

func setDefaults(cfg *Config) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	if cfg.Source.SnippetAPI == "" {
		cfg.Source.SnippetAPI = "https://api.github.com/gists"
	}
	if cfg.Source.SnippetFile == "" {
		cfg.Source.SnippetFile = "settings.json"
	}
	if cfg.Source.Timeout == 0 {
		cfg.Source.Timeout = 9 * time.Second
	}
	if cfg.Source.PollInterval == 0 {
		cfg.Source.PollInterval = 5 * time.Minute
	}

	if cfg.Store.DSN == "" {
		cfg.Store.DSN = "file:confscope.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if cfg.Store.MaxOpenConns == 0 {
		cfg.Store.MaxOpenConns = 10
	}
	if cfg.Store.MaxIdleConns == 0 {
		cfg.Store.MaxIdleConns = 5
	}
	if cfg.Store.ConnMaxLifetime == 0 {
		cfg.Store.ConnMaxLifetime = 3600
	}

	if cfg.Host.SettingsDir == "" {
		cfg.Host.SettingsDir = "settings"
	}
	if cfg.Host.ModuleID == "" {
		cfg.Host.ModuleID = "confscope"
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}
	if cfg.Source.Timeout < time.Second {
		return fmt.Errorf("source timeout must be at least 1 second")
	}
	if cfg.Source.PollInterval < 10*time.Second {
		return fmt.Errorf("source poll_interval must be at least 10 seconds")
	}
	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}
