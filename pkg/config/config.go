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

	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:socialfeed.db?cache=shared&mode=rwc,description=Database connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Database configuration"`

	Cache struct {
		Duration time.Duration `yaml:"duration" json:"duration" jsonschema:"default=900s,description=Time to live for cached feed data"`
		DSN      string        `yaml:"dsn" json:"dsn" jsonschema:"description=Shared cache database connection string; empty uses in-process memory cache"`
	} `yaml:"cache" json:"cache" jsonschema:"description=Feed cache configuration"`

	Search struct {
		MaxHistory time.Duration `yaml:"max_history" json:"max_history" jsonschema:"default=4368h,description=How far back search pagination digs into post history"`
	} `yaml:"search" json:"search" jsonschema:"description=Search pagination configuration"`

	Sources SourcesConfig `yaml:"sources" json:"sources" jsonschema:"description=Per-source API configuration"`

	Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP client timeout for upstream API calls"`
}

// SourcesConfig holds per-source API settings and credentials
type SourcesConfig struct {
	Microblog     MicroblogConfig     `yaml:"microblog" json:"microblog" jsonschema:"description=Microblog source settings"`
	PhotoShare    PhotoShareConfig    `yaml:"photoshare" json:"photoshare" jsonschema:"description=Photo-sharing source settings"`
	SocialNetwork SocialNetworkConfig `yaml:"socialnetwork" json:"socialnetwork" jsonschema:"description=Social-network source settings"`
}

// MicroblogConfig holds microblog API settings
type MicroblogConfig struct {
	BaseURL        string `yaml:"base_url" json:"base_url" jsonschema:"default=https://api.microblog.example.com,description=API base URL"`
	AccessToken    string `yaml:"access_token" json:"access_token" jsonschema:"description=Bearer token (required, can use environment variable)"`
	PageSize       int    `yaml:"page_size" json:"page_size" jsonschema:"default=50,description=Posts per timeline page"`
	IncludeReposts bool   `yaml:"include_reposts" json:"include_reposts" jsonschema:"default=false,description=Include reposts in the timeline"`
}

// PhotoShareConfig holds photo-sharing API settings
type PhotoShareConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url" jsonschema:"default=https://photos.example.com,description=API base URL"`
}

// SocialNetworkConfig holds social-network graph API settings
type SocialNetworkConfig struct {
	BaseURL      string   `yaml:"base_url" json:"base_url" jsonschema:"default=https://graph.example.com,description=API base URL"`
	ClientID     string   `yaml:"client_id" json:"client_id" jsonschema:"description=Application client id (required)"`
	ClientSecret string   `yaml:"client_secret" json:"client_secret" jsonschema:"description=Application client secret (required, can use environment variable)"`
	Fields       []string `yaml:"fields" json:"fields" jsonschema:"description=Post fields requested from the graph API"`
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

	cfg.SetDefaults()
	return &cfg, nil
}

// SetDefaults fills zero-value fields with their documented defaults
func (c *Config) SetDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}

	if c.Database.DSN == "" {
		c.Database.DSN = "file:socialfeed.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 3600
	}

	if c.Cache.Duration == 0 {
		c.Cache.Duration = 900 * time.Second
	}
	if c.Search.MaxHistory == 0 {
		c.Search.MaxHistory = 26 * 7 * 24 * time.Hour // 26 weeks
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}

	if c.Sources.Microblog.BaseURL == "" {
		c.Sources.Microblog.BaseURL = "https://api.microblog.example.com"
	}
	if c.Sources.Microblog.PageSize == 0 {
		c.Sources.Microblog.PageSize = 50
	}
	if c.Sources.PhotoShare.BaseURL == "" {
		c.Sources.PhotoShare.BaseURL = "https://photos.example.com"
	}
	if c.Sources.SocialNetwork.BaseURL == "" {
		c.Sources.SocialNetwork.BaseURL = "https://graph.example.com"
	}
	if len(c.Sources.SocialNetwork.Fields) == 0 {
		c.Sources.SocialNetwork.Fields = []string{
			"id", "type", "message", "story", "description", "link", "picture", "created_time",
		}
	}
}

// GetServerConfig returns listen address and timeout for the HTTP server
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}
