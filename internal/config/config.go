package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"kaizen/internal/knowledge"
	"kaizen/internal/secrets"
)

// FileName is the config file name inside the data directory.
const FileName = "config.json"

// EnvPrefix prefixes environment overrides, e.g. KAIZEN_SEARCH_MAXRESULTS.
const EnvPrefix = "KAIZEN"

// Config represents the complete kaizen configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Search    SearchConfig    `json:"search" mapstructure:"search"`
	Knowledge KnowledgeConfig `json:"knowledge" mapstructure:"knowledge"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
	API       APIConfig       `json:"api" mapstructure:"api"`
	MCP       MCPConfig       `json:"mcp" mapstructure:"mcp"`
}

// SearchConfig tunes ranking, filtering and traversal
type SearchConfig struct {
	MinRelevance  float64 `json:"minRelevance" mapstructure:"minRelevance"`
	ContextWeight float64 `json:"contextWeight" mapstructure:"contextWeight"`
	ContentWeight float64 `json:"contentWeight" mapstructure:"contentWeight"`
	Saturation    float64 `json:"saturation" mapstructure:"saturation"`
	MaxResults    int     `json:"maxResults" mapstructure:"maxResults"`
	MaxChainDepth int     `json:"maxChainDepth" mapstructure:"maxChainDepth"`
	TaskSizeMode  string  `json:"taskSizeMode" mapstructure:"taskSizeMode"`
}

// KnowledgeConfig governs writes of knowledge entries
type KnowledgeConfig struct {
	// SecretPolicy is off, warn or reject
	SecretPolicy string `json:"secretPolicy" mapstructure:"secretPolicy"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" mapstructure:"format"`
	Level      string `json:"level" mapstructure:"level"`
	MaxSize    string `json:"maxSize,omitempty" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups,omitempty" mapstructure:"maxBackups"`
}

// APIConfig contains HTTP server configuration
type APIConfig struct {
	Host        string          `json:"host" mapstructure:"host"`
	Port        int             `json:"port" mapstructure:"port"`
	RequireAuth bool            `json:"requireAuth" mapstructure:"requireAuth"`
	RateLimit   RateLimitConfig `json:"rateLimit" mapstructure:"rateLimit"`
	CORSOrigins []string        `json:"corsOrigins" mapstructure:"corsOrigins"`
}

// RateLimitConfig configures the per-token token bucket
type RateLimitConfig struct {
	Enabled           bool    `json:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `json:"requestsPerSecond" mapstructure:"requestsPerSecond"`
	Burst             int     `json:"burst" mapstructure:"burst"`
}

// MCPConfig contains MCP server configuration
type MCPConfig struct {
	LogFile bool `json:"logFile" mapstructure:"logFile"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Search: SearchConfig{
			MinRelevance:  0.1,
			ContextWeight: 1.0,
			ContentWeight: 0.4,
			Saturation:    1.0,
			MaxResults:    50,
			MaxChainDepth: knowledge.DefaultMaxChainDepth,
			TaskSizeMode:  string(knowledge.SizeModeCeiling),
		},
		Knowledge: KnowledgeConfig{
			SecretPolicy: string(secrets.PolicyWarn),
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
		API: APIConfig{
			Host: "localhost",
			Port: 8765,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: 10,
				Burst:             20,
			},
			CORSOrigins: []string{},
		},
		MCP: MCPConfig{
			LogFile: true,
		},
	}
}

// setDefaults registers every key so env overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)

	v.SetDefault("search.minRelevance", d.Search.MinRelevance)
	v.SetDefault("search.contextWeight", d.Search.ContextWeight)
	v.SetDefault("search.contentWeight", d.Search.ContentWeight)
	v.SetDefault("search.saturation", d.Search.Saturation)
	v.SetDefault("search.maxResults", d.Search.MaxResults)
	v.SetDefault("search.maxChainDepth", d.Search.MaxChainDepth)
	v.SetDefault("search.taskSizeMode", d.Search.TaskSizeMode)

	v.SetDefault("knowledge.secretPolicy", d.Knowledge.SecretPolicy)

	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)

	v.SetDefault("api.host", d.API.Host)
	v.SetDefault("api.port", d.API.Port)
	v.SetDefault("api.requireAuth", d.API.RequireAuth)
	v.SetDefault("api.rateLimit.enabled", d.API.RateLimit.Enabled)
	v.SetDefault("api.rateLimit.requestsPerSecond", d.API.RateLimit.RequestsPerSecond)
	v.SetDefault("api.rateLimit.burst", d.API.RateLimit.Burst)
	v.SetDefault("api.corsOrigins", d.API.CORSOrigins)

	v.SetDefault("mcp.logFile", d.MCP.LogFile)
}

// LoadConfig loads <dataDir>/config.json and applies KAIZEN_* environment
// overrides. A missing file yields the defaults.
func LoadConfig(dataDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(dataDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Path returns the config file path for a data directory.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Save writes the configuration to <dataDir>/config.json
func (c *Config) Save(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(Path(dataDir), data, 0644)
}

// Sections lists the names accepted by Reset.
var Sections = []string{"search", "knowledge", "logging", "api", "mcp"}

// Reset restores one section to its default, or every section when section
// is empty.
func (c *Config) Reset(section string) error {
	def := DefaultConfig()
	switch section {
	case "":
		*c = *def
	case "search":
		c.Search = def.Search
	case "knowledge":
		c.Knowledge = def.Knowledge
	case "logging":
		c.Logging = def.Logging
	case "api":
		c.API = def.API
	case "mcp":
		c.MCP = def.MCP
	default:
		return &ConfigError{Field: section, Message: "unknown section, expected one of " + strings.Join(Sections, ", ")}
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}

	s := c.Search
	if s.MinRelevance < 0 || s.MinRelevance > 1 {
		return &ConfigError{Field: "search.minRelevance", Message: "must be within [0, 1]"}
	}
	if s.ContentWeight <= 0 || s.ContextWeight <= s.ContentWeight {
		return &ConfigError{Field: "search.contextWeight", Message: "must exceed search.contentWeight, which must be positive"}
	}
	if s.Saturation <= 0 {
		return &ConfigError{Field: "search.saturation", Message: "must be positive"}
	}
	if s.MaxResults < 0 {
		return &ConfigError{Field: "search.maxResults", Message: "cannot be negative"}
	}
	if s.MaxChainDepth <= 0 {
		return &ConfigError{Field: "search.maxChainDepth", Message: "must be positive"}
	}
	switch knowledge.SizeMode(s.TaskSizeMode) {
	case knowledge.SizeModeCeiling, knowledge.SizeModeExact:
	default:
		return &ConfigError{Field: "search.taskSizeMode", Message: "must be ceiling or exact"}
	}

	if _, ok := secrets.ParsePolicy(c.Knowledge.SecretPolicy); !ok {
		return &ConfigError{Field: "knowledge.secretPolicy", Message: "must be off, warn or reject"}
	}

	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		return &ConfigError{Field: "api.port", Message: fmt.Sprintf("%d is not a valid port", c.API.Port)}
	}
	if c.API.RateLimit.Enabled && (c.API.RateLimit.RequestsPerSecond <= 0 || c.API.RateLimit.Burst <= 0) {
		return &ConfigError{Field: "api.rateLimit", Message: "requestsPerSecond and burst must be positive"}
	}
	return nil
}

// EngineConfig converts the search section into retrieval engine settings.
func (c *Config) EngineConfig() knowledge.Config {
	cfg := knowledge.DefaultConfig()
	cfg.Ranker = knowledge.RankerConfig{
		ContextWeight: c.Search.ContextWeight,
		ContentWeight: c.Search.ContentWeight,
		Saturation:    c.Search.Saturation,
		MinRelevance:  c.Search.MinRelevance,
	}
	cfg.MaxResults = c.Search.MaxResults
	cfg.MaxChainDepth = c.Search.MaxChainDepth
	cfg.SizeMode = knowledge.SizeMode(c.Search.TaskSizeMode)
	return cfg
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// SecretPolicy returns the parsed knowledge.secretPolicy. Validate has
// already rejected unknown values.
func (c *Config) SecretPolicy() secrets.Policy {
	p, _ := secrets.ParsePolicy(c.Knowledge.SecretPolicy)
	return p
}
