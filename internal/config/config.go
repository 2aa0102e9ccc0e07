package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the dossier configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Store       StoreConfig       `yaml:"store"`
	Cache       CacheConfig       `yaml:"cache"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Auth        AuthConfig        `yaml:"auth"`
	Collections CollectionsConfig `yaml:"collections"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Search      SearchConfig      `yaml:"search"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxBodyMB       int `yaml:"max_body_mb"`
}

// StoreConfig holds document store settings.
type StoreConfig struct {
	Driver              string `yaml:"driver"` // mongo, memory (default: mongo)
	URI                 string `yaml:"uri"`
	Database            string `yaml:"database"`
	ReadinessTimeoutSec int    `yaml:"readiness_timeout_sec"`
	OperationTimeoutSec int    `yaml:"operation_timeout_sec"`
}

// OperationTimeout bounds a single store call.
func (s StoreConfig) OperationTimeout() time.Duration {
	return time.Duration(s.OperationTimeoutSec) * time.Second
}

// CacheConfig holds the Redis embedding cache settings. No addrs disables the cache.
type CacheConfig struct {
	Addrs    []string `yaml:"addrs"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTLHours int      `yaml:"ttl_hours"` // 0 = no expiry
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string          `yaml:"provider"` // openai, hashed (default: hashed)
	APIKey     string          `yaml:"api_key"`
	BaseURL    string          `yaml:"base_url"`
	Model      string          `yaml:"model"`
	Dimensions int             `yaml:"dimensions"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig bounds outgoing embedding requests.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int     `yaml:"burst"`
	MaxWaitMS         int     `yaml:"max_wait_ms"`
}

// PartitionConfig names the partitions of one collection. An empty
// cold_prefix means the collection is never archived.
type PartitionConfig struct {
	Hot        string `yaml:"hot"`
	ColdPrefix string `yaml:"cold_prefix"`
}

// CollectionsConfig holds the partition layout of every collection.
type CollectionsConfig struct {
	Products       PartitionConfig `yaml:"products"`
	Applications   PartitionConfig `yaml:"applications"`
	ApplicationsV2 PartitionConfig `yaml:"applications_v2"`
}

// IngestConfig holds ingestion batch capacities.
type IngestConfig struct {
	ProductBatchSize     int `yaml:"product_batch_size"`
	ApplicationBatchSize int `yaml:"application_batch_size"`
	MigrationPageSize    int `yaml:"migration_page_size"`
}

// ArchiveConfig holds archival settings.
type ArchiveConfig struct {
	RetentionYears int `yaml:"retention_years"`
	Concurrency    int `yaml:"concurrency"`
	// OperationTimeoutSec bounds one reindex or delete; these run far longer than searches.
	OperationTimeoutSec int `yaml:"operation_timeout_sec"`
}

// SearchConfig holds pagination and k-NN settings.
type SearchConfig struct {
	DefaultPageSize  int `yaml:"default_page_size"`
	MaxPageSize      int `yaml:"max_page_size"`
	DefaultK         int `yaml:"default_k"`
	DefaultCandidate int `yaml:"default_num_candidates"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

func defaultInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

func defaultString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	defaultInt(&c.HTTP.ReadTimeoutSec, 30)
	defaultInt(&c.HTTP.WriteTimeoutSec, 300)
	defaultInt(&c.HTTP.ShutdownSec, 10)
	defaultInt(&c.HTTP.MaxBodyMB, 512)

	defaultString(&c.Store.Driver, "mongo")
	defaultString(&c.Store.Database, "dossier")
	defaultInt(&c.Store.ReadinessTimeoutSec, 30)
	defaultInt(&c.Store.OperationTimeoutSec, 30)

	defaultString(&c.Embedding.Provider, "hashed")
	defaultInt(&c.Embedding.Dimensions, 384)
	defaultString(&c.Embedding.Model, "all-minilm")

	defaultString(&c.Collections.Products.Hot, "products")
	defaultString(&c.Collections.Products.ColdPrefix, "products-archive-")
	defaultString(&c.Collections.Applications.Hot, "applications")
	defaultString(&c.Collections.ApplicationsV2.Hot, "applications-v2")
	defaultString(&c.Collections.ApplicationsV2.ColdPrefix, "applications-v2-archive-")

	defaultInt(&c.Ingest.ProductBatchSize, 50)
	defaultInt(&c.Ingest.ApplicationBatchSize, 10000)
	defaultInt(&c.Ingest.MigrationPageSize, 1000)

	defaultInt(&c.Archive.RetentionYears, 1)
	defaultInt(&c.Archive.Concurrency, 1)
	defaultInt(&c.Archive.OperationTimeoutSec, 600)

	defaultInt(&c.Search.DefaultPageSize, 10)
	defaultInt(&c.Search.MaxPageSize, 1000)
	defaultInt(&c.Search.DefaultK, 10)
	defaultInt(&c.Search.DefaultCandidate, 100)
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Store.Driver {
	case "mongo":
		if c.Store.URI == "" {
			return fmt.Errorf("store.uri is required for the mongo driver")
		}
	case "memory":
	default:
		return fmt.Errorf("store.driver must be \"mongo\" or \"memory\", got %q", c.Store.Driver)
	}
	switch c.Embedding.Provider {
	case "openai":
		if c.Embedding.BaseURL == "" {
			return fmt.Errorf("embedding.base_url is required for the openai provider")
		}
	case "hashed":
	default:
		return fmt.Errorf("embedding.provider must be \"openai\" or \"hashed\", got %q", c.Embedding.Provider)
	}
	if c.Embedding.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("embedding.rate_limit.requests_per_second must not be negative")
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("search.default_page_size %d exceeds search.max_page_size %d",
			c.Search.DefaultPageSize, c.Search.MaxPageSize)
	}
	hots := map[string]string{}
	for name, p := range map[string]PartitionConfig{
		"products":        c.Collections.Products,
		"applications":    c.Collections.Applications,
		"applications_v2": c.Collections.ApplicationsV2,
	} {
		if other, ok := hots[p.Hot]; ok {
			return fmt.Errorf("collections.%s.hot %q is already used by collections.%s", name, p.Hot, other)
		}
		hots[p.Hot] = name
		if p.ColdPrefix == p.Hot {
			return fmt.Errorf("collections.%s.cold_prefix must differ from hot", name)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
