package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/modalsearch/internal/domain/ranking"
)

// Config holds the modalsearch configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Storage    StorageConfig    `yaml:"storage"`
	Search     SearchConfig     `yaml:"search"`
	CrossModal CrossModalConfig `yaml:"crossmodal"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// Database drivers.
const (
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderStatic = "static"
)

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds vector store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: memory)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	Algorithm        string   `yaml:"algorithm"` // HNSW (default) or FLAT, redis only
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
	HNSWEFSearch     int      `yaml:"hnsw_ef_search"` // memory only
	// RecreateIndex drops and rebuilds the FT index at startup, keeping the
	// stored hashes. Needed after changing dimensions or the algorithm.
	RecreateIndex bool `yaml:"recreate_index"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix  string `yaml:"key_prefix"`
	CorpusPath string `yaml:"corpus_path"` // YAML corpus ingested at startup, optional
}

// BreakerConfig holds circuit breaker settings for the embedding provider.
type BreakerConfig struct {
	MaxRequests  uint32  `yaml:"max_requests"`
	IntervalSec  int     `yaml:"interval_sec"`
	TimeoutSec   int     `yaml:"timeout_sec"`
	MinRequests  uint32  `yaml:"min_requests"`
	FailureRatio float64 `yaml:"failure_ratio"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider         string        `yaml:"provider"` // openai, static (default: static)
	APIKey           string        `yaml:"api_key"`
	BaseURL          string        `yaml:"base_url"`
	Model            string        `yaml:"model"`
	Dimensions       int           `yaml:"dimensions"`
	User             string        `yaml:"user"`
	QueryInstruction string        `yaml:"query_instruction"`
	CacheTTLSec      int           `yaml:"cache_ttl_sec"` // 0 disables the redis embedding cache
	Breaker          BreakerConfig `yaml:"breaker"`
}

// SearchConfig holds pipeline settings.
type SearchConfig struct {
	DefaultLimit          int                 `yaml:"default_limit"`
	DefaultThreshold      float64             `yaml:"default_threshold"`
	RequestTimeoutMs      int                 `yaml:"request_timeout_ms"`
	ResultCacheTTLSec     int                 `yaml:"result_cache_ttl_sec"`
	ResultCacheMaxEntries int                 `yaml:"result_cache_max_entries"`
	SemanticExpansion     *bool               `yaml:"semantic_expansion"`
	IncludeCrossModal     *bool               `yaml:"include_cross_modal"`
	WarmupWorkers         int                 `yaml:"warmup_workers"`
	ParallelStrategies    bool                `yaml:"parallel_strategies"`
	PopularQueries        int                 `yaml:"popular_queries"`
	Synonyms              map[string][]string `yaml:"synonyms"`
	WarmupQueries         []string            `yaml:"warmup_queries"`
}

// CrossModalConfig holds cross-modal matching settings.
type CrossModalConfig struct {
	MaxMatchesPerType   int             `yaml:"max_matches_per_type"`
	SimilarityThreshold float64         `yaml:"similarity_threshold"`
	SemanticBridging    *bool           `yaml:"semantic_bridging"`
	Pairs               map[string]bool `yaml:"pairs"` // "text->code": false disables a pair
	CacheTTLSec         int             `yaml:"cache_ttl_sec"`
	CacheMaxEntries     int             `yaml:"cache_max_entries"`
}

// RankingConfig holds ranking and diversification settings.
type RankingConfig struct {
	Presets           map[string]ranking.Weights `yaml:"presets"` // merged over the built-in presets
	DiversityFactor   float64                    `yaml:"diversity_factor"`
	MaxSimilarResults int                        `yaml:"max_similar_results"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
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

// Default returns a configuration with every default applied: in-memory
// store, static embedder, stock search settings.
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverMemory
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.HNSWM <= 0 {
		c.Database.HNSWM = 16
	}
	if c.Database.HNSWEFConstruct <= 0 {
		c.Database.HNSWEFConstruct = 200
	}
	if c.Database.HNSWEFSearch <= 0 {
		c.Database.HNSWEFSearch = 64
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderStatic
	}
	if c.Embedding.Dimensions <= 0 && c.Embedding.Provider == ProviderStatic {
		c.Embedding.Dimensions = 256
	}
	if c.Embedding.Breaker.MaxRequests == 0 {
		c.Embedding.Breaker.MaxRequests = 1
	}
	if c.Embedding.Breaker.IntervalSec <= 0 {
		c.Embedding.Breaker.IntervalSec = 60
	}
	if c.Embedding.Breaker.TimeoutSec <= 0 {
		c.Embedding.Breaker.TimeoutSec = 30
	}
	if c.Embedding.Breaker.MinRequests == 0 {
		c.Embedding.Breaker.MinRequests = 5
	}
	if c.Embedding.Breaker.FailureRatio <= 0 {
		c.Embedding.Breaker.FailureRatio = 0.6
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "modalsearch:"
	}
	if c.Search.RequestTimeoutMs <= 0 {
		c.Search.RequestTimeoutMs = 5000
	}
	if c.Search.WarmupWorkers <= 0 {
		c.Search.WarmupWorkers = 4
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverRedis, DriverMemory, c.Database.Driver)
	}
	switch c.Embedding.Provider {
	case ProviderOpenAI:
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for the openai provider")
		}
	case ProviderStatic:
	default:
		return fmt.Errorf("embedding.provider must be %q or %q, got %q",
			ProviderOpenAI, ProviderStatic, c.Embedding.Provider)
	}
	if r := c.Embedding.Breaker.FailureRatio; r > 1 {
		return fmt.Errorf("embedding.breaker.failure_ratio must be in (0, 1], got %v", r)
	}
	if t := c.Search.DefaultThreshold; t < 0 || t > 1 {
		return fmt.Errorf("search.default_threshold must be between 0 and 1, got %v", t)
	}
	if t := c.CrossModal.SimilarityThreshold; t < 0 || t > 1 {
		return fmt.Errorf("crossmodal.similarity_threshold must be between 0 and 1, got %v", t)
	}
	if f := c.Ranking.DiversityFactor; f < 0 || f > 1 {
		return fmt.Errorf("ranking.diversity_factor must be between 0 and 1, got %v", f)
	}
	for name, w := range c.Ranking.Presets {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("ranking.presets.%s: %w", name, err)
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
