package modalsearch

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/modalsearch/internal/config"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	config     Config
	logger     *zap.Logger
	metricsReg prometheus.Registerer
	embedder   Embedder
	corpora    []string
	contents   []Content
	err        error
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return optionFunc(func(c *clientConfig) {
		c.config = cfg
	})
}

// WithConfigFile loads the configuration from a YAML file.
func WithConfigFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		cfg, err := LoadConfig(path)
		if err != nil {
			c.err = err
			return
		}
		c.config = cfg
	})
}

// WithRedis stores vectors in a Redis 8 server with the search module.
// dimensions must match the embedder output.
func WithRedis(addrs []string, password string, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.config.Database.Driver = config.DriverRedis
		c.config.Database.Addrs = addrs
		c.config.Database.Password = password
		c.config.Embedding.Dimensions = dimensions
	})
}

// WithHNSW tunes the HNSW graph (M and EF construction).
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.config.Database.HNSWM = m
		c.config.Database.HNSWEFConstruct = efConstruct
	})
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		if l != nil {
			c.logger = l
		}
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// WithEmbedder replaces the configured embedding provider.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithCorpus ingests a YAML corpus file during New. Repeatable.
func WithCorpus(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.corpora = append(c.corpora, path)
	})
}

// WithContents ingests items during New. New fails if any item is rejected.
func WithContents(items ...Content) Option {
	return optionFunc(func(c *clientConfig) {
		c.contents = append(c.contents, items...)
	})
}

// WithThreshold sets the default similarity threshold for retrieval and
// cross-modal matching.
func WithThreshold(t float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.config.Search.DefaultThreshold = t
		c.config.CrossModal.SimilarityThreshold = t
	})
}
