// Package modalsearch is an embeddable cross-modal search engine. It links
// text, code, images, audio and video by meaning, ranks them with weight
// profiles and blends several ranking strategies into one result list.
//
// A zero-option client runs offline on an in-memory HNSW index and a
// hashing embedder:
//
//	c, err := modalsearch.New(ctx, modalsearch.WithCorpus("corpus.yaml"))
//	resp, err := c.Search(ctx, modalsearch.Query{
//		Text:       "sorting algorithm",
//		Modalities: []modalsearch.Type{modalsearch.Code, modalsearch.Image},
//	}, modalsearch.Options{})
package modalsearch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/modalsearch/internal/app"
	dombatch "github.com/kailas-cloud/modalsearch/internal/domain/batch"
)

// Client is the modalsearch SDK entry point.
type Client struct {
	app *app.App
	obs *observer
}

// New wires a client. With the redis driver it waits for the server and
// creates the vector index before returning.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{config: DefaultConfig(), logger: zap.NewNop()}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.err != nil {
		return nil, fmt.Errorf("modalsearch: %w", cfg.err)
	}
	cfg.config.ApplyDefaults()
	if err := cfg.config.Validate(); err != nil {
		return nil, fmt.Errorf("modalsearch: %w: %w", ErrInvalidConfig, err)
	}

	obs := &observer{logger: cfg.logger}
	if cfg.metricsReg != nil {
		m, err := newSDKMetrics(cfg.metricsReg)
		if err != nil {
			return nil, fmt.Errorf("modalsearch: %w", err)
		}
		obs.metrics = m
	}

	var appOpts []app.Option
	if cfg.embedder != nil {
		appOpts = append(appOpts, app.WithEmbedder(cfg.embedder))
	}
	a, err := app.New(ctx, cfg.config, cfg.logger, appOpts...)
	if err != nil {
		return nil, fmt.Errorf("modalsearch: %w", err)
	}
	c := &Client{app: a, obs: obs}

	for _, path := range cfg.corpora {
		if _, err := a.LoadCorpus(ctx, path); err != nil {
			a.Close()
			return nil, fmt.Errorf("modalsearch: %w", err)
		}
	}
	if len(cfg.contents) > 0 {
		sum := dombatch.Summarize(c.UpsertBatch(ctx, cfg.contents))
		if sum.Failed > 0 {
			a.Close()
			return nil, fmt.Errorf("modalsearch: %d of %d contents rejected: %w",
				sum.Failed, len(cfg.contents), ErrInvalidContent)
		}
	}
	return c, nil
}

// Close releases the database connection, if any.
func (c *Client) Close() {
	c.app.Close()
}

// Search retrieves, links, ranks and diversifies content for q.
func (c *Client) Search(ctx context.Context, q Query, opts Options) (Response, error) {
	start := time.Now()
	resp, err := c.app.Search.Search(ctx, q, opts)
	c.obs.observe("search", start, err)
	if err != nil {
		return Response{}, fmt.Errorf("search: %w", err)
	}
	return resp, nil
}

// SearchWithStrategies runs each strategy concurrently and blends the results.
// It fails only when every strategy fails.
func (c *Client) SearchWithStrategies(ctx context.Context, q Query, strategies []Strategy) (EnsembleResponse, error) {
	start := time.Now()
	resp, err := c.app.Search.SearchWithStrategies(ctx, q, strategies)
	c.obs.observe("search_strategies", start, err)
	if err != nil {
		return EnsembleResponse{}, fmt.Errorf("search with strategies: %w", err)
	}
	return resp, nil
}

// Explain renders the ranking breakdown of one result of q.
func (c *Client) Explain(ctx context.Context, q Query, opts Options, resultID string) (string, error) {
	start := time.Now()
	text, err := c.app.Search.Explain(ctx, q, opts, resultID)
	c.obs.observe("explain", start, err)
	if err != nil {
		return "", fmt.Errorf("explain: %w", err)
	}
	return text, nil
}

// Warmup runs queries to populate the caches.
func (c *Client) Warmup(ctx context.Context, queries ...Query) (WarmupReport, error) {
	report, err := c.app.Search.Warmup(ctx, queries)
	if err != nil {
		return report, fmt.Errorf("warmup: %w", err)
	}
	return report, nil
}

// Upsert embeds and stores one item. It reports whether the item is new.
func (c *Client) Upsert(ctx context.Context, item Content) (bool, error) {
	start := time.Now()
	created, err := c.app.Ingest.Upsert(ctx, item)
	c.obs.observe("upsert", start, err)
	if err != nil {
		return false, fmt.Errorf("upsert %s: %w", item.ID, err)
	}
	return created, nil
}

// UpsertBatch stores items with per-item outcomes.
func (c *Client) UpsertBatch(ctx context.Context, items []Content) []ItemResult {
	start := time.Now()
	results := c.app.Ingest.UpsertBatch(ctx, items)
	c.obs.observe("upsert_batch", start, batchErr(results))
	return results
}

// Get returns a stored item.
func (c *Client) Get(ctx context.Context, id string) (Content, error) {
	start := time.Now()
	item, err := c.app.Ingest.Get(ctx, id)
	c.obs.observe("get", start, err)
	if err != nil {
		return Content{}, fmt.Errorf("get %s: %w", id, err)
	}
	return item, nil
}

// Delete removes items with per-item outcomes.
func (c *Client) Delete(ctx context.Context, ids ...string) []ItemResult {
	start := time.Now()
	results := c.app.Ingest.Delete(ctx, ids)
	c.obs.observe("delete", start, batchErr(results))
	return results
}

// LoadCorpus ingests a YAML corpus file.
func (c *Client) LoadCorpus(ctx context.Context, path string) (BatchSummary, error) {
	sum, err := c.app.LoadCorpus(ctx, path)
	if err != nil {
		return sum, fmt.Errorf("modalsearch: %w", err)
	}
	return sum, nil
}

// Stats reports query, cache and storage statistics.
func (c *Client) Stats(ctx context.Context) Stats {
	return c.app.Search.Stats(ctx)
}

// Health checks the store and the embedding provider.
func (c *Client) Health(ctx context.Context) HealthReport {
	return c.app.Health.Check(ctx)
}

// ClearCaches drops cached results and relationships.
func (c *Client) ClearCaches() {
	c.app.Search.ClearCaches()
}

// batchErr returns the first item error so a partly failed batch is
// observed as an error.
func batchErr(results []ItemResult) error {
	for _, r := range results {
		if err := r.Err(); err != nil {
			return err
		}
	}
	return nil
}
