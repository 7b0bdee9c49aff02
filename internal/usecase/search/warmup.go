package search

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/modalsearch/internal/domain/search/query"
)

// WarmupReport counts warm-up queries by outcome.
type WarmupReport struct {
	Warmed int `json:"warmed"`
	Failed int `json:"failed"`
}

// Warmup runs queries with default options to populate the result and
// relationship caches. Queries run on a bounded worker pool; failures are
// counted and logged, never returned.
func (s *Service) Warmup(ctx context.Context, queries []query.Query) (WarmupReport, error) {
	pool, err := ants.NewPool(s.Config().WarmupWorkers)
	if err != nil {
		return WarmupReport{}, fmt.Errorf("warmup pool: %w", err)
	}
	defer pool.Release()

	var (
		wg             sync.WaitGroup
		warmed, failed atomic.Int64
	)
	for _, q := range queries {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if _, err := s.Search(ctx, q, query.Options{}); err != nil {
				failed.Add(1)
				s.logger.Debug("Warm-up query failed", zap.String("query", q.Text), zap.Error(err))
				return
			}
			warmed.Add(1)
		})
		if submitErr != nil {
			wg.Done()
			failed.Add(1)
			s.logger.Warn("Warm-up submit failed", zap.Error(submitErr))
		}
	}
	wg.Wait()

	report := WarmupReport{Warmed: int(warmed.Load()), Failed: int(failed.Load())}
	s.logger.Info("Search warm-up finished",
		zap.Int("warmed", report.Warmed),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}
