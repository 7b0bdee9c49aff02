package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/modalsearch/internal/domain"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/query"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/result"
	"github.com/kailas-cloud/modalsearch/internal/metrics"
	"github.com/kailas-cloud/modalsearch/internal/usecase/blend"
)

// Strategy is one member of an ensemble search. Config, when set, overrides
// the service config for this strategy only.
type Strategy struct {
	Name    string        `json:"name"`
	Weight  float64       `json:"weight"`
	Options query.Options `json:"options"`
	Config  *ConfigPatch  `json:"config,omitempty"`
}

// StrategyOutcome describes a strategy that contributed to the blend.
type StrategyOutcome struct {
	Name     string        `json:"name"`
	Weight   float64       `json:"weight"`
	Results  int           `json:"results"`
	Duration time.Duration `json:"duration"`
	CacheHit bool          `json:"cache_hit"`
}

// EnsembleResponse is the blended outcome of several strategies.
type EnsembleResponse struct {
	Results           []result.Result   `json:"results"`
	Analytics         result.Analytics  `json:"analytics"`
	StrategyBreakdown []StrategyOutcome `json:"strategy_breakdown"`
}

type strategyRun struct {
	resp Response
	took time.Duration
	err  error
}

// SearchWithStrategies runs every strategy against an independently configured
// service and blends their results. Failed strategies are logged and left out
// of the blend and the breakdown.
func (s *Service) SearchWithStrategies(ctx context.Context, q query.Query, strategies []Strategy) (EnsembleResponse, error) {
	start := time.Now()
	cfg := s.Config()
	nq := query.Normalize(q, cfg.defaults())
	if err := query.Validate(nq); err != nil {
		return EnsembleResponse{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	if len(strategies) == 0 {
		return EnsembleResponse{}, fmt.Errorf("%w: no strategies", domain.ErrInvalidQuery)
	}

	runs := make([]strategyRun, len(strategies))
	if cfg.ParallelStrategies {
		var g errgroup.Group
		for i := range strategies {
			g.Go(func() error {
				runs[i] = s.runStrategy(ctx, q, strategies[i])
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range strategies {
			runs[i] = s.runStrategy(ctx, q, strategies[i])
		}
	}

	var (
		sets      []blend.StrategyResults
		breakdown []StrategyOutcome
		errs      []error
		allHit    = true
	)
	for i, st := range strategies {
		run := runs[i]
		if run.err != nil {
			metrics.StrategyFailuresTotal.WithLabelValues(st.Name).Inc()
			s.logger.Warn("Strategy failed",
				zap.String("strategy", st.Name),
				zap.Error(run.err),
			)
			errs = append(errs, &domain.StrategyError{Strategy: st.Name, Err: run.err})
			continue
		}
		sets = append(sets, blend.StrategyResults{Name: st.Name, Weight: st.Weight, Results: run.resp.Results})
		breakdown = append(breakdown, StrategyOutcome{
			Name:     st.Name,
			Weight:   st.Weight,
			Results:  len(run.resp.Results),
			Duration: run.took,
			CacheHit: run.resp.Analytics.CacheHit,
		})
		allHit = allHit && run.resp.Analytics.CacheHit
	}

	if len(sets) == 0 {
		return EnsembleResponse{}, fmt.Errorf("%w: %w", domain.ErrAllStrategiesFailed, errors.Join(errs...))
	}

	blended := blend.Blend(sets, nq.Limit)
	return EnsembleResponse{
		Results:           blended,
		Analytics:         result.Summarize(blended, time.Since(start), allHit),
		StrategyBreakdown: breakdown,
	}, nil
}

func (s *Service) runStrategy(ctx context.Context, q query.Query, st Strategy) strategyRun {
	start := time.Now()
	svc, err := s.fork(st.Config)
	if err != nil {
		return strategyRun{err: err}
	}
	resp, err := svc.Search(ctx, q, st.Options)
	return strategyRun{resp: resp, took: time.Since(start), err: err}
}
