package search

import (
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kailas-cloud/modalsearch/internal/cache"
	"github.com/kailas-cloud/modalsearch/internal/domain/vector"
	"github.com/kailas-cloud/modalsearch/internal/usecase/crossmodal"
)

const topPopularQueries = 10

// PopularQuery is a query text with the number of times it was searched.
type PopularQuery struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Stats is a snapshot of service activity.
type Stats struct {
	TotalQueries     int64                `json:"total_queries"`
	AverageQueryTime time.Duration        `json:"average_query_time"`
	ResultCache      cache.Stats          `json:"result_cache"`
	PopularQueries   []PopularQuery       `json:"popular_queries"`
	CrossModal       crossmodal.Stats     `json:"cross_modal"`
	Storage          *vector.StorageStats `json:"storage,omitempty"`
}

// queryStats tracks query counts and latency. Popular queries are bounded by
// an LRU so a long tail of one-off queries cannot grow memory.
type queryStats struct {
	mu        sync.Mutex
	total     int64
	totalTime time.Duration
	popular   *lru.Cache[string, int64]
}

func newQueryStats(size int) *queryStats {
	popular, err := lru.New[string, int64](size)
	if err != nil {
		// size is validated positive by Config.withDefaults
		panic(err)
	}
	return &queryStats{popular: popular}
}

func (s *queryStats) record(text string, took time.Duration) {
	key := strings.ToLower(strings.TrimSpace(text))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.totalTime += took
	n, _ := s.popular.Get(key)
	s.popular.Add(key, n+1)
}

func (s *queryStats) snapshot() (total int64, avg time.Duration, top []PopularQuery) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.total > 0 {
		avg = s.totalTime / time.Duration(s.total)
	}
	for _, k := range s.popular.Keys() {
		if n, ok := s.popular.Peek(k); ok {
			top = append(top, PopularQuery{Query: k, Count: n})
		}
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Query < top[j].Query
	})
	if len(top) > topPopularQueries {
		top = top[:topPopularQueries]
	}
	return s.total, avg, top
}
