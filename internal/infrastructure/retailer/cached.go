package retailer

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/pricelens/backend/internal/domain"
)

const (
	DefaultCandidateCacheSize   = 2000
	DefaultCandidateTTL         = 10 * time.Minute
	DefaultCandidateNegativeTTL = 90 * time.Second
)

// CachedConfig sizes the per-retailer candidate cache
type CachedConfig struct {
	MaxEntries  int
	TTL         time.Duration
	NegativeTTL time.Duration
	Logger      zerolog.Logger
}

// Cached memoizes a retailer's search results. Non-empty results live for TTL,
// empty results for NegativeTTL. Concurrent misses for the same key share one
// upstream call. Failed searches are returned to every waiter and never stored.
type Cached struct {
	inner    domain.RetailerPort
	positive *expirable.LRU[string, []domain.Product]
	negative *expirable.LRU[string, struct{}]
	group    singleflight.Group
	logger   zerolog.Logger
}

func NewCached(inner domain.RetailerPort, cfg CachedConfig) *Cached {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultCandidateCacheSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCandidateTTL
	}
	if cfg.NegativeTTL <= 0 {
		cfg.NegativeTTL = DefaultCandidateNegativeTTL
	}

	return &Cached{
		inner:    inner,
		positive: expirable.NewLRU[string, []domain.Product](cfg.MaxEntries, nil, cfg.TTL),
		negative: expirable.NewLRU[string, struct{}](cfg.MaxEntries, nil, cfg.NegativeTTL),
		logger:   cfg.Logger.With().Str("retailer", string(inner.Retailer())).Logger(),
	}
}

func (c *Cached) Retailer() domain.RetailerID {
	return c.inner.Retailer()
}

var cacheKeySpaces = regexp.MustCompile(`\s+`)

func (c *Cached) key(term string) string {
	q := strings.ToLower(strings.TrimSpace(term))
	q = cacheKeySpaces.ReplaceAllString(q, " ")
	return "retailer:" + string(c.inner.Retailer()) + "|q=" + q
}

func (c *Cached) Search(ctx context.Context, term string) ([]domain.Product, error) {
	retailer := string(c.inner.Retailer())
	key := c.key(term)

	if products, ok := c.positive.Get(key); ok {
		candidateCacheTotal.WithLabelValues(retailer, "hit").Inc()
		return slices.Clone(products), nil
	}
	if _, ok := c.negative.Get(key); ok {
		candidateCacheTotal.WithLabelValues(retailer, "negative_hit").Inc()
		return []domain.Product{}, nil
	}

	// The shared fetch outlives any single caller's cancellation so the
	// other waiters still get a result.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		candidateCacheTotal.WithLabelValues(retailer, "miss").Inc()

		products, err := c.inner.Search(fetchCtx, term)
		if err != nil {
			c.logger.Debug().Err(err).Str("key", key).Msg("candidate fetch failed")
			return nil, err
		}

		if len(products) == 0 {
			c.negative.Add(key, struct{}{})
			return []domain.Product{}, nil
		}

		c.positive.Add(key, slices.Clone(products))
		return products, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			candidateCacheTotal.WithLabelValues(retailer, "coalesced").Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]domain.Product)), nil
	}
}

// Len reports the number of live positive and negative entries
func (c *Cached) Len() (positive, negative int) {
	return c.positive.Len(), c.negative.Len()
}
