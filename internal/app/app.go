// Package app assembles the retailer ports and services from configuration.
// The HTTP server and the command line client share it.
package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/cache"
	"github.com/pricelens/backend/internal/infrastructure/retailer"
	"github.com/pricelens/backend/internal/usecase"
)

type adapterFactory func(client *retailer.Client, cfg retailer.AdapterConfig) domain.RetailerPort

var adapters = map[domain.RetailerID]adapterFactory{
	domain.RetailerCarrefour: func(c *retailer.Client, cfg retailer.AdapterConfig) domain.RetailerPort {
		return retailer.NewCarrefour(c, cfg)
	},
	domain.RetailerDia: func(c *retailer.Client, cfg retailer.AdapterConfig) domain.RetailerPort {
		return retailer.NewDia(c, cfg)
	},
	domain.RetailerJumbo: func(c *retailer.Client, cfg retailer.AdapterConfig) domain.RetailerPort {
		return retailer.NewJumbo(c, cfg)
	},
	domain.RetailerVea: func(c *retailer.Client, cfg retailer.AdapterConfig) domain.RetailerPort {
		return retailer.NewVea(c, cfg)
	},
}

// Services is the wired application core
type Services struct {
	Search    *usecase.SearchService
	Compare   *usecase.CompareService
	Retailers []domain.RetailerPort

	termCache *cache.MemoryCache
}

// New builds the retailer decorator chains and the search and compare services
func New(cfg *config.Config, logger zerolog.Logger) (*Services, error) {
	client := retailer.NewClient(retailer.ClientConfig{
		RequestsPerSecond: cfg.RateLimit.UpstreamRPS,
		Burst:             cfg.RateLimit.UpstreamBurst,
		Logger:            logger,
	})

	ports, err := buildRetailers(cfg, client, logger)
	if err != nil {
		return nil, err
	}

	termCache := cache.NewMemoryCache(cfg.Search.TermCacheSize)

	matcher := usecase.NewMatchingService(usecase.MatchConfig{Logger: logger})
	search := usecase.NewSearchService(ports, matcher, termCache, usecase.SearchConfig{
		DefaultLimit:    cfg.Search.DefaultLimit,
		MergeCap:        cfg.Search.MergeCap,
		MaxTerms:        cfg.Search.MaxTerms,
		TermTTL:         cfg.Search.TermCacheTTL,
		NegativeTermTTL: cfg.Search.TermCacheNegativeTTL,
		Logger:          logger,
	})
	compare := usecase.NewCompareService(search, usecase.CompareConfig{
		DefaultLimit:    cfg.Search.DefaultLimit,
		ItemConcurrency: cfg.Compare.ItemConcurrency,
		MaxItems:        cfg.Compare.MaxItems,
		MaxCost:         cfg.Compare.MaxCost,
		Logger:          logger,
	})

	return &Services{
		Search:    search,
		Compare:   compare,
		Retailers: ports,
		termCache: termCache,
	}, nil
}

// Close stops background cache maintenance
func (s *Services) Close() {
	s.termCache.Close()
}

// buildRetailers wraps each enabled adapter as adapter -> concurrency limit -> candidate cache
func buildRetailers(cfg *config.Config, client *retailer.Client, logger zerolog.Logger) ([]domain.RetailerPort, error) {
	enabled := cfg.EnabledRetailers()
	ports := make([]domain.RetailerPort, 0, len(enabled))

	for _, id := range enabled {
		factory, ok := adapters[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownRetailer, id)
		}

		rc := cfg.Retailers[string(id)]
		adapter := factory(client, retailer.AdapterConfig{
			BaseURL:    rc.BaseURL,
			SHA256Hash: rc.SHA256Hash,
			BindingID:  rc.BindingID,
		})

		if (id == domain.RetailerCarrefour || id == domain.RetailerVea) && rc.SHA256Hash == "" {
			logger.Warn().
				Str("retailer", string(id)).
				Msg("no persisted query hash configured, searches will fail")
		}

		ports = append(ports, retailer.NewCached(
			retailer.NewLimited(adapter, rc.Concurrency),
			retailer.CachedConfig{
				MaxEntries:  cfg.CandidateCache.MaxEntries,
				TTL:         cfg.CandidateCache.TTL,
				NegativeTTL: cfg.CandidateCache.NegativeTTL,
				Logger:      logger,
			},
		))
	}

	return ports, nil
}
