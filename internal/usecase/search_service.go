package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/pricelens/backend/internal/domain"
)

const (
	defaultSearchLimit     = 15
	defaultMergeCap        = 120
	defaultMaxTerms        = 3
	defaultTermTTL         = 60 * time.Second
	defaultNegativeTermTTL = 15 * time.Second
	genericWordMinRunes    = 4
)

// Matcher ranks raw candidates against a free-text query
type Matcher interface {
	Match(query string, candidates []domain.Product, limit int) []domain.Product
}

// SearchConfig holds configuration for the search service
type SearchConfig struct {
	DefaultLimit    int
	MergeCap        int
	MaxTerms        int
	TermTTL         time.Duration
	NegativeTermTTL time.Duration
	Logger          zerolog.Logger
}

// SearchService resolves a query against one retailer: it expands the query
// into search terms, gathers candidates through the term cache and ranks them.
type SearchService struct {
	retailers       []domain.RetailerPort
	byID            map[domain.RetailerID]domain.RetailerPort
	matcher         Matcher
	cache           domain.TermCache
	inflight        singleflight.Group
	defaultLimit    int
	mergeCap        int
	maxTerms        int
	termTTL         time.Duration
	negativeTermTTL time.Duration
	logger          zerolog.Logger
}

// NewSearchService creates a new search service over the given retailer ports
func NewSearchService(
	retailers []domain.RetailerPort,
	matcher Matcher,
	cache domain.TermCache,
	config SearchConfig,
) *SearchService {
	s := &SearchService{
		retailers:       retailers,
		byID:            make(map[domain.RetailerID]domain.RetailerPort, len(retailers)),
		matcher:         matcher,
		cache:           cache,
		defaultLimit:    config.DefaultLimit,
		mergeCap:        config.MergeCap,
		maxTerms:        config.MaxTerms,
		termTTL:         config.TermTTL,
		negativeTermTTL: config.NegativeTermTTL,
		logger:          config.Logger.With().Str("component", "search").Logger(),
	}

	if s.defaultLimit <= 0 {
		s.defaultLimit = defaultSearchLimit
	}
	if s.mergeCap <= 0 {
		s.mergeCap = defaultMergeCap
	}
	if s.maxTerms <= 0 {
		s.maxTerms = defaultMaxTerms
	}
	if s.termTTL <= 0 {
		s.termTTL = defaultTermTTL
	}
	if s.negativeTermTTL <= 0 {
		s.negativeTermTTL = defaultNegativeTermTTL
	}

	for _, r := range retailers {
		s.byID[r.Retailer()] = r
	}

	return s
}

// SupportedRetailers returns the configured retailer IDs in registration order
func (s *SearchService) SupportedRetailers() []domain.RetailerID {
	ids := make([]domain.RetailerID, 0, len(s.retailers))
	for _, r := range s.retailers {
		ids = append(ids, r.Retailer())
	}
	return ids
}

// SearchByRetailer returns the products of one retailer that best match query
func (s *SearchService) SearchByRetailer(
	ctx context.Context,
	retailer domain.RetailerID,
	query string,
	limit int,
) (*domain.SearchResult, error) {
	original := strings.TrimSpace(query)
	if original == "" {
		return &domain.SearchResult{Retailer: retailer, Products: []domain.Product{}}, nil
	}

	port, ok := s.byID[retailer]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownRetailer, retailer)
	}

	if limit <= 0 {
		limit = s.defaultLimit
	}

	normalized := NormalizeQuery(original)
	generic := isGenericSingleWord(normalized)

	candidates, err := s.fetchCandidatesWithFallback(ctx, port, original, normalized, generic)
	if err != nil {
		return nil, err
	}

	var products []domain.Product
	if generic {
		products = candidates
		if len(products) > limit {
			products = products[:limit]
		}
	} else {
		products = s.matcher.Match(original, candidates, limit)
	}

	s.logger.Debug().
		Str("retailer", string(retailer)).
		Str("query", original).
		Bool("generic", generic).
		Int("candidates", len(candidates)).
		Int("count", len(products)).
		Msg("search completed")

	return &domain.SearchResult{
		Query:    original,
		Retailer: retailer,
		Count:    len(products),
		Products: products,
	}, nil
}

func isGenericSingleWord(normalized string) bool {
	words := strings.Fields(normalized)
	return len(words) == 1 && utf8.RuneCountInString(words[0]) >= genericWordMinRunes
}

// candidatePool merges candidate lists, dropping duplicates by id (or name) and price
type candidatePool struct {
	items    []domain.Product
	seen     map[string]struct{}
	maxItems int
}

func newCandidatePool(capacity int) *candidatePool {
	return &candidatePool{
		items:    make([]domain.Product, 0, capacity),
		seen:     make(map[string]struct{}),
		maxItems: capacity,
	}
}

func (p *candidatePool) add(products []domain.Product) {
	for _, product := range products {
		if p.full() {
			return
		}

		key := dedupKey(product)
		if _, dup := p.seen[key]; dup {
			continue
		}
		p.seen[key] = struct{}{}
		p.items = append(p.items, product)
	}
}

func (p *candidatePool) full() bool {
	return len(p.items) >= p.maxItems
}

func dedupKey(p domain.Product) string {
	if p.ID != "" {
		return "id:" + p.ID + "|price:" + p.Price.String()
	}
	return "name:" + strings.ToLower(strings.TrimSpace(p.Name)) + "|price:" + p.Price.String()
}

func (s *SearchService) fetchCandidatesWithFallback(
	ctx context.Context,
	port domain.RetailerPort,
	original, normalized string,
	generic bool,
) ([]domain.Product, error) {
	pool := newCandidatePool(s.mergeCap)

	if generic {
		pool.add(s.fetchCached(ctx, port, normalized))
		return pool.items, ctx.Err()
	}

	used := 0
	for _, term := range ExpandTerms(original) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res := s.fetchCached(ctx, port, term)
		pool.add(res)

		if len(res) > 0 {
			used++
		}
		if used >= s.maxTerms || pool.full() {
			break
		}
	}

	return pool.items, ctx.Err()
}

// fetchCached never fails: upstream errors are logged and treated as an empty result.
// Concurrent lookups of the same (retailer, term) share one upstream call.
func (s *SearchService) fetchCached(ctx context.Context, port domain.RetailerPort, term string) []domain.Product {
	key := string(port.Retailer()) + "::" + term

	if products, found := s.cache.Get(key); found {
		return products
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(key, func() (any, error) {
		products, err := port.Search(fetchCtx, term)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("retailer", string(port.Retailer())).
				Str("term", term).
				Msg("retailer search failed, treating as empty")
			products = nil
		}

		ttl := s.termTTL
		if len(products) == 0 {
			products = []domain.Product{}
			ttl = s.negativeTermTTL
		}
		s.cache.Set(key, products, ttl)

		return products, nil
	})

	select {
	case <-ctx.Done():
		return []domain.Product{}
	case res := <-ch:
		return res.Val.([]domain.Product)
	}
}
