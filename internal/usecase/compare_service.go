package usecase

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/pricelens/backend/internal/domain"
)

const (
	defaultItemConcurrency = 3
	defaultMaxItems        = 60
	defaultMaxCost         = 340
)

// RetailerSearcher is the part of the search service the comparison needs
type RetailerSearcher interface {
	SupportedRetailers() []domain.RetailerID
	SearchByRetailer(ctx context.Context, retailer domain.RetailerID, query string, limit int) (*domain.SearchResult, error)
}

// CompareConfig holds configuration for the compare service
type CompareConfig struct {
	DefaultLimit    int
	ItemConcurrency int
	MaxItems        int
	MaxCost         int
	Logger          zerolog.Logger
}

// CompareService fans queries out across retailers and ranks shopping list totals
type CompareService struct {
	search          RetailerSearcher
	defaultLimit    int
	itemConcurrency int
	maxItems        int
	maxCost         int
	logger          zerolog.Logger
}

func NewCompareService(search RetailerSearcher, config CompareConfig) *CompareService {
	s := &CompareService{
		search:          search,
		defaultLimit:    config.DefaultLimit,
		itemConcurrency: config.ItemConcurrency,
		maxItems:        config.MaxItems,
		maxCost:         config.MaxCost,
		logger:          config.Logger.With().Str("component", "compare").Logger(),
	}

	if s.defaultLimit <= 0 {
		s.defaultLimit = defaultSearchLimit
	}
	if s.itemConcurrency <= 0 {
		s.itemConcurrency = defaultItemConcurrency
	}
	if s.maxItems <= 0 {
		s.maxItems = defaultMaxItems
	}
	if s.maxCost <= 0 {
		s.maxCost = defaultMaxCost
	}

	return s
}

// CompareItem searches query on every selected retailer. A failing retailer
// yields an empty product list with its error message instead of failing the call.
func (s *CompareService) CompareItem(
	ctx context.Context,
	query string,
	retailers []domain.RetailerID,
	limit int,
) (*domain.CompareItemResponse, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	selected := s.pickRetailers(retailers)

	return s.compareItem(ctx, strings.TrimSpace(query), selected, limit)
}

func (s *CompareService) compareItem(
	ctx context.Context,
	query string,
	selected []domain.RetailerID,
	limit int,
) (*domain.CompareItemResponse, error) {
	results := make([]domain.RetailerResult, len(selected))

	if query == "" {
		for i, r := range selected {
			results[i] = domain.RetailerResult{Retailer: r, Products: []domain.Product{}}
		}
		return &domain.CompareItemResponse{Query: query, Limit: limit, Retailers: selected, Results: results}, nil
	}

	var g errgroup.Group
	g.SetLimit(s.itemConcurrency)

	for i, retailer := range selected {
		g.Go(func() error {
			res, err := s.search.SearchByRetailer(ctx, retailer, query, limit)
			if err != nil {
				s.logger.Warn().
					Err(err).
					Str("retailer", string(retailer)).
					Str("query", query).
					Msg("retailer comparison failed")
				results[i] = domain.RetailerResult{Retailer: retailer, Products: []domain.Product{}, Error: err.Error()}
				return nil
			}
			results[i] = domain.RetailerResult{Retailer: retailer, Products: res.Products}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &domain.CompareItemResponse{Query: query, Limit: limit, Retailers: selected, Results: results}, nil
}

// CompareList prices a shopping list on each selected retailer and ranks
// retailers by basket total, cheapest first. Each item contributes the price
// of its best ranked product; items a retailer lacks are listed as missing.
func (s *CompareService) CompareList(
	ctx context.Context,
	items []string,
	retailers []domain.RetailerID,
	limit int,
) (*domain.CompareListResponse, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}

	clean := cleanItems(items)
	if len(clean) > s.maxItems {
		return nil, fmt.Errorf("%w: %d items, maximum is %d", domain.ErrTooManyItems, len(clean), s.maxItems)
	}

	selected := s.pickRetailers(retailers)
	if cost := len(clean) * len(selected); cost > s.maxCost {
		return nil, fmt.Errorf("%w: %d item searches, maximum is %d", domain.ErrCostExceeded, cost, s.maxCost)
	}

	if len(clean) == 0 {
		return &domain.CompareListResponse{
			Items:     []string{},
			Limit:     limit,
			Retailers: selected,
			Ranking:   []domain.RankingRow{},
			Detail:    []domain.CompareItemResponse{},
		}, nil
	}

	detail := make([]domain.CompareItemResponse, len(clean))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.itemConcurrency)

	for i, item := range clean {
		g.Go(func() error {
			resp, err := s.compareItem(gctx, item, selected, limit)
			if err != nil {
				return err
			}
			detail[i] = *resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ranking := rankTotals(selected, detail)

	s.logger.Info().
		Int("items", len(clean)).
		Int("retailers", len(selected)).
		Str("best", string(ranking[0].Retailer)).
		Str("total", ranking[0].Total.String()).
		Msg("list comparison completed")

	return &domain.CompareListResponse{
		Items:     clean,
		Limit:     limit,
		Retailers: selected,
		Best:      &ranking[0],
		Ranking:   ranking,
		Detail:    detail,
	}, nil
}

func rankTotals(selected []domain.RetailerID, detail []domain.CompareItemResponse) []domain.RankingRow {
	rows := make([]domain.RankingRow, len(selected))
	index := make(map[domain.RetailerID]int, len(selected))
	for i, r := range selected {
		rows[i] = domain.RankingRow{Retailer: r, Total: decimal.Zero, MissingItems: []string{}}
		index[r] = i
	}

	for _, item := range detail {
		for _, res := range item.Results {
			i, ok := index[res.Retailer]
			if !ok {
				continue
			}
			if len(res.Products) == 0 {
				rows[i].MissingItems = append(rows[i].MissingItems, item.Query)
				continue
			}
			rows[i].Total = rows[i].Total.Add(res.Products[0].Price)
		}
	}

	for i := range rows {
		rows[i].MissingCount = len(rows[i].MissingItems)
	}

	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].Total.LessThan(rows[b].Total)
	})

	return rows
}

// pickRetailers keeps the requested retailers that are supported, in supported
// order. An empty or fully unsupported request selects every supported retailer.
func (s *CompareService) pickRetailers(requested []domain.RetailerID) []domain.RetailerID {
	supported := s.search.SupportedRetailers()
	if len(requested) == 0 {
		return supported
	}

	filtered := make([]domain.RetailerID, 0, len(supported))
	for _, r := range supported {
		if slices.Contains(requested, r) {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) == 0 {
		return supported
	}
	return filtered
}

func cleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
