package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pricelens/backend/internal/domain"
)

// MockSearcher answers SearchByRetailer from a (retailer, query) table
type MockSearcher struct {
	supported []domain.RetailerID
	products  map[domain.RetailerID]map[string][]domain.Product
	errs      map[domain.RetailerID]error
	delay     time.Duration
	calls     atomic.Int32
	inFlight  atomic.Int32
	maxSeen   atomic.Int32
}

func NewMockSearcher(supported ...domain.RetailerID) *MockSearcher {
	return &MockSearcher{
		supported: supported,
		products:  make(map[domain.RetailerID]map[string][]domain.Product),
		errs:      make(map[domain.RetailerID]error),
	}
}

func (m *MockSearcher) set(retailer domain.RetailerID, query string, products ...domain.Product) {
	if m.products[retailer] == nil {
		m.products[retailer] = make(map[string][]domain.Product)
	}
	m.products[retailer][query] = products
}

func (m *MockSearcher) SupportedRetailers() []domain.RetailerID {
	return append([]domain.RetailerID(nil), m.supported...)
}

func (m *MockSearcher) SearchByRetailer(ctx context.Context, retailer domain.RetailerID, query string, limit int) (*domain.SearchResult, error) {
	m.calls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		seen := m.maxSeen.Load()
		if n <= seen || m.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	if err := m.errs[retailer]; err != nil {
		return nil, err
	}
	products := m.products[retailer][query]
	if products == nil {
		products = []domain.Product{}
	}
	return &domain.SearchResult{Query: query, Retailer: retailer, Count: len(products), Products: products}, nil
}

func newTestCompareService(search RetailerSearcher) *CompareService {
	return NewCompareService(search, CompareConfig{Logger: zerolog.Nop()})
}

func TestCompareItem(t *testing.T) {
	ctx := context.Background()

	t.Run("collects every retailer and keeps failures local", func(t *testing.T) {
		search := NewMockSearcher(domain.RetailerCarrefour, domain.RetailerDia, domain.RetailerJumbo)
		search.set(domain.RetailerDia, "leche", product("Leche Sancor 1L", 1000))
		search.errs[domain.RetailerCarrefour] = errors.New("PersistedQueryNotFound (hash expired)")

		resp, err := newTestCompareService(search).CompareItem(ctx, " leche ", nil, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Query != "leche" || resp.Limit != defaultSearchLimit {
			t.Errorf("header = %q/%d", resp.Query, resp.Limit)
		}
		if len(resp.Results) != 3 {
			t.Fatalf("len(Results) = %d, want 3", len(resp.Results))
		}

		carrefour := resp.Results[0]
		if carrefour.Retailer != domain.RetailerCarrefour || carrefour.Error == "" || len(carrefour.Products) != 0 {
			t.Errorf("carrefour result = %+v, want error and no products", carrefour)
		}
		if dia := resp.Results[1]; len(dia.Products) != 1 || dia.Error != "" {
			t.Errorf("dia result = %+v", dia)
		}
		if jumbo := resp.Results[2]; jumbo.Products == nil || len(jumbo.Products) != 0 {
			t.Errorf("jumbo result = %+v, want empty products", jumbo)
		}
	})

	t.Run("blank query makes no searches", func(t *testing.T) {
		search := NewMockSearcher(domain.RetailerDia, domain.RetailerVea)

		resp, err := newTestCompareService(search).CompareItem(ctx, "  ", nil, 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(resp.Results) != 2 || search.calls.Load() != 0 {
			t.Errorf("results = %d, calls = %d", len(resp.Results), search.calls.Load())
		}
	})

	t.Run("requested retailers are intersected with supported", func(t *testing.T) {
		search := NewMockSearcher(domain.RetailerCarrefour, domain.RetailerDia, domain.RetailerJumbo)

		resp, _ := newTestCompareService(search).CompareItem(ctx, "pan", []domain.RetailerID{domain.RetailerJumbo, "coto", domain.RetailerCarrefour}, 5)
		if len(resp.Retailers) != 2 || resp.Retailers[0] != domain.RetailerCarrefour || resp.Retailers[1] != domain.RetailerJumbo {
			t.Errorf("Retailers = %v, want [carrefour jumbo]", resp.Retailers)
		}
	})

	t.Run("disjoint request falls back to all supported", func(t *testing.T) {
		search := NewMockSearcher(domain.RetailerDia, domain.RetailerJumbo)

		resp, _ := newTestCompareService(search).CompareItem(ctx, "pan", []domain.RetailerID{domain.RetailerVea}, 5)
		if len(resp.Retailers) != 2 {
			t.Errorf("Retailers = %v, want all supported", resp.Retailers)
		}
	})

	t.Run("bounds concurrent retailer searches", func(t *testing.T) {
		search := NewMockSearcher(domain.RetailerCarrefour, domain.RetailerDia, domain.RetailerJumbo, domain.RetailerVea)
		search.delay = 30 * time.Millisecond

		if _, err := newTestCompareService(search).CompareItem(ctx, "arroz", nil, 5); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := search.maxSeen.Load(); got > defaultItemConcurrency {
			t.Errorf("max concurrent searches = %d, want <= %d", got, defaultItemConcurrency)
		}
		if got := search.calls.Load(); got != 4 {
			t.Errorf("calls = %d, want 4", got)
		}
	})
}

func TestCompareList(t *testing.T) {
	ctx := context.Background()

	t.Run("ranks retailers by basket total", func(t *testing.T) {
		search := NewMockSearcher(domain.RetailerDia, domain.RetailerJumbo)
		search.set(domain.RetailerDia, "leche", product("Leche", 1000))
		search.set(domain.RetailerDia, "pan", product("Pan", 300))
		search.set(domain.RetailerJumbo, "leche", product("Leche", 900))

		resp, err := newTestCompareService(search).CompareList(ctx, []string{"leche", " pan ", ""}, nil, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(resp.Items) != 2 || resp.Items[1] != "pan" {
			t.Errorf("Items = %v, want [leche pan]", resp.Items)
		}
		if resp.Best == nil || resp.Best.Retailer != domain.RetailerJumbo {
			t.Fatalf("Best = %+v, want jumbo", resp.Best)
		}
		if !resp.Best.Total.Equal(decimal.NewFromInt(900)) || resp.Best.MissingCount != 1 || resp.Best.MissingItems[0] != "pan" {
			t.Errorf("jumbo row = %+v", resp.Best)
		}

		dia := resp.Ranking[1]
		if dia.Retailer != domain.RetailerDia || !dia.Total.Equal(decimal.NewFromInt(1300)) || dia.MissingCount != 0 {
			t.Errorf("dia row = %+v", dia)
		}
		if dia.MissingItems == nil {
			t.Errorf("MissingItems should be an empty list, not nil")
		}
		if len(resp.Detail) != 2 || resp.Detail[0].Query != "leche" {
			t.Errorf("Detail out of item order: %+v", resp.Detail)
		}
	})

	t.Run("equal totals keep retailer order", func(t *testing.T) {
		search := NewMockSearcher(domain.RetailerVea, domain.RetailerDia)

		resp, err := newTestCompareService(search).CompareList(ctx, []string{"caviar"}, nil, 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Ranking[0].Retailer != domain.RetailerVea || resp.Ranking[1].Retailer != domain.RetailerDia {
			t.Errorf("Ranking = %+v, want vea then dia", resp.Ranking)
		}
	})

	t.Run("empty list has no best", func(t *testing.T) {
		search := NewMockSearcher(domain.RetailerDia)

		resp, err := newTestCompareService(search).CompareList(ctx, []string{" ", ""}, nil, 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Best != nil || len(resp.Ranking) != 0 || len(resp.Detail) != 0 {
			t.Errorf("resp = %+v, want empty comparison", resp)
		}
		if search.calls.Load() != 0 {
			t.Errorf("calls = %d, want 0", search.calls.Load())
		}
	})

	t.Run("too many items rejected before searching", func(t *testing.T) {
		search := NewMockSearcher(domain.RetailerDia)
		items := make([]string, defaultMaxItems+1)
		for i := range items {
			items[i] = "item"
		}

		_, err := newTestCompareService(search).CompareList(ctx, items, nil, 5)
		if !errors.Is(err, domain.ErrTooManyItems) {
			t.Errorf("error = %v, want ErrTooManyItems", err)
		}
		if search.calls.Load() != 0 {
			t.Errorf("calls = %d, want 0", search.calls.Load())
		}
	})

	t.Run("cost budget rejected before searching", func(t *testing.T) {
		search := NewMockSearcher(domain.RetailerCarrefour, domain.RetailerDia, domain.RetailerJumbo, domain.RetailerVea)
		items := make([]string, 60)
		for i := range items {
			items[i] = "item"
		}

		_, err := newTestCompareService(search).CompareList(ctx, items, nil, 5)
		if !errors.Is(err, domain.ErrCostExceeded) {
			t.Errorf("error = %v, want ErrCostExceeded", err)
		}
		if search.calls.Load() != 0 {
			t.Errorf("calls = %d, want 0", search.calls.Load())
		}
	})

	t.Run("canceled context aborts the comparison", func(t *testing.T) {
		search := NewMockSearcher(domain.RetailerDia)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := newTestCompareService(search).CompareList(cctx, []string{"leche"}, nil, 5)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

func TestCleanItems(t *testing.T) {
	got := cleanItems([]string{" leche ", "", "   ", "pan"})
	if len(got) != 2 || got[0] != "leche" || got[1] != "pan" {
		t.Errorf("cleanItems() = %v", got)
	}
}
