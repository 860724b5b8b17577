package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/pricelens/backend/internal/domain"
)

// MockTermCache is an in-memory domain.TermCache that records TTLs
type MockTermCache struct {
	mu   sync.Mutex
	data map[string][]domain.Product
	ttls map[string]time.Duration
}

func NewMockTermCache() *MockTermCache {
	return &MockTermCache{
		data: make(map[string][]domain.Product),
		ttls: make(map[string]time.Duration),
	}
}

func (m *MockTermCache) Get(key string) ([]domain.Product, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *MockTermCache) Set(key string, products []domain.Product, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = products
	m.ttls[key] = ttl
}

// MockRetailer is a domain.RetailerPort answering from a fixed term table
type MockRetailer struct {
	id      domain.RetailerID
	mu      sync.Mutex
	terms   []string
	results map[string][]domain.Product
	err     error
	gate    chan struct{}
}

func NewMockRetailer(id domain.RetailerID) *MockRetailer {
	return &MockRetailer{id: id, results: make(map[string][]domain.Product)}
}

func (m *MockRetailer) Retailer() domain.RetailerID { return m.id }

func (m *MockRetailer) Search(ctx context.Context, term string) ([]domain.Product, error) {
	m.mu.Lock()
	m.terms = append(m.terms, term)
	m.mu.Unlock()

	if m.gate != nil {
		<-m.gate
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.results[term], nil
}

func (m *MockRetailer) searchedTerms() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.terms...)
}

func newTestSearchService(retailers ...domain.RetailerPort) (*SearchService, *MockTermCache) {
	cache := NewMockTermCache()
	svc := NewSearchService(retailers, newTestMatcher(), cache, SearchConfig{Logger: zerolog.Nop()})
	return svc, cache
}

func TestSupportedRetailers(t *testing.T) {
	svc, _ := newTestSearchService(NewMockRetailer(domain.RetailerJumbo), NewMockRetailer(domain.RetailerDia))

	got := svc.SupportedRetailers()
	if len(got) != 2 || got[0] != domain.RetailerJumbo || got[1] != domain.RetailerDia {
		t.Errorf("SupportedRetailers() = %v, want [jumbo dia]", got)
	}
}

func TestSearchByRetailer(t *testing.T) {
	ctx := context.Background()

	t.Run("blank query makes no upstream calls", func(t *testing.T) {
		dia := NewMockRetailer(domain.RetailerDia)
		svc, _ := newTestSearchService(dia)

		res, err := svc.SearchByRetailer(ctx, domain.RetailerDia, "   ", 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Count != 0 || len(res.Products) != 0 {
			t.Errorf("result = %+v, want empty", res)
		}
		if terms := dia.searchedTerms(); len(terms) != 0 {
			t.Errorf("upstream called with %v", terms)
		}
	})

	t.Run("unknown retailer", func(t *testing.T) {
		svc, _ := newTestSearchService(NewMockRetailer(domain.RetailerDia))

		_, err := svc.SearchByRetailer(ctx, domain.RetailerID("coto"), "leche", 10)
		if !errors.Is(err, domain.ErrUnknownRetailer) {
			t.Errorf("error = %v, want ErrUnknownRetailer", err)
		}
	})

	t.Run("generic word keeps upstream order", func(t *testing.T) {
		dia := NewMockRetailer(domain.RetailerDia)
		for i := 0; i < 20; i++ {
			dia.results["leche"] = append(dia.results["leche"], product(fmt.Sprintf("Producto %d", i), int64(100+i)))
		}
		svc, _ := newTestSearchService(dia)

		res, err := svc.SearchByRetailer(ctx, domain.RetailerDia, "Leche", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Count != defaultSearchLimit {
			t.Errorf("Count = %d, want %d", res.Count, defaultSearchLimit)
		}
		if res.Products[0].Name != "Producto 0" || res.Products[14].Name != "Producto 14" {
			t.Errorf("products out of upstream order: %v", names(res.Products))
		}
		if terms := dia.searchedTerms(); len(terms) != 1 || terms[0] != "leche" {
			t.Errorf("searched terms = %v, want [leche]", terms)
		}
	})

	t.Run("falls back to broader terms and ranks", func(t *testing.T) {
		jumbo := NewMockRetailer(domain.RetailerJumbo)
		jumbo.results["coca cola"] = []domain.Product{
			product("Coca-Cola 1.5L", 1800),
			product("Coca-Cola 2.25L", 2500),
			product("Coca-Cola Zero 2.25L", 2400),
		}
		svc, _ := newTestSearchService(jumbo)

		res, err := svc.SearchByRetailer(ctx, domain.RetailerJumbo, "coca cola 2.25l", 15)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Count != 1 || res.Products[0].Name != "Coca-Cola 2.25L" {
			t.Errorf("products = %v, want [Coca-Cola 2.25L]", names(res.Products))
		}
		if res.Query != "coca cola 2.25l" || res.Retailer != domain.RetailerJumbo {
			t.Errorf("result header = %q/%q", res.Query, res.Retailer)
		}
	})

	t.Run("stops after three productive terms", func(t *testing.T) {
		vea := NewMockRetailer(domain.RetailerVea)
		for _, term := range []string{"coca cola 2.25 l", "coca cola 2.25", "coca cola", "coca"} {
			vea.results[term] = []domain.Product{product("Coca-Cola 2.25L", 2500)}
		}
		svc, _ := newTestSearchService(vea)

		if _, err := svc.SearchByRetailer(ctx, domain.RetailerVea, "coca cola 2.25 l", 15); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if terms := vea.searchedTerms(); len(terms) != 3 {
			t.Errorf("searched terms = %v, want 3", terms)
		}
	})

	t.Run("upstream failure becomes an empty cached result", func(t *testing.T) {
		carrefour := NewMockRetailer(domain.RetailerCarrefour)
		carrefour.err = domain.ErrUpstreamFailure
		svc, cache := newTestSearchService(carrefour)

		res, err := svc.SearchByRetailer(ctx, domain.RetailerCarrefour, "yerba", 10)
		if err != nil {
			t.Fatalf("error = %v, want nil", err)
		}
		if res.Count != 0 {
			t.Errorf("Count = %d, want 0", res.Count)
		}
		if ttl := cache.ttls["carrefour::yerba"]; ttl != defaultNegativeTermTTL {
			t.Errorf("negative ttl = %v, want %v", ttl, defaultNegativeTermTTL)
		}

		if _, err := svc.SearchByRetailer(ctx, domain.RetailerCarrefour, "yerba", 10); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if terms := carrefour.searchedTerms(); len(terms) != 1 {
			t.Errorf("upstream calls = %d, want 1", len(terms))
		}
	})

	t.Run("positive results use the term ttl", func(t *testing.T) {
		dia := NewMockRetailer(domain.RetailerDia)
		dia.results["yerba"] = []domain.Product{product("Yerba Mate 1 kg", 4000)}
		svc, cache := newTestSearchService(dia)

		if _, err := svc.SearchByRetailer(ctx, domain.RetailerDia, "yerba", 10); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ttl := cache.ttls["dia::yerba"]; ttl != defaultTermTTL {
			t.Errorf("ttl = %v, want %v", ttl, defaultTermTTL)
		}
	})

	t.Run("concurrent identical searches share one upstream call", func(t *testing.T) {
		dia := NewMockRetailer(domain.RetailerDia)
		dia.gate = make(chan struct{})
		dia.results["galletitas"] = []domain.Product{product("Galletitas Oreo", 900)}
		svc, _ := newTestSearchService(dia)

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := svc.SearchByRetailer(ctx, domain.RetailerDia, "galletitas", 10)
				if err != nil || res.Count != 1 {
					t.Errorf("res = %+v, err = %v", res, err)
				}
			}()
		}

		time.Sleep(50 * time.Millisecond)
		close(dia.gate)
		wg.Wait()

		if terms := dia.searchedTerms(); len(terms) != 1 {
			t.Errorf("upstream calls = %d, want 1", len(terms))
		}
	})
}

func TestCandidatePool(t *testing.T) {
	pool := newCandidatePool(3)

	withID := product("Leche", 1000)
	withID.ID = "42"
	sameIDOtherName := product("Leche Entera", 1000)
	sameIDOtherName.ID = "42"

	pool.add([]domain.Product{withID, sameIDOtherName, product("Pan", 500), product("PAN ", 500)})
	if len(pool.items) != 2 {
		t.Fatalf("len(items) = %d, want 2 after dedup", len(pool.items))
	}

	repriced := product("Pan", 550)
	pool.add([]domain.Product{repriced, product("Queso", 3000)})
	if len(pool.items) != 3 || !pool.full() {
		t.Errorf("items = %v, want 3 and full", names(pool.items))
	}
	if !pool.items[2].Price.Equal(decimal.NewFromInt(550)) {
		t.Errorf("third item price = %s, want 550", pool.items[2].Price)
	}
}
