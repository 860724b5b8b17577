package retailer

import (
	"context"
	"fmt"

	"github.com/pricelens/backend/internal/domain"
)

// Carrefour queries the productSuggestions persisted GraphQL query.
type Carrefour struct {
	client  *Client
	baseURL string
	hash    string
}

func NewCarrefour(client *Client, cfg AdapterConfig) *Carrefour {
	return &Carrefour{
		client:  client,
		baseURL: baseURLOr(cfg.BaseURL, DefaultCarrefourBaseURL),
		hash:    cfg.SHA256Hash,
	}
}

func (a *Carrefour) Retailer() domain.RetailerID { return domain.RetailerCarrefour }

func (a *Carrefour) Search(ctx context.Context, term string) ([]domain.Product, error) {
	if a.hash == "" {
		return nil, fmt.Errorf("carrefour: %w", domain.ErrMissingQueryHash)
	}

	opts := mapOptions{
		requireStock:       true,
		priceRangeFallback: true,
		link:               linkFromSlug(a.baseURL),
	}

	for _, t := range adapterSearchTerms(term) {
		reqURL, err := suggestionsURL(a.baseURL, a.hash, t, carrefourSuggestMax)
		if err != nil {
			return nil, fmt.Errorf("carrefour: build url: %w", err)
		}

		var resp vtexGraphQLResponse
		if err := a.client.GetJSON(ctx, reqURL, &resp); err != nil {
			return nil, fmt.Errorf("carrefour search %q: %w", t, err)
		}
		if resp.persistedQueryNotFound() {
			return nil, fmt.Errorf("carrefour: %w", domain.ErrPersistedQueryNotFound)
		}

		var raw []vtexProduct
		if resp.Data != nil && resp.Data.ProductSuggestions != nil {
			raw = resp.Data.ProductSuggestions.Products
		}
		if mapped := mapVtexProducts(raw, domain.RetailerCarrefour, opts); len(mapped) > 0 {
			return mapped, nil
		}
	}

	return []domain.Product{}, nil
}
