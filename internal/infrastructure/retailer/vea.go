package retailer

import (
	"context"
	"fmt"

	"github.com/pricelens/backend/internal/domain"
)

// Vea queries the productSearchV3 persisted GraphQL query bound to a
// sales channel.
type Vea struct {
	client    *Client
	baseURL   string
	hash      string
	bindingID string
}

func NewVea(client *Client, cfg AdapterConfig) *Vea {
	bindingID := cfg.BindingID
	if bindingID == "" {
		bindingID = DefaultVeaBindingID
	}
	return &Vea{
		client:    client,
		baseURL:   baseURLOr(cfg.BaseURL, DefaultVeaBaseURL),
		hash:      cfg.SHA256Hash,
		bindingID: bindingID,
	}
}

func (a *Vea) Retailer() domain.RetailerID { return domain.RetailerVea }

func (a *Vea) Search(ctx context.Context, term string) ([]domain.Product, error) {
	if a.hash == "" {
		return nil, fmt.Errorf("vea: %w", domain.ErrMissingQueryHash)
	}

	opts := mapOptions{
		requireStock:       true,
		priceRangeFallback: true,
		link:               linkFromSlug(a.baseURL),
	}

	for _, t := range adapterSearchTerms(term) {
		reqURL, err := productSearchURL(a.baseURL, a.hash, a.bindingID, t, 0, veaPageSize)
		if err != nil {
			return nil, fmt.Errorf("vea: build url: %w", err)
		}

		var resp vtexGraphQLResponse
		if err := a.client.GetJSON(ctx, reqURL, &resp); err != nil {
			return nil, fmt.Errorf("vea search %q: %w", t, err)
		}
		if resp.persistedQueryNotFound() {
			return nil, fmt.Errorf("vea: %w", domain.ErrPersistedQueryNotFound)
		}

		var raw []vtexProduct
		if resp.Data != nil {
			switch {
			case resp.Data.ProductSearchV3 != nil:
				raw = resp.Data.ProductSearchV3.Products
			case resp.Data.ProductSearch != nil:
				raw = resp.Data.ProductSearch.Products
			}
		}
		if mapped := mapVtexProducts(raw, domain.RetailerVea, opts); len(mapped) > 0 {
			return mapped, nil
		}
	}

	return []domain.Product{}, nil
}
