package retailer

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pricelens/backend/internal/domain"
)

// Jumbo searches the Jumbo catalog REST endpoint. Only products with
// catalog data that are available and in stock are surfaced.
type Jumbo struct {
	client  *Client
	baseURL string
}

func NewJumbo(client *Client, cfg AdapterConfig) *Jumbo {
	return &Jumbo{client: client, baseURL: baseURLOr(cfg.BaseURL, DefaultJumboBaseURL)}
}

func (a *Jumbo) Retailer() domain.RetailerID { return domain.RetailerJumbo }

func (a *Jumbo) Search(ctx context.Context, term string) ([]domain.Product, error) {
	reqURL := fmt.Sprintf("%s/api/catalog_system/pub/products/search/?ft=%s", a.baseURL, url.QueryEscape(term))

	var raw []vtexProduct
	if err := a.client.GetJSON(ctx, reqURL, &raw); err != nil {
		return nil, fmt.Errorf("jumbo search %q: %w", term, err)
	}

	return mapVtexProducts(raw, domain.RetailerJumbo, mapOptions{
		requireProductData: true,
		requireAvailable:   true,
		requireStock:       true,
		link:               func(p vtexProduct) string { return p.Link },
	}), nil
}
