package retailer

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pricelens/backend/internal/domain"
)

// Dia searches the Día catalog REST endpoint.
type Dia struct {
	client  *Client
	baseURL string
}

func NewDia(client *Client, cfg AdapterConfig) *Dia {
	return &Dia{client: client, baseURL: baseURLOr(cfg.BaseURL, DefaultDiaBaseURL)}
}

func (a *Dia) Retailer() domain.RetailerID { return domain.RetailerDia }

func (a *Dia) Search(ctx context.Context, term string) ([]domain.Product, error) {
	reqURL := fmt.Sprintf("%s/api/catalog_system/pub/products/search?ft=%s&_from=0&_to=%d",
		a.baseURL, url.QueryEscape(term), diaPageSize)

	var raw []vtexProduct
	if err := a.client.GetJSON(ctx, reqURL, &raw); err != nil {
		return nil, fmt.Errorf("dia search %q: %w", term, err)
	}

	return mapVtexProducts(raw, domain.RetailerDia, mapOptions{
		link: func(p vtexProduct) string { return p.Link },
	}), nil
}
