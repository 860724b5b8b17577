package retailer

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pricelens/backend/internal/domain"
)

// VTEX catalog payloads. Field names follow the storefront API, typos included.
type vtexOffer struct {
	Price             *decimal.Decimal `json:"Price"`
	ListPrice         *decimal.Decimal `json:"ListPrice"`
	AvailableQuantity *float64         `json:"AvailableQuantity"`
	IsAvailable       *bool            `json:"IsAvailable"`
}

type vtexSeller struct {
	CommertialOffer *vtexOffer `json:"commertialOffer"`
}

type vtexImage struct {
	ImageURL string `json:"imageUrl"`
}

type vtexItem struct {
	Images  []vtexImage  `json:"images"`
	Sellers []vtexSeller `json:"sellers"`
}

type vtexPriceRange struct {
	SellingPrice struct {
		LowPrice *decimal.Decimal `json:"lowPrice"`
	} `json:"sellingPrice"`
}

type vtexProduct struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Link        string          `json:"link"`
	LinkText    string          `json:"linkText"`
	ProductData []string        `json:"ProductData"`
	Items       []vtexItem      `json:"items"`
	PriceRange  *vtexPriceRange `json:"priceRange"`
}

type vtexGraphQLError struct {
	Message string `json:"message"`
}

type vtexProductList struct {
	Products []vtexProduct `json:"products"`
}

type vtexGraphQLResponse struct {
	Data *struct {
		ProductSuggestions *vtexProductList   `json:"productSuggestions"`
		ProductSearchV3    *vtexProductList   `json:"productSearchV3"`
		ProductSearch      *vtexProductList   `json:"productSearch"`
		Errors             []vtexGraphQLError `json:"errors"`
	} `json:"data"`
	Errors []vtexGraphQLError `json:"errors"`
}

// persistedQueryNotFound reports an expired persisted query hash
func (r *vtexGraphQLResponse) persistedQueryNotFound() bool {
	msg := ""
	if len(r.Errors) > 0 {
		msg = r.Errors[0].Message
	} else if r.Data != nil && len(r.Data.Errors) > 0 {
		msg = r.Data.Errors[0].Message
	}
	return strings.Contains(msg, "PersistedQueryNotFound")
}

// mapOptions captures how each storefront flags stock and prices
type mapOptions struct {
	requireProductData bool
	requireAvailable   bool
	requireStock       bool
	priceRangeFallback bool
	link               func(p vtexProduct) string
}

// mapVtexProducts keeps named, positively priced, in-stock products
func mapVtexProducts(raw []vtexProduct, retailer domain.RetailerID, opts mapOptions) []domain.Product {
	out := make([]domain.Product, 0, len(raw))

	for _, p := range raw {
		if opts.requireProductData && len(p.ProductData) == 0 {
			continue
		}

		var item0 *vtexItem
		if len(p.Items) > 0 {
			item0 = &p.Items[0]
		}

		var offer *vtexOffer
		if item0 != nil && len(item0.Sellers) > 0 {
			offer = item0.Sellers[0].CommertialOffer
		}

		if opts.requireStock && (offer == nil || offer.AvailableQuantity == nil || *offer.AvailableQuantity <= 0) {
			continue
		}
		if opts.requireAvailable && (offer == nil || offer.IsAvailable == nil || !*offer.IsAvailable) {
			continue
		}

		var price decimal.Decimal
		switch {
		case offer != nil && offer.Price != nil:
			price = *offer.Price
		case opts.priceRangeFallback && p.PriceRange != nil && p.PriceRange.SellingPrice.LowPrice != nil:
			price = *p.PriceRange.SellingPrice.LowPrice
		}

		name := strings.TrimSpace(p.ProductName)
		if name == "" || !price.IsPositive() {
			continue
		}

		product := domain.Product{
			ID:       p.ProductID,
			Name:     name,
			Price:    price,
			Retailer: retailer,
		}
		if offer != nil && offer.ListPrice != nil {
			lp := *offer.ListPrice
			product.ListPrice = &lp
		}
		if opts.link != nil {
			product.Link = opts.link(p)
		}
		if item0 != nil && len(item0.Images) > 0 {
			product.Image = item0.Images[0].ImageURL
		}

		out = append(out, product)
	}

	return out
}

var (
	adapterSizeRegex   = regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*(?:ml|l|lts?|lt|litros?|mls?|mililitros?)\b`)
	adapterSpacesRegex = regexp.MustCompile(`\s+`)
)

// adapterSearchTerms is the storefront-side fallback: full term, size stripped, first word
func adapterSearchTerms(userQuery string) []string {
	q := strings.ToLower(userQuery)
	q = strings.ReplaceAll(q, ",", ".")
	q = strings.TrimSpace(adapterSpacesRegex.ReplaceAllString(q, " "))
	if q == "" {
		return nil
	}

	terms := []string{q}

	if adapterSizeRegex.MatchString(q) {
		withoutSize := strings.TrimSpace(adapterSpacesRegex.ReplaceAllString(adapterSizeRegex.ReplaceAllString(q, ""), " "))
		if withoutSize != "" && withoutSize != q {
			terms = append(terms, withoutSize)
		}
	}

	first := strings.Fields(q)[0]
	for _, t := range terms {
		if t == first {
			return terms
		}
	}
	return append(terms, first)
}

func persistedQueryExtensions(sha256Hash string, variables any) (string, error) {
	vars, err := json.Marshal(variables)
	if err != nil {
		return "", err
	}

	ext := map[string]any{
		"persistedQuery": map[string]any{
			"version":    1,
			"sha256Hash": sha256Hash,
			"sender":     "vtex.store-resources@0.x",
			"provider":   "vtex.search-graphql@0.x",
		},
		"variables": base64.StdEncoding.EncodeToString(vars),
	}

	out, err := json.Marshal(ext)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// suggestionsURL builds the productSuggestions persisted query URL
func suggestionsURL(baseURL, sha256Hash, fullText string, count int) (string, error) {
	ext, err := persistedQueryExtensions(sha256Hash, map[string]any{
		"productOriginVtex":    true,
		"simulationBehavior":   "default",
		"hideUnavailableItems": true,
		"fullText":             fullText,
		"count":                count,
		"shippingOptions":      []string{},
		"variant":              nil,
	})
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("workspace", "master")
	params.Set("maxAge", "medium")
	params.Set("appsEtag", "remove")
	params.Set("domain", "store")
	params.Set("locale", "es-AR")
	params.Set("operationName", "productSuggestions")
	params.Set("variables", "{}")
	params.Set("extensions", ext)

	return strings.TrimRight(baseURL, "/") + "/_v/segment/graphql/v1/?" + params.Encode(), nil
}

// productSearchURL builds the productSearchV3 persisted query URL
func productSearchURL(baseURL, sha256Hash, bindingID, query string, from, to int) (string, error) {
	ext, err := persistedQueryExtensions(sha256Hash, map[string]any{
		"hideUnavailableItems": true,
		"skusFilter":           "ALL",
		"simulationBehavior":   "default",
		"installmentCriteria":  "MAX_WITHOUT_INTEREST",
		"productOriginVtex":    false,
		"map":                  "ft",
		"query":                query,
		"orderBy":              "OrderByScoreDESC",
		"from":                 from,
		"to":                   to,
		"selectedFacets":       []map[string]string{{"key": "ft", "value": query}},
		"fullText":             query,
		"facetsBehavior":       "Static",
		"categoryTreeBehavior": "default",
		"withFacets":           false,
	})
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("workspace", "master")
	params.Set("maxAge", "short")
	params.Set("appsEtag", "remove")
	params.Set("domain", "store")
	params.Set("locale", "es-AR")
	if bindingID != "" {
		params.Set("__bindingId", bindingID)
	}
	params.Set("operationName", "productSearchV3")
	params.Set("variables", "{}")
	params.Set("extensions", ext)

	return strings.TrimRight(baseURL, "/") + "/_v/segment/graphql/v1?" + params.Encode(), nil
}
