package retailer

import "strings"

const (
	DefaultDiaBaseURL       = "https://diaonline.supermercadosdia.com.ar"
	DefaultJumboBaseURL     = "https://www.jumbo.com.ar"
	DefaultCarrefourBaseURL = "https://www.carrefour.com.ar"
	DefaultVeaBaseURL       = "https://www.vea.com.ar"
	DefaultVeaBindingID     = "6890cd39-87c6-4689-ad4f-3b913f3c0b19"

	diaPageSize         = 30
	carrefourSuggestMax = 30
	veaPageSize         = 20
)

// AdapterConfig holds the per-storefront endpoint settings
type AdapterConfig struct {
	BaseURL    string
	SHA256Hash string
	BindingID  string
}

func baseURLOr(configured, fallback string) string {
	if configured == "" {
		return fallback
	}
	return strings.TrimRight(configured, "/")
}

func linkFromSlug(baseURL string) func(p vtexProduct) string {
	return func(p vtexProduct) string {
		if p.LinkText == "" {
			return ""
		}
		return baseURL + "/" + p.LinkText + "/p"
	}
}
