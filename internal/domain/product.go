package domain

import "github.com/shopspring/decimal"

func init() {
	// Prices go over the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// RetailerID identifies a supported supermarket chain
type RetailerID string

const (
	RetailerCarrefour RetailerID = "carrefour"
	RetailerDia       RetailerID = "dia"
	RetailerJumbo     RetailerID = "jumbo"
	RetailerVea       RetailerID = "vea"
)

// SupportedRetailers lists every retailer the backend knows how to query, in display order
var SupportedRetailers = []RetailerID{RetailerCarrefour, RetailerDia, RetailerJumbo, RetailerVea}

// IsSupportedRetailer reports whether id names a known retailer
func IsSupportedRetailer(id RetailerID) bool {
	for _, r := range SupportedRetailers {
		if r == id {
			return true
		}
	}
	return false
}

// Product is a single in-stock offer returned by a retailer adapter
type Product struct {
	ID        string           `json:"id,omitempty"`
	Name      string           `json:"name"`
	Price     decimal.Decimal  `json:"price"`
	ListPrice *decimal.Decimal `json:"listPrice,omitempty"`
	Link      string           `json:"link,omitempty"`
	Image     string           `json:"image,omitempty"`
	Retailer  RetailerID       `json:"retailer"`
}
