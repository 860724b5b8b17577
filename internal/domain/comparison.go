package domain

import "github.com/shopspring/decimal"

// SearchResult is the ranked outcome of one query against one retailer
type SearchResult struct {
	Query    string     `json:"query"`
	Retailer RetailerID `json:"retailer"`
	Count    int        `json:"count"`
	Products []Product  `json:"products"`
}

// RetailerResult holds one retailer's products for an item, or the error that prevented them
type RetailerResult struct {
	Retailer RetailerID `json:"retailer"`
	Products []Product  `json:"products"`
	Error    string     `json:"error,omitempty"`
}

// CompareItemResponse is the per-retailer breakdown for a single query
type CompareItemResponse struct {
	Query     string           `json:"query"`
	Limit     int              `json:"limit"`
	Retailers []RetailerID     `json:"retailers"`
	Results   []RetailerResult `json:"results"`
}

// RankingRow is one retailer's basket total in a list comparison
type RankingRow struct {
	Retailer     RetailerID      `json:"retailer"`
	Total        decimal.Decimal `json:"total"`
	MissingCount int             `json:"missingCount"`
	MissingItems []string        `json:"missingItems"`
}

// CompareListResponse ranks retailers by the cost of a whole shopping list
type CompareListResponse struct {
	Items     []string              `json:"items"`
	Limit     int                   `json:"limit"`
	Retailers []RetailerID          `json:"retailers"`
	Best      *RankingRow           `json:"best"`
	Ranking   []RankingRow          `json:"ranking"`
	Detail    []CompareItemResponse `json:"detail"`
}

// ItemRequest is the body of POST /retailers/item
type ItemRequest struct {
	Query     string       `json:"query" binding:"required"`
	Limit     int          `json:"limit,omitempty" binding:"omitempty,min=1,max=50"`
	Retailers []RetailerID `json:"retailers,omitempty" binding:"omitempty,dive,oneof=carrefour dia jumbo vea"`
}

// ListRequest is the body of POST /retailers/list
type ListRequest struct {
	Items     []string     `json:"items" binding:"required,min=1,max=60,dive,required"`
	Limit     int          `json:"limit,omitempty" binding:"omitempty,min=1,max=50"`
	Retailers []RetailerID `json:"retailers,omitempty" binding:"omitempty,dive,oneof=carrefour dia jumbo vea"`
}
