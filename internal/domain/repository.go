package domain

import (
	"context"
	"time"
)

// RetailerPort is the capability every retailer adapter exposes.
// Decorators (concurrency limiting, caching) implement it too, wrapping an inner port.
type RetailerPort interface {
	Retailer() RetailerID
	Search(ctx context.Context, term string) ([]Product, error)
}

// TermCache stores candidate lists per (retailer, term) key.
// Get reports found=false for a missing or expired key; a cached empty list is found=true.
type TermCache interface {
	Get(key string) (products []Product, found bool)
	Set(key string, products []Product, ttl time.Duration)
}
