package domain

import "errors"

var (
	// ErrUnknownRetailer is returned when a lookup names a retailer outside the supported set
	ErrUnknownRetailer = errors.New("unknown retailer")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrTooManyItems is returned when a shopping list exceeds the item cap
	ErrTooManyItems = errors.New("too many items")

	// ErrCostExceeded is returned when items x retailers exceeds the request budget
	ErrCostExceeded = errors.New("request too expensive")

	// ErrUpstreamFailure is returned when a retailer API request fails
	ErrUpstreamFailure = errors.New("retailer API request failed")

	// ErrPersistedQueryNotFound is returned when a VTEX persisted query hash has expired
	ErrPersistedQueryNotFound = errors.New("PersistedQueryNotFound (hash expired)")

	// ErrMissingQueryHash is returned when a GraphQL adapter has no persisted query hash configured
	ErrMissingQueryHash = errors.New("missing VTEX sha256 hash")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)
