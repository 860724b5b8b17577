package retailer

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/pricelens/backend/internal/domain"
)

// Limited caps the number of concurrent upstream searches against one retailer.
// Callers over the cap wait for a slot or for their context to end.
type Limited struct {
	inner domain.RetailerPort
	sem   *semaphore.Weighted
}

// NewLimited wraps inner with a concurrency cap. Non-positive caps become 1.
func NewLimited(inner domain.RetailerPort, maxConcurrent int) *Limited {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Limited{
		inner: inner,
		sem:   semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

func (l *Limited) Retailer() domain.RetailerID {
	return l.inner.Retailer()
}

func (l *Limited) Search(ctx context.Context, term string) ([]domain.Product, error) {
	retailer := string(l.inner.Retailer())

	if err := l.sem.Acquire(ctx, 1); err != nil {
		upstreamRequestsTotal.WithLabelValues(retailer, "canceled").Inc()
		return nil, fmt.Errorf("%s: waiting for upstream slot: %w", retailer, err)
	}
	defer l.sem.Release(1)

	upstreamInFlight.WithLabelValues(retailer).Inc()
	defer upstreamInFlight.WithLabelValues(retailer).Dec()

	products, err := l.inner.Search(ctx, term)
	upstreamRequestsTotal.WithLabelValues(retailer, outcome(err)).Inc()
	return products, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, domain.ErrPersistedQueryNotFound), errors.Is(err, domain.ErrMissingQueryHash):
		return "misconfigured"
	default:
		return "error"
	}
}
