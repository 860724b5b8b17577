package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var termCacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pricelens_term_cache_lookups_total",
	Help: "Term cache lookups by result (hit, miss, expired).",
}, []string{"result"})
