package retailer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	candidateCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricelens_candidate_cache_total",
		Help: "Candidate cache lookups by retailer and result (hit, negative_hit, miss, coalesced).",
	}, []string{"retailer", "result"})

	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricelens_upstream_requests_total",
		Help: "Upstream retailer searches by retailer and outcome.",
	}, []string{"retailer", "outcome"})

	upstreamInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pricelens_upstream_in_flight",
		Help: "Upstream retailer searches currently holding a concurrency slot.",
	}, []string{"retailer"})
)
