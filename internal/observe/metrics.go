// Package observe holds the process-wide prometheus collectors. Counters
// live here so the packages that increment them stay free of registry
// wiring.
package observe

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletd",
		Subsystem: "signing",
		Name:      "requests_total",
		Help:      "Transaction signing requests by provider kind and outcome.",
	}, []string{"provider", "outcome"})

	DeriveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "walletd",
		Subsystem: "keyring",
		Name:      "derive_duration_seconds",
		Help:      "Keypair derivation latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	LedgerRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletd",
		Subsystem: "ledger",
		Name:      "requests_total",
		Help:      "Ledger node requests by rpc method and outcome.",
	}, []string{"method", "outcome"})

	RPCRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletd",
		Subsystem: "rpc",
		Name:      "requests_total",
		Help:      "Daemon rpc requests by method and outcome.",
	}, []string{"method", "outcome"})
)

func init() {
	prometheus.DefaultRegisterer.MustRegister(SignRequests, DeriveDuration, LedgerRequests, RPCRequests)
}

// Handler serves the default registry, including the Go runtime collectors.
func Handler() http.Handler {
	return promhttp.Handler()
}
