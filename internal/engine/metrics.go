package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_mutations_total",
		Help: "Cart transitions applied, by action.",
	}, []string{"action"})

	persistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_persist_failures_total",
		Help: "Failed writes of cart or wishlist state to the store.",
	}, []string{"kind"})

	corruptStates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_corrupt_state_total",
		Help: "Persisted states discarded because they could not be decoded.",
	}, []string{"kind"})

	discountFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_discount_fetch_failures_total",
		Help: "Failed shipping discount fetches. The discount set degrades to empty.",
	})

	checkoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkouts_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})

	checkoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_checkout_duration_seconds",
		Help:    "Duration of order creation calls.",
		Buckets: prometheus.DefBuckets,
	})

	activeOwners = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "storefront_active_owners",
		Help: "Carts and wishlists held in memory.",
	}, []string{"kind"})

	evictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_idle_evictions_total",
		Help: "Carts and wishlists flushed and dropped after going idle.",
	}, []string{"kind"})
)
