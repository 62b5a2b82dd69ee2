package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OutcomesPublished counts outbound outcome events by topic.
	OutcomesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_outcomes_published_total",
		Help: "Outcome events handed to the transport, by topic.",
	}, []string{"topic"})

	// DuplicatesDropped counts order-cancelled redeliveries skipped by
	// the dedup store.
	DuplicatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_duplicate_cancellations_total",
		Help: "Cancellation messages dropped as already processed.",
	})

	// DeadLettered counts messages routed to a dead-letter topic after
	// retries were exhausted.
	DeadLettered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_dead_lettered_total",
		Help: "Messages routed to a dead-letter topic, by source topic.",
	}, []string{"topic"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
