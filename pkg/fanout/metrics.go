package fanout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_fanout_published_total",
		Help: "Fan-out events delivered to the gateway.",
	}, []string{"event"})

	droppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_fanout_dropped_total",
		Help: "Fan-out events dropped because the queue was full.",
	}, []string{"event"})

	failedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_fanout_failed_total",
		Help: "Fan-out events the gateway rejected or timed out on.",
	}, []string{"event"})
)

func obsPublished(event string) { publishedTotal.WithLabelValues(event).Inc() }
func obsDropped(event string)   { droppedTotal.WithLabelValues(event).Inc() }
func obsFailed(event string)    { failedTotal.WithLabelValues(event).Inc() }
