package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_store_ops_total",
		Help: "Store operations by kind.",
	}, []string{"op"})

	errsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parley_store_errors_total",
		Help: "Failed store operations by kind.",
	}, []string{"op"})
)

func obsOp(op string)  { opsTotal.WithLabelValues(op).Inc() }
func obsErr(op string) { errsTotal.WithLabelValues(op).Inc() }
