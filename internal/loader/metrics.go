package loader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "folio",
		Name:      "content_loads_total",
		Help:      "Content loads by result.",
	}, []string{"result"})

	loadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "folio",
		Name:      "content_load_duration_seconds",
		Help:      "Time to fetch and build the content model.",
		Buckets:   prometheus.DefBuckets,
	})
)
