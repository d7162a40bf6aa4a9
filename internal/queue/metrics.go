package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	joinsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "deploymentbot",
		Name:      "queue_joins",
		Help:      "number of queue joins",
	}, []string{"role"})

	leavesMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "deploymentbot",
		Name:      "queue_leaves",
		Help:      "number of queue leaves",
	})

	hotDropsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "deploymentbot",
		Name:      "hot_drops_started",
		Help:      "number of hot drop groups launched",
	})

	roundsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "deploymentbot",
		Name:      "matchmaking_rounds",
		Help:      "number of matchmaking rounds executed",
	})
)
