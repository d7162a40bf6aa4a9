//nolint:gochecknoglobals
package deployment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	createdMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "deploymentbot",
		Name:      "deployments_created",
		Help:      "The total number of deployments created",
	})

	signupsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "deploymentbot",
		Name:      "deployment_signups",
		Help:      "The total number of roster signups",
	}, []string{"kind"})

	transitionsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "deploymentbot",
		Name:      "deployment_transitions",
		Help:      "The total number of sweep-driven lifecycle transitions",
	}, []string{"phase"})
)
