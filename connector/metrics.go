package connector

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

func newDeliveryCounter(reg prometheus.Registerer) (*prometheus.CounterVec, error) {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_deliveries_total",
		Help: "Completed requests by delivery outcome",
	}, []string{"outcome"})

	if reg == nil {
		return c, nil
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, errors.Wrap(err, "Failed to register delivery counter")
	}
	return c, nil
}
