package transport

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

func newAttemptHistogram(reg prometheus.Registerer) (*prometheus.HistogramVec, error) {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "courier_transport_attempt_seconds",
		Help:    "A histogram of transport attempt durations by response status code",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"code"})

	if reg == nil {
		return h, nil
	}
	if err := reg.Register(h); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
		}
		return nil, errors.Wrap(err, "Failed to register transport histogram")
	}
	return h, nil
}
