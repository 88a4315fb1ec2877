package notify

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts alert transitions.
type Metrics struct {
	transitions *prometheus.CounterVec
}

// NewMetrics creates the counter and registers it with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alert_transitions_total",
				Help: "How many alerts changed their status, partitioned by event type.",
			},
			[]string{"type"},
		),
	}

	if err := reg.Register(m.transitions); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) Notify(_ context.Context, e Event) error {
	m.transitions.WithLabelValues(string(e.Type)).Inc()
	return nil
}
