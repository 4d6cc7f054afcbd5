package completion

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts relayed events by kind and times whole streams by outcome.
type Metrics struct {
	events   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "generation_events_total",
				Help: "Total number of generation events relayed to clients.",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "generation_duration_seconds",
				Help:    "Duration of streamed generations from first status to terminal event.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"outcome"},
		),
	}
	for _, c := range []prometheus.Collector{m.events, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(kind EventKind) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(string(kind)).Inc()
}

// observeStream records one stream. Streams that never reached a terminal state count as aborted.
func (m *Metrics) observeStream(final State, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "aborted"
	switch final {
	case StateCompleted:
		outcome = "completed"
	case StateErrored:
		outcome = "errored"
	}
	m.duration.WithLabelValues(outcome).Observe(d.Seconds())
}
