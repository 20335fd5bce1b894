package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the tracker's prometheus collectors.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	operations  *prometheus.CounterVec
	positions   prometheus.Gauge
	storeErrors prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_operations_total",
			Help: "Portfolio operations by name and result.",
		}, []string{"op", "result"}),
		positions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_positions",
			Help: "Number of tracked positions.",
		}),
		storeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_store_errors_total",
			Help: "Failed persistence syncs.",
		}),
	}
	for _, c := range []prometheus.Collector{r.operations, r.positions, r.storeErrors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Operation counts one call of op. result is "ok" or an error class.
func (r *Recorder) Operation(op, result string) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(op, result).Inc()
}

func (r *Recorder) SetPositions(n int) {
	if r == nil {
		return
	}
	r.positions.Set(float64(n))
}

func (r *Recorder) StoreError() {
	if r == nil {
		return
	}
	r.storeErrors.Inc()
}
