package preview1

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wippyai/bcfs/wasi"
)

// Metrics counts host calls by function and result.
type Metrics struct {
	Calls *prometheus.CounterVec
}

// NewMetrics registers the host call counters with reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Calls: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "bcfs_wasi_calls_total",
				Help: "Total number of wasi_snapshot_preview1 calls made by contracts",
			},
			[]string{"func", "errno"},
		),
	}
}

func (m *Metrics) observe(name string, errno wasi.Errno) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(name, errno.String()).Inc()
}
