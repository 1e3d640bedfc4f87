package report

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 报表刷新相关的 prometheus 指标
type Metrics struct {
	cycles             *prometheus.CounterVec
	cycleDuration      prometheus.Histogram
	staleDiscards      prometheus.Counter
	sectionUnavailable *prometheus.CounterVec
}

// NewMetrics 创建并注册指标，同名指标已经注册过时复用已有的
func NewMetrics() *Metrics {
	return &Metrics{
		cycles: mustRegister(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_cycles_total",
				Help: "Total number of report refresh cycles",
			},
			[]string{"status"},
		)),
		cycleDuration: mustRegister(prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "report_cycle_duration_seconds",
				Help:    "Duration of report refresh cycles in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
		)),
		staleDiscards: mustRegister(prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "report_stale_discards_total",
				Help: "Snapshots discarded because a newer generation was already applied",
			},
		)),
		sectionUnavailable: mustRegister(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_section_unavailable_total",
				Help: "Report sections marked unavailable after a partial fetch failure",
			},
			[]string{"section"},
		)),
	}
}

func mustRegister[C prometheus.Collector](c C) C {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
