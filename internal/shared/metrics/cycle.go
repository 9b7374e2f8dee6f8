package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Cycle agrupa os coletores dos ciclos basic/compare.
type Cycle struct {
	Cycles   *prometheus.CounterVec
	Ingested prometheus.Counter
	Stored   prometheus.Counter
	Faults   *prometheus.CounterVec
	DiffRows prometheus.Histogram
	Alerted  prometheus.Counter
}

// NewRegistry cria um registry com os coletores padrão de processo e Go.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func NewCycle(reg prometheus.Registerer) *Cycle {
	c := &Cycle{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "racing_cycles_total", Help: "ciclos executados por modo e resultado",
		}, []string{"mode", "outcome"}),
		Ingested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "racing_records_ingested_total", Help: "registros normalizados",
		}),
		Stored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "racing_records_stored_total", Help: "upserts no snapshot",
		}),
		Faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "racing_ingest_faults_total", Help: "linhas descartadas por falta de join",
		}, []string{"kind"}),
		DiffRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "racing_diff_rows",
			Help:    "linhas de diferença por ciclo de compare",
			Buckets: prometheus.LinearBuckets(0, 25, 10),
		}),
		Alerted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "racing_alerted_horses_total", Help: "cavalos notificados",
		}),
	}
	reg.MustRegister(c.Cycles, c.Ingested, c.Stored, c.Faults, c.DiffRows, c.Alerted)
	return c
}
