package world

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics Prometheus-метрики мира и движка освещения
type Metrics struct {
	ChunksGenerated prometheus.Counter
	ResidentChunks  prometheus.Gauge
	BlockEdits      *prometheus.CounterVec
	LightTasks      *prometheus.CounterVec
	FillDuration    prometheus.Histogram
	SpreadDuration  prometheus.Histogram
}

// NewMetrics создает метрики и регистрирует их в reg (nil: без регистрации)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChunksGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockverse",
			Subsystem: "world",
			Name:      "chunks_generated_total",
			Help:      "Сгенерированные и освещенные чанки.",
		}),
		ResidentChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blockverse",
			Subsystem: "world",
			Name:      "resident_chunks",
			Help:      "Чанки, загруженные в память.",
		}),
		BlockEdits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockverse",
			Subsystem: "world",
			Name:      "block_edits_total",
			Help:      "Примененные изменения блоков по типу (place/remove).",
		}, []string{"kind"}),
		LightTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockverse",
			Subsystem: "light",
			Name:      "tasks_total",
			Help:      "Задачи рабочего списка движка освещения по исходу.",
		}, []string{"outcome"}),
		FillDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "blockverse",
			Subsystem: "light",
			Name:      "initial_fill_seconds",
			Help:      "Длительность начального освещения чанка.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		SpreadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "blockverse",
			Subsystem: "light",
			Name:      "edit_spread_seconds",
			Help:      "Длительность перерасчета освещения после изменения блока.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ChunksGenerated, m.ResidentChunks, m.BlockEdits, m.LightTasks, m.FillDuration, m.SpreadDuration)
	}
	return m
}
