package network

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics метрики игрового фронтенда
type Metrics struct {
	ConnectedClients prometheus.Gauge
	PlayersOnline    prometheus.Gauge
	FramesIn         *prometheus.CounterVec
	FramesOut        *prometheus.CounterVec
	Disconnects      *prometheus.CounterVec
	TickDuration     prometheus.Histogram
}

// NewMetrics создает метрики и регистрирует их в reg (nil - без регистрации)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blockverse",
			Subsystem: "network",
			Name:      "connected_clients",
			Help:      "Открытые соединения, включая не вошедшие.",
		}),
		PlayersOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blockverse",
			Subsystem: "network",
			Name:      "players_online",
			Help:      "Сессии в состоянии Play.",
		}),
		FramesIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockverse",
			Subsystem: "network",
			Name:      "frames_in_total",
			Help:      "Принятые кадры по типу.",
		}, []string{"type"}),
		FramesOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockverse",
			Subsystem: "network",
			Name:      "frames_out_total",
			Help:      "Отправленные кадры по типу.",
		}, []string{"type"}),
		Disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockverse",
			Subsystem: "network",
			Name:      "disconnects_total",
			Help:      "Закрытые сессии по причине.",
		}, []string{"reason"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "blockverse",
			Subsystem: "server",
			Name:      "tick_seconds",
			Help:      "Длительность одного тика сервера.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ConnectedClients, m.PlayersOnline, m.FramesIn, m.FramesOut, m.Disconnects, m.TickDuration)
	}
	return m
}
