package cache

import "github.com/prometheus/client_golang/prometheus"

// Collector публикует GetMetrics() кеша как метрики Prometheus при каждом scrape
type Collector struct {
	repo CacheRepo

	hits     *prometheus.Desc
	misses   *prometheus.Desc
	keys     *prometheus.Desc
	latency  *prometheus.Desc
	hitRatio *prometheus.Desc
}

// NewCollector создает коллектор для кеша с меткой backend
func NewCollector(repo CacheRepo, backend string) *Collector {
	labels := prometheus.Labels{"backend": backend}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("blockverse", "chunk_cache", name), help, nil, labels)
	}
	return &Collector{
		repo:     repo,
		hits:     desc("hits_total", "Попадания в кеш снимков чанков."),
		misses:   desc("misses_total", "Промахи кеша снимков чанков."),
		keys:     desc("keys", "Ключей в кеше."),
		latency:  desc("avg_latency_ms", "Средняя задержка запроса к кешу, мс."),
		hitRatio: desc("hit_ratio", "Доля попаданий."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.keys
	ch <- c.latency
	ch <- c.hitRatio
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.repo.GetMetrics()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(m.CacheHits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(m.CacheMisses))
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(m.TotalKeys))
	ch <- prometheus.MustNewConstMetric(c.latency, prometheus.GaugeValue, m.AvgLatencyMs)
	ch <- prometheus.MustNewConstMetric(c.hitRatio, prometheus.GaugeValue, m.HitRatio)
}
