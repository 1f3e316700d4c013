package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStatsCollector exports pgxpool statistics as Prometheus metrics.
type PoolStatsCollector struct {
	stat func() *pgxpool.Stat

	acquired    *prometheus.Desc
	idle        *prometheus.Desc
	total       *prometheus.Desc
	max         *prometheus.Desc
	acquires    *prometheus.Desc
	waitSeconds *prometheus.Desc
	emptyWaits  *prometheus.Desc
}

// NewPoolStatsCollector returns a collector reading pool.Stat on every scrape.
func NewPoolStatsCollector(pool *pgxpool.Pool) *PoolStatsCollector {
	return newPoolStatsCollector(pool.Stat)
}

func newPoolStatsCollector(stat func() *pgxpool.Stat) *PoolStatsCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("farmmarket_db_pool_"+name, help, nil, nil)
	}
	return &PoolStatsCollector{
		stat:        stat,
		acquired:    desc("acquired_connections", "Connections currently checked out."),
		idle:        desc("idle_connections", "Connections currently idle."),
		total:       desc("total_connections", "Connections currently open."),
		max:         desc("max_connections", "Configured connection limit."),
		acquires:    desc("acquires_total", "Connection acquisitions."),
		waitSeconds: desc("acquire_wait_seconds_total", "Time spent acquiring connections."),
		emptyWaits:  desc("empty_acquires_total", "Acquisitions that waited for a free connection."),
	}
}

func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
	ch <- c.acquires
	ch <- c.waitSeconds
	ch <- c.emptyWaits
}

func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stat()
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	counter := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v)
	}

	gauge(c.acquired, float64(s.AcquiredConns()))
	gauge(c.idle, float64(s.IdleConns()))
	gauge(c.total, float64(s.TotalConns()))
	gauge(c.max, float64(s.MaxConns()))
	counter(c.acquires, float64(s.AcquireCount()))
	counter(c.waitSeconds, s.AcquireDuration().Seconds())
	counter(c.emptyWaits, float64(s.EmptyAcquireCount()))
}
