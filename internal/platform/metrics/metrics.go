package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector 进程内 Prometheus 指标，使用独立 registry。
// 所有方法对 nil 接收者安全，未启用指标时可直接传 nil。
type Collector struct {
	registry *prometheus.Registry

	drops          *prometheus.CounterVec
	ignoredDrops   prometheus.Counter
	edges          *prometheus.CounterVec
	exports        *prometheus.CounterVec
	sessions       prometheus.Gauge
	webhookUpdates *prometheus.CounterVec
	telegramErrors *prometheus.CounterVec
}

// New 创建指标集合
func New(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "canvas",
			Name:      "drops_total",
			Help:      "Nodes created from palette drops, by node type.",
		}, []string{"type"}),
		ignoredDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "canvas",
			Name:      "ignored_drops_total",
			Help:      "Drops carrying an empty type tag.",
		}),
		edges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "canvas",
			Name:      "edges_total",
			Help:      "Edges created, by origin (auto or manual).",
		}, []string{"origin"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "canvas",
			Name:      "exports_total",
			Help:      "Canvas exports, by format.",
		}, []string{"format"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "canvas",
			Name:      "sessions",
			Help:      "Live canvas editing sessions.",
		}),
		webhookUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "updates_total",
			Help:      "Webhook updates handled, by bot script and update kind.",
		}, []string{"script", "kind"}),
		telegramErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "api_errors_total",
			Help:      "Failed Bot API calls, by method.",
		}, []string{"method"}),
	}

	c.registry.MustRegister(
		c.drops,
		c.ignoredDrops,
		c.edges,
		c.exports,
		c.sessions,
		c.webhookUpdates,
		c.telegramErrors,
		collectors.NewGoCollector(),
	)
	return c
}

// Registry 暴露底层 registry（测试用）
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler /metrics 端点
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) NodeDropped(nodeType string) {
	if c == nil {
		return
	}
	c.drops.WithLabelValues(nodeType).Inc()
}

func (c *Collector) DropIgnored() {
	if c == nil {
		return
	}
	c.ignoredDrops.Inc()
}

// EdgeCreated origin 取 auto 或 manual
func (c *Collector) EdgeCreated(origin string) {
	if c == nil {
		return
	}
	c.edges.WithLabelValues(origin).Inc()
}

func (c *Collector) Exported(format string) {
	if c == nil {
		return
	}
	c.exports.WithLabelValues(format).Inc()
}

func (c *Collector) SetSessions(n int) {
	if c == nil {
		return
	}
	c.sessions.Set(float64(n))
}

func (c *Collector) WebhookUpdate(script, kind string) {
	if c == nil {
		return
	}
	c.webhookUpdates.WithLabelValues(script, kind).Inc()
}

func (c *Collector) TelegramError(method string) {
	if c == nil {
		return
	}
	c.telegramErrors.WithLabelValues(method).Inc()
}
