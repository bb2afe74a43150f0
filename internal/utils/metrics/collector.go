// internal/utils/metrics/collector.go
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricType представляет тип метрики
type MetricType string

const (
	TradeCounterType     MetricType = "trade_counter"
	TradeDurationType    MetricType = "trade_duration"
	FeeCounterType       MetricType = "fee_lamports"
	CurveCounterType     MetricType = "curve_counter"
	CurveReservesType    MetricType = "curve_reserves"
	InvariantFailureType MetricType = "invariant_failures"
	StoreRetryType       MetricType = "store_retries"
	QuoteLatencyType     MetricType = "quote_latency"
)

const (
	namespace = "curve_engine"

	labelSide           = "side"
	labelStatus         = "status"
	labelMint           = "mint"
	labelReserve        = "reserve"
	labelCheck          = "check"
	labelOperation      = "operation"
	labelLifecycleEvent = "event"
)

// Collector управляет набором метрик. Каждый коллектор держит свой
// registry, поэтому несколько экземпляров (например в тестах) не конфликтуют.
type Collector struct {
	metrics  sync.Map
	registry *prometheus.Registry

	trades           *prometheus.CounterVec
	tradeDuration    *prometheus.HistogramVec
	fees             prometheus.Counter
	curves           *prometheus.CounterVec
	reserves         *prometheus.GaugeVec
	invariantFailure *prometheus.CounterVec
	storeRetries     *prometheus.CounterVec
	quoteLatency     *prometheus.HistogramVec
}

// NewCollector создает новый экземпляр коллектора метрик
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trades_total",
				Help:      "Total number of swaps processed",
			},
			[]string{labelSide, labelStatus},
		),
		tradeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "trade_duration_seconds",
				Help:      "Swap settlement duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{labelSide},
		),
		fees: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fee_lamports_total",
				Help:      "Lamports collected as swap fees",
			},
		),
		curves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "curves_total",
				Help:      "Curve lifecycle transitions",
			},
			[]string{labelLifecycleEvent},
		),
		reserves: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "curve_reserves",
				Help:      "Current reserves per curve",
			},
			[]string{labelMint, labelReserve},
		),
		invariantFailure: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invariant_failures_total",
				Help:      "Mutations rolled back by the invariant check",
			},
			[]string{labelCheck},
		),
		storeRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_retries_total",
				Help:      "Retried storage operations",
			},
			[]string{labelOperation},
		),
		quoteLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "quote_latency_seconds",
				Help:      "Quote computation latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10),
			},
			[]string{labelSide},
		),
	}
	c.initializeMetrics()
	return c
}

func (c *Collector) initializeMetrics() {
	metricsMap := map[MetricType]prometheus.Collector{
		TradeCounterType:     c.trades,
		TradeDurationType:    c.tradeDuration,
		FeeCounterType:       c.fees,
		CurveCounterType:     c.curves,
		CurveReservesType:    c.reserves,
		InvariantFailureType: c.invariantFailure,
		StoreRetryType:       c.storeRetries,
		QuoteLatencyType:     c.quoteLatency,
	}

	for metricType, metric := range metricsMap {
		c.metrics.Store(metricType, metric)
		c.registry.MustRegister(metric)
	}
}

// Registry возвращает registry коллектора
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler отдает метрики в формате Prometheus
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Reset сбрасывает все метрики (полезно для тестирования)
func (c *Collector) Reset() {
	c.metrics.Range(func(_, value interface{}) bool {
		switch m := value.(type) {
		case *prometheus.CounterVec:
			m.Reset()
		case *prometheus.GaugeVec:
			m.Reset()
		case *prometheus.HistogramVec:
			m.Reset()
		}
		return true
	})
}
