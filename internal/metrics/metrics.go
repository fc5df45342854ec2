package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency distribution",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method"})
	RequestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"path", "method", "status"})
	Inflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "In-flight HTTP requests",
	})
	DBUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "db_up",
		Help: "Database connectivity (1=up,0=down)",
	})
	RedisUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "redis_up",
		Help: "Redis connectivity (1=up,0=down)",
	})
	KafkaUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kafka_up",
		Help: "Kafka connectivity (1=up,0=down)",
	})
	EtcdUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "etcd_up",
		Help: "Etcd connectivity (1=up,0=down)",
	})
	DependencyCheckDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dependency_check_duration_seconds",
		Help:    "Latency of dependency health checks",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.2, 0.4, 0.8, 1},
	}, []string{"dep"})
)

// 字段引擎 / 公开表单
var (
	ReconcileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "field_reconcile_duration_seconds",
		Help:    "Latency of schema + metadata reconciliation",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"kind"})
	PublicSubmissionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "public_form_submissions_total",
		Help: "Public form submissions by outcome",
	}, []string{"outcome"})
	PublicKeyGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "form_public_key_generated_total",
		Help: "Public key generation attempts by result",
	}, []string{"result"})
	PublicFormCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "public_form_cache_total",
		Help: "Public form view cache lookups",
	}, []string{"result"})
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Requests rejected by rate limiter",
	}, []string{"path"})
	EventPublish = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domain_event_publish_total",
		Help: "Domain events published to kafka by result",
	}, []string{"event", "result"})
)

// Kafka 异步发送
var (
	KafkaEnqueue = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_async_enqueue_total",
		Help: "Async kafka enqueue results",
	}, []string{"result"})
	KafkaQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kafka_async_queue_depth",
		Help: "Messages waiting in the async kafka queue",
	})
	KafkaSendErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_async_send_errors_total",
		Help: "Messages whose batch write failed",
	}, []string{"topic"})
	KafkaBatchFlushTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_async_batch_flush_total",
		Help: "Batch flushes by trigger",
	}, []string{"reason"})
	KafkaBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kafka_async_batch_size",
		Help:    "Messages per flushed batch",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})
	KafkaFlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kafka_async_flush_duration_seconds",
		Help:    "Batch flush latency",
		Buckets: prometheus.DefBuckets,
	})
)

var KafkaConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "kafka_consumed_total",
	Help: "Consumed kafka messages by outcome",
}, []string{"topic", "result"})
