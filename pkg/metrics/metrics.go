package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue", "status"},
	)

	// LLM 调用延迟（毫秒）
	LLMCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_latency_ms",
			Help:    "LLM invocation latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"provider", "status"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slow_query_total",
			Help: "Total number of slow database queries",
		},
		[]string{"operation"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	// 向导完成计数
	WizardCompletedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_completed_total",
			Help: "Total number of project wizards completed",
		},
		[]string{"with_ai_tasks"},
	)

	// AI 动作计数
	AIActionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_action_total",
			Help: "Total number of AI-assisted actions",
		},
		[]string{"action", "status"}, // action: risk_analysis, task_suggestion, prioritize, reply, message_analysis, assistant
	)

	// 任务生成计数
	TaskGenerationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_generation_count",
			Help: "Total number of tasks generated",
		},
		[]string{"source"}, // source: wizard, manual
	)
)

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue, status string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue, status).Observe(float64(duration.Milliseconds()))
}

// RecordLLMCallLatency 记录 LLM 调用延迟
func RecordLLMCallLatency(provider, status string, duration time.Duration) {
	LLMCallLatency.WithLabelValues(provider, status).Observe(float64(duration.Milliseconds()))
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery(operation string) {
	SlowQueryCount.WithLabelValues(operation).Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementWizardCompleted 增加向导完成计数
func IncrementWizardCompleted(withAITasks bool) {
	label := "false"
	if withAITasks {
		label = "true"
	}
	WizardCompletedCount.WithLabelValues(label).Inc()
}

// IncrementAIAction 增加 AI 动作计数
func IncrementAIAction(action, status string) {
	AIActionCount.WithLabelValues(action, status).Inc()
}

// IncrementTaskGeneration 增加任务生成计数
func IncrementTaskGeneration(source string, n int) {
	TaskGenerationCount.WithLabelValues(source).Add(float64(n))
}
