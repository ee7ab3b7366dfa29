package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pika"

var (
	// AlertEvaluations 单个规则的检查次数
	AlertEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alert_evaluations_total",
		Help:      "Number of alert rule evaluations.",
	}, []string{"type"})

	// AlertEvaluationDuration 单次告警检查耗时
	AlertEvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "alert_evaluation_duration_seconds",
		Help:      "Duration of a single alert evaluation pass.",
		Buckets:   prometheus.DefBuckets,
	})

	// AlertsFired 触发的告警
	AlertsFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_fired_total",
		Help:      "Number of alerts fired.",
	}, []string{"type"})

	// AlertsResolved 恢复的告警
	AlertsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_resolved_total",
		Help:      "Number of alerts resolved.",
	}, []string{"type"})

	// AlertRecordErrors 告警记录读写失败
	AlertRecordErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alert_record_errors_total",
		Help:      "Number of failed alert record operations.",
	}, []string{"op"})

	// StateStoreErrors 告警状态存储失败
	StateStoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alert_state_store_errors_total",
		Help:      "Number of failed alert state store operations.",
	}, []string{"op"})

	// EvaluationTasksDropped 队列已满被丢弃的检查任务
	EvaluationTasksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alert_tasks_dropped_total",
		Help:      "Number of evaluation tasks dropped because a worker queue was full.",
	})

	// EvaluationTasksProcessed 已执行的检查任务
	EvaluationTasksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alert_tasks_processed_total",
		Help:      "Number of evaluation tasks processed.",
	})

	// EvaluationQueueDepth 排队中的检查任务
	EvaluationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "alert_tasks_queued",
		Help:      "Number of evaluation tasks waiting in worker queues.",
	})

	// EvaluationTasksPanicked 执行时发生 panic 的检查任务
	EvaluationTasksPanicked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alert_tasks_panicked_total",
		Help:      "Number of evaluation tasks that panicked.",
	})

	// MetricsIngested 接收的指标条数
	MetricsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "metrics_ingested_total",
		Help:      "Number of metric items received from agents.",
	}, []string{"type"})

	// AgentsOnline 在线探针数
	AgentsOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "agents_online",
		Help:      "Number of agents currently online.",
	})

	// WebSocketClients 当前 websocket 连接数
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "websocket_clients",
		Help:      "Number of connected websocket clients.",
	})
)
