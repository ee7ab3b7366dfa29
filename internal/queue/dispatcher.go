package queue

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dushixiang/pika-alert/internal/config"
	"github.com/dushixiang/pika-alert/internal/metrics"
	"github.com/dushixiang/pika-alert/internal/models"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// Task 一次告警检查任务
type Task struct {
	AgentID    string
	Snapshot   models.MetricSnapshot
	ObservedAt int64 // 指标接收时间（毫秒），作为本次检查的当前时间
}

// Handler 执行告警检查
type Handler func(ctx context.Context, task Task) error

// Dispatcher 告警检查任务分发器
//
// 同一探针的任务固定落在同一个 worker 上按提交顺序执行，不同探针之间并发
type Dispatcher struct {
	logger  *zap.Logger
	handler Handler
	timeout time.Duration
	shards  []chan Task

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      conc.WaitGroup
}

func NewDispatcher(logger *zap.Logger, cfg config.EvaluatorConfig, handler Handler) *Dispatcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}

	shards := make([]chan Task, workers)
	for i := range shards {
		shards[i] = make(chan Task, queueSize)
	}
	return &Dispatcher{
		logger:  logger,
		handler: handler,
		timeout: cfg.TaskTimeout,
		shards:  shards,
	}
}

// Start 启动 worker
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	for i, shard := range d.shards {
		shard := shard
		worker := i
		d.wg.Go(func() {
			d.run(worker, shard)
		})
	}
	d.logger.Info("告警检查队列已启动", zap.Int("workers", len(d.shards)))
}

// Submit 提交任务，不阻塞调用方；队列已满或已停止时丢弃任务并返回 false
func (d *Dispatcher) Submit(task Task) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	shard := d.shards[xxhash.Sum64String(task.AgentID)%uint64(len(d.shards))]
	select {
	case shard <- task:
		metrics.EvaluationQueueDepth.Inc()
		return true
	default:
		metrics.EvaluationTasksDropped.Inc()
		d.logger.Warn("告警检查队列已满，丢弃任务", zap.String("agentId", task.AgentID))
		return false
	}
}

// Stop 停止接收任务，等待已排队的任务执行完毕
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, shard := range d.shards {
		close(shard)
	}
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("告警检查队列已停止")
}

func (d *Dispatcher) run(worker int, shard <-chan Task) {
	for task := range shard {
		metrics.EvaluationQueueDepth.Dec()
		d.execute(worker, task)
	}
}

// execute 执行单个任务，panic 不影响后续任务
func (d *Dispatcher) execute(worker int, task Task) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	var catcher panics.Catcher
	catcher.Try(func() {
		if err := d.handler(ctx, task); err != nil {
			d.logger.Error("告警检查失败",
				zap.Int("worker", worker),
				zap.String("agentId", task.AgentID),
				zap.Error(err))
		}
	})
	metrics.EvaluationTasksProcessed.Inc()

	if recovered := catcher.Recovered(); recovered != nil {
		metrics.EvaluationTasksPanicked.Inc()
		d.logger.Error("告警检查发生panic",
			zap.Int("worker", worker),
			zap.String("agentId", task.AgentID),
			zap.Error(recovered.AsError()))
	}
}
