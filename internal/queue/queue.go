package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"svn-migrate/internal/adapter/replay"
	"svn-migrate/pkg/constants"
	pkgErrors "svn-migrate/pkg/errors"
)

// Job 一次调度执行尝试。类型标签 + 共享调度字段 + 已解析的执行参数,
// 不做持久化, 结果统一回写到迁移记录上。
type Job struct {
	ID         string
	Type       string // migration/sync
	RecordID   string
	Params     replay.Params
	EnqueuedAt time.Time
}

// NewJob 创建任务
func NewJob(jobType, recordID string, params replay.Params) *Job {
	return &Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		RecordID:   recordID,
		Params:     params,
		EnqueuedAt: time.Now(),
	}
}

// Executor 任务执行回调, 由引擎提供。返回error仅用于队列计数,
// 业务失败已由引擎落库, 不会向上传播。
type Executor func(ctx context.Context, job *Job) error

// QueueStats 单队列统计
type QueueStats struct {
	Waiting   int   `json:"waiting"`
	Active    int   `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Limit     int   `json:"limit"`
}

// Status 两个队列的聚合状态
type Status struct {
	Migration QueueStats `json:"migration"`
	Sync      QueueStats `json:"sync"`
}

type activeJob struct {
	job    *Job
	cancel context.CancelFunc
}

// queueState 单个队列的调度状态, 由Dispatcher的互斥锁统一保护
type queueState struct {
	name      string
	limit     int
	waiting   []*Job
	active    map[string]*activeJob // recordID → job
	completed int64
	failed    int64
	kick      chan struct{}
}

func newQueueState(name string, limit int) *queueState {
	return &queueState{
		name:   name,
		limit:  clampLimit(limit),
		active: make(map[string]*activeJob),
		kick:   make(chan struct{}, 1),
	}
}

func (q *queueState) stats() QueueStats {
	return QueueStats{
		Waiting:   len(q.waiting),
		Active:    len(q.active),
		Completed: q.completed,
		Failed:    q.failed,
		Limit:     q.limit,
	}
}

// Dispatcher 双队列FIFO调度器。并发计数是跨记录共享的唯一资源,
// 通过单一互斥锁保证准入/释放的原子性。
type Dispatcher struct {
	mu        sync.Mutex
	migration *queueState
	syncQ     *queueState
	busy      map[string]string // recordID → 队列名, 保证每条记录最多一个任务
	executor  Executor
	logger    *zap.Logger

	stopCh  chan struct{}
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher 创建调度器
func NewDispatcher(migrationLimit, syncLimit int, executor Executor, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		migration: newQueueState(constants.JobTypeMigration, migrationLimit),
		syncQ:     newQueueState(constants.JobTypeSync, syncLimit),
		busy:      make(map[string]string),
		executor:  executor,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Start 启动两个队列的调度循环
func (d *Dispatcher) Start() {
	go d.runQueue(d.migration)
	go d.runQueue(d.syncQ)
}

// Stop 停止调度: 不再准入, 取消所有运行中任务并等待其退出
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.stopCh)
	for _, q := range []*queueState{d.migration, d.syncQ} {
		for _, a := range q.active {
			a.cancel()
		}
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// Enqueue 任务入队。同一记录已有排队/运行中的任务时拒绝。
func (d *Dispatcher) Enqueue(job *Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return pkgErrors.New(pkgErrors.CodeInternalError, "调度器已停止")
	}
	if _, exists := d.busy[job.RecordID]; exists {
		return pkgErrors.NewDuplicateJobError(job.RecordID)
	}

	q, err := d.queueOf(job.Type)
	if err != nil {
		return err
	}

	d.busy[job.RecordID] = q.name
	q.waiting = append(q.waiting, job)
	d.logger.Info("任务入队",
		zap.String("queue", q.name),
		zap.String("job_id", job.ID),
		zap.String("record_id", job.RecordID),
		zap.Int("waiting", len(q.waiting)))

	d.kick(q)
	return nil
}

// Cancel 取消记录的任务: 排队中直接移除, 运行中取消其context。
// 返回 (是否找到, 是否曾在运行中)。
func (d *Dispatcher) Cancel(recordID string) (found, wasActive bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, q := range []*queueState{d.migration, d.syncQ} {
		// 排队中: 立即移除
		for i, job := range q.waiting {
			if job.RecordID == recordID {
				q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
				delete(d.busy, recordID)
				return true, false
			}
		}
		// 运行中: 发信号, busy标记在任务退出时清除
		if a, ok := q.active[recordID]; ok {
			a.cancel()
			return true, true
		}
	}
	return false, false
}

// IsBusy 记录当前是否有排队/运行中的任务
func (d *Dispatcher) IsBusy(recordID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.busy[recordID]
	return ok
}

// SetLimit 运行时调整并发数, 边界1-10
func (d *Dispatcher) SetLimit(queueName string, limit int) error {
	if limit < constants.MinConcurrency || limit > constants.MaxConcurrency {
		return pkgErrors.NewValidationError("并发数必须在1-10之间")
	}

	d.mu.Lock()
	q, err := d.queueOf(queueName)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	q.limit = limit
	d.mu.Unlock()

	// 上调后可能有等待任务可以准入
	d.kick(q)
	return nil
}

// GetStatus 两个队列的统计快照
func (d *Dispatcher) GetStatus() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		Migration: d.migration.stats(),
		Sync:      d.syncQ.stats(),
	}
}

// CleanupResolved 清理已结束任务的队列记账, 不触碰迁移记录
func (d *Dispatcher) CleanupResolved() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.migration.completed, d.migration.failed = 0, 0
	d.syncQ.completed, d.syncQ.failed = 0, 0
}

// runQueue 单队列调度循环: 严格FIFO, 有并发余量才准入
func (d *Dispatcher) runQueue(q *queueState) {
	for {
		select {
		case <-d.stopCh:
			return
		case <-q.kick:
		}

		for {
			d.mu.Lock()
			if d.stopped || len(q.active) >= q.limit || len(q.waiting) == 0 {
				d.mu.Unlock()
				break
			}

			job := q.waiting[0]
			q.waiting = q.waiting[1:]

			ctx, cancel := context.WithCancel(context.Background())
			q.active[job.RecordID] = &activeJob{job: job, cancel: cancel}
			d.wg.Add(1)
			d.mu.Unlock()

			go d.runJob(q, job, ctx, cancel)
		}
	}
}

// runJob 执行单个任务并回收占用
func (d *Dispatcher) runJob(q *queueState, job *Job, ctx context.Context, cancel context.CancelFunc) {
	defer d.wg.Done()
	defer cancel()

	d.logger.Info("任务开始执行",
		zap.String("queue", q.name),
		zap.String("job_id", job.ID),
		zap.String("record_id", job.RecordID))

	err := d.executor(ctx, job)

	d.mu.Lock()
	delete(q.active, job.RecordID)
	delete(d.busy, job.RecordID)
	switch {
	case err == nil:
		q.completed++
	case errors.Is(err, context.Canceled):
		// 操作员取消不计入失败
	default:
		q.failed++
	}
	d.mu.Unlock()

	// 槽位释放, 唤醒准入
	d.kick(q)
}

func (d *Dispatcher) kick(q *queueState) {
	select {
	case q.kick <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) queueOf(name string) (*queueState, error) {
	switch name {
	case constants.JobTypeMigration:
		return d.migration, nil
	case constants.JobTypeSync:
		return d.syncQ, nil
	default:
		return nil, pkgErrors.NewValidationError("未知的队列类型: " + name)
	}
}

func clampLimit(limit int) int {
	if limit < constants.MinConcurrency {
		return constants.MinConcurrency
	}
	if limit > constants.MaxConcurrency {
		return constants.MaxConcurrency
	}
	return limit
}
