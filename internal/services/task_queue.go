package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/viprasethu/backend/internal/config"
	"github.com/viprasethu/backend/pkg/logger"
)

const (
	TaskTypePhotoCleanup = "photo:cleanup"
)

// PhotoCleanupTask asks the worker to delete stored objects that no database
// row references any more.
type PhotoCleanupTask struct {
	Keys       []string `json:"keys"`
	ProviderID string   `json:"provider_id,omitempty"`
	Reason     string   `json:"reason"`
}

// CleanupProcessor performs a cleanup task.
type CleanupProcessor func(context.Context, *PhotoCleanupTask) error

// TaskQueue defines the interface for background cleanup processing
type TaskQueue interface {
	// Enqueue adds a task to the queue
	Enqueue(ctx context.Context, task *PhotoCleanupTask) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// NewTaskQueue returns an asynq-backed queue when Redis is enabled and
// reachable, otherwise a SyncQueue running processor in-process.
func NewTaskQueue(cfg *config.RedisConfig, processor CleanupProcessor) TaskQueue {
	if cfg.Enabled {
		queue, err := NewAsyncQueue(cfg)
		if err != nil {
			logger.Warnf("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
		} else {
			logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Addr)
			return queue
		}
	} else {
		logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
	}

	q := NewSyncQueue()
	q.SetProcessor(processor)
	return q
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

func redisClientOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewAsyncQueue creates a new Redis-based async queue
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := redisClientOpt(cfg)

	client := asynq.NewClient(redisOpt)

	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

func (q *AsyncQueue) Enqueue(ctx context.Context, task *PhotoCleanupTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypePhotoCleanup, payload)
	info, err := q.client.EnqueueContext(ctx, t,
		asynq.Queue("default"),
		asynq.MaxRetry(5),
	)
	if err != nil {
		return err
	}

	logger.Infof("[AsyncQueue] Task enqueued: id=%s, queue=%s, keys=%d", info.ID, info.Queue, len(task.Keys))
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue implements TaskQueue with in-process processing (no Redis).
type SyncQueue struct {
	processor CleanupProcessor
	wg        sync.WaitGroup
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

// SetProcessor sets the function to process tasks
func (q *SyncQueue) SetProcessor(processor CleanupProcessor) {
	q.processor = processor
}

// Enqueue runs the task on its own goroutine so the caller's request is not
// held up. The request context is not passed on; it ends with the response.
func (q *SyncQueue) Enqueue(_ context.Context, task *PhotoCleanupTask) error {
	if q.processor == nil {
		logger.Warnf("[SyncQueue] no processor set, task %s dropped", TaskTypePhotoCleanup)
		return nil
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := q.processor(context.Background(), task); err != nil {
			logger.Errorf("[SyncQueue] Task processing failed: %v", err)
		}
	}()

	return nil
}

// Wait blocks until every enqueued task has finished.
func (q *SyncQueue) Wait() {
	q.wg.Wait()
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

// Close waits for in-flight tasks.
func (q *SyncQueue) Close() error {
	q.wg.Wait()
	return nil
}
