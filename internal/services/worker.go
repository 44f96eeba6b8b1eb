package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/viprasethu/backend/internal/config"
	"github.com/viprasethu/backend/pkg/logger"
)

// Worker processes async tasks from the queue
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor CleanupProcessor
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// NewWorker returns nil when Redis is disabled.
func NewWorker(cfg *config.RedisConfig, processor CleanupProcessor) *Worker {
	if !cfg.Enabled {
		return nil
	}

	server := asynq.NewServer(
		redisClientOpt(cfg),
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Errorf("[Worker] Error processing task %s: %v", task.Type(), err)
			}),
		},
	)

	return &Worker{
		server:    server,
		mux:       asynq.NewServeMux(),
		processor: processor,
	}
}

// Start begins processing tasks
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.mux.HandleFunc(TaskTypePhotoCleanup, w.handleCleanupTask)

	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	w.running = true
	logger.Infof("[Worker] Async worker started")
	return nil
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	logger.Infof("[Worker] Shutting down...")
	w.server.Shutdown()
	w.running = false
	w.wg.Wait()
	logger.Infof("[Worker] Shutdown complete")
}

func (w *Worker) handleCleanupTask(ctx context.Context, t *asynq.Task) error {
	w.wg.Add(1)
	defer w.wg.Done()
	return decodeAndRun(ctx, t.Payload(), w.processor)
}

func decodeAndRun(ctx context.Context, payload []byte, processor CleanupProcessor) error {
	var task PhotoCleanupTask
	if err := json.Unmarshal(payload, &task); err != nil {
		// malformed payloads will never succeed
		return fmt.Errorf("unmarshal %s: %v: %w", TaskTypePhotoCleanup, err, asynq.SkipRetry)
	}

	logger.Infof("[Worker] Processing cleanup task: provider=%s keys=%d reason=%s",
		task.ProviderID, len(task.Keys), task.Reason)

	if processor == nil {
		logger.Warnf("[Worker] no processor set")
		return nil
	}
	return processor(ctx, &task)
}
