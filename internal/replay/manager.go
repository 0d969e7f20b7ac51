// Package replay pushes a directory of recorded payloads to a framesink
// server, paced by a fixed interval and fanned across workers.
package replay

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/framewell/framesink/internal/client"
)

// Pusher is the client surface the manager needs.
type Pusher interface {
	Push(ctx context.Context, contentType string, body []byte) (*client.Ack, error)
}

// Manager runs a batch of push tasks through a worker pool.
type Manager struct {
	client   Pusher
	workers  int
	interval time.Duration
	logger   *zap.Logger
}

// NewManager creates a replay manager. interval is the per-worker pause
// between pushes; zero means flat out (the client's rate limiter still
// applies).
func NewManager(client Pusher, workers int, interval time.Duration, logger *zap.Logger) *Manager {
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		client:   client,
		workers:  workers,
		interval: interval,
		logger:   logger,
	}
}

// Execute pushes every task and returns the aggregated result.
func (m *Manager) Execute(ctx context.Context, tasks []Task) (*BatchResult, error) {
	result := &BatchResult{Total: len(tasks)}

	if len(tasks) == 0 {
		return result, nil
	}

	jobs := make(chan Task, len(tasks))
	results := make(chan TaskResult, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.worker(ctx, jobs, results)
		}()
	}

	go func() {
		for _, task := range tasks {
			select {
			case <-ctx.Done():
				return
			case jobs <- task:
			}
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		result.record(r)
	}

	return result, ctx.Err()
}

func (m *Manager) worker(ctx context.Context, jobs <-chan Task, results chan<- TaskResult) {
	for task := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result := m.processTask(ctx, task)

		select {
		case <-ctx.Done():
			return
		case results <- result:
		}

		if m.interval > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.interval):
			}
		}
	}
}

func (m *Manager) processTask(ctx context.Context, task Task) TaskResult {
	result := TaskResult{Task: task}

	body, err := os.ReadFile(task.Path)
	if err != nil {
		result.Error = err
		return result
	}

	m.logger.Info("pushing",
		zap.String("task", task.String()),
		zap.String("content_type", task.ContentType()),
		zap.Int("bytes", len(body)),
	)

	ack, err := m.client.Push(ctx, task.ContentType(), body)
	if err != nil {
		if errors.Is(err, client.ErrRejected) {
			m.logger.Warn("push rejected", zap.String("task", task.String()), zap.Error(err))
			result.Rejected = true
			result.Error = err
			return result
		}
		result.Error = err
		return result
	}

	result.Success = true
	m.logger.Debug("pushed",
		zap.String("task", task.String()),
		zap.Float64("timestamp", ack.Timestamp),
	)
	return result
}
