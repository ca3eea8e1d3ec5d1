package workerpool

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Job func(ctx context.Context)

type WorkerPool struct {
	queue  chan Job
	wg     sync.WaitGroup
	log    *zap.Logger
	mu     sync.RWMutex
	closed bool
}

func NewWorkerPool(ctx context.Context, log *zap.Logger, workerCount int, queueSize int) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}

	pool := &WorkerPool{
		queue: make(chan Job, queueSize),
		log:   log,
	}

	for range workerCount {
		go pool.worker(ctx)
	}

	return pool
}

func (p *WorkerPool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.log.Debug("Worker received shutdown signal")
			p.discard()
			return
		case job, ok := <-p.queue:
			if !ok {
				// queue closed
				return
			}
			job(ctx)
			p.wg.Done()
		}
	}
}

// discard releases jobs that will never run once the pool context is done,
// until Shutdown closes the queue.
func (p *WorkerPool) discard() {
	dropped := 0
	for range p.queue {
		p.wg.Done()
		dropped++
	}
	if dropped > 0 {
		p.log.Warn("Worker pool discarded queued jobs", zap.Int("count", dropped))
	}
}

// Submit queues a job. It reports false when the job was dropped because the
// queue is full or the pool is shutting down.
func (p *WorkerPool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.log.Warn("Worker pool closed: job dropped")
		return false
	}

	p.wg.Add(1)
	select {
	case p.queue <- job:
		return true
	default:
		p.wg.Done()
		p.log.Warn("Worker pool queue full: job dropped")
		return false
	}
}

// Shutdown stops accepting jobs and waits for queued ones until ctx expires.
func (p *WorkerPool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})

	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		p.log.Warn("Worker pool shutdown timed out")
	case <-done:
		p.log.Info("Worker pool shutdown complete")
	}
}

func WithRetry(log *zap.Logger, retries int, delay time.Duration, job func(ctx context.Context) error) Job {
	return func(ctx context.Context) {
		for i := range retries {
			if ctx.Err() != nil {
				log.Debug("Job canceled before execution")
				return
			}

			err := job(ctx)
			if err == nil {
				return // success
			}
			log.Warn("Job failed", zap.Int("attempt", i+1), zap.Int("retries", retries), zap.Error(err))

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
		log.Error("Job failed after max retries", zap.Int("retries", retries))
	}
}
