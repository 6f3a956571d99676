// Package parallel provides a bounded worker pool for running independent
// solver calls concurrently.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// ErrPoolShutdown is returned when trying to submit tasks to a shutdown pool.
var ErrPoolShutdown = errors.New("parallel: worker pool has been shut down")

// WorkerPool runs submitted tasks on a fixed number of goroutines. Submit
// blocks once every worker is busy and the queue is full.
type WorkerPool struct {
	maxWorkers int
	taskChan   chan func()
	workerWg   sync.WaitGroup
	taskWg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool creates a pool with maxWorkers goroutines. If maxWorkers
// is 0 or negative, it defaults to the number of CPU cores.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	pool := &WorkerPool{
		maxWorkers: maxWorkers,
		taskChan:   make(chan func(), maxWorkers*2),
	}
	for i := 0; i < maxWorkers; i++ {
		pool.workerWg.Add(1)
		go pool.worker()
	}
	return pool
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int {
	return wp.maxWorkers
}

func (wp *WorkerPool) worker() {
	defer wp.workerWg.Done()
	for task := range wp.taskChan {
		task()
		wp.taskWg.Done()
	}
}

// Submit queues task for execution. It returns ctx.Err() if ctx ends
// before a slot frees up, and ErrPoolShutdown after Shutdown.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return ErrPoolShutdown
	}

	wp.taskWg.Add(1)
	select {
	case wp.taskChan <- task:
		return nil
	case <-ctx.Done():
		wp.taskWg.Done()
		return ctx.Err()
	}
}

// Wait blocks until every submitted task has finished.
func (wp *WorkerPool) Wait() {
	wp.taskWg.Wait()
}

// Shutdown stops accepting tasks, lets queued tasks finish and waits for
// the workers to exit. It is safe to call more than once.
func (wp *WorkerPool) Shutdown() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.taskChan)
	wp.mu.Unlock()
	wp.workerWg.Wait()
}
