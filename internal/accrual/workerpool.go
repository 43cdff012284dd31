package accrual

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type Task func(ctx context.Context)

// WorkerPool runs submitted tasks on a fixed number of workers. A pool serves
// one batch: Close waits for every submitted task to finish.
type WorkerPool struct {
	tasks chan Task
	g     errgroup.Group
}

func NewWorkerPool(ctx context.Context, size int) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	wp := &WorkerPool{tasks: make(chan Task)}
	for i := 0; i < size; i++ {
		wp.g.Go(func() error {
			for task := range wp.tasks {
				task(ctx)
			}
			return nil
		})
	}
	return wp
}

// Submit blocks until a worker accepts the task or ctx is done.
func (wp *WorkerPool) Submit(ctx context.Context, task Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case wp.tasks <- task:
		return nil
	}
}

func (wp *WorkerPool) Close() {
	close(wp.tasks)
	_ = wp.g.Wait()
}
