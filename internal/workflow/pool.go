package workflow

import (
	"context"
	"sync"
)

type poolTask struct {
	fn   func() error
	done chan error
}

// pool runs blocking sub-steps on a fixed number of goroutines.
type pool struct {
	tasks chan poolTask
	wg    sync.WaitGroup
}

func newPool(size int) *pool {
	if size <= 0 {
		size = 1
	}
	p := &pool{tasks: make(chan poolTask)}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task.done <- task.fn()
			}
		}()
	}
	return p
}

// do runs fn on the pool and waits for it, or returns early when ctx ends.
// A task already handed to a worker keeps running; its result is dropped.
func (p *pool) do(ctx context.Context, fn func() error) error {
	task := poolTask{fn: fn, done: make(chan error, 1)}
	select {
	case p.tasks <- task:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-task.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close drains the pool. Callers must not submit afterwards.
func (p *pool) close() {
	close(p.tasks)
	p.wg.Wait()
}
