package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPoolRunsTasksAndReturnsErrors(t *testing.T) {
	p := newPool(2)
	defer p.close()

	if err := p.do(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("do: %v", err)
	}
	want := errors.New("boom")
	if err := p.do(context.Background(), func() error { return want }); !errors.Is(err, want) {
		t.Fatalf("err = %v", err)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := newPool(2)
	defer p.close()

	var mu sync.Mutex
	running, peak := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.do(context.Background(), func() error {
				mu.Lock()
				running++
				if running > peak {
					peak = running
				}
				mu.Unlock()
				time.Sleep(20 * time.Millisecond)
				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if peak > 2 {
		t.Fatalf("peak concurrency = %d", peak)
	}
}

func TestPoolDoReturnsWhenContextEnds(t *testing.T) {
	p := newPool(1)
	defer p.close()

	release := make(chan struct{})
	go func() {
		_ = p.do(context.Background(), func() error {
			<-release
			return nil
		})
	}()
	// Give the blocking task time to occupy the only worker.
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.do(ctx, func() error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
	close(release)
}
