package engine

import (
	"context"
	"sync"
)

// workerPool is a fixed-size goroutine pool with a bounded input queue.
// Jobs are fire-and-forget: the handler reports its own outcome.
type workerPool[T any] struct {
	queue   chan T
	handle  func(ctx context.Context, t T) error
	wg      sync.WaitGroup
	closeMu sync.RWMutex
	closed  bool
}

// newWorkerPool starts n goroutines reading from a queue of capacity size.
func newWorkerPool[T any](ctx context.Context, n, size int, fn func(context.Context, T) error) *workerPool[T] {
	p := &workerPool[T]{
		queue:  make(chan T, size),
		handle: fn,
	}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
	return p
}

func (p *workerPool[T]) run(ctx context.Context) {
	for {
		select {
		case t, ok := <-p.queue:
			if !ok {
				return
			}
			_ = p.handle(ctx, t)
		case <-ctx.Done():
			return
		}
	}
}

// Submit enqueues a job without blocking. It returns false when the queue is
// full or the pool is draining.
func (p *workerPool[T]) Submit(t T) bool {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.queue <- t:
		return true
	default:
		return false
	}
}

// Drain closes the queue and waits for the workers to finish what is queued.
// It is safe to call more than once.
func (p *workerPool[T]) Drain() {
	p.closeMu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.closeMu.Unlock()
	p.wg.Wait()
}

// QueueLen returns how many jobs are currently queued.
func (p *workerPool[T]) QueueLen() int {
	return len(p.queue)
}

// QueueCap returns the total queue capacity.
func (p *workerPool[T]) QueueCap() int {
	return cap(p.queue)
}
