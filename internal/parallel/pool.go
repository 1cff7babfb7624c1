// Package parallel runs independent render tasks on a fixed set of goroutines.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool is a pool of goroutines for banded rendering.
//
// Each worker owns a queue; an idle worker steals from the other queues so
// one slow band does not serialize the frame.
//
// Thread safety: WorkerPool is safe for concurrent use. Several callers may
// Run at the same time; their tasks interleave on the same workers.
type WorkerPool struct {
	workers int
	queues  []chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	next    atomic.Uint32

	// mu is held shared while Run enqueues and exclusively while Close
	// stops the workers, so no task is queued after the last drain.
	mu      sync.RWMutex
	running bool
}

// NewWorkerPool starts a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	queueSize := max(workers*4, 8)

	p := &WorkerPool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}
	p.running = true

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

// Workers returns the number of worker goroutines.
func (p *WorkerPool) Workers() int {
	return p.workers
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	own := p.queues[id]
	for {
		select {
		case <-p.done:
			drain(own)
			return
		case task := <-own:
			task()
			continue
		default:
		}

		if task := p.steal(id); task != nil {
			task()
			continue
		}

		select {
		case <-p.done:
			drain(own)
			return
		case task := <-own:
			task()
		}
	}
}

func drain(queue chan func()) {
	for {
		select {
		case task := <-queue:
			task()
		default:
			return
		}
	}
}

func (p *WorkerPool) steal(id int) func() {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case task := <-p.queues[i]:
			return task
		default:
		}
	}
	return nil
}

// Run calls fn(i) for every i in [0, n) and returns when all calls have
// finished. After Close, or with a single worker, tasks run on the calling
// goroutine.
func (p *WorkerPool) Run(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if n == 1 || p.workers == 1 {
		runInline(n, fn)
		return
	}

	p.mu.RLock()
	if !p.running {
		p.mu.RUnlock()
		runInline(n, fn)
		return
	}
	var wg sync.WaitGroup
	wg.Add(n)
	start := int(p.next.Add(1))
	for i := range n {
		task := func() {
			defer wg.Done()
			fn(i)
		}
		p.queues[(start+i)%p.workers] <- task
	}
	p.mu.RUnlock()
	wg.Wait()
}

func runInline(n int, fn func(i int)) {
	for i := range n {
		fn(i)
	}
}

// Close stops the workers after they finish queued tasks. It waits for
// concurrent Run calls to finish enqueuing; later calls run inline.
// Close is idempotent. Tasks must not call Run.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.done)
	p.mu.Unlock()
	p.wg.Wait()
}
