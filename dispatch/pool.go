package dispatch

import (
	"log/slog"
	"sync"
)

// Pool runs tasks on background goroutines, at most maxConcurrent
// at a time.
type Pool struct {
	wg     sync.WaitGroup
	sem    chan struct{}
	logger *slog.Logger

	// mu orders wg.Add against Shutdown so Wait after Shutdown sees
	// every accepted task.
	mu       sync.Mutex
	shutdown bool
}

// NewPool creates a Pool with the given concurrency limit.
// If maxConcurrent <= 0, concurrency is unlimited.
func NewPool(maxConcurrent int, optFns ...Option) *Pool {
	opts := buildOptions(optFns)

	p := &Pool{logger: opts.logger}
	if maxConcurrent > 0 {
		p.sem = make(chan struct{}, maxConcurrent)
	}

	return p
}

// Submit launches task in a new goroutine managed by the pool. The
// goroutine waits for a free slot before running it.
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return ErrShutdown
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		if p.sem != nil {
			p.sem <- struct{}{}
			defer func() {
				<-p.sem
			}()
		}

		run(p.logger, task)
	}()

	return nil
}

// Wait blocks until every accepted task has finished. Call it after
// Shutdown when Submit may still be called concurrently.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Shutdown prevents new work from being accepted. Accepted
// tasks still run.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.shutdown = true
}
