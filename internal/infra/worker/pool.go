package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"

	"video-analyzer/internal/infra/metrics"
)

var (
	ErrQueueFull = errors.New("worker queue full")
	ErrNilTask   = errors.New("nil task")
	ErrStopped   = errors.New("worker pool stopped")
)

type Task func(ctx context.Context) error

// Pool runs tasks on a fixed number of goroutines fed by a bounded queue.
// Submit never blocks; when the queue is full the task is rejected.
type Pool struct {
	wg      sync.WaitGroup
	tasks   chan Task
	quit    chan struct{}
	stop    sync.Once
	stopped chan struct{}
	n       int
	log     *zerolog.Logger
}

func NewPool(workers, queueSize int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = workers * 4
	}
	l := logger.With().Str("component", "WorkerPool").Logger()
	return &Pool{
		tasks:   make(chan Task, queueSize),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		n:       workers,
		log:     &l,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go p.loop(ctx, i)
	}
	p.log.Info().Int("workers", p.n).Int("queue", cap(p.tasks)).Msg("worker pool started")
}

func (p *Pool) loop(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.quit:
			return
		case task := <-p.tasks:
			metrics.SetQueueDepth(len(p.tasks))
			if err := p.safeRun(ctx, task); err != nil {
				p.log.Error().Err(err).Int("worker", id).Msg("task error")
			}
		}
	}
}

// safeRun keeps one panicking task from taking the worker down with it.
func (p *Pool) safeRun(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncWorkerPanic()
			p.log.Error().Str("stack", string(debug.Stack())).Msg("task panicked")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task(ctx)
}

// Stop lets running tasks finish and drops whatever is still queued.
func (p *Pool) Stop() {
	p.stop.Do(func() {
		close(p.quit)
		p.wg.Wait()
		close(p.stopped)
		p.log.Info().Int("dropped", len(p.tasks)).Msg("worker pool stopped")
	})
	<-p.stopped
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return ErrNilTask
	}
	select {
	case <-p.quit:
		return ErrStopped
	default:
	}
	select {
	case p.tasks <- task:
		metrics.SetQueueDepth(len(p.tasks))
		return nil
	default:
		return ErrQueueFull
	}
}

// Len is the number of queued tasks not yet picked up by a worker.
func (p *Pool) Len() int { return len(p.tasks) }
