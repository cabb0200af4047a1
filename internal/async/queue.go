package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ErrPoolClosed is returned by Submit after Shutdown.
var ErrPoolClosed = errors.New("pool is shut down")

// Task is one unit of work. ID is only used for logging and for matching outcomes.
type Task[T any] struct {
	ID  string
	Run func(ctx context.Context) (T, error)
}

// Outcome is the result of a Task. A panic inside Run is reported as Err.
type Outcome[T any] struct {
	ID      string
	Value   T
	Err     error
	Elapsed time.Duration
}

type config struct {
	workers   int
	queueSize int
	timeout   time.Duration
}

type Option func(*config)

func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithTaskTimeout bounds each task; zero leaves tasks bounded only by the pool context.
func WithTaskTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Pool runs tasks on a fixed number of workers. Outcomes are delivered in
// completion order and the Results channel closes once every worker exits.
type Pool[T any] struct {
	ctx    context.Context
	cfg    config
	logger *slog.Logger

	tasks   chan Task[T]
	results chan Outcome[T]
	wg      sync.WaitGroup
	once    sync.Once

	mu     sync.Mutex
	closed bool
}

func NewPool[T any](ctx context.Context, logger *slog.Logger, opts ...Option) *Pool[T] {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := config{workers: 3, queueSize: 64}
	for _, o := range opts {
		o(&cfg)
	}
	p := &Pool[T]{
		ctx:     ctx,
		cfg:     cfg,
		logger:  logger,
		tasks:   make(chan Task[T], cfg.queueSize),
		results: make(chan Outcome[T], cfg.queueSize),
	}
	p.start()
	return p
}

func (p *Pool[T]) start() {
	p.once.Do(func() {
		for i := 0; i < p.cfg.workers; i++ {
			p.wg.Add(1)
			go func(workerID int) {
				defer p.wg.Done()
				p.logger.Debug("pool.worker.started", "worker_id", workerID)
				for t := range p.tasks {
					p.results <- p.run(workerID, t)
				}
				p.logger.Debug("pool.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
		go func() {
			p.wg.Wait()
			close(p.results)
		}()
	})
}

func (p *Pool[T]) run(workerID int, t Task[T]) (out Outcome[T]) {
	start := time.Now()
	out.ID = t.ID
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pool.task.panic", "worker_id", workerID, "task_id", t.ID, "panic", r, "stack", string(debug.Stack()))
			out.Err = fmt.Errorf("task %s panicked: %v", t.ID, r)
		}
		out.Elapsed = time.Since(start)
	}()

	ctx := p.ctx
	if p.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.timeout)
		defer cancel()
	}
	out.Value, out.Err = t.Run(ctx)
	if out.Err != nil {
		p.logger.Warn("pool.task.failed", "worker_id", workerID, "task_id", t.ID, "error", out.Err)
	}
	return out
}

// Submit queues a task, blocking while the queue is full.
func (p *Pool[T]) Submit(ctx context.Context, t Task[T]) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results streams outcomes in completion order.
func (p *Pool[T]) Results() <-chan Outcome[T] { return p.results }

// Shutdown stops accepting tasks and waits for queued ones to finish or ctx to end.
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); p.wg.Wait() }()

	select {
	case <-ctx.Done():
		p.logger.Warn("pool.shutdown.interrupted")
		return ctx.Err()
	case <-done:
		p.logger.Debug("pool.shutdown.drained")
		return nil
	}
}

// RunAll runs every task on a fresh pool and returns outcomes in completion order.
// Tasks that could not be submitted because ctx ended are reported as failed
// outcomes after the others, so there is always one outcome per task.
func RunAll[T any](ctx context.Context, logger *slog.Logger, tasks []Task[T], opts ...Option) []Outcome[T] {
	type unsent struct {
		tasks []Task[T]
		err   error
	}
	p := NewPool[T](ctx, logger, opts...)
	skipped := make(chan unsent, 1)
	go func() {
		var rest unsent
		for i, t := range tasks {
			if err := p.Submit(ctx, t); err != nil {
				rest = unsent{tasks: tasks[i:], err: err}
				break
			}
		}
		skipped <- rest
		_ = p.Shutdown(context.Background())
	}()

	out := make([]Outcome[T], 0, len(tasks))
	for o := range p.Results() {
		out = append(out, o)
	}
	rest := <-skipped
	if len(rest.tasks) > 0 {
		p.logger.Warn("pool.run_all.skipped", "tasks", len(rest.tasks), "error", rest.err)
	}
	for _, t := range rest.tasks {
		out = append(out, Outcome[T]{ID: t.ID, Err: fmt.Errorf("task %s not started: %w", t.ID, rest.err)})
	}
	return out
}
