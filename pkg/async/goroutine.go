package async

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/platinummonkey/otpgate/pkg/observability"
)

var (
	// ErrPoolClosed is returned when submitting to a pool that was shut down
	ErrPoolClosed = errors.New("worker pool shut down")
	// ErrPoolFull is returned by TrySubmit when the queue has no free slot
	ErrPoolFull = errors.New("worker pool queue full")
)

// Task is a unit of work run by a WorkerPool
type Task func(ctx context.Context) error

// SafeGo executes fn in a goroutine with panic recovery and a timeout.
// Errors are logged, never propagated.
//
//	SafeGo(ctx, 5*time.Second, "settings watch", func(ctx context.Context) error {
//	    return watcher.Run(ctx)
//	})
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	logger := observability.FromContext(parentCtx).WithField("task", taskName)
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.WithField("stack", string(debug.Stack())).Errorf("panic: %v", r)
			}
		}()

		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Warn("background task failed")
		}
	}()
}

// PoolConfig configures a WorkerPool
type PoolConfig struct {
	Name      string
	Workers   int
	QueueSize int
	// Timeout bounds each task; zero means 30s
	Timeout time.Duration
	Logger  *observability.Logger
}

// WorkerPool runs submitted tasks on a fixed number of goroutines
type WorkerPool struct {
	cfg    PoolConfig
	workCh chan Task

	mu     sync.RWMutex
	closed bool

	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// NewWorkerPool creates and starts a worker pool
func NewWorkerPool(ctx context.Context, cfg PoolConfig) *WorkerPool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.Nop()
	}
	cfg.Logger = cfg.Logger.WithField("pool", cfg.Name)

	ctx, cancel := context.WithCancel(ctx)
	p := &WorkerPool{
		cfg:    cfg,
		workCh: make(chan Task, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// TrySubmit queues fn without blocking
func (p *WorkerPool) TrySubmit(fn Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.workCh <- fn:
		return nil
	default:
		return ErrPoolFull
	}
}

// Shutdown stops accepting tasks and waits up to timeout for queued tasks to
// finish.
func (p *WorkerPool) Shutdown(timeout time.Duration) error {
	var shutdownErr error
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.workCh)
		p.mu.Unlock()

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(timeout):
			shutdownErr = fmt.Errorf("worker pool %s shutdown timed out after %v", p.cfg.Name, timeout)
		}
		p.cancel()
	})
	return shutdownErr
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for fn := range p.workCh {
		p.run(fn)
	}
}

func (p *WorkerPool) run(fn Task) {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			p.cfg.Logger.WithField("stack", string(debug.Stack())).Errorf("panic in task: %v", r)
		}
	}()

	if err := fn(ctx); err != nil {
		p.cfg.Logger.WithError(err).Warn("task failed")
	}
}
