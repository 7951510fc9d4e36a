package audit

import (
	"context"
	"errors"
	"time"

	"github.com/platinummonkey/otpgate/pkg/async"
	"github.com/platinummonkey/otpgate/pkg/contextkeys"
	"github.com/platinummonkey/otpgate/pkg/observability"
)

// Failure reasons reported to metrics
const (
	ReasonQueueFull  = "queue_full"
	ReasonClosed     = "closed"
	ReasonWriteError = "write_error"
)

// Failure is an attempt that could not be persisted
type Failure struct {
	Attempt Attempt
	Reason  string
	Err     error
}

// RecorderConfig sizes the background write pool
type RecorderConfig struct {
	Workers      int
	QueueSize    int
	WriteTimeout time.Duration
	// FailureBuffer is the capacity of the Failures channel; zero means 64
	FailureBuffer int
}

// Recorder persists attempts off the request path
type Recorder struct {
	writer   Writer
	pool     *async.WorkerPool
	logger   *observability.Logger
	metrics  *observability.Metrics
	failures chan Failure
}

// NewRecorder starts a recorder writing through writer
func NewRecorder(ctx context.Context, writer Writer, cfg RecorderConfig, logger *observability.Logger, metrics *observability.Metrics) *Recorder {
	if logger == nil {
		logger = observability.Nop()
	}
	if cfg.FailureBuffer <= 0 {
		cfg.FailureBuffer = 64
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	logger = logger.WithField("component", "audit")
	return &Recorder{
		writer: writer,
		pool: async.NewWorkerPool(ctx, async.PoolConfig{
			Name:      "audit",
			Workers:   cfg.Workers,
			QueueSize: cfg.QueueSize,
			Timeout:   cfg.WriteTimeout,
			Logger:    logger,
		}),
		logger:   logger,
		metrics:  metrics,
		failures: make(chan Failure, cfg.FailureBuffer),
	}
}

// Record queues the attempt for writing and returns immediately
func (r *Recorder) Record(ctx context.Context, attempt Attempt) {
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}

	logger := r.logger
	if id := contextkeys.GetRequestID(ctx); id != "" {
		logger = logger.WithField("request_id", id)
	}

	err := r.pool.TrySubmit(func(ctx context.Context) error {
		if err := r.writer.Write(ctx, &attempt); err != nil {
			r.fail(logger, attempt, ReasonWriteError, err)
			return nil
		}
		r.metrics.RecordAuditWrite()
		return nil
	})

	switch {
	case errors.Is(err, async.ErrPoolFull):
		r.fail(logger, attempt, ReasonQueueFull, err)
	case errors.Is(err, async.ErrPoolClosed):
		r.fail(logger, attempt, ReasonClosed, err)
	}
}

func (r *Recorder) fail(logger *observability.Logger, attempt Attempt, reason string, err error) {
	logger.WithError(err).WithFields(map[string]interface{}{
		"phone":  attempt.Phone,
		"mode":   string(attempt.Mode),
		"status": string(attempt.Status),
		"reason": reason,
	}).Warn("failed to record otp attempt")
	r.metrics.RecordAuditFailure(reason)

	select {
	case r.failures <- Failure{Attempt: attempt, Reason: reason, Err: err}:
	default:
	}
}

// Failures returns a channel of attempts that could not be persisted.
// Failures are dropped when nobody drains it.
func (r *Recorder) Failures() <-chan Failure {
	return r.failures
}

// Close drains queued attempts, waiting up to timeout, then closes the writer
func (r *Recorder) Close(timeout time.Duration) error {
	poolErr := r.pool.Shutdown(timeout)
	return errors.Join(poolErr, r.writer.Close())
}
