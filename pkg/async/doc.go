// Package async provides safe concurrent execution primitives for background tasks.
//
// # Overview
//
// SafeGo runs a function in a goroutine with panic recovery and a timeout.
// WorkerPool is a bounded pool used for best-effort background writes: callers
// that must never block use TrySubmit and treat ErrPoolFull as a dropped task.
//
//	pool := async.NewWorkerPool(ctx, async.PoolConfig{Name: "audit", Workers: 4, QueueSize: 256})
//	defer pool.Shutdown(5 * time.Second)
//
//	if err := pool.TrySubmit(func(ctx context.Context) error {
//		return writer.Write(ctx, attempt)
//	}); err != nil {
//		// queue full or pool closed
//	}
//
// Task errors and recovered panics are logged by the pool.
package async
