package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeGo_Success(t *testing.T) {
	done := make(chan struct{})
	SafeGo(context.Background(), time.Second, "test task", func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SafeGo did not execute function")
	}
}

func TestSafeGo_PanicRecovered(t *testing.T) {
	done := make(chan struct{})
	SafeGo(context.Background(), time.Second, "panicking task", func(ctx context.Context) error {
		defer close(done)
		panic("boom")
	})
	<-done
	// the test process is still alive
}

func TestSafeGo_Timeout(t *testing.T) {
	got := make(chan error, 1)
	SafeGo(context.Background(), 20*time.Millisecond, "slow task", func(ctx context.Context) error {
		<-ctx.Done()
		got <- ctx.Err()
		return ctx.Err()
	})
	select {
	case err := <-got:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("timeout not enforced")
	}
}

func TestWorkerPool_RunsTasks(t *testing.T) {
	pool := NewWorkerPool(context.Background(), PoolConfig{Name: "test", Workers: 3, QueueSize: 10})

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, pool.TrySubmit(func(ctx context.Context) error {
			count.Add(1)
			return nil
		}))
	}

	require.NoError(t, pool.Shutdown(time.Second))
	assert.Equal(t, int32(10), count.Load())
}

func TestWorkerPool_TrySubmitFull(t *testing.T) {
	pool := NewWorkerPool(context.Background(), PoolConfig{Name: "test", Workers: 1, QueueSize: 1})

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.TrySubmit(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	// worker busy, queue has one slot
	require.NoError(t, pool.TrySubmit(func(ctx context.Context) error { return nil }))
	assert.ErrorIs(t, pool.TrySubmit(func(ctx context.Context) error { return nil }), ErrPoolFull)

	close(release)
	require.NoError(t, pool.Shutdown(time.Second))
}

func TestWorkerPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(context.Background(), PoolConfig{Name: "test", Workers: 1})
	require.NoError(t, pool.Shutdown(time.Second))

	assert.ErrorIs(t, pool.TrySubmit(func(ctx context.Context) error { return nil }), ErrPoolClosed)
	// second shutdown is a no-op
	assert.NoError(t, pool.Shutdown(time.Second))
}

func TestWorkerPool_SurvivesFailingTasks(t *testing.T) {
	pool := NewWorkerPool(context.Background(), PoolConfig{Name: "test", Workers: 1, QueueSize: 4})

	var ran atomic.Bool
	require.NoError(t, pool.TrySubmit(func(ctx context.Context) error { return errors.New("write failed") }))
	require.NoError(t, pool.TrySubmit(func(ctx context.Context) error { panic("bad") }))
	require.NoError(t, pool.TrySubmit(func(ctx context.Context) error {
		ran.Store(true)
		return nil
	}))
	require.NoError(t, pool.Shutdown(time.Second))

	assert.True(t, ran.Load())
}

func TestWorkerPool_TaskTimeout(t *testing.T) {
	pool := NewWorkerPool(context.Background(), PoolConfig{Name: "test", Workers: 1, Timeout: 20 * time.Millisecond})

	got := make(chan error, 1)
	require.NoError(t, pool.TrySubmit(func(ctx context.Context) error {
		<-ctx.Done()
		got <- ctx.Err()
		return ctx.Err()
	}))
	require.NoError(t, pool.Shutdown(time.Second))

	select {
	case err := <-got:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("expected timeout error")
	}
}

func TestWorkerPool_ShutdownWithFullQueue(t *testing.T) {
	pool := NewWorkerPool(context.Background(), PoolConfig{Name: "test", Workers: 1, QueueSize: 1})

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.TrySubmit(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.NoError(t, pool.TrySubmit(func(ctx context.Context) error { return nil }))

	// producers racing a shutdown never block on the full queue
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.TrySubmit(func(ctx context.Context) error { return nil })
		}()
	}
	wg.Wait()

	close(release)
	assert.NoError(t, pool.Shutdown(time.Second))
}
