package ratelimit

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Sweep() int {
	s.calls.Add(1)
	return 1
}

func TestScheduleSweep(t *testing.T) {
	c := cron.New()
	s := &countingSweeper{}

	_, err := ScheduleSweep(c, time.Second, nil, s)
	require.NoError(t, err)

	c.Start()
	defer c.Stop()

	assert.Eventually(t, func() bool { return s.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduleSweep_InvalidInterval(t *testing.T) {
	_, err := ScheduleSweep(cron.New(), 0, nil)
	assert.Error(t, err)
}
