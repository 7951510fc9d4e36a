package ratelimit

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/otpgate/pkg/observability"
)

// Sweeper drops expired state
type Sweeper interface {
	Sweep() int
}

// ScheduleSweep registers a job on c that sweeps every limiter at interval
func ScheduleSweep(c *cron.Cron, interval time.Duration, logger *observability.Logger, sweepers ...Sweeper) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("sweep interval must be positive")
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		total := 0
		for _, s := range sweepers {
			total += s.Sweep()
		}
		if total > 0 {
			logger.WithField("removed", total).Debug("swept expired rate windows")
		}
	})
}
