package settings

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/platinummonkey/otpgate/pkg/observability"
)

// Manager owns the current OTPConfig snapshot
type Manager struct {
	store   Store
	current atomic.Pointer[OTPConfig]
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewManager creates a manager seeded with defaults. store may be nil, in
// which case Load only returns the current snapshot.
func NewManager(defaults OTPConfig, store Store, logger *observability.Logger, metrics *observability.Metrics) *Manager {
	if logger == nil {
		logger = observability.Nop()
	}
	m := &Manager{
		store:   store,
		logger:  logger.WithField("component", "settings"),
		metrics: metrics,
	}
	cfg := defaults
	m.current.Store(&cfg)
	return m
}

// Current returns the snapshot in effect without reloading
func (m *Manager) Current() OTPConfig {
	return *m.current.Load()
}

// Load fetches the latest record from the store and merges it onto the
// current snapshot. Fetch errors are logged and the previous snapshot is
// returned.
func (m *Manager) Load(ctx context.Context) OTPConfig {
	if m.store == nil {
		return m.Current()
	}

	rec, err := m.store.Fetch(ctx)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			m.metrics.RecordSettingsReload("missing")
			return m.Current()
		}
		observability.WithTraceContext(ctx, m.logger).WithError(err).Warn("settings fetch failed, keeping previous snapshot")
		m.metrics.RecordSettingsReload("error")
		return m.Current()
	}

	for {
		prev := m.current.Load()
		next := rec.Apply(*prev)
		if m.current.CompareAndSwap(prev, &next) {
			m.metrics.RecordSettingsReload("ok")
			return next
		}
	}
}
