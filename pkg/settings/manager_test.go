package settings

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/otpgate/pkg/observability"
)

type stubStore struct {
	mu  sync.Mutex
	rec *Record
	err error
}

func (s *stubStore) Fetch(ctx context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.rec, nil
}

func (s *stubStore) set(rec *Record, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec, s.err = rec, err
}

func defaults() OTPConfig {
	return OTPConfig{Provider: "2factor", Mode: ModeMock, SendEnabled: true, VerifyEnabled: true}
}

func TestManager_LoadMergesRecord(t *testing.T) {
	store := &stubStore{rec: &Record{Mode: strPtr("live"), APIKey: strPtr("secret")}}
	mgr := NewManager(defaults(), store, nil, nil)

	cfg := mgr.Load(context.Background())
	assert.Equal(t, ModeLive, cfg.Mode)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.True(t, cfg.SendEnabled)
	assert.Equal(t, cfg, mgr.Current())
}

func TestManager_FetchErrorKeepsSnapshot(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	store := &stubStore{rec: &Record{APIKey: strPtr("first")}}
	mgr := NewManager(defaults(), store, nil, metrics)

	require.Equal(t, "first", mgr.Load(context.Background()).APIKey)

	store.set(nil, errors.New("connection refused"))
	cfg := mgr.Load(context.Background())
	assert.Equal(t, "first", cfg.APIKey)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SettingsReloadsTotal.WithLabelValues("error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SettingsReloadsTotal.WithLabelValues("ok")))
}

func TestManager_MissingRecordUsesDefaults(t *testing.T) {
	store := &stubStore{err: ErrNoRecord}
	mgr := NewManager(defaults(), store, nil, nil)
	assert.Equal(t, defaults(), mgr.Load(context.Background()))
}

func TestManager_NilStore(t *testing.T) {
	mgr := NewManager(defaults(), nil, nil, nil)
	assert.Equal(t, defaults(), mgr.Load(context.Background()))
	assert.Equal(t, defaults(), mgr.Current())
}

func TestManager_ConcurrentLoadAndRead(t *testing.T) {
	store := &stubStore{rec: &Record{SenderID: strPtr("A"), TemplateText: strPtr("A")}}
	mgr := NewManager(defaults(), store, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			v := "A"
			if i%2 == 0 {
				v = "B"
			}
			store.set(&Record{SenderID: strPtr(v), TemplateText: strPtr(v)}, nil)
			mgr.Load(context.Background())
		}(i)
		go func() {
			defer wg.Done()
			cfg := mgr.Current()
			// both fields are always written together
			assert.Equal(t, cfg.SenderID, cfg.TemplateText)
		}()
	}
	wg.Wait()
}
