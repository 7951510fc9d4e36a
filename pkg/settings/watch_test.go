package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_WatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "otp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("senderId: FIRST\n"), 0o600))

	mgr := NewManager(defaults(), NewFileStore(path), nil, nil)
	require.Equal(t, "FIRST", mgr.Load(context.Background()).SenderID)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Watch(ctx, path) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("senderId: SECOND\n"), 0o600))

	assert.Eventually(t, func() bool {
		return mgr.Current().SenderID == "SECOND"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not return after cancel")
	}
}
