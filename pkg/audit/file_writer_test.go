package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWriter_Basic(t *testing.T) {
	tmpDir := t.TempDir()

	w, err := NewFileWriter(FileWriterConfig{BasePath: tmpDir, MaxSize: 1024 * 1024, MaxFiles: 5})
	require.NoError(t, err)
	defer w.Close()

	err = w.Write(context.Background(), &Attempt{
		Phone:    "+919876543210",
		Mode:     ModeSend,
		Provider: "mock",
		Status:   StatusSent,
		OTPLast2: "07",
	})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(tmpDir, "audit.log"))

	attempts, err := w.ReadAttempts(10)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, "+919876543210", attempts[0].Phone)
	assert.Equal(t, "07", attempts[0].OTPLast2)
	assert.False(t, attempts[0].CreatedAt.IsZero())
}

func TestFileWriter_ReadCount(t *testing.T) {
	w, err := NewFileWriter(FileWriterConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Write(context.Background(), &Attempt{Phone: "+919876543210", Mode: ModeVerify, Status: StatusVerified}))
	}

	attempts, err := w.ReadAttempts(3)
	require.NoError(t, err)
	assert.Len(t, attempts, 3)

	attempts, err = w.ReadAttempts(0)
	require.NoError(t, err)
	assert.Len(t, attempts, 5)
}

func TestFileWriter_Rotation(t *testing.T) {
	tmpDir := t.TempDir()

	w, err := NewFileWriter(FileWriterConfig{BasePath: tmpDir, Rotate: true, MaxSize: 64, MaxFiles: 2})
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, w.Write(context.Background(), &Attempt{
			Phone:        "+919876543210",
			Mode:         ModeSend,
			Status:       StatusFailed,
			ErrorMessage: "Provider timeout",
		}))
	}

	rotated, err := filepath.Glob(filepath.Join(tmpDir, "audit-*.log"))
	require.NoError(t, err)
	assert.NotEmpty(t, rotated)
	assert.LessOrEqual(t, len(rotated), 2)
}

func TestFileWriter_Closed(t *testing.T) {
	w, err := NewFileWriter(FileWriterConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	err = w.Write(context.Background(), &Attempt{Phone: "+919876543210"})
	assert.EqualError(t, err, "audit log file is closed")
}

func TestNewFileWriter_Errors(t *testing.T) {
	_, err := NewFileWriter(FileWriterConfig{})
	assert.EqualError(t, err, "audit log directory is required")

	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, err = NewFileWriter(FileWriterConfig{BasePath: filepath.Join(file, "audit")})
	assert.Error(t, err)
}
