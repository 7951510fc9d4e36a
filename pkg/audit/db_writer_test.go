package audit

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/otpgate/pkg/storage"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock
}

func setupSQLite(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	cfg := storage.DefaultConfig()
	cfg.URL = "file:" + t.Name() + "?mode=memory&cache=shared"
	cfg.MaxOpenConns = 1

	db, err := storage.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.Migrate(ctx, db, storage.DriverSQLite))
	return db
}

func TestNewDBWriter(t *testing.T) {
	t.Run("nil database", func(t *testing.T) {
		w, err := NewDBWriter(nil)
		assert.Error(t, err)
		assert.Nil(t, w)
		assert.Contains(t, err.Error(), "database connection is required")
	})

	t.Run("success", func(t *testing.T) {
		db, _ := setupMockDB(t)
		defer db.Close()

		w, err := NewDBWriter(db)
		require.NoError(t, err)
		assert.NotNil(t, w)
	})
}

func TestDBWriter_Write(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db, mock := setupMockDB(t)
		defer db.Close()

		w, err := NewDBWriter(db)
		require.NoError(t, err)

		created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		mock.ExpectQuery("INSERT INTO otp_attempts").
			WithArgs("+919876543210", "send", "2factor", "req-1", "sent", "", "", "42", "10.0.0.1", "curl/8", created).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

		attempt := &Attempt{
			Phone:     "+919876543210",
			Mode:      ModeSend,
			Provider:  "2factor",
			RequestID: "req-1",
			Status:    StatusSent,
			OTPLast2:  "42",
			IPAddress: "10.0.0.1",
			UserAgent: "curl/8",
			CreatedAt: created,
		}
		require.NoError(t, w.Write(context.Background(), attempt))
		assert.Equal(t, int64(7), attempt.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert error", func(t *testing.T) {
		db, mock := setupMockDB(t)
		defer db.Close()

		w, err := NewDBWriter(db)
		require.NoError(t, err)

		mock.ExpectQuery("INSERT INTO otp_attempts").WillReturnError(errors.New("connection reset"))

		err = w.Write(context.Background(), &Attempt{Phone: "+919876543210", Mode: ModeVerify, Status: StatusFailed})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert otp attempt")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sets created at", func(t *testing.T) {
		db, mock := setupMockDB(t)
		defer db.Close()

		w, err := NewDBWriter(db)
		require.NoError(t, err)

		mock.ExpectQuery("INSERT INTO otp_attempts").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		attempt := &Attempt{Phone: "+919876543210", Mode: ModeSend, Status: StatusSent}
		require.NoError(t, w.Write(context.Background(), attempt))
		assert.False(t, attempt.CreatedAt.IsZero())
	})
}

func TestDBWriter_WriteSQLite(t *testing.T) {
	db := setupSQLite(t)
	w, err := NewDBWriter(db)
	require.NoError(t, err)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	attempts := []*Attempt{
		{Phone: "+919876543210", Mode: ModeSend, Provider: "mock", RequestID: "mock_1", Status: StatusSent, CreatedAt: base},
		{Phone: "+919876543210", Mode: ModeVerify, Provider: "mock", RequestID: "mock_1", Status: StatusFailed,
			ErrorCode: "OTP_INVALID", ErrorMessage: "Invalid OTP", CreatedAt: base.Add(time.Minute)},
	}
	for _, a := range attempts {
		require.NoError(t, w.Write(ctx, a))
		assert.NotZero(t, a.ID)
	}

	var (
		mode, status, code, last2 string
	)
	err = db.QueryRowContext(ctx, `
		SELECT mode, status, error_code, otp_last2 FROM otp_attempts
		WHERE phone = $1 ORDER BY created_at DESC LIMIT 1
	`, "+919876543210").Scan(&mode, &status, &code, &last2)
	require.NoError(t, err)
	assert.Equal(t, string(ModeVerify), mode)
	assert.Equal(t, string(StatusFailed), status)
	assert.Equal(t, "OTP_INVALID", code)
	assert.Empty(t, last2)
}
