package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DBWriter stores attempts in the otp_attempts table
type DBWriter struct {
	db *sql.DB
}

// NewDBWriter creates a database-backed writer. The schema is owned by
// storage.Migrate.
func NewDBWriter(db *sql.DB) (*DBWriter, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &DBWriter{db: db}, nil
}

// Write inserts the attempt and sets its ID
func (w *DBWriter) Write(ctx context.Context, attempt *Attempt) error {
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO otp_attempts (
			phone, mode, provider, request_id, status, error_code, error_message,
			otp_last2, ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	err := w.db.QueryRowContext(ctx, query,
		attempt.Phone,
		string(attempt.Mode),
		attempt.Provider,
		attempt.RequestID,
		string(attempt.Status),
		attempt.ErrorCode,
		attempt.ErrorMessage,
		attempt.OTPLast2,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.CreatedAt,
	).Scan(&attempt.ID)
	if err != nil {
		return fmt.Errorf("failed to insert otp attempt: %w", err)
	}

	return nil
}

// Close is a no-op; the database handle is owned by the caller
func (w *DBWriter) Close() error {
	return nil
}
