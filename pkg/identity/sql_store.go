package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// queryer is satisfied by *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SQLStore keeps identities in agent_identities and profiles in
// agent_profiles. The same statements run on postgres and sqlite3.
type SQLStore struct {
	db *sql.DB
	q  queryer
}

// NewSQLStore creates a store on db
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, q: db}
}

// WithTx runs fn against a store bound to one transaction
func (s *SQLStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.db == nil {
		// already inside a transaction
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&SQLStore{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const identityColumns = `id, phone, email, password_hash, email_confirmed, display_name, role, status, created_at, updated_at`

func scanIdentity(row *sql.Row) (*Identity, error) {
	var ident Identity
	err := row.Scan(
		&ident.ID,
		&ident.Phone,
		&ident.Email,
		&ident.PasswordHash,
		&ident.EmailConfirmed,
		&ident.DisplayName,
		&ident.Role,
		&ident.Status,
		&ident.CreatedAt,
		&ident.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan identity: %w", err)
	}
	return &ident, nil
}

// FindByPhone returns the identity for a canonical phone
func (s *SQLStore) FindByPhone(ctx context.Context, phone string) (*Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM agent_identities WHERE phone = $1`
	return scanIdentity(s.q.QueryRowContext(ctx, query, phone))
}

// FindByID returns the identity with id
func (s *SQLStore) FindByID(ctx context.Context, id string) (*Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM agent_identities WHERE id = $1`
	return scanIdentity(s.q.QueryRowContext(ctx, query, id))
}

// CreateIdentity inserts a new identity
func (s *SQLStore) CreateIdentity(ctx context.Context, ident *Identity) error {
	query := `
		INSERT INTO agent_identities (` + identityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.q.ExecContext(ctx, query,
		ident.ID,
		ident.Phone,
		ident.Email,
		ident.PasswordHash,
		ident.EmailConfirmed,
		ident.DisplayName,
		ident.Role,
		ident.Status,
		ident.CreatedAt,
		ident.UpdatedAt,
	)
	if err != nil {
		return classify("failed to create identity", err)
	}
	return nil
}

// UpdateIdentity rewrites email, password, name, role, status and phone
func (s *SQLStore) UpdateIdentity(ctx context.Context, ident *Identity) error {
	query := `
		UPDATE agent_identities
		SET phone = $1, email = $2, password_hash = $3, display_name = $4,
			role = $5, status = $6, updated_at = $7
		WHERE id = $8
	`
	result, err := s.q.ExecContext(ctx, query,
		ident.Phone,
		ident.Email,
		ident.PasswordHash,
		ident.DisplayName,
		ident.Role,
		ident.Status,
		ident.UpdatedAt,
		ident.ID,
	)
	if err != nil {
		return classify("failed to update identity", err)
	}
	return requireRow(result)
}

// UpsertProfile inserts or replaces the profile for profile.UserID
func (s *SQLStore) UpsertProfile(ctx context.Context, profile *Profile) error {
	query := `
		INSERT INTO agent_profiles (user_id, name, email, phone, role, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			phone = excluded.phone,
			role = excluded.role,
			status = excluded.status,
			updated_at = excluded.updated_at
	`
	_, err := s.q.ExecContext(ctx, query,
		profile.UserID,
		profile.Name,
		profile.Email,
		profile.Phone,
		profile.Role,
		profile.Status,
		profile.UpdatedAt,
	)
	if err != nil {
		return classify("failed to upsert profile", err)
	}
	return nil
}

// GetProfile returns the profile for userID
func (s *SQLStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	query := `
		SELECT user_id, name, email, phone, role, status, updated_at
		FROM agent_profiles WHERE user_id = $1
	`
	var p Profile
	err := s.q.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Name, &p.Email, &p.Phone, &p.Role, &p.Status, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// UpdateEmail sets the identity email and marks it confirmed
func (s *SQLStore) UpdateEmail(ctx context.Context, userID, email string) error {
	query := `
		UPDATE agent_identities
		SET email = $1, email_confirmed = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := s.q.ExecContext(ctx, query, email, true, time.Now().UTC(), userID)
	if err != nil {
		return classify("failed to update identity email", err)
	}
	return requireRow(result)
}

// UpdateProfileEmail sets the profile email
func (s *SQLStore) UpdateProfileEmail(ctx context.Context, userID, email string) error {
	query := `UPDATE agent_profiles SET email = $1, updated_at = $2 WHERE user_id = $3`
	result, err := s.q.ExecContext(ctx, query, email, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to update profile email: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// classify wraps err, mapping unique violations from either driver to ErrConflict
func classify(msg string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w: %v", msg, ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
