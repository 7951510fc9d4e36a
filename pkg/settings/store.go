package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultKey names the settings row holding the OTP configuration
const DefaultKey = "sms_otp"

// ErrNoRecord is returned when the store holds no record for the key
var ErrNoRecord = errors.New("settings record not found")

// Store fetches the latest settings record
type Store interface {
	Fetch(ctx context.Context) (*Record, error)
}

// SQLStore reads a JSON record from the app_settings table
type SQLStore struct {
	db  *sql.DB
	key string
}

// NewSQLStore creates a store reading the row named key
func NewSQLStore(db *sql.DB, key string) *SQLStore {
	if key == "" {
		key = DefaultKey
	}
	return &SQLStore{db: db, key: key}
}

// Fetch implements Store
func (s *SQLStore) Fetch(ctx context.Context) (*Record, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key = $1`, s.key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query settings %s: %w", s.key, err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode settings %s: %w", s.key, err)
	}
	return &rec, nil
}

// FileStore reads a YAML record from disk
type FileStore struct {
	path string
}

// NewFileStore creates a store reading path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file location
func (s *FileStore) Path() string {
	return s.path
}

// Fetch implements Store
func (s *FileStore) Fetch(ctx context.Context) (*Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", s.path, err)
	}
	return &rec, nil
}
