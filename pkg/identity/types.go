package identity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no identity or profile matches
	ErrNotFound = errors.New("identity not found")
	// ErrConflict is returned on a unique phone or email violation
	ErrConflict = errors.New("identity conflict")
	// ErrInvalidPhone is returned when the phone does not normalize
	ErrInvalidPhone = errors.New("invalid phone")
	// ErrInvalidEmail is returned when an email fails the shape check
	ErrInvalidEmail = errors.New("invalid email")
	// ErrMissingUserID is returned when an email update has no user id
	ErrMissingUserID = errors.New("userId is required")
	// ErrIdentityUpdate wraps a failed identity email update
	ErrIdentityUpdate = errors.New("identity update failed")
	// ErrProfileSync wraps a failed profile email sync after the identity changed
	ErrProfileSync = errors.New("profile sync failed")
)

const (
	RoleAgent    = "agent"
	StatusActive = "active"
)

// Identity is the authentication record of an agent
type Identity struct {
	ID             string
	Phone          string
	Email          string
	PasswordHash   string
	EmailConfirmed bool
	DisplayName    string
	Role           string
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Profile is the directory record of an agent, keyed by identity id
type Profile struct {
	UserID    string
	Name      string
	Email     string
	Phone     string
	Role      string
	Status    string
	UpdatedAt time.Time
}

// Credentials are returned to the caller after provisioning
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	UserID   string `json:"userId"`
}

// Store persists identities and profiles
type Store interface {
	FindByPhone(ctx context.Context, phone string) (*Identity, error)
	FindByID(ctx context.Context, id string) (*Identity, error)
	CreateIdentity(ctx context.Context, ident *Identity) error
	UpdateIdentity(ctx context.Context, ident *Identity) error
	UpsertProfile(ctx context.Context, profile *Profile) error
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	// UpdateEmail sets the identity email and marks it confirmed
	UpdateEmail(ctx context.Context, userID, email string) error
	UpdateProfileEmail(ctx context.Context, userID, email string) error
}

// Transactor is implemented by stores that can run several writes atomically
type Transactor interface {
	WithTx(ctx context.Context, fn func(Store) error) error
}
