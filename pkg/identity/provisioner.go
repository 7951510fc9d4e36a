package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/otpgate/pkg/observability"
	"github.com/platinummonkey/otpgate/pkg/phone"
)

// DefaultAliasDomain is the domain of derived alias emails
const DefaultAliasDomain = "agents.otpgate.internal"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether email has the something@something.something shape
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Options configures a Provisioner
type Options struct {
	AliasDomain string
	CountryCode string
	// BcryptCost defaults to bcrypt.DefaultCost
	BcryptCost int
	Logger     *observability.Logger
	Metrics    *observability.Metrics
}

// Provisioner ensures agent identities exist for verified phones
type Provisioner struct {
	store       Store
	aliasDomain string
	countryCode string
	cost        int
	logger      *observability.Logger
	metrics     *observability.Metrics

	password func() (string, error)
	newID    func() string
	now      func() time.Time
}

// NewProvisioner creates a provisioner on store
func NewProvisioner(store Store, opts Options) *Provisioner {
	if opts.AliasDomain == "" {
		opts.AliasDomain = DefaultAliasDomain
	}
	if opts.CountryCode == "" {
		opts.CountryCode = phone.DefaultCountryCode
	}
	if opts.Logger == nil {
		opts.Logger = observability.Nop()
	}
	return &Provisioner{
		store:       store,
		aliasDomain: opts.AliasDomain,
		countryCode: opts.CountryCode,
		cost:        opts.BcryptCost,
		logger:      opts.Logger.WithField("component", "identity"),
		metrics:     opts.Metrics,
		password:    GeneratePassword,
		newID:       uuid.NewString,
		now:         time.Now,
	}
}

// AliasEmail derives the alias email for a canonical phone. Home-country
// numbers use their national digits; any other number keeps its calling code.
func (p *Provisioner) AliasEmail(canonical string) string {
	return fmt.Sprintf("agent.%s@%s", phone.NationalDigits(canonical, p.countryCode), p.aliasDomain)
}

// EnsureAgentIdentity creates or refreshes the identity and profile for
// rawPhone and returns freshly rotated credentials.
func (p *Provisioner) EnsureAgentIdentity(ctx context.Context, rawPhone, displayName string) (*Credentials, error) {
	canonical := phone.Normalize(rawPhone, p.countryCode)
	if !phone.IsValid(canonical) {
		return nil, ErrInvalidPhone
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = "Agent " + phone.Last(canonical, 4)
	}

	password, err := p.password()
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(password, p.cost)
	if err != nil {
		return nil, err
	}

	want := Identity{
		Phone:        canonical,
		Email:        p.AliasEmail(canonical),
		PasswordHash: hash,
		DisplayName:  displayName,
		Role:         RoleAgent,
		Status:       StatusActive,
	}

	logger := observability.WithTraceContext(ctx, p.logger).WithField("phone", canonical)

	var (
		userID  string
		created bool
	)
	// A unique conflict means a concurrent call created the identity first;
	// the second pass finds and updates it.
	for attempt := 0; attempt < 2; attempt++ {
		userID, created, err = p.apply(ctx, want)
		if !errors.Is(err, ErrConflict) {
			break
		}
	}
	if err != nil {
		p.metrics.RecordProvisioning("error")
		logger.WithError(err).Error("agent provisioning failed")
		return nil, err
	}

	result := "updated"
	if created {
		result = "created"
	}
	p.metrics.RecordProvisioning(result)
	logger.WithFields(map[string]interface{}{"user_id": userID, "result": result}).Info("agent identity provisioned")

	return &Credentials{Email: want.Email, Password: password, UserID: userID}, nil
}

// apply writes the identity and profile, atomically when the store supports it
func (p *Provisioner) apply(ctx context.Context, want Identity) (string, bool, error) {
	var (
		userID  string
		created bool
	)

	if tx, ok := p.store.(Transactor); ok {
		err := tx.WithTx(ctx, func(s Store) error {
			var err error
			userID, created, err = p.writeIdentity(ctx, s, want)
			if err != nil {
				return err
			}
			return s.UpsertProfile(ctx, p.profileFor(userID, want))
		})
		return userID, created, err
	}

	userID, created, err := p.writeIdentity(ctx, p.store, want)
	if err != nil {
		return "", false, err
	}

	profile := p.profileFor(userID, want)
	if err := p.store.UpsertProfile(ctx, profile); err != nil {
		p.logger.WithError(err).WithField("user_id", userID).Warn("profile upsert failed, retrying once")
		if err := p.store.UpsertProfile(ctx, profile); err != nil {
			return "", false, fmt.Errorf("identity %s written but profile upsert failed: %w", userID, err)
		}
	}
	return userID, created, nil
}

func (p *Provisioner) writeIdentity(ctx context.Context, s Store, want Identity) (string, bool, error) {
	now := p.now().UTC()

	existing, err := s.FindByPhone(ctx, want.Phone)
	switch {
	case errors.Is(err, ErrNotFound):
		ident := want
		ident.ID = p.newID()
		ident.CreatedAt = now
		ident.UpdatedAt = now
		if err := s.CreateIdentity(ctx, &ident); err != nil {
			return "", false, err
		}
		return ident.ID, true, nil
	case err != nil:
		return "", false, fmt.Errorf("failed to look up identity: %w", err)
	}

	ident := want
	ident.ID = existing.ID
	ident.EmailConfirmed = existing.EmailConfirmed
	ident.CreatedAt = existing.CreatedAt
	ident.UpdatedAt = now
	if err := s.UpdateIdentity(ctx, &ident); err != nil {
		return "", false, err
	}
	return ident.ID, false, nil
}

func (p *Provisioner) profileFor(userID string, ident Identity) *Profile {
	return &Profile{
		UserID:    userID,
		Name:      ident.DisplayName,
		Email:     ident.Email,
		Phone:     ident.Phone,
		Role:      ident.Role,
		Status:    ident.Status,
		UpdatedAt: p.now().UTC(),
	}
}

// UpdateEmail replaces the identity email, marking it confirmed, then syncs
// the profile. A failed identity update leaves the profile untouched.
func (p *Provisioner) UpdateEmail(ctx context.Context, userID, newEmail string) (string, error) {
	userID = strings.TrimSpace(userID)
	newEmail = strings.TrimSpace(newEmail)
	if userID == "" {
		return "", ErrMissingUserID
	}
	if !ValidEmail(newEmail) {
		return "", ErrInvalidEmail
	}

	logger := observability.WithTraceContext(ctx, p.logger).WithField("user_id", userID)

	if err := p.store.UpdateEmail(ctx, userID, newEmail); err != nil {
		logger.WithError(err).Warn("identity email update failed")
		return "", fmt.Errorf("%w: %v", ErrIdentityUpdate, err)
	}

	if err := p.store.UpdateProfileEmail(ctx, userID, newEmail); err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.Debug("no profile to sync")
			return newEmail, nil
		}
		logger.WithError(err).Error("identity and profile email diverged")
		return "", fmt.Errorf("%w: %v", ErrProfileSync, err)
	}

	return newEmail, nil
}
