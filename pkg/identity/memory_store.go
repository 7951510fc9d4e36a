package identity

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps identities in process memory
type MemoryStore struct {
	mu         sync.RWMutex
	identities map[string]*Identity // by id
	byPhone    map[string]string
	profiles   map[string]*Profile
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identities: make(map[string]*Identity),
		byPhone:    make(map[string]string),
		profiles:   make(map[string]*Profile),
	}
}

func (s *MemoryStore) FindByPhone(ctx context.Context, phone string) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPhone[phone]
	if !ok {
		return nil, ErrNotFound
	}
	ident := *s.identities[id]
	return &ident, nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ident, ok := s.identities[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ident
	return &cp, nil
}

// emailTakenLocked reports whether another identity uses email
func (s *MemoryStore) emailTakenLocked(email, exceptID string) bool {
	for id, ident := range s.identities {
		if id != exceptID && ident.Email == email {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateIdentity(ctx context.Context, ident *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.identities[ident.ID]; ok {
		return ErrConflict
	}
	if _, ok := s.byPhone[ident.Phone]; ok {
		return ErrConflict
	}
	if s.emailTakenLocked(ident.Email, "") {
		return ErrConflict
	}

	cp := *ident
	s.identities[ident.ID] = &cp
	s.byPhone[ident.Phone] = ident.ID
	return nil
}

func (s *MemoryStore) UpdateIdentity(ctx context.Context, ident *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.identities[ident.ID]
	if !ok {
		return ErrNotFound
	}
	if owner, ok := s.byPhone[ident.Phone]; ok && owner != ident.ID {
		return ErrConflict
	}
	if s.emailTakenLocked(ident.Email, ident.ID) {
		return ErrConflict
	}

	delete(s.byPhone, existing.Phone)
	existing.Phone = ident.Phone
	existing.Email = ident.Email
	existing.PasswordHash = ident.PasswordHash
	existing.DisplayName = ident.DisplayName
	existing.Role = ident.Role
	existing.Status = ident.Status
	existing.UpdatedAt = ident.UpdatedAt
	s.byPhone[ident.Phone] = ident.ID
	return nil
}

func (s *MemoryStore) UpsertProfile(ctx context.Context, profile *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.identities[profile.UserID]; !ok {
		return ErrNotFound
	}
	cp := *profile
	s.profiles[profile.UserID] = &cp
	return nil
}

func (s *MemoryStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) UpdateEmail(ctx context.Context, userID, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ident, ok := s.identities[userID]
	if !ok {
		return ErrNotFound
	}
	if s.emailTakenLocked(email, userID) {
		return ErrConflict
	}
	ident.Email = email
	ident.EmailConfirmed = true
	ident.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) UpdateProfileEmail(ctx context.Context, userID, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return ErrNotFound
	}
	p.Email = email
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Len returns the number of identities
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.identities)
}
