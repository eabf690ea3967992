package repository

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pickup-backend/internal/models"
	"pickup-backend/internal/xerrors"
)

// MemoryRequestStore keeps requests in process. Records are cloned on the
// way in and out so callers never share state with the store.
type MemoryRequestStore struct {
	mu    sync.RWMutex
	order []primitive.ObjectID
	byID  map[primitive.ObjectID]*models.PickupRequest
}

func NewMemoryRequestStore() *MemoryRequestStore {
	return &MemoryRequestStore{byID: make(map[primitive.ObjectID]*models.PickupRequest)}
}

func (s *MemoryRequestStore) Insert(_ context.Context, r *models.PickupRequest) (*models.PickupRequest, error) {
	stored := r.Clone()
	if stored.ID.IsZero() {
		stored.ID = primitive.NewObjectID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[stored.ID]; ok {
		return nil, xerrors.ErrDuplicateKey
	}
	s.byID[stored.ID] = stored
	s.order = append(s.order, stored.ID)
	return stored.Clone(), nil
}

func (s *MemoryRequestStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.PickupRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, xerrors.ErrNoDocument
	}
	return r.Clone(), nil
}

func (s *MemoryRequestStore) FindByAssignee(_ context.Context, assignee primitive.ObjectID, page models.Page) ([]models.PickupRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PickupRequest, 0)
	for _, id := range s.order {
		if r := s.byID[id]; r.AssignedTo == assignee {
			out = append(out, *r.Clone())
		}
	}
	if !page.Enabled() {
		return out, nil
	}
	start := page.Skip()
	if start >= int64(len(out)) {
		return []models.PickupRequest{}, nil
	}
	end := start + page.Limit
	if end > int64(len(out)) {
		end = int64(len(out))
	}
	return out[start:end], nil
}

func (s *MemoryRequestStore) Replace(_ context.Context, r *models.PickupRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[r.ID]; !ok {
		return xerrors.ErrNoDocument
	}
	s.byID[r.ID] = r.Clone()
	return nil
}

type MemoryAccountStore struct {
	mu      sync.RWMutex
	byID    map[primitive.ObjectID]models.Account
	byEmail map[string]primitive.ObjectID
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		byID:    make(map[primitive.ObjectID]models.Account),
		byEmail: make(map[string]primitive.ObjectID),
	}
}

func (s *MemoryAccountStore) Insert(_ context.Context, a *models.Account) (*models.Account, error) {
	stored := *a
	if stored.ID.IsZero() {
		stored.ID = primitive.NewObjectID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[stored.Email]; ok {
		return nil, xerrors.ErrDuplicateKey
	}
	s.byID[stored.ID] = stored
	s.byEmail[stored.Email] = stored.ID
	return &stored, nil
}

func (s *MemoryAccountStore) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, xerrors.ErrNoDocument
	}
	a := s.byID[id]
	return &a, nil
}

func (s *MemoryAccountStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, xerrors.ErrNoDocument
	}
	return &a, nil
}

func (s *MemoryAccountStore) Exists(_ context.Context, id primitive.ObjectID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok, nil
}

type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[primitive.ObjectID]models.RefreshToken
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[primitive.ObjectID]models.RefreshToken)}
}

func (s *MemoryTokenStore) Insert(_ context.Context, t *models.RefreshToken) (*models.RefreshToken, error) {
	stored := *t
	if stored.ID.IsZero() {
		stored.ID = primitive.NewObjectID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[stored.ID] = stored
	return &stored, nil
}

func (s *MemoryTokenStore) FindActive(_ context.Context, hash string) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.TokenHash == hash && !t.Revoked {
			found := t
			return &found, nil
		}
	}
	return nil, xerrors.ErrNoDocument
}

func (s *MemoryTokenStore) Revoke(_ context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return nil
	}
	t.Revoked = true
	if replacedBy != nil {
		r := *replacedBy
		t.ReplacedByToken = &r
	}
	s.tokens[id] = t
	return nil
}

func (s *MemoryTokenStore) RevokeByHash(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tokens {
		if t.TokenHash == hash && !t.Revoked {
			t.Revoked = true
			s.tokens[id] = t
			return nil
		}
	}
	return xerrors.ErrNoDocument
}
