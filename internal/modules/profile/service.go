// README: Profile service validates and stores user contact details.
package profile

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"masar/internal/types"
)

type Repository interface {
	Get(ctx context.Context, uid types.ID) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type UpdateCommand struct {
	Actor     types.Actor
	FullName  string
	Email     string
	Phone     string
	PushToken string
	CarPlate  string
	Language  string
}

func (s *Service) Get(ctx context.Context, uid types.ID) (*Profile, error) {
	return s.repo.Get(ctx, uid)
}

// Update replaces the caller's profile. The role always comes from the
// verified token, never from the request body.
func (s *Service) Update(ctx context.Context, cmd UpdateCommand) (*Profile, error) {
	fields := types.FieldErrors{}
	if strings.TrimSpace(cmd.FullName) == "" {
		fields.Add("full_name", "is required")
	}
	email := strings.TrimSpace(cmd.Email)
	if email != "" && !strings.Contains(email, "@") {
		fields.Add("email", "is not a valid address")
	}
	lang := cmd.Language
	if lang == "" {
		lang = LangEnglish
	}
	if lang != LangEnglish && lang != LangArabic {
		fields.Add("language", "must be en or ar")
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	p := &Profile{
		UID:       cmd.Actor.ID,
		FullName:  strings.TrimSpace(cmd.FullName),
		Role:      cmd.Actor.Role,
		Email:     optional(email),
		Phone:     optional(cmd.Phone),
		PushToken: optional(cmd.PushToken),
		CarPlate:  optional(cmd.CarPlate),
		Language:  lang,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Contact resolves a user's contact details. A missing profile yields an
// empty contact, which means every channel is skipped.
func (s *Service) Contact(ctx context.Context, uid types.ID) (Contact, error) {
	p, err := s.repo.Get(ctx, uid)
	if errors.Is(err, ErrNotFound) {
		return Contact{Language: LangEnglish}, nil
	}
	if err != nil {
		return Contact{}, err
	}
	return p.Contact(), nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// MemoryStore is an in-process Repository for tests and local runs.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[types.ID]Profile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[types.ID]Profile)}
}

func (m *MemoryStore) Get(ctx context.Context, uid types.ID) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[uid]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) Upsert(ctx context.Context, p *Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UID] = *p
	return nil
}
