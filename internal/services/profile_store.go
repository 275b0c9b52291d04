package services

import (
	"context"
	"sync"
	"time"

	"github.com/campusconnect/backend/internal/models"
	"github.com/campusconnect/backend/internal/storage"
)

// ProfileStore persists one junior row and one senior row per user id.
//
// Get* return ErrProfileNotFound for a missing row. Insert* return
// ErrProfileExists when the id is already taken. Update* upsert and are last
// write wins.
type ProfileStore interface {
	GetJunior(ctx context.Context, id string) (*models.JuniorProfile, error)
	InsertJunior(ctx context.Context, p *models.JuniorProfile) error
	UpdateJunior(ctx context.Context, id string, req *models.UpdateJuniorRequest, now time.Time) (*models.JuniorProfile, error)

	GetSenior(ctx context.Context, id string) (*models.SeniorProfile, error)
	InsertSenior(ctx context.Context, p *models.SeniorProfile) error
	UpdateSenior(ctx context.Context, id string, req *models.UpdateSeniorRequest, now time.Time) (*models.SeniorProfile, error)

	// SetAvatarIfAbsent stores ref only when the row has no avatar yet and
	// returns whichever ref the row holds afterwards.
	SetAvatarIfAbsent(ctx context.Context, role models.Role, id string, ref string, now time.Time) (string, error)
}

type memorySnapshot struct {
	Juniors map[string]*models.JuniorProfile `json:"juniors"`
	Seniors map[string]*models.SeniorProfile `json:"seniors"`
}

// MemoryProfileStore keeps rows in maps. When built with a snapshot file every
// write is flushed to disk, which is enough for local development without
// Mongo.
type MemoryProfileStore struct {
	mu       sync.RWMutex
	juniors  map[string]*models.JuniorProfile
	seniors  map[string]*models.SeniorProfile
	snapshot *storage.JSONFile[memorySnapshot]
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{
		juniors: make(map[string]*models.JuniorProfile),
		seniors: make(map[string]*models.SeniorProfile),
	}
}

// NewFileProfileStore loads any existing snapshot from dataDir.
func NewFileProfileStore(dataDir string) (*MemoryProfileStore, error) {
	file, err := storage.NewJSONFile[memorySnapshot](dataDir, "profiles.json")
	if err != nil {
		return nil, err
	}
	snap, err := file.Load()
	if err != nil {
		return nil, err
	}
	s := NewMemoryProfileStore()
	s.snapshot = file
	for id, p := range snap.Juniors {
		s.juniors[id] = p
	}
	for id, p := range snap.Seniors {
		s.seniors[id] = p
	}
	return s, nil
}

// persist must be called with mu held. Callers undo their map change when
// it fails.
func (s *MemoryProfileStore) persist() error {
	if s.snapshot == nil {
		return nil
	}
	return s.snapshot.Save(memorySnapshot{Juniors: s.juniors, Seniors: s.seniors})
}

func (s *MemoryProfileStore) GetJunior(_ context.Context, id string) (*models.JuniorProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.juniors[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryProfileStore) InsertJunior(_ context.Context, p *models.JuniorProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.juniors[p.ID]; exists {
		return ErrProfileExists
	}
	cp := *p
	s.juniors[p.ID] = &cp
	if err := s.persist(); err != nil {
		delete(s.juniors, p.ID)
		return err
	}
	return nil
}

func (s *MemoryProfileStore) UpdateJunior(_ context.Context, id string, req *models.UpdateJuniorRequest, now time.Time) (*models.JuniorProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.juniors[id]
	if !ok {
		p = &models.JuniorProfile{ID: id, CreatedAt: now}
		s.juniors[id] = p
	}
	prev := *p
	setIf(&p.Name, req.Name)
	setIf(&p.Gender, req.Gender)
	setIf(&p.Phone, req.Phone)
	setIf(&p.Year, req.Year)
	setIf(&p.Branch, req.Branch)
	setIf(&p.College, req.College)
	setIf(&p.City, req.City)
	p.UpdatedAt = now

	if err := s.persist(); err != nil {
		if ok {
			*p = prev
		} else {
			delete(s.juniors, id)
		}
		return nil, err
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryProfileStore) GetSenior(_ context.Context, id string) (*models.SeniorProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.seniors[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryProfileStore) InsertSenior(_ context.Context, p *models.SeniorProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seniors[p.ID]; exists {
		return ErrProfileExists
	}
	cp := *p
	s.seniors[p.ID] = &cp
	if err := s.persist(); err != nil {
		delete(s.seniors, p.ID)
		return err
	}
	return nil
}

func (s *MemoryProfileStore) UpdateSenior(_ context.Context, id string, req *models.UpdateSeniorRequest, now time.Time) (*models.SeniorProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.seniors[id]
	if !ok {
		p = &models.SeniorProfile{ID: id, CreatedAt: now}
		s.seniors[id] = p
	}
	prev := *p
	setIf(&p.Name, req.Name)
	setIf(&p.Gender, req.Gender)
	setIf(&p.CollegeID, req.CollegeID)
	setIf(&p.RollNo, req.RollNo)
	setIf(&p.Phone, req.Phone)
	setIf(&p.Region, req.Region)
	p.UpdatedAt = now

	if err := s.persist(); err != nil {
		if ok {
			*p = prev
		} else {
			delete(s.seniors, id)
		}
		return nil, err
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryProfileStore) SetAvatarIfAbsent(_ context.Context, role models.Role, id string, ref string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *string
	var updatedAt *time.Time
	switch role {
	case models.RoleJunior:
		p, ok := s.juniors[id]
		if !ok {
			return "", ErrProfileNotFound
		}
		current, updatedAt = &p.AvatarID, &p.UpdatedAt
	case models.RoleSenior:
		p, ok := s.seniors[id]
		if !ok {
			return "", ErrProfileNotFound
		}
		current, updatedAt = &p.AvatarID, &p.UpdatedAt
	default:
		return "", ErrProfileNotFound
	}

	if *current != "" {
		return *current, nil
	}
	prevUpdatedAt := *updatedAt
	*current = ref
	*updatedAt = now
	if err := s.persist(); err != nil {
		*current = ""
		*updatedAt = prevUpdatedAt
		return "", err
	}
	return ref, nil
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
