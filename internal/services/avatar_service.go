package services

import (
	"context"
	"math/rand"
	"path"
	"strings"
	"time"

	"github.com/campusconnect/backend/internal/models"
)

// femaleNameHints is matched by case-insensitive substring against the full
// name. Keep entries long enough not to hit common male names or surnames
// ("uma" would match "Kumar").
var femaleNameHints = []string{
	"aaradhya", "aditi", "aishwarya", "aisha", "akansha", "ananya", "anjali",
	"ankita", "anushka", "aparna", "bhavna", "deepika", "divya", "diya",
	"gayatri", "ishita", "jyoti", "kavya", "khushi", "kriti", "lakshmi",
	"madhuri", "mansi", "meera", "megha", "monika", "nandini", "neha",
	"nisha", "pallavi", "pooja", "prachi", "preeti", "priya", "radhika",
	"riya", "sakshi", "sanya", "shreya", "shruti", "simran", "sneha",
	"sonal", "srishti", "swati", "tanvi", "tanya", "vaishnavi", "zoya",
}

// DetectGender guesses from a display name. It is a heuristic the user can
// override; no match means male.
func DetectGender(name string) models.Gender {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return models.GenderMale
	}
	for _, hint := range femaleNameHints {
		if strings.Contains(n, hint) {
			return models.GenderFemale
		}
	}
	return models.GenderMale
}

// AvatarCatalog is the fixed set of assignable avatars.
type AvatarCatalog struct {
	Male          []models.Avatar
	Female        []models.Avatar
	DefaultMale   models.Avatar
	DefaultFemale models.Avatar
}

// DefaultAvatarCatalog builds the reference catalog under baseURL
// (5 male, 3 female).
func DefaultAvatarCatalog(baseURL string) *AvatarCatalog {
	baseURL = strings.TrimRight(baseURL, "/")
	entry := func(g models.Gender, dir, name string) models.Avatar {
		file := strings.ToLower(name)
		return models.Avatar{
			ID:     string(g) + "-" + file,
			Name:   name,
			Gender: g,
			URL:    baseURL + "/" + dir + "/" + file + ".jpeg",
		}
	}

	return &AvatarCatalog{
		Male: []models.Avatar{
			entry(models.GenderMale, "boys", "Bookworm"),
			entry(models.GenderMale, "boys", "Coder"),
			entry(models.GenderMale, "boys", "Athlete"),
			entry(models.GenderMale, "boys", "Artist"),
			entry(models.GenderMale, "boys", "Explorer"),
		},
		Female: []models.Avatar{
			entry(models.GenderFemale, "girls", "Bookworm"),
			entry(models.GenderFemale, "girls", "Coder"),
			entry(models.GenderFemale, "girls", "Artist"),
		},
		DefaultMale:   entry(models.GenderMale, "boys", "Default"),
		DefaultFemale: entry(models.GenderFemale, "girls", "Default"),
	}
}

func (c *AvatarCatalog) partition(g models.Gender) []models.Avatar {
	if g == models.GenderFemale {
		return c.Female
	}
	return c.Male
}

// All lists assignable avatars, male first.
func (c *AvatarCatalog) All() []models.Avatar {
	out := make([]models.Avatar, 0, len(c.Male)+len(c.Female))
	out = append(out, c.Male...)
	return append(out, c.Female...)
}

// Default is keyed by gender only and never randomized.
func (c *AvatarCatalog) Default(g models.Gender) models.Avatar {
	if g == models.GenderFemale {
		return c.DefaultFemale
	}
	return c.DefaultMale
}

// Resolve maps a stored ref back to catalog data. Unknown refs get a record
// derived from the path instead of an error.
func (c *AvatarCatalog) Resolve(ref string) models.Avatar {
	for _, a := range c.All() {
		if a.URL == ref || a.ID == ref {
			return a
		}
	}
	for _, a := range []models.Avatar{c.DefaultMale, c.DefaultFemale} {
		if a.URL == ref || a.ID == ref {
			return a
		}
	}

	g := models.GenderMale
	if strings.Contains(ref, "/girls/") {
		g = models.GenderFemale
	}
	base := path.Base(ref)
	name := strings.TrimSuffix(base, path.Ext(base))
	return models.Avatar{ID: ref, Name: name, Gender: g, URL: ref}
}

// AvatarService assigns an avatar once per profile row.
type AvatarService struct {
	catalog *AvatarCatalog
	store   ProfileStore
	pick    func(n int) int
	now     func() time.Time
}

func NewAvatarService(catalog *AvatarCatalog, store ProfileStore) *AvatarService {
	return &AvatarService{
		catalog: catalog,
		store:   store,
		pick:    rand.Intn,
		now:     time.Now,
	}
}

// Assign returns the row's avatar if it has one, otherwise draws one from the
// gender partition and stores it with a conditional write. Concurrent callers
// all end up with the ref that won.
func (s *AvatarService) Assign(ctx context.Context, role models.Role, userID string, gender models.Gender) (models.Avatar, error) {
	if userID == "" {
		return models.Avatar{}, ErrUnauthorized
	}

	existing, err := s.currentRef(ctx, role, userID)
	if err != nil {
		return models.Avatar{}, err
	}
	if existing != "" {
		return s.catalog.Resolve(existing), nil
	}

	options := s.catalog.partition(gender)
	if len(options) == 0 {
		return s.catalog.Default(gender), nil
	}
	choice := options[s.pick(len(options))]

	stored, err := s.store.SetAvatarIfAbsent(ctx, role, userID, choice.URL, s.now().UTC())
	if err != nil {
		return models.Avatar{}, &PersistenceError{Role: role, Op: "assign avatar for", Err: err}
	}
	return s.catalog.Resolve(stored), nil
}

// ForProfile resolves what a profile should render: its stored avatar, or the
// gender default without writing anything.
func (s *AvatarService) ForProfile(ref string, gender models.Gender) models.Avatar {
	if ref == "" {
		return s.catalog.Default(gender)
	}
	return s.catalog.Resolve(ref)
}

func (s *AvatarService) currentRef(ctx context.Context, role models.Role, userID string) (string, error) {
	switch role {
	case models.RoleJunior:
		p, err := s.store.GetJunior(ctx, userID)
		if err != nil {
			return "", err
		}
		return p.AvatarID, nil
	case models.RoleSenior:
		p, err := s.store.GetSenior(ctx, userID)
		if err != nil {
			return "", err
		}
		return p.AvatarID, nil
	}
	return "", ErrProfileNotFound
}
