package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusconnect/backend/internal/models"
)

func TestMemoryProfileStore_InsertIsUnique(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryProfileStore()

	require.NoError(t, s.InsertJunior(ctx, &models.JuniorProfile{ID: "u1", Name: "A"}))
	assert.ErrorIs(t, s.InsertJunior(ctx, &models.JuniorProfile{ID: "u1", Name: "B"}), ErrProfileExists)

	// Junior and senior tables are independent.
	require.NoError(t, s.InsertSenior(ctx, &models.SeniorProfile{ID: "u1"}))
}

func TestMemoryProfileStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryProfileStore()
	require.NoError(t, s.InsertSenior(ctx, &models.SeniorProfile{ID: "s1", Name: "Orig"}))

	got, err := s.GetSenior(ctx, "s1")
	require.NoError(t, err)
	got.Name = "Mutated"

	again, err := s.GetSenior(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Orig", again.Name)
}

func TestMemoryProfileStore_UpdateUpserts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryProfileStore()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	region := "Delhi"
	p, err := s.UpdateSenior(ctx, "s1", &models.UpdateSeniorRequest{Region: &region}, now)
	require.NoError(t, err)
	assert.Equal(t, "Delhi", p.Region)
	assert.Equal(t, now, p.CreatedAt)

	name := "New"
	p, err = s.UpdateSenior(ctx, "s1", &models.UpdateSeniorRequest{Name: &name}, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "Delhi", p.Region, "nil fields are left alone")
	assert.Equal(t, "New", p.Name)
	assert.Equal(t, now, p.CreatedAt)
}

func TestMemoryProfileStore_SetAvatarIfAbsentRace(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryProfileStore()
	require.NoError(t, s.InsertJunior(ctx, &models.JuniorProfile{ID: "u1"}))

	refs := []string{"/a/boys/coder.jpeg", "/a/boys/artist.jpeg", "/a/boys/athlete.jpeg", "/a/boys/explorer.jpeg"}
	results := make([]string, len(refs))
	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		go func(i int, ref string) {
			defer wg.Done()
			got, err := s.SetAvatarIfAbsent(ctx, models.RoleJunior, "u1", ref, time.Now())
			assert.NoError(t, err)
			results[i] = got
		}(i, ref)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
	row, err := s.GetJunior(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, results[0], row.AvatarID)

	_, err = s.SetAvatarIfAbsent(ctx, models.RoleSenior, "u1", refs[0], time.Now())
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestFileProfileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewFileProfileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.InsertJunior(ctx, &models.JuniorProfile{ID: "u1", Name: "Ananya"}))
	_, err = s.SetAvatarIfAbsent(ctx, models.RoleJunior, "u1", "/a/girls/coder.jpeg", time.Now())
	require.NoError(t, err)

	reopened, err := NewFileProfileStore(dir)
	require.NoError(t, err)
	row, err := reopened.GetJunior(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ananya", row.Name)
	assert.Equal(t, "/a/girls/coder.jpeg", row.AvatarID)
}

func TestFileProfileStore_FailedWriteLeavesRowsUntouched(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileProfileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.InsertJunior(ctx, &models.JuniorProfile{ID: "u1", Name: "Before"}))

	// A directory at the snapshot path makes the final rename fail.
	snapshotPath := filepath.Join(dir, "profiles.json")
	require.NoError(t, os.Remove(snapshotPath))
	require.NoError(t, os.Mkdir(snapshotPath, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(snapshotPath, "keep"), nil, 0644))

	assert.Error(t, s.InsertJunior(ctx, &models.JuniorProfile{ID: "u2", Name: "New"}))
	_, err = s.GetJunior(ctx, "u2")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	name := "After"
	_, err = s.UpdateJunior(ctx, "u1", &models.UpdateJuniorRequest{Name: &name}, time.Now())
	assert.Error(t, err)
	got, err := s.GetJunior(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Before", got.Name)

	_, err = s.UpdateSenior(ctx, "s1", &models.UpdateSeniorRequest{Name: &name}, time.Now())
	assert.Error(t, err)
	_, err = s.GetSenior(ctx, "s1")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, err = s.SetAvatarIfAbsent(ctx, models.RoleJunior, "u1", "/assets/avatars/boys/a.jpeg", time.Now())
	assert.Error(t, err)
	got, err = s.GetJunior(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got.AvatarID)
}
