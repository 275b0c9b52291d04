package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/campusconnect/backend/internal/models"
)

func newTestResolver(store ProfileStore, cache ProfileCache) *ProfileResolver {
	avatars := NewAvatarService(DefaultAvatarCatalog("/assets/avatars"), store)
	r := NewProfileResolver(store, avatars, cache, nil, nil)
	r.now = fixedClock()
	return r
}

func TestResolveJunior_CreatesRowWithEveryFieldSet(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store, nil)

	res, err := r.ResolveJunior(context.Background(), models.UserIdentity{ID: "u1", Email: "rahul@college.edu"}, false)
	require.NoError(t, err)

	assert.Equal(t, int32(1), store.juniorInserts.Load())
	assert.Equal(t, SourcePersisted, res.Source)
	assert.False(t, res.AvatarAssigned)

	p := res.Profile
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, "rahul", p.Name)
	assert.Equal(t, "rahul@college.edu", p.Email)
	assert.Equal(t, "male", p.Gender)
	for field, v := range map[string]string{
		"phone": p.Phone, "year": p.Year, "branch": p.Branch,
		"college": p.College, "city": p.City, "avatar": p.AvatarID,
	} {
		assert.NotEmpty(t, v, field)
	}
	assert.Equal(t, "/assets/avatars/boys/default.jpeg", p.AvatarID)
	assert.False(t, p.CreatedAt.IsZero())

	row, err := store.MemoryProfileStore.GetJunior(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, row.AvatarID, "default avatar is rendered, not stored")
}

func TestResolveSenior_FemaleNameGetsFemaleDefault(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store, nil)

	ident := models.UserIdentity{ID: "s1", Email: "a@x.com", Metadata: models.IdentityMetadata{Name: "Ananya Singh", RollNo: "21CS001"}}
	res, err := r.ResolveSenior(context.Background(), ident, false)
	require.NoError(t, err)

	assert.Equal(t, int32(1), store.seniorInserts.Load())
	assert.Equal(t, "female", res.Profile.Gender)
	assert.Equal(t, "/assets/avatars/girls/default.jpeg", res.Avatar.URL)
	assert.Equal(t, "21CS001", res.Profile.RollNo)
	assert.Equal(t, placeholderUnspecified, res.Profile.CollegeID)
	assert.Equal(t, placeholderMissing, res.Profile.Phone)
}

func TestResolveJunior_PersistedValuesWin(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	require.NoError(t, store.MemoryProfileStore.InsertJunior(ctx, &models.JuniorProfile{
		ID: "u1", Name: "Stored Name", Gender: "female", Branch: "CSE", AvatarID: "/assets/avatars/girls/coder.jpeg",
	}))
	r := newTestResolver(store, nil)

	ident := models.UserIdentity{ID: "u1", Email: "meta@x.com", Metadata: models.IdentityMetadata{Name: "Meta Name", Phone: "999"}}
	res, err := r.ResolveJunior(ctx, ident, false)
	require.NoError(t, err)

	assert.Zero(t, store.juniorInserts.Load())
	assert.Equal(t, "Stored Name", res.Profile.Name)
	assert.Equal(t, "CSE", res.Profile.Branch)
	assert.Equal(t, "meta@x.com", res.Profile.Email)
	assert.Equal(t, "999", res.Profile.Phone)
	assert.True(t, res.AvatarAssigned)
	assert.Equal(t, "female-coder", res.Avatar.ID)
}

func TestResolveJunior_InsertFailureServesSynthesized(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("write concern timeout")
	r := newTestResolver(store, nil)

	ident := models.UserIdentity{ID: "u1", Metadata: models.IdentityMetadata{Name: "Priya Sharma"}}
	res, err := r.ResolveJunior(context.Background(), ident, false)
	require.NoError(t, err)

	assert.Equal(t, int32(1), store.juniorInserts.Load())
	assert.Equal(t, SourceSynthesized, res.Source)
	assert.Equal(t, "Priya Sharma", res.Profile.Name)
	assert.Equal(t, "female", res.Profile.Gender)
	assert.Equal(t, "/assets/avatars/girls/default.jpeg", res.Profile.AvatarID)
	assert.Equal(t, placeholderMissing, res.Profile.Email)
}

func TestResolveJunior_LostInsertRaceReadsWinner(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.beforeInsert = func() {
		_ = store.MemoryProfileStore.InsertJunior(ctx, &models.JuniorProfile{ID: "u1", Name: "From Bootstrap", Year: "2"})
	}
	r := newTestResolver(store, nil)

	res, err := r.ResolveJunior(ctx, models.UserIdentity{ID: "u1", Metadata: models.IdentityMetadata{Name: "Lazy"}}, false)
	require.NoError(t, err)
	assert.Equal(t, SourcePersisted, res.Source)
	assert.Equal(t, "From Bootstrap", res.Profile.Name)
	assert.Equal(t, "2", res.Profile.Year)
}

func TestResolve_FetchErrorIsFatal(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("connection reset")
	r := newTestResolver(store, nil)

	_, err := r.ResolveSenior(context.Background(), models.UserIdentity{ID: "s1"}, false)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, models.RoleSenior, fetchErr.Role)
	assert.Zero(t, store.seniorInserts.Load())
}

func TestResolve_RequiresIdentity(t *testing.T) {
	r := newTestResolver(newFakeStore(), nil)

	_, err := r.ResolveJunior(context.Background(), models.UserIdentity{}, false)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = r.ResolveSenior(context.Background(), models.UserIdentity{}, false)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestResolveJunior_CacheAndRefresh(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := newFakeStore()
	r := newTestResolver(store, NewRedisProfileCache(client, time.Minute))
	ident := models.UserIdentity{ID: "u1", Metadata: models.IdentityMetadata{Name: "Rahul"}}

	_, err := r.ResolveJunior(ctx, ident, false)
	require.NoError(t, err)
	assert.True(t, mr.Exists("campusconnect:profile:junior:u1"))

	branch := "ECE"
	_, err = store.MemoryProfileStore.UpdateJunior(ctx, "u1", &models.UpdateJuniorRequest{Branch: &branch}, time.Now())
	require.NoError(t, err)

	cached, err := r.ResolveJunior(ctx, ident, false)
	require.NoError(t, err)
	assert.Equal(t, placeholderUnspecified, cached.Profile.Branch)

	fresh, err := r.ResolveJunior(ctx, ident, true)
	require.NoError(t, err)
	assert.Equal(t, "ECE", fresh.Profile.Branch)
}

func TestUpdateJunior_NormalizesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := newFakeStore()
	r := newTestResolver(store, NewRedisProfileCache(client, time.Minute))
	ident := models.UserIdentity{ID: "u1", Metadata: models.IdentityMetadata{Name: "Rahul"}}

	_, err := r.ResolveJunior(ctx, ident, false)
	require.NoError(t, err)
	require.True(t, mr.Exists("campusconnect:profile:junior:u1"))

	gender := "Girl"
	city := "Pune"
	res, err := r.UpdateJunior(ctx, ident, &models.UpdateJuniorRequest{Gender: &gender, City: &city})
	require.NoError(t, err)
	assert.Equal(t, "female", res.Profile.Gender)
	assert.Equal(t, "Pune", res.Profile.City)
	assert.False(t, mr.Exists("campusconnect:profile:junior:u1"))
}

func TestAssignAvatar_CreatesRowThenAssigns(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	r := newTestResolver(store, nil)
	ident := models.UserIdentity{ID: "u1", Metadata: models.IdentityMetadata{Name: "Priya Sharma"}}

	avatar, err := r.AssignAvatar(ctx, models.RoleJunior, ident, "")
	require.NoError(t, err)
	assert.Equal(t, models.GenderFemale, avatar.Gender)

	again, err := r.AssignAvatar(ctx, models.RoleJunior, ident, models.GenderMale)
	require.NoError(t, err)
	assert.Equal(t, avatar, again)

	res, err := r.ResolveJunior(ctx, ident, true)
	require.NoError(t, err)
	assert.True(t, res.AvatarAssigned)
	assert.Equal(t, avatar.URL, res.Profile.AvatarID)
}

func TestAssignAvatar_ExplicitGenderCreatesRow(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	r := newTestResolver(store, nil)
	ident := models.UserIdentity{ID: "new-user", Email: "rahul@x.com"}

	avatar, err := r.AssignAvatar(ctx, models.RoleJunior, ident, models.GenderFemale)
	require.NoError(t, err)
	assert.Equal(t, models.GenderFemale, avatar.Gender)
	assert.Equal(t, int32(1), store.juniorInserts.Load())

	row, err := store.MemoryProfileStore.GetJunior(ctx, "new-user")
	require.NoError(t, err)
	assert.Equal(t, avatar.URL, row.AvatarID)
	assert.Equal(t, "male", row.Gender, "explicit gender only picks the partition")
}

func TestResolveJunior_FillsMissingClaimsFromIdentityProvider(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store, nil)
	r.identity = &fakeIdentity{users: map[string]*models.UserIdentity{
		"priya@x.com": {ID: "u1", Email: "priya@x.com", Metadata: models.IdentityMetadata{Name: "Priya Sharma", Phone: "+911234567890"}},
	}}

	ident := models.UserIdentity{ID: "u1", Email: "priya@x.com", Metadata: models.IdentityMetadata{Phone: "+919999999999"}}
	res, err := r.ResolveJunior(context.Background(), ident, false)
	require.NoError(t, err)
	assert.Equal(t, "Priya Sharma", res.Profile.Name)
	assert.Equal(t, "female", res.Profile.Gender)
	assert.Equal(t, "+919999999999", res.Profile.Phone, "token claims win")
}

func TestResolveJunior_IdentityLookupFailureUsesClaims(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := newFakeStore()
	r := newTestResolver(store, nil)
	r.logger = zap.New(core)
	r.identity = &fakeIdentity{users: map[string]*models.UserIdentity{}}

	res, err := r.ResolveJunior(context.Background(), models.UserIdentity{ID: "u1", Email: "rahul@x.com"}, false)
	require.NoError(t, err)
	assert.Equal(t, SourcePersisted, res.Source)
	assert.Equal(t, "rahul", res.Profile.Name)
	assert.Equal(t, 1, logs.FilterMessage("identity lookup failed").Len())
}

func TestResolveJunior_ReReadFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := newFakeStore()
	store.insertErr = ErrProfileExists
	store.beforeInsert = func() { store.getErr = errors.New("replica lag") }
	r := newTestResolver(store, nil)
	r.logger = zap.New(core)

	res, err := r.ResolveJunior(context.Background(), models.UserIdentity{ID: "u1", Metadata: models.IdentityMetadata{Name: "Priya"}}, false)
	require.NoError(t, err)
	assert.Equal(t, SourceSynthesized, res.Source)

	entries := logs.FilterMessage("junior profile re-read failed; serving synthesized profile").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "replica lag", entries[0].ContextMap()["error"])
}

func TestResolve_EmptyStoredNameFallsBack(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	require.NoError(t, store.MemoryProfileStore.InsertJunior(ctx, &models.JuniorProfile{ID: "u1", Email: "ananya@x.com"}))
	require.NoError(t, store.MemoryProfileStore.InsertSenior(ctx, &models.SeniorProfile{ID: "s1"}))
	r := newTestResolver(store, nil)

	junior, err := r.ResolveJunior(ctx, models.UserIdentity{ID: "u1"}, false)
	require.NoError(t, err)
	assert.Equal(t, "ananya", junior.Profile.Name)

	senior, err := r.ResolveSenior(ctx, models.UserIdentity{ID: "s1"}, false)
	require.NoError(t, err)
	assert.Equal(t, "Student", senior.Profile.Name)
	assert.Equal(t, placeholderMissing, senior.Profile.Email)
}
