package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusconnect/backend/internal/models"
)

// ProfileSource tells a caller whether the profile came from a stored row or
// was built in memory because the row could not be written.
type ProfileSource string

const (
	SourcePersisted   ProfileSource = "persisted"
	SourceSynthesized ProfileSource = "synthesized"
)

const (
	placeholderUnspecified = "Not specified"
	placeholderMissing     = "Not provided"
)

// Resolved is one fetch result. Avatar is what should be rendered;
// AvatarAssigned is false when it is only the gender default.
type Resolved[P any] struct {
	Source         ProfileSource `json:"source"`
	Profile        P             `json:"profile"`
	Avatar         models.Avatar `json:"avatar"`
	AvatarAssigned bool          `json:"avatar_assigned"`
}

type ProfileResolver struct {
	store    ProfileStore
	avatars  *AvatarService
	cache    ProfileCache
	identity IdentityProvider
	logger   *zap.Logger
	now      func() time.Time
}

// NewProfileResolver accepts a nil identity provider, in which case profiles
// are built from token claims alone.
func NewProfileResolver(store ProfileStore, avatars *AvatarService, cache ProfileCache, identity IdentityProvider, logger *zap.Logger) *ProfileResolver {
	if cache == nil {
		cache = NoopProfileCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileResolver{
		store:    store,
		avatars:  avatars,
		cache:    cache,
		identity: identity,
		logger:   logger,
		now:      time.Now,
	}
}

// ResolveJunior returns the user's junior profile, creating the row on first
// fetch. An insert failure is logged and the synthesized profile is still
// returned. refresh skips the cache.
func (r *ProfileResolver) ResolveJunior(ctx context.Context, ident models.UserIdentity, refresh bool) (*Resolved[models.JuniorProfile], error) {
	if ident.ID == "" {
		return nil, ErrUnauthorized
	}
	if !refresh {
		var cached Resolved[models.JuniorProfile]
		if r.cacheGet(ctx, models.RoleJunior, ident.ID, &cached) {
			return &cached, nil
		}
	}

	ident = r.enrich(ctx, ident)
	row, err := r.store.GetJunior(ctx, ident.ID)
	var res *Resolved[models.JuniorProfile]
	switch {
	case err == nil:
		res = r.persistedJunior(mergeJunior(*row, ident))
	case errors.Is(err, ErrProfileNotFound):
		res = r.createJunior(ctx, ident)
	default:
		return nil, &FetchError{Role: models.RoleJunior, Err: err}
	}

	if res.Source == SourcePersisted {
		r.cacheSet(ctx, models.RoleJunior, ident.ID, res)
	}
	return res, nil
}

func (r *ProfileResolver) createJunior(ctx context.Context, ident models.UserIdentity) *Resolved[models.JuniorProfile] {
	now := r.now().UTC()
	row := models.JuniorProfile{
		ID:        ident.ID,
		Name:      displayName(ident),
		Email:     ident.Email,
		Gender:    string(identityGender(ident)),
		Phone:     ident.Metadata.Phone,
		City:      ident.Metadata.Region,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.store.InsertJunior(ctx, &row)
	switch {
	case err == nil:
		r.logger.Info("junior profile created", zap.String("user_id", ident.ID))
		return r.persistedJunior(row)
	case errors.Is(err, ErrProfileExists):
		// Lost the race, usually against the signup bootstrap.
		existing, getErr := r.store.GetJunior(ctx, ident.ID)
		if getErr == nil {
			return r.persistedJunior(mergeJunior(*existing, ident))
		}
		r.logger.Warn("junior profile re-read failed; serving synthesized profile",
			zap.String("user_id", ident.ID), zap.Error(getErr))
	default:
		r.logger.Warn("junior profile insert failed; serving synthesized profile",
			zap.String("user_id", ident.ID),
			zap.Error(&PersistenceError{Role: models.RoleJunior, Op: "insert", Err: err}))
	}

	gender := models.ParseGender(row.Gender)
	avatar := r.avatars.ForProfile("", gender)
	row = withJuniorDefaults(row)
	row.AvatarID = avatar.URL
	return &Resolved[models.JuniorProfile]{Source: SourceSynthesized, Profile: row, Avatar: avatar}
}

func (r *ProfileResolver) persistedJunior(p models.JuniorProfile) *Resolved[models.JuniorProfile] {
	gender := models.ParseGender(p.Gender)
	if gender == "" {
		gender = DetectGender(p.Name)
		p.Gender = string(gender)
	}
	assigned := p.AvatarID != ""
	avatar := r.avatars.ForProfile(p.AvatarID, gender)
	p.AvatarID = avatar.URL
	return &Resolved[models.JuniorProfile]{
		Source:         SourcePersisted,
		Profile:        withJuniorDefaults(p),
		Avatar:         avatar,
		AvatarAssigned: assigned,
	}
}

// ResolveSenior mirrors ResolveJunior against the seniors collection.
func (r *ProfileResolver) ResolveSenior(ctx context.Context, ident models.UserIdentity, refresh bool) (*Resolved[models.SeniorProfile], error) {
	if ident.ID == "" {
		return nil, ErrUnauthorized
	}
	if !refresh {
		var cached Resolved[models.SeniorProfile]
		if r.cacheGet(ctx, models.RoleSenior, ident.ID, &cached) {
			return &cached, nil
		}
	}

	ident = r.enrich(ctx, ident)
	row, err := r.store.GetSenior(ctx, ident.ID)
	var res *Resolved[models.SeniorProfile]
	switch {
	case err == nil:
		res = r.persistedSenior(mergeSenior(*row, ident))
	case errors.Is(err, ErrProfileNotFound):
		res = r.createSenior(ctx, ident)
	default:
		return nil, &FetchError{Role: models.RoleSenior, Err: err}
	}

	if res.Source == SourcePersisted {
		r.cacheSet(ctx, models.RoleSenior, ident.ID, res)
	}
	return res, nil
}

func (r *ProfileResolver) createSenior(ctx context.Context, ident models.UserIdentity) *Resolved[models.SeniorProfile] {
	now := r.now().UTC()
	row := models.SeniorProfile{
		ID:        ident.ID,
		Name:      displayName(ident),
		Gender:    string(identityGender(ident)),
		CollegeID: ident.Metadata.CollegeID,
		RollNo:    ident.Metadata.RollNo,
		Phone:     ident.Metadata.Phone,
		Email:     ident.Email,
		Region:    ident.Metadata.Region,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.store.InsertSenior(ctx, &row)
	switch {
	case err == nil:
		r.logger.Info("senior profile created", zap.String("user_id", ident.ID))
		return r.persistedSenior(row)
	case errors.Is(err, ErrProfileExists):
		existing, getErr := r.store.GetSenior(ctx, ident.ID)
		if getErr == nil {
			return r.persistedSenior(mergeSenior(*existing, ident))
		}
		r.logger.Warn("senior profile re-read failed; serving synthesized profile",
			zap.String("user_id", ident.ID), zap.Error(getErr))
	default:
		r.logger.Warn("senior profile insert failed; serving synthesized profile",
			zap.String("user_id", ident.ID),
			zap.Error(&PersistenceError{Role: models.RoleSenior, Op: "insert", Err: err}))
	}

	gender := models.ParseGender(row.Gender)
	avatar := r.avatars.ForProfile("", gender)
	row = withSeniorDefaults(row)
	row.AvatarID = avatar.URL
	return &Resolved[models.SeniorProfile]{Source: SourceSynthesized, Profile: row, Avatar: avatar}
}

func (r *ProfileResolver) persistedSenior(p models.SeniorProfile) *Resolved[models.SeniorProfile] {
	gender := models.ParseGender(p.Gender)
	if gender == "" {
		gender = DetectGender(p.Name)
		p.Gender = string(gender)
	}
	assigned := p.AvatarID != ""
	avatar := r.avatars.ForProfile(p.AvatarID, gender)
	p.AvatarID = avatar.URL
	return &Resolved[models.SeniorProfile]{
		Source:         SourcePersisted,
		Profile:        withSeniorDefaults(p),
		Avatar:         avatar,
		AvatarAssigned: assigned,
	}
}

func (r *ProfileResolver) UpdateJunior(ctx context.Context, ident models.UserIdentity, req *models.UpdateJuniorRequest) (*Resolved[models.JuniorProfile], error) {
	if ident.ID == "" {
		return nil, ErrUnauthorized
	}
	req.Gender = normalizeGenderPtr(req.Gender)

	p, err := r.store.UpdateJunior(ctx, ident.ID, req, r.now().UTC())
	if err != nil {
		return nil, &PersistenceError{Role: models.RoleJunior, Op: "update", Err: err}
	}
	r.invalidate(ctx, models.RoleJunior, ident.ID)
	return r.persistedJunior(mergeJunior(*p, ident)), nil
}

func (r *ProfileResolver) UpdateSenior(ctx context.Context, ident models.UserIdentity, req *models.UpdateSeniorRequest) (*Resolved[models.SeniorProfile], error) {
	if ident.ID == "" {
		return nil, ErrUnauthorized
	}
	req.Gender = normalizeGenderPtr(req.Gender)

	p, err := r.store.UpdateSenior(ctx, ident.ID, req, r.now().UTC())
	if err != nil {
		return nil, &PersistenceError{Role: models.RoleSenior, Op: "update", Err: err}
	}
	r.invalidate(ctx, models.RoleSenior, ident.ID)
	return r.persistedSenior(mergeSenior(*p, ident)), nil
}

// AssignAvatar makes sure the row exists, then assigns. gender only picks
// the partition and overrides the profile's own gender when set.
func (r *ProfileResolver) AssignAvatar(ctx context.Context, role models.Role, ident models.UserIdentity, gender models.Gender) (models.Avatar, error) {
	var profileGender string
	switch role {
	case models.RoleJunior:
		res, err := r.ResolveJunior(ctx, ident, true)
		if err != nil {
			return models.Avatar{}, err
		}
		profileGender = res.Profile.Gender
	case models.RoleSenior:
		res, err := r.ResolveSenior(ctx, ident, true)
		if err != nil {
			return models.Avatar{}, err
		}
		profileGender = res.Profile.Gender
	}
	if gender == "" {
		gender = models.ParseGender(profileGender)
	}

	avatar, err := r.avatars.Assign(ctx, role, ident.ID, gender)
	if err != nil {
		return models.Avatar{}, err
	}
	r.invalidate(ctx, role, ident.ID)
	return avatar, nil
}

// enrich fills a missing name or phone from the auth backend. Failures are
// logged and the claims are used as they are.
func (r *ProfileResolver) enrich(ctx context.Context, ident models.UserIdentity) models.UserIdentity {
	if r.identity == nil || (ident.Metadata.Name != "" && ident.Metadata.Phone != "") {
		return ident
	}
	u, err := r.identity.GetUser(ctx, ident.ID)
	if err != nil {
		r.logger.Warn("identity lookup failed", zap.String("user_id", ident.ID), zap.Error(err))
		return ident
	}
	fallback(&ident.Email, u.Email)
	fallback(&ident.Metadata.Name, u.Metadata.Name)
	fallback(&ident.Metadata.Phone, u.Metadata.Phone)
	fallback(&ident.Metadata.Gender, u.Metadata.Gender)
	fallback(&ident.Metadata.Region, u.Metadata.Region)
	return ident
}

func (r *ProfileResolver) cacheGet(ctx context.Context, role models.Role, userID string, dst any) bool {
	hit, err := r.cache.Get(ctx, role, userID, dst)
	if err != nil {
		r.logger.Warn("profile cache read failed", zap.String("role", string(role)), zap.String("user_id", userID), zap.Error(err))
		return false
	}
	return hit
}

func (r *ProfileResolver) cacheSet(ctx context.Context, role models.Role, userID string, v any) {
	if err := r.cache.Set(ctx, role, userID, v); err != nil {
		r.logger.Warn("profile cache write failed", zap.String("role", string(role)), zap.String("user_id", userID), zap.Error(err))
	}
}

func (r *ProfileResolver) invalidate(ctx context.Context, role models.Role, userID string) {
	if err := r.cache.Invalidate(ctx, role, userID); err != nil {
		r.logger.Warn("profile cache invalidate failed", zap.String("role", string(role)), zap.String("user_id", userID), zap.Error(err))
	}
}

// mergeJunior fills empty persisted fields from identity metadata. Persisted
// values always win.
func mergeJunior(p models.JuniorProfile, ident models.UserIdentity) models.JuniorProfile {
	fallback(&p.Name, ident.Metadata.Name)
	fallback(&p.Email, ident.Email)
	fallback(&p.Gender, string(models.ParseGender(ident.Metadata.Gender)))
	fallback(&p.Phone, ident.Metadata.Phone)
	fallback(&p.City, ident.Metadata.Region)
	return p
}

func mergeSenior(p models.SeniorProfile, ident models.UserIdentity) models.SeniorProfile {
	fallback(&p.Name, ident.Metadata.Name)
	fallback(&p.Email, ident.Email)
	fallback(&p.Gender, string(models.ParseGender(ident.Metadata.Gender)))
	fallback(&p.CollegeID, ident.Metadata.CollegeID)
	fallback(&p.RollNo, ident.Metadata.RollNo)
	fallback(&p.Phone, ident.Metadata.Phone)
	fallback(&p.Region, ident.Metadata.Region)
	return p
}

func withJuniorDefaults(p models.JuniorProfile) models.JuniorProfile {
	fallback(&p.Name, nameFromEmail(p.Email))
	fallback(&p.Email, placeholderMissing)
	fallback(&p.Phone, placeholderMissing)
	fallback(&p.Year, placeholderUnspecified)
	fallback(&p.Branch, placeholderUnspecified)
	fallback(&p.College, placeholderUnspecified)
	fallback(&p.City, placeholderUnspecified)
	return p
}

func withSeniorDefaults(p models.SeniorProfile) models.SeniorProfile {
	fallback(&p.Name, nameFromEmail(p.Email))
	fallback(&p.Email, placeholderMissing)
	fallback(&p.Phone, placeholderMissing)
	fallback(&p.CollegeID, placeholderUnspecified)
	fallback(&p.RollNo, placeholderUnspecified)
	fallback(&p.Region, placeholderUnspecified)
	return p
}

func displayName(ident models.UserIdentity) string {
	if n := strings.TrimSpace(ident.Metadata.Name); n != "" {
		return n
	}
	return nameFromEmail(ident.Email)
}

func nameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return "Student"
}

func identityGender(ident models.UserIdentity) models.Gender {
	if g := models.ParseGender(ident.Metadata.Gender); g != "" {
		return g
	}
	return DetectGender(displayName(ident))
}

func normalizeGenderPtr(g *string) *string {
	if g == nil {
		return nil
	}
	v := string(models.ParseGender(*g))
	return &v
}

func fallback(dst *string, v string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = v
	}
}
