package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusconnect/backend/internal/models"
)

// BootstrapService writes the first profile row right after signup. It runs
// with service-role privileges and, unlike lazy resolution, fails loudly.
type BootstrapService struct {
	store  ProfileStore
	logger *zap.Logger
	now    func() time.Time
}

func NewBootstrapService(store ProfileStore, logger *zap.Logger) *BootstrapService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BootstrapService{store: store, logger: logger, now: time.Now}
}

// Bootstrap inserts a senior or junior row. A second call for the same user
// returns ErrProfileExists; any other insert failure is a *PersistenceError.
func (s *BootstrapService) Bootstrap(ctx context.Context, userID string, data models.BootstrapUserData, isSenior bool) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return NewValidationError(map[string]string{"userId": "User ID is required"})
	}

	now := s.now().UTC()
	gender := models.ParseGender(data.Gender)
	if gender == "" {
		gender = DetectGender(data.Name)
	}

	role := models.RoleJunior
	var err error
	if isSenior {
		role = models.RoleSenior
		err = s.store.InsertSenior(ctx, &models.SeniorProfile{
			ID:        userID,
			Name:      strings.TrimSpace(data.Name),
			Gender:    string(gender),
			CollegeID: strings.TrimSpace(data.CollegeID),
			RollNo:    strings.TrimSpace(data.RollNo),
			Phone:     strings.TrimSpace(data.Phone),
			Email:     strings.TrimSpace(data.Email),
			Region:    strings.TrimSpace(data.Region),
			CreatedAt: now,
			UpdatedAt: now,
		})
	} else {
		err = s.store.InsertJunior(ctx, &models.JuniorProfile{
			ID:        userID,
			Name:      strings.TrimSpace(data.Name),
			Email:     strings.TrimSpace(data.Email),
			Gender:    string(gender),
			Phone:     strings.TrimSpace(data.Phone),
			Year:      strings.TrimSpace(data.Year),
			Branch:    strings.TrimSpace(data.Branch),
			College:   strings.TrimSpace(data.College),
			City:      strings.TrimSpace(data.City),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	switch {
	case err == nil:
		s.logger.Info("profile bootstrapped", zap.String("user_id", userID), zap.String("role", string(role)))
		return nil
	case errors.Is(err, ErrProfileExists):
		s.logger.Info("profile already bootstrapped", zap.String("user_id", userID), zap.String("role", string(role)))
		return ErrProfileExists
	default:
		return &PersistenceError{Role: role, Op: "bootstrap", Err: err}
	}
}
