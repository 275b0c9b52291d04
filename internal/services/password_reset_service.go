package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusconnect/backend/internal/models"
)

type PasswordResetService struct {
	codes    ResetCodeStore
	identity IdentityProvider
	mailer   Mailer
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
	genCode  func() (string, error)
}

func NewPasswordResetService(codes ResetCodeStore, identity IdentityProvider, mailer Mailer, ttl time.Duration, logger *zap.Logger) *PasswordResetService {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PasswordResetService{
		codes:    codes,
		identity: identity,
		mailer:   mailer,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		genCode:  randomCode,
	}
}

// RequestCode emails a fresh 6-digit code. Unknown addresses succeed
// silently so the endpoint cannot be used to probe for accounts.
func (s *PasswordResetService) RequestCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return NewValidationError(map[string]string{"email": "Email is required"})
	}

	ident, err := s.identity.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		s.logger.Info("reset code requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	code, err := s.genCode()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	rec := &models.PasswordResetCode{
		ID:        uuid.NewString(),
		Email:     email,
		UserID:    ident.ID,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.codes.InsertResetCode(ctx, rec); err != nil {
		return fmt.Errorf("store reset code: %w", err)
	}

	minutes := int(s.ttl.Minutes())
	return s.mailer.Send(ctx, EmailMessage{
		To:       email,
		Subject:  "Your CampusConnect password reset code",
		Text:     fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.\n\nIf you did not request this, ignore this email.\n", code, minutes),
		Category: "password-reset",
	})
}

// Verify consumes a matching unexpired code. When newPassword is set the
// account password is updated before the code is marked used, so a failed
// update leaves the code usable.
func (s *PasswordResetService) Verify(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	fields := map[string]string{}
	if email == "" {
		fields["email"] = "Email is required"
	}
	if code == "" {
		fields["code"] = "Code is required"
	}
	if newPassword != "" && len(newPassword) < 6 {
		fields["newPassword"] = "Password must be at least 6 characters"
	}
	if len(fields) > 0 {
		return NewValidationError(fields)
	}

	now := s.now().UTC()
	active, err := s.codes.ActiveResetCodes(ctx, email, now)
	if err != nil {
		return err
	}

	var match *models.PasswordResetCode
	for i := range active {
		if bcrypt.CompareHashAndPassword([]byte(active[i].CodeHash), []byte(code)) == nil {
			match = &active[i]
			break
		}
	}
	if match == nil {
		if len(active) > 0 {
			if err := s.codes.RecordFailedAttempt(ctx, email, now); err != nil {
				s.logger.Warn("record failed reset attempt", zap.Error(err))
			}
		}
		return ErrResetCodeInvalid
	}

	if newPassword != "" {
		if err := s.identity.UpdatePassword(ctx, match.UserID, newPassword); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
	}
	if err := s.codes.MarkResetCodeUsed(ctx, match.ID, now); err != nil {
		return err
	}
	s.logger.Info("reset code consumed", zap.String("user_id", match.UserID), zap.Bool("password_updated", newPassword != ""))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
