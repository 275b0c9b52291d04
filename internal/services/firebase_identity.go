package services

import (
	"context"
	"fmt"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"

	"github.com/campusconnect/backend/internal/models"
)

// IdentityProvider is the slice of the auth backend this service needs.
type IdentityProvider interface {
	GetUser(ctx context.Context, uid string) (*models.UserIdentity, error)
	// GetUserByEmail returns ErrAccountNotFound for unknown addresses.
	GetUserByEmail(ctx context.Context, email string) (*models.UserIdentity, error)
	UpdatePassword(ctx context.Context, uid string, password string) error
}

// FirebaseIdentity reads signup metadata from Firebase custom claims.
type FirebaseIdentity struct {
	client *fbauth.Client
}

func NewFirebaseIdentity(client *fbauth.Client) *FirebaseIdentity {
	return &FirebaseIdentity{client: client}
}

func (f *FirebaseIdentity) GetUser(ctx context.Context, uid string) (*models.UserIdentity, error) {
	if f == nil || f.client == nil {
		return nil, fmt.Errorf("firebase auth not configured")
	}
	u, err := f.client.GetUser(ctx, uid)
	if err != nil {
		if fbauth.IsUserNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return identityFromRecord(u), nil
}

func (f *FirebaseIdentity) GetUserByEmail(ctx context.Context, email string) (*models.UserIdentity, error) {
	if f == nil || f.client == nil {
		return nil, fmt.Errorf("firebase auth not configured")
	}
	u, err := f.client.GetUserByEmail(ctx, email)
	if err != nil {
		if fbauth.IsUserNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return identityFromRecord(u), nil
}

func (f *FirebaseIdentity) UpdatePassword(ctx context.Context, uid string, password string) error {
	if f == nil || f.client == nil {
		return fmt.Errorf("firebase auth not configured")
	}
	_, err := f.client.UpdateUser(ctx, uid, (&fbauth.UserToUpdate{}).Password(password))
	return err
}

func identityFromRecord(u *fbauth.UserRecord) *models.UserIdentity {
	ident := IdentityFromClaims(u.UID, u.Email, u.CustomClaims)
	if ident.Metadata.Name == "" {
		ident.Metadata.Name = u.DisplayName
	}
	if ident.Metadata.Phone == "" {
		ident.Metadata.Phone = u.PhoneNumber
	}
	return &ident
}

// IdentityFromClaims builds an identity from ID token or custom claims.
// Claims with a non-string value are ignored.
func IdentityFromClaims(uid, email string, claims map[string]interface{}) models.UserIdentity {
	str := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := claims[k].(string); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}
	if email == "" {
		email = str("email")
	}
	return models.UserIdentity{
		ID:    uid,
		Email: email,
		Metadata: models.IdentityMetadata{
			Name:      str("name", "full_name"),
			Gender:    str("gender"),
			Role:      str("role"),
			RollNo:    str("roll_no"),
			CollegeID: str("college_id"),
			Phone:     str("phone", "phone_number"),
			Region:    str("region"),
		},
	}
}
