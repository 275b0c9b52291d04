package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusconnect/backend/internal/models"
)

type fakeVerifier struct {
	tokens map[string]*fbauth.Token
}

func (f fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*fbauth.Token, error) {
	if tok, ok := f.tokens[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("token expired")
}

func captureIdentity(got *models.UserIdentity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = GetIdentity(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestFirebaseAuth(t *testing.T) {
	verifier := fakeVerifier{tokens: map[string]*fbauth.Token{
		"good": {UID: "uid-1", Claims: map[string]interface{}{"email": "a@x.com", "name": "Ananya"}},
	}}

	var got models.UserIdentity
	h := FirebaseAuth(verifier)(captureIdentity(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/profiles/junior", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "uid-1", got.ID)
	assert.Equal(t, "a@x.com", got.Email)
	assert.Equal(t, "Ananya", got.Metadata.Name)

	for header, want := range map[string]int{
		"":             http.StatusUnauthorized,
		"Basic abc":    http.StatusUnauthorized,
		"Bearer ":      http.StatusUnauthorized,
		"Bearer wrong": http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, header)
	}
}

func TestFirebaseAuth_NotConfigured(t *testing.T) {
	var got models.UserIdentity
	h := FirebaseAuth(nil)(captureIdentity(&got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestServiceRoleAuth(t *testing.T) {
	const secret = "service-secret"
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := ServiceRoleAuth(secret)(next)
	exp := time.Now().Add(time.Hour).Unix()

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"service role", signHS256(t, secret, jwt.MapClaims{"role": "service_role", "exp": exp}), http.StatusOK},
		{"anon role", signHS256(t, secret, jwt.MapClaims{"role": "anon", "exp": exp}), http.StatusForbidden},
		{"wrong secret", signHS256(t, "other", jwt.MapClaims{"role": "service_role", "exp": exp}), http.StatusUnauthorized},
		{"expired", signHS256(t, secret, jwt.MapClaims{"role": "service_role", "exp": time.Now().Add(-time.Hour).Unix()}), http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/bootstrap-profile", nil)
			req.Header.Set("Authorization", "Bearer "+tc.token)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestServiceRoleAuth_NotConfigured(t *testing.T) {
	h := ServiceRoleAuth("")(http.NotFoundHandler())
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWithIdentity(t *testing.T) {
	ctx := WithIdentity(context.Background(), models.UserIdentity{ID: "u1", Email: "u@x.com"})
	assert.Equal(t, "u1", GetUserID(ctx))
	assert.Equal(t, "u@x.com", GetIdentity(ctx).Email)
	assert.Empty(t, GetUserID(context.Background()))
}
