package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/campusconnect/backend/internal/models"
)

var (
	// ErrProfileNotFound means the row is absent. Resolution treats it as the
	// create-path trigger, not a failure.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrProfileExists is returned by inserts that hit the unique id constraint.
	ErrProfileExists = errors.New("profile already exists")
	// ErrUnauthorized means there is no authenticated user behind the call.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrResetCodeInvalid covers wrong, expired and already used codes alike.
	ErrResetCodeInvalid = errors.New("invalid or expired reset code")
	ErrAccountNotFound  = errors.New("account not found")
)

// ValidationError is raised before any network call is made.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// DeliveryError wraps an email provider failure. Message is the provider's
// own error text when it sent one.
type DeliveryError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *DeliveryError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s delivery failed (http %d): %s", e.Provider, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s delivery failed: %s", e.Provider, msg)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// PersistenceError is a failed write to the profile store.
type PersistenceError struct {
	Role models.Role
	Op   string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s profile: %v", e.Op, e.Role, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// FetchError is any lookup failure other than a missing row.
type FetchError struct {
	Role models.Role
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s profile: %v", e.Role, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
