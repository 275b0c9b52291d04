package models

import "time"

// PasswordResetCode stores only the bcrypt hash of the code. Attempts counts
// failed verifications against the email while the code was active.
type PasswordResetCode struct {
	ID        string     `json:"id" bson:"_id"`
	Email     string     `json:"email" bson:"email"`
	UserID    string     `json:"user_id" bson:"user_id"`
	CodeHash  string     `json:"-" bson:"code_hash"`
	ExpiresAt time.Time  `json:"expires_at" bson:"expires_at"`
	Attempts  int        `json:"attempts" bson:"attempts"`
	Used      bool       `json:"used" bson:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty" bson:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
}

type RequestResetCodeRequest struct {
	Email string `json:"email"`
}

type VerifyResetCodeRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}
