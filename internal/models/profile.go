package models

import "time"

// Role selects which profile collection a request operates on.
type Role string

const (
	RoleJunior Role = "junior"
	RoleSenior Role = "senior"
)

func (r Role) Valid() bool {
	return r == RoleJunior || r == RoleSenior
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ParseGender normalizes free-form input. Unknown values map to "".
func ParseGender(s string) Gender {
	switch Gender(normalize(s)) {
	case GenderMale, "m", "boy":
		return GenderMale
	case GenderFemale, "f", "girl":
		return GenderFemale
	}
	return ""
}

// IdentityMetadata mirrors the custom claims set on the identity provider
// account at signup.
type IdentityMetadata struct {
	Name      string `json:"name,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Role      string `json:"role,omitempty"`
	RollNo    string `json:"roll_no,omitempty"`
	CollegeID string `json:"college_id,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Region    string `json:"region,omitempty"`
}

// UserIdentity is the identity provider's view of a user. Read only here.
type UserIdentity struct {
	ID       string           `json:"id"`
	Email    string           `json:"email"`
	Metadata IdentityMetadata `json:"metadata"`
}

// JuniorProfile is keyed by the identity provider uid.
type JuniorProfile struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name,omitempty"`
	Email     string    `json:"email" bson:"email,omitempty"`
	Gender    string    `json:"gender" bson:"gender,omitempty"`
	Phone     string    `json:"phone" bson:"phone,omitempty"`
	Year      string    `json:"year" bson:"year,omitempty"`
	Branch    string    `json:"branch" bson:"branch,omitempty"`
	College   string    `json:"college" bson:"college,omitempty"`
	City      string    `json:"city" bson:"city,omitempty"`
	AvatarID  string    `json:"avatar_id" bson:"avatar_id,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// SeniorProfile carries the academic identifiers juniors do not have.
type SeniorProfile struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name,omitempty"`
	Gender    string    `json:"gender" bson:"gender,omitempty"`
	CollegeID string    `json:"college_id" bson:"college_id,omitempty"`
	RollNo    string    `json:"roll_no" bson:"roll_no,omitempty"`
	Phone     string    `json:"phone" bson:"phone,omitempty"`
	Email     string    `json:"email" bson:"email,omitempty"`
	Region    string    `json:"region" bson:"region,omitempty"`
	AvatarID  string    `json:"avatar_id" bson:"avatar_id,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// UpdateJuniorRequest is a partial update. Nil fields are left untouched.
type UpdateJuniorRequest struct {
	Name    *string `json:"name"`
	Gender  *string `json:"gender"`
	Phone   *string `json:"phone"`
	Year    *string `json:"year"`
	Branch  *string `json:"branch"`
	College *string `json:"college"`
	City    *string `json:"city"`
}

type UpdateSeniorRequest struct {
	Name      *string `json:"name"`
	Gender    *string `json:"gender"`
	CollegeID *string `json:"college_id"`
	RollNo    *string `json:"roll_no"`
	Phone     *string `json:"phone"`
	Region    *string `json:"region"`
}

func (r *UpdateJuniorRequest) Validate() map[string]string {
	errors := make(map[string]string)
	checkGender(errors, r.Gender)
	checkLen(errors, "name", r.Name, 120)
	checkLen(errors, "phone", r.Phone, 32)
	return errors
}

func (r *UpdateSeniorRequest) Validate() map[string]string {
	errors := make(map[string]string)
	checkGender(errors, r.Gender)
	checkLen(errors, "name", r.Name, 120)
	checkLen(errors, "phone", r.Phone, 32)
	checkLen(errors, "roll_no", r.RollNo, 64)
	return errors
}

func checkGender(errors map[string]string, g *string) {
	if g != nil && *g != "" && ParseGender(*g) == "" {
		errors["gender"] = "Gender must be male or female"
	}
}

func checkLen(errors map[string]string, field string, v *string, max int) {
	if v != nil && len(*v) > max {
		errors[field] = "Value is too long"
	}
}
