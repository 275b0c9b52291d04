package models

import "strings"

// BootstrapUserData is what the signup flow knows about a new user.
type BootstrapUserData struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Gender    string `json:"gender"`
	Phone     string `json:"phone"`
	CollegeID string `json:"college_id"`
	RollNo    string `json:"roll_no"`
	Region    string `json:"region"`
	Year      string `json:"year"`
	Branch    string `json:"branch"`
	College   string `json:"college"`
	City      string `json:"city"`
}

// LooksSenior reports whether the signup carried academic identifiers.
func (d BootstrapUserData) LooksSenior() bool {
	return strings.TrimSpace(d.CollegeID) != "" || strings.TrimSpace(d.RollNo) != ""
}

type BootstrapRequest struct {
	UserID   string            `json:"userId"`
	UserData BootstrapUserData `json:"userData"`
	// IsSenior is optional; when omitted it is inferred from UserData.
	IsSenior *bool `json:"isSenior"`
}

func (r *BootstrapRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(r.UserID) == "" {
		errors["userId"] = "User ID is required"
	}
	return errors
}

func (r *BootstrapRequest) Senior() bool {
	if r.IsSenior != nil {
		return *r.IsSenior
	}
	return r.UserData.LooksSenior()
}
