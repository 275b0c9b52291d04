package models

import (
	"net/mail"
	"strings"
)

type ReportType string

const (
	ReportTypeJunior ReportType = "junior"
	ReportTypeSenior ReportType = "senior"
)

// CounterpartyDetails describes the other side of a report: the senior a
// junior is reporting, or the junior a senior is reporting.
type CounterpartyDetails struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	College string `json:"college,omitempty"`
	RollNo  string `json:"roll_no,omitempty"`
}

func (d *CounterpartyDetails) IsZero() bool {
	return d == nil || *d == (CounterpartyDetails{})
}

// ReportSubmission is sent once and never stored.
type ReportSubmission struct {
	Name             string               `json:"name"`
	Email            string               `json:"email"`
	Phone            string               `json:"phone,omitempty"`
	IssueDescription string               `json:"issue_description"`
	ProofURL         string               `json:"proof_url,omitempty"`
	SeniorDetails    *CounterpartyDetails `json:"senior_details,omitempty"`
	JuniorDetails    *CounterpartyDetails `json:"junior_details,omitempty"`
	ReportType       ReportType           `json:"report_type"`
}

// SubmitReportRequest is the wire shape of POST /api/reports.
type SubmitReportRequest struct {
	ReportData     ReportSubmission `json:"reportData"`
	ReceiverEmail  string           `json:"receiverEmail"`
	RecaptchaToken string           `json:"recaptchaToken,omitempty"`
}

// Normalize trims every free-text field and defaults the report type.
func (r *ReportSubmission) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.IssueDescription = strings.TrimSpace(r.IssueDescription)
	r.ProofURL = strings.TrimSpace(r.ProofURL)
	r.ReportType = ReportType(normalize(string(r.ReportType)))
	if r.ReportType == "" {
		r.ReportType = ReportTypeJunior
	}
}

// Validate expects Normalize to have been called.
func (r *ReportSubmission) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Name == "" {
		errors["name"] = "Name is required"
	} else if len(r.Name) > 120 {
		errors["name"] = "Name is too long"
	}

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if len(r.Email) > 254 {
		errors["email"] = "Email is too long"
	} else if _, err := mail.ParseAddress(r.Email); err != nil {
		errors["email"] = "Email is invalid"
	}

	if r.IssueDescription == "" {
		errors["issue_description"] = "Issue description is required"
	} else if len(r.IssueDescription) > 4000 {
		errors["issue_description"] = "Issue description is too long"
	}

	if r.ReportType != ReportTypeJunior && r.ReportType != ReportTypeSenior {
		errors["report_type"] = "Report type must be junior or senior"
	}

	return errors
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
