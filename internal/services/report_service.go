package services

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"net/mail"
	"strings"
	texttemplate "text/template"
	"time"

	"go.uber.org/zap"

	"github.com/campusconnect/backend/internal/models"
)

// Exactly one counterparty section is rendered: a junior reports a senior
// and vice versa.
const reportHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <h2>{{.Title}}</h2>
  <h3>Reporter Details</h3>
  <table cellpadding="4">
    <tr><td><strong>Name</strong></td><td>{{.Report.Name}}</td></tr>
    <tr><td><strong>Email</strong></td><td>{{.Report.Email}}</td></tr>
    <tr><td><strong>Phone</strong></td><td>{{if .Report.Phone}}{{.Report.Phone}}{{else}}Not provided{{end}}</td></tr>
  </table>
  <h3>{{.CounterpartyHeading}}</h3>
{{- with .Counterparty}}
  <table cellpadding="4">
    {{- if .Name}}<tr><td><strong>Name</strong></td><td>{{.Name}}</td></tr>{{end}}
    {{- if .Email}}<tr><td><strong>Email</strong></td><td>{{.Email}}</td></tr>{{end}}
    {{- if .Phone}}<tr><td><strong>Phone</strong></td><td>{{.Phone}}</td></tr>{{end}}
    {{- if .College}}<tr><td><strong>College</strong></td><td>{{.College}}</td></tr>{{end}}
    {{- if .RollNo}}<tr><td><strong>Roll No</strong></td><td>{{.RollNo}}</td></tr>{{end}}
  </table>
{{- else}}
  <p>Not provided</p>
{{- end}}
  <h3>Issue Description</h3>
  <p style="white-space: pre-wrap;">{{.Report.IssueDescription}}</p>
{{- if .Report.ProofURL}}
  <h3>Proof</h3>
  <p><a href="{{.Report.ProofURL}}">{{.Report.ProofURL}}</a></p>
{{- end}}
  <p style="color: #6b7280; font-size: 12px;">Submitted {{.SubmittedAt}}. Reply to this email to contact the reporter.</p>
</body>
</html>
`

const reportText = `{{.Title}}

Reporter Details
Name: {{.Report.Name}}
Email: {{.Report.Email}}
Phone: {{if .Report.Phone}}{{.Report.Phone}}{{else}}Not provided{{end}}

{{.CounterpartyHeading}}
{{with .Counterparty}}{{if .Name}}Name: {{.Name}}
{{end}}{{if .Email}}Email: {{.Email}}
{{end}}{{if .Phone}}Phone: {{.Phone}}
{{end}}{{if .College}}College: {{.College}}
{{end}}{{if .RollNo}}Roll No: {{.RollNo}}
{{end}}{{else}}Not provided
{{end}}
Issue Description
{{.Report.IssueDescription}}
{{if .Report.ProofURL}}
Proof: {{.Report.ProofURL}}
{{end}}
Submitted {{.SubmittedAt}}.
`

var (
	reportHTMLTmpl = htmltemplate.Must(htmltemplate.New("report.html").Parse(reportHTML))
	reportTextTmpl = texttemplate.Must(texttemplate.New("report.txt").Parse(reportText))
)

type reportView struct {
	Title               string
	Report              models.ReportSubmission
	CounterpartyHeading string
	Counterparty        *models.CounterpartyDetails
	SubmittedAt         string
}

// DeliveryResult describes an accepted email.
type DeliveryResult struct {
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	SentAt    time.Time `json:"sent_at"`
}

type ReportService struct {
	mailer           Mailer
	defaultRecipient string
	logger           *zap.Logger
	now              func() time.Time
}

func NewReportService(mailer Mailer, defaultRecipient string, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		mailer:           mailer,
		defaultRecipient: strings.TrimSpace(defaultRecipient),
		logger:           logger,
		now:              time.Now,
	}
}

// Validate normalizes the report and resolves the recipient without any
// network call. Callers that gate submission on another check run this first.
func (s *ReportService) Validate(report models.ReportSubmission, recipient string) (models.ReportSubmission, string, error) {
	report.Normalize()
	fields := report.Validate()

	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		recipient = s.defaultRecipient
	}
	if recipient == "" {
		fields["receiverEmail"] = "Receiver email is required"
	} else if _, err := mail.ParseAddress(recipient); err != nil {
		fields["receiverEmail"] = "Receiver email is invalid"
	}
	if len(fields) > 0 {
		return report, recipient, NewValidationError(fields)
	}
	return report, recipient, nil
}

// Submit validates locally, renders and makes exactly one delivery attempt.
// Validation failures never reach the mailer.
func (s *ReportService) Submit(ctx context.Context, report models.ReportSubmission, recipient string) (*DeliveryResult, error) {
	report, recipient, err := s.Validate(report, recipient)
	if err != nil {
		return nil, err
	}

	msg, err := s.render(report, recipient)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("report delivery failed",
			zap.String("report_type", string(report.ReportType)),
			zap.String("recipient", recipient),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("report delivered",
		zap.String("report_type", string(report.ReportType)),
		zap.String("recipient", recipient))
	return &DeliveryResult{Recipient: recipient, Subject: msg.Subject, SentAt: s.now().UTC()}, nil
}

func (s *ReportService) render(report models.ReportSubmission, recipient string) (EmailMessage, error) {
	view := reportView{
		Report:      report,
		SubmittedAt: s.now().UTC().Format(time.RFC1123),
	}
	switch report.ReportType {
	case models.ReportTypeSenior:
		view.Title = "Senior Report"
		view.CounterpartyHeading = "Junior Details"
		view.Counterparty = report.JuniorDetails
	default:
		view.Title = "Junior Report"
		view.CounterpartyHeading = "Senior Details"
		view.Counterparty = report.SeniorDetails
	}
	if view.Counterparty.IsZero() {
		view.Counterparty = nil
	}

	var html, text bytes.Buffer
	if err := reportHTMLTmpl.Execute(&html, view); err != nil {
		return EmailMessage{}, fmt.Errorf("render report html: %w", err)
	}
	if err := reportTextTmpl.Execute(&text, view); err != nil {
		return EmailMessage{}, fmt.Errorf("render report text: %w", err)
	}

	return EmailMessage{
		To:          recipient,
		Subject:     fmt.Sprintf("CampusConnect %s from %s", view.Title, report.Name),
		Text:        text.String(),
		HTML:        html.String(),
		ReplyTo:     report.Email,
		ReplyToName: report.Name,
		Category:    "report-" + string(report.ReportType),
	}, nil
}
