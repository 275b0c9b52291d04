package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// EmailMessage is one outbound email. HTML is optional; Text is always sent.
type EmailMessage struct {
	To          string
	Subject     string
	Text        string
	HTML        string
	ReplyTo     string
	ReplyToName string
	Category    string
}

// Mailer sends a single email. Implementations must not retry.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

type SendGridMailer struct {
	APIKey     string
	FromEmail  string
	FromName   string
	HTTPClient *http.Client
	Endpoint   string
}

func NewSendGridMailer(apiKey string, fromEmail string, fromName string) *SendGridMailer {
	name := strings.TrimSpace(fromName)
	if name == "" {
		name = "CampusConnect"
	}
	return &SendGridMailer{
		APIKey:    strings.TrimSpace(apiKey),
		FromEmail: strings.TrimSpace(fromEmail),
		FromName:  name,
		Endpoint:  "https://api.sendgrid.com/v3/mail/send",
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendGridEmailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridPersonalization struct {
	To      []sendGridEmailAddress `json:"to"`
	Subject string                 `json:"subject"`
}

type sendGridMailSendRequest struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridEmailAddress      `json:"from"`
	ReplyTo          *sendGridEmailAddress     `json:"reply_to,omitempty"`
	Content          []sendGridContent         `json:"content"`
	Categories       []string                  `json:"categories,omitempty"`
}

type sendGridErrorResponse struct {
	Errors []struct {
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"errors"`
}

func sendGridError(status int, msg string, err error) *DeliveryError {
	return &DeliveryError{Provider: "sendgrid", StatusCode: status, Message: msg, Err: err}
}

func (m *SendGridMailer) Send(ctx context.Context, msg EmailMessage) error {
	if m == nil {
		return sendGridError(0, "sendgrid mailer not configured", nil)
	}
	if m.APIKey == "" {
		return sendGridError(0, "missing SENDGRID_API_KEY", nil)
	}
	if m.FromEmail == "" {
		return sendGridError(0, "missing REPORT_FROM_EMAIL", nil)
	}

	// SendGrid requires text/plain before text/html.
	content := []sendGridContent{{Type: "text/plain", Value: msg.Text}}
	if msg.HTML != "" {
		content = append(content, sendGridContent{Type: "text/html", Value: msg.HTML})
	}

	reqBody := sendGridMailSendRequest{
		Personalizations: []sendGridPersonalization{
			{
				To:      []sendGridEmailAddress{{Email: strings.TrimSpace(msg.To)}},
				Subject: msg.Subject,
			},
		},
		From:    sendGridEmailAddress{Email: m.FromEmail, Name: m.FromName},
		Content: content,
	}
	if msg.ReplyTo != "" {
		reqBody.ReplyTo = &sendGridEmailAddress{
			Email: strings.TrimSpace(msg.ReplyTo),
			Name:  strings.TrimSpace(msg.ReplyToName),
		}
	}
	if msg.Category != "" {
		reqBody.Categories = []string{msg.Category}
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := m.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return sendGridError(0, "", err)
	}
	defer resp.Body.Close()

	// SendGrid returns 202 Accepted on success.
	if resp.StatusCode != http.StatusAccepted {
		return sendGridError(resp.StatusCode, readSendGridError(resp.Body), nil)
	}
	return nil
}

func readSendGridError(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(raw) == 0 {
		return "no response body"
	}
	var parsed sendGridErrorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && len(parsed.Errors) > 0 {
		msgs := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			if e.Field != "" {
				msgs = append(msgs, fmt.Sprintf("%s (%s)", e.Message, e.Field))
			} else {
				msgs = append(msgs, e.Message)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return strings.TrimSpace(string(raw))
}
