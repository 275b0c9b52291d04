package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendGridMailer_Send(t *testing.T) {
	var got sendGridMailSendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewSendGridMailer("key-123", "noreply@campusconnect.app", "")
	m.Endpoint = srv.URL

	err := m.Send(context.Background(), EmailMessage{
		To:       "mod@x.com",
		Subject:  "hello",
		Text:     "plain",
		HTML:     "<p>rich</p>",
		ReplyTo:  "a@x.com",
		Category: "report-junior",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer key-123", auth)
	assert.Equal(t, "CampusConnect", got.From.Name)
	require.Len(t, got.Personalizations, 1)
	assert.Equal(t, "mod@x.com", got.Personalizations[0].To[0].Email)
	require.Len(t, got.Content, 2)
	assert.Equal(t, "text/plain", got.Content[0].Type)
	assert.Equal(t, "text/html", got.Content[1].Type)
	require.NotNil(t, got.ReplyTo)
	assert.Equal(t, "a@x.com", got.ReplyTo.Email)
	assert.Equal(t, []string{"report-junior"}, got.Categories)
}

func TestSendGridMailer_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":[{"message":"Does not contain a valid address.","field":"personalizations.0.to"}]}`))
	}))
	defer srv.Close()

	m := NewSendGridMailer("key", "noreply@campusconnect.app", "")
	m.Endpoint = srv.URL

	err := m.Send(context.Background(), EmailMessage{To: "bad", Subject: "s", Text: "t"})
	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, http.StatusBadRequest, derr.StatusCode)
	assert.Equal(t, "Does not contain a valid address. (personalizations.0.to)", derr.Message)
}

func TestSendGridMailer_NotConfigured(t *testing.T) {
	var derr *DeliveryError

	err := NewSendGridMailer("", "from@x.com", "").Send(context.Background(), EmailMessage{})
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Message, "SENDGRID_API_KEY")

	err = NewSendGridMailer("key", "", "").Send(context.Background(), EmailMessage{})
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Message, "REPORT_FROM_EMAIL")
}
