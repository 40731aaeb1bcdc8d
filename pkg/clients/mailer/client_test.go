package mailer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmbilling/internal/config"
)

func TestAPIClient_Send(t *testing.T) {
	var got sendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg-1"}`))
	}))
	defer srv.Close()

	client := NewClient(config.MailConfig{BaseURL: srv.URL + "/", APIKey: "secret", FromAddress: "billing@farm.test"})
	err := client.Send(context.Background(), "owner@farm.test", "Monthly Farm Invoice - 2024-01", "hello", Attachment{
		Filename:    "invoice-o1-2024-01.pdf",
		ContentType: "application/pdf",
		Content:     []byte("%PDF"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "billing@farm.test", got.From)
	assert.Equal(t, []string{"owner@farm.test"}, got.To)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF")), got.Attachments[0].Content)
}

func TestAPIClient_SendReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"mailbox unavailable"}`))
	}))
	defer srv.Close()

	client := NewClient(config.MailConfig{BaseURL: srv.URL})
	err := client.Send(context.Background(), "owner@farm.test", "s", "b", Attachment{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mailbox unavailable")
	assert.Contains(t, err.Error(), "422")
}

func TestAPIClient_SendRejectsEmptyRecipient(t *testing.T) {
	client := NewClient(config.MailConfig{BaseURL: "http://127.0.0.1:1"})
	err := client.Send(context.Background(), " ", "s", "b", Attachment{})
	assert.Error(t, err)
}
