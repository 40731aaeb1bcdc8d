package mailer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmbilling/internal/config"
)

// Attachment is a single file sent alongside an email.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// APIClient sends email through a JSON transactional-mail HTTP API.
type APIClient struct {
	httpClient *resty.Client
	from       string
}

// NewClient builds a mail API client from configuration.
func NewClient(cfg config.MailConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)

	return &APIClient{
		httpClient: restyClient,
		from:       cfg.FromAddress,
	}
}

type sendRequest struct {
	From        string              `json:"from"`
	To          []string            `json:"to"`
	Subject     string              `json:"subject"`
	Text        string              `json:"text"`
	Attachments []attachmentPayload `json:"attachments,omitempty"`
}

type attachmentPayload struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
}

type sendResponse struct {
	ID string `json:"id"`
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Send posts one message. Any non-2xx answer is returned as an error.
func (c *APIClient) Send(ctx context.Context, to, subject, body string, attachment Attachment) error {
	if strings.TrimSpace(to) == "" {
		return errors.New("recipient address is empty")
	}

	payload := sendRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}
	if len(attachment.Content) > 0 {
		payload.Attachments = []attachmentPayload{{
			Filename:    attachment.Filename,
			ContentType: attachment.ContentType,
			Content:     base64.StdEncoding.EncodeToString(attachment.Content),
		}}
	}

	result := new(sendResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		SetError(apiErr).
		Post("/messages")
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode())
		}
		return fmt.Errorf("mail api error: status=%d, message=%s", resp.StatusCode(), message)
	}

	return nil
}

// LogTransport writes messages to the log instead of sending them. It is
// used when no mail API is configured.
type LogTransport struct {
	from   string
	logger *zap.Logger
}

// NewLogTransport builds a logging transport.
func NewLogTransport(from string, logger *zap.Logger) *LogTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogTransport{from: from, logger: logger}
}

// Send logs the message envelope and attachment size.
func (t *LogTransport) Send(_ context.Context, to, subject, body string, attachment Attachment) error {
	t.logger.Info("email logged (mail api not configured)",
		zap.String("from", t.from),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_length", len(body)),
		zap.String("attachment", attachment.Filename),
		zap.Int("attachment_bytes", len(attachment.Content)))
	return nil
}
