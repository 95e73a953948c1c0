// Package relay forwards deployment notifications from SNS to a chat webhook.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/vietdv277/tierctl/pkg/provider"
)

// DefaultText is posted when a message carries no text field
const DefaultText = "Deployment Notification"

// Message is the JSON body published to the notification topics and
// posted to the webhook
type Message struct {
	Text string `json:"text"`
}

// Response is returned to the Lambda runtime
type Response struct {
	StatusCode int `json:"statusCode"`
}

// Handler posts each SNS record to a webhook
type Handler struct {
	WebhookURL string
	Client     *http.Client
	Log        zerolog.Logger
}

// NewHandler returns a handler posting to webhookURL
func NewHandler(webhookURL string, log zerolog.Logger) *Handler {
	return &Handler{
		WebhookURL: webhookURL,
		Client:     &http.Client{Timeout: 10 * time.Second},
		Log:        log,
	}
}

// Handle posts every record in order. The first malformed message or failed
// post fails the invocation.
func (h *Handler) Handle(ctx context.Context, event events.SNSEvent) (Response, error) {
	if h.WebhookURL == "" {
		return Response{}, fmt.Errorf("webhook url: %w", provider.ErrNotConfigured)
	}

	for _, record := range event.Records {
		var msg Message
		if err := json.Unmarshal([]byte(record.SNS.Message), &msg); err != nil {
			return Response{}, fmt.Errorf("failed to parse message %s: %w", record.SNS.MessageID, err)
		}
		if msg.Text == "" {
			msg.Text = DefaultText
		}

		status, err := h.post(ctx, msg)
		if err != nil {
			return Response{}, err
		}
		h.Log.Info().Str("message_id", record.SNS.MessageID).Int("status", status).Msg("webhook response")
	}

	return Response{StatusCode: http.StatusOK}, nil
}

func (h *Handler) post(ctx context.Context, msg Message) (int, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to post to webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
