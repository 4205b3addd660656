// Package jsonhook parses the generic JSON webhook payload that most
// inbound email services can be configured to post.
package jsonhook

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mailfold/mailfold/internal/ingest"
	"github.com/mailfold/mailfold/internal/models"
)

// Adapter parses JSON webhook deliveries.
type Adapter struct{}

// New creates a JSON webhook adapter.
func New() *Adapter {
	return &Adapter{}
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return "jsonhook"
}

type payload struct {
	MessageID  string    `json:"message_id"`
	InReplyTo  string    `json:"in_reply_to"`
	References []string  `json:"references"`
	From       string    `json:"from"`
	To         []string  `json:"to"`
	CC         []string  `json:"cc"`
	BCC        []string  `json:"bcc"`
	Subject    string    `json:"subject"`
	Text       string    `json:"text"`
	HTML       string    `json:"html"`
	Recipient  string    `json:"recipient"`
	Timestamp  time.Time `json:"timestamp"`

	Attachments []payloadAttachment `json:"attachments"`
}

type payloadAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
}

// Parse converts a JSON webhook body into an inbound message. A missing
// message_id gets a synthesized one so the delivery is still ingestible,
// though it can no longer be deduplicated against provider retries.
func (a *Adapter) Parse(body []byte) (*models.InboundMessage, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decoding webhook payload: %s: %w", err, ingest.ErrMalformedPayload)
	}

	if p.Recipient == "" {
		return nil, fmt.Errorf("webhook payload has no recipient: %w", ingest.ErrMalformedPayload)
	}

	externalID := p.MessageID
	if externalID == "" {
		externalID = uuid.NewString() + "@mailfold.generated"
	}

	receivedAt := p.Timestamp
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	msg := &models.InboundMessage{
		ExternalID:       externalID,
		InReplyTo:        p.InReplyTo,
		References:       p.References,
		FromAddress:      p.From,
		ToAddresses:      p.To,
		CCAddresses:      p.CC,
		BCCAddresses:     p.BCC,
		Subject:          p.Subject,
		BodyText:         p.Text,
		BodyHTML:         p.HTML,
		RecipientAddress: p.Recipient,
		ReceivedAt:       receivedAt,
	}

	for _, att := range p.Attachments {
		content, err := base64.StdEncoding.DecodeString(att.Content)
		if err != nil {
			return nil, fmt.Errorf("decoding attachment %q: %s: %w", att.Filename, err, ingest.ErrMalformedPayload)
		}
		msg.Attachments = append(msg.Attachments, models.IncomingAttachment{
			Filename:    att.Filename,
			ContentType: att.ContentType,
			Content:     content,
		})
	}

	return msg, nil
}
