// Package rawmime parses raw RFC 5322 messages posted by providers
// that forward the full MIME source of each inbound delivery.
package rawmime

import (
	"bytes"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"

	"github.com/mailfold/mailfold/internal/ingest"
	"github.com/mailfold/mailfold/internal/models"
)

// Adapter parses raw MIME deliveries.
type Adapter struct{}

// New creates a raw MIME adapter.
func New() *Adapter {
	return &Adapter{}
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return "rawmime"
}

// Parse converts a raw RFC 5322 message into an inbound message. The
// recipient is taken from the Delivered-To header when present, falling
// back to the first To address. A message without a Message-Id header
// gets a synthesized one.
func (a *Adapter) Parse(body []byte) (*models.InboundMessage, error) {
	envelope, err := enmime.ReadEnvelope(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing mime message: %s: %w", err, ingest.ErrMalformedPayload)
	}

	externalID := envelope.GetHeader("Message-Id")
	if externalID == "" {
		externalID = uuid.NewString() + "@mailfold.generated"
	}

	msg := &models.InboundMessage{
		ExternalID:  externalID,
		InReplyTo:   envelope.GetHeader("In-Reply-To"),
		References:  strings.Fields(envelope.GetHeader("References")),
		FromAddress: firstAddress(envelope, "From"),
		Subject:     envelope.GetHeader("Subject"),
		BodyText:    envelope.Text,
		BodyHTML:    envelope.HTML,
		ReceivedAt:  parseDate(envelope.GetHeader("Date")),
	}

	msg.ToAddresses = addressList(envelope, "To")
	msg.CCAddresses = addressList(envelope, "Cc")
	msg.BCCAddresses = addressList(envelope, "Bcc")

	msg.RecipientAddress = strings.TrimSpace(envelope.GetHeader("Delivered-To"))
	if msg.RecipientAddress == "" && len(msg.ToAddresses) > 0 {
		msg.RecipientAddress = msg.ToAddresses[0]
	}
	if msg.RecipientAddress == "" {
		return nil, fmt.Errorf("mime message has no recipient: %w", ingest.ErrMalformedPayload)
	}

	for _, part := range envelope.Attachments {
		msg.Attachments = append(msg.Attachments, models.IncomingAttachment{
			Filename:    part.FileName,
			ContentType: part.ContentType,
			Content:     part.Content,
		})
	}

	return msg, nil
}

// addressList extracts bare addresses from an address header.
func addressList(envelope *enmime.Envelope, key string) []string {
	addresses, err := envelope.AddressList(key)
	if err != nil {
		return nil
	}
	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if addr.Address != "" {
			result = append(result, addr.Address)
		}
	}
	return result
}

func firstAddress(envelope *enmime.Envelope, key string) string {
	addresses := addressList(envelope, key)
	if len(addresses) == 0 {
		return envelope.GetHeader(key)
	}
	return addresses[0]
}

func parseDate(raw string) time.Time {
	if raw != "" {
		if parsed, err := mail.ParseDate(raw); err == nil {
			return parsed.UTC()
		}
	}
	return time.Now().UTC()
}
