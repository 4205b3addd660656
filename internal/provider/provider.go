// Package provider defines the interface for inbound delivery adapters.
package provider

import (
	"github.com/mailfold/mailfold/internal/models"
)

// Adapter converts a provider-specific inbound payload into the
// internal message form. Each adapter handles one wire format
// (e.g. a JSON webhook body, a raw RFC 5322 message).
type Adapter interface {
	// Parse converts a raw payload into an inbound message.
	// It returns an error wrapping ingest.ErrMalformedPayload when
	// the payload cannot be understood.
	Parse(body []byte) (*models.InboundMessage, error)

	// Name returns the human-readable name of this adapter.
	Name() string
}
