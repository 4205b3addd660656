package models

import "time"

// InboundMessage is the canonical form of a provider "message arrived"
// event, produced by a provider adapter. It is never persisted as-is.
type InboundMessage struct {
	ExternalID       string    `json:"external_id"`
	InReplyTo        string    `json:"in_reply_to,omitempty"`
	References       []string  `json:"references,omitempty"`
	FromAddress      string    `json:"from_address"`
	ToAddresses      []string  `json:"to_addresses"`
	CCAddresses      []string  `json:"cc_addresses,omitempty"`
	BCCAddresses     []string  `json:"bcc_addresses,omitempty"`
	Subject          string    `json:"subject"`
	BodyText         string    `json:"body_text,omitempty"`
	BodyHTML         string    `json:"body_html,omitempty"`
	RecipientAddress string    `json:"recipient_address"`
	ReceivedAt       time.Time `json:"received_at"`

	Attachments []IncomingAttachment `json:"attachments,omitempty"`
}

// HasBody reports whether the event carried any body content.
func (m *InboundMessage) HasBody() bool {
	return m.BodyText != "" || m.BodyHTML != ""
}

// IncomingAttachment is attachment content as delivered by the provider,
// before the bytes are persisted to blob storage.
type IncomingAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content,omitempty"`
}

type Thread struct {
	ID               string     `json:"id"`
	ScopeKey         string     `json:"scope_key"`
	RecipientAddress string     `json:"recipient_address"`
	Subject          string     `json:"subject"`
	NormalizedSubject string    `json:"-"`
	Participants     []string   `json:"participants"`
	MessageCount     int        `json:"message_count"`
	LastMessageAt    *time.Time `json:"last_message_at"`
	IsArchived       bool       `json:"is_archived"`
	Labels           []string   `json:"labels"`
	// IsUnread is derived on read from member messages, never stored.
	IsUnread bool      `json:"is_unread"`
	Messages []Message `json:"messages,omitempty"`
}

type Message struct {
	ID                string       `json:"id"`
	ThreadID          string       `json:"thread_id"`
	ScopeKey          string       `json:"scope_key"`
	NormalizedID      string       `json:"normalized_id"`
	ProviderMessageID string       `json:"provider_message_id"`
	InReplyTo         string       `json:"in_reply_to,omitempty"`
	References        []string     `json:"references,omitempty"`
	RecipientAddress  string       `json:"recipient_address"`
	FromAddress       string       `json:"from_address"`
	ToAddresses       []string     `json:"to_addresses"`
	CCAddresses       []string     `json:"cc_addresses"`
	BCCAddresses      []string     `json:"bcc_addresses"`
	Subject           string       `json:"subject"`
	BodyText          string       `json:"body_text"`
	BodyHTML          string       `json:"body_html"`
	IsRead            bool         `json:"is_read"`
	IsSent            bool         `json:"is_sent"`
	ReceivedAt        time.Time    `json:"received_at"`
	Attachments       []Attachment `json:"attachments,omitempty"`
}

// HasBody reports whether the stored row has any body content.
// A row without body content is eligible for content completion.
func (m *Message) HasBody() bool {
	return m.BodyText != "" || m.BodyHTML != ""
}

type Attachment struct {
	ID          string `json:"id"`
	MessageID   string `json:"message_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	StorageRef  string `json:"storage_ref"`
}
