package ingest

import (
	"context"

	"github.com/mailfold/mailfold/internal/models"
)

// SubjectMatchMinLength is the minimum length, in runes, of a normalized
// subject before containment matching is allowed. Shorter subjects only
// match threads by exact equality, which keeps short common subjects
// ("hi", "hello") from merging unrelated conversations.
const SubjectMatchMinLength = 8

// MessageStore is the subset of message persistence the engine needs.
// The Postgres implementation lives in internal/db; tests use an
// in-memory implementation.
type MessageStore interface {
	// GetMessageByNormalizedID returns the message with the given
	// normalized ID inside the scope, or nil when there is none.
	GetMessageByNormalizedID(ctx context.Context, scopeKey, normalizedID string) (*models.Message, error)

	// FindMessageByNormalizedIDs returns the most recently received
	// message in the scope whose normalized ID is in ids, or nil.
	FindMessageByNormalizedIDs(ctx context.Context, scopeKey string, ids []string) (*models.Message, error)

	// InsertMessage inserts a new message row and fills in its ID.
	// Returns ErrMessageExists when (scope, normalized ID) is taken.
	InsertMessage(ctx context.Context, message *models.Message) error

	// CompleteMessageBody fills in the body fields of a stored message
	// that has no body content yet. Returns false without mutating
	// anything when the row already has content, so content completion
	// happens at most once even under concurrent redelivery.
	CompleteMessageBody(ctx context.Context, messageID, bodyText, bodyHTML string) (bool, error)
}

// ThreadStore is the subset of thread persistence the engine needs.
type ThreadStore interface {
	// InsertThread inserts a new thread row and fills in its ID.
	InsertThread(ctx context.Context, thread *models.Thread) error

	// DeleteEmptyThread removes a thread that owns no messages. Used to
	// clean up after losing a concurrent message-insert race.
	DeleteEmptyThread(ctx context.Context, threadID string) error

	// FindThreadBySubject returns the most recently active thread in the
	// scope with the given recipient whose stored normalized subject
	// equals, or (length-gated) contains, normalizedSubject. Returns ""
	// when there is none.
	FindThreadBySubject(ctx context.Context, scopeKey, recipientAddress, normalizedSubject string) (string, error)

	// ApplyMessageToThread atomically increments the thread's message
	// count, unions its participants with the message's from/to/cc, and
	// raises last_message_at to the message's received time.
	ApplyMessageToThread(ctx context.Context, threadID string, message *models.Message) error
}

// ScopeStore looks up the ownership boundary for a recipient address.
type ScopeStore interface {
	// ResolveScope returns the domain (and alias, when one exists for
	// the local part) for the given address parts, or nil when the
	// domain is unknown. Verification and enablement flags are returned
	// as stored; the Scope Resolver decides what they mean.
	ResolveScope(ctx context.Context, localPart, domainName string) (*models.Scope, error)
}

// AttachmentStore persists attachment metadata rows.
type AttachmentStore interface {
	InsertAttachment(ctx context.Context, attachment *models.Attachment) error
}

// Store bundles everything the engine needs from persistence.
type Store interface {
	MessageStore
	ThreadStore
	ScopeStore
	AttachmentStore
}
