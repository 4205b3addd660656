package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mailfold/mailfold/internal/models"
)

// Outcome describes what a call to Ingest did to the store.
type Outcome string

const (
	// OutcomeCreated means a new message row (and possibly a new thread)
	// was created.
	OutcomeCreated Outcome = "created"
	// OutcomeCompleted means an existing bodyless row had its body
	// fields filled in.
	OutcomeCompleted Outcome = "completed"
	// OutcomeDuplicate means the store was not mutated.
	OutcomeDuplicate Outcome = "duplicate"
)

// Result is the outcome of one ingestion attempt.
type Result struct {
	Outcome   Outcome `json:"outcome"`
	MessageID string  `json:"message_id"`
	ThreadID  string  `json:"thread_id"`
}

// Coordinator owns the idempotent store-or-update decision for message
// rows. It is the only component that writes message identity; the
// store's uniqueness constraint on (scope, normalized ID) is the only
// lock involved, so any number of handler instances may run Ingest
// concurrently for the same redelivered event.
type Coordinator struct {
	messages MessageStore
	threads  ThreadStore
	resolver *ThreadResolver
	logger   zerolog.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(messages MessageStore, threads ThreadStore, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		messages: messages,
		threads:  threads,
		resolver: NewThreadResolver(messages, threads),
		logger:   logger,
	}
}

// Ingest stores the inbound message inside the scope, or applies content
// completion, or does nothing, and says which. Safe to retry end to end:
// no matter how many times or in what order the same (scope, normalized
// ID) is delivered, the store converges on a single message row.
func (c *Coordinator) Ingest(ctx context.Context, scope *models.Scope, msg *models.InboundMessage) (*Result, error) {
	if err := validateInbound(msg); err != nil {
		return nil, err
	}

	scopeKey := scope.Key()
	normalizedID := NormalizeMessageID(msg.ExternalID)

	existing, err := c.messages.GetMessageByNormalizedID(ctx, scopeKey, normalizedID)
	if err != nil {
		return nil, storageErr("message lookup", err)
	}
	if existing != nil {
		return c.completeOrDuplicate(ctx, existing, msg)
	}

	threadID, err := c.resolver.ResolveThread(ctx, scope, msg)
	if err != nil {
		return nil, err
	}

	createdThread := false
	if threadID == "" {
		thread := newThreadFor(scopeKey, msg)
		if err := c.threads.InsertThread(ctx, thread); err != nil {
			return nil, storageErr("thread insert", err)
		}
		threadID = thread.ID
		createdThread = true
	}

	message := &models.Message{
		ThreadID:          threadID,
		ScopeKey:          scopeKey,
		NormalizedID:      normalizedID,
		ProviderMessageID: msg.ExternalID,
		InReplyTo:         NormalizeMessageID(msg.InReplyTo),
		References:        CandidateParentIDs("", msg.References),
		RecipientAddress:  msg.RecipientAddress,
		FromAddress:       msg.FromAddress,
		ToAddresses:       msg.ToAddresses,
		CCAddresses:       msg.CCAddresses,
		BCCAddresses:      msg.BCCAddresses,
		Subject:           msg.Subject,
		BodyText:          msg.BodyText,
		BodyHTML:          msg.BodyHTML,
		ReceivedAt:        msg.ReceivedAt,
	}

	if err := c.messages.InsertMessage(ctx, message); err != nil {
		if createdThread {
			// The thread was created for a message that never joined it.
			if delErr := c.threads.DeleteEmptyThread(ctx, threadID); delErr != nil {
				c.logger.Warn().Err(delErr).Str("thread_id", threadID).Msg("failed to clean up empty thread")
			}
		}

		if errors.Is(err, ErrMessageExists) {
			// A concurrent delivery of the same event won the insert
			// race. Re-read and fall into the completion/duplicate path.
			winner, readErr := c.messages.GetMessageByNormalizedID(ctx, scopeKey, normalizedID)
			if readErr != nil {
				return nil, storageErr("message re-read", readErr)
			}
			if winner == nil {
				return nil, storageErr("message re-read", fmt.Errorf("insert conflicted but row not found for %s", normalizedID))
			}
			return c.completeOrDuplicate(ctx, winner, msg)
		}

		return nil, storageErr("message insert", err)
	}

	if err := c.threads.ApplyMessageToThread(ctx, threadID, message); err != nil {
		return nil, storageErr("thread aggregate update", err)
	}

	return &Result{Outcome: OutcomeCreated, MessageID: message.ID, ThreadID: threadID}, nil
}

// completeOrDuplicate handles redelivery of an already-stored identity:
// fill in the body when the stored row has none and the incoming payload
// does, otherwise leave everything untouched.
func (c *Coordinator) completeOrDuplicate(ctx context.Context, existing *models.Message, msg *models.InboundMessage) (*Result, error) {
	if !existing.HasBody() && msg.HasBody() {
		completed, err := c.messages.CompleteMessageBody(ctx, existing.ID, msg.BodyText, msg.BodyHTML)
		if err != nil {
			return nil, storageErr("body completion", err)
		}
		if completed {
			return &Result{Outcome: OutcomeCompleted, MessageID: existing.ID, ThreadID: existing.ThreadID}, nil
		}
	}

	return &Result{Outcome: OutcomeDuplicate, MessageID: existing.ID, ThreadID: existing.ThreadID}, nil
}

func newThreadFor(scopeKey string, msg *models.InboundMessage) *models.Thread {
	return &models.Thread{
		ScopeKey:          scopeKey,
		RecipientAddress:  msg.RecipientAddress,
		Subject:           msg.Subject,
		NormalizedSubject: NormalizeSubject(msg.Subject),
		Participants:      dedupAddresses(msg.FromAddress, msg.ToAddresses, msg.CCAddresses),
	}
}

func validateInbound(msg *models.InboundMessage) error {
	if msg == nil {
		return fmt.Errorf("%w: no message", ErrMalformedPayload)
	}
	if msg.RecipientAddress == "" {
		return fmt.Errorf("%w: missing recipient address", ErrMalformedPayload)
	}
	if NormalizeMessageID(msg.ExternalID) == "" {
		return fmt.Errorf("%w: missing external identifier", ErrMalformedPayload)
	}
	if msg.ReceivedAt.IsZero() {
		return fmt.Errorf("%w: missing received time", ErrMalformedPayload)
	}
	return nil
}

func dedupAddresses(from string, lists ...[]string) []string {
	seen := make(map[string]struct{})
	var result []string

	add := func(address string) {
		if address == "" {
			return
		}
		if _, ok := seen[address]; ok {
			return
		}
		seen[address] = struct{}{}
		result = append(result, address)
	}

	add(from)
	for _, list := range lists {
		for _, address := range list {
			add(address)
		}
	}

	return result
}
