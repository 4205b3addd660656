package ingest

import (
	"context"

	"github.com/mailfold/mailfold/internal/models"
)

// ThreadResolver finds an existing thread for an inbound message, or
// signals that a new one should be created.
//
// Thread assignment is a one-time decision: if a reply arrives before
// its parent, it starts its own thread and is never reattached when the
// parent shows up later. Accepting that minor fragmentation avoids a
// mutable reference graph whose merge behavior under concurrent partial
// knowledge would be much harder to get right.
type ThreadResolver struct {
	messages MessageStore
	threads  ThreadStore
}

// NewThreadResolver creates a ThreadResolver.
func NewThreadResolver(messages MessageStore, threads ThreadStore) *ThreadResolver {
	return &ThreadResolver{messages: messages, threads: threads}
}

// ResolveThread returns the ID of the thread the message belongs to, or
// "" when no existing thread matches. First match wins:
//
//  1. reference chain: any stored message in the scope whose normalized
//     ID appears in the incoming References/In-Reply-To set,
//  2. subject heuristic: the most recently active thread with the same
//     recipient whose normalized subject matches.
//
// Reference matching is authoritative; the subject heuristic is a loose
// fallback for clients that omit reference headers.
func (r *ThreadResolver) ResolveThread(ctx context.Context, scope *models.Scope, msg *models.InboundMessage) (string, error) {
	scopeKey := scope.Key()

	if candidates := CandidateParentIDs(msg.InReplyTo, msg.References); len(candidates) > 0 {
		parent, err := r.messages.FindMessageByNormalizedIDs(ctx, scopeKey, candidates)
		if err != nil {
			return "", storageErr("reference lookup", err)
		}
		if parent != nil {
			return parent.ThreadID, nil
		}
	}

	normalizedSubject := NormalizeSubject(msg.Subject)
	if normalizedSubject == "" {
		return "", nil
	}

	threadID, err := r.threads.FindThreadBySubject(ctx, scopeKey, msg.RecipientAddress, normalizedSubject)
	if err != nil {
		return "", storageErr("subject lookup", err)
	}

	return threadID, nil
}
