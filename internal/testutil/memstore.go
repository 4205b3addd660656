package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mailfold/mailfold/internal/ingest"
	"github.com/mailfold/mailfold/internal/models"
)

// MemStore is a thread-safe in-memory implementation of ingest.Store for
// unit and concurrency tests. It mirrors the guarantees the Postgres
// store provides: uniqueness on (scope, normalized ID), at-most-once
// body completion, and atomic thread aggregate updates.
type MemStore struct {
	mu          sync.Mutex
	domains     map[string]models.Domain // domain name -> domain
	aliases     map[string]models.Alias  // domainID + "|" + localPart -> alias
	threads     map[string]*models.Thread
	messages    map[string]*models.Message // scopeKey + "|" + normalizedID -> message
	attachments []models.Attachment
	threadSeq   int
}

var _ ingest.Store = (*MemStore)(nil)

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		domains:  make(map[string]models.Domain),
		aliases:  make(map[string]models.Alias),
		threads:  make(map[string]*models.Thread),
		messages: make(map[string]*models.Message),
	}
}

// AddDomain seeds a domain and returns it.
func (s *MemStore) AddDomain(name string, verified bool) models.Domain {
	s.mu.Lock()
	defer s.mu.Unlock()

	domain := models.Domain{ID: uuid.NewString(), OwnerID: "owner-" + name, Name: name, IsVerified: verified}
	s.domains[name] = domain
	return domain
}

// AddAlias seeds an alias on a previously added domain and returns it.
func (s *MemStore) AddAlias(domainID, localPart string, enabled bool) models.Alias {
	s.mu.Lock()
	defer s.mu.Unlock()

	alias := models.Alias{ID: uuid.NewString(), DomainID: domainID, LocalPart: localPart, IsEnabled: enabled}
	s.aliases[domainID+"|"+localPart] = alias
	return alias
}

func (s *MemStore) ResolveScope(_ context.Context, localPart, domainName string) (*models.Scope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	domain, ok := s.domains[domainName]
	if !ok {
		return nil, nil
	}

	scope := &models.Scope{Domain: domain}
	if alias, ok := s.aliases[domain.ID+"|"+localPart]; ok {
		aliasCopy := alias
		scope.Alias = &aliasCopy
	}
	return scope, nil
}

func (s *MemStore) GetMessageByNormalizedID(_ context.Context, scopeKey, normalizedID string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[scopeKey+"|"+normalizedID]
	if !ok {
		return nil, nil
	}
	copied := *msg
	return &copied, nil
}

func (s *MemStore) FindMessageByNormalizedIDs(_ context.Context, scopeKey string, ids []string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}

	var newest *models.Message
	for _, msg := range s.messages {
		if msg.ScopeKey != scopeKey {
			continue
		}
		if _, ok := idSet[msg.NormalizedID]; !ok {
			continue
		}
		if newest == nil || msg.ReceivedAt.After(newest.ReceivedAt) {
			newest = msg
		}
	}

	if newest == nil {
		return nil, nil
	}
	copied := *newest
	return &copied, nil
}

func (s *MemStore) InsertMessage(_ context.Context, message *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := message.ScopeKey + "|" + message.NormalizedID
	if _, exists := s.messages[key]; exists {
		return ingest.ErrMessageExists
	}

	message.ID = uuid.NewString()
	copied := *message
	s.messages[key] = &copied
	return nil
}

func (s *MemStore) CompleteMessageBody(_ context.Context, messageID, bodyText, bodyHTML string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, msg := range s.messages {
		if msg.ID != messageID {
			continue
		}
		if msg.HasBody() {
			return false, nil
		}
		msg.BodyText = bodyText
		msg.BodyHTML = bodyHTML
		return true, nil
	}
	return false, nil
}

func (s *MemStore) InsertThread(_ context.Context, thread *models.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread.ID = uuid.NewString()
	s.threadSeq++
	copied := *thread
	copied.MessageCount = 0
	s.threads[thread.ID] = &copied
	return nil
}

func (s *MemStore) DeleteEmptyThread(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, msg := range s.messages {
		if msg.ThreadID == threadID {
			return nil
		}
	}
	delete(s.threads, threadID)
	return nil
}

func (s *MemStore) FindThreadBySubject(_ context.Context, scopeKey, recipientAddress, normalizedSubject string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []*models.Thread
	for _, thread := range s.threads {
		if thread.ScopeKey != scopeKey || thread.RecipientAddress != recipientAddress {
			continue
		}
		if subjectMatches(thread.NormalizedSubject, normalizedSubject) {
			matches = append(matches, thread)
		}
	}

	if len(matches) == 0 {
		return "", nil
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i].LastMessageAt, matches[j].LastMessageAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return matches[0].ID, nil
}

// subjectMatches mirrors the Postgres matching rule: exact equality
// always, containment only above the length gate.
func subjectMatches(stored, incoming string) bool {
	if stored == incoming {
		return true
	}
	if utf8.RuneCountInString(incoming) < ingest.SubjectMatchMinLength {
		return false
	}
	return strings.Contains(stored, incoming)
}

func (s *MemStore) ApplyMessageToThread(_ context.Context, threadID string, message *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.threads[threadID]
	if !ok {
		return nil
	}

	thread.MessageCount++

	seen := make(map[string]struct{}, len(thread.Participants))
	for _, p := range thread.Participants {
		seen[p] = struct{}{}
	}
	union := func(address string) {
		if address == "" {
			return
		}
		if _, ok := seen[address]; ok {
			return
		}
		seen[address] = struct{}{}
		thread.Participants = append(thread.Participants, address)
	}
	union(message.FromAddress)
	for _, a := range message.ToAddresses {
		union(a)
	}
	for _, a := range message.CCAddresses {
		union(a)
	}

	if thread.LastMessageAt == nil || message.ReceivedAt.After(*thread.LastMessageAt) {
		receivedAt := message.ReceivedAt
		thread.LastMessageAt = &receivedAt
	}
	return nil
}

func (s *MemStore) InsertAttachment(_ context.Context, attachment *models.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	attachment.ID = uuid.NewString()
	s.attachments = append(s.attachments, *attachment)
	return nil
}

// ThreadByID returns a copy of the stored thread, or nil.
func (s *MemStore) ThreadByID(threadID string) *models.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.threads[threadID]
	if !ok {
		return nil
	}
	copied := *thread
	return &copied
}

// ThreadCount returns the number of stored threads.
func (s *MemStore) ThreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threads)
}

// MessageCount returns the number of stored messages.
func (s *MemStore) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Attachments returns a copy of all stored attachment rows.
func (s *MemStore) Attachments() []models.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Attachment(nil), s.attachments...)
}
