package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailfold/mailfold/internal/ingest"
	"github.com/mailfold/mailfold/internal/models"
)

// Store adapts the package-level query functions to the ingest.Store
// interface, translating the package's sentinel errors into the ones
// the engine understands.
type Store struct {
	pool *pgxpool.Pool
}

var _ ingest.Store = (*Store)(nil)

// NewStore creates a Store backed by pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetMessageByNormalizedID(ctx context.Context, scopeKey, normalizedID string) (*models.Message, error) {
	msg, err := GetMessageByNormalizedID(ctx, s.pool, scopeKey, normalizedID)
	if errors.Is(err, ErrMessageNotFound) {
		return nil, nil
	}
	return msg, err
}

func (s *Store) FindMessageByNormalizedIDs(ctx context.Context, scopeKey string, ids []string) (*models.Message, error) {
	return FindMessageByNormalizedIDs(ctx, s.pool, scopeKey, ids)
}

func (s *Store) InsertMessage(ctx context.Context, message *models.Message) error {
	err := InsertMessage(ctx, s.pool, message)
	if errors.Is(err, ErrDuplicateMessage) {
		return ingest.ErrMessageExists
	}
	return err
}

func (s *Store) CompleteMessageBody(ctx context.Context, messageID, bodyText, bodyHTML string) (bool, error) {
	return CompleteMessageBody(ctx, s.pool, messageID, bodyText, bodyHTML)
}

func (s *Store) InsertThread(ctx context.Context, thread *models.Thread) error {
	return InsertThread(ctx, s.pool, thread)
}

func (s *Store) DeleteEmptyThread(ctx context.Context, threadID string) error {
	return DeleteEmptyThread(ctx, s.pool, threadID)
}

func (s *Store) FindThreadBySubject(ctx context.Context, scopeKey, recipientAddress, normalizedSubject string) (string, error) {
	return FindThreadBySubject(ctx, s.pool, scopeKey, recipientAddress, normalizedSubject)
}

func (s *Store) ApplyMessageToThread(ctx context.Context, threadID string, message *models.Message) error {
	return ApplyMessageToThread(ctx, s.pool, threadID, message)
}

func (s *Store) ResolveScope(ctx context.Context, localPart, domainName string) (*models.Scope, error) {
	return ResolveScope(ctx, s.pool, localPart, domainName)
}

func (s *Store) InsertAttachment(ctx context.Context, attachment *models.Attachment) error {
	return InsertAttachment(ctx, s.pool, attachment)
}
