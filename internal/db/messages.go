package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailfold/mailfold/internal/models"
)

// ErrMessageNotFound is returned when a requested message cannot be found.
var ErrMessageNotFound = errors.New("message not found")

// ErrDuplicateMessage is returned by InsertMessage when the
// (scope_key, normalized_id) pair already exists.
var ErrDuplicateMessage = errors.New("duplicate message")

const messageColumns = `
	id,
	thread_id,
	scope_key,
	normalized_id,
	provider_message_id,
	in_reply_to,
	reference_ids,
	recipient_address,
	from_address,
	to_addresses,
	cc_addresses,
	bcc_addresses,
	subject,
	body_text,
	body_html,
	is_read,
	is_sent,
	received_at`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var msg models.Message
	err := row.Scan(
		&msg.ID,
		&msg.ThreadID,
		&msg.ScopeKey,
		&msg.NormalizedID,
		&msg.ProviderMessageID,
		&msg.InReplyTo,
		&msg.References,
		&msg.RecipientAddress,
		&msg.FromAddress,
		&msg.ToAddresses,
		&msg.CCAddresses,
		&msg.BCCAddresses,
		&msg.Subject,
		&msg.BodyText,
		&msg.BodyHTML,
		&msg.IsRead,
		&msg.IsSent,
		&msg.ReceivedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// InsertMessage inserts a new message row and populates its ID. The
// unique constraint on (scope_key, normalized_id) is the only identity
// arbiter: a violation is reported as ErrDuplicateMessage, never as an
// infrastructure error.
func InsertMessage(ctx context.Context, pool *pgxpool.Pool, message *models.Message) error {
	var id string
	err := pool.QueryRow(ctx, `
		INSERT INTO messages (
			thread_id,
			scope_key,
			normalized_id,
			provider_message_id,
			in_reply_to,
			reference_ids,
			recipient_address,
			from_address,
			to_addresses,
			cc_addresses,
			bcc_addresses,
			subject,
			body_text,
			body_html,
			is_read,
			is_sent,
			received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`,
		message.ThreadID,
		message.ScopeKey,
		message.NormalizedID,
		message.ProviderMessageID,
		message.InReplyTo,
		emptyIfNil(message.References),
		message.RecipientAddress,
		message.FromAddress,
		emptyIfNil(message.ToAddresses),
		emptyIfNil(message.CCAddresses),
		emptyIfNil(message.BCCAddresses),
		message.Subject,
		message.BodyText,
		message.BodyHTML,
		message.IsRead,
		message.IsSent,
		message.ReceivedAt,
	).Scan(&id)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateMessage
		}
		return fmt.Errorf("failed to insert message: %w", err)
	}

	message.ID = id
	return nil
}

// GetMessageByNormalizedID returns the message with the given normalized
// ID inside the scope.
func GetMessageByNormalizedID(ctx context.Context, pool *pgxpool.Pool, scopeKey, normalizedID string) (*models.Message, error) {
	row := pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE scope_key = $1 AND normalized_id = $2
	`, scopeKey, normalizedID)

	msg, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return msg, nil
}

// GetMessageByID returns a message by its primary key.
func GetMessageByID(ctx context.Context, pool *pgxpool.Pool, messageID string) (*models.Message, error) {
	row := pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE id = $1
	`, messageID)

	msg, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message by ID: %w", err)
	}

	return msg, nil
}

// FindMessageByNormalizedIDs returns the most recently received message
// in the scope whose normalized ID is in ids, or nil when none match.
func FindMessageByNormalizedIDs(ctx context.Context, pool *pgxpool.Pool, scopeKey string, ids []string) (*models.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	row := pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE scope_key = $1 AND normalized_id = ANY($2)
		ORDER BY received_at DESC
		LIMIT 1
	`, scopeKey, ids)

	msg, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find message by normalized IDs: %w", err)
	}

	return msg, nil
}

// CompleteMessageBody fills in the body fields of a message that has no
// body content yet. The guard is part of the UPDATE itself, so under
// concurrent redelivery at most one caller observes a completion.
func CompleteMessageBody(ctx context.Context, pool *pgxpool.Pool, messageID, bodyText, bodyHTML string) (bool, error) {
	tag, err := pool.Exec(ctx, `
		UPDATE messages
		SET body_text = $2, body_html = $3
		WHERE id = $1 AND body_text = '' AND body_html = ''
	`, messageID, bodyText, bodyHTML)

	if err != nil {
		return false, fmt.Errorf("failed to complete message body: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// GetMessagesForThread returns all messages for a thread, oldest first.
func GetMessagesForThread(ctx context.Context, pool *pgxpool.Pool, threadID string) ([]*models.Message, error) {
	rows, err := pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE thread_id = $1
		ORDER BY received_at
	`, threadID)

	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// SetMessageRead sets the read flag of a message, scoped so one tenant
// cannot flip another tenant's messages.
func SetMessageRead(ctx context.Context, pool *pgxpool.Pool, scopeKey, messageID string, isRead bool) error {
	tag, err := pool.Exec(ctx, `
		UPDATE messages
		SET is_read = $3
		WHERE id = $1 AND scope_key = $2
	`, messageID, scopeKey, isRead)

	if err != nil {
		return fmt.Errorf("failed to set message read state: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}

	return nil
}

// SetThreadRead sets the read flag on every message of a thread.
func SetThreadRead(ctx context.Context, pool *pgxpool.Pool, scopeKey, threadID string, isRead bool) error {
	_, err := pool.Exec(ctx, `
		UPDATE messages
		SET is_read = $3
		WHERE thread_id = $1 AND scope_key = $2
	`, threadID, scopeKey, isRead)

	if err != nil {
		return fmt.Errorf("failed to set thread read state: %w", err)
	}

	return nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
