package db

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailfold/mailfold/internal/ingest"
	"github.com/mailfold/mailfold/internal/models"
)

// ErrThreadNotFound is returned when a requested thread cannot be found.
var ErrThreadNotFound = errors.New("thread not found")

const threadColumns = `
	t.id,
	t.scope_key,
	t.recipient_address,
	t.subject,
	t.normalized_subject,
	t.participants,
	t.message_count,
	t.last_message_at,
	t.is_archived,
	t.labels`

func scanThread(row pgx.Row, withUnread bool) (*models.Thread, error) {
	var thread models.Thread
	dest := []any{
		&thread.ID,
		&thread.ScopeKey,
		&thread.RecipientAddress,
		&thread.Subject,
		&thread.NormalizedSubject,
		&thread.Participants,
		&thread.MessageCount,
		&thread.LastMessageAt,
		&thread.IsArchived,
		&thread.Labels,
	}
	if withUnread {
		dest = append(dest, &thread.IsUnread)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &thread, nil
}

// InsertThread inserts a new thread row and populates its ID.
func InsertThread(ctx context.Context, pool *pgxpool.Pool, thread *models.Thread) error {
	var threadID string

	err := pool.QueryRow(ctx, `
		INSERT INTO threads (scope_key, recipient_address, subject, normalized_subject, participants)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`,
		thread.ScopeKey,
		thread.RecipientAddress,
		thread.Subject,
		thread.NormalizedSubject,
		emptyIfNil(thread.Participants),
	).Scan(&threadID)

	if err != nil {
		return fmt.Errorf("failed to insert thread: %w", err)
	}

	thread.ID = threadID
	return nil
}

// DeleteEmptyThread deletes a thread only if no messages reference it.
func DeleteEmptyThread(ctx context.Context, pool *pgxpool.Pool, threadID string) error {
	_, err := pool.Exec(ctx, `
		DELETE FROM threads t
		WHERE t.id = $1
		  AND NOT EXISTS (SELECT 1 FROM messages m WHERE m.thread_id = t.id)
	`, threadID)

	if err != nil {
		return fmt.Errorf("failed to delete empty thread: %w", err)
	}

	return nil
}

// FindThreadBySubject returns the ID of the most recently active thread
// in the scope for the given recipient whose normalized subject matches
// the incoming one: exact equality always, containment only above the
// length gate.
func FindThreadBySubject(ctx context.Context, pool *pgxpool.Pool, scopeKey, recipientAddress, normalizedSubject string) (string, error) {
	allowContainment := utf8.RuneCountInString(normalizedSubject) >= ingest.SubjectMatchMinLength

	var threadID string
	err := pool.QueryRow(ctx, `
		SELECT id
		FROM threads
		WHERE scope_key = $1
		  AND recipient_address = $2
		  AND (normalized_subject = $3 OR ($4 AND position($3 in normalized_subject) > 0))
		ORDER BY last_message_at DESC NULLS LAST
		LIMIT 1
	`, scopeKey, recipientAddress, normalizedSubject, allowContainment).Scan(&threadID)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find thread by subject: %w", err)
	}

	return threadID, nil
}

// ApplyMessageToThread folds a newly inserted message into the thread's
// derived fields in one atomic UPDATE: count increment, participant
// union, and last-activity high-water mark. Concurrent ingestions into
// the same thread cannot lose an update.
func ApplyMessageToThread(ctx context.Context, pool *pgxpool.Pool, threadID string, message *models.Message) error {
	participants := append([]string{}, message.ToAddresses...)
	participants = append(participants, message.CCAddresses...)
	if message.FromAddress != "" {
		participants = append(participants, message.FromAddress)
	}

	_, err := pool.Exec(ctx, `
		UPDATE threads
		SET message_count = message_count + 1,
			participants = (
				SELECT ARRAY(
					SELECT DISTINCT p
					FROM unnest(participants || $2::text[]) AS p
					WHERE p <> ''
				)
			),
			last_message_at = GREATEST(last_message_at, $3)
		WHERE id = $1
	`, threadID, participants, message.ReceivedAt)

	if err != nil {
		return fmt.Errorf("failed to apply message to thread: %w", err)
	}

	return nil
}

// GetThreadByID returns a thread with its unread flag derived from
// member messages.
func GetThreadByID(ctx context.Context, pool *pgxpool.Pool, scopeKey, threadID string) (*models.Thread, error) {
	row := pool.QueryRow(ctx, `
		SELECT `+threadColumns+`,
			EXISTS (
				SELECT 1 FROM messages m
				WHERE m.thread_id = t.id AND NOT m.is_read
			) AS is_unread
		FROM threads t
		WHERE t.id = $1 AND t.scope_key = $2
	`, threadID, scopeKey)

	thread, err := scanThread(row, true)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}

	return thread, nil
}

// GetThreadsForScope returns threads in the scope ordered by recency.
// Unread state is derived per thread; archived threads are excluded
// unless includeArchived is set.
func GetThreadsForScope(ctx context.Context, pool *pgxpool.Pool, scopeKey string, includeArchived bool, limit, offset int) ([]*models.Thread, error) {
	rows, err := pool.Query(ctx, `
		SELECT `+threadColumns+`,
			EXISTS (
				SELECT 1 FROM messages m
				WHERE m.thread_id = t.id AND NOT m.is_read
			) AS is_unread
		FROM threads t
		WHERE t.scope_key = $1
		  AND ($2 OR NOT t.is_archived)
		ORDER BY t.last_message_at DESC NULLS LAST
		LIMIT $3 OFFSET $4
	`, scopeKey, includeArchived, limit, offset)

	if err != nil {
		return nil, fmt.Errorf("failed to get threads: %w", err)
	}
	defer rows.Close()

	var threads []*models.Thread
	for rows.Next() {
		thread, err := scanThread(rows, true)
		if err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, thread)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating threads: %w", err)
	}

	return threads, nil
}

// SetThreadArchived toggles a thread's archived flag.
func SetThreadArchived(ctx context.Context, pool *pgxpool.Pool, scopeKey, threadID string, archived bool) error {
	tag, err := pool.Exec(ctx, `
		UPDATE threads
		SET is_archived = $3
		WHERE id = $1 AND scope_key = $2
	`, threadID, scopeKey, archived)

	if err != nil {
		return fmt.Errorf("failed to set thread archived state: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrThreadNotFound
	}

	return nil
}

// AddThreadLabel adds a label (e.g. "junk", "trash") to a thread if not
// already present.
func AddThreadLabel(ctx context.Context, pool *pgxpool.Pool, scopeKey, threadID, label string) error {
	tag, err := pool.Exec(ctx, `
		UPDATE threads
		SET labels = array_append(labels, $3)
		WHERE id = $1 AND scope_key = $2 AND NOT ($3 = ANY(labels))
	`, threadID, scopeKey, label)

	if err != nil {
		return fmt.Errorf("failed to add thread label: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Either the thread is missing or the label was already set.
		// Distinguish so callers get a real not-found.
		exists, checkErr := threadExists(ctx, pool, scopeKey, threadID)
		if checkErr != nil {
			return checkErr
		}
		if !exists {
			return ErrThreadNotFound
		}
	}

	return nil
}

// RemoveThreadLabel removes a label from a thread.
func RemoveThreadLabel(ctx context.Context, pool *pgxpool.Pool, scopeKey, threadID, label string) error {
	tag, err := pool.Exec(ctx, `
		UPDATE threads
		SET labels = array_remove(labels, $3)
		WHERE id = $1 AND scope_key = $2
	`, threadID, scopeKey, label)

	if err != nil {
		return fmt.Errorf("failed to remove thread label: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrThreadNotFound
	}

	return nil
}

// RecomputeThreadAggregates recalculates message_count and
// last_message_at from member messages. The incremental maintenance in
// ApplyMessageToThread is an optimization, not a source of truth; this
// is the recovery path when the two ever disagree.
func RecomputeThreadAggregates(ctx context.Context, pool *pgxpool.Pool, threadID string) error {
	_, err := pool.Exec(ctx, `
		UPDATE threads t
		SET message_count = agg.count,
			last_message_at = agg.last_at
		FROM (
			SELECT COUNT(*) AS count, MAX(received_at) AS last_at
			FROM messages
			WHERE thread_id = $1
		) agg
		WHERE t.id = $1
	`, threadID)

	if err != nil {
		return fmt.Errorf("failed to recompute thread aggregates: %w", err)
	}

	return nil
}

func threadExists(ctx context.Context, pool *pgxpool.Pool, scopeKey, threadID string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM threads WHERE id = $1 AND scope_key = $2)
	`, threadID, scopeKey).Scan(&exists)

	if err != nil {
		return false, fmt.Errorf("failed to check thread existence: %w", err)
	}

	return exists, nil
}
