package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailfold/mailfold/internal/models"
)

// InsertAttachment saves an attachment metadata row.
func InsertAttachment(ctx context.Context, pool *pgxpool.Pool, attachment *models.Attachment) error {
	var attachmentID string

	err := pool.QueryRow(ctx, `
		INSERT INTO attachments (message_id, filename, content_type, size_bytes, storage_ref)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, attachment.MessageID, attachment.Filename, attachment.ContentType, attachment.SizeBytes, attachment.StorageRef).Scan(&attachmentID)

	if err != nil {
		return fmt.Errorf("failed to save attachment: %w", err)
	}

	attachment.ID = attachmentID
	return nil
}

// GetAttachmentsForMessage returns all attachments for a message.
func GetAttachmentsForMessage(ctx context.Context, pool *pgxpool.Pool, messageID string) ([]*models.Attachment, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, message_id, filename, content_type, size_bytes, storage_ref
		FROM attachments
		WHERE message_id = $1
	`, messageID)

	if err != nil {
		return nil, fmt.Errorf("failed to get attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*models.Attachment
	for rows.Next() {
		var att models.Attachment
		if err := rows.Scan(
			&att.ID,
			&att.MessageID,
			&att.Filename,
			&att.ContentType,
			&att.SizeBytes,
			&att.StorageRef,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, &att)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachments: %w", err)
	}

	return attachments, nil
}

// GetAttachmentsForMessages returns all attachments for multiple messages in a single query.
// Returns a map from message ID to a slice of attachments.
func GetAttachmentsForMessages(ctx context.Context, pool *pgxpool.Pool, messageIDs []string) (map[string][]*models.Attachment, error) {
	if len(messageIDs) == 0 {
		return make(map[string][]*models.Attachment), nil
	}

	rows, err := pool.Query(ctx, `
		SELECT id, message_id, filename, content_type, size_bytes, storage_ref
		FROM attachments
		WHERE message_id = ANY($1)
		ORDER BY message_id
	`, messageIDs)

	if err != nil {
		return nil, fmt.Errorf("failed to get attachments: %w", err)
	}
	defer rows.Close()

	attachmentsMap := make(map[string][]*models.Attachment)
	for rows.Next() {
		var att models.Attachment
		if err := rows.Scan(
			&att.ID,
			&att.MessageID,
			&att.Filename,
			&att.ContentType,
			&att.SizeBytes,
			&att.StorageRef,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachmentsMap[att.MessageID] = append(attachmentsMap[att.MessageID], &att)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachments: %w", err)
	}

	return attachmentsMap, nil
}
