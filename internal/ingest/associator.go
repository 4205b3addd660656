package ingest

import (
	"context"
	"path"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mailfold/mailfold/internal/blob"
	"github.com/mailfold/mailfold/internal/metrics"
	"github.com/mailfold/mailfold/internal/models"
)

// Associator persists attachment blobs and links metadata rows to an
// already-committed message. It is strictly best-effort: each attachment
// is handled independently, failures are logged and skipped, and nothing
// here can fail the ingestion that preceded it.
type Associator struct {
	store  AttachmentStore
	blobs  blob.Store
	logger zerolog.Logger
}

// NewAssociator creates an Associator.
func NewAssociator(store AttachmentStore, blobs blob.Store, logger zerolog.Logger) *Associator {
	return &Associator{store: store, blobs: blobs, logger: logger}
}

// Associate persists the given attachments for messageID and returns how
// many were stored successfully.
func (a *Associator) Associate(ctx context.Context, messageID string, attachments []models.IncomingAttachment) int {
	persisted := 0

	for _, att := range attachments {
		key := path.Join(messageID, uuid.NewString(), safeFilename(att.Filename))

		ref, err := a.blobs.Put(ctx, key, att.ContentType, att.Content)
		if err != nil {
			metrics.AttachmentFailures.WithLabelValues("blob").Inc()
			a.logger.Error().Err(err).
				Str("message_id", messageID).
				Str("filename", att.Filename).
				Msg("failed to store attachment blob, skipping")
			continue
		}

		row := &models.Attachment{
			MessageID:   messageID,
			Filename:    att.Filename,
			ContentType: att.ContentType,
			SizeBytes:   int64(len(att.Content)),
			StorageRef:  ref,
		}
		if err := a.store.InsertAttachment(ctx, row); err != nil {
			metrics.AttachmentFailures.WithLabelValues("metadata").Inc()
			a.logger.Error().Err(err).
				Str("message_id", messageID).
				Str("filename", att.Filename).
				Msg("failed to store attachment metadata, skipping")
			continue
		}

		metrics.AttachmentsPersisted.Inc()
		persisted++
	}

	return persisted
}

func safeFilename(name string) string {
	base := path.Base(name)
	if base == "." || base == "/" || base == "" {
		return "attachment"
	}
	return base
}
