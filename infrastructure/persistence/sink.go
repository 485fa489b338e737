package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hivewatch/hivewatch/domain/collection"
	"github.com/hivewatch/hivewatch/domain/post"
	"github.com/hivewatch/hivewatch/internal/database"
	"github.com/hivewatch/hivewatch/internal/log"
)

// Sink implements collection.Sink on the database. Posts are upserted on
// their external ID and associations on the (post, keyword) pair, so
// persisting the same record twice leaves a single row.
type Sink struct {
	db     database.Database
	mapper PostMapper
	logger *log.Logger
}

// NewSink creates a database-backed sink.
func NewSink(db database.Database, logger *log.Logger) *Sink {
	return &Sink{db: db, mapper: PostMapper{}, logger: logger}
}

// Scanned returns the external IDs stored by previous runs.
func (s *Sink) Scanned(ctx context.Context) (map[string]struct{}, error) {
	var ids []string
	result := s.db.Session(ctx).Model(&ScannedPostModel{}).Pluck("external_id", &ids)
	if result.Error != nil {
		return nil, fmt.Errorf("load scanned posts: %w", result.Error)
	}
	scanned := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		scanned[id] = struct{}{}
	}
	return scanned, nil
}

// Persist stores the records. Per-record failures are logged and counted;
// the error return is reserved for context cancellation.
func (s *Sink) Persist(ctx context.Context, records []post.CollectedPost) (collection.SinkResult, error) {
	var result collection.SinkResult
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		written, err := s.persistOne(ctx, record)
		switch {
		case err != nil:
			result.Failed++
			s.logger.WarnContext(ctx, "failed to persist post",
				"external_id", record.Post.ExternalID(),
				"keyword", record.Keyword.Text(),
				"error", err)
		case written:
			result.Written++
		default:
			result.Duplicates++
		}
	}
	return result, nil
}

// persistOne upserts the post, links it to the keyword and marks it
// scanned, in one transaction. Returns false when the (post, keyword) pair
// already existed.
func (s *Sink) persistOne(ctx context.Context, record post.CollectedPost) (bool, error) {
	written := false
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		model := s.mapper.ToModel(record.Post)

		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"likes", "replies", "reposts", "quotes", "collected_at"}),
		}).Create(&model)
		if result.Error != nil {
			return fmt.Errorf("upsert post: %w", result.Error)
		}

		// Conflicting upserts do not reliably report the row ID back, so
		// read it when missing.
		if model.ID == 0 {
			var existing PostModel
			if err := tx.Where("external_id = ?", model.ExternalID).First(&existing).Error; err != nil {
				return fmt.Errorf("load upserted post: %w", err)
			}
			model.ID = existing.ID
		}

		link := PostKeywordModel{
			PostID:    model.ID,
			KeywordID: record.Keyword.ID(),
			CreatedAt: time.Now().UTC(),
		}
		result = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link)
		if result.Error != nil {
			return fmt.Errorf("link post to keyword: %w", result.Error)
		}
		written = result.RowsAffected > 0

		scanned := ScannedPostModel{ExternalID: model.ExternalID, ScannedAt: time.Now().UTC()}
		result = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&scanned)
		if result.Error != nil {
			return fmt.Errorf("mark post scanned: %w", result.Error)
		}
		return nil
	})
	return written, err
}

// MarkScanned records inspected posts that were not accepted, so re-runs
// skip them without refiltering.
func (s *Sink) MarkScanned(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC()
	models := make([]ScannedPostModel, len(ids))
	for i, id := range ids {
		models[i] = ScannedPostModel{ExternalID: id, ScannedAt: now}
	}
	result := s.db.Session(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&models)
	if result.Error != nil {
		return fmt.Errorf("mark posts scanned: %w", result.Error)
	}
	return nil
}

// Close is a no-op: the database is owned by the caller.
func (s *Sink) Close() error {
	return nil
}
