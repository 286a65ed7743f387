package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/learnloop/assignment-engine/internal/models"
	"github.com/learnloop/assignment-engine/internal/repositories"
)

// AttemptJournal is the gorm-backed implementation of
// repositories.AttemptJournal. It holds locally graded attempts only;
// the remote attempt store remains the source of truth for history.
type AttemptJournal struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to Postgres and migrates the journal table.
func Open(dsn string, logger *slog.Logger) (*AttemptJournal, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect journal database: %w", err)
	}

	if err := db.AutoMigrate(&models.LocalAttemptRecord{}); err != nil {
		return nil, fmt.Errorf("migrate attempt journal: %w", err)
	}

	return &AttemptJournal{db: db, logger: logger}, nil
}

// NewWithDB wraps an existing connection; used by tests.
func NewWithDB(db *gorm.DB, logger *slog.Logger) *AttemptJournal {
	return &AttemptJournal{db: db, logger: logger}
}

func (j *AttemptJournal) Append(ctx context.Context, rec *models.LocalAttemptRecord) error {
	if err := j.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("append journal record: %w", err)
	}
	return nil
}

func (j *AttemptJournal) CountByAssignment(ctx context.Context, learnerID, assignmentID string) (int64, error) {
	var count int64
	err := j.db.WithContext(ctx).
		Model(&models.LocalAttemptRecord{}).
		Where("learner_id = ? AND assignment_id = ?", learnerID, assignmentID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count journal records: %w", err)
	}
	return count, nil
}

func (j *AttemptJournal) ListByAssignment(ctx context.Context, learnerID, assignmentID string) ([]models.LocalAttemptRecord, error) {
	var records []models.LocalAttemptRecord
	err := j.db.WithContext(ctx).
		Where("learner_id = ? AND assignment_id = ?", learnerID, assignmentID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list journal records: %w", err)
	}
	return records, nil
}

// Close releases the underlying connection pool.
func (j *AttemptJournal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ repositories.AttemptJournal = (*AttemptJournal)(nil)
