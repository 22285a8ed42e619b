package gormstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dadok-care/survey-engine/internal/models"
	"github.com/dadok-care/survey-engine/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type registryRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRegistryRepository(db *gorm.DB, logger *slog.Logger) repositories.RegistryRepository {
	return &registryRepository{db: db, logger: logger}
}

// Migrate creates or updates the registry schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.AnsweredQuestion{}); err != nil {
		return fmt.Errorf("failed to migrate registry schema: %w", err)
	}
	return nil
}

// Add relies on the (user_id, question_id) unique index: a conflicting
// insert is a no-op, which is what makes repeated submissions idempotent
// without a read-then-write transaction.
func (r *registryRepository) Add(ctx context.Context, record *models.AnsweredQuestion) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(record)
	if result.Error != nil {
		return false, fmt.Errorf("failed to append registry entry: %w", result.Error)
	}

	inserted := result.RowsAffected > 0
	if !inserted {
		r.logger.Debug("registry entry already present",
			"user_id", record.UserID,
			"question_id", record.QuestionID)
	}
	return inserted, nil
}

func (r *registryRepository) AnsweredIDs(ctx context.Context, userID string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.AnsweredQuestion{}).
		Where("user_id = ?", userID).
		Order("id ASC").
		Pluck("question_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load answered question ids: %w", err)
	}
	return ids, nil
}

func (r *registryRepository) History(ctx context.Context, userID string) ([]*models.AnsweredQuestion, error) {
	var records []*models.AnsweredQuestion
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load answer history: %w", err)
	}
	return records, nil
}

func (r *registryRepository) Clear(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.AnsweredQuestion{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear registry for user %s: %w", userID, err)
	}
	return nil
}

func (r *registryRepository) ClearAll(ctx context.Context) error {
	err := r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&models.AnsweredQuestion{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear registry: %w", err)
	}
	return nil
}
