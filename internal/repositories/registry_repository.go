package repositories

import (
	"context"
	"errors"

	"github.com/dadok-care/survey-engine/internal/models"
	"gorm.io/gorm"
)

// RegistryRepository persists the answered-question registry: the durable
// record of question IDs a user has already submitted an answer for. The
// registry survives process restarts; only Clear removes entries.
type RegistryRepository interface {
	// Add appends one answer record if the (user, question) pair is not
	// already present. Returns true when a new entry was created, false
	// when the registry already contained the question. Idempotent.
	Add(ctx context.Context, record *models.AnsweredQuestion) (bool, error)

	// AnsweredIDs returns all question IDs the user has answered, in
	// insertion order.
	AnsweredIDs(ctx context.Context, userID string) ([]uint, error)

	// History returns the full answer log for a user, oldest first.
	History(ctx context.Context, userID string) ([]*models.AnsweredQuestion, error)

	// Clear removes every registry entry for a user (survey reset).
	Clear(ctx context.Context, userID string) error

	// ClearAll removes every registry entry (scheduled daily reset).
	ClearAll(ctx context.Context) error
}

// IsNotFoundError checks if the error indicates a record was not found.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
