package gormstore

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/dadok-care/survey-engine/internal/models"
	"github.com/dadok-care/survey-engine/internal/repositories"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestRepository(t *testing.T) repositories.RegistryRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	return NewRegistryRepository(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func record(userID string, questionID uint) *models.AnsweredQuestion {
	return &models.AnsweredQuestion{
		UserID:       userID,
		QuestionID:   questionID,
		ResponseType: string(models.ResponseRating5),
		Answer:       "3",
	}
}

func TestAdd_Idempotent(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	inserted, err := repo.Add(ctx, record("7", 1))
	assert.NoError(t, err)
	assert.True(t, inserted)

	// Same (user, question) pair again: accepted, but not inserted twice.
	inserted, err = repo.Add(ctx, record("7", 1))
	assert.NoError(t, err)
	assert.False(t, inserted)

	ids, err := repo.AnsweredIDs(ctx, "7")
	assert.NoError(t, err)
	assert.Equal(t, []uint{1}, ids)
}

func TestAdd_SameQuestionDifferentUsers(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	inserted, err := repo.Add(ctx, record("7", 1))
	assert.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Add(ctx, record("8", 1))
	assert.NoError(t, err)
	assert.True(t, inserted, "the uniqueness constraint is per user")
}

func TestAnsweredIDs_InsertionOrder(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	for _, id := range []uint{5, 2, 9} {
		_, err := repo.Add(ctx, record("7", id))
		require.NoError(t, err)
	}

	ids, err := repo.AnsweredIDs(ctx, "7")
	assert.NoError(t, err)
	assert.Equal(t, []uint{5, 2, 9}, ids, "registry order is append order, not id order")
}

func TestAnsweredIDs_EmptyForUnknownUser(t *testing.T) {
	repo := setupTestRepository(t)

	ids, err := repo.AnsweredIDs(context.Background(), "nobody")
	assert.NoError(t, err)
	assert.Empty(t, ids)
}

func TestHistory(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	_, err := repo.Add(ctx, record("7", 1))
	require.NoError(t, err)
	_, err = repo.Add(ctx, record("7", 2))
	require.NoError(t, err)
	_, err = repo.Add(ctx, record("8", 3))
	require.NoError(t, err)

	history, err := repo.History(ctx, "7")
	assert.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, uint(1), history[0].QuestionID)
	assert.False(t, history[0].AnsweredAt.IsZero())
}

func TestClear_OnlyTargetUser(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	_, err := repo.Add(ctx, record("7", 1))
	require.NoError(t, err)
	_, err = repo.Add(ctx, record("8", 1))
	require.NoError(t, err)

	assert.NoError(t, repo.Clear(ctx, "7"))

	ids, err := repo.AnsweredIDs(ctx, "7")
	assert.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = repo.AnsweredIDs(ctx, "8")
	assert.NoError(t, err)
	assert.Equal(t, []uint{1}, ids)

	// After a clear the question can be answered fresh.
	inserted, err := repo.Add(ctx, record("7", 1))
	assert.NoError(t, err)
	assert.True(t, inserted)
}

func TestClearAll(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	_, err := repo.Add(ctx, record("7", 1))
	require.NoError(t, err)
	_, err = repo.Add(ctx, record("8", 2))
	require.NoError(t, err)

	assert.NoError(t, repo.ClearAll(ctx))

	for _, user := range []string{"7", "8"} {
		ids, err := repo.AnsweredIDs(ctx, user)
		assert.NoError(t, err)
		assert.Empty(t, ids)
	}
}
