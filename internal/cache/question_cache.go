package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dadok-care/survey-engine/internal/models"
)

const questionKeyPrefix = "survey:questions:"

// QuestionCache keeps a short-lived per-user copy of the fetched question
// bank so repeated prompt-opens don't hammer the backend. Cache failures
// are logged and swallowed: a broken cache degrades to a fetch, never to a
// user-visible error.
type QuestionCache struct {
	cache  CacheService
	ttl    time.Duration
	logger *slog.Logger
}

func NewQuestionCache(cache CacheService, ttl time.Duration, logger *slog.Logger) *QuestionCache {
	return &QuestionCache{cache: cache, ttl: ttl, logger: logger}
}

func questionKey(userID string) string {
	return questionKeyPrefix + userID
}

func (qc *QuestionCache) Get(ctx context.Context, userID string) ([]*models.Question, bool) {
	var questions []*models.Question
	err := qc.cache.Get(ctx, questionKey(userID), &questions)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			qc.logger.Warn("question cache read failed", "user_id", userID, "error", err)
		}
		return nil, false
	}
	return questions, true
}

func (qc *QuestionCache) Set(ctx context.Context, userID string, questions []*models.Question) {
	if err := qc.cache.Set(ctx, questionKey(userID), questions, qc.ttl); err != nil {
		qc.logger.Warn("question cache write failed", "user_id", userID, "error", err)
	}
}

func (qc *QuestionCache) Invalidate(ctx context.Context, userID string) {
	if err := qc.cache.Delete(ctx, questionKey(userID)); err != nil {
		qc.logger.Warn("question cache invalidation failed", "user_id", userID, "error", err)
	}
}

// InvalidateAll drops every cached question bank, used by the registry
// reset scheduler so a reset is immediately visible.
func (qc *QuestionCache) InvalidateAll(ctx context.Context) {
	if err := qc.cache.DeletePattern(ctx, fmt.Sprintf("%s*", questionKeyPrefix)); err != nil {
		qc.logger.Warn("question cache flush failed", "error", err)
	}
}
