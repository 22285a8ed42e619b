package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/dadok-care/survey-engine/internal/cache"
	"github.com/dadok-care/survey-engine/internal/events"
	"github.com/dadok-care/survey-engine/internal/models"
	"github.com/dadok-care/survey-engine/internal/repositories"
	"github.com/dadok-care/survey-engine/internal/validator"
	"github.com/samber/lo"
	"gorm.io/datatypes"
)

// SurveyBackend is the outbound contract the engine needs from the remote
// survey API. Satisfied by client.Client.
type SurveyBackend interface {
	FetchQuestions(ctx context.Context, userID string) ([]*models.Question, error)
	SubmitAnswer(ctx context.Context, userID string, questionID *uint, answer string) error
}

// PromptService is the survey prompt engine: question retrieval,
// unanswered-first selection, validated submission with idempotent
// registry bookkeeping, and per-session progress.
type PromptService interface {
	NextQuestion(ctx context.Context, userID string) (*NextQuestionResult, error)
	Submit(ctx context.Context, userID string, req *SubmitRequest) (*SubmitResult, error)
	Progress(userID string) models.ProgressSnapshot
	ResetSurvey(ctx context.Context, userID string) error
	ResetAllSurveys(ctx context.Context) error
}

// NextQuestionResult carries the selected question. Question is nil when
// the backend has nothing to ask; Fallback marks the configured offline
// question served because the fetch failed, with Notice holding the
// user-legible failure message.
type NextQuestionResult struct {
	Question *models.Question `json:"question"`
	Fallback bool             `json:"fallback,omitempty"`
	Notice   string           `json:"notice,omitempty"`
}

// SubmitRequest is one answer submission from the UI.
type SubmitRequest struct {
	QuestionID uint               `json:"question_id" validate:"required"`
	Value      models.AnswerValue `json:"value"`
}

// SubmitResult reports the outcome of an accepted submission.
type SubmitResult struct {
	QuestionID      uint                    `json:"question_id"`
	NewlyRegistered bool                    `json:"newly_registered"`
	CompletedNow    bool                    `json:"completed_now"`
	Progress        models.ProgressSnapshot `json:"progress"`
	Message         string                  `json:"message"`
}

// PromptConfig carries the engine's fixed parameters.
type PromptConfig struct {
	// TotalQuestions is the completion target: how many answers make
	// today's survey 100% complete.
	TotalQuestions int

	// FallbackQuestion, when set, is served if the question fetch fails so
	// the UI always has something to show.
	FallbackQuestion *models.Question
}

// encouragementMessages are shown after each accepted answer.
var encouragementMessages = []string{
	"좋아요! 한 걸음씩 나아가고 있어요 🌟",
	"잘하고 있어요! 계속 힘내세요 💪",
	"멋져요! 오늘도 수고하셨어요 ✨",
	"훌륭해요! 작은 변화가 큰 변화를 만들어요 🌈",
}

type inflightKey struct {
	userID     string
	questionID uint
}

type promptService struct {
	backend   SurveyBackend
	registry  repositories.RegistryRepository
	questions *cache.QuestionCache
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *slog.Logger
	cfg       PromptConfig

	sessionsMu sync.Mutex
	sessions   map[string]*Session

	inflightMu sync.Mutex
	inflight   map[inflightKey]struct{}
}

// NewPromptService builds the engine. questionCache may be nil when no
// redis is configured; everything else is required.
func NewPromptService(
	backend SurveyBackend,
	registry repositories.RegistryRepository,
	questionCache *cache.QuestionCache,
	publisher events.EventPublisher,
	v *validator.Validator,
	logger *slog.Logger,
	cfg PromptConfig,
) PromptService {
	if cfg.TotalQuestions <= 0 {
		cfg.TotalQuestions = 10
	}
	return &promptService{
		backend:   backend,
		registry:  registry,
		questions: questionCache,
		publisher: publisher,
		validator: v,
		logger:    logger,
		cfg:       cfg,
		sessions:  make(map[string]*Session),
		inflight:  make(map[inflightKey]struct{}),
	}
}

// ===== QUESTION SELECTION =====

// NextQuestion picks the question to prompt with. Selection is two-tier:
// the first not-yet-answered question in backend order, then a uniformly
// random pick from the full bank once everything known has been answered.
// The backend's ordering is authoritative; nothing is re-sorted.
func (s *promptService) NextQuestion(ctx context.Context, userID string) (*NextQuestionResult, error) {
	questions, err := s.loadQuestions(ctx, userID)
	if err != nil {
		if s.cfg.FallbackQuestion != nil {
			s.logger.Error("question fetch failed, serving fallback question",
				"user_id", userID,
				"error", err)
			return &NextQuestionResult{
				Question: s.cfg.FallbackQuestion,
				Fallback: true,
				Notice:   err.Error(),
			}, nil
		}
		return nil, err
	}

	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	answered := s.answeredSet(ctx, userID)

	unanswered := lo.Filter(questions, func(q *models.Question, _ int) bool {
		return !answered[q.ID]
	})

	var question *models.Question
	if len(unanswered) > 0 {
		question = unanswered[0]
	} else {
		question = lo.Sample(questions)
	}

	s.logger.Debug("selected question",
		"user_id", userID,
		"question_id", question.ID,
		"response_type", question.ResponseType,
		"unanswered_remaining", len(unanswered))

	return &NextQuestionResult{Question: question}, nil
}

// answeredSet loads the registry as a lookup set. A registry read failure
// degrades to "nothing answered" so the prompt flow is never blocked.
func (s *promptService) answeredSet(ctx context.Context, userID string) map[uint]bool {
	ids, err := s.registry.AnsweredIDs(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load answered-question registry, treating as empty",
			"user_id", userID,
			"error", err)
		return map[uint]bool{}
	}

	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func (s *promptService) loadQuestions(ctx context.Context, userID string) ([]*models.Question, error) {
	if s.questions != nil {
		if cached, ok := s.questions.Get(ctx, userID); ok {
			return cached, nil
		}
	}

	questions, err := s.backend.FetchQuestions(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.questions != nil {
		s.questions.Set(ctx, userID, questions)
	}
	return questions, nil
}

// ===== SUBMISSION =====

// Submit validates and records one answer. Validation failures never reach
// the network. On backend acceptance the registry append and session
// progress update happen together; on any failure both are left unchanged.
func (s *promptService) Submit(ctx context.Context, userID string, req *SubmitRequest) (*SubmitResult, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if isEmptyValue(req.Value) {
		return nil, ErrAnswerRequired
	}

	// A second submit for a question already mid-flight is rejected
	// locally, before any network call. Double-click protection.
	key := inflightKey{userID: userID, questionID: req.QuestionID}
	if !s.acquireInflight(key) {
		return nil, ErrSubmissionInFlight
	}
	defer s.releaseInflight(key)

	question, err := s.findQuestion(ctx, userID, req.QuestionID)
	if err != nil {
		return nil, err
	}

	answer, err := serializeAnswer(question, req.Value)
	if err != nil {
		return nil, err
	}

	questionID := req.QuestionID
	if err := s.backend.SubmitAnswer(ctx, userID, &questionID, answer); err != nil {
		return nil, err
	}

	newly := s.appendRegistry(ctx, userID, question, answer, req.Value)

	session := s.sessionFor(userID)
	snapshot, completedNow := session.RecordAnswer()

	s.publishAnswerEvents(ctx, userID, questionID, snapshot, completedNow)

	s.logger.Info("answer recorded",
		"user_id", userID,
		"question_id", questionID,
		"newly_registered", newly,
		"answered_count", snapshot.AnsweredCount,
		"percent_complete", snapshot.PercentComplete)

	return &SubmitResult{
		QuestionID:      questionID,
		NewlyRegistered: newly,
		CompletedNow:    completedNow,
		Progress:        snapshot,
		Message:         lo.Sample(encouragementMessages),
	}, nil
}

// findQuestion resolves the question's semantics from the current bank
// (cache-first) or the configured fallback question.
func (s *promptService) findQuestion(ctx context.Context, userID string, questionID uint) (*models.Question, error) {
	if fb := s.cfg.FallbackQuestion; fb != nil && fb.ID == questionID {
		return fb, nil
	}

	questions, err := s.loadQuestions(ctx, userID)
	if err != nil {
		return nil, err
	}

	question, found := lo.Find(questions, func(q *models.Question) bool {
		return q.ID == questionID
	})
	if !found {
		return nil, ErrUnknownQuestion
	}
	return question, nil
}

// appendRegistry persists the answer record. The backend already accepted
// the answer at this point, so a local persistence failure is logged but
// does not fail the submission; the session still counts it.
func (s *promptService) appendRegistry(ctx context.Context, userID string, question *models.Question, answer string, value models.AnswerValue) bool {
	payload, err := json.Marshal(value)
	if err != nil {
		payload = nil
	}

	newly, err := s.registry.Add(ctx, &models.AnsweredQuestion{
		UserID:       userID,
		QuestionID:   question.ID,
		ResponseType: string(question.ResponseType),
		Answer:       answer,
		Payload:      datatypes.JSON(payload),
	})
	if err != nil {
		s.logger.Error("failed to persist registry entry",
			"user_id", userID,
			"question_id", question.ID,
			"error", err)
		return false
	}
	return newly
}

// publishAnswerEvents emits the bookkeeping events. Publish failures are
// logged and swallowed: event delivery is best-effort and never fails a
// submission the backend already accepted.
func (s *promptService) publishAnswerEvents(ctx context.Context, userID string, questionID uint, snapshot models.ProgressSnapshot, completedNow bool) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.PublishSurveyEvent(ctx, events.NewAnswerRecordedEvent(userID, questionID, snapshot)); err != nil {
		s.logger.Warn("failed to publish answer event", "user_id", userID, "error", err)
	}

	if completedNow {
		if err := s.publisher.PublishSurveyEvent(ctx, events.NewSurveyCompletedEvent(userID, snapshot)); err != nil {
			s.logger.Warn("failed to publish completion event", "user_id", userID, "error", err)
		}
	}
}

// ===== PROGRESS & RESET =====

func (s *promptService) Progress(userID string) models.ProgressSnapshot {
	return s.sessionFor(userID).Snapshot()
}

// ResetSurvey clears one user's registry and bootstraps a fresh session.
func (s *promptService) ResetSurvey(ctx context.Context, userID string) error {
	if err := s.registry.Clear(ctx, userID); err != nil {
		return fmt.Errorf("failed to reset survey for user %s: %w", userID, err)
	}
	if s.questions != nil {
		s.questions.Invalidate(ctx, userID)
	}
	s.sessionFor(userID).Reset()

	s.logger.Info("survey reset", "user_id", userID)
	return nil
}

// ResetAllSurveys clears every registry entry. Called by the scheduled
// daily reset.
func (s *promptService) ResetAllSurveys(ctx context.Context) error {
	if err := s.registry.ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to reset surveys: %w", err)
	}
	if s.questions != nil {
		s.questions.InvalidateAll(ctx)
	}

	s.sessionsMu.Lock()
	for _, session := range s.sessions {
		session.Reset()
	}
	s.sessionsMu.Unlock()

	s.logger.Info("all surveys reset")
	return nil
}

func (s *promptService) sessionFor(userID string) *Session {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	session, ok := s.sessions[userID]
	if !ok {
		session = NewSession(s.cfg.TotalQuestions)
		s.sessions[userID] = session
	}
	return session
}

func (s *promptService) acquireInflight(key inflightKey) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()

	if _, busy := s.inflight[key]; busy {
		return false
	}
	s.inflight[key] = struct{}{}
	return true
}

func (s *promptService) releaseInflight(key inflightKey) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, key)
}

// ===== ANSWER SERIALIZATION =====

// serializeAnswer validates the in-memory value against the question's
// response type and produces the wire string the backend expects.
func serializeAnswer(question *models.Question, value models.AnswerValue) (string, error) {
	switch question.ResponseType {
	case models.ResponseRating5:
		scale := len(question.PresentedOptions())
		if value.Rating < 1 || value.Rating > scale {
			return "", ErrRatingOutOfRange
		}
		return strconv.Itoa(value.Rating), nil

	case models.ResponseYesNo:
		if value.Token != models.YesToken && value.Token != models.NoToken {
			return "", ErrInvalidYesNoAnswer
		}
		return value.Token, nil

	case models.ResponseShortText:
		text := strings.TrimSpace(value.Text)
		if text == "" {
			return "", ErrEmptyTextAnswer
		}
		return text, nil
	}

	return "", fmt.Errorf("unsupported response type %q", question.ResponseType)
}

func isEmptyValue(value models.AnswerValue) bool {
	return value.Rating == 0 && value.Token == "" && strings.TrimSpace(value.Text) == ""
}
