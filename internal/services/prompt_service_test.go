package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dadok-care/survey-engine/internal/client"
	"github.com/dadok-care/survey-engine/internal/events"
	"github.com/dadok-care/survey-engine/internal/models"
	"github.com/dadok-care/survey-engine/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockSurveyBackend is a mock implementation of SurveyBackend
type MockSurveyBackend struct {
	mock.Mock
}

func (m *MockSurveyBackend) FetchQuestions(ctx context.Context, userID string) ([]*models.Question, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Question), args.Error(1)
}

func (m *MockSurveyBackend) SubmitAnswer(ctx context.Context, userID string, questionID *uint, answer string) error {
	args := m.Called(ctx, userID, questionID, answer)
	return args.Error(0)
}

// MockRegistryRepository is a mock implementation of RegistryRepository
type MockRegistryRepository struct {
	mock.Mock
}

func (m *MockRegistryRepository) Add(ctx context.Context, record *models.AnsweredQuestion) (bool, error) {
	args := m.Called(ctx, record)
	return args.Bool(0), args.Error(1)
}

func (m *MockRegistryRepository) AnsweredIDs(ctx context.Context, userID string) ([]uint, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

func (m *MockRegistryRepository) History(ctx context.Context, userID string) ([]*models.AnsweredQuestion, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AnsweredQuestion), args.Error(1)
}

func (m *MockRegistryRepository) Clear(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockRegistryRepository) ClearAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func questionBank() []*models.Question {
	return []*models.Question{
		{ID: 1, Content: "첫 번째 질문", ResponseType: models.ResponseRating5},
		{ID: 2, Content: "두 번째 질문", ResponseType: models.ResponseYesNo},
		{ID: 3, Content: "세 번째 질문", ResponseType: models.ResponseShortText},
	}
}

func newTestService(backend *MockSurveyBackend, registry *MockRegistryRepository, cfg PromptConfig) (PromptService, *events.MockEventPublisher) {
	publisher := events.NewMockEventPublisher(testLogger())
	svc := NewPromptService(backend, registry, nil, publisher, validator.New(), testLogger(), cfg)
	return svc, publisher
}

// ===== SELECTION =====

func TestNextQuestion_UnansweredFirst(t *testing.T) {
	backend := new(MockSurveyBackend)
	registry := new(MockRegistryRepository)
	svc, _ := newTestService(backend, registry, PromptConfig{TotalQuestions: 3})

	backend.On("FetchQuestions", mock.Anything, "7").Return(questionBank(), nil)
	registry.On("AnsweredIDs", mock.Anything, "7").Return([]uint{1}, nil)

	result, err := svc.NextQuestion(context.Background(), "7")

	assert.NoError(t, err)
	assert.NotNil(t, result.Question)
	// First unanswered question in backend order, never a re-sort.
	assert.Equal(t, uint(2), result.Question.ID)
	assert.False(t, result.Fallback)
}

func TestNextQuestion_AllAnsweredFallsBackToRandom(t *testing.T) {
	backend := new(MockSurveyBackend)
	registry := new(MockRegistryRepository)
	svc, _ := newTestService(backend, registry, PromptConfig{TotalQuestions: 3})

	backend.On("FetchQuestions", mock.Anything, "7").Return(questionBank(), nil)
	registry.On("AnsweredIDs", mock.Anything, "7").Return([]uint{1, 2, 3}, nil)

	result, err := svc.NextQuestion(context.Background(), "7")

	assert.NoError(t, err)
	assert.NotNil(t, result.Question, "a fully answered bank must still yield a question")
	assert.Contains(t, []uint{1, 2, 3}, result.Question.ID)
}

func TestNextQuestion_EmptyBank(t *testing.T) {
	backend := new(MockSurveyBackend)
	registry := new(MockRegistryRepository)
	svc, _ := newTestService(backend, registry, PromptConfig{TotalQuestions: 3})

	backend.On("FetchQuestions", mock.Anything, "7").Return([]*models.Question{}, nil)

	result, err := svc.NextQuestion(context.Background(), "7")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestNextQuestion_RegistryFailureDegradesToEmptySet(t *testing.T) {
	backend := new(MockSurveyBackend)
	registry := new(MockRegistryRepository)
	svc, _ := newTestService(backend, registry, PromptConfig{TotalQuestions: 3})

	backend.On("FetchQuestions", mock.Anything, "7").Return(questionBank(), nil)
	registry.On("AnsweredIDs", mock.Anything, "7").Return(nil, assert.AnError)

	result, err := svc.NextQuestion(context.Background(), "7")

	assert.NoError(t, err, "a registry read failure must not block the prompt")
	assert.Equal(t, uint(1), result.Question.ID)
}

func TestNextQuestion_FetchFailureServesFallback(t *testing.T) {
	backend := new(MockSurveyBackend)
	registry := new(MockRegistryRepository)
	fallback := &models.Question{ID: 999, Content: "고민이 있다면 적어주세요", ResponseType: models.ResponseShortText}
	svc, _ := newTestService(backend, registry, PromptConfig{TotalQuestions: 3, FallbackQuestion: fallback})

	backend.On("FetchQuestions", mock.Anything, "7").
		Return(nil, &client.UnreachableError{BaseURL: "http://localhost:9"})

	result, err := svc.NextQuestion(context.Background(), "7")

	assert.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.Equal(t, fallback, result.Question)
	assert.Contains(t, result.Notice, "http://localhost:9")
}

// ===== SUBMISSION =====

func TestSubmit_ValidationNeverReachesNetwork(t *testing.T) {
	backend := new(MockSurveyBackend)
	registry := new(MockRegistryRepository)
	svc, _ := newTestService(backend, registry, PromptConfig{TotalQuestions: 3})

	_, err := svc.Submit(context.Background(), "7", &SubmitRequest{QuestionID: 1})

	assert.ErrorIs(t, err, ErrAnswerRequired)
	backend.AssertNotCalled(t, "SubmitAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	registry.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestSubmit_RatingOutOfRange(t *testing.T) {
	backend := new(MockSurveyBackend)
	registry := new(MockRegistryRepository)
	svc, _ := newTestService(backend, registry, PromptConfig{TotalQuestions: 3})

	backend.On("FetchQuestions", mock.Anything, "7").Return(questionBank(), nil)

	_, err := svc.Submit(context.Background(), "7", &SubmitRequest{
		QuestionID: 1,
		Value:      models.AnswerValue{Rating: 6},
	})

	assert.ErrorIs(t, err, ErrRatingOutOfRange)
	assert.True(t, IsValidation(err))
	backend.AssertNotCalled(t, "SubmitAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_SerializesRatingAsString(t *testing.T) {
	backend := new(MockSurveyBackend)
	registry := new(MockRegistryRepository)
	svc, _ := newTestService(backend, registry, PromptConfig{TotalQuestions: 3})

	backend.On("FetchQuestions", mock.Anything, "7").Return(questionBank(), nil)
	backend.On("SubmitAnswer", mock.Anything, "7", mock.Anything, "4").Return(nil)
	registry.On("Add", mock.Anything, mock.Anything).Return(true, nil)

	result, err := svc.Submit(context.Background(), "7", &SubmitRequest{
		QuestionID: 1,
		Value:      models.AnswerValue{Rating: 4},
	})

	assert.NoError(t, err)
	assert.True(t, result.NewlyRegistered)
	backend.AssertExpectations(t)
}

func TestSubmit_BackendRejectionLeavesStateUnchanged(t *testing.T) {
	backend := new(MockSurveyBackend)
	registry := new(MockRegistryRepository)
	svc, publisher := newTestService(backend, registry, PromptConfig{TotalQuestions: 3})

	backend.On("FetchQuestions", mock.Anything, "7").Return(questionBank(), nil)
	backend.On("SubmitAnswer", mock.Anything, "7", mock.Anything, mock.Anything).
		Return(&client.APIError{StatusCode: 400, Message: "잘못된 요청입니다."})

	_, err := svc.Submit(context.Background(), "7", &SubmitRequest{
		QuestionID: 1,
		Value:      models.AnswerValue{Rating: 3},
	})

	assert.Error(t, err)
	assert.True(t, client.IsBadRequest(err))
	registry.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	assert.Equal(t, models.ProgressEmpty, svc.Progress("7").State)
	assert.Empty(t, publisher.GetPublishedEvents())
}

func TestSubmit_ProgressAndOneTimeCompletion(t *testing.T) {
	backend := new(MockSurveyBackend)
	registry := new(MockRegistryRepository)
	svc, publisher := newTestService(backend, registry, PromptConfig{TotalQuestions: 2})

	bank := []*models.Question{
		{ID: 1, ResponseType: models.ResponseRating5},
		{ID: 2, ResponseType: models.ResponseYesNo},
	}
	backend.On("FetchQuestions", mock.Anything, "7").Return(bank, nil)
	backend.On("SubmitAnswer", mock.Anything, "7", mock.Anything, mock.Anything).Return(nil)
	registry.On("Add", mock.Anything, mock.Anything).Return(true, nil).Twice()
	// Third submit hits the registry again but the entry already exists.
	registry.On("Add", mock.Anything, mock.Anything).Return(false, nil)

	first, err := svc.Submit(context.Background(), "7", &SubmitRequest{
		QuestionID: 1,
		Value:      models.AnswerValue{Rating: 3},
	})
	assert.NoError(t, err)
	assert.InDelta(t, 50.0, first.Progress.PercentComplete, 0.01)
	assert.Equal(t, models.ProgressInProgress, first.Progress.State)
	assert.False(t, first.CompletedNow)

	second, err := svc.Submit(context.Background(), "7", &SubmitRequest{
		QuestionID: 2,
		Value:      models.AnswerValue{Token: models.YesToken},
	})
	assert.NoError(t, err)
	assert.InDelta(t, 100.0, second.Progress.PercentComplete, 0.01)
	assert.Equal(t, models.ProgressComplete, second.Progress.State)
	assert.True(t, second.CompletedNow, "completion fires when the target is first reached")

	// Re-submitting an already answered question: accepted, no duplicate
	// registry entry, percent capped at 100, completion does not re-fire.
	third, err := svc.Submit(context.Background(), "7", &SubmitRequest{
		QuestionID: 1,
		Value:      models.AnswerValue{Rating: 5},
	})
	assert.NoError(t, err)
	assert.False(t, third.NewlyRegistered)
	assert.InDelta(t, 100.0, third.Progress.PercentComplete, 0.01)
	assert.False(t, third.CompletedNow)

	var completions int
	for _, event := range publisher.GetPublishedEvents() {
		if event.Type == events.EventSurveyCompleted {
			completions++
		}
	}
	assert.Equal(t, 1, completions, "survey.completed must fire exactly once per session")
}

func TestSubmit_DuplicateInFlightRejectedLocally(t *testing.T) {
	backend := new(MockSurveyBackend)
	registry := new(MockRegistryRepository)
	svc, _ := newTestService(backend, registry, PromptConfig{TotalQuestions: 3})

	block := make(chan struct{})
	started := make(chan struct{})

	backend.On("FetchQuestions", mock.Anything, "7").Return(questionBank(), nil)
	backend.On("SubmitAnswer", mock.Anything, "7", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-block
		}).
		Return(nil).Once()
	registry.On("Add", mock.Anything, mock.Anything).Return(true, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.Submit(context.Background(), "7", &SubmitRequest{
			QuestionID: 1,
			Value:      models.AnswerValue{Rating: 3},
		})
		assert.NoError(t, err)
	}()

	<-started
	_, err := svc.Submit(context.Background(), "7", &SubmitRequest{
		QuestionID: 1,
		Value:      models.AnswerValue{Rating: 4},
	})
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(block)
	wg.Wait()

	// The in-flight guard is per question: another question is unaffected.
	backend.On("SubmitAnswer", mock.Anything, "7", mock.Anything, mock.Anything).Return(nil)
	_, err = svc.Submit(context.Background(), "7", &SubmitRequest{
		QuestionID: 3,
		Value:      models.AnswerValue{Text: "괜찮아요"},
	})
	assert.NoError(t, err)
}

func TestSubmit_UnknownQuestion(t *testing.T) {
	backend := new(MockSurveyBackend)
	registry := new(MockRegistryRepository)
	svc, _ := newTestService(backend, registry, PromptConfig{TotalQuestions: 3})

	backend.On("FetchQuestions", mock.Anything, "7").Return(questionBank(), nil)

	_, err := svc.Submit(context.Background(), "7", &SubmitRequest{
		QuestionID: 42,
		Value:      models.AnswerValue{Text: "??"},
	})

	assert.ErrorIs(t, err, ErrUnknownQuestion)
}

func TestSubmit_FallbackQuestionAccepted(t *testing.T) {
	backend := new(MockSurveyBackend)
	registry := new(MockRegistryRepository)
	fallback := &models.Question{ID: 999, ResponseType: models.ResponseShortText}
	svc, _ := newTestService(backend, registry, PromptConfig{TotalQuestions: 3, FallbackQuestion: fallback})

	backend.On("SubmitAnswer", mock.Anything, "7", mock.Anything, "요즘 잠이 잘 안 와요").Return(nil)
	registry.On("Add", mock.Anything, mock.Anything).Return(true, nil)

	result, err := svc.Submit(context.Background(), "7", &SubmitRequest{
		QuestionID: 999,
		Value:      models.AnswerValue{Text: "  요즘 잠이 잘 안 와요  "},
	})

	assert.NoError(t, err)
	assert.True(t, result.NewlyRegistered)
	// The fallback question is resolved without fetching the bank.
	backend.AssertNotCalled(t, "FetchQuestions", mock.Anything, mock.Anything)
}

// ===== RESET =====

func TestResetSurvey(t *testing.T) {
	backend := new(MockSurveyBackend)
	registry := new(MockRegistryRepository)
	svc, _ := newTestService(backend, registry, PromptConfig{TotalQuestions: 2})

	backend.On("FetchQuestions", mock.Anything, "7").Return(questionBank(), nil)
	backend.On("SubmitAnswer", mock.Anything, "7", mock.Anything, mock.Anything).Return(nil)
	registry.On("Add", mock.Anything, mock.Anything).Return(true, nil)
	registry.On("Clear", mock.Anything, "7").Return(nil)

	_, err := svc.Submit(context.Background(), "7", &SubmitRequest{
		QuestionID: 1,
		Value:      models.AnswerValue{Rating: 2},
	})
	assert.NoError(t, err)
	assert.Equal(t, models.ProgressInProgress, svc.Progress("7").State)

	assert.NoError(t, svc.ResetSurvey(context.Background(), "7"))
	assert.Equal(t, models.ProgressEmpty, svc.Progress("7").State)
	registry.AssertCalled(t, "Clear", mock.Anything, "7")
}
