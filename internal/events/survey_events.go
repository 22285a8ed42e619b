package events

import (
	"time"

	"github.com/dadok-care/survey-engine/internal/models"
	"github.com/google/uuid"
)

// SurveyEventType identifies the kind of survey lifecycle event.
type SurveyEventType string

const (
	// EventAnswerRecorded fires after the backend accepted an answer and
	// the registry entry was persisted.
	EventAnswerRecorded SurveyEventType = "survey.answer.recorded"

	// EventSurveyCompleted fires exactly once per session, when the
	// answered count first reaches the completion target. Downstream
	// consumers drive the one-time celebratory UI effect from it.
	EventSurveyCompleted SurveyEventType = "survey.completed"
)

const eventSource = "survey-engine"

// SurveyEvent is the payload published for survey lifecycle events.
type SurveyEvent struct {
	ID        string          `json:"id"`
	Type      SurveyEventType `json:"type"`
	Source    string          `json:"source"`
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`

	UserID     string `json:"user_id"`
	QuestionID *uint  `json:"question_id,omitempty"`

	Progress models.ProgressSnapshot `json:"progress"`
}

func newSurveyEvent(eventType SurveyEventType, userID string, progress models.ProgressSnapshot) *SurveyEvent {
	return &SurveyEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    eventSource,
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Progress:  progress,
	}
}

// NewAnswerRecordedEvent builds an answer.recorded event.
func NewAnswerRecordedEvent(userID string, questionID uint, progress models.ProgressSnapshot) *SurveyEvent {
	event := newSurveyEvent(EventAnswerRecorded, userID, progress)
	event.QuestionID = &questionID
	return event
}

// NewSurveyCompletedEvent builds the one-time survey.completed event.
func NewSurveyCompletedEvent(userID string, progress models.ProgressSnapshot) *SurveyEvent {
	return newSurveyEvent(EventSurveyCompleted, userID, progress)
}
