package models

import (
	"time"

	"gorm.io/datatypes"
)

// AnswerValue is an in-memory answer before wire serialization. Exactly one
// of the fields relevant to the question's response type is consulted:
// Rating for RATING_5 (1..N), Token for YES_NO, Text for SHORT_TEXT.
type AnswerValue struct {
	Rating int    `json:"rating,omitempty"`
	Token  string `json:"token,omitempty"`
	Text   string `json:"text,omitempty"`
}

// AnsweredQuestion is one row of the persisted answer log. The distinct
// question IDs per user form the answered-question registry; the unique
// index is what makes registry appends idempotent.
type AnsweredQuestion struct {
	ID           uint           `json:"id" gorm:"primarykey"`
	UserID       string         `json:"user_id" gorm:"uniqueIndex:idx_user_question;size:64;not null"`
	QuestionID   uint           `json:"question_id" gorm:"uniqueIndex:idx_user_question;not null"`
	ResponseType string         `json:"response_type" gorm:"size:16"`
	Answer       string         `json:"answer"`
	Payload      datatypes.JSON `json:"payload,omitempty"`
	AnsweredAt   time.Time      `json:"answered_at" gorm:"autoCreateTime"`
}

func (AnsweredQuestion) TableName() string {
	return "answered_questions"
}
