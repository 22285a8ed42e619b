package models

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ResponseType identifies how a survey question expects to be answered.
// The set is closed: payloads carrying anything else are rejected during
// normalization, never defaulted.
type ResponseType string

const (
	ResponseRating5   ResponseType = "RATING_5"
	ResponseYesNo     ResponseType = "YES_NO"
	ResponseShortText ResponseType = "SHORT_TEXT"
)

// ParseResponseType validates a raw wire value against the closed enumeration.
func ParseResponseType(raw string) (ResponseType, error) {
	switch ResponseType(raw) {
	case ResponseRating5, ResponseYesNo, ResponseShortText:
		return ResponseType(raw), nil
	}
	return "", fmt.Errorf("unknown response type %q", raw)
}

// Default option labels used when the backend sends a question without
// scale labels. These match the labels the survey backend seeds for the
// Korean-language deployment.
var (
	DefaultRatingLabels = []string{"매우 만족", "만족", "보통", "불만족", "매우 불만족"}
	DefaultYesLabel     = "있다"
	DefaultNoLabel      = "없다"
)

// Yes/no wire tokens. The backend stores the token, not the label.
const (
	YesToken = "yes"
	NoToken  = "no"
)

// Question is a normalized survey prompt. ID is assigned by the backend and
// stable across sessions; the engine never invents IDs.
type Question struct {
	ID           uint         `json:"question_id"`
	Content      string       `json:"content"`
	ResponseType ResponseType `json:"response_type"`
	Options      []string     `json:"options,omitempty"`
}

// PresentedOptions returns the option labels the UI should render, falling
// back to the default scale when the backend sent none.
func (q *Question) PresentedOptions() []string {
	switch q.ResponseType {
	case ResponseRating5:
		if len(q.Options) == 0 {
			return DefaultRatingLabels
		}
		return q.Options
	case ResponseYesNo:
		yes, no := DefaultYesLabel, DefaultNoLabel
		if len(q.Options) > 0 && q.Options[0] != "" {
			yes = q.Options[0]
		}
		if len(q.Options) > 1 && q.Options[1] != "" {
			no = q.Options[1]
		}
		return []string{yes, no}
	default:
		// SHORT_TEXT takes free text; there is nothing to present.
		return nil
	}
}

// QuestionPayload is the raw shape the survey backend returns from
// GET /questions. Option labels arrive as five flat fields rather than an
// array; empty slots are common and must be dropped.
type QuestionPayload struct {
	QuestionID   uint   `json:"questionId"`
	Content      string `json:"content"`
	ResponseType string `json:"responseType"`
	Question1    string `json:"question1,omitempty"`
	Question2    string `json:"question2,omitempty"`
	Question3    string `json:"question3,omitempty"`
	Question4    string `json:"question4,omitempty"`
	Question5    string `json:"question5,omitempty"`
}

// ToQuestion normalizes a wire payload into a Question. An unrecognized
// responseType makes the whole payload invalid.
func (p *QuestionPayload) ToQuestion() (*Question, error) {
	rt, err := ParseResponseType(p.ResponseType)
	if err != nil {
		return nil, fmt.Errorf("question %d: %w", p.QuestionID, err)
	}

	options := lo.Filter([]string{p.Question1, p.Question2, p.Question3, p.Question4, p.Question5},
		func(label string, _ int) bool {
			return strings.TrimSpace(label) != ""
		})

	return &Question{
		ID:           p.QuestionID,
		Content:      p.Content,
		ResponseType: rt,
		Options:      options,
	}, nil
}
