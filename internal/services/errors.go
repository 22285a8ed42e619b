package services

import (
	"errors"

	apperrors "github.com/dadok-care/survey-engine/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Submission errors
	ErrAnswerRequired     = errors.New("an answer is required before submitting")
	ErrRatingOutOfRange   = errors.New("rating must be within the presented scale")
	ErrInvalidYesNoAnswer = errors.New("answer must be one of the two presented options")
	ErrEmptyTextAnswer    = errors.New("text answer must not be empty")
	ErrUnknownQuestion    = errors.New("question is not part of the current question bank")

	// ErrSubmissionInFlight rejects a second submit for a question whose
	// first submit has not resolved yet. Local, no network call is made.
	ErrSubmissionInFlight = errors.New("a submission for this question is already in flight")

	// ErrNoQuestions is the "nothing to answer" state: the backend
	// returned an empty question bank.
	ErrNoQuestions = errors.New("no questions available to answer")
)

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// IsValidation checks if error represents a local, pre-network validation
// failure. Validation failures never reach the backend.
func IsValidation(err error) bool {
	if errors.Is(err, ErrAnswerRequired) ||
		errors.Is(err, ErrRatingOutOfRange) ||
		errors.Is(err, ErrInvalidYesNoAnswer) ||
		errors.Is(err, ErrEmptyTextAnswer) ||
		errors.Is(err, ErrUnknownQuestion) {
		return true
	}
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}

// IsRetryableLocally reports errors the caller should simply retry on
// (an in-flight duplicate resolves by itself).
func IsRetryableLocally(err error) bool {
	return errors.Is(err, ErrSubmissionInFlight)
}
