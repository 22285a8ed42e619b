package services

import (
	"sync"

	"github.com/dadok-care/survey-engine/internal/models"
)

// Session tracks per-user progress for the lifetime of one engine process
// (the equivalent of one loaded page in the extension). The answered count
// resets on a fresh bootstrap, never on a successful submission; the
// durable registry lives in the repository, not here.
type Session struct {
	mu              sync.Mutex
	answeredCount   int
	totalQuestions  int
	completionFired bool
}

// NewSession creates a session with the configured completion target.
// totalQuestions is a fixed denominator, not the size of the fetched
// question bank.
func NewSession(totalQuestions int) *Session {
	if totalQuestions <= 0 {
		totalQuestions = 1
	}
	return &Session{totalQuestions: totalQuestions}
}

// RecordAnswer counts one accepted submission and reports whether this
// answer completed the survey. The completion signal fires exactly once per
// session; re-entering COMPLETE on later answers does not re-fire it.
func (s *Session) RecordAnswer() (models.ProgressSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.answeredCount++

	completedNow := false
	if s.answeredCount >= s.totalQuestions && !s.completionFired {
		s.completionFired = true
		completedNow = true
	}

	return s.snapshotLocked(), completedNow
}

// Snapshot returns the current progress view.
func (s *Session) Snapshot() models.ProgressSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Reset returns the session to EMPTY, as on a fresh bootstrap.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answeredCount = 0
	s.completionFired = false
}

func (s *Session) snapshotLocked() models.ProgressSnapshot {
	percent := 100 * float64(s.answeredCount) / float64(s.totalQuestions)
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}

	state := models.ProgressInProgress
	switch {
	case s.answeredCount == 0:
		state = models.ProgressEmpty
	case percent >= 100:
		state = models.ProgressComplete
	}

	return models.ProgressSnapshot{
		State:           state,
		AnsweredCount:   s.answeredCount,
		TotalQuestions:  s.totalQuestions,
		PercentComplete: percent,
	}
}
