package models

// ProgressState is the session progress state machine:
// EMPTY (0%) -> IN_PROGRESS (0% < p < 100%) -> COMPLETE (p >= 100%).
type ProgressState string

const (
	ProgressEmpty      ProgressState = "EMPTY"
	ProgressInProgress ProgressState = "IN_PROGRESS"
	ProgressComplete   ProgressState = "COMPLETE"
)

// ProgressSnapshot is a point-in-time view of session progress.
// TotalQuestions is the configured completion target, not the size of the
// fetched question bank.
type ProgressSnapshot struct {
	State           ProgressState `json:"state"`
	AnsweredCount   int           `json:"answered_count"`
	TotalQuestions  int           `json:"total_questions"`
	PercentComplete float64       `json:"percent_complete"`
}
