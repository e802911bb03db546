package jobs

// Status is a job lifecycle position.
type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsActive reports whether the job may still produce a result.
func (s Status) IsActive() bool {
	return s == StatusSubmitted || s == StatusInProgress
}

// IsFinished reports whether the job reached a terminal status.
func (s Status) IsFinished() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// canTransition enforces the job state machine edges. Terminal statuses have
// no exits, so a cancelled job can never complete.
func canTransition(from, to Status) bool {
	switch from {
	case StatusSubmitted:
		return to == StatusInProgress || to == StatusFailed || to == StatusCancelled
	case StatusInProgress:
		return to == StatusCompleted || to == StatusFailed || to == StatusCancelled
	default:
		return false
	}
}
