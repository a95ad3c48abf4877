package types

import "time"

// Job names recorded in run history.
const (
	JobGenerate = "generate"
	JobClean    = "clean"
)

// Run is one execution of a job, as kept in the run history.
type Run struct {
	ID         string
	Job        string
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool

	// Committed reports whether the run wrote a new bank version.
	Committed bool
	Version   int

	Generated int
	Accepted  int
	Removed   int

	ExactDuplicates      int
	NearDuplicates       int
	IntraBatchDuplicates int

	// Error is the failure message; empty for successful runs.
	Error string

	Rejections []RunRejection
}

// Duration is how long the run took.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the run finished without error.
func (r *Run) Succeeded() bool {
	return r.Error == ""
}

// RunRejection is the stored form of a Rejection.
type RunRejection struct {
	Reason    RejectionReason
	Candidate string
	Matched   string
	Percent   int
}

// NewRunRejections converts rejections for storage.
func NewRunRejections(rejections []Rejection) []RunRejection {
	out := make([]RunRejection, len(rejections))
	for i := range rejections {
		out[i] = RunRejection{
			Reason:    rejections[i].Reason,
			Candidate: rejections[i].Candidate.Text,
			Matched:   rejections[i].Matched.Text,
			Percent:   rejections[i].Percent(),
		}
	}
	return out
}
