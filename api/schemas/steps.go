package schemas

import (
	"time"
)

// -- Step Result Schemas --

// StepResult is the outcome of one wizard step.
type StepResult struct {
	Step     string        `json:"step"`
	Success  bool          `json:"success"`
	Message  string        `json:"message"`
	Snapshot string        `json:"snapshot,omitempty"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// RunReport summarizes one full workflow execution.
type RunReport struct {
	RunID      string       `json:"run_id"`
	Email      string       `json:"email"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Steps      []StepResult `json:"steps"`
	Final      StepResult   `json:"final"`
}

// Success reports whether every step passed.
func (r RunReport) Success() bool { return r.Final.Success }
