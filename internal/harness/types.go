package harness

import (
	"time"

	"github.com/roach88/pagecheck/internal/outcome"
)

// Result is the outcome of one scenario execution.
type Result struct {
	// Name is the scenario name.
	Name string `json:"name"`

	// Route is the contract route the scenario ran against.
	Route string `json:"route"`

	// SessionID identifies the session the scenario ran on.
	SessionID string `json:"session_id,omitempty"`

	// Pass is true iff every attempt matched Expected.
	Pass bool `json:"pass"`

	// Expected is the outcome the contract (or the expect block) requires.
	Expected outcome.Outcome `json:"expected"`

	// Actual is the outcome of the first attempt. Zero when a fault stopped
	// the scenario before it resolved.
	Actual outcome.Outcome `json:"actual"`

	// Attempts holds every outcome when the scenario was repeated.
	Attempts []outcome.Outcome `json:"attempts,omitempty"`

	// Duration is the measured time of the first attempt.
	Duration time.Duration `json:"duration_ns"`

	// Fault is the driver failure that aborted the scenario, if any.
	Fault string `json:"fault,omitempty"`

	// Errors contains human-readable failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult(name, route string, expected outcome.Outcome) *Result {
	return &Result{
		Name:     name,
		Route:    route,
		Pass:     true,
		Expected: expected,
		Errors:   []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// SetFault records a driver failure and marks the result as failed.
func (r *Result) SetFault(err error) {
	r.Fault = err.Error()
	r.AddError(err.Error())
}

// TimingResult is the outcome of a latency check.
type TimingResult struct {
	Name      string          `json:"name"`
	Route     string          `json:"route"`
	SessionID string          `json:"session_id,omitempty"`
	Expected  outcome.Outcome `json:"expected"`
	Runs      int             `json:"runs"`
	Samples   []time.Duration `json:"samples_ns"`
	Mean      time.Duration   `json:"mean_ns"`
	Ceiling   time.Duration   `json:"ceiling_ns"`
	Pass      bool            `json:"pass"`
	// Failure explains why the check failed, if it did.
	Failure string `json:"failure,omitempty"`
	Fault   string `json:"fault,omitempty"`
}
