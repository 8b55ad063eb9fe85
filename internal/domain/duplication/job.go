// Package duplication models the database duplication jobs run by the
// database manager.
package duplication

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/safee-analytics/odoo/internal/domain/shared"
)

// Status is the lifecycle state of a job
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether the job has finished
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// BusyMarker is the PostgreSQL error text raised when the template database
// still has sessions.
const BusyMarker = "is being accessed by other users"

var dbNameExpr = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidateDatabaseName rejects names Odoo would refuse or that could escape
// identifier quoting.
func ValidateDatabaseName(name string) error {
	if !dbNameExpr.MatchString(name) {
		return shared.NewInvalidInputError("Invalid database name: " + name)
	}
	return nil
}

// IsBusyError reports whether err is the retryable "database in use" failure
func IsBusyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), BusyMarker)
}

// Job is one duplication request
type Job struct {
	ID         uuid.UUID  `json:"job_id"`
	SourceDB   string     `json:"source_db"`
	NewDB      string     `json:"new_db"`
	Neutralize bool       `json:"neutralize"`
	Status     Status     `json:"status"`
	Attempts   int        `json:"attempts"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewJob validates the names and returns a pending job
func NewJob(source, target string, neutralize bool) (*Job, error) {
	if err := ValidateDatabaseName(source); err != nil {
		return nil, err
	}
	if err := ValidateDatabaseName(target); err != nil {
		return nil, err
	}
	if source == target {
		return nil, shared.NewInvalidInputError("source and target database must differ")
	}
	return &Job{
		ID:         uuid.New(),
		SourceDB:   source,
		NewDB:      target,
		Neutralize: neutralize,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Start moves a pending job to running
func (j *Job) Start() error {
	if j.Status != StatusPending {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "job already started")
	}
	now := time.Now().UTC()
	j.Status = StatusRunning
	j.StartedAt = &now
	return nil
}

// RecordAttempt counts one call to the duplication service
func (j *Job) RecordAttempt() {
	j.Attempts++
}

// Succeed finishes a running job
func (j *Job) Succeed() error {
	if j.Status != StatusRunning {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "job is not running")
	}
	now := time.Now().UTC()
	j.Status = StatusSucceeded
	j.Error = ""
	j.FinishedAt = &now
	return nil
}

// Fail finishes a job with an error. Pending jobs may fail before starting.
func (j *Job) Fail(cause error) error {
	if j.Status.IsTerminal() {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "job already finished")
	}
	now := time.Now().UTC()
	j.Status = StatusFailed
	if cause != nil {
		j.Error = cause.Error()
	}
	j.FinishedAt = &now
	return nil
}

// Duration returns how long the job ran, zero until it finished
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}

// Snapshot returns a copy safe to hand to other goroutines
func (j *Job) Snapshot() Job {
	c := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return c
}
