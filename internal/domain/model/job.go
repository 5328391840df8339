// Package model defines the core data types and structures used throughout the seqdepot system.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobWorkflow represents the workflow a job runs.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobWorkflow string

// JobState represents the current state of a job.
type JobState string

const (
	// JobWorkflowCreateSample represents a sample creation workflow.
	JobWorkflowCreateSample JobWorkflow = "create_sample"
	// JobWorkflowCreateSubtraction represents a subtraction creation workflow.
	JobWorkflowCreateSubtraction JobWorkflow = "create_subtraction"
	// JobWorkflowBuildIndex represents a reference index build workflow.
	JobWorkflowBuildIndex JobWorkflow = "build_index"
	// JobWorkflowPathoscope represents a pathoscope analysis workflow.
	JobWorkflowPathoscope JobWorkflow = "pathoscope"
	// JobWorkflowNuVs represents a novel virus detection workflow.
	JobWorkflowNuVs JobWorkflow = "nuvs"

	// JobStateWaiting indicates a job is waiting to be acquired by a worker.
	JobStateWaiting JobState = "waiting"
	// JobStateRunning indicates a job is currently held by a worker.
	JobStateRunning JobState = "running"
	// JobStateComplete indicates a job finished successfully.
	JobStateComplete JobState = "complete"
	// JobStateFailed indicates a job failed to complete.
	JobStateFailed JobState = "failed"
	// JobStateCancelled indicates a job was cancelled before completion.
	JobStateCancelled JobState = "cancelled"
	// JobStateTimeout indicates a running job's lease expired without a ping.
	JobStateTimeout JobState = "timeout"
)

// UnmarshalText implements encoding.TextUnmarshaler for JobWorkflow.
func (w *JobWorkflow) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	jw := JobWorkflow(v)
	if jw.Valid() {
		*w = jw
		return nil
	}
	return fmt.Errorf("invalid JobWorkflow: %q", v)
}

// ErrNoJobsAvailable is returned when no jobs are available for acquisition.
var ErrNoJobsAvailable = errors.New("no jobs available")

// Valid returns true if the JobWorkflow is valid.
func (w JobWorkflow) Valid() bool {
	return w == JobWorkflowCreateSample || w == JobWorkflowCreateSubtraction ||
		w == JobWorkflowBuildIndex || w == JobWorkflowPathoscope || w == JobWorkflowNuVs
}

// Valid returns true if the JobState is valid.
func (s JobState) Valid() bool {
	switch s {
	case JobStateWaiting, JobStateRunning, JobStateComplete, JobStateFailed,
		JobStateCancelled, JobStateTimeout:
		return true
	}
	return false
}

// Terminal returns true once a job can no longer change state.
func (s JobState) Terminal() bool {
	return s == JobStateComplete || s == JobStateFailed ||
		s == JobStateCancelled || s == JobStateTimeout
}

// Job represents a workflow job with its metadata and state information.
type Job struct {
	ID             string          `json:"id"                         db:"id"`
	Workflow       JobWorkflow     `json:"workflow"                   db:"workflow"`
	State          JobState        `json:"state"                      db:"state"`
	Progress       int             `json:"progress"                   db:"progress"`
	Stage          *string         `json:"stage,omitempty"            db:"stage"`
	Args           json.RawMessage `json:"args"                       db:"args"`
	UserID         string          `json:"user_id"                    db:"user_id"`
	RetryCount     int             `json:"retry_count"                db:"retry_count"`
	MaxRetries     int             `json:"max_retries"                db:"max_retries"`
	LastError      *string         `json:"last_error,omitempty"       db:"last_error"`
	StartedAt      *time.Time      `json:"started_at,omitempty"       db:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"     db:"completed_at"`
	LeaseExpiresAt *time.Time      `json:"lease_expires_at,omitempty" db:"lease_expires_at"`
	CreatedAt      time.Time       `json:"created_at"                 db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"                 db:"updated_at"`
}

// CreateJobRequest represents a request to enqueue a new workflow job.
type CreateJobRequest struct {
	Workflow   JobWorkflow     `json:"workflow"`
	Args       json.RawMessage `json:"args"`
	MaxRetries int             `json:"max_retries"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if !r.Workflow.Valid() {
		return errors.New("invalid workflow")
	}
	if len(r.Args) == 0 {
		return errors.New("args is required")
	}
	if r.MaxRetries < 0 {
		return errors.New("max retries must be >= 0")
	}
	return nil
}

// JobProgressRequest is sent by a worker to report workflow progress while
// renewing its lease.
type JobProgressRequest struct {
	Progress int     `json:"progress"`
	Stage    *string `json:"stage,omitempty"`
}

// Validate validates the JobProgressRequest fields.
func (r *JobProgressRequest) Validate() error {
	if r.Progress < 0 || r.Progress > 100 {
		return errors.New("progress must be between 0 and 100")
	}
	return nil
}

// JobStats represents counts of jobs in each state.
type JobStats struct {
	Waiting   int `json:"waiting"`
	Running   int `json:"running"`
	Complete  int `json:"complete"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}
