package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateJobRequestValidate(t *testing.T) {
	req := CreateJobRequest{
		Workflow: JobWorkflowCreateSample,
		Args:     json.RawMessage(`{"sample_id":"abc123"}`),
	}
	assert.NoError(t, req.Validate())

	req.Workflow = JobWorkflow("bogus")
	assert.Error(t, req.Validate())

	req.Workflow = JobWorkflowPathoscope
	req.Args = nil
	assert.Error(t, req.Validate())

	req.Args = json.RawMessage(`{}`)
	req.MaxRetries = -1
	assert.Error(t, req.Validate())
}

func TestJobWorkflowUnmarshalText(t *testing.T) {
	var w JobWorkflow
	assert.NoError(t, w.UnmarshalText([]byte(" NuVs ")))
	assert.Equal(t, JobWorkflowNuVs, w)

	assert.Error(t, w.UnmarshalText([]byte("spreadsheet")))
}

func TestJobStateTerminal(t *testing.T) {
	assert.False(t, JobStateWaiting.Terminal())
	assert.False(t, JobStateRunning.Terminal())
	assert.True(t, JobStateComplete.Terminal())
	assert.True(t, JobStateFailed.Terminal())
	assert.True(t, JobStateCancelled.Terminal())
	assert.True(t, JobStateTimeout.Terminal())
}

func TestJobProgressRequestValidate(t *testing.T) {
	req := JobProgressRequest{Progress: 50}
	assert.NoError(t, req.Validate())

	req.Progress = 101
	assert.Error(t, req.Validate())
}
