package model

// JobListOptions groups parameters for listing jobs with optional filters.
type JobListOptions struct {
	State    *JobState    // Optional filter by state (waiting, running, complete, failed, cancelled, timeout)
	Workflow *JobWorkflow // Optional filter by workflow
	UserID   *string      // Optional filter by the creating user
	Limit    int          // Pagination limit
	Offset   int          // Pagination offset
}

// UploadListOptions groups parameters for listing uploads with optional filters.
// Only ready, non-removed uploads are listed.
type UploadListOptions struct {
	Type   *UploadType // Optional filter by upload type
	UserID *string     // Optional filter by the uploading user
	Limit  int         // Pagination limit
	Offset int         // Pagination offset
}
