package core

import (
	"context"
	"time"

	"github.com/seqdepot/seqdepot/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByHandle(ctx context.Context, handle string) (*model.User, error)
	GetByRemoteID(ctx context.Context, remoteID string) (*model.User, error)
	List(ctx context.Context, limit, offset int) ([]*model.User, error)
	// Update applies the set fields of the partial update to the stored
	// user and returns the updated document.
	Update(ctx context.Context, id string, update model.UserUpdate) (*model.User, error)
	Delete(ctx context.Context, id string) (bool, error)
	// HandleExists reports whether any user has the given handle.
	HandleExists(ctx context.Context, handle string) (bool, error)
	// ListByGroup returns every user holding the given group membership.
	ListByGroup(ctx context.Context, groupID string) ([]*model.User, error)
}

// GroupRepository defines the interface for group data operations.
type GroupRepository interface {
	Create(ctx context.Context, req model.CreateGroupRequest) (*model.Group, error)
	GetByID(ctx context.Context, id string) (*model.Group, error)
	// GetByIDs returns the groups found for the given ids. Missing ids are
	// simply absent from the result; the caller decides whether that is an
	// error.
	GetByIDs(ctx context.Context, ids []string) ([]*model.Group, error)
	List(ctx context.Context) ([]*model.Group, error)
	Update(ctx context.Context, id string, req model.UpdateGroupRequest) (*model.Group, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// KeyRepository defines the interface for API key data operations.
type KeyRepository interface {
	Create(ctx context.Context, key *model.Key) (*model.Key, error)
	GetByID(ctx context.Context, id string) (*model.Key, error)
	// GetBySecret resolves a key by the digest of its bearer value.
	GetBySecret(ctx context.Context, secret []byte) (*model.Key, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Key, error)
	// CountByPrefix returns how many of the user's keys share a name prefix,
	// used to number keys with duplicate names.
	CountByPrefix(ctx context.Context, userID, prefix string) (int, error)
	SetPermissions(ctx context.Context, id string, permissions model.PermissionSet) (*model.Key, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteByUser(ctx context.Context, userID string) (int, error)
	// UpdateAuthorizationForUser rewrites the authorization snapshot on
	// every key owned by the user. Snapshot permissions follow the ratchet
	// rule: a key permission is removed when the user loses it but never
	// added. Returns the number of keys updated.
	UpdateAuthorizationForUser(ctx context.Context, userID string, update model.AuthorizationUpdate) (int, error)
}

// UploadRepository defines the interface for upload data operations.
type UploadRepository interface {
	Create(ctx context.Context, upload *model.Upload) (*model.Upload, error)
	GetByID(ctx context.Context, id int64) (*model.Upload, error)
	// Finalize records the byte size and marks the upload ready.
	Finalize(ctx context.Context, id int64, size int64) (*model.Upload, error)
	// Find lists uploads that are ready and not removed, optionally
	// filtered by type and user.
	Find(ctx context.Context, opts model.UploadListOptions) ([]*model.Upload, error)
	// SetRemoved soft-deletes the upload and returns it for file cleanup.
	SetRemoved(ctx context.Context, id int64) (*model.Upload, error)
	Reserve(ctx context.Context, ids []int64) error
	Release(ctx context.Context, ids []int64) error
}

// CacheRepository defines the interface for cache data operations.
type CacheRepository interface {
	GetByID(ctx context.Context, id string) (*model.Cache, error)
	GetBySampleAndKey(ctx context.Context, sampleID, key string) (*model.Cache, error)
	ListBySample(ctx context.Context, sampleID string) ([]*model.Cache, error)
	SetMissing(ctx context.Context, id string) (int, error)
	// EnsureMissingFlag backfills missing=false on rows created before the
	// column existed. Idempotent; returns the number of rows touched.
	EnsureMissingFlag(ctx context.Context) (int64, error)
	// RenameHashField rewrites legacy rows whose trimming fingerprint is
	// stored under "hash" instead of "key". Idempotent; returns the number
	// of rows touched.
	RenameHashField(ctx context.Context) (int64, error)
}

// JobRepository defines the interface for workflow job data operations.
type JobRepository interface {
	Create(ctx context.Context, req *model.CreateJobRequest, userID string) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context, opts *model.JobListOptions) ([]*model.Job, error)
	// AcquireNext leases the oldest waiting job of one of the given
	// workflows to a worker. Returns model.ErrNoJobsAvailable when none is
	// waiting.
	AcquireNext(ctx context.Context, workflows []model.JobWorkflow, leaseSeconds int) (*model.Job, error)
	// Ping renews the worker lease and records progress. Returns false if
	// the job is no longer running.
	Ping(ctx context.Context, id string, req model.JobProgressRequest) (bool, error)
	Complete(ctx context.Context, id string) (bool, error)
	Fail(ctx context.Context, id, errMsg string) (bool, error)
	Cancel(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context) (*model.JobStats, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// LabelRepository defines the interface for label data operations.
type LabelRepository interface {
	Create(ctx context.Context, req model.CreateLabelRequest) (*model.Label, error)
	GetByID(ctx context.Context, id int64) (*model.Label, error)
	List(ctx context.Context) ([]*model.Label, error)
	Update(ctx context.Context, id int64, req model.UpdateLabelRequest) (*model.Label, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// WebhookSinkRepository defines the interface for webhook sink data operations.
type WebhookSinkRepository interface {
	Create(ctx context.Context, req *model.CreateWebhookSinkRequest) (*model.WebhookSink, error)
	GetByID(ctx context.Context, id string) (*model.WebhookSink, error)
	List(ctx context.Context) ([]*model.WebhookSink, error)
	ListEnabled(ctx context.Context) ([]*model.WebhookSink, error)
	Update(ctx context.Context, id string, req *model.UpdateWebhookSinkRequest) (*model.WebhookSink, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// DeleteOldJobsParams groups parameters for DeleteOldJobs to keep param count ≤3.
type DeleteOldJobsParams struct {
	State     model.JobState
	MaxAge    time.Duration
	BatchSize int
}

// AbandonedUpload identifies a deleted upload row so the caller can unlink
// its file on disk.
type AbandonedUpload struct {
	ID         int64
	NameOnDisk string
}

// ReaperRepository defines the interface for background cleanup operations.
type ReaperRepository interface {
	// TimeOutExpiredLeases marks running jobs whose lease has lapsed as
	// timed out. Processes up to batchSize jobs per call. Returns the
	// number of jobs transitioned.
	TimeOutExpiredLeases(ctx context.Context, batchSize int) (int64, error)

	// DeleteOldJobs deletes jobs in the given terminal state older than
	// MaxAge. Processes up to BatchSize jobs per call to prevent long
	// locks. Returns the number of jobs deleted.
	DeleteOldJobs(ctx context.Context, params DeleteOldJobsParams) (int64, error)

	// DeleteAbandonedUploads deletes upload rows that were never finalized
	// and are older than maxAge. Returns the deleted uploads for file
	// cleanup.
	DeleteAbandonedUploads(ctx context.Context, maxAge time.Duration, batchSize int) ([]AbandonedUpload, error)
}
