package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// UploadType categorizes what an uploaded file is used for.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type UploadType string

const (
	// UploadTypeReads represents raw sequencing read files.
	UploadTypeReads UploadType = "reads"
	// UploadTypeReference represents reference data imports.
	UploadTypeReference UploadType = "reference"
	// UploadTypeSubtraction represents host subtraction FASTA files.
	UploadTypeSubtraction UploadType = "subtraction"
	// UploadTypeHMM represents profile HMM data files.
	UploadTypeHMM UploadType = "hmm"
)

// Valid returns true if the UploadType is valid.
func (t UploadType) Valid() bool {
	return t == UploadTypeReads || t == UploadTypeReference ||
		t == UploadTypeSubtraction || t == UploadTypeHMM
}

// UnmarshalText implements encoding.TextUnmarshaler for UploadType.
func (t *UploadType) UnmarshalText(text []byte) error {
	v := UploadType(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid UploadType: %q", string(text))
	}
	*t = v
	return nil
}

// Upload is a file uploaded into the instance's data directory.
//
// NameOnDisk is "<id>-<name>" so uploads with the same client name never
// collide. Ready flips to true only after the byte stream has been fully
// written; unfinished uploads are invisible to listing. Removed is a soft
// delete so workflow references stay resolvable.
type Upload struct {
	ID         int64      `json:"id"                    db:"id"`
	Name       string     `json:"name"                  db:"name"`
	NameOnDisk string     `json:"name_on_disk"          db:"name_on_disk"`
	Type       UploadType `json:"type"                  db:"type"`
	Size       *int64     `json:"size,omitempty"        db:"size"`
	UserID     string     `json:"user_id"               db:"user_id"`
	Ready      bool       `json:"ready"                 db:"ready"`
	Reserved   bool       `json:"reserved"              db:"reserved"`
	Removed    bool       `json:"removed"               db:"removed"`
	RemovedAt  *time.Time `json:"removed_at,omitempty"  db:"removed_at"`
	UploadedAt *time.Time `json:"uploaded_at,omitempty" db:"uploaded_at"`
	CreatedAt  time.Time  `json:"created_at"            db:"created_at"`
}

// CreateUploadRequest opens a new upload record before bytes are streamed.
type CreateUploadRequest struct {
	Name string     `json:"name"`
	Type UploadType `json:"type"`
}

// Validate validates the CreateUploadRequest fields.
func (r CreateUploadRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if strings.ContainsAny(r.Name, "/\\") {
		return errors.New("name must not contain path separators")
	}
	if !r.Type.Valid() {
		return fmt.Errorf("invalid upload type %q", r.Type)
	}
	return nil
}

// UploadNameOnDisk derives the collision-free stored filename for an upload.
func UploadNameOnDisk(id int64, name string) string {
	return fmt.Sprintf("%d-%s", id, name)
}
