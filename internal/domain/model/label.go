package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Label is a user-defined tag applied to samples for filtering.
type Label struct {
	ID          int64     `json:"id"          db:"id"`
	Name        string    `json:"name"        db:"name"`
	Color       string    `json:"color"       db:"color"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at"  db:"created_at"`
}

var labelColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// CreateLabelRequest is the payload for creating a label.
type CreateLabelRequest struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// Validate validates the CreateLabelRequest fields.
func (r CreateLabelRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if !labelColorPattern.MatchString(r.Color) {
		return fmt.Errorf("invalid color %q, expected #RRGGBB", r.Color)
	}
	return nil
}

// UpdateLabelRequest is the payload for a partial label update. Nil fields
// leave the current value unchanged.
type UpdateLabelRequest struct {
	Name        *string `json:"name,omitempty"`
	Color       *string `json:"color,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Validate validates the UpdateLabelRequest fields.
func (r UpdateLabelRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return errors.New("name must not be empty")
	}
	if r.Color != nil && !labelColorPattern.MatchString(*r.Color) {
		return fmt.Errorf("invalid color %q, expected #RRGGBB", *r.Color)
	}
	return nil
}

// IsZero reports whether the update changes nothing.
func (r UpdateLabelRequest) IsZero() bool {
	return r.Name == nil && r.Color == nil && r.Description == nil
}
