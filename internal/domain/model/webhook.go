package model

import (
	"errors"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	jmespath "github.com/jmespath-community/go-jmespath"
)

const (
	// Webhook sink name constraints.
	minWebhookNameLen = 3
	maxWebhookNameLen = 512
	maxWebhookURILen  = 1024
)

// WebhookSink is an outbound HTTP notification target for job state changes.
//
// Filter is an optional JMESPath expression evaluated against the job event
// payload; when it yields a falsy result the delivery is skipped.
type WebhookSink struct {
	ID        string    `json:"id"               db:"id"`
	Name      string    `json:"name"             db:"name"`
	URI       string    `json:"uri"              db:"uri"`
	Method    string    `json:"method"           db:"method"`
	Filter    *string   `json:"filter,omitempty" db:"filter"`
	Token     *string   `json:"-"                db:"-"`
	OkStatus  int       `json:"ok_status"        db:"ok_status"`
	Retry     int       `json:"retry"            db:"retry"`
	Enabled   bool      `json:"enabled"          db:"enabled"`
	CreatedAt time.Time `json:"created_at"       db:"created_at"`
}

// CreateWebhookSinkRequest represents a request to create a new webhook sink.
type CreateWebhookSinkRequest struct {
	Name     string  `json:"name"`
	URI      string  `json:"uri"`
	Method   string  `json:"method"`
	Filter   *string `json:"filter,omitempty"`
	Token    *string `json:"token,omitempty"`
	OkStatus *int    `json:"ok_status,omitempty"`
	Retry    *int    `json:"retry,omitempty"`
	Enabled  *bool   `json:"enabled,omitempty"`
}

// UpdateWebhookSinkRequest represents a request to update an existing webhook sink.
type UpdateWebhookSinkRequest struct {
	Name     *string `json:"name,omitempty"`
	URI      *string `json:"uri,omitempty"`
	Method   *string `json:"method,omitempty"`
	Filter   *string `json:"filter,omitempty"`
	Token    *string `json:"token,omitempty"`
	OkStatus *int    `json:"ok_status,omitempty"`
	Retry    *int    `json:"retry,omitempty"`
	Enabled  *bool   `json:"enabled,omitempty"`
}

// Normalize normalizes the CreateWebhookSinkRequest fields.
func (r *CreateWebhookSinkRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.URI = strings.TrimSpace(r.URI)
	r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
}

// Validate validates the CreateWebhookSinkRequest fields.
func (r *CreateWebhookSinkRequest) Validate() error {
	if err := validateWebhookName(r.Name); err != nil {
		return err
	}
	if err := validateWebhookURI(r.URI); err != nil {
		return err
	}
	if err := validateWebhookMethod(r.Method); err != nil {
		return err
	}
	if err := validateWebhookFilter(r.Filter); err != nil {
		return err
	}
	if err := validateWebhookOkStatus(r.OkStatus); err != nil {
		return err
	}
	return validateWebhookRetry(r.Retry)
}

// Normalize normalizes the UpdateWebhookSinkRequest fields.
func (r *UpdateWebhookSinkRequest) Normalize() {
	if r.Name != nil {
		n := strings.TrimSpace(*r.Name)
		r.Name = &n
	}
	if r.URI != nil {
		u := strings.TrimSpace(*r.URI)
		r.URI = &u
	}
	if r.Method != nil {
		m := strings.ToUpper(strings.TrimSpace(*r.Method))
		r.Method = &m
	}
}

// Validate validates the UpdateWebhookSinkRequest fields and ensures at
// least one field is being updated.
func (r *UpdateWebhookSinkRequest) Validate() error {
	if !r.HasUpdates() {
		return errors.New("at least one field must be updated")
	}
	if r.Name != nil {
		if err := validateWebhookName(*r.Name); err != nil {
			return err
		}
	}
	if r.URI != nil {
		if err := validateWebhookURI(*r.URI); err != nil {
			return err
		}
	}
	if r.Method != nil {
		if err := validateWebhookMethod(*r.Method); err != nil {
			return err
		}
	}
	if err := validateWebhookFilter(r.Filter); err != nil {
		return err
	}
	if err := validateWebhookOkStatus(r.OkStatus); err != nil {
		return err
	}
	return validateWebhookRetry(r.Retry)
}

// HasUpdates returns true if the UpdateWebhookSinkRequest has any fields to update.
func (r *UpdateWebhookSinkRequest) HasUpdates() bool {
	return r.Name != nil || r.URI != nil || r.Method != nil ||
		r.Filter != nil || r.Token != nil || r.OkStatus != nil ||
		r.Retry != nil || r.Enabled != nil
}

// validateWebhookName validates the name field.
func validateWebhookName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.New("name is required and cannot be empty")
	}

	nameLen := utf8.RuneCountInString(trimmed)
	if nameLen < minWebhookNameLen {
		return errors.New("name must be at least 3 characters")
	}
	if nameLen > maxWebhookNameLen {
		return errors.New("name cannot exceed 512 characters")
	}

	return nil
}

// validateWebhookURI validates the URI field.
func validateWebhookURI(uri string) error {
	trimmed := strings.TrimSpace(uri)
	if trimmed == "" {
		return errors.New("uri is required and cannot be empty")
	}

	if utf8.RuneCountInString(trimmed) > maxWebhookURILen {
		return errors.New("uri cannot exceed 1024 characters")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return errors.New("uri must be a valid URL")
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("uri must use http or https scheme")
	}

	if parsed.Host == "" {
		return errors.New("uri must have a valid host")
	}

	return nil
}

// validateWebhookMethod validates the HTTP method field.
func validateWebhookMethod(method string) error {
	trimmed := strings.TrimSpace(strings.ToUpper(method))
	if trimmed == "" {
		return errors.New("method is required and cannot be empty")
	}

	switch trimmed {
	case "GET", "POST", "PUT", "PATCH", "DELETE":
		return nil
	default:
		return errors.New("method must be one of: GET, POST, PUT, PATCH, DELETE")
	}
}

// validateWebhookFilter compiles the JMESPath filter expression if set.
func validateWebhookFilter(filter *string) error {
	if filter == nil || strings.TrimSpace(*filter) == "" {
		return nil
	}
	if _, err := jmespath.Compile(*filter); err != nil {
		return errors.New("filter must be a valid JMESPath expression")
	}
	return nil
}

// validateWebhookOkStatus validates the ok_status field.
func validateWebhookOkStatus(okStatus *int) error {
	if okStatus != nil && (*okStatus < 100 || *okStatus > 599) {
		return errors.New("ok_status must be between 100 and 599")
	}
	return nil
}

// validateWebhookRetry validates the retry field.
func validateWebhookRetry(retry *int) error {
	if retry != nil && *retry < 0 {
		return errors.New("retry must be non-negative")
	}
	return nil
}
