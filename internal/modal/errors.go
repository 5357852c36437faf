package modal

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrOperationInProgress is returned when a mutation is attempted on a modal
// that already has one pending.
var ErrOperationInProgress = errors.New("another change to this modal is still in progress")

// ErrNoInstance is returned when an operation needs a backend instance and
// none has been selected.
var ErrNoInstance = errors.New("no backend instance selected")

// FieldErrors maps a field path such as "theme.primaryColor" to a message.
type FieldErrors map[string]string

// Keys returns the field paths in sorted order.
func (fe FieldErrors) Keys() []string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidationError is a field-scoped, client-side failure. It never reaches
// the backend.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, k := range e.Fields.Keys() {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// LoadError is a failed read. Previously loaded data stays available.
type LoadError struct {
	Op  string
	Err error
}

func (e *LoadError) Error() string { return fmt.Sprintf("failed to %s: %v", e.Op, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// SaveError is a failed create or update. Nothing was committed locally.
type SaveError struct {
	Op      string
	ModalID string
	Err     error
}

func (e *SaveError) Error() string {
	if e.ModalID == "" {
		return fmt.Sprintf("failed to %s modal: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to %s modal %s: %v", e.Op, e.ModalID, e.Err)
}
func (e *SaveError) Unwrap() error { return e.Err }

type NotFoundError struct {
	ModalID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("modal %q not found", e.ModalID) }

type ToggleError struct {
	ModalID string
	Err     error
}

func (e *ToggleError) Error() string {
	return fmt.Sprintf("failed to change status of modal %s: %v", e.ModalID, e.Err)
}
func (e *ToggleError) Unwrap() error { return e.Err }

type DeleteError struct {
	ModalID string
	Err     error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("failed to delete modal %s: %v", e.ModalID, e.Err)
}
func (e *DeleteError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// AsValidation extracts a ValidationError from err.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
