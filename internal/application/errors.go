package application

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/salon-scheduler/internal/persistence"
)

var (
	// ErrUnauthorized is returned when the caller has no valid staff session.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidTransition is returned for a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("application: invalid status transition")
	// ErrSlotTaken is returned when another booking claimed the slot first.
	ErrSlotTaken = errors.New("application: slot already taken")
	// ErrInvalidCredentials is returned when email or password do not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned for sessions past their expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned for sessions revoked by logout.
	ErrSessionRevoked = errors.New("application: session revoked")
	// ErrAccountDisabled is returned when a disabled staff user signs in.
	ErrAccountDisabled = errors.New("application: account disabled")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func newValidationError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

// DataStoreError wraps a failure of the backing store.
type DataStoreError struct {
	Op  string
	Err error
}

func (e *DataStoreError) Error() string {
	return fmt.Sprintf("application: data store %s: %v", e.Op, e.Err)
}

func (e *DataStoreError) Unwrap() error {
	return e.Err
}

// NotificationError wraps a failed hand-off to the notification transport.
// It is logged, never returned to callers.
type NotificationError struct {
	Kind string
	Err  error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("application: notification %s: %v", e.Kind, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// ConflictError lists the bookings a reschedule would collide with.
type ConflictError struct {
	Conflicts []AppointmentConflict
}

func (e *ConflictError) Error() string {
	ids := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		ids = append(ids, c.AppointmentID)
	}
	return "application: schedule conflicts with " + strings.Join(ids, ", ")
}

// mapStoreError translates persistence failures into application errors.
func mapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isNotFoundError(err):
		return ErrNotFound
	case errors.Is(err, persistence.ErrOverlap), errors.Is(err, ErrSlotTaken):
		return ErrSlotTaken
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		return newValidationError("time", "o término deve ser posterior ao início")
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return newValidationError("reference", "registro relacionado não encontrado")
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return err
	}
	return &DataStoreError{Op: op, Err: err}
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
