package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Workflow error taxonomy. Every engine failure maps to one of these codes so
// calling UIs can render both a generic fallback and the precise reason.
var (
	ErrRequestNotFound          = New("REQUEST_NOT_FOUND", http.StatusNotFound, "request not found")
	ErrActorNotFound            = New("ACTOR_NOT_FOUND", http.StatusNotFound, "actor not found")
	ErrActorInactive            = New("ACTOR_INACTIVE", http.StatusForbidden, "actor account is inactive")
	ErrInvalidState             = New("INVALID_STATE", http.StatusConflict, "request is not in a validatable state")
	ErrUnauthorized             = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden                = New("FORBIDDEN", http.StatusForbidden, "not allowed to act on this request")
	ErrAlreadyValidated         = New("ALREADY_VALIDATED", http.StatusConflict, "this role has already validated the request")
	ErrRejectionCommentRequired = New("REJECTION_COMMENT_REQUIRED", http.StatusBadRequest, "a rejection reason is mandatory")
	ErrAlreadySubmitted         = New("ALREADY_SUBMITTED", http.StatusConflict, "request has already been submitted")
	ErrNotOwner                 = New("NOT_OWNER", http.StatusForbidden, "only the creator may perform this action")
	ErrNoSupervisingDirector    = New("NO_SUPERVISING_DIRECTOR", http.StatusUnprocessableEntity, "creator has no supervising director assigned")
	ErrValidation               = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal                 = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	// ErrStoreUnavailable is the only retryable class: the store failed and
	// no mutation was applied.
	ErrStoreUnavailable = New("STORE_UNAVAILABLE", http.StatusServiceUnavailable, "storage temporarily unavailable, retry later")
	ErrCacheMiss        = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Is reports whether err carries the same code as target, regardless of the
// message override applied via Clone.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}
