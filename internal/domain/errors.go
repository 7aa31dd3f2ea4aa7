package domain

import "errors"

// Common errors used throughout the application.
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrNoTargets            = errors.New("no valid targets found")
	ErrPreconditionFailed   = errors.New("precondition failed")
)

// APIError is the JSON error body returned by the targets API.
type APIError struct {
	Message string `json:"error"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// MessageResponse is the JSON body of mutations that return no entity.
type MessageResponse struct {
	Message string `json:"message"`
}
