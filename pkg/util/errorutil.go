package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by the bot and the ops API.
const (
	CodeConfigInvalid         = "CONFIG_INVALID"
	CodeContextViolation      = "CONTEXT_VIOLATION"
	CodeForbidden             = "FORBIDDEN"
	CodeTransitionUnavailable = "TRANSITION_UNAVAILABLE"
	CodeRequesterNotFound     = "REQUESTER_NOT_FOUND"
	CodeSideEffectFailed      = "SIDE_EFFECT_FAILED"
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeNotFound              = "NOT_FOUND"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeInternal              = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewConfigError(message string, details map[string]any) error {
	return NewDomainError(CodeConfigInvalid, message, http.StatusInternalServerError, details)
}

// NewContextViolation rejects a command issued in the wrong channel.
func NewContextViolation(message string) error {
	return NewDomainError(CodeContextViolation, message, http.StatusBadRequest, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

// NewTransitionUnavailable rejects an event the current state does not accept.
func NewTransitionUnavailable(message string, details map[string]any) error {
	return NewDomainError(CodeTransitionUnavailable, message, http.StatusConflict, details)
}

func NewRequesterNotFound(message string) error {
	return NewDomainError(CodeRequesterNotFound, message, http.StatusUnprocessableEntity, nil)
}

// NewSideEffectFailed wraps a platform failure that happened after a transition was decided.
func NewSideEffectFailed(message string, err error) error {
	return &DomainError{
		Code:       CodeSideEffectFailed,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
