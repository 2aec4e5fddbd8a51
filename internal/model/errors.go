package model

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorCode represents API error codes
type ErrorCode int

const (
	// Authentication errors (1xxx)
	ErrCodeUnauthorized ErrorCode = 1001
	ErrCodeTokenExpired ErrorCode = 1002

	// Authorization errors (2xxx)
	ErrCodeForbidden ErrorCode = 2001

	// Resource errors (3xxx)
	ErrCodeNotFound ErrorCode = 3001
	ErrCodeConflict ErrorCode = 3003

	// Validation errors (4xxx)
	ErrCodeValidation    ErrorCode = 4001
	ErrCodeInvalidInput  ErrorCode = 4002
	ErrCodeLimitExceeded ErrorCode = 4003
	ErrCodeIncomplete    ErrorCode = 4004

	// Internal errors (5xxx)
	ErrCodeInternal    ErrorCode = 5001
	ErrCodeDatabase    ErrorCode = 5002
	ErrCodeExternalAPI ErrorCode = 5003
)

const problemTypeBase = "https://onboarding.saga.forgo.software/errors/"

// ProblemDetails represents RFC 9457 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
	// Extension fields
	Code  ErrorCode `json:"code,omitempty"`
	Limit *int      `json:"limit,omitempty"`
}

// FieldError represents a validation error on a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface
func (p *ProblemDetails) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

// WriteJSON writes the problem details as JSON response
func (p *ProblemDetails) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func NewUnauthorizedError(detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + "unauthorized",
		Title:  "Unauthorized",
		Status: http.StatusUnauthorized,
		Detail: detail,
		Code:   ErrCodeUnauthorized,
	}
}

func NewForbiddenError(detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + "forbidden",
		Title:  "Forbidden",
		Status: http.StatusForbidden,
		Detail: detail,
		Code:   ErrCodeForbidden,
	}
}

func NewNotFoundError(resource string) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + "not-found",
		Title:  "Not Found",
		Status: http.StatusNotFound,
		Detail: fmt.Sprintf("%s not found", resource),
		Code:   ErrCodeNotFound,
	}
}

func NewBadRequestError(detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + "bad-request",
		Title:  "Bad Request",
		Status: http.StatusBadRequest,
		Detail: detail,
		Code:   ErrCodeInvalidInput,
	}
}

func NewValidationError(detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + "validation",
		Title:  "Validation Error",
		Status: http.StatusUnprocessableEntity,
		Detail: detail,
		Code:   ErrCodeValidation,
	}
}

// NewIncompleteError reports every missing or invalid questionnaire field
// in one problem. Detail is a single user-facing sentence; Errors lists the
// fields for clients that want them.
func NewIncompleteError(missing []string, invalid ...string) *ProblemDetails {
	errs := make([]FieldError, 0, len(missing)+len(invalid))
	for _, f := range missing {
		errs = append(errs, FieldError{Field: f, Message: "required"})
	}
	for _, f := range invalid {
		errs = append(errs, FieldError{Field: f, Message: "invalid"})
	}
	return &ProblemDetails{
		Type:   problemTypeBase + "incomplete",
		Title:  "Questionnaire Incomplete",
		Status: http.StatusUnprocessableEntity,
		Detail: "Please answer every question before submitting.",
		Code:   ErrCodeIncomplete,
		Errors: errs,
	}
}

func NewLimitExceededError(detail string, limit int) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + "limit-exceeded",
		Title:  "Limit Exceeded",
		Status: http.StatusUnprocessableEntity,
		Detail: detail,
		Code:   ErrCodeLimitExceeded,
		Limit:  &limit,
	}
}

func NewConflictError(detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + "conflict",
		Title:  "Conflict",
		Status: http.StatusConflict,
		Detail: detail,
		Code:   ErrCodeConflict,
	}
}

func NewBadGatewayError(detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + "submission-failed",
		Title:  "Submission Failed",
		Status: http.StatusBadGateway,
		Detail: detail,
		Code:   ErrCodeExternalAPI,
	}
}

func NewInternalError(detail string) *ProblemDetails {
	if detail == "" {
		detail = "An unexpected error occurred"
	}
	return &ProblemDetails{
		Type:   problemTypeBase + "internal",
		Title:  "Internal Server Error",
		Status: http.StatusInternalServerError,
		Detail: detail,
		Code:   ErrCodeInternal,
	}
}

func NewRateLimitError(retryAfter int) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + "rate-limited",
		Title:  "Too Many Requests",
		Status: http.StatusTooManyRequests,
		Detail: fmt.Sprintf("Rate limit exceeded. Retry after %d seconds", retryAfter),
	}
}
