package service

import "errors"

// Centralized service layer errors.
// Handlers map these to problem details in handler.MapServiceError; wizard
// errors pass through unwrapped and are mapped there too.

// ===== Session Errors =====
var (
	ErrSessionNotFound  = errors.New("onboarding session not found")
	ErrSessionForbidden = errors.New("onboarding session belongs to another user")
)

// ===== Submission Errors =====
var (
	ErrSubmissionFailed     = errors.New("profile submission failed")
	ErrSubmissionInProgress = errors.New("a submission for this session is already in progress")
	ErrProfileNotFound      = errors.New("onboarding profile not found")
)
