// Package model defines the API-facing data structures of the onboarding
// service.
//
// # Entities
//
//   - OnboardingSession: a stored questionnaire session owned by one user
//   - OnboardingState: the wizard state returned by every session endpoint
//   - OnboardingProfile: a submitted, flattened questionnaire
//
// The questionnaire engine itself lives in internal/wizard; this package
// only carries what crosses the HTTP and storage boundaries.
//
// # Error Types
//
// RFC 9457 Problem Details errors are defined in errors.go:
//
//	type ProblemDetails struct {
//	    Type    string    `json:"type"`
//	    Title   string    `json:"title"`
//	    Status  int       `json:"status"`
//	    Detail  string    `json:"detail"`
//	}
//
// A submission with unanswered questions is reported as one problem
// (NewIncompleteError) with a single detail sentence and a per-field list.
package model
