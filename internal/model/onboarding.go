package model

import (
	"encoding/json"
	"time"
)

// OnboardingSession is a stored questionnaire session. Snapshot holds the
// flattened answers as JSON and is never exposed over the API.
type OnboardingSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Snapshot  string    `json:"-"`
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
	ExpiresOn time.Time `json:"expires_on"`
}

// IsExpired reports whether the session outlived its TTL
func (s *OnboardingSession) IsExpired(now time.Time) bool {
	return !s.ExpiresOn.IsZero() && now.After(s.ExpiresOn)
}

// OnboardingState is the API view of a session's wizard state
type OnboardingState struct {
	SessionID            string         `json:"session_id"`
	CurrentStep          int            `json:"current_step"`
	TotalSteps           int            `json:"total_steps"`
	Completed            bool           `json:"completed"`
	CompletionPercentage int            `json:"completion_percentage"`
	CanAdvance           bool           `json:"can_advance"`
	Answers              map[string]any `json:"answers"` // keyed by step number
}

// AnswerRequest carries a raw answer; its shape depends on the step kind:
// a number, an object of category ratings, a string, or a list of strings.
type AnswerRequest struct {
	Value json.RawMessage `json:"value"`
}

// RatingRequest sets one category of a category-rating step
type RatingRequest struct {
	Rating int `json:"rating"`
}

// OnboardingProfile is a submitted questionnaire, flattened
type OnboardingProfile struct {
	ID          string         `json:"id,omitempty"`
	UserID      string         `json:"user_id"`
	Answers     map[string]any `json:"answers"`
	SubmittedOn time.Time      `json:"submitted_on"`
}

// SubmissionResult is returned once a questionnaire is accepted
type SubmissionResult struct {
	Profile  *OnboardingProfile `json:"profile"`
	Redirect string             `json:"redirect"`
}
