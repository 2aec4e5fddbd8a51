package model

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ============================================================================
// Error() Interface Tests
// ============================================================================

func TestProblemDetails_Error_ReturnsFormattedMessage(t *testing.T) {
	t.Parallel()

	pd := &ProblemDetails{
		Status: http.StatusNotFound,
		Title:  "Not Found",
		Detail: "onboarding session not found",
	}

	errMsg := pd.Error()

	for _, want := range []string{"404", "Not Found", "onboarding session not found"} {
		if !strings.Contains(errMsg, want) {
			t.Errorf("error message should contain %q, got: %s", want, errMsg)
		}
	}
}

// ============================================================================
// WriteJSON Tests
// ============================================================================

func TestProblemDetails_WriteJSON(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	NewConflictError("submission already in progress").WriteJSON(rr)

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("expected application/problem+json, got %q", ct)
	}

	var body ProblemDetails
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Detail != "submission already in progress" {
		t.Errorf("unexpected detail %q", body.Detail)
	}
	if body.Code != ErrCodeConflict {
		t.Errorf("expected code %d, got %d", ErrCodeConflict, body.Code)
	}
}

// ============================================================================
// Constructor Tests
// ============================================================================

func TestConstructors_StatusAndType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		pd         *ProblemDetails
		wantStatus int
		wantType   string
	}{
		{"unauthorized", NewUnauthorizedError("x"), http.StatusUnauthorized, "unauthorized"},
		{"forbidden", NewForbiddenError("x"), http.StatusForbidden, "forbidden"},
		{"not found", NewNotFoundError("step"), http.StatusNotFound, "not-found"},
		{"bad request", NewBadRequestError("x"), http.StatusBadRequest, "bad-request"},
		{"validation", NewValidationError("x"), http.StatusUnprocessableEntity, "validation"},
		{"conflict", NewConflictError("x"), http.StatusConflict, "conflict"},
		{"bad gateway", NewBadGatewayError("x"), http.StatusBadGateway, "submission-failed"},
		{"internal", NewInternalError("x"), http.StatusInternalServerError, "internal"},
		{"rate limited", NewRateLimitError(5), http.StatusTooManyRequests, "rate-limited"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.pd.Status != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, tt.pd.Status)
			}
			if tt.pd.Type != problemTypeBase+tt.wantType {
				t.Errorf("expected type %s, got %s", problemTypeBase+tt.wantType, tt.pd.Type)
			}
		})
	}
}

func TestNewNotFoundError_FormatsResourceName(t *testing.T) {
	t.Parallel()

	if got := NewNotFoundError("onboarding session").Detail; got != "onboarding session not found" {
		t.Errorf("unexpected detail %q", got)
	}
}

func TestNewIncompleteError_OneSentenceManyFields(t *testing.T) {
	t.Parallel()

	pd := NewIncompleteError([]string{"connection_type", "meeting_format", "goals"})

	if pd.Status != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", pd.Status)
	}
	if strings.Count(pd.Detail, ".") != 1 || strings.Contains(pd.Detail, "goals") {
		t.Errorf("detail should be one summary sentence, got %q", pd.Detail)
	}
	if len(pd.Errors) != 3 {
		t.Fatalf("expected 3 field errors, got %d", len(pd.Errors))
	}
	if pd.Errors[2].Field != "goals" {
		t.Errorf("expected field order preserved, got %s", pd.Errors[2].Field)
	}
}

func TestNewIncompleteError_ListsInvalidAfterMissing(t *testing.T) {
	t.Parallel()

	pd := NewIncompleteError([]string{"meeting_format"}, "goals")

	want := []FieldError{
		{Field: "meeting_format", Message: "required"},
		{Field: "goals", Message: "invalid"},
	}
	if len(pd.Errors) != len(want) {
		t.Fatalf("expected %d field errors, got %d", len(want), len(pd.Errors))
	}
	for i := range want {
		if pd.Errors[i] != want[i] {
			t.Errorf("error %d: expected %+v, got %+v", i, want[i], pd.Errors[i])
		}
	}
}

func TestNewLimitExceededError_CarriesLimit(t *testing.T) {
	t.Parallel()

	pd := NewLimitExceededError("You can pick up to 4 goals.", 4)

	if pd.Limit == nil || *pd.Limit != 4 {
		t.Errorf("expected limit 4, got %v", pd.Limit)
	}
	if pd.Code != ErrCodeLimitExceeded {
		t.Errorf("expected code %d, got %d", ErrCodeLimitExceeded, pd.Code)
	}
}

func TestNewInternalError_EmptyDetail_UsesDefault(t *testing.T) {
	t.Parallel()

	if NewInternalError("").Detail == "" {
		t.Error("expected a default detail")
	}
}

func TestNewRateLimitError_MentionsRetry(t *testing.T) {
	t.Parallel()

	if !strings.Contains(NewRateLimitError(30).Detail, "30 seconds") {
		t.Error("expected retry seconds in detail")
	}
}

// ============================================================================
// JSON Tests
// ============================================================================

func TestProblemDetails_JSON_OmitsEmptyFields(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewForbiddenError("not your session"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, field := range []string{`"errors"`, `"limit"`, `"instance"`} {
		if strings.Contains(string(data), field) {
			t.Errorf("expected %s to be omitted, got %s", field, data)
		}
	}
}
