package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/forgo/saga/onboarding/internal/middleware"
	"github.com/forgo/saga/onboarding/internal/model"
	"github.com/forgo/saga/onboarding/internal/service"
	"github.com/forgo/saga/onboarding/internal/wizard"
)

// ============================================================================
// Mock OnboardingService
// ============================================================================

type mockOnboardingService struct {
	startSessionFunc func(ctx context.Context, userID string) (*model.OnboardingState, error)
	getSessionFunc   func(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error)
	updateAnswerFunc func(ctx context.Context, userID, sessionID string, step int, value wizard.Answer) (*model.OnboardingState, error)
	toggleChoiceFunc func(ctx context.Context, userID, sessionID string, step int, option string) (*model.OnboardingState, error)
	rateCategoryFunc func(ctx context.Context, userID, sessionID string, step int, category string, rating int) (*model.OnboardingState, error)
	advanceFunc      func(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error)
	retreatFunc      func(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error)
	resetFunc        func(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error)
	previewFunc      func(ctx context.Context, userID, sessionID string) (wizard.Payload, error)
	submitFunc       func(ctx context.Context, userID, sessionID string) (*model.SubmissionResult, error)
	subscribeFunc    func(ctx context.Context, userID, sessionID string) (<-chan *model.OnboardingState, func(), error)
}

func (m *mockOnboardingService) Steps() []wizard.Step {
	return wizard.DefaultCatalog().Steps()
}

func (m *mockOnboardingService) StartSession(ctx context.Context, userID string) (*model.OnboardingState, error) {
	if m.startSessionFunc != nil {
		return m.startSessionFunc(ctx, userID)
	}
	return &model.OnboardingState{SessionID: "sess-1", CurrentStep: 1, TotalSteps: 11}, nil
}

func (m *mockOnboardingService) GetSession(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error) {
	if m.getSessionFunc != nil {
		return m.getSessionFunc(ctx, userID, sessionID)
	}
	return &model.OnboardingState{SessionID: sessionID}, nil
}

func (m *mockOnboardingService) UpdateAnswer(ctx context.Context, userID, sessionID string, step int, value wizard.Answer) (*model.OnboardingState, error) {
	if m.updateAnswerFunc != nil {
		return m.updateAnswerFunc(ctx, userID, sessionID, step, value)
	}
	return &model.OnboardingState{SessionID: sessionID}, nil
}

func (m *mockOnboardingService) ToggleChoice(ctx context.Context, userID, sessionID string, step int, option string) (*model.OnboardingState, error) {
	if m.toggleChoiceFunc != nil {
		return m.toggleChoiceFunc(ctx, userID, sessionID, step, option)
	}
	return &model.OnboardingState{SessionID: sessionID}, nil
}

func (m *mockOnboardingService) RateCategory(ctx context.Context, userID, sessionID string, step int, category string, rating int) (*model.OnboardingState, error) {
	if m.rateCategoryFunc != nil {
		return m.rateCategoryFunc(ctx, userID, sessionID, step, category, rating)
	}
	return &model.OnboardingState{SessionID: sessionID}, nil
}

func (m *mockOnboardingService) Advance(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error) {
	if m.advanceFunc != nil {
		return m.advanceFunc(ctx, userID, sessionID)
	}
	return &model.OnboardingState{SessionID: sessionID}, nil
}

func (m *mockOnboardingService) Retreat(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error) {
	if m.retreatFunc != nil {
		return m.retreatFunc(ctx, userID, sessionID)
	}
	return &model.OnboardingState{SessionID: sessionID}, nil
}

func (m *mockOnboardingService) Reset(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error) {
	if m.resetFunc != nil {
		return m.resetFunc(ctx, userID, sessionID)
	}
	return &model.OnboardingState{SessionID: sessionID}, nil
}

func (m *mockOnboardingService) Preview(ctx context.Context, userID, sessionID string) (wizard.Payload, error) {
	if m.previewFunc != nil {
		return m.previewFunc(ctx, userID, sessionID)
	}
	return wizard.Payload{}, nil
}

func (m *mockOnboardingService) Submit(ctx context.Context, userID, sessionID string) (*model.SubmissionResult, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, userID, sessionID)
	}
	return &model.SubmissionResult{Redirect: "/home"}, nil
}

func (m *mockOnboardingService) Subscribe(ctx context.Context, userID, sessionID string) (<-chan *model.OnboardingState, func(), error) {
	if m.subscribeFunc != nil {
		return m.subscribeFunc(ctx, userID, sessionID)
	}
	return make(chan *model.OnboardingState), func() {}, nil
}

// ============================================================================
// Helpers
// ============================================================================

// fakeAuth authenticates every request as the user in X-Test-User
func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-Test-User")
		if userID == "" {
			WriteError(w, model.NewUnauthorizedError("missing authorization header"))
			return
		}
		ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newOnboardingMux(svc OnboardingService) *http.ServeMux {
	mux := http.NewServeMux()
	NewOnboardingHandler(svc).RegisterRoutes(mux, fakeAuth, nil)
	return mux
}

func doRequest(mux http.Handler, method, path, body, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func decodeProblem(t *testing.T, rr *httptest.ResponseRecorder) model.ProblemDetails {
	t.Helper()
	var p model.ProblemDetails
	if err := json.NewDecoder(rr.Body).Decode(&p); err != nil {
		t.Fatalf("failed to decode problem: %v", err)
	}
	return p
}

// ============================================================================
// Tests
// ============================================================================

func TestListSteps_Public(t *testing.T) {
	t.Parallel()

	rr := doRequest(newOnboardingMux(&mockOnboardingService{}), "GET", "/v1/onboarding/steps", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var resp struct {
		Data  []wizard.Step `json:"data"`
		Total int           `json:"total"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 11 || len(resp.Data) != 11 {
		t.Errorf("expected 11 steps, got total=%d len=%d", resp.Total, len(resp.Data))
	}
}

func TestStartSession_RequiresAuth(t *testing.T) {
	t.Parallel()

	rr := doRequest(newOnboardingMux(&mockOnboardingService{}), "POST", "/v1/onboarding/sessions", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestStartSession_Created(t *testing.T) {
	t.Parallel()

	var gotUser string
	svc := &mockOnboardingService{
		startSessionFunc: func(ctx context.Context, userID string) (*model.OnboardingState, error) {
			gotUser = userID
			return &model.OnboardingState{SessionID: "sess-9", CurrentStep: 1, TotalSteps: 11}, nil
		},
	}

	rr := doRequest(newOnboardingMux(svc), "POST", "/v1/onboarding/sessions", "", "user:alice")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if gotUser != "user:alice" {
		t.Errorf("expected user:alice, got %q", gotUser)
	}

	var resp DataResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Links["stream"] != "/v1/onboarding/sessions/sess-9/stream" {
		t.Errorf("unexpected stream link %q", resp.Links["stream"])
	}
}

func TestUpdateAnswer_DecodesByStepKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		step string
		body string
		want wizard.Answer
	}{
		{"scalar", "1", `{"value": 5}`, wizard.ScalarRating(5)},
		{"category", "3", `{"value": {"career": 3}}`, wizard.CategoryRatings{"career": 3}},
		{"single", "6", `{"value": "friendship"}`, wizard.SingleChoice("friendship")},
		{"multi", "11", `{"value": ["make_friends", "give_back"]}`, wizard.MultiChoice{"make_friends", "give_back"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got wizard.Answer
			var gotStep int
			svc := &mockOnboardingService{
				updateAnswerFunc: func(ctx context.Context, userID, sessionID string, step int, value wizard.Answer) (*model.OnboardingState, error) {
					gotStep, got = step, value
					return &model.OnboardingState{SessionID: sessionID}, nil
				},
			}

			path := fmt.Sprintf("/v1/onboarding/sessions/sess-1/answers/%s", tt.step)
			rr := doRequest(newOnboardingMux(svc), "PUT", path, tt.body, "user:alice")
			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
			}
			if fmt.Sprint(gotStep) != tt.step {
				t.Errorf("expected step %s, got %d", tt.step, gotStep)
			}
			if fmt.Sprintf("%#v", got) != fmt.Sprintf("%#v", tt.want) {
				t.Errorf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestUpdateAnswer_WrongShape(t *testing.T) {
	t.Parallel()

	called := false
	svc := &mockOnboardingService{
		updateAnswerFunc: func(ctx context.Context, userID, sessionID string, step int, value wizard.Answer) (*model.OnboardingState, error) {
			called = true
			return nil, nil
		},
	}

	rr := doRequest(newOnboardingMux(svc), "PUT", "/v1/onboarding/sessions/sess-1/answers/1", `{"value": "five"}`, "user:alice")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rr.Code)
	}
	if called {
		t.Error("service should not be called for a malformed answer")
	}
}

func TestUpdateAnswer_BadStep(t *testing.T) {
	t.Parallel()

	mux := newOnboardingMux(&mockOnboardingService{})

	rr := doRequest(mux, "PUT", "/v1/onboarding/sessions/sess-1/answers/abc", `{"value": 1}`, "user:alice")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("non-numeric step: expected 400, got %d", rr.Code)
	}

	rr = doRequest(mux, "PUT", "/v1/onboarding/sessions/sess-1/answers/42", `{"value": 1}`, "user:alice")
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown step: expected 404, got %d", rr.Code)
	}
}

func TestToggleChoice_PassesOption(t *testing.T) {
	t.Parallel()

	var gotOption string
	svc := &mockOnboardingService{
		toggleChoiceFunc: func(ctx context.Context, userID, sessionID string, step int, option string) (*model.OnboardingState, error) {
			gotOption = option
			return nil, fmt.Errorf("%w: already have 4", wizard.ErrSelectionLimit)
		},
	}

	rr := doRequest(newOnboardingMux(svc), "POST", "/v1/onboarding/sessions/sess-1/answers/11/choices/learn_skill", "", "user:alice")
	if gotOption != "learn_skill" {
		t.Errorf("expected option learn_skill, got %q", gotOption)
	}
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	p := decodeProblem(t, rr)
	if p.Limit == nil || *p.Limit != wizard.MaxGoals {
		t.Errorf("expected limit %d, got %v", wizard.MaxGoals, p.Limit)
	}
}

func TestRateCategory_PassesRating(t *testing.T) {
	t.Parallel()

	var gotCategory string
	var gotRating int
	svc := &mockOnboardingService{
		rateCategoryFunc: func(ctx context.Context, userID, sessionID string, step int, category string, rating int) (*model.OnboardingState, error) {
			gotCategory, gotRating = category, rating
			return &model.OnboardingState{SessionID: sessionID}, nil
		},
	}

	rr := doRequest(newOnboardingMux(svc), "PUT", "/v1/onboarding/sessions/sess-1/answers/3/ratings/career", `{"rating": 4}`, "user:alice")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotCategory != "career" || gotRating != 4 {
		t.Errorf("expected career=4, got %s=%d", gotCategory, gotRating)
	}
}

func TestGetSession_Forbidden(t *testing.T) {
	t.Parallel()

	svc := &mockOnboardingService{
		getSessionFunc: func(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error) {
			return nil, service.ErrSessionForbidden
		},
	}

	rr := doRequest(newOnboardingMux(svc), "GET", "/v1/onboarding/sessions/sess-1", "", "user:mallory")
	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rr.Code)
	}
}

func TestSubmit_Incomplete(t *testing.T) {
	t.Parallel()

	svc := &mockOnboardingService{
		submitFunc: func(ctx context.Context, userID, sessionID string) (*model.SubmissionResult, error) {
			return nil, &wizard.MissingFieldsError{
				Fields:  []string{"connection_type", "goals"},
				Invalid: []string{"openness"},
			}
		},
	}

	rr := doRequest(newOnboardingMux(svc), "POST", "/v1/onboarding/sessions/sess-1/submit", "", "user:alice")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	p := decodeProblem(t, rr)
	if len(p.Errors) != 3 {
		t.Fatalf("expected 3 field errors, got %d", len(p.Errors))
	}
	if p.Errors[2].Field != "openness" || p.Errors[2].Message != "invalid" {
		t.Errorf("expected openness reported invalid, got %+v", p.Errors[2])
	}
	if strings.Contains(p.Detail, "connection_type") {
		t.Errorf("detail should be a single sentence, got %q", p.Detail)
	}
}

func TestSubmit_Outcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"success", nil, http.StatusOK},
		{"upstream failure", fmt.Errorf("%w: %w", service.ErrSubmissionFailed, errors.New("db down")), http.StatusBadGateway},
		{"in progress", service.ErrSubmissionInProgress, http.StatusConflict},
		{"unknown session", service.ErrSessionNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockOnboardingService{
				submitFunc: func(ctx context.Context, userID, sessionID string) (*model.SubmissionResult, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &model.SubmissionResult{Redirect: "/discover"}, nil
				},
			}

			rr := doRequest(newOnboardingMux(svc), "POST", "/v1/onboarding/sessions/sess-1/submit", "", "user:alice")
			if rr.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantStatus == http.StatusBadGateway && strings.Contains(rr.Body.String(), "db down") {
				t.Error("upstream error details should not leak")
			}
		})
	}
}

func TestStream_SendsStateEvents(t *testing.T) {
	t.Parallel()

	updates := make(chan *model.OnboardingState, 1)
	cancelled := make(chan struct{})
	svc := &mockOnboardingService{
		subscribeFunc: func(ctx context.Context, userID, sessionID string) (<-chan *model.OnboardingState, func(), error) {
			return updates, func() { close(cancelled) }, nil
		},
	}
	h := NewOnboardingHandler(svc)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/v1/onboarding/sessions/sess-1/stream", nil)
	req.SetPathValue("sessionId", "sess-1")
	req = req.WithContext(context.WithValue(ctx, middleware.UserIDKey, "user:alice"))
	rr := httptest.NewRecorder()

	updates <- &model.OnboardingState{SessionID: "sess-1", CurrentStep: 2}

	done := make(chan struct{})
	go func() {
		h.Stream(rr, req)
		close(done)
	}()

	// Give the handler time to drain the buffered update.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not stop on context cancel")
	}
	select {
	case <-cancelled:
	default:
		t.Error("subscription was not cancelled")
	}

	body := rr.Body.String()
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %q", ct)
	}
	if !strings.Contains(body, "event: connected") {
		t.Error("missing connected event")
	}
	if !strings.Contains(body, "event: state") || !strings.Contains(body, `"current_step":2`) {
		t.Errorf("missing state event in %q", body)
	}
}

func TestMapServiceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err        error
		wantStatus int
	}{
		{service.ErrSessionNotFound, http.StatusNotFound},
		{service.ErrProfileNotFound, http.StatusNotFound},
		{wizard.ErrUnknownStep, http.StatusNotFound},
		{service.ErrSessionForbidden, http.StatusForbidden},
		{service.ErrSubmissionInProgress, http.StatusConflict},
		{wizard.ErrRatingRange, http.StatusUnprocessableEntity},
		{wizard.ErrUnknownOption, http.StatusUnprocessableEntity},
		{wizard.ErrUnknownField, http.StatusUnprocessableEntity},
		{wizard.ErrElevationLimit, http.StatusUnprocessableEntity},
		{service.ErrSubmissionFailed, http.StatusBadGateway},
		{wizard.ErrPersist, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := MapServiceError(fmt.Errorf("wrapped: %w", tt.err)); got.Status != tt.wantStatus {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.wantStatus, got.Status)
		}
	}

	if MapServiceError(nil) != nil {
		t.Error("nil error should map to nil")
	}
}
