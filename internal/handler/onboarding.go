package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/forgo/saga/onboarding/internal/middleware"
	"github.com/forgo/saga/onboarding/internal/model"
	"github.com/forgo/saga/onboarding/internal/wizard"
	"github.com/google/uuid"
)

// OnboardingService is the session surface the handler drives
type OnboardingService interface {
	Steps() []wizard.Step
	StartSession(ctx context.Context, userID string) (*model.OnboardingState, error)
	GetSession(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error)
	UpdateAnswer(ctx context.Context, userID, sessionID string, step int, value wizard.Answer) (*model.OnboardingState, error)
	ToggleChoice(ctx context.Context, userID, sessionID string, step int, option string) (*model.OnboardingState, error)
	RateCategory(ctx context.Context, userID, sessionID string, step int, category string, rating int) (*model.OnboardingState, error)
	Advance(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error)
	Retreat(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error)
	Reset(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error)
	Preview(ctx context.Context, userID, sessionID string) (wizard.Payload, error)
	Submit(ctx context.Context, userID, sessionID string) (*model.SubmissionResult, error)
	Subscribe(ctx context.Context, userID, sessionID string) (<-chan *model.OnboardingState, func(), error)
}

// OnboardingHandler handles questionnaire session endpoints
type OnboardingHandler struct {
	service OnboardingService
}

// NewOnboardingHandler creates a new onboarding handler
func NewOnboardingHandler(service OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{service: service}
}

// RegisterRoutes registers the onboarding routes. authed wraps every route
// except the public step catalog; submit additionally takes guard.
func (h *OnboardingHandler) RegisterRoutes(mux *http.ServeMux, authed, guard func(http.Handler) http.Handler) {
	if guard == nil {
		guard = func(next http.Handler) http.Handler { return next }
	}
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, authed(fn))
	}

	mux.HandleFunc("GET /v1/onboarding/steps", h.ListSteps)

	handle("POST /v1/onboarding/sessions", h.StartSession)
	handle("GET /v1/onboarding/sessions/{sessionId}", h.GetSession)
	handle("PUT /v1/onboarding/sessions/{sessionId}/answers/{step}", h.UpdateAnswer)
	handle("POST /v1/onboarding/sessions/{sessionId}/answers/{step}/choices/{option}", h.ToggleChoice)
	handle("PUT /v1/onboarding/sessions/{sessionId}/answers/{step}/ratings/{category}", h.RateCategory)
	handle("POST /v1/onboarding/sessions/{sessionId}/advance", h.Advance)
	handle("POST /v1/onboarding/sessions/{sessionId}/retreat", h.Retreat)
	handle("POST /v1/onboarding/sessions/{sessionId}/reset", h.Reset)
	handle("GET /v1/onboarding/sessions/{sessionId}/payload", h.Preview)
	mux.Handle("POST /v1/onboarding/sessions/{sessionId}/submit", authed(guard(http.HandlerFunc(h.Submit))))
	handle("GET /v1/onboarding/sessions/{sessionId}/stream", h.Stream)
}

// ListSteps handles GET /v1/onboarding/steps
func (h *OnboardingHandler) ListSteps(w http.ResponseWriter, r *http.Request) {
	steps := h.service.Steps()
	WriteCollection(w, http.StatusOK, steps, len(steps), nil)
}

// StartSession handles POST /v1/onboarding/sessions
func (h *OnboardingHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	state, err := h.service.StartSession(r.Context(), userID)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusCreated, state, sessionLinks(state.SessionID))
}

// GetSession handles GET /v1/onboarding/sessions/{sessionId}
func (h *OnboardingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, r, func(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error) {
		return h.service.GetSession(ctx, userID, sessionID)
	})
}

// UpdateAnswer handles PUT /v1/onboarding/sessions/{sessionId}/answers/{step}
func (h *OnboardingHandler) UpdateAnswer(w http.ResponseWriter, r *http.Request) {
	step, ok := h.stepFor(w, r)
	if !ok {
		return
	}

	var req model.AnswerRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	answer, err := decodeAnswer(step, req.Value)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	h.respondState(w, r, func(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error) {
		return h.service.UpdateAnswer(ctx, userID, sessionID, step.Number, answer)
	})
}

// ToggleChoice handles POST /v1/onboarding/sessions/{sessionId}/answers/{step}/choices/{option}
func (h *OnboardingHandler) ToggleChoice(w http.ResponseWriter, r *http.Request) {
	step, ok := h.stepFor(w, r)
	if !ok {
		return
	}
	option := r.PathValue("option")

	h.respondState(w, r, func(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error) {
		return h.service.ToggleChoice(ctx, userID, sessionID, step.Number, option)
	})
}

// RateCategory handles PUT /v1/onboarding/sessions/{sessionId}/answers/{step}/ratings/{category}
func (h *OnboardingHandler) RateCategory(w http.ResponseWriter, r *http.Request) {
	step, ok := h.stepFor(w, r)
	if !ok {
		return
	}
	category := r.PathValue("category")

	var req model.RatingRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	h.respondState(w, r, func(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error) {
		return h.service.RateCategory(ctx, userID, sessionID, step.Number, category, req.Rating)
	})
}

// Advance handles POST /v1/onboarding/sessions/{sessionId}/advance
func (h *OnboardingHandler) Advance(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, r, func(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error) {
		return h.service.Advance(ctx, userID, sessionID)
	})
}

// Retreat handles POST /v1/onboarding/sessions/{sessionId}/retreat
func (h *OnboardingHandler) Retreat(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, r, func(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error) {
		return h.service.Retreat(ctx, userID, sessionID)
	})
}

// Reset handles POST /v1/onboarding/sessions/{sessionId}/reset
func (h *OnboardingHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, r, func(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error) {
		return h.service.Reset(ctx, userID, sessionID)
	})
}

// Preview handles GET /v1/onboarding/sessions/{sessionId}/payload
func (h *OnboardingHandler) Preview(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	payload, err := h.service.Preview(r.Context(), userID, r.PathValue("sessionId"))
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, payload, nil)
}

// Submit handles POST /v1/onboarding/sessions/{sessionId}/submit
func (h *OnboardingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	result, err := h.service.Submit(r.Context(), userID, r.PathValue("sessionId"))
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, result, map[string]string{
		"profile":  "/v1/profile/onboarding",
		"redirect": result.Redirect,
	})
}

// Stream handles GET /v1/onboarding/sessions/{sessionId}/stream
// Each state change is sent as an SSE "state" event.
func (h *OnboardingHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, model.NewInternalError("streaming not supported"))
		return
	}

	sessionID := r.PathValue("sessionId")
	updates, cancel, err := h.service.Subscribe(r.Context(), userID, sessionID)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	subscriberID := uuid.New().String()
	fmt.Fprintf(w, "event: connected\ndata: {\"subscriber_id\":\"%s\"}\n\n", subscriberID)
	flusher.Flush()

	for {
		select {
		case state := <-updates:
			data, err := json.Marshal(state)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

type stateFunc func(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error)

func (h *OnboardingHandler) respondState(w http.ResponseWriter, r *http.Request, fn stateFunc) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	state, err := fn(r.Context(), userID, r.PathValue("sessionId"))
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, state, sessionLinks(state.SessionID))
}

// stepFor resolves the {step} path value against the catalog
func (h *OnboardingHandler) stepFor(w http.ResponseWriter, r *http.Request) (wizard.Step, bool) {
	n, err := strconv.Atoi(r.PathValue("step"))
	if err != nil {
		WriteError(w, model.NewBadRequestError("step must be a number"))
		return wizard.Step{}, false
	}
	for _, s := range h.service.Steps() {
		if s.Number == n {
			return s, true
		}
	}
	WriteError(w, MapServiceError(fmt.Errorf("%w: %d", wizard.ErrUnknownStep, n)))
	return wizard.Step{}, false
}

// decodeAnswer reads a raw answer in the shape the step's kind expects
func decodeAnswer(step wizard.Step, raw json.RawMessage) (wizard.Answer, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: step %d requires a value", wizard.ErrAnswerKind, step.Number)
	}

	var (
		answer wizard.Answer
		err    error
	)
	switch step.Kind {
	case wizard.KindScalar:
		var v int
		err = json.Unmarshal(raw, &v)
		answer = wizard.ScalarRating(v)
	case wizard.KindCategory:
		var v map[string]int
		err = json.Unmarshal(raw, &v)
		answer = wizard.CategoryRatings(v)
	case wizard.KindSingle:
		var v string
		err = json.Unmarshal(raw, &v)
		answer = wizard.SingleChoice(v)
	case wizard.KindMulti:
		var v []string
		err = json.Unmarshal(raw, &v)
		answer = wizard.MultiChoice(v)
	default:
		return nil, fmt.Errorf("%w: step %d", wizard.ErrAnswerKind, step.Number)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: step %d expects %s", wizard.ErrAnswerKind, step.Number, step.Kind)
	}
	return answer, nil
}

func sessionLinks(sessionID string) map[string]string {
	base := "/v1/onboarding/sessions/" + sessionID
	return map[string]string{
		"self":    base,
		"payload": base + "/payload",
		"submit":  base + "/submit",
		"stream":  base + "/stream",
	}
}
