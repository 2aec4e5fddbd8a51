package handler

import (
	"context"
	"net/http"

	"github.com/forgo/saga/onboarding/internal/middleware"
	"github.com/forgo/saga/onboarding/internal/model"
	"github.com/forgo/saga/onboarding/internal/wizard"
)

// ProfileService stores submitted questionnaires
type ProfileService interface {
	SubmitPayload(ctx context.Context, userID string, payload wizard.Payload) (*model.OnboardingProfile, error)
	GetProfile(ctx context.Context, userID string) (*model.OnboardingProfile, error)
}

// ProfileHandler handles onboarding profile endpoints
type ProfileHandler struct {
	profileService ProfileService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// RegisterRoutes registers the profile routes behind authed
func (h *ProfileHandler) RegisterRoutes(mux *http.ServeMux, authed, guard func(http.Handler) http.Handler) {
	if guard == nil {
		guard = func(next http.Handler) http.Handler { return next }
	}
	mux.Handle("POST /v1/profile/onboarding", authed(guard(http.HandlerFunc(h.SubmitOnboarding))))
	mux.Handle("GET /v1/profile/onboarding", authed(http.HandlerFunc(h.GetOnboarding)))
}

// SubmitOnboarding handles POST /v1/profile/onboarding
// The body is the flattened questionnaire payload.
func (h *ProfileHandler) SubmitOnboarding(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	var payload wizard.Payload
	if err := decodePayload(r, &payload); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	profile, err := h.profileService.SubmitPayload(r.Context(), userID, payload)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusCreated, profile, map[string]string{
		"self": "/v1/profile/onboarding",
	})
}

// GetOnboarding handles GET /v1/profile/onboarding
func (h *ProfileHandler) GetOnboarding(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	profile, err := h.profileService.GetProfile(r.Context(), userID)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, profile, nil)
}
