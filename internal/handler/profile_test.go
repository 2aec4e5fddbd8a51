package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/forgo/saga/onboarding/internal/model"
	"github.com/forgo/saga/onboarding/internal/service"
	"github.com/forgo/saga/onboarding/internal/wizard"
)

type mockProfileService struct {
	submitPayloadFunc func(ctx context.Context, userID string, payload wizard.Payload) (*model.OnboardingProfile, error)
	getProfileFunc    func(ctx context.Context, userID string) (*model.OnboardingProfile, error)
}

func (m *mockProfileService) SubmitPayload(ctx context.Context, userID string, payload wizard.Payload) (*model.OnboardingProfile, error) {
	if m.submitPayloadFunc != nil {
		return m.submitPayloadFunc(ctx, userID, payload)
	}
	return &model.OnboardingProfile{UserID: userID, Answers: payload}, nil
}

func (m *mockProfileService) GetProfile(ctx context.Context, userID string) (*model.OnboardingProfile, error) {
	if m.getProfileFunc != nil {
		return m.getProfileFunc(ctx, userID)
	}
	return nil, service.ErrProfileNotFound
}

func newProfileMux(svc ProfileService) *http.ServeMux {
	mux := http.NewServeMux()
	NewProfileHandler(svc).RegisterRoutes(mux, fakeAuth, nil)
	return mux
}

func TestSubmitOnboarding_KeepsNumbersExact(t *testing.T) {
	t.Parallel()

	var got wizard.Payload
	svc := &mockProfileService{
		submitPayloadFunc: func(ctx context.Context, userID string, payload wizard.Payload) (*model.OnboardingProfile, error) {
			got = payload
			return &model.OnboardingProfile{UserID: userID, SubmittedOn: time.Now()}, nil
		},
	}

	rr := doRequest(newProfileMux(svc), "POST", "/v1/profile/onboarding", `{"openness": 4, "goals": ["make_friends"]}`, "user:alice")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if n, ok := got["openness"].(json.Number); !ok || n.String() != "4" {
		t.Errorf("expected json.Number 4, got %#v", got["openness"])
	}
}

func TestSubmitOnboarding_Rejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"malformed body", `{"openness":`, nil, http.StatusBadRequest},
		{"unknown field", `{"favorite_color": "blue"}`, fmt.Errorf("%w: [favorite_color]", wizard.ErrUnknownField), http.StatusUnprocessableEntity},
		{"incomplete", `{}`, &wizard.MissingFieldsError{Fields: []string{"openness"}}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockProfileService{
				submitPayloadFunc: func(ctx context.Context, userID string, payload wizard.Payload) (*model.OnboardingProfile, error) {
					return nil, tt.err
				},
			}

			rr := doRequest(newProfileMux(svc), "POST", "/v1/profile/onboarding", tt.body, "user:alice")
			if rr.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rr.Code)
			}
		})
	}
}

func TestGetOnboarding_NotFound(t *testing.T) {
	t.Parallel()

	rr := doRequest(newProfileMux(&mockProfileService{}), "GET", "/v1/profile/onboarding", "", "user:alice")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestGetOnboarding_RequiresAuth(t *testing.T) {
	t.Parallel()

	rr := doRequest(newProfileMux(&mockProfileService{}), "GET", "/v1/profile/onboarding", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", Health(stubPinger{}))
	if rr := doRequest(mux, "GET", "/health", "", ""); rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}

	mux = http.NewServeMux()
	mux.HandleFunc("GET /health", Health(stubPinger{err: fmt.Errorf("down")}))
	if rr := doRequest(mux, "GET", "/health", "", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rr.Code)
	}
}
