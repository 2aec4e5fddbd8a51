package service

import (
	"context"
	"time"

	"github.com/forgo/saga/onboarding/internal/model"
	"github.com/forgo/saga/onboarding/internal/wizard"
)

// ProfileRepository defines the interface for submitted profile storage
type ProfileRepository interface {
	SaveOnboardingProfile(ctx context.Context, userID string, answers map[string]interface{}) error
	GetOnboardingProfile(ctx context.Context, userID string) (*model.OnboardingProfile, error)
}

// ProfileService accepts finished questionnaires, whether built by a
// server-side session or by a client running its own wizard
type ProfileService struct {
	repo    ProfileRepository
	catalog *wizard.Catalog
	now     func() time.Time
}

// ProfileServiceConfig holds configuration for the profile service
type ProfileServiceConfig struct {
	Repo    ProfileRepository
	Catalog *wizard.Catalog
}

// NewProfileService creates a new profile service
func NewProfileService(cfg ProfileServiceConfig) *ProfileService {
	if cfg.Catalog == nil {
		cfg.Catalog = wizard.DefaultCatalog()
	}
	return &ProfileService{
		repo:    cfg.Repo,
		catalog: cfg.Catalog,
		now:     time.Now,
	}
}

// SubmitPayload validates a flattened questionnaire against the catalog,
// stores it and marks the user's profile completed. Unknown fields, bad
// values and unanswered questions are rejected before anything is stored.
func (s *ProfileService) SubmitPayload(ctx context.Context, userID string, payload wizard.Payload) (*model.OnboardingProfile, error) {
	normalized, err := wizard.NormalizePayload(s.catalog, payload)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveOnboardingProfile(ctx, userID, normalized); err != nil {
		return nil, err
	}

	return &model.OnboardingProfile{
		UserID:      userID,
		Answers:     normalized,
		SubmittedOn: s.now().UTC(),
	}, nil
}

// GetProfile returns the user's submitted questionnaire
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*model.OnboardingProfile, error) {
	profile, err := s.repo.GetOnboardingProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}
