package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/forgo/saga/onboarding/internal/database"
	"github.com/forgo/saga/onboarding/internal/model"
)

// ProfileRepository stores submitted onboarding questionnaires
type ProfileRepository struct {
	db database.Database
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db database.Database) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// SaveOnboardingProfile stores the flattened answers for a user and marks
// the user's profile as completed in the same transaction. A second
// submission replaces the first.
func (r *ProfileRepository) SaveOnboardingProfile(ctx context.Context, userID string, answers map[string]interface{}) error {
	upsert := `
		UPSERT type::thing("onboarding_profile", $user_id) CONTENT {
			user_id: $user_id,
			answers: $answers,
			submitted_on: time::now()
		}
	`
	flag := `UPDATE type::record($user_id) SET profile_completed = true, updated_on = time::now()`

	err := database.NewAtomicBatch().
		Add(upsert, map[string]interface{}{"user_id": userID, "answers": answers}).
		Add(flag, map[string]interface{}{"user_id": userID}).
		Execute(ctx, r.db)
	if err != nil {
		return fmt.Errorf("save onboarding profile: %w", err)
	}
	return nil
}

// GetOnboardingProfile returns the user's submitted profile, or nil
func (r *ProfileRepository) GetOnboardingProfile(ctx context.Context, userID string) (*model.OnboardingProfile, error) {
	query := `SELECT * FROM type::thing("onboarding_profile", $user_id)`
	vars := map[string]interface{}{"user_id": userID}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	data, ok := result.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected profile record %T", result)
	}
	return &model.OnboardingProfile{
		ID:          convertSurrealID(data["id"]),
		UserID:      getString(data, "user_id"),
		Answers:     getMap(data, "answers"),
		SubmittedOn: parseTime(data["submitted_on"]),
	}, nil
}
