package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forgo/saga/onboarding/internal/database"
	"github.com/forgo/saga/onboarding/internal/model"
)

// SessionRepository stores onboarding sessions. Records are keyed by the
// blake2b digest of the session ID, so a leaked table does not expose
// usable session IDs.
type SessionRepository struct {
	db database.Database
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db database.Database) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateSession stores a new, empty session
func (r *SessionRepository) CreateSession(ctx context.Context, session *model.OnboardingSession) error {
	query := `
		CREATE type::thing("onboarding_session", $key) CONTENT {
			user_id: $user_id,
			snapshot: NONE,
			created_on: time::now(),
			updated_on: time::now(),
			expires_on: $expires_on
		}
	`
	vars := map[string]interface{}{
		"key":        recordKey(session.ID),
		"user_id":    session.UserID,
		"expires_on": session.ExpiresOn,
	}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return err
	}

	created, err := database.FirstRecord(result)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if data, ok := created.(map[string]interface{}); ok {
		session.CreatedOn = parseTime(data["created_on"])
		session.UpdatedOn = parseTime(data["updated_on"])
	}
	return nil
}

// GetSession returns the session or nil when it does not exist
func (r *SessionRepository) GetSession(ctx context.Context, id string) (*model.OnboardingSession, error) {
	query := `SELECT * FROM type::thing("onboarding_session", $key)`
	vars := map[string]interface{}{"key": recordKey(id)}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	data, ok := result.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected session record %T", result)
	}
	return &model.OnboardingSession{
		ID:        id,
		UserID:    getString(data, "user_id"),
		Snapshot:  getString(data, "snapshot"),
		CreatedOn: parseTime(data["created_on"]),
		UpdatedOn: parseTime(data["updated_on"]),
		ExpiresOn: parseTime(data["expires_on"]),
	}, nil
}

// SaveSnapshot replaces the stored snapshot and slides the expiry forward
func (r *SessionRepository) SaveSnapshot(ctx context.Context, id, snapshot string, expiresOn time.Time) error {
	query := `
		UPDATE type::thing("onboarding_session", $key) SET
			snapshot = $snapshot,
			updated_on = time::now(),
			expires_on = $expires_on
	`
	return r.update(ctx, query, map[string]interface{}{
		"key":        recordKey(id),
		"snapshot":   snapshot,
		"expires_on": expiresOn,
	})
}

// ClearSnapshot drops the stored snapshot, keeping the session itself
func (r *SessionRepository) ClearSnapshot(ctx context.Context, id string, expiresOn time.Time) error {
	query := `
		UPDATE type::thing("onboarding_session", $key) SET
			snapshot = NONE,
			updated_on = time::now(),
			expires_on = $expires_on
	`
	return r.update(ctx, query, map[string]interface{}{
		"key":        recordKey(id),
		"expires_on": expiresOn,
	})
}

// update runs an UPDATE on a single session record. UPDATE on a missing
// record yields no rows, which is reported as ErrNotFound.
func (r *SessionRepository) update(ctx context.Context, query string, vars map[string]interface{}) error {
	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return err
	}
	if len(database.Records(result, 0)) == 0 {
		return database.ErrNotFound
	}
	return nil
}

// DeleteSession removes a session
func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	query := `DELETE type::thing("onboarding_session", $key)`
	return r.db.Execute(ctx, query, map[string]interface{}{"key": recordKey(id)})
}

// DeleteExpired removes sessions whose expiry is before the cutoff and
// returns how many were removed
func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	query := `DELETE onboarding_session WHERE expires_on < $before RETURN BEFORE`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"before": before})
	if err != nil {
		return 0, err
	}
	return len(database.Records(result, 0)), nil
}
