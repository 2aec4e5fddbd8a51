package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/forgo/saga/onboarding/internal/database"
	"github.com/forgo/saga/onboarding/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedQuery struct {
	query string
	vars  map[string]interface{}
}

// fakeDB records every query and answers with canned results
type fakeDB struct {
	queries []recordedQuery
	results []interface{}
	err     error
}

func ok(rows ...interface{}) []interface{} {
	return []interface{}{map[string]interface{}{"status": "OK", "result": rows}}
}

func (f *fakeDB) Connect(context.Context) error { return nil }
func (f *fakeDB) Close() error                  { return nil }
func (f *fakeDB) Ping(context.Context) error    { return nil }

func (f *fakeDB) Query(_ context.Context, query string, vars map[string]interface{}) ([]interface{}, error) {
	f.queries = append(f.queries, recordedQuery{query: query, vars: vars})
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeDB) QueryOne(ctx context.Context, query string, vars map[string]interface{}) (interface{}, error) {
	results, err := f.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return database.FirstRecord(results)
}

func (f *fakeDB) Execute(ctx context.Context, query string, vars map[string]interface{}) error {
	_, err := f.Query(ctx, query, vars)
	return err
}

func (f *fakeDB) BeginTx(context.Context) (database.Transaction, error) {
	return nil, errors.New("not supported")
}

func TestRecordKey(t *testing.T) {
	a := recordKey("session-a")
	assert.Len(t, a, 64)
	assert.Equal(t, a, recordKey("session-a"))
	assert.NotEqual(t, a, recordKey("session-b"))
	assert.NotContains(t, a, "session")
}

func TestSessionRepository_CreateNeverStoresRawID(t *testing.T) {
	now := time.Now().UTC()
	db := &fakeDB{results: ok(map[string]interface{}{
		"created_on": now,
		"updated_on": now,
	})}
	repo := NewSessionRepository(db)

	session := &model.OnboardingSession{ID: "raw-session-id", UserID: "user:1", ExpiresOn: now.Add(time.Hour)}
	require.NoError(t, repo.CreateSession(context.Background(), session))

	require.Len(t, db.queries, 1)
	q := db.queries[0]
	assert.Equal(t, recordKey("raw-session-id"), q.vars["key"])
	for _, v := range q.vars {
		assert.NotEqual(t, "raw-session-id", v)
	}
	assert.Equal(t, now, session.CreatedOn)
}

func TestSessionRepository_GetSession(t *testing.T) {
	expires := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	db := &fakeDB{results: ok(map[string]interface{}{
		"user_id":    "user:1",
		"snapshot":   `{"openness":4}`,
		"expires_on": expires,
	})}

	session, err := NewSessionRepository(db).GetSession(context.Background(), "abc")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "abc", session.ID)
	assert.Equal(t, "user:1", session.UserID)
	assert.Equal(t, `{"openness":4}`, session.Snapshot)
	assert.Equal(t, expires, session.ExpiresOn)
}

func TestSessionRepository_GetSessionMissing(t *testing.T) {
	db := &fakeDB{results: ok()}

	session, err := NewSessionRepository(db).GetSession(context.Background(), "abc")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestSessionRepository_SaveSnapshotMissingRecord(t *testing.T) {
	db := &fakeDB{results: ok()}

	err := NewSessionRepository(db).SaveSnapshot(context.Background(), "abc", "{}", time.Now())
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestSessionRepository_ClearSnapshot(t *testing.T) {
	db := &fakeDB{results: ok(map[string]interface{}{"user_id": "user:1"})}

	require.NoError(t, NewSessionRepository(db).ClearSnapshot(context.Background(), "abc", time.Now()))
	assert.Contains(t, db.queries[0].query, "snapshot = NONE")
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	cutoff := time.Now()
	db := &fakeDB{results: ok(map[string]interface{}{}, map[string]interface{}{})}

	n, err := NewSessionRepository(db).DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, cutoff, db.queries[0].vars["before"])
}

func TestProfileRepository_SaveIsAtomic(t *testing.T) {
	db := &fakeDB{results: ok()}
	answers := map[string]interface{}{"openness": 4, "goals": []string{"give_back"}}

	require.NoError(t, NewProfileRepository(db).SaveOnboardingProfile(context.Background(), "user:1", answers))

	require.Len(t, db.queries, 1)
	q := db.queries[0]
	assert.True(t, strings.HasPrefix(q.query, "BEGIN TRANSACTION;"))
	assert.Contains(t, q.query, "profile_completed = true")
	assert.Equal(t, answers, q.vars["s1_answers"])
	assert.Equal(t, "user:1", q.vars["s2_user_id"])
}

func TestProfileRepository_SaveWrapsFailure(t *testing.T) {
	db := &fakeDB{err: database.ErrQuery}

	err := NewProfileRepository(db).SaveOnboardingProfile(context.Background(), "user:1", nil)
	assert.ErrorIs(t, err, database.ErrQuery)
}

func TestProfileRepository_GetOnboardingProfile(t *testing.T) {
	db := &fakeDB{results: ok(map[string]interface{}{
		"id":      "onboarding_profile:x",
		"user_id": "user:1",
		"answers": map[string]interface{}{"openness": uint64(4)},
	})}

	profile, err := NewProfileRepository(db).GetOnboardingProfile(context.Background(), "user:1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "onboarding_profile:x", profile.ID)
	assert.Equal(t, uint64(4), profile.Answers["openness"])
}
