package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forgo/saga/onboarding/internal/model"
	"github.com/forgo/saga/onboarding/internal/wizard"
)

// SessionRepository defines the interface for onboarding session storage
type SessionRepository interface {
	CreateSession(ctx context.Context, session *model.OnboardingSession) error
	GetSession(ctx context.Context, id string) (*model.OnboardingSession, error)
	SaveSnapshot(ctx context.Context, id, snapshot string, expiresOn time.Time) error
	ClearSnapshot(ctx context.Context, id string, expiresOn time.Time) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}

// ProfileSubmitter accepts a finished, flattened questionnaire
type ProfileSubmitter interface {
	SubmitPayload(ctx context.Context, userID string, payload wizard.Payload) (*model.OnboardingProfile, error)
}

// OnboardingService runs one wizard engine per session. Engines are cached
// in memory and rebuilt from the stored snapshot after eviction.
type OnboardingService struct {
	sessions    SessionRepository
	submitter   ProfileSubmitter
	catalog     *wizard.Catalog
	logger      *slog.Logger
	sessionTTL  time.Duration
	idleTimeout time.Duration
	redirect    string
	now         func() time.Time

	mu      sync.Mutex
	engines map[string]*cachedEngine
}

type cachedEngine struct {
	engine      *wizard.Engine
	userID      string
	expiresOn   time.Time
	lastUsed    time.Time
	subscribers int
	submitting  bool
}

// OnboardingServiceConfig holds configuration for the onboarding service
type OnboardingServiceConfig struct {
	Sessions    SessionRepository
	Submitter   ProfileSubmitter
	Catalog     *wizard.Catalog // defaults to wizard.DefaultCatalog()
	Logger      *slog.Logger
	SessionTTL  time.Duration
	IdleTimeout time.Duration
	Redirect    string
}

// NewOnboardingService creates a new onboarding service
func NewOnboardingService(cfg OnboardingServiceConfig) *OnboardingService {
	if cfg.Catalog == nil {
		cfg.Catalog = wizard.DefaultCatalog()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 72 * time.Hour
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.Redirect == "" {
		cfg.Redirect = "/home"
	}
	return &OnboardingService{
		sessions:    cfg.Sessions,
		submitter:   cfg.Submitter,
		catalog:     cfg.Catalog,
		logger:      cfg.Logger,
		sessionTTL:  cfg.SessionTTL,
		idleTimeout: cfg.IdleTimeout,
		redirect:    cfg.Redirect,
		now:         time.Now,
		engines:     make(map[string]*cachedEngine),
	}
}

// Steps returns the step catalog
func (s *OnboardingService) Steps() []wizard.Step {
	return s.catalog.Steps()
}

// StartSession creates a fresh session owned by userID
func (s *OnboardingService) StartSession(ctx context.Context, userID string) (*model.OnboardingState, error) {
	session := &model.OnboardingSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresOn: s.now().Add(s.sessionTTL),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	engine, err := wizard.New(ctx, s.catalog, s.storeFor(session.ID, ""), wizard.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.engines[session.ID] = &cachedEngine{engine: engine, userID: userID, expiresOn: session.ExpiresOn, lastUsed: s.now()}
	s.mu.Unlock()

	s.logger.Info("onboarding session started",
		slog.String("user_id", userID),
	)
	return stateOf(session.ID, engine), nil
}

// GetSession returns the current state of a session
func (s *OnboardingService) GetSession(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error) {
	engine, err := s.engineFor(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return stateOf(sessionID, engine), nil
}

// UpdateAnswer records the answer for a step
func (s *OnboardingService) UpdateAnswer(ctx context.Context, userID, sessionID string, step int, value wizard.Answer) (*model.OnboardingState, error) {
	return s.mutate(ctx, userID, sessionID, func(e *wizard.Engine) error {
		return e.UpdateAnswer(ctx, step, value)
	})
}

// ToggleChoice adds or removes one option of a multi-choice step
func (s *OnboardingService) ToggleChoice(ctx context.Context, userID, sessionID string, step int, option string) (*model.OnboardingState, error) {
	return s.mutate(ctx, userID, sessionID, func(e *wizard.Engine) error {
		return e.ToggleChoice(ctx, step, option)
	})
}

// RateCategory sets one category of a category-rating step
func (s *OnboardingService) RateCategory(ctx context.Context, userID, sessionID string, step int, category string, rating int) (*model.OnboardingState, error) {
	return s.mutate(ctx, userID, sessionID, func(e *wizard.Engine) error {
		return e.RateCategory(ctx, step, category, rating)
	})
}

// Advance moves to the next step, completing the wizard at the last one
func (s *OnboardingService) Advance(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error) {
	return s.mutate(ctx, userID, sessionID, func(e *wizard.Engine) error {
		return e.Advance(ctx)
	})
}

// Retreat moves to the previous step
func (s *OnboardingService) Retreat(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error) {
	return s.mutate(ctx, userID, sessionID, func(e *wizard.Engine) error {
		return e.Retreat(ctx)
	})
}

// Reset returns the session to its initial state and clears the snapshot
func (s *OnboardingService) Reset(ctx context.Context, userID, sessionID string) (*model.OnboardingState, error) {
	return s.mutate(ctx, userID, sessionID, func(e *wizard.Engine) error {
		return e.Reset(ctx)
	})
}

// Preview builds the submission payload without submitting it
func (s *OnboardingService) Preview(ctx context.Context, userID, sessionID string) (wizard.Payload, error) {
	engine, err := s.engineFor(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return engine.BuildSubmissionPayload()
}

// Submit hands the flattened questionnaire to the profile submitter once.
// On success the session is reset; on failure the answers stay intact so
// the user can resubmit.
func (s *OnboardingService) Submit(ctx context.Context, userID, sessionID string) (*model.SubmissionResult, error) {
	engine, err := s.engineFor(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	payload, err := engine.BuildSubmissionPayload()
	if err != nil {
		return nil, err
	}

	if err := s.beginSubmit(sessionID); err != nil {
		return nil, err
	}
	defer s.endSubmit(sessionID)

	profile, err := s.submitter.SubmitPayload(ctx, userID, payload)
	if err != nil {
		s.logger.Warn("onboarding submission failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	if err := engine.Reset(ctx); err != nil {
		// The profile is stored; a stale snapshot only resurfaces old answers.
		s.logger.Warn("failed to reset submitted onboarding session",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("onboarding submitted",
		slog.String("user_id", userID),
	)
	return &model.SubmissionResult{Profile: profile, Redirect: s.redirect}, nil
}

// Subscribe streams state changes of a session. The channel is never
// closed; stop reading after calling the returned cancel func.
func (s *OnboardingService) Subscribe(ctx context.Context, userID, sessionID string) (<-chan *model.OnboardingState, func(), error) {
	engine, err := s.engineFor(ctx, userID, sessionID)
	if err != nil {
		return nil, nil, err
	}

	updates := make(chan *model.OnboardingState, 16)
	done := make(chan struct{})
	unsubscribe := engine.Subscribe(func(wizard.State) {
		state := stateOf(sessionID, engine)
		select {
		case <-done:
		case updates <- state:
		default:
			// Slow reader; it catches up on the next change.
		}
	})

	s.mu.Lock()
	if c, ok := s.engines[sessionID]; ok {
		c.subscribers++
	}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			unsubscribe()
			s.mu.Lock()
			if c, ok := s.engines[sessionID]; ok && c.engine == engine {
				c.subscribers--
				c.lastUsed = s.now()
			}
			s.mu.Unlock()
		})
	}
	return updates, cancel, nil
}

// EvictIdle drops cached engines unused for longer than the idle timeout.
// Engines with live subscribers or an in-flight submission are kept.
func (s *OnboardingService) EvictIdle(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, c := range s.engines {
		if c.subscribers > 0 || c.submitting {
			continue
		}
		if now.Sub(c.lastUsed) > s.idleTimeout {
			delete(s.engines, id)
			evicted++
		}
	}
	return evicted
}

// DeleteExpired removes sessions past their TTL from storage and memory.
// The count is of stored sessions.
func (s *OnboardingService) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	for id, c := range s.engines {
		if c.expired(now) {
			delete(s.engines, id)
		}
	}
	s.mu.Unlock()

	return s.sessions.DeleteExpired(ctx, now)
}

func (s *OnboardingService) mutate(ctx context.Context, userID, sessionID string, op func(*wizard.Engine) error) (*model.OnboardingState, error) {
	engine, err := s.engineFor(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := op(engine); err != nil {
		return nil, err
	}
	return stateOf(sessionID, engine), nil
}

// engineFor returns the cached engine for a session, rebuilding it from
// storage when it is not cached
func (s *OnboardingService) engineFor(ctx context.Context, userID, sessionID string) (*wizard.Engine, error) {
	s.mu.Lock()
	if c, ok := s.engines[sessionID]; ok {
		if c.expired(s.now()) {
			delete(s.engines, sessionID)
			s.mu.Unlock()
			return nil, ErrSessionNotFound
		}
		if c.userID != userID {
			s.mu.Unlock()
			return nil, ErrSessionForbidden
		}
		c.lastUsed = s.now()
		s.mu.Unlock()
		return c.engine, nil
	}
	s.mu.Unlock()

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil || session.IsExpired(s.now()) {
		return nil, ErrSessionNotFound
	}
	if session.UserID != userID {
		return nil, ErrSessionForbidden
	}

	engine, err := wizard.New(ctx, s.catalog, s.storeFor(sessionID, session.Snapshot), wizard.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.engines[sessionID]; ok {
		// Lost a race with a concurrent rebuild; keep the first engine.
		c.lastUsed = s.now()
		return c.engine, nil
	}
	s.engines[sessionID] = &cachedEngine{engine: engine, userID: userID, expiresOn: session.ExpiresOn, lastUsed: s.now()}
	return engine, nil
}

func (c *cachedEngine) expired(now time.Time) bool {
	return !c.expiresOn.IsZero() && now.After(c.expiresOn)
}

// extend records the sliding expiry written with a snapshot
func (s *OnboardingService) extend(sessionID string, expiresOn time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.engines[sessionID]; ok {
		c.expiresOn = expiresOn
	}
}

func (s *OnboardingService) beginSubmit(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.engines[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if c.submitting {
		return ErrSubmissionInProgress
	}
	c.submitting = true
	return nil
}

func (s *OnboardingService) endSubmit(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.engines[sessionID]; ok {
		c.submitting = false
		c.lastUsed = s.now()
	}
}

func (s *OnboardingService) storeFor(sessionID, snapshot string) *sessionStore {
	return &sessionStore{
		sessions: s.sessions,
		id:       sessionID,
		snapshot: snapshot,
		expiry:   func() time.Time { return s.now().Add(s.sessionTTL) },
		written:  func(expiresOn time.Time) { s.extend(sessionID, expiresOn) },
	}
}

// sessionStore adapts the session repository to wizard.Store. The snapshot
// read at load time is the one captured when the session was fetched.
type sessionStore struct {
	sessions SessionRepository
	id       string
	snapshot string
	expiry   func() time.Time
	written  func(expiresOn time.Time)
}

func (st *sessionStore) Load(context.Context) ([]byte, error) {
	if st.snapshot == "" {
		return nil, nil
	}
	return []byte(st.snapshot), nil
}

func (st *sessionStore) Save(ctx context.Context, snapshot []byte) error {
	expiresOn := st.expiry()
	if err := st.sessions.SaveSnapshot(ctx, st.id, string(snapshot), expiresOn); err != nil {
		return err
	}
	st.written(expiresOn)
	return nil
}

func (st *sessionStore) Clear(ctx context.Context) error {
	expiresOn := st.expiry()
	if err := st.sessions.ClearSnapshot(ctx, st.id, expiresOn); err != nil {
		return err
	}
	st.written(expiresOn)
	return nil
}

func stateOf(sessionID string, e *wizard.Engine) *model.OnboardingState {
	st := e.State()
	answers := make(map[string]any, len(st.Answers))
	for step, answer := range st.Answers {
		answers[strconv.Itoa(step)] = answer
	}
	return &model.OnboardingState{
		SessionID:            sessionID,
		CurrentStep:          st.CurrentStep,
		TotalSteps:           st.TotalSteps,
		Completed:            st.Completed,
		CompletionPercentage: e.CompletionPercentage(),
		CanAdvance:           e.CanAdvance(st.CurrentStep),
		Answers:              answers,
	}
}
