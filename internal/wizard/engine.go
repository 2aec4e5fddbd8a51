package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
)

// Store persists the flattened snapshot for the lifetime of one session.
// Load returns nil data when nothing has been saved.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, snapshot []byte) error
	Clear(ctx context.Context) error
}

// State is a point-in-time copy of the engine state
type State struct {
	CurrentStep int
	TotalSteps  int
	Answers     map[int]Answer
	Completed   bool
}

// Clone returns a deep copy
func (s State) Clone() State {
	s.Answers = cloneAnswers(s.Answers)
	return s
}

// Listener is called with a copy of the state after every change
type Listener func(State)

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithLogger sets the logger used for snapshot recovery warnings
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Engine owns step sequencing and answer accumulation for one session.
// It is safe for concurrent use, although a session normally drives it from
// a single caller.
type Engine struct {
	mu        sync.Mutex
	catalog   *Catalog
	store     Store
	logger    *slog.Logger
	state     State
	version   uint64
	listeners map[uint64]Listener
	nextID    uint64
}

// New creates an engine and rehydrates it from the store. A snapshot that
// cannot be decoded is discarded and the engine starts from step 1; only a
// failure to read the store is returned.
func New(ctx context.Context, catalog *Catalog, store Store, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		catalog:   catalog,
		store:     store,
		logger:    slog.Default(),
		state:     initialState(catalog),
		listeners: make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(e)
	}

	data, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if len(data) == 0 {
		return e, nil
	}

	state, err := e.restore(data)
	if err != nil {
		e.logger.Warn("discarding onboarding snapshot",
			slog.String("error", err.Error()),
			slog.Int("bytes", len(data)),
		)
		if clearErr := store.Clear(ctx); clearErr != nil {
			e.logger.Warn("failed to clear onboarding snapshot",
				slog.String("error", clearErr.Error()),
			)
		}
		return e, nil
	}

	e.state = state
	return e, nil
}

func initialState(c *Catalog) State {
	return State{
		CurrentStep: 1,
		TotalSteps:  c.Len(),
		Answers:     make(map[int]Answer),
	}
}

func (e *Engine) restore(data []byte) (State, error) {
	p, err := DecodePayload(data)
	if err != nil {
		return State{}, err
	}
	return Rehydrate(e.catalog, p)
}

// Catalog returns the step catalog the engine runs
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// State returns a copy of the current state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Version increases by one on every state change. Repeated identical
// writes leave it untouched.
func (e *Engine) Version() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// Subscribe registers a listener and returns a function that removes it
func (e *Engine) Subscribe(listener Listener) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = listener
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.listeners, id)
			e.mu.Unlock()
		})
	}
}

// UpdateAnswer records value for step unless it equals the current answer.
// Values are not validated here; CanAdvance and BuildSubmissionPayload do
// that. The returned error is non-nil only for an unknown step, an answer
// of the wrong kind, or a failed snapshot write (the in-memory state is
// updated regardless).
func (e *Engine) UpdateAnswer(ctx context.Context, step int, value Answer) error {
	s, ok := e.catalog.Step(step)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownStep, step)
	}
	if value == nil || value.Kind() != s.Kind {
		return fmt.Errorf("%w: step %d expects %s", ErrAnswerKind, step, s.Kind)
	}

	e.mu.Lock()
	changed, err := e.setAnswerLocked(ctx, s, value)
	e.mu.Unlock()

	if changed {
		e.notify()
	}
	return err
}

// ToggleChoice adds key to a multi-choice answer, or removes it if already
// selected. Adding beyond the step's cap returns ErrSelectionLimit and
// leaves the selection unchanged.
func (e *Engine) ToggleChoice(ctx context.Context, step int, key string) error {
	s, ok := e.catalog.Step(step)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownStep, step)
	}
	if s.Kind != KindMulti {
		return fmt.Errorf("%w: step %d is %s", ErrAnswerKind, step, s.Kind)
	}
	if !s.HasOption(key) {
		return fmt.Errorf("%w: %q", ErrUnknownOption, key)
	}

	e.mu.Lock()
	current, _ := e.state.Answers[step].(MultiChoice)

	var next MultiChoice
	if current.Contains(key) {
		next = make(MultiChoice, 0, len(current)-1)
		for _, k := range current {
			if k != key {
				next = append(next, k)
			}
		}
	} else {
		if len(current) >= s.MaxSelections {
			e.mu.Unlock()
			return fmt.Errorf("%w: at most %d", ErrSelectionLimit, s.MaxSelections)
		}
		next = append(current.clone().(MultiChoice), key)
	}

	changed, err := e.setAnswerLocked(ctx, s, next)
	e.mu.Unlock()

	if changed {
		e.notify()
	}
	return err
}

// RateCategory sets one category of a category-rating step. Raising a
// category above the default when MaxElevated categories are already
// raised returns ErrElevationLimit and leaves the ratings unchanged.
func (e *Engine) RateCategory(ctx context.Context, step int, category string, rating int) error {
	s, ok := e.catalog.Step(step)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownStep, step)
	}
	if s.Kind != KindCategory {
		return fmt.Errorf("%w: step %d is %s", ErrAnswerKind, step, s.Kind)
	}
	if !s.HasOption(category) {
		return fmt.Errorf("%w: %q", ErrUnknownOption, category)
	}
	if !s.InRange(rating) {
		return fmt.Errorf("%w: %d not in %d..%d", ErrRatingRange, rating, s.Min, s.Max)
	}

	e.mu.Lock()
	current, _ := e.state.Answers[step].(CategoryRatings)
	wasElevated := current[category] > s.Default
	if rating > s.Default && !wasElevated && current.elevated(s.Default) >= s.MaxElevated {
		e.mu.Unlock()
		return fmt.Errorf("%w: at most %d", ErrElevationLimit, s.MaxElevated)
	}

	next := current.clone().(CategoryRatings)
	next[category] = rating

	changed, err := e.setAnswerLocked(ctx, s, next)
	e.mu.Unlock()

	if changed {
		e.notify()
	}
	return err
}

// setAnswerLocked stores value and writes the snapshot when it differs from
// the recorded answer. Callers hold e.mu.
func (e *Engine) setAnswerLocked(ctx context.Context, s Step, value Answer) (bool, error) {
	value = canonical(s, value)
	if current, ok := e.state.Answers[s.Number]; ok && answersEqual(current, value) {
		return false, nil
	}

	e.state.Answers[s.Number] = value
	e.version++

	data, err := EncodePayload(e.catalog.flattenSnapshot(e.state.Answers))
	if err != nil {
		return true, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := e.store.Save(ctx, data); err != nil {
		return true, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return true, nil
}

// CanAdvance reports whether the answer recorded for step allows moving on.
// Unknown steps never can.
func (e *Engine) CanAdvance(step int) bool {
	s, ok := e.catalog.Step(step)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return stepValid(s, e.state.Answers[step])
}

// Advance moves to the next step, or marks the flow completed when already
// on the last one. It does not consult CanAdvance; callers gate it.
func (e *Engine) Advance(ctx context.Context) error {
	e.mu.Lock()
	if e.state.Completed {
		e.mu.Unlock()
		return nil
	}
	if e.state.CurrentStep < e.state.TotalSteps {
		e.state.CurrentStep++
	} else {
		e.state.Completed = true
	}
	e.version++
	e.mu.Unlock()

	e.notify()
	return nil
}

// Retreat moves to the previous step. It is a no-op on the first step and
// once the flow is completed.
func (e *Engine) Retreat(ctx context.Context) error {
	e.mu.Lock()
	if e.state.Completed || e.state.CurrentStep <= 1 {
		e.mu.Unlock()
		return nil
	}
	e.state.CurrentStep--
	e.version++
	e.mu.Unlock()

	e.notify()
	return nil
}

// Reset restores the initial state and clears the persisted snapshot
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	changed := e.state.CurrentStep != 1 || e.state.Completed || len(e.state.Answers) > 0
	if changed {
		e.state = initialState(e.catalog)
		e.version++
	}
	err := e.store.Clear(ctx)
	e.mu.Unlock()

	if changed {
		e.notify()
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// CompletionPercentage reports progress through the flow by position, not
// by how many steps hold valid answers.
func (e *Engine) CompletionPercentage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int(math.Round(float64(e.state.CurrentStep) / float64(e.state.TotalSteps) * 100))
}

// BuildSubmissionPayload flattens the answers into the submission field set.
// If any required field is absent, or holds a value the selection helpers
// would have refused, it returns a *MissingFieldsError naming all of them.
func (e *Engine) BuildSubmissionPayload() (Payload, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.catalog.flattenSubmission(e.state.Answers)
}

func (e *Engine) notify() {
	e.mu.Lock()
	state := e.state.Clone()
	listeners := make([]Listener, 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, l)
	}
	e.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}
