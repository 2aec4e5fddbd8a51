// Package wizard implements the onboarding questionnaire engine.
//
// The engine tracks which step of a fixed, ordered questionnaire is active,
// records one answer per step, gates forward progress on per-step validity,
// and flattens the accumulated answers into the field map submitted to the
// profile endpoint.
//
// # State
//
// An Engine holds a State:
//
//	State{CurrentStep: 1, TotalSteps: 11, Answers: {}, Completed: false}
//
// It is mutated only through its command methods (UpdateAnswer, ToggleChoice,
// RateCategory, Advance, Retreat, Reset). Commands that would not change the
// state are no-ops: nothing is persisted and no listener is called.
//
// Listeners registered with Subscribe receive a copy of the State after every
// change. The engine does not depend on any rendering layer.
//
// # Answers
//
// Answer is a closed union over four kinds:
//
//   - ScalarRating: a slider position with a default value
//   - CategoryRatings: several sliders, at most MaxElevated above default
//   - SingleChoice: one option key
//   - MultiChoice: a set of option keys, at most MaxSelections entries
//
// Validation happens at the transition boundary (CanAdvance) and at
// submission time (BuildSubmissionPayload), never at write time. The two
// selection helpers, ToggleChoice and RateCategory, enforce their caps by
// rejecting the change.
//
// # Persistence
//
// A Store is injected at construction. The engine writes the flattened
// snapshot of its answers on every answer change and reads it once in New.
// A snapshot that cannot be decoded is discarded and the engine starts from
// the initial state:
//
//	engine, err := wizard.New(ctx, wizard.DefaultCatalog(), store)
//	if err != nil {
//	    return err
//	}
//	_ = engine.UpdateAnswer(ctx, 6, wizard.SingleChoice("mentorship"))
//	if engine.CanAdvance(6) {
//	    _ = engine.Advance(ctx)
//	}
package wizard
