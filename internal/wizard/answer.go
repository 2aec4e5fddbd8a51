package wizard

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Answer is the value recorded for a step. The concrete type must match
// the step's kind.
type Answer interface {
	Kind() StepKind
	clone() Answer
}

// ScalarRating is a single slider position
type ScalarRating int

// CategoryRatings maps category keys to slider positions.
// Ratings left at the step default are dropped when recorded.
type CategoryRatings map[string]int

// SingleChoice is one option key
type SingleChoice string

// MultiChoice is a set of option keys in selection order
type MultiChoice []string

func (ScalarRating) Kind() StepKind    { return KindScalar }
func (CategoryRatings) Kind() StepKind { return KindCategory }
func (SingleChoice) Kind() StepKind    { return KindSingle }
func (MultiChoice) Kind() StepKind     { return KindMulti }

func (a ScalarRating) clone() Answer { return a }
func (a SingleChoice) clone() Answer { return a }

func (a CategoryRatings) clone() Answer {
	out := make(CategoryRatings, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

func (a MultiChoice) clone() Answer {
	out := make(MultiChoice, len(a))
	copy(out, a)
	return out
}

// Contains reports whether key is selected
func (a MultiChoice) Contains(key string) bool {
	for _, k := range a {
		if k == key {
			return true
		}
	}
	return false
}

// elevated counts ratings above def
func (a CategoryRatings) elevated(def int) int {
	n := 0
	for _, v := range a {
		if v > def {
			n++
		}
	}
	return n
}

// canonical drops category entries left at the default so equal answers
// compare equal regardless of how they were built
func canonical(step Step, a Answer) Answer {
	r, ok := a.(CategoryRatings)
	if !ok {
		return a.clone()
	}
	out := make(CategoryRatings, len(r))
	for k, v := range r {
		if v != step.Default {
			out[k] = v
		}
	}
	return out
}

// Multi-choice answers are sets, so selection order is ignored
var answerCmpOpts = cmp.Options{
	cmpopts.SortSlices(func(a, b string) bool { return a < b }),
	cmpopts.EquateEmpty(),
}

func answersEqual(a, b Answer) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return cmp.Equal(a, b, answerCmpOpts)
}

func cloneAnswers(in map[int]Answer) map[int]Answer {
	out := make(map[int]Answer, len(in))
	for k, v := range in {
		out[k] = v.clone()
	}
	return out
}
