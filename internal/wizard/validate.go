package wizard

import "sort"

// validator decides whether a step's recorded answer allows advancing.
// a is nil when nothing has been recorded.
type validator func(step Step, a Answer) bool

// validators holds the advancement rule for each step kind. Scalar steps
// have a default value, so they never block.
var validators = map[StepKind]validator{
	KindScalar: func(Step, Answer) bool {
		return true
	},
	KindCategory: func(step Step, a Answer) bool {
		r, ok := a.(CategoryRatings)
		return ok && r.elevated(step.Default) > 0
	},
	KindSingle: func(_ Step, a Answer) bool {
		v, ok := a.(SingleChoice)
		return ok && v != ""
	},
	// The upper bound is enforced by ToggleChoice, not here
	KindMulti: func(_ Step, a Answer) bool {
		v, ok := a.(MultiChoice)
		return ok && len(v) > 0
	},
}

func stepValid(step Step, a Answer) bool {
	v, ok := validators[step.Kind]
	if !ok {
		return false
	}
	return v(step, a)
}

// outOfBounds lists the output fields of step whose recorded value could
// not have come from the selection helpers: a rating outside Min..Max, an
// unknown option, a repeated selection, or more selections or elevated
// ratings than the step allows.
func outOfBounds(step Step, a Answer) []string {
	switch v := a.(type) {
	case ScalarRating:
		if !step.InRange(int(v)) {
			return []string{step.Field}
		}
	case CategoryRatings:
		var bad []string
		for key, rating := range v {
			if !step.HasOption(key) || !step.InRange(rating) {
				bad = append(bad, step.FieldPrefix+key)
			}
		}
		if len(bad) > 0 {
			sort.Strings(bad)
			return bad
		}
		if v.elevated(step.Default) > step.MaxElevated {
			return step.Fields()
		}
	case SingleChoice:
		if !step.HasOption(string(v)) {
			return []string{step.Field}
		}
	case MultiChoice:
		if len(v) > step.MaxSelections {
			return []string{step.Field}
		}
		seen := make(map[string]bool, len(v))
		for _, key := range v {
			if !step.HasOption(key) || seen[key] {
				return []string{step.Field}
			}
			seen[key] = true
		}
	}
	return nil
}
