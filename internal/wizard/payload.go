package wizard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Payload is the flattened, backend-facing form of the answers. Every step
// expands into one or more named fields; category steps expand into one
// field per category. Values are ints, strings or string slices.
type Payload map[string]any

// flattenSnapshot writes only the steps that have a recorded answer, with no
// defaults filled in. This is what the session store holds.
func (c *Catalog) flattenSnapshot(answers map[int]Answer) Payload {
	p := make(Payload)
	for _, step := range c.steps {
		if a, ok := answers[step.Number]; ok {
			writeStep(p, step, a)
		}
	}
	return p
}

// flattenSubmission writes every required field. Unanswered scalar steps
// contribute their default; a gated step that cannot advance contributes
// nothing and all its fields are reported missing. Fields holding a value
// outside the step's bounds are reported as invalid.
func (c *Catalog) flattenSubmission(answers map[int]Answer) (Payload, error) {
	p := make(Payload, len(c.fields))
	var missing, invalid []string

	for _, step := range c.steps {
		a := answers[step.Number]
		if a == nil && step.Kind == KindScalar {
			a = ScalarRating(step.Default)
		}
		if !stepValid(step, a) {
			missing = append(missing, step.Fields()...)
			continue
		}
		if bad := outOfBounds(step, a); len(bad) > 0 {
			invalid = append(invalid, bad...)
			continue
		}
		writeStep(p, step, a)
	}

	if len(missing) > 0 || len(invalid) > 0 {
		return nil, &MissingFieldsError{Fields: missing, Invalid: invalid}
	}
	return p, nil
}

func writeStep(p Payload, step Step, a Answer) {
	switch v := a.(type) {
	case ScalarRating:
		p[step.Field] = int(v)
	case CategoryRatings:
		for _, opt := range step.Options {
			rating, ok := v[opt.Key]
			if !ok {
				rating = step.Default
			}
			p[step.FieldPrefix+opt.Key] = rating
		}
	case SingleChoice:
		p[step.Field] = string(v)
	case MultiChoice:
		keys := make([]string, len(v))
		copy(keys, v)
		p[step.Field] = keys
	}
}

// unflatten maps every known field back to its originating step. Unknown
// fields are ignored. Values are decoded by shape only: anything an answer
// of the step's kind can hold is kept, including ratings out of range and
// selections over the cap, since UpdateAnswer records those too. Bounds are
// enforced at submission. A value of the wrong shape fails the whole payload.
func (c *Catalog) unflatten(p Payload) (map[int]Answer, error) {
	answers := make(map[int]Answer)
	ratings := make(map[int]CategoryRatings)

	// Sorted for deterministic error messages
	fields := make([]string, 0, len(p))
	for field := range p {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		ref, ok := c.byField[field]
		if !ok {
			continue
		}
		step := c.steps[ref.step-1]
		raw := p[field]

		switch step.Kind {
		case KindScalar:
			v, ok := intValue(raw)
			if !ok {
				return nil, fmt.Errorf("%w: field %s: bad rating %v", ErrCorruptSnapshot, field, raw)
			}
			answers[step.Number] = ScalarRating(v)

		case KindCategory:
			v, ok := intValue(raw)
			if !ok {
				return nil, fmt.Errorf("%w: field %s: bad rating %v", ErrCorruptSnapshot, field, raw)
			}
			r := ratings[step.Number]
			if r == nil {
				r = make(CategoryRatings)
				ratings[step.Number] = r
			}
			if v != step.Default {
				r[ref.category] = v
			}

		case KindSingle:
			v, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%w: field %s: bad choice %v", ErrCorruptSnapshot, field, raw)
			}
			answers[step.Number] = SingleChoice(v)

		case KindMulti:
			keys, ok := stringSlice(raw)
			if !ok {
				return nil, fmt.Errorf("%w: field %s: bad selection %v", ErrCorruptSnapshot, field, raw)
			}
			answers[step.Number] = MultiChoice(keys)
		}
	}

	for n, r := range ratings {
		answers[n] = r
	}
	return answers, nil
}

// position derives the step a fresh traversal would reach having answered
// the given steps: one past the last answered step, but no further than the
// first gated step that cannot advance.
func (c *Catalog) position(answers map[int]Answer) int {
	last := 0
	for n := range answers {
		if n > last {
			last = n
		}
	}
	pos := min(last+1, len(c.steps))
	for n := 1; n < pos; n++ {
		if !stepValid(c.steps[n-1], answers[n]) {
			return n
		}
	}
	return pos
}

// Rehydrate rebuilds an in-progress state from a flattened payload
func Rehydrate(c *Catalog, p Payload) (State, error) {
	answers, err := c.unflatten(p)
	if err != nil {
		return State{}, err
	}
	return State{
		CurrentStep: c.position(answers),
		TotalSteps:  c.Len(),
		Answers:     answers,
	}, nil
}

// NormalizePayload checks an externally built payload and returns it in
// canonical submission form. Unknown fields are rejected; missing and
// out-of-bounds fields are reported together as a *MissingFieldsError.
func NormalizePayload(c *Catalog, p Payload) (Payload, error) {
	var unknown []string
	for field := range p {
		if _, ok := c.byField[field]; !ok {
			unknown = append(unknown, field)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %v", ErrUnknownField, unknown)
	}

	answers, err := c.unflatten(p)
	if err != nil {
		return nil, err
	}
	return c.flattenSubmission(answers)
}

// EncodePayload serializes a payload for storage
func EncodePayload(p Payload) ([]byte, error) {
	return json.Marshal(p)
}

// DecodePayload parses a stored payload. Numbers are kept exact.
func DecodePayload(data []byte) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: not an object", ErrCorruptSnapshot)
	}
	return p, nil
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

func stringSlice(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		out := make([]string, len(s))
		copy(out, s)
		return out, true
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	}
	return nil, false
}
