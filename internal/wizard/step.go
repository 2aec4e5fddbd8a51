package wizard

import (
	"fmt"
)

// StepKind identifies how a step collects its answer
type StepKind string

const (
	KindScalar   StepKind = "scalar"
	KindCategory StepKind = "category_ratings"
	KindSingle   StepKind = "single_choice"
	KindMulti    StepKind = "multi_choice"
)

// Option is a selectable choice or a rated category
type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Step describes one page of the questionnaire
type Step struct {
	Number int      `json:"number"`
	Key    string   `json:"key"`
	Title  string   `json:"title"`
	Prompt string   `json:"prompt"`
	Kind   StepKind `json:"kind"`

	// Field is the output field of scalar, single and multi steps.
	// Category steps emit FieldPrefix + option key for every option.
	Field       string `json:"field,omitempty"`
	FieldPrefix string `json:"field_prefix,omitempty"`

	// Options are the choices of single and multi steps, or the rated
	// categories of a category step.
	Options []Option `json:"options,omitempty"`

	// Rating bounds for scalar and category steps
	Min      int    `json:"min,omitempty"`
	Max      int    `json:"max,omitempty"`
	Default  int    `json:"default,omitempty"`
	MinLabel string `json:"min_label,omitempty"`
	MaxLabel string `json:"max_label,omitempty"`

	MaxSelections int `json:"max_selections,omitempty"` // multi
	MaxElevated   int `json:"max_elevated,omitempty"`   // category
}

// Fields returns the output field names this step contributes, in order
func (s Step) Fields() []string {
	if s.Kind == KindCategory {
		fields := make([]string, len(s.Options))
		for i, opt := range s.Options {
			fields[i] = s.FieldPrefix + opt.Key
		}
		return fields
	}
	return []string{s.Field}
}

// HasOption reports whether key is one of the step's options
func (s Step) HasOption(key string) bool {
	for _, opt := range s.Options {
		if opt.Key == key {
			return true
		}
	}
	return false
}

// InRange reports whether v is a valid rating for the step
func (s Step) InRange(v int) bool {
	return v >= s.Min && v <= s.Max
}

// Gated reports whether the step needs an explicit selection before advancing
func (s Step) Gated() bool {
	return s.Kind != KindScalar
}

func (s Step) validate() error {
	switch s.Kind {
	case KindScalar:
		if s.Field == "" {
			return fmt.Errorf("step %d: field required", s.Number)
		}
		if s.Min > s.Max || !s.InRange(s.Default) {
			return fmt.Errorf("step %d: default %d outside %d..%d", s.Number, s.Default, s.Min, s.Max)
		}
	case KindCategory:
		if s.FieldPrefix == "" || len(s.Options) == 0 {
			return fmt.Errorf("step %d: field prefix and categories required", s.Number)
		}
		if s.Min > s.Max || !s.InRange(s.Default) {
			return fmt.Errorf("step %d: default %d outside %d..%d", s.Number, s.Default, s.Min, s.Max)
		}
		if s.Default == s.Max {
			return fmt.Errorf("step %d: default leaves no room to elevate", s.Number)
		}
		if s.MaxElevated <= 0 {
			return fmt.Errorf("step %d: max elevated must be positive", s.Number)
		}
	case KindSingle:
		if s.Field == "" || len(s.Options) == 0 {
			return fmt.Errorf("step %d: field and options required", s.Number)
		}
	case KindMulti:
		if s.Field == "" || len(s.Options) == 0 {
			return fmt.Errorf("step %d: field and options required", s.Number)
		}
		if s.MaxSelections <= 0 {
			return fmt.Errorf("step %d: max selections must be positive", s.Number)
		}
	default:
		return fmt.Errorf("step %d: unknown kind %q", s.Number, s.Kind)
	}

	seen := make(map[string]bool, len(s.Options))
	for _, opt := range s.Options {
		if opt.Key == "" || seen[opt.Key] {
			return fmt.Errorf("step %d: empty or duplicate option %q", s.Number, opt.Key)
		}
		seen[opt.Key] = true
	}
	return nil
}

// fieldRef locates the step (and category, for category steps) a flattened
// field came from
type fieldRef struct {
	step     int
	category string
}

// Catalog is a fixed, ordered list of steps numbered from 1
type Catalog struct {
	steps   []Step
	byField map[string]fieldRef
	fields  []string
}

// NewCatalog validates the steps and builds a catalog.
// Steps must be numbered 1..n in order and output fields must be unique.
func NewCatalog(steps ...Step) (*Catalog, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: no steps", ErrInvalidCatalog)
	}

	c := &Catalog{
		steps:   make([]Step, len(steps)),
		byField: make(map[string]fieldRef),
	}
	copy(c.steps, steps)

	for i, s := range c.steps {
		if s.Number != i+1 {
			return nil, fmt.Errorf("%w: step at position %d numbered %d", ErrInvalidCatalog, i+1, s.Number)
		}
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
		}
		for j, field := range s.Fields() {
			if _, dup := c.byField[field]; dup {
				return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidCatalog, field)
			}
			ref := fieldRef{step: s.Number}
			if s.Kind == KindCategory {
				ref.category = s.Options[j].Key
			}
			c.byField[field] = ref
			c.fields = append(c.fields, field)
		}
	}

	return c, nil
}

// Len returns the number of steps
func (c *Catalog) Len() int {
	return len(c.steps)
}

// Step returns the step with the given 1-based number
func (c *Catalog) Step(n int) (Step, bool) {
	if n < 1 || n > len(c.steps) {
		return Step{}, false
	}
	return c.steps[n-1], true
}

// Steps returns a copy of all steps in order
func (c *Catalog) Steps() []Step {
	out := make([]Step, len(c.steps))
	copy(out, c.steps)
	return out
}

// RequiredFields returns every output field of the submission payload, in
// step order
func (c *Catalog) RequiredFields() []string {
	out := make([]string, len(c.fields))
	copy(out, c.fields)
	return out
}
