// Package schemas registers the per-event signup-extra and enrollment forms. A schema is
// plain configuration: a list of field specs plus the capabilities the labour and
// programme code query for.
package schemas

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kompassi/kompassi/internal/models"
	"github.com/kompassi/kompassi/internal/validation"
)

var ErrUnknownSchema = errors.New("unknown schema")

type Kind string

const (
	KindText        Kind = "text"
	KindChoice      Kind = "choice"
	KindMultiChoice Kind = "multichoice"
	KindBool        Kind = "bool"
	KindSlug        Kind = "slug"
)

type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Field struct {
	Name      string   `json:"name"`
	Label     string   `json:"label"`
	Kind      Kind     `json:"kind"`
	Required  bool     `json:"required"`
	MaxLength int      `json:"max_length,omitempty"`
	Choices   []Choice `json:"choices,omitempty"`
	Default   any      `json:"default,omitempty"`
}

// ApplyStateFunc updates a signup extra after the programme state of its person changed.
type ApplyStateFunc func(extra *models.SignupExtra, hasActiveProgrammeRole bool)

type Schema struct {
	Name              string
	SupportsProgramme bool

	// SpecialDiets lists the standard diets; a schema without them does not record
	// standard special diets.
	SpecialDiets     []string
	SpecialDietOther bool

	Fields     []Field
	ApplyState ApplyStateFunc
}

func (s Schema) RecordsSpecialDiets() bool {
	return len(s.SpecialDiets) > 0 || s.SpecialDietOther
}

// FieldErrors collects every invalid answer of a submitted form.
type FieldErrors []error

func (fe FieldErrors) Error() string {
	msgs := make([]string, 0, len(fe))
	for _, e := range fe {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Clean validates answers and returns them with defaults filled in. Unknown keys are dropped.
func (s Schema) Clean(answers map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(s.Fields))
	var errs FieldErrors
	for _, f := range s.Fields {
		v, err := f.clean(answers[f.Name])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[f.Name] = v
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// CleanDiets checks standard diets against the schema and returns them sorted.
func (s Schema) CleanDiets(diets []string) ([]string, error) {
	if len(diets) == 0 {
		return []string{}, nil
	}
	known := make(map[string]bool, len(s.SpecialDiets))
	for _, d := range s.SpecialDiets {
		known[d] = true
	}
	out := make([]string, 0, len(diets))
	seen := map[string]bool{}
	for _, d := range diets {
		if !known[d] {
			return nil, &validation.FieldError{Field: "special_diets", Message: fmt.Sprintf("unknown diet %q", d)}
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f Field) clean(raw any) (any, error) {
	if raw == nil {
		raw = f.Default
	}

	switch f.Kind {
	case KindBool:
		b, _ := raw.(bool)
		if f.Required && !b {
			return nil, fmt.Errorf("%s: this field is required", f.Name)
		}
		return b, nil

	case KindMultiChoice:
		values, err := stringList(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		if f.Required && len(values) == 0 {
			return nil, fmt.Errorf("%s: this field is required", f.Name)
		}
		for _, v := range values {
			if err := validation.Var(f.Name, v, f.oneOf()); err != nil {
				return nil, err
			}
		}
		return values, nil
	}

	s, ok := raw.(string)
	if raw != nil && !ok {
		return nil, fmt.Errorf("%s: expected a string", f.Name)
	}
	s = strings.TrimSpace(s)

	var tags []string
	if f.Required {
		tags = append(tags, "required")
	} else if s == "" {
		return "", nil
	}
	if f.MaxLength > 0 {
		tags = append(tags, fmt.Sprintf("max=%d", f.MaxLength))
	}
	switch f.Kind {
	case KindChoice:
		tags = append(tags, f.oneOf())
	case KindSlug:
		s = strings.ToLower(s)
		tags = append(tags, "slug")
	}
	if err := validation.Var(f.Name, s, strings.Join(tags, ",")); err != nil {
		return nil, err
	}
	return s, nil
}

func (f Field) oneOf() string {
	values := make([]string, 0, len(f.Choices))
	for _, c := range f.Choices {
		values = append(values, c.Value)
	}
	return "oneof=" + strings.Join(values, " ")
}

func stringList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errors.New("expected a list of strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errors.New("expected a list of strings")
	}
}

var (
	mu       sync.RWMutex
	registry = map[string]Schema{}
)

// Register adds s to the registry. Registering a name twice panics.
func Register(s Schema) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[s.Name]; dup {
		panic("schemas: duplicate schema " + s.Name)
	}
	if s.ApplyState == nil {
		s.ApplyState = func(*models.SignupExtra, bool) {}
	}
	registry[s.Name] = s
}

func Lookup(name string) (Schema, error) {
	mu.RLock()
	defer mu.RUnlock()
	s, ok := registry[name]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q", ErrUnknownSchema, name)
	}
	return s, nil
}

func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
