// Package schema validates catalog payloads against per-entity field
// descriptors and renders stored records back in field order.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/totegamma/gamecatalog/internal/domain"
	"github.com/totegamma/gamecatalog/internal/utils"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// bcrypt rejects secrets longer than 72 bytes whatever their rune count
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	return v
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

type Kind int

const (
	String Kind = iota
	Integer
	Number
	Boolean
	StringList
)

func (k Kind) String() string {
	switch k {
	case String:
		return "a string"
	case Integer:
		return "an integer"
	case Number:
		return "a number"
	case Boolean:
		return "a boolean"
	case StringList:
		return "a list of strings"
	default:
		return "unknown"
	}
}

// Field describes one accepted payload field.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	// Rules is a validator tag expression, e.g. "min=1,max=100".
	Rules string
	// Sensitive fields are hashed before storage and never rendered.
	Sensitive bool
	// Transform rewrites a string value after trimming.
	Transform func(string) string
}

// Entity describes one catalog resource type.
type Entity struct {
	// Name is the plural path prefix and collection name, e.g. "teams".
	Name     string
	Singular string
	Fields   []Field
}

// Payload is a validated, normalized request body.
type Payload map[string]any

// ValidateFull checks a creation payload: every required field must be present.
func (e Entity) ValidateFull(body []byte) (Payload, error) {
	return e.validate(body, false)
}

// ValidatePartial checks an update payload: any non-empty subset of fields.
func (e Entity) ValidatePartial(body []byte) (Payload, error) {
	return e.validate(body, true)
}

func (e Entity) validate(body []byte, partial bool) (Payload, error) {
	raw, err := decodeObject(body)
	if err != nil {
		return nil, err
	}

	unknown := make([]string, 0)
	for key := range raw {
		if _, ok := e.Field(key); !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, domain.NewValidationError(fmt.Sprintf("%q is not an allowed field", unknown[0]))
	}

	out := make(Payload, len(raw))
	for _, f := range e.Fields {
		value, ok := raw[f.Name]
		if !ok {
			if f.Required && !partial {
				return nil, domain.NewValidationError(fmt.Sprintf("%s is required", f.Name))
			}
			continue
		}

		normalized, err := f.normalize(value)
		if err != nil {
			return nil, err
		}

		if f.Rules != "" {
			if err := validate.Var(normalized, f.Rules); err != nil {
				return nil, ruleError(f, err)
			}
		}
		out[f.Name] = normalized
	}

	if partial && len(out) == 0 {
		return nil, domain.NewValidationError("at least one field must be provided")
	}

	return out, nil
}

func decodeObject(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, domain.NewValidationError("payload must be a JSON object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, domain.NewValidationError("payload must contain a single JSON object")
	}
	return raw, nil
}

func (f Field) normalize(value any) (any, error) {
	typeErr := domain.NewValidationError(fmt.Sprintf("%s must be %s", f.Name, f.Kind))
	if value == nil {
		return nil, typeErr
	}

	switch f.Kind {
	case String:
		s, ok := value.(string)
		if !ok {
			return nil, typeErr
		}
		s = strings.TrimSpace(s)
		if f.Transform != nil {
			s = f.Transform(s)
		}
		return s, nil

	case Integer:
		n, ok := value.(json.Number)
		if !ok {
			return nil, typeErr
		}
		i, err := n.Int64()
		if err != nil {
			return nil, typeErr
		}
		return i, nil

	case Number:
		n, ok := value.(json.Number)
		if !ok {
			return nil, typeErr
		}
		v, err := n.Float64()
		if err != nil {
			return nil, typeErr
		}
		return v, nil

	case Boolean:
		b, ok := value.(bool)
		if !ok {
			return nil, typeErr
		}
		return b, nil

	case StringList:
		items, ok := value.([]any)
		if !ok {
			return nil, typeErr
		}
		list := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, typeErr
			}
			list = append(list, strings.TrimSpace(s))
		}
		return list, nil
	}

	return nil, typeErr
}

// Field looks a field descriptor up by name.
func (e Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames lists every field in schema order.
func (e Entity) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Name)
	}
	return names
}

// SensitiveFieldNames lists the fields that must never be rendered.
func (e Entity) SensitiveFieldNames() []string {
	var names []string
	for _, f := range e.Fields {
		if f.Sensitive {
			names = append(names, f.Name)
		}
	}
	return names
}

// Render lays r out as _id followed by the schema fields in order.
// Sensitive and unknown stored fields are left out.
func (e Entity) Render(r domain.Record) *utils.OrderedMap[any] {
	om := utils.NewOrderedMap[any](len(e.Fields) + 1)
	if r.ID != "" {
		om.Set(domain.IDField, r.ID)
	}
	for _, f := range e.Fields {
		if f.Sensitive {
			continue
		}
		if v, ok := r.Fields[f.Name]; ok {
			om.Set(f.Name, v)
		}
	}
	return om
}

// RenderAll renders a list, never returning nil so it encodes as [].
func (e Entity) RenderAll(records []domain.Record) []*utils.OrderedMap[any] {
	out := make([]*utils.OrderedMap[any], 0, len(records))
	for _, r := range records {
		out = append(out, e.Render(r))
	}
	return out
}
