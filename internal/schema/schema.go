// Package schema validates loosely typed mappings against a declared field
// schema and decodes them into typed records.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind is the type a field's value must coerce to.
type Kind int

const (
	Float Kind = iota
	String
	Object
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case String:
		return "string"
	case Object:
		return "object"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Mapping is the read side of an ordered key/value record.
type Mapping interface {
	Get(key string) (any, bool)
	Keys() []string
}

// Map adapts a plain map to Mapping. Keys are reported in sorted order.
type Map map[string]any

func (m Map) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Field declares one entry of a Schema. Optional fields with a non-nil
// Default get that value when absent.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Default  any
	Fields   []Field // for Object
}

// Schema is a named, ordered list of fields.
type Schema struct {
	Name   string
	Fields []Field
}

// ValidationError describes one field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in one Validate call.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks m against s and returns a normalized copy with numeric
// strings coerced to float64 and defaults applied. Unknown keys are dropped.
// The returned error is a ValidationErrors when any field fails.
func (s Schema) Validate(m Mapping) (map[string]any, error) {
	var errs ValidationErrors
	out := validateFields(s.Name, s.Fields, m, &errs)
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// Decode validates m and decodes the normalized mapping into out, which must
// be a pointer to a struct whose json tags match the field names.
func (s Schema) Decode(m Mapping, out any) error {
	normalized, err := s.Validate(m)
	if err != nil {
		return err
	}
	data, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.Name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", s.Name, err)
	}
	return nil
}

func validateFields(path string, fields []Field, m Mapping, errs *ValidationErrors) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		fieldPath := path + "." + f.Name
		raw, ok := m.Get(f.Name)
		if !ok {
			switch {
			case f.Required:
				*errs = append(*errs, ValidationError{Field: fieldPath, Message: "is required"})
			case f.Default != nil:
				out[f.Name] = f.Default
			}
			continue
		}
		v, err := coerce(f, fieldPath, raw, errs)
		if err != nil {
			*errs = append(*errs, ValidationError{Field: fieldPath, Message: err.Error()})
			continue
		}
		if v != nil {
			out[f.Name] = v
		}
	}
	return out
}

func coerce(f Field, path string, raw any, errs *ValidationErrors) (any, error) {
	switch f.Kind {
	case Float:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case string:
			n, err := strconv.ParseFloat(v, 64)
			if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
				return nil, fmt.Errorf("expected float, got %q", v)
			}
			return n, nil
		}
		return nil, fmt.Errorf("expected float, got %T", raw)
	case String:
		switch v := raw.(type) {
		case string:
			return v, nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		}
		return nil, fmt.Errorf("expected string, got %T", raw)
	case Object:
		sub, ok := raw.(Mapping)
		if m, isMap := raw.(map[string]any); isMap {
			sub, ok = Map(m), true
		}
		if !ok {
			return nil, fmt.Errorf("expected object, got %T", raw)
		}
		before := len(*errs)
		out := validateFields(path, f.Fields, sub, errs)
		if len(*errs) > before {
			return nil, nil
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported kind %s", f.Kind)
}
