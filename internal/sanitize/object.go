package sanitize

import (
	"fmt"

	"github.com/nateschmiedehaus/librarian/internal/model"
)

// FieldKind names the primitive shape a declared schema field must take.
type FieldKind string

const (
	FieldString FieldKind = "string"
	FieldNumber FieldKind = "number"
	FieldBool   FieldKind = "bool"
	FieldArray  FieldKind = "array"
	FieldObject FieldKind = "object"
)

// FieldSpec declares one field of an object schema.
type FieldSpec struct {
	Name     string
	Kind     FieldKind
	Required bool
}

// Schema declares the fields an object is allowed to carry.
// AllowAdditional controls whether keys outside Fields are permitted
// (passed through unchecked) or rejected (validation error) — per §4.9's "explicit
// handling of additional properties".
type Schema struct {
	Fields          []FieldSpec
	AllowAdditional bool
}

// Object validates raw (typically a map[string]any decoded from JSON)
// against schema, returning a copy containing only declared (or, if
// AllowAdditional, all) fields whose kinds matched.
func Object(raw map[string]any, schema Schema) (map[string]any, error) {
	out := make(map[string]any, len(schema.Fields))
	declared := make(map[string]FieldSpec, len(schema.Fields))
	for _, f := range schema.Fields {
		declared[f.Name] = f
	}

	for _, f := range schema.Fields {
		v, present := raw[f.Name]
		if !present {
			if f.Required {
				return nil, &model.ValidationError{Field: f.Name, Reason: "required field missing"}
			}
			continue
		}
		if !kindMatches(v, f.Kind) {
			return nil, &model.ValidationError{Field: f.Name, Reason: fmt.Sprintf("expected %s", f.Kind)}
		}
		out[f.Name] = v
	}

	for k, v := range raw {
		if _, ok := declared[k]; ok {
			continue
		}
		if !schema.AllowAdditional {
			return nil, &model.ValidationError{Field: k, Reason: "additional property not permitted"}
		}
		out[k] = v
	}
	return out, nil
}

func kindMatches(v any, kind FieldKind) bool {
	switch kind {
	case FieldString:
		_, ok := v.(string)
		return ok
	case FieldNumber:
		switch v.(type) {
		case float64, float32, int, int64:
			return true
		default:
			return false
		}
	case FieldBool:
		_, ok := v.(bool)
		return ok
	case FieldArray:
		_, ok := v.([]any)
		return ok
	case FieldObject:
		_, ok := v.(map[string]any)
		return ok
	default:
		return false
	}
}
