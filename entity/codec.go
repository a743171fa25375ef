// ABOUTME: Typed conversion between entity structs, UI value maps, and storage records
// ABOUTME: Round-trips through JSON so struct tags stay the single source of UI names

package entity

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/harperreed/pagen-admin/schema"
	"github.com/harperreed/pagen-admin/store"
)

// Entity is anything with an integer identity.
type Entity interface {
	Identity() int64
}

// Codec converts one entity type to and from its schema.
type Codec[T Entity] struct {
	mapping *schema.Mapping
}

// NewCodec binds the mapping to T, failing on any field the struct lacks.
func NewCodec[T Entity](m *schema.Mapping) (*Codec[T], error) {
	var zero T
	if err := m.Bind(reflect.TypeOf(zero)); err != nil {
		return nil, err
	}
	return &Codec[T]{mapping: m}, nil
}

// MustCodec is NewCodec for package-level wiring.
func MustCodec[T Entity](m *schema.Mapping) *Codec[T] {
	c, err := NewCodec[T](m)
	if err != nil {
		panic(err)
	}
	return c
}

// Mapping exposes the bound schema table.
func (c *Codec[T]) Mapping() *schema.Mapping { return c.mapping }

// Values flattens an entity into a UI-named map.
func (c *Codec[T]) Values(v T) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// FromValues builds an entity from a UI-named map.
func (c *Codec[T]) FromValues(values map[string]any) (T, error) {
	var out T
	data, err := json.Marshal(c.normalize(values))
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("%s: %w", c.mapping.Collection(), err)
	}
	return out, nil
}

// Check reports every value that would not decode into T, so callers can
// reject input before it reaches the store.
func (c *Codec[T]) Check(values map[string]any) FieldErrors {
	errs := FieldErrors{}
	for k, v := range values {
		f, ok := c.mapping.Field(k)
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && s != "" && f.Kind() != schema.KindString && f.Kind() != schema.KindJSON {
			if _, err := c.mapping.Coerce(k, s); err != nil {
				errs.Add(k, kindMessage(f.Kind()))
			}
			continue
		}
		if _, err := c.FromValues(map[string]any{k: v}); err != nil {
			errs.Add(k, kindMessage(f.Kind()))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func kindMessage(k schema.Kind) string {
	switch k {
	case schema.KindInt:
		return "must be a whole number"
	case schema.KindFloat:
		return "must be a number"
	case schema.KindBool:
		return "must be true or false"
	case schema.KindTime:
		return "must be a date"
	}
	return "has the wrong type"
}

// Decode converts a storage record into an entity.
func (c *Codec[T]) Decode(rec store.Record) (T, error) {
	values, err := c.mapping.FromStorage(rec)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.FromValues(values)
}

// Encode converts UI-named values into a storage record.
func (c *Codec[T]) Encode(values map[string]any) (store.Record, error) {
	return c.mapping.ToStorage(values)
}

// normalize reshapes loosely typed backend values to the struct's kinds:
// numeric strings become numbers, empty strings in typed fields are dropped,
// and scalars in string fields are stringified.
func (c *Codec[T]) normalize(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		f, ok := c.mapping.Field(k)
		if !ok || v == nil {
			out[k] = v
			continue
		}

		switch f.Kind() {
		case schema.KindString:
			switch t := v.(type) {
			case string:
				out[k] = t
			case float64, bool, int, int64:
				out[k] = fmt.Sprint(t)
			default:
				out[k] = v
			}
		case schema.KindInt, schema.KindFloat, schema.KindBool, schema.KindTime:
			s, isString := v.(string)
			if !isString {
				out[k] = v
				continue
			}
			if s == "" {
				continue
			}
			coerced, err := c.mapping.Coerce(k, s)
			if err != nil {
				continue
			}
			out[k] = coerced
		default:
			out[k] = v
		}
	}
	return out
}
