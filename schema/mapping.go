// ABOUTME: Bidirectional mapping between UI field names and storage field names
// ABOUTME: Built once per entity type and checked against the Go struct at startup

package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/serenize/snaker"

	"github.com/harperreed/pagen-admin/store"
)

// IDField is the UI name of every entity's identity.
const IDField = "id"

// StorageSuffix marks custom storage columns.
const StorageSuffix = "_c"

var (
	ErrUnknownField   = errors.New("unknown field")
	ErrDuplicateField = errors.New("duplicate field")
	ErrInvalidValue   = errors.New("invalid value")
)

// Kind is the value shape of a mapped field, taken from the Go struct.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
	KindJSON
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindJSON:
		return "json"
	}
	return "string"
}

// Field maps one UI attribute to its storage column.
type Field struct {
	// UI is the JSON name of the struct field.
	UI string
	// Storage defaults to the snake-cased UI name with the _c suffix.
	Storage string
	// Encoded fields hold a JSON document serialized into a string column.
	Encoded bool
	// LookupName names the UI field filled from an expanded lookup's Name.
	LookupName string

	kind     Kind
	optional bool
}

// Kind reports the bound value shape.
func (f Field) Kind() Kind { return f.kind }

// Optional reports whether the struct field is a pointer.
func (f Field) Optional() bool { return f.optional }

// Mapping is the schema table for one collection.
type Mapping struct {
	collection string
	display    string
	fields     []*Field
	byUI       map[string]*Field
	byStorage  map[string]*Field
	bound      reflect.Type
}

// New builds a mapping. The identity field is always present; display names
// the UI field mirrored into the storage Name column.
func New(collection, display string, fields ...Field) (*Mapping, error) {
	m := &Mapping{
		collection: collection,
		display:    display,
		byUI:       make(map[string]*Field),
		byStorage:  make(map[string]*Field),
	}

	all := append([]Field{{UI: IDField, Storage: store.IDField}}, fields...)
	for i := range all {
		f := all[i]
		if f.UI == "" {
			return nil, fmt.Errorf("%s: field %d has no UI name: %w", collection, i, ErrUnknownField)
		}
		if f.Storage == "" {
			f.Storage = DefaultStorageName(f.UI)
		}
		if _, dup := m.byUI[f.UI]; dup {
			return nil, fmt.Errorf("%s: %s: %w", collection, f.UI, ErrDuplicateField)
		}
		if _, dup := m.byStorage[f.Storage]; dup {
			return nil, fmt.Errorf("%s: storage %s: %w", collection, f.Storage, ErrDuplicateField)
		}
		m.fields = append(m.fields, &f)
		m.byUI[f.UI] = &f
		m.byStorage[f.Storage] = &f
	}

	if display != "" {
		if _, ok := m.byUI[display]; !ok {
			return nil, fmt.Errorf("%s: display field %s: %w", collection, display, ErrUnknownField)
		}
	}

	return m, nil
}

// MustNew is New for package-level tables; it panics on a malformed table.
func MustNew(collection, display string, fields ...Field) *Mapping {
	m, err := New(collection, display, fields...)
	if err != nil {
		panic(err)
	}
	return m
}

// DefaultStorageName derives the storage column for a UI name.
func DefaultStorageName(ui string) string {
	return snaker.CamelToSnake(ui) + StorageSuffix
}

// Bind checks every mapped field against the JSON tags of the struct type and
// records each field's value kind.
func (m *Mapping) Bind(t reflect.Type) error {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("%s: cannot bind %s: %w", m.collection, t, ErrInvalidValue)
	}

	tags := make(map[string]reflect.Type)
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name := strings.Split(sf.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		tags[name] = sf.Type
	}

	for _, f := range m.fields {
		ft, ok := tags[f.UI]
		if !ok {
			return fmt.Errorf("%s: %s has no struct field: %w", m.collection, f.UI, ErrUnknownField)
		}
		f.kind, f.optional = kindOf(ft)
		if f.LookupName != "" {
			if _, ok := tags[f.LookupName]; !ok {
				return fmt.Errorf("%s: lookup name %s: %w", m.collection, f.LookupName, ErrUnknownField)
			}
		}
	}

	m.bound = t
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

func kindOf(t reflect.Type) (Kind, bool) {
	optional := false
	if t.Kind() == reflect.Pointer {
		optional = true
		t = t.Elem()
	}
	if t == timeType {
		return KindTime, optional
	}
	switch t.Kind() {
	case reflect.String:
		return KindString, optional
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt, optional
	case reflect.Float32, reflect.Float64:
		return KindFloat, optional
	case reflect.Bool:
		return KindBool, optional
	}
	return KindJSON, optional
}

// Collection is the storage collection name.
func (m *Mapping) Collection() string { return m.collection }

// Display is the UI field shown as the entity's name.
func (m *Mapping) Display() string { return m.display }

// Fields returns the mapped fields in declaration order, identity first.
func (m *Mapping) Fields() []Field {
	out := make([]Field, len(m.fields))
	for i, f := range m.fields {
		out[i] = *f
	}
	return out
}

// Field looks up a mapped field by UI name.
func (m *Mapping) Field(ui string) (Field, bool) {
	f, ok := m.byUI[ui]
	if !ok {
		return Field{}, false
	}
	return *f, true
}

// StorageName translates one UI name.
func (m *Mapping) StorageName(ui string) (string, bool) {
	f, ok := m.byUI[ui]
	if !ok {
		return "", false
	}
	return f.Storage, true
}

// UIName translates one storage name.
func (m *Mapping) UIName(storage string) (string, bool) {
	f, ok := m.byStorage[storage]
	if !ok {
		return "", false
	}
	return f.UI, true
}

// ToStorage renames UI-keyed values to storage names. Unknown UI names are rejected.
func (m *Mapping) ToStorage(values map[string]any) (store.Record, error) {
	rec := make(store.Record, len(values)+1)
	for k, v := range values {
		f, ok := m.byUI[k]
		if !ok {
			return nil, fmt.Errorf("%s: %s: %w", m.collection, k, ErrUnknownField)
		}
		if f.Encoded && v != nil {
			if _, isString := v.(string); !isString {
				data, err := json.Marshal(v)
				if err != nil {
					return nil, fmt.Errorf("%s: encode %s: %w", m.collection, k, err)
				}
				v = string(data)
			}
		}
		rec[f.Storage] = v
	}

	if m.display != "" {
		if f := m.byUI[m.display]; f.Storage != store.NameField {
			if v, ok := values[m.display]; ok {
				rec[store.NameField] = v
			}
		}
	}

	return rec, nil
}

// FromStorage renames a storage record to UI names. Storage columns outside
// the table are dropped; expanded lookups collapse to their identity.
func (m *Mapping) FromStorage(rec store.Record) (map[string]any, error) {
	values := make(map[string]any, len(rec))
	lookupNames := make(map[string]string)

	for k, v := range rec {
		f, ok := m.byStorage[k]
		if !ok || v == nil {
			continue
		}

		if lookup, isMap := v.(map[string]any); isMap && f.kind != KindJSON {
			if name, ok := lookup[store.NameField].(string); ok && name != "" && f.LookupName != "" {
				lookupNames[f.LookupName] = name
			}
			v = lookup[store.IDField]
		}

		if f.Encoded {
			if s, isString := v.(string); isString {
				if s == "" {
					continue
				}
				var decoded any
				if err := json.Unmarshal([]byte(s), &decoded); err != nil {
					return nil, fmt.Errorf("%s: decode %s: %w", m.collection, k, err)
				}
				v = decoded
			}
		}

		values[f.UI] = v
	}

	// A stored denormalized name wins over the lookup's.
	for ui, name := range lookupNames {
		if existing, ok := values[ui].(string); !ok || existing == "" {
			values[ui] = name
		}
	}

	if m.display != "" {
		if _, ok := values[m.display]; !ok {
			if name, ok := rec[store.NameField]; ok && name != nil {
				values[m.display] = name
			}
		}
	}

	return values, nil
}

// Bound reports whether Bind has succeeded.
func (m *Mapping) Bound() bool { return m.bound != nil }
