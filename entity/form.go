// ABOUTME: In-progress edit state for one entity's add/edit form
// ABOUTME: Holds values and field errors, validates on submit, and guards against double submission

package entity

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/harperreed/pagen-admin/schema"
)

// Mode says whether a form creates a new entity or edits an existing one.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// Form is the controller behind one add/edit modal.
type Form[T Entity] struct {
	pipeline *Pipeline[T]
	fields   []string

	mu     sync.Mutex
	open   bool
	mode   Mode
	id     int64
	values map[string]any
	errors FieldErrors
	busy   bool
}

// NewForm creates a closed form editing fields, in display order.
func NewForm[T Entity](p *Pipeline[T], fields []string) *Form[T] {
	f := &Form[T]{pipeline: p, fields: fields}
	f.values = f.defaults()
	return f
}

// Fields lists the editable UI fields in display order.
func (f *Form[T]) Fields() []string {
	return append([]string(nil), f.fields...)
}

// OpenCreate opens the form with create defaults.
func (f *Form[T]) OpenCreate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return ErrBusy
	}
	f.open = true
	f.mode = ModeCreate
	f.id = 0
	f.values = f.defaults()
	f.errors = nil
	return nil
}

// OpenEdit opens the form initialized from item.
func (f *Form[T]) OpenEdit(item T) error {
	values, err := f.pipeline.cache.codec.Values(item)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return ErrBusy
	}
	f.open = true
	f.mode = ModeEdit
	f.id = item.Identity()
	f.values = make(map[string]any, len(f.fields))
	for _, name := range f.fields {
		if v, ok := values[name]; ok {
			f.values[name] = v
		} else {
			f.values[name] = f.zero(name)
		}
	}
	f.errors = nil
	return nil
}

// Set stores a typed value and clears that field's error.
func (f *Form[T]) Set(field string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return ErrBusy
	}
	f.values[field] = value
	delete(f.errors, field)
	return nil
}

// SetRaw coerces text input to the field's kind. A coercion failure is
// recorded as that field's error rather than returned.
func (f *Form[T]) SetRaw(field, raw string) error {
	v, err := f.pipeline.Mapping().Coerce(field, raw)
	if err != nil {
		if errors.Is(err, schema.ErrUnknownField) {
			return err
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.busy {
			return ErrBusy
		}
		f.values[field] = raw
		if f.errors == nil {
			f.errors = FieldErrors{}
		}
		f.errors[field] = "Please enter a valid " + lowerLabel(field)
		return nil
	}
	return f.Set(field, v)
}

// Submit validates the values and, when clean, creates or updates through the
// pipeline. Success closes the form; failure keeps it open with busy cleared.
func (f *Form[T]) Submit(ctx context.Context) (T, error) {
	var zero T

	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return zero, ErrBusy
	}
	if len(f.errors) > 0 {
		errs := f.copyErrors()
		f.mu.Unlock()
		return zero, errs
	}

	values := make(map[string]any, len(f.values))
	for k, v := range f.values {
		values[k] = v
	}
	if errs := f.pipeline.Validate(values, false); errs != nil {
		f.errors = errs
		f.mu.Unlock()
		return zero, errs
	}

	mode, id := f.mode, f.id
	f.busy = true
	f.mu.Unlock()

	var item T
	var err error
	func() {
		defer func() {
			f.mu.Lock()
			f.busy = false
			f.mu.Unlock()
		}()
		if mode == ModeEdit {
			item, err = f.pipeline.Update(ctx, id, values)
		} else {
			item, err = f.pipeline.Create(ctx, values)
		}
	}()

	if err != nil {
		if fe, ok := AsFieldErrors(err); ok {
			f.mu.Lock()
			f.errors = fe
			f.mu.Unlock()
		}
		return zero, err
	}

	f.mu.Lock()
	f.reset()
	f.mu.Unlock()
	return item, nil
}

// Close resets every field to its default and clears errors. It is refused
// while a submission is outstanding.
func (f *Form[T]) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return ErrBusy
	}
	f.reset()
	return nil
}

// reset must be called with mu held.
func (f *Form[T]) reset() {
	f.open = false
	f.mode = ModeCreate
	f.id = 0
	f.values = f.defaults()
	f.errors = nil
}

// Values returns a copy of the current field values.
func (f *Form[T]) Values() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]any, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Value returns one field's current value.
func (f *Form[T]) Value(field string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[field]
}

// Errors returns a copy of the current field errors.
func (f *Form[T]) Errors() FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.copyErrors()
}

// Busy reports whether a submission is outstanding.
func (f *Form[T]) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

// IsOpen reports whether the form is showing.
func (f *Form[T]) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// Mode reports create or edit.
func (f *Form[T]) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// ID is the identity being edited; zero in create mode.
func (f *Form[T]) ID() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id
}

func (f *Form[T]) copyErrors() FieldErrors {
	if len(f.errors) == 0 {
		return nil
	}
	out := make(FieldErrors, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

func (f *Form[T]) defaults() map[string]any {
	defaults := f.pipeline.Defaults()
	values := make(map[string]any, len(f.fields))
	for _, name := range f.fields {
		if v, ok := defaults[name]; ok {
			values[name] = v
		} else {
			values[name] = f.zero(name)
		}
	}
	return values
}

func (f *Form[T]) zero(name string) any {
	field, ok := f.pipeline.Mapping().Field(name)
	if !ok {
		return ""
	}
	if field.Optional() {
		return nil
	}
	switch field.Kind() {
	case schema.KindInt, schema.KindFloat:
		return float64(0)
	case schema.KindBool:
		return false
	case schema.KindString, schema.KindTime:
		return ""
	}
	return nil
}

func lowerLabel(field string) string {
	label := Label(field)
	if label == "" {
		return label
	}
	return strings.ToLower(label[:1]) + label[1:]
}
