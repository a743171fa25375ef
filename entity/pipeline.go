// ABOUTME: Create, update, delete, and transition against the backing store
// ABOUTME: Reconciles the cache in place after each success and runs best-effort secondary effects

package entity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/pagen-admin/schema"
	"github.com/harperreed/pagen-admin/store"
)

// Audit attribute UI names shared by every entity.
const (
	CreatedAtField = "createdAt"
	UpdatedAtField = "updatedAt"
)

// Op names a pipeline operation.
type Op string

const (
	OpList       Op = "list"
	OpCreate     Op = "create"
	OpUpdate     Op = "update"
	OpDelete     Op = "delete"
	OpTransition Op = "transition"
)

// Observer is told about every completed pipeline operation.
type Observer interface {
	Observe(collection string, op Op, elapsed time.Duration, err error)
}

// Change describes a successful mutation to secondary effects. Before is nil
// for creates and for entities missing from the cache; After is nil for deletes.
type Change[T Entity] struct {
	Op     Op
	Before *T
	After  *T
}

// Effect is a best-effort follow-up to a successful mutation. Its error is
// logged and otherwise ignored.
type Effect[T Entity] func(ctx context.Context, change Change[T]) error

// Transition is handed to a TransitionHook before a single-field change is applied.
type Transition struct {
	Field  string
	From   any
	To     any
	Values map[string]any
	At     time.Time
}

// TransitionHook returns extra fields to write alongside a transition.
type TransitionHook func(t Transition) map[string]any

// Options configures a pipeline for one entity type.
type Options[T Entity] struct {
	Rules Rules
	// Defaults fill create input fields that are absent or blank.
	Defaults func(now time.Time) map[string]any
	// Prepare derives create-time fields from the input and the current cache.
	Prepare     func(values map[string]any, existing []T, now time.Time)
	Transitions map[string]TransitionHook
	Effects     []Effect[T]
	Observer    Observer
	Logger      *log.Logger
	Now         func() time.Time
}

// Pipeline performs mutations on one collection and keeps its cache in step.
type Pipeline[T Entity] struct {
	cache *Cache[T]
	opts  Options[T]
}

// NewPipeline wires a pipeline to its cache.
func NewPipeline[T Entity](cache *Cache[T], opts Options[T]) *Pipeline[T] {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline[T]{cache: cache, opts: opts}
}

// Cache returns the pipeline's cache.
func (p *Pipeline[T]) Cache() *Cache[T] { return p.cache }

// Mapping returns the schema table of the pipeline's entity.
func (p *Pipeline[T]) Mapping() *schema.Mapping { return p.cache.codec.Mapping() }

// Validate runs the entity's rules and type checks over values.
func (p *Pipeline[T]) Validate(values map[string]any, partial bool) FieldErrors {
	return p.check(values, partial)
}

// Defaults returns the create defaults at the pipeline's current time.
func (p *Pipeline[T]) Defaults() map[string]any {
	if p.opts.Defaults == nil {
		return map[string]any{}
	}
	return p.opts.Defaults(p.opts.Now())
}

// Load reloads the cache, reporting the list to the observer.
func (p *Pipeline[T]) Load(ctx context.Context) error {
	start := time.Now()
	err := p.cache.Load(ctx)
	p.observe(OpList, start, err)
	return err
}

// Create validates input, stores it, and prepends the stored entity to the cache.
// Validation failures return FieldErrors without touching the store.
func (p *Pipeline[T]) Create(ctx context.Context, input map[string]any) (T, error) {
	start := time.Now()
	item, err := p.create(ctx, input)
	p.observe(OpCreate, start, err)
	return item, err
}

func (p *Pipeline[T]) create(ctx context.Context, input map[string]any) (T, error) {
	var zero T
	now := p.opts.Now().UTC()

	values := make(map[string]any, len(input))
	for k, v := range input {
		values[k] = v
	}
	if p.opts.Defaults != nil {
		for k, v := range p.opts.Defaults(now) {
			if existing, ok := values[k]; !ok || isBlank(existing) {
				values[k] = v
			}
		}
	}
	delete(values, schema.IDField)

	if p.opts.Prepare != nil {
		p.opts.Prepare(values, p.cache.Items(), now)
	}

	if errs := p.check(values, false); errs != nil {
		return zero, errs
	}

	stamp := now.Format(time.RFC3339Nano)
	p.setAudit(values, CreatedAtField, stamp)
	p.setAudit(values, UpdatedAtField, stamp)

	rec, err := p.cache.codec.Encode(values)
	if err != nil {
		return zero, err
	}

	stored, err := p.cache.repo.Create(ctx, rec)
	if err != nil {
		return zero, fmt.Errorf("create %s: %w: %w", p.cache.Collection(), ErrStore, err)
	}

	item, err := p.cache.codec.Decode(stored)
	if err != nil {
		return zero, fmt.Errorf("create %s: decode stored record: %w", p.cache.Collection(), err)
	}
	if item.Identity() <= 0 {
		return zero, fmt.Errorf("create %s: store assigned no identity: %w", p.cache.Collection(), ErrStore)
	}

	p.cache.prepend(item)
	p.runEffects(ctx, Change[T]{Op: OpCreate, After: &item})
	return item, nil
}

// Update writes the changed fields of id and replaces the cached entry in place.
func (p *Pipeline[T]) Update(ctx context.Context, id int64, input map[string]any) (T, error) {
	start := time.Now()
	item, err := p.update(ctx, id, input, OpUpdate)
	p.observe(OpUpdate, start, err)
	return item, err
}

func (p *Pipeline[T]) update(ctx context.Context, id int64, input map[string]any, op Op) (T, error) {
	var zero T

	values := make(map[string]any, len(input)+1)
	for k, v := range input {
		values[k] = v
	}
	delete(values, schema.IDField)
	delete(values, CreatedAtField)

	if errs := p.check(values, true); errs != nil {
		return zero, errs
	}

	before, cached := p.cache.Get(id)
	p.setAudit(values, UpdatedAtField, p.nextStamp(before, cached))

	rec, err := p.cache.codec.Encode(values)
	if err != nil {
		return zero, err
	}

	stored, err := p.cache.repo.Update(ctx, id, rec)
	if err != nil {
		return zero, p.storeError(op, id, err)
	}

	item, err := p.cache.codec.Decode(stored)
	if err != nil {
		return zero, fmt.Errorf("%s %s %d: decode stored record: %w", op, p.cache.Collection(), id, err)
	}

	p.cache.replace(item)

	change := Change[T]{Op: op, After: &item}
	if cached {
		change.Before = &before
	}
	p.runEffects(ctx, change)
	return item, nil
}

// Delete removes id from the store and then from the cache. A missing
// identity fails with ErrNotFound and leaves the cache untouched.
func (p *Pipeline[T]) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	err := p.delete(ctx, id)
	p.observe(OpDelete, start, err)
	return err
}

func (p *Pipeline[T]) delete(ctx context.Context, id int64) error {
	before, cached := p.cache.Get(id)

	if err := p.cache.repo.Delete(ctx, id); err != nil {
		return p.storeError(OpDelete, id, err)
	}

	p.cache.remove(id)

	change := Change[T]{Op: OpDelete}
	if cached {
		change.Before = &before
	}
	p.runEffects(ctx, change)
	return nil
}

// Transition changes a single field, letting the entity's hook for that field
// add derived changes such as an audit entry, then performs an update.
func (p *Pipeline[T]) Transition(ctx context.Context, id int64, field string, value any) (T, error) {
	start := time.Now()
	item, err := p.transition(ctx, id, field, value)
	p.observe(OpTransition, start, err)
	return item, err
}

func (p *Pipeline[T]) transition(ctx context.Context, id int64, field string, value any) (T, error) {
	var zero T

	if _, ok := p.Mapping().Field(field); !ok || field == schema.IDField || field == CreatedAtField {
		return zero, FieldErrors{field: "field cannot be transitioned"}
	}

	current, ok := p.cache.Get(id)
	if !ok {
		rec, err := p.cache.repo.Get(ctx, id)
		if err != nil {
			return zero, p.storeError(OpTransition, id, err)
		}
		current, err = p.cache.codec.Decode(rec)
		if err != nil {
			return zero, err
		}
	}

	values, err := p.cache.codec.Values(current)
	if err != nil {
		return zero, err
	}

	changes := map[string]any{field: value}
	if hook := p.opts.Transitions[field]; hook != nil {
		for k, v := range hook(Transition{
			Field:  field,
			From:   values[field],
			To:     value,
			Values: values,
			At:     p.opts.Now().UTC(),
		}) {
			changes[k] = v
		}
	}

	return p.update(ctx, id, changes, OpTransition)
}

// check runs the rules and then the codec's type check, merging both so a
// rejected value never reaches the store.
func (p *Pipeline[T]) check(values map[string]any, partial bool) FieldErrors {
	errs := p.opts.Rules.Validate(values, partial)
	for k, msg := range p.cache.codec.Check(values) {
		if errs == nil {
			errs = FieldErrors{}
		}
		errs.Add(k, msg)
	}
	return errs
}

// nextStamp returns now, nudged past the entity's previous updatedAt so the
// audit timestamp always moves forward.
func (p *Pipeline[T]) nextStamp(before T, cached bool) string {
	now := p.opts.Now().UTC()
	if cached {
		if values, err := p.cache.codec.Values(before); err == nil {
			if s, ok := values[UpdatedAtField].(string); ok {
				if prev, err := schema.ParseTime(s); err == nil && !now.After(prev) {
					now = prev.Add(time.Nanosecond)
				}
			}
		}
	}
	return now.Format(time.RFC3339Nano)
}

func (p *Pipeline[T]) setAudit(values map[string]any, field, stamp string) {
	if _, ok := p.Mapping().Field(field); ok {
		values[field] = stamp
	}
}

func (p *Pipeline[T]) storeError(op Op, id int64, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %s %d: %w: %w", op, p.cache.Collection(), id, ErrNotFound, err)
	}
	return fmt.Errorf("%s %s %d: %w: %w", op, p.cache.Collection(), id, ErrStore, err)
}

func (p *Pipeline[T]) runEffects(ctx context.Context, change Change[T]) {
	for _, effect := range p.opts.Effects {
		if err := effect(ctx, change); err != nil {
			p.opts.Logger.Warn("secondary effect failed",
				"collection", p.cache.Collection(),
				"op", string(change.Op),
				"err", err)
		}
	}
}

func (p *Pipeline[T]) observe(op Op, start time.Time, err error) {
	if p.opts.Observer != nil {
		p.opts.Observer.Observe(p.cache.Collection(), op, time.Since(start), err)
	}
	if err != nil {
		p.opts.Logger.Debug("operation failed", "collection", p.cache.Collection(), "op", string(op), "err", err)
	}
}

// IsBlank reports whether a form value counts as empty.
func IsBlank(v any) bool {
	return isBlank(v)
}

// Label turns a UI field name into a human label: "expectedCloseDate" becomes
// "Expected close date".
func Label(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		if i == 0 && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
