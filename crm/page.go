// ABOUTME: One admin page per entity type: cache, pipeline, form, and current view state
// ABOUTME: Page also implements the untyped Collection surface used by CLI, web, and MCP
package crm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harperreed/pagen-admin/entity"
	"github.com/harperreed/pagen-admin/schema"
)

// Collection is the entity-agnostic view of a page, speaking UI-named value maps.
type Collection interface {
	Name() string
	Title() string
	Collection() string
	Mapping() *schema.Mapping
	Columns() []string
	FormFields() []string
	SearchFields() []string
	DefaultSort() entity.SortState
	Defaults() map[string]any

	Load(ctx context.Context) error
	Err() error
	Loading() bool
	Count() int
	LoadedAt() time.Time
	Skipped() int

	SetQuery(q string)
	Query() string
	SortBy(field string) entity.SortState
	Sort() entity.SortState
	Editor() Editor

	List(query string, sort entity.SortState) []map[string]any
	Get(id int64) (map[string]any, bool)
	Create(ctx context.Context, values map[string]any) (map[string]any, error)
	Update(ctx context.Context, id int64, values map[string]any) (map[string]any, error)
	Delete(ctx context.Context, id int64) error
	Transition(ctx context.Context, id int64, field string, value any) (map[string]any, error)
}

type pageConfig struct {
	name        string
	title       string
	columns     []string
	search      []string
	form        []string
	defaultSort entity.SortState
}

// Page owns everything one entity's screen needs.
type Page[T entity.Entity] struct {
	cfg      pageConfig
	pipeline *entity.Pipeline[T]
	form     *entity.Form[T]

	mu    sync.Mutex
	query string
	sort  entity.SortState
}

func newPage[T entity.Entity](cfg pageConfig, p *entity.Pipeline[T]) *Page[T] {
	return &Page[T]{
		cfg:      cfg,
		pipeline: p,
		form:     entity.NewForm(p, cfg.form),
		sort:     cfg.defaultSort,
	}
}

func (p *Page[T]) Name() string                  { return p.cfg.name }
func (p *Page[T]) Title() string                 { return p.cfg.title }
func (p *Page[T]) Collection() string            { return p.pipeline.Cache().Collection() }
func (p *Page[T]) Mapping() *schema.Mapping      { return p.pipeline.Mapping() }
func (p *Page[T]) Columns() []string             { return append([]string(nil), p.cfg.columns...) }
func (p *Page[T]) FormFields() []string          { return p.form.Fields() }
func (p *Page[T]) SearchFields() []string        { return append([]string(nil), p.cfg.search...) }
func (p *Page[T]) DefaultSort() entity.SortState { return p.cfg.defaultSort }
func (p *Page[T]) Defaults() map[string]any      { return p.pipeline.Defaults() }

// Pipeline returns the page's mutation pipeline.
func (p *Page[T]) Pipeline() *entity.Pipeline[T] { return p.pipeline }

// Cache returns the page's entity cache.
func (p *Page[T]) Cache() *entity.Cache[T] { return p.pipeline.Cache() }

// Form returns the page's add/edit form.
func (p *Page[T]) Form() *entity.Form[T] { return p.form }

func (p *Page[T]) Load(ctx context.Context) error { return p.pipeline.Load(ctx) }
func (p *Page[T]) Err() error                     { return p.Cache().Err() }
func (p *Page[T]) Loading() bool                  { return p.Cache().Loading() }
func (p *Page[T]) Count() int                     { return p.Cache().Len() }
func (p *Page[T]) LoadedAt() time.Time            { return p.Cache().LoadedAt() }
func (p *Page[T]) Skipped() int                   { return p.Cache().Skipped() }

// Items returns the cache contents, unfiltered.
func (p *Page[T]) Items() []T { return p.Cache().Items() }

// SetQuery changes the page's search text.
func (p *Page[T]) SetQuery(q string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.query = q
}

// Query is the page's search text.
func (p *Page[T]) Query() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query
}

// SortBy toggles the page sort on field.
func (p *Page[T]) SortBy(field string) entity.SortState {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sort = p.sort.Toggle(field)
	return p.sort
}

// SetSort replaces the page sort.
func (p *Page[T]) SetSort(s entity.SortState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sort = s
}

// Sort is the page's current sort.
func (p *Page[T]) Sort() entity.SortState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sort
}

// View builds a projection for query and sort over this page's entity.
func (p *Page[T]) View(query string, sort entity.SortState) entity.View[T] {
	return entity.View[T]{
		Codec:        p.Cache().Codec(),
		SearchFields: p.cfg.search,
		Query:        query,
		Sort:         sort,
	}
}

// Visible projects the cache through the page's current query and sort.
func (p *Page[T]) Visible() []T {
	return p.View(p.Query(), p.Sort()).Apply(p.Items())
}

// Project projects the cache through an explicit query and sort.
func (p *Page[T]) Project(query string, sort entity.SortState) []T {
	return p.View(query, sort).Apply(p.Items())
}

func (p *Page[T]) List(query string, sort entity.SortState) []map[string]any {
	items := p.Project(query, sort)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if values, err := p.Cache().Codec().Values(item); err == nil {
			out = append(out, values)
		}
	}
	return out
}

func (p *Page[T]) Get(id int64) (map[string]any, bool) {
	item, ok := p.Cache().Get(id)
	if !ok {
		return nil, false
	}
	values, err := p.Cache().Codec().Values(item)
	if err != nil {
		return nil, false
	}
	return values, true
}

func (p *Page[T]) Create(ctx context.Context, values map[string]any) (map[string]any, error) {
	item, err := p.pipeline.Create(ctx, values)
	if err != nil {
		return nil, err
	}
	return p.Cache().Codec().Values(item)
}

func (p *Page[T]) Update(ctx context.Context, id int64, values map[string]any) (map[string]any, error) {
	item, err := p.pipeline.Update(ctx, id, values)
	if err != nil {
		return nil, err
	}
	return p.Cache().Codec().Values(item)
}

func (p *Page[T]) Delete(ctx context.Context, id int64) error {
	return p.pipeline.Delete(ctx, id)
}

func (p *Page[T]) Transition(ctx context.Context, id int64, field string, value any) (map[string]any, error) {
	item, err := p.pipeline.Transition(ctx, id, field, value)
	if err != nil {
		return nil, err
	}
	return p.Cache().Codec().Values(item)
}

// Editor is the entity-agnostic face of a page's add/edit form.
type Editor interface {
	Fields() []string
	OpenCreate() error
	OpenEdit(id int64) error
	SetRaw(field, raw string) error
	Submit(ctx context.Context) (map[string]any, error)
	Close() error
	Values() map[string]any
	Errors() entity.FieldErrors
	Busy() bool
	IsOpen() bool
	Mode() entity.Mode
	ID() int64
}

// Editor wraps the page form so callers need not know the entity type.
func (p *Page[T]) Editor() Editor { return editor[T]{p} }

type editor[T entity.Entity] struct{ p *Page[T] }

func (e editor[T]) Fields() []string               { return e.p.form.Fields() }
func (e editor[T]) OpenCreate() error              { return e.p.form.OpenCreate() }
func (e editor[T]) SetRaw(field, raw string) error { return e.p.form.SetRaw(field, raw) }
func (e editor[T]) Close() error                   { return e.p.form.Close() }
func (e editor[T]) Values() map[string]any         { return e.p.form.Values() }
func (e editor[T]) Errors() entity.FieldErrors     { return e.p.form.Errors() }
func (e editor[T]) Busy() bool                     { return e.p.form.Busy() }
func (e editor[T]) IsOpen() bool                   { return e.p.form.IsOpen() }
func (e editor[T]) Mode() entity.Mode              { return e.p.form.Mode() }
func (e editor[T]) ID() int64                      { return e.p.form.ID() }

func (e editor[T]) OpenEdit(id int64) error {
	item, ok := e.p.Cache().Get(id)
	if !ok {
		return fmt.Errorf("%s %d: %w", e.p.Collection(), id, entity.ErrNotFound)
	}
	return e.p.form.OpenEdit(item)
}

func (e editor[T]) Submit(ctx context.Context) (map[string]any, error) {
	item, err := e.p.form.Submit(ctx)
	if err != nil {
		return nil, err
	}
	return e.p.Cache().Codec().Values(item)
}
