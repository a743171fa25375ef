// ABOUTME: Workspace wires one page per CRM entity onto a record backend
// ABOUTME: Pages load concurrently; each owns its own cache with no cross-page sharing
package crm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/harperreed/pagen-admin/entity"
	"github.com/harperreed/pagen-admin/models"
	"github.com/harperreed/pagen-admin/store"
)

// ErrUnknownCollection reports a page name no workspace page answers to.
var ErrUnknownCollection = errors.New("unknown collection")

// Options configures a workspace.
type Options struct {
	Logger   *log.Logger
	Observer entity.Observer
	Now      func() time.Time
}

// Workspace holds the six admin pages.
type Workspace struct {
	Contacts     *Page[models.Contact]
	Companies    *Page[models.Company]
	Deals        *Page[models.Deal]
	Quotes       *Page[models.Quote]
	Transactions *Page[models.Transaction]
	Activities   *Page[models.Activity]

	backend store.Backend
	logger  *log.Logger
	now     func() time.Time
}

// NewWorkspace builds every page over backend. Nothing is loaded yet.
func NewWorkspace(backend store.Backend, opts Options) *Workspace {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	w := &Workspace{backend: backend, logger: opts.Logger, now: opts.Now}

	w.Contacts = newPage(pageConfig{
		name:        "contacts",
		title:       "Contacts",
		columns:     contactColumns,
		search:      contactSearch,
		form:        contactForm,
		defaultSort: entity.SortState{Field: "name", Dir: entity.Asc},
	}, entity.NewPipeline(cacheFor(backend, contactCodec, opts.Logger), entity.Options[models.Contact]{
		Rules:    contactRules(),
		Effects:  []entity.Effect[models.Contact]{w.contactCompanyEffect},
		Observer: opts.Observer,
		Logger:   opts.Logger,
		Now:      opts.Now,
	}))

	w.Companies = newPage(pageConfig{
		name:        "companies",
		title:       "Companies",
		columns:     companyColumns,
		search:      companySearch,
		form:        companyForm,
		defaultSort: entity.SortState{Field: "name", Dir: entity.Asc},
	}, entity.NewPipeline(cacheFor(backend, companyCodec, opts.Logger), entity.Options[models.Company]{
		Rules:    companyRules(),
		Defaults: companyDefaults,
		Observer: opts.Observer,
		Logger:   opts.Logger,
		Now:      opts.Now,
	}))

	w.Deals = newPage(pageConfig{
		name:    "deals",
		title:   "Deals",
		columns: dealColumns,
		search:  dealSearch,
		form:    dealForm,
	}, entity.NewPipeline(cacheFor(backend, dealCodec, opts.Logger), entity.Options[models.Deal]{
		Rules:       dealRules(),
		Defaults:    dealDefaults,
		Transitions: map[string]entity.TransitionHook{"stage": dealStageHook},
		Effects:     []entity.Effect[models.Deal]{w.dealCompanyEffect},
		Observer:    opts.Observer,
		Logger:      opts.Logger,
		Now:         opts.Now,
	}))

	w.Quotes = newPage(pageConfig{
		name:    "quotes",
		title:   "Quotes",
		columns: quoteColumns,
		search:  quoteSearch,
		form:    quoteForm,
	}, entity.NewPipeline(cacheFor(backend, quoteCodec, opts.Logger), entity.Options[models.Quote]{
		Rules:    quoteRules(),
		Defaults: quoteDefaults,
		Observer: opts.Observer,
		Logger:   opts.Logger,
		Now:      opts.Now,
	}))

	w.Transactions = newPage(pageConfig{
		name:        "transactions",
		title:       "Transactions",
		columns:     transactionColumns,
		search:      transactionSearch,
		form:        transactionForm,
		defaultSort: entity.SortState{Field: "date", Dir: entity.Desc},
	}, entity.NewPipeline(cacheFor(backend, transactionCodec, opts.Logger), entity.Options[models.Transaction]{
		Rules:    transactionRules(),
		Defaults: transactionDefaults,
		Prepare:  prepareTransaction,
		Observer: opts.Observer,
		Logger:   opts.Logger,
		Now:      opts.Now,
	}))

	w.Activities = newPage(pageConfig{
		name:        "activities",
		title:       "Activities",
		columns:     activityColumns,
		search:      activitySearch,
		form:        activityForm,
		defaultSort: entity.SortState{Field: "dueDate", Dir: entity.Asc},
	}, entity.NewPipeline(cacheFor(backend, activityCodec, opts.Logger), entity.Options[models.Activity]{
		Rules:       activityRules(),
		Defaults:    activityDefaults,
		Transitions: map[string]entity.TransitionHook{"status": activityStatusHook},
		Observer:    opts.Observer,
		Logger:      opts.Logger,
		Now:         opts.Now,
	}))

	return w
}

func cacheFor[T entity.Entity](b store.Backend, codec *entity.Codec[T], logger *log.Logger) *entity.Cache[T] {
	return entity.NewCache(b.Collection(codec.Mapping().Collection()), codec, logger)
}

// LoadAll loads every page concurrently. Each page keeps its own outcome;
// the first failure is returned after all loads finish.
func (w *Workspace) LoadAll(ctx context.Context) error {
	var g errgroup.Group
	for _, c := range w.Collections() {
		g.Go(func() error {
			if err := c.Load(ctx); err != nil {
				w.logger.Warn("load failed", "collection", c.Collection(), "err", err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// Collections lists the pages in navigation order.
func (w *Workspace) Collections() []Collection {
	return []Collection{w.Contacts, w.Companies, w.Deals, w.Quotes, w.Transactions, w.Activities}
}

// Lookup finds a page by its name ("deals"), singular ("deal"), title, or
// storage collection ("deal_c").
func (w *Workspace) Lookup(name string) (Collection, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, c := range w.Collections() {
		if key == c.Name() || key == strings.TrimSuffix(c.Name(), "s") || key == strings.TrimSuffix(c.Name(), "ies")+"y" ||
			key == strings.ToLower(c.Title()) || key == c.Collection() {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnknownCollection)
}

// Names lists the page names.
func (w *Workspace) Names() []string {
	var out []string
	for _, c := range w.Collections() {
		out = append(out, c.Name())
	}
	return out
}

// Now is the workspace clock.
func (w *Workspace) Now() time.Time { return w.now() }

// Backend is the record store the pages read and write.
func (w *Workspace) Backend() store.Backend { return w.backend }

// Logger is the workspace logger.
func (w *Workspace) Logger() *log.Logger { return w.logger }

// Close releases the backend.
func (w *Workspace) Close() error {
	return w.backend.Close()
}
