// ABOUTME: Best-effort recomputation of company aggregates after deal and contact mutations
// ABOUTME: Failures are returned to the pipeline, which logs them and moves on
package crm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/harperreed/pagen-admin/entity"
	"github.com/harperreed/pagen-admin/models"
)

// dealCompanyEffect refreshes totalDealValue and lastActivityDate on the
// company each affected deal names.
func (w *Workspace) dealCompanyEffect(ctx context.Context, change entity.Change[models.Deal]) error {
	var names []string
	if change.Before != nil {
		names = append(names, change.Before.Company)
	}
	if change.After != nil {
		names = append(names, change.After.Company)
	}
	names = distinct(names)
	if len(names) == 0 {
		return nil
	}

	// Surfaces that load one collection at a time leave these caches empty
	if err := ensureLoaded(ctx, w.Companies, w.Deals); err != nil {
		return err
	}

	var errs []error
	for _, name := range names {
		company, ok := w.companyByName(name)
		if !ok {
			w.logger.Debug("no company for deal", "company", name)
			continue
		}
		total := 0.0
		for _, d := range w.Deals.Items() {
			if strings.EqualFold(strings.TrimSpace(d.Company), name) {
				total += d.Value
			}
		}
		_, err := w.Companies.Pipeline().Update(ctx, company.ID, map[string]any{
			"totalDealValue":   total,
			"lastActivityDate": today(w.now()),
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// contactCompanyEffect refreshes contactCount on the companies a contact
// joined or left, whether named or referenced by ID.
func (w *Workspace) contactCompanyEffect(ctx context.Context, change entity.Change[models.Contact]) error {
	if change.Before != nil && change.After != nil &&
		strings.EqualFold(strings.TrimSpace(change.Before.Company), strings.TrimSpace(change.After.Company)) &&
		sameID(change.Before.CompanyID, change.After.CompanyID) {
		return nil
	}

	var names []string
	var ids []int64
	for _, c := range []*models.Contact{change.Before, change.After} {
		if c == nil {
			continue
		}
		names = append(names, c.Company)
		if c.CompanyID != nil {
			ids = append(ids, *c.CompanyID)
		}
	}
	names = distinct(names)
	if len(names) == 0 && len(ids) == 0 {
		return nil
	}

	if err := ensureLoaded(ctx, w.Companies, w.Contacts); err != nil {
		return err
	}

	var companies []models.Company
	seen := map[int64]bool{}
	add := func(c models.Company) {
		if !seen[c.ID] {
			seen[c.ID] = true
			companies = append(companies, c)
		}
	}
	for _, name := range names {
		if c, ok := w.companyByName(name); ok {
			add(c)
		} else {
			w.logger.Debug("no company for contact", "company", name)
		}
	}
	for _, id := range ids {
		if c, ok := w.Companies.Cache().Get(id); ok {
			add(c)
		} else {
			w.logger.Debug("no company for contact", "companyId", id)
		}
	}

	var errs []error
	for _, company := range companies {
		name := strings.TrimSpace(company.Name)
		count := 0
		for _, c := range w.Contacts.Items() {
			if strings.EqualFold(strings.TrimSpace(c.Company), name) || (c.CompanyID != nil && *c.CompanyID == company.ID) {
				count++
			}
		}
		_, err := w.Companies.Pipeline().Update(ctx, company.ID, map[string]any{"contactCount": float64(count)})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// loader is the part of a page the effects need to fill an empty cache.
type loader interface {
	LoadedAt() time.Time
	Load(ctx context.Context) error
}

// ensureLoaded loads each page that has never completed a load.
func ensureLoaded(ctx context.Context, pages ...loader) error {
	for _, p := range pages {
		if !p.LoadedAt().IsZero() {
			continue
		}
		if err := p.Load(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workspace) companyByName(name string) (models.Company, bool) {
	for _, c := range w.Companies.Items() {
		if strings.EqualFold(strings.TrimSpace(c.Name), name) {
			return c, true
		}
	}
	return models.Company{}, false
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func distinct(names []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}
