// ABOUTME: Per-entity summaries and canned views over the page caches
// ABOUTME: Pipeline board, quote and transaction totals, activity task lists, lazy contact lookup
package crm

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/harperreed/pagen-admin/entity"
	"github.com/harperreed/pagen-admin/models"
	"github.com/harperreed/pagen-admin/schema"
)

// StatusTotal is the count and summed amount for one stage or status.
type StatusTotal struct {
	Status string  `json:"status"`
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// Board groups the deals matching query into the kanban stages.
func (w *Workspace) Board(query string) []entity.Bucket[models.Deal] {
	return w.Deals.View(query, entity.SortState{}).Board(w.Deals.Items(), "stage", models.KanbanStages, "value")
}

// PipelineStats totals deals per kanban stage.
func (w *Workspace) PipelineStats() []StatusTotal {
	buckets := w.Board("")
	out := make([]StatusTotal, len(buckets))
	for i, b := range buckets {
		out[i] = StatusTotal{Status: b.Name, Count: b.Count, Amount: b.Total}
	}
	return out
}

// QuoteStats totals quotes per status, in status order.
func (w *Workspace) QuoteStats() []StatusTotal {
	totals := make(map[string]*StatusTotal, len(models.QuoteStatuses))
	out := make([]StatusTotal, len(models.QuoteStatuses))
	for i, s := range models.QuoteStatuses {
		out[i] = StatusTotal{Status: s}
		totals[s] = &out[i]
	}
	for _, q := range w.Quotes.Items() {
		if t, ok := totals[q.Status]; ok {
			t.Count++
			t.Amount += q.TotalAmount
		}
	}
	return out
}

// TransactionTotals totals transactions per status. Known statuses come
// first; any others follow alphabetically.
func (w *Workspace) TransactionTotals() []StatusTotal {
	byStatus := map[string]*StatusTotal{}
	for _, t := range w.Transactions.Items() {
		total, ok := byStatus[t.Status]
		if !ok {
			total = &StatusTotal{Status: t.Status}
			byStatus[t.Status] = total
		}
		total.Count++
		total.Amount += t.Amount
	}

	var out []StatusTotal
	for _, s := range models.TransactionStatuses {
		if t, ok := byStatus[s]; ok {
			out = append(out, *t)
			delete(byStatus, s)
		}
	}
	var rest []string
	for s := range byStatus {
		rest = append(rest, s)
	}
	slices.Sort(rest)
	for _, s := range rest {
		out = append(out, *byStatus[s])
	}
	return out
}

// TransactionsByStatus filters transactions on status, keeping cache order.
func (w *Workspace) TransactionsByStatus(status string) []models.Transaction {
	return filter(w.Transactions.Items(), func(t models.Transaction) bool { return t.Status == status })
}

// TransactionsByType filters transactions on type, keeping cache order.
func (w *Workspace) TransactionsByType(kind string) []models.Transaction {
	return filter(w.Transactions.Items(), func(t models.Transaction) bool { return t.Type == kind })
}

// TransactionsBetween returns transactions dated within [from, to]. Either
// bound may be zero to leave that side open.
func (w *Workspace) TransactionsBetween(from, to time.Time) []models.Transaction {
	return filter(w.Transactions.Items(), func(t models.Transaction) bool {
		d, err := schema.ParseTime(t.Date)
		if err != nil {
			return false
		}
		if !from.IsZero() && d.Before(from) {
			return false
		}
		if !to.IsZero() && d.After(to) {
			return false
		}
		return true
	})
}

// OpenActivities lists activities still to do, soonest due first.
func (w *Workspace) OpenActivities() []models.Activity {
	open := filter(w.Activities.Items(), models.Activity.IsOpen)
	return w.Activities.View("", entity.SortState{Field: "dueDate", Dir: entity.Asc}).Apply(open)
}

// ActivityHistory lists completed activities, most recently completed first.
func (w *Workspace) ActivityHistory() []models.Activity {
	done := filter(w.Activities.Items(), func(a models.Activity) bool { return !a.IsOpen() })
	return w.Activities.View("", entity.SortState{Field: "completedAt", Dir: entity.Desc}).Apply(done)
}

// OverdueActivities lists open activities due before now.
func (w *Workspace) OverdueActivities(now time.Time) []models.Activity {
	return filter(w.OpenActivities(), func(a models.Activity) bool { return a.IsOverdue(now) })
}

// ActivitiesForContact lists the activities linked to a contact.
func (w *Workspace) ActivitiesForContact(contactID int64) []models.Activity {
	return filter(w.Activities.Items(), func(a models.Activity) bool {
		return a.ContactID != nil && *a.ContactID == contactID
	})
}

// ActivitiesForDeal lists the activities linked to a deal.
func (w *Workspace) ActivitiesForDeal(dealID int64) []models.Activity {
	return filter(w.Activities.Items(), func(a models.Activity) bool {
		return a.DealID != nil && *a.DealID == dealID
	})
}

// CompleteActivity marks an activity done. A blank outcome records the default.
func (w *Workspace) CompleteActivity(ctx context.Context, id int64, outcome string) (models.Activity, error) {
	outcome = strings.TrimSpace(outcome)
	if outcome == "" {
		outcome = DefaultOutcome
	}
	return w.Activities.Pipeline().Update(ctx, id, map[string]any{
		"status":      models.ActivityCompleted,
		"completedAt": w.now().UTC().Format(time.RFC3339Nano),
		"outcome":     outcome,
	})
}

// MoveDeal transitions a deal to stage.
func (w *Workspace) MoveDeal(ctx context.Context, id int64, stage string) (models.Deal, error) {
	return w.Deals.Pipeline().Transition(ctx, id, "stage", stage)
}

// DealContact resolves a deal's contact from the contact cache.
func (w *Workspace) DealContact(d models.Deal) (models.Contact, bool) {
	if d.ContactID == nil {
		return models.Contact{}, false
	}
	return w.Contacts.Cache().Get(*d.ContactID)
}

// DealContactName prefers the live contact's name over the deal's stored copy.
func (w *Workspace) DealContactName(d models.Deal) string {
	if c, ok := w.DealContact(d); ok && c.Name != "" {
		return c.Name
	}
	return d.ContactName
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
