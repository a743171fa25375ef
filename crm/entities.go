// ABOUTME: Per-entity validation rules, create defaults, search fields, and form layouts
// ABOUTME: Also holds the deal stage and activity status transition hooks
package crm

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/harperreed/pagen-admin/entity"
	"github.com/harperreed/pagen-admin/models"
)

// DefaultOutcome is recorded when an activity is completed without one.
const DefaultOutcome = "Task completed successfully"

// DefaultAssignee owns new activities until someone is named.
const DefaultAssignee = "Current User"

func contactRules() entity.Rules {
	return entity.Rules{
		"name":            {entity.Required("Name is required")},
		"email":           {entity.Required("Email is required"), entity.Email("Please enter a valid email address")},
		"phone":           {entity.Phone("Please enter a valid phone number")},
		"lastContactDate": {optionalDate("Please enter a valid date")},
	}
}

func companyRules() entity.Rules {
	return entity.Rules{
		"name":     {entity.Required("Company name is required")},
		"industry": {entity.Required("Industry is required")},
	}
}

func dealRules() entity.Rules {
	return entity.Rules{
		"title":             {entity.Required("Deal title is required")},
		"contactId":         {entity.Required("Please select a contact")},
		"value":             {entity.Positive("Deal value must be greater than 0")},
		"expectedCloseDate": {entity.Required("Expected close date is required"), entity.Date("Expected close date is required")},
		"stage":             {entity.Required("Stage is required"), entity.OneOf("stage", models.DealStages)},
		"status":            {entity.OneOf("status", models.DealStatuses)},
		"probability":       {entity.Between(0, 100, "Probability must be between 0 and 100")},
	}
}

func quoteRules() entity.Rules {
	return entity.Rules{
		"name":           {entity.Required("Quote name is required")},
		"quoteNumber":    {entity.Required("Quote number is required")},
		"status":         {entity.OneOf("status", models.QuoteStatuses)},
		"expirationDate": {optionalDate("Please enter a valid expiration date")},
		"validUntil":     {optionalDate("Please enter a valid date")},
	}
}

func transactionRules() entity.Rules {
	return entity.Rules{
		"clientName":  {entity.Required("Client name is required")},
		"amount":      {entity.Positive("Valid amount is required")},
		"description": {entity.Required("Description is required")},
		"date":        {entity.Required("Date is required"), entity.Date("Date is required")},
		"type":        {entity.OneOf("type", models.TransactionTypes)},
		"status":      {entity.OneOf("status", models.TransactionStatuses)},
	}
}

func activityRules() entity.Rules {
	return entity.Rules{
		"title":    {entity.Required("Title is required")},
		"dueDate":  {entity.Required("Due date is required"), entity.Date("Due date is required")},
		"type":     {entity.OneOf("type", models.ActivityTypes)},
		"status":   {entity.OneOf("status", models.ActivityStatuses)},
		"priority": {entity.OneOf("priority", models.ActivityPriorities)},
	}
}

// optionalDate accepts a blank value or a parseable date.
func optionalDate(msg string) entity.Rule {
	check := entity.Date(msg)
	return func(v any, present bool) string {
		if entity.IsBlank(v) {
			return ""
		}
		return check(v, present)
	}
}

func today(now time.Time) string {
	return now.Format(models.DateLayout)
}

func companyDefaults(time.Time) map[string]any {
	return map[string]any{"contactCount": float64(0), "totalDealValue": float64(0)}
}

func dealDefaults(time.Time) map[string]any {
	return map[string]any{
		"status":      models.DealStatusActive,
		"stage":       models.StageLead,
		"probability": float64(50),
		"value":       float64(0),
	}
}

func quoteDefaults(time.Time) map[string]any {
	return map[string]any{
		"status":      models.QuoteDraft,
		"currency":    "USD",
		"totalAmount": float64(0),
		"discount":    float64(0),
		"taxAmount":   float64(0),
		"isApproved":  false,
	}
}

func transactionDefaults(now time.Time) map[string]any {
	return map[string]any{
		"type":     models.TransactionInvoice,
		"status":   models.TransactionPending,
		"currency": "USD",
		"date":     today(now),
	}
}

func activityDefaults(time.Time) map[string]any {
	return map[string]any{
		"type":       models.ActivityCall,
		"status":     models.ActivityPending,
		"priority":   models.PriorityNormal,
		"assignedTo": DefaultAssignee,
	}
}

// prepareTransaction assigns TXN-<year>-<NNN> from the next identity after
// the highest one in the cache.
func prepareTransaction(values map[string]any, existing []models.Transaction, now time.Time) {
	if s, _ := values["transactionId"].(string); strings.TrimSpace(s) != "" {
		return
	}
	values["transactionId"] = NextTransactionID(existing, now)
}

// NextTransactionID formats the reference number the next transaction gets.
func NextTransactionID(existing []models.Transaction, now time.Time) string {
	var next int64 = 1
	for _, t := range existing {
		if t.ID >= next {
			next = t.ID + 1
		}
	}
	return fmt.Sprintf("TXN-%d-%03d", now.Year(), next)
}

// dealStageHook appends a status-change entry to the deal's activity log and
// stamps stageChangedAt. Moving into a won or lost stage settles the status.
func dealStageHook(t entity.Transition) map[string]any {
	log, _ := t.Values["activities"].([]any)
	entry := models.DealActivity{
		ID:          ulid.Make().String(),
		Type:        models.DealActivityStatusChange,
		Description: fmt.Sprintf("Deal moved from %v to %v", t.From, t.To),
		Timestamp:   t.At,
		UserID:      models.SystemUserID,
		UserName:    models.SystemUserName,
	}

	changes := map[string]any{
		"activities":     append(log, entry),
		"stageChangedAt": t.At.Format(time.RFC3339Nano),
	}
	switch t.To {
	case models.StageClosedWon:
		changes["status"] = models.DealStatusWon
	case models.StageClosedLost:
		changes["status"] = models.DealStatusLost
	}
	return changes
}

// activityStatusHook stamps completion and a default outcome, and clears the
// stamp when an activity is reopened.
func activityStatusHook(t entity.Transition) map[string]any {
	if t.To == models.ActivityCompleted {
		changes := map[string]any{"completedAt": t.At.Format(time.RFC3339Nano)}
		if outcome, _ := t.Values["outcome"].(string); strings.TrimSpace(outcome) == "" {
			changes["outcome"] = DefaultOutcome
		}
		return changes
	}
	return map[string]any{"completedAt": nil}
}

// page descriptors: list columns, search fields, form fields, default sort.
var (
	contactColumns = []string{"name", "email", "phone", "company", "lastContactDate"}
	contactSearch  = []string{"name", "email", "company", "phone"}
	contactForm    = []string{"name", "email", "phone", "company", "companyId", "lastContactDate", "notes"}

	companyColumns = []string{"name", "industry", "contactCount", "totalDealValue", "lastActivityDate"}
	companySearch  = []string{"name", "industry", "address"}
	companyForm    = []string{"name", "industry", "address", "notes"}

	dealColumns = []string{"title", "contactName", "company", "value", "stage", "probability", "expectedCloseDate"}
	dealSearch  = []string{"title", "contactName", "company"}
	dealForm    = []string{"title", "contactId", "contactName", "company", "value", "expectedCloseDate", "stage", "status", "probability", "source", "assignedTo", "description"}

	quoteColumns = []string{"quoteNumber", "name", "customerName", "contactName", "status", "totalAmount", "expirationDate"}
	quoteSearch  = []string{"quoteNumber", "name", "customerName", "contactName", "status"}
	quoteForm    = []string{"name", "quoteNumber", "customerId", "customerName", "contactId", "contactName", "status", "totalAmount", "currency", "expirationDate", "validUntil", "discount", "taxAmount", "isApproved", "notes", "termsAndConditions"}

	transactionColumns = []string{"transactionId", "date", "type", "clientName", "amount", "status"}
	transactionSearch  = []string{"transactionId", "clientName", "description", "type", "status", "referenceNumber"}
	transactionForm    = []string{"type", "clientName", "amount", "currency", "status", "description", "paymentMethod", "referenceNumber", "date"}

	activityColumns = []string{"title", "type", "status", "priority", "dueDate", "contactName", "dealTitle"}
	activitySearch  = []string{"title", "description", "contactName", "dealTitle", "type"}
	activityForm    = []string{"type", "title", "description", "priority", "dueDate", "contactId", "contactName", "dealId", "dealTitle", "assignedTo", "outcome"}
)

var choices = map[string]map[string][]string{
	"deals":        {"stage": models.DealStages, "status": models.DealStatuses},
	"quotes":       {"status": models.QuoteStatuses},
	"transactions": {"type": models.TransactionTypes, "status": models.TransactionStatuses},
	"activities":   {"type": models.ActivityTypes, "status": models.ActivityStatuses, "priority": models.ActivityPriorities},
}

// Choices lists the allowed values of an enumerated field on a page, or nil
// when the field is free-form.
func Choices(page, field string) []string {
	return choices[page][field]
}
