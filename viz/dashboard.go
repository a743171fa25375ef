// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Provides ASCII dashboard for the CRM admin overview
package viz

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/harperreed/pagen-admin/analytics"
	"github.com/harperreed/pagen-admin/crm"
	"github.com/harperreed/pagen-admin/models"
)

// StaleAfter is how long since the last contact before a contact needs attention.
const StaleAfter = 30 * 24 * time.Hour

type DashboardStats struct {
	// Pipeline overview
	Pipeline []crm.StatusTotal

	// Overall stats
	TotalContacts     int
	TotalCompanies    int
	TotalDeals        int
	TotalQuotes       int
	TotalTransactions int

	Quotes       []crm.StatusTotal
	Transactions []crm.StatusTotal
	Metrics      analytics.Metrics

	// Needs attention
	Overdue       []models.Activity
	StaleContacts []StaleContact

	GeneratedAt time.Time
}

type StaleContact struct {
	Name string
	// Last is zero when the contact was never reached.
	Last time.Time
}

// GenerateDashboardStats summarizes an already-loaded workspace.
func GenerateDashboardStats(w *crm.Workspace) *DashboardStats {
	now := w.Now()
	stats := &DashboardStats{
		Pipeline:          w.PipelineStats(),
		TotalContacts:     w.Contacts.Count(),
		TotalCompanies:    w.Companies.Count(),
		TotalDeals:        w.Deals.Count(),
		TotalQuotes:       w.Quotes.Count(),
		TotalTransactions: w.Transactions.Count(),
		Quotes:            w.QuoteStats(),
		Transactions:      w.TransactionTotals(),
		Metrics:           analytics.Compute(w.Deals.Items(), w.Contacts.Items(), w.Activities.Items(), now),
		Overdue:           w.OverdueActivities(now),
		GeneratedAt:       now,
	}

	for _, contact := range w.Contacts.Items() {
		if contact.LastContactDate == "" {
			stats.StaleContacts = append(stats.StaleContacts, StaleContact{Name: contact.Name})
			continue
		}
		last, err := time.Parse(models.DateLayout, contact.LastContactDate)
		if err == nil && now.Sub(last) > StaleAfter {
			stats.StaleContacts = append(stats.StaleContacts, StaleContact{Name: contact.Name, Last: last})
		}
	}

	return stats
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	// Header
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  PAGEN ADMIN DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("PIPELINE OVERVIEW\n")
	renderBars(&out, stats.Pipeline)
	out.WriteString("\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  📇 %d contacts  🏢 %d companies  💼 %d deals  📄 %d quotes  💳 %d transactions\n\n",
		stats.TotalContacts, stats.TotalCompanies, stats.TotalDeals, stats.TotalQuotes, stats.TotalTransactions))

	forecast := stats.Metrics.Forecast
	monthly, _ := forecast.MonthlyForecast.Float64()
	quarterly, _ := forecast.QuarterlyForecast.Float64()
	out.WriteString("FORECAST\n")
	out.WriteString(fmt.Sprintf("  This month  $%s (%d%% confidence)\n", humanize.Commaf(monthly), analytics.MonthlyConfidence))
	out.WriteString(fmt.Sprintf("  This quarter $%s (%d%% confidence)\n", humanize.Commaf(quarterly), analytics.QuarterlyConfidence))
	out.WriteString(fmt.Sprintf("  Avg conversion %.1f%%\n\n", stats.Metrics.Conversion.Average))

	if len(stats.Metrics.Performers) > 0 {
		out.WriteString("TOP CONTACTS\n")
		for i, p := range stats.Metrics.Performers {
			score, _ := p.Score.Float64()
			out.WriteString(fmt.Sprintf("  %d. %-20s %s pts\n", i+1, p.Name, humanize.Commaf(score)))
		}
		out.WriteString("\n")
	}

	if len(stats.StaleContacts) > 0 || len(stats.Overdue) > 0 {
		out.WriteString("NEEDS ATTENTION\n")

		if len(stats.Overdue) > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d overdue activities\n", len(stats.Overdue)))
			for _, a := range stats.Overdue {
				out.WriteString(fmt.Sprintf("     - %s (due %s)\n", a.Title, a.DueDate))
			}
		}

		if len(stats.StaleContacts) > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d contacts - no contact in 30+ days\n", len(stats.StaleContacts)))
			for _, c := range stats.StaleContacts {
				last := "never"
				if !c.Last.IsZero() {
					last = humanize.RelTime(c.Last, stats.GeneratedAt, "ago", "from now")
				}
				out.WriteString(fmt.Sprintf("     - %s (%s)\n", c.Name, last))
			}
		}
	}

	return out.String()
}

func renderBars(out *strings.Builder, totals []crm.StatusTotal) {
	// Find max count for scaling
	maxCount := 0
	for _, t := range totals {
		if t.Count > maxCount {
			maxCount = t.Count
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, t := range totals {
		// Calculate bar length (0-10 blocks)
		barLength := (t.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)

		out.WriteString(fmt.Sprintf("  %-13s %s  %2d ($%s)\n",
			t.Status, bar, t.Count, humanize.SIWithDigits(t.Amount, 1, "")))
	}
}
