// ABOUTME: Sales analytics over the deal, contact, and activity caches
// ABOUTME: Pipeline value, conversion, activity completion, top contacts, and revenue forecast
package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/harperreed/pagen-admin/crm"
	"github.com/harperreed/pagen-admin/models"
)

// FunnelStages are the stages the pipeline and conversion metrics walk.
var FunnelStages = []string{
	models.StageLead,
	models.StageQualified,
	models.StageProposal,
	models.StageNegotiation,
	models.StageClosedWon,
}

// StageWeights is the close probability applied to open deals per stage.
var StageWeights = map[string]decimal.Decimal{
	models.StageLead:        decimal.RequireFromString("0.1"),
	models.StageQualified:   decimal.RequireFromString("0.3"),
	models.StageProposal:    decimal.RequireFromString("0.5"),
	models.StageNegotiation: decimal.RequireFromString("0.8"),
}

var (
	pipelineShare = decimal.RequireFromString("0.4")
	activityScore = decimal.NewFromInt(1000)
	hundred       = decimal.NewFromInt(100)
)

// TopPerformerCount is how many contacts TopPerformers keeps.
const TopPerformerCount = 5

// Forecast confidence percentages.
const (
	MonthlyConfidence   = 75
	QuarterlyConfidence = 65
)

type StageValue struct {
	Stage string          `json:"stage"`
	Count int             `json:"count"`
	Value decimal.Decimal `json:"value"`
}

type PipelineValue struct {
	Total  decimal.Decimal `json:"totalValue"`
	Stages []StageValue    `json:"stages"`
}

type ConversionRate struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Rate float64 `json:"rate"`
}

type Conversion struct {
	Average float64          `json:"averageRate"`
	Rates   []ConversionRate `json:"rates"`
}

type ActivityWindow struct {
	Completed      int     `json:"completed"`
	Total          int     `json:"total"`
	CompletionRate float64 `json:"completionRate"`
}

type ActivitySummary struct {
	ThisWeek  ActivityWindow `json:"thisWeek"`
	ThisMonth ActivityWindow `json:"thisMonth"`
}

type Performer struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Company       string          `json:"company,omitempty"`
	DealValue     decimal.Decimal `json:"dealValue"`
	DealCount     int             `json:"dealCount"`
	ActivityCount int             `json:"activityCount"`
	Score         decimal.Decimal `json:"score"`
}

type Forecast struct {
	MonthlyActual     decimal.Decimal `json:"monthlyActual"`
	MonthlyForecast   decimal.Decimal `json:"monthlyForecast"`
	QuarterlyForecast decimal.Decimal `json:"quarterlyForecast"`
}

// Metrics is the full dashboard.
type Metrics struct {
	Pipeline    PipelineValue   `json:"pipeline"`
	Conversion  Conversion      `json:"conversion"`
	Activities  ActivitySummary `json:"activities"`
	Performers  []Performer     `json:"performers"`
	Forecast    Forecast        `json:"forecast"`
	GeneratedAt time.Time       `json:"generatedAt"`
}

// Load refreshes the deal, contact, and activity pages concurrently and
// computes the dashboard from them. Any load failure aborts the dashboard.
func Load(ctx context.Context, w *crm.Workspace) (Metrics, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Deals.Load(ctx) })
	g.Go(func() error { return w.Contacts.Load(ctx) })
	g.Go(func() error { return w.Activities.Load(ctx) })
	if err := g.Wait(); err != nil {
		return Metrics{}, err
	}
	return Compute(w.Deals.Items(), w.Contacts.Items(), w.Activities.Items(), w.Now()), nil
}

// Compute builds the dashboard from already-loaded items.
func Compute(deals []models.Deal, contacts []models.Contact, activities []models.Activity, now time.Time) Metrics {
	return Metrics{
		Pipeline:    Pipeline(deals),
		Conversion:  ConversionRates(deals),
		Activities:  Activities(activities, now),
		Performers:  TopPerformers(contacts, deals, activities, TopPerformerCount),
		Forecast:    RevenueForecast(deals),
		GeneratedAt: now,
	}
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// Pipeline totals deal value per funnel stage.
func Pipeline(deals []models.Deal) PipelineValue {
	out := PipelineValue{Total: decimal.Zero}
	for _, stage := range FunnelStages {
		sv := StageValue{Stage: stage, Value: decimal.Zero}
		for _, d := range deals {
			if d.Stage == stage {
				sv.Count++
				sv.Value = sv.Value.Add(money(d.Value))
			}
		}
		out.Total = out.Total.Add(sv.Value)
		out.Stages = append(out.Stages, sv)
	}
	return out
}

// ConversionRates compares deal counts of each adjacent funnel stage pair,
// as a percentage rounded to one decimal. An empty source stage rates 0.
func ConversionRates(deals []models.Deal) Conversion {
	counts := make(map[string]int)
	for _, d := range deals {
		counts[d.Stage]++
	}

	var out Conversion
	sum := decimal.Zero
	for i := 0; i < len(FunnelStages)-1; i++ {
		from, to := FunnelStages[i], FunnelStages[i+1]
		rate := percent(counts[to], counts[from])
		sum = sum.Add(rate)
		f, _ := rate.Float64()
		out.Rates = append(out.Rates, ConversionRate{From: from, To: to, Rate: f})
	}
	avg, _ := sum.Div(decimal.NewFromInt(int64(len(out.Rates)))).Round(1).Float64()
	out.Average = avg
	return out
}

func percent(part, whole int) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).Mul(hundred).Div(decimal.NewFromInt(int64(whole))).Round(1)
}

// Activities summarizes completion for activities due in the last 7 and 30
// days. Activities without a parseable due date are left out.
func Activities(activities []models.Activity, now time.Time) ActivitySummary {
	weekAgo := now.Add(-7 * 24 * time.Hour)
	monthAgo := now.Add(-30 * 24 * time.Hour)

	var week, month ActivityWindow
	for _, a := range activities {
		due, ok := dueDate(a.DueDate)
		if !ok {
			continue
		}
		done := a.Status == models.ActivityCompleted
		if !due.Before(weekAgo) {
			week.Total++
			if done {
				week.Completed++
			}
		}
		if !due.Before(monthAgo) {
			month.Total++
			if done {
				month.Completed++
			}
		}
	}
	week.CompletionRate, _ = percent(week.Completed, week.Total).Float64()
	month.CompletionRate, _ = percent(month.Completed, month.Total).Float64()
	return ActivitySummary{ThisWeek: week, ThisMonth: month}
}

func dueDate(s string) (time.Time, bool) {
	if t, err := time.Parse(models.DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// TopPerformers scores contacts by deal value plus 1000 per activity and
// returns the n best. Ties keep contact order.
func TopPerformers(contacts []models.Contact, deals []models.Deal, activities []models.Activity, n int) []Performer {
	performers := make([]Performer, 0, len(contacts))
	for _, c := range contacts {
		p := Performer{ID: c.ID, Name: c.Name, Company: c.Company, DealValue: decimal.Zero}
		for _, d := range deals {
			if d.ContactID != nil && *d.ContactID == c.ID {
				p.DealCount++
				p.DealValue = p.DealValue.Add(money(d.Value))
			}
		}
		for _, a := range activities {
			if a.ContactID != nil && *a.ContactID == c.ID {
				p.ActivityCount++
			}
		}
		p.Score = p.DealValue.Add(activityScore.Mul(decimal.NewFromInt(int64(p.ActivityCount))))
		performers = append(performers, p)
	}

	sort.SliceStable(performers, func(i, j int) bool {
		return performers[i].Score.GreaterThan(performers[j].Score)
	})
	if len(performers) > n {
		performers = performers[:n]
	}
	return performers
}

// RevenueForecast projects this month's revenue as closed-won value plus
// 40% of the stage-weighted open pipeline; the quarter is three months.
func RevenueForecast(deals []models.Deal) Forecast {
	weighted := decimal.Zero
	actual := decimal.Zero
	for _, d := range deals {
		switch d.Stage {
		case models.StageClosedWon:
			actual = actual.Add(money(d.Value))
		case models.StageClosedLost:
		default:
			if w, ok := StageWeights[d.Stage]; ok {
				weighted = weighted.Add(money(d.Value).Mul(w))
			}
		}
	}
	monthly := actual.Add(weighted.Mul(pipelineShare))
	return Forecast{
		MonthlyActual:     actual,
		MonthlyForecast:   monthly,
		QuarterlyForecast: monthly.Mul(decimal.NewFromInt(3)),
	}
}
