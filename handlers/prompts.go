// ABOUTME: MCP prompt handlers for reusable CRM workflow templates
// ABOUTME: Provides contact-summary, deal-analysis, and follow-up-suggestions prompts
package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/pagen-admin/crm"
)

type PromptHandlers struct {
	ws *crm.Workspace
}

func NewPromptHandlers(ws *crm.Workspace) *PromptHandlers {
	return &PromptHandlers{ws: ws}
}

// Prompts lists the prompt templates GetPrompt answers to.
func Prompts() []*mcp.Prompt {
	return []*mcp.Prompt{
		{
			Name:        "contact-summary",
			Description: "Summarize a contact with their open activities and suggest next steps",
			Arguments: []*mcp.PromptArgument{
				{Name: "contact_id", Description: "Contact ID", Required: true},
			},
		},
		{
			Name:        "deal-analysis",
			Description: "Analyze the deal pipeline by stage",
		},
		{
			Name:        "follow-up-suggestions",
			Description: "Suggest follow-ups from open and overdue activities",
		},
	}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	arguments := request.Params.Arguments
	switch name {
	case "contact-summary":
		return h.getContactSummaryPrompt(ctx, arguments)
	case "deal-analysis":
		return h.getDealAnalysisPrompt(ctx)
	case "follow-up-suggestions":
		return h.getFollowUpSuggestionsPrompt(ctx)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", name)
	}
}

func (h *PromptHandlers) getContactSummaryPrompt(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	contactIDStr, ok := args["contact_id"]
	if !ok {
		return nil, fmt.Errorf("contact_id is required")
	}

	contactID, err := strconv.ParseInt(contactIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid contact_id: %w", err)
	}

	if err := h.ws.Contacts.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch contacts: %w", err)
	}
	if err := h.ws.Activities.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch activities: %w", err)
	}
	contact, ok := h.ws.Contacts.Cache().Get(contactID)
	if !ok {
		return nil, fmt.Errorf("contact %d not found", contactID)
	}
	activities := h.ws.ActivitiesForContact(contactID)

	// Build the prompt
	var promptText strings.Builder
	promptText.WriteString("Please provide a comprehensive summary of this contact:\n\n")
	promptText.WriteString(fmt.Sprintf("Name: %s\n", contact.Name))
	if contact.Email != "" {
		promptText.WriteString(fmt.Sprintf("Email: %s\n", contact.Email))
	}
	if contact.Phone != "" {
		promptText.WriteString(fmt.Sprintf("Phone: %s\n", contact.Phone))
	}
	if contact.Company != "" {
		promptText.WriteString(fmt.Sprintf("Company: %s\n", contact.Company))
	}
	if contact.LastContactDate != "" {
		promptText.WriteString(fmt.Sprintf("Last Contacted: %s\n", contact.LastContactDate))
	}
	if len(activities) > 0 {
		promptText.WriteString(fmt.Sprintf("\nActivities (%d):\n", len(activities)))
		for _, a := range activities {
			promptText.WriteString(fmt.Sprintf("- %s [%s, %s] due %s\n", a.Title, a.Type, a.Status, a.DueDate))
		}
	}
	if contact.Notes != "" {
		promptText.WriteString(fmt.Sprintf("\nNotes: %s\n", contact.Notes))
	}

	promptText.WriteString("\nPlease analyze this contact and provide:")
	promptText.WriteString("\n1. A brief summary of their role and background")
	promptText.WriteString("\n2. Recommendations for next steps or follow-up actions")
	promptText.WriteString("\n3. Any patterns or insights from their activity history")

	return userPrompt(fmt.Sprintf("Summary for contact: %s", contact.Name), promptText.String()), nil
}

func (h *PromptHandlers) getDealAnalysisPrompt(ctx context.Context) (*mcp.GetPromptResult, error) {
	if err := h.ws.Deals.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}

	var promptText strings.Builder
	promptText.WriteString("Please analyze the current deal pipeline:\n\n")

	total := 0.0
	for _, stage := range h.ws.PipelineStats() {
		total += stage.Amount
		promptText.WriteString(fmt.Sprintf("%s: %d deals, $%s\n", stage.Status, stage.Count, humanize.Commaf(stage.Amount)))
	}
	promptText.WriteString(fmt.Sprintf("\nTotal pipeline value: $%s\n", humanize.Commaf(total)))

	promptText.WriteString("\nPlease provide:")
	promptText.WriteString("\n1. Where deals are stalling")
	promptText.WriteString("\n2. Which deals deserve attention this week")
	promptText.WriteString("\n3. Risks to the forecast")

	return userPrompt("Deal pipeline analysis", promptText.String()), nil
}

func (h *PromptHandlers) getFollowUpSuggestionsPrompt(ctx context.Context) (*mcp.GetPromptResult, error) {
	if err := h.ws.Activities.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch activities: %w", err)
	}

	now := h.ws.Now()
	overdue := h.ws.OverdueActivities(now)
	open := h.ws.OpenActivities()

	var promptText strings.Builder
	promptText.WriteString("Please suggest follow-ups based on these activities:\n\n")
	promptText.WriteString(fmt.Sprintf("Overdue (%d):\n", len(overdue)))
	for _, a := range overdue {
		promptText.WriteString(fmt.Sprintf("- %s for %s, due %s\n", a.Title, a.ContactName, a.DueDate))
	}
	promptText.WriteString(fmt.Sprintf("\nOpen (%d):\n", len(open)))
	for _, a := range open {
		promptText.WriteString(fmt.Sprintf("- %s [%s priority] due %s\n", a.Title, a.Priority, a.DueDate))
	}

	promptText.WriteString("\nFor each, suggest a concrete next action and a message draft where useful.")

	return userPrompt("Follow-up suggestions", promptText.String()), nil
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role: "user",
				Content: &mcp.TextContent{
					Text: text,
				},
			},
		},
	}
}
