// ABOUTME: Record MCP tool handlers over the workspace pages
// ABOUTME: Implements list_records, get_record, create_record, update_record, delete_record, and transition_record
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/pagen-admin/crm"
	"github.com/harperreed/pagen-admin/entity"
)

// DefaultLimit caps list results when the caller does not ask for a limit.
const DefaultLimit = 25

type RecordHandlers struct {
	ws *crm.Workspace
}

func NewRecordHandlers(ws *crm.Workspace) *RecordHandlers {
	return &RecordHandlers{ws: ws}
}

const entityHelp = "Entity type: contacts, companies, deals, quotes, transactions, or activities"

type ListRecordsInput struct {
	Entity string `json:"entity" jsonschema:"Entity type: contacts, companies, deals, quotes, transactions, or activities"`
	Query  string `json:"query,omitempty" jsonschema:"Case-insensitive search over the entity's search fields"`
	Sort   string `json:"sort,omitempty" jsonschema:"Field to sort by (default: the entity's default sort)"`
	Desc   bool   `json:"desc,omitempty" jsonschema:"Sort descending"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum results to return (default 25)"`
}

type ListRecordsOutput struct {
	Entity  string           `json:"entity"`
	Results []map[string]any `json:"results"`
	Count   int              `json:"count"`
	Total   int              `json:"total"`
}

type RecordInput struct {
	Entity string `json:"entity" jsonschema:"Entity type: contacts, companies, deals, quotes, transactions, or activities"`
	ID     int64  `json:"id" jsonschema:"Record ID"`
}

type CreateRecordInput struct {
	Entity string         `json:"entity" jsonschema:"Entity type: contacts, companies, deals, quotes, transactions, or activities"`
	Values map[string]any `json:"values" jsonschema:"Field values keyed by field name (for example name, email, stage)"`
}

type UpdateRecordInput struct {
	Entity string         `json:"entity" jsonschema:"Entity type: contacts, companies, deals, quotes, transactions, or activities"`
	ID     int64          `json:"id" jsonschema:"Record ID"`
	Values map[string]any `json:"values" jsonschema:"Fields to change; omitted fields keep their value"`
}

type TransitionRecordInput struct {
	Entity string `json:"entity" jsonschema:"Entity type: deals or activities"`
	ID     int64  `json:"id" jsonschema:"Record ID"`
	Field  string `json:"field,omitempty" jsonschema:"Field to transition (default stage for deals, status for activities)"`
	Value  string `json:"value" jsonschema:"New value, for example Qualified or completed"`
}

type RecordOutput struct {
	Entity string         `json:"entity"`
	Record map[string]any `json:"record"`
}

type DeleteRecordOutput struct {
	Entity  string `json:"entity"`
	ID      int64  `json:"id"`
	Deleted bool   `json:"deleted"`
}

// page resolves the entity name to a loaded page.
func (h *RecordHandlers) page(ctx context.Context, name string) (crm.Collection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("entity is required (%s)", entityHelp)
	}
	c, err := h.ws.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, entityHelp)
	}
	if err := c.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", c.Name(), err)
	}
	return c, nil
}

func (h *RecordHandlers) ListRecords(ctx context.Context, _ *mcp.CallToolRequest, input ListRecordsInput) (*mcp.CallToolResult, ListRecordsOutput, error) {
	c, err := h.page(ctx, input.Entity)
	if err != nil {
		return nil, ListRecordsOutput{}, err
	}

	sort := c.DefaultSort()
	if input.Sort != "" {
		if _, ok := c.Mapping().Field(input.Sort); !ok {
			return nil, ListRecordsOutput{}, fmt.Errorf("unknown sort field %q for %s", input.Sort, c.Name())
		}
		sort = entity.SortState{Field: input.Sort, Dir: entity.Asc}
	}
	if input.Desc {
		sort.Dir = entity.Desc
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows := c.List(input.Query, sort)
	total := len(rows)
	if len(rows) > limit {
		rows = rows[:limit]
	}

	return nil, ListRecordsOutput{
		Entity:  c.Name(),
		Results: rows,
		Count:   len(rows),
		Total:   total,
	}, nil
}

func (h *RecordHandlers) GetRecord(ctx context.Context, _ *mcp.CallToolRequest, input RecordInput) (*mcp.CallToolResult, RecordOutput, error) {
	c, err := h.page(ctx, input.Entity)
	if err != nil {
		return nil, RecordOutput{}, err
	}
	values, ok := c.Get(input.ID)
	if !ok {
		return nil, RecordOutput{}, fmt.Errorf("%s %d: %w", c.Name(), input.ID, entity.ErrNotFound)
	}
	return nil, RecordOutput{Entity: c.Name(), Record: values}, nil
}

func (h *RecordHandlers) CreateRecord(ctx context.Context, _ *mcp.CallToolRequest, input CreateRecordInput) (*mcp.CallToolResult, RecordOutput, error) {
	c, err := h.page(ctx, input.Entity)
	if err != nil {
		return nil, RecordOutput{}, err
	}
	values, err := coerce(c, input.Values)
	if err != nil {
		return nil, RecordOutput{}, err
	}

	created, err := c.Create(ctx, values)
	if err != nil {
		return nil, RecordOutput{}, describe("create", c, err)
	}
	return nil, RecordOutput{Entity: c.Name(), Record: created}, nil
}

func (h *RecordHandlers) UpdateRecord(ctx context.Context, _ *mcp.CallToolRequest, input UpdateRecordInput) (*mcp.CallToolResult, RecordOutput, error) {
	c, err := h.page(ctx, input.Entity)
	if err != nil {
		return nil, RecordOutput{}, err
	}
	if len(input.Values) == 0 {
		return nil, RecordOutput{}, fmt.Errorf("values are required")
	}
	values, err := coerce(c, input.Values)
	if err != nil {
		return nil, RecordOutput{}, err
	}

	updated, err := c.Update(ctx, input.ID, values)
	if err != nil {
		return nil, RecordOutput{}, describe("update", c, err)
	}
	return nil, RecordOutput{Entity: c.Name(), Record: updated}, nil
}

func (h *RecordHandlers) DeleteRecord(ctx context.Context, _ *mcp.CallToolRequest, input RecordInput) (*mcp.CallToolResult, DeleteRecordOutput, error) {
	c, err := h.page(ctx, input.Entity)
	if err != nil {
		return nil, DeleteRecordOutput{}, err
	}
	if err := c.Delete(ctx, input.ID); err != nil {
		return nil, DeleteRecordOutput{}, describe("delete", c, err)
	}
	return nil, DeleteRecordOutput{Entity: c.Name(), ID: input.ID, Deleted: true}, nil
}

// transitionFields is the field each transitionable entity moves along.
var transitionFields = map[string]string{
	"deals":      "stage",
	"activities": "status",
}

func (h *RecordHandlers) TransitionRecord(ctx context.Context, _ *mcp.CallToolRequest, input TransitionRecordInput) (*mcp.CallToolResult, RecordOutput, error) {
	c, err := h.page(ctx, input.Entity)
	if err != nil {
		return nil, RecordOutput{}, err
	}
	field := input.Field
	if field == "" {
		field = transitionFields[c.Name()]
	}
	if field == "" {
		return nil, RecordOutput{}, fmt.Errorf("%s have no transitions; field is required", c.Name())
	}
	if input.Value == "" {
		return nil, RecordOutput{}, fmt.Errorf("value is required")
	}

	updated, err := c.Transition(ctx, input.ID, field, input.Value)
	if err != nil {
		return nil, RecordOutput{}, describe("transition", c, err)
	}
	return nil, RecordOutput{Entity: c.Name(), Record: updated}, nil
}

// coerce turns string inputs into the field's kind; other JSON values pass
// through for the pipeline to validate.
func coerce(c crm.Collection, in map[string]any) (map[string]any, error) {
	m := c.Mapping()
	out := make(map[string]any, len(in))
	for k, v := range in {
		if _, ok := m.Field(k); !ok {
			return nil, fmt.Errorf("unknown field %q for %s", k, c.Name())
		}
		s, isString := v.(string)
		if !isString {
			out[k] = v
			continue
		}
		coerced, err := m.Coerce(k, s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", k, err)
		}
		out[k] = coerced
	}
	return out, nil
}

// describe flattens field errors into one readable message for the agent.
func describe(op string, c crm.Collection, err error) error {
	if fe, ok := entity.AsFieldErrors(err); ok {
		return fmt.Errorf("cannot %s %s: %s", op, singular(c.Name()), fe.Error())
	}
	if errors.Is(err, entity.ErrNotFound) {
		return fmt.Errorf("cannot %s %s: %w", op, singular(c.Name()), err)
	}
	return fmt.Errorf("failed to %s %s: %w", op, singular(c.Name()), err)
}

func singular(name string) string {
	switch name {
	case "companies":
		return "company"
	case "activities":
		return "activity"
	}
	return strings.TrimSuffix(name, "s")
}
