// ABOUTME: HTML admin pages: searchable sortable lists, add/edit forms, delete confirmation, board
// ABOUTME: Every page GET reloads its collection so the list reflects the store
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/harperreed/pagen-admin/crm"
	"github.com/harperreed/pagen-admin/entity"
	"github.com/harperreed/pagen-admin/models"
	"github.com/harperreed/pagen-admin/schema"
)

var moneyFields = map[string]bool{
	"value":          true,
	"totalAmount":    true,
	"amount":         true,
	"totalDealValue": true,
	"discount":       true,
	"taxAmount":      true,
}

var textareaFields = map[string]bool{
	"notes":              true,
	"description":        true,
	"termsAndConditions": true,
}

// lookupPages names the page whose records an id field points at.
var lookupPages = map[string]string{
	"contactId":  "contacts",
	"companyId":  "companies",
	"customerId": "companies",
	"dealId":     "deals",
}

// transitionFields is the status-like field each page moves through.
var transitionFields = map[string]string{
	"deals":      "stage",
	"activities": "status",
}

type column struct {
	Field  string
	Label  string
	Href   string
	Sorted bool
	Dir    string
}

type rowView struct {
	ID    int64
	Cells []string
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type fieldView struct {
	Name    string
	Label   string
	Input   string
	Value   string
	Options []option
	Error   string
}

type detailField struct {
	Label string
	Value string
}

func (s *Server) page(w http.ResponseWriter, r *http.Request) (crm.Collection, bool) {
	c, err := s.ws.Lookup(chi.URLParam(r, "page"))
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	return c, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *Server) loadFailed(w http.ResponseWriter, r *http.Request, c crm.Collection, err error) {
	s.renderTemplate(w, http.StatusBadGateway, map[string]any{
		"Title":           c.Title(),
		"Name":            c.Name(),
		"ContentTemplate": "error-content",
		"Error":           "Failed to load " + strings.ToLower(c.Title()) + ": " + err.Error(),
		"Retry":           r.URL.RequestURI(),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	c, ok := s.page(w, r)
	if !ok {
		return
	}
	if err := c.Load(r.Context()); err != nil {
		s.loadFailed(w, r, c, err)
		return
	}

	q := r.URL.Query()
	query := q.Get("q")
	sort := c.DefaultSort()
	if field := q.Get("sort"); field != "" {
		if _, known := c.Mapping().Field(field); known {
			sort = entity.SortState{Field: field, Dir: entity.ParseDirection(q.Get("dir"))}
		}
	}

	var columns []column
	for _, f := range c.Columns() {
		next := sort.Toggle(f)
		params := url.Values{"sort": {next.Field}, "dir": {next.Dir.String()}}
		if query != "" {
			params.Set("q", query)
		}
		col := column{Field: f, Label: entity.Label(f), Href: "/" + c.Name() + "?" + params.Encode()}
		if sort.Field == f {
			col.Sorted = true
			col.Dir = sort.Dir.String()
		}
		columns = append(columns, col)
	}

	items := c.List(query, sort)
	rows := make([]rowView, 0, len(items))
	for _, values := range items {
		id, _ := toID(values[schema.IDField])
		row := rowView{ID: id}
		for _, f := range c.Columns() {
			row.Cells = append(row.Cells, formatValue(f, values[f]))
		}
		rows = append(rows, row)
	}

	s.renderTemplate(w, http.StatusOK, map[string]any{
		"Title":           c.Title(),
		"Name":            c.Name(),
		"ContentTemplate": "list-content",
		"Columns":         columns,
		"Rows":            rows,
		"Query":           query,
		"Total":           c.Count(),
	})
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	c, ok := s.page(w, r)
	if !ok {
		return
	}
	if err := s.loadLookups(r, c); err != nil {
		s.loadFailed(w, r, c, err)
		return
	}
	s.renderForm(w, http.StatusOK, c, 0, valuesToRaw(c, c.Defaults()), nil, "")
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	c, ok := s.page(w, r)
	if !ok {
		return
	}
	raw, values, errs, ok := s.parseForm(w, r, c)
	if !ok {
		return
	}
	if len(errs) > 0 {
		s.renderForm(w, http.StatusUnprocessableEntity, c, 0, raw, errs, "")
		return
	}

	created, err := c.Create(r.Context(), values)
	if err != nil {
		s.submitFailed(w, c, 0, raw, err)
		return
	}
	id, _ := toID(created[schema.IDField])
	s.logger.Info("record created", "page", c.Name(), "id", id)
	http.Redirect(w, r, "/"+c.Name(), http.StatusSeeOther)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	c, ok := s.page(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.loadLookups(r, c); err != nil {
		s.loadFailed(w, r, c, err)
		return
	}
	values, found := c.Get(id)
	if !found {
		http.NotFound(w, r)
		return
	}
	s.renderForm(w, http.StatusOK, c, id, valuesToRaw(c, values), nil, "")
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	c, ok := s.page(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	raw, values, errs, ok := s.parseForm(w, r, c)
	if !ok {
		return
	}
	if len(errs) > 0 {
		s.renderForm(w, http.StatusUnprocessableEntity, c, id, raw, errs, "")
		return
	}

	if _, err := c.Update(r.Context(), id, values); err != nil {
		s.submitFailed(w, c, id, raw, err)
		return
	}
	s.logger.Info("record updated", "page", c.Name(), "id", id)
	http.Redirect(w, r, "/"+c.Name(), http.StatusSeeOther)
}

func (s *Server) submitFailed(w http.ResponseWriter, c crm.Collection, id int64, raw map[string]string, err error) {
	if errs, ok := entity.AsFieldErrors(err); ok {
		s.renderForm(w, http.StatusUnprocessableEntity, c, id, raw, errs, "")
		return
	}
	status := http.StatusBadGateway
	if errors.Is(err, entity.ErrNotFound) {
		status = http.StatusNotFound
	}
	s.logger.Warn("submit failed", "page", c.Name(), "id", id, "err", err)
	s.renderForm(w, status, c, id, raw, nil, err.Error())
}

func (s *Server) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	c, ok := s.page(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if c.Count() == 0 {
		if err := c.Load(r.Context()); err != nil {
			s.loadFailed(w, r, c, err)
			return
		}
	}
	values, found := c.Get(id)
	if !found {
		http.NotFound(w, r)
		return
	}
	s.renderTemplate(w, http.StatusOK, map[string]any{
		"Title":           "Delete " + singular(c.Name()),
		"Name":            c.Name(),
		"ContentTemplate": "delete-content",
		"ID":              id,
		"Display":         formatValue("", values[c.Mapping().Display()]),
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	c, ok := s.page(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := c.Delete(r.Context(), id); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, entity.ErrNotFound) {
			status = http.StatusNotFound
		}
		s.renderTemplate(w, status, map[string]any{
			"Title":           c.Title(),
			"Name":            c.Name(),
			"ContentTemplate": "error-content",
			"Error":           "Failed to delete: " + err.Error(),
			"Retry":           "/" + c.Name(),
		})
		return
	}
	s.logger.Info("record deleted", "page", c.Name(), "id", id)
	http.Redirect(w, r, "/"+c.Name(), http.StatusSeeOther)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	c, ok := s.page(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	field, ok := transitionFields[c.Name()]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	value := r.PostForm.Get(field)
	if !slices.Contains(crm.Choices(c.Name(), field), value) {
		http.Error(w, "invalid "+field, http.StatusBadRequest)
		return
	}

	if _, err := c.Transition(r.Context(), id, field, value); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, entity.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	back := r.PostForm.Get("return")
	if back == "" || !strings.HasPrefix(back, "/") || strings.HasPrefix(back, "//") {
		back = "/" + c.Name()
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

type boardColumn struct {
	Name   string
	Count  int
	Total  string
	Deals  []boardCard
	Stages []string
}

type boardCard struct {
	ID      int64
	Title   string
	Contact string
	Value   string
	Stage   string
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	deals := s.ws.Deals
	if err := deals.Load(r.Context()); err != nil {
		s.loadFailed(w, r, deals, err)
		return
	}
	query := r.URL.Query().Get("q")

	var columns []boardColumn
	for _, bucket := range s.ws.Board(query) {
		col := boardColumn{Name: bucket.Name, Count: bucket.Count, Total: "$" + humanize.Commaf(bucket.Total)}
		for _, d := range bucket.Items {
			col.Deals = append(col.Deals, boardCard{
				ID:      d.ID,
				Title:   d.Title,
				Contact: s.ws.DealContactName(d),
				Value:   "$" + humanize.Commaf(d.Value),
				Stage:   d.Stage,
			})
		}
		columns = append(columns, col)
	}

	s.renderTemplate(w, http.StatusOK, map[string]any{
		"Title":           "Pipeline",
		"Name":            deals.Name(),
		"ContentTemplate": "board-content",
		"Columns":         columns,
		"Stages":          models.DealStages,
		"Query":           query,
	})
}

// loadLookups makes sure the pages behind the form's id selects are loaded,
// plus the page itself.
func (s *Server) loadLookups(r *http.Request, c crm.Collection) error {
	if err := c.Load(r.Context()); err != nil {
		return err
	}
	for _, f := range c.FormFields() {
		target, ok := lookupPages[f]
		if !ok || target == c.Name() {
			continue
		}
		lc, err := s.ws.Lookup(target)
		if err != nil {
			return err
		}
		if lc.Count() == 0 {
			if err := lc.Load(r.Context()); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseForm coerces the posted form into typed values. Coercion failures
// come back as field errors alongside the raw text for re-rendering.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request, c crm.Collection) (map[string]string, map[string]any, entity.FieldErrors, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return nil, nil, nil, false
	}

	m := c.Mapping()
	raw := make(map[string]string)
	for _, f := range c.FormFields() {
		v := strings.TrimSpace(r.PostForm.Get(f))
		if field, ok := m.Field(f); ok && field.Kind() == schema.KindBool && v == "" {
			v = "false"
		}
		raw[f] = v
	}

	values, failures := m.CoerceAll(raw)
	errs := entity.FieldErrors{}
	for f := range failures {
		errs.Add(f, "Please enter a valid "+strings.ToLower(entity.Label(f)))
	}
	s.fillLookupNames(c, values)
	return raw, values, errs, true
}

// fillLookupNames copies the display name of a chosen lookup record into its
// companion name field when that field was left blank.
func (s *Server) fillLookupNames(c crm.Collection, values map[string]any) {
	m := c.Mapping()
	for _, f := range c.FormFields() {
		field, ok := m.Field(f)
		target, isLookup := lookupPages[f]
		if !ok || !isLookup || field.LookupName == "" {
			continue
		}
		if name, isString := values[field.LookupName].(string); isString && name != "" {
			continue
		}
		id, ok := toID(values[f])
		if !ok {
			continue
		}
		if name := s.displayName(target, id); name != "" {
			values[field.LookupName] = name
		}
	}
}

func (s *Server) displayName(page string, id int64) string {
	c, err := s.ws.Lookup(page)
	if err != nil {
		return ""
	}
	values, ok := c.Get(id)
	if !ok {
		return ""
	}
	name, _ := values[c.Mapping().Display()].(string)
	return name
}

func (s *Server) lookupOptions(page, selected string) []option {
	c, err := s.ws.Lookup(page)
	if err != nil {
		return nil
	}
	display := c.Mapping().Display()
	opts := []option{{Value: "", Label: "(none)", Selected: selected == ""}}
	for _, values := range c.List("", entity.SortState{Field: display}) {
		id, _ := toID(values[schema.IDField])
		v := strconv.FormatInt(id, 10)
		label, _ := values[display].(string)
		opts = append(opts, option{Value: v, Label: label, Selected: v == selected})
	}
	return opts
}

func (s *Server) renderForm(w http.ResponseWriter, status int, c crm.Collection, id int64, raw map[string]string, errs entity.FieldErrors, general string) {
	m := c.Mapping()
	var fields []fieldView
	for _, f := range c.FormFields() {
		fv := fieldView{Name: f, Label: entity.Label(f), Input: "text", Value: raw[f], Error: errs[f]}
		field, _ := m.Field(f)
		switch {
		case lookupPages[f] != "":
			fv.Input = "select"
			fv.Options = s.lookupOptions(lookupPages[f], raw[f])
		case crm.Choices(c.Name(), f) != nil:
			fv.Input = "select"
			for _, choice := range crm.Choices(c.Name(), f) {
				fv.Options = append(fv.Options, option{Value: choice, Label: choice, Selected: choice == raw[f]})
			}
		case field.Kind() == schema.KindBool:
			fv.Input = "checkbox"
		case field.Kind() == schema.KindInt || field.Kind() == schema.KindFloat:
			fv.Input = "number"
		case textareaFields[f]:
			fv.Input = "textarea"
		case strings.HasSuffix(f, "Date") || f == "validUntil":
			fv.Input = "date"
		case f == "email":
			fv.Input = "email"
		}
		fields = append(fields, fv)
	}

	label := singular(c.Name())
	data := map[string]any{
		"Name":            c.Name(),
		"ContentTemplate": "form-content",
		"Fields":          fields,
		"ID":              id,
		"Error":           general,
	}
	if id == 0 {
		data["Title"] = "New " + label
		data["Action"] = "/" + c.Name()
	} else {
		data["Title"] = "Edit " + label
		data["Action"] = "/" + c.Name() + "/" + strconv.FormatInt(id, 10)
		if field, ok := transitionFields[c.Name()]; ok {
			data["TransitionField"] = field
			data["TransitionChoices"] = crm.Choices(c.Name(), field)
			data["TransitionValue"] = raw[field]
		}
		data["Related"] = s.related(c, id)
	}
	s.renderTemplate(w, status, data)
}

// related lists the read-only extras shown under an edit form.
func (s *Server) related(c crm.Collection, id int64) []detailField {
	var out []detailField
	switch c.Name() {
	case "deals":
		deal, ok := s.ws.Deals.Cache().Get(id)
		if !ok {
			return nil
		}
		if contact, ok := s.ws.DealContact(deal); ok {
			out = append(out, detailField{Label: "Contact", Value: contact.Name + " <" + contact.Email + ">"})
		}
		for _, entry := range deal.Activities {
			out = append(out, detailField{Label: entry.Timestamp.Format("2006-01-02 15:04"), Value: entry.Description})
		}
		for _, a := range s.ws.ActivitiesForDeal(id) {
			out = append(out, detailField{Label: "Activity", Value: a.Title + " (" + a.Status + ")"})
		}
	case "contacts":
		for _, a := range s.ws.ActivitiesForContact(id) {
			out = append(out, detailField{Label: "Activity", Value: a.Title + " (" + a.Status + ")"})
		}
	}
	return out
}

func valuesToRaw(c crm.Collection, values map[string]any) map[string]string {
	raw := make(map[string]string)
	for _, f := range c.FormFields() {
		raw[f] = formatValue("", values[f])
	}
	return raw
}

// singular turns a page name into its entity label: "activities" is "Activity".
func singular(page string) string {
	if strings.HasSuffix(page, "ies") {
		return entity.Label(strings.TrimSuffix(page, "ies") + "y")
	}
	return entity.Label(strings.TrimSuffix(page, "s"))
}

func formatValue(field string, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		if moneyFields[field] {
			return "$" + humanize.Commaf(x)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func toID(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		return int64(x), x > 0
	case int64:
		return x, x > 0
	case int:
		return int64(x), x > 0
	}
	return 0, false
}
