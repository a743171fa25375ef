// ABOUTME: JSON record API over a raw store.Backend, the wire protocol of the remote backend
// ABOUTME: Records travel with storage field names; 404 marks unknown collections and identities
package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/harperreed/pagen-admin/crm"
	"github.com/harperreed/pagen-admin/store"
)

type recordsAPI struct {
	backend store.Backend
	logger  *log.Logger
}

// RecordsAPI serves list/get/create/update/delete for every CRM collection.
// Mount it at /api/records.
func RecordsAPI(backend store.Backend, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	a := &recordsAPI{backend: backend, logger: logger}
	r := chi.NewRouter()
	r.Get("/{collection}", a.handleList)
	r.Post("/{collection}", a.handleCreate)
	r.Get("/{collection}/{id}", a.handleGet)
	r.Put("/{collection}/{id}", a.handleUpdate)
	r.Delete("/{collection}/{id}", a.handleDelete)
	return r
}

func (a *recordsAPI) repository(w http.ResponseWriter, r *http.Request) (store.Repository, bool) {
	name := chi.URLParam(r, "collection")
	if _, ok := crm.Mapping(name); !ok {
		writeError(w, http.StatusNotFound, "unknown collection "+strconv.Quote(name))
		return nil, false
	}
	return a.backend.Collection(name), true
}

func recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (store.Record, bool) {
	var rec store.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil || rec == nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	return rec, true
}

func (a *recordsAPI) handleList(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.repository(w, r)
	if !ok {
		return
	}
	records, err := repo.List(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *recordsAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.repository(w, r)
	if !ok {
		return
	}
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	rec, err := repo.Get(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *recordsAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.repository(w, r)
	if !ok {
		return
	}
	fields, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	rec, err := repo.Create(r.Context(), fields)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (a *recordsAPI) handleUpdate(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.repository(w, r)
	if !ok {
		return
	}
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	fields, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	rec, err := repo.Update(r.Context(), id, fields)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *recordsAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.repository(w, r)
	if !ok {
		return
	}
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	if err := repo.Delete(r.Context(), id); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *recordsAPI) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		a.logger.Error("record api failure", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
