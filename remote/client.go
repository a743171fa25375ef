// ABOUTME: HTTP record store speaking the JSON record API served by "pagen-admin serve"
// ABOUTME: Maps 404 responses to store.ErrNotFound and tags every request with an ID

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/harperreed/pagen-admin/store"
)

// RequestIDHeader carries the per-request identifier.
const RequestIDHeader = "X-Request-ID"

var ErrRemote = errors.New("remote store error")

// Backend is a store.Backend over HTTP.
type Backend struct {
	base   *url.URL
	client *http.Client
	logger *log.Logger
}

// New creates a backend for the API rooted at baseURL.
func New(baseURL string, timeout time.Duration, logger *log.Logger) (*Backend, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid remote url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid remote url %q: scheme must be http or https", baseURL)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Backend{
		base:   u,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}, nil
}

// Collection returns the repository for one collection.
func (b *Backend) Collection(name string) store.Repository {
	return &repository{backend: b, collection: name}
}

// Close releases idle connections.
func (b *Backend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

type apiError struct {
	Error string `json:"error"`
}

func (b *Backend) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.base.String()+path, reader)
	if err != nil {
		return 0, err
	}
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	b.logger.Debug("remote call", "method", method, "path", path, "status", resp.StatusCode, "request_id", reqID, "elapsed", time.Since(start))

	if resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return resp.StatusCode, errors.New(apiErr.Error)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
}

type repository struct {
	backend    *Backend
	collection string
}

func (r *repository) path(id ...int64) string {
	p := "/api/records/" + url.PathEscape(r.collection)
	if len(id) > 0 {
		p += "/" + strconv.FormatInt(id[0], 10)
	}
	return p
}

// wrap classifies a failed call by its status code.
func (r *repository) wrap(status int, id int64, err error) error {
	if err == nil {
		return nil
	}
	if status == http.StatusNotFound {
		return store.NotFound(r.collection, id)
	}
	if status == 0 {
		return err
	}
	return fmt.Errorf("%s: %w: %w", r.collection, ErrRemote, err)
}

func (r *repository) List(ctx context.Context) ([]store.Record, error) {
	var records []store.Record
	status, err := r.backend.do(ctx, http.MethodGet, r.path(), nil, &records)
	if err != nil {
		return nil, r.wrap(status, 0, err)
	}
	if records == nil {
		records = []store.Record{}
	}
	return records, nil
}

func (r *repository) Get(ctx context.Context, id int64) (store.Record, error) {
	var rec store.Record
	status, err := r.backend.do(ctx, http.MethodGet, r.path(id), nil, &rec)
	return rec, r.wrap(status, id, err)
}

func (r *repository) Create(ctx context.Context, fields store.Record) (store.Record, error) {
	var rec store.Record
	status, err := r.backend.do(ctx, http.MethodPost, r.path(), fields, &rec)
	return rec, r.wrap(status, 0, err)
}

func (r *repository) Update(ctx context.Context, id int64, fields store.Record) (store.Record, error) {
	var rec store.Record
	status, err := r.backend.do(ctx, http.MethodPut, r.path(id), fields, &rec)
	return rec, r.wrap(status, id, err)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	status, err := r.backend.do(ctx, http.MethodDelete, r.path(id), nil, nil)
	return r.wrap(status, id, err)
}
