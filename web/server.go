// ABOUTME: Web admin server with embedded templates, the JSON record API, and metrics
// ABOUTME: chi router with request IDs, request logging, and graceful shutdown
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/harperreed/pagen-admin/crm"
	"github.com/harperreed/pagen-admin/entity"
	"github.com/harperreed/pagen-admin/remote"
	"github.com/harperreed/pagen-admin/viz"
)

//go:embed templates/*.html
var templatesFS embed.FS

// ShutdownTimeout bounds how long Start waits for in-flight requests.
const ShutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	Logger *log.Logger
	// Metrics is served at /metrics when set.
	Metrics http.Handler
}

type Server struct {
	ws        *crm.Workspace
	logger    *log.Logger
	metrics   http.Handler
	templates *template.Template
	generator *viz.GraphGenerator
}

func NewServer(ws *crm.Workspace, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	// Helper functions for templates
	funcMap := template.FuncMap{
		"label": entity.Label,
		"money": func(v float64) string {
			return "$" + humanize.Commaf(v)
		},
		"join": strings.Join,
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Server{
		ws:        ws,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		templates: tmpl,
		generator: viz.NewGraphGenerator(ws),
	}, nil
}

// Handler builds the full route table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Mount("/api/records", RecordsAPI(s.ws.Backend(), s.logger))

	r.Get("/", s.handleDashboard)
	r.Get("/deals/board", s.handleBoard)
	r.Get("/graphs/{kind}", s.handleGraph)

	r.Route("/{page}", func(p chi.Router) {
		p.Get("/", s.handleList)
		p.Post("/", s.handleCreate)
		p.Get("/new", s.handleNew)
		p.Get("/{id}", s.handleDetail)
		p.Post("/{id}", s.handleUpdate)
		p.Get("/{id}/delete", s.handleConfirmDelete)
		p.Post("/{id}/delete", s.handleDelete)
		p.Post("/{id}/transition", s.handleTransition)
	})

	return r
}

// Start serves on addr until ctx is cancelled, then drains connections.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting web server", "url", "http://"+addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down web server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type requestIDKey struct{}

// requestID keeps an incoming X-Request-ID or assigns a fresh one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(remote.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(remote.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// RequestID returns the identifier assigned to the request, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", RequestID(r.Context()))
	})
}

func (s *Server) renderTemplate(w http.ResponseWriter, status int, data map[string]any) {
	data["Pages"] = s.ws.Collections()
	if _, ok := data["Name"]; !ok {
		data["Name"] = ""
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, "layout.html", data); err != nil {
		s.logger.Error("template error", "content", data["ContentTemplate"], "err", err)
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.LoadAll(r.Context()); err != nil {
		s.renderTemplate(w, http.StatusBadGateway, map[string]any{
			"Title":           "Dashboard",
			"ContentTemplate": "error-content",
			"Error":           err.Error(),
			"Retry":           r.URL.RequestURI(),
		})
		return
	}

	s.renderTemplate(w, http.StatusOK, map[string]any{
		"Stats":           viz.GenerateDashboardStats(s.ws),
		"Title":           "Dashboard",
		"ContentTemplate": "dashboard-content",
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.LoadAll(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	var (
		svg []byte
		err error
	)
	switch chi.URLParam(r, "kind") {
	case "pipeline":
		svg, err = s.generator.GeneratePipelineGraph(r.Context(), viz.FormatSVG)
	case "accounts":
		svg, err = s.generator.GenerateAccountGraph(r.Context(), viz.FormatSVG)
	default:
		http.Error(w, "Invalid graph type", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}
