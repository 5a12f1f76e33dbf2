// Package server exposes ingestion over HTTP.
//
// Routes:
//
//	POST   /communities/{community}/sources            submit a URL
//	GET    /communities/{community}/sources            list sources
//	GET    /communities/{community}/sources/{source}   job status and record
//	DELETE /communities/{community}/sources/{source}   delete a finished source
//	GET    /healthz
//	GET    /metrics
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/poiesic/gleaner"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/metrics"
	"github.com/poiesic/gleaner/storage"
)

// Service is the ingestion API the server exposes. *gleaner.Gleaner
// implements it.
type Service interface {
	Submit(ctx context.Context, communityID, url string) (*core.Job, error)
	Query(ctx context.Context, communityID, sourceID string) (*gleaner.Report, error)
	List(ctx context.Context, communityID string, limit int, cursor string) ([]*core.Job, string, error)
	Delete(ctx context.Context, communityID, sourceID string) error
}

// DefaultListLimit is the page size when a list request sets none.
const DefaultListLimit = 50

// maxBodyBytes bounds submit request bodies.
const maxBodyBytes = 64 << 10

// Server routes HTTP requests to a Service.
type Server struct {
	svc    Service
	auth   Authorizer
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAuthorizer sets the authorization collaborator. Default is AllowAll.
func WithAuthorizer(a Authorizer) Option {
	return func(s *Server) {
		s.auth = a
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a Server for svc.
func New(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		auth:   AllowAll,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/communities/{community}/sources", func(r chi.Router) {
		r.Use(s.authorize)
		r.Post("/", s.handleSubmit)
		r.Get("/", s.handleList)
		r.Get("/{source}", s.handleQuery)
		r.Delete("/{source}", s.handleDelete)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.Authorize(r, chi.URLParam(r, "community")); err != nil {
			writeError(w, http.StatusForbidden, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

type submitRequest struct {
	URL string `json:"url"`
}

type submitResponse struct {
	SourceID string `json:"source_id"`
	Status   string `json:"status"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("body must be a JSON object with a url"))
		return
	}

	job, err := s.svc.Submit(r.Context(), chi.URLParam(r, "community"), req.URL)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{
		SourceID: job.SourceID,
		Status:   job.Status.String(),
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Query(r.Context(), chi.URLParam(r, "community"), chi.URLParam(r, "source"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	view := newJobView(report.Job)
	view.Record = report.Record
	writeJSON(w, http.StatusOK, view)
}

type listResponse struct {
	Items      []jobView `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	jobs, next, err := s.svc.List(r.Context(), chi.URLParam(r, "community"), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	resp := listResponse{Items: make([]jobView, 0, len(jobs)), NextCursor: next}
	for _, job := range jobs {
		resp.Items = append(resp.Items, newJobView(job))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), chi.URLParam(r, "community"), chi.URLParam(r, "source")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps domain errors to status codes. Unclassified errors
// are logged and reported without detail.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidJob), errors.Is(err, core.ErrInvalidURL), errors.Is(err, storage.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, storage.ErrNotFound)
	case errors.Is(err, storage.ErrDuplicateKey), errors.Is(err, gleaner.ErrJobInProgress):
		writeError(w, http.StatusConflict, err)
	default:
		s.logger.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}
