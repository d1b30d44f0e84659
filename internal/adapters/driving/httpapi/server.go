// Package httpapi exposes ingestion, search and chat over JSON HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/domain"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driven"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/core/ports/driving"
	"github.com/NAry-Byun/CWB-Hackathon-2025-sub000/internal/logger"
)

// maxBodyBytes caps request bodies; ingested text is the largest payload.
const maxBodyBytes = 10 << 20

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// Services holds the core services the API serves.
// Fetcher may be nil, in which case ingesting by URL is refused.
type Services struct {
	Ingest      driving.IngestService
	Retrieval   driving.RetrievalService
	Chat        driving.ChatService
	Maintenance driving.MaintenanceService
	Fetcher     driven.DocumentFetcher

	// Defaults fill top_k, similarity_threshold and dedupe when a
	// request leaves them out.
	Defaults domain.SearchSettings
}

// Server is the HTTP front end.
type Server struct {
	svc Services
	mux *http.ServeMux
}

// NewServer creates a server and registers its routes.
func NewServer(svc Services) (*Server, error) {
	if svc.Ingest == nil || svc.Retrieval == nil || svc.Maintenance == nil {
		return nil, errors.New("httpapi: ingest, retrieval and maintenance services are required")
	}
	if svc.Defaults.TopK < 1 {
		svc.Defaults = domain.DefaultAppSettings().Search
	}

	s := &Server{svc: svc, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /search", s.handleSearch)
	s.mux.HandleFunc("POST /ingest", s.handleIngest)
	s.mux.HandleFunc("POST /ask", s.handleAsk)
	s.mux.HandleFunc("DELETE /sources/{name}", s.handleDeleteSource)
	s.mux.HandleFunc("GET /stats", s.handleStats)
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	logger.Debug("http: %s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info("http: listening on %s", ln.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// ==================== Request / Response Types ====================

type searchRequest struct {
	Query               string   `json:"query"`
	TopK                *int     `json:"top_k,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
	Dedupe              *bool    `json:"dedupe,omitempty"`
}

type searchResponse struct {
	Results []domain.ContextItem `json:"results"`
}

type ingestRequest struct {
	SourceName   string         `json:"source_name"`
	Text         string         `json:"text"`
	URL          string         `json:"url,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Replace      bool           `json:"replace,omitempty"`
	SkipExisting bool           `json:"skip_existing,omitempty"`
}

type askRequest struct {
	Question            string   `json:"question"`
	TopK                *int     `json:"top_k,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
}

type deleteResponse struct {
	SourceName    string `json:"source_name"`
	ChunksDeleted int    `json:"chunks_deleted"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ==================== Handlers ====================

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decode(w, r, &req) {
		return
	}

	opts := domain.RetrieveOptions{
		TopK:           s.svc.Defaults.TopK,
		Threshold:      s.svc.Defaults.Threshold,
		DedupeBySource: s.svc.Defaults.DedupeBySource,
	}
	if req.TopK != nil {
		opts.TopK = *req.TopK
	}
	if req.SimilarityThreshold != nil {
		opts.Threshold = *req.SimilarityThreshold
	}
	if req.Dedupe != nil {
		opts.DedupeBySource = *req.Dedupe
	}

	items, err := s.svc.Retrieval.Retrieve(r.Context(), req.Query, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []domain.ContextItem{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: items})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !decode(w, r, &req) {
		return
	}

	in := domain.IngestRequest{
		SourceName:   req.SourceName,
		Text:         req.Text,
		Metadata:     req.Metadata,
		Replace:      req.Replace,
		SkipExisting: req.SkipExisting,
	}

	var (
		res *domain.IngestResult
		err error
	)
	switch {
	case req.URL != "" && req.Text != "":
		writeError(w, fmt.Errorf("%w: send either text or url, not both", domain.ErrInvalidInput))
		return

	case req.URL != "":
		if s.svc.Fetcher == nil {
			writeError(w, fmt.Errorf("%w: url ingestion is not enabled", domain.ErrInvalidInput))
			return
		}
		raw, fetchErr := s.svc.Fetcher.Fetch(r.Context(), req.URL)
		if fetchErr != nil {
			writeError(w, fetchErr)
			return
		}
		in.Metadata = withOrigin(in.Metadata, domain.OriginURL)
		res, err = s.svc.Ingest.IngestDocument(r.Context(), raw, in)

	default:
		in.Metadata = withOrigin(in.Metadata, domain.OriginText)
		res, err = s.svc.Ingest.Ingest(r.Context(), in)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.svc.Chat == nil {
		writeError(w, domain.ErrLLMUnavailable)
		return
	}

	var req askRequest
	if !decode(w, r, &req) {
		return
	}

	opts := domain.RetrieveOptions{Threshold: s.svc.Defaults.Threshold}
	if req.TopK != nil {
		opts.TopK = *req.TopK
	}
	if req.SimilarityThreshold != nil {
		opts.Threshold = *req.SimilarityThreshold
		opts.ThresholdSet = true
	}

	answer, err := s.svc.Chat.Ask(r.Context(), req.Question, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	n, err := s.svc.Ingest.DeleteSource(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	if n == 0 {
		writeError(w, fmt.Errorf("%w: no chunks for source %q", domain.ErrNotFound, name))
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{SourceName: name, ChunksDeleted: n})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Maintenance.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.svc.Maintenance.Health(r.Context())
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// ==================== Helpers ====================

// decode reads a JSON body into v, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		writeJSON(w, http.StatusUnsupportedMediaType, errorResponse{Error: "content type must be application/json"})
		return false
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func withOrigin(md map[string]any, origin string) map[string]any {
	out := make(map[string]any, len(md)+1)
	for k, v := range md {
		out[k] = v
	}
	if _, ok := out[domain.MetaOrigin]; !ok {
		out[domain.MetaOrigin] = origin
	}
	return out
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrChunkingConfig):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrLLMUnavailable),
		errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrSearchUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrEmbedding):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Warn("http: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("http: encode response: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
