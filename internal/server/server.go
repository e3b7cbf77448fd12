package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/docsections/internal/config"
	"github.com/local/docsections/internal/library"
	"github.com/local/docsections/internal/limiter"
	"github.com/local/docsections/internal/manifest"
	"github.com/local/docsections/internal/metrics"
	"github.com/local/docsections/internal/store"
)

// Queue is the export-queue capability the API needs.
type Queue interface {
	Enqueue(ctx context.Context, payload []byte) error
	CancelJob(ctx context.Context, jobID string) error
}

// StatusStore persists export job progress.
type StatusStore interface {
	Set(ctx context.Context, jobID string, st store.JobStatus) error
	Get(ctx context.Context, jobID string) (store.JobStatus, bool, error)
}

// SessionStore persists browser selection state.
type SessionStore interface {
	Set(ctx context.Context, id string, sess store.Session) error
	Get(ctx context.Context, id string) (store.Session, bool, error)
}

// Cache holds rendered images and extracted text. May be nil.
type Cache interface {
	GetText(ctx context.Context, page int) (string, bool, error)
	SetText(ctx context.Context, page int, text string) error
	GetImage(ctx context.Context, page int, zoom float64, format, color string) ([]byte, bool, error)
	SetImage(ctx context.Context, page int, zoom float64, format, color string, data []byte) error
}

// Dependencies wires the API handlers.
type Dependencies struct {
	Resolver *manifest.Resolver
	Library  *library.Library
	Queue    Queue
	Status   StatusStore
	Sessions SessionStore
	Cache    Cache
	Slots    *limiter.Slots
	Render   config.RenderConfig
	S3Bucket string
}

// Server exposes the section-browser API.
type Server struct {
	deps Dependencies
}

// New creates a Server.
func New(deps Dependencies) *Server {
	if deps.Slots == nil {
		deps.Slots = limiter.New(0)
	}
	return &Server{deps: deps}
}

// RegisterRoutes attaches all API handlers to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/sections", s.handleSections)
	mux.HandleFunc("/sections/resolve", s.handleResolve)
	mux.HandleFunc("/pages/", s.handlePage)
	mux.HandleFunc("/export_section", s.handleExport)
	mux.HandleFunc("/progress/", s.handleProgress)
	mux.HandleFunc("/download_result/", s.handleDownloadResult)
	mux.HandleFunc("/webhook/cancel_export", s.handleCancelExport)
	mux.HandleFunc("/sessions", s.handleSessionCreate)
	mux.HandleFunc("/sessions/", s.handleSession)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// sectionView is the wire form of a section plus its nested sub-sections.
type sectionView struct {
	Name        string        `json:"name"`
	Start       int           `json:"start"`
	End         int           `json:"end"`
	PageCount   int           `json:"page_count"`
	SubSections []sectionView `json:"sub_sections,omitempty"`
}

func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	mains := s.deps.Resolver.MainSections()
	views := make([]sectionView, 0, len(mains))
	for _, m := range mains {
		v := sectionView{Name: m.Name, Start: m.Start, End: m.End, PageCount: m.PageCount()}
		for _, sub := range s.deps.Resolver.SubSections(m) {
			v.SubSections = append(v.SubSections, sectionView{
				Name: sub.Name, Start: sub.Start, End: sub.End, PageCount: sub.PageCount(),
			})
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": views})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	main := r.URL.Query().Get("main")
	sub := r.URL.Query().Get("sub")
	if main == "" {
		http.Error(w, "missing main", http.StatusBadRequest)
		return
	}
	pages, err := s.deps.Resolver.Resolve(main, sub)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	metrics.IncSectionServed()
	name := main
	if sub != "" {
		name = sub
	}
	resp := map[string]any{
		"section":     name,
		"pages":       pages,
		"total_pages": len(pages),
	}
	if missing := s.deps.Library.MissingPages(pages); len(missing) > 0 {
		resp["missing_pages"] = missing
	}
	writeJSON(w, http.StatusOK, resp)
}

// exportReq is the body of POST /export_section.
type exportReq struct {
	MainSection string `json:"main_section"`
	SubSection  string `json:"sub_section,omitempty"`
	Destination string `json:"destination,omitempty"` // "local" (default) | "s3"
	Password    string `json:"password,omitempty"`
}

type exportResp struct {
	Status  string `json:"status"`
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.deps.Queue == nil || s.deps.Status == nil {
		http.Error(w, "export pipeline unavailable", http.StatusServiceUnavailable)
		return
	}
	defer r.Body.Close()
	var req exportReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.MainSection == "" {
		http.Error(w, "missing main_section", http.StatusBadRequest)
		return
	}
	dest := req.Destination
	if dest == "" {
		dest = "local"
	}
	if dest == "s3" && s.deps.S3Bucket == "" {
		http.Error(w, "s3 destination not configured", http.StatusBadRequest)
		return
	}
	pages, err := s.deps.Resolver.Resolve(req.MainSection, req.SubSection)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	name := req.MainSection
	if req.SubSection != "" {
		name = req.SubSection
	}

	jobID := uuid.NewString()
	log.Info().Str("job_id", jobID).Str("section", name).Int("pages", len(pages)).Msg("export job created")
	start := time.Now()
	_ = s.deps.Status.Set(r.Context(), jobID, store.JobStatus{
		Status: "queued", Progress: 0, Message: "queued", Start: &start,
		Metadata: map[string]any{"section": name, "total_pages": len(pages), "destination": dest},
	})

	payload, _ := json.Marshal(map[string]any{
		"job_id":       jobID,
		"section_name": name,
		"pages":        pages,
		"destination":  dest,
		"password":     req.Password,
		"attempt":      1,
	})
	if err := s.deps.Queue.Enqueue(r.Context(), payload); err != nil {
		log.Error().Err(err).Msg("enqueue failed")
		http.Error(w, "queue unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusCreated, exportResp{Status: "ok", JobID: jobID, Message: "Section export job created"})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if s.deps.Status == nil {
		http.Error(w, "export pipeline unavailable", http.StatusServiceUnavailable)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/progress/")
	st, ok, err := s.deps.Status.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    st.Status == "success",
		"job_id":     id,
		"status":     st.Status,
		"progress":   st.Progress,
		"message":    st.Message,
		"start_time": st.Start,
		"end_time":   st.End,
	})
}

// handleDownloadResult serves a finished local export bundle as a download.
func (s *Server) handleDownloadResult(w http.ResponseWriter, r *http.Request) {
	if s.deps.Status == nil {
		http.Error(w, "export pipeline unavailable", http.StatusServiceUnavailable)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/download_result/")
	st, ok, err := s.deps.Status.Get(r.Context(), id)
	if err != nil || !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if st.Status != "success" {
		http.Error(w, "not ready", http.StatusAccepted)
		return
	}
	if dest, _ := st.Metadata["destination"].(string); dest == "s3" {
		ref, _ := st.Metadata["result_ref"].(string)
		writeJSON(w, http.StatusOK, map[string]any{"result_ref": ref})
		return
	}
	p, _ := st.Metadata["result_ref"].(string)
	if p == "" {
		http.Error(w, "result not available", http.StatusNotFound)
		return
	}
	b, err := os.ReadFile(p)
	if err != nil {
		http.Error(w, "failed to read", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=section_export_%s.txt", id))
	_, _ = w.Write(b)
}

type cancelReq struct {
	JobID  string `json:"job_id"`
	Reason string `json:"reason,omitempty"`
}

func (s *Server) handleCancelExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.deps.Queue == nil || s.deps.Status == nil {
		http.Error(w, "export pipeline unavailable", http.StatusServiceUnavailable)
		return
	}
	var req cancelReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.JobID == "" {
		http.Error(w, "missing job_id", http.StatusBadRequest)
		return
	}
	if err := s.deps.Queue.CancelJob(r.Context(), req.JobID); err != nil {
		http.Error(w, "cancel failed", http.StatusInternalServerError)
		return
	}
	st, ok, _ := s.deps.Status.Get(r.Context(), req.JobID)
	if !ok {
		st = store.JobStatus{}
	}
	st.Status = "cancelled"
	st.Progress = 0
	if req.Reason != "" {
		st.Message = fmt.Sprintf("Cancelled: %s", req.Reason)
	} else {
		st.Message = "Cancelled"
	}
	now := time.Now()
	st.End = &now
	_ = s.deps.Status.Set(r.Context(), req.JobID, st)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "job_id": req.JobID, "status": "cancelled"})
}
