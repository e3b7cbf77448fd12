package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/local/docsections/internal/render"
	"github.com/local/docsections/internal/store"
)

// sessionReq carries the mutable fields of a browsing session. Pointers
// distinguish "absent" from zero values on update.
type sessionReq struct {
	MainSection *string  `json:"main_section,omitempty"`
	SubSection  *string  `json:"sub_section,omitempty"`
	ShowText    *bool    `json:"show_text,omitempty"`
	Zoom        *float64 `json:"zoom,omitempty"`
}

// handleSessionCreate starts a new browsing session.
func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.deps.Sessions == nil {
		http.Error(w, "sessions unavailable", http.StatusServiceUnavailable)
		return
	}
	var req sessionReq
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	sess := store.Session{Zoom: s.deps.Render.DefaultZoom}
	if code, err := s.applySessionReq(&sess, req); err != nil {
		http.Error(w, err.Error(), code)
		return
	}

	id := uuid.NewString()
	if err := s.deps.Sessions.Set(r.Context(), id, sess); err != nil {
		http.Error(w, "failed to persist session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"session_id": id, "session": sess})
}

// handleSession reads or updates an existing session.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil {
		http.Error(w, "sessions unavailable", http.StatusServiceUnavailable)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if id == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		sess, ok, err := s.deps.Sessions.Get(r.Context(), id)
		if err != nil {
			http.Error(w, "error", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "session": sess})

	case http.MethodPut:
		sess, ok, err := s.deps.Sessions.Get(r.Context(), id)
		if err != nil {
			http.Error(w, "error", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		var req sessionReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if code, err := s.applySessionReq(&sess, req); err != nil {
			http.Error(w, err.Error(), code)
			return
		}
		if err := s.deps.Sessions.Set(r.Context(), id, sess); err != nil {
			http.Error(w, "failed to persist session", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "session": sess})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// applySessionReq merges a request into sess, re-resolving the selection and
// its total-pages counter whenever the section choice changes.
func (s *Server) applySessionReq(sess *store.Session, req sessionReq) (int, error) {
	if req.ShowText != nil {
		sess.ShowText = *req.ShowText
	}
	if req.Zoom != nil {
		sess.Zoom = render.ClampZoom(*req.Zoom)
	}

	changed := false
	if req.MainSection != nil {
		sess.MainSection = *req.MainSection
		sess.SubSection = ""
		changed = true
	}
	if req.SubSection != nil {
		sess.SubSection = *req.SubSection
		changed = true
	}
	if changed && sess.MainSection != "" {
		pages, err := s.deps.Resolver.Resolve(sess.MainSection, sess.SubSection)
		if err != nil {
			return http.StatusNotFound, err
		}
		sess.TotalPages = len(pages)
	}
	return 0, nil
}
