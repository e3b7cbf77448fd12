package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/docsections/internal/manifest"
	"github.com/local/docsections/internal/metrics"
	"github.com/local/docsections/internal/render"
)

// handlePage dispatches /pages/{n}/{image|text|download|text/download}.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/pages/")
	parts := strings.SplitN(rest, "/", 2)
	page, err := strconv.Atoi(parts[0])
	if err != nil || page < 1 {
		http.Error(w, "invalid page number", http.StatusBadRequest)
		return
	}
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}
	switch action {
	case "image":
		s.handlePageImage(w, r, page)
	case "text":
		s.handlePageText(w, r, page)
	case "download":
		s.handlePageDownload(w, r, page)
	case "text/download":
		s.handlePageTextDownload(w, r, page)
	default:
		http.Error(w, "unknown page action", http.StatusNotFound)
	}
}

func (s *Server) imageOptions(r *http.Request) render.ImageOptions {
	q := r.URL.Query()
	zoom := s.deps.Render.DefaultZoom
	if v := q.Get("zoom"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			zoom = f
		}
	}
	format := s.deps.Render.Format
	if v := q.Get("format"); v != "" {
		format = v
	}
	color := s.deps.Render.ColorMode
	if v := q.Get("color"); v != "" {
		color = v
	}
	return render.ImageOptions{
		Zoom:    render.ClampZoom(zoom),
		Format:  render.ParseFormat(format),
		Color:   render.ParseColorMode(color),
		Quality: s.deps.Render.JPEGQuality,
	}
}

func (s *Server) handlePageImage(w http.ResponseWriter, r *http.Request, page int) {
	opts := s.imageOptions(r)

	if s.deps.Cache != nil {
		data, ok, err := s.deps.Cache.GetImage(r.Context(), page, opts.Zoom, string(opts.Format), string(opts.Color))
		if err != nil {
			log.Warn().Err(err).Int("page", page).Msg("image cache lookup failed")
		}
		if ok {
			metrics.IncCache("image", "hit")
			w.Header().Set("Content-Type", opts.Format.ContentType())
			_, _ = w.Write(data)
			return
		}
		metrics.IncCache("image", "miss")
	}

	path, err := s.deps.Library.PageFile(page)
	if err != nil {
		http.Error(w, fmt.Sprintf("page %d not available", page), http.StatusNotFound)
		return
	}

	release, ok := s.deps.Slots.TryAcquire()
	if !ok {
		http.Error(w, "renderer busy", http.StatusServiceUnavailable)
		return
	}
	defer release()

	start := time.Now()
	data, _, _, err := render.RenderImage(path, 1, opts)
	if err != nil {
		metrics.ObserveRender(string(opts.Format), "error", time.Since(start))
		log.Error().Err(err).Int("page", page).Msg("page render failed")
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	metrics.ObserveRender(string(opts.Format), "success", time.Since(start))

	if s.deps.Cache != nil {
		if err := s.deps.Cache.SetImage(r.Context(), page, opts.Zoom, string(opts.Format), string(opts.Color), data); err != nil {
			log.Warn().Err(err).Int("page", page).Msg("image cache store failed")
		}
	}

	w.Header().Set("Content-Type", opts.Format.ContentType())
	_, _ = w.Write(data)
}

func (s *Server) pageText(r *http.Request, page int) (string, int, error) {
	if s.deps.Cache != nil {
		text, ok, err := s.deps.Cache.GetText(r.Context(), page)
		if err != nil {
			log.Warn().Err(err).Int("page", page).Msg("text cache lookup failed")
		}
		if ok {
			metrics.IncCache("text", "hit")
			return text, http.StatusOK, nil
		}
		metrics.IncCache("text", "miss")
	}

	path, err := s.deps.Library.PageFile(page)
	if err != nil {
		return "", http.StatusNotFound, fmt.Errorf("page %d not available", page)
	}
	text, err := render.ExtractText(path, 1)
	if err != nil {
		metrics.IncExtraction("error")
		return "", http.StatusInternalServerError, fmt.Errorf("text extraction failed")
	}
	metrics.IncExtraction("success")

	if s.deps.Cache != nil {
		if err := s.deps.Cache.SetText(r.Context(), page, text); err != nil {
			log.Warn().Err(err).Int("page", page).Msg("text cache store failed")
		}
	}
	return text, http.StatusOK, nil
}

func (s *Server) handlePageText(w http.ResponseWriter, r *http.Request, page int) {
	text, status, err := s.pageText(r, page)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"page":  page,
		"chars": len(text),
		"text":  text,
	})
}

// handlePageDownload serves the single-page PDF file itself.
func (s *Server) handlePageDownload(w http.ResponseWriter, r *http.Request, page int) {
	path, err := s.deps.Library.PageFile(page)
	if err != nil {
		http.Error(w, fmt.Sprintf("page %d not available", page), http.StatusNotFound)
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		http.Error(w, "failed to read page file", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(path)))
	_, _ = w.Write(data)
}

// handlePageTextDownload serves page text as a .txt attachment named after
// the selected section.
func (s *Server) handlePageTextDownload(w http.ResponseWriter, r *http.Request, page int) {
	text, status, err := s.pageText(r, page)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	section := r.URL.Query().Get("section")
	if section == "" {
		section = "section"
	}
	name := fmt.Sprintf("%s_page_%d.txt", manifest.SafeFileName(section), page)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = w.Write([]byte(text))
}
