package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Web serves the section-browser dashboard. It renders templates and proxies
// data calls to the local API so the browser never talks to it directly.
type Web struct {
	tpl      *template.Template
	username string
	password string
	port     string
}

func New() *Web {
	tpl := template.Must(template.ParseGlob(filepath.Join("web", "templates", "*.html")))
	return &Web{
		tpl:      tpl,
		username: os.Getenv("WEB_USERNAME"),
		password: os.Getenv("WEB_PASSWORD"),
		port:     getenv("PORT", "8080"),
	}
}

func (w *Web) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/web/login", w.handleLogin)
	mux.HandleFunc("/web/logout", w.handleLogout)
	mux.HandleFunc("/web/", w.requireAuth(w.handleBrowser))
	mux.HandleFunc("/web/browser", w.requireAuth(w.handleBrowser))
	mux.HandleFunc("/web/sections", w.requireAuth(w.handleSections))
	mux.HandleFunc("/web/resolve", w.requireAuth(w.handleResolve))
	mux.HandleFunc("/web/page_image/", w.requireAuth(w.handlePageImage))
	mux.HandleFunc("/web/page_text/", w.requireAuth(w.handlePageText))
	mux.HandleFunc("/web/export", w.requireAuth(w.handleExport))
	mux.HandleFunc("/web/progress/", w.requireAuth(w.handleProgress))
}

func (w *Web) render(wr http.ResponseWriter, name string, data any) {
	_ = w.tpl.ExecuteTemplate(wr, name, data)
}

func (w *Web) apiURL(path string) string {
	return fmt.Sprintf("http://127.0.0.1:%s%s", w.port, path)
}

func (w *Web) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(wr http.ResponseWriter, r *http.Request) {
		if w.username == "" || w.password == "" {
			http.Error(wr, "WEB_USERNAME/WEB_PASSWORD not set", http.StatusForbidden)
			return
		}
		c, err := r.Cookie("auth")
		if err != nil || c.Value != "1" {
			http.Redirect(wr, r, "/web/login", http.StatusSeeOther)
			return
		}
		next(wr, r)
	}
}

func (w *Web) handleLogin(wr http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.render(wr, "login.html", map[string]any{"Error": r.URL.Query().Get("error")})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Redirect(wr, r, "/web/login?error=invalid+form", http.StatusSeeOther)
			return
		}
		if r.Form.Get("username") == w.username && r.Form.Get("password") == w.password {
			http.SetCookie(wr, &http.Cookie{Name: "auth", Value: "1", Path: "/", HttpOnly: true})
			http.Redirect(wr, r, "/web/browser", http.StatusSeeOther)
			return
		}
		http.Redirect(wr, r, "/web/login?error=invalid+credentials", http.StatusSeeOther)
	default:
		wr.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (w *Web) handleLogout(wr http.ResponseWriter, r *http.Request) {
	http.SetCookie(wr, &http.Cookie{Name: "auth", Value: "", Path: "/", MaxAge: -1})
	http.Redirect(wr, r, "/web/login", http.StatusSeeOther)
}

func (w *Web) handleBrowser(wr http.ResponseWriter, r *http.Request) {
	w.render(wr, "browser.html", map[string]any{
		"Username": w.username,
	})
}

func (w *Web) handleSections(wr http.ResponseWriter, r *http.Request) {
	w.proxyGet(wr, "/sections")
}

func (w *Web) handleResolve(wr http.ResponseWriter, r *http.Request) {
	w.proxyGet(wr, "/sections/resolve?"+r.URL.RawQuery)
}

// handlePageImage streams a rendered page image, passing zoom/format/color
// through to the API.
func (w *Web) handlePageImage(wr http.ResponseWriter, r *http.Request) {
	page := strings.TrimPrefix(r.URL.Path, "/web/page_image/")
	w.proxyRaw(wr, fmt.Sprintf("/pages/%s/image?%s", url.PathEscape(page), r.URL.RawQuery))
}

func (w *Web) handlePageText(wr http.ResponseWriter, r *http.Request) {
	page := strings.TrimPrefix(r.URL.Path, "/web/page_text/")
	w.proxyGet(wr, fmt.Sprintf("/pages/%s/text", url.PathEscape(page)))
}

// handleExport turns the dashboard form into an API export job request.
func (w *Web) handleExport(wr http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		wr.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(wr, "invalid form", 400)
		return
	}
	body := map[string]any{
		"main_section": r.Form.Get("main_section"),
		"sub_section":  r.Form.Get("sub_section"),
		"destination":  r.Form.Get("destination"),
		"password":     r.Form.Get("password"),
	}
	b, _ := json.Marshal(body)
	resp, err := http.Post(w.apiURL("/export_section"), "application/json", bytes.NewReader(b))
	if err != nil {
		http.Error(wr, "request failed", 500)
		return
	}
	defer resp.Body.Close()
	wr.Header().Set("Content-Type", "application/json")
	wr.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(wr, resp.Body)
}

func (w *Web) handleProgress(wr http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimPrefix(r.URL.Path, "/web/progress/")
	w.proxyGet(wr, "/progress/"+url.PathEscape(jobID))
}

func (w *Web) proxyGet(wr http.ResponseWriter, path string) {
	resp, err := http.Get(w.apiURL(path))
	if err != nil {
		http.Error(wr, "request failed", 500)
		return
	}
	defer resp.Body.Close()
	wr.Header().Set("Content-Type", "application/json")
	wr.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(wr, resp.Body)
}

// proxyRaw forwards the upstream response verbatim, keeping its content type.
func (w *Web) proxyRaw(wr http.ResponseWriter, path string) {
	resp, err := http.Get(w.apiURL(path))
	if err != nil {
		http.Error(wr, "request failed", 500)
		return
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		wr.Header().Set("Content-Type", ct)
	}
	wr.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(wr, resp.Body)
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
