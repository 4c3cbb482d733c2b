package api

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sitegrade/sitegrade/internal/cache"
	"github.com/sitegrade/sitegrade/internal/grade"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type reportPageData struct {
	Site string
	// CachedJSON is the cached report marshaled for the inline script tag;
	// empty when the page should stream a fresh run instead.
	CachedJSON template.JS
}

// indexPage renders the landing form.
func (s *Server) indexPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, "index.html", map[string]string{
		"Error": r.URL.Query().Get("error"),
	})
}

// gradeRedirect normalizes the submitted URL and redirects to its report
// page, or back to the form when the input is not a gradable URL.
func (s *Server) gradeRedirect(w http.ResponseWriter, r *http.Request) {
	site, err := grade.Normalize(r.URL.Query().Get("url"))
	if err != nil {
		http.Redirect(w, r, "/?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/"+site, http.StatusSeeOther)
}

// reportPage renders a cached report directly, or a shell that streams a
// fresh run from the NDJSON endpoint.
func (s *Server) reportPage(w http.ResponseWriter, r *http.Request) {
	site, err := grade.Normalize(chi.URLParam(r, "site"))
	if err != nil {
		http.Redirect(w, r, "/?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
		return
	}

	data := reportPageData{Site: site}
	entry, err := s.store.Lookup(r.Context(), site)
	switch {
	case err == nil && entry.Report.Complete():
		if raw, merr := json.Marshal(entry.Report); merr == nil {
			data.CachedJSON = template.JS(raw)
		}
	case err != nil && !errors.Is(err, cache.ErrNotFound):
		s.logger.Warn("cache lookup failed on report page",
			zap.String("site", site), zap.Error(err))
	}
	s.renderPage(w, "report.html", data)
}

func (s *Server) renderPage(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("template render failed", zap.String("template", name), zap.Error(err))
	}
}
