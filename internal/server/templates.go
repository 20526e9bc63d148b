package server

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"os"

	"go.uber.org/zap"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

func parseTemplates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// renderPage executes a named page template. Render failures surface as
// a 500 since the page is already partially written in the worst case.
func (s *Server) renderPage(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		fmt.Fprintf(os.Stderr, "DEBUG renderPage: template=%q err=%v\n", name, err)
		s.logger.Error("template render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
