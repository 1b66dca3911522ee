package server

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/kikitori/kikitori/internal/observe"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// handleHome serves the upload page.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "index.html")
}

// handleFlashcard serves the flashcard study page.
func (s *Server) handleFlashcard(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "flashcard.html")
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, name, nil); err != nil {
		observe.Logger(r.Context()).Error("template render failed", "page", name, "error", err)
	}
}
