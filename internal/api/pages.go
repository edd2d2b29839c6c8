package api

import (
	"net/http"

	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/web"
)

// PagesHandler serves the embedded UI documents.
type PagesHandler struct{}

// NewPagesHandler creates the pages handler.
func NewPagesHandler() *PagesHandler {
	return &PagesHandler{}
}

func serveAsset(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// Index handles GET /.
func (h *PagesHandler) Index(w http.ResponseWriter, r *http.Request) {
	serveAsset(w, "text/html; charset=utf-8", web.IndexHTML)
}

// Logging handles GET /logging.html.
func (h *PagesHandler) Logging(w http.ResponseWriter, r *http.Request) {
	serveAsset(w, "text/html; charset=utf-8", web.LoggingHTML)
}

// Settings handles GET /settings.html.
func (h *PagesHandler) Settings(w http.ResponseWriter, r *http.Request) {
	serveAsset(w, "text/html; charset=utf-8", web.SettingsHTML)
}

// Style handles GET /style.css.
func (h *PagesHandler) Style(w http.ResponseWriter, r *http.Request) {
	serveAsset(w, "text/css", web.StyleCSS)
}

// Script handles GET /script.js.
func (h *PagesHandler) Script(w http.ResponseWriter, r *http.Request) {
	serveAsset(w, "application/javascript", web.ScriptJS)
}
