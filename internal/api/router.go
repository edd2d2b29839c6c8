package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/config"
	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/sensor"
	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/settings"
)

// NewRouter builds the full route table with the standard middleware
// stack. Uploads and downloads stream, so there is no per-request
// timeout middleware; the server's read timeout covers stuck clients.
func NewRouter(cfg *config.Settings, store *settings.Store, state *sensor.State) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	pages := NewPagesHandler()
	files := NewFilesHandler(cfg)
	uploads := NewUploadHandler(cfg)
	sensors := NewSensorHandler(state, store)
	cfgs := NewSettingsHandler(store)
	status := NewStatusHandler(cfg)

	// UI documents
	r.Get("/", pages.Index)
	r.Get("/logging.html", pages.Logging)
	r.Get("/settings.html", pages.Settings)
	r.Get("/style.css", pages.Style)
	r.Get("/script.js", pages.Script)

	// File management
	r.Get("/list", files.List)
	r.Get("/download", files.Download)
	r.Get("/delete", files.Delete)
	r.Get("/delete_all", files.DeleteAll)
	r.Post("/upload", uploads.Upload)

	// Readings and logging control
	r.Get("/adc", sensors.ADC)
	r.Get("/log", sensors.ToggleLog)
	r.Get("/log_status", sensors.LogStatus)
	r.Get("/current_log_file", sensors.CurrentLogFile)

	// Configuration
	r.Get("/settings", cfgs.GetSettings)
	r.Post("/settings", cfgs.PostSettings)
	r.Get("/api/channel-configs", cfgs.GetChannelConfigs)
	r.Post("/api/channel-configs", cfgs.PostChannelConfigs)

	// Diagnostics
	r.Get("/api/status", status.Status)

	return r
}

// requestLogger is middleware that logs HTTP requests using zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}
