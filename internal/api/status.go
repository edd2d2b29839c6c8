package api

import (
	"net/http"

	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/config"
	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/system"
)

// StatusHandler serves device health for diagnostics.
type StatusHandler struct {
	cfg *config.Settings
}

// NewStatusHandler creates the status handler.
func NewStatusHandler(cfg *config.Settings) *StatusHandler {
	return &StatusHandler{cfg: cfg}
}

// Status handles GET /api/status.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, system.GetStatus(h.cfg.MountPoint))
}
