package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/settings"
)

// maxSettingsBody bounds settings request bodies.
const maxSettingsBody = 4 * 1024

// SettingsHandler serves the persisted configuration endpoints.
type SettingsHandler struct {
	store *settings.Store
}

// NewSettingsHandler creates the settings handler.
func NewSettingsHandler(store *settings.Store) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// GetSettings handles GET /settings.
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"log_on_boot": h.store.LogOnBoot(),
	})
}

type settingsRequest struct {
	LogOnBoot *bool                    `json:"log_on_boot"`
	Channels  []settings.ChannelConfig `json:"channels"`
}

// PostSettings handles POST /settings.
// Fields are optional: the boot flag is applied when present, channel
// configs only when exactly one per channel arrives. Partial bodies
// are not an error.
func (h *SettingsHandler) PostSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSettingsBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.LogOnBoot != nil {
		if err := h.store.SetLogOnBoot(*req.LogOnBoot); err != nil {
			log.Error().Err(err).Msg("Failed to save log_on_boot")
			writeError(w, http.StatusInternalServerError, "Greška pri spremanju postavki.")
			return
		}
	}
	if len(req.Channels) == settings.NumChannels {
		var cfgs [settings.NumChannels]settings.ChannelConfig
		copy(cfgs[:], req.Channels)
		if err := h.store.SaveChannelConfigs(cfgs); err != nil {
			log.Error().Err(err).Msg("Failed to save channel configs")
			writeError(w, http.StatusInternalServerError, "Greška pri spremanju postavki.")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetChannelConfigs handles GET /api/channel-configs.
// Returns the calibration of all channels as a JSON array.
func (h *SettingsHandler) GetChannelConfigs(w http.ResponseWriter, r *http.Request) {
	cfgs := h.store.ChannelConfigs()
	writeJSON(w, http.StatusOK, cfgs[:])
}

// PostChannelConfigs handles POST /api/channel-configs.
// Unlike PostSettings this endpoint is strict: the body must be an
// array with exactly one entry per channel.
func (h *SettingsHandler) PostChannelConfigs(w http.ResponseWriter, r *http.Request) {
	var cfgs []settings.ChannelConfig
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSettingsBody))
	if err := dec.Decode(&cfgs); err != nil || len(cfgs) != settings.NumChannels {
		writeError(w, http.StatusBadRequest, "JSON mora biti polje s 8 elemenata")
		return
	}

	var fixed [settings.NumChannels]settings.ChannelConfig
	copy(fixed[:], cfgs)
	if err := h.store.SaveChannelConfigs(fixed); err != nil {
		log.Error().Err(err).Msg("Failed to save channel configs")
		writeError(w, http.StatusInternalServerError, "Greška pri spremanju postavki.")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Postavke uspješno spremljene."))
}
