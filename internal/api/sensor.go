package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/sensor"
	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/settings"
)

// SensorHandler serves live readings and logging control.
type SensorHandler struct {
	state *sensor.State
	store *settings.Store
}

// NewSensorHandler creates the sensor handler.
func NewSensorHandler(state *sensor.State, store *settings.Store) *SensorHandler {
	return &SensorHandler{state: state, store: store}
}

type channelReading struct {
	Vrijednost float64 `json:"vrijednost"`
	Jedinica   string  `json:"jedinica"`
}

type adcResponse struct {
	Kanali []channelReading `json:"kanali"`
}

// ADC handles GET /adc.
// Returns the latest snapshot of all channels with their units.
func (h *SensorHandler) ADC(w http.ResponseWriter, r *http.Request) {
	readings := h.state.Read()
	cfgs := h.store.ChannelConfigs()

	resp := adcResponse{Kanali: make([]channelReading, sensor.NumChannels)}
	for i := range resp.Kanali {
		resp.Kanali[i] = channelReading{
			Vrijednost: readings[i],
			Jedinica:   cfgs[i].Unit,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// LogStatus handles GET /log_status.
// Active is reported as 0 or 1 for the UI poller.
func (h *SensorHandler) LogStatus(w http.ResponseWriter, r *http.Request) {
	active := 0
	if h.state.Logging() {
		active = 1
	}
	writeJSON(w, http.StatusOK, map[string]int{"active": active})
}

// ToggleLog handles GET /log?active=<0|1>.
// The flag is only changed when the parameter is present; the reply is
// an OK status either way.
func (h *SensorHandler) ToggleLog(w http.ResponseWriter, r *http.Request) {
	if val := r.URL.Query().Get("active"); val != "" {
		active := val == "1"
		h.state.SetLogging(active)
		log.Info().Bool("active", active).Msg("Logging toggled via API")
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CurrentLogFile handles GET /current_log_file.
// Returns the active log file name as plain text, "N/A" when none.
func (h *SensorHandler) CurrentLogFile(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(h.state.CurrentLogFile()))
}
