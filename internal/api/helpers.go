package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/render"
	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/sdpath"
	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/web"
)

// maxNameLen bounds decoded filenames from query parameters.
const maxNameLen = 128

// statusResponse is the JSON shape of file-operation results.
type statusResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Filename string `json:"filename,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}

// messagePage renders the shared message template. class selects the
// visual style: success, error, warning or info.
func messagePage(w http.ResponseWriter, status int, title, class, text string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	err := render.Stream(w, web.MessageHTML, []render.Placeholder{
		{Marker: "%%MESSAGE_TITLE%%", Value: title},
		{Marker: "%%MESSAGE_CLASS%%", Value: class},
		{Marker: "%%MESSAGE_TEXT%%", Value: text},
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to stream message page")
	}
}

// rawQueryParam extracts a query parameter without the standard
// library's percent-decoding, so sdpath.Decode controls how hostile
// escapes are handled.
func rawQueryParam(r *http.Request, key string) (string, bool) {
	for _, pair := range strings.Split(r.URL.RawQuery, "&") {
		k, v, found := strings.Cut(pair, "=")
		if found && k == key {
			return v, true
		}
	}
	return "", false
}

// fileParam decodes the "file" query parameter. The second return is
// a client-facing failure description, empty on success.
func fileParam(r *http.Request) (string, string) {
	raw, ok := rawQueryParam(r, "file")
	if !ok || raw == "" {
		return "", "Nedostaje parametar 'file' u zahtjevu."
	}
	name, err := sdpath.Decode(raw, maxNameLen)
	if err != nil {
		log.Warn().Str("raw", raw).Err(err).Msg("Filename decode failed")
		return "", "Neispravno ime datoteke u zahtjevu."
	}
	return name, ""
}
