package api

import (
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/config"
	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/upload"
)

// uploadChunkSize is how much of the body is read per iteration. Kept
// small so memory use stays flat no matter the file size.
const uploadChunkSize = 2048

// UploadHandler receives multipart file uploads onto the storage card.
type UploadHandler struct {
	cfg *config.Settings
}

// NewUploadHandler creates the upload handler.
func NewUploadHandler(cfg *config.Settings) *UploadHandler {
	return &UploadHandler{cfg: cfg}
}

// Upload handles POST /upload?overwrite=<bool>.
// The body is fed chunk by chunk into an upload session; a name
// collision yields 409 with a conflict status the client can retry
// with overwrite=true. The body is always drained so the connection
// can carry the response.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	boundary := params["boundary"]
	if err != nil || boundary == "" {
		writeJSON(w, http.StatusBadRequest, statusResponse{
			Status:  "error",
			Message: "Neispravan Content-Type, nedostaje boundary.",
		})
		return
	}

	overwrite := strings.EqualFold(r.URL.Query().Get("overwrite"), "true")
	sess := upload.New(h.cfg.MountPoint, boundary, overwrite)

	buf := make([]byte, uploadChunkSize)
	for {
		n, readErr := r.Body.Read(buf)
		if n > 0 {
			if err := sess.Consume(buf[:n]); err != nil {
				sess.Abort()
				log.Error().Err(err).Msg("Upload parsing failed")
				writeJSON(w, http.StatusInternalServerError, statusResponse{
					Status:  "error",
					Message: "Greska pri primanju podataka tijekom uploada.",
				})
				return
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			sess.Abort()
			msg := "Veza prekinuta od klijenta."
			if nerr, ok := readErr.(net.Error); ok && nerr.Timeout() {
				msg = "Timeout pri primanju podataka tijekom uploada."
			}
			log.Error().Err(readErr).Msg("Upload receive failed")
			writeJSON(w, http.StatusInternalServerError, statusResponse{
				Status: "error", Message: msg,
			})
			return
		}
	}

	if err := sess.Finish(); err != nil {
		sess.Abort()
		log.Error().Err(err).Msg("Upload incomplete")
		writeJSON(w, http.StatusBadRequest, statusResponse{
			Status:  "error",
			Message: "Upload nepotpun, nedostaje zavrsni boundary.",
		})
		return
	}

	switch sess.State() {
	case upload.StateComplete:
		writeJSON(w, http.StatusOK, statusResponse{
			Status:   "success",
			Message:  fmt.Sprintf("Datoteka '%s' je uspjesno prenesena.", sess.Filename()),
			Filename: sess.Filename(),
		})
	case upload.StateConflict:
		writeJSON(w, http.StatusConflict, statusResponse{
			Status:   "conflict",
			Message:  fmt.Sprintf("Datoteka '%s' već postoji. Želite li je prepisati?", sess.Filename()),
			Filename: sess.Filename(),
		})
	default:
		sess.Abort()
		writeJSON(w, http.StatusInternalServerError, statusResponse{
			Status: "error", Message: "Greska pri primanju podataka tijekom uploada.",
		})
	}
}
