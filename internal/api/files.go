package api

import (
	"fmt"
	"html"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/config"
	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/render"
	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/sdpath"
	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/web"
)

// systemVolumeDir is created by Windows hosts on FAT cards and must
// survive a delete-all.
const systemVolumeDir = "System Volume Information"

// maxListBytes caps the generated file table so a card with thousands
// of files cannot balloon the listing page.
const maxListBytes = 64 * 1024

// FilesHandler serves the file management endpoints: listing,
// download, and deletion.
type FilesHandler struct {
	cfg *config.Settings
}

// NewFilesHandler creates a files handler rooted at the configured
// mount point.
func NewFilesHandler(cfg *config.Settings) *FilesHandler {
	return &FilesHandler{cfg: cfg}
}

// List handles GET /list.
// Renders the file table page with download and delete links.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(h.cfg.MountPoint)
	if err != nil {
		log.Error().Err(err).Str("dir", h.cfg.MountPoint).Msg("Cannot read storage directory")
		messagePage(w, http.StatusInternalServerError, "Greska posluzitelja", "error",
			"Nije moguce otvoriti direktorij na SD kartici.")
		return
	}

	var b strings.Builder
	truncated := false
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		enc := sdpath.Encode(name)
		row := fmt.Sprintf(
			`<tr><td>%s</td><td><a href="/download?file=%s">Preuzmi</a></td><td><a href="/delete?file=%s" class="delete-link">Obriši</a></td></tr>`+"\n",
			html.EscapeString(name), enc, enc)
		if b.Len()+len(row) > maxListBytes {
			truncated = true
			break
		}
		b.WriteString(row)
	}
	if truncated {
		log.Warn().Str("dir", h.cfg.MountPoint).Msg("File listing truncated")
		b.WriteString(`<tr><td colspan="3">Popis je skraćen, previše datoteka.</td></tr>` + "\n")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = render.Stream(w, web.ListHTML, []render.Placeholder{
		{Marker: "%%FILE_LIST_ROWS%%", Value: b.String()},
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to stream file listing")
	}
}

// Download handles GET /download?file=<name>.
// Streams the file in chunks with an attachment disposition.
func (h *FilesHandler) Download(w http.ResponseWriter, r *http.Request) {
	name, errMsg := fileParam(r)
	if errMsg != "" {
		messagePage(w, http.StatusBadRequest, "Greska preuzimanja", "error", errMsg)
		return
	}

	path := sdpath.Build(h.cfg.MountPoint, name)
	f, err := os.Open(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Cannot open file for download")
		messagePage(w, http.StatusNotFound, "Greska preuzimanja", "error",
			fmt.Sprintf("Datoteka '%s' nije pronadjena ili se ne moze otvoriti.", name))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

	buf := make([]byte, 1024)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				log.Error().Err(err).Str("path", path).Msg("Download aborted by client")
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
		if readErr != nil {
			break
		}
	}
	log.Info().Str("file", name).Msg("Download complete")
}

// Delete handles GET /delete?file=<name>.
// Responds with a JSON status object for the listing page's AJAX call.
func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name, errMsg := fileParam(r)
	if errMsg != "" {
		writeJSON(w, http.StatusOK, statusResponse{Status: "error", Message: errMsg})
		return
	}

	path := sdpath.Build(h.cfg.MountPoint, name)
	if err := os.Remove(path); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Delete failed")
		writeJSON(w, http.StatusOK, statusResponse{
			Status:  "error",
			Message: fmt.Sprintf("Nije moguce obrisati datoteku '%s'.", name),
		})
		return
	}

	log.Info().Str("file", name).Msg("File deleted")
	writeJSON(w, http.StatusOK, statusResponse{
		Status:  "success",
		Message: fmt.Sprintf("Datoteka '%s' je uspjesno obrisana.", name),
	})
}

// DeleteAll handles GET /delete_all.
// Removes every regular file under the mount point except the Windows
// system directory, and reports how the sweep went.
func (h *FilesHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(h.cfg.MountPoint)
	if err != nil {
		log.Error().Err(err).Str("dir", h.cfg.MountPoint).Msg("Cannot read storage directory")
		writeJSON(w, http.StatusOK, statusResponse{
			Status: "error", Message: "Could not open SD card directory.",
		})
		return
	}

	deleted, failed := 0, 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if entry.Name() == systemVolumeDir {
			continue
		}
		path := sdpath.Build(h.cfg.MountPoint, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Delete failed")
			failed++
			continue
		}
		deleted++
	}

	var resp statusResponse
	switch {
	case deleted == 0 && failed == 0:
		resp = statusResponse{Status: "info", Message: "Nema datoteka za brisanje."}
	case failed == 0:
		resp = statusResponse{Status: "success", Message: fmt.Sprintf("Obrisano %d datoteka.", deleted)}
	case deleted == 0:
		resp = statusResponse{Status: "error", Message: fmt.Sprintf("Greška: Nije moguće obrisati datoteke. %d neuspjelo.", failed)}
	default:
		resp = statusResponse{Status: "warning", Message: fmt.Sprintf("Obrisano %d datoteka, %d neuspjelo.", deleted, failed)}
	}
	log.Info().Int("deleted", deleted).Int("failed", failed).Msg("Delete all finished")
	writeJSON(w, http.StatusOK, resp)
}
