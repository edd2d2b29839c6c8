package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/config"
	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/sensor"
	"github.com/mkrznar/ESP32-ADS1115-Logger/internal/settings"
)

type testEnv struct {
	router chi.Router
	mount  string
	store  *settings.Store
	state  *sensor.State
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mount := t.TempDir()
	store, err := settings.Open(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("settings.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := &config.Settings{MountPoint: mount}
	state := sensor.NewState(time.Second)
	return &testEnv{
		router: NewRouter(cfg, store, state),
		mount:  mount,
		store:  store,
		state:  state,
	}
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
}

func TestIndexPage(t *testing.T) {
	e := newTestEnv(t)
	rec := e.get(t, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "ADC Data Logger") {
		t.Error("index page missing title")
	}
}

func TestStaticAssets(t *testing.T) {
	e := newTestEnv(t)
	tests := []struct {
		path string
		ct   string
	}{
		{"/style.css", "text/css"},
		{"/script.js", "application/javascript"},
		{"/logging.html", "text/html; charset=utf-8"},
		{"/settings.html", "text/html; charset=utf-8"},
	}
	for _, tt := range tests {
		rec := e.get(t, tt.path)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", tt.path, rec.Code)
		}
		if got := rec.Header().Get("Content-Type"); got != tt.ct {
			t.Errorf("%s: Content-Type = %q, want %q", tt.path, got, tt.ct)
		}
	}
}

func TestListFiles(t *testing.T) {
	e := newTestEnv(t)
	if err := os.WriteFile(filepath.Join(e.mount, "log 1 (a).csv"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(e.mount, "somedir"), 0o755); err != nil {
		t.Fatal(err)
	}

	rec := e.get(t, "/list")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "log 1 (a).csv") {
		t.Error("listing missing file name")
	}
	if !strings.Contains(body, "/download?file=log%201%20%28a%29.csv") {
		t.Errorf("listing missing encoded download link:\n%s", body)
	}
	if strings.Contains(body, "somedir") {
		t.Error("directories must not be listed")
	}
}

func TestDownload(t *testing.T) {
	e := newTestEnv(t)
	content := "timestamp;adc0\n1;0.5\n"
	if err := os.WriteFile(filepath.Join(e.mount, "data.csv"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := e.get(t, "/download?file=data.csv")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != content {
		t.Errorf("body = %q", rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="data.csv"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestDownloadMissingFile(t *testing.T) {
	e := newTestEnv(t)
	rec := e.get(t, "/download?file=nothing.csv")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "nije pronadjena") {
		t.Error("missing error message page")
	}
}

func TestDownloadTraversalBlocked(t *testing.T) {
	e := newTestEnv(t)
	outside := filepath.Join(e.mount, "..", "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := e.get(t, "/download?file=..%2Fsecret.txt")
	if rec.Code == http.StatusOK && rec.Body.String() == "secret" {
		t.Fatal("traversal served a file outside the mount")
	}
}

func TestDelete(t *testing.T) {
	e := newTestEnv(t)
	path := filepath.Join(e.mount, "gone.csv")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := e.get(t, "/delete?file=gone.csv")
	var resp statusResponse
	decodeJSON(t, rec, &resp)
	if resp.Status != "success" {
		t.Errorf("status = %q, message = %q", resp.Status, resp.Message)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still present after delete")
	}
}

func TestDeleteMissingParam(t *testing.T) {
	e := newTestEnv(t)
	rec := e.get(t, "/delete")
	var resp statusResponse
	decodeJSON(t, rec, &resp)
	if resp.Status != "error" {
		t.Errorf("status = %q, want error", resp.Status)
	}
}

func TestDeleteAll(t *testing.T) {
	e := newTestEnv(t)
	for _, name := range []string{"a.csv", "b.csv", systemVolumeDir} {
		if err := os.WriteFile(filepath.Join(e.mount, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	rec := e.get(t, "/delete_all")
	var resp statusResponse
	decodeJSON(t, rec, &resp)
	if resp.Status != "success" {
		t.Errorf("status = %q, message = %q", resp.Status, resp.Message)
	}
	if !strings.Contains(resp.Message, "2") {
		t.Errorf("message = %q, want 2 deleted", resp.Message)
	}
	if _, err := os.Stat(filepath.Join(e.mount, systemVolumeDir)); err != nil {
		t.Error("system volume entry must survive delete_all")
	}
}

func TestDeleteAllEmpty(t *testing.T) {
	e := newTestEnv(t)
	rec := e.get(t, "/delete_all")
	var resp statusResponse
	decodeJSON(t, rec, &resp)
	if resp.Status != "info" {
		t.Errorf("status = %q, want info", resp.Status)
	}
}

func multipartBody(t *testing.T, filename, data string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(data)); err != nil {
		t.Fatal(err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, path, filename, data string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, filename, data)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestUploadRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	rec := e.upload(t, "/upload", "measure.csv", "1;2;3\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp statusResponse
	decodeJSON(t, rec, &resp)
	if resp.Status != "success" || resp.Filename != "measure.csv" {
		t.Errorf("resp = %+v", resp)
	}

	got, err := os.ReadFile(filepath.Join(e.mount, "measure.csv"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "1;2;3\n" {
		t.Errorf("contents = %q", got)
	}
}

func TestUploadConflictThenOverwrite(t *testing.T) {
	e := newTestEnv(t)
	if rec := e.upload(t, "/upload", "dup.csv", "first"); rec.Code != http.StatusOK {
		t.Fatalf("initial upload status = %d", rec.Code)
	}

	rec := e.upload(t, "/upload", "dup.csv", "second")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var resp statusResponse
	decodeJSON(t, rec, &resp)
	if resp.Status != "conflict" {
		t.Errorf("status = %q, want conflict", resp.Status)
	}
	got, _ := os.ReadFile(filepath.Join(e.mount, "dup.csv"))
	if string(got) != "first" {
		t.Errorf("conflict overwrote file: %q", got)
	}

	rec = e.upload(t, "/upload?overwrite=true", "dup.csv", "second")
	if rec.Code != http.StatusOK {
		t.Fatalf("overwrite status = %d", rec.Code)
	}
	got, _ = os.ReadFile(filepath.Join(e.mount, "dup.csv"))
	if string(got) != "second" {
		t.Errorf("contents = %q, want second", got)
	}
}

func TestUploadMissingBoundary(t *testing.T) {
	e := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("data"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestADC(t *testing.T) {
	e := newTestEnv(t)
	e.state.Publish(sensor.Readings{1.5, 2.5, 0, 0, 0, 0, 0, 7.5})

	rec := e.get(t, "/adc")
	var resp struct {
		Kanali []struct {
			Vrijednost float64 `json:"vrijednost"`
			Jedinica   string  `json:"jedinica"`
		} `json:"kanali"`
	}
	decodeJSON(t, rec, &resp)

	if len(resp.Kanali) != sensor.NumChannels {
		t.Fatalf("kanali len = %d", len(resp.Kanali))
	}
	if resp.Kanali[0].Vrijednost != 1.5 || resp.Kanali[7].Vrijednost != 7.5 {
		t.Errorf("kanali = %+v", resp.Kanali)
	}
	if resp.Kanali[0].Jedinica != "V" {
		t.Errorf("jedinica = %q, want default V", resp.Kanali[0].Jedinica)
	}
}

func TestLogToggleAndStatus(t *testing.T) {
	e := newTestEnv(t)

	rec := e.get(t, "/log_status")
	var status struct {
		Active int `json:"active"`
	}
	decodeJSON(t, rec, &status)
	if status.Active != 0 {
		t.Errorf("active = %d, want 0", status.Active)
	}

	e.get(t, "/log?active=1")
	decodeJSON(t, e.get(t, "/log_status"), &status)
	if status.Active != 1 {
		t.Errorf("active = %d, want 1 after toggle", status.Active)
	}

	// No parameter leaves the flag untouched.
	e.get(t, "/log")
	decodeJSON(t, e.get(t, "/log_status"), &status)
	if status.Active != 1 {
		t.Errorf("active = %d, bare /log must not change the flag", status.Active)
	}

	e.get(t, "/log?active=0")
	decodeJSON(t, e.get(t, "/log_status"), &status)
	if status.Active != 0 {
		t.Errorf("active = %d, want 0", status.Active)
	}
}

func TestCurrentLogFile(t *testing.T) {
	e := newTestEnv(t)
	rec := e.get(t, "/current_log_file")
	if rec.Body.String() != "N/A" {
		t.Errorf("body = %q, want N/A", rec.Body.String())
	}

	e.state.SetCurrentLogFile("log_2.csv")
	rec = e.get(t, "/current_log_file")
	if rec.Body.String() != "log_2.csv" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	e := newTestEnv(t)

	var got map[string]bool
	decodeJSON(t, e.get(t, "/settings"), &got)
	if got["log_on_boot"] {
		t.Error("log_on_boot = true, want false by default")
	}

	payload := `{"log_on_boot": true}`
	req := httptest.NewRequest(http.MethodPost, "/settings", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	decodeJSON(t, e.get(t, "/settings"), &got)
	if !got["log_on_boot"] {
		t.Error("log_on_boot = false after POST")
	}
}

func TestChannelConfigsRoundTrip(t *testing.T) {
	e := newTestEnv(t)

	var cfgs []settings.ChannelConfig
	decodeJSON(t, e.get(t, "/api/channel-configs"), &cfgs)
	if len(cfgs) != settings.NumChannels {
		t.Fatalf("configs len = %d", len(cfgs))
	}
	if cfgs[0].Factor != 1.0 || cfgs[0].Unit != "V" {
		t.Errorf("default config = %+v", cfgs[0])
	}

	for i := range cfgs {
		cfgs[i] = settings.ChannelConfig{Factor: 2.5, Unit: "mA"}
	}
	body, _ := json.Marshal(cfgs)
	req := httptest.NewRequest(http.MethodPost, "/api/channel-configs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "uspješno") {
		t.Errorf("body = %q", rec.Body.String())
	}

	decodeJSON(t, e.get(t, "/api/channel-configs"), &cfgs)
	if cfgs[3].Factor != 2.5 || cfgs[3].Unit != "mA" {
		t.Errorf("saved config = %+v", cfgs[3])
	}
}

func TestChannelConfigsWrongLength(t *testing.T) {
	e := newTestEnv(t)
	body := `[{"factor": 1, "unit": "V"}]`
	req := httptest.NewRequest(http.MethodPost, "/api/channel-configs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	e := newTestEnv(t)
	rec := e.get(t, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]interface{}
	decodeJSON(t, rec, &resp)
	if _, ok := resp["disk_total"]; !ok {
		t.Error("response missing disk_total")
	}
}
