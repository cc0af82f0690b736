package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"verbatim/internal/config"
	"verbatim/internal/jobs"
	"verbatim/internal/media"
	"verbatim/internal/model"
	"verbatim/internal/recognize"
)

type idleEngine struct{}

func (idleEngine) Name() string { return "idle" }
func (idleEngine) Recognize(ctx context.Context, chunk recognize.Chunk) (recognize.Result, error) {
	return recognize.Result{}, errors.New("engine not available in tests")
}

type noopRunner struct{}

func (noopRunner) Run(ctx context.Context, name string, args ...string) (media.CommandResult, error) {
	return media.CommandResult{}, errors.New("no external commands in tests")
}

// setupRouter builds a router backed by a manager whose workers are not
// started, so submitted jobs stay queued for the duration of a test.
func setupRouter(t *testing.T) (*gin.Engine, *jobs.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	base := t.TempDir()
	c := &config.Config{
		UploadDir:      filepath.Join(base, "uploads"),
		WorkDir:        filepath.Join(base, "work"),
		OutputDir:      filepath.Join(base, "results"),
		MaxUploadBytes: 1024 * 1024,
		Workers:        1,
		JobTimeout:     time.Minute,
		Retention:      time.Hour,
		SubtitleFormat: "srt",
	}
	m := jobs.NewManager(c, idleEngine{}, nil, jobs.NewEventBus())
	m.SetNormalizer(media.NewNormalizerWithRunner("ffmpeg", "ffprobe", noopRunner{}))

	Init(c, m)
	r := gin.New()
	RegisterRoutes(r)
	return r, m
}

func multipartUpload(t *testing.T, field, filename string, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("fake media payload")); err != nil {
		t.Fatal(err)
	}
	for k, v := range extra {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return body, w.FormDataContentType()
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v\n%s", err, w.Body.String())
	}
	return resp
}

func TestHealthCheck(t *testing.T) {
	r, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeBody(t, w)
	if resp["success"] != true {
		t.Errorf("unexpected body: %v", resp)
	}
}

func TestSubmitJob(t *testing.T) {
	r, m := setupRouter(t)

	body, contentType := multipartUpload(t, "file", "meeting.mp4", map[string]string{"language": "en"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	data := resp["data"].(map[string]any)
	if data["status"] != string(model.JobStatusQueued) {
		t.Errorf("status = %v", data["status"])
	}

	id, err := uuid.Parse(data["job_id"].(string))
	if err != nil {
		t.Fatalf("bad job id: %v", err)
	}
	snap, ok := m.Get(id)
	if !ok {
		t.Fatal("job not registered with the manager")
	}
	if snap.SourceName != "meeting.mp4" || snap.Status != model.JobStatusQueued {
		t.Errorf("unexpected job: %+v", snap)
	}
}

func TestSubmitJobAlternativeFieldName(t *testing.T) {
	r, _ := setupRouter(t)

	body, contentType := multipartUpload(t, "audio_file", "voice.wav", nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
}

func TestSubmitJobRejectsExtension(t *testing.T) {
	r, _ := setupRouter(t)

	body, contentType := multipartUpload(t, "file", "document.pdf", nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeBody(t, w)
	if resp["success"] != false {
		t.Errorf("unexpected body: %v", resp)
	}
}

func TestSubmitJobRejectsBadLanguageHint(t *testing.T) {
	r, _ := setupRouter(t)

	body, contentType := multipartUpload(t, "file", "clip.mp3", map[string]string{"language": "not-a-lang-code!"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
}

func TestSubmitJobMissingFile(t *testing.T) {
	r, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGetJobStatus(t *testing.T) {
	r, m := setupRouter(t)
	id, err := m.Submit("in.mp4", "in.mp4", "")
	if err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+id.String()+"/status", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	data := decodeBody(t, w)["data"].(map[string]any)
	if data["state"] != string(model.JobStatusQueued) {
		t.Errorf("state = %v", data["state"])
	}
}

func TestGetJobStatusUnknownJob(t *testing.T) {
	r, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+uuid.NewString()+"/status", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGetJobStatusInvalidID(t *testing.T) {
	r, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/not-a-uuid/status", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGetJobResultNotFinished(t *testing.T) {
	r, m := setupRouter(t)
	id, err := m.Submit("in.mp4", "in.mp4", "")
	if err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+id.String()+"/result", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGetJobSubtitleNotReady(t *testing.T) {
	r, m := setupRouter(t)
	id, err := m.Submit("in.mp4", "in.mp4", "")
	if err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+id.String()+"/subtitle", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCancelJob(t *testing.T) {
	r, m := setupRouter(t)
	id, err := m.Submit("in.mp4", "in.mp4", "")
	if err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/"+id.String(), nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	snap, _ := m.Get(id)
	if snap.Status != model.JobStatusCancelled {
		t.Errorf("job status = %s", snap.Status)
	}

	// A second cancel hits the terminal state.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/"+id.String(), nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("second cancel status = %d", w.Code)
	}
}

func TestGetJobResultCancelledReportsKind(t *testing.T) {
	r, m := setupRouter(t)
	id, err := m.Submit("in.mp4", "in.mp4", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Cancel(id); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+id.String()+"/result", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeBody(t, w)
	if resp["kind"] != string(model.ErrCancelled) {
		t.Errorf("kind = %v, want %s", resp["kind"], model.ErrCancelled)
	}
}

func TestCancelUnknownJob(t *testing.T) {
	r, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/"+uuid.NewString(), nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestHistoryUnavailableWithoutRepository(t *testing.T) {
	r, _ := setupRouter(t)
	InitHistoryRepository(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
}
