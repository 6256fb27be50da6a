package review

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"frontcheck/internal/harness"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	ws := t.TempDir()
	return NewServer(ws, zerolog.Nop()), ws
}

func seedRun(t *testing.T, ws, id string) harness.Manifest {
	t.Helper()
	runDir := filepath.Join(ws, "runs", id)
	require.NoError(t, os.MkdirAll(filepath.Join(runDir, "logs"), 0o755))

	m := harness.Manifest{
		RunID:      id,
		StartedAt:  time.Now().Add(-time.Minute),
		FinishedAt: time.Now(),
		TargetURL:  "http://localhost:8000/frontend/index.html",
		Screenshot: filepath.Join("verification", "frontend_mock.png"),
		LogPath:    filepath.Join(runDir, "logs", "harness.ndjson"),
	}
	require.NoError(t, harness.WriteManifest(filepath.Join(runDir, "run.json"), m))
	require.NoError(t, os.WriteFile(m.LogPath, []byte(`{"level":"info","message":"navigating"}`+"\n"), 0o644))
	return m
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":"true"}`, rec.Body.String())
}

func TestListRunsEmpty(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListRunsNewestFirst(t *testing.T) {
	srv, ws := newTestServer(t)
	seedRun(t, ws, "18a0000000000001")
	seedRun(t, ws, "18a0000000000002")

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var ids []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ids))
	assert.Equal(t, []string{"18a0000000000002", "18a0000000000001"}, ids)
}

func TestGetRun(t *testing.T) {
	srv, ws := newTestServer(t)
	want := seedRun(t, ws, "18a0000000000001")

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/18a0000000000001", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got harness.Manifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, want.RunID, got.RunID)
	assert.Equal(t, want.TargetURL, got.TargetURL)
}

func TestGetRunNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRunLogs(t *testing.T) {
	srv, ws := newTestServer(t)
	seedRun(t, ws, "18a0000000000001")

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/18a0000000000001/logs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "navigating")
}

func TestGetRunScreenshot(t *testing.T) {
	srv, ws := newTestServer(t)
	seedRun(t, ws, "18a0000000000001")
	require.NoError(t, os.MkdirAll(filepath.Join(ws, "verification"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ws, "verification", "frontend_mock.png"), []byte("png-bytes"), 0o644))

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/18a0000000000001/screenshot", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestGetRunScreenshotMissingFile(t *testing.T) {
	srv, ws := newTestServer(t)
	seedRun(t, ws, "18a0000000000001")

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/18a0000000000001/screenshot", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRun(t *testing.T) {
	srv, ws := newTestServer(t)

	var gotOpts harness.Options
	srv.WithRunner(func(opts harness.Options) (harness.Result, error) {
		gotOpts = opts
		return harness.Result{
			RunID: "deadbeef",
			Manifest: harness.Manifest{
				RunID:     "deadbeef",
				TargetURL: opts.TargetURL,
			},
		}, nil
	})

	body := strings.NewReader(`{"url":"http://localhost:8000/frontend/index.html"}`)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/runs", body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ws, gotOpts.Workspace)
	assert.True(t, gotOpts.Headless, "headless must default to true")

	var m harness.Manifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, "deadbeef", m.RunID)
}

func TestCreateRunHeadlessOverride(t *testing.T) {
	srv, _ := newTestServer(t)

	var gotOpts harness.Options
	srv.WithRunner(func(opts harness.Options) (harness.Result, error) {
		gotOpts = opts
		return harness.Result{}, nil
	})

	body := strings.NewReader(`{"headless":false}`)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/runs", body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, gotOpts.Headless)
}

func TestCreateRunBadBody(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader("{")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
