// Package harness drives one disposable headless browser against the served
// frontend: it installs the bridge mock before page load, relays console
// output, captures a screenshot, and tears the browser down on every exit
// path. It observes; it does not assert.
package harness

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"frontcheck/internal/bridge"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
)

// Defaults used when the harness is invoked with no arguments. The target
// assumes a static file server is already serving the frontend locally.
const (
	DefaultTargetURL      = "http://localhost:8000/frontend/index.html"
	DefaultScreenshotPath = "verification/frontend_mock.png"
)

// Options configure a run.
type Options struct {
	TargetURL      string
	ScreenshotPath string // fixed output path, overwritten each run
	Headless       bool
	Workspace      string    // base path for run records; defaults to cwd
	ConsoleOut     io.Writer // destination for relayed page console lines; defaults to stdout
	SkipInstall    bool      // skip the playwright browser install step
}

// Result contains the run record paths and manifest.
type Result struct {
	RunID    string
	RunDir   string
	Manifest Manifest
	LogPath  string
}

// Manifest is persisted to run.json.
type Manifest struct {
	RunID         string    `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	TargetURL     string    `json:"target_url"`
	Screenshot    string    `json:"screenshot"`
	ConsoleLines  int64     `json:"console_lines"`
	ConsoleErrors int64     `json:"console_errors"`
	LogPath       string    `json:"log_path"`
}

func (o Options) withDefaults() Options {
	if o.TargetURL == "" {
		o.TargetURL = DefaultTargetURL
	}
	if o.ScreenshotPath == "" {
		o.ScreenshotPath = DefaultScreenshotPath
	}
	if o.Workspace == "" {
		cwd, _ := os.Getwd()
		o.Workspace = cwd
	}
	if o.ConsoleOut == nil {
		o.ConsoleOut = os.Stdout
	}
	return o
}

// Run executes a single verification pass and produces the screenshot plus a
// run record under workspace/runs/<id>. Browser resources are released on
// every exit path; any launch or navigation failure propagates after
// teardown. Page-content failures never fail the run — they surface only
// through the console relay and a degraded screenshot.
func Run(opts Options) (Result, error) {
	opts = opts.withDefaults()

	runID := fmt.Sprintf("%x", time.Now().UnixNano())
	runDir := filepath.Join(opts.Workspace, "runs", runID)
	logsDir := filepath.Join(runDir, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return Result{}, err
	}
	if dir := filepath.Dir(opts.ScreenshotPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, err
		}
	}

	logPath := filepath.Join(logsDir, "harness.ndjson")
	logFile, err := os.Create(logPath)
	if err != nil {
		return Result{}, err
	}
	defer logFile.Close()

	// Console relay goes to stdout; the logger mirrors to stderr so the two
	// streams stay separable for the operator.
	logger := zerolog.New(zerolog.MultiLevelWriter(
		zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen},
		logFile,
	)).With().Timestamp().Str("run_id", runID).Logger()

	mock := bridge.NewMock()
	initScript, err := mock.InitScript()
	if err != nil {
		return Result{}, fmt.Errorf("build bridge payload: %w", err)
	}

	if !opts.SkipInstall {
		logger.Info().Msg("installing playwright browsers")
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return Result{}, fmt.Errorf("install browsers: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return Result{}, fmt.Errorf("start playwright: %w", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		return Result{}, fmt.Errorf("launch browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.NewPage()
	if err != nil {
		return Result{}, fmt.Errorf("new page: %w", err)
	}

	// The bridge must exist before any page script runs, otherwise the
	// frontend's startup calls hit an empty global.
	if err := page.AddInitScript(playwright.Script{
		Content: playwright.String(initScript),
	}); err != nil {
		return Result{}, fmt.Errorf("install bridge payload: %w", err)
	}

	var consoleLines, consoleErrors atomic.Int64
	page.OnConsole(func(msg playwright.ConsoleMessage) {
		consoleLines.Add(1)
		if msg.Type() == "error" {
			consoleErrors.Add(1)
		}
		fmt.Fprintf(opts.ConsoleOut, "console[%s]: %s\n", msg.Type(), msg.Text())
		logger.Info().Str("scope", "console").Str("type", msg.Type()).Msg(msg.Text())
	})

	start := time.Now()
	logger.Info().Str("url", opts.TargetURL).Msg("navigating")
	if _, err := page.Goto(opts.TargetURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return Result{}, fmt.Errorf("navigate: %w", err)
	}

	if _, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(opts.ScreenshotPath),
		FullPage: playwright.Bool(true),
	}); err != nil {
		return Result{}, fmt.Errorf("screenshot: %w", err)
	}
	logger.Info().Str("path", opts.ScreenshotPath).Msg("screenshot captured")

	manifest := Manifest{
		RunID:         runID,
		StartedAt:     start,
		FinishedAt:    time.Now(),
		TargetURL:     opts.TargetURL,
		Screenshot:    opts.ScreenshotPath,
		ConsoleLines:  consoleLines.Load(),
		ConsoleErrors: consoleErrors.Load(),
		LogPath:       logPath,
	}
	if err := WriteManifest(filepath.Join(runDir, "run.json"), manifest); err != nil {
		logger.Warn().Err(err).Msg("write manifest failed")
	}

	logger.Info().Int64("console_lines", manifest.ConsoleLines).
		Int64("console_errors", manifest.ConsoleErrors).
		Msg("run finished")

	return Result{
		RunID:    runID,
		RunDir:   runDir,
		Manifest: manifest,
		LogPath:  logPath,
	}, nil
}

// WriteManifest persists a manifest as indented JSON.
func WriteManifest(path string, manifest Manifest) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(manifest)
}

// LoadManifest reads a manifest from disk.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// FindRuns returns run ids under workspace/runs, newest first. Run ids are
// hex nanosecond timestamps, so the reverse lexical order is chronological.
func FindRuns(workspace string) ([]string, error) {
	runsDir := filepath.Join(workspace, "runs")
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}
