// Package run wires discovery, exploration and composition into one
// end-to-end run and reports on it.
package run

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/routeshot/pkg/config"
	"github.com/entrhq/routeshot/pkg/discovery"
	"github.com/entrhq/routeshot/pkg/explore"
	"github.com/entrhq/routeshot/pkg/export"
	"github.com/entrhq/routeshot/pkg/grid"
	"github.com/entrhq/routeshot/pkg/logging"
	"github.com/entrhq/routeshot/pkg/snapshot"
)

// Browser is the browser session a run drives.
type Browser interface {
	explore.Session
	Initialize() error
	Launch() error
	Shutdown() error
}

// Runner executes a configured run.
type Runner struct {
	cfg     *config.Config
	console *Logger
	file    *logging.Logger
	browser Browser

	capturer *snapshot.Capturer
	summary  *Summary
}

// NewRunner validates cfg and prepares a run. file may be nil to disable the
// run log.
func NewRunner(cfg *config.Config, console *Logger, file *logging.Logger, browser Browser) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Runner{
		cfg:      cfg,
		console:  console,
		file:     file,
		browser:  browser,
		capturer: snapshot.NewCapturer(cfg.ScreenshotDir()),
		summary: &Summary{
			RunID:      logging.GetRunID(),
			ProjectDir: cfg.ProjectDir,
			BaseURL:    cfg.BaseURL,
			Routes:     []string{},
			Outcomes:   []explore.RouteOutcome{},
			Snapshots:  []string{},
		},
	}, nil
}

// logger returns the reporter for one component: the console plus the run
// log when enabled
func (r *Runner) logger(component string) logging.Leveled {
	if r.file == nil {
		return r.console
	}
	return logging.Tee(r.console, r.file.With(component))
}

// Discover runs route discovery only
func (r *Runner) Discover() (*discovery.Result, error) {
	d, err := discovery.New(r.cfg.Discovery, r.logger("discovery"))
	if err != nil {
		return nil, fmt.Errorf("invalid discovery patterns: %w", err)
	}

	result := d.Discover(r.cfg.ProjectDir)
	for _, sk := range result.Skipped {
		r.console.Verbosef("skipped %s: %s", sk.Path, sk.Reason)
	}
	return result, nil
}

// Run discovers, explores and composes. It returns an error only when the
// run failed as a whole; per-route and grid problems yield a partial success.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	r.summary.StartTime = time.Now()
	r.console.Header("routeshot " + r.cfg.BaseURL)

	r.console.Step("Discovering routes")
	found, err := r.Discover()
	if err != nil {
		return r.summary, r.fail(err)
	}
	r.summary.Routes = found.Routes
	r.summary.FilteredRoutes = found.Filtered
	r.summary.SkippedEntries = found.Skipped
	for _, route := range found.Routes {
		r.console.Verbosef("%s", route)
	}
	r.console.Successf("%d routes", len(found.Routes))

	if len(found.Routes) == 0 {
		r.console.Warnf("no routes found under %s", r.cfg.ProjectDir)
		return r.summary, r.finalize()
	}

	r.console.Step("Launching browser")
	if err := r.browser.Initialize(); err != nil {
		return r.summary, r.fail(err)
	}
	defer func() {
		if err := r.browser.Shutdown(); err != nil {
			r.logger("browser").Warnf("shutdown: %v", err)
		}
	}()
	if err := r.browser.Launch(); err != nil {
		return r.summary, r.fail(err)
	}
	r.console.Successf("chromium ready")

	r.console.Step("Exploring")
	orch, err := explore.New(r.cfg.Explore, r.cfg.BaseURL, r.browser, r.capturer, r.logger("explore"))
	if err != nil {
		return r.summary, r.fail(err)
	}
	result := orch.Run(ctx, found.Routes)
	r.summary.Outcomes = result.Routes
	r.summary.Snapshots = result.Snapshots
	if result.Snapshots == nil {
		r.summary.Snapshots = []string{}
	}
	r.console.Successf("%d snapshots in %s", len(result.Snapshots), r.capturer.Dir())

	r.compose()
	r.exportPDF()

	return r.summary, r.finalize()
}

func (r *Runner) compose() {
	if !r.cfg.Grid.Enabled {
		return
	}

	r.console.Step("Composing grid")
	composer, err := grid.NewComposer(r.cfg.Grid, r.logger("grid"))
	if err == nil {
		var layout *grid.Layout
		layout, err = composer.Compose(r.summary.Snapshots, r.cfg.GridPath())
		if err == nil && layout != nil {
			r.summary.Grid = r.cfg.GridPath()
			r.console.Successf("contact sheet %dx%d: %s", layout.Columns, layout.Rows, r.summary.Grid)
		}
	}
	if err != nil {
		r.summary.GridError = err.Error()
		r.console.Errorf("grid: %v", err)
	}
}

func (r *Runner) exportPDF() {
	if !r.cfg.Export.PDF || len(r.summary.Snapshots) == 0 {
		return
	}

	r.console.Step("Exporting PDF")
	dest := r.cfg.PDFPath()
	err := export.WritePDF(r.summary.Snapshots, dest)
	var pages int
	if err == nil {
		pages, err = export.PageCount(dest)
	}
	if err == nil && pages != len(r.summary.Snapshots) {
		err = fmt.Errorf("pdf has %d pages for %d snapshots", pages, len(r.summary.Snapshots))
	}
	if err != nil {
		r.summary.PDFError = err.Error()
		r.console.Errorf("pdf: %v", err)
		return
	}
	r.summary.PDF = dest
	r.console.Successf("review packet: %s (%d pages)", dest, pages)
}

// finalize settles the status, writes artifacts and prints the summary
func (r *Runner) finalize() error {
	r.summary.EndTime = time.Now()
	r.summary.Duration = r.summary.EndTime.Sub(r.summary.StartTime)
	r.summary.Metrics = computeMetrics(r.summary)

	if r.summary.Status == "" {
		r.summary.Status = StatusSuccess
		if r.summary.Metrics.RoutesFailed > 0 || r.summary.GridError != "" || r.summary.PDFError != "" {
			r.summary.Status = StatusPartialSuccess
		}
	}

	if r.cfg.Export.Artifacts {
		w := NewArtifactWriter(r.cfg.ScreenshotDir())
		if err := w.WriteAll(r.summary); err != nil {
			r.console.Warnf("failed to write artifacts: %v", err)
		}
	}

	r.logger("run").Infof("run %s finished: %s", r.summary.RunID, r.summary.Status)
	r.console.Summary(r.summary)

	if r.summary.Status == StatusFailed {
		return fmt.Errorf("run failed: %s", r.summary.Error)
	}
	return nil
}

// fail marks the run as failed and still writes what is known
func (r *Runner) fail(err error) error {
	r.summary.Status = StatusFailed
	r.summary.Error = err.Error()
	r.console.Errorf("%v", err)
	_ = r.finalize()
	return err
}

func computeMetrics(s *Summary) Metrics {
	m := Metrics{
		RoutesDiscovered: len(s.Routes),
		Snapshots:        len(s.Snapshots),
	}
	for _, o := range s.Outcomes {
		if o.Failed() {
			m.RoutesFailed++
		} else {
			m.RoutesExplored++
		}
		m.SkippedStages += len(o.Skipped)
	}
	return m
}
