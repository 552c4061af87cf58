// Package explore visits discovered routes in a headless browser, pokes at a
// bounded set of interactive elements on each, and captures a screenshot of
// every state it reaches.
//
// Routes are processed strictly one after another on a single shared browser
// session, so snapshot order is deterministic and at most one page is open at
// a time. Every failure below the session level is isolated: a route that does
// not load is abandoned, an element that cannot be hovered or clicked is
// skipped, and the run carries on.
package explore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/entrhq/routeshot/pkg/config"
	"github.com/entrhq/routeshot/pkg/dom"
	"github.com/entrhq/routeshot/pkg/logging"
	"github.com/entrhq/routeshot/pkg/snapshot"
)

// Route outcome statuses
const (
	StatusExplored  = "explored"
	StatusNavFailed = "navigation_failed"
	StatusNoInitial = "initial_capture_failed"
	StatusPageError = "page_error"
	StatusCancelled = "cancelled"
)

// MaxDOMLength caps the cleaned HTML kept per page, in bytes of text.
const MaxDOMLength = 200_000

// NavigationError reports a route whose page could not be opened or loaded.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// InteractionError reports a hover or click that did not complete.
type InteractionError struct {
	Action string
	Index  int
	Label  string
	Err    error
}

func (e *InteractionError) Error() string {
	return fmt.Sprintf("%s element %d (%s): %v", e.Action, e.Index, e.Label, e.Err)
}

func (e *InteractionError) Unwrap() error { return e.Err }

// Result is the ordered outcome of a run.
type Result struct {
	// Snapshots in capture order: routes in discovery order, and within a
	// route initial, then hover/click per element in enumeration order
	Snapshots []string `json:"snapshots"`

	Routes []RouteOutcome `json:"routes"`
}

// RouteOutcome records what happened on one route.
type RouteOutcome struct {
	Route       string `json:"route"`
	URL         string `json:"url"`
	Status      string `json:"status"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	// Page captures written next to the initial snapshot
	DOM          string `json:"dom,omitempty"`
	CleanDOM     string `json:"clean_dom,omitempty"`
	DOMTruncated bool   `json:"dom_truncated,omitempty"`
	Archive      string `json:"archive,omitempty"`

	Elements  int           `json:"elements"`
	Snapshots []string      `json:"snapshots"`
	Skipped   []string      `json:"skipped_stages,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Failed reports whether the route produced no exploration at all
func (o RouteOutcome) Failed() bool {
	return o.Status != StatusExplored
}

// Orchestrator drives the per-route exploration.
type Orchestrator struct {
	cfg      config.ExploreConfig
	baseURL  *url.URL
	session  Session
	capturer *snapshot.Capturer
	log      logging.Leveled

	// sleep waits out the settle delay; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an orchestrator for routes below baseURL
func New(cfg config.ExploreConfig, baseURL string, session Session, capturer *snapshot.Capturer, log logging.Leveled) (*Orchestrator, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if log == nil {
		log = logging.Nop()
	}

	return &Orchestrator{
		cfg:      cfg,
		baseURL:  u,
		session:  session,
		capturer: capturer,
		log:      log,
		sleep:    sleepContext,
	}, nil
}

// ResolveURL joins a route onto the base URL
func (o *Orchestrator) ResolveURL(route string) string {
	ref, err := url.Parse(route)
	if err != nil {
		return strings.TrimRight(o.baseURL.String(), "/") + route
	}
	return o.baseURL.ResolveReference(ref).String()
}

// Run explores routes in order. It only returns early when ctx is cancelled;
// every other failure is recorded in the result.
func (o *Orchestrator) Run(ctx context.Context, routes []string) *Result {
	result := &Result{}

	if o.cfg.MaxRoutes > 0 && len(routes) > o.cfg.MaxRoutes {
		o.log.Warnf("visiting %d of %d routes (max_routes)", o.cfg.MaxRoutes, len(routes))
		routes = routes[:o.cfg.MaxRoutes]
	}

	for _, route := range routes {
		if ctx.Err() != nil {
			result.Routes = append(result.Routes, RouteOutcome{
				Route:  route,
				URL:    o.ResolveURL(route),
				Status: StatusCancelled,
				Error:  ctx.Err().Error(),
			})
			continue
		}

		outcome := o.exploreRoute(ctx, route)
		result.Snapshots = append(result.Snapshots, outcome.Snapshots...)
		result.Routes = append(result.Routes, outcome)
	}

	return result
}

// exploreRoute runs one route with a page that is released on every path
func (o *Orchestrator) exploreRoute(ctx context.Context, route string) (outcome RouteOutcome) {
	start := time.Now()
	outcome = RouteOutcome{
		Route:     route,
		URL:       o.ResolveURL(route),
		Snapshots: []string{},
	}
	defer func() {
		outcome.Duration = time.Since(start)
	}()

	o.log.Infof("visiting %s", outcome.URL)

	err := o.withPage(ctx, func(page Page) error {
		return o.explorePage(ctx, page, &outcome)
	})
	if err != nil {
		outcome.Error = err.Error()
		var navErr *NavigationError
		var capErr *snapshot.CaptureError
		switch {
		case ctx.Err() != nil:
			outcome.Status = StatusCancelled
		case errors.As(err, &navErr):
			outcome.Status = StatusNavFailed
			o.log.Warnf("abandoning %s: %v", route, err)
		case errors.As(err, &capErr):
			outcome.Status = StatusNoInitial
			o.log.Warnf("abandoning %s after initial capture failed: %v", route, err)
		default:
			outcome.Status = StatusPageError
			o.log.Errorf("route %s: %v", route, err)
		}
		return outcome
	}

	outcome.Status = StatusExplored
	o.log.Infof("route %s: %d snapshots", route, len(outcome.Snapshots))
	return outcome
}

// withPage opens a page, runs fn and closes the page however fn returns
func (o *Orchestrator) withPage(ctx context.Context, fn func(Page) error) (err error) {
	page, err := o.session.NewPage(ctx)
	if err != nil {
		return &NavigationError{URL: "new page", Err: err}
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			o.log.Warnf("failed to close page: %v", closeErr)
		}
	}()

	return fn(page)
}

func (o *Orchestrator) explorePage(ctx context.Context, page Page, outcome *RouteOutcome) error {
	if err := page.Goto(ctx, outcome.URL, o.cfg.NavigationTimeout); err != nil {
		return &NavigationError{URL: outcome.URL, Err: err}
	}

	initial, err := o.capturer.Capture(page, "initial", outcome.Route)
	if err != nil {
		return err
	}
	outcome.Snapshots = append(outcome.Snapshots, initial)

	if title, err := page.Title(); err == nil {
		outcome.Title = title
	}
	if o.cfg.CaptureDOM {
		o.captureDOM(page, outcome)
	}
	if o.cfg.CaptureMHTML {
		o.captureArchive(page, outcome)
	}

	elements, err := page.Elements(ctx, strings.Join(o.cfg.Selectors, ", "))
	if err != nil {
		o.log.Warnf("element query failed on %s: %v", outcome.Route, err)
		outcome.Skipped = append(outcome.Skipped, "elements")
		return nil
	}
	if len(elements) > o.cfg.MaxElements {
		o.log.Debugf("%s: %d interactive elements, exploring %d", outcome.Route, len(elements), o.cfg.MaxElements)
		elements = elements[:o.cfg.MaxElements]
	}
	outcome.Elements = len(elements)

	for i, el := range elements {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.exploreElement(ctx, page, el, i, outcome)
	}
	return nil
}

// exploreElement hovers and clicks one element, capturing after each.
// Failures only skip the affected stage.
func (o *Orchestrator) exploreElement(ctx context.Context, page Page, el Element, i int, outcome *RouteOutcome) {
	label := Label(el)

	hoverStage := fmt.Sprintf("hover_%d", i)
	if err := el.Hover(ctx, o.cfg.HoverTimeout); err != nil {
		o.skipStage(outcome, hoverStage, &InteractionError{Action: "hover", Index: i, Label: label, Err: err})
	} else {
		o.capture(page, hoverStage, label, outcome)
	}

	clickStage := fmt.Sprintf("click_%d", i)
	if err := o.click(ctx, page, el); err != nil {
		o.skipStage(outcome, clickStage, &InteractionError{Action: "click", Index: i, Label: label, Err: err})
		return
	}
	if err := o.sleep(ctx, o.cfg.SettleDelay); err != nil {
		o.skipStage(outcome, clickStage, err)
		return
	}
	o.capture(page, clickStage, label, outcome)
}

// click races the click against a navigation it may trigger. Whichever ends
// first decides; running out of time while waiting is not a failure.
func (o *Orchestrator) click(ctx context.Context, page Page, el Element) error {
	err := FirstOf(ctx, o.cfg.ClickTimeout,
		func(ctx context.Context) error {
			return el.Click(ctx, o.cfg.ClickTimeout)
		},
		func(ctx context.Context) error {
			return page.WaitForNavigation(ctx)
		},
	)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil
	}
	return err
}

func (o *Orchestrator) capture(page Page, stage, label string, outcome *RouteOutcome) {
	path, err := o.capturer.Capture(page, stage, label)
	if err != nil {
		o.skipStage(outcome, stage, err)
		return
	}
	outcome.Snapshots = append(outcome.Snapshots, path)
}

func (o *Orchestrator) skipStage(outcome *RouteOutcome, stage string, err error) {
	o.log.Debugf("%s %s skipped: %v", outcome.Route, stage, err)
	outcome.Skipped = append(outcome.Skipped, stage)
}

// captureDOM stores the rendered HTML and its cleaned skeleton next to the
// initial snapshot
func (o *Orchestrator) captureDOM(page Page, outcome *RouteOutcome) {
	raw, err := page.Content()
	if err != nil {
		o.log.Warnf("dom capture failed on %s: %v", outcome.Route, err)
		outcome.Skipped = append(outcome.Skipped, "dom")
		return
	}

	path, err := o.writeCapture(outcome.Route, ".html", raw)
	if err != nil {
		o.log.Warnf("dom write failed on %s: %v", outcome.Route, err)
		outcome.Skipped = append(outcome.Skipped, "dom")
		return
	}
	outcome.DOM = path

	cleaned, err := dom.Clean(raw, MaxDOMLength)
	if err == nil {
		path, err = o.writeCapture(outcome.Route, ".clean.html", cleaned.HTML)
	}
	if err != nil {
		o.log.Warnf("cleaned dom failed on %s: %v", outcome.Route, err)
		outcome.Skipped = append(outcome.Skipped, "clean_dom")
		return
	}
	outcome.CleanDOM = path
	outcome.DOMTruncated = cleaned.Truncated
	outcome.Description = cleaned.Description
	if outcome.Title == "" {
		outcome.Title = cleaned.Title
	}
}

// captureArchive stores an MHTML snapshot of the initial state
func (o *Orchestrator) captureArchive(page Page, outcome *RouteOutcome) {
	mhtml, err := page.Archive()
	if err == nil {
		outcome.Archive, err = o.writeCapture(outcome.Route, ".mhtml", mhtml)
	}
	if err != nil {
		o.log.Warnf("mhtml capture failed on %s: %v", outcome.Route, err)
		outcome.Skipped = append(outcome.Skipped, "mhtml")
	}
}

func (o *Orchestrator) writeCapture(route, ext, content string) (string, error) {
	path, err := o.capturer.Reserve("initial", route, ext)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
