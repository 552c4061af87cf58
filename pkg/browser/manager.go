package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/routeshot/pkg/config"
	"github.com/entrhq/routeshot/pkg/explore"
	"github.com/entrhq/routeshot/pkg/logging"
)

// ErrNotLaunched is returned when pages are requested before Launch.
var ErrNotLaunched = errors.New("browser not launched")

// SessionError reports a failure of the browser session as a whole.
// Unlike route or element failures it ends the run.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("browser %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// Manager owns the Playwright driver and the single browser session of a run.
// Pages are opened on demand, one per route, and all share one context.
type Manager struct {
	mu sync.Mutex

	cfg config.BrowserConfig
	log logging.Leveled

	// driverOut receives the Playwright driver's stdout and stderr
	driverOut io.Writer

	playwright *playwright.Playwright
	browser    playwright.Browser
	context    playwright.BrowserContext

	initialized bool
}

// NewManager creates a manager for the given browser settings
func NewManager(cfg config.BrowserConfig, log logging.Leveled) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	return &Manager{cfg: cfg, log: log, driverOut: io.Discard}
}

// WithDriverOutput sends the driver's own output to w instead of discarding it
func (m *Manager) WithDriverOutput(w io.Writer) *Manager {
	if w != nil {
		m.driverOut = w
	}
	return m
}

// Initialize starts the Playwright driver, installing it first if configured.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	// keep driver chatter off the console
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  m.driverOut,
		Stderr:  m.driverOut,
	}

	if m.cfg.Install {
		m.log.Debugf("installing playwright driver")
		if err := playwright.Install(opts); err != nil {
			return &SessionError{Op: "install", Err: err}
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return &SessionError{Op: "start", Err: err}
	}

	m.playwright = pw
	m.initialized = true
	return nil
}

// Launch starts Chromium and opens the shared browser context
func (m *Manager) Launch() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return &SessionError{Op: "launch", Err: errors.New("playwright not initialized")}
	}
	if m.browser != nil {
		return nil
	}

	headless := m.cfg.Headless
	browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &headless,
	})
	if err != nil {
		return &SessionError{Op: "launch", Err: err}
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  m.cfg.ViewportWidth,
			Height: m.cfg.ViewportHeight,
		},
	})
	if err != nil {
		_ = browser.Close()
		return &SessionError{Op: "create context", Err: err}
	}

	m.browser = browser
	m.context = bctx
	m.log.Debugf("chromium launched (headless=%t, viewport %dx%d)", headless, m.cfg.ViewportWidth, m.cfg.ViewportHeight)
	return nil
}

// NewPage opens a fresh tab. The caller owns it and must close it.
func (m *Manager) NewPage(ctx context.Context) (explore.Page, error) {
	m.mu.Lock()
	bctx := m.context
	m.mu.Unlock()

	if bctx == nil {
		return nil, &SessionError{Op: "new page", Err: ErrNotLaunched}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := bctx.NewPage()
	if err != nil {
		return nil, &SessionError{Op: "new page", Err: err}
	}
	return &page{page: p}, nil
}

// Shutdown closes the browser and stops the driver. It is safe to call more
// than once and on a manager that never launched.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if m.context != nil {
		if err := m.context.Close(); err != nil {
			errs = append(errs, err)
		}
		m.context = nil
	}
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			errs = append(errs, err)
		}
		m.browser = nil
	}
	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		m.playwright = nil
		m.initialized = false
	}

	if len(errs) > 0 {
		return &SessionError{Op: "shutdown", Err: errors.Join(errs...)}
	}
	return nil
}
