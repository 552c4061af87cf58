// Package browser drives Chromium through Playwright for route exploration.
//
// A Manager owns one driver and one browser session for the whole run:
//
//  1. Initialize installs (optionally) and starts the Playwright driver
//  2. Launch starts Chromium with the configured viewport and opens a context
//  3. NewPage hands out one tab per route; the caller closes it
//  4. Shutdown tears everything down and may be called more than once
//
// Pages and element handles are adapted to the interfaces of package explore,
// so the exploration logic never touches Playwright types. Blocking driver
// calls honour context cancellation, and every call carries its own Playwright
// timeout so a hung page cannot stall the run.
//
// # DOM capture
//
// Content returns the rendered HTML as the browser serializes it. Archive
// asks Chromium over CDP for an MHTML snapshot of the page, with styles and
// images inlined, so the state can be reopened offline.
//
// # Example
//
//	m := browser.NewManager(cfg.Browser, log)
//	if err := m.Initialize(); err != nil {
//	    return err
//	}
//	defer m.Shutdown()
//	if err := m.Launch(); err != nil {
//	    return err
//	}
//	orch, err := explore.New(cfg.Explore, cfg.BaseURL, m, capturer, log)
package browser
