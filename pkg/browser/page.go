package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/routeshot/pkg/explore"
)

// navigationEvent fires when any frame of the page commits a navigation
const navigationEvent = "framenavigated"

// page adapts a Playwright page to explore.Page
type page struct {
	page playwright.Page
}

func (p *page) Goto(ctx context.Context, url string, timeout time.Duration) error {
	waitUntil := playwright.WaitUntilState("networkidle")
	opts := playwright.PageGotoOptions{WaitUntil: &waitUntil}
	if timeout > 0 {
		opts.Timeout = millis(timeout)
	}

	return await(ctx, func() error {
		_, err := p.page.Goto(url, opts)
		if err != nil {
			return fmt.Errorf("navigation failed: %w", err)
		}
		return nil
	})
}

func (p *page) Elements(ctx context.Context, selector string) ([]explore.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("selector query failed: %w", err)
	}

	elements := make([]explore.Element, len(handles))
	for i, h := range handles {
		elements[i] = &element{handle: h}
	}
	return elements, nil
}

// WaitForNavigation blocks until the page navigates. Without a deadline on
// ctx the wait is bounded by the page's default timeout.
func (p *page) WaitForNavigation(ctx context.Context) error {
	opts := playwright.PageWaitForEventOptions{}
	if deadline, ok := ctx.Deadline(); ok {
		opts.Timeout = millis(time.Until(deadline))
	}

	return await(ctx, func() error {
		_, err := p.page.WaitForEvent(navigationEvent, opts)
		return err
	})
}

func (p *page) Screenshot(path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

func (p *page) Content() (string, error) {
	return p.page.Content()
}

// Archive captures the page as MHTML through a CDP session
func (p *page) Archive() (string, error) {
	cdp, err := p.page.Context().NewCDPSession(p.page)
	if err != nil {
		return "", fmt.Errorf("failed to open CDP session: %w", err)
	}
	defer cdp.Detach()

	res, err := cdp.Send("Page.captureSnapshot", map[string]interface{}{"format": "mhtml"})
	if err != nil {
		return "", fmt.Errorf("failed to capture snapshot: %w", err)
	}

	result, ok := res.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("unexpected snapshot result %T", res)
	}
	data, ok := result["data"].(string)
	if !ok {
		return "", fmt.Errorf("snapshot result has no data")
	}
	return data, nil
}

func (p *page) Title() (string, error) {
	return p.page.Title()
}

func (p *page) Close() error {
	return p.page.Close()
}

// element adapts a Playwright element handle to explore.Element
type element struct {
	handle playwright.ElementHandle
}

func (e *element) Attribute(name string) (string, error) {
	return e.handle.GetAttribute(name)
}

func (e *element) Text() (string, error) {
	return e.handle.TextContent()
}

func (e *element) Hover(ctx context.Context, timeout time.Duration) error {
	opts := playwright.ElementHandleHoverOptions{}
	if timeout > 0 {
		opts.Timeout = millis(timeout)
	}
	return await(ctx, func() error {
		return e.handle.Hover(opts)
	})
}

func (e *element) Click(ctx context.Context, timeout time.Duration) error {
	opts := playwright.ElementHandleClickOptions{}
	if timeout > 0 {
		opts.Timeout = millis(timeout)
	}
	return await(ctx, func() error {
		return e.handle.Click(opts)
	})
}

// await runs a blocking driver call and returns early when ctx is done.
// The call itself keeps running until its own Playwright timeout.
func await(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// millis converts a duration to Playwright's float milliseconds. Zero means
// no timeout to Playwright, so the result is at least one millisecond.
func millis(d time.Duration) *float64 {
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return playwright.Float(float64(d.Milliseconds()))
}
