package explore

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// Session opens pages in the shared browser session.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
}

// Page is one browser tab scoped to a single route.
type Page interface {
	// Goto navigates and waits until the network is idle
	Goto(ctx context.Context, url string, timeout time.Duration) error

	// Elements returns the elements matching a CSS selector, in document order
	Elements(ctx context.Context, selector string) ([]Element, error)

	// WaitForNavigation returns when the page navigates or ctx is done
	WaitForNavigation(ctx context.Context) error

	// Screenshot writes a full-page PNG to path
	Screenshot(path string) error

	// Content returns the rendered HTML
	Content() (string, error)

	// Archive returns an MHTML snapshot of the page with its resources inlined
	Archive() (string, error)

	// Title returns the document title
	Title() (string, error)

	Close() error
}

// Element is a handle to an interactive element of a loaded page.
type Element interface {
	Attribute(name string) (string, error)
	Text() (string, error)
	Hover(ctx context.Context, timeout time.Duration) error
	Click(ctx context.Context, timeout time.Duration) error
}

// maxTextLabel caps labels taken from visible text.
const maxTextLabel = 20

// Label derives the display label of an element: its id, else its class
// attribute, else its trimmed visible text cut to 20 characters.
func Label(el Element) string {
	for _, attr := range []string{"id", "class"} {
		if v, err := el.Attribute(attr); err == nil && v != "" {
			return v
		}
	}

	text, err := el.Text()
	if err != nil {
		return ""
	}
	return truncateRunes(strings.TrimSpace(text), maxTextLabel)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
