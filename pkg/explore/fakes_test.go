package explore

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"
)

// pageSpec describes how the fake page for one URL behaves
type pageSpec struct {
	gotoErr       error
	screenshotErr error
	elements      []*fakeElement
	elementsErr   error
	html          string
	contentErr    error
	mhtml         string
	archiveErr    error
	title         string
	// onGoto runs before Goto returns
	onGoto func()
	// navigates makes WaitForNavigation return at once
	navigates bool
}

type fakeSession struct {
	mu     sync.Mutex
	specs  map[string]pageSpec
	pages  []*fakePage
	newErr error
}

func newFakeSession(specs map[string]pageSpec) *fakeSession {
	return &fakeSession{specs: specs}
}

func (s *fakeSession) NewPage(ctx context.Context) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.newErr != nil {
		return nil, s.newErr
	}
	p := &fakePage{session: s}
	s.pages = append(s.pages, p)
	return p, nil
}

func (s *fakeSession) openPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	open := 0
	for _, p := range s.pages {
		if !p.closed {
			open++
		}
	}
	return open
}

type fakePage struct {
	session *fakeSession
	url     string
	spec    pageSpec
	closed  bool
	shots   []string
}

func (p *fakePage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	p.url = url
	p.spec = p.session.specs[url]
	if p.spec.onGoto != nil {
		p.spec.onGoto()
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return p.spec.gotoErr
}

func (p *fakePage) Elements(ctx context.Context, selector string) ([]Element, error) {
	if p.spec.elementsErr != nil {
		return nil, p.spec.elementsErr
	}
	out := make([]Element, len(p.spec.elements))
	for i, el := range p.spec.elements {
		out[i] = el
	}
	return out, nil
}

func (p *fakePage) WaitForNavigation(ctx context.Context) error {
	if p.spec.navigates {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *fakePage) Screenshot(path string) error {
	if p.spec.screenshotErr != nil {
		return p.spec.screenshotErr
	}
	p.shots = append(p.shots, path)
	return os.WriteFile(path, []byte("png"), 0644)
}

func (p *fakePage) Content() (string, error) {
	return p.spec.html, p.spec.contentErr
}

func (p *fakePage) Archive() (string, error) {
	return p.spec.mhtml, p.spec.archiveErr
}

func (p *fakePage) Title() (string, error) {
	return p.spec.title, nil
}

func (p *fakePage) Close() error {
	p.session.mu.Lock()
	defer p.session.mu.Unlock()
	p.closed = true
	return nil
}

type fakeElement struct {
	attrs    map[string]string
	text     string
	hoverErr error
	clickErr error
	// hangClick blocks Click until its context is done
	hangClick bool

	mu      sync.Mutex
	hovered bool
	clicked bool
}

func button(id string) *fakeElement {
	return &fakeElement{attrs: map[string]string{"id": id}}
}

func (e *fakeElement) Attribute(name string) (string, error) {
	return e.attrs[name], nil
}

func (e *fakeElement) Text() (string, error) {
	if e.text == "" && e.attrs == nil {
		return "", errors.New("detached")
	}
	return e.text, nil
}

func (e *fakeElement) Hover(ctx context.Context, timeout time.Duration) error {
	e.mu.Lock()
	e.hovered = true
	e.mu.Unlock()
	return e.hoverErr
}

func (e *fakeElement) Click(ctx context.Context, timeout time.Duration) error {
	e.mu.Lock()
	e.clicked = true
	e.mu.Unlock()
	if e.hangClick {
		<-ctx.Done()
		return ctx.Err()
	}
	return e.clickErr
}

func (e *fakeElement) touched() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hovered || e.clicked
}
