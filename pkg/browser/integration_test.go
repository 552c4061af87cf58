package browser

import (
	"context"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/routeshot/pkg/config"
	"github.com/entrhq/routeshot/pkg/explore"
	"github.com/entrhq/routeshot/pkg/snapshot"
)

const homePage = `<!doctype html>
<html>
<head>
  <title>Home</title>
  <meta name="description" content="Test landing page">
  <style>#panel { padding: 20px; background: #eee; }</style>
</head>
<body>
  <h1>Welcome</h1>
  <button id="toggle" onclick="document.getElementById('panel').hidden = false">Open panel</button>
  <div id="panel" hidden>Panel content</div>
  <a id="next" href="/next">Next page</a>
</body>
</html>`

const nextPage = `<!doctype html><html><head><title>Next</title></head><body><p>Arrived</p></body></html>`

func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/next", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, nextPage)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, homePage)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func launchManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(config.DefaultConfig().Browser, nil)
	require.NoError(t, m.Initialize())
	t.Cleanup(func() { _ = m.Shutdown() })
	require.NoError(t, m.Launch())
	return m
}

// trackingSession counts the pages opened and closed through a Manager
type trackingSession struct {
	m *Manager

	mu     sync.Mutex
	opened int
	closed int
}

func (s *trackingSession) NewPage(ctx context.Context) (explore.Page, error) {
	p, err := s.m.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.opened++
	s.mu.Unlock()
	return &trackedPage{Page: p, s: s}, nil
}

type trackedPage struct {
	explore.Page
	s *trackingSession
}

func (p *trackedPage) Close() error {
	p.s.mu.Lock()
	p.s.closed++
	p.s.mu.Unlock()
	return p.Page.Close()
}

// stage returns the label part of a snapshot file name
func stage(path string) string {
	parts := strings.SplitN(filepath.Base(path), "__", 3)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSuffix(parts[1], ".png")
}

func TestExploreWithChromium(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	srv := newTestSite(t)
	session := &trackingSession{m: launchManager(t)}

	cfg := config.DefaultExploreConfig()
	cfg.CaptureDOM = true
	cfg.CaptureMHTML = true
	cfg.SettleDelay = 100 * time.Millisecond
	dir := filepath.Join(t.TempDir(), config.ScreenshotFolder)

	orch, err := explore.New(cfg, srv.URL, session, snapshot.NewCapturer(dir), nil)
	require.NoError(t, err)

	result := orch.Run(context.Background(), []string{"/", "/next"})
	require.Len(t, result.Routes, 2)

	home := result.Routes[0]
	require.Equal(t, explore.StatusExplored, home.Status, home.Error)
	assert.Equal(t, "Home", home.Title)
	assert.Equal(t, "Test landing page", home.Description)
	assert.Equal(t, 2, home.Elements)
	assert.Empty(t, home.Skipped)

	stages := make([]string, len(home.Snapshots))
	for i, p := range home.Snapshots {
		stages[i] = stage(p)
	}
	assert.Equal(t, []string{"initial", "hover_0", "click_0", "hover_1", "click_1"}, stages)

	for _, p := range result.Snapshots {
		f, err := os.Open(p)
		require.NoError(t, err)
		img, err := png.DecodeConfig(f)
		f.Close()
		require.NoError(t, err, p)
		assert.Positive(t, img.Width)
	}

	raw, err := os.ReadFile(home.DOM)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `id="toggle"`)

	cleaned, err := os.ReadFile(home.CleanDOM)
	require.NoError(t, err)
	assert.NotContains(t, string(cleaned), "padding: 20px")

	archive, err := os.ReadFile(home.Archive)
	require.NoError(t, err)
	assert.Contains(t, string(archive), "MIME-Version")

	next := result.Routes[1]
	require.Equal(t, explore.StatusExplored, next.Status, next.Error)
	assert.Zero(t, next.Elements)
	assert.Len(t, next.Snapshots, 1)

	assert.Equal(t, 2, session.opened)
	assert.Equal(t, session.opened, session.closed)
}

func TestWaitForNavigationWithChromium(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	srv := newTestSite(t)
	m := launchManager(t)

	p, err := m.NewPage(context.Background())
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Goto(context.Background(), srv.URL+"/", 10*time.Second))

	t.Run("times out when nothing navigates", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		assert.Error(t, p.WaitForNavigation(ctx))
	})

	t.Run("returns when a click navigates", func(t *testing.T) {
		links, err := p.Elements(context.Background(), "a#next")
		require.NoError(t, err)
		require.Len(t, links, 1)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err = explore.FirstOf(ctx, 0,
			func(ctx context.Context) error {
				if err := links[0].Click(ctx, 5*time.Second); err != nil {
					return err
				}
				<-ctx.Done()
				return ctx.Err()
			},
			p.WaitForNavigation,
		)
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			title, err := p.Title()
			return err == nil && title == "Next"
		}, 5*time.Second, 50*time.Millisecond)
	})
}
