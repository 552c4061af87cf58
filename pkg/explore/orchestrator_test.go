package explore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/routeshot/pkg/config"
	"github.com/entrhq/routeshot/pkg/snapshot"
)

const testBase = "http://localhost:3000"

func testConfig() config.ExploreConfig {
	cfg := config.DefaultExploreConfig()
	cfg.ClickTimeout = 50 * time.Millisecond
	cfg.HoverTimeout = 50 * time.Millisecond
	cfg.SettleDelay = 0
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg config.ExploreConfig, session Session) (*Orchestrator, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), config.ScreenshotFolder)
	o, err := New(cfg, testBase, session, snapshot.NewCapturer(dir), nil)
	require.NoError(t, err)
	o.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return o, dir
}

var stampPrefix = regexp.MustCompile(`^\d+__`)

// stages strips the directory and timestamp from snapshot paths
func stages(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = stampPrefix.ReplaceAllString(filepath.Base(p), "")
	}
	return out
}

func TestRunSnapshotOrder(t *testing.T) {
	session := newFakeSession(map[string]pageSpec{
		testBase + "/":      {elements: []*fakeElement{button("menu"), button("save")}},
		testBase + "/about": {},
	})
	o, dir := newTestOrchestrator(t, testConfig(), session)

	result := o.Run(context.Background(), []string{"/", "/about"})

	assert.Equal(t, []string{
		"initial___.png",
		"hover_0__menu.png",
		"click_0__menu.png",
		"hover_1__save.png",
		"click_1__save.png",
		"initial___about.png",
	}, stages(result.Snapshots))

	for _, p := range result.Snapshots {
		assert.Equal(t, dir, filepath.Dir(p))
		assert.FileExists(t, p)
	}

	require.Len(t, result.Routes, 2)
	assert.Equal(t, StatusExplored, result.Routes[0].Status)
	assert.Equal(t, 2, result.Routes[0].Elements)
	assert.Equal(t, StatusExplored, result.Routes[1].Status)
	assert.Zero(t, session.openPages())
}

func TestRunNavigationFailureContinues(t *testing.T) {
	session := newFakeSession(map[string]pageSpec{
		testBase + "/broken": {gotoErr: errors.New("timeout 30000ms exceeded")},
		testBase + "/ok":     {elements: []*fakeElement{button("go")}},
	})
	o, _ := newTestOrchestrator(t, testConfig(), session)

	result := o.Run(context.Background(), []string{"/broken", "/ok"})

	broken := result.Routes[0]
	assert.Equal(t, StatusNavFailed, broken.Status)
	assert.Empty(t, broken.Snapshots)
	assert.Contains(t, broken.Error, "timeout")
	assert.True(t, broken.Failed())

	assert.Equal(t, StatusExplored, result.Routes[1].Status)
	assert.Equal(t, []string{"initial___ok.png", "hover_0__go.png", "click_0__go.png"}, stages(result.Snapshots))
	assert.Zero(t, session.openPages())
}

func TestRunElementCap(t *testing.T) {
	var elements []*fakeElement
	for i := 0; i < 10; i++ {
		elements = append(elements, button("b"))
	}
	session := newFakeSession(map[string]pageSpec{
		testBase + "/": {elements: elements},
	})
	o, _ := newTestOrchestrator(t, testConfig(), session)

	result := o.Run(context.Background(), []string{"/"})

	assert.Len(t, result.Snapshots, 1+2*6)
	assert.Equal(t, 6, result.Routes[0].Elements)
	for i, el := range elements {
		assert.Equal(t, i < 6, el.touched(), "element %d", i)
	}
}

func TestRunDuplicateLabelsGetDistinctFiles(t *testing.T) {
	session := newFakeSession(map[string]pageSpec{
		testBase + "/": {elements: []*fakeElement{button("dup"), button("dup"), button("dup")}},
	})
	o, _ := newTestOrchestrator(t, testConfig(), session)

	result := o.Run(context.Background(), []string{"/"})

	seen := map[string]bool{}
	for _, p := range result.Snapshots {
		assert.False(t, seen[p], "duplicate snapshot %s", p)
		seen[p] = true
	}
	assert.Len(t, seen, 7)
}

func TestRunHoverFailureSkipsOnlyHover(t *testing.T) {
	flaky := button("flaky")
	flaky.hoverErr = errors.New("element is not visible")
	session := newFakeSession(map[string]pageSpec{
		testBase + "/": {elements: []*fakeElement{flaky, button("ok")}},
	})
	o, _ := newTestOrchestrator(t, testConfig(), session)

	result := o.Run(context.Background(), []string{"/"})

	assert.Equal(t, []string{
		"initial___.png",
		"click_0__flaky.png",
		"hover_1__ok.png",
		"click_1__ok.png",
	}, stages(result.Snapshots))
	assert.Equal(t, []string{"hover_0"}, result.Routes[0].Skipped)
	assert.Equal(t, StatusExplored, result.Routes[0].Status)
}

func TestRunClickFailureSkipsClickCapture(t *testing.T) {
	broken := button("broken")
	broken.clickErr = errors.New("element detached")
	session := newFakeSession(map[string]pageSpec{
		testBase + "/": {elements: []*fakeElement{broken, button("ok")}},
	})
	o, _ := newTestOrchestrator(t, testConfig(), session)

	result := o.Run(context.Background(), []string{"/"})

	assert.Equal(t, []string{
		"initial___.png",
		"hover_0__broken.png",
		"hover_1__ok.png",
		"click_1__ok.png",
	}, stages(result.Snapshots))
	assert.Equal(t, []string{"click_0"}, result.Routes[0].Skipped)
}

func TestRunClickTriggeringNavigation(t *testing.T) {
	link := button("link")
	link.hangClick = true
	session := newFakeSession(map[string]pageSpec{
		testBase + "/": {elements: []*fakeElement{link}, navigates: true},
	})
	o, _ := newTestOrchestrator(t, testConfig(), session)

	result := o.Run(context.Background(), []string{"/"})

	assert.Equal(t, []string{"initial___.png", "hover_0__link.png", "click_0__link.png"}, stages(result.Snapshots))
}

func TestRunClickWithoutNavigationTimesOutQuietly(t *testing.T) {
	stuck := button("stuck")
	stuck.hangClick = true
	session := newFakeSession(map[string]pageSpec{
		testBase + "/": {elements: []*fakeElement{stuck}},
	})
	o, _ := newTestOrchestrator(t, testConfig(), session)

	result := o.Run(context.Background(), []string{"/"})

	assert.Equal(t, []string{"initial___.png", "hover_0__stuck.png", "click_0__stuck.png"}, stages(result.Snapshots))
	assert.Empty(t, result.Routes[0].Skipped)
}

func TestRunInitialCaptureFailureAbandonsRoute(t *testing.T) {
	el := button("never")
	session := newFakeSession(map[string]pageSpec{
		testBase + "/":     {screenshotErr: errors.New("target crashed"), elements: []*fakeElement{el}},
		testBase + "/next": {},
	})
	o, _ := newTestOrchestrator(t, testConfig(), session)

	result := o.Run(context.Background(), []string{"/", "/next"})

	assert.Equal(t, StatusNoInitial, result.Routes[0].Status)
	assert.False(t, el.touched())
	assert.Equal(t, []string{"initial___next.png"}, stages(result.Snapshots))
	assert.Zero(t, session.openPages())
}

func TestRunElementQueryFailure(t *testing.T) {
	session := newFakeSession(map[string]pageSpec{
		testBase + "/": {elementsErr: errors.New("execution context was destroyed")},
	})
	o, _ := newTestOrchestrator(t, testConfig(), session)

	result := o.Run(context.Background(), []string{"/"})

	assert.Equal(t, StatusExplored, result.Routes[0].Status)
	assert.Equal(t, []string{"elements"}, result.Routes[0].Skipped)
	assert.Len(t, result.Snapshots, 1)
}

func TestRunNewPageFailure(t *testing.T) {
	session := newFakeSession(nil)
	session.newErr = errors.New("browser has been closed")
	o, _ := newTestOrchestrator(t, testConfig(), session)

	result := o.Run(context.Background(), []string{"/", "/a"})

	require.Len(t, result.Routes, 2)
	for _, r := range result.Routes {
		assert.Equal(t, StatusNavFailed, r.Status)
	}
	assert.Empty(t, result.Snapshots)
}

func TestRunMaxRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRoutes = 2
	o, _ := newTestOrchestrator(t, cfg, newFakeSession(map[string]pageSpec{}))

	result := o.Run(context.Background(), []string{"/a", "/b", "/c"})

	require.Len(t, result.Routes, 2)
	assert.Equal(t, "/b", result.Routes[1].Route)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	session := newFakeSession(map[string]pageSpec{})
	o, _ := newTestOrchestrator(t, testConfig(), session)

	result := o.Run(ctx, []string{"/a", "/b"})

	require.Len(t, result.Routes, 2)
	for _, r := range result.Routes {
		assert.Equal(t, StatusCancelled, r.Status)
	}
	assert.Empty(t, session.pages)
}

func TestRunCancelledDuringNavigation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session := newFakeSession(map[string]pageSpec{
		testBase + "/a": {onGoto: cancel},
	})
	o, _ := newTestOrchestrator(t, testConfig(), session)

	result := o.Run(ctx, []string{"/a", "/b"})

	require.Len(t, result.Routes, 2)
	assert.Equal(t, StatusCancelled, result.Routes[0].Status)
	assert.Equal(t, StatusCancelled, result.Routes[1].Status)
	assert.Empty(t, result.Snapshots)
	assert.Zero(t, session.openPages())
}

func TestRunCapturesDOM(t *testing.T) {
	cfg := testConfig()
	cfg.CaptureDOM = true
	raw := `<html><head><title>Home page</title><meta name="description" content="Landing">` +
		`<script>track()</script></head><body><div id="hero">hi</div></body></html>`
	session := newFakeSession(map[string]pageSpec{
		testBase + "/": {html: raw},
	})
	o, _ := newTestOrchestrator(t, cfg, session)

	result := o.Run(context.Background(), []string{"/"})

	route := result.Routes[0]
	assert.Equal(t, StatusExplored, route.Status)
	// no title from the page itself, so it comes from the DOM
	assert.Equal(t, "Home page", route.Title)
	assert.Equal(t, "Landing", route.Description)
	assert.False(t, route.DOMTruncated)

	require.NotEmpty(t, route.DOM)
	assert.Equal(t, ".html", filepath.Ext(route.DOM))
	data, err := os.ReadFile(route.DOM)
	require.NoError(t, err)
	assert.Equal(t, raw, string(data))

	require.NotEmpty(t, route.CleanDOM)
	assert.True(t, strings.HasSuffix(route.CleanDOM, ".clean.html"))
	cleaned, err := os.ReadFile(route.CleanDOM)
	require.NoError(t, err)
	assert.Contains(t, string(cleaned), "hi")
	assert.NotContains(t, string(cleaned), "track()")

	// page captures are not snapshots
	assert.Len(t, result.Snapshots, 1)
	assert.Empty(t, route.Archive)
}

func TestRunPageTitleWinsOverDOMTitle(t *testing.T) {
	cfg := testConfig()
	cfg.CaptureDOM = true
	session := newFakeSession(map[string]pageSpec{
		testBase + "/": {html: "<title>Stale</title>", title: "Live"},
	})
	o, _ := newTestOrchestrator(t, cfg, session)

	result := o.Run(context.Background(), []string{"/"})

	assert.Equal(t, "Live", result.Routes[0].Title)
}

func TestRunDOMFailureSkipsStage(t *testing.T) {
	cfg := testConfig()
	cfg.CaptureDOM = true
	session := newFakeSession(map[string]pageSpec{
		testBase + "/": {contentErr: errors.New("target closed")},
	})
	o, _ := newTestOrchestrator(t, cfg, session)

	result := o.Run(context.Background(), []string{"/"})

	route := result.Routes[0]
	assert.Equal(t, StatusExplored, route.Status)
	assert.Empty(t, route.DOM)
	assert.Contains(t, route.Skipped, "dom")
}

func TestRunCapturesArchive(t *testing.T) {
	cfg := testConfig()
	cfg.CaptureMHTML = true
	mhtml := "From: <Saved by Blink>\r\nSubject: Home\r\n"
	session := newFakeSession(map[string]pageSpec{
		testBase + "/":      {mhtml: mhtml},
		testBase + "/about": {archiveErr: errors.New("CDP not supported")},
	})
	o, _ := newTestOrchestrator(t, cfg, session)

	result := o.Run(context.Background(), []string{"/", "/about"})

	home := result.Routes[0]
	require.NotEmpty(t, home.Archive)
	assert.Equal(t, ".mhtml", filepath.Ext(home.Archive))
	data, err := os.ReadFile(home.Archive)
	require.NoError(t, err)
	assert.Equal(t, mhtml, string(data))
	assert.Empty(t, home.DOM)

	about := result.Routes[1]
	assert.Equal(t, StatusExplored, about.Status)
	assert.Empty(t, about.Archive)
	assert.Contains(t, about.Skipped, "mhtml")
	assert.Len(t, result.Snapshots, 2)
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base  string
		route string
		want  string
	}{
		{base: "http://localhost:3000", route: "/", want: "http://localhost:3000/"},
		{base: "http://localhost:3000", route: "/users/42", want: "http://localhost:3000/users/42"},
		{base: "http://localhost:3000/", route: "/about", want: "http://localhost:3000/about"},
		{base: "https://example.com/app/", route: "/settings", want: "https://example.com/settings"},
	}

	for _, tt := range tests {
		o, err := New(testConfig(), tt.base, newFakeSession(nil), snapshot.NewCapturer(t.TempDir()), nil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, o.ResolveURL(tt.route), tt.route)
	}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New(testConfig(), "http://[::1", newFakeSession(nil), snapshot.NewCapturer(t.TempDir()), nil)
	assert.Error(t, err)
}
