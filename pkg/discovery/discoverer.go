// Package discovery infers the navigable routes of a front-end project from its
// source tree, without running or parsing it.
//
// Two heuristics are unioned:
//
//   - File conventions: source files under well-known routing directories
//     (pages/, app/, src/pages/, src/routes/) map to routes by their path.
//     pages/about.tsx is /about, pages/index.tsx is /, app/blog/page.tsx is /blog.
//   - Routing tables: files named like Angular routing modules under src/app are
//     scanned for `path: '...'` literals.
//
// Discovery is best effort. Missing directories contribute nothing and unreadable
// ones are reported in Result.Skipped; neither is an error.
package discovery

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/entrhq/routeshot/pkg/config"
	"github.com/entrhq/routeshot/pkg/logging"
)

// Result is the outcome of one discovery pass.
type Result struct {
	// Routes in insertion order, each exactly once
	Routes []string `json:"routes"`

	// Nodes that could not be read
	Skipped []Skipped `json:"skipped,omitempty"`

	// Routes dropped by the include/exclude filters
	Filtered []string `json:"filtered,omitempty"`
}

// Skipped describes a node discovery could not read.
type Skipped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Discoverer derives routes from a project tree.
type Discoverer struct {
	cfg config.DiscoveryConfig
	log logging.Leveled

	extensions   map[string]bool
	reserved     map[string]bool
	indexNames   map[string]bool
	ignoreDirs   map[string]bool
	routingFiles *PatternMatcher
	routeFilter  *PatternMatcher
}

// New creates a Discoverer for the given conventions
func New(cfg config.DiscoveryConfig, log logging.Leveled) (*Discoverer, error) {
	if log == nil {
		log = logging.Nop()
	}

	routingFiles, err := NewPatternMatcher(lowerAll(cfg.RoutingFilePatterns), nil)
	if err != nil {
		return nil, err
	}

	routeFilter, err := NewPatternMatcher(cfg.Include, cfg.Exclude, '/')
	if err != nil {
		return nil, err
	}

	return &Discoverer{
		cfg:          cfg,
		log:          log,
		extensions:   toSet(lowerAll(cfg.Extensions)),
		reserved:     toSet(cfg.ReservedNames),
		indexNames:   toSet(cfg.IndexNames),
		ignoreDirs:   toSet(cfg.IgnoreDirs),
		routingFiles: routingFiles,
		routeFilter:  routeFilter,
	}, nil
}

// Discover scans the project rooted at root
func (d *Discoverer) Discover(root string) *Result {
	return d.DiscoverFS(os.DirFS(root))
}

// DiscoverFS scans a project exposed as a file system
func (d *Discoverer) DiscoverFS(fsys fs.FS) *Result {
	result := &Result{}
	routes := newOrderedSet()

	for _, dir := range d.cfg.RouteDirs {
		d.scanConventions(fsys, cleanDir(dir), routes, result)
	}

	if d.cfg.RoutingTableDir != "" {
		d.scanRoutingTables(fsys, cleanDir(d.cfg.RoutingTableDir), routes, result)
	}

	for _, route := range routes.items {
		if !d.routeFilter.IsAllowed(route) {
			d.log.Debugf("route %s filtered out", route)
			result.Filtered = append(result.Filtered, route)
			continue
		}
		result.Routes = append(result.Routes, route)
	}

	d.log.Infof("discovered %d routes (%d filtered, %d skipped nodes)",
		len(result.Routes), len(result.Filtered), len(result.Skipped))
	return result
}

// scanConventions applies the file-convention heuristic to one candidate directory
func (d *Discoverer) scanConventions(fsys fs.FS, dir string, routes *orderedSet, result *Result) {
	if !isDir(fsys, dir) {
		d.log.Debugf("route directory %s not present", dir)
		return
	}

	for entry := range Walk(fsys, dir, d.pruned) {
		if entry.Skipped() {
			d.skip(result, entry)
			continue
		}

		rel := strings.TrimPrefix(entry.Path, dir+"/")
		route, ok := d.conventionRoute(rel)
		if !ok {
			continue
		}
		if routes.add(route) {
			d.log.Debugf("route %s from %s", route, entry.Path)
		}
	}
}

// conventionRoute maps a file path relative to a routing directory to a route
func (d *Discoverer) conventionRoute(rel string) (string, bool) {
	base := path.Base(rel)
	ext := path.Ext(base)
	if ext == "" || !d.extensions[strings.ToLower(ext)] {
		return "", false
	}

	name := strings.TrimSuffix(base, ext)
	if strings.HasPrefix(name, "_") || d.reserved[name] {
		return "", false
	}

	route := path.Dir(rel)
	if route == "." {
		route = ""
	}
	if !d.indexNames[name] {
		route = path.Join(route, name)
	}

	return NormalizeRoute(route), true
}

// scanRoutingTables applies the routing-table heuristic below dir
func (d *Discoverer) scanRoutingTables(fsys fs.FS, dir string, routes *orderedSet, result *Result) {
	if !isDir(fsys, dir) {
		d.log.Debugf("routing table directory %s not present", dir)
		return
	}

	for entry := range Walk(fsys, dir, d.pruned) {
		if entry.Skipped() {
			d.skip(result, entry)
			continue
		}
		if !d.routingFiles.Matches(strings.ToLower(path.Base(entry.Path))) {
			continue
		}

		content, err := fs.ReadFile(fsys, entry.Path)
		if err != nil {
			d.skip(result, Entry{Path: entry.Path, Err: err})
			continue
		}

		for _, route := range ExtractPathLiterals(string(content)) {
			if routes.add(route) {
				d.log.Debugf("route %s from routing table %s", route, entry.Path)
			}
		}
	}
}

func (d *Discoverer) pruned(name string) bool {
	return d.ignoreDirs[name]
}

func (d *Discoverer) skip(result *Result, entry Entry) {
	d.log.Warnf("skipping %s: %v", entry.Path, entry.Err)
	result.Skipped = append(result.Skipped, Skipped{
		Path:   entry.Path,
		Reason: entry.Err.Error(),
	})
}

// NormalizeRoute converts a route to forward slashes with a leading slash
func NormalizeRoute(route string) string {
	route = strings.ReplaceAll(route, "\\", "/")
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return route
}

func isDir(fsys fs.FS, dir string) bool {
	info, err := fs.Stat(fsys, dir)
	return err == nil && info.IsDir()
}

// cleanDir turns a configured directory into an fs.FS path
func cleanDir(dir string) string {
	dir = path.Clean(filepath.ToSlash(dir))
	return strings.TrimPrefix(dir, "/")
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

func lowerAll(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = strings.ToLower(item)
	}
	return out
}

// orderedSet keeps the first insertion order of unique strings
type orderedSet struct {
	seen  map[string]bool
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool)}
}

func (s *orderedSet) add(item string) bool {
	if s.seen[item] {
		return false
	}
	s.seen[item] = true
	s.items = append(s.items, item)
	return true
}
