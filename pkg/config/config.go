// Package config holds the run configuration for routeshot.
//
// A run is described by one YAML document. DefaultConfig returns the values the
// tool ships with; LoadFile overlays a file on top of them and Validate checks the
// result and fills in anything left empty. Each component receives only its own
// section (DiscoveryConfig, ExploreConfig, GridConfig, ...) at construction time.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ScreenshotFolder is the folder created under OutputDir for all run artifacts.
const ScreenshotFolder = ".screenshots"

// Config represents the configuration of a single exploration run
type Config struct {
	// Project source tree used for route discovery
	ProjectDir string `yaml:"project_dir" json:"project_dir"`

	// Base URL of the running instance of the project
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Directory under which the screenshots folder is created
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	Discovery DiscoveryConfig `yaml:"discovery" json:"discovery"`
	Explore   ExploreConfig   `yaml:"explore" json:"explore"`
	Grid      GridConfig      `yaml:"grid" json:"grid"`
	Browser   BrowserConfig   `yaml:"browser" json:"browser"`
	Export    ExportConfig    `yaml:"export" json:"export"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`

	// ConfigFilePath is where the config was loaded from, if anywhere
	ConfigFilePath string `yaml:"-" json:"-"`
}

// DiscoveryConfig controls route inference from the project tree
type DiscoveryConfig struct {
	// Directories scanned with the file-convention heuristic, relative to the project
	RouteDirs []string `yaml:"route_dirs" json:"route_dirs"`

	// Recognized front-end source extensions, with the leading dot
	Extensions []string `yaml:"extensions" json:"extensions"`

	// Basenames (without extension) that never produce a route
	ReservedNames []string `yaml:"reserved_names" json:"reserved_names"`

	// Basenames that map to their containing directory
	IndexNames []string `yaml:"index_names" json:"index_names"`

	// Subtree scanned for routing-table modules
	RoutingTableDir string `yaml:"routing_table_dir" json:"routing_table_dir"`

	// Glob patterns matched against lowercased routing-module basenames
	RoutingFilePatterns []string `yaml:"routing_file_patterns" json:"routing_file_patterns"`

	// Directory names never descended into
	IgnoreDirs []string `yaml:"ignore_dirs" json:"ignore_dirs"`

	// Route filters applied after discovery (glob patterns)
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// ExploreConfig controls the per-route browser exploration
type ExploreConfig struct {
	// CSS selectors of interactive elements, joined into one query
	Selectors []string `yaml:"selectors" json:"selectors"`

	// Maximum number of elements explored per route
	MaxElements int `yaml:"max_elements" json:"max_elements"`

	// Maximum number of routes visited per run (0 = unlimited)
	MaxRoutes int `yaml:"max_routes" json:"max_routes"`

	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	HoverTimeout      time.Duration `yaml:"hover_timeout" json:"hover_timeout"`
	ClickTimeout      time.Duration `yaml:"click_timeout" json:"click_timeout"`
	SettleDelay       time.Duration `yaml:"settle_delay" json:"settle_delay"`

	// Store the rendered HTML and a cleaned copy next to each initial screenshot
	CaptureDOM bool `yaml:"capture_dom" json:"capture_dom"`

	// Store an MHTML archive of each route's initial state (Chromium only)
	CaptureMHTML bool `yaml:"capture_mhtml" json:"capture_mhtml"`
}

// GridConfig controls contact-sheet composition
type GridConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Columns     int    `yaml:"columns" json:"columns"`
	Padding     int    `yaml:"padding" json:"padding"`
	TargetWidth int    `yaml:"target_width" json:"target_width"`
	Background  string `yaml:"background" json:"background"` // #rrggbb

	// Output file name inside the screenshots folder, or an absolute path
	Output string `yaml:"output" json:"output"`
}

// BrowserConfig controls the headless browser session
type BrowserConfig struct {
	Headless       bool `yaml:"headless" json:"headless"`
	ViewportWidth  int  `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int  `yaml:"viewport_height" json:"viewport_height"`

	// Install the Playwright driver and browsers before launching
	Install bool `yaml:"install" json:"install"`
}

// ExportConfig controls extra artifacts written at the end of a run
type ExportConfig struct {
	// Write manifest.json and summary.md
	Artifacts bool `yaml:"artifacts" json:"artifacts"`

	// Write every snapshot into one PDF review packet
	PDF bool `yaml:"pdf" json:"pdf"`

	// PDF file name inside the screenshots folder
	PDFOutput string `yaml:"pdf_output" json:"pdf_output"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls console output: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`

	// File enables the per-run debug log under ~/.routeshot/logs
	File bool `yaml:"file" json:"file"`
}

// DefaultConfig returns the configuration the tool ships with
func DefaultConfig() *Config {
	return &Config{
		Discovery: DefaultDiscoveryConfig(),
		Explore:   DefaultExploreConfig(),
		Grid:      DefaultGridConfig(),
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  1280,
			ViewportHeight: 720,
			Install:        true,
		},
		Export: ExportConfig{
			Artifacts: true,
			PDFOutput: "snapshots.pdf",
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
			File:      true,
		},
	}
}

// DefaultDiscoveryConfig returns the conventions of common front-end frameworks
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		RouteDirs:           []string{"pages", "app", "src/pages", "src/routes"},
		Extensions:          []string{".js", ".jsx", ".ts", ".tsx", ".astro", ".svelte", ".html"},
		ReservedNames:       []string{"layout", "error", "not-found", "_document", "_app"},
		IndexNames:          []string{"index", "page"},
		RoutingTableDir:     "src/app",
		RoutingFilePatterns: []string{"*routing.module.ts", "*.routes.ts"},
		IgnoreDirs:          []string{"node_modules", ".git", ".next", "dist", "build"},
	}
}

// DefaultExploreConfig returns the bounded exploration budget
func DefaultExploreConfig() ExploreConfig {
	return ExploreConfig{
		Selectors: []string{
			"button",
			"a[href]",
			"[role='button']",
			"[aria-haspopup]",
			".modal-trigger",
		},
		MaxElements:       6,
		NavigationTimeout: 30 * time.Second,
		HoverTimeout:      2 * time.Second,
		ClickTimeout:      2 * time.Second,
		SettleDelay:       600 * time.Millisecond,
	}
}

// DefaultGridConfig returns the contact-sheet layout
func DefaultGridConfig() GridConfig {
	return GridConfig{
		Enabled:     true,
		Columns:     3,
		Padding:     20,
		TargetWidth: 400,
		Background:  "#ffffff",
		Output:      "grid.png",
	}
}

// LoadFile loads configuration from a YAML file on top of the defaults
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ConfigFilePath = path
	return cfg, nil
}

// Validate validates the configuration and fills in defaults for empty values
func (c *Config) Validate() error {
	if c.ProjectDir == "" {
		return fmt.Errorf("project directory is required")
	}
	info, err := os.Stat(c.ProjectDir)
	if err != nil {
		return fmt.Errorf("project directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("project directory %s is not a directory", c.ProjectDir)
	}

	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL %q: scheme and host are required", c.BaseURL)
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}

	if c.Explore.MaxElements < 0 {
		return fmt.Errorf("max_elements cannot be negative")
	}
	if c.Explore.MaxRoutes < 0 {
		return fmt.Errorf("max_routes cannot be negative")
	}
	if c.Explore.NavigationTimeout < 0 || c.Explore.HoverTimeout < 0 ||
		c.Explore.ClickTimeout < 0 || c.Explore.SettleDelay < 0 {
		return fmt.Errorf("explore timeouts cannot be negative")
	}

	if err := c.Grid.validate(); err != nil {
		return err
	}

	c.fillDefaults()

	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

func (g *GridConfig) validate() error {
	if g.Columns < 0 {
		return fmt.Errorf("grid columns cannot be negative")
	}
	if g.Padding < 0 {
		return fmt.Errorf("grid padding cannot be negative")
	}
	if g.TargetWidth < 0 {
		return fmt.Errorf("grid target_width cannot be negative")
	}
	if g.Background != "" {
		if _, err := ParseHexColor(g.Background); err != nil {
			return fmt.Errorf("grid background: %w", err)
		}
	}
	return nil
}

// fillDefaults replaces zero values that would make a component unusable
func (c *Config) fillDefaults() {
	d := DefaultConfig()

	if len(c.Discovery.RouteDirs) == 0 {
		c.Discovery.RouteDirs = d.Discovery.RouteDirs
	}
	if len(c.Discovery.Extensions) == 0 {
		c.Discovery.Extensions = d.Discovery.Extensions
	}
	if len(c.Discovery.IndexNames) == 0 {
		c.Discovery.IndexNames = d.Discovery.IndexNames
	}
	if len(c.Discovery.RoutingFilePatterns) == 0 {
		c.Discovery.RoutingFilePatterns = d.Discovery.RoutingFilePatterns
	}

	if len(c.Explore.Selectors) == 0 {
		c.Explore.Selectors = d.Explore.Selectors
	}
	if c.Explore.NavigationTimeout == 0 {
		c.Explore.NavigationTimeout = d.Explore.NavigationTimeout
	}
	if c.Explore.HoverTimeout == 0 {
		c.Explore.HoverTimeout = d.Explore.HoverTimeout
	}
	if c.Explore.ClickTimeout == 0 {
		c.Explore.ClickTimeout = d.Explore.ClickTimeout
	}

	if c.Grid.Columns == 0 {
		c.Grid.Columns = d.Grid.Columns
	}
	if c.Grid.TargetWidth == 0 {
		c.Grid.TargetWidth = d.Grid.TargetWidth
	}
	if c.Grid.Background == "" {
		c.Grid.Background = d.Grid.Background
	}
	if c.Grid.Output == "" {
		c.Grid.Output = d.Grid.Output
	}

	if c.Browser.ViewportWidth == 0 {
		c.Browser.ViewportWidth = d.Browser.ViewportWidth
	}
	if c.Browser.ViewportHeight == 0 {
		c.Browser.ViewportHeight = d.Browser.ViewportHeight
	}

	if c.Export.PDFOutput == "" {
		c.Export.PDFOutput = d.Export.PDFOutput
	}

	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = d.Logging.Verbosity
	}
}

// ScreenshotDir returns the folder that receives screenshots and artifacts
func (c *Config) ScreenshotDir() string {
	return filepath.Join(c.OutputDir, ScreenshotFolder)
}

// GridPath returns where the contact sheet is written
func (c *Config) GridPath() string {
	if filepath.IsAbs(c.Grid.Output) {
		return c.Grid.Output
	}
	return filepath.Join(c.ScreenshotDir(), c.Grid.Output)
}

// PDFPath returns where the PDF review packet is written
func (c *Config) PDFPath() string {
	if filepath.IsAbs(c.Export.PDFOutput) {
		return c.Export.PDFOutput
	}
	return filepath.Join(c.ScreenshotDir(), c.Export.PDFOutput)
}
