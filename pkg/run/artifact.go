package run

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/entrhq/routeshot/pkg/discovery"
	"github.com/entrhq/routeshot/pkg/explore"
)

// Run statuses
const (
	StatusSuccess        = "success"
	StatusFailed         = "failed"
	StatusPartialSuccess = "partial_success"
)

// Summary is the complete record of one run.
type Summary struct {
	RunID      string        `json:"run_id"`
	Status     string        `json:"status"`
	Error      string        `json:"error,omitempty"`
	ProjectDir string        `json:"project_dir"`
	BaseURL    string        `json:"base_url"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Duration   time.Duration `json:"duration"`

	Routes         []string               `json:"routes"`
	FilteredRoutes []string               `json:"filtered_routes,omitempty"`
	SkippedEntries []discovery.Skipped    `json:"skipped_entries,omitempty"`
	Outcomes       []explore.RouteOutcome `json:"outcomes"`
	Snapshots      []string               `json:"snapshots"`

	Grid      string `json:"grid,omitempty"`
	GridError string `json:"grid_error,omitempty"`
	PDF       string `json:"pdf,omitempty"`
	PDFError  string `json:"pdf_error,omitempty"`

	Metrics Metrics `json:"metrics"`
}

// Metrics are the headline counts of a run
type Metrics struct {
	RoutesDiscovered int `json:"routes_discovered"`
	RoutesExplored   int `json:"routes_explored"`
	RoutesFailed     int `json:"routes_failed"`
	Snapshots        int `json:"snapshots"`
	SkippedStages    int `json:"skipped_stages"`
}

// ArtifactWriter writes the run manifest and a readable summary.
type ArtifactWriter struct {
	outputDir string
}

// NewArtifactWriter creates a writer for outputDir
func NewArtifactWriter(outputDir string) *ArtifactWriter {
	return &ArtifactWriter{outputDir: outputDir}
}

// WriteAll writes manifest.json and summary.md
func (w *ArtifactWriter) WriteAll(s *Summary) error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := w.WriteManifest(s); err != nil {
		return err
	}
	return w.WriteSummaryMarkdown(s)
}

// WriteManifest writes the full summary as JSON
func (w *ArtifactWriter) WriteManifest(s *Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(filepath.Join(w.outputDir, "manifest.json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// WriteSummaryMarkdown writes a human-readable summary linking every snapshot
func (w *ArtifactWriter) WriteSummaryMarkdown(s *Summary) error {
	var md strings.Builder

	md.WriteString("# routeshot run\n\n")
	fmt.Fprintf(&md, "**Run:** `%s`\n\n", s.RunID)
	fmt.Fprintf(&md, "**Base URL:** %s\n\n", s.BaseURL)
	fmt.Fprintf(&md, "**Status:** %s\n\n", s.Status)
	fmt.Fprintf(&md, "**Started:** %s\n\n", s.StartTime.Format(time.RFC3339))
	fmt.Fprintf(&md, "**Duration:** %s\n\n", s.Duration.Round(time.Millisecond))

	if s.Error != "" {
		fmt.Fprintf(&md, "❌ **Error:** %s\n\n", s.Error)
	}

	if s.Grid != "" {
		fmt.Fprintf(&md, "![contact sheet](%s)\n\n", w.rel(s.Grid))
	}

	md.WriteString("## Routes\n\n")
	md.WriteString("| Route | Status | Elements | Snapshots | Skipped |\n")
	md.WriteString("|---|---|---|---|---|\n")
	for _, o := range s.Outcomes {
		fmt.Fprintf(&md, "| `%s` | %s | %d | %d | %s |\n",
			o.Route, o.Status, o.Elements, len(o.Snapshots), strings.Join(o.Skipped, ", "))
	}
	md.WriteString("\n")

	for _, o := range s.Outcomes {
		if len(o.Snapshots) == 0 {
			continue
		}
		fmt.Fprintf(&md, "### %s\n\n", o.Route)
		if o.Title != "" {
			fmt.Fprintf(&md, "_%s_\n\n", o.Title)
		}
		if o.Description != "" {
			fmt.Fprintf(&md, "> %s\n\n", o.Description)
		}
		for _, p := range o.Snapshots {
			fmt.Fprintf(&md, "- [%s](%s)\n", filepath.Base(p), w.rel(p))
		}
		for _, c := range []struct{ name, path string }{
			{"rendered HTML", o.DOM},
			{"cleaned HTML", o.CleanDOM},
			{"MHTML archive", o.Archive},
		} {
			if c.path != "" {
				fmt.Fprintf(&md, "- %s: [%s](%s)\n", c.name, filepath.Base(c.path), w.rel(c.path))
			}
		}
		if o.DOMTruncated {
			md.WriteString("- cleaned HTML was truncated\n")
		}
		md.WriteString("\n")
	}

	if len(s.SkippedEntries) > 0 {
		md.WriteString("## Skipped during discovery\n\n")
		for _, sk := range s.SkippedEntries {
			fmt.Fprintf(&md, "- `%s`: %s\n", sk.Path, sk.Reason)
		}
		md.WriteString("\n")
	}

	md.WriteString("## Metrics\n\n")
	fmt.Fprintf(&md, "- **Routes discovered:** %d\n", s.Metrics.RoutesDiscovered)
	fmt.Fprintf(&md, "- **Routes explored:** %d\n", s.Metrics.RoutesExplored)
	fmt.Fprintf(&md, "- **Routes failed:** %d\n", s.Metrics.RoutesFailed)
	fmt.Fprintf(&md, "- **Snapshots:** %d\n", s.Metrics.Snapshots)
	fmt.Fprintf(&md, "- **Skipped stages:** %d\n", s.Metrics.SkippedStages)

	if err := os.WriteFile(filepath.Join(w.outputDir, "summary.md"), []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write summary markdown: %w", err)
	}
	return nil
}

// rel makes path relative to the output folder when it lives inside it
func (w *ArtifactWriter) rel(path string) string {
	if r, err := filepath.Rel(w.outputDir, path); err == nil && !strings.HasPrefix(r, "..") {
		return filepath.ToSlash(r)
	}
	return path
}
