// Package main provides the routeshot command: it infers the routes of a web
// project, visits each in a headless browser, pokes at interactive elements
// and leaves a folder of screenshots plus a contact sheet for review.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/entrhq/routeshot/pkg/browser"
	"github.com/entrhq/routeshot/pkg/config"
	"github.com/entrhq/routeshot/pkg/discovery"
	"github.com/entrhq/routeshot/pkg/logging"
	"github.com/entrhq/routeshot/pkg/prompt"
	"github.com/entrhq/routeshot/pkg/run"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile   string
	ProjectDir   string
	BaseURL      string
	OutputDir    string
	Columns      int
	Padding      int
	Width        int
	MaxElements  int
	MaxRoutes    int
	Headful      bool
	CaptureDOM   bool
	CaptureMHTML bool
	PDF          bool
	NoGrid       bool
	Verbosity    string
	NoPrompt     bool
	DryRun       bool
	ShowVersion  bool

	// set records the flags given on the command line
	set map[string]bool
}

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("routeshot v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nStopping after the current step...")
		cancel()
	}()

	if err := execute(ctx, cli); err != nil {
		cancel()
		log.Printf("routeshot: %v", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	cli := &CLIConfig{set: map[string]bool{}}

	flag.StringVar(&cli.ConfigFile, "config", "", "Path to configuration file (YAML)")
	flag.StringVar(&cli.ProjectDir, "project", "", "Project source directory")
	flag.StringVar(&cli.BaseURL, "base-url", "", "Base URL of the running project, e.g. http://localhost:3000")
	flag.StringVar(&cli.OutputDir, "output", "", "Directory that receives the .screenshots folder")
	flag.IntVar(&cli.Columns, "columns", 3, "Contact sheet columns")
	flag.IntVar(&cli.Padding, "padding", 20, "Contact sheet padding in pixels")
	flag.IntVar(&cli.Width, "width", 400, "Contact sheet cell width in pixels")
	flag.IntVar(&cli.MaxElements, "max-elements", 6, "Interactive elements explored per route")
	flag.IntVar(&cli.MaxRoutes, "max-routes", 0, "Routes visited per run (0 = all)")
	flag.BoolVar(&cli.Headful, "headful", false, "Show the browser window")
	flag.BoolVar(&cli.CaptureDOM, "capture-dom", false, "Save the rendered HTML of each route and a cleaned copy")
	flag.BoolVar(&cli.CaptureMHTML, "capture-mhtml", false, "Save an MHTML archive of each route")
	flag.BoolVar(&cli.PDF, "pdf", false, "Also write every snapshot into one PDF")
	flag.BoolVar(&cli.NoGrid, "no-grid", false, "Skip the contact sheet")
	flag.StringVar(&cli.Verbosity, "verbosity", "normal", "Console output: quiet, normal, verbose or debug")
	flag.BoolVar(&cli.NoPrompt, "no-prompt", false, "Never ask for missing parameters")
	flag.BoolVar(&cli.DryRun, "dry-run", false, "List discovered routes and exit")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "routeshot - screenshot every route of a web project\n\n")
		fmt.Fprintf(os.Stderr, "Usage: routeshot [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Ask for project, URL and output interactively\n")
		fmt.Fprintf(os.Stderr, "  routeshot\n\n")
		fmt.Fprintf(os.Stderr, "  # Fully specified\n")
		fmt.Fprintf(os.Stderr, "  routeshot -project ./web -base-url http://localhost:3000 -output ./review\n\n")
		fmt.Fprintf(os.Stderr, "  # Only show what would be visited\n")
		fmt.Fprintf(os.Stderr, "  routeshot -project ./web -dry-run\n\n")
	}

	flag.Parse()
	flag.Visit(func(f *flag.Flag) { cli.set[f.Name] = true })
	return cli
}

// execute performs one run
func execute(ctx context.Context, cli *CLIConfig) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	console := run.NewLogger(run.ParseLogLevel(cfg.Logging.Verbosity))

	if cli.DryRun {
		return dryRun(cfg, console)
	}

	if needsPrompt(cfg) && !cli.NoPrompt && interactive() {
		if err := ask(cfg, console); err != nil {
			return err
		}
	}

	var fileLog *logging.Logger
	if cfg.Logging.File {
		l, err := logging.NewLogger("routeshot")
		if err != nil {
			console.Warnf("run log disabled: %v", err)
		} else {
			fileLog = l
			defer l.Close()
			console.Verbosef("run log: %s", l.LogPath())
		}
	}

	manager := browser.NewManager(cfg.Browser, logging.Nop())
	if fileLog != nil {
		manager = browser.NewManager(cfg.Browser, fileLog.With("browser")).
			WithDriverOutput(fileLog.With("playwright").Writer())
	}

	runner, err := run.NewRunner(cfg, console, fileLog, manager)
	if err != nil {
		return err
	}

	_, err = runner.Run(ctx)
	return err
}

// loadConfig loads the YAML file if given and applies explicit flags on top
func loadConfig(cli *CLIConfig) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if cli.ConfigFile != "" {
		var err error
		if cfg, err = config.LoadFile(cli.ConfigFile); err != nil {
			return nil, err
		}
	}

	if cli.ProjectDir != "" {
		cfg.ProjectDir = cli.ProjectDir
	}
	if cli.BaseURL != "" {
		cfg.BaseURL = cli.BaseURL
	}
	if cli.OutputDir != "" {
		cfg.OutputDir = cli.OutputDir
	}

	if cli.set["columns"] {
		cfg.Grid.Columns = cli.Columns
	}
	if cli.set["padding"] {
		cfg.Grid.Padding = cli.Padding
	}
	if cli.set["width"] {
		cfg.Grid.TargetWidth = cli.Width
	}
	if cli.set["no-grid"] {
		cfg.Grid.Enabled = !cli.NoGrid
	}
	if cli.set["max-elements"] {
		cfg.Explore.MaxElements = cli.MaxElements
	}
	if cli.set["max-routes"] {
		cfg.Explore.MaxRoutes = cli.MaxRoutes
	}
	if cli.set["capture-dom"] {
		cfg.Explore.CaptureDOM = cli.CaptureDOM
	}
	if cli.set["capture-mhtml"] {
		cfg.Explore.CaptureMHTML = cli.CaptureMHTML
	}
	if cli.set["headful"] {
		cfg.Browser.Headless = !cli.Headful
	}
	if cli.set["pdf"] {
		cfg.Export.PDF = cli.PDF
	}
	if cli.set["verbosity"] {
		cfg.Logging.Verbosity = cli.Verbosity
	}

	return cfg, nil
}

func needsPrompt(cfg *config.Config) bool {
	return cfg.ProjectDir == "" || cfg.BaseURL == "" || cfg.OutputDir == ""
}

// ask fills the missing parameters interactively, starting from the ones
// used last time
func ask(cfg *config.Config, console *run.Logger) error {
	recent, err := config.NewRecentStore("")
	if err != nil {
		console.Verbosef("recent parameters unavailable: %v", err)
	} else {
		recent.Fill(cfg)
	}

	answers, err := prompt.Ask(prompt.Answers{
		ProjectDir: cfg.ProjectDir,
		BaseURL:    cfg.BaseURL,
		OutputDir:  cfg.OutputDir,
	}, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	cfg.ProjectDir = answers.ProjectDir
	cfg.BaseURL = answers.BaseURL
	cfg.OutputDir = answers.OutputDir

	if recent != nil {
		if err := recent.Save(config.Recent(answers)); err != nil {
			console.Verbosef("failed to remember parameters: %v", err)
		}
	}
	return nil
}

func interactive() bool {
	tty := func(fd uintptr) bool { return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) }
	return tty(os.Stdin.Fd()) && tty(os.Stdout.Fd())
}

// dryRun prints the routes a run would visit
func dryRun(cfg *config.Config, console *run.Logger) error {
	if cfg.ProjectDir == "" {
		return errors.New("-project is required for a dry run")
	}

	d, err := discovery.New(cfg.Discovery, console)
	if err != nil {
		return fmt.Errorf("invalid discovery patterns: %w", err)
	}

	result := d.Discover(cfg.ProjectDir)
	console.Section(fmt.Sprintf("Routes in %s", cfg.ProjectDir))
	for _, route := range result.Routes {
		fmt.Println(route)
	}
	for _, route := range result.Filtered {
		console.Verbosef("filtered: %s", route)
	}
	for _, sk := range result.Skipped {
		console.Warnf("skipped %s: %s", sk.Path, sk.Reason)
	}
	return nil
}
