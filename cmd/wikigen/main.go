// Command wikigen generates one wiki from the command line and writes it
// as JSON or markdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	flag "github.com/spf13/pflag"

	"repowiki/internal/gateway/app"
	"repowiki/internal/gateway/config"
	"repowiki/internal/llm"
	"repowiki/internal/pipeline"
	"repowiki/internal/util/jsonutil"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code: 0 on success, 1 when generation or
// output fails, 2 on usage errors. Deferred cleanup always runs.
func run(args []string, stdout io.Writer, stderr *os.File) int {
	fs := flag.NewFlagSet("wikigen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.StringP("config", "c", "", "YAML or TOML config file (overrides WIKI_CONFIG)")
	format := fs.StringP("format", "f", "json", "output format: json or markdown")
	out := fs.StringP("out", "o", "", "output file (default stdout)")
	verbose := fs.BoolP("verbose", "v", false, "log pipeline and model calls to stderr")
	noColor := fs.Bool("no-color", false, "disable colored output")
	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: wikigen [options] <owner>/<repo>

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(stderr, `
Examples:
  wikigen octocat/hello-world
  wikigen --format markdown -o wiki.md vercel/swr
`)
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	owner, repo, ok := parseTarget(fs.Args())
	if !ok {
		fs.Usage()
		return 2
	}
	if *format != "json" && *format != "markdown" {
		fmt.Fprintf(stderr, "unknown format %q\n", *format)
		return 2
	}
	if *noColor {
		color.NoColor = true
	}

	errLog := log.New(stderr, "", 0)
	cfg, err := config.Load(*configPath)
	if err != nil {
		errLog.Printf("Failed to load config: %v", err)
		return 1
	}

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(stderr, "", log.LstdFlags)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := app.BuildPipeline(ctx, cfg, logger, nil)
	if err != nil {
		errLog.Printf("Failed to build pipeline: %v", err)
		return 1
	}
	defer p.Close()

	pr := newPrinter(stderr, !*verbose && isatty.IsTerminal(stderr.Fd()), *verbose)
	ctx = llm.WithObserver(ctx, pr)

	// The printer has already shown the error event.
	w, err := p.Generate(ctx, owner, repo, pr.Event)
	if err != nil {
		return 1
	}

	var body []byte
	switch *format {
	case "markdown":
		body = []byte(pipeline.ToMarkdown(w))
	default:
		body, err = jsonutil.MarshalNoEscapeIndent(w, "  ")
		if err != nil {
			errLog.Printf("encode wiki: %v", err)
			return 1
		}
		body = append(body, '\n')
	}

	if *out == "" {
		if _, err := stdout.Write(body); err != nil {
			errLog.Printf("write output: %v", err)
			return 1
		}
		return 0
	}
	if err := os.WriteFile(*out, body, 0o644); err != nil {
		errLog.Printf("write %s: %v", *out, err)
		return 1
	}
	pr.Success(fmt.Sprintf("Wrote %s", *out))
	return 0
}

// parseTarget accepts "owner/repo", a GitHub URL, or "owner repo".
func parseTarget(args []string) (owner, repo string, ok bool) {
	switch len(args) {
	case 1:
		s := strings.TrimSuffix(strings.TrimSpace(args[0]), "/")
		s = strings.TrimSuffix(s, ".git")
		s = strings.TrimPrefix(s, "https://")
		s = strings.TrimPrefix(s, "http://")
		s = strings.TrimPrefix(s, "github.com/")
		parts := strings.Split(s, "/")
		if len(parts) != 2 {
			return "", "", false
		}
		owner, repo = parts[0], parts[1]
	case 2:
		owner, repo = args[0], args[1]
	default:
		return "", "", false
	}
	return owner, repo, owner != "" && repo != ""
}
