package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"repowiki/internal/pipeline"
)

var (
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	green  = color.New(color.FgGreen)
	cyan   = color.New(color.FgCyan)
	dim    = color.New(color.Faint)
)

// printer renders pipeline events on a terminal. It doubles as the model
// call observer so verbose runs show each phase as it starts and ends.
type printer struct {
	mu      sync.Mutex
	w       io.Writer
	bar     *progressbar.ProgressBar
	verbose bool
}

func newPrinter(w io.Writer, withBar, verbose bool) *printer {
	p := &printer{w: w, verbose: verbose}
	if withBar {
		p.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}
	return p
}

// Event is a pipeline.EmitFunc.
func (p *printer) Event(e pipeline.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev := e.(type) {
	case pipeline.ProgressEvent:
		if p.bar != nil {
			p.bar.Describe(ev.Message)
			_ = p.bar.Set(ev.Progress)
			return
		}
		line := fmt.Sprintf("[%3d%%] %s", ev.Progress, ev.Message)
		if ev.Detail != "" {
			line += " " + dim.Sprintf("(%s)", ev.Detail)
		}
		p.println(cyan, line)
	case pipeline.FeatureCompleteEvent:
		p.println(green, fmt.Sprintf("✓ %s (%d/%d)", ev.Feature.Name, ev.FeaturesComplete, ev.FeaturesTotal))
	case pipeline.CompleteEvent:
		if p.bar != nil {
			_ = p.bar.Finish()
		}
		n := 0
		if ev.Wiki != nil {
			n = len(ev.Wiki.Features)
		}
		p.println(green, fmt.Sprintf("✓ Wiki ready: %d features", n))
	case pipeline.ErrorEvent:
		if p.bar != nil {
			_ = p.bar.Exit()
		}
		msg := fmt.Sprintf("✗ %s: %s", ev.Code, ev.Message)
		p.println(red, msg)
	}
}

func (p *printer) Success(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.println(green, "✓ "+msg)
}

// println writes one line, stepping around the bar when it is shown.
func (p *printer) println(c *color.Color, line string) {
	if p.bar != nil {
		_ = p.bar.Clear()
	}
	c.Fprintln(p.w, line)
	if p.bar != nil && !p.bar.IsFinished() {
		_ = p.bar.RenderBlank()
	}
}

func (p *printer) Before(_ context.Context, phase, _ string, input any) {
	if !p.verbose {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	b, _ := json.Marshal(input)
	p.println(dim, fmt.Sprintf("→ %s call (%d bytes of context)", phase, len(b)))
}

func (p *printer) After(_ context.Context, phase string, raw json.RawMessage, err error) {
	if err != nil {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.println(yellow, fmt.Sprintf("! %s call failed: %v", phase, err))
		return
	}
	if !p.verbose {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.println(dim, fmt.Sprintf("← %s call returned %d bytes", phase, len(raw)))
}
