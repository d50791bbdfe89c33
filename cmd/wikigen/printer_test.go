package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"repowiki/internal/pipeline"
	"repowiki/internal/types"
)

func TestPrinter_PlainOutput(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	p := newPrinter(&buf, false, false)

	p.Event(pipeline.ProgressEvent{Phase: pipeline.PhaseAnalyzingArchitecture, Message: "Analyzing codebase architecture...", Progress: 15, Detail: "42 files in tree"})
	p.Event(pipeline.FeatureCompleteEvent{Feature: types.Feature{Name: "Routing"}, FeaturesComplete: 1, FeaturesTotal: 3})
	p.After(context.Background(), "deep_dive", nil, errors.New("boom"))
	p.Before(context.Background(), "deep_dive", "", map[string]any{})
	p.Event(pipeline.NewCompleteEvent(&types.Wiki{Features: make([]types.Feature, 2)}))
	p.Event(pipeline.ErrorEvent{Code: "NOT_FOUND", Message: "nope"})

	assert.Equal(t, ""+
		"[ 15%] Analyzing codebase architecture... (42 files in tree)\n"+
		"✓ Routing (1/3)\n"+
		"! deep_dive call failed: boom\n"+
		"✓ Wiki ready: 2 features\n"+
		"✗ NOT_FOUND: nope\n", buf.String())
}

func TestParseTarget(t *testing.T) {
	cases := []struct {
		args        []string
		owner, repo string
		ok          bool
	}{
		{[]string{"octocat/hello-world"}, "octocat", "hello-world", true},
		{[]string{"https://github.com/vercel/swr.git"}, "vercel", "swr", true},
		{[]string{"octocat", "hello-world"}, "octocat", "hello-world", true},
		{[]string{"octocat"}, "", "", false},
		{nil, "", "", false},
	}
	for _, c := range cases {
		owner, repo, ok := parseTarget(c.args)
		assert.Equal(t, c.ok, ok, c.args)
		if c.ok {
			assert.Equal(t, c.owner, owner)
			assert.Equal(t, c.repo, repo)
		}
	}
}
