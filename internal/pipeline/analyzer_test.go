package pipeline

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repowiki/internal/apperr"
	"repowiki/internal/types"
)

func treeOf(paths ...string) types.RepoTree {
	t := types.RepoTree{TotalFiles: len(paths)}
	for _, p := range paths {
		t.Nodes = append(t.Nodes, types.TreeNode{Path: p, Kind: types.NodeBlob})
	}
	return t
}

func TestConfigFiles(t *testing.T) {
	tree := treeOf("package.json", "web/package.json", "a/b/go.mod", "go.mod", "src/main.go", "svc/Cargo.toml")
	assert.Equal(t, []string{"package.json", "web/package.json", "go.mod", "svc/Cargo.toml"}, ConfigFiles(tree))
}

func TestAnalyze_CleansPlan(t *testing.T) {
	reply := types.ArchitectureAnalysis{
		Description: "desc",
		Features: []types.FeaturePlan{
			{ID: "State Management", Name: "State", FilePaths: []string{"src/store.ts", "src/ghost.ts", "src/store.ts"}, RelatedFeatureIDs: []string{"routing", "state-management", "unknown"}},
			{ID: "routing", Name: "Routing", FilePaths: []string{"src/router.ts"}, RelatedFeatureIDs: []string{"State Management"}},
			{ID: "routing", Name: "Routing again", FilePaths: []string{"src/router.ts"}},
		},
	}
	client := &scriptedLLM{arch: func() (json.RawMessage, error) { return json.Marshal(reply) }}
	a := &Analyzer{LLM: client, Logger: quiet}

	got, err := a.Analyze(t.Context(), types.RepoMeta{FullName: "o/r"}, treeOf("src/store.ts", "src/router.ts"), nil)
	require.NoError(t, err)
	require.Len(t, got.Features, 3)

	assert.Equal(t, "state-management", got.Features[0].ID)
	assert.Equal(t, []string{"src/store.ts"}, got.Features[0].FilePaths)
	assert.Equal(t, []string{"routing"}, got.Features[0].RelatedFeatureIDs)

	assert.Equal(t, "routing", got.Features[1].ID)
	assert.Equal(t, []string{"state-management"}, got.Features[1].RelatedFeatureIDs)
	assert.Equal(t, "routing-2", got.Features[2].ID)
}

func TestAnalyze_CapsFeatures(t *testing.T) {
	client := &scriptedLLM{arch: func() (json.RawMessage, error) {
		return planJSON("a", "b", "c", "d"), nil
	}}
	a := &Analyzer{LLM: client, MaxFeatures: 2, Logger: quiet}
	got, err := a.Analyze(t.Context(), types.RepoMeta{}, treeOf("a/main.go"), nil)
	require.NoError(t, err)
	assert.Len(t, got.Features, 2)
}

func TestAnalyze_Failures(t *testing.T) {
	cases := map[string]func() (json.RawMessage, error){
		"model error": func() (json.RawMessage, error) { return nil, errors.New("boom") },
		"malformed":   func() (json.RawMessage, error) { return json.RawMessage(`[1,2]`), nil },
		"empty":       func() (json.RawMessage, error) { return json.RawMessage(`{"features":[]}`), nil },
	}
	for name, arch := range cases {
		t.Run(name, func(t *testing.T) {
			a := &Analyzer{LLM: &scriptedLLM{arch: arch}}
			_, err := a.Analyze(t.Context(), types.RepoMeta{}, treeOf("x.go"), nil)
			require.Error(t, err)
			assert.True(t, apperr.HasCode(err, apperr.CodeAIError))
		})
	}
}

func TestAnalyzerInput_TruncatesTreeAndReadme(t *testing.T) {
	readme := "# Title\n\nHello"
	a := &Analyzer{MaxTreePaths: 2}
	in := a.input(types.RepoMeta{Readme: &readme}, treeOf("a.go", "b.go", "c.go"), nil)
	assert.Equal(t, []string{"a.go", "b.go"}, in.TreePaths)
	assert.Equal(t, "Showing 2 of 3 files", in.TreeNote)
	assert.Contains(t, in.Readme, "Hello")
	assert.NotNil(t, in.ConfigFiles)

	in = a.input(types.RepoMeta{}, treeOf("a.go"), nil)
	assert.Equal(t, "(No README available)", in.Readme)
	assert.Empty(t, in.TreeNote)
}
