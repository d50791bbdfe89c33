package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"repowiki/internal/apperr"
	"repowiki/internal/llm"
	llmclient "repowiki/internal/llm/client"
	"repowiki/internal/types"
)

type stubGateway struct {
	meta  types.RepoMeta
	tree  types.RepoTree
	files map[string]string

	// gate, when set, holds FetchMeta until closed.
	gate      chan struct{}
	metaCalls atomic.Int32
	fileCalls atomic.Int32
}

func newStubGateway(paths ...string) *stubGateway {
	g := &stubGateway{
		meta: types.RepoMeta{
			Owner:         "octocat",
			Repo:          "hello-world",
			FullName:      "octocat/hello-world",
			DefaultBranch: "main",
			Languages:     map[string]int{"Go": 1000},
			Topics:        []string{},
		},
		files: map[string]string{},
	}
	for i, p := range paths {
		g.tree.Nodes = append(g.tree.Nodes, types.TreeNode{Path: p, Kind: types.NodeBlob, SHA: fmt.Sprintf("sha%d", i)})
		g.files[p] = fmt.Sprintf("package x\n\n// %s\nfunc F%d() {}\n", p, i)
	}
	g.tree.TotalFiles = len(paths)
	return g
}

func (g *stubGateway) FetchMeta(ctx context.Context, owner, repo string) (types.RepoMeta, error) {
	g.metaCalls.Add(1)
	if g.gate != nil {
		<-g.gate
	}
	return g.meta, nil
}

func (g *stubGateway) FetchTree(ctx context.Context, owner, repo, branch string) (types.RepoTree, error) {
	return g.tree, nil
}

func (g *stubGateway) FetchFile(ctx context.Context, owner, repo, path, sha string) (types.FileContent, error) {
	g.fileCalls.Add(1)
	c, ok := g.files[path]
	if !ok {
		return types.FileContent{}, apperr.New(apperr.CodeNotFound, "missing "+path)
	}
	return types.FileContent{Path: path, Content: c, Size: int64(len(c)), SHA: sha}, nil
}

// scriptedLLM answers the architecture phase with arch and each deep dive
// with dive(featureID). Every call is counted.
type scriptedLLM struct {
	arch  func() (json.RawMessage, error)
	dive  func(id string, in deepDiveInput) (json.RawMessage, error)
	calls atomic.Int32
}

func (s *scriptedLLM) Name() string { return "scripted" }
func (s *scriptedLLM) Close() error { return nil }

func (s *scriptedLLM) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	s.calls.Add(1)
	switch llm.PhaseFrom(ctx) {
	case llm.PhaseArchitecture:
		return s.arch()
	case llm.PhaseDeepDive:
		in := input.(deepDiveInput)
		return s.dive(in.Feature.ID, in)
	}
	return nil, fmt.Errorf("unexpected phase %q", llm.PhaseFrom(ctx))
}

func (s *scriptedLLM) StreamChat(ctx context.Context, system string, history []llmclient.Message, onChunk func(string)) error {
	onChunk("ok")
	return nil
}

// planJSON builds an architecture reply with one feature per id, each
// owning "<id>/main.go".
func planJSON(ids ...string) json.RawMessage {
	features := make([]types.FeaturePlan, 0, len(ids))
	for _, id := range ids {
		features = append(features, types.FeaturePlan{
			ID:          id,
			Name:        strings.ToUpper(id[:1]) + id[1:],
			Description: id + " feature",
			FilePaths:   []string{id + "/main.go"},
		})
	}
	b, _ := json.Marshal(types.ArchitectureAnalysis{Description: "A test project.", Features: features})
	return b
}

func featureJSON(id, file string) json.RawMessage {
	m := featureModel{
		ID:      id,
		Name:    id,
		Summary: "Summary of " + id,
		Sections: []sectionModel{{
			Title:     "Overview",
			Content:   fmt.Sprintf("See [%s:1-3].", file),
			Citations: []citationModel{{File: file, StartLine: 1, EndLine: 3}},
			CodeSnippets: []codeSnippetModel{{
				Code:     "package x",
				Citation: citationModel{File: file, StartLine: 1, EndLine: 1},
			}},
		}},
	}
	b, _ := json.Marshal(m)
	return b
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) count(name string) int {
	n := 0
	for _, e := range r.all() {
		if e.EventName() == name {
			n++
		}
	}
	return n
}

func (r *recorder) last() Event {
	ev := r.all()
	if len(ev) == 0 {
		return nil
	}
	return ev[len(ev)-1]
}
