package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
)

// FakeClient returns deterministic JSON payloads per phase for offline use.
// Architecture replies group the supplied tree paths by top-level directory;
// deep-dive replies cite the first lines of every supplied file.
type FakeClient struct{}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	var in map[string]any
	b, _ := json.Marshal(input)
	_ = json.Unmarshal(b, &in)

	var obj any
	switch PhaseFrom(ctx) {
	case "architecture":
		obj = fakeArchitecture(in)
	case "deep_dive":
		obj = fakeFeature(in)
	default:
		obj = map[string]any{}
	}
	out, _ := json.Marshal(obj)
	return json.RawMessage(out), nil
}

func (f *FakeClient) StreamChat(ctx context.Context, system string, history []Message, onChunk func(chunk string)) error {
	last := ""
	if n := len(history); n > 0 {
		last = history[n-1].Content
	}
	for _, w := range strings.Fields("This is an offline answer to: " + last) {
		if err := ctx.Err(); err != nil {
			return err
		}
		onChunk(w + " ")
	}
	return nil
}

func stringsOf(v any) []string {
	arr, _ := v.([]any)
	out := make([]string, 0, len(arr))
	for _, x := range arr {
		if s, ok := x.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func fakeArchitecture(in map[string]any) map[string]any {
	groups := map[string][]string{}
	for _, p := range stringsOf(in["tree_paths"]) {
		top := "core"
		if i := strings.IndexByte(p, '/'); i > 0 {
			top = p[:i]
		}
		groups[top] = append(groups[top], p)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	features := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		files := groups[k]
		if len(files) > 5 {
			files = files[:5]
		}
		id := strings.Trim(strings.ToLower(strings.ReplaceAll(k, ".", "-")), "-")
		if id == "" {
			id = "core"
		}
		features = append(features, map[string]any{
			"id":                id,
			"name":              strings.ToUpper(id[:1]) + id[1:],
			"description":       fmt.Sprintf("Functionality under %s.", k),
			"rationale":         "grouped by top-level directory",
			"filePaths":         files,
			"relatedFeatureIds": []string{},
		})
	}
	return map[string]any{
		"description": "Offline description generated without a model.",
		"features":    features,
	}
}

func fakeFeature(in map[string]any) map[string]any {
	feat, _ := in["feature"].(map[string]any)
	id, _ := feat["id"].(string)
	name, _ := feat["name"].(string)
	desc, _ := feat["description"].(string)

	files, _ := in["files"].([]any)
	citations := []map[string]any{}
	snippets := []map[string]any{}
	for _, raw := range files {
		fm, _ := raw.(map[string]any)
		p, _ := fm["path"].(string)
		content, _ := fm["content"].(string)
		lines := strings.Split(content, "\n")
		end := len(lines)
		if end > 5 {
			end = 5
		}
		c := map[string]any{"file": p, "startLine": 1, "endLine": end}
		citations = append(citations, c)
		if len(snippets) == 0 {
			snippets = append(snippets, map[string]any{
				"language": strings.TrimPrefix(path.Ext(p), "."),
				"code":     strings.Join(lines[:end], "\n"),
				"citation": c,
			})
		}
	}
	return map[string]any{
		"id":      id,
		"name":    name,
		"summary": desc,
		"sections": []map[string]any{{
			"title":        "Overview",
			"content":      desc,
			"citations":    citations,
			"codeSnippets": snippets,
		}},
		"relatedFeatures": []string{},
	}
}
