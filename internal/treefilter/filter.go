// Package treefilter reduces a raw repository listing to the source files
// worth showing a model. Filter is pure and idempotent.
package treefilter

import (
	"path"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"repowiki/internal/types"
)

var excludedDirs = map[string]struct{}{
	"node_modules":     {},
	".git":             {},
	".next":            {},
	".nuxt":            {},
	".svelte-kit":      {},
	"dist":             {},
	"build":            {},
	"out":              {},
	".output":          {},
	"coverage":         {},
	"__pycache__":      {},
	".cache":           {},
	".turbo":           {},
	".vercel":          {},
	"vendor":           {},
	"venv":             {},
	".venv":            {},
	"target":           {},
	".gradle":          {},
	".idea":            {},
	".vscode":          {},
	"storybook-static": {},
}

var excludedExts = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {}, ".ico": {}, ".webp": {}, ".avif": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {},
	".mp3": {}, ".mp4": {}, ".wav": {}, ".ogg": {}, ".webm": {},
	".zip": {}, ".tar": {}, ".gz": {}, ".rar": {},
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {}, ".wasm": {},
	".pyc": {}, ".class": {},
	".lock": {}, ".map": {},
}

var excludedNames = map[string]struct{}{
	"package-lock.json": {},
	"yarn.lock":         {},
	"pnpm-lock.yaml":    {},
	"bun.lockb":         {},
	".DS_Store":         {},
}

// Filter holds optional gitignore-style patterns applied on top of the
// fixed exclusion sets. The zero value applies only the fixed sets.
type Filter struct {
	extra *ignore.GitIgnore
}

// New compiles extra exclusion patterns. Blank lines and comments are
// ignored, as in a .gitignore file.
func New(patterns ...string) *Filter {
	lines := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			lines = append(lines, p)
		}
	}
	if len(lines) == 0 {
		return &Filter{}
	}
	return &Filter{extra: ignore.CompileIgnoreLines(lines...)}
}

// Apply keeps blobs that survive every exclusion, in input order. Tree
// nodes are dropped since only file paths are shown downstream.
func (f *Filter) Apply(nodes []types.TreeNode) []types.TreeNode {
	out := make([]types.TreeNode, 0, len(nodes))
	for _, n := range nodes {
		if n.Kind != types.NodeBlob {
			continue
		}
		if f.Excluded(n.Path) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Excluded reports whether p is dropped by the fixed sets or the extra
// patterns.
func (f *Filter) Excluded(p string) bool {
	if p == "" {
		return true
	}
	segs := strings.Split(p, "/")
	for _, s := range segs {
		if _, ok := excludedDirs[s]; ok {
			return true
		}
	}
	name := segs[len(segs)-1]
	if _, ok := excludedNames[name]; ok {
		return true
	}
	if _, ok := excludedExts[strings.ToLower(path.Ext(name))]; ok {
		return true
	}
	if f != nil && f.extra != nil && f.extra.MatchesPath(p) {
		return true
	}
	return false
}

// Tree filters t. TotalFiles keeps the pre-filter blob count and the
// truncation flag is carried through.
func (f *Filter) Tree(t types.RepoTree) types.RepoTree {
	return types.RepoTree{
		Nodes:      f.Apply(t.Nodes),
		TotalFiles: t.TotalFiles,
		Truncated:  t.Truncated,
	}
}

// Apply filters t with the fixed exclusion sets only.
func Apply(t types.RepoTree) types.RepoTree {
	return (*Filter)(nil).Tree(t)
}
