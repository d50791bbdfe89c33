package pipeline

import (
	"context"
	"fmt"
	"log"
	"path"
	"sort"

	"repowiki/internal/apperr"
	"repowiki/internal/llm"
	"repowiki/internal/types"
	"repowiki/internal/util/jsonutil"
	"repowiki/internal/utils"
)

const (
	DefaultMaxFeatures  = 15
	DefaultMaxTreePaths = 3000
	maxReadmeChars      = 12000
)

// configFilenames are build or package manifests worth showing the
// architecture pass. Matched at the root or one directory deep.
var configFilenames = map[string]struct{}{
	"package.json":     {},
	"tsconfig.json":    {},
	"Cargo.toml":       {},
	"pyproject.toml":   {},
	"setup.py":         {},
	"setup.cfg":        {},
	"go.mod":           {},
	"build.gradle":     {},
	"build.gradle.kts": {},
	"pom.xml":          {},
	"Gemfile":          {},
	"mix.exs":          {},
	"deno.json":        {},
	"deno.jsonc":       {},
	"composer.json":    {},
}

// ConfigFiles returns the manifest paths in tree, in tree order.
func ConfigFiles(tree types.RepoTree) []string {
	var out []string
	for _, n := range tree.Nodes {
		if utils.Depth(n.Path) > 2 {
			continue
		}
		if _, ok := configFilenames[path.Base(n.Path)]; ok {
			out = append(out, n.Path)
		}
	}
	return out
}

// Analyzer is the architecture phase: one model call that turns the
// repository overview into a feature plan.
type Analyzer struct {
	LLM          llm.LLMClient
	MaxFeatures  int
	MaxTreePaths int
	Logger       *log.Logger
}

// Analyze asks the model for a feature plan and cleans it: ids are
// normalized to unique kebab-case, file paths absent from tree are dropped
// and the feature count is capped. Any model failure is an AI_ERROR.
func (a *Analyzer) Analyze(ctx context.Context, meta types.RepoMeta, tree types.RepoTree, configFiles []types.PreFetchedFile) (types.ArchitectureAnalysis, error) {
	in := a.input(meta, tree, configFiles)

	raw, err := a.LLM.GenerateJSON(llm.WithPhase(ctx, llm.PhaseArchitecture), architecturePrompt, in)
	if err != nil {
		return types.ArchitectureAnalysis{}, apperr.Wrap(apperr.CodeAIError, "Architecture analysis failed to produce output", err)
	}
	var out types.ArchitectureAnalysis
	if err := jsonutil.UnmarshalFlex(raw, &out); err != nil {
		return types.ArchitectureAnalysis{}, apperr.Wrap(apperr.CodeAIError, "Architecture analysis returned malformed output", err)
	}

	out = a.clean(out, tree)
	if len(out.Features) == 0 {
		return types.ArchitectureAnalysis{}, apperr.New(apperr.CodeAIError, "Architecture analysis produced no features")
	}
	return out, nil
}

func (a *Analyzer) input(meta types.RepoMeta, tree types.RepoTree, configFiles []types.PreFetchedFile) architectureInput {
	maxPaths := a.MaxTreePaths
	if maxPaths <= 0 {
		maxPaths = DefaultMaxTreePaths
	}
	paths := tree.Paths()
	note := ""
	if len(paths) > maxPaths {
		note = fmt.Sprintf("Showing %d of %d files", maxPaths, len(paths))
		paths = paths[:maxPaths]
	}
	readme := "(No README available)"
	if meta.Readme != nil && *meta.Readme != "" {
		readme = utils.Excerpt(*meta.Readme, maxReadmeChars)
	}
	if configFiles == nil {
		configFiles = []types.PreFetchedFile{}
	}
	return architectureInput{
		Repository:  summarize(meta),
		Readme:      readme,
		TreePaths:   paths,
		TreeNote:    note,
		ConfigFiles: configFiles,
	}
}

func (a *Analyzer) clean(in types.ArchitectureAnalysis, tree types.RepoTree) types.ArchitectureAnalysis {
	maxFeatures := a.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	if len(in.Features) > maxFeatures {
		a.logf("pipeline: capping features from %d to %d", len(in.Features), maxFeatures)
		in.Features = in.Features[:maxFeatures]
	}

	known := tree.PathSet()
	ids := utils.NewIDAllocator()
	rename := make(map[string]string, len(in.Features))
	out := types.ArchitectureAnalysis{Description: in.Description, Features: make([]types.FeaturePlan, 0, len(in.Features))}
	for _, f := range in.Features {
		id := ids.Allocate(f.ID, f.Name)
		for _, alias := range []string{f.ID, utils.Slugify(f.ID)} {
			if _, seen := rename[alias]; !seen && alias != "" {
				rename[alias] = id
			}
		}
		f.ID = id
		if f.Name == "" {
			f.Name = id
		}
		f.FilePaths = keepKnown(f.FilePaths, known)
		out.Features = append(out.Features, f)
	}

	valid := make(map[string]struct{}, len(out.Features))
	for _, f := range out.Features {
		valid[f.ID] = struct{}{}
	}
	for i := range out.Features {
		f := &out.Features[i]
		related := make([]string, 0, len(f.RelatedFeatureIDs))
		seen := map[string]struct{}{}
		for _, r := range f.RelatedFeatureIDs {
			id, ok := rename[r]
			if !ok {
				id = rename[utils.Slugify(r)]
			}
			if _, ok := valid[id]; !ok || id == f.ID {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			related = append(related, id)
		}
		f.RelatedFeatureIDs = related
	}
	return out
}

// keepKnown drops paths absent from known and duplicates, keeping order.
func keepKnown(paths []string, known map[string]struct{}) []string {
	out := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if _, ok := known[p]; !ok {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func sortLanguages(langs []string, bytes map[string]int) {
	sort.Slice(langs, func(i, j int) bool {
		if bytes[langs[i]] != bytes[langs[j]] {
			return bytes[langs[i]] > bytes[langs[j]]
		}
		return langs[i] < langs[j]
	})
}

func (a *Analyzer) logf(format string, args ...any) {
	if a.Logger != nil {
		a.Logger.Printf(format, args...)
	}
}
