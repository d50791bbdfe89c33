package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"repowiki/internal/llm"
	"repowiki/internal/types"
	"repowiki/internal/util/jsonutil"
	"repowiki/internal/utils"
)

const (
	DefaultMaxFilesPerFeature = 10
	maxTreePathsDeepDive      = 500
	maxReadmeExcerptChars     = 2000
)

// ErrNoFiles marks a feature whose plan had no successfully fetched file.
var ErrNoFiles = errors.New("no files fetched for feature")

// DeepDiver is the per-feature documentation phase.
type DeepDiver struct {
	LLM      llm.LLMClient
	MaxFiles int
}

// CitationURL builds the browsable link for a line range.
func CitationURL(baseURL, file string, start, end int) string {
	return fmt.Sprintf("%s/%s#L%d-L%d", baseURL, file, start, end)
}

// BlobBaseURL is the link prefix for files on branch.
func BlobBaseURL(owner, repo, branch string) string {
	return fmt.Sprintf("https://github.com/%s/%s/blob/%s", owner, repo, branch)
}

// DeepDive documents one feature. files must already be limited to the
// plan's paths; an empty slice fails with ErrNoFiles without calling the
// model. Citations are rebuilt here: files outside tree are dropped and URLs
// are derived from baseURL, never taken from the model.
func (d *DeepDiver) DeepDive(ctx context.Context, meta types.RepoMeta, tree types.RepoTree, plan types.FeaturePlan, files []types.PreFetchedFile, all types.ArchitectureAnalysis, baseURL string) (types.Feature, error) {
	maxFiles := d.MaxFiles
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFilesPerFeature
	}
	if len(files) > maxFiles {
		files = files[:maxFiles]
	}
	if len(files) == 0 {
		return types.Feature{}, fmt.Errorf("%w %q", ErrNoFiles, plan.Name)
	}

	raw, err := d.LLM.GenerateJSON(llm.WithPhase(ctx, llm.PhaseDeepDive), deepDivePrompt, d.input(meta, tree, plan, files, all))
	if err != nil {
		return types.Feature{}, fmt.Errorf("deep dive %q: %w", plan.Name, err)
	}
	var m featureModel
	if err := jsonutil.UnmarshalFlex(raw, &m); err != nil {
		return types.Feature{}, fmt.Errorf("deep dive %q: malformed output: %w", plan.Name, err)
	}

	f := transformFeature(m, plan, all, tree.PathSet(), baseURL)
	if len(f.Sections) == 0 {
		return types.Feature{}, fmt.Errorf("deep dive %q: empty output", plan.Name)
	}
	return f, nil
}

func (d *DeepDiver) input(meta types.RepoMeta, tree types.RepoTree, plan types.FeaturePlan, files []types.PreFetchedFile, all types.ArchitectureAnalysis) deepDiveInput {
	others := make([]featureBrief, 0, len(all.Features))
	for _, f := range all.Features {
		if f.ID == plan.ID {
			continue
		}
		others = append(others, featureBrief{ID: f.ID, Name: f.Name, Description: f.Description})
	}
	paths := tree.Paths()
	note := ""
	if len(paths) > maxTreePathsDeepDive {
		note = fmt.Sprintf("Showing %d of %d files", maxTreePathsDeepDive, len(paths))
		paths = paths[:maxTreePathsDeepDive]
	}
	readme := "(No README available)"
	if meta.Readme != nil && *meta.Readme != "" {
		readme = utils.Excerpt(*meta.Readme, maxReadmeExcerptChars)
	}
	return deepDiveInput{
		Repository:    summarize(meta),
		Feature:       featureBrief{ID: plan.ID, Name: plan.Name, Description: plan.Description, Rationale: plan.Rationale},
		ReadmeExcerpt: readme,
		OtherFeatures: others,
		TreePaths:     paths,
		TreeNote:      note,
		Files:         files,
	}
}

func transformFeature(m featureModel, plan types.FeaturePlan, all types.ArchitectureAnalysis, known map[string]struct{}, baseURL string) types.Feature {
	f := types.Feature{
		ID:              plan.ID,
		Name:            strings.TrimSpace(m.Name),
		Summary:         strings.TrimSpace(m.Summary),
		Sections:        make([]types.Section, 0, len(m.Sections)),
		RelatedFeatures: relatedIDs(m.RelatedFeatures, plan, all),
	}
	if f.Name == "" {
		f.Name = plan.Name
	}
	if f.Summary == "" {
		f.Summary = plan.Description
	}

	n := 0
	cite := func(c citationModel) (types.Citation, bool) {
		file := strings.TrimPrefix(strings.TrimSpace(c.File), "/")
		if _, ok := known[file]; !ok {
			return types.Citation{}, false
		}
		start, end := c.StartLine, c.EndLine
		if start < 1 {
			start = 1
		}
		if end < start {
			end = start
		}
		n++
		return types.Citation{
			ID:        fmt.Sprintf("%s-c%d", plan.ID, n),
			File:      file,
			StartLine: start,
			EndLine:   end,
			URL:       CitationURL(baseURL, file, start, end),
		}, true
	}

	for _, s := range m.Sections {
		title := strings.TrimSpace(s.Title)
		if title == "" && strings.TrimSpace(s.Content) == "" {
			continue
		}
		sec := types.Section{
			Title:        title,
			Content:      s.Content,
			Citations:    make([]types.Citation, 0, len(s.Citations)),
			CodeSnippets: make([]types.CodeSnippet, 0, len(s.CodeSnippets)),
		}
		for _, c := range s.Citations {
			if cc, ok := cite(c); ok {
				sec.Citations = append(sec.Citations, cc)
			}
		}
		for _, cs := range s.CodeSnippets {
			if strings.TrimSpace(cs.Code) == "" {
				continue
			}
			cc, ok := cite(cs.Citation)
			if !ok {
				continue
			}
			lang := strings.TrimSpace(cs.Language)
			if lang == "" {
				lang = utils.LanguageForPath(cc.File)
			}
			sec.CodeSnippets = append(sec.CodeSnippets, types.CodeSnippet{Language: lang, Code: cs.Code, Citation: cc})
		}
		f.Sections = append(f.Sections, sec)
	}
	return f
}

// relatedIDs keeps model-suggested ids that name another planned feature,
// falling back to the plan's own suggestions.
func relatedIDs(suggested []string, plan types.FeaturePlan, all types.ArchitectureAnalysis) []string {
	valid := make(map[string]struct{}, len(all.Features))
	for _, f := range all.Features {
		valid[f.ID] = struct{}{}
	}
	pick := func(ids []string) []string {
		out := make([]string, 0, len(ids))
		seen := map[string]struct{}{}
		for _, id := range ids {
			id = utils.Slugify(id)
			if _, ok := valid[id]; !ok || id == plan.ID {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
		return out
	}
	if out := pick(suggested); len(out) > 0 {
		return out
	}
	return pick(plan.RelatedFeatureIDs)
}
