package pipeline

import (
	"repowiki/internal/llmtool"
	"repowiki/internal/types"
)

// repoSummary is the repository identity block shared by both phases.
type repoSummary struct {
	FullName    string   `json:"full_name"`
	Description string   `json:"description"`
	Language    string   `json:"primary_language"`
	Languages   []string `json:"languages"`
	Topics      []string `json:"topics"`
	Stars       int      `json:"stars"`
}

type architectureInput struct {
	Repository  repoSummary            `json:"repository"`
	Readme      string                 `json:"readme"`
	TreePaths   []string               `json:"tree_paths"`
	TreeNote    string                 `json:"tree_note,omitempty"`
	ConfigFiles []types.PreFetchedFile `json:"config_files"`
}

type featureBrief struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Rationale   string `json:"rationale,omitempty"`
}

type deepDiveInput struct {
	Repository    repoSummary            `json:"repository"`
	Feature       featureBrief           `json:"feature"`
	ReadmeExcerpt string                 `json:"readme_excerpt"`
	OtherFeatures []featureBrief         `json:"other_features"`
	TreePaths     []string               `json:"tree_paths"`
	TreeNote      string                 `json:"tree_note,omitempty"`
	Files         []types.PreFetchedFile `json:"files"`
}

// Deep-dive model output. Citations carry no URL; it is derived later.
type citationModel struct {
	File      string `json:"file" prompt_desc:"Path exactly as it appears in the provided files."`
	StartLine int    `json:"startLine" prompt_desc:"1-based first line of the cited range."`
	EndLine   int    `json:"endLine" prompt_desc:"1-based last line of the cited range."`
}

type codeSnippetModel struct {
	Language string        `json:"language" prompt_desc:"Fence language, e.g. typescript."`
	Code     string        `json:"code" prompt_desc:"Code copied verbatim from the provided file."`
	Citation citationModel `json:"citation" prompt_desc:"Where the snippet was copied from."`
}

type sectionModel struct {
	Title        string             `json:"title" prompt_desc:"Section heading, e.g. Overview, Key APIs, Usage."`
	Content      string             `json:"content" prompt_desc:"Markdown prose. May embed markers like [src/app.ts:10-24]."`
	Citations    []citationModel    `json:"citations" prompt_desc:"Line ranges backing the prose; empty array if none."`
	CodeSnippets []codeSnippetModel `json:"codeSnippets" prompt_desc:"Public API or usage examples; empty array if none."`
}

type featureModel struct {
	ID              string         `json:"id" prompt_desc:"The feature id given in the input, unchanged."`
	Name            string         `json:"name" prompt_desc:"Feature name."`
	Summary         string         `json:"summary" prompt_desc:"One or two sentences on what the feature does for users."`
	Sections        []sectionModel `json:"sections" prompt_desc:"2 to 4 sections."`
	RelatedFeatures []string       `json:"relatedFeatures" prompt_desc:"Ids taken from other_features."`
}

var architecturePrompt = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Purpose: "You are a code analyst. Partition a GitHub repository into its user-facing features and choose the source files that best document each one.",
	Background: "The input holds repository metadata, the README, a filtered directory listing and the content of build or package manifests. " +
		"A second pass will write detailed documentation per feature using only the files you pick, so the file choice decides what can be documented.",
	OutputFields: llmtool.MustFieldsFromStruct(types.ArchitectureAnalysis{}),
	Rules: []string{
		"Identify 5 to 8 user-facing features: what the software does from a user's or developer's perspective. Use the README and description as the primary guide.",
		"Group related sub-capabilities into one feature (five middlewares are one \"Middleware System\" feature, not five).",
		"Internal implementation details such as compiler internals, build configuration or test infrastructure are not features.",
		"Feature ids are kebab-case and unique (e.g. state-management).",
		"For each feature pick 5 to 10 files containing real implementations or public APIs. Prefer src/ over thin re-export wrappers; skip tests, fixtures, examples, benchmarks and generated files.",
		"In a monorepo focus on the primary package, usually the one matching the repository name.",
		"relatedFeatureIds reference other ids from your own list.",
	},
	OutputFormat: "A single JSON object with the fields listed in [OUTPUT].",
	Language:     "English",
}, llmtool.PresetStrictJSON(), llmtool.PresetNoInvent()).MustRender()

var deepDivePrompt = llmtool.ApplyPresets(llmtool.StructuredPromptSpec{
	Purpose: "You are a code analyst writing one page of a repository wiki. Document the feature described in the input using the provided source files.",
	Background: "The input holds the feature to document, a README excerpt, the other features of the wiki for cross-references, the directory listing, and the verbatim content of the feature's files. " +
		"Files may end with a [Truncated: ...] marker; nothing past it is available.",
	OutputFields: llmtool.MustFieldsFromStruct(featureModel{}),
	Rules: []string{
		"Write from the user's perspective: explain what users can do and how they use the feature. Show the public API and usage patterns, not internal details.",
		"Produce 2 to 4 sections (e.g. Overview, Key APIs, Usage).",
		"Code snippets must be copied verbatim from the provided files with accurate file paths and line numbers. Never fabricate code.",
		"Citations must use exact file paths and line numbers from the provided files. Use empty arrays when a section has no citations.",
		"Reference code inline with markers of the form [path:start-end].",
		"relatedFeatures lists ids from other_features that interact with this feature.",
	},
	Assumptions: []string{
		"Line numbers are 1-based and count from the top of each provided file.",
	},
	OutputFormat: "A single JSON object with the fields listed in [OUTPUT].",
	Language:     "English",
}, llmtool.PresetStrictJSON(), llmtool.PresetNoInvent(), llmtool.PresetCautious()).MustRender()

func summarize(meta types.RepoMeta) repoSummary {
	langs := make([]string, 0, len(meta.Languages))
	for l := range meta.Languages {
		langs = append(langs, l)
	}
	sortLanguages(langs, meta.Languages)
	desc := meta.Description
	if desc == "" {
		desc = "No description"
	}
	lang := meta.Language
	if lang == "" {
		lang = "Unknown"
	}
	topics := meta.Topics
	if topics == nil {
		topics = []string{}
	}
	return repoSummary{
		FullName:    meta.FullName,
		Description: desc,
		Language:    lang,
		Languages:   langs,
		Topics:      topics,
		Stars:       meta.Stars,
	}
}
