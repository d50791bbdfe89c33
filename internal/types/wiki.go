package types

import "time"

type Citation struct {
	ID        string `json:"id"`
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	URL       string `json:"url"`
}

type CodeSnippet struct {
	Language string   `json:"language"`
	Code     string   `json:"code"`
	Citation Citation `json:"citation"`
}

// Section content may embed markers of the form [file:start-end].
type Section struct {
	Title        string        `json:"title"`
	Content      string        `json:"content"`
	Citations    []Citation    `json:"citations"`
	CodeSnippets []CodeSnippet `json:"codeSnippets"`
}

type Feature struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Summary         string    `json:"summary"`
	Sections        []Section `json:"sections"`
	RelatedFeatures []string  `json:"relatedFeatures"`
}

// Wiki is the final artifact of a generation run. It is built once and
// treated as read-only afterwards.
type Wiki struct {
	RepoURL     string    `json:"repoUrl"`
	RepoName    string    `json:"repoName"`
	Description string    `json:"description"`
	GeneratedAt time.Time `json:"generatedAt"`
	Features    []Feature `json:"features"`
}

// FeaturePlan is one entry of the architecture analysis.
type FeaturePlan struct {
	ID                string   `json:"id" prompt_desc:"Unique kebab-case identifier, e.g. state-management."`
	Name              string   `json:"name" prompt_desc:"Short human-readable feature name."`
	Description       string   `json:"description" prompt_desc:"What the feature lets a user or developer do."`
	Rationale         string   `json:"rationale" prompt_desc:"Why this is a distinct user-facing feature."`
	FilePaths         []string `json:"filePaths" prompt_desc:"5-10 repository paths copied exactly from the tree that implement the feature."`
	RelatedFeatureIDs []string `json:"relatedFeatureIds" prompt_desc:"Ids of other features in this list that interact with this one."`
}

// ArchitectureAnalysis is the feature plan for a whole repository.
type ArchitectureAnalysis struct {
	Description string        `json:"description" prompt_desc:"One or two sentence description of the project."`
	Features    []FeaturePlan `json:"features" prompt_desc:"User-facing features, most important first."`
}
