package llmtool

import (
	"strings"
	"testing"
)

func TestStructuredPrompt_RendersSections(t *testing.T) {
	spec := StructuredPromptSpec{
		Purpose:      "Partition the repository into features.",
		Background:   "Architecture analysis.",
		OutputFormat: "JSON only.",
		Language:     "English",
		OutputFields: []PromptField{
			{Name: "description", Type: "string", Required: true, Description: "Project summary."},
			{Name: "features", Type: "[]FeaturePlan", Required: true, Fields: []PromptField{
				{Name: "id", Type: "string", Required: true},
			}},
		},
		Constraints: []string{"No markdown."},
		Rules:       []string{"Be concise."},
		Assumptions: []string{"If unsure, return empty strings."},
		Examples: []PromptExample{
			{InputJSON: `{"repo":"x"}`, OutputJSON: `{"description":"ok"}`},
		},
	}

	out, err := spec.Render()
	if err != nil {
		t.Fatalf("render error: %v", err)
	}

	wantSections := []string{
		"[PURPOSE]",
		"[BACKGROUND]",
		"[OUTPUT]",
		"[CONSTRAINTS]",
		"[RULES]",
		"[ASSUMPTIONS]",
		"[OUTPUT_FORMAT]",
		"[LANGUAGE]",
		"[EXAMPLES]",
	}
	for _, sec := range wantSections {
		if !strings.Contains(out, sec) {
			t.Fatalf("expected section %s in prompt", sec)
		}
	}
	if !strings.Contains(out, "  - id (string, required)") {
		t.Fatalf("expected nested field to be indented, got:\n%s", out)
	}
}

func TestStructuredPrompt_RequiresPurpose(t *testing.T) {
	spec := StructuredPromptSpec{
		OutputFields: []PromptField{{Name: "summary", Type: "string", Required: true}},
	}
	_, err := spec.Render()
	if err == nil || !strings.Contains(err.Error(), "purpose") {
		t.Fatalf("expected purpose error, got %v", err)
	}
}

func TestStructuredPrompt_RequiresOutputFields(t *testing.T) {
	_, err := StructuredPromptSpec{Purpose: "x"}.Render()
	if err == nil || !strings.Contains(err.Error(), "output fields") {
		t.Fatalf("expected output fields error, got %v", err)
	}
}

func TestApplyPresets_PrependConstraintsAndRules(t *testing.T) {
	spec := StructuredPromptSpec{
		Purpose:      "x",
		OutputFields: []PromptField{{Name: "summary", Type: "string", Required: true}},
		Constraints:  []string{"spec-constraint"},
		Rules:        []string{"spec-rule"},
	}
	preset := PromptPreset{
		Constraints: []string{"preset-constraint"},
		Rules:       []string{"preset-rule"},
	}
	applied := ApplyPresets(spec, preset)
	if len(applied.Constraints) < 2 || applied.Constraints[0] != "preset-constraint" {
		t.Fatalf("expected preset constraint prepended, got %+v", applied.Constraints)
	}
	if len(applied.Rules) < 2 || applied.Rules[0] != "preset-rule" {
		t.Fatalf("expected preset rule prepended, got %+v", applied.Rules)
	}
}

func TestApplyPresets_DropsDuplicates(t *testing.T) {
	applied := ApplyPresets(StructuredPromptSpec{Purpose: "x"}, PresetStrictJSON(), PresetStrictJSON(), PresetCautious())
	if len(applied.Constraints) != len(PresetStrictJSON().Constraints) {
		t.Fatalf("expected duplicates dropped, got %+v", applied.Constraints)
	}
	if len(applied.Rules) != 1 {
		t.Fatalf("expected one rule, got %+v", applied.Rules)
	}
}

type section struct {
	Title string `json:"title" prompt_desc:"Section heading."`
}

type page struct {
	ID       string    `json:"id" prompt_desc:"kebab-case id."`
	Sections []section `json:"sections"`
	Notes    string    `json:"notes,omitempty" prompt:"optional"`
	Internal string    `json:"-"`
	Skip     string    `json:"skip" prompt:"-"`
}

func TestFieldsFromStruct_NestedAndTags(t *testing.T) {
	fields, err := FieldsFromStruct(page{})
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %+v", fields)
	}
	if fields[0].Name != "id" || fields[0].Description != "kebab-case id." || !fields[0].Required {
		t.Fatalf("unexpected id field: %+v", fields[0])
	}
	if fields[1].Type != "[]section" || len(fields[1].Fields) != 1 || fields[1].Fields[0].Name != "title" {
		t.Fatalf("unexpected sections field: %+v", fields[1])
	}
	if fields[2].Required {
		t.Fatalf("notes should be optional")
	}
}

func TestSnake(t *testing.T) {
	cases := map[string]string{
		"SourceFiles": "source_files",
		"HTTPPort":    "http_port",
		"ID":          "id",
		"Summary":     "summary",
	}
	for in, want := range cases {
		if got := snake(in); got != want {
			t.Errorf("snake(%q) = %q, want %q", in, got, want)
		}
	}
}

type untagged struct {
	RelatedFeatures []string
	Score           float64
	Meta            map[string]int `json:",omitempty"`
}

func TestFieldsFromStruct_DerivesNamesAndTypes(t *testing.T) {
	fields := MustFieldsFromStruct(&untagged{})
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %+v", fields)
	}
	if fields[0].Name != "related_features" || fields[0].Type != "[]string" {
		t.Fatalf("unexpected first field: %+v", fields[0])
	}
	if fields[1].Type != "number" {
		t.Fatalf("unexpected score type: %+v", fields[1])
	}
	if fields[2].Name != "meta" || fields[2].Type != "map[string]int" || fields[2].Required {
		t.Fatalf("unexpected meta field: %+v", fields[2])
	}
}

func TestFieldsFromStruct_RejectsNonStruct(t *testing.T) {
	if _, err := FieldsFromStruct(42); err == nil {
		t.Fatal("expected error for non-struct")
	}
}
