// Package llmtool renders structured, sectioned instructions for the
// JSON-producing model phases.
package llmtool

import (
	"errors"
	"fmt"
	"strings"
)

// PromptField is one key of the JSON object the model must return.
// Fields lists the members when the value is an object or array of objects.
type PromptField struct {
	Name        string
	Type        string
	Required    bool
	Description string
	Fields      []PromptField
}

type PromptExample struct {
	InputJSON  string
	OutputJSON string
}

// StructuredPromptSpec is the instruction half of a model call. The call
// input travels separately and is appended by the provider.
type StructuredPromptSpec struct {
	Purpose      string
	Background   string
	OutputFields []PromptField
	Constraints  []string
	Rules        []string
	Assumptions  []string
	OutputFormat string
	Language     string
	Examples     []PromptExample
}

var (
	errNoPurpose = errors.New("llmtool: purpose is empty")
	errNoFields  = errors.New("llmtool: output fields are empty")
)

// Render lays the spec out as bracketed sections in a fixed order. Empty
// sections are omitted.
func (spec StructuredPromptSpec) Render() (string, error) {
	if strings.TrimSpace(spec.Purpose) == "" {
		return "", errNoPurpose
	}
	if len(spec.OutputFields) == 0 {
		return "", errNoFields
	}
	sections := []struct{ title, body string }{
		{"PURPOSE", spec.Purpose},
		{"BACKGROUND", spec.Background},
		{"OUTPUT", fieldLines(spec.OutputFields, "")},
		{"CONSTRAINTS", bullets(spec.Constraints)},
		{"RULES", bullets(spec.Rules)},
		{"ASSUMPTIONS", bullets(spec.Assumptions)},
		{"OUTPUT_FORMAT", spec.OutputFormat},
		{"LANGUAGE", spec.Language},
		{"EXAMPLES", examples(spec.Examples)},
	}
	var parts []string
	for _, s := range sections {
		body := strings.TrimSpace(s.body)
		if body == "" {
			continue
		}
		parts = append(parts, "["+s.title+"]\n"+body)
	}
	return strings.Join(parts, "\n\n") + "\n", nil
}

// MustRender is Render for package-level prompt literals.
func (spec StructuredPromptSpec) MustRender() string {
	out, err := spec.Render()
	if err != nil {
		panic(err)
	}
	return out
}

func fieldLines(fields []PromptField, indent string) string {
	var lines []string
	for _, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			continue
		}
		need := "optional"
		if f.Required {
			need = "required"
		}
		line := fmt.Sprintf("%s- %s (%s, %s)", indent, strings.TrimSpace(f.Name), f.Type, need)
		if f.Description != "" {
			line += ": " + f.Description
		}
		lines = append(lines, line)
		if sub := fieldLines(f.Fields, indent+"  "); sub != "" {
			lines = append(lines, sub)
		}
	}
	return strings.Join(lines, "\n")
}

func bullets(items []string) string {
	var lines []string
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			lines = append(lines, "- "+it)
		}
	}
	return strings.Join(lines, "\n")
}

func examples(exs []PromptExample) string {
	var blocks []string
	for i, ex := range exs {
		block := fmt.Sprintf("Example %d:", i+1)
		if in := strings.TrimSpace(ex.InputJSON); in != "" {
			block += "\nINPUT:\n" + in
		}
		if out := strings.TrimSpace(ex.OutputJSON); out != "" {
			block += "\nOUTPUT:\n" + out
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n")
}
