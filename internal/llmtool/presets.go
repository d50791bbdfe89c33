package llmtool

// PromptPreset is a reusable block of constraints and rules.
type PromptPreset struct {
	Constraints []string
	Rules       []string
}

// ApplyPresets puts preset constraints and rules ahead of the spec's own,
// dropping exact duplicates.
func ApplyPresets(spec StructuredPromptSpec, presets ...PromptPreset) StructuredPromptSpec {
	if len(presets) == 0 {
		return spec
	}
	var constraints, rules []string
	for _, p := range presets {
		constraints = append(constraints, p.Constraints...)
		rules = append(rules, p.Rules...)
	}
	spec.Constraints = dedupe(append(constraints, spec.Constraints...))
	spec.Rules = dedupe(append(rules, spec.Rules...))
	return spec
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// PresetStrictJSON asks for one bare JSON object.
func PresetStrictJSON() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Respond with one JSON object and nothing else.",
			"Use exactly the field names from [OUTPUT]; do not add fields.",
			"No markdown fences, comments or trailing commas.",
		},
	}
}

// PresetNoInvent keeps paths and line ranges inside what the input shows.
func PresetNoInvent() PromptPreset {
	return PromptPreset{
		Constraints: []string{
			"Every file path must appear verbatim in the input; never guess or shorten a path.",
			"Line ranges must lie inside the provided file content.",
		},
	}
}

// PresetCautious prefers omission over speculation.
func PresetCautious() PromptPreset {
	return PromptPreset{
		Rules: []string{
			"If the input does not show how something works, leave it out rather than describe it from general knowledge.",
		},
	}
}
