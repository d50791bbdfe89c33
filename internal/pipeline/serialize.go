package pipeline

import (
	"fmt"
	"strings"

	"repowiki/internal/types"
)

// ToMarkdown flattens a wiki into one markdown document, used as chat
// grounding and by the CLI's markdown output.
func ToMarkdown(w *types.Wiki) string {
	if w == nil {
		return ""
	}
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	line("# " + w.RepoName)
	line("")
	line(w.Description)
	line("")
	line("Repository: " + w.RepoURL)
	line("")
	line("---")
	line("")

	for _, f := range w.Features {
		line("## " + f.Name)
		line("")
		line(f.Summary)
		line("")
		for _, s := range f.Sections {
			line("### " + s.Title)
			line("")
			line(s.Content)
			line("")
			for _, sn := range s.CodeSnippets {
				c := sn.Citation
				line("```" + sn.Language)
				line(sn.Code)
				line("```")
				line(fmt.Sprintf("*Source: [%s:%d-%d](%s)*", c.File, c.StartLine, c.EndLine, c.URL))
				line("")
			}
		}
		if len(f.RelatedFeatures) > 0 {
			line("**Related features:** " + strings.Join(f.RelatedFeatures, ", "))
			line("")
		}
		line("---")
		line("")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
