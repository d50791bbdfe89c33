package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// reBadgeMD matches linked images: [![alt](img)](url)
	reBadgeMD = regexp.MustCompile(`\[!\[[^\]]*\]\([^)]*\)\]\([^)]*\)`)
	// reImageMD matches markdown images: ![alt](url)
	reImageMD = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	// reImageHTML matches HTML image tags: <img ...>
	reImageHTML = regexp.MustCompile(`(?is)<img[^>]*>`)
	// reComment matches HTML comments: <!-- ... -->
	reComment = regexp.MustCompile(`(?s)<!--.*?-->`)
	// reBlankLines matches lines holding only whitespace
	reBlankLines = regexp.MustCompile(`(?m)^[ \t]+$`)
	// reExcessiveNewlines matches 3 or more newlines to compress them
	reExcessiveNewlines = regexp.MustCompile(`\n{3,}`)
)

// MarkDownClean removes content that is generally not useful for LLM
// context, such as badges, images, HTML comments, and excessive whitespace.
func MarkDownClean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	text = reBadgeMD.ReplaceAllString(text, "")
	text = reImageMD.ReplaceAllString(text, "")
	text = reImageHTML.ReplaceAllString(text, "")

	text = reComment.ReplaceAllString(text, "")

	// Normalize newlines (max 2 consecutive newlines for paragraph separation)
	text = reBlankLines.ReplaceAllString(text, "")
	text = reExcessiveNewlines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// Excerpt cleans text and cuts it to at most maxChars, preferring the last
// paragraph break before the limit.
func Excerpt(text string, maxChars int) string {
	text = MarkDownClean(text)
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	cut := text[:maxChars]
	if i := strings.LastIndex(cut, "\n\n"); i > maxChars/2 {
		cut = cut[:i]
	}
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return strings.TrimSpace(cut) + "\n..."
}
