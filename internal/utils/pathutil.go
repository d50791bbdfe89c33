package utils

import (
	"path"
	"strings"
)

var extLanguages = map[string]string{
	"ts":    "typescript",
	"tsx":   "typescript",
	"mts":   "typescript",
	"js":    "javascript",
	"jsx":   "javascript",
	"mjs":   "javascript",
	"cjs":   "javascript",
	"py":    "python",
	"go":    "go",
	"rs":    "rust",
	"rb":    "ruby",
	"java":  "java",
	"kt":    "kotlin",
	"swift": "swift",
	"c":     "c",
	"h":     "c",
	"cc":    "cpp",
	"cpp":   "cpp",
	"hpp":   "cpp",
	"cs":    "csharp",
	"php":   "php",
	"ex":    "elixir",
	"exs":   "elixir",
	"sh":    "bash",
	"json":  "json",
	"yaml":  "yaml",
	"yml":   "yaml",
	"toml":  "toml",
	"md":    "markdown",
	"sql":   "sql",
	"html":  "html",
	"css":   "css",
	"vue":   "vue",
}

// LanguageForPath returns the fence language for a file path. Unknown
// extensions are returned as-is; no extension yields "".
func LanguageForPath(p string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	if lang, ok := extLanguages[ext]; ok {
		return lang
	}
	return ext
}

// Depth returns the number of path segments in p.
func Depth(p string) int {
	p = strings.Trim(p, "/")
	if p == "" {
		return 0
	}
	return strings.Count(p, "/") + 1
}
