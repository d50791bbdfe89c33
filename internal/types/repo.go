package types

// RepoMeta is the snapshot of repository metadata taken once per run.
type RepoMeta struct {
	Owner         string         `json:"owner"`
	Repo          string         `json:"repo"`
	FullName      string         `json:"full_name"`
	Description   string         `json:"description,omitempty"`
	DefaultBranch string         `json:"default_branch"`
	Language      string         `json:"language,omitempty"`
	Languages     map[string]int `json:"languages"`
	Stars         int            `json:"stars"`
	Readme        *string        `json:"readme,omitempty"`
	Topics        []string       `json:"topics"`
}

// NodeKind distinguishes files from directories in a tree listing.
type NodeKind string

const (
	NodeBlob NodeKind = "blob"
	NodeTree NodeKind = "tree"
)

type TreeNode struct {
	Path string   `json:"path"`
	Kind NodeKind `json:"type"`
	Size int64    `json:"size,omitempty"`
	SHA  string   `json:"sha"`
}

// RepoTree is a recursive listing of the default branch.
// TotalFiles counts blobs before any filtering. Truncated is set when the
// host capped the listing.
type RepoTree struct {
	Nodes      []TreeNode `json:"nodes"`
	TotalFiles int        `json:"total_files"`
	Truncated  bool       `json:"truncated"`
}

// Paths returns the node paths in listing order.
func (t RepoTree) Paths() []string {
	out := make([]string, 0, len(t.Nodes))
	for _, n := range t.Nodes {
		out = append(out, n.Path)
	}
	return out
}

// PathSet returns the node paths as a lookup set.
func (t RepoTree) PathSet() map[string]struct{} {
	out := make(map[string]struct{}, len(t.Nodes))
	for _, n := range t.Nodes {
		out[n.Path] = struct{}{}
	}
	return out
}

// SHAs maps each node path to its content identifier.
func (t RepoTree) SHAs() map[string]string {
	out := make(map[string]string, len(t.Nodes))
	for _, n := range t.Nodes {
		if n.SHA != "" {
			out[n.Path] = n.SHA
		}
	}
	return out
}

// FileContent is a single fetched file. Binary files carry empty content and
// Truncated=true.
type FileContent struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Size      int64  `json:"size"`
	SHA       string `json:"sha"`
	Truncated bool   `json:"truncated"`
}

// PreFetchedFile is a textual file prepared for model context.
type PreFetchedFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}
