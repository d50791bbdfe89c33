package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"golang.org/x/sync/errgroup"

	"repowiki/internal/apperr"
	"repowiki/internal/types"
)

type repoResponse struct {
	FullName      string   `json:"full_name"`
	Description   *string  `json:"description"`
	DefaultBranch string   `json:"default_branch"`
	Language      *string  `json:"language"`
	Stars         int      `json:"stargazers_count"`
	Topics        []string `json:"topics"`
}

type treeResponse struct {
	SHA  string `json:"sha"`
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
		SHA  string `json:"sha"`
		Size int64  `json:"size"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

func repoPath(owner, repo string) string {
	return "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
}

// FetchMeta issues the repository, language and README requests
// concurrently. Only a failure of the repository record is fatal; a missing
// README yields nil and missing languages an empty histogram.
func (c *Client) FetchMeta(ctx context.Context, owner, repo string) (types.RepoMeta, error) {
	var (
		rec       repoResponse
		languages map[string]int
		readme    *string
	)
	base := repoPath(owner, repo)

	var g errgroup.Group
	g.Go(func() error {
		body, err := c.get(ctx, base, "")
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &rec); err != nil {
			return apperr.Wrap(apperr.CodeUnknown, "invalid repository response", err)
		}
		return nil
	})
	g.Go(func() error {
		body, err := c.get(ctx, base+"/languages", "")
		if err != nil {
			c.log.Printf("github: languages for %s/%s unavailable: %v", owner, repo, err)
			return nil
		}
		if err := json.Unmarshal(body, &languages); err != nil {
			c.log.Printf("github: languages for %s/%s invalid: %v", owner, repo, err)
			languages = nil
		}
		return nil
	})
	g.Go(func() error {
		body, err := c.get(ctx, base+"/readme", "application/vnd.github.raw+json")
		if err != nil {
			return nil
		}
		s := string(body)
		readme = &s
		return nil
	})
	if err := g.Wait(); err != nil {
		return types.RepoMeta{}, c.classify(err)
	}

	if languages == nil {
		languages = map[string]int{}
	}
	topics := rec.Topics
	if topics == nil {
		topics = []string{}
	}
	fullName := rec.FullName
	if fullName == "" {
		fullName = owner + "/" + repo
	}
	branch := rec.DefaultBranch
	if branch == "" {
		branch = "main"
	}
	return types.RepoMeta{
		Owner:         owner,
		Repo:          repo,
		FullName:      fullName,
		Description:   deref(rec.Description),
		DefaultBranch: branch,
		Language:      deref(rec.Language),
		Languages:     languages,
		Stars:         rec.Stars,
		Readme:        readme,
		Topics:        topics,
	}, nil
}

// FetchTree returns the full recursive listing of branch. The listing is not
// filtered; TotalFiles counts every blob.
func (c *Client) FetchTree(ctx context.Context, owner, repo, branch string) (types.RepoTree, error) {
	if branch == "" {
		branch = "main"
	}
	body, err := c.get(ctx, repoPath(owner, repo)+"/git/trees/"+url.PathEscape(branch)+"?recursive=1", "")
	if err != nil {
		return types.RepoTree{}, c.classify(err)
	}
	var tr treeResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return types.RepoTree{}, apperr.Wrap(apperr.CodeUnknown, "invalid tree response", err)
	}

	out := types.RepoTree{Truncated: tr.Truncated, Nodes: make([]types.TreeNode, 0, len(tr.Tree))}
	for _, n := range tr.Tree {
		kind := types.NodeKind(n.Type)
		if kind != types.NodeBlob && kind != types.NodeTree {
			continue
		}
		if kind == types.NodeBlob {
			out.TotalFiles++
		}
		out.Nodes = append(out.Nodes, types.TreeNode{Path: n.Path, Kind: kind, Size: n.Size, SHA: n.SHA})
	}
	if tr.Truncated {
		c.log.Printf("github: WARNING tree for %s/%s@%s was truncated by the API", owner, repo, branch)
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// String is used in log lines.
func (c *Client) String() string { return fmt.Sprintf("github(%s)", c.baseURL) }
