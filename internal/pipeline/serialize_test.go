package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repowiki/internal/apperr"
	wikicache "repowiki/internal/cache/wiki"
	llmclient "repowiki/internal/llm/client"
	"repowiki/internal/types"
)

func sampleWiki() *types.Wiki {
	c := types.Citation{ID: "auth-c1", File: "auth/login.go", StartLine: 3, EndLine: 9, URL: testBase + "/auth/login.go#L3-L9"}
	return &types.Wiki{
		RepoURL:     "https://github.com/octocat/hello-world",
		RepoName:    "hello-world",
		Description: "A greeting service.",
		Features: []types.Feature{{
			ID:      "auth",
			Name:    "Authentication",
			Summary: "Signs users in.",
			Sections: []types.Section{{
				Title:        "Login",
				Content:      "Handled by [auth/login.go:3-9].",
				Citations:    []types.Citation{c},
				CodeSnippets: []types.CodeSnippet{{Language: "go", Code: "func Login() {}", Citation: c}},
			}},
			RelatedFeatures: []string{"store", "api"},
		}},
	}
}

func TestToMarkdown(t *testing.T) {
	want := strings.Join([]string{
		"# hello-world",
		"",
		"A greeting service.",
		"",
		"Repository: https://github.com/octocat/hello-world",
		"",
		"---",
		"",
		"## Authentication",
		"",
		"Signs users in.",
		"",
		"### Login",
		"",
		"Handled by [auth/login.go:3-9].",
		"",
		"```go",
		"func Login() {}",
		"```",
		"*Source: [auth/login.go:3-9](https://github.com/octocat/hello-world/blob/main/auth/login.go#L3-L9)*",
		"",
		"**Related features:** store, api",
		"",
		"---",
		"",
	}, "\n")
	assert.Equal(t, want, ToMarkdown(sampleWiki()))
	assert.Empty(t, ToMarkdown(nil))
}

func TestChatRequestValidate(t *testing.T) {
	msg := llmclient.Message{Role: llmclient.RoleUser, Content: "hi"}
	ok := ChatRequest{Owner: "o", Repo: "r", Messages: []llmclient.Message{msg}}
	assert.NoError(t, ok.Validate())

	tooMany := ok
	tooMany.Messages = make([]llmclient.Message, MaxChatMessages+1)
	for i := range tooMany.Messages {
		tooMany.Messages[i] = msg
	}

	badRole := ok
	badRole.Messages = []llmclient.Message{{Role: "system", Content: "x"}}

	for name, req := range map[string]ChatRequest{
		"missing owner": {Repo: "r", Messages: ok.Messages},
		"no messages":   {Owner: "o", Repo: "r"},
		"too many":      tooMany,
		"bad role":      badRole,
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, req.Validate())
		})
	}
}

func TestChatSystemPrompt(t *testing.T) {
	p := ChatSystemPrompt("hello-world", "# wiki body", "")
	assert.Contains(t, p, "about the hello-world repository")
	assert.Contains(t, p, "# wiki body")
	assert.Contains(t, p, `viewing the "overview" feature page`)
	assert.Contains(t, ChatSystemPrompt("r", "", "auth"), `"auth" feature page`)
}

func TestChat(t *testing.T) {
	cache := wikicache.New(10, time.Hour)
	o := newTestOrchestrator(newStubGateway(), llmclient.NewFakeClient(), cache, nil)
	req := ChatRequest{Owner: "octocat", Repo: "hello-world", Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: "what is auth?"}}}

	err := o.Chat(t.Context(), req, func(string) {})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
	assert.Contains(t, apperr.UserMessage(apperr.Classify(err)), "regenerate")

	cache.Put("octocat", "hello-world", sampleWiki())
	var b strings.Builder
	require.NoError(t, o.Chat(t.Context(), req, func(s string) { b.WriteString(s) }))
	assert.Contains(t, b.String(), "what is auth?")
}
