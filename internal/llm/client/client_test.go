package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a":1}`},
		{"prose", "Here you go: {\"a\": [1, 2]} hope it helps", `{"a":[1,2]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSON(tc.in)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(got))
		})
	}

	_, err := ExtractJSON("no json here")
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestPermanentError_Unwraps(t *testing.T) {
	base := errors.New("bad request")
	err := NewPermanentError(base)
	var pe *PermanentError
	assert.True(t, errors.As(err, &pe))
	assert.ErrorIs(t, err, base)
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "nope"})
	assert.Error(t, err)
}

func TestFakeClient_Architecture(t *testing.T) {
	f := NewFakeClient()
	ctx := WithPhase(context.Background(), "architecture")
	raw, err := f.GenerateJSON(ctx, "p", map[string]any{
		"tree_paths": []string{"README.md", "src/a.go", "src/b.go", "cmd/main.go"},
	})
	require.NoError(t, err)

	var out struct {
		Features []struct {
			ID        string   `json:"id"`
			FilePaths []string `json:"filePaths"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out.Features, 3)
	assert.Equal(t, "cmd", out.Features[0].ID)
	assert.Equal(t, "core", out.Features[1].ID)
	assert.Equal(t, []string{"src/a.go", "src/b.go"}, out.Features[2].FilePaths)
}

func TestFakeClient_StreamChat(t *testing.T) {
	var chunks []string
	err := NewFakeClient().StreamChat(context.Background(), "sys", []Message{{Role: RoleUser, Content: "hi"}}, func(c string) {
		chunks = append(chunks, c)
	})
	require.NoError(t, err)
	assert.NotEmpty(t, chunks)
}
