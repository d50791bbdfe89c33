// Package llmclient defines the provider-neutral LLM boundary and its
// concrete providers. Cross-cutting concerns (rate limiting, retries,
// logging, hooks, metrics) live in the llm package as middleware.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidJSON = errors.New("invalid json from LLM")

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// LLMClient is the black-box model boundary. GenerateJSON returns a JSON
// document (not yet schema-checked); StreamChat pushes text chunks to
// onChunk as they arrive.
type LLMClient interface {
	Name() string
	GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error)
	StreamChat(ctx context.Context, system string, history []Message, onChunk func(chunk string)) error
	Close() error
}

// Config selects and parameterizes a provider.
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	MaxTokens int
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderFake   = "fake"
)

// New builds the provider named by cfg.Provider.
func New(ctx context.Context, cfg Config) (LLMClient, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	case ProviderOpenAI:
		return NewOpenAIClient(ctx, cfg.APIKey, cfg.Model)
	case ProviderClaude:
		return NewClaudeClient(ctx, cfg.APIKey, cfg.Model, cfg.MaxTokens)
	case ProviderFake:
		return NewFakeClient(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// marshalInput renders the prompt and its JSON input the same way for every
// provider.
func marshalInput(prompt string, input any) string {
	if input == nil {
		return prompt
	}
	in, _ := json.MarshalIndent(input, "", "  ")
	return prompt + "\n\n[INPUT JSON]\n" + string(in)
}

// ExtractJSON strips markdown fences and surrounding prose from a model
// reply and returns the outermost JSON object. ErrInvalidJSON is returned
// when nothing parseable remains.
func ExtractJSON(txt string) (json.RawMessage, error) {
	s := strings.TrimSpace(txt)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if !json.Valid([]byte(s)) {
		start := strings.IndexByte(s, '{')
		end := strings.LastIndexByte(s, '}')
		if start < 0 || end <= start {
			return nil, ErrInvalidJSON
		}
		s = s[start : end+1]
		if !json.Valid([]byte(s)) {
			return nil, ErrInvalidJSON
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return nil, ErrInvalidJSON
	}
	return json.RawMessage(buf.Bytes()), nil
}
