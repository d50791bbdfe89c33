package llmclient

import (
	"context"
	"encoding/json"
	"errors"

	genai "google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient is a thin wrapper around the official genai client.
// It only focuses on the API call itself.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	// An empty key lets genai fall back to GEMINI_API_KEY / GOOGLE_API_KEY.
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

// GenerateJSON concatenates prompt and input, asks for application/json,
// and returns the model's JSON as json.RawMessage.
func (g *GeminiClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		genai.Text(marshalInput(prompt, input)),
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrInvalidJSON
	}
	return ExtractJSON(resp.Text())
}

func (g *GeminiClient) StreamChat(ctx context.Context, system string, history []Message, onChunk func(chunk string)) error {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	if len(contents) == 0 {
		return NewPermanentError(errors.New("empty chat history"))
	}
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	for resp, err := range g.cli.Models.GenerateContentStream(ctx, g.model, contents, cfg) {
		if err != nil {
			return err
		}
		if t := resp.Text(); t != "" {
			onChunk(t)
		}
	}
	return nil
}
