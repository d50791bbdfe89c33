package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	defaultOpenAIModel     = "gpt-5-mini"
	defaultClaudeModel     = "claude-sonnet-4-5"
	defaultClaudeMaxTokens = 8192
)

// EinoClient adapts any eino chat model (OpenAI, Claude) to LLMClient.
type EinoClient struct {
	cm   model.BaseChatModel
	name string
}

func NewOpenAIClient(ctx context.Context, apiKey, modelName string) (*EinoClient, error) {
	if modelName == "" {
		modelName = defaultOpenAIModel
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey: apiKey,
		Model:  modelName,
	})
	if err != nil {
		return nil, err
	}
	return &EinoClient{cm: cm, name: "OpenAI:" + modelName}, nil
}

func NewClaudeClient(ctx context.Context, apiKey, modelName string, maxTokens int) (*EinoClient, error) {
	if modelName == "" {
		modelName = defaultClaudeModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}
	cm, err := claude.NewChatModel(ctx, &claude.Config{
		APIKey:    apiKey,
		Model:     modelName,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, err
	}
	return &EinoClient{cm: cm, name: "Claude:" + modelName}, nil
}

// NewEinoClient wraps an already configured chat model.
func NewEinoClient(name string, cm model.BaseChatModel) *EinoClient {
	return &EinoClient{cm: cm, name: name}
}

func (e *EinoClient) Name() string { return e.name }
func (e *EinoClient) Close() error { return nil }

func (e *EinoClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	msgs := []*schema.Message{
		schema.SystemMessage("Respond with a single JSON object and nothing else."),
		schema.UserMessage(marshalInput(prompt, input)),
	}
	out, err := e.cm.Generate(ctx, msgs)
	if err != nil {
		return nil, err
	}
	if out == nil || out.Content == "" {
		return nil, ErrInvalidJSON
	}
	return ExtractJSON(out.Content)
}

func (e *EinoClient) StreamChat(ctx context.Context, system string, history []Message, onChunk func(chunk string)) error {
	msgs := make([]*schema.Message, 0, len(history)+1)
	if system != "" {
		msgs = append(msgs, schema.SystemMessage(system))
	}
	for _, m := range history {
		if m.Role == RoleAssistant {
			msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
		} else {
			msgs = append(msgs, schema.UserMessage(m.Content))
		}
	}
	reader, err := e.cm.Stream(ctx, msgs)
	if err != nil {
		return err
	}
	defer reader.Close()
	for {
		msg, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if msg != nil && msg.Content != "" {
			onChunk(msg.Content)
		}
	}
}
