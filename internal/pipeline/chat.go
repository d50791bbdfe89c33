package pipeline

import (
	"context"
	"fmt"

	"repowiki/internal/apperr"
	"repowiki/internal/llm"
	llmclient "repowiki/internal/llm/client"
)

const (
	MaxChatMessages      = 50
	defaultActiveFeature = "overview"
)

type ChatRequest struct {
	Messages        []llmclient.Message `json:"messages"`
	Owner           string              `json:"owner"`
	Repo            string              `json:"repo"`
	ActiveFeatureID string              `json:"activeFeatureId,omitempty"`
}

// Validate checks the request shape. Failures are caller errors.
func (r ChatRequest) Validate() error {
	if r.Owner == "" || r.Repo == "" {
		return fmt.Errorf("missing owner or repo")
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("invalid messages")
	}
	if len(r.Messages) > MaxChatMessages {
		return fmt.Errorf("too many messages")
	}
	for i, m := range r.Messages {
		if m.Role != llmclient.RoleUser && m.Role != llmclient.RoleAssistant {
			return fmt.Errorf("message %d: invalid role %q", i, m.Role)
		}
	}
	return nil
}

// ChatSystemPrompt grounds the assistant in the serialized wiki.
func ChatSystemPrompt(repo, wikiMarkdown, activeFeatureID string) string {
	if activeFeatureID == "" {
		activeFeatureID = defaultActiveFeature
	}
	return fmt.Sprintf(`You are a helpful assistant that answers questions about the %s repository based on its generated wiki documentation.

## Wiki Documentation

%s

## Instructions

- Answer questions based ONLY on the wiki documentation above. If the answer is not in the wiki, say so.
- Be concise and direct. Use markdown formatting in your responses.
- When referencing code or files, use the citation URLs from the wiki when available.
- The user is currently viewing the %q feature page.
- If the user asks about something not covered in the wiki, suggest which parts of the wiki might be most relevant.`,
		repo, wikiMarkdown, activeFeatureID)
}

const wikiNotCachedMsg = "Wiki not found. Please regenerate the wiki before chatting."

// ErrWikiNotCached is the NOT_FOUND returned when chat is asked about a wiki
// that is not in the cache.
func ErrWikiNotCached() *apperr.Error {
	return apperr.Public(apperr.CodeNotFound, wikiNotCachedMsg)
}

// Chat answers a question about a cached wiki, streaming text to onChunk.
// A wiki that is not cached yields NOT_FOUND; the caller must regenerate.
func (o *Orchestrator) Chat(ctx context.Context, req ChatRequest, onChunk func(string)) error {
	w, ok := o.cache.Get(req.Owner, req.Repo)
	if !ok {
		return ErrWikiNotCached()
	}
	system := ChatSystemPrompt(req.Repo, ToMarkdown(w), req.ActiveFeatureID)
	ctx = llm.WithPhase(ctx, llm.PhaseChat)
	if err := o.llm.StreamChat(ctx, system, req.Messages, onChunk); err != nil {
		return apperr.Wrap(apperr.CodeAIError, "Chat response failed", err)
	}
	return nil
}
