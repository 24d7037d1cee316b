package llm

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
)

// ChatGenerator adapts an LLMProvider to TextGenerator by sending an optional
// system message followed by the prompt as a user message.
type ChatGenerator struct {
	provider LLMProvider
}

// NewChatGenerator wraps provider.
func NewChatGenerator(provider LLMProvider) *ChatGenerator {
	return &ChatGenerator{provider: provider}
}

// Generate implements TextGenerator.
func (g *ChatGenerator) Generate(ctx context.Context, prompt, system string) (string, error) {
	msgs := make([]Message, 0, 2)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: prompt})

	resp, err := g.provider.CallLLM(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Content, nil
}

// PlaceholderGenerator answers without any network call. It is used when no
// API key is configured so a run still produces a complete report.
type PlaceholderGenerator struct{}

var quotedSubject = regexp.MustCompile(`"([^"]+)"`)

// Generate implements TextGenerator with canned, deterministic responses
// chosen by the kind of request found in prompt.
func (PlaceholderGenerator) Generate(_ context.Context, prompt, _ string) (string, error) {
	lower := strings.ToLower(prompt)
	subject := "this"
	if m := quotedSubject.FindStringSubmatch(prompt); m != nil {
		subject = m[1]
	}

	switch {
	case strings.Contains(lower, "extract") && strings.Contains(lower, "topics"):
		log.Printf("[LLM] No API key, returning placeholder topics")
		return "Placeholder Topics: Topic 1, Topic 2, Topic 3, Topic 4, Topic 5", nil
	case strings.Contains(lower, "generate") && strings.Contains(lower, "questions"):
		return "Placeholder Questions: Question 1?; Question 2?; Question 3?", nil
	case strings.Contains(lower, "rephrase"):
		return "Simply put: " + subject, nil
	case strings.Contains(lower, "explain"):
		return fmt.Sprintf("Imagine %s is like a toy box. Everything inside has its own place, and when you play with it you learn how it works!", subject), nil
	default:
		return "Placeholder LLM Response due to missing API key", nil
	}
}
