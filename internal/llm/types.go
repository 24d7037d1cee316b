package llm

import (
	"context"
	"errors"
)

// Message represents a chat message for LLM communication.
type Message struct {
	Role    string `json:"role"`    // "user", "assistant", "system"
	Content string `json:"content"` // The message text
}

// LLMProvider defines the interface for all LLM implementations.
// Any OpenAI-compatible endpoint (litellm, Ollama, Azure, vLLM, etc.)
// can be used by implementing this interface.
type LLMProvider interface {
	// CallLLM sends messages to the LLM and returns the complete response.
	CallLLM(ctx context.Context, messages []Message) (Message, error)
}

// TextGenerator is the single-prompt view of a model used by pipeline stages.
type TextGenerator interface {
	// Generate returns the model's answer to prompt. system may be empty.
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("empty response from LLM")

// Role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
