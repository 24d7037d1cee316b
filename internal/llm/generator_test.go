package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type recordingProvider struct {
	got  []Message
	resp Message
	err  error
}

func (r *recordingProvider) CallLLM(_ context.Context, messages []Message) (Message, error) {
	r.got = messages
	return r.resp, r.err
}

func TestChatGenerator_SystemAndUserMessages(t *testing.T) {
	p := &recordingProvider{resp: Message{Role: RoleAssistant, Content: "hi"}}
	out, err := NewChatGenerator(p).Generate(context.Background(), "prompt", "be brief")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hi" {
		t.Errorf("expected hi, got %q", out)
	}
	if len(p.got) != 2 || p.got[0].Role != RoleSystem || p.got[1].Role != RoleUser {
		t.Errorf("unexpected messages: %+v", p.got)
	}
}

func TestChatGenerator_OmitsEmptySystem(t *testing.T) {
	p := &recordingProvider{resp: Message{Content: "ok"}}
	NewChatGenerator(p).Generate(context.Background(), "prompt", "  ")
	if len(p.got) != 1 || p.got[0].Content != "prompt" {
		t.Errorf("expected a single user message, got %+v", p.got)
	}
}

func TestChatGenerator_Errors(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewChatGenerator(&recordingProvider{err: boom}).Generate(context.Background(), "p", "")
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped provider error, got %v", err)
	}

	_, err = NewChatGenerator(&recordingProvider{resp: Message{Content: "\n"}}).Generate(context.Background(), "p", "")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestPlaceholderGenerator(t *testing.T) {
	tests := []struct {
		prompt string
		want   string
	}{
		{"Extract up to 5 interesting topics from this transcript", "Placeholder Topics:"},
		{"Generate 3 questions about \"Rainbows\"", "Placeholder Questions:"},
		{"Rephrase \"Light refraction\" for a child", "Simply put: Light refraction"},
		{"Explain \"why the sky is blue\" like I'm 5", "Imagine why the sky is blue"},
		{"something else", "Placeholder LLM Response"},
	}
	for _, tt := range tests {
		got, err := PlaceholderGenerator{}.Generate(context.Background(), tt.prompt, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(got, tt.want) {
			t.Errorf("Generate(%q) = %q, want prefix %q", tt.prompt, got, tt.want)
		}
	}
}
