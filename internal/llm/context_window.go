package llm

import "strings"

// runesPerToken is a rough average for English transcript text.
const runesPerToken = 4

// maxTranscriptRunes caps the budget even for very large context windows,
// long prompts being slower and costlier without better topics.
const maxTranscriptRunes = 120_000

// ContextWindow returns the approximate context window in tokens for a known
// model, or 0 when the model is not recognised.
// Ordered from most to least specific prefix to avoid short-prefix false matches.
func ContextWindow(modelName string) int {
	lower := strings.ToLower(modelName)
	parts := strings.Split(lower, "/") // "Pro/deepseek-ai/DeepSeek-V3"
	baseName := parts[len(parts)-1]

	knownWindows := []struct {
		prefix string
		tokens int
	}{
		{"gpt-4o", 128_000},
		{"gpt-4.1", 1_000_000},
		{"gpt-4-turbo", 128_000},
		{"gpt-4", 8_192},
		{"gpt-3.5-turbo", 16_385},
		{"o1", 200_000},
		{"o3", 200_000},
		{"o4-mini", 200_000},
		{"claude", 200_000},
		{"deepseek-v2", 128_000},
		{"deepseek", 64_000},
		{"gemini-1.5-pro", 2_000_000},
		{"gemini", 1_000_000},
		{"qwen2.5", 128_000},
		{"qwen", 32_000},
		{"llama3", 8_192},
		{"mistral", 32_000},
	}

	for _, kw := range knownWindows {
		if strings.HasPrefix(baseName, kw.prefix) {
			return kw.tokens
		}
	}
	return 0
}

// TranscriptBudget returns how many transcript runes fit comfortably in the
// model's context: half the window, leaving room for the prompt and answer.
// It returns 0 for unknown models so the caller keeps its own default.
func TranscriptBudget(modelName string) int {
	window := ContextWindow(modelName)
	if window == 0 {
		return 0
	}
	budget := window / 2 * runesPerToken
	if budget > maxTranscriptRunes {
		budget = maxTranscriptRunes
	}
	return budget
}
