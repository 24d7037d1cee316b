// Package prompt implements a two-layer prompt loading system:
//
//   - L1: Prompt templates in prompts/*.md (embedded by default, overridable at runtime)
//   - L2: User style rules in rules.md (runtime only, appended to system prompts)
//
// The PromptLoader is safe for concurrent use.
package prompt

import (
	"embed"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// defaultPrompts embeds the prompt files shipped with the binary.
//
//go:embed prompts/*
var defaultPrompts embed.FS

// Template names used by the pipeline.
const (
	ExtractTopics     = "extract_topics.md"
	GenerateQuestions = "generate_questions.md"
	RephraseTopic     = "rephrase_topic.md"
	RephraseQuestion  = "rephrase_question.md"
	Answer            = "answer.md"

	SystemTopics    = "system_topics.md"
	SystemQuestions = "system_questions.md"
	SystemRephrase  = "system_rephrase.md"
	SystemAnswer    = "system_answer.md"
)

// promptInjectionPatterns contains lowercased substrings that indicate prompt injection attempts.
// Lines matching any pattern are dropped from user rules with a warning.
var promptInjectionPatterns = []string{
	"ignore previous",
	"ignore above",
	"ignore all previous",
	"disregard all",
	"disregard previous",
	"forget previous",
	"override instructions",
	"new instructions:",
}

// PromptLoader reads prompt templates and the user rules file.
// It caches file contents after the first read; call Reload to invalidate the cache.
type PromptLoader struct {
	promptsDir string // runtime override directory (may be empty)
	rulesPath  string // path to rules.md (may be empty)
	cache      map[string]string
	mu         sync.RWMutex
}

// NewPromptLoader creates a PromptLoader that reads templates from promptsDir
// (falling back to embedded defaults) and user rules from rulesPath.
// Both paths may be empty.
func NewPromptLoader(promptsDir, rulesPath string) *PromptLoader {
	return &PromptLoader{
		promptsDir: promptsDir,
		rulesPath:  rulesPath,
		cache:      make(map[string]string),
	}
}

// Load returns the content of the named prompt file.
//
// Priority:
//  1. Disk file at promptsDir/name (runtime override)
//  2. Embedded default at prompts/name
//  3. Empty string
func (l *PromptLoader) Load(name string) string {
	return l.cached("tpl:"+name, func() string { return l.loadUncached(name) })
}

// cached returns the value stored under key, computing it with load on a miss.
func (l *PromptLoader) cached(key string, load func() string) string {
	l.mu.RLock()
	if val, ok := l.cache[key]; ok {
		l.mu.RUnlock()
		return val
	}
	l.mu.RUnlock()

	content := load()

	// Double-check under write lock so concurrent misses store one value.
	l.mu.Lock()
	defer l.mu.Unlock()
	if val, ok := l.cache[key]; ok {
		return val
	}
	l.cache[key] = content
	return content
}

func (l *PromptLoader) loadUncached(name string) string {
	if l.promptsDir != "" {
		diskPath := filepath.Join(l.promptsDir, name)
		data, err := os.ReadFile(diskPath)
		if err == nil {
			return string(data)
		}
		if !os.IsNotExist(err) {
			log.Printf("[Prompt] Warning: read %q failed: %v; falling back to embedded default", diskPath, err)
		}
	}

	data, err := fs.ReadFile(defaultPrompts, "prompts/"+name)
	if err != nil {
		log.Printf("[Prompt] Warning: no template named %q", name)
		return ""
	}
	return string(data)
}

// LoadUserRules reads rules.md with injection patterns filtered out.
// Returns "" if the file does not exist or rulesPath is empty.
func (l *PromptLoader) LoadUserRules() string {
	return l.cached("rules", l.loadUserRulesUncached)
}

func (l *PromptLoader) loadUserRulesUncached() string {
	if l.rulesPath == "" {
		return ""
	}
	data, err := os.ReadFile(l.rulesPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Prompt] Warning: read user rules %q failed: %v", l.rulesPath, err)
		}
		return ""
	}
	return strings.TrimSpace(filterDangerousLines(string(data)))
}

// Render loads the named template and substitutes every {{KEY}} with
// vars[KEY]. Unknown placeholders are left as they are.
func (l *PromptLoader) Render(name string, vars map[string]string) string {
	text := l.Load(name)
	if len(vars) == 0 {
		return strings.TrimSpace(text)
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{{"+k+"}}", vars[k])
	}
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(text))
}

// System returns the named system prompt followed by the user rules, if any.
func (l *PromptLoader) System(name string) string {
	base := strings.TrimSpace(l.Load(name))
	rules := l.LoadUserRules()
	if rules == "" {
		return base
	}
	if base == "" {
		return rules
	}
	return base + "\n\n" + rules
}

// filterDangerousLines drops lines that match known prompt-injection patterns.
func filterDangerousLines(content string) string {
	lines := strings.Split(content, "\n")
	safe := make([]string, 0, len(lines))
	for _, line := range lines {
		lower := strings.ToLower(line)
		dropped := false
		for _, pattern := range promptInjectionPatterns {
			if strings.Contains(lower, pattern) {
				log.Printf("[Prompt] Warning: user rules line dropped (injection pattern %q detected): %q", pattern, line)
				dropped = true
				break
			}
		}
		if !dropped {
			safe = append(safe, line)
		}
	}
	return strings.Join(safe, "\n")
}

// Reload clears the cache so that subsequent calls re-read files from disk.
func (l *PromptLoader) Reload() {
	l.mu.Lock()
	l.cache = make(map[string]string)
	l.mu.Unlock()
}
