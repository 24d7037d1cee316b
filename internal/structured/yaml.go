// Package structured turns free-form model output into Go values.
// Parsing never aborts a stage: callers get a fallback alongside the error.
package structured

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ExtractYAML extracts YAML content from a ```yaml ... ``` code block.
// Returns an error only when a code block opening is found but no closing marker.
func ExtractYAML(content string) (string, error) {
	// Try ```yaml ... ``` first
	if idx := strings.Index(content, "```yaml"); idx >= 0 {
		rest := content[idx+7:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end]), nil
		}
		return "", fmt.Errorf("unclosed ```yaml code block")
	}
	// Try ``` ... ``` as fallback
	if idx := strings.Index(content, "```"); idx >= 0 {
		rest := content[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end]), nil
		}
		return "", fmt.Errorf("unclosed ``` code block")
	}
	// No code block found, try the whole content as YAML
	return strings.TrimSpace(content), nil
}

// unfence returns the fenced body, or the trimmed input when the fence is broken.
func unfence(raw string) string {
	body, err := ExtractYAML(raw)
	if err != nil {
		// drop the dangling opener and keep whatever followed it
		body = strings.TrimSpace(raw[strings.Index(raw, "```")+3:])
		body = strings.TrimPrefix(body, "yaml")
	}
	return strings.TrimSpace(body)
}

// Decode parses raw into a T. On malformed or empty input it returns
// fallback together with the parse error.
func Decode[T any](raw string, fallback T) (T, error) {
	body := unfence(raw)
	if body == "" {
		return fallback, fmt.Errorf("empty YAML document")
	}
	var out T
	if err := yaml.Unmarshal([]byte(body), &out); err != nil {
		return fallback, fmt.Errorf("YAML parse error: %w", err)
	}
	return out, nil
}

// ParseList extracts up to limit non-empty strings from raw (limit <= 0 means
// no limit). It accepts a YAML sequence, a mapping holding a sequence
// (e.g. "topics: [...]"), a sequence of mappings with a title-like key, or
// plain text separated by newlines, semicolons or commas. A "Label: a, b"
// line yields [a b].
func ParseList(raw string, limit int) []string {
	body := unfence(raw)
	if body == "" {
		return nil
	}

	var doc any
	var items []string
	if err := yaml.Unmarshal([]byte(body), &doc); err == nil {
		items = listFrom(doc, body)
	} else {
		items = splitText(body)
	}

	items = cleanItems(items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

var itemKeys = []string{"title", "topic", "question", "name", "text"}

func listFrom(doc any, body string) []string {
	switch v := doc.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			switch item := e.(type) {
			case map[string]any:
				for _, k := range itemKeys {
					if s, ok := item[k].(string); ok {
						out = append(out, s)
						break
					}
				}
			case nil:
			default:
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if seq, ok := v[k].([]any); ok {
				return listFrom(seq, body)
			}
		}
		if len(keys) == 1 {
			if s, ok := v[keys[0]].(string); ok {
				return splitText(s)
			}
		}
		return splitText(body)
	default:
		return splitText(body)
	}
}

// splitText splits on lines first, then semicolons, then commas.
func splitText(s string) []string {
	lines := nonEmptyLines(s)
	if len(lines) > 1 {
		return lines
	}
	if strings.Contains(s, ";") {
		return strings.Split(s, ";")
	}
	return strings.Split(s, ",")
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// cleanItems trims bullets, numbering, quotes and drops empties.
func cleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		it = strings.TrimLeft(it, "-*• ")
		it = trimNumbering(it)
		it = strings.Trim(it, `"' `)
		if it != "" {
			out = append(out, it)
		}
	}
	return out
}

// trimNumbering removes a leading "1." or "2)" marker.
func trimNumbering(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
