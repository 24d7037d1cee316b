package core

import "maps"

// Action represents the result of a node execution that determines flow control.
// Packages that build flows declare their own Action constants; ActionDefault
// is the only tag the engine itself knows about.
type Action string

// ActionDefault is chosen when a node's Post does not name another action.
const ActionDefault Action = "default"

// normalize maps the empty action to ActionDefault.
func (a Action) normalize() Action {
	if a == "" {
		return ActionDefault
	}
	return a
}

// Params holds the key-value configuration a Flow injects into its nodes.
type Params map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	maps.Copy(out, p)
	return out
}

// Int returns the value stored under key as an int.
// The second result is false when the key is missing or not an integer.
func (p Params) Int(key string) (int, bool) {
	switch v := p[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

// String returns the value stored under key as a string.
func (p Params) String(key string) (string, bool) {
	s, ok := p[key].(string)
	return s, ok
}

// Merge returns a new map holding base overlaid with over.
// Entries from over win on key collision.
func Merge(base, over Params) Params {
	out := make(Params, len(base)+len(over))
	maps.Copy(out, base)
	maps.Copy(out, over)
	return out
}
