package topic

import "strings"

// Topic is an event name in dot notation, such as "order.item.added".
type Topic string

// Wildcard constants for pattern matching.
const (
	// WildcardSingle matches a run of characters within one segment.
	WildcardSingle = "*"

	// WildcardMulti matches a run of characters across segments.
	WildcardMulti = "**"

	// WildcardChar matches exactly one character within a segment.
	WildcardChar = "?"

	// Separator is the character used to separate topic segments.
	Separator = "."
)

// Segments returns the topic split by the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// Parent returns the topic without its last segment, or "" for a
// single-segment topic.
//
// Example: "order.item.added" -> "order.item"
func (t Topic) Parent() Topic {
	s := string(t)
	idx := strings.LastIndex(s, Separator)
	if idx < 0 {
		return ""
	}
	return Topic(s[:idx])
}

// HasPrefix reports whether the topic starts with prefix.
// Only complete segments count as a prefix.
func (t Topic) HasPrefix(prefix Topic) bool {
	if prefix == "" {
		return true
	}
	s, p := string(t), string(prefix)
	if !strings.HasPrefix(s, p) {
		return false
	}
	return len(s) == len(p) || s[len(p)] == '.'
}

// IsValid reports whether the topic is non-empty and has no empty segments.
func (t Topic) IsValid() bool {
	if t == "" {
		return false
	}
	for _, seg := range t.Segments() {
		if seg == "" {
			return false
		}
	}
	return true
}

// IsPattern reports whether key is a wildcard pattern rather than a plain
// event name.
func IsPattern(key string) bool {
	return strings.ContainsAny(key, WildcardSingle+WildcardChar)
}
