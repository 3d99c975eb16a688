package topic

import "strings"

// Topic is a hierarchical event type in dot notation, such as
// "history.action.committed".
type Topic string

// Wildcard and separator tokens.
const (
	// WildcardSingle matches exactly one segment.
	WildcardSingle = "*"

	// WildcardMulti matches zero or more segments.
	WildcardMulti = "**"

	// Separator separates topic segments.
	Separator = "."
)

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the topic split by the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// Parent returns the topic without its last segment, or "".
func (t Topic) Parent() Topic {
	idx := strings.LastIndex(string(t), Separator)
	if idx < 0 {
		return ""
	}
	return t[:idx]
}

// IsWildcard reports whether the topic is a pattern.
func (t Topic) IsWildcard() bool {
	return strings.Contains(string(t), WildcardSingle)
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

// Matches reports whether t matches pattern. "*" matches exactly one
// segment and "**" matches zero or more.
func (t Topic) Matches(pattern Topic) bool {
	return matchSegments(t.Segments(), pattern.Segments())
}

func matchSegments(topic, pattern []string) bool {
	for len(pattern) > 0 {
		head := pattern[0]
		if head == WildcardMulti {
			for i := 0; i <= len(topic); i++ {
				if matchSegments(topic[i:], pattern[1:]) {
					return true
				}
			}
			return false
		}
		if len(topic) == 0 {
			return false
		}
		if head != WildcardSingle && head != topic[0] {
			return false
		}
		topic, pattern = topic[1:], pattern[1:]
	}
	return len(topic) == 0
}

// Join joins segments into a topic.
func Join(segments ...string) Topic {
	return Topic(strings.Join(segments, Separator))
}
