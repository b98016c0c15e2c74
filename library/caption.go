package library

import "strings"

// ParseCaption extracts structured metadata from a free-text message caption.
// Each non-empty line of the form "Key: value" yields one entry with the key
// lower-cased and both sides trimmed. Lines without a colon or with an empty
// value are ignored; a duplicated key keeps the last occurrence.
func ParseCaption(caption string) map[string]string {
	fields := map[string]string{}
	if caption == "" {
		return fields
	}
	for _, rawLine := range strings.Split(caption, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		fields[key] = value
	}
	return fields
}
