package library

import "strings"

// tagSeparators maps the full-width punctuation captions arrive with to the
// canonical comma before splitting.
var tagSeparators = strings.NewReplacer("，", ",", "；", ",")

// NormalizeTags canonicalizes a raw tag list: split on commas (full-width
// comma and semicolon included), trim each part, drop empties, deduplicate
// keeping the first occurrence, rejoin with ", ".
func NormalizeTags(raw string) string {
	if raw == "" {
		return ""
	}
	seen := map[string]bool{}
	var tags []string
	for _, part := range strings.Split(tagSeparators.Replace(raw), ",") {
		tag := strings.TrimSpace(part)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return strings.Join(tags, ", ")
}

// langAliases maps the language spellings seen in captions to short codes.
var langAliases = map[string]string{
	"zh":      "zh",
	"zh-cn":   "zh",
	"cn":      "zh",
	"中文":      "zh",
	"en":      "en",
	"英文":      "en",
	"english": "en",
}

// NormalizeLang lower-cases and trims a language value and maps known
// aliases to their short code. Unrecognized input passes through
// trimmed and lower-cased.
func NormalizeLang(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if code, ok := langAliases[lowered]; ok {
		return code
	}
	return lowered
}
